package race

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/pkg/errors"

	"github.com/trackside/carnival/core"
	"github.com/trackside/carnival/core/audit"
	"github.com/trackside/carnival/core/house"
)

var NowFunc = time.Now // mockable

type (
	Repository interface {
		CreateRace(ctx context.Context, rc Race) (Race, error)
		GetRace(ctx context.Context, id string) (Race, error)
		QueryRaces(ctx context.Context, ordering []core.DBOrdering) ([]Race, error)
		UpdateRaceStatus(ctx context.Context, id string, status Status) (Race, error)
		CreateRunners(ctx context.Context, runners []Runner) ([]Runner, error)
		QueryRunners(ctx context.Context, raceID string) ([]Runner, error)
		// RecordFinish persists the finish fields for a runner. When
		// finish.Position is zero the position is assigned in the same
		// transaction (next in arrival order); a manual position colliding
		// with an existing one fails with ErrPositionTaken.
		RecordFinish(ctx context.Context, runnerID string, finish Finish) (Runner, error)
		// ClearFinish unsets a runner's finish_time, position and running time.
		ClearFinish(ctx context.Context, runnerID string) error
	}

	// HousePointsService awards the computed points to the house ledger.
	HousePointsService interface {
		AwardRacePoints(ctx context.Context, raceName string, points map[string]int) ([]house.Entry, error)
	}

	// Service is the race ledger: it owns the currently selected race and the
	// in-progress finish order as an in-memory projection, writing through to
	// the Repository. The projection only changes after the store has
	// acknowledged a write, so a failed write never leaves the two diverged.
	Service struct {
		repo     Repository
		houseSvc HousePointsService
		auditSvc *audit.Service
		logger   core.Logger

		mu          sync.Mutex
		current     *Race
		runners     map[string]*Runner
		finishOrder []string // runner IDs in recorded order
	}
)

func NewService(repo Repository, houseSvc HousePointsService, auditSvc *audit.Service, logger core.Logger) *Service {
	return &Service{
		repo:     repo,
		houseSvc: houseSvc,
		auditSvc: auditSvc,
		logger:   logger,
		runners:  make(map[string]*Runner),
	}
}

// Create persists a new pending race and selects it, discarding the previous
// projection (runners and in-memory finish progress).
func (svc *Service) Create(ctx context.Context, nr NewRace) (Race, error) {
	nr.Name = core.CleanString(nr.Name)
	if nr.Name == "" {
		return Race{}, core.NewValidationError(nil, core.FieldError{Field: "name", Error: "this field is required"})
	}
	if nr.Date.IsZero() {
		return Race{}, core.NewValidationError(nil, core.FieldError{Field: "date", Error: "this field is required"})
	}

	now := NowFunc().UTC()
	rc, err := svc.repo.CreateRace(ctx, Race{
		Name:      nr.Name,
		Date:      nr.Date,
		Status:    StatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	})
	if err != nil {
		return Race{}, errors.Wrap(err, "inserting race")
	}

	svc.mu.Lock()
	svc.replaceProjection(rc, nil)
	svc.mu.Unlock()
	return rc, nil
}

// Select loads an existing race and its runners into the projection. The
// finish order is rebuilt from persisted positions.
func (svc *Service) Select(ctx context.Context, id string) (Race, error) {
	rc, err := svc.repo.GetRace(ctx, id)
	if err != nil {
		return Race{}, err
	}
	runners, err := svc.repo.QueryRunners(ctx, rc.ID)
	if err != nil {
		return Race{}, errors.Wrap(err, "querying runners")
	}

	svc.mu.Lock()
	svc.replaceProjection(rc, runners)
	svc.mu.Unlock()
	return rc, nil
}

// replaceProjection must be called with svc.mu held.
func (svc *Service) replaceProjection(rc Race, runners []Runner) {
	svc.current = &rc
	svc.runners = make(map[string]*Runner, len(runners))
	svc.finishOrder = nil

	finished := make([]*Runner, 0, len(runners))
	for i := range runners {
		r := runners[i]
		svc.runners[r.ID] = &r
		if r.Position != nil {
			finished = append(finished, svc.runners[r.ID])
		}
	}
	sort.SliceStable(finished, func(i, j int) bool { return *finished[i].Position < *finished[j].Position })
	for _, r := range finished {
		svc.finishOrder = append(svc.finishOrder, r.ID)
	}
}

// Current returns the selected race, if any.
func (svc *Service) Current() (Race, bool) {
	svc.mu.Lock()
	defer svc.mu.Unlock()
	if svc.current == nil {
		return Race{}, false
	}
	return *svc.current, true
}

func (svc *Service) QueryAll(ctx context.Context) ([]Race, error) {
	return svc.repo.QueryRaces(ctx, []core.DBOrdering{{Field: "date", Ascending: false}})
}

func (svc *Service) GetByID(ctx context.Context, id string) (Race, error) {
	return svc.repo.GetRace(ctx, id)
}

// SetStatus moves the selected race along the forward path
// pending -> active -> completed; anything else is rejected.
func (svc *Service) SetStatus(ctx context.Context, to Status) (Race, error) {
	svc.mu.Lock()
	defer svc.mu.Unlock()

	if svc.current == nil {
		return Race{}, ErrNoCurrentRace
	}
	if !to.Valid() || !svc.current.Status.CanTransitionTo(to) {
		return Race{}, ErrInvalidTransition
	}

	rc, err := svc.repo.UpdateRaceStatus(ctx, svc.current.ID, to)
	if err != nil {
		return Race{}, errors.Wrap(err, "updating race status")
	}
	svc.current = &rc
	return rc, nil
}

// Runners returns the selected race's runners, name-ordered.
func (svc *Service) Runners() []Runner {
	svc.mu.Lock()
	defer svc.mu.Unlock()

	runners := make([]Runner, 0, len(svc.runners))
	for _, r := range svc.runners {
		runners = append(runners, *r)
	}
	sort.Slice(runners, func(i, j int) bool { return runners[i].Name < runners[j].Name })
	return runners
}

// FinishOrder returns a snapshot of the ordered finish ledger.
func (svc *Service) FinishOrder() []Runner {
	svc.mu.Lock()
	defer svc.mu.Unlock()
	return svc.finishOrderLocked()
}

func (svc *Service) finishOrderLocked() []Runner {
	order := make([]Runner, 0, len(svc.finishOrder))
	for _, id := range svc.finishOrder {
		order = append(order, *svc.runners[id])
	}
	return order
}

// Record registers a runner crossing the finish line.
func (svc *Service) Record(ctx context.Context, rf RecordFinish) (Runner, error) {
	svc.mu.Lock()
	defer svc.mu.Unlock()

	if svc.current == nil {
		return Runner{}, ErrNoCurrentRace
	}
	if svc.current.Status == StatusCompleted {
		return Runner{}, ErrRaceCompleted
	}

	runner, ok := svc.runners[rf.RunnerID]
	if !ok {
		return Runner{}, ErrRunnerNotFound
	}
	if runner.Finished() {
		return Runner{}, ErrDuplicateFinish
	}
	if rf.Position > 0 {
		for _, r := range svc.runners {
			if r.Position != nil && *r.Position == rf.Position {
				return Runner{}, ErrPositionTaken
			}
		}
	}

	updated, err := svc.repo.RecordFinish(ctx, runner.ID, Finish{
		Time:           NowFunc().UTC(),
		Position:       rf.Position,
		RunningSeconds: rf.Minutes*60 + rf.Seconds,
	})
	if err != nil {
		return Runner{}, errors.Wrap(err, "recording finish")
	}

	*runner = updated
	svc.finishOrder = append(svc.finishOrder, runner.ID)
	return updated, nil
}

// UndoLastFinish reverts the most recent finish; older entries cannot be
// undone individually.
func (svc *Service) UndoLastFinish(ctx context.Context) (Runner, error) {
	svc.mu.Lock()
	defer svc.mu.Unlock()

	if len(svc.finishOrder) == 0 {
		return Runner{}, ErrEmptyLedger
	}

	id := svc.finishOrder[len(svc.finishOrder)-1]
	runner := svc.runners[id]

	if err := svc.repo.ClearFinish(ctx, id); err != nil {
		return Runner{}, errors.Wrap(err, "clearing finish")
	}

	runner.FinishTime = nil
	runner.Position = nil
	runner.RunningSeconds = nil
	svc.finishOrder = svc.finishOrder[:len(svc.finishOrder)-1]
	return *runner, nil
}

// CalculateHousePoints scores the completed race's finish order, appends the
// resulting entries to the house points ledger and logs the action.
func (svc *Service) CalculateHousePoints(ctx context.Context, actor string) (map[string]int, error) {
	svc.mu.Lock()
	if svc.current == nil {
		svc.mu.Unlock()
		return nil, ErrNoCurrentRace
	}
	if svc.current.Status != StatusCompleted {
		svc.mu.Unlock()
		return nil, ErrRaceNotCompleted
	}
	raceName := svc.current.Name
	order := svc.finishOrderLocked()
	svc.mu.Unlock()

	points := CalculatePoints(order)
	if _, err := svc.houseSvc.AwardRacePoints(ctx, raceName, points); err != nil {
		return nil, errors.Wrap(err, "awarding race points")
	}

	if _, err := svc.auditSvc.Log(ctx, actor, audit.ActionPointCalculation, map[string]interface{}{
		"race":   raceName,
		"points": points,
	}); err != nil {
		svc.logger.Error(fmt.Sprintf("logging %s action: %v", audit.ActionPointCalculation, err), err)
	}
	return points, nil
}

// ImportRunners bulk-creates runners for a race and, when that race is the
// selected one, merges them into the projection.
func (svc *Service) ImportRunners(ctx context.Context, raceID string, runners []Runner) ([]Runner, error) {
	if _, err := svc.repo.GetRace(ctx, raceID); err != nil {
		return nil, err
	}
	for i := range runners {
		runners[i].RaceID = raceID
	}

	created, err := svc.repo.CreateRunners(ctx, runners)
	if err != nil {
		return nil, errors.Wrap(err, "inserting runners")
	}

	svc.mu.Lock()
	if svc.current != nil && svc.current.ID == raceID {
		for i := range created {
			r := created[i]
			svc.runners[r.ID] = &r
		}
	}
	svc.mu.Unlock()
	return created, nil
}

// RunnersByRace reads runners straight from the store, bypassing the projection.
func (svc *Service) RunnersByRace(ctx context.Context, raceID string) ([]Runner, error) {
	return svc.repo.QueryRunners(ctx, raceID)
}
