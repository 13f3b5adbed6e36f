package inmemdb

import (
	"context"
	"sort"

	"github.com/google/uuid"

	"github.com/trackside/carnival/core"
	"github.com/trackside/carnival/core/race"
)

type raceRepository struct {
	db *raceTable
}

var _ race.Repository = (*raceRepository)(nil) // interface compliance check

func NewRaceRepository(db *DB) *raceRepository {
	return &raceRepository{db: db.race}
}

func (repo *raceRepository) CreateRace(_ context.Context, rc race.Race) (race.Race, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	rc.ID = uuid.New().String()
	repo.db.races[rc.ID] = &rc
	return rc, nil
}

func (repo *raceRepository) GetRace(_ context.Context, id string) (race.Race, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	rc, ok := repo.db.races[id]
	if !ok {
		return race.Race{}, race.ErrRaceNotFound
	}
	return *rc, nil
}

func (repo *raceRepository) QueryRaces(_ context.Context, ordering []core.DBOrdering) ([]race.Race, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	races := make([]race.Race, 0, len(repo.db.races))
	for _, rc := range repo.db.races {
		races = append(races, *rc)
	}
	sort.Slice(races, func(i, j int) bool { return races[i].Date.After(races[j].Date) })
	return races, nil
}

func (repo *raceRepository) UpdateRaceStatus(_ context.Context, id string, status race.Status) (race.Race, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	rc, ok := repo.db.races[id]
	if !ok {
		return race.Race{}, race.ErrRaceNotFound
	}
	rc.Status = status
	return *rc, nil
}

func (repo *raceRepository) CreateRunners(_ context.Context, runners []race.Runner) ([]race.Runner, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	created := make([]race.Runner, 0, len(runners))
	for _, r := range runners {
		r.ID = uuid.New().String()
		runner := r
		repo.db.runners[r.ID] = &runner
		created = append(created, r)
	}
	return created, nil
}

func (repo *raceRepository) QueryRunners(_ context.Context, raceID string) ([]race.Runner, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	runners := make([]race.Runner, 0)
	for _, r := range repo.db.runners {
		if r.RaceID == raceID {
			runners = append(runners, *r)
		}
	}
	sort.Slice(runners, func(i, j int) bool { return runners[i].Name < runners[j].Name })
	return runners, nil
}

func (repo *raceRepository) RecordFinish(_ context.Context, runnerID string, finish race.Finish) (race.Runner, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	runner, ok := repo.db.runners[runnerID]
	if !ok {
		return race.Runner{}, race.ErrRunnerNotFound
	}
	if runner.FinishTime != nil {
		return race.Runner{}, race.ErrDuplicateFinish
	}

	position := finish.Position
	if position > 0 {
		for _, r := range repo.db.runners {
			if r.RaceID == runner.RaceID && r.Position != nil && *r.Position == position {
				return race.Runner{}, race.ErrPositionTaken
			}
		}
	} else {
		for _, r := range repo.db.runners {
			if r.RaceID == runner.RaceID && r.Position != nil && *r.Position >= position {
				position = *r.Position
			}
		}
		position++
	}

	t := finish.Time
	secs := finish.RunningSeconds
	runner.FinishTime = &t
	runner.Position = &position
	runner.RunningSeconds = &secs
	return *runner, nil
}

func (repo *raceRepository) ClearFinish(_ context.Context, runnerID string) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	runner, ok := repo.db.runners[runnerID]
	if !ok {
		return race.ErrRunnerNotFound
	}
	runner.FinishTime = nil
	runner.Position = nil
	runner.RunningSeconds = nil
	return nil
}
