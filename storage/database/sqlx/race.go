package sqlxrepos

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trackside/carnival/core"
	"github.com/trackside/carnival/core/race"
)

type raceRepository struct {
	db *sqlx.DB
}

var _ race.Repository = (*raceRepository)(nil) // interface compliance check

func NewRaceRepository(db *sqlx.DB) *raceRepository {
	return &raceRepository{db: db}
}

type raceRow struct {
	ID        string    `db:"id"`
	Name      string    `db:"name"`
	Date      time.Time `db:"date"`
	Status    string    `db:"status"`
	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

func (row raceRow) toRace() race.Race {
	return race.Race{
		ID:        row.ID,
		Name:      row.Name,
		Date:      row.Date,
		Status:    race.Status(row.Status),
		CreatedAt: row.CreatedAt,
		UpdatedAt: row.UpdatedAt,
	}
}

type runnerRow struct {
	ID             string      `db:"id"`
	RaceID         string      `db:"race_id"`
	Name           string      `db:"name"`
	House          string      `db:"house"`
	AgeGroup       null.String `db:"age_group"`
	DateOfBirth    null.Time   `db:"date_of_birth"`
	Gender         null.String `db:"gender"`
	FinishTime     null.Time   `db:"finish_time"`
	Position       null.Int    `db:"position"`
	RunningSeconds null.Int    `db:"running_time_seconds"`
}

func (row runnerRow) toRunner() race.Runner {
	r := race.Runner{
		ID:          row.ID,
		RaceID:      row.RaceID,
		Name:        row.Name,
		House:       row.House,
		AgeGroup:    row.AgeGroup.String,
		DateOfBirth: row.DateOfBirth.Time,
		Gender:      row.Gender.String,
	}
	if row.FinishTime.Valid {
		t := row.FinishTime.Time
		r.FinishTime = &t
	}
	if row.Position.Valid {
		p := int(row.Position.Int)
		r.Position = &p
	}
	if row.RunningSeconds.Valid {
		s := int(row.RunningSeconds.Int)
		r.RunningSeconds = &s
	}
	return r
}

func (repo *raceRepository) CreateRace(ctx context.Context, rc race.Race) (race.Race, error) {
	rc.ID = uuid.New().String()
	_, err := repo.db.ExecContext(ctx,
		`INSERT INTO race (id, name, date, status, created_at, updated_at) VALUES ($1, $2, $3, $4, $5, $6)`,
		rc.ID, rc.Name, rc.Date, string(rc.Status), rc.CreatedAt.UTC(), rc.UpdatedAt.UTC(),
	)
	if err != nil {
		return race.Race{}, errors.Wrap(err, "inserting race")
	}
	return rc, nil
}

func (repo *raceRepository) GetRace(ctx context.Context, id string) (race.Race, error) {
	if _, err := uuid.Parse(id); err != nil {
		return race.Race{}, race.ErrRaceNotFound
	}
	var row raceRow
	if err := repo.db.GetContext(ctx, &row, `SELECT * FROM race WHERE id = $1`, id); err != nil {
		if err == sql.ErrNoRows {
			return race.Race{}, race.ErrRaceNotFound
		}
		return race.Race{}, errors.Wrap(err, "finding race by ID")
	}
	return row.toRace(), nil
}

func (repo *raceRepository) QueryRaces(ctx context.Context, ordering []core.DBOrdering) ([]race.Race, error) {
	q := `SELECT * FROM race`
	if len(ordering) > 0 {
		q += " ORDER BY " + orderingList(ordering)
	}
	var rows []raceRow
	if err := repo.db.SelectContext(ctx, &rows, q); err != nil {
		return nil, errors.Wrap(err, "querying races")
	}
	races := make([]race.Race, 0, len(rows))
	for _, row := range rows {
		races = append(races, row.toRace())
	}
	return races, nil
}

func (repo *raceRepository) UpdateRaceStatus(ctx context.Context, id string, status race.Status) (race.Race, error) {
	var row raceRow
	err := repo.db.GetContext(ctx, &row,
		`UPDATE race SET status = $2, updated_at = $3 WHERE id = $1 RETURNING *`,
		id, string(status), time.Now().UTC(),
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return race.Race{}, race.ErrRaceNotFound
		}
		return race.Race{}, errors.Wrap(err, "updating race status")
	}
	return row.toRace(), nil
}

func (repo *raceRepository) CreateRunners(ctx context.Context, runners []race.Runner) ([]race.Runner, error) {
	tx, err := repo.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, errors.Wrap(err, "beginning transaction")
	}
	defer func() { _ = tx.Rollback() }()

	created := make([]race.Runner, 0, len(runners))
	for _, r := range runners {
		r.ID = uuid.New().String()
		_, err = tx.ExecContext(ctx,
			`INSERT INTO runner (id, race_id, name, house, age_group, date_of_birth, gender)
			 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			r.ID, r.RaceID, r.Name, r.House,
			null.NewString(r.AgeGroup, r.AgeGroup != ""),
			null.NewTime(r.DateOfBirth, !r.DateOfBirth.IsZero()),
			null.NewString(r.Gender, r.Gender != ""),
		)
		if err != nil {
			return nil, errors.Wrap(err, "inserting runner")
		}
		created = append(created, r)
	}

	if err = tx.Commit(); err != nil {
		return nil, errors.Wrap(err, "committing runners")
	}
	return created, nil
}

func (repo *raceRepository) QueryRunners(ctx context.Context, raceID string) ([]race.Runner, error) {
	var rows []runnerRow
	err := repo.db.SelectContext(ctx, &rows, `SELECT * FROM runner WHERE race_id = $1 ORDER BY name`, raceID)
	if err != nil {
		return nil, errors.Wrap(err, "querying runners")
	}
	runners := make([]race.Runner, 0, len(rows))
	for _, row := range rows {
		runners = append(runners, row.toRunner())
	}
	return runners, nil
}

// RecordFinish runs in a transaction holding the race row lock so two
// finish-line sessions cannot be handed the same position.
func (repo *raceRepository) RecordFinish(ctx context.Context, runnerID string, finish race.Finish) (race.Runner, error) {
	tx, err := repo.db.BeginTxx(ctx, nil)
	if err != nil {
		return race.Runner{}, errors.Wrap(err, "beginning transaction")
	}
	defer func() { _ = tx.Rollback() }()

	var row runnerRow
	if err = tx.GetContext(ctx, &row, `SELECT * FROM runner WHERE id = $1`, runnerID); err != nil {
		if err == sql.ErrNoRows {
			return race.Runner{}, race.ErrRunnerNotFound
		}
		return race.Runner{}, errors.Wrap(err, "finding runner by ID")
	}
	if row.FinishTime.Valid {
		return race.Runner{}, race.ErrDuplicateFinish
	}

	var raceID string
	if err = tx.GetContext(ctx, &raceID, `SELECT id FROM race WHERE id = $1 FOR UPDATE`, row.RaceID); err != nil {
		return race.Runner{}, errors.Wrap(err, "locking race")
	}

	position := finish.Position
	if position > 0 {
		var taken bool
		err = tx.GetContext(ctx, &taken,
			`SELECT EXISTS (SELECT 1 FROM runner WHERE race_id = $1 AND position = $2)`, row.RaceID, position)
		if err != nil {
			return race.Runner{}, errors.Wrap(err, "checking position")
		}
		if taken {
			return race.Runner{}, race.ErrPositionTaken
		}
	} else {
		err = tx.GetContext(ctx, &position,
			`SELECT COALESCE(MAX(position), 0) + 1 FROM runner WHERE race_id = $1`, row.RaceID)
		if err != nil {
			return race.Runner{}, errors.Wrap(err, "assigning position")
		}
	}

	err = tx.GetContext(ctx, &row,
		`UPDATE runner SET finish_time = $2, position = $3, running_time_seconds = $4 WHERE id = $1 RETURNING *`,
		runnerID, finish.Time.UTC(), position, finish.RunningSeconds,
	)
	if err != nil {
		return race.Runner{}, errors.Wrap(err, "updating runner finish")
	}

	if err = tx.Commit(); err != nil {
		return race.Runner{}, errors.Wrap(err, "committing finish")
	}
	return row.toRunner(), nil
}

func (repo *raceRepository) ClearFinish(ctx context.Context, runnerID string) error {
	res, err := repo.db.ExecContext(ctx,
		`UPDATE runner SET finish_time = NULL, position = NULL, running_time_seconds = NULL WHERE id = $1`, runnerID)
	if err != nil {
		return errors.Wrap(err, "clearing runner finish")
	}
	if cnt, err := res.RowsAffected(); err == nil && cnt == 0 {
		return race.ErrRunnerNotFound
	}
	return nil
}
