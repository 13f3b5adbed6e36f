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
	"github.com/trackside/carnival/core/house"
)

type houseRepository struct {
	db *sqlx.DB
}

var _ house.Repository = (*houseRepository)(nil) // interface compliance check

func NewHouseRepository(db *sqlx.DB) *houseRepository {
	return &houseRepository{db: db}
}

type pointRow struct {
	ID        string      `db:"id"`
	House     string      `db:"house"`
	Points    int         `db:"points"`
	Reason    null.String `db:"reason"`
	CreatedAt time.Time   `db:"created_at"`
}

func (row pointRow) toEntry() house.Entry {
	return house.Entry{
		ID:        row.ID,
		House:     row.House,
		Points:    row.Points,
		Reason:    row.Reason.String,
		CreatedAt: row.CreatedAt,
	}
}

func (repo *houseRepository) CreateEntry(ctx context.Context, entry house.Entry) (house.Entry, error) {
	entry.ID = uuid.New().String()
	_, err := repo.db.ExecContext(ctx,
		`INSERT INTO house_point (id, house, points, reason, created_at) VALUES ($1, $2, $3, $4, $5)`,
		entry.ID, entry.House, entry.Points, null.NewString(entry.Reason, entry.Reason != ""), entry.CreatedAt.UTC(),
	)
	if err != nil {
		return house.Entry{}, errors.Wrap(err, "inserting point entry")
	}
	return entry, nil
}

func (repo *houseRepository) CreateEntries(ctx context.Context, entries []house.Entry) ([]house.Entry, error) {
	tx, err := repo.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, errors.Wrap(err, "beginning transaction")
	}
	defer func() { _ = tx.Rollback() }()

	created := make([]house.Entry, 0, len(entries))
	for _, entry := range entries {
		entry.ID = uuid.New().String()
		_, err = tx.ExecContext(ctx,
			`INSERT INTO house_point (id, house, points, reason, created_at) VALUES ($1, $2, $3, $4, $5)`,
			entry.ID, entry.House, entry.Points, null.NewString(entry.Reason, entry.Reason != ""), entry.CreatedAt.UTC(),
		)
		if err != nil {
			return nil, errors.Wrap(err, "inserting point entry")
		}
		created = append(created, entry)
	}

	if err = tx.Commit(); err != nil {
		return nil, errors.Wrap(err, "committing point entries")
	}
	return created, nil
}

func (repo *houseRepository) QueryEntries(ctx context.Context, ordering []core.DBOrdering) ([]house.Entry, error) {
	q := `SELECT * FROM house_point`
	if len(ordering) > 0 {
		q += " ORDER BY " + orderingList(ordering)
	}
	var rows []pointRow
	if err := repo.db.SelectContext(ctx, &rows, q); err != nil {
		return nil, errors.Wrap(err, "querying point entries")
	}
	entries := make([]house.Entry, 0, len(rows))
	for _, row := range rows {
		entries = append(entries, row.toEntry())
	}
	return entries, nil
}

func (repo *houseRepository) DeleteAllEntries(ctx context.Context) error {
	if _, err := repo.db.ExecContext(ctx, `DELETE FROM house_point`); err != nil {
		return errors.Wrap(err, "deleting point entries")
	}
	return nil
}

func (repo *houseRepository) SaveBackup(ctx context.Context, slot string, payload []byte) error {
	_, err := repo.db.ExecContext(ctx,
		`INSERT INTO point_backup (slot, payload, created_at) VALUES ($1, $2, $3)
		 ON CONFLICT (slot) DO UPDATE SET payload = EXCLUDED.payload, created_at = EXCLUDED.created_at`,
		slot, payload, time.Now().UTC(),
	)
	if err != nil {
		return errors.Wrap(err, "saving backup")
	}
	return nil
}

func (repo *houseRepository) GetBackup(ctx context.Context, slot string) ([]byte, error) {
	var payload []byte
	if err := repo.db.GetContext(ctx, &payload, `SELECT payload FROM point_backup WHERE slot = $1`, slot); err != nil {
		if err == sql.ErrNoRows {
			return nil, house.ErrBackupNotFound
		}
		return nil, errors.Wrap(err, "finding backup")
	}
	return payload, nil
}
