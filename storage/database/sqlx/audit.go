package sqlxrepos

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trackside/carnival/core"
	"github.com/trackside/carnival/core/audit"
)

type auditRepository struct {
	db *sqlx.DB
}

var _ audit.Repository = (*auditRepository)(nil) // interface compliance check

func NewAuditRepository(db *sqlx.DB) *auditRepository {
	return &auditRepository{db: db}
}

type actionRow struct {
	ID        string     `db:"id"`
	Action    string     `db:"action"`
	Actor     string     `db:"actor"`
	Details   null.Bytes `db:"details"`
	CreatedAt time.Time  `db:"created_at"`
}

func (row actionRow) toEntry() audit.Entry {
	return audit.Entry{
		ID:        row.ID,
		Action:    audit.Action(row.Action),
		Actor:     row.Actor,
		Details:   json.RawMessage(row.Details.Bytes),
		CreatedAt: row.CreatedAt,
	}
}

func (repo *auditRepository) CreateEntry(ctx context.Context, entry audit.Entry) (audit.Entry, error) {
	entry.ID = uuid.New().String()
	_, err := repo.db.ExecContext(ctx,
		`INSERT INTO action_log (id, action, actor, details, created_at) VALUES ($1, $2, $3, $4, $5)`,
		entry.ID, string(entry.Action), entry.Actor,
		null.NewBytes([]byte(entry.Details), entry.Details != nil), entry.CreatedAt.UTC(),
	)
	if err != nil {
		return audit.Entry{}, errors.Wrap(err, "inserting action entry")
	}
	return entry, nil
}

func (repo *auditRepository) QueryEntries(ctx context.Context, filter *audit.QueryFilter, ordering []core.DBOrdering) ([]audit.Entry, error) {
	q := `SELECT * FROM action_log`
	var args []interface{}

	if filter != nil {
		var conds []string
		if filter.Action != "" {
			args = append(args, string(filter.Action))
			conds = append(conds, "action = $1")
		}
		if filter.Actor != "" {
			args = append(args, filter.Actor)
			if len(args) == 1 {
				conds = append(conds, "actor = $1")
			} else {
				conds = append(conds, "actor = $2")
			}
		}
		if len(conds) > 0 {
			q += " WHERE " + conds[0]
			for _, c := range conds[1:] {
				q += " AND " + c
			}
		}
	}
	if len(ordering) > 0 {
		q += " ORDER BY " + orderingList(ordering)
	}

	var rows []actionRow
	if err := repo.db.SelectContext(ctx, &rows, q, args...); err != nil {
		return nil, errors.Wrap(err, "querying action entries")
	}
	entries := make([]audit.Entry, 0, len(rows))
	for _, row := range rows {
		entries = append(entries, row.toEntry())
	}
	return entries, nil
}
