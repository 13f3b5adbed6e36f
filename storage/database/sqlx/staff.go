package sqlxrepos

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trackside/carnival/core/staff"
)

type staffRepository struct {
	db *sqlx.DB
}

var _ staff.Repository = (*staffRepository)(nil) // interface compliance check

func NewStaffRepository(db *sqlx.DB) *staffRepository {
	return &staffRepository{db: db}
}

type staffRow struct {
	ID           string    `db:"id"`
	Name         string    `db:"name"`
	Username     string    `db:"username"`
	IsAdmin      bool      `db:"is_admin"`
	PasswordHash []byte    `db:"password_hash"`
	CreatedAt    time.Time `db:"created_at"`
	LastLogin    null.Time `db:"last_login"`
}

func (row staffRow) toStaff() staff.Staff {
	return staff.Staff{
		ID:           row.ID,
		Name:         row.Name,
		Username:     row.Username,
		IsAdmin:      row.IsAdmin,
		PasswordHash: row.PasswordHash,
		CreatedAt:    row.CreatedAt,
		LastLogin:    row.LastLogin.Time,
	}
}

func (repo *staffRepository) CheckUsernameUniqueness(ctx context.Context, username string, excluded ...staff.Staff) error {
	q := `SELECT EXISTS (SELECT 1 FROM staff WHERE username = $1`
	args := []interface{}{username}
	if len(excluded) > 0 {
		ids := make([]string, 0, len(excluded))
		for _, s := range excluded {
			ids = append(ids, s.ID)
		}
		query, inArgs, err := sqlx.In(`SELECT EXISTS (SELECT 1 FROM staff WHERE username = ? AND id NOT IN (?))`, username, ids)
		if err != nil {
			return errors.Wrap(err, "building uniqueness query")
		}
		q = repo.db.Rebind(query)
		args = inArgs
	} else {
		q += ")"
	}

	var exists bool
	if err := repo.db.GetContext(ctx, &exists, q, args...); err != nil {
		return errors.Wrap(err, "checking staff uniqueness")
	}
	if exists {
		return staff.ErrUsernameExists
	}
	return nil
}

func (repo *staffRepository) CreateStaff(ctx context.Context, stf staff.Staff) (staff.Staff, error) {
	stf.ID = uuid.New().String()
	_, err := repo.db.ExecContext(ctx,
		`INSERT INTO staff (id, name, username, is_admin, password_hash, created_at) VALUES ($1, $2, $3, $4, $5, $6)`,
		stf.ID, stf.Name, stf.Username, stf.IsAdmin, stf.PasswordHash, stf.CreatedAt.UTC(),
	)
	if err != nil {
		return staff.Staff{}, errors.Wrap(err, "inserting staff member")
	}
	return stf, nil
}

func (repo *staffRepository) QueryAllStaff(ctx context.Context) ([]staff.Staff, error) {
	var rows []staffRow
	if err := repo.db.SelectContext(ctx, &rows, `SELECT * FROM staff ORDER BY username`); err != nil {
		return nil, errors.Wrap(err, "querying staff")
	}
	members := make([]staff.Staff, 0, len(rows))
	for _, row := range rows {
		members = append(members, row.toStaff())
	}
	return members, nil
}

func (repo *staffRepository) GetStaffByID(ctx context.Context, id string) (staff.Staff, error) {
	if _, err := uuid.Parse(id); err != nil {
		return staff.Staff{}, staff.ErrNotFound
	}
	var row staffRow
	if err := repo.db.GetContext(ctx, &row, `SELECT * FROM staff WHERE id = $1`, id); err != nil {
		if err == sql.ErrNoRows {
			return staff.Staff{}, staff.ErrNotFound
		}
		return staff.Staff{}, errors.Wrap(err, "finding staff by ID")
	}
	return row.toStaff(), nil
}

func (repo *staffRepository) GetStaffByUsername(ctx context.Context, username string) (staff.Staff, error) {
	var row staffRow
	if err := repo.db.GetContext(ctx, &row, `SELECT * FROM staff WHERE username = $1`, username); err != nil {
		if err == sql.ErrNoRows {
			return staff.Staff{}, staff.ErrNotFound
		}
		return staff.Staff{}, errors.Wrap(err, "finding staff by username")
	}
	return row.toStaff(), nil
}

func (repo *staffRepository) SetLastLogin(ctx context.Context, id string, at time.Time) error {
	if _, err := repo.db.ExecContext(ctx, `UPDATE staff SET last_login = $2 WHERE id = $1`, id, at.UTC()); err != nil {
		return errors.Wrap(err, "setting last login")
	}
	return nil
}

func (repo *staffRepository) UpdatePassword(ctx context.Context, id string, hash []byte) error {
	if _, err := repo.db.ExecContext(ctx, `UPDATE staff SET password_hash = $2 WHERE id = $1`, id, hash); err != nil {
		return errors.Wrap(err, "updating password")
	}
	return nil
}
