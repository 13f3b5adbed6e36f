package inmemdb

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/trackside/carnival/core/staff"
)

type staffRepository struct {
	db *staffTable
}

var _ staff.Repository = (*staffRepository)(nil) // interface compliance check

func NewStaffRepository(db *DB) *staffRepository {
	return &staffRepository{db: db.staff}
}

func (repo *staffRepository) CheckUsernameUniqueness(_ context.Context, username string, excluded ...staff.Staff) error {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	for _, s := range repo.db.t {
		if s.Username != username {
			continue
		}
		var isExcluded bool
		for _, ex := range excluded {
			if ex.ID == s.ID {
				isExcluded = true
				break
			}
		}
		if !isExcluded {
			return staff.ErrUsernameExists
		}
	}
	return nil
}

func (repo *staffRepository) CreateStaff(_ context.Context, stf staff.Staff) (staff.Staff, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	stf.ID = uuid.New().String()
	repo.db.t[stf.ID] = &stf
	return stf, nil
}

func (repo *staffRepository) QueryAllStaff(_ context.Context) ([]staff.Staff, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	members := make([]staff.Staff, 0, len(repo.db.t))
	for _, s := range repo.db.t {
		members = append(members, *s)
	}
	sort.Slice(members, func(i, j int) bool { return members[i].Username < members[j].Username })
	return members, nil
}

func (repo *staffRepository) GetStaffByID(_ context.Context, id string) (staff.Staff, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	s, ok := repo.db.t[id]
	if !ok {
		return staff.Staff{}, staff.ErrNotFound
	}
	return *s, nil
}

func (repo *staffRepository) GetStaffByUsername(_ context.Context, username string) (staff.Staff, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	for _, s := range repo.db.t {
		if s.Username == username {
			return *s, nil
		}
	}
	return staff.Staff{}, staff.ErrNotFound
}

func (repo *staffRepository) SetLastLogin(_ context.Context, id string, at time.Time) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	s, ok := repo.db.t[id]
	if !ok {
		return staff.ErrNotFound
	}
	s.LastLogin = at
	return nil
}

func (repo *staffRepository) UpdatePassword(_ context.Context, id string, hash []byte) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	s, ok := repo.db.t[id]
	if !ok {
		return staff.ErrNotFound
	}
	s.PasswordHash = hash
	return nil
}
