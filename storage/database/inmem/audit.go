package inmemdb

import (
	"context"
	"sort"

	"github.com/google/uuid"

	"github.com/trackside/carnival/core"
	"github.com/trackside/carnival/core/audit"
)

type auditRepository struct {
	db *actionTable
}

var _ audit.Repository = (*auditRepository)(nil) // interface compliance check

func NewAuditRepository(db *DB) *auditRepository {
	return &auditRepository{db: db.action}
}

func (repo *auditRepository) CreateEntry(_ context.Context, entry audit.Entry) (audit.Entry, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	entry.ID = uuid.New().String()
	repo.db.entries = append(repo.db.entries, &entry)
	return entry, nil
}

func (repo *auditRepository) QueryEntries(_ context.Context, filter *audit.QueryFilter, ordering []core.DBOrdering) ([]audit.Entry, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	entries := make([]audit.Entry, 0, len(repo.db.entries))
	for _, e := range repo.db.entries {
		if filter != nil {
			if filter.Action != "" && e.Action != filter.Action {
				continue
			}
			if filter.Actor != "" && e.Actor != filter.Actor {
				continue
			}
		}
		entries = append(entries, *e)
	}
	sort.SliceStable(entries, func(i, j int) bool { return entries[i].CreatedAt.After(entries[j].CreatedAt) })
	return entries, nil
}
