package inmemdb

import (
	"context"
	"sort"

	"github.com/google/uuid"

	"github.com/trackside/carnival/core"
	"github.com/trackside/carnival/core/house"
)

type houseRepository struct {
	db *houseTable
}

var _ house.Repository = (*houseRepository)(nil) // interface compliance check

func NewHouseRepository(db *DB) *houseRepository {
	return &houseRepository{db: db.house}
}

func (repo *houseRepository) CreateEntry(_ context.Context, entry house.Entry) (house.Entry, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	entry.ID = uuid.New().String()
	repo.db.entries = append(repo.db.entries, &entry)
	return entry, nil
}

func (repo *houseRepository) CreateEntries(_ context.Context, entries []house.Entry) ([]house.Entry, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	created := make([]house.Entry, 0, len(entries))
	for _, entry := range entries {
		entry.ID = uuid.New().String()
		e := entry
		repo.db.entries = append(repo.db.entries, &e)
		created = append(created, entry)
	}
	return created, nil
}

func (repo *houseRepository) QueryEntries(_ context.Context, ordering []core.DBOrdering) ([]house.Entry, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	entries := make([]house.Entry, 0, len(repo.db.entries))
	for _, e := range repo.db.entries {
		entries = append(entries, *e)
	}
	sort.SliceStable(entries, func(i, j int) bool { return entries[i].CreatedAt.Before(entries[j].CreatedAt) })
	return entries, nil
}

func (repo *houseRepository) DeleteAllEntries(_ context.Context) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	repo.db.entries = nil
	return nil
}

func (repo *houseRepository) SaveBackup(_ context.Context, slot string, payload []byte) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	data := make([]byte, len(payload))
	copy(data, payload)
	repo.db.backups[slot] = data
	return nil
}

func (repo *houseRepository) GetBackup(_ context.Context, slot string) ([]byte, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	payload, ok := repo.db.backups[slot]
	if !ok {
		return nil, house.ErrBackupNotFound
	}
	return payload, nil
}
