package audit

import (
	"context"
	"encoding/json"
	"time"

	"github.com/pkg/errors"

	"github.com/trackside/carnival/core"
)

var NowFunc = time.Now // mockable

type (
	Repository interface {
		CreateEntry(ctx context.Context, entry Entry) (Entry, error)
		// QueryEntries applies AND operation on available QueryFilter fields.
		QueryEntries(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering) ([]Entry, error)
	}

	Service struct {
		repo Repository
	}
)

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Log appends an action record. details may be any JSON-marshallable value or nil.
func (svc *Service) Log(ctx context.Context, actor string, action Action, details interface{}) (Entry, error) {
	entry := Entry{
		Action:    action,
		Actor:     actor,
		CreatedAt: NowFunc().UTC(),
	}
	if details != nil {
		data, err := json.Marshal(details)
		if err != nil {
			return Entry{}, errors.Wrap(err, "marshalling action details")
		}
		entry.Details = data
	}
	return svc.repo.CreateEntry(ctx, entry)
}

func (svc *Service) Query(ctx context.Context, filter *QueryFilter) ([]Entry, error) {
	return svc.repo.QueryEntries(ctx, filter, []core.DBOrdering{{Field: "created_at", Ascending: false}})
}
