package audit

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/trackside/carnival/core"
)

type stubRepo struct {
	entries    []Entry
	lastFilter *QueryFilter
	lastOrder  []core.DBOrdering
}

func (r *stubRepo) CreateEntry(_ context.Context, entry Entry) (Entry, error) {
	r.entries = append(r.entries, entry)
	return entry, nil
}

func (r *stubRepo) QueryEntries(_ context.Context, filter *QueryFilter, ordering []core.DBOrdering) ([]Entry, error) {
	r.lastFilter = filter
	r.lastOrder = ordering
	return r.entries, nil
}

func TestService_Log(t *testing.T) {
	repo := &stubRepo{}
	svc := NewService(repo)
	ctx := context.Background()

	now := time.Date(2026, 8, 30, 9, 0, 0, 0, time.UTC)
	NowFunc = func() time.Time { return now }
	defer func() { NowFunc = time.Now }()

	// details are optional
	entry, err := svc.Log(ctx, "jcook", ActionLogin, nil)
	if err != nil {
		t.Fatalf("Log() failed: %v", err)
	}
	if entry.Actor != "jcook" || entry.Action != ActionLogin || entry.Details != nil {
		t.Errorf("unexpected entry: %+v", entry)
	}
	if !entry.CreatedAt.Equal(now) {
		t.Errorf("CreatedAt = %v, want %v", entry.CreatedAt, now)
	}

	entry, err = svc.Log(ctx, "admin", ActionQuickPoint, map[string]interface{}{"house": "Abbott", "points": 1})
	if err != nil {
		t.Fatalf("Log() failed: %v", err)
	}
	var details map[string]interface{}
	if err = json.Unmarshal(entry.Details, &details); err != nil {
		t.Fatalf("unmarshalling details: %v", err)
	}
	if details["house"] != "Abbott" {
		t.Errorf("details = %v", details)
	}

	// unmarshallable details fail loudly
	if _, err = svc.Log(ctx, "admin", ActionBackup, func() {}); err == nil {
		t.Error("Log() with a func detail: expected an error")
	}
}

func TestService_Query(t *testing.T) {
	repo := &stubRepo{}
	svc := NewService(repo)

	filter := &QueryFilter{Action: ActionReset, Actor: "admin"}
	if _, err := svc.Query(context.Background(), filter); err != nil {
		t.Fatalf("Query() failed: %v", err)
	}
	if repo.lastFilter != filter {
		t.Error("the filter must be passed through")
	}
	if len(repo.lastOrder) != 1 || repo.lastOrder[0].Field != "created_at" || repo.lastOrder[0].Ascending {
		t.Errorf("unexpected ordering: %+v", repo.lastOrder)
	}
}
