package house

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/trackside/carnival/core"
	"github.com/trackside/carnival/core/audit"
)

type nopLogger struct{}

func (nopLogger) Enable(bool)                  {}
func (nopLogger) Debug(string, ...interface{}) {}
func (nopLogger) Info(string, ...interface{})  {}
func (nopLogger) Warn(string, ...interface{})  {}
func (nopLogger) Error(string, ...interface{}) {}
func (nopLogger) Fatal(string, ...interface{}) {}

// stubRepo is an in-memory Repository with injectable failures.
type stubRepo struct {
	entries []Entry
	backups map[string][]byte
	nextID  int

	saveBackupErr error
	deleteErr     error
}

func newStubRepo() *stubRepo {
	return &stubRepo{backups: make(map[string][]byte)}
}

func (r *stubRepo) CreateEntry(_ context.Context, entry Entry) (Entry, error) {
	r.nextID++
	entry.ID = "id-" + strconv.Itoa(r.nextID)
	r.entries = append(r.entries, entry)
	return entry, nil
}

func (r *stubRepo) CreateEntries(ctx context.Context, entries []Entry) ([]Entry, error) {
	created := make([]Entry, 0, len(entries))
	for _, e := range entries {
		e, err := r.CreateEntry(ctx, e)
		if err != nil {
			return nil, err
		}
		created = append(created, e)
	}
	return created, nil
}

func (r *stubRepo) QueryEntries(_ context.Context, _ []core.DBOrdering) ([]Entry, error) {
	entries := make([]Entry, len(r.entries))
	copy(entries, r.entries)
	return entries, nil
}

func (r *stubRepo) DeleteAllEntries(_ context.Context) error {
	if r.deleteErr != nil {
		return r.deleteErr
	}
	r.entries = nil
	return nil
}

func (r *stubRepo) SaveBackup(_ context.Context, slot string, payload []byte) error {
	if r.saveBackupErr != nil {
		return r.saveBackupErr
	}
	r.backups[slot] = payload
	return nil
}

func (r *stubRepo) GetBackup(_ context.Context, slot string) ([]byte, error) {
	payload, ok := r.backups[slot]
	if !ok {
		return nil, ErrBackupNotFound
	}
	return payload, nil
}

type stubAuditRepo struct {
	entries []audit.Entry
}

func (r *stubAuditRepo) CreateEntry(_ context.Context, entry audit.Entry) (audit.Entry, error) {
	r.entries = append(r.entries, entry)
	return entry, nil
}

func (r *stubAuditRepo) QueryEntries(_ context.Context, _ *audit.QueryFilter, _ []core.DBOrdering) ([]audit.Entry, error) {
	return r.entries, nil
}

func (r *stubAuditRepo) actions() []audit.Action {
	actions := make([]audit.Action, 0, len(r.entries))
	for _, e := range r.entries {
		actions = append(actions, e.Action)
	}
	return actions
}

type stubEmailSvc struct {
	sent []*core.EmailMessage
}

func (s *stubEmailSvc) SendMessages(messages ...*core.EmailMessage) {
	s.sent = append(s.sent, messages...)
}

func newTestService() (*Service, *stubRepo, *stubAuditRepo, *stubEmailSvc) {
	repo := newStubRepo()
	auditRepo := &stubAuditRepo{}
	mailSvc := &stubEmailSvc{}
	conf := &core.Config{AppName: "Carnival", AdminEmail: "admin@test.local"}
	svc := NewService(repo, audit.NewService(auditRepo), mailSvc, nopLogger{}, conf)
	return svc, repo, auditRepo, mailSvc
}

func seedEntries(t *testing.T, repo *stubRepo, entries ...Entry) {
	t.Helper()
	for _, e := range entries {
		if e.CreatedAt.IsZero() {
			e.CreatedAt = time.Now().UTC()
		}
		if _, err := repo.CreateEntry(context.Background(), e); err != nil {
			t.Fatalf("CreateEntry() failed: %v", err)
		}
	}
}

func TestService_Totals(t *testing.T) {
	svc, repo, _, _ := newTestService()
	ctx := context.Background()

	totals, err := svc.Totals(ctx)
	if err != nil {
		t.Fatalf("Totals() failed: %v", err)
	}
	if len(totals) != len(Houses) {
		t.Fatalf("len(totals) = %d, want %d", len(totals), len(Houses))
	}
	for _, h := range Houses {
		if totals[h] != 0 {
			t.Errorf("totals[%s] = %d, want 0", h, totals[h])
		}
	}

	seedEntries(t, repo,
		Entry{House: Abbott, Points: 10},
		Entry{House: Abbott, Points: 8},
		Entry{House: Broughton, Points: 9},
	)
	if totals, err = svc.Totals(ctx); err != nil {
		t.Fatalf("Totals() failed: %v", err)
	}
	if totals[Abbott] != 18 || totals[Broughton] != 9 || totals[Clarke] != 0 {
		t.Errorf("totals = %v", totals)
	}
}

func TestService_AddQuickPoint(t *testing.T) {
	svc, repo, auditRepo, _ := newTestService()
	ctx := context.Background()

	if _, err := svc.AddQuickPoint(ctx, "jcook", "Hogwarts"); err != ErrUnknownHouse {
		t.Errorf("AddQuickPoint() error = %v, want %v", err, ErrUnknownHouse)
	}
	if len(repo.entries) != 0 {
		t.Error("a rejected quick point must not touch the ledger")
	}

	entry, err := svc.AddQuickPoint(ctx, "jcook", Wentworth)
	if err != nil {
		t.Fatalf("AddQuickPoint() failed: %v", err)
	}
	if entry.House != Wentworth || entry.Points != 1 {
		t.Errorf("unexpected entry: %+v", entry)
	}
	if len(auditRepo.entries) != 1 || auditRepo.entries[0].Action != audit.ActionQuickPoint {
		t.Errorf("unexpected action log: %+v", auditRepo.entries)
	}
}

func TestService_AwardRacePoints(t *testing.T) {
	svc, repo, _, _ := newTestService()

	created, err := svc.AwardRacePoints(context.Background(), "100m Sprint U12", map[string]int{
		Abbott:    18,
		Broughton: 9,
		Clarke:    0, // zero awards are skipped
	})
	if err != nil {
		t.Fatalf("AwardRacePoints() failed: %v", err)
	}
	if len(created) != 2 {
		t.Fatalf("len(created) = %d, want 2", len(created))
	}
	for _, e := range created {
		if e.Reason != "100m Sprint U12" {
			t.Errorf("Reason = %q, want the race name", e.Reason)
		}
	}
	if len(repo.entries) != 2 {
		t.Errorf("len(repo.entries) = %d, want 2", len(repo.entries))
	}

	// nothing to award
	if created, err = svc.AwardRacePoints(context.Background(), "200m U8", map[string]int{}); err != nil || created != nil {
		t.Errorf("AwardRacePoints() = %v, %v; want nil, nil", created, err)
	}
}

func TestService_Backup(t *testing.T) {
	svc, repo, auditRepo, _ := newTestService()
	ctx := context.Background()

	seedEntries(t, repo,
		Entry{House: Abbott, Points: 10},
		Entry{House: Broughton, Points: 9},
	)

	payload, err := svc.Backup(ctx, "admin")
	if err != nil {
		t.Fatalf("Backup() failed: %v", err)
	}

	var snapshot Backup
	if err = json.Unmarshal(payload, &snapshot); err != nil {
		t.Fatalf("unmarshalling snapshot: %v", err)
	}
	if snapshot.Timestamp.IsZero() {
		t.Error("snapshot must be timestamped")
	}
	if len(snapshot.Data) != 2 || snapshot.Data[0].House != Abbott || snapshot.Data[0].Points != 10 {
		t.Errorf("unexpected snapshot data: %+v", snapshot.Data)
	}

	// saved under the latest slot and a timestamped slot
	if len(repo.backups) != 2 {
		t.Fatalf("len(backups) = %d, want 2", len(repo.backups))
	}
	latest, err := svc.LatestBackup(ctx)
	if err != nil {
		t.Fatalf("LatestBackup() failed: %v", err)
	}
	if string(latest) != string(payload) {
		t.Error("latest slot must hold the snapshot verbatim")
	}
	for slot := range repo.backups {
		if slot != LatestBackupSlot && !strings.HasPrefix(slot, "backup-") {
			t.Errorf("unexpected slot %q", slot)
		}
	}

	if len(auditRepo.entries) != 1 || auditRepo.entries[0].Action != audit.ActionBackup {
		t.Errorf("unexpected action log: %+v", auditRepo.entries)
	}
}

func TestService_LatestBackup_notFound(t *testing.T) {
	svc, _, _, _ := newTestService()

	if _, err := svc.LatestBackup(context.Background()); err != ErrBackupNotFound {
		t.Errorf("LatestBackup() error = %v, want %v", err, ErrBackupNotFound)
	}
}

func TestService_ResetAllPoints(t *testing.T) {
	svc, repo, auditRepo, mailSvc := newTestService()
	ctx := context.Background()

	seedEntries(t, repo, Entry{House: Sturt, Points: 7})

	snapshot, err := svc.ResetAllPoints(ctx, "admin")
	if err != nil {
		t.Fatalf("ResetAllPoints() failed: %v", err)
	}
	if len(repo.entries) != 0 {
		t.Error("reset must clear the ledger")
	}
	if len(snapshot) == 0 {
		t.Error("reset must return the pre-reset snapshot")
	}

	// the backup is logged first, then the reset
	if got := auditRepo.actions(); len(got) != 2 || got[0] != audit.ActionBackup || got[1] != audit.ActionReset {
		t.Errorf("actions = %v, want [backup reset]", got)
	}

	// the snapshot is mailed to the admin address
	if len(mailSvc.sent) != 1 {
		t.Fatalf("len(sent) = %d, want 1", len(mailSvc.sent))
	}
	msg := mailSvc.sent[0]
	if len(msg.To) != 1 || msg.To[0].Address != "admin@test.local" {
		t.Errorf("unexpected recipients: %+v", msg.To)
	}
	if len(msg.Attachments) != 1 || msg.Attachments[0].Filename != "house-points-backup.json" {
		t.Errorf("unexpected attachments: %+v", msg.Attachments)
	}
}

func TestService_ResetAllPoints_abortsWhenBackupFails(t *testing.T) {
	svc, repo, auditRepo, mailSvc := newTestService()
	ctx := context.Background()

	seedEntries(t, repo, Entry{House: Sturt, Points: 7})
	repo.saveBackupErr = errors.New("disk full")

	if _, err := svc.ResetAllPoints(ctx, "admin"); err == nil {
		t.Fatal("ResetAllPoints() expected an error")
	}
	if len(repo.entries) != 1 {
		t.Error("a failed backup must leave the ledger intact")
	}
	if len(auditRepo.entries) != 0 {
		t.Errorf("no actions should be logged: %+v", auditRepo.entries)
	}
	if len(mailSvc.sent) != 0 {
		t.Error("no mail should be sent")
	}
}

func TestService_Restore(t *testing.T) {
	svc, repo, auditRepo, _ := newTestService()
	ctx := context.Background()

	seedEntries(t, repo,
		Entry{House: Abbott, Points: 10},
		Entry{House: Abbott, Points: 8},
		Entry{House: Broughton, Points: 9},
	)

	// round-trip: backup, reset, restore
	payload, err := svc.Backup(ctx, "admin")
	if err != nil {
		t.Fatalf("Backup() failed: %v", err)
	}
	if _, err = svc.ResetAllPoints(ctx, "admin"); err != nil {
		t.Fatalf("ResetAllPoints() failed: %v", err)
	}
	if err = svc.Restore(ctx, "admin", payload); err != nil {
		t.Fatalf("Restore() failed: %v", err)
	}

	totals, err := svc.Totals(ctx)
	if err != nil {
		t.Fatalf("Totals() failed: %v", err)
	}
	if totals[Abbott] != 18 || totals[Broughton] != 9 {
		t.Errorf("totals = %v; want Abbott=18, Broughton=9", totals)
	}
	// per-entry values are preserved, not collapsed into one entry per house
	if len(repo.entries) != 3 {
		t.Errorf("len(entries) = %d, want 3", len(repo.entries))
	}

	if got := auditRepo.entries[len(auditRepo.entries)-1].Action; got != audit.ActionRestore {
		t.Errorf("last action = %s, want %s", got, audit.ActionRestore)
	}
}

func TestService_Restore_malformedPayload(t *testing.T) {
	svc, repo, _, _ := newTestService()
	ctx := context.Background()

	seedEntries(t, repo, Entry{House: Lawson, Points: 4})

	tests := []struct {
		name    string
		payload string
	}{
		{name: "not json", payload: "lol"},
		{name: "wrong shape", payload: `{"nope":true}`},
		{name: "missing timestamp", payload: `{"data":[{"house":"Abbott","points":1}]}`},
		{name: "missing data", payload: `{"timestamp":"2026-08-30T09:00:00Z"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := svc.Restore(ctx, "admin", []byte(tt.payload)); err != ErrMalformedBackup {
				t.Errorf("Restore() error = %v, want %v", err, ErrMalformedBackup)
			}
			if len(repo.entries) != 1 {
				t.Error("a rejected restore must leave the ledger intact")
			}
		})
	}
}
