package house

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/mail"
	"time"

	"github.com/pkg/errors"

	"github.com/trackside/carnival/core"
	"github.com/trackside/carnival/core/audit"
)

var NowFunc = time.Now // mockable

// LatestBackupSlot is the well-known slot overwritten on every backup;
// each backup is also kept under a unique timestamped slot for audit trail.
const LatestBackupSlot = "latest"

type (
	Repository interface {
		CreateEntry(ctx context.Context, entry Entry) (Entry, error)
		CreateEntries(ctx context.Context, entries []Entry) ([]Entry, error)
		QueryEntries(ctx context.Context, ordering []core.DBOrdering) ([]Entry, error)
		DeleteAllEntries(ctx context.Context) error
		// SaveBackup persists the payload under slot, overwriting any previous payload.
		SaveBackup(ctx context.Context, slot string, payload []byte) error
		// GetBackup returns ErrBackupNotFound when the slot is empty.
		GetBackup(ctx context.Context, slot string) ([]byte, error)
	}

	Service struct {
		repo     Repository
		auditSvc *audit.Service
		mailSvc  core.EmailService
		logger   core.Logger
		conf     *core.Config
	}
)

func NewService(repo Repository, auditSvc *audit.Service, mailSvc core.EmailService, logger core.Logger, conf *core.Config) *Service {
	return &Service{
		repo:     repo,
		auditSvc: auditSvc,
		mailSvc:  mailSvc,
		logger:   logger,
		conf:     conf,
	}
}

// logAction records an admin action; a failed audit write never fails the
// operation it describes (that operation has already committed).
func (svc *Service) logAction(ctx context.Context, actor string, action audit.Action, details interface{}) {
	if _, err := svc.auditSvc.Log(ctx, actor, action, details); err != nil {
		svc.logger.Error(fmt.Sprintf("logging %s action: %v", action, err), err)
	}
}

// Totals sums all ledger entries per house. Every fixed house is present in
// the result, at zero when it has no entries.
func (svc *Service) Totals(ctx context.Context) (map[string]int, error) {
	entries, err := svc.repo.QueryEntries(ctx, nil)
	if err != nil {
		return nil, errors.Wrap(err, "querying point entries")
	}
	totals := make(map[string]int, len(Houses))
	for _, h := range Houses {
		totals[h] = 0
	}
	for _, e := range entries {
		totals[e.House] += e.Points
	}
	return totals, nil
}

func (svc *Service) QueryEntries(ctx context.Context) ([]Entry, error) {
	return svc.repo.QueryEntries(ctx, []core.DBOrdering{{Field: "created_at", Ascending: true}})
}

// AddQuickPoint appends a single +1 entry for the given house.
func (svc *Service) AddQuickPoint(ctx context.Context, actor, houseName string) (Entry, error) {
	if !IsValid(houseName) {
		return Entry{}, ErrUnknownHouse
	}
	entry, err := svc.repo.CreateEntry(ctx, Entry{
		House:     houseName,
		Points:    1,
		Reason:    "quick add",
		CreatedAt: NowFunc().UTC(),
	})
	if err != nil {
		return Entry{}, errors.Wrap(err, "inserting quick point entry")
	}
	svc.logAction(ctx, actor, audit.ActionQuickPoint, map[string]interface{}{"house": houseName, "points": 1})
	return entry, nil
}

// AwardRacePoints appends one entry per house with non-zero points.
// Action logging is left to the caller, which knows the race context.
func (svc *Service) AwardRacePoints(ctx context.Context, raceName string, points map[string]int) ([]Entry, error) {
	now := NowFunc().UTC()
	entries := make([]Entry, 0, len(points))
	for _, h := range Houses {
		if points[h] == 0 {
			continue
		}
		entries = append(entries, Entry{
			House:     h,
			Points:    points[h],
			Reason:    raceName,
			CreatedAt: now,
		})
	}
	if len(entries) == 0 {
		return nil, nil
	}
	created, err := svc.repo.CreateEntries(ctx, entries)
	if err != nil {
		return nil, errors.Wrap(err, "inserting race point entries")
	}
	return created, nil
}

// Backup serializes the current ledger, persists it under the latest slot and
// a unique timestamped slot, and returns the serialized form.
func (svc *Service) Backup(ctx context.Context, actor string) ([]byte, error) {
	entries, err := svc.repo.QueryEntries(ctx, []core.DBOrdering{{Field: "created_at", Ascending: true}})
	if err != nil {
		return nil, errors.Wrap(err, "querying point entries")
	}

	now := NowFunc().UTC()
	snapshot := Backup{Timestamp: now, Data: make([]BackupEntry, 0, len(entries))}
	for _, e := range entries {
		snapshot.Data = append(snapshot.Data, BackupEntry{House: e.House, Points: e.Points})
	}
	payload, err := json.Marshal(snapshot)
	if err != nil {
		return nil, errors.Wrap(err, "marshalling backup snapshot")
	}

	if err = svc.repo.SaveBackup(ctx, LatestBackupSlot, payload); err != nil {
		return nil, errors.Wrap(err, "saving latest backup")
	}
	if err = svc.repo.SaveBackup(ctx, "backup-"+now.Format("20060102T150405.000Z0700"), payload); err != nil {
		return nil, errors.Wrap(err, "saving timestamped backup")
	}

	svc.logAction(ctx, actor, audit.ActionBackup, map[string]interface{}{"entries": len(snapshot.Data)})
	return payload, nil
}

// LatestBackup returns the payload saved under the latest slot.
func (svc *Service) LatestBackup(ctx context.Context) ([]byte, error) {
	return svc.repo.GetBackup(ctx, LatestBackupSlot)
}

// ResetAllPoints deletes every ledger entry, gated by a successful backup:
// if the backup fails the reset aborts and the ledger is left intact.
// The snapshot is returned and, when configured, mailed to the admin address.
func (svc *Service) ResetAllPoints(ctx context.Context, actor string) ([]byte, error) {
	snapshot, err := svc.Backup(ctx, actor)
	if err != nil {
		return nil, errors.Wrap(err, "backing up before reset")
	}

	if err = svc.repo.DeleteAllEntries(ctx); err != nil {
		return nil, errors.Wrap(err, "deleting point entries")
	}

	svc.logAction(ctx, actor, audit.ActionReset, nil)
	svc.mailSnapshot(snapshot)
	return snapshot, nil
}

// Restore clears the ledger (without re-triggering another backup) and
// re-inserts every snapshot entry verbatim, preserving per-entry point values.
func (svc *Service) Restore(ctx context.Context, actor string, payload []byte) error {
	var snapshot Backup
	if err := json.Unmarshal(payload, &snapshot); err != nil {
		return ErrMalformedBackup
	}
	if snapshot.Timestamp.IsZero() || snapshot.Data == nil {
		return ErrMalformedBackup
	}

	if err := svc.repo.DeleteAllEntries(ctx); err != nil {
		return errors.Wrap(err, "deleting point entries")
	}

	now := NowFunc().UTC()
	entries := make([]Entry, 0, len(snapshot.Data))
	for _, be := range snapshot.Data {
		entries = append(entries, Entry{
			House:     be.House,
			Points:    be.Points,
			Reason:    "restored from backup",
			CreatedAt: now,
		})
	}
	if len(entries) > 0 {
		if _, err := svc.repo.CreateEntries(ctx, entries); err != nil {
			return errors.Wrap(err, "re-inserting point entries")
		}
	}

	svc.logAction(ctx, actor, audit.ActionRestore, map[string]interface{}{
		"snapshot_timestamp": snapshot.Timestamp,
		"entries":            len(entries),
	})
	return nil
}

func (svc *Service) mailSnapshot(snapshot []byte) {
	if svc.mailSvc == nil || svc.conf == nil || svc.conf.AdminEmail == "" {
		return
	}
	svc.mailSvc.SendMessages(&core.EmailMessage{
		To:      []mail.Address{{Address: svc.conf.AdminEmail}},
		Subject: "House points reset",
		BodyStr: "All house points were reset. The pre-reset snapshot is attached.",
		Attachments: []core.Attachment{{
			Content:     bytes.NewBuffer(snapshot),
			ContentType: "application/json",
			Filename:    "house-points-backup.json",
		}},
	})
}
