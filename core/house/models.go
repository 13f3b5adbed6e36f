package house

import (
	"errors"
	"time"
)

var (
	ErrUnknownHouse    = errors.New("unknown house")
	ErrMalformedBackup = errors.New("malformed backup snapshot")
	ErrBackupNotFound  = errors.New("backup not found")
)

// The six houses. Fixed set; every scoring operation validates against it.
const (
	Abbott    = "Abbott"
	Broughton = "Broughton"
	Clarke    = "Clarke"
	Lawson    = "Lawson"
	Sturt     = "Sturt"
	Wentworth = "Wentworth"
)

var Houses = []string{Abbott, Broughton, Clarke, Lawson, Sturt, Wentworth}

func IsValid(name string) bool {
	for _, h := range Houses {
		if h == name {
			return true
		}
	}
	return false
}

// Entry is a single point award. The ledger is append-only: totals are always
// derived by summing entries, never by mutating a running counter.
type Entry struct {
	ID        string    `json:"id"`
	House     string    `json:"house"`
	Points    int       `json:"points"`
	Reason    string    `json:"reason,omitempty"`
	CreatedAt time.Time `json:"created_at"` // UTC
}

// Backup is the serialized snapshot shape; it round-trips through
// Backup() -> Restore() verbatim, one Data element per ledger entry.
type Backup struct {
	Timestamp time.Time     `json:"timestamp"`
	Data      []BackupEntry `json:"data"`
}

type BackupEntry struct {
	House  string `json:"house"`
	Points int    `json:"points"`
}
