package audit

import (
	"encoding/json"
	"time"
)

// Action identifies the kind of administrative action being logged.
type Action string

const (
	ActionLogin            Action = "login"
	ActionReset            Action = "reset"
	ActionBackup           Action = "backup"
	ActionRestore          Action = "restore"
	ActionPasswordChange   Action = "password-change"
	ActionPointCalculation Action = "point-calculation"
	ActionQuickPoint       Action = "quick-point"
)

var AllActions = []Action{
	ActionLogin,
	ActionReset,
	ActionBackup,
	ActionRestore,
	ActionPasswordChange,
	ActionPointCalculation,
	ActionQuickPoint,
}

// Entry is a single administrative action record. Entries are append-only;
// nothing in the application mutates or deletes them.
type Entry struct {
	ID        string          `json:"id"`
	Action    Action          `json:"action"`
	Actor     string          `json:"actor"`
	Details   json.RawMessage `json:"details,omitempty"`
	CreatedAt time.Time       `json:"created_at"` // UTC
}

type QueryFilter struct {
	Action Action
	Actor  string
}
