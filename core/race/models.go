package race

import (
	"errors"
	"time"
)

var (
	ErrRaceNotFound      = errors.New("race not found")
	ErrNoCurrentRace     = errors.New("no race selected")
	ErrInvalidTransition = errors.New("invalid race status transition")
	ErrRaceCompleted     = errors.New("race already completed")
	ErrRaceNotCompleted  = errors.New("race not completed")
	ErrRunnerNotFound    = errors.New("runner not found")
	ErrDuplicateFinish   = errors.New("runner has already finished")
	ErrEmptyLedger       = errors.New("no finish to undo")
	ErrPositionTaken     = errors.New("position already taken")
)

// Status is a race's lifecycle state. Transitions only move forward:
// pending -> active -> completed, terminal at completed.
type Status string

const (
	StatusPending   Status = "pending"
	StatusActive    Status = "active"
	StatusCompleted Status = "completed"
)

func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusActive, StatusCompleted:
		return true
	}
	return false
}

func (s Status) CanTransitionTo(to Status) bool {
	switch s {
	case StatusPending:
		return to == StatusActive
	case StatusActive:
		return to == StatusCompleted
	}
	return false
}

type Race struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Date      time.Time `json:"date"`
	Status    Status    `json:"status"`
	CreatedAt time.Time `json:"created_at"` // UTC
	UpdatedAt time.Time `json:"updated_at"` // UTC
}

// Runner is a race participant. FinishTime, Position and RunningSeconds are
// set together when the finish is recorded and cleared together on undo.
type Runner struct {
	ID             string     `json:"id"`
	RaceID         string     `json:"race_id"`
	Name           string     `json:"name"`
	House          string     `json:"house"`
	AgeGroup       string     `json:"age_group"`
	DateOfBirth    time.Time  `json:"date_of_birth,omitempty"`
	Gender         string     `json:"gender,omitempty"`
	FinishTime     *time.Time `json:"finish_time,omitempty"`
	Position       *int       `json:"position,omitempty"`
	RunningSeconds *int       `json:"running_time_seconds,omitempty"`
}

func (r Runner) Finished() bool {
	return r.FinishTime != nil
}

// NewRace contains information needed to create a new Race.
type NewRace struct {
	Name string    `json:"name" validate:"required"`
	Date time.Time `json:"date" validate:"required"`
}

// RecordFinish is a finish-line command. Position is an optional manual
// override; zero means "next in arrival order", assigned by the store.
type RecordFinish struct {
	RunnerID string `json:"runner_id" validate:"required"`
	Minutes  int    `json:"minutes" validate:"min=0"`
	Seconds  int    `json:"seconds" validate:"min=0,max=59"`
	Position int    `json:"position" validate:"min=0"`
}

// Finish holds the persisted finish fields handed to the Repository.
type Finish struct {
	Time           time.Time
	Position       int // 0 = assign next position in arrival order
	RunningSeconds int
}
