package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/trackside/carnival/core"
	"github.com/trackside/carnival/core/house"
	"github.com/trackside/carnival/core/race"
	"github.com/trackside/carnival/core/staff"
)

// NewTestConfig returns a config suitable for tests; nothing is read from the
// environment.
func NewTestConfig() *core.Config {
	return &core.Config{
		AppName:          "Carnival",
		Env:              "TEST",
		Debug:            false,
		TestMode:         true,
		Build:            "test",
		SecretKey:        []byte("secret"),
		DefaultFromEmail: "noreply@test.local",
		AdminEmail:       "admin@test.local",
		Server: core.ServerConfig{
			Host:               "127.0.0.1:0",
			DebugHost:          "127.0.0.1:0",
			ShutdownTimeout:    5 * time.Second,
			JWTExpirationDelta: time.Hour,
		},
	}
}

// NewValidators returns an initialized validator and translator, with all
// custom validations registered.
func NewValidators(t *testing.T) (*validator.Validate, ut.Translator) {
	t.Helper()

	_en := en.New()
	uni := ut.New(_en, _en)
	translator, found := uni.GetTranslator("en")
	if !found {
		t.Fatal("NewValidators(): en translator not found")
	}

	validate := validator.New()
	core.InitValidators(validate, translator)
	house.InitValidators(validate, translator)
	return validate, translator
}

// NopLogger discards everything.
type NopLogger struct{}

func (NopLogger) Enable(bool)                  {}
func (NopLogger) Debug(string, ...interface{}) {}
func (NopLogger) Info(string, ...interface{})  {}
func (NopLogger) Warn(string, ...interface{})  {}
func (NopLogger) Error(string, ...interface{}) {}
func (NopLogger) Fatal(string, ...interface{}) {}

func CreateStaff(t *testing.T, repo staff.Repository, name, uname, pwd string, isAdmin bool) staff.Staff {
	t.Helper()

	stf := staff.Staff{
		Name:      name,
		Username:  uname,
		IsAdmin:   isAdmin,
		CreatedAt: time.Now().UTC(),
	}
	if pwd != "" {
		if err := stf.SetPassword(pwd); err != nil {
			t.Fatalf("CreateStaff() failed: %v", err)
		}
	}
	stf, err := repo.CreateStaff(context.Background(), stf)
	if err != nil {
		t.Fatalf("CreateStaff() failed: %v", err)
	}
	return stf
}

func CreateRace(t *testing.T, repo race.Repository, name string, status race.Status) race.Race {
	t.Helper()

	rc, err := repo.CreateRace(context.Background(), race.Race{
		Name:      name,
		Date:      time.Now().UTC(),
		Status:    status,
		CreatedAt: time.Now().UTC(),
	})
	if err != nil {
		t.Fatalf("CreateRace() failed: %v", err)
	}
	return rc
}

func CreateRunner(t *testing.T, repo race.Repository, raceID, name, houseName string) race.Runner {
	t.Helper()

	runners, err := repo.CreateRunners(context.Background(), []race.Runner{
		{RaceID: raceID, Name: name, House: houseName, AgeGroup: "U12"},
	})
	if err != nil {
		t.Fatalf("CreateRunner() failed: %v", err)
	}
	return runners[0]
}
