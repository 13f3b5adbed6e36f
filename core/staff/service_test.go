package staff

import (
	"context"
	"errors"
	"strconv"
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

type stubRepo struct {
	members map[string]*Staff
	nextID  int
}

func newStubRepo() *stubRepo {
	return &stubRepo{members: make(map[string]*Staff)}
}

func (r *stubRepo) CheckUsernameUniqueness(_ context.Context, username string, excluded ...Staff) error {
	for _, m := range r.members {
		if m.Username != username {
			continue
		}
		isExcluded := false
		for _, x := range excluded {
			if x.ID == m.ID {
				isExcluded = true
				break
			}
		}
		if !isExcluded {
			return ErrUsernameExists
		}
	}
	return nil
}

func (r *stubRepo) CreateStaff(_ context.Context, stf Staff) (Staff, error) {
	r.nextID++
	stf.ID = "id-" + strconv.Itoa(r.nextID)
	r.members[stf.ID] = &stf
	return stf, nil
}

func (r *stubRepo) QueryAllStaff(_ context.Context) ([]Staff, error) {
	members := make([]Staff, 0, len(r.members))
	for _, m := range r.members {
		members = append(members, *m)
	}
	return members, nil
}

func (r *stubRepo) GetStaffByID(_ context.Context, id string) (Staff, error) {
	m, ok := r.members[id]
	if !ok {
		return Staff{}, ErrNotFound
	}
	return *m, nil
}

func (r *stubRepo) GetStaffByUsername(_ context.Context, username string) (Staff, error) {
	for _, m := range r.members {
		if m.Username == username {
			return *m, nil
		}
	}
	return Staff{}, ErrNotFound
}

func (r *stubRepo) SetLastLogin(_ context.Context, id string, at time.Time) error {
	m, ok := r.members[id]
	if !ok {
		return ErrNotFound
	}
	m.LastLogin = at
	return nil
}

func (r *stubRepo) UpdatePassword(_ context.Context, id string, hash []byte) error {
	m, ok := r.members[id]
	if !ok {
		return ErrNotFound
	}
	m.PasswordHash = hash
	return nil
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

func newTestService() (*Service, *stubRepo, *stubAuditRepo) {
	repo := newStubRepo()
	auditRepo := &stubAuditRepo{}
	return NewService(repo, audit.NewService(auditRepo), nopLogger{}), repo, auditRepo
}

func TestService_Create(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()

	stf, err := svc.Create(ctx, NewStaff{
		Name:            " Jo Cook ",
		Username:        " JCook ",
		Password:        "s3cr3tpwd",
		PasswordConfirm: "s3cr3tpwd",
		IsAdmin:         true,
	})
	if err != nil {
		t.Fatalf("Create() failed: %v", err)
	}
	if stf.Name != "Jo Cook" || stf.Username != "jcook" || !stf.IsAdmin {
		t.Errorf("unexpected staff: %+v", stf)
	}
	if err = stf.CheckPassword("s3cr3tpwd"); err != nil {
		t.Error("password was not hashed from the request")
	}

	// usernames are unique, case-insensitively
	var vErr *core.ValidationError
	_, err = svc.Create(ctx, NewStaff{Name: "Other", Username: "jcook", Password: "pwd", PasswordConfirm: "pwd"})
	if !errors.As(err, &vErr) {
		t.Fatalf("Create() with a taken username: error = %v, want a validation error", err)
	}
	if len(vErr.Fields) != 1 || vErr.Fields[0].Field != "username" {
		t.Errorf("unexpected field errors: %+v", vErr.Fields)
	}
}

func TestService_Authenticate(t *testing.T) {
	svc, repo, auditRepo := newTestService()
	ctx := context.Background()

	stf := Staff{Name: "Jo Cook", Username: "jcook", CreatedAt: time.Now().UTC()}
	_ = stf.SetPassword("s3cr3tpwd")
	if _, err := repo.CreateStaff(ctx, stf); err != nil {
		t.Fatalf("CreateStaff() failed: %v", err)
	}

	if _, err := svc.Authenticate(ctx, "lol", "s3cr3tpwd"); err != ErrNotFound {
		t.Errorf("Authenticate() with unknown username: error = %v, want %v", err, ErrNotFound)
	}
	// a wrong password is indistinguishable from an unknown username
	if _, err := svc.Authenticate(ctx, "jcook", "lol"); err != ErrNotFound {
		t.Errorf("Authenticate() with wrong password: error = %v, want %v", err, ErrNotFound)
	}
	if len(auditRepo.entries) != 0 {
		t.Errorf("failed logins must not be logged as logins: %+v", auditRepo.entries)
	}

	got, err := svc.Authenticate(ctx, "JCook", "s3cr3tpwd")
	if err != nil {
		t.Fatalf("Authenticate() failed: %v", err)
	}
	if got.LastLogin.IsZero() {
		t.Error("LastLogin must be stamped")
	}
	if len(auditRepo.entries) != 1 || auditRepo.entries[0].Action != audit.ActionLogin {
		t.Errorf("unexpected action log: %+v", auditRepo.entries)
	}
}

func TestService_SetPassword(t *testing.T) {
	svc, repo, auditRepo := newTestService()
	ctx := context.Background()

	stf := Staff{Name: "Jo Cook", Username: "jcook"}
	_ = stf.SetPassword("s3cr3tpwd")
	stf, err := repo.CreateStaff(ctx, stf)
	if err != nil {
		t.Fatalf("CreateStaff() failed: %v", err)
	}

	var vErr *core.ValidationError
	err = svc.SetPassword(ctx, stf, ChangePassword{OldPassword: "lol", NewPassword: "an0therpwd", NewPasswordConfirm: "an0therpwd"})
	if !errors.As(err, &vErr) {
		t.Fatalf("SetPassword() with wrong old password: error = %v, want a validation error", err)
	}

	err = svc.SetPassword(ctx, stf, ChangePassword{OldPassword: "s3cr3tpwd", NewPassword: "an0therpwd", NewPasswordConfirm: "an0therpwd"})
	if err != nil {
		t.Fatalf("SetPassword() failed: %v", err)
	}
	refreshed, _ := repo.GetStaffByID(ctx, stf.ID)
	if err = refreshed.CheckPassword("an0therpwd"); err != nil {
		t.Error("new password not in effect")
	}
	if len(auditRepo.entries) != 1 || auditRepo.entries[0].Action != audit.ActionPasswordChange {
		t.Errorf("unexpected action log: %+v", auditRepo.entries)
	}
}

func TestService_ResetPassword(t *testing.T) {
	svc, repo, auditRepo := newTestService()
	ctx := context.Background()

	if err := svc.ResetPassword(ctx, "lol", "whatever1"); err != ErrNotFound {
		t.Errorf("ResetPassword() error = %v, want %v", err, ErrNotFound)
	}

	stf := Staff{Name: "Jo Cook", Username: "jcook"}
	_ = stf.SetPassword("s3cr3tpwd")
	stf, err := repo.CreateStaff(ctx, stf)
	if err != nil {
		t.Fatalf("CreateStaff() failed: %v", err)
	}

	if err = svc.ResetPassword(ctx, "jcook", "an0therpwd"); err != nil {
		t.Fatalf("ResetPassword() failed: %v", err)
	}
	refreshed, _ := repo.GetStaffByID(ctx, stf.ID)
	if err = refreshed.CheckPassword("an0therpwd"); err != nil {
		t.Error("new password not in effect")
	}
	if len(auditRepo.entries) != 1 || auditRepo.entries[0].Action != audit.ActionPasswordChange {
		t.Errorf("unexpected action log: %+v", auditRepo.entries)
	}
}
