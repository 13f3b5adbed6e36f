package staff

import (
	"context"
	"fmt"
	"time"

	"github.com/pkg/errors"

	"github.com/trackside/carnival/core"
	"github.com/trackside/carnival/core/audit"
)

var NowFunc = time.Now // mockable

type (
	Repository interface {
		CheckUsernameUniqueness(ctx context.Context, username string, excluded ...Staff) error
		CreateStaff(ctx context.Context, stf Staff) (Staff, error)
		QueryAllStaff(ctx context.Context) ([]Staff, error)
		GetStaffByID(ctx context.Context, id string) (Staff, error)
		GetStaffByUsername(ctx context.Context, username string) (Staff, error)
		SetLastLogin(ctx context.Context, id string, at time.Time) error
		UpdatePassword(ctx context.Context, id string, hash []byte) error
	}

	Service struct {
		repo     Repository
		auditSvc *audit.Service
		logger   core.Logger
	}
)

func NewService(repo Repository, auditSvc *audit.Service, logger core.Logger) *Service {
	return &Service{repo: repo, auditSvc: auditSvc, logger: logger}
}

func (svc *Service) logAction(ctx context.Context, actor string, action audit.Action, details interface{}) {
	if _, err := svc.auditSvc.Log(ctx, actor, action, details); err != nil {
		svc.logger.Error(fmt.Sprintf("logging %s action: %v", action, err), err)
	}
}

func (svc *Service) Create(ctx context.Context, ns NewStaff) (Staff, error) {
	ns.Username = core.CleanString(ns.Username, true /* lower */)
	if err := svc.repo.CheckUsernameUniqueness(ctx, ns.Username); err != nil {
		if err == ErrUsernameExists {
			return Staff{}, core.NewValidationError(err, core.FieldError{Field: "username", Error: err.Error()})
		}
		return Staff{}, err
	}

	stf := Staff{
		Name:      core.CleanString(ns.Name),
		Username:  ns.Username,
		IsAdmin:   ns.IsAdmin,
		CreatedAt: NowFunc().UTC(),
	}
	if err := stf.SetPassword(ns.Password); err != nil {
		return Staff{}, errors.Wrap(err, "hashing password")
	}
	return svc.repo.CreateStaff(ctx, stf)
}

func (svc *Service) QueryAll(ctx context.Context) ([]Staff, error) {
	return svc.repo.QueryAllStaff(ctx)
}

func (svc *Service) GetByID(ctx context.Context, id string) (Staff, error) {
	return svc.repo.GetStaffByID(ctx, id)
}

func (svc *Service) GetByUsername(ctx context.Context, uname string) (Staff, error) {
	return svc.repo.GetStaffByUsername(ctx, core.CleanString(uname, true /* lower */))
}

// Authenticate verifies credentials, stamps last login and logs the action.
func (svc *Service) Authenticate(ctx context.Context, uname, pwd string) (Staff, error) {
	stf, err := svc.GetByUsername(ctx, uname)
	if err != nil {
		return Staff{}, err
	}
	if err = stf.CheckPassword(pwd); err != nil {
		return Staff{}, ErrNotFound
	}

	stf.LastLogin = NowFunc().UTC()
	if err = svc.repo.SetLastLogin(ctx, stf.ID, stf.LastLogin); err != nil {
		return Staff{}, errors.Wrap(err, "setting last login")
	}
	svc.logAction(ctx, stf.Username, audit.ActionLogin, nil)
	return stf, nil
}

// SetPassword changes a staff member's password after verifying the old one.
func (svc *Service) SetPassword(ctx context.Context, stf Staff, cp ChangePassword) error {
	if err := stf.CheckPassword(cp.OldPassword); err != nil {
		return core.NewValidationError(nil, core.FieldError{Field: "old_password", Error: "incorrect password"})
	}
	if err := stf.SetPassword(cp.NewPassword); err != nil {
		return errors.Wrap(err, "hashing password")
	}
	if err := svc.repo.UpdatePassword(ctx, stf.ID, stf.PasswordHash); err != nil {
		return errors.Wrap(err, "updating password")
	}
	svc.logAction(ctx, stf.Username, audit.ActionPasswordChange, nil)
	return nil
}

// ResetPassword overrides a staff member's password without the old one
// (admin CLI path).
func (svc *Service) ResetPassword(ctx context.Context, uname, pwd string) error {
	stf, err := svc.GetByUsername(ctx, uname)
	if err != nil {
		return err
	}
	if err = stf.SetPassword(pwd); err != nil {
		return errors.Wrap(err, "hashing password")
	}
	if err = svc.repo.UpdatePassword(ctx, stf.ID, stf.PasswordHash); err != nil {
		return errors.Wrap(err, "updating password")
	}
	svc.logAction(ctx, stf.Username, audit.ActionPasswordChange, map[string]interface{}{"via": "admin-cli"})
	return nil
}
