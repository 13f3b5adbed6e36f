package main

import (
	"context"
	"fmt"

	"github.com/trackside/carnival/core/staff"
)

// addStaff creates a staff account, optionally with admin privileges.
func (cli *commandLine) addStaff(name, uname, pwd string, isAdmin bool) error {
	ctx := context.Background()

	stf, err := cli.staffSvc.Create(ctx, staff.NewStaff{
		Name:            name,
		Username:        uname,
		Password:        pwd,
		PasswordConfirm: pwd,
		IsAdmin:         isAdmin,
	})
	if err != nil {
		return err
	}
	fmt.Fprintf(cli.stdout, "created staff member %q (admin: %t)\n", stf.Username, stf.IsAdmin)
	return nil
}
