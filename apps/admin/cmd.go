package main

import (
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"io"
	"syscall"

	"golang.org/x/term"

	"github.com/trackside/carnival/core/house"
	"github.com/trackside/carnival/core/staff"
)

var (
	readPasswordFunc = term.ReadPassword // mockable

	errHelp = errors.New("help provided")
)

// cliActor is the actor recorded in the action log for CLI-driven operations.
const cliActor = "admin-cli"

type commandLine struct {
	db       *sql.DB
	staffSvc *staff.Service
	houseSvc *house.Service
	stdout   io.Writer
}

func (cli *commandLine) printUsage() {
	fmt.Println("Usage:")
	fmt.Println("  migrate COMMAND [ARGS]                 - run database migrations (up, down, status, ...)")
	fmt.Println("  addstaff -name NAME -username USERNAME [-admin] - create a staff account. The password is prompted next")
	fmt.Println("  resetpassword -username USERNAME       - reset a staff member's password. The password is prompted next")
	fmt.Println("  backup                                 - snapshot house points and print the snapshot")
	fmt.Println("  restore -file FILE [-diff]             - restore house points from a snapshot file; -diff previews only")
	fmt.Println("  resetpoints                            - back up then clear all house points")
}

func (cli *commandLine) run(args []string) error {
	if len(args) < 2 {
		cli.printUsage()
		return errHelp
	}

	addStaffCmd := flag.NewFlagSet("addstaff", flag.ExitOnError)
	addStaffName := addStaffCmd.String("name", "", "The staff member's full name.")
	addStaffUname := addStaffCmd.String("username", "", "The staff member's username. The password will be prompted next.")
	addStaffAdmin := addStaffCmd.Bool("admin", false, "Grant admin privileges.")

	resetPasswordCmd := flag.NewFlagSet("resetpassword", flag.ExitOnError)
	resetPasswordUname := resetPasswordCmd.String("username", "", "The staff member's username. The password will be prompted next.")

	restoreCmd := flag.NewFlagSet("restore", flag.ExitOnError)
	restoreFile := restoreCmd.String("file", "", "Path to the snapshot file to restore from.")
	restoreDiff := restoreCmd.Bool("diff", false, "Preview the changes against the latest backup without applying them.")

	switch args[1] {
	case "migrate":
		if len(args) < 3 {
			cli.printUsage()
			return errHelp
		}
		return cli.migrate(args[2:])
	case "addstaff":
		if err := addStaffCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *addStaffName == "" || *addStaffUname == "" {
			addStaffCmd.Usage()
			return errHelp
		}
		pwd, err := cli.promptPassword()
		if err != nil {
			return err
		}
		if pwd == "" {
			addStaffCmd.Usage()
			return errHelp
		}
		return cli.addStaff(*addStaffName, *addStaffUname, pwd, *addStaffAdmin)
	case "resetpassword":
		if err := resetPasswordCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *resetPasswordUname == "" {
			resetPasswordCmd.Usage()
			return errHelp
		}
		pwd, err := cli.promptPassword()
		if err != nil {
			return err
		}
		if pwd == "" {
			resetPasswordCmd.Usage()
			return errHelp
		}
		return cli.resetPassword(*resetPasswordUname, pwd)
	case "backup":
		return cli.backup()
	case "restore":
		if err := restoreCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *restoreFile == "" {
			restoreCmd.Usage()
			return errHelp
		}
		return cli.restore(*restoreFile, *restoreDiff)
	case "resetpoints":
		return cli.resetPoints()
	default:
		cli.printUsage()
		return errHelp
	}
}

func (cli *commandLine) promptPassword() (string, error) {
	fmt.Print("Enter password:")
	pwd, err := readPasswordFunc(syscall.Stdin)
	fmt.Println()
	if err != nil {
		return "", err
	}
	return string(pwd), nil
}
