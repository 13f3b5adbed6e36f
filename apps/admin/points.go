package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/pmezard/go-difflib/difflib"

	"github.com/trackside/carnival/core/house"
)

// backup snapshots the house points ledger and prints the snapshot so it can
// be redirected to a file.
func (cli *commandLine) backup() error {
	snapshot, err := cli.houseSvc.Backup(context.Background(), cliActor)
	if err != nil {
		return err
	}
	fmt.Fprintln(cli.stdout, string(snapshot))
	return nil
}

// restore replaces the house points ledger with the snapshot in the given
// file. With preview set, it prints a unified diff against the latest backup
// and applies nothing.
func (cli *commandLine) restore(file string, preview bool) error {
	ctx := context.Background()

	payload, err := os.ReadFile(file)
	if err != nil {
		return err
	}

	if preview {
		latest, err := cli.houseSvc.LatestBackup(ctx)
		if err != nil {
			if err != house.ErrBackupNotFound {
				return err
			}
			latest = nil
		}
		diff, err := difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
			A:        difflib.SplitLines(prettyJSON(latest)),
			B:        difflib.SplitLines(prettyJSON(payload)),
			FromFile: "latest backup",
			ToFile:   file,
			Context:  3,
		})
		if err != nil {
			return err
		}
		if diff == "" {
			fmt.Fprintln(cli.stdout, "no changes")
			return nil
		}
		fmt.Fprint(cli.stdout, diff)
		return nil
	}

	return cli.houseSvc.Restore(ctx, cliActor, payload)
}

// resetPoints backs up then clears the house points ledger. The snapshot is
// printed so it can be kept.
func (cli *commandLine) resetPoints() error {
	snapshot, err := cli.houseSvc.ResetAllPoints(context.Background(), cliActor)
	if err != nil {
		return err
	}
	fmt.Fprintln(cli.stdout, string(snapshot))
	return nil
}

func prettyJSON(payload []byte) string {
	if len(payload) == 0 {
		return ""
	}
	var buf bytes.Buffer
	if err := json.Indent(&buf, payload, "", "  "); err != nil {
		return string(payload)
	}
	return buf.String() + "\n"
}
