// azrbac
// Copyright (C) 2026 Gravitational, Inc.
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program.  If not, see <http://www.gnu.org/licenses/>.

// Command azrbac finds and removes redundant Azure role assignments: direct
// user assignments already granted through a group at the same scope or an
// ancestor scope.
//
// `azrbac audit` reports the redundant assignments as CSV without changing
// anything. `azrbac prune` deletes the assignments listed in a previously
// reviewed report, and touches nothing unless --execute is passed.
package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/alecthomas/kingpin/v2"
	"github.com/gravitational/trace"
)

const appHelp = "azrbac: Azure role assignment redundancy auditor."

func main() {
	if err := Run(os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, "ERROR:", err)
		os.Exit(1)
	}
}

type cliConfig struct {
	// Debug logs enabled
	Debug bool
	// Subscriptions to audit. All visible subscriptions when empty.
	Subscriptions []string
	// Out is the report destination path, stdout when empty.
	Out string
	// ReportPath is the reviewed report a prune run consumes.
	ReportPath string
	// Execute performs the deletions; prune is a dry run without it.
	Execute bool
}

func Run(args []string, stdout io.Writer) error {
	var ccfg cliConfig
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app := kingpin.New("azrbac", appHelp).Interspersed(false)
	app.Flag("debug", "Verbose logging to stderr.").
		Short('d').BoolVar(&ccfg.Debug)
	app.HelpFlag.Short('h')

	auditCmd := app.Command("audit", "Report direct user role assignments already covered by a group assignment.")
	auditCmd.Flag("subscription", "Subscription id to audit, repeatable. Defaults to every subscription visible to the credential.").
		StringsVar(&ccfg.Subscriptions)
	auditCmd.Flag("out", "Path to write the CSV report to. Defaults to stdout.").
		Short('o').StringVar(&ccfg.Out)

	pruneCmd := app.Command("prune", "Delete the role assignments listed in a reviewed audit report.")
	pruneCmd.Flag("report", "Path of the CSV report produced by `azrbac audit`.").
		Required().StringVar(&ccfg.ReportPath)
	pruneCmd.Flag("execute", "Perform the deletions. Without it prune only logs what it would delete.").
		BoolVar(&ccfg.Execute)

	command, err := app.Parse(args)
	if err != nil {
		app.Usage(args)
		return trace.Wrap(err)
	}

	logger := setupLogger(ccfg.Debug)

	switch command {
	case auditCmd.FullCommand():
		err = onAudit(ctx, &ccfg, logger, stdout)
	case pruneCmd.FullCommand():
		err = onPrune(ctx, &ccfg, logger)
	default:
		// This should only happen when there's a missing switch case above.
		err = trace.BadParameter("command %q not configured", command)
	}

	return err
}

func setupLogger(debug bool) *slog.Logger {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)
	return logger
}
