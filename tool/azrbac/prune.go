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

package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/Azure/azure-sdk-for-go/sdk/azidentity"
	"github.com/gravitational/trace"

	"github.com/gravitational/azrbac/lib/azure"
	"github.com/gravitational/azrbac/lib/report"
	"github.com/gravitational/azrbac/lib/scopes"
)

// assignmentDeleter deletes a role assignment by its full resource id.
type assignmentDeleter interface {
	DeleteRoleAssignmentByID(ctx context.Context, roleAssignmentID string) error
}

var _ assignmentDeleter = (*azure.RoleAssignmentsClient)(nil)

func onPrune(ctx context.Context, ccfg *cliConfig, logger *slog.Logger) error {
	f, err := os.Open(ccfg.ReportPath)
	if err != nil {
		return trace.ConvertSystemError(err)
	}
	defer f.Close()
	rows, err := report.Read(ctx, logger, f)
	if err != nil {
		return trace.Wrap(err)
	}
	if len(rows) == 0 {
		logger.InfoContext(ctx, "Report contains no deletable rows")
		return nil
	}

	// Every row of a report belongs to the subscription it was audited in.
	subscriptionID, err := scopes.SubscriptionID(rows[0].Scope)
	if err != nil {
		return trace.Wrap(err)
	}
	cred, err := azidentity.NewDefaultAzureCredential(nil)
	if err != nil {
		return trace.Wrap(err)
	}
	deleter, err := azure.NewRoleAssignmentsClient(subscriptionID, cred, nil)
	if err != nil {
		return trace.Wrap(err)
	}

	if !ccfg.Execute {
		logger.InfoContext(ctx, "Dry run, pass --execute to delete", "rows", len(rows))
	}
	return trace.Wrap(pruneAssignments(ctx, logger, deleter, rows, ccfg.Execute))
}

// pruneAssignments deletes the assignments the report rows name. Failures
// are collected rather than returned immediately so one undeletable row does
// not block the rest. Without execute nothing is deleted.
func pruneAssignments(ctx context.Context, logger *slog.Logger, deleter assignmentDeleter, rows []report.Row, execute bool) error {
	var errs []error
	for _, row := range rows {
		if !execute {
			logger.InfoContext(ctx, "Would delete role assignment",
				"assignment", row.AssignmentName,
				"principal", row.PrincipalName,
				"role", row.RoleName,
				"scope", row.Scope,
			)
			continue
		}
		if err := deleter.DeleteRoleAssignmentByID(ctx, row.AssignmentID); err != nil {
			logger.WarnContext(ctx, "Failed to delete role assignment",
				"assignment", row.AssignmentName,
				"error", err,
			)
			errs = append(errs, trace.Wrap(err, "deleting %v", row.AssignmentID))
			continue
		}
		logger.InfoContext(ctx, "Deleted role assignment",
			"assignment", row.AssignmentName,
			"principal", row.PrincipalName,
			"role", row.RoleName,
			"scope", row.Scope,
		)
	}
	return trace.NewAggregate(errs...)
}
