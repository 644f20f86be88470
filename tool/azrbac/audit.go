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
	"io"
	"log/slog"
	"os"

	"github.com/Azure/azure-sdk-for-go/sdk/azidentity"
	"github.com/Azure/azure-sdk-for-go/sdk/resourcemanager/authorization/armauthorization/v2"
	"github.com/gravitational/trace"

	"github.com/gravitational/azrbac/lib/audit"
	"github.com/gravitational/azrbac/lib/azure"
	"github.com/gravitational/azrbac/lib/membership"
	"github.com/gravitational/azrbac/lib/msgraph"
	"github.com/gravitational/azrbac/lib/report"
	"github.com/gravitational/azrbac/lib/scopes"
)

// roleAssignmentLister is the assignment surface the audit reads.
type roleAssignmentLister interface {
	ListRoleAssignments(ctx context.Context, scope string) ([]*armauthorization.RoleAssignment, error)
}

var _ roleAssignmentLister = (*azure.RoleAssignmentsClient)(nil)

// candidateFinder runs the redundancy decision over an assignment index.
type candidateFinder interface {
	FindRedundant(ctx context.Context, index *audit.Index) ([]audit.Candidate, error)
}

var _ candidateFinder = (*audit.Engine)(nil)

func onAudit(ctx context.Context, ccfg *cliConfig, logger *slog.Logger, stdout io.Writer) error {
	cred, err := azidentity.NewDefaultAzureCredential(nil)
	if err != nil {
		return trace.Wrap(err)
	}

	subscriptionIDs := ccfg.Subscriptions
	if len(subscriptionIDs) == 0 {
		subsClient, err := azure.NewSubscriptionIDsClient(cred, nil)
		if err != nil {
			return trace.Wrap(err)
		}
		// The audit cannot proceed without knowing what to audit.
		subscriptionIDs, err = subsClient.ListSubscriptionIDs(ctx)
		if err != nil {
			return trace.Wrap(err, "listing subscriptions visible to the credential")
		}
	}

	graphClient, err := msgraph.NewClient(msgraph.Config{
		TokenProvider: cred,
		Logger:        logger,
	})
	if err != nil {
		return trace.Wrap(err)
	}
	resolver, err := membership.NewResolver(membership.Config{
		Directory: graphClient,
		Logger:    logger,
	})
	if err != nil {
		return trace.Wrap(err)
	}

	var candidates []audit.Candidate
	for _, subscriptionID := range subscriptionIDs {
		assignmentsClient, err := azure.NewRoleAssignmentsClient(subscriptionID, cred, nil)
		if err != nil {
			return trace.Wrap(err)
		}
		definitionsClient, err := azure.NewRoleDefinitionsClient(subscriptionID, cred, nil)
		if err != nil {
			return trace.Wrap(err)
		}
		engine, err := audit.NewEngine(audit.Config{
			Membership:      resolver,
			Directory:       graphClient,
			RoleDefinitions: definitionsClient,
			Logger:          logger,
		})
		if err != nil {
			return trace.Wrap(err)
		}

		logger.InfoContext(ctx, "Auditing subscription", "subscription", subscriptionID)
		found, err := auditSubscription(ctx, logger, assignmentsClient, engine, subscriptionID)
		if err != nil {
			return trace.Wrap(err)
		}
		candidates = append(candidates, found...)
	}

	logger.InfoContext(ctx, "Audit complete",
		"subscriptions", len(subscriptionIDs),
		"redundant_assignments", len(candidates),
	)

	if ccfg.Out == "" {
		return trace.Wrap(report.Write(stdout, candidates))
	}
	f, err := os.Create(ccfg.Out)
	if err != nil {
		return trace.ConvertSystemError(err)
	}
	if err := report.Write(f, candidates); err != nil {
		f.Close()
		return trace.Wrap(err)
	}
	return trace.ConvertSystemError(f.Close())
}

// auditSubscription lists one subscription's role assignments and returns
// the redundant direct user assignments among them. A listing failure is
// fatal: without the baseline there is nothing to audit.
func auditSubscription(ctx context.Context, logger *slog.Logger, lister roleAssignmentLister, finder candidateFinder, subscriptionID string) ([]audit.Candidate, error) {
	scope := scopes.SubscriptionScope(subscriptionID)
	records, err := lister.ListRoleAssignments(ctx, scope)
	if err != nil {
		return nil, trace.Wrap(err, "listing role assignments at %v", scope)
	}
	assignments := audit.NewAssignments(ctx, logger, records)
	candidates, err := finder.FindRedundant(ctx, audit.BuildIndex(assignments))
	return candidates, trace.Wrap(err)
}
