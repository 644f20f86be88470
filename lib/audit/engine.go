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

// Package audit decides which direct user role assignments are redundant: a
// user assignment is a cleanup candidate when the user already holds the same
// role through a group assignment at the same scope or an ancestor scope.
// Deciding never mutates anything; deletion is a separate, explicitly
// requested step.
package audit

import (
	"context"
	"log/slog"
	"slices"

	"github.com/Azure/azure-sdk-for-go/sdk/resourcemanager/authorization/armauthorization/v2"
	"github.com/gravitational/trace"
	"golang.org/x/sync/errgroup"

	"github.com/gravitational/azrbac/lib/azure"
	"github.com/gravitational/azrbac/lib/membership"
	"github.com/gravitational/azrbac/lib/msgraph"
	"github.com/gravitational/azrbac/lib/scopes"
)

// prefetchConcurrency is an arbitrary concurrency for resolving distinct
// users' group closures to ensure significant throughput.
const prefetchConcurrency = 4

// MembershipResolver yields a user's transitive group closure.
type MembershipResolver interface {
	TransitiveGroups(ctx context.Context, userID string) (map[string]struct{}, error)
}

var _ MembershipResolver = (*membership.Resolver)(nil)

// Directory is the subset of the Graph API used to resolve display names for
// reporting.
type Directory interface {
	GetUser(ctx context.Context, userID string) (*msgraph.User, error)
	GetGroup(ctx context.Context, groupID string) (*msgraph.Group, error)
}

var _ Directory = (*msgraph.Client)(nil)

// RoleDefinitionGetter resolves role definitions to their display names.
type RoleDefinitionGetter interface {
	GetRoleDefinition(ctx context.Context, roleDefinitionID string) (*armauthorization.RoleDefinition, error)
}

var _ RoleDefinitionGetter = (*azure.RoleDefinitionsClient)(nil)

// Candidate is one direct user assignment proven redundant, together with the
// cover that proves it. Field order mirrors the report columns.
type Candidate struct {
	// Assignment is the redundant direct assignment.
	Assignment Assignment
	// PrincipalName is the user's display name, or the principal id when
	// the directory lookup failed.
	PrincipalName string
	// RoleName is the role's display name, or the raw role definition id
	// when the lookup failed. The redundancy decision never depends on
	// it.
	RoleName string
	// CoveringGroupIDs are the ids of every group granting the same role
	// at CoveringScope that the user transitively belongs to, sorted.
	CoveringGroupIDs []string
	// CoveringScope is the scope the cover was found at: the assignment's
	// own scope or the nearest ancestor with a cover.
	CoveringScope string
}

// Config configures an Engine.
type Config struct {
	// Membership resolves users' transitive group closures. Required.
	Membership MembershipResolver
	// Directory resolves principal display names. Required.
	Directory Directory
	// RoleDefinitions resolves role display names. Required.
	RoleDefinitions RoleDefinitionGetter
	// Concurrency bounds the concurrent membership prefetch. Defaults to
	// [prefetchConcurrency].
	Concurrency int
	// Logger is the slog logger. Defaults to [slog.Default].
	Logger *slog.Logger
}

// SetDefaults sets the default values for optional fields.
func (cfg *Config) SetDefaults() {
	if cfg.Concurrency == 0 {
		cfg.Concurrency = prefetchConcurrency
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
}

// Validate checks that the required fields are set.
func (cfg *Config) Validate() error {
	switch {
	case cfg.Membership == nil:
		return trace.BadParameter("missing Membership")
	case cfg.Directory == nil:
		return trace.BadParameter("missing Directory")
	case cfg.RoleDefinitions == nil:
		return trace.BadParameter("missing RoleDefinitions")
	}
	return nil
}

// Engine finds redundant direct user assignments in an assignment index.
// Display name lookups are cached for the engine's lifetime, so one engine
// can audit several subscriptions in a run.
type Engine struct {
	membership      MembershipResolver
	directory       Directory
	roleDefinitions RoleDefinitionGetter
	concurrency     int
	logger          *slog.Logger

	userNames  map[string]string
	groupNames map[string]string
	roleNames  map[string]string
}

// NewEngine returns an Engine with empty name caches.
func NewEngine(cfg Config) (*Engine, error) {
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, trace.Wrap(err)
	}
	return &Engine{
		membership:      cfg.Membership,
		directory:       cfg.Directory,
		roleDefinitions: cfg.RoleDefinitions,
		concurrency:     cfg.Concurrency,
		logger:          cfg.Logger,

		userNames:  make(map[string]string),
		groupNames: make(map[string]string),
		roleNames:  make(map[string]string),
	}, nil
}

// FindRedundant evaluates every direct user assignment in the index and
// returns the redundant ones in input order. The walk is first-match: the
// assignment's own scope is checked first, then each ancestor in turn, and
// the first scope with any covering group wins. Given the same snapshot of
// assignments and memberships the result is reproducible.
func (e *Engine) FindRedundant(ctx context.Context, index *Index) ([]Candidate, error) {
	// Resolve the distinct users' closures up front. The resolver caches
	// per user, so the sequential pass below never goes back to the
	// directory for a closure.
	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(e.concurrency)
	prefetched := make(map[string]struct{}, len(index.Users))
	for _, assignment := range index.Users {
		userID := assignment.PrincipalID
		if _, ok := prefetched[userID]; ok {
			continue
		}
		prefetched[userID] = struct{}{}
		eg.Go(func() error {
			_, err := e.membership.TransitiveGroups(egCtx, userID)
			return trace.Wrap(err)
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, trace.Wrap(err)
	}

	var candidates []Candidate
	for _, assignment := range index.Users {
		if err := ctx.Err(); err != nil {
			return nil, trace.Wrap(err)
		}
		candidate, redundant, err := e.evaluate(ctx, index, assignment)
		if err != nil {
			return nil, trace.Wrap(err)
		}
		if redundant {
			candidates = append(candidates, candidate)
		}
	}
	return candidates, nil
}

// evaluate walks one user assignment's scope chain looking for a cover.
func (e *Engine) evaluate(ctx context.Context, index *Index, assignment Assignment) (Candidate, bool, error) {
	walk, err := scopeWalk(assignment.Scope)
	if err != nil {
		// Assignments on scopes outside a subscription (management
		// groups in particular) cannot be walked. Skipping one is not
		// fatal for the run.
		e.logger.WarnContext(ctx, "Skipping role assignment with unsupported scope",
			"assignment", assignment.ID,
			"scope", assignment.Scope,
			"error", err,
		)
		return Candidate{}, false, nil
	}

	closure, err := e.membership.TransitiveGroups(ctx, assignment.PrincipalID)
	if err != nil {
		return Candidate{}, false, trace.Wrap(err)
	}

	role := NormalizeRoleDefinitionID(assignment.RoleDefinitionID)
	for _, scope := range walk {
		var covering []string
		for _, group := range index.GroupAssignments(scope, role) {
			if _, ok := closure[group.PrincipalID]; ok {
				covering = append(covering, group.PrincipalID)
			}
		}
		if len(covering) == 0 {
			continue
		}
		slices.Sort(covering)
		covering = slices.Compact(covering)

		candidate := Candidate{
			Assignment:       assignment,
			PrincipalName:    e.userName(ctx, assignment.PrincipalID),
			RoleName:         e.roleName(ctx, assignment.RoleDefinitionID),
			CoveringGroupIDs: covering,
			CoveringScope:    scope,
		}
		e.logger.InfoContext(ctx, "REDUNDANT: direct assignment is covered by a group assignment",
			"user", candidate.PrincipalName,
			"role", candidate.RoleName,
			"scope", assignment.Scope,
			"covered_by", e.coveringNames(ctx, covering),
			"covering_scope", scope,
		)
		return candidate, true, nil
	}
	return Candidate{}, false, nil
}

// scopeWalk returns the normalized search order for an assignment's scope:
// the scope itself first, then its ancestors from most specific to the
// subscription.
func scopeWalk(scope string) ([]string, error) {
	ancestors, err := scopes.Ancestors(scope)
	if err != nil {
		return nil, trace.Wrap(err)
	}
	walk := make([]string, 0, len(ancestors)+1)
	walk = append(walk, scopes.Normalize(scope))
	for _, ancestor := range ancestors {
		walk = append(walk, scopes.Normalize(ancestor))
	}
	return walk, nil
}

func (e *Engine) userName(ctx context.Context, userID string) string {
	if name, ok := e.userNames[userID]; ok {
		return name
	}
	name := userID
	user, err := e.directory.GetUser(ctx, userID)
	if err != nil {
		e.logger.DebugContext(ctx, "Failed to resolve user display name", "user", userID, "error", err)
	} else if user.DisplayName != nil && *user.DisplayName != "" {
		name = *user.DisplayName
	}
	e.userNames[userID] = name
	return name
}

func (e *Engine) groupName(ctx context.Context, groupID string) string {
	if name, ok := e.groupNames[groupID]; ok {
		return name
	}
	name := groupID
	group, err := e.directory.GetGroup(ctx, groupID)
	if err != nil {
		e.logger.DebugContext(ctx, "Failed to resolve group display name", "group", groupID, "error", err)
	} else if group.DisplayName != nil && *group.DisplayName != "" {
		name = *group.DisplayName
	}
	e.groupNames[groupID] = name
	return name
}

// roleName resolves a role definition's display name, falling back to the
// raw role definition id. The fallback never affects the redundancy
// decision, which depends only on the normalized id.
func (e *Engine) roleName(ctx context.Context, roleDefinitionID string) string {
	if name, ok := e.roleNames[roleDefinitionID]; ok {
		return name
	}
	name := roleDefinitionID
	def, err := e.roleDefinitions.GetRoleDefinition(ctx, roleDefinitionID)
	if err != nil {
		e.logger.DebugContext(ctx, "Failed to resolve role definition name", "role_definition", roleDefinitionID, "error", err)
	} else if def.Properties != nil && def.Properties.RoleName != nil && *def.Properties.RoleName != "" {
		name = *def.Properties.RoleName
	}
	e.roleNames[roleDefinitionID] = name
	return name
}

func (e *Engine) coveringNames(ctx context.Context, groupIDs []string) []string {
	names := make([]string, 0, len(groupIDs))
	for _, id := range groupIDs {
		names = append(names, e.groupName(ctx, id))
	}
	return names
}
