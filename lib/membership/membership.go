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

// Package membership resolves transitive group membership against the
// directory. Group nesting is walked breadth-first with cycle protection, and
// every directory read is cached for the lifetime of the resolver, so a group
// shared by many role assignments is only fetched once per audit run.
package membership

import (
	"context"
	"log/slog"
	"sync"

	"github.com/gravitational/trace"
	"golang.org/x/sync/singleflight"

	"github.com/gravitational/azrbac/lib/msgraph"
)

// Directory is the subset of the Graph API the resolver reads from.
type Directory interface {
	// IterateGroupMembers lists the direct members of a group.
	IterateGroupMembers(ctx context.Context, groupID string, f func(msgraph.GroupMember) bool) error
	// IterateUserTransitiveGroups lists all groups a user belongs to,
	// nested groups included.
	IterateUserTransitiveGroups(ctx context.Context, userID string, f func(*msgraph.Group) bool) error
}

var _ Directory = (*msgraph.Client)(nil)

// Config configures a Resolver.
type Config struct {
	// Directory is the directory to resolve membership against. Required.
	Directory Directory
	// Logger is the slog logger. Defaults to [slog.Default].
	Logger *slog.Logger
}

// SetDefaults sets the default values for optional fields.
func (cfg *Config) SetDefaults() {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
}

// Validate checks that the required fields are set.
func (cfg *Config) Validate() error {
	if cfg.Directory == nil {
		return trace.BadParameter("missing Directory")
	}
	return nil
}

// directMembers is one group's direct member listing, split by kind.
type directMembers struct {
	users  []string
	groups []string
}

// Resolver answers transitive membership queries in both directions: the
// users reachable inside a group, and the groups covering a user. Results are
// cached per key with no expiry; create one Resolver per audit run.
//
// A membership read that fails against the directory degrades to an empty
// result and a log line instead of failing the query. Missing permissions or
// a deleted principal must not abort a whole audit, and an empty result can
// only make the audit more conservative. Context cancellation still aborts.
type Resolver struct {
	dir    Directory
	logger *slog.Logger

	flightGroup singleflight.Group
	mu          sync.RWMutex
	members     map[string]directMembers
	closures    map[string]map[string]struct{}
}

// NewResolver returns a Resolver with empty caches.
func NewResolver(cfg Config) (*Resolver, error) {
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, trace.Wrap(err)
	}
	return &Resolver{
		dir:      cfg.Directory,
		logger:   cfg.Logger,
		members:  make(map[string]directMembers),
		closures: make(map[string]map[string]struct{}),
	}, nil
}

// GroupMembers returns the IDs of all users reachable inside the given group,
// walking nested groups breadth-first. A visited set guarantees termination
// when a group is nested inside itself, directly or through a chain. Member
// kinds other than users and groups do not contribute.
func (r *Resolver) GroupMembers(ctx context.Context, groupID string) (map[string]struct{}, error) {
	users := make(map[string]struct{})
	visited := map[string]struct{}{groupID: {}}
	queue := []string{groupID}
	for len(queue) > 0 {
		gid := queue[0]
		queue = queue[1:]

		dm, err := r.directMembers(ctx, gid)
		if err != nil {
			return nil, trace.Wrap(err)
		}
		for _, uid := range dm.users {
			users[uid] = struct{}{}
		}
		for _, sub := range dm.groups {
			if _, ok := visited[sub]; ok {
				continue
			}
			visited[sub] = struct{}{}
			queue = append(queue, sub)
		}
	}
	return users, nil
}

// TransitiveGroups returns the IDs of all groups the given user transitively
// belongs to, using the directory's native transitive expansion.
func (r *Resolver) TransitiveGroups(ctx context.Context, userID string) (map[string]struct{}, error) {
	// Use a singleflight.Group so concurrent queries for the same user
	// share one directory call.
	closure, err, _ := r.flightGroup.Do("closure/"+userID, func() (any, error) {
		// Check the cache inside flightGroup.Do to avoid the chance of
		// immediate repeat calls to the directory.
		r.mu.RLock()
		cached, ok := r.closures[userID]
		r.mu.RUnlock()
		if ok {
			return cached, nil
		}

		closure := make(map[string]struct{})
		err := r.dir.IterateUserTransitiveGroups(ctx, userID, func(group *msgraph.Group) bool {
			if group.ID != nil {
				closure[*group.ID] = struct{}{}
			}
			return true
		})
		if err != nil {
			if ctx.Err() != nil {
				return nil, trace.Wrap(err)
			}
			if trace.IsNotFound(err) {
				r.logger.DebugContext(ctx, "User not found in directory, treating group closure as empty", "user", userID)
			} else {
				r.logger.WarnContext(ctx, "Failed to expand user's groups, treating group closure as empty", "user", userID, "error", err)
			}
			clear(closure)
		}

		r.mu.Lock()
		r.closures[userID] = closure
		r.mu.Unlock()
		return closure, nil
	})
	if err != nil {
		return nil, trace.Wrap(err)
	}
	return closure.(map[string]struct{}), nil
}

// directMembers returns one group's direct member listing, fetching it at
// most once per resolver.
func (r *Resolver) directMembers(ctx context.Context, groupID string) (directMembers, error) {
	dm, err, _ := r.flightGroup.Do("members/"+groupID, func() (any, error) {
		r.mu.RLock()
		cached, ok := r.members[groupID]
		r.mu.RUnlock()
		if ok {
			return cached, nil
		}

		var dm directMembers
		err := r.dir.IterateGroupMembers(ctx, groupID, func(member msgraph.GroupMember) bool {
			switch m := member.(type) {
			case *msgraph.User:
				if m.ID != nil {
					dm.users = append(dm.users, *m.ID)
				}
			case *msgraph.Group:
				if m.ID != nil {
					dm.groups = append(dm.groups, *m.ID)
				}
			}
			return true
		})
		if err != nil {
			if ctx.Err() != nil {
				return directMembers{}, trace.Wrap(err)
			}
			if trace.IsNotFound(err) {
				r.logger.DebugContext(ctx, "Group not found in directory, treating it as empty", "group", groupID)
			} else {
				r.logger.WarnContext(ctx, "Failed to list group members, treating group as empty", "group", groupID, "error", err)
			}
			dm = directMembers{}
		}

		r.mu.Lock()
		r.members[groupID] = dm
		r.mu.Unlock()
		return dm, nil
	})
	if err != nil {
		return directMembers{}, trace.Wrap(err)
	}
	return dm.(directMembers), nil
}
