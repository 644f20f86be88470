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

package membership

import (
	"context"
	"sync"
	"testing"

	"github.com/gravitational/trace"
	"github.com/stretchr/testify/require"

	"github.com/gravitational/azrbac/lib/msgraph"
	"github.com/gravitational/azrbac/lib/msgraph/msgraphtest"
)

// fakeDirectory serves membership data from maps. Group and user ids missing
// from the maps report NotFound like the real directory does.
type fakeDirectory struct {
	members  map[string][]msgraph.GroupMember
	closures map[string][]string

	memberErrs  map[string]error
	closureErrs map[string]error

	mu           sync.Mutex
	memberCalls  map[string]int
	closureCalls map[string]int
}

func (f *fakeDirectory) IterateGroupMembers(ctx context.Context, groupID string, fn func(msgraph.GroupMember) bool) error {
	f.mu.Lock()
	if f.memberCalls == nil {
		f.memberCalls = make(map[string]int)
	}
	f.memberCalls[groupID]++
	f.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return trace.Wrap(err)
	}
	if err := f.memberErrs[groupID]; err != nil {
		return err
	}
	members, ok := f.members[groupID]
	if !ok {
		return trace.NotFound("group %q not found", groupID)
	}
	for _, m := range members {
		if !fn(m) {
			return nil
		}
	}
	return nil
}

func (f *fakeDirectory) IterateUserTransitiveGroups(ctx context.Context, userID string, fn func(*msgraph.Group) bool) error {
	f.mu.Lock()
	if f.closureCalls == nil {
		f.closureCalls = make(map[string]int)
	}
	f.closureCalls[userID]++
	f.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return trace.Wrap(err)
	}
	if err := f.closureErrs[userID]; err != nil {
		return err
	}
	groups, ok := f.closures[userID]
	if !ok {
		return trace.NotFound("user %q not found", userID)
	}
	for _, id := range groups {
		if !fn(&msgraph.Group{DirectoryObject: msgraph.DirectoryObject{ID: &id}}) {
			return nil
		}
	}
	return nil
}

func userMember(id string) msgraph.GroupMember {
	return &msgraph.User{DirectoryObject: msgraph.DirectoryObject{ID: &id}}
}

func groupMember(id string) msgraph.GroupMember {
	return &msgraph.Group{DirectoryObject: msgraph.DirectoryObject{ID: &id}}
}

func setOf(ids ...string) map[string]struct{} {
	s := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		s[id] = struct{}{}
	}
	return s
}

func newTestResolver(t *testing.T, dir Directory) *Resolver {
	t.Helper()
	r, err := NewResolver(Config{Directory: dir})
	require.NoError(t, err)
	return r
}

func TestNewResolver(t *testing.T) {
	t.Parallel()

	_, err := NewResolver(Config{})
	require.ErrorContains(t, err, "missing Directory")
}

func TestGroupMembers(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("flattens nested groups", func(t *testing.T) {
		dir := &fakeDirectory{
			members: map[string][]msgraph.GroupMember{
				"group1": {userMember("alice"), groupMember("group2")},
				"group2": {userMember("bob"), groupMember("group3")},
				"group3": {userMember("carol")},
			},
		}
		r := newTestResolver(t, dir)

		users, err := r.GroupMembers(ctx, "group1")
		require.NoError(t, err)
		require.Equal(t, setOf("alice", "bob", "carol"), users)
	})

	t.Run("terminates on cycles", func(t *testing.T) {
		// groupA and groupB contain each other. The flattened result
		// must match the same graph with the cycle edge removed.
		dir := &fakeDirectory{
			members: map[string][]msgraph.GroupMember{
				"groupA": {userMember("u1"), groupMember("groupB")},
				"groupB": {userMember("u2"), groupMember("groupA")},
			},
		}
		r := newTestResolver(t, dir)

		users, err := r.GroupMembers(ctx, "groupA")
		require.NoError(t, err)
		require.Equal(t, setOf("u1", "u2"), users)
		require.Equal(t, 1, dir.memberCalls["groupA"])
		require.Equal(t, 1, dir.memberCalls["groupB"])
	})

	t.Run("missing group contributes zero members", func(t *testing.T) {
		dir := &fakeDirectory{
			members: map[string][]msgraph.GroupMember{
				"group1": {userMember("alice"), groupMember("deleted"), groupMember("group2")},
				"group2": {userMember("bob")},
			},
		}
		r := newTestResolver(t, dir)

		users, err := r.GroupMembers(ctx, "group1")
		require.NoError(t, err)
		require.Equal(t, setOf("alice", "bob"), users)
	})

	t.Run("transient failure degrades one branch only", func(t *testing.T) {
		dir := &fakeDirectory{
			members: map[string][]msgraph.GroupMember{
				"group1": {userMember("alice"), groupMember("flaky"), groupMember("group2")},
				"group2": {userMember("bob")},
			},
			memberErrs: map[string]error{
				"flaky": trace.ConnectionProblem(nil, "directory unavailable"),
			},
		}
		r := newTestResolver(t, dir)

		users, err := r.GroupMembers(ctx, "group1")
		require.NoError(t, err)
		require.Equal(t, setOf("alice", "bob"), users)
	})

	t.Run("listings are fetched once per resolver", func(t *testing.T) {
		dir := &fakeDirectory{
			members: map[string][]msgraph.GroupMember{
				"group1": {userMember("alice"), groupMember("group2")},
				"group2": {userMember("bob")},
			},
		}
		r := newTestResolver(t, dir)

		for range 3 {
			users, err := r.GroupMembers(ctx, "group1")
			require.NoError(t, err)
			require.Equal(t, setOf("alice", "bob"), users)
		}
		require.Equal(t, 1, dir.memberCalls["group1"])
		require.Equal(t, 1, dir.memberCalls["group2"])
	})

	t.Run("canceled context aborts", func(t *testing.T) {
		dir := &fakeDirectory{
			members: map[string][]msgraph.GroupMember{
				"group1": {userMember("alice")},
			},
		}
		r := newTestResolver(t, dir)

		canceled, cancel := context.WithCancel(ctx)
		cancel()
		_, err := r.GroupMembers(canceled, "group1")
		require.Error(t, err)
	})
}

func TestTransitiveGroups(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("expands the closure", func(t *testing.T) {
		dir := &fakeDirectory{
			closures: map[string][]string{
				"alice": {"group1", "group2"},
			},
		}
		r := newTestResolver(t, dir)

		closure, err := r.TransitiveGroups(ctx, "alice")
		require.NoError(t, err)
		require.Equal(t, setOf("group1", "group2"), closure)
	})

	t.Run("missing user yields an empty closure", func(t *testing.T) {
		r := newTestResolver(t, &fakeDirectory{})

		closure, err := r.TransitiveGroups(ctx, "ghost")
		require.NoError(t, err)
		require.Empty(t, closure)
	})

	t.Run("transient failure yields an empty closure", func(t *testing.T) {
		dir := &fakeDirectory{
			closureErrs: map[string]error{
				"alice": trace.ConnectionProblem(nil, "directory unavailable"),
			},
		}
		r := newTestResolver(t, dir)

		closure, err := r.TransitiveGroups(ctx, "alice")
		require.NoError(t, err)
		require.Empty(t, closure)
	})

	t.Run("concurrent queries share one directory call", func(t *testing.T) {
		dir := &fakeDirectory{
			closures: map[string][]string{
				"alice": {"group1"},
			},
		}
		r := newTestResolver(t, dir)

		const workers = 8
		closures := make([]map[string]struct{}, workers)
		errs := make([]error, workers)
		var wg sync.WaitGroup
		for i := range workers {
			wg.Add(1)
			go func() {
				defer wg.Done()
				closures[i], errs[i] = r.TransitiveGroups(ctx, "alice")
			}()
		}
		wg.Wait()
		for i := range workers {
			require.NoError(t, errs[i])
			require.Equal(t, setOf("group1"), closures[i])
		}
		require.Equal(t, 1, dir.closureCalls["alice"])
	})

	t.Run("canceled context aborts", func(t *testing.T) {
		dir := &fakeDirectory{
			closures: map[string][]string{
				"alice": {"group1"},
			},
		}
		r := newTestResolver(t, dir)

		canceled, cancel := context.WithCancel(ctx)
		cancel()
		_, err := r.TransitiveGroups(canceled, "alice")
		require.Error(t, err)
	})
}

// TestResolverAgainstGraph runs the resolver against the fake Graph server to
// cover the whole read path: pagination, member type dispatch and Graph-style
// 404 payloads.
func TestResolverAgainstGraph(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	srv := msgraphtest.NewServer()
	t.Cleanup(srv.TLSServer.Close)

	client, err := msgraph.NewClient(msgraph.Config{
		HTTPClient:    srv.HTTPClient,
		TokenProvider: &srv.TokenProvider,
	})
	require.NoError(t, err)
	r := newTestResolver(t, client)

	users, err := r.GroupMembers(ctx, "group1")
	require.NoError(t, err)
	require.Equal(t, setOf("alice", "bob", "carol"), users, "devices must not contribute members")

	closure, err := r.TransitiveGroups(ctx, "carol")
	require.NoError(t, err)
	require.Equal(t, setOf("group1", "group2", "group3"), closure)

	ghost, err := r.GroupMembers(ctx, "ghost")
	require.NoError(t, err)
	require.Empty(t, ghost)
}
