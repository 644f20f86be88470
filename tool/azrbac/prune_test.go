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
	"testing"

	"github.com/gravitational/trace"
	"github.com/stretchr/testify/require"

	"github.com/gravitational/azrbac/lib/report"
)

type fakeDeleter struct {
	deleted []string
	errs    map[string]error
}

func (f *fakeDeleter) DeleteRoleAssignmentByID(ctx context.Context, roleAssignmentID string) error {
	if err := f.errs[roleAssignmentID]; err != nil {
		return err
	}
	f.deleted = append(f.deleted, roleAssignmentID)
	return nil
}

func TestPruneAssignments(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	logger := slog.New(slog.DiscardHandler)

	rows := []report.Row{
		{AssignmentID: "/ra1", AssignmentName: "ra1"},
		{AssignmentID: "/ra2", AssignmentName: "ra2"},
		{AssignmentID: "/ra3", AssignmentName: "ra3"},
	}

	t.Run("dry run deletes nothing", func(t *testing.T) {
		deleter := &fakeDeleter{}
		require.NoError(t, pruneAssignments(ctx, logger, deleter, rows, false))
		require.Empty(t, deleter.deleted)
	})

	t.Run("execute deletes every row", func(t *testing.T) {
		deleter := &fakeDeleter{}
		require.NoError(t, pruneAssignments(ctx, logger, deleter, rows, true))
		require.Equal(t, []string{"/ra1", "/ra2", "/ra3"}, deleter.deleted)
	})

	t.Run("one failure does not block the rest", func(t *testing.T) {
		deleter := &fakeDeleter{errs: map[string]error{"/ra2": trace.AccessDenied("assignment is locked")}}
		err := pruneAssignments(ctx, logger, deleter, rows, true)
		require.Error(t, err)
		require.Equal(t, []string{"/ra1", "/ra3"}, deleter.deleted)
	})

	t.Run("no rows is a no-op", func(t *testing.T) {
		deleter := &fakeDeleter{}
		require.NoError(t, pruneAssignments(ctx, logger, deleter, nil, true))
		require.Empty(t, deleter.deleted)
	})
}
