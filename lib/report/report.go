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

// Package report renders cleanup candidates to CSV and parses them back.
//
// The audit run writes the report; a later prune run consumes it. Parsing
// returns [Row] rather than [audit.Candidate]: the report carries display
// names, not role definition ids or principal kinds, so the candidate is
// not reconstructible from it.
package report

import (
	"context"
	"encoding/csv"
	"io"
	"log/slog"
	"slices"
	"strings"

	"github.com/gravitational/trace"

	"github.com/gravitational/azrbac/lib/audit"
)

// header is the fixed column set, in the order rows are written.
var header = []string{
	"assignment_id",
	"assignment_name",
	"scope",
	"role_name",
	"principal_id",
	"principal_name",
	"covering_group_ids",
	"covering_scope",
}

// groupIDSeparator joins the covering group ids into a single field.
const groupIDSeparator = ";"

// Row is one parsed report line.
type Row struct {
	// AssignmentID is the full resource id of the direct assignment. Rows
	// without one are dropped during parsing.
	AssignmentID string
	// AssignmentName is the assignment's name segment, kept for log lines.
	AssignmentName string
	// Scope is the scope the assignment was found at.
	Scope string
	// RoleName is the role's display name, or the raw role definition id
	// when the audit could not resolve one.
	RoleName string
	// PrincipalID is the user's object id.
	PrincipalID string
	// PrincipalName is the user's display name, or the object id.
	PrincipalName string
	// CoveringGroupIDs are the groups that made the assignment redundant.
	CoveringGroupIDs []string
	// CoveringScope is the scope the covering assignments were found at.
	CoveringScope string
}

// Write renders candidates as CSV, header row first.
func Write(w io.Writer, candidates []audit.Candidate) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(header); err != nil {
		return trace.Wrap(err)
	}
	for _, candidate := range candidates {
		row := []string{
			candidate.Assignment.ID,
			candidate.Assignment.Name,
			candidate.Assignment.Scope,
			candidate.RoleName,
			candidate.Assignment.PrincipalID,
			candidate.PrincipalName,
			strings.Join(candidate.CoveringGroupIDs, groupIDSeparator),
			candidate.CoveringScope,
		}
		if err := cw.Write(row); err != nil {
			return trace.Wrap(err)
		}
	}
	cw.Flush()
	return trace.Wrap(cw.Error())
}

// Read parses a report written by [Write]. Rows with an empty assignment id
// cannot be acted on and are skipped with a warning.
func Read(ctx context.Context, logger *slog.Logger, r io.Reader) ([]Row, error) {
	if logger == nil {
		logger = slog.Default()
	}
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = len(header)
	records, err := cr.ReadAll()
	if err != nil {
		return nil, trace.Wrap(err)
	}
	if len(records) == 0 {
		return nil, trace.BadParameter("report has no header row")
	}
	if !slices.Equal(records[0], header) {
		return nil, trace.BadParameter("unexpected report header %v", records[0])
	}
	rows := make([]Row, 0, len(records)-1)
	for _, record := range records[1:] {
		if record[0] == "" {
			logger.WarnContext(ctx, "Skipping report row with no assignment id",
				"assignment_name", record[1],
				"scope", record[2],
			)
			continue
		}
		row := Row{
			AssignmentID:   record[0],
			AssignmentName: record[1],
			Scope:          record[2],
			RoleName:       record[3],
			PrincipalID:    record[4],
			PrincipalName:  record[5],
			CoveringScope:  record[7],
		}
		if record[6] != "" {
			row.CoveringGroupIDs = strings.Split(record[6], groupIDSeparator)
		}
		rows = append(rows, row)
	}
	return rows, nil
}
