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

package audit

import (
	"context"
	"log/slog"
	"strings"

	"github.com/Azure/azure-sdk-for-go/sdk/resourcemanager/authorization/armauthorization/v2"
	"github.com/gravitational/trace"
)

// PrincipalKind classifies the principal a role assignment binds.
type PrincipalKind string

const (
	// PrincipalUser is a directory user.
	PrincipalUser PrincipalKind = "User"
	// PrincipalGroup is a directory group.
	PrincipalGroup PrincipalKind = "Group"
	// PrincipalServicePrincipal is an application identity.
	PrincipalServicePrincipal PrincipalKind = "ServicePrincipal"
	// PrincipalUnknown is any principal the assignment record does not
	// declare a supported type for.
	PrincipalUnknown PrincipalKind = "Unknown"
)

// Assignment is one role assignment, reduced to the fields the audit needs.
// Immutable once constructed.
type Assignment struct {
	// ID is the fully qualified assignment resource id. It is the handle
	// deletion uses.
	ID string
	// Name is the assignment name, a GUID.
	Name string
	// Scope is the scope the role is granted at, with original casing.
	Scope string
	// RoleDefinitionID is the granted role, as returned by ARM: either a
	// bare GUID or a full resource id ending in the GUID.
	RoleDefinitionID string
	// PrincipalID is the directory object id of the grantee.
	PrincipalID string
	// PrincipalKind classifies the grantee.
	PrincipalKind PrincipalKind
}

// NewAssignment converts an ARM role assignment record. Records missing a
// field the redundancy decision depends on are rejected.
func NewAssignment(record *armauthorization.RoleAssignment) (Assignment, error) {
	if record == nil || record.Properties == nil {
		return Assignment{}, trace.BadParameter("role assignment record has no properties")
	}
	a := Assignment{
		ID:            stringVal(record.ID),
		Name:          stringVal(record.Name),
		Scope:         stringVal(record.Properties.Scope),
		PrincipalID:   stringVal(record.Properties.PrincipalID),
		PrincipalKind: principalKind(record.Properties.PrincipalType),

		RoleDefinitionID: stringVal(record.Properties.RoleDefinitionID),
	}
	switch {
	case a.ID == "":
		return Assignment{}, trace.BadParameter("role assignment record has no id")
	case a.Scope == "":
		return Assignment{}, trace.BadParameter("role assignment %v has no scope", a.ID)
	case a.RoleDefinitionID == "":
		return Assignment{}, trace.BadParameter("role assignment %v has no role definition", a.ID)
	case a.PrincipalID == "":
		return Assignment{}, trace.BadParameter("role assignment %v has no principal", a.ID)
	}
	return a, nil
}

// NewAssignments converts a batch of ARM role assignment records. Records
// the audit cannot evaluate are dropped with a warning.
func NewAssignments(ctx context.Context, logger *slog.Logger, records []*armauthorization.RoleAssignment) []Assignment {
	assignments := make([]Assignment, 0, len(records))
	for _, record := range records {
		assignment, err := NewAssignment(record)
		if err != nil {
			logger.WarnContext(ctx, "Skipping malformed role assignment record", "error", err)
			continue
		}
		assignments = append(assignments, assignment)
	}
	return assignments
}

// NormalizeRoleDefinitionID reduces a role definition id to its trailing path
// segment, lowercased. A bare GUID and a full resource id ending in that GUID
// normalize to the same key.
func NormalizeRoleDefinitionID(id string) string {
	trimmed := strings.TrimRight(id, "/")
	if i := strings.LastIndex(trimmed, "/"); i >= 0 {
		trimmed = trimmed[i+1:]
	}
	return strings.ToLower(trimmed)
}

func principalKind(t *armauthorization.PrincipalType) PrincipalKind {
	if t == nil {
		return PrincipalUnknown
	}
	switch *t {
	case armauthorization.PrincipalTypeUser:
		return PrincipalUser
	case armauthorization.PrincipalTypeGroup:
		return PrincipalGroup
	case armauthorization.PrincipalTypeServicePrincipal:
		return PrincipalServicePrincipal
	default:
		return PrincipalUnknown
	}
}

func stringVal(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
