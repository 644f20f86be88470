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
	"github.com/gravitational/azrbac/lib/scopes"
)

// scopeRoleKey keys group assignments by where and what they grant. Both
// fields are normalized.
type scopeRoleKey struct {
	scope string
	role  string
}

// Index is one assignment snapshot partitioned for the redundancy walk.
// Immutable after construction.
type Index struct {
	// Users holds the direct user assignments in input order.
	Users []Assignment

	groupsByScopeRole map[scopeRoleKey][]Assignment
}

// BuildIndex partitions assignments by principal kind: user assignments keep
// their input order, group assignments become a lookup table keyed by
// (normalized scope, normalized role id). Other principal kinds are excluded
// from both sides, they are out of scope for redundancy analysis.
func BuildIndex(assignments []Assignment) *Index {
	index := &Index{
		groupsByScopeRole: make(map[scopeRoleKey][]Assignment),
	}
	for _, a := range assignments {
		switch a.PrincipalKind {
		case PrincipalUser:
			index.Users = append(index.Users, a)
		case PrincipalGroup:
			k := scopeRoleKey{
				scope: scopes.Normalize(a.Scope),
				role:  NormalizeRoleDefinitionID(a.RoleDefinitionID),
			}
			index.groupsByScopeRole[k] = append(index.groupsByScopeRole[k], a)
		}
	}
	return index
}

// GroupAssignments returns the group assignments granting the given role at
// the given scope. Both arguments must already be normalized.
func (i *Index) GroupAssignments(scope, role string) []Assignment {
	return i.groupsByScopeRole[scopeRoleKey{scope: scope, role: role}]
}
