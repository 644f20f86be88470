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
	"testing"

	"github.com/stretchr/testify/require"
)

func userAssignment(name, principalID, roleID, scope string) Assignment {
	return Assignment{
		ID:               "/subscriptions/sub1/providers/Microsoft.Authorization/roleAssignments/" + name,
		Name:             name,
		Scope:            scope,
		RoleDefinitionID: roleID,
		PrincipalID:      principalID,
		PrincipalKind:    PrincipalUser,
	}
}

func groupAssignment(name, principalID, roleID, scope string) Assignment {
	a := userAssignment(name, principalID, roleID, scope)
	a.PrincipalKind = PrincipalGroup
	return a
}

func TestBuildIndex(t *testing.T) {
	t.Parallel()

	const roleGUID = "acdd72a7-3385-48ef-bd42-f606fba81ae7"
	roleID := "/subscriptions/SUB/providers/Microsoft.Authorization/roleDefinitions/" + roleGUID

	u1 := userAssignment("ra1", "u1", roleID, "/subscriptions/SUB")
	u2 := userAssignment("ra2", "u2", roleGUID, "/subscriptions/SUB/resourceGroups/RG")
	g1 := groupAssignment("ra3", "g1", roleID, "/subscriptions/SUB")
	g2 := groupAssignment("ra4", "g2", roleGUID, "/Subscriptions/sub/")
	sp := userAssignment("ra5", "sp1", roleID, "/subscriptions/SUB")
	sp.PrincipalKind = PrincipalServicePrincipal
	unknown := userAssignment("ra6", "x1", roleID, "/subscriptions/SUB")
	unknown.PrincipalKind = PrincipalUnknown

	index := BuildIndex([]Assignment{u1, g1, sp, u2, g2, unknown})

	// User assignments keep their input order.
	require.Equal(t, []Assignment{u1, u2}, index.Users)

	// Group assignments granting the same role at the same scope land
	// under one key regardless of scope casing, trailing slashes and the
	// role id form.
	covering := index.GroupAssignments("/subscriptions/sub", roleGUID)
	require.Equal(t, []Assignment{g1, g2}, covering)

	require.Empty(t, index.GroupAssignments("/subscriptions/other", roleGUID))
	require.Empty(t, index.GroupAssignments("/subscriptions/sub", "ffffffff-0000-0000-0000-000000000000"))
}
