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

package msgraphtest

// The default directory nests group3 inside group2 inside group1:
//
//	group1: alice, device1, group2
//	group2: bob, group3
//	group3: carol

// PayloadUserAlice is a single-user response.
const PayloadUserAlice = `{
	"id": "alice",
	"displayName": "Alice Alison",
	"userPrincipalName": "alice@example.com",
	"mail": "alice@example.com"
}`

// PayloadUserBob is a single-user response.
const PayloadUserBob = `{
	"id": "bob",
	"displayName": "Bob Bobert",
	"userPrincipalName": "bob@example.com",
	"mail": "bob@example.com"
}`

// PayloadUserCarol is a single-user response.
const PayloadUserCarol = `{
	"id": "carol",
	"displayName": "Carol C",
	"userPrincipalName": "carol@example.com",
	"mail": "carol@example.com"
}`

// PayloadGroup1 is a single-group response.
const PayloadGroup1 = `{
	"id": "group1",
	"displayName": "Platform Admins"
}`

// PayloadGroup2 is a single-group response.
const PayloadGroup2 = `{
	"id": "group2",
	"displayName": "Engineering"
}`

// PayloadGroup3 is a single-group response.
const PayloadGroup3 = `{
	"id": "group3",
	"displayName": "Site Reliability"
}`

// PayloadGroup1Members lists a user, a device and a nested group.
const PayloadGroup1Members = `[
	{
		"@odata.type": "#microsoft.graph.user",
		"id": "alice",
		"displayName": "Alice Alison",
		"userPrincipalName": "alice@example.com"
	},
	{
		"@odata.type": "#microsoft.graph.device",
		"id": "device1",
		"displayName": "Build Kiosk"
	},
	{
		"@odata.type": "#microsoft.graph.group",
		"id": "group2",
		"displayName": "Engineering"
	}
]`

// PayloadGroup2Members lists a user and a nested group.
const PayloadGroup2Members = `[
	{
		"@odata.type": "#microsoft.graph.user",
		"id": "bob",
		"displayName": "Bob Bobert",
		"userPrincipalName": "bob@example.com"
	},
	{
		"@odata.type": "#microsoft.graph.group",
		"id": "group3",
		"displayName": "Site Reliability"
	}
]`

// PayloadGroup3Members lists a single user.
const PayloadGroup3Members = `[
	{
		"@odata.type": "#microsoft.graph.user",
		"id": "carol",
		"displayName": "Carol C",
		"userPrincipalName": "carol@example.com"
	}
]`

// PayloadAliceTransitiveGroups expands alice's group memberships.
const PayloadAliceTransitiveGroups = `[
	{
		"id": "group1",
		"displayName": "Platform Admins"
	}
]`

// PayloadBobTransitiveGroups expands bob's group memberships.
const PayloadBobTransitiveGroups = `[
	{
		"id": "group2",
		"displayName": "Engineering"
	},
	{
		"id": "group1",
		"displayName": "Platform Admins"
	}
]`

// PayloadCarolTransitiveGroups expands carol's group memberships.
const PayloadCarolTransitiveGroups = `[
	{
		"id": "group3",
		"displayName": "Site Reliability"
	},
	{
		"id": "group2",
		"displayName": "Engineering"
	},
	{
		"id": "group1",
		"displayName": "Platform Admins"
	}
]`
