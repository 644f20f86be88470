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

package msgraph

import (
	"encoding/json"
	"fmt"

	"github.com/gravitational/trace"
)

// DirectoryObject is the base type shared by all directory entities.
type DirectoryObject struct {
	ID          *string `json:"id,omitempty"`
	DisplayName *string `json:"displayName,omitempty"`
}

// GetID returns the object id, or nil when unset.
func (o *DirectoryObject) GetID() *string { return o.ID }

// User is a directory user.
type User struct {
	DirectoryObject

	Mail              *string `json:"mail,omitempty"`
	UserPrincipalName *string `json:"userPrincipalName,omitempty"`
	GivenName         *string `json:"givenName,omitempty"`
	Surname           *string `json:"surname,omitempty"`
}

func (u *User) isGroupMember() {}

// Group is a directory group.
type Group struct {
	DirectoryObject
}

func (g *Group) isGroupMember() {}

// GroupMember is implemented by the directory object types which may appear
// as members of a group.
type GroupMember interface {
	GetID() *string
	isGroupMember()
}

const (
	odataTypeUser  = "#microsoft.graph.user"
	odataTypeGroup = "#microsoft.graph.group"
)

// UnsupportedGroupMember is returned when a group member is of a type this
// package does not model, e.g. a device or a service principal.
type UnsupportedGroupMember struct {
	Type string
}

func (u *UnsupportedGroupMember) Error() string {
	return fmt.Sprintf("unsupported group member type: %q", u.Type)
}

// decodeGroupMember decodes a member entry based on its @odata.type
// annotation.
func decodeGroupMember(msg json.RawMessage) (GroupMember, error) {
	var header struct {
		Type string `json:"@odata.type"`
	}
	if err := json.Unmarshal(msg, &header); err != nil {
		return nil, trace.Wrap(err)
	}

	var err error
	var member GroupMember
	switch header.Type {
	case odataTypeUser:
		var user *User
		err = json.Unmarshal(msg, &user)
		member = user
	case odataTypeGroup:
		var group *Group
		err = json.Unmarshal(msg, &group)
		member = group
	default:
		return nil, trace.Wrap(&UnsupportedGroupMember{Type: header.Type})
	}

	return member, trace.Wrap(err)
}
