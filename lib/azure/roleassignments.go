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

package azure

import (
	"context"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/arm"
	"github.com/Azure/azure-sdk-for-go/sdk/resourcemanager/authorization/armauthorization/v2"
	"github.com/gravitational/trace"
)

// RoleAssignmentsClient wraps the Azure role assignments API for a single
// subscription.
type RoleAssignmentsClient struct {
	api RoleAssignmentsAPI
}

// NewRoleAssignmentsClient creates a new client for a given subscription and
// credentials.
func NewRoleAssignmentsClient(subscriptionID string, cred azcore.TokenCredential, options *arm.ClientOptions) (*RoleAssignmentsClient, error) {
	clientFactory, err := armauthorization.NewClientFactory(subscriptionID, cred, options)
	if err != nil {
		return nil, trace.Wrap(err)
	}
	return NewRoleAssignmentsClientByAPI(clientFactory.NewRoleAssignmentsClient()), nil
}

// NewRoleAssignmentsClientByAPI creates a new client from an ARM API client.
func NewRoleAssignmentsClientByAPI(api RoleAssignmentsAPI) *RoleAssignmentsClient {
	return &RoleAssignmentsClient{api: api}
}

// ListRoleAssignments returns all role assignments that apply at the given
// scope, inherited ones included.
func (c *RoleAssignmentsClient) ListRoleAssignments(ctx context.Context, scope string) ([]*armauthorization.RoleAssignment, error) {
	pager := c.api.NewListForScopePager(scope, nil)
	roleAssigns := make([]*armauthorization.RoleAssignment, 0, 128)
	for pager.More() {
		page, err := pager.NextPage(ctx)
		if err != nil {
			return nil, trace.Wrap(ConvertResponseError(err))
		}
		roleAssigns = append(roleAssigns, page.Value...)
	}
	return roleAssigns, nil
}

// DeleteRoleAssignmentByID deletes the role assignment with the given fully
// qualified resource ID.
func (c *RoleAssignmentsClient) DeleteRoleAssignmentByID(ctx context.Context, roleAssignmentID string) error {
	_, err := c.api.DeleteByID(ctx, roleAssignmentID, nil)
	return trace.Wrap(ConvertResponseError(err))
}
