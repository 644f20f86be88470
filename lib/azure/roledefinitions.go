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

// RoleDefinitionsClient wraps the Azure role definitions API.
type RoleDefinitionsClient struct {
	api RoleDefinitionsAPI
}

// NewRoleDefinitionsClient creates a new client for a given subscription and
// credentials.
func NewRoleDefinitionsClient(subscriptionID string, cred azcore.TokenCredential, options *arm.ClientOptions) (*RoleDefinitionsClient, error) {
	clientFactory, err := armauthorization.NewClientFactory(subscriptionID, cred, options)
	if err != nil {
		return nil, trace.Wrap(err)
	}
	return NewRoleDefinitionsClientByAPI(clientFactory.NewRoleDefinitionsClient()), nil
}

// NewRoleDefinitionsClientByAPI creates a new client from an ARM API client.
func NewRoleDefinitionsClientByAPI(api RoleDefinitionsAPI) *RoleDefinitionsClient {
	return &RoleDefinitionsClient{api: api}
}

// GetRoleDefinition returns the role definition with the given fully
// qualified resource ID.
func (c *RoleDefinitionsClient) GetRoleDefinition(ctx context.Context, roleDefinitionID string) (*armauthorization.RoleDefinition, error) {
	resp, err := c.api.GetByID(ctx, roleDefinitionID, nil)
	if err != nil {
		return nil, trace.Wrap(ConvertResponseError(err))
	}
	return &resp.RoleDefinition, nil
}
