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

// Package azure wraps the ARM authorization and subscription APIs behind
// narrow clients. Callers get plain slices and trace errors; paging and SDK
// error shapes stay in here.
package azure

import (
	"context"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore/runtime"
	"github.com/Azure/azure-sdk-for-go/sdk/resourcemanager/authorization/armauthorization/v2"
	"github.com/Azure/azure-sdk-for-go/sdk/resourcemanager/subscription/armsubscription"
)

// RoleAssignmentsAPI is an interface for armauthorization.RoleAssignmentsClient so that the client can be mocked.
type RoleAssignmentsAPI interface {
	NewListForScopePager(scope string, opts *armauthorization.RoleAssignmentsClientListForScopeOptions) *runtime.Pager[armauthorization.RoleAssignmentsClientListForScopeResponse]
	DeleteByID(ctx context.Context, roleAssignmentID string, opts *armauthorization.RoleAssignmentsClientDeleteByIDOptions) (armauthorization.RoleAssignmentsClientDeleteByIDResponse, error)
}

var _ RoleAssignmentsAPI = (*armauthorization.RoleAssignmentsClient)(nil)

// RoleDefinitionsAPI is an interface for armauthorization.RoleDefinitionsClient so that the client can be mocked.
type RoleDefinitionsAPI interface {
	GetByID(ctx context.Context, roleDefinitionID string, opts *armauthorization.RoleDefinitionsClientGetByIDOptions) (armauthorization.RoleDefinitionsClientGetByIDResponse, error)
}

var _ RoleDefinitionsAPI = (*armauthorization.RoleDefinitionsClient)(nil)

// SubscriptionsAPI provides an interface for armsubscription.SubscriptionsClient so that the client can be mocked.
type SubscriptionsAPI interface {
	NewListPager(opts *armsubscription.SubscriptionsClientListOptions) *runtime.Pager[armsubscription.SubscriptionsClientListResponse]
}

var _ SubscriptionsAPI = (*armsubscription.SubscriptionsClient)(nil)
