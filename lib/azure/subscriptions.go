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
	"github.com/Azure/azure-sdk-for-go/sdk/resourcemanager/subscription/armsubscription"
	"github.com/gravitational/trace"
)

// SubscriptionIDsClient wraps the Azure SubscriptionsAPI to fetch subscription IDs
type SubscriptionIDsClient struct {
	api SubscriptionsAPI
}

// NewSubscriptionIDsClient creates a new client from credentials. Listing
// subscriptions is a tenant-level call, so no subscription ID is needed.
func NewSubscriptionIDsClient(cred azcore.TokenCredential, options *arm.ClientOptions) (*SubscriptionIDsClient, error) {
	api, err := armsubscription.NewSubscriptionsClient(cred, options)
	if err != nil {
		return nil, trace.Wrap(err)
	}
	return NewSubscriptionIDsClientByAPI(api), nil
}

// NewSubscriptionIDsClientByAPI creates a new client from an ARM API client.
func NewSubscriptionIDsClientByAPI(api SubscriptionsAPI) *SubscriptionIDsClient {
	return &SubscriptionIDsClient{api: api}
}

// ListSubscriptionIDs lists the IDs of all subscriptions visible to the
// credential.
func (c *SubscriptionIDsClient) ListSubscriptionIDs(ctx context.Context) ([]string, error) {
	pager := c.api.NewListPager(nil)
	subIDs := []string{}
	for pager.More() {
		res, err := pager.NextPage(ctx)
		if err != nil {
			return nil, trace.Wrap(ConvertResponseError(err))
		}
		for _, v := range res.Value {
			if v != nil && v.SubscriptionID != nil {
				subIDs = append(subIDs, *v.SubscriptionID)
			}
		}
	}
	if len(subIDs) == 0 {
		return nil, trace.NotFound("no azure subscriptions")
	}
	return subIDs, nil
}
