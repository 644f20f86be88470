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
	"net/http"
	"testing"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/runtime"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/to"
	"github.com/Azure/azure-sdk-for-go/sdk/resourcemanager/subscription/armsubscription"
	"github.com/gravitational/trace"
	"github.com/stretchr/testify/require"
)

type fakeSubscriptionsAPI struct {
	pages   [][]*armsubscription.Subscription
	pageErr error
}

func (f *fakeSubscriptionsAPI) NewListPager(opts *armsubscription.SubscriptionsClientListOptions) *runtime.Pager[armsubscription.SubscriptionsClientListResponse] {
	next := 0
	return runtime.NewPager(runtime.PagingHandler[armsubscription.SubscriptionsClientListResponse]{
		More: func(page armsubscription.SubscriptionsClientListResponse) bool {
			return page.NextLink != nil
		},
		Fetcher: func(ctx context.Context, _ *armsubscription.SubscriptionsClientListResponse) (armsubscription.SubscriptionsClientListResponse, error) {
			if next >= len(f.pages) {
				return armsubscription.SubscriptionsClientListResponse{}, f.pageErr
			}
			page := armsubscription.SubscriptionsClientListResponse{
				ListResult: armsubscription.ListResult{
					Value: f.pages[next],
				},
			}
			next++
			if next < len(f.pages) || f.pageErr != nil {
				page.NextLink = to.Ptr("next")
			}
			return page, nil
		},
	})
}

func TestListSubscriptionIDs(t *testing.T) {
	t.Parallel()

	t.Run("collects ids across pages", func(t *testing.T) {
		api := &fakeSubscriptionsAPI{
			pages: [][]*armsubscription.Subscription{
				{
					{SubscriptionID: to.Ptr("sub1"), DisplayName: to.Ptr("Production")},
					nil,
					{DisplayName: to.Ptr("no id")},
				},
				{
					{SubscriptionID: to.Ptr("sub2"), DisplayName: to.Ptr("Staging")},
				},
			},
		}
		clt := NewSubscriptionIDsClientByAPI(api)

		ids, err := clt.ListSubscriptionIDs(context.Background())
		require.NoError(t, err)
		require.Equal(t, []string{"sub1", "sub2"}, ids)
	})

	t.Run("no subscriptions", func(t *testing.T) {
		clt := NewSubscriptionIDsClientByAPI(&fakeSubscriptionsAPI{})
		_, err := clt.ListSubscriptionIDs(context.Background())
		require.True(t, trace.IsNotFound(err), "unexpected error kind: %v", err)
	})

	t.Run("list failure converts the error", func(t *testing.T) {
		api := &fakeSubscriptionsAPI{
			pageErr: &azcore.ResponseError{StatusCode: http.StatusForbidden, ErrorCode: "AuthorizationFailed"},
		}
		clt := NewSubscriptionIDsClientByAPI(api)

		_, err := clt.ListSubscriptionIDs(context.Background())
		require.True(t, trace.IsAccessDenied(err), "unexpected error kind: %v", err)
	})
}
