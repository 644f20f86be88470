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
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/gravitational/trace"
	"github.com/stretchr/testify/require"
)

func TestConvertResponseError(t *testing.T) {
	t.Parallel()

	tts := []struct {
		name      string
		err       error
		assertion func(error) bool
	}{
		{
			name:      "forbidden",
			err:       &azcore.ResponseError{StatusCode: http.StatusForbidden, ErrorCode: "AuthorizationFailed"},
			assertion: trace.IsAccessDenied,
		},
		{
			name:      "not found",
			err:       &azcore.ResponseError{StatusCode: http.StatusNotFound, ErrorCode: "RoleAssignmentNotFound"},
			assertion: trace.IsNotFound,
		},
		{
			name:      "throttled",
			err:       &azcore.ResponseError{StatusCode: http.StatusTooManyRequests, ErrorCode: "TooManyRequests"},
			assertion: trace.IsLimitExceeded,
		},
		{
			name:      "wrapped response error",
			err:       fmt.Errorf("listing role assignments: %w", &azcore.ResponseError{StatusCode: http.StatusNotFound}),
			assertion: trace.IsNotFound,
		},
	}

	for _, tt := range tts {
		t.Run(tt.name, func(t *testing.T) {
			err := ConvertResponseError(tt.err)
			require.Error(t, err)
			require.True(t, tt.assertion(err), "unexpected error kind: %v", err)
		})
	}

	t.Run("nil", func(t *testing.T) {
		require.NoError(t, ConvertResponseError(nil))
	})

	t.Run("other errors pass through", func(t *testing.T) {
		err := errors.New("dial tcp: connection refused")
		require.Equal(t, err, ConvertResponseError(err))

		serverErr := &azcore.ResponseError{StatusCode: http.StatusInternalServerError}
		require.Equal(t, error(serverErr), ConvertResponseError(serverErr))
	})
}
