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
	"net/http"
	"strings"

	"github.com/gravitational/trace"
)

type graphErrorResponse struct {
	Error *GraphError `json:"error,omitempty"`
}

// GraphError is the error payload returned by the Graph API.
type GraphError struct {
	Code       string       `json:"code,omitempty"`
	Message    string       `json:"message,omitempty"`
	InnerError *GraphError  `json:"innerError,omitempty"`
	Details    []GraphError `json:"details,omitempty"`
	// StatusCode is the HTTP status of the response that carried the error.
	StatusCode int `json:"-"`
}

func (g *GraphError) Error() string {
	var parts []string
	if g.Code != "" {
		parts = append(parts, strings.TrimPrefix(g.Code, "Request_"))
	}

	if g.Message != "" {
		parts = append(parts, g.Message)
	}

	return strings.Join(parts, ": ")
}

// readError decodes a Graph error payload. It returns nil when the payload
// does not carry an error object.
func readError(body []byte, statusCode int) (*GraphError, error) {
	var errResponse graphErrorResponse
	if err := json.Unmarshal(body, &errResponse); err != nil {
		return nil, trace.Wrap(err)
	}
	if errResponse.Error == nil {
		return nil, nil
	}
	errResponse.Error.StatusCode = statusCode
	return errResponse.Error, nil
}

// convertError maps an HTTP error response to a trace error so that callers
// can branch on the failure kind, [trace.NotFound] for deleted directory
// objects in particular.
func convertError(statusCode int, status string, body []byte) error {
	graphError, err := readError(body, statusCode)
	if err != nil || graphError == nil {
		return statusError(statusCode, "request failed with status %v", status)
	}
	return statusError(statusCode, "%v", graphError)
}

func statusError(statusCode int, format string, args ...any) error {
	switch statusCode {
	case http.StatusNotFound:
		return trace.NotFound(format, args...)
	case http.StatusUnauthorized, http.StatusForbidden:
		return trace.AccessDenied(format, args...)
	case http.StatusBadRequest:
		return trace.BadParameter(format, args...)
	default:
		return trace.Errorf(format, args...)
	}
}
