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

// Package msgraphtest provides a fake Graph API server for tests.
package msgraphtest

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/policy"
	"github.com/google/uuid"
)

// TokenProvider implements [msgraph.AzureTokenProvider].
type TokenProvider struct {
	mu    sync.Mutex
	Token string
}

// GetToken returns a token to be used in msgraph requests.
func (t *TokenProvider) GetToken(ctx context.Context, opts policy.TokenRequestOptions) (azcore.AccessToken, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.Token == "" {
		t.Token = uuid.NewString()
	}

	return azcore.AccessToken{
		Token: t.Token,
	}, nil
}

// ClearToken deletes the token value.
func (t *TokenProvider) ClearToken() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.Token = ""
}

// InspectToken returns the current token without generating a new one if the
// current token is empty. Useful in tests that need to verify that the
// client requested a new token after it was cleared.
func (t *TokenProvider) InspectToken() string {
	t.mu.Lock()
	defer t.mu.Unlock()

	return t.Token
}

// Payloads defines the directory data served by the fake server. Object ids
// missing from a map produce Graph-style 404 responses.
type Payloads struct {
	// Users and Groups map object ids to the single-object payloads
	// served for direct lookups.
	Users, Groups map[string]string
	// GroupMembers maps a group id to the array payload served as its
	// direct member listing.
	GroupMembers map[string]string
	// TransitiveGroups maps a user id to the array payload served as its
	// transitive group expansion.
	TransitiveGroups map[string]string
}

// DefaultPayload creates the default directory: three users nested through
// three groups, with a device mixed into the member listings.
func DefaultPayload() Payloads {
	return Payloads{
		Users: map[string]string{
			"alice": PayloadUserAlice,
			"bob":   PayloadUserBob,
			"carol": PayloadUserCarol,
		},
		Groups: map[string]string{
			"group1": PayloadGroup1,
			"group2": PayloadGroup2,
			"group3": PayloadGroup3,
		},
		GroupMembers: map[string]string{
			"group1": PayloadGroup1Members,
			"group2": PayloadGroup2Members,
			"group3": PayloadGroup3Members,
		},
		TransitiveGroups: map[string]string{
			"alice": PayloadAliceTransitiveGroups,
			"bob":   PayloadBobTransitiveGroups,
			"carol": PayloadCarolTransitiveGroups,
		},
	}
}

// Server defines the fake server.
type Server struct {
	TokenProvider TokenProvider
	Payloads      Payloads
	TLSServer     *httptest.Server
	HTTPClient    *http.Client
}

// ServerOption is a custom opt for [NewServer].
type ServerOption func(*Server)

// WithPayloads sets custom response payloads.
func WithPayloads(p Payloads) ServerOption {
	return func(s *Server) {
		s.Payloads = p
	}
}

// NewServer creates a new fake server.
func NewServer(opts ...ServerOption) *Server {
	s := &Server{
		TokenProvider: TokenProvider{},
		Payloads:      DefaultPayload(),
	}
	for _, opt := range opts {
		opt(s)
	}

	tlsServer := httptest.NewTLSServer(s.Handler())
	s.TLSServer = tlsServer

	httpClient := tlsServer.Client()
	httpClient.Transport = &http.Transport{
		TLSClientConfig: &tls.Config{
			InsecureSkipVerify: true,
		},
		// Ignore the address and always direct all requests to the fake API server.
		// This allows tests to connect to the fake API server despite the official
		// client trying to reach the official endpoints.
		DialContext: func(ctx context.Context, _, _ string) (net.Conn, error) {
			return net.Dial("tcp", tlsServer.Listener.Addr().String())
		},
	}
	s.HTTPClient = httpClient

	return s
}

// Handler routes the directory endpoints used by the audit.
func (s *Server) Handler() http.Handler {
	r := http.NewServeMux()

	r.HandleFunc("GET /v1.0/users/{userid}", s.handleGetUser)
	r.HandleFunc("GET /v1.0/users/{userid}/transitiveMemberOf/microsoft.graph.group", s.handleTransitiveGroups)
	r.HandleFunc("GET /v1.0/groups/{groupid}", s.handleGetGroup)
	r.HandleFunc("GET /v1.0/groups/{groupid}/members", s.handleListGroupMembers)

	return r
}

func (s *Server) handleGetUser(w http.ResponseWriter, r *http.Request) {
	userID := r.PathValue("userid")
	payload, ok := s.Payloads.Users[userID]
	if !ok {
		writeNotFound(w, userID)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(payload))
}

func (s *Server) handleGetGroup(w http.ResponseWriter, r *http.Request) {
	groupID := r.PathValue("groupid")
	payload, ok := s.Payloads.Groups[groupID]
	if !ok {
		writeNotFound(w, groupID)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(payload))
}

func (s *Server) handleListGroupMembers(w http.ResponseWriter, r *http.Request) {
	groupID := r.PathValue("groupid")
	payload, ok := s.Payloads.GroupMembers[groupID]
	if !ok {
		writeNotFound(w, groupID)
		return
	}
	serveCollection(w, r, payload)
}

func (s *Server) handleTransitiveGroups(w http.ResponseWriter, r *http.Request) {
	userID := r.PathValue("userid")
	payload, ok := s.Payloads.TransitiveGroups[userID]
	if !ok {
		writeNotFound(w, userID)
		return
	}
	serveCollection(w, r, payload)
}

func serveCollection(w http.ResponseWriter, r *http.Request, payload string) {
	w.Header().Set("Content-Type", "application/json")
	var source []json.RawMessage
	if err := json.Unmarshal([]byte(payload), &source); err != nil {
		http.Error(w, fmt.Sprintf("Failed to unmarshal payload: %s", err.Error()), http.StatusInternalServerError)
		return
	}
	Paginator(w, r, source)
}

// writeNotFound responds the way Graph reports a missing directory object.
func writeNotFound(w http.ResponseWriter, id string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusNotFound)
	fmt.Fprintf(w, `{"error": {"code": "Request_ResourceNotFound", "message": "Resource '%s' does not exist or one of its queried reference-property objects are not present."}}`, id)
}

// Paginator emulates the Graph API's pagination with the given static set of objects.
func Paginator(w http.ResponseWriter, r *http.Request, values []json.RawMessage) {
	top, err := strconv.Atoi(r.URL.Query().Get("$top"))
	if err != nil {
		http.Error(w, "Expected to get $top parameter", http.StatusInternalServerError)
		return
	}

	skip, _ := strconv.Atoi(r.URL.Query().Get("$skipToken"))

	from, to := skip, skip+top
	if to > len(values) {
		to = len(values)
	}
	page := values[from:to]

	nextLink := *r.URL
	nextLink.Host = r.Host
	nextLink.Scheme = "https"
	vals := nextLink.Query()
	// $skipToken is an opaque value in MS Graph, for testing purposes we use a simple offset.
	vals.Set("$skipToken", strconv.Itoa(top+skip))
	nextLink.RawQuery = vals.Encode()

	response := map[string]any{
		"value": page,
	}

	if skip+top < len(values) {
		response["@odata.nextLink"] = nextLink.String()
	}

	if err := json.NewEncoder(w).Encode(response); err != nil {
		http.Error(w, fmt.Sprintf("Failed to marshal payload: %s", err.Error()), http.StatusInternalServerError)
	}
}
