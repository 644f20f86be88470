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

// Package msgraph implements a thin client for the Microsoft Graph API
// covering the directory read operations used by the audit: single user and
// group lookups, direct group member listings and transitive group
// expansion. It handles pagination and throttling retries internally and
// makes no attempt at being a complete SDK.
package msgraph

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"maps"
	"net/http"
	"net/url"
	"path"
	"strconv"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/policy"
	"github.com/gravitational/trace"
	"github.com/jonboulle/clockwork"
)

// graphVersion is the API version used by all requests.
const graphVersion = "v1.0"

// defaultGraphEndpoint is the Graph endpoint of the Azure public cloud.
const defaultGraphEndpoint = "https://graph.microsoft.com"

// supportedGraphEndpoints lists the Graph endpoints of the public cloud and
// of the national cloud deployments.
var supportedGraphEndpoints = map[string]struct{}{
	defaultGraphEndpoint:                      {},
	"https://graph.microsoft.us":              {},
	"https://dod-graph.microsoft.us":          {},
	"https://microsoftgraph.chinacloudapi.cn": {},
}

// graphNamespaceGroups casts a directory object collection to groups when
// appended to its URL.
const graphNamespaceGroups = "microsoft.graph.group"

const (
	// defaultPageSize is the default $top value for collection requests.
	defaultPageSize = 500
	// maxAttempts bounds the tries for a single request, the first one
	// included.
	maxAttempts = 5
)

var graphScopes = []string{"https://graph.microsoft.com/.default"}

// AzureTokenProvider defines the subset of [azcore.TokenCredential] used to
// authorize Graph requests.
type AzureTokenProvider interface {
	GetToken(ctx context.Context, opts policy.TokenRequestOptions) (azcore.AccessToken, error)
}

// RetryConfig shapes the wait between retries of throttled requests when the
// server does not dictate one via Retry-After.
type RetryConfig struct {
	// First is the wait before the first retry.
	First time.Duration
	// Step is added to the wait on each subsequent retry.
	Step time.Duration
	// Max caps the wait between retries.
	Max time.Duration
}

func (r *RetryConfig) duration(attempt int) time.Duration {
	return min(r.First+time.Duration(attempt)*r.Step, r.Max)
}

// Config configures a [Client].
type Config struct {
	// TokenProvider provides tokens for Graph requests.
	// [azcore.TokenCredential] implementations satisfy it.
	TokenProvider AzureTokenProvider
	// HTTPClient is the HTTP client to use, defaults to [http.DefaultClient].
	HTTPClient *http.Client
	// Clock drives the waits between retries, defaults to the real clock.
	Clock clockwork.Clock
	// RetryConfig shapes the retry backoff.
	RetryConfig *RetryConfig
	// PageSize is the number of objects requested per collection page.
	PageSize int
	// GraphEndpoint is the Graph API base URL, defaults to the public cloud
	// endpoint. National cloud deployments must set it explicitly.
	GraphEndpoint string
	// Logger is the logger, defaults to [slog.Default].
	Logger *slog.Logger
}

// SetDefaults fills in the optional fields.
func (cfg *Config) SetDefaults() {
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = http.DefaultClient
	}
	if cfg.Clock == nil {
		cfg.Clock = clockwork.NewRealClock()
	}
	if cfg.RetryConfig == nil {
		cfg.RetryConfig = &RetryConfig{
			First: 1 * time.Second,
			Step:  1 * time.Second,
			Max:   30 * time.Second,
		}
	}
	if cfg.PageSize <= 0 {
		cfg.PageSize = defaultPageSize
	}
	if cfg.GraphEndpoint == "" {
		cfg.GraphEndpoint = defaultGraphEndpoint
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
}

// Validate checks the required fields.
func (cfg *Config) Validate() error {
	if cfg.TokenProvider == nil {
		return trace.BadParameter("missing TokenProvider")
	}
	if _, ok := supportedGraphEndpoints[cfg.GraphEndpoint]; !ok {
		return trace.BadParameter("unsupported Graph endpoint %q", cfg.GraphEndpoint)
	}
	return nil
}

// Client is a Graph API client.
type Client struct {
	httpClient    *http.Client
	tokenProvider AzureTokenProvider
	clock         clockwork.Clock
	retryConfig   RetryConfig
	pageSize      int
	baseURL       *url.URL
	logger        *slog.Logger
}

// NewClient returns a client for the given config.
func NewClient(cfg Config) (*Client, error) {
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, trace.Wrap(err)
	}
	uri, err := url.Parse(cfg.GraphEndpoint)
	if err != nil {
		return nil, trace.Wrap(err)
	}
	return &Client{
		httpClient:    cfg.HTTPClient,
		tokenProvider: cfg.TokenProvider,
		clock:         cfg.Clock,
		retryConfig:   *cfg.RetryConfig,
		pageSize:      cfg.PageSize,
		baseURL:       uri.JoinPath(graphVersion),
		logger:        cfg.Logger,
	}, nil
}

// request performs a single Graph request, retrying throttled and
// temporarily failed attempts. The token is re-acquired before every attempt
// since it may expire between retries.
func (c *Client) request(ctx context.Context, method string, uri string, header http.Header) (*http.Response, error) {
	var wait time.Duration
	var lastErr error
	for attempt := 0; attempt < maxAttempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, trace.Wrap(ctx.Err())
			case <-c.clock.After(wait):
			}
		}

		req, err := http.NewRequestWithContext(ctx, method, uri, nil)
		if err != nil {
			return nil, trace.Wrap(err)
		}
		maps.Copy(req.Header, header)
		token, err := c.tokenProvider.GetToken(ctx, policy.TokenRequestOptions{Scopes: graphScopes})
		if err != nil {
			return nil, trace.Wrap(err, "failed to get azure authentication token")
		}
		req.Header.Set("Authorization", "Bearer "+token.Token)

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return nil, trace.Wrap(err) // hard I/O error, bail
		}
		if resp.StatusCode >= http.StatusOK && resp.StatusCode < http.StatusBadRequest {
			return resp, nil
		}

		body, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			return nil, trace.Wrap(err)
		}
		lastErr = convertError(resp.StatusCode, resp.Status, body)
		if !isRetriable(resp.StatusCode) {
			return nil, trace.Wrap(lastErr)
		}

		wait = c.retryConfig.duration(attempt)
		if after := retryAfter(resp.Header); after > 0 {
			wait = after
		}
		c.logger.DebugContext(ctx, "Retrying throttled Graph request",
			"status", resp.Status, "wait", wait)
	}
	return nil, trace.Wrap(lastErr)
}

// retryAfter parses the Retry-After header, zero when absent or unparsable.
// Graph uses the delay-seconds form.
func retryAfter(header http.Header) time.Duration {
	seconds, err := strconv.Atoi(header.Get("Retry-After"))
	if err != nil || seconds < 0 {
		return 0
	}
	return time.Duration(seconds) * time.Second
}

func isRetriable(code int) bool {
	return code == http.StatusTooManyRequests || code == http.StatusServiceUnavailable
}

// iterate walks the pages of a collection endpoint, invoking f with the raw
// value array of each page until f returns false or pages run out.
func (c *Client) iterate(ctx context.Context, endpoint string, query url.Values, header http.Header, f func(json.RawMessage) bool) error {
	uri := *c.baseURL
	uri.Path = path.Join(uri.Path, endpoint)
	if query == nil {
		query = url.Values{}
	}
	query.Set("$top", strconv.Itoa(c.pageSize))
	uri.RawQuery = query.Encode()

	uriString := uri.String()
	for uriString != "" {
		resp, err := c.request(ctx, http.MethodGet, uriString, header)
		if err != nil {
			return trace.Wrap(err)
		}
		var page oDataPage
		err = json.NewDecoder(resp.Body).Decode(&page)
		resp.Body.Close()
		if err != nil {
			return trace.Wrap(err)
		}
		uriString = page.NextLink
		if !f(page.Value) {
			break
		}
	}
	return nil
}

// iterateSimple implements pagination for object lists which need no
// per-entry decoding logic.
func iterateSimple[T any](c *Client, ctx context.Context, endpoint string, query url.Values, header http.Header, f func(*T) bool) error {
	var err error
	itErr := c.iterate(ctx, endpoint, query, header, func(msg json.RawMessage) bool {
		var page []T
		if err = json.Unmarshal(msg, &page); err != nil {
			return false
		}
		for _, item := range page {
			if !f(&item) {
				return false
			}
		}
		return true
	})
	if err != nil {
		return trace.Wrap(err)
	}
	return trace.Wrap(itErr)
}

// getObject fetches and decodes a single object.
func getObject[T any](c *Client, ctx context.Context, endpoint string, query url.Values) (*T, error) {
	uri := *c.baseURL
	uri.Path = path.Join(uri.Path, endpoint)
	if len(query) > 0 {
		uri.RawQuery = query.Encode()
	}
	resp, err := c.request(ctx, http.MethodGet, uri.String(), nil)
	if err != nil {
		return nil, trace.Wrap(err)
	}
	defer resp.Body.Close()
	var out T
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, trace.Wrap(err)
	}
	return &out, nil
}

// GetUser fetches a user by object id.
func (c *Client) GetUser(ctx context.Context, userID string) (*User, error) {
	user, err := getObject[User](c, ctx, path.Join("users", userID), url.Values{
		"$select": {"id,displayName,userPrincipalName,mail"},
	})
	return user, trace.Wrap(err)
}

// GetGroup fetches a group by object id.
func (c *Client) GetGroup(ctx context.Context, groupID string) (*Group, error) {
	group, err := getObject[Group](c, ctx, path.Join("groups", groupID), url.Values{
		"$select": {"id,displayName"},
	})
	return group, trace.Wrap(err)
}

// IterateGroupMembers lists the direct members of a group. Members of
// unsupported types are skipped. Iteration stops early when f returns false.
func (c *Client) IterateGroupMembers(ctx context.Context, groupID string, f func(GroupMember) bool) error {
	var err error
	itErr := c.iterate(ctx, path.Join("groups", groupID, "members"), nil, nil, func(msg json.RawMessage) bool {
		var page []json.RawMessage
		if err = json.Unmarshal(msg, &page); err != nil {
			return false
		}
		for _, entry := range page {
			var member GroupMember
			member, err = decodeGroupMember(entry)
			if err != nil {
				var unsupported *UnsupportedGroupMember
				if errors.As(err, &unsupported) {
					c.logger.DebugContext(ctx, "Skipping unsupported group member", "type", unsupported.Type)
					err = nil // reset so that it is not returned if this was the last entry
					continue
				}
				return false
			}
			if !f(member) {
				return false
			}
		}
		return true
	})
	if err != nil {
		return trace.Wrap(err)
	}
	return trace.Wrap(itErr)
}

// IterateUserTransitiveGroups lists the groups a user belongs to directly or
// through nested group membership. Iteration stops early when f returns
// false.
func (c *Client) IterateUserTransitiveGroups(ctx context.Context, userID string, f func(*Group) bool) error {
	endpoint := path.Join("users", userID, "transitiveMemberOf", graphNamespaceGroups)
	// Casting transitiveMemberOf to a concrete type counts as an advanced
	// directory query: it requires the eventual consistency header and the
	// $count parameter.
	query := url.Values{"$count": {"true"}}
	header := http.Header{}
	header.Set("ConsistencyLevel", "eventual")
	return trace.Wrap(iterateSimple(c, ctx, endpoint, query, header, f))
}
