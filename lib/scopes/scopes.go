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

// Package scopes parses Azure RBAC scope paths and derives their ancestor
// chains within a subscription. All of the fragile string splitting lives
// here so that the rest of the code deals in whole scopes only.
package scopes

import (
	"strings"

	"github.com/gravitational/trace"
)

const (
	subscriptionsSegment  = "subscriptions"
	resourceGroupsSegment = "resourceGroups"
)

// Ancestors returns the strict ancestors of scope ordered most specific
// first. For a scope below a resource group the result is the resource group
// scope followed by the subscription scope; for a resource group scope it is
// the subscription scope alone; for the subscription scope itself it is
// empty. Returned ancestors are prefixes of the input and keep its casing.
//
// The order doubles as the search order when looking for covering group
// assignments: callers stop at the first ancestor that yields a cover, they
// do not keep walking for a narrower one.
func Ancestors(scope string) ([]string, error) {
	parts, subIdx, err := parse(scope)
	if err != nil {
		return nil, trace.Wrap(err)
	}
	subScope := strings.Join(parts[:subIdx+2], "/")
	last := len(parts) - 1

	rgIdx := subIdx + 2
	if rgIdx < last && strings.EqualFold(parts[rgIdx], resourceGroupsSegment) && parts[rgIdx+1] != "" {
		if rgIdx+1 == last {
			// The scope is the resource group itself.
			return []string{subScope}, nil
		}
		rgScope := strings.Join(parts[:rgIdx+2], "/")
		return []string{rgScope, subScope}, nil
	}
	if subIdx+1 == last {
		// The scope is the subscription itself.
		return nil, nil
	}
	return []string{subScope}, nil
}

// Normalize maps equivalent spellings of a scope to a single form suitable
// for use as a map key. Azure compares scopes case-insensitively.
func Normalize(scope string) string {
	return strings.ToLower(strings.TrimRight(scope, "/"))
}

// SubscriptionID extracts the subscription id from a scope path.
func SubscriptionID(scope string) (string, error) {
	parts, subIdx, err := parse(scope)
	if err != nil {
		return "", trace.Wrap(err)
	}
	return parts[subIdx+1], nil
}

// SubscriptionScope returns the scope path of a subscription.
func SubscriptionScope(subscriptionID string) string {
	return "/" + subscriptionsSegment + "/" + subscriptionID
}

// parse splits the scope into path segments and locates the subscriptions
// segment. Trailing slashes are tolerated.
func parse(scope string) (parts []string, subIdx int, err error) {
	trimmed := strings.TrimRight(scope, "/")
	if trimmed == "" {
		return nil, 0, trace.BadParameter("invalid scope %q: empty path", scope)
	}
	parts = strings.Split(trimmed, "/")
	for i := range parts {
		if strings.EqualFold(parts[i], subscriptionsSegment) && i+1 < len(parts) && parts[i+1] != "" {
			return parts, i, nil
		}
	}
	return nil, 0, trace.BadParameter("invalid scope %q: missing /subscriptions/{id} segment", scope)
}
