// Package ipset talks to the external firewall's named CIDR lists. Writes use
// the service's optimistic lock token: every mutation is a read-modify-write
// cycle, and a write with a stale token is rejected.
package ipset

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
)

// Scope selects which firewall deployment a set lives in.
type Scope string

const (
	ScopeRegional Scope = "REGIONAL"
	ScopeEdge     Scope = "EDGE"
)

// Address versions accepted by CreateSet.
const (
	AddressVersionIPv4 = "IPV4"
	AddressVersionIPv6 = "IPV6"
)

// ErrStaleToken is returned when a write carried a lock token that no longer
// matches server state. It is retryable: re-read the set and try again.
var ErrStaleToken = errors.New("ip set lock token is stale")

// SetSummary identifies a set without its contents.
type SetSummary struct {
	Name string `json:"name"`
	ID   string `json:"id"`
}

// Set is a full read of one IP set, including the lock token required by the
// next write.
type Set struct {
	Name      string   `json:"name"`
	ID        string   `json:"id"`
	LockToken string   `json:"lock_token"`
	Addresses []string `json:"addresses"`
}

// Service is the firewall control-plane surface this package consumes.
type Service interface {
	ListSets(ctx context.Context, scope Scope) ([]SetSummary, error)
	CreateSet(ctx context.Context, name string, scope Scope, addressVersion string) (Set, error)
	GetSet(ctx context.Context, name string, scope Scope, id string) (Set, error)
	UpdateSet(ctx context.Context, name string, scope Scope, id, lockToken string, addresses []string) error
}

// IsRetryable reports whether an error from the service is worth retrying
// with backoff (currently only optimistic-concurrency conflicts).
func IsRetryable(err error) bool {
	return errors.Is(err, ErrStaleToken)
}

// FormatCIDR normalizes an address for the set: bare IPv4 becomes /32, bare
// IPv6 becomes /128, and strings already in CIDR notation pass through.
func FormatCIDR(addr string) (string, error) {
	if strings.Contains(addr, "/") {
		if _, _, err := net.ParseCIDR(addr); err != nil {
			return "", fmt.Errorf("invalid CIDR %q: %w", addr, err)
		}
		return addr, nil
	}
	ip := net.ParseIP(addr)
	if ip == nil {
		return "", fmt.Errorf("invalid IP address %q", addr)
	}
	if ip.To4() != nil {
		return addr + "/32", nil
	}
	return addr + "/128", nil
}
