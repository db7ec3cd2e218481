package ipset

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/argus-sec/argus/backend/internal/logger"
	"github.com/argus-sec/argus/backend/internal/util"
)

// Manager layers lookup-or-create and read-modify-write address edits on top
// of a raw Service. Stale-token conflicts are the expected failure mode when
// several processes edit one set, so the edit loop retries them with backoff;
// any other error surfaces to the caller untouched.
type Manager struct {
	svc Service
}

func NewManager(svc Service) *Manager {
	return &Manager{svc: svc}
}

const (
	editAttempts  = 4
	editBaseDelay = 100 * time.Millisecond
)

// EnsureSet returns the named set, creating it when it does not exist yet.
func (m *Manager) EnsureSet(ctx context.Context, name string, scope Scope) (Set, error) {
	sets, err := m.svc.ListSets(ctx, scope)
	if err != nil {
		return Set{}, err
	}
	for _, s := range sets {
		if s.Name == name {
			return m.svc.GetSet(ctx, name, scope, s.ID)
		}
	}

	logger.WithFields(map[string]interface{}{"ip_set": name, "scope": scope}).Info("creating ip set")
	return m.svc.CreateSet(ctx, name, scope, AddressVersionIPv4)
}

// AddAddress ensures addr (bare IP or CIDR) is present in the named set and
// returns the set's ID. Adding an address that is already present is a no-op.
func (m *Manager) AddAddress(ctx context.Context, name string, scope Scope, addr string) (string, error) {
	cidr, err := FormatCIDR(addr)
	if err != nil {
		return "", err
	}

	var setID string
	err = util.RetryIf(ctx, editAttempts, editBaseDelay, IsRetryable, func() error {
		set, err := m.EnsureSet(ctx, name, scope)
		if err != nil {
			return err
		}
		setID = set.ID
		if containsAddress(set.Addresses, cidr) {
			return nil
		}
		return m.svc.UpdateSet(ctx, name, scope, set.ID, set.LockToken, append(set.Addresses, cidr))
	})
	if err != nil {
		return "", fmt.Errorf("add %s to ip set %q: %w", cidr, name, err)
	}
	return setID, nil
}

// RemoveAddress drops addr from the named set. A missing address or a missing
// set is treated as already removed.
func (m *Manager) RemoveAddress(ctx context.Context, name string, scope Scope, addr string) error {
	cidr, err := FormatCIDR(addr)
	if err != nil {
		return err
	}

	err = util.RetryIf(ctx, editAttempts, editBaseDelay, IsRetryable, func() error {
		sets, err := m.svc.ListSets(ctx, scope)
		if err != nil {
			return err
		}
		var summary *SetSummary
		for i := range sets {
			if sets[i].Name == name {
				summary = &sets[i]
				break
			}
		}
		if summary == nil {
			return nil
		}

		set, err := m.svc.GetSet(ctx, name, scope, summary.ID)
		if err != nil {
			return err
		}
		if !containsAddress(set.Addresses, cidr) {
			return nil
		}

		remaining := make([]string, 0, len(set.Addresses))
		for _, a := range set.Addresses {
			if !strings.EqualFold(a, cidr) {
				remaining = append(remaining, a)
			}
		}
		return m.svc.UpdateSet(ctx, name, scope, set.ID, set.LockToken, remaining)
	})
	if err != nil {
		return fmt.Errorf("remove %s from ip set %q: %w", cidr, name, err)
	}
	return nil
}

func containsAddress(addresses []string, cidr string) bool {
	for _, a := range addresses {
		if strings.EqualFold(a, cidr) {
			return true
		}
	}
	return false
}
