package ipset

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFormatCIDR(t *testing.T) {
	cases := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{"203.0.113.7", "203.0.113.7/32", false},
		{"2001:db8::1", "2001:db8::1/128", false},
		{"10.0.0.0/8", "10.0.0.0/8", false},
		{"2001:db8::/64", "2001:db8::/64", false},
		{"not-an-ip", "", true},
		{"10.0.0.0/99", "", true},
	}

	for _, tc := range cases {
		got, err := FormatCIDR(tc.in)
		if tc.wantErr {
			assert.Error(t, err, tc.in)
			continue
		}
		assert.NoError(t, err, tc.in)
		assert.Equal(t, tc.want, got)
	}
}

func TestManager_EnsureSet_CreatesOnce(t *testing.T) {
	mem := NewMemory()
	mgr := NewManager(mem)
	ctx := context.Background()

	first, err := mgr.EnsureSet(ctx, "blocklist", ScopeRegional)
	assert.NoError(t, err)
	assert.NotEmpty(t, first.ID)

	second, err := mgr.EnsureSet(ctx, "blocklist", ScopeRegional)
	assert.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
}

func TestManager_AddAddress(t *testing.T) {
	mem := NewMemory()
	mgr := NewManager(mem)
	ctx := context.Background()

	id, err := mgr.AddAddress(ctx, "blocklist", ScopeRegional, "203.0.113.7")
	assert.NoError(t, err)
	assert.NotEmpty(t, id)

	set, err := mgr.EnsureSet(ctx, "blocklist", ScopeRegional)
	assert.NoError(t, err)
	assert.Equal(t, []string{"203.0.113.7/32"}, set.Addresses)

	// Re-adding is a no-op: no duplicate entry, same set ID.
	again, err := mgr.AddAddress(ctx, "blocklist", ScopeRegional, "203.0.113.7/32")
	assert.NoError(t, err)
	assert.Equal(t, id, again)

	set, _ = mgr.EnsureSet(ctx, "blocklist", ScopeRegional)
	assert.Len(t, set.Addresses, 1)
}

func TestManager_RemoveAddress(t *testing.T) {
	mem := NewMemory()
	mgr := NewManager(mem)
	ctx := context.Background()

	_, err := mgr.AddAddress(ctx, "blocklist", ScopeRegional, "203.0.113.7")
	assert.NoError(t, err)
	_, err = mgr.AddAddress(ctx, "blocklist", ScopeRegional, "198.51.100.9")
	assert.NoError(t, err)

	assert.NoError(t, mgr.RemoveAddress(ctx, "blocklist", ScopeRegional, "203.0.113.7"))

	set, err := mgr.EnsureSet(ctx, "blocklist", ScopeRegional)
	assert.NoError(t, err)
	assert.Equal(t, []string{"198.51.100.9/32"}, set.Addresses)

	// Removing a missing address, or from a missing set, succeeds.
	assert.NoError(t, mgr.RemoveAddress(ctx, "blocklist", ScopeRegional, "203.0.113.7"))
	assert.NoError(t, mgr.RemoveAddress(ctx, "never-created", ScopeRegional, "203.0.113.7"))
}

// staleOnceService wraps Memory and fails the first update with a stale token
// to exercise the read-modify-write retry loop.
type staleOnceService struct {
	*Memory
	failed bool
}

func (s *staleOnceService) UpdateSet(ctx context.Context, name string, scope Scope, id, lockToken string, addresses []string) error {
	if !s.failed {
		s.failed = true
		return ErrStaleToken
	}
	return s.Memory.UpdateSet(ctx, name, scope, id, lockToken, addresses)
}

func TestManager_AddAddress_RetriesStaleToken(t *testing.T) {
	svc := &staleOnceService{Memory: NewMemory()}
	mgr := NewManager(svc)

	_, err := mgr.AddAddress(context.Background(), "blocklist", ScopeRegional, "203.0.113.7")
	assert.NoError(t, err)
	assert.True(t, svc.failed)

	set, err := mgr.EnsureSet(context.Background(), "blocklist", ScopeRegional)
	assert.NoError(t, err)
	assert.Equal(t, []string{"203.0.113.7/32"}, set.Addresses)
}

// brokenService always fails list calls.
type brokenService struct{ Memory }

func (b *brokenService) ListSets(ctx context.Context, scope Scope) ([]SetSummary, error) {
	return nil, errors.New("throttled")
}

func TestManager_AddAddress_SurfacesServiceError(t *testing.T) {
	mgr := NewManager(&brokenService{})

	_, err := mgr.AddAddress(context.Background(), "blocklist", ScopeRegional, "203.0.113.7")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "throttled")
}

func TestMemory_StaleTokenRejected(t *testing.T) {
	mem := NewMemory()
	ctx := context.Background()

	set, err := mem.CreateSet(ctx, "blocklist", ScopeRegional, AddressVersionIPv4)
	assert.NoError(t, err)

	assert.NoError(t, mem.UpdateSet(ctx, "blocklist", ScopeRegional, set.ID, set.LockToken, []string{"203.0.113.7/32"}))

	// The original token is now stale.
	err = mem.UpdateSet(ctx, "blocklist", ScopeRegional, set.ID, set.LockToken, []string{})
	assert.ErrorIs(t, err, ErrStaleToken)
	assert.True(t, IsRetryable(err))
}
