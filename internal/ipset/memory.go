package ipset

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
)

// Memory is an in-process Service used for local development and tests. It
// reproduces the control plane's optimistic concurrency: the lock token
// rotates on every write and a stale token is rejected.
type Memory struct {
	mu   sync.Mutex
	sets map[string]*Set // keyed by scope + "/" + name
}

func NewMemory() *Memory {
	return &Memory{sets: make(map[string]*Set)}
}

func (m *Memory) key(name string, scope Scope) string {
	return string(scope) + "/" + name
}

func (m *Memory) ListSets(ctx context.Context, scope Scope) ([]SetSummary, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []SetSummary
	for k, s := range m.sets {
		if k == m.key(s.Name, scope) {
			out = append(out, SetSummary{Name: s.Name, ID: s.ID})
		}
	}
	return out, nil
}

func (m *Memory) CreateSet(ctx context.Context, name string, scope Scope, addressVersion string) (Set, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := m.key(name, scope)
	if _, exists := m.sets[key]; exists {
		return Set{}, fmt.Errorf("ip set %q already exists in scope %s", name, scope)
	}
	set := &Set{
		Name:      name,
		ID:        uuid.NewString(),
		LockToken: uuid.NewString(),
		Addresses: []string{},
	}
	m.sets[key] = set
	return *set, nil
}

func (m *Memory) GetSet(ctx context.Context, name string, scope Scope, id string) (Set, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	set, ok := m.sets[m.key(name, scope)]
	if !ok || set.ID != id {
		return Set{}, fmt.Errorf("ip set %q not found in scope %s", name, scope)
	}
	out := *set
	out.Addresses = append([]string(nil), set.Addresses...)
	return out, nil
}

func (m *Memory) UpdateSet(ctx context.Context, name string, scope Scope, id, lockToken string, addresses []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	set, ok := m.sets[m.key(name, scope)]
	if !ok || set.ID != id {
		return fmt.Errorf("ip set %q not found in scope %s", name, scope)
	}
	if set.LockToken != lockToken {
		return ErrStaleToken
	}
	set.Addresses = append([]string(nil), addresses...)
	set.LockToken = uuid.NewString()
	return nil
}
