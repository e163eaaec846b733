// Package memstore is the reference tenant.Store implementation used by
// cmd/barterd for local runs: an in-memory, mutex-guarded map. Real
// deployments swap this for a durable collaborator behind the same
// interface.
package memstore

import (
	"context"
	"sync"

	"github.com/barterlabs/loopengine/graph"
	"github.com/barterlabs/loopengine/tenant"
)

type Store struct {
	mu   sync.Mutex
	data map[string]*tenant.TenantSnapshot
}

func New() *Store {
	return &Store{data: map[string]*tenant.TenantSnapshot{}}
}

func (s *Store) LoadTenant(ctx context.Context, tenantID string) (*tenant.TenantSnapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.data[tenantID], nil
}

func (s *Store) SaveTenant(ctx context.Context, snapshot *tenant.TenantSnapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[snapshot.TenantID] = snapshot
	return nil
}

func (s *Store) AppendChange(ctx context.Context, tenantID string, change graph.GraphChange) error {
	return nil
}
