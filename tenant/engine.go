// Package tenant wires the per-tenant pipeline (GraphStore -> DeltaEngine ->
// SCCFinder -> CycleEnumerator -> LoopScorer -> LoopRegistry ->
// WebhookDispatcher) into a serialized TenantRuntime, and the Engine that
// manages every tenant in a process.
package tenant

import (
	"context"
	"sync"

	"github.com/barterlabs/loopengine/bterr"
	"github.com/barterlabs/loopengine/cache"
	"github.com/barterlabs/loopengine/graph"
	"github.com/barterlabs/loopengine/registry"
	"github.com/barterlabs/loopengine/webhook"
)

// Engine owns every tenant in a process. Tenants run fully in parallel with
// each other; only work within a single tenant serializes.
type Engine struct {
	store     Store
	transport webhook.Transport
	cache     *cache.Cache

	mu      sync.RWMutex
	tenants map[string]*TenantRuntime
}

// NewEngine constructs an Engine sharing one TransformationCache across
// every tenant it manages, keyed internally by tenant id so entries never
// cross tenant boundaries.
func NewEngine(store Store, transport webhook.Transport) *Engine {
	return &Engine{
		store:     store,
		transport: transport,
		cache:     cache.New(cache.DefaultTTL, cache.DefaultMaxEntries),
		tenants:   map[string]*TenantRuntime{},
	}
}

// CreateTenant registers tenantID with cfg, loading any persisted snapshot
// from the Store first. It is an error to create a tenant id that already
// exists in this Engine.
func (e *Engine) CreateTenant(ctx context.Context, tenantID, displayName string, cfg Config) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if _, exists := e.tenants[tenantID]; exists {
		return bterr.ErrInvalidInput{Field: "tenantId", Reason: "tenant already exists"}
	}

	var initial *TenantSnapshot
	if e.store != nil {
		snap, err := e.store.LoadTenant(ctx, tenantID)
		if err != nil {
			return ErrStoreFailure{Op: "LoadTenant", Cause: err}
		}
		initial = snap
	}

	rt, err := newTenantRuntime(tenantID, cfg, e.cache, e.transport, displayName, initial, e.store)
	if err != nil {
		return err
	}
	e.tenants[tenantID] = rt
	return nil
}

func (e *Engine) runtime(tenantID string) (*TenantRuntime, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	rt, ok := e.tenants[tenantID]
	if !ok {
		return nil, ErrTenantNotFound{TenantID: tenantID}
	}
	return rt, nil
}

// Submit routes mutation to tenantID's serial pipeline.
func (e *Engine) Submit(ctx context.Context, tenantID string, m graph.Mutation, trigger string) error {
	rt, err := e.runtime(tenantID)
	if err != nil {
		return err
	}
	return rt.Submit(ctx, m, trigger)
}

// QueryLoops returns tenantID's active loops matching q.
func (e *Engine) QueryLoops(tenantID string, q registry.Query) ([]graph.TradeLoop, error) {
	rt, err := e.runtime(tenantID)
	if err != nil {
		return nil, err
	}
	return rt.QueryLoops(q), nil
}

// Status reports tenantID's current counts.
func (e *Engine) Status(tenantID string) (Status, error) {
	rt, err := e.runtime(tenantID)
	if err != nil {
		return Status{}, err
	}
	return rt.Status(), nil
}

// Persist saves tenantID's current state through the Engine's Store.
func (e *Engine) Persist(ctx context.Context, tenantID string) error {
	rt, err := e.runtime(tenantID)
	if err != nil {
		return err
	}
	if e.store == nil {
		return nil
	}
	if err := e.store.SaveTenant(ctx, rt.Snapshot()); err != nil {
		return ErrStoreFailure{Op: "SaveTenant", Cause: err}
	}
	return nil
}

// ShutdownTenant gracefully stops tenantID's runtime and persists its final
// state.
func (e *Engine) ShutdownTenant(ctx context.Context, tenantID string) error {
	e.mu.Lock()
	rt, ok := e.tenants[tenantID]
	if ok {
		delete(e.tenants, tenantID)
	}
	e.mu.Unlock()
	if !ok {
		return ErrTenantNotFound{TenantID: tenantID}
	}

	if err := rt.Shutdown(ctx); err != nil {
		return err
	}
	if e.store != nil {
		if err := e.store.SaveTenant(ctx, rt.Snapshot()); err != nil {
			return ErrStoreFailure{Op: "SaveTenant", Cause: err}
		}
	}
	return nil
}

// ShutdownAll gracefully stops every tenant, in parallel, returning the
// first error encountered (after every tenant has had a chance to drain).
func (e *Engine) ShutdownAll(ctx context.Context) error {
	e.mu.RLock()
	ids := make([]string, 0, len(e.tenants))
	for id := range e.tenants {
		ids = append(ids, id)
	}
	e.mu.RUnlock()

	var wg sync.WaitGroup
	errs := make([]error, len(ids))
	for i, id := range ids {
		wg.Add(1)
		go func(i int, id string) {
			defer wg.Done()
			errs[i] = e.ShutdownTenant(ctx, id)
		}(i, id)
	}
	wg.Wait()

	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}
