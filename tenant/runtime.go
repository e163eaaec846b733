package tenant

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/sourcegraph/conc"

	"github.com/barterlabs/loopengine/bterr"
	"github.com/barterlabs/loopengine/cache"
	"github.com/barterlabs/loopengine/graph"
	"github.com/barterlabs/loopengine/internal/logger"
	"github.com/barterlabs/loopengine/internal/metrics"
	"github.com/barterlabs/loopengine/internal/sentryutil"
	"github.com/barterlabs/loopengine/registry"
	"github.com/barterlabs/loopengine/webhook"
)

// Status is the read-only snapshot returned by TenantRuntime.Status, per
// spec.md §6.
type Status struct {
	NFTCount         int
	WalletCount      int
	ActiveLoopCount  int
	PendingMutations int
	LastUpdated      time.Time
	Metrics          metrics.Snapshot
}

type job struct {
	mutation graph.Mutation
	trigger  string
	resultCh chan error
}

// TenantRuntime owns one tenant's graph, registry, cache view, and
// dispatcher, serializing every mutation through a single FIFO queue so the
// discovery pipeline never races with itself for this tenant (spec.md
// §4.10). Reads run directly against the underlying concurrent-safe
// collaborators and never touch the queue.
type TenantRuntime struct {
	id  string
	cfg Config

	graphStore   *graph.Store
	registry     *registry.Registry
	dispatcher   *webhook.Dispatcher
	orchestrator *Orchestrator
	metrics      metrics.Counters

	queue chan job

	mu          sync.RWMutex
	lastUpdated time.Time

	ctx    context.Context
	cancel context.CancelFunc
	wg     conc.WaitGroup
}

func newTenantRuntime(id string, cfg Config, sharedCache *cache.Cache, transport webhook.Transport, webhookName string, initial *TenantSnapshot, store Store) (*TenantRuntime, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	// Active loops are not restored verbatim: the registry starts empty and
	// loops are rediscovered as later mutations touch their wallets, rather
	// than trusting a persisted set that may predate a core algorithm change.
	reg := registry.New()

	var gs *graph.Store
	if initial != nil {
		var err error
		gs, err = applySnapshot(initial, cfg.ChangeLogCapacity, cfg.graphLimits())
		if err != nil {
			return nil, errors.Wrapf(err, "tenant %s: replay persisted snapshot", id)
		}
	} else {
		gs = graph.NewStoreWithLimits(cfg.ChangeLogCapacity, cfg.graphLimits())
	}

	ctx, cancel := context.WithCancel(context.Background())

	t := &TenantRuntime{
		id:         id,
		cfg:        cfg,
		graphStore: gs,
		registry:   reg,
		queue:      make(chan job, cfg.QueueCapacity),
		ctx:        ctx,
		cancel:     cancel,
	}
	disp := webhook.New(webhook.TenantRef{ID: id, Name: webhookName}, cfg.Webhook, transport, &t.metrics)
	t.dispatcher = disp
	t.orchestrator = newOrchestrator(id, cfg, gs, sharedCache, reg, disp, &t.metrics, store)

	t.wg.Go(t.loop)

	return t, nil
}

func (t *TenantRuntime) loop() {
	for {
		select {
		case j, ok := <-t.queue:
			if !ok {
				return
			}
			t.runJob(j)
		case <-t.ctx.Done():
			t.drainQueue()
			return
		}
	}
}

// drainQueue runs every already-queued job to completion after shutdown is
// requested, so a caller blocked on Submit's result channel is never
// abandoned.
func (t *TenantRuntime) drainQueue() {
	for {
		select {
		case j, ok := <-t.queue:
			if !ok {
				return
			}
			t.runJob(j)
		default:
			return
		}
	}
}

func (t *TenantRuntime) runJob(j job) {
	err := t.safeRun(j.mutation, j.trigger)
	t.mu.Lock()
	t.lastUpdated = time.Now().UTC()
	t.mu.Unlock()
	j.resultCh <- err
}

// safeRun recovers from any panic escaping the orchestrator — an invariant
// violation poisons only this tenant's pipeline, per spec.md §7's "log +
// continue other tenants" rule, rather than taking down the process.
func (t *TenantRuntime) safeRun(m graph.Mutation, trigger string) (err error) {
	defer func() {
		if r := recover(); r != nil {
			wrapped := errors.Wrapf(fmt.Errorf("%v", r), "tenant %s: panic in pipeline", t.id)
			sentryutil.CaptureInternal(wrapped)
			logger.For(t.ctx).WithError(wrapped).Error("tenant pipeline recovered from panic")
			err = wrapped
		}
	}()

	_, runErr := t.orchestrator.Run(t.ctx, m, trigger)
	var cancelled bterr.ErrCancelled
	if errors.As(runErr, &cancelled) {
		logger.For(t.ctx).WithError(runErr).Debug("tenant pipeline cancelled")
		return nil
	}
	if runErr != nil {
		wrapped := errors.Wrapf(runErr, "tenant %s: pipeline", t.id)
		sentryutil.CaptureInternal(wrapped)
		return wrapped
	}
	return nil
}

// Submit enqueues mutation for this tenant's serial pipeline. It blocks
// until the pipeline has processed it (or ctx is done), honoring the
// ordering guarantee that mutations apply in submission order.
func (t *TenantRuntime) Submit(ctx context.Context, m graph.Mutation, trigger string) error {
	j := job{mutation: m, trigger: trigger, resultCh: make(chan error, 1)}

	select {
	case t.queue <- j:
	default:
		t.metrics.IncTenantBusy()
		return ErrBusy{TenantID: t.id, Capacity: t.cfg.QueueCapacity}
	}

	select {
	case err := <-j.resultCh:
		return err
	case <-ctx.Done():
		return ctx.Err()
	case <-t.ctx.Done():
		return ErrBusy{TenantID: t.id, Capacity: t.cfg.QueueCapacity}
	}
}

// QueryLoops reads active loops directly from the registry; it never
// touches the mutation queue.
func (t *TenantRuntime) QueryLoops(q registry.Query) []graph.TradeLoop {
	return t.registry.Query(q)
}

// Status reports the tenant's current counts and metrics.
func (t *TenantRuntime) Status() Status {
	nftCount, walletCount := t.graphStore.Counts()
	t.mu.RLock()
	lastUpdated := t.lastUpdated
	t.mu.RUnlock()
	return Status{
		NFTCount:         nftCount,
		WalletCount:      walletCount,
		ActiveLoopCount:  t.registry.Count(),
		PendingMutations: len(t.queue),
		LastUpdated:      lastUpdated,
		Metrics:          t.metrics.Snapshot(),
	}
}

// Snapshot builds the persisted-state shape for this tenant, for Store.SaveTenant.
func (t *TenantRuntime) Snapshot() *TenantSnapshot {
	return buildSnapshot(t.id, t.graphStore, t.registry.All())
}

// Shutdown cancels in-flight enumeration, drains any mutations already
// queued, and waits for the webhook dispatcher to finish in-flight
// deliveries, honoring ctx's deadline throughout.
func (t *TenantRuntime) Shutdown(ctx context.Context) error {
	t.cancel()

	done := make(chan struct{})
	go func() {
		t.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
		return ctx.Err()
	}

	t.dispatcher.Drain(ctx)
	return nil
}
