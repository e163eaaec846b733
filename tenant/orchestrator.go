package tenant

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/gammazero/workerpool"
	"github.com/pkg/errors"

	"github.com/barterlabs/loopengine/bterr"
	"github.com/barterlabs/loopengine/cache"
	"github.com/barterlabs/loopengine/cycle"
	"github.com/barterlabs/loopengine/delta"
	"github.com/barterlabs/loopengine/graph"
	"github.com/barterlabs/loopengine/internal/logger"
	"github.com/barterlabs/loopengine/internal/metrics"
	"github.com/barterlabs/loopengine/internal/sentryutil"
	"github.com/barterlabs/loopengine/registry"
	"github.com/barterlabs/loopengine/scc"
	"github.com/barterlabs/loopengine/score"
	"github.com/barterlabs/loopengine/webhook"
)

const projectionBuildTimeout = 5 * time.Second

// Orchestrator runs the per-mutation pipeline for one tenant: apply mutation,
// compute the affected set, discover SCCs and cycles within it, score and
// reconcile against the registry, and dispatch resulting events. It holds no
// goroutine of its own — TenantRuntime's serial worker loop calls Run.
type Orchestrator struct {
	tenantID string
	cfg      Config

	graphStore *graph.Store
	delta      *delta.Engine
	cache      *cache.Cache
	registry   *registry.Registry
	dispatcher *webhook.Dispatcher
	scorer     *score.Scorer
	metrics    *metrics.Counters
	store      Store
}

func newOrchestrator(tenantID string, cfg Config, gs *graph.Store, c *cache.Cache, reg *registry.Registry, disp *webhook.Dispatcher, m *metrics.Counters, store Store) *Orchestrator {
	return &Orchestrator{
		tenantID:   tenantID,
		cfg:        cfg,
		graphStore: gs,
		delta:      delta.New(),
		cache:      c,
		registry:   reg,
		dispatcher: disp,
		scorer:     score.New(),
		metrics:    m,
		store:      store,
	}
}

// Run applies mutation to the graph, and if it touches any existing or
// possible trade relationship, rediscovers cycles in its vicinity and
// reconciles the registry, per spec.md §4.8's ten-step pipeline.
func (o *Orchestrator) Run(ctx context.Context, mutation graph.Mutation, trigger string) ([]registry.Event, error) {
	affected, err := o.apply(ctx, mutation)
	if err != nil {
		return nil, err
	}
	o.cache.InvalidateTenant(o.tenantID)

	if affected.Empty() {
		return nil, nil
	}

	proj, err := o.projection(ctx)
	if err != nil {
		return nil, err
	}

	vertices := inducedSubgraph(proj, affected, o.cfg.MaxDepth, !o.cfg.EnableCollectionTrading)

	finder := scc.New(scc.Config{
		MaxCollectionExpansion:   graph.DefaultMaxCollectionExpansion,
		DisableCollectionTrading: !o.cfg.EnableCollectionTrading,
	})
	sccs, err := finder.Find(ctx, proj, vertices)
	if err != nil && !scc.IsTimeout(err) {
		return nil, err
	}

	budget := cycle.NewBudget(o.cfg.MaxLoopsPerRequest, 45*time.Second)
	candidates := o.enumerateCycles(ctx, proj, sccs, affected, budget)

	demand := o.demandIndex(proj)
	scored := make([]graph.TradeLoop, 0, len(candidates))
	for _, c := range candidates {
		sc := o.scorer.Score(c, demand)
		if sc.QualityScore >= o.cfg.MinScore {
			scored = append(scored, sc)
		}
	}
	sort.Slice(scored, func(i, j int) bool { return scored[i].ID < scored[j].ID })

	if budget.Truncated() {
		o.metrics.IncTruncated()
	}
	o.metrics.AddCyclesDiscovered(len(scored))

	events := o.registry.Reconcile(scored, affected, trigger)

	for _, ev := range events {
		o.dispatcher.Dispatch(ctx, ev)
	}

	return events, nil
}

func (o *Orchestrator) apply(ctx context.Context, m graph.Mutation) (delta.AffectedSet, error) {
	var affected delta.AffectedSet

	switch m.Kind {
	case graph.MutationAddNFT:
		change, err := o.graphStore.AddNFT(m.NFT)
		if err != nil {
			return affected, err
		}
		o.appendChange(ctx, change)
		affected = o.delta.NFTAdded(o.graphStore.Snapshot(), m.NFT)

	case graph.MutationRemoveNFT:
		owner := o.graphStore.WalletOf(m.NFTID)
		o.appendChange(ctx, o.graphStore.RemoveNFT(m.NFTID))
		affected = o.delta.NFTRemoved(owner, m.NFTID, o.registry.All())

	case graph.MutationAddWant:
		change, err := o.graphStore.AddWant(m.WalletID, m.NFTID)
		if err != nil {
			return affected, err
		}
		o.appendChange(ctx, change)
		affected = o.delta.WantAdded(o.graphStore.Snapshot(), m.WalletID, m.NFTID)

	case graph.MutationRemoveWant:
		o.appendChange(ctx, o.graphStore.RemoveWant(m.WalletID, m.NFTID))
		affected = o.delta.WantRemoved(o.graphStore.Snapshot(), m.WalletID, m.NFTID, o.registry.All())

	case graph.MutationAddCollectionWant:
		o.appendChange(ctx, o.graphStore.AddCollectionWant(m.WalletID, m.CollectionID))
		affected = o.delta.WantAdded(o.graphStore.Snapshot(), m.WalletID, m.CollectionID)

	case graph.MutationRemoveCollectionWant:
		o.appendChange(ctx, o.graphStore.RemoveCollectionWant(m.WalletID, m.CollectionID))
		affected = o.delta.WantRemoved(o.graphStore.Snapshot(), m.WalletID, m.CollectionID, o.registry.All())

	case graph.MutationUpdateRejection:
		o.appendChange(ctx, o.graphStore.UpdateRejections(m.WalletID, m.RejectedWallets, m.RejectedNFTs))
		affected = o.delta.RejectionUpdated(m.WalletID, o.registry.All())

	case graph.MutationMarkCompleted:
		if ev, ok := o.registry.MarkCompleted(m.LoopID); ok {
			o.dispatcher.Dispatch(context.Background(), ev)
		}
		return delta.AffectedSet{}, nil
	}

	return affected, nil
}

// appendChange forwards change to the external Store for durable replay, per
// spec.md §7's StoreFailure row: a failure here never fails the mutation or
// drops the in-memory event — it's logged and reported. The failed change is
// not re-sent by later appends; a full SaveTenant carries the change log.
func (o *Orchestrator) appendChange(ctx context.Context, change graph.GraphChange) {
	if o.store == nil || change.Kind == "" {
		return
	}
	if err := o.store.AppendChange(ctx, o.tenantID, change); err != nil {
		wrapped := errors.Wrapf(err, "tenant %s: append change", o.tenantID)
		sentryutil.CaptureInternal(wrapped)
		logger.For(ctx).WithError(wrapped).Warn("tenant: store append failed, continuing with in-memory state only")
	}
}

// projection returns the current tenant projection, preferring the
// TransformationCache and falling back to a fresh build on miss, per
// spec.md §4.7. A fresh build is bounded by projectionBuildTimeout (spec.md
// §5): a graph large enough to blow the deadline surfaces as
// bterr.ErrCancelled rather than stalling the mutation pipeline.
func (o *Orchestrator) projection(ctx context.Context) (*graph.Projection, error) {
	fp := o.graphStore.Fingerprint()
	if p, ok := o.cache.Get(o.tenantID, fp); ok {
		return p, nil
	}

	buildCtx, cancel := context.WithTimeout(ctx, projectionBuildTimeout)
	defer cancel()

	p, err := o.graphStore.SnapshotContext(buildCtx)
	if err != nil {
		return nil, bterr.ErrCancelled{Op: "tenant.projection"}
	}
	o.cache.Put(o.tenantID, fp, p)
	return p, nil
}

// inducedSubgraph returns the forward+reverse closure of affected's wallets,
// breadth-first, up to maxDepth hops — the subgraph SCCFinder and the
// enumerator operate on. disableCollectionTrading mirrors the tenant's
// enableCollectionTrading config: when true, edges justified only by a
// standing collection want are not traversed.
func inducedSubgraph(p *graph.Projection, affected delta.AffectedSet, maxDepth int, disableCollectionTrading bool) []string {
	visited := map[string]struct{}{}
	var frontier []string
	for w := range affected.WalletIDs {
		if _, ok := visited[w]; !ok {
			visited[w] = struct{}{}
			frontier = append(frontier, w)
		}
	}

	for depth := 0; depth < maxDepth && len(frontier) > 0; depth++ {
		var next []string
		for _, v := range frontier {
			for _, succ := range p.Successors(v, p.WalletIDs, graph.DefaultMaxCollectionExpansion, disableCollectionTrading) {
				if _, ok := visited[succ]; !ok {
					visited[succ] = struct{}{}
					next = append(next, succ)
				}
			}
			for _, u := range p.WalletIDs {
				if u == v {
					continue
				}
				if _, ok := visited[u]; ok {
					continue
				}
				if p.HasEdge(u, v, disableCollectionTrading) {
					visited[u] = struct{}{}
					next = append(next, u)
				}
			}
		}
		frontier = next
	}

	out := make([]string, 0, len(visited))
	for v := range visited {
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}

// enumerateCycles runs CycleEnumerator over every SCC that overlaps
// affected, up to cfg.SCCConcurrency SCCs concurrently via a bounded worker
// pool — Johnson's own DFS stays single-threaded per spec.md §5.
func (o *Orchestrator) enumerateCycles(ctx context.Context, p *graph.Projection, sccs []scc.SCC, affected delta.AffectedSet, budget *cycle.Budget) []graph.TradeLoop {
	var touching []scc.SCC
	for _, s := range sccs {
		if affected.IntersectsWallets(s.Vertices) {
			touching = append(touching, s)
		}
	}
	if len(touching) == 0 {
		return nil
	}

	enumerator := cycle.New(o.cfg.cycleConfig())

	pool := workerpool.New(o.cfg.SCCConcurrency)
	var mu sync.Mutex
	var loops []graph.TradeLoop

	for _, s := range touching {
		vertices := s.Vertices
		pool.Submit(func() {
			paths, _, err := enumerator.Find(ctx, p, vertices, budget)
			if err != nil {
				logger.For(ctx).WithError(err).Warn("cycle enumeration aborted for scc")
				return
			}
			mu.Lock()
			defer mu.Unlock()
			for _, path := range paths {
				loop, ok := cycle.BuildLoop(p, path, graph.DefaultMaxCollectionExpansion, !o.cfg.EnableCollectionTrading)
				if ok {
					loops = append(loops, loop)
				}
			}
		})
	}
	pool.StopWait()

	return loops
}

// demandIndex computes per-NFT want/supply counts for the scorer's demand
// component.
func (o *Orchestrator) demandIndex(p *graph.Projection) map[string]score.Demand {
	out := make(map[string]score.Demand, len(p.NFTs))
	for nftID, n := range p.NFTs {
		supply := 1
		if n.CollectionID != "" {
			supply = len(p.CollectionMembers[n.CollectionID])
			if supply == 0 {
				supply = 1
			}
		}
		out[nftID] = score.Demand{WantCount: len(p.WantIndex[nftID]), SupplyCount: supply}
	}
	return out
}
