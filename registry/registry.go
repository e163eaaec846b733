// Package registry tracks the active trade loops for one tenant: inserting
// newly discovered loops, deduplicating by canonical LoopId, and
// invalidating loops whose vertex set was touched by a mutation but which no
// longer appear among the current candidates.
package registry

import (
	"sort"
	"sync"

	"github.com/barterlabs/loopengine/delta"
	"github.com/barterlabs/loopengine/graph"
)

// EventKind enumerates the lifecycle events a Registry emits.
type EventKind string

const (
	EventDiscovered  EventKind = "trade_loop_discovered"
	EventInvalidated EventKind = "trade_loop_invalidated"
	EventCompleted   EventKind = "trade_loop_completed"
)

// Event is one lifecycle transition for a loop, handed to the webhook
// dispatcher. Reason is populated for EventInvalidated.
type Event struct {
	Kind    EventKind
	Loop    graph.TradeLoop
	Reason  string
	Trigger string
}

// Registry holds one tenant's active loops.
type Registry struct {
	mu    sync.RWMutex
	loops map[string]graph.TradeLoop
}

func New() *Registry {
	return &Registry{loops: map[string]graph.TradeLoop{}}
}

func vertexSet(loop graph.TradeLoop) []string {
	seen := map[string]struct{}{}
	for _, st := range loop.Steps {
		seen[st.From] = struct{}{}
		seen[st.To] = struct{}{}
	}
	out := make([]string, 0, len(seen))
	for v := range seen {
		out = append(out, v)
	}
	return out
}

// Reconcile diffs candidates (freshly discovered+scored loops restricted to
// the SCCs touched by this mutation) against the registry's current state.
// New candidates are inserted and emit EventDiscovered. Existing loops whose
// vertex set intersects affected but which are absent from candidates are
// removed and emit EventInvalidated; loops outside affected are left alone
// (they are revalidated only when their own affecting event fires).
func (r *Registry) Reconcile(candidates []graph.TradeLoop, affected delta.AffectedSet, trigger string) []Event {
	r.mu.Lock()
	defer r.mu.Unlock()

	var events []Event
	candidateIDs := make(map[string]struct{}, len(candidates))

	for _, c := range candidates {
		candidateIDs[c.ID] = struct{}{}
		if _, exists := r.loops[c.ID]; exists {
			continue
		}
		r.loops[c.ID] = c
		events = append(events, Event{Kind: EventDiscovered, Loop: c, Trigger: trigger})
	}

	for id, existing := range r.loops {
		if _, stillCandidate := candidateIDs[id]; stillCandidate {
			continue
		}
		if !affected.IntersectsWallets(vertexSet(existing)) {
			continue
		}
		delete(r.loops, id)
		events = append(events, Event{Kind: EventInvalidated, Loop: existing, Reason: "no longer satisfied after mutation", Trigger: trigger})
	}

	return events
}

// MarkCompleted removes loopID and emits EventCompleted. ok is false if the
// loop wasn't active.
func (r *Registry) MarkCompleted(loopID string) (Event, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	loop, ok := r.loops[loopID]
	if !ok {
		return Event{}, false
	}
	delete(r.loops, loopID)
	return Event{Kind: EventCompleted, Loop: loop}, true
}

// Query is the filter set for Query.
type Query struct {
	WalletID string
	MinScore float64
	Limit    int
}

// Query returns active loops matching q, sorted by QualityScore descending
// then LoopId ascending for determinism.
func (r *Registry) Query(q Query) []graph.TradeLoop {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []graph.TradeLoop
	for _, loop := range r.loops {
		if loop.QualityScore < q.MinScore {
			continue
		}
		if q.WalletID != "" && !containsWallet(loop, q.WalletID) {
			continue
		}
		out = append(out, loop)
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].QualityScore != out[j].QualityScore {
			return out[i].QualityScore > out[j].QualityScore
		}
		return out[i].ID < out[j].ID
	})

	if q.Limit > 0 && len(out) > q.Limit {
		out = out[:q.Limit]
	}
	return out
}

func containsWallet(loop graph.TradeLoop, walletID string) bool {
	for _, st := range loop.Steps {
		if st.From == walletID || st.To == walletID {
			return true
		}
	}
	return false
}

// Count returns the number of currently active loops.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.loops)
}

// All returns every active loop, for use by the delta engine when computing
// nft_removed / want_removed affected sets.
func (r *Registry) All() []graph.TradeLoop {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]graph.TradeLoop, 0, len(r.loops))
	for _, l := range r.loops {
		out = append(out, l)
	}
	return out
}
