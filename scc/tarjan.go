// Package scc finds strongly connected components of a tenant's induced
// wallet subgraph using an iterative (explicit-stack) Tarjan's algorithm, so
// that arbitrarily deep graphs never blow the goroutine's call stack.
package scc

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/barterlabs/loopengine/bterr"
	"github.com/barterlabs/loopengine/graph"
)

// Config bounds a single SCC run.
type Config struct {
	MaxVertices            int
	Timeout                time.Duration
	BatchLogThreshold      int
	MaxCollectionExpansion int
	// DisableCollectionTrading mirrors a tenant's enableCollectionTrading
	// config: when true, edges justified only by a standing collection want
	// are not traversed.
	DisableCollectionTrading bool
}

// DefaultConfig matches spec.md §4.3's defaults.
func DefaultConfig() Config {
	return Config{
		MaxVertices:            100_000,
		Timeout:                45 * time.Second,
		BatchLogThreshold:      100_000,
		MaxCollectionExpansion: graph.DefaultMaxCollectionExpansion,
	}
}

// SCC is one strongly connected component, vertices sorted by walletId.
type SCC struct {
	Vertices []string
}

// ErrSCCExceedsMaxVertices is returned when the induced subgraph handed to
// Find is larger than Config.MaxVertices; the caller skips this subgraph and
// logs, continuing with a partial result.
type ErrSCCExceedsMaxVertices struct {
	Requested int
	Max       int
}

func (e ErrSCCExceedsMaxVertices) Error() string {
	return fmt.Sprintf("induced subgraph has %d vertices, exceeds max %d", e.Requested, e.Max)
}

// Finder runs Tarjan's algorithm over a Projection restricted to a vertex
// set supplied by the caller (normally the forward/reverse closure of an
// AffectedSet, computed by the orchestrator).
type Finder struct {
	cfg Config
}

func New(cfg Config) *Finder {
	if cfg.MaxVertices <= 0 {
		cfg.MaxVertices = DefaultConfig().MaxVertices
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultConfig().Timeout
	}
	if cfg.MaxCollectionExpansion <= 0 {
		cfg.MaxCollectionExpansion = DefaultConfig().MaxCollectionExpansion
	}
	return &Finder{cfg: cfg}
}

type tarjanState struct {
	index   map[string]int
	low     map[string]int
	onStack map[string]struct{}
	stack   []string
	counter int
	sccs    []SCC
}

// frame is one explicit-stack activation record standing in for a recursive
// strongconnect(v) call; childIdx tracks how far through v's successors we
// have iterated.
type frame struct {
	v         string
	succs     []string
	childIdx  int
}

// Find returns every SCC of size >= 2 within vertices, sorted by size
// ascending. Size-1 components are never elementary cycles (self-trades are
// rejected upstream), so they're dropped without special-casing 2-cycles —
// a mutual A<->B relationship surfaces as its own size-2 SCC.
func (f *Finder) Find(ctx context.Context, p *graph.Projection, vertices []string) ([]SCC, error) {
	if len(vertices) > f.cfg.MaxVertices {
		return nil, ErrSCCExceedsMaxVertices{Requested: len(vertices), Max: f.cfg.MaxVertices}
	}

	deadline := time.Now().Add(f.cfg.Timeout)
	sorted := append([]string(nil), vertices...)
	sort.Strings(sorted)

	st := &tarjanState{
		index:   map[string]int{},
		low:     map[string]int{},
		onStack: map[string]struct{}{},
	}

	relax := 0
	checkEvery := 1024

	for _, v := range sorted {
		if _, seen := st.index[v]; seen {
			continue
		}
		if err := f.strongconnect(ctx, p, sorted, st, v, deadline, &relax, checkEvery); err != nil {
			return st.sccs, err
		}
	}

	sort.Slice(st.sccs, func(i, j int) bool { return len(st.sccs[i].Vertices) < len(st.sccs[j].Vertices) })
	return st.sccs, nil
}

func (f *Finder) strongconnect(ctx context.Context, p *graph.Projection, vertices []string, st *tarjanState, start string, deadline time.Time, relax *int, checkEvery int) error {
	work := []*frame{{v: start, succs: p.Successors(start, vertices, f.cfg.MaxCollectionExpansion, f.cfg.DisableCollectionTrading)}}
	st.index[start] = st.counter
	st.low[start] = st.counter
	st.counter++
	st.stack = append(st.stack, start)
	st.onStack[start] = struct{}{}

	for len(work) > 0 {
		top := work[len(work)-1]

		*relax++
		if *relax%checkEvery == 0 {
			select {
			case <-ctx.Done():
				return bterr.ErrCancelled{Op: "scc.Find"}
			default:
			}
			if time.Now().After(deadline) {
				return fmt.Errorf("scc: %w", errTimeout)
			}
		}

		if top.childIdx < len(top.succs) {
			w := top.succs[top.childIdx]
			top.childIdx++

			if _, seen := st.index[w]; !seen {
				st.index[w] = st.counter
				st.low[w] = st.counter
				st.counter++
				st.stack = append(st.stack, w)
				st.onStack[w] = struct{}{}
				work = append(work, &frame{v: w, succs: p.Successors(w, vertices, f.cfg.MaxCollectionExpansion, f.cfg.DisableCollectionTrading)})
				continue
			}
			if _, on := st.onStack[w]; on {
				if st.index[w] < st.low[top.v] {
					st.low[top.v] = st.index[w]
				}
			}
			continue
		}

		// all successors processed: pop, propagate low-link to parent
		work = work[:len(work)-1]
		if len(work) > 0 {
			parent := work[len(work)-1]
			if st.low[top.v] < st.low[parent.v] {
				st.low[parent.v] = st.low[top.v]
			}
		}

		if st.low[top.v] == st.index[top.v] {
			var members []string
			for {
				n := len(st.stack) - 1
				w := st.stack[n]
				st.stack = st.stack[:n]
				delete(st.onStack, w)
				members = append(members, w)
				if w == top.v {
					break
				}
			}
			if len(members) >= 2 {
				sort.Strings(members)
				st.sccs = append(st.sccs, SCC{Vertices: members})
			}
		}
	}

	return nil
}

var errTimeout = errors.New("timed out")

// IsTimeout reports whether err originated from the Finder's wall-clock
// budget expiring.
func IsTimeout(err error) bool {
	return errors.Is(err, errTimeout)
}
