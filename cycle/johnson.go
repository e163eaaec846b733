// Package cycle enumerates elementary directed cycles inside a strongly
// connected component using an iterative form of Johnson's algorithm with
// blocking sets, bounded by depth, per-SCC and global cycle counts, and
// wall-clock time.
package cycle

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/barterlabs/loopengine/bterr"
	"github.com/barterlabs/loopengine/graph"
	"github.com/barterlabs/loopengine/scc"
)

// Config bounds a single enumerator run, tenant-configurable per spec.md §6.
type Config struct {
	MaxDepth               int
	MaxCyclesPerSCC        int
	MaxCollectionExpansion int
	// DisableCollectionTrading mirrors a tenant's enableCollectionTrading
	// config: when true, edges justified only by a standing collection want
	// are not traversed.
	DisableCollectionTrading bool
}

func DefaultConfig() Config {
	return Config{
		MaxDepth:               10,
		MaxCyclesPerSCC:        1000,
		MaxCollectionExpansion: graph.DefaultMaxCollectionExpansion,
	}
}

// ErrTimeout is not returned by Find: when the shared Budget's wall-clock
// deadline expires mid-enumeration, Find returns the cycles found so far with
// truncated set to true and a nil error.
var ErrTimeout = fmt.Errorf("cycle: enumeration timed out")

// Enumerator finds elementary cycles within one SCC at a time.
type Enumerator struct {
	cfg Config
}

func New(cfg Config) *Enumerator {
	if cfg.MaxDepth <= 0 {
		cfg.MaxDepth = DefaultConfig().MaxDepth
	}
	if cfg.MaxDepth > 12 {
		cfg.MaxDepth = 12
	}
	if cfg.MaxCyclesPerSCC <= 0 {
		cfg.MaxCyclesPerSCC = DefaultConfig().MaxCyclesPerSCC
	}
	if cfg.MaxCollectionExpansion <= 0 {
		cfg.MaxCollectionExpansion = DefaultConfig().MaxCollectionExpansion
	}
	return &Enumerator{cfg: cfg}
}

// circuitFrame is one explicit-stack activation record, standing in for a
// recursive circuit(v) call in Johnson's original formulation.
type circuitFrame struct {
	v     string
	succs []string
	idx   int
	found bool
}

type circuitState struct {
	blocked map[string]bool
	b       map[string][]string // B[w] = vertices to unblock when w unblocks
	path    []string
}

// Find enumerates elementary cycles within sccVertices (assumed to already
// be one strongly connected component, as returned by scc.Finder), reusing
// the SCC finder internally to re-decompose the remainder after each start
// vertex is retired, exactly as Johnson's reduction describes. It honors
// budget (shared across SCCs in one orchestrator run) and cooperatively
// checks ctx every 1024 DFS pops.
func (e *Enumerator) Find(ctx context.Context, p *graph.Projection, sccVertices []string, budget *Budget) ([][]string, bool, error) {
	vertices := append([]string(nil), sccVertices...)
	sort.Strings(vertices)

	finder := scc.New(scc.Config{
		MaxVertices:              len(vertices) + 1,
		Timeout:                  time.Hour, // bounded by the shared Budget instead
		MaxCollectionExpansion:   e.cfg.MaxCollectionExpansion,
		DisableCollectionTrading: e.cfg.DisableCollectionTrading,
	})

	var cycles [][]string
	perSCCCount := 0
	pops := 0

	for len(vertices) > 0 {
		select {
		case <-ctx.Done():
			return cycles, true, bterr.ErrCancelled{Op: "cycle.Find"}
		default:
		}
		if budget.Exhausted() {
			return cycles, true, nil
		}

		s := vertices[0]
		remaining := vertices // vertices >= s by construction (sorted, s popped below)

		subSCCs, err := finder.Find(ctx, p, remaining)
		if err != nil {
			return cycles, true, err
		}

		var sccOfS []string
		for _, sc := range subSCCs {
			if containsSorted(sc.Vertices, s) {
				sccOfS = sc.Vertices
				break
			}
		}
		if sccOfS == nil {
			// s participates in no cycle among the remaining vertices; retire it.
			vertices = vertices[1:]
			continue
		}

		found, truncated, err := e.runCircuit(ctx, p, sccOfS, s, budget, &pops)
		cycles = append(cycles, found...)
		perSCCCount += len(found)
		if err != nil {
			return cycles, true, err
		}
		if truncated || perSCCCount >= e.cfg.MaxCyclesPerSCC {
			return cycles, true, nil
		}

		vertices = vertices[1:]
	}

	return cycles, false, nil
}

func (e *Enumerator) runCircuit(ctx context.Context, p *graph.Projection, sccVertices []string, s string, budget *Budget, pops *int) ([][]string, bool, error) {
	st := &circuitState{blocked: map[string]bool{}, b: map[string][]string{}}
	var out [][]string

	stack := []*circuitFrame{{v: s, succs: p.Successors(s, sccVertices, e.cfg.MaxCollectionExpansion, e.cfg.DisableCollectionTrading)}}
	st.blocked[s] = true
	st.path = append(st.path, s)

	for len(stack) > 0 {
		top := stack[len(stack)-1]

		*pops++
		if *pops%1024 == 0 {
			select {
			case <-ctx.Done():
				return out, true, bterr.ErrCancelled{Op: "cycle.runCircuit"}
			default:
			}
			if budget.Exhausted() {
				return out, true, nil
			}
		}

		if len(st.path) > e.cfg.MaxDepth {
			// depth exceeded: stop extending this path, behave as exhausted
			top.idx = len(top.succs)
		}

		if top.idx < len(top.succs) {
			w := top.succs[top.idx]
			top.idx++

			if w == s {
				if !budget.TryConsume() {
					return out, true, nil
				}
				cycle := append([]string(nil), st.path...)
				out = append(out, cycle)
				top.found = true
				continue
			}

			if !st.blocked[w] {
				stack = append(stack, &circuitFrame{v: w, succs: p.Successors(w, sccVertices, e.cfg.MaxCollectionExpansion, e.cfg.DisableCollectionTrading)})
				st.blocked[w] = true
				st.path = append(st.path, w)
			}
			continue
		}

		// exhausted v's successors: pop frame
		stack = stack[:len(stack)-1]
		st.path = st.path[:len(st.path)-1]

		if top.found {
			unblock(st, top.v)
		} else {
			for _, w := range top.succs {
				st.b[w] = appendUnique(st.b[w], top.v)
			}
		}

		if len(stack) > 0 {
			parent := stack[len(stack)-1]
			if top.found {
				parent.found = true
			}
		}
	}

	return out, false, nil
}

func unblock(st *circuitState, v string) {
	st.blocked[v] = false
	for _, w := range st.b[v] {
		if st.blocked[w] {
			unblock(st, w)
		}
	}
	delete(st.b, v)
}

func appendUnique(ss []string, s string) []string {
	for _, existing := range ss {
		if existing == s {
			return ss
		}
	}
	return append(ss, s)
}

func containsSorted(ss []string, target string) bool {
	i := sort.SearchStrings(ss, target)
	return i < len(ss) && ss[i] == target
}
