package cycle

import (
	"math"
	"sort"
	"time"

	"github.com/barterlabs/loopengine/graph"
)

// BuildLoop turns a candidate cycle (a path of wallet ids, first == the
// start vertex, implicitly closing back to itself) into a TradeLoop. Exactly
// one NFT is chosen per step: the candidate whose estimatedValue is closest
// to the cycle's median candidate value, tie-broken lexicographically by
// nftId. Rejection lists were already applied when EdgeNFTs built each
// step's candidate set, so no further filtering happens here. Returns false
// if any step's edge has no surviving candidates (e.g. a rejection applied
// between enumeration and conversion).
func BuildLoop(p *graph.Projection, path []string, maxCollectionExpansion int, disableCollectionTrading bool) (graph.TradeLoop, bool) {
	n := len(path)
	if n < 2 {
		return graph.TradeLoop{}, false
	}

	candidateSets := make([][]graph.NFT, n)
	var allValues []float64
	for i := 0; i < n; i++ {
		from := path[i]
		to := path[(i+1)%n]
		cands := p.EdgeNFTs(from, to, maxCollectionExpansion, disableCollectionTrading)
		if len(cands) == 0 {
			return graph.TradeLoop{}, false
		}
		candidateSets[i] = cands
		for _, c := range cands {
			allValues = append(allValues, c.EstimatedValue)
		}
	}

	median := medianOf(allValues)

	steps := make([]graph.Step, n)
	for i := 0; i < n; i++ {
		from := path[i]
		to := path[(i+1)%n]
		chosen := closestToMedian(candidateSets[i], median)
		steps[i] = graph.Step{From: from, To: to, Nfts: []graph.NFT{chosen}}
	}

	loop := graph.TradeLoop{
		Steps:        steps,
		Participants: n,
		DiscoveredAt: time.Now().UTC(),
	}
	loop.ID = graph.CanonicalLoopID(steps)
	return loop, true
}

func closestToMedian(cands []graph.NFT, median float64) graph.NFT {
	sorted := append([]graph.NFT(nil), cands...)
	sort.Slice(sorted, func(i, j int) bool {
		di := math.Abs(sorted[i].EstimatedValue - median)
		dj := math.Abs(sorted[j].EstimatedValue - median)
		if di != dj {
			return di < dj
		}
		return sorted[i].ID < sorted[j].ID
	})
	return sorted[0]
}

func medianOf(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)
	mid := len(sorted) / 2
	if len(sorted)%2 == 1 {
		return sorted[mid]
	}
	return (sorted[mid-1] + sorted[mid]) / 2
}
