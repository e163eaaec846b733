package tenant

import (
	"github.com/barterlabs/loopengine/bterr"
	"github.com/barterlabs/loopengine/cycle"
	"github.com/barterlabs/loopengine/graph"
	"github.com/barterlabs/loopengine/score"
	"github.com/barterlabs/loopengine/webhook"
)

// Security bounds how much a single wallet can carry, and blocks trading in
// flagged collections entirely.
type Security struct {
	MaxNFTsPerWallet      int
	MaxWantsPerWallet     int
	BlacklistedCollections []string
}

// Config is one tenant's enumerated, validated configuration (spec.md §6).
type Config struct {
	MaxDepth                int // 2..12, default 10
	MinScore                float64 // 0..1, default 0.5
	MaxLoopsPerRequest      int // default 1000
	EnableCollectionTrading bool // default true
	SCCConcurrency          int // 1..16, default 6
	Webhook                 webhook.Config
	Security                Security

	QueueCapacity     int // default 10000
	ChangeLogCapacity int // default 10000
}

// DefaultConfig returns the spec's enumerated defaults.
func DefaultConfig() Config {
	return Config{
		MaxDepth:                10,
		MinScore:                score.DefaultMinScore,
		MaxLoopsPerRequest:      1000,
		EnableCollectionTrading: true,
		SCCConcurrency:          6,
		QueueCapacity:           10_000,
		ChangeLogCapacity:       10_000,
	}
}

// Validate rejects out-of-range configuration eagerly, rather than silently
// clamping — spec.md enumerates the fields and their ranges but is silent on
// invalid-value behavior; this module treats it as InvalidInput, consistent
// with that kind being "surfaced to caller; not retried" (spec.md §7).
func (c Config) Validate() error {
	if c.MaxDepth < 2 || c.MaxDepth > 12 {
		return bterr.ErrInvalidInput{Field: "maxDepth", Reason: "must be in [2, 12]"}
	}
	if c.MinScore < 0 || c.MinScore > 1 {
		return bterr.ErrInvalidInput{Field: "minScore", Reason: "must be in [0, 1]"}
	}
	if c.MaxLoopsPerRequest <= 0 {
		return bterr.ErrInvalidInput{Field: "maxLoopsPerRequest", Reason: "must be positive"}
	}
	if c.SCCConcurrency < 1 || c.SCCConcurrency > 16 {
		return bterr.ErrInvalidInput{Field: "sccConcurrency", Reason: "must be in [1, 16]"}
	}
	if c.Webhook.Enabled && c.Webhook.URL == "" {
		return bterr.ErrInvalidInput{Field: "webhook.url", Reason: "required when webhook.enabled is true"}
	}
	return nil
}

// graphLimits translates the tenant's Security configuration into the
// graph.Limits enforced by graph.Store.AddNFT/AddWant.
func (c Config) graphLimits() graph.Limits {
	var blacklist map[string]struct{}
	if len(c.Security.BlacklistedCollections) > 0 {
		blacklist = make(map[string]struct{}, len(c.Security.BlacklistedCollections))
		for _, id := range c.Security.BlacklistedCollections {
			blacklist[id] = struct{}{}
		}
	}
	return graph.Limits{
		MaxNFTsPerWallet:       c.Security.MaxNFTsPerWallet,
		MaxWantsPerWallet:      c.Security.MaxWantsPerWallet,
		BlacklistedCollections: blacklist,
	}
}

func (c Config) cycleConfig() cycle.Config {
	return cycle.Config{
		MaxDepth:                 c.MaxDepth,
		MaxCyclesPerSCC:          1000,
		DisableCollectionTrading: !c.EnableCollectionTrading,
	}
}
