package tenant

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestConfig_DefaultIsValid(t *testing.T) {
	assert.NoError(t, DefaultConfig().Validate())
}

func TestConfig_RejectsOutOfRangeMaxDepth(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MaxDepth = 1
	err := cfg.Validate()
	assert.ErrorContains(t, err, "maxDepth")
}

func TestConfig_RejectsOutOfRangeMinScore(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MinScore = 1.5
	assert.ErrorContains(t, cfg.Validate(), "minScore")
}

func TestConfig_RejectsEnabledWebhookWithoutURL(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Webhook.Enabled = true
	assert.ErrorContains(t, cfg.Validate(), "webhook.url")
}

func TestConfig_RejectsSCCConcurrencyOutOfRange(t *testing.T) {
	cfg := DefaultConfig()
	cfg.SCCConcurrency = 0
	assert.ErrorContains(t, cfg.Validate(), "sccConcurrency")
}

func TestGraphLimits_TranslatesSecurityConfig(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Security.MaxNFTsPerWallet = 5
	cfg.Security.MaxWantsPerWallet = 10
	cfg.Security.BlacklistedCollections = []string{"rugs"}

	limits := cfg.graphLimits()
	assert.Equal(t, 5, limits.MaxNFTsPerWallet)
	assert.Equal(t, 10, limits.MaxWantsPerWallet)
	_, blacklisted := limits.BlacklistedCollections["rugs"]
	assert.True(t, blacklisted)
}

func TestCycleConfig_DisablesCollectionTradingWhenConfigured(t *testing.T) {
	cfg := DefaultConfig()
	cfg.EnableCollectionTrading = false
	assert.True(t, cfg.cycleConfig().DisableCollectionTrading)

	cfg.EnableCollectionTrading = true
	assert.False(t, cfg.cycleConfig().DisableCollectionTrading)
}
