package metrics

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCounters_SnapshotReflectsIncrements(t *testing.T) {
	var c Counters
	c.IncTruncated()
	c.AddCyclesDiscovered(3)
	c.IncWebhookRetry()
	c.IncWebhookRetry()
	c.IncTenantBusy()

	snap := c.Snapshot()
	assert.Equal(t, int64(1), snap.TruncatedRuns)
	assert.Equal(t, int64(3), snap.CyclesDiscovered)
	assert.Equal(t, int64(2), snap.WebhookRetries)
	assert.Equal(t, int64(1), snap.TenantBusyRejects)
}
