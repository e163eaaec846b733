// Package metrics is a tiny in-process counters/gauges surface — not a
// push-based pipeline, just the lightweight atomics the teacher's core
// request path uses internally, exposed through TenantRuntime.Status.
package metrics

import "sync/atomic"

// Counters tracks per-tenant operational counts.
type Counters struct {
	truncatedRuns     int64
	cyclesDiscovered  int64
	webhookRetries    int64
	tenantBusyRejects int64
}

func (c *Counters) IncTruncated()          { atomic.AddInt64(&c.truncatedRuns, 1) }
func (c *Counters) AddCyclesDiscovered(n int) { atomic.AddInt64(&c.cyclesDiscovered, int64(n)) }
func (c *Counters) IncWebhookRetry()        { atomic.AddInt64(&c.webhookRetries, 1) }
func (c *Counters) IncTenantBusy()          { atomic.AddInt64(&c.tenantBusyRejects, 1) }

// Snapshot is a point-in-time read of every counter.
type Snapshot struct {
	TruncatedRuns     int64
	CyclesDiscovered  int64
	WebhookRetries    int64
	TenantBusyRejects int64
}

func (c *Counters) Snapshot() Snapshot {
	return Snapshot{
		TruncatedRuns:     atomic.LoadInt64(&c.truncatedRuns),
		CyclesDiscovered:  atomic.LoadInt64(&c.cyclesDiscovered),
		WebhookRetries:    atomic.LoadInt64(&c.webhookRetries),
		TenantBusyRejects: atomic.LoadInt64(&c.tenantBusyRejects),
	}
}
