package webhook

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/barterlabs/loopengine/graph"
	"github.com/barterlabs/loopengine/internal/metrics"
	"github.com/barterlabs/loopengine/registry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type scriptedTransport struct {
	mu       sync.Mutex
	statuses []int
	calls    int
	lastReq  Request
}

func (t *scriptedTransport) Deliver(ctx context.Context, req Request) (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	idx := t.calls
	t.calls++
	t.lastReq = req
	if idx >= len(t.statuses) {
		return t.statuses[len(t.statuses)-1], nil
	}
	return t.statuses[idx], nil
}

func sampleEvent() registry.Event {
	steps := []graph.Step{
		{From: "A", To: "B", Nfts: []graph.NFT{{ID: "n1", EstimatedValue: 3}}},
		{From: "B", To: "A", Nfts: []graph.NFT{{ID: "n2", EstimatedValue: 3}}},
	}
	loop := graph.TradeLoop{ID: graph.CanonicalLoopID(steps), Steps: steps, Participants: 2, QualityScore: 0.9}
	return registry.Event{Kind: registry.EventDiscovered, Loop: loop, Trigger: "want_added"}
}

func TestDispatch_SucceedsOnFirstAttempt(t *testing.T) {
	transport := &scriptedTransport{statuses: []int{200}}
	d := New(TenantRef{ID: "t1", Name: "Tenant One"}, Config{URL: "https://example.test/hook", Secret: "s3cr3t", Enabled: true}, transport, &metrics.Counters{})

	d.Dispatch(context.Background(), sampleEvent())
	d.Drain(context.Background())

	attempts := d.Attempts()
	require.Len(t, attempts, 1)
	assert.Equal(t, 200, attempts[0].StatusCode)
}

func TestDispatch_RetriesThenSucceeds(t *testing.T) {
	origDelays := retryDelays
	retryDelays = []time.Duration{time.Millisecond, 2 * time.Millisecond, 3 * time.Millisecond}
	defer func() { retryDelays = origDelays }()

	transport := &scriptedTransport{statuses: []int{500, 500, 200}}
	m := &metrics.Counters{}
	d := New(TenantRef{ID: "t1", Name: "Tenant One"}, Config{URL: "https://example.test/hook", Secret: "s3cr3t", Enabled: true}, transport, m)

	d.Dispatch(context.Background(), sampleEvent())
	d.Drain(context.Background())

	attempts := d.Attempts()
	require.Len(t, attempts, 3)
	assert.Equal(t, 200, attempts[2].StatusCode)
	assert.Equal(t, int64(2), m.Snapshot().WebhookRetries, "two retries after the first failed attempt must increment the counter")
}

func TestSignature_VerifiesAgainstDeliveredPayload(t *testing.T) {
	ev := sampleEvent()
	env := buildEnvelope(TenantRef{ID: "t1", Name: "Tenant One"}, ev, time.Now())
	canonical, err := env.canonicalJSON()
	require.NoError(t, err)

	sig := Sign("s3cr3t", canonical)
	assert.True(t, VerifySignature("s3cr3t", canonical, sig))
	assert.False(t, VerifySignature("wrong-secret", canonical, sig))
}

func TestDispatch_DisabledSkipsDelivery(t *testing.T) {
	transport := &scriptedTransport{statuses: []int{200}}
	d := New(TenantRef{ID: "t1"}, Config{Enabled: false}, transport, &metrics.Counters{})

	d.Dispatch(context.Background(), sampleEvent())
	d.Drain(context.Background())

	assert.Empty(t, d.Attempts())
}
