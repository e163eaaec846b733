// Package webhook dispatches trade-loop lifecycle events to an external,
// transport-agnostic collaborator, retrying transient failures on a fixed
// backoff schedule and recording every delivery attempt in a bounded ring
// for inspection.
package webhook

import (
	"context"
	"sync"
	"time"

	"github.com/sourcegraph/conc"

	"github.com/barterlabs/loopengine/internal/logger"
	"github.com/barterlabs/loopengine/internal/metrics"
	"github.com/barterlabs/loopengine/registry"
)

// DefaultAttemptRingSize bounds the in-memory delivery attempt log.
const DefaultAttemptRingSize = 1000

var retryDelays = []time.Duration{1 * time.Second, 5 * time.Second, 15 * time.Second}

const requestTimeout = 10 * time.Second

// Request is what the Dispatcher hands to an external Transport.
type Request struct {
	URL     string
	Headers map[string]string
	Body    []byte
}

// Transport performs the actual HTTP call. It is supplied by an external
// collaborator; the dispatcher never makes network calls itself.
type Transport interface {
	Deliver(ctx context.Context, req Request) (statusCode int, err error)
}

// Config is one tenant's webhook configuration.
type Config struct {
	URL     string
	Secret  string
	Enabled bool
}

// Attempt records one delivery attempt for inspection/testing.
type Attempt struct {
	EventKind  registry.EventKind
	LoopID     string
	AttemptNum int
	StatusCode int
	Err        error
	At         time.Time
	Delay      time.Duration
	Signature  string
}

// Dispatcher queues and delivers webhook events for one tenant. It owns an
// independent retry loop per event and is tied to the tenant's lifecycle via
// ctx passed to Dispatch / Drain.
type Dispatcher struct {
	tenant    TenantRef
	cfg       Config
	transport Transport
	metrics   *metrics.Counters

	wg conc.WaitGroup

	attemptsMu sync.Mutex
	attempts   []Attempt
	ringSize   int
}

func New(tenant TenantRef, cfg Config, transport Transport, m *metrics.Counters) *Dispatcher {
	return &Dispatcher{
		tenant:    tenant,
		cfg:       cfg,
		transport: transport,
		metrics:   m,
		ringSize:  DefaultAttemptRingSize,
	}
}

// Dispatch enqueues ev for delivery. It returns immediately; delivery
// (including retries) runs on a background goroutine tracked by the
// dispatcher's wait group so Drain can block until it's done.
func (d *Dispatcher) Dispatch(ctx context.Context, ev registry.Event) {
	if !d.cfg.Enabled || d.cfg.URL == "" {
		return
	}
	d.wg.Go(func() {
		d.deliverWithRetry(ctx, ev)
	})
}

func (d *Dispatcher) deliverWithRetry(ctx context.Context, ev registry.Event) {
	env := buildEnvelope(d.tenant, ev, time.Now())
	canonical, err := env.canonicalJSON()
	if err != nil {
		logger.For(ctx).WithError(err).Error("webhook: failed to marshal envelope")
		return
	}
	sig := Sign(d.cfg.Secret, canonical)
	body, err := env.withSignature(sig)
	if err != nil {
		logger.For(ctx).WithError(err).Error("webhook: failed to marshal signed envelope")
		return
	}

	req := Request{
		URL: d.cfg.URL,
		Headers: map[string]string{
			"X-Event":      string(ev.Kind),
			"X-Tenant":     d.tenant.ID,
			"X-Signature":  sig,
			"X-Timestamp":  env.Timestamp,
			"Content-Type": "application/json",
		},
		Body: body,
	}

	for attemptNum := 1; attemptNum <= len(retryDelays); attemptNum++ {
		var delay time.Duration
		if attemptNum > 1 {
			if d.metrics != nil {
				d.metrics.IncWebhookRetry()
			}
			delay = retryDelays[attemptNum-2]
			select {
			case <-ctx.Done():
				return
			case <-time.After(delay):
			}
		}

		attemptCtx, cancel := context.WithTimeout(ctx, requestTimeout)
		status, deliverErr := d.transport.Deliver(attemptCtx, req)
		cancel()

		d.record(Attempt{
			EventKind:  ev.Kind,
			LoopID:     ev.Loop.ID,
			AttemptNum: attemptNum,
			StatusCode: status,
			Err:        deliverErr,
			At:         time.Now(),
			Delay:      delay,
			Signature:  sig,
		})

		if deliverErr == nil && status >= 200 && status < 300 {
			return
		}
	}

	logger.For(ctx).WithFields(map[string]any{
		"loopId": ev.Loop.ID,
		"event":  ev.Kind,
	}).Warn("webhook: exhausted retries, entering max_retries terminal state")
}

func (d *Dispatcher) record(a Attempt) {
	d.attemptsMu.Lock()
	defer d.attemptsMu.Unlock()
	d.attempts = append(d.attempts, a)
	if len(d.attempts) > d.ringSize {
		d.attempts = d.attempts[len(d.attempts)-d.ringSize:]
	}
}

// Attempts returns a copy of the recorded delivery attempts, most recent
// last.
func (d *Dispatcher) Attempts() []Attempt {
	d.attemptsMu.Lock()
	defer d.attemptsMu.Unlock()
	out := make([]Attempt, len(d.attempts))
	copy(out, d.attempts)
	return out
}

// Drain blocks until every in-flight delivery (including retries already in
// progress) completes, honoring ctx's deadline for the tenant shutdown path.
func (d *Dispatcher) Drain(ctx context.Context) {
	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
	}
}
