// Package sentryutil wraps getsentry/sentry-go for the engine's error
// capture: pipeline errors and recovered panics at the TenantRuntime
// boundary, and failed change-log appends in the orchestrator, so an on-call
// human sees them even though the process keeps serving every other tenant.
package sentryutil

import (
	"time"

	"github.com/getsentry/sentry-go"
)

// flushTimeout bounds how long Flush waits for in-flight events to send.
const flushTimeout = 2 * time.Second

// Init configures the global sentry client. Safe to call with an empty dsn —
// sentry-go no-ops in that case.
func Init(dsn, env string) error {
	return sentry.Init(sentry.ClientOptions{
		Dsn:         dsn,
		Environment: env,
	})
}

// CaptureInternal reports err to Sentry if a client is configured. It never
// blocks the caller beyond sentry-go's own internal queuing.
func CaptureInternal(err error) {
	if err == nil {
		return
	}
	sentry.CaptureException(err)
}

// Flush blocks until pending events are sent or flushTimeout elapses —
// called once during process shutdown.
func Flush() {
	sentry.Flush(flushTimeout)
}
