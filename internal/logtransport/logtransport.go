// Package logtransport is a webhook.Transport that logs every delivery
// instead of making an HTTP call — the default for cmd/barterd local runs,
// where there's no real collaborator endpoint to hit.
package logtransport

import (
	"context"

	"github.com/barterlabs/loopengine/internal/logger"
	"github.com/barterlabs/loopengine/webhook"
)

type Transport struct{}

func New() *Transport { return &Transport{} }

func (t *Transport) Deliver(ctx context.Context, req webhook.Request) (int, error) {
	logger.For(ctx).WithFields(map[string]any{
		"url":     req.URL,
		"headers": req.Headers,
	}).Info("webhook delivery (log-only transport)")
	return 200, nil
}
