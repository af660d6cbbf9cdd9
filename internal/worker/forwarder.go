// Package worker runs the monitoring bridge: it consumes dispatch outcome
// events from JetStream and forwards them to an operator webhook so partial
// and failed dispatches surface outside the service.
package worker

import (
	"context"
	"time"

	"log/slog"

	"github.com/nats-io/nats.go/jetstream"

	"github.com/okanlawon/pawdispatch/internal/httpclient"
	"github.com/okanlawon/pawdispatch/internal/retry"
	"github.com/okanlawon/pawdispatch/internal/security"
)

type Forwarder struct {
	consumer   jetstream.Consumer
	httpClient *httpclient.Client
	webhookURL string
	secret     string
	policy     retry.Policy
}

func NewForwarder(
	consumer jetstream.Consumer,
	httpClient *httpclient.Client,
	webhookURL string,
	secret string,
	policy retry.Policy,
) *Forwarder {
	return &Forwarder{
		consumer:   consumer,
		httpClient: httpClient,
		webhookURL: webhookURL,
		secret:     secret,
		policy:     policy,
	}
}

// Start fetches and forwards until ctx is cancelled.
func (f *Forwarder) Start(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
			msgs, err := f.consumer.Fetch(10, jetstream.FetchMaxWait(5*time.Second))
			if err != nil {
				slog.Error("failed to fetch dispatch events", slog.Any("error", err))
				continue
			}

			for msg := range msgs.Messages() {
				f.processMessage(ctx, msg)
			}
		}
	}
}

func (f *Forwarder) processMessage(ctx context.Context, msg jetstream.Msg) {
	if f.deliver(ctx, msg.Data()) {
		msg.Ack()
		return
	}

	attempt := 1
	if meta, err := msg.Metadata(); err == nil {
		attempt = int(meta.NumDelivered)
	}

	if f.policy.ShouldRetry(attempt + 1) {
		delay := f.policy.NextDelay(attempt - 1)
		slog.Warn("webhook forward failed, scheduling redelivery",
			slog.Int("attempt", attempt),
			slog.Duration("delay", delay),
		)
		msg.NakWithDelay(delay)
		return
	}

	slog.Error("webhook forward failed permanently, dropping event",
		slog.Int("attempts", attempt),
	)
	msg.Ack()
}

// deliver posts one event body to the operator webhook. The body is signed
// when a shared secret is configured.
func (f *Forwarder) deliver(ctx context.Context, body []byte) bool {
	var headers map[string]string
	if f.secret != "" {
		headers = map[string]string{
			"X-Signature-SHA256": security.SignPayload(f.secret, body),
		}
	}

	resp, err := f.httpClient.Post(ctx, f.webhookURL, body, headers)
	if err != nil {
		slog.Error("webhook request failed", slog.Any("error", err))
		return false
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		slog.Error("webhook rejected event", slog.Int("status", resp.StatusCode))
		return false
	}
	return true
}
