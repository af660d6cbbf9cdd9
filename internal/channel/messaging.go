package channel

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"log/slog"

	"github.com/okanlawon/pawdispatch/internal/config"
	"github.com/okanlawon/pawdispatch/internal/domain"
	"github.com/okanlawon/pawdispatch/internal/httpclient"
	"github.com/okanlawon/pawdispatch/internal/logging"
	"github.com/okanlawon/pawdispatch/internal/security"
)

// MessagingAdapter sends a per-recipient message to a clinic's registered
// number through the messaging provider's HTTP API. Requests carry an
// HMAC-SHA256 body signature when a signing secret is configured.
type MessagingAdapter struct {
	cfg        config.MessagingProviderConfig
	httpClient *httpclient.Client
}

func NewMessagingAdapter(cfg config.MessagingProviderConfig, httpClient *httpclient.Client) *MessagingAdapter {
	return &MessagingAdapter{cfg: cfg, httpClient: httpClient}
}

func (a *MessagingAdapter) Kind() domain.Channel {
	return domain.ChannelMessaging
}

func (a *MessagingAdapter) IsAvailable() bool {
	return a.cfg.Endpoint != "" && a.cfg.Token != ""
}

type messagingSendRequest struct {
	To   string `json:"to"`
	Type string `json:"type"`
	Text string `json:"text"`
}

type messagingSendResponse struct {
	ID string `json:"id"`
}

func (a *MessagingAdapter) Send(ctx context.Context, clinic *domain.Clinic, req *domain.EmergencyRequest) domain.DispatchAttempt {
	attempt := domain.DispatchAttempt{
		ClinicID:    clinic.ID,
		Channel:     domain.ChannelMessaging,
		AttemptedAt: time.Now().UTC(),
	}

	l := logging.FromContext(ctx)

	if !a.IsAvailable() {
		attempt.Outcome = domain.OutcomeSent
		attempt.Simulated = true
		attempt.MessageID = simulatedMessageID()
		l.Info("messaging send simulated (provider not configured)",
			slog.String("clinic_id", clinic.ID),
			slog.String("message_id", attempt.MessageID),
		)
		return attempt
	}

	body, err := json.Marshal(messagingSendRequest{
		To:   clinic.MessagingNumber,
		Type: "text",
		Text: alertText(req),
	})
	if err != nil {
		attempt.Outcome = domain.OutcomeProviderError
		attempt.Error = err.Error()
		return attempt
	}

	headers := map[string]string{
		"Authorization": "Bearer " + a.cfg.Token,
	}
	if a.cfg.Secret != "" {
		headers["X-Signature-SHA256"] = security.SignPayload(a.cfg.Secret, body)
	}

	url := strings.TrimRight(a.cfg.Endpoint, "/") + "/messages"
	resp, err := a.httpClient.Post(ctx, url, body, headers)
	if err != nil {
		attempt.Outcome = domain.OutcomeProviderError
		attempt.Error = err.Error()
		l.Warn("messaging send failed", slog.String("clinic_id", clinic.ID), slog.Any("error", err))
		return attempt
	}

	fillFromStatus(&attempt, resp)
	if attempt.Outcome == domain.OutcomeSent {
		var parsed messagingSendResponse
		if err := json.Unmarshal([]byte(resp.Body), &parsed); err == nil {
			attempt.MessageID = parsed.ID
		}
	}
	return attempt
}
