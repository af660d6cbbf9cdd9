package channel

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"log/slog"

	"github.com/okanlawon/pawdispatch/internal/config"
	"github.com/okanlawon/pawdispatch/internal/domain"
	"github.com/okanlawon/pawdispatch/internal/httpclient"
	"github.com/okanlawon/pawdispatch/internal/logging"
)

// PushAdapter targets a clinic's registered device token through the push
// provider's HTTP send API.
type PushAdapter struct {
	cfg        config.PushProviderConfig
	httpClient *httpclient.Client
}

func NewPushAdapter(cfg config.PushProviderConfig, httpClient *httpclient.Client) *PushAdapter {
	return &PushAdapter{cfg: cfg, httpClient: httpClient}
}

func (a *PushAdapter) Kind() domain.Channel {
	return domain.ChannelPush
}

func (a *PushAdapter) IsAvailable() bool {
	return a.cfg.Endpoint != "" && a.cfg.ServerKey != ""
}

type pushSendRequest struct {
	To           string `json:"to"`
	Title        string `json:"title"`
	Body         string `json:"body"`
	CollapseKey  string `json:"collapse_key,omitempty"`
	TimeToLiveMS int64  `json:"ttl_ms,omitempty"`
}

type pushSendResponse struct {
	MessageID string `json:"message_id"`
}

func (a *PushAdapter) Send(ctx context.Context, clinic *domain.Clinic, req *domain.EmergencyRequest) domain.DispatchAttempt {
	attempt := domain.DispatchAttempt{
		ClinicID:    clinic.ID,
		Channel:     domain.ChannelPush,
		AttemptedAt: time.Now().UTC(),
	}

	l := logging.FromContext(ctx)

	if !a.IsAvailable() {
		attempt.Outcome = domain.OutcomeSent
		attempt.Simulated = true
		attempt.MessageID = simulatedMessageID()
		l.Info("push send simulated (provider not configured)",
			slog.String("clinic_id", clinic.ID),
			slog.String("message_id", attempt.MessageID),
		)
		return attempt
	}

	body, err := json.Marshal(pushSendRequest{
		To:           clinic.PushToken,
		Title:        "Pet emergency nearby",
		Body:         alertText(req),
		CollapseKey:  req.RequestID,
		TimeToLiveMS: (10 * time.Minute).Milliseconds(),
	})
	if err != nil {
		attempt.Outcome = domain.OutcomeProviderError
		attempt.Error = err.Error()
		return attempt
	}

	resp, err := a.httpClient.Post(ctx, a.cfg.Endpoint, body, map[string]string{
		"Authorization": "key=" + a.cfg.ServerKey,
	})
	if err != nil {
		attempt.Outcome = domain.OutcomeProviderError
		attempt.Error = err.Error()
		l.Warn("push send failed", slog.String("clinic_id", clinic.ID), slog.Any("error", err))
		return attempt
	}

	fillFromStatus(&attempt, resp)
	if attempt.Outcome == domain.OutcomeSent {
		var parsed pushSendResponse
		if err := json.Unmarshal([]byte(resp.Body), &parsed); err == nil {
			attempt.MessageID = parsed.MessageID
		}
	}
	return attempt
}

// fillFromStatus maps a provider HTTP status onto an attempt outcome:
// 2xx sent, 429/503 quota or capacity exhaustion, anything else an error.
func fillFromStatus(attempt *domain.DispatchAttempt, resp *httpclient.Response) {
	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		attempt.Outcome = domain.OutcomeSent
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode == http.StatusServiceUnavailable:
		attempt.Outcome = domain.OutcomeProviderUnavailable
		attempt.Error = resp.Body
	default:
		attempt.Outcome = domain.OutcomeProviderError
		attempt.Error = resp.Body
	}
}
