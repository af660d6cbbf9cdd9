package channel

import (
	"context"
	"fmt"

	gonanoid "github.com/matoous/go-nanoid/v2"

	"github.com/okanlawon/pawdispatch/internal/domain"
)

// Adapter sends one emergency alert to one clinic through one provider.
// Send never returns an error: provider failures are converted to typed
// attempt outcomes at this boundary so one channel can never abort another.
type Adapter interface {
	Kind() domain.Channel
	// IsAvailable reports whether provider credentials are configured. When
	// false the adapter runs in simulation mode.
	IsAvailable() bool
	Send(ctx context.Context, clinic *domain.Clinic, req *domain.EmergencyRequest) domain.DispatchAttempt
}

// alertText renders the human-readable alert body shared by both providers.
func alertText(req *domain.EmergencyRequest) string {
	p := req.Payload
	return fmt.Sprintf("Pet emergency: %s. %s. Location: %.5f,%.5f. Contact: %s %s",
		p.Species, p.Description, p.Latitude, p.Longitude, p.ContactName, p.ContactPhone)
}

const simIDAlphabet = "0123456789abcdefghijklmnopqrstuvwxyz"

// simulatedMessageID fabricates a synthetic provider message id so simulated
// attempts stay distinguishable from real ones.
func simulatedMessageID() string {
	id, err := gonanoid.Generate(simIDAlphabet, 21)
	if err != nil {
		return "sim_unavailable"
	}
	return "sim_" + id
}
