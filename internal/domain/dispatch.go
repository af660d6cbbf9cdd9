package domain

import "time"

type AttemptOutcome string

const (
	OutcomeSent                AttemptOutcome = "SENT"
	OutcomeProviderUnavailable AttemptOutcome = "PROVIDER_UNAVAILABLE"
	OutcomeProviderError       AttemptOutcome = "PROVIDER_ERROR"
	OutcomeSkipped             AttemptOutcome = "SKIPPED"
)

type OverallStatus string

const (
	StatusFullySent     OverallStatus = "FULLY_SENT"
	StatusPartiallySent OverallStatus = "PARTIALLY_SENT"
	StatusNoneSent      OverallStatus = "NONE_SENT"
)

// DispatchAttempt is one (clinic, channel) send operation. Immutable once
// recorded.
type DispatchAttempt struct {
	ClinicID    string         `json:"clinic_id"`
	Channel     Channel        `json:"channel"`
	Outcome     AttemptOutcome `json:"outcome"`
	MessageID   string         `json:"message_id,omitempty"`
	Simulated   bool           `json:"simulated,omitempty"`
	Error       string         `json:"error,omitempty"`
	AttemptedAt time.Time      `json:"attempted_at"`
}

func (a *DispatchAttempt) Succeeded() bool {
	return a.Outcome == OutcomeSent
}

// DispatchResult is the consolidated outcome of dispatching one emergency
// request. Cached by request ID so retried submissions replay the original
// outcome unchanged.
type DispatchResult struct {
	RequestID          string            `json:"request_id"`
	Attempts           []DispatchAttempt `json:"attempts"`
	OverallStatus      OverallStatus     `json:"overall_status"`
	MatchedClinicCount int               `json:"matched_clinic_count"`
	NoCandidates       bool              `json:"no_candidates,omitempty"`
	DispatchedAt       time.Time         `json:"dispatched_at"`
}

// ComputeOverallStatus derives the status from the recorded attempts:
// FULLY_SENT iff every matched clinic has at least one successful attempt,
// NONE_SENT iff no attempt anywhere succeeded, PARTIALLY_SENT otherwise.
func ComputeOverallStatus(attempts []DispatchAttempt, matchedClinics int) OverallStatus {
	reached := make(map[string]bool)
	for _, a := range attempts {
		if a.Succeeded() {
			reached[a.ClinicID] = true
		}
	}
	switch {
	case len(reached) == 0:
		return StatusNoneSent
	case len(reached) == matchedClinics:
		return StatusFullySent
	default:
		return StatusPartiallySent
	}
}
