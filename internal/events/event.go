package events

import (
	"time"

	"github.com/okanlawon/pawdispatch/internal/domain"
)

type EventType string

const (
	EventAttemptRecorded   EventType = "ATTEMPT_RECORDED"
	EventDispatchCompleted EventType = "DISPATCH_COMPLETED"
)

// DispatchEvent is emitted per recorded attempt and once per completed
// dispatch, for monitoring consumers.
type DispatchEvent struct {
	Type          EventType             `json:"type"`
	RequestID     string                `json:"request_id"`
	ClinicID      string                `json:"clinic_id,omitempty"`
	Channel       domain.Channel        `json:"channel,omitempty"`
	Outcome       domain.AttemptOutcome `json:"outcome,omitempty"`
	Simulated     bool                  `json:"simulated,omitempty"`
	OverallStatus domain.OverallStatus  `json:"overall_status,omitempty"`
	Timestamp     time.Time             `json:"timestamp"`
}
