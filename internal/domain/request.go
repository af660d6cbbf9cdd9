package domain

import (
	"fmt"
	"time"
)

type SubmissionState string

const (
	SubmissionStatePending      SubmissionState = "PENDING"
	SubmissionStateSent         SubmissionState = "SENT"
	SubmissionStateAcknowledged SubmissionState = "ACKNOWLEDGED"
	SubmissionStateFailed       SubmissionState = "FAILED"
)

// EmergencyPayload carries the details of one reported incident.
type EmergencyPayload struct {
	Species      string  `json:"species"`
	Description  string  `json:"description"`
	Latitude     float64 `json:"latitude"`
	Longitude    float64 `json:"longitude"`
	ContactName  string  `json:"contact_name"`
	ContactPhone string  `json:"contact_phone"`
}

// EmergencyRequest is one user-reported incident. RequestID is assigned by
// the client at creation time and never regenerated on retry; the server
// deduplicates on it.
type EmergencyRequest struct {
	RequestID       string           `json:"request_id"`
	CreatedAt       time.Time        `json:"created_at"`
	Payload         EmergencyPayload `json:"payload"`
	SubmissionState SubmissionState  `json:"submission_state,omitempty"`
}

func (r *EmergencyRequest) Validate() error {
	if r.RequestID == "" {
		return fmt.Errorf("request_id is required")
	}
	if r.Payload.Species == "" {
		return fmt.Errorf("species is required")
	}
	if r.Payload.ContactPhone == "" {
		return fmt.Errorf("contact_phone is required")
	}
	if r.Payload.Latitude < -90 || r.Payload.Latitude > 90 {
		return fmt.Errorf("latitude %f out of range", r.Payload.Latitude)
	}
	if r.Payload.Longitude < -180 || r.Payload.Longitude > 180 {
		return fmt.Errorf("longitude %f out of range", r.Payload.Longitude)
	}
	return nil
}
