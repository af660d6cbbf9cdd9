package domain

import "time"

// QueueEntry wraps an EmergencyRequest awaiting confirmed delivery. Owned
// exclusively by the offline submission queue; unique by request ID.
type QueueEntry struct {
	Request      EmergencyRequest `json:"request"`
	AttemptCount int              `json:"attempt_count"`
	NextRetryAt  time.Time        `json:"next_retry_at"`
	LastError    string           `json:"last_error,omitempty"`
}

// Retryable reports whether this entry should be picked up by an automatic
// drain pass at time now. Failed entries need an explicit user retry.
func (e *QueueEntry) Retryable(now time.Time) bool {
	if e.Request.SubmissionState == SubmissionStateFailed {
		return false
	}
	return !e.NextRetryAt.After(now)
}
