package queue

import (
	"github.com/okanlawon/pawdispatch/internal/domain"
)

// Store is the durable record of queue entries. Implementations must keep
// entries unique by request ID and return them oldest-first; the offline
// queue is the only mutator.
type Store interface {
	// Save inserts or replaces the entry for its request ID.
	Save(entry *domain.QueueEntry) error
	// Delete removes the entry for requestID; deleting a missing entry is
	// not an error.
	Delete(requestID string) error
	// List returns all entries in ascending creation order.
	List() ([]*domain.QueueEntry, error)
}
