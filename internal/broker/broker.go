package broker

import "context"

// Publisher pushes dispatch monitoring events to an external broker.
type Publisher interface {
	Publish(ctx context.Context, subject string, data []byte) error
	Close() error
}
