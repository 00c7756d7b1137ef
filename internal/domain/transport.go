package domain

import (
	"context"
	"errors"
)

// ErrTransportClosed is returned by JobTransport.Next once the transport has
// been closed.
var ErrTransportClosed = errors.New("transport: closed")

// Delivery is one raw job message taken from a transport.
type Delivery struct {
	Body []byte

	// Ack settles the message once the job reached a terminal outcome.
	// Transports without acknowledgement semantics leave it nil.
	Ack func(ctx context.Context) error
}

// JobTransport hands out job messages one at a time. It is safe for
// concurrent use by several workers.
type JobTransport interface {
	// Next blocks until a message is available or ctx is done.
	Next(ctx context.Context) (*Delivery, error)
	Close() error
}

// JobPublisher submits jobs onto a transport.
type JobPublisher interface {
	Publish(ctx context.Context, job *Job) error
}
