package queue

import (
	"context"
	"time"
)

// MessageInterface is what workers see of a delivered job
type MessageInterface interface {
	Ack() error
	Nack(requeue bool) error
	GetJob() *Job
}

// Enqueuer publishes jobs. The HTTP layer only needs this half.
type Enqueuer interface {
	Enqueue(ctx context.Context, job *Job) error
}

// JobQueue is the interface for job queues
type JobQueue interface {
	Enqueuer

	// Consume returns a channel of messages. Prefetch bounds how many unacknowledged
	// messages this consumer holds. Both channels close when ctx is done or the connection drops.
	Consume(ctx context.Context, prefetchCount int) (<-chan *Message, <-chan error, error)

	Close() error

	HealthCheck(ctx context.Context) error
}

// DLQPurger removes dead-lettered jobs older than retention
type DLQPurger interface {
	PurgeOlderThan(ctx context.Context, retention time.Duration) (int, error)
}
