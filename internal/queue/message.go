package queue

import (
	amqp "github.com/rabbitmq/amqp091-go"
)

// Message wraps a Job with its delivery information
type Message struct {
	Job          *Job
	DeliveryTag  uint64
	Acknowledger amqp.Acknowledger
}

// Ack acknowledges the message
func (m *Message) Ack() error {
	return m.Acknowledger.Ack(m.DeliveryTag, false)
}

// Nack negatively acknowledges the message. Without requeue it is dead-lettered.
func (m *Message) Nack(requeue bool) error {
	return m.Acknowledger.Nack(m.DeliveryTag, false, requeue)
}

// GetJob returns the decoded job
func (m *Message) GetJob() *Job {
	return m.Job
}
