// Package queue defines message payloads exchanged over the message broker
// and the worker that consumes them.
package queue

// RegistrationQueue is the durable queue confirmations are published to.
const RegistrationQueue = "registration.confirmed"

// RegistrationConfirmedEvent is published after a participant claims a
// ticket. It carries everything the confirmation email needs so consumers
// never query the primary database.
type RegistrationConfirmedEvent struct {
	ParticipantID uint64 `json:"participant_id"`
	Name          string `json:"name"`
	Email         string `json:"email"`
	Token         string `json:"token"`
	EventID       uint64 `json:"event_id"`
	EventName     string `json:"event_name"`
	EventType     string `json:"event_type"`
	Location      string `json:"location"`
	StartsAt      string `json:"starts_at"`
	EndsAt        string `json:"ends_at"`
	RegisteredAt  string `json:"registered_at"`
}
