package model

import "time"

// Certificate is issued to a participant outside this service; the API only
// lists them.
type Certificate struct {
	ID            uint64    `json:"id"`
	ParticipantID uint64    `json:"participant_id"`
	Sent          bool      `json:"sent"`
	CreatedAt     time.Time `json:"created_at"`
}

// CertificateDetail joins a certificate with its participant and event.
type CertificateDetail struct {
	Certificate
	ParticipantName string    `json:"participant_name"`
	Email           string    `json:"email"`
	EventName       string    `json:"event_name"`
	EventType       EventType `json:"event_type"`
}
