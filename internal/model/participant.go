package model

import "time"

// Participant is the person who claimed a ticket.
type Participant struct {
	ID           uint64    `json:"id"`
	TicketID     uint64    `json:"ticket_id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	Phone        *string   `json:"phone"`
	Organization *string   `json:"organization"`
	RegisteredAt time.Time `json:"registered_at"`
}

// ParticipantDetail is a participant joined with the token of the ticket
// it claimed.
type ParticipantDetail struct {
	Participant
	Token      string `json:"token"`
	IsVerified bool   `json:"is_verified"`
}
