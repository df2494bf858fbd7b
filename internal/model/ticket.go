package model

import "time"

// Ticket is a single redeemable seat of an event. IsVerified flips from
// false to true exactly once, when a participant claims the ticket.
type Ticket struct {
	ID         uint64    `json:"id"`
	EventID    uint64    `json:"event_id"`
	Token      string    `json:"token"`
	QRCodeURL  string    `json:"qr_code_url"`
	IsVerified bool      `json:"is_verified"`
	CreatedAt  time.Time `json:"created_at"`
}

// TicketLookup is the result of resolving a token: the ticket plus the
// public details of its event.
type TicketLookup struct {
	TicketID   uint64
	Token      string
	IsVerified bool
	Event      EventBrief
}

// EventBrief is the attendee-facing view of an event.
type EventBrief struct {
	ID          uint64    `json:"id"`
	Name        string    `json:"name"`
	Type        EventType `json:"type"`
	Location    string    `json:"location"`
	Description string    `json:"description"`
	StartTime   time.Time `json:"start_time"`
	EndTime     time.Time `json:"end_time"`
}
