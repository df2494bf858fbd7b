package model

import "time"

// EventType enumerates the kinds of events an organizer can create.
type EventType string

const (
	EventTypeSeminar  EventType = "Seminar"
	EventTypeWorkshop EventType = "Workshop"
)

// Valid reports whether t is one of the supported event types.
func (t EventType) Valid() bool {
	return t == EventTypeSeminar || t == EventTypeWorkshop
}

// Event mirrors a row of the `events` table.
//
// Fields:
//  Slug          – globally unique, URL-safe identifier.
//  Quota         – number of tickets minted for the event.
//  TicketDesign  – relative reference of the uploaded design artifact (nil when absent).
//  DesignSize    – size in bytes of the design artifact.
//  DesignMime    – declared mime type of the design artifact.
type Event struct {
	ID           uint64    `json:"id"`
	Name         string    `json:"name"`
	Slug         string    `json:"slug"`
	Type         EventType `json:"type"`
	Location     string    `json:"location"`
	Description  string    `json:"description"`
	StartTime    time.Time `json:"start_time"`
	EndTime      time.Time `json:"end_time"`
	Quota        int       `json:"quota"`
	TicketDesign *string   `json:"ticket_design"`
	DesignSize   *int64    `json:"ticket_design_size,omitempty"`
	DesignMime   *string   `json:"ticket_design_mime,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// EventSummary is an event together with its ticket aggregates, as shown on
// the dashboard lists.
type EventSummary struct {
	Event
	TotalTickets    int `json:"total_tickets"`
	VerifiedTickets int `json:"verified_tickets"`
}

// DashboardStats holds the global counters shown on the dashboard.
type DashboardStats struct {
	TotalEvents       int `json:"totalEvents"`
	TotalParticipants int `json:"totalParticipants"`
	TotalTickets      int `json:"totalTickets"`
	VerifiedTickets   int `json:"verifiedTickets"`
}
