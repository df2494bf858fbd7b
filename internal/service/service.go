// Package service holds the event ticketing workflows. Services depend on
// small store interfaces, return apperr types and never touch HTTP.
package service

import (
	"context"

	"github.com/iliyamo/event-ticketing/internal/model"
	"github.com/iliyamo/event-ticketing/internal/queue"
)

// EventStore is the persistence the event workflows need.
type EventStore interface {
	SlugTaken(ctx context.Context, slug string, excludeID uint64) (bool, error)
	CreateWithTickets(ctx context.Context, ev *model.Event, tickets []*model.Ticket, design *model.FileUpload) error
	GetSummary(ctx context.Context, id uint64) (*model.EventSummary, error)
	List(ctx context.Context, limit int) ([]*model.EventSummary, error)
	Update(ctx context.Context, ev *model.Event, issued int, extra []*model.Ticket) error
	Delete(ctx context.Context, id uint64) ([]string, error)
	ListParticipants(ctx context.Context, eventID uint64) ([]*model.ParticipantDetail, error)
	ListTickets(ctx context.Context, eventID uint64) ([]*model.Ticket, error)
	Stats(ctx context.Context) (model.DashboardStats, error)
}

// TicketStore resolves and claims tickets.
type TicketStore interface {
	LookupByToken(ctx context.Context, token string) (*model.TicketLookup, error)
	Claim(ctx context.Context, token string, p *model.Participant) (*model.TicketLookup, error)
}

// CertificateStore lists certificates.
type CertificateStore interface {
	List(ctx context.Context) ([]*model.CertificateDetail, error)
}

// Notifier sends the registration confirmation.
type Notifier interface {
	NotifyRegistration(ctx context.Context, ev queue.RegistrationConfirmedEvent) error
}

// BestEffort is the outcome of a side effect that never fails the enclosing
// operation: artifact removal on delete, confirmation on register.
type BestEffort struct {
	Op  string `json:"op"`
	Ref string `json:"ref,omitempty"`
	Err error  `json:"-"`
}

// OK reports whether the side effect succeeded.
func (b BestEffort) OK() bool { return b.Err == nil }
