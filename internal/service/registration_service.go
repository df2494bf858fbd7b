package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/iliyamo/event-ticketing/internal/apperr"
	"github.com/iliyamo/event-ticketing/internal/metrics"
	"github.com/iliyamo/event-ticketing/internal/model"
	"github.com/iliyamo/event-ticketing/internal/queue"
	"github.com/iliyamo/event-ticketing/internal/repository"
)

// RegisterInput is what an attendee submits to claim a ticket.
type RegisterInput struct {
	Token        string `json:"token" validate:"required"`
	Name         string `json:"name" validate:"required"`
	Email        string `json:"email" validate:"required,email"`
	Phone        string `json:"phone"`
	Organization string `json:"organization"`
}

// RegisterResult reports the new participant and the confirmation outcome.
type RegisterResult struct {
	ParticipantID uint64
	Event         model.EventBrief
	Notification  BestEffort
}

// RegistrationService resolves tokens and claims tickets.
type RegistrationService struct {
	tickets  TicketStore
	notifier Notifier
	metrics  *metrics.Metrics
	log      *zap.Logger
	validate *validator.Validate
	now      func() time.Time
}

func NewRegistrationService(tickets TicketStore, n Notifier, m *metrics.Metrics, log *zap.Logger) *RegistrationService {
	return &RegistrationService{
		tickets:  tickets,
		notifier: n,
		metrics:  m,
		log:      log,
		validate: newValidator(),
		now:      time.Now,
	}
}

// Lookup returns the event a still unclaimed token belongs to.
func (s *RegistrationService) Lookup(ctx context.Context, token string) (*model.EventBrief, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, apperr.Validation("token")
	}
	l, err := s.tickets.LookupByToken(ctx, token)
	if err != nil {
		return nil, ticketErr("lookup ticket", token, err)
	}
	if l.IsVerified {
		return nil, &apperr.AlreadyUsedError{Token: l.Token}
	}
	return &l.Event, nil
}

// Register claims the ticket for the participant. The claim is atomic; the
// confirmation afterwards is best-effort and reported in the result.
func (s *RegistrationService) Register(ctx context.Context, in RegisterInput) (RegisterResult, error) {
	in.Token = strings.TrimSpace(in.Token)
	in.Name = strings.TrimSpace(in.Name)
	in.Email = strings.TrimSpace(in.Email)
	if err := validateStruct(s.validate, in); err != nil {
		s.count(metrics.ResultInvalid)
		return RegisterResult{}, err
	}

	p := &model.Participant{
		Name:         in.Name,
		Email:        in.Email,
		Phone:        optional(in.Phone),
		Organization: optional(in.Organization),
	}
	l, err := s.tickets.Claim(ctx, in.Token, p)
	if err != nil {
		err = ticketErr("claim ticket", in.Token, err)
		switch {
		case apperr.IsNotFound(err):
			s.count(metrics.ResultNotFound)
		case apperr.IsAlreadyUsed(err):
			s.count(metrics.ResultAlreadyUsed)
		default:
			s.count(metrics.ResultError)
		}
		return RegisterResult{}, err
	}
	s.count(metrics.ResultOK)
	s.log.Info("ticket claimed", zap.Uint64("participant_id", p.ID), zap.Uint64("event_id", l.Event.ID))

	res := RegisterResult{ParticipantID: p.ID, Event: l.Event}
	res.Notification = s.notify(ctx, p, l)
	return res, nil
}

func (s *RegistrationService) notify(ctx context.Context, p *model.Participant, l *model.TicketLookup) BestEffort {
	out := BestEffort{Op: "notify registration", Ref: p.Email}
	if s.notifier == nil {
		return out
	}
	ev := queue.RegistrationConfirmedEvent{
		ParticipantID: p.ID,
		Name:          p.Name,
		Email:         p.Email,
		Token:         l.Token,
		EventID:       l.Event.ID,
		EventName:     l.Event.Name,
		EventType:     string(l.Event.Type),
		Location:      l.Event.Location,
		StartsAt:      l.Event.StartTime.UTC().Format(time.RFC3339),
		EndsAt:        l.Event.EndTime.UTC().Format(time.RFC3339),
		RegisteredAt:  s.now().UTC().Format(time.RFC3339),
	}
	out.Err = s.notifier.NotifyRegistration(ctx, ev)
	if s.metrics != nil {
		s.metrics.Notifications.WithLabelValues(metrics.Result(out.Err)).Inc()
	}
	if out.Err != nil {
		s.log.Warn("registration confirmation failed",
			zap.Uint64("participant_id", p.ID), zap.Error(out.Err))
	}
	return out
}

func (s *RegistrationService) count(result string) {
	if s.metrics != nil {
		s.metrics.Registrations.WithLabelValues(result).Inc()
	}
}

func ticketErr(op, token string, err error) error {
	switch {
	case errors.Is(err, repository.ErrTicketNotFound):
		return &apperr.NotFoundError{Resource: "ticket"}
	case errors.Is(err, repository.ErrTicketAlreadyUsed):
		return &apperr.AlreadyUsedError{Token: token}
	}
	return apperr.Storage(op, err)
}

func optional(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}
