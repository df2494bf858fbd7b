package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	qrcode "github.com/skip2/go-qrcode"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/iliyamo/event-ticketing/internal/apperr"
	"github.com/iliyamo/event-ticketing/internal/metrics"
	"github.com/iliyamo/event-ticketing/internal/model"
	"github.com/iliyamo/event-ticketing/internal/repository"
	"github.com/iliyamo/event-ticketing/internal/storage"
	"github.com/iliyamo/event-ticketing/internal/utils"
)

// EventInput carries the editable attributes of an event. Slug is optional
// on create (derived from Name) and required on update.
type EventInput struct {
	Name        string          `json:"name" validate:"required"`
	Slug        string          `json:"slug"`
	Type        model.EventType `json:"type" validate:"required,oneof=Seminar Workshop"`
	Location    string          `json:"location" validate:"required"`
	Description string          `json:"description"`
	StartTime   time.Time       `json:"startTime" validate:"required"`
	EndTime     time.Time       `json:"endTime" validate:"required"`
	Quota       int             `json:"quota" validate:"required,min=1"`
}

// DesignUpload is the optional ticket design sent with a new event.
type DesignUpload struct {
	Filename    string
	ContentType string
	Data        []byte
}

// CreateEventResult is returned by Create.
type CreateEventResult struct {
	EventID          uint64 `json:"eventId"`
	TicketsGenerated int    `json:"ticketsGenerated"`
}

// EventDetail is an event with its aggregates and participants.
type EventDetail struct {
	*model.EventSummary
	Participants []*model.ParticipantDetail `json:"participants"`
}

// EventServiceConfig tunes ticket rendering.
type EventServiceConfig struct {
	BaseURL   string
	QRSize    int
	QRWorkers int
}

// EventService creates, edits and deletes events and mints their tickets.
type EventService struct {
	events   EventStore
	store    storage.Store
	log      *zap.Logger
	metrics  *metrics.Metrics
	cfg      EventServiceConfig
	validate *validator.Validate

	now       func() time.Time
	newTokens func(n int) []string
	renderQR  func(content string, size int) ([]byte, error)
}

func NewEventService(events EventStore, store storage.Store, m *metrics.Metrics, log *zap.Logger, cfg EventServiceConfig) *EventService {
	if cfg.QRSize <= 0 {
		cfg.QRSize = 256
	}
	if cfg.QRWorkers <= 0 {
		cfg.QRWorkers = 1
	}
	return &EventService{
		events:    events,
		store:     store,
		log:       log,
		metrics:   m,
		cfg:       cfg,
		validate:  newValidator(),
		now:       time.Now,
		newTokens: utils.NewTicketTokens,
		renderQR: func(content string, size int) ([]byte, error) {
			return qrcode.Encode(content, qrcode.Medium, size)
		},
	}
}

// RegistrationLink is the URL encoded in a ticket's QR image.
func (s *EventService) RegistrationLink(token string) string {
	return s.cfg.BaseURL + "/register?token=" + token
}

// Create validates in, stores the design, renders one QR image per ticket and
// persists the event with all its tickets atomically. Nothing is left behind
// on failure: the transaction rolls back and written artifacts are removed.
func (s *EventService) Create(ctx context.Context, in EventInput, design *DesignUpload) (CreateEventResult, error) {
	if err := validateStruct(s.validate, in); err != nil {
		return CreateEventResult{}, err
	}
	slug := utils.Slugify(in.Slug)
	if in.Slug == "" {
		slug = utils.Slugify(in.Name)
	}
	if slug == "" {
		return CreateEventResult{}, apperr.Validation("slug")
	}
	taken, err := s.events.SlugTaken(ctx, slug, 0)
	if err != nil {
		return CreateEventResult{}, apperr.Storage("check slug", err)
	}
	if taken {
		return CreateEventResult{}, &apperr.ConflictError{Field: "slug", Value: slug}
	}

	ev := eventFromInput(in, slug)
	var written []string
	fail := func(err error) (CreateEventResult, error) {
		s.cleanup(written)
		return CreateEventResult{}, err
	}

	var upload *model.FileUpload
	if design != nil && len(design.Data) > 0 {
		name := fmt.Sprintf("ticket-%d-%s", s.now().UnixNano(), storage.SanitizeFilename(design.Filename))
		ref, err := s.store.Put(ctx, storage.UploadsPrefix+"/"+name, design.Data, design.ContentType)
		if err != nil {
			return fail(apperr.Storage("write ticket design", err))
		}
		written = append(written, ref)
		size := int64(len(design.Data))
		mime := design.ContentType
		ev.TicketDesign, ev.DesignSize, ev.DesignMime = &ref, &size, &mime
		upload = &model.FileUpload{
			Filename:     name,
			OriginalName: design.Filename,
			Path:         ref,
			Size:         size,
			MimeType:     mime,
			UploadType:   model.UploadTypeTicketDesign,
		}
	}

	tickets, refs, err := s.issue(ctx, in.Quota)
	written = append(written, refs...)
	if err != nil {
		return fail(apperr.Storage("render tickets", err))
	}

	if err := s.events.CreateWithTickets(ctx, ev, tickets, upload); err != nil {
		if errors.Is(err, repository.ErrDuplicateSlug) {
			return fail(&apperr.ConflictError{Field: "slug", Value: slug})
		}
		return fail(apperr.Storage("insert event", err))
	}

	if s.metrics != nil {
		s.metrics.EventsCreated.Inc()
		s.metrics.TicketsIssued.Add(float64(len(tickets)))
	}
	s.log.Info("event created",
		zap.Uint64("event_id", ev.ID), zap.String("slug", slug), zap.Int("tickets", len(tickets)))
	return CreateEventResult{EventID: ev.ID, TicketsGenerated: len(tickets)}, nil
}

// issue mints n tokens and writes their QR images concurrently. It returns the
// references of every image written, even on failure, so the caller can
// remove them.
func (s *EventService) issue(ctx context.Context, n int) ([]*model.Ticket, []string, error) {
	if n <= 0 {
		return nil, nil, nil
	}
	tokens := s.newTokens(n)
	tickets := make([]*model.Ticket, n)
	refs := make([]string, n)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.cfg.QRWorkers)
	for i, token := range tokens {
		g.Go(func() error {
			png, err := s.renderQR(s.RegistrationLink(token), s.cfg.QRSize)
			if err != nil {
				return fmt.Errorf("qr %s: %w", token, err)
			}
			ref, err := s.store.Put(gctx, storage.TicketsPrefix+"/"+token+".png", png, "image/png")
			if err != nil {
				return fmt.Errorf("write qr %s: %w", token, err)
			}
			refs[i] = ref
			tickets[i] = &model.Ticket{Token: token, QRCodeURL: ref}
			return nil
		})
	}
	err := g.Wait()

	written := make([]string, 0, n)
	for _, r := range refs {
		if r != "" {
			written = append(written, r)
		}
	}
	if err != nil {
		return nil, written, err
	}
	return tickets, written, nil
}

// cleanup removes artifacts of a failed attempt. Failures are only logged.
func (s *EventService) cleanup(refs []string) []BestEffort {
	out := make([]BestEffort, 0, len(refs))
	// Detached from the request, which may already be cancelled.
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	for _, ref := range refs {
		err := s.store.Delete(ctx, ref)
		out = append(out, BestEffort{Op: "delete artifact", Ref: ref, Err: err})
		if s.metrics != nil {
			s.metrics.ArtifactCleanup.WithLabelValues(metrics.Result(err)).Inc()
		}
		if err != nil {
			s.log.Warn("artifact cleanup failed", zap.String("ref", ref), zap.Error(err))
		}
	}
	return out
}

// Get returns an event with its ticket aggregates and participants.
func (s *EventService) Get(ctx context.Context, id uint64) (*EventDetail, error) {
	sum, err := s.events.GetSummary(ctx, id)
	if err != nil {
		return nil, eventErr("load event", err)
	}
	ps, err := s.events.ListParticipants(ctx, id)
	if err != nil {
		return nil, apperr.Storage("list participants", err)
	}
	return &EventDetail{EventSummary: sum, Participants: ps}, nil
}

// List returns events newest first; limit <= 0 means all.
func (s *EventService) List(ctx context.Context, limit int) ([]*model.EventSummary, error) {
	list, err := s.events.List(ctx, limit)
	if err != nil {
		return nil, apperr.Storage("list events", err)
	}
	return list, nil
}

// Tickets returns the ticket inventory of an event.
func (s *EventService) Tickets(ctx context.Context, id uint64) ([]*model.Ticket, error) {
	if _, err := s.events.GetSummary(ctx, id); err != nil {
		return nil, eventErr("load event", err)
	}
	ts, err := s.events.ListTickets(ctx, id)
	if err != nil {
		return nil, apperr.Storage("list tickets", err)
	}
	return ts, nil
}

// Update rewrites an event. Quota may grow, in which case the missing
// tickets are issued in the same transaction, but never drop below the
// number of tickets already issued.
func (s *EventService) Update(ctx context.Context, id uint64, in EventInput) (*model.EventSummary, error) {
	if err := validateStruct(s.validate, in); err != nil {
		return nil, err
	}
	slug := utils.Slugify(in.Slug)
	if slug == "" {
		return nil, apperr.Validation("slug")
	}
	cur, err := s.events.GetSummary(ctx, id)
	if err != nil {
		return nil, eventErr("load event", err)
	}
	if in.Quota < cur.TotalTickets {
		return nil, quotaTooLow(cur.TotalTickets)
	}
	taken, err := s.events.SlugTaken(ctx, slug, id)
	if err != nil {
		return nil, apperr.Storage("check slug", err)
	}
	if taken {
		return nil, &apperr.ConflictError{Field: "slug", Value: slug}
	}

	ev := eventFromInput(in, slug)
	ev.ID = id
	extra, written, err := s.issue(ctx, in.Quota-cur.TotalTickets)
	if err != nil {
		s.cleanup(written)
		return nil, apperr.Storage("render tickets", err)
	}

	if err := s.events.Update(ctx, ev, cur.TotalTickets, extra); err != nil {
		s.cleanup(written)
		switch {
		case errors.Is(err, repository.ErrEventNotFound):
			return nil, &apperr.NotFoundError{Resource: "event"}
		case errors.Is(err, repository.ErrDuplicateSlug):
			return nil, &apperr.ConflictError{Field: "slug", Value: slug}
		case errors.Is(err, repository.ErrQuotaBelowIssued):
			return nil, &apperr.ValidationError{Fields: []string{"quota"}, Reason: "quota cannot be lower than the number of tickets already issued"}
		case errors.Is(err, repository.ErrInventoryChanged):
			return nil, &apperr.ConflictError{Field: "quota", Reason: "tickets were issued concurrently, retry the update"}
		}
		return nil, apperr.Storage("update event", err)
	}
	if s.metrics != nil && len(extra) > 0 {
		s.metrics.TicketsIssued.Add(float64(len(extra)))
	}
	s.log.Info("event updated", zap.Uint64("event_id", id), zap.Int("new_tickets", len(extra)))

	out, err := s.events.GetSummary(ctx, id)
	if err != nil {
		return nil, eventErr("reload event", err)
	}
	return out, nil
}

// Delete removes the event and everything that depends on it, then removes
// its artifacts. Artifact removal never fails the call; the outcome of each
// removal is returned.
func (s *EventService) Delete(ctx context.Context, id uint64) ([]BestEffort, error) {
	refs, err := s.events.Delete(ctx, id)
	if err != nil {
		return nil, eventErr("delete event", err)
	}
	s.log.Info("event deleted", zap.Uint64("event_id", id), zap.Int("artifacts", len(refs)))
	return s.cleanup(refs), nil
}

func eventFromInput(in EventInput, slug string) *model.Event {
	return &model.Event{
		Name:        in.Name,
		Slug:        slug,
		Type:        in.Type,
		Location:    in.Location,
		Description: in.Description,
		StartTime:   in.StartTime,
		EndTime:     in.EndTime,
		Quota:       in.Quota,
	}
}

func eventErr(op string, err error) error {
	if errors.Is(err, repository.ErrEventNotFound) {
		return &apperr.NotFoundError{Resource: "event"}
	}
	return apperr.Storage(op, err)
}

func quotaTooLow(issued int) error {
	return &apperr.ValidationError{
		Fields: []string{"quota"},
		Reason: fmt.Sprintf("quota cannot be lower than the %d tickets already issued", issued),
	}
}
