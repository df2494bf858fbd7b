package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/iliyamo/event-ticketing/internal/apperr"
	"github.com/iliyamo/event-ticketing/internal/model"
	"github.com/iliyamo/event-ticketing/internal/service"
)

// EventService is what the event endpoints need from the service layer.
type EventService interface {
	Create(ctx context.Context, in service.EventInput, design *service.DesignUpload) (service.CreateEventResult, error)
	Get(ctx context.Context, id uint64) (*service.EventDetail, error)
	List(ctx context.Context, limit int) ([]*model.EventSummary, error)
	Tickets(ctx context.Context, id uint64) ([]*model.Ticket, error)
	Update(ctx context.Context, id uint64, in service.EventInput) (*model.EventSummary, error)
	Delete(ctx context.Context, id uint64) ([]service.BestEffort, error)
}

// EventHandler serves /events.
type EventHandler struct {
	Events         EventService
	Log            *zap.Logger
	Timeout        time.Duration
	MaxUploadBytes int64
}

func NewEventHandler(svc EventService, log *zap.Logger, timeout time.Duration, maxUpload int64) *EventHandler {
	return &EventHandler{Events: svc, Log: log, Timeout: timeout, MaxUploadBytes: maxUpload}
}

// eventForm accepts both multipart forms and JSON bodies. Times and quota
// arrive as strings in forms, so they are parsed after binding.
type eventForm struct {
	Name        string      `json:"name" form:"name"`
	Slug        string      `json:"slug" form:"slug"`
	Type        string      `json:"type" form:"type"`
	Location    string      `json:"location" form:"location"`
	Description string      `json:"description" form:"description"`
	StartTime   string      `json:"startTime" form:"startTime"`
	EndTime     string      `json:"endTime" form:"endTime"`
	Quota       json.Number `json:"quota" form:"quota"`
}

var timeLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
}

// parseTime accepts RFC 3339 and the datetime-local formats browsers send.
// Values without an offset are taken as UTC. Unparsable input yields the
// zero time, which validation reports as missing.
func parseTime(s string) time.Time {
	s = strings.TrimSpace(s)
	for _, layout := range timeLayouts {
		if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return t.UTC()
		}
	}
	return time.Time{}
}

func (f eventForm) input() service.EventInput {
	quota, _ := strconv.Atoi(strings.TrimSpace(f.Quota.String()))
	return service.EventInput{
		Name:        strings.TrimSpace(f.Name),
		Slug:        strings.TrimSpace(f.Slug),
		Type:        model.EventType(strings.TrimSpace(f.Type)),
		Location:    strings.TrimSpace(f.Location),
		Description: strings.TrimSpace(f.Description),
		StartTime:   parseTime(f.StartTime),
		EndTime:     parseTime(f.EndTime),
		Quota:       quota,
	}
}

func (h *EventHandler) ctx(c echo.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.Request().Context(), h.Timeout)
}

// Create handles POST /events (multipart with optional ticketDesign file).
func (h *EventHandler) Create(c echo.Context) error {
	var f eventForm
	if err := c.Bind(&f); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	design, err := h.readDesign(c)
	if err != nil {
		return writeError(c, h.Log, err)
	}

	ctx, cancel := h.ctx(c)
	defer cancel()
	res, err := h.Events.Create(ctx, f.input(), design)
	if err != nil {
		return writeError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, res)
}

// readDesign returns the uploaded ticketDesign, or nil when none was sent.
func (h *EventHandler) readDesign(c echo.Context) (*service.DesignUpload, error) {
	if !strings.HasPrefix(c.Request().Header.Get(echo.HeaderContentType), echo.MIMEMultipartForm) {
		return nil, nil
	}
	fh, err := c.FormFile("ticketDesign")
	if errors.Is(err, http.ErrMissingFile) {
		return nil, nil
	}
	if err != nil {
		return nil, apperr.Validation("ticketDesign")
	}
	if h.MaxUploadBytes > 0 && fh.Size > h.MaxUploadBytes {
		return nil, &apperr.ValidationError{
			Fields: []string{"ticketDesign"},
			Reason: fmt.Sprintf("ticket design exceeds %d bytes", h.MaxUploadBytes),
		}
	}
	src, err := fh.Open()
	if err != nil {
		return nil, apperr.Storage("open upload", err)
	}
	defer src.Close()
	data, err := io.ReadAll(src)
	if err != nil {
		return nil, apperr.Storage("read upload", err)
	}
	if len(data) == 0 {
		return nil, nil
	}
	mime := fh.Header.Get(echo.HeaderContentType)
	if mime == "" || mime == echo.MIMEOctetStream {
		mime = http.DetectContentType(data)
	}
	return &service.DesignUpload{Filename: fh.Filename, ContentType: mime, Data: data}, nil
}

// List handles GET /events?limit=.
func (h *EventHandler) List(c echo.Context) error {
	limit, err := queryInt(c, "limit", 0)
	if err != nil {
		return writeError(c, h.Log, err)
	}
	ctx, cancel := h.ctx(c)
	defer cancel()
	list, err := h.Events.List(ctx, limit)
	if err != nil {
		return writeError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"events": list})
}

// Get handles GET /events/:id.
func (h *EventHandler) Get(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return writeError(c, h.Log, err)
	}
	ctx, cancel := h.ctx(c)
	defer cancel()
	d, err := h.Events.Get(ctx, id)
	if err != nil {
		return writeError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, d)
}

// Tickets handles GET /events/:id/tickets.
func (h *EventHandler) Tickets(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return writeError(c, h.Log, err)
	}
	ctx, cancel := h.ctx(c)
	defer cancel()
	ts, err := h.Events.Tickets(ctx, id)
	if err != nil {
		return writeError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"tickets": ts})
}

// Update handles PUT /events/:id.
func (h *EventHandler) Update(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return writeError(c, h.Log, err)
	}
	var f eventForm
	if err := c.Bind(&f); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	ctx, cancel := h.ctx(c)
	defer cancel()
	ev, err := h.Events.Update(ctx, id, f.input())
	if err != nil {
		return writeError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, ev)
}

type cleanupResult struct {
	Op    string `json:"op"`
	Ref   string `json:"ref"`
	OK    bool   `json:"ok"`
	Error string `json:"error,omitempty"`
}

// Delete handles DELETE /events/:id.
func (h *EventHandler) Delete(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return writeError(c, h.Log, err)
	}
	ctx, cancel := h.ctx(c)
	defer cancel()
	outcomes, err := h.Events.Delete(ctx, id)
	if err != nil {
		return writeError(c, h.Log, err)
	}
	cleanup := make([]cleanupResult, 0, len(outcomes))
	for _, o := range outcomes {
		r := cleanupResult{Op: o.Op, Ref: o.Ref, OK: o.OK()}
		if o.Err != nil {
			r.Error = "artifact could not be removed"
		}
		cleanup = append(cleanup, r)
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "event deleted", "cleanup": cleanup})
}
