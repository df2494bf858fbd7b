package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/iliyamo/event-ticketing/internal/model"
	"github.com/iliyamo/event-ticketing/internal/service"
)

// RegistrationService is what the public attendee endpoints need.
type RegistrationService interface {
	Lookup(ctx context.Context, token string) (*model.EventBrief, error)
	Register(ctx context.Context, in service.RegisterInput) (service.RegisterResult, error)
}

// RegistrationHandler serves the public /register endpoints.
type RegistrationHandler struct {
	Registrations RegistrationService
	Log           *zap.Logger
	Timeout       time.Duration
}

func NewRegistrationHandler(svc RegistrationService, log *zap.Logger, timeout time.Duration) *RegistrationHandler {
	return &RegistrationHandler{Registrations: svc, Log: log, Timeout: timeout}
}

// Lookup handles GET /register?token=.
func (h *RegistrationHandler) Lookup(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), h.Timeout)
	defer cancel()
	ev, err := h.Registrations.Lookup(ctx, c.QueryParam("token"))
	if err != nil {
		return writeError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"event": ev})
}

// Register handles POST /register.
func (h *RegistrationHandler) Register(c echo.Context) error {
	var in service.RegisterInput
	if err := c.Bind(&in); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), h.Timeout)
	defer cancel()
	res, err := h.Registrations.Register(ctx, in)
	if err != nil {
		return writeError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, echo.Map{
		"message":       "Registration successful",
		"participantId": res.ParticipantID,
		"emailSent":     res.Notification.OK(),
	})
}
