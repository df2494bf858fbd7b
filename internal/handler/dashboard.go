package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/iliyamo/event-ticketing/internal/model"
)

// DashboardService is what the dashboard endpoints need.
type DashboardService interface {
	Stats(ctx context.Context) (model.DashboardStats, error)
	RecentEvents(ctx context.Context, limit int) ([]*model.EventSummary, error)
	Certificates(ctx context.Context) ([]*model.CertificateDetail, error)
}

// DashboardHandler serves /dashboard and /certificates.
type DashboardHandler struct {
	Dashboard DashboardService
	Log       *zap.Logger
	Timeout   time.Duration
}

func NewDashboardHandler(svc DashboardService, log *zap.Logger, timeout time.Duration) *DashboardHandler {
	return &DashboardHandler{Dashboard: svc, Log: log, Timeout: timeout}
}

// Stats handles GET /dashboard/stats. The newest events are included so the
// dashboard needs a single request.
func (h *DashboardHandler) Stats(c echo.Context) error {
	limit, err := queryInt(c, "recent", 0)
	if err != nil {
		return writeError(c, h.Log, err)
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), h.Timeout)
	defer cancel()
	st, err := h.Dashboard.Stats(ctx)
	if err != nil {
		return writeError(c, h.Log, err)
	}
	recent, err := h.Dashboard.RecentEvents(ctx, limit)
	if err != nil {
		return writeError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"stats": st, "recentEvents": recent})
}

// Certificates handles GET /certificates.
func (h *DashboardHandler) Certificates(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), h.Timeout)
	defer cancel()
	list, err := h.Dashboard.Certificates(ctx)
	if err != nil {
		return writeError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"certificates": list})
}
