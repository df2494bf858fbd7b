package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/event-ticketing/internal/handler"
	"github.com/iliyamo/event-ticketing/internal/middleware"
	"github.com/iliyamo/event-ticketing/internal/model"
)

// RegisterStaff registers the dashboard API. Every route needs a valid JWT
// for an ADMIN or STAFF account; deleting an event is ADMIN only.
func RegisterStaff(e *echo.Echo, ev *handler.EventHandler, d *handler.DashboardHandler, jwtSecret string) {
	staff := []echo.MiddlewareFunc{
		middleware.JWTAuth(jwtSecret),
		middleware.RequireRole(model.RoleAdmin, model.RoleStaff),
	}

	// ---- Events ----
	events := e.Group("/events", staff...)
	events.POST("", ev.Create)
	events.GET("", ev.List)
	events.GET("/:id", ev.Get)
	events.GET("/:id/tickets", ev.Tickets)
	events.PUT("/:id", ev.Update)
	events.DELETE("/:id", ev.Delete, middleware.RequireRole(model.RoleAdmin))

	// ---- Dashboard ----
	e.GET("/dashboard/stats", d.Stats, staff...)
	e.GET("/certificates", d.Certificates, staff...)
}
