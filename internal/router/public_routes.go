package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/event-ticketing/internal/handler"
)

// RegisterPublic registers the attendee endpoints reached through a ticket's
// QR code. limiter guards both against token guessing; pass nil to disable.
func RegisterPublic(e *echo.Echo, r *handler.RegistrationHandler, limiter echo.MiddlewareFunc) {
	var mw []echo.MiddlewareFunc
	if limiter != nil {
		mw = append(mw, limiter)
	}
	g := e.Group("/register", mw...)
	g.GET("", r.Lookup)
	g.POST("", r.Register)
}
