// Package router wires handlers and middleware onto the echo instance.
package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/event-ticketing/internal/handler"
	"github.com/iliyamo/event-ticketing/internal/metrics"
	"github.com/iliyamo/event-ticketing/internal/middleware"
)

// RegisterRoutes registers the unauthenticated infrastructure endpoints.
func RegisterRoutes(e *echo.Echo, db handler.Pinger, m *metrics.Metrics) {
	e.GET("/healthz", handler.Health(db))
	e.GET("/metrics", echo.WrapHandler(m.Handler()))
}

// RegisterStatic serves the artifacts of the local store. publicDir holds the
// uploads/ and tickets/ subdirectories.
func RegisterStatic(e *echo.Echo, publicDir string) {
	e.Static("/uploads", publicDir+"/uploads")
	e.Static("/tickets", publicDir+"/tickets")
}

// RegisterAuth registers staff session routes. Login, refresh and logout do
// not need an access token; /auth/me does.
func RegisterAuth(e *echo.Echo, a *handler.AuthHandler, jwtSecret string) {
	g := e.Group("/auth")
	g.POST("/login", a.Login)
	g.POST("/refresh", a.Refresh)
	g.POST("/logout", a.Logout)
	g.GET("/me", a.Me, middleware.JWTAuth(jwtSecret))
}
