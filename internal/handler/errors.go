// Package handler contains the echo HTTP handlers. Handlers bind and parse
// requests, call a service and map its error taxonomy onto status codes in
// writeError.
package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/iliyamo/event-ticketing/internal/apperr"
)

const internalError = "internal server error"

// writeError maps service errors to responses. Storage and unknown errors
// are logged with their detail and answered with a generic 500.
func writeError(c echo.Context, log *zap.Logger, err error) error {
	var (
		verr *apperr.ValidationError
		cerr *apperr.ConflictError
		nerr *apperr.NotFoundError
		uerr *apperr.AlreadyUsedError
	)
	switch {
	case errors.As(err, &verr):
		body := echo.Map{"error": verr.Error()}
		if len(verr.Fields) > 0 {
			body["fields"] = verr.Fields
		}
		return c.JSON(http.StatusBadRequest, body)
	case errors.As(err, &cerr):
		return c.JSON(http.StatusBadRequest, echo.Map{"error": cerr.Error()})
	case errors.As(err, &nerr):
		return c.JSON(http.StatusNotFound, echo.Map{"error": nerr.Error()})
	case errors.As(err, &uerr):
		return c.JSON(http.StatusBadRequest, echo.Map{"error": uerr.Error()})
	}
	log.Error("request failed",
		zap.String("method", c.Request().Method),
		zap.String("path", c.Path()),
		zap.Error(err))
	return c.JSON(http.StatusInternalServerError, echo.Map{"error": internalError})
}

// pathID parses the :id parameter.
func pathID(c echo.Context) (uint64, error) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		return 0, apperr.Validation("id")
	}
	return id, nil
}

// queryInt reads an optional non-negative integer query parameter.
func queryInt(c echo.Context, name string, def int) (int, error) {
	v := c.QueryParam(name)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return 0, apperr.Validation(name)
	}
	return n, nil
}
