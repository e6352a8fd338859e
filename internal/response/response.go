// Package response writes the JSON envelope shared by every endpoint:
//
//	{"success": bool, "message": string, "data": T|null}
//
// Failures always carry a null data field.
package response

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"
)

// Envelope is the body of every JSON response.
type Envelope struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Data    any    `json:"data"`
}

// JSON writes a successful envelope with the given status.
func JSON(c echo.Context, status int, message string, data any) error {
	return c.JSON(status, Envelope{Success: true, Message: message, Data: data})
}

// OK writes a 200 envelope.
func OK(c echo.Context, message string, data any) error {
	return JSON(c, http.StatusOK, message, data)
}

// Created writes a 201 envelope.
func Created(c echo.Context, message string, data any) error {
	return JSON(c, http.StatusCreated, message, data)
}

// Fail writes an error envelope.
func Fail(c echo.Context, status int, message string) error {
	return c.JSON(status, Envelope{Success: false, Message: message, Data: nil})
}

// ErrorHandler returns an echo.HTTPErrorHandler that renders errors that
// escape handlers (unknown routes, bad bodies, panics turned into errors)
// as envelopes.  Non-HTTP errors are logged and reported as a generic 500
// so that no internal detail reaches the client.
func ErrorHandler(log *slog.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}
		status := http.StatusInternalServerError
		message := "Internal server error"

		var he *echo.HTTPError
		if errors.As(err, &he) {
			status = he.Code
			if m, ok := he.Message.(string); ok && status < http.StatusInternalServerError {
				message = m
			} else if status < http.StatusInternalServerError {
				message = http.StatusText(status)
			}
		}
		if status >= http.StatusInternalServerError {
			log.ErrorContext(c.Request().Context(), "request failed",
				"method", c.Request().Method, "path", c.Path(), "err", err)
		}

		if c.Request().Method == http.MethodHead {
			_ = c.NoContent(status)
			return
		}
		_ = Fail(c, status, message)
	}
}
