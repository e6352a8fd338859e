package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/finapp/internal/response"
)

// Health is used by load balancers and monitoring to verify that the
// service is running.  It writes a plain text "ok".
func Health(c echo.Context) error {
	return c.String(http.StatusOK, "ok")
}

type welcome struct {
	Status  string `json:"status"`
	Version string `json:"version"`
}

// Version is reported by GET /api.
const Version = "1.0.0"

// Welcome answers GET /api with a short status payload.
func Welcome(c echo.Context) error {
	return response.OK(c, "Welcome to the Finapp API!", welcome{Status: "API is running", Version: Version})
}
