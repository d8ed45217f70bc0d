package controllers

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"posterminal/models"
)

// respondError maps the lifecycle error classes onto HTTP statuses. Each
// class keeps its own status and code so clients can tell them apart.
func respondError(c *gin.Context, log zerolog.Logger, err error) {
	var (
		status int
		code   string
		msg    = err.Error()
	)
	switch {
	case errors.Is(err, models.ErrUnauthenticated):
		status, code, msg = http.StatusUnauthorized, "unauthenticated", "unauthenticated"
	case errors.Is(err, models.ErrInvalidArgument):
		status, code = http.StatusBadRequest, "invalid_argument"
	case errors.Is(err, models.ErrNotFound):
		status, code = http.StatusNotFound, "not_found"
	case errors.Is(err, models.ErrInvalidState):
		status, code = http.StatusConflict, "invalid_state"
	case errors.Is(err, models.ErrStoreUnavailable):
		status, code, msg = http.StatusServiceUnavailable, "store_unavailable", "store unavailable"
	default:
		status, code, msg = http.StatusInternalServerError, "internal", "internal error"
	}
	if status >= http.StatusInternalServerError {
		log.Error().Err(err).Str("path", c.FullPath()).Msg("request failed")
	}
	c.JSON(status, gin.H{"error": msg, "code": code})
}

func paramID(c *gin.Context, name string) (int64, error) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: invalid %s %q", models.ErrInvalidArgument, name, c.Param(name))
	}
	return id, nil
}

func bindJSON(c *gin.Context, dst any) error {
	if err := c.ShouldBindJSON(dst); err != nil {
		return fmt.Errorf("%w: %v", models.ErrInvalidArgument, err)
	}
	return nil
}
