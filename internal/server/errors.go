package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/zulandar/territorio/internal/ledger"
	"github.com/zulandar/territorio/internal/manager"
	"github.com/zulandar/territorio/internal/territory"
)

// statusFor maps domain errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, ledger.ErrCongregationNotFound),
		errors.Is(err, ledger.ErrTerritoryNotFound),
		errors.Is(err, ledger.ErrManagerNotFound),
		errors.Is(err, ledger.ErrAssignmentNotFound),
		errors.Is(err, territory.ErrNotFound),
		errors.Is(err, manager.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ledger.ErrTerritoryWorking),
		errors.Is(err, ledger.ErrTerritoryTaken),
		errors.Is(err, ledger.ErrManagerBusy),
		errors.Is(err, territory.ErrWorking),
		errors.Is(err, manager.ErrPhoneTaken):
		return http.StatusConflict
	case errors.Is(err, ledger.ErrAssignmentNotActive),
		errors.Is(err, territory.ErrInvalid),
		errors.Is(err, manager.ErrInvalid),
		errors.Is(err, errBadRequest):
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

var errBadRequest = errors.New("bad request")

// fail writes err as a JSON error. Internal errors are logged and hidden.
func (h *handlers) fail(c *gin.Context, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		h.log.WithError(err).WithField("path", c.FullPath()).Error("request failed")
		c.JSON(status, gin.H{"error": "internal error"})
		return
	}
	c.JSON(status, gin.H{"error": err.Error()})
}
