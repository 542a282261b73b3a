package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/zulandar/tracewell/internal/db"
	"github.com/zulandar/tracewell/internal/metrics"
	"github.com/zulandar/tracewell/internal/role"
	"github.com/zulandar/tracewell/internal/workflow"
)

// statusFor maps a domain error to an HTTP status code.
func statusFor(err error) int {
	switch {
	case errors.Is(err, role.ErrUnknownRole):
		return http.StatusUnauthorized
	case errors.Is(err, db.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, db.ErrConflict):
		return http.StatusConflict
	case errors.Is(err, workflow.ErrApprovalRequired):
		return http.StatusPreconditionFailed
	case errors.Is(err, workflow.ErrUnauthorized),
		errors.Is(err, workflow.ErrNotAssignee),
		errors.Is(err, workflow.ErrSegregationOfDuties):
		return http.StatusForbidden
	case errors.Is(err, workflow.ErrIllegalTransition),
		errors.Is(err, workflow.ErrNotesRequired),
		errors.Is(err, workflow.ErrIncompleteSteps),
		errors.Is(err, workflow.ErrStepOutcomeMismatch):
		return http.StatusUnprocessableEntity
	case errors.Is(err, workflow.ErrInvalidInput):
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

// outcomeFor classifies a transition result for metrics.
func outcomeFor(err error) string {
	switch {
	case err == nil:
		return metrics.OutcomeCommitted
	case errors.Is(err, db.ErrConflict):
		return metrics.OutcomeConflict
	case statusFor(err) == http.StatusInternalServerError:
		return metrics.OutcomeError
	}
	return metrics.OutcomeRejected
}

// fail writes err as a JSON error body. Internal errors are logged and
// reported without detail.
func (a *api) fail(c *gin.Context, err error) {
	code := statusFor(err)
	if code == http.StatusInternalServerError {
		a.log.Error("request failed", "method", c.Request.Method, "path", c.Request.URL.Path, "err", err)
		c.JSON(code, gin.H{"error": "internal error"})
		return
	}
	c.JSON(code, gin.H{"error": err.Error()})
}

func badRequest(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body: " + err.Error()})
}
