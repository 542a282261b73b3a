package server

import (
	"log/slog"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/zulandar/tracewell/internal/identity"
	"github.com/zulandar/tracewell/internal/metrics"
)

// requestLogger logs each request and records it in m under its route
// pattern, so ids in the path do not explode label cardinality.
func requestLogger(log *slog.Logger, m *metrics.Collector) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		elapsed := time.Since(start)
		status := c.Writer.Status()
		m.ObserveRequest(c.Request.Method, route, status, elapsed)

		attrs := []any{
			"method", c.Request.Method,
			"route", route,
			"status", status,
			"elapsed", elapsed,
		}
		if actor := identity.ActorFrom(c); !actor.Anonymous() {
			attrs = append(attrs, "actor", actor.ID, "role", string(actor.Role))
		}
		if status >= 500 {
			log.Error("request", attrs...)
			return
		}
		log.Debug("request", attrs...)
	}
}

// observeTransition logs and counts a transition attempt.
func (a *api) observeTransition(c *gin.Context, entity, id, to string, err error) {
	outcome := outcomeFor(err)
	a.metrics.ObserveTransition(entity, to, outcome)

	actor := identity.ActorFrom(c)
	attrs := []any{"entity", entity, "id", id, "to", to, "actor", actor.ID, "role", string(actor.Role)}
	switch outcome {
	case metrics.OutcomeCommitted:
		a.log.Info("transition committed", attrs...)
	case metrics.OutcomeError:
		// Logged by fail.
	default:
		a.log.Warn("transition rejected", append(attrs, "outcome", outcome, "err", err)...)
	}
}
