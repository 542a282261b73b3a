package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/zulandar/tracewell/internal/identity"
)

// registerRoutes sets up every API route on the gin router.
func registerRoutes(router *gin.Engine, a *api, auth *identity.Authenticator) {
	router.GET("/healthz", a.handleHealth())
	router.GET("/metrics", gin.WrapH(a.metrics.Handler()))

	g := router.Group("/api", identity.Middleware(auth))

	g.POST("/stories", a.handleStoryCreate())
	g.GET("/stories", a.handleStoryList())
	g.GET("/stories/:id", a.handleStoryGet())
	g.PATCH("/stories/:id", a.handleStoryUpdate())
	g.GET("/stories/:id/transitions", a.handleStoryTransitions())
	g.POST("/stories/:id/transitions", a.handleStoryTransition())
	g.POST("/stories/:id/approvals", a.handleStoryApproval())
	g.GET("/stories/:id/history", a.handleStoryHistory())
	g.GET("/stories/:id/testcases", a.handleStoryTestCases())

	g.POST("/testcases", a.handleTestCaseCreate())
	g.GET("/testcases/:id", a.handleTestCaseGet())
	g.POST("/testcases/:id/review", a.handleTestCaseReview())
	g.GET("/testcases/:id/transitions", a.handleTestCaseTransitions())
	g.POST("/testcases/:id/transitions", a.handleTestCaseTransition())
	g.GET("/testcases/:id/history", a.handleTestCaseHistory())

	g.POST("/executions", a.handleExecutionAssign())
	g.GET("/executions", a.handleExecutionList())
	g.GET("/executions/:id", a.handleExecutionGet())
	g.POST("/executions/:id/steps", a.handleExecutionStep())
	g.GET("/executions/:id/transitions", a.handleExecutionTransitions())
	g.POST("/executions/:id/transitions", a.handleExecutionTransition())
	g.GET("/executions/:id/history", a.handleExecutionHistory())

	g.POST("/defects", a.handleDefectCreate())
	g.GET("/defects", a.handleDefectList())
	g.GET("/defects/:id", a.handleDefectGet())
	g.GET("/defects/:id/transitions", a.handleDefectTransitions())
	g.POST("/defects/:id/transitions", a.handleDefectTransition())
	g.POST("/defects/:id/assign", a.handleDefectAssign())
	g.GET("/defects/:id/history", a.handleDefectHistory())
}

// transitionBody is the request body for every POST .../transitions route.
type transitionBody struct {
	To              string `json:"to" binding:"required"`
	Notes           string `json:"notes"`
	ExpectedVersion int    `json:"expected_version"`
}

// transitionsView is the response body for every GET .../transitions route.
type transitionsView[S ~string, T any] struct {
	Status      S   `json:"status"`
	Version     int `json:"version"`
	Transitions []T `json:"transitions"`
}

func (a *api) handleHealth() gin.HandlerFunc {
	return func(c *gin.Context) {
		sqlDB, err := a.db.DB()
		if err == nil {
			err = sqlDB.PingContext(c.Request.Context())
		}
		if err != nil {
			a.log.Error("health check failed", "err", err)
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	}
}
