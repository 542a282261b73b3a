package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/zulandar/tracewell/internal/audit"
	"github.com/zulandar/tracewell/internal/execution"
	"github.com/zulandar/tracewell/internal/identity"
	"github.com/zulandar/tracewell/internal/workflow"
)

type assignBody struct {
	TestCaseID string `json:"test_case_id" binding:"required"`
	AssignedTo string `json:"assigned_to"`
}

func (a *api) handleExecutionAssign() gin.HandlerFunc {
	return func(c *gin.Context) {
		var body assignBody
		if err := c.ShouldBindJSON(&body); err != nil {
			badRequest(c, err)
			return
		}
		ex, err := execution.Assign(a.db, identity.ActorFrom(c), execution.AssignOpts{
			TestCaseID: body.TestCaseID,
			AssignedTo: body.AssignedTo,
		})
		if err != nil {
			a.fail(c, err)
			return
		}
		c.JSON(http.StatusCreated, ex)
	}
}

// handleExecutionList lists executions assigned to ?assigned_to, or to the
// caller when omitted.
func (a *api) handleExecutionList() gin.HandlerFunc {
	return func(c *gin.Context) {
		user := c.Query("assigned_to")
		if user == "" {
			user = identity.ActorFrom(c).ID
		}
		list, err := execution.ListAssigned(a.db, user)
		if err != nil {
			a.fail(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"executions": list})
	}
}

func (a *api) handleExecutionGet() gin.HandlerFunc {
	return func(c *gin.Context) {
		ex, err := execution.Get(a.db, c.Param("id"))
		if err != nil {
			a.fail(c, err)
			return
		}
		c.JSON(http.StatusOK, ex)
	}
}

func (a *api) handleExecutionStep() gin.HandlerFunc {
	return func(c *gin.Context) {
		var body execution.StepInput
		if err := c.ShouldBindJSON(&body); err != nil {
			badRequest(c, err)
			return
		}
		res, err := execution.RecordStep(a.db, identity.ActorFrom(c), c.Param("id"), body)
		if err != nil {
			a.fail(c, err)
			return
		}
		c.JSON(http.StatusOK, res)
	}
}

func (a *api) handleExecutionTransitions() gin.HandlerFunc {
	return func(c *gin.Context) {
		ex, err := execution.Get(a.db, c.Param("id"))
		if err != nil {
			a.fail(c, err)
			return
		}
		allowed, err := execution.AllowedTransitions(a.db, ex, identity.ActorFrom(c))
		if err != nil {
			a.fail(c, err)
			return
		}
		c.JSON(http.StatusOK, transitionsView[workflow.ExecutionStatus, workflow.Transition[workflow.ExecutionStatus]]{
			Status:      ex.Status,
			Version:     ex.Version,
			Transitions: allowed,
		})
	}
}

func (a *api) handleExecutionTransition() gin.HandlerFunc {
	return func(c *gin.Context) {
		var body transitionBody
		if err := c.ShouldBindJSON(&body); err != nil {
			badRequest(c, err)
			return
		}
		id := c.Param("id")
		ex, err := execution.Transition(a.db, identity.ActorFrom(c), execution.TransitionRequest{
			ExecutionID:     id,
			To:              workflow.ExecutionStatus(body.To),
			Notes:           body.Notes,
			ExpectedVersion: body.ExpectedVersion,
		})
		a.observeTransition(c, audit.EntityExecution, id, body.To, err)
		if err != nil {
			a.fail(c, err)
			return
		}
		c.JSON(http.StatusOK, ex)
	}
}

func (a *api) handleExecutionHistory() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.Param("id")
		if _, err := execution.Get(a.db, id); err != nil {
			a.fail(c, err)
			return
		}
		entries, err := execution.History(a.db, id)
		if err != nil {
			a.fail(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"history": entries})
	}
}
