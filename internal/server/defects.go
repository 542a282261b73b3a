package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/zulandar/tracewell/internal/audit"
	"github.com/zulandar/tracewell/internal/defect"
	"github.com/zulandar/tracewell/internal/identity"
	"github.com/zulandar/tracewell/internal/models"
	"github.com/zulandar/tracewell/internal/workflow"
)

type defectCreateBody struct {
	Title       string          `json:"title"`
	Description string          `json:"description"`
	Severity    models.Priority `json:"severity"`
	StoryID     string          `json:"story_id"`
	TestCaseID  string          `json:"test_case_id"`
	ExecutionID string          `json:"execution_id"`
	AssignedTo  string          `json:"assigned_to"`
}

type defectAssignBody struct {
	Assignee string `json:"assignee"`
}

func (a *api) handleDefectCreate() gin.HandlerFunc {
	return func(c *gin.Context) {
		var body defectCreateBody
		if err := c.ShouldBindJSON(&body); err != nil {
			badRequest(c, err)
			return
		}
		d, err := defect.Create(a.db, identity.ActorFrom(c), defect.CreateOpts{
			Title:       body.Title,
			Description: body.Description,
			Severity:    body.Severity,
			StoryID:     body.StoryID,
			TestCaseID:  body.TestCaseID,
			ExecutionID: body.ExecutionID,
			AssignedTo:  body.AssignedTo,
		})
		if err != nil {
			a.fail(c, err)
			return
		}
		c.JSON(http.StatusCreated, d)
	}
}

func (a *api) handleDefectList() gin.HandlerFunc {
	return func(c *gin.Context) {
		list, err := defect.List(a.db, defect.ListFilters{
			Status:     workflow.DefectStatus(c.Query("status")),
			Severity:   models.Priority(c.Query("severity")),
			AssignedTo: c.Query("assigned_to"),
			StoryID:    c.Query("story_id"),
		})
		if err != nil {
			a.fail(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"defects": list})
	}
}

func (a *api) handleDefectGet() gin.HandlerFunc {
	return func(c *gin.Context) {
		d, err := defect.Get(a.db, c.Param("id"))
		if err != nil {
			a.fail(c, err)
			return
		}
		c.JSON(http.StatusOK, d)
	}
}

func (a *api) handleDefectTransitions() gin.HandlerFunc {
	return func(c *gin.Context) {
		d, err := defect.Get(a.db, c.Param("id"))
		if err != nil {
			a.fail(c, err)
			return
		}
		c.JSON(http.StatusOK, transitionsView[workflow.DefectStatus, workflow.Transition[workflow.DefectStatus]]{
			Status:      d.Status,
			Version:     d.Version,
			Transitions: defect.AllowedTransitions(d, identity.ActorFrom(c)),
		})
	}
}

func (a *api) handleDefectTransition() gin.HandlerFunc {
	return func(c *gin.Context) {
		var body transitionBody
		if err := c.ShouldBindJSON(&body); err != nil {
			badRequest(c, err)
			return
		}
		id := c.Param("id")
		d, err := defect.Transition(a.db, identity.ActorFrom(c), defect.TransitionRequest{
			DefectID:        id,
			To:              workflow.DefectStatus(body.To),
			Notes:           body.Notes,
			ExpectedVersion: body.ExpectedVersion,
		})
		a.observeTransition(c, audit.EntityDefect, id, body.To, err)
		if err != nil {
			a.fail(c, err)
			return
		}
		c.JSON(http.StatusOK, d)
	}
}

func (a *api) handleDefectAssign() gin.HandlerFunc {
	return func(c *gin.Context) {
		var body defectAssignBody
		if err := c.ShouldBindJSON(&body); err != nil {
			badRequest(c, err)
			return
		}
		d, err := defect.Assign(a.db, identity.ActorFrom(c), c.Param("id"), body.Assignee)
		if err != nil {
			a.fail(c, err)
			return
		}
		c.JSON(http.StatusOK, d)
	}
}

func (a *api) handleDefectHistory() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.Param("id")
		if _, err := defect.Get(a.db, id); err != nil {
			a.fail(c, err)
			return
		}
		entries, err := defect.History(a.db, id)
		if err != nil {
			a.fail(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"history": entries})
	}
}
