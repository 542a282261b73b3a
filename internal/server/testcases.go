package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/zulandar/tracewell/internal/audit"
	"github.com/zulandar/tracewell/internal/identity"
	"github.com/zulandar/tracewell/internal/testcase"
	"github.com/zulandar/tracewell/internal/workflow"
)

type testCaseCreateBody struct {
	StoryID       string               `json:"story_id"`
	Title         string               `json:"title"`
	Preconditions string               `json:"preconditions"`
	IsAIGenerated bool                 `json:"is_ai_generated"`
	Steps         []testcase.StepInput `json:"steps"`
}

func (a *api) handleTestCaseCreate() gin.HandlerFunc {
	return func(c *gin.Context) {
		var body testCaseCreateBody
		if err := c.ShouldBindJSON(&body); err != nil {
			badRequest(c, err)
			return
		}
		tc, err := testcase.Create(a.db, identity.ActorFrom(c), testcase.CreateOpts{
			StoryID:       body.StoryID,
			Title:         body.Title,
			Preconditions: body.Preconditions,
			IsAIGenerated: body.IsAIGenerated,
			Steps:         body.Steps,
		})
		if err != nil {
			a.fail(c, err)
			return
		}
		c.JSON(http.StatusCreated, tc)
	}
}

func (a *api) handleTestCaseGet() gin.HandlerFunc {
	return func(c *gin.Context) {
		tc, err := testcase.Get(a.db, c.Param("id"))
		if err != nil {
			a.fail(c, err)
			return
		}
		c.JSON(http.StatusOK, tc)
	}
}

func (a *api) handleTestCaseReview() gin.HandlerFunc {
	return func(c *gin.Context) {
		tc, err := testcase.MarkReviewed(a.db, identity.ActorFrom(c), c.Param("id"))
		if err != nil {
			a.fail(c, err)
			return
		}
		c.JSON(http.StatusOK, tc)
	}
}

func (a *api) handleTestCaseTransitions() gin.HandlerFunc {
	return func(c *gin.Context) {
		tc, err := testcase.Get(a.db, c.Param("id"))
		if err != nil {
			a.fail(c, err)
			return
		}
		c.JSON(http.StatusOK, transitionsView[workflow.TestCaseStatus, workflow.Transition[workflow.TestCaseStatus]]{
			Status:      tc.Status,
			Version:     tc.Version,
			Transitions: testcase.AllowedTransitions(tc, identity.ActorFrom(c)),
		})
	}
}

func (a *api) handleTestCaseTransition() gin.HandlerFunc {
	return func(c *gin.Context) {
		var body transitionBody
		if err := c.ShouldBindJSON(&body); err != nil {
			badRequest(c, err)
			return
		}
		id := c.Param("id")
		tc, err := testcase.Transition(a.db, identity.ActorFrom(c), testcase.TransitionRequest{
			TestCaseID:      id,
			To:              workflow.TestCaseStatus(body.To),
			Notes:           body.Notes,
			ExpectedVersion: body.ExpectedVersion,
		})
		a.observeTransition(c, audit.EntityTestCase, id, body.To, err)
		if err != nil {
			a.fail(c, err)
			return
		}
		c.JSON(http.StatusOK, tc)
	}
}

func (a *api) handleTestCaseHistory() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.Param("id")
		if _, err := testcase.Get(a.db, id); err != nil {
			a.fail(c, err)
			return
		}
		entries, err := testcase.History(a.db, id)
		if err != nil {
			a.fail(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"history": entries})
	}
}
