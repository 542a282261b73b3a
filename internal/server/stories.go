package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/zulandar/tracewell/internal/audit"
	"github.com/zulandar/tracewell/internal/identity"
	"github.com/zulandar/tracewell/internal/models"
	"github.com/zulandar/tracewell/internal/story"
	"github.com/zulandar/tracewell/internal/testcase"
	"github.com/zulandar/tracewell/internal/workflow"
)

type storyCreateBody struct {
	Title              string          `json:"title"`
	Description        string          `json:"description"`
	AcceptanceCriteria string          `json:"acceptance_criteria"`
	Priority           models.Priority `json:"priority"`
	OwnerID            string          `json:"owner_id"`
}

type storyUpdateBody struct {
	Title              *string          `json:"title"`
	Description        *string          `json:"description"`
	AcceptanceCriteria *string          `json:"acceptance_criteria"`
	Priority           *models.Priority `json:"priority"`
	OwnerID            *string          `json:"owner_id"`
	ExpectedVersion    int              `json:"expected_version"`
}

type approvalBody struct {
	Kind     workflow.ApprovalKind   `json:"kind" binding:"required"`
	Decision models.ApprovalDecision `json:"decision" binding:"required"`
	Notes    string                  `json:"notes"`
}

func (a *api) handleStoryCreate() gin.HandlerFunc {
	return func(c *gin.Context) {
		var body storyCreateBody
		if err := c.ShouldBindJSON(&body); err != nil {
			badRequest(c, err)
			return
		}
		s, err := story.Create(a.db, identity.ActorFrom(c), story.CreateOpts{
			Title:              body.Title,
			Description:        body.Description,
			AcceptanceCriteria: body.AcceptanceCriteria,
			Priority:           body.Priority,
			OwnerID:            body.OwnerID,
		})
		if err != nil {
			a.fail(c, err)
			return
		}
		c.JSON(http.StatusCreated, s)
	}
}

func (a *api) handleStoryList() gin.HandlerFunc {
	return func(c *gin.Context) {
		stories, err := story.List(a.db, story.ListFilters{
			Status:   workflow.StoryStatus(c.Query("status")),
			OwnerID:  c.Query("owner"),
			Priority: models.Priority(c.Query("priority")),
		})
		if err != nil {
			a.fail(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"stories": stories})
	}
}

func (a *api) handleStoryGet() gin.HandlerFunc {
	return func(c *gin.Context) {
		s, err := story.Get(a.db, c.Param("id"))
		if err != nil {
			a.fail(c, err)
			return
		}
		c.JSON(http.StatusOK, s)
	}
}

func (a *api) handleStoryUpdate() gin.HandlerFunc {
	return func(c *gin.Context) {
		var body storyUpdateBody
		if err := c.ShouldBindJSON(&body); err != nil {
			badRequest(c, err)
			return
		}
		s, err := story.Update(a.db, identity.ActorFrom(c), c.Param("id"), story.UpdateOpts{
			Title:              body.Title,
			Description:        body.Description,
			AcceptanceCriteria: body.AcceptanceCriteria,
			Priority:           body.Priority,
			OwnerID:            body.OwnerID,
			ExpectedVersion:    body.ExpectedVersion,
		})
		if err != nil {
			a.fail(c, err)
			return
		}
		c.JSON(http.StatusOK, s)
	}
}

func (a *api) handleStoryTransitions() gin.HandlerFunc {
	return func(c *gin.Context) {
		s, err := story.Get(a.db, c.Param("id"))
		if err != nil {
			a.fail(c, err)
			return
		}
		c.JSON(http.StatusOK, transitionsView[workflow.StoryStatus, workflow.Transition[workflow.StoryStatus]]{
			Status:      s.Status,
			Version:     s.Version,
			Transitions: story.AllowedTransitions(s, identity.ActorFrom(c)),
		})
	}
}

func (a *api) handleStoryTransition() gin.HandlerFunc {
	return func(c *gin.Context) {
		var body transitionBody
		if err := c.ShouldBindJSON(&body); err != nil {
			badRequest(c, err)
			return
		}
		id := c.Param("id")
		s, err := story.Transition(a.db, identity.ActorFrom(c), story.TransitionRequest{
			StoryID:         id,
			To:              workflow.StoryStatus(body.To),
			Notes:           body.Notes,
			ExpectedVersion: body.ExpectedVersion,
		})
		a.observeTransition(c, audit.EntityStory, id, body.To, err)
		if err != nil {
			a.fail(c, err)
			return
		}
		c.JSON(http.StatusOK, s)
	}
}

func (a *api) handleStoryApproval() gin.HandlerFunc {
	return func(c *gin.Context) {
		var body approvalBody
		if err := c.ShouldBindJSON(&body); err != nil {
			badRequest(c, err)
			return
		}
		ap, err := story.RecordApproval(a.db, identity.ActorFrom(c), story.ApprovalOpts{
			StoryID:  c.Param("id"),
			Kind:     body.Kind,
			Decision: body.Decision,
			Notes:    body.Notes,
		})
		if err != nil {
			a.fail(c, err)
			return
		}
		c.JSON(http.StatusCreated, ap)
	}
}

func (a *api) handleStoryHistory() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.Param("id")
		if _, err := story.Get(a.db, id); err != nil {
			a.fail(c, err)
			return
		}
		entries, err := story.History(a.db, id)
		if err != nil {
			a.fail(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"history": entries})
	}
}

func (a *api) handleStoryTestCases() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.Param("id")
		if _, err := story.Get(a.db, id); err != nil {
			a.fail(c, err)
			return
		}
		cases, err := testcase.ListForStory(a.db, id)
		if err != nil {
			a.fail(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"testcases": cases})
	}
}
