package workflow

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zulandar/tracewell/internal/role"
)

func storyTargets(ts []Transition[StoryStatus]) []StoryStatus {
	out := make([]StoryStatus, len(ts))
	for i, t := range ts {
		out[i] = t.To
	}
	return out
}

func TestStoryTable_Destinations(t *testing.T) {
	tests := []struct {
		from  StoryStatus
		role  role.Role
		want  []StoryStatus
		notes []StoryStatus
	}{
		{StoryDraft, role.ProgramManager,
			[]StoryStatus{StoryInternalReview, StoryNeedsDiscussion, StoryOutOfScope},
			[]StoryStatus{StoryNeedsDiscussion, StoryOutOfScope}},
		{StoryInternalReview, role.Admin,
			[]StoryStatus{StoryPendingClientReview, StoryDraft, StoryNeedsDiscussion},
			[]StoryStatus{StoryDraft, StoryNeedsDiscussion}},
		{StoryPendingClientReview, role.PortfolioManager,
			[]StoryStatus{StoryApproved, StoryNeedsDiscussion, StoryInternalReview},
			[]StoryStatus{StoryNeedsDiscussion, StoryInternalReview}},
		{StoryApproved, role.ProgramManager,
			[]StoryStatus{StoryInDevelopment, StoryNeedsDiscussion},
			[]StoryStatus{StoryNeedsDiscussion}},
		{StoryInDevelopment, role.Developer,
			[]StoryStatus{StoryInUAT, StoryNeedsDiscussion},
			[]StoryStatus{StoryNeedsDiscussion}},
		{StoryInUAT, role.UATManager,
			[]StoryStatus{StoryApproved, StoryInDevelopment, StoryNeedsDiscussion},
			[]StoryStatus{StoryInDevelopment, StoryNeedsDiscussion}},
		{StoryNeedsDiscussion, role.Admin,
			[]StoryStatus{StoryDraft, StoryInternalReview, StoryPendingClientReview, StoryOutOfScope},
			[]StoryStatus{StoryOutOfScope}},
		{StoryOutOfScope, role.PortfolioManager,
			[]StoryStatus{StoryDraft},
			[]StoryStatus{StoryDraft}},
	}
	for _, tt := range tests {
		t.Run(string(tt.from), func(t *testing.T) {
			got := StoryTable.Allowed(tt.from, tt.role)
			assert.Equal(t, tt.want, storyTargets(got))

			var noted []StoryStatus
			for _, e := range got {
				if e.RequiresNotes {
					noted = append(noted, e.To)
				}
			}
			assert.Equal(t, tt.notes, noted)
		})
	}
}

func TestStoryTable_RoleGates(t *testing.T) {
	tests := []struct {
		status  StoryStatus
		allowed []role.Role
	}{
		{StoryDraft, []role.Role{role.Admin, role.PortfolioManager, role.ProgramManager}},
		{StoryInDevelopment, []role.Role{role.Admin, role.PortfolioManager, role.ProgramManager, role.Developer}},
		{StoryInUAT, []role.Role{role.Admin, role.PortfolioManager, role.ProgramManager, role.UATManager}},
		{StoryOutOfScope, []role.Role{role.Admin, role.PortfolioManager}},
	}
	for _, tt := range tests {
		for _, r := range role.All {
			got := len(StoryTable.Allowed(tt.status, r)) > 0
			assert.Equal(t, r.In(tt.allowed...), got, "status %q role %q", tt.status, r)
		}
	}
}

func TestStoryTable_ApprovalEdges(t *testing.T) {
	edge, ok := StoryTable.Find(StoryInternalReview, StoryPendingClientReview, role.Admin)
	require.True(t, ok)
	assert.True(t, edge.RequiresApproval)
	assert.Equal(t, ApprovalInternalReview, edge.ApprovalKind)

	edge, ok = StoryTable.Find(StoryPendingClientReview, StoryApproved, role.Admin)
	require.True(t, ok)
	assert.True(t, edge.RequiresApproval)
	assert.Equal(t, ApprovalStakeholder, edge.ApprovalKind)
}

func TestStoryTable_DraftAsProgramManager(t *testing.T) {
	got := StoryTable.Allowed(StoryDraft, role.ProgramManager)
	assert.ElementsMatch(t,
		[]StoryStatus{StoryInternalReview, StoryNeedsDiscussion, StoryOutOfScope},
		storyTargets(got))

	assert.False(t, StoryTable.Can(StoryDraft, StoryApproved, role.ProgramManager))
	_, err := StoryTable.Validate(StoryDraft, StoryApproved, role.ProgramManager, "")
	assert.True(t, errors.Is(err, ErrIllegalTransition), "err = %v", err)
}

func TestStoryTable_NoShortcutFromApprovedToUAT(t *testing.T) {
	for _, r := range role.All {
		assert.False(t, StoryTable.Can(StoryApproved, StoryInUAT, r), "role %q", r)
	}
}

func TestStoryTable_OutOfScopeReopenNeedsNotes(t *testing.T) {
	_, err := StoryTable.Validate(StoryOutOfScope, StoryDraft, role.Admin, "")
	assert.ErrorIs(t, err, ErrNotesRequired)

	_, err = StoryTable.Validate(StoryOutOfScope, StoryDraft, role.ProgramManager, "client asked again")
	assert.ErrorIs(t, err, ErrUnauthorized)

	edge, err := StoryTable.Validate(StoryOutOfScope, StoryDraft, role.PortfolioManager, "client asked again")
	require.NoError(t, err)
	assert.Equal(t, StoryDraft, edge.To)
}
