package workflow

import "github.com/zulandar/tracewell/internal/role"

// StoryStatus is a user story's approval workflow state.
type StoryStatus string

const (
	StoryDraft               StoryStatus = "Draft"
	StoryInternalReview      StoryStatus = "Internal Review"
	StoryPendingClientReview StoryStatus = "Pending Client Review"
	StoryApproved            StoryStatus = "Approved"
	StoryInDevelopment       StoryStatus = "In Development"
	StoryInUAT               StoryStatus = "In UAT"
	StoryNeedsDiscussion     StoryStatus = "Needs Discussion"
	StoryOutOfScope          StoryStatus = "Out of Scope"
)

var storyManagers = []role.Role{role.Admin, role.PortfolioManager, role.ProgramManager}

// StoryTable governs the story approval workflow. Out of Scope only
// re-enters the workflow through Draft, and reopening requires notes.
var StoryTable = NewTable[StoryStatus]("story", StoryDraft).
	On(StoryDraft, storyManagers,
		Edge(StoryInternalReview, "Submit for Internal Review"),
		NotedEdge(StoryNeedsDiscussion, "Flag for Discussion"),
		NotedEdge(StoryOutOfScope, "Mark Out of Scope"),
	).
	On(StoryInternalReview, storyManagers,
		ApprovedEdge(StoryPendingClientReview, "Send to Client Review", ApprovalInternalReview),
		NotedEdge(StoryDraft, "Return to Draft"),
		NotedEdge(StoryNeedsDiscussion, "Flag for Discussion"),
	).
	On(StoryPendingClientReview, storyManagers,
		ApprovedEdge(StoryApproved, "Mark Approved", ApprovalStakeholder),
		NotedEdge(StoryNeedsDiscussion, "Flag for Discussion"),
		NotedEdge(StoryInternalReview, "Return to Internal Review"),
	).
	On(StoryApproved, storyManagers,
		Edge(StoryInDevelopment, "Start Development"),
		NotedEdge(StoryNeedsDiscussion, "Flag for Discussion"),
	).
	On(StoryInDevelopment, []role.Role{role.Admin, role.PortfolioManager, role.ProgramManager, role.Developer},
		Edge(StoryInUAT, "Ready for UAT"),
		NotedEdge(StoryNeedsDiscussion, "Flag for Discussion"),
	).
	On(StoryInUAT, []role.Role{role.Admin, role.PortfolioManager, role.ProgramManager, role.UATManager},
		Edge(StoryApproved, "UAT Passed"),
		NotedEdge(StoryInDevelopment, "Return to Development"),
		NotedEdge(StoryNeedsDiscussion, "Flag for Discussion"),
	).
	On(StoryNeedsDiscussion, storyManagers,
		Edge(StoryDraft, "Return to Draft"),
		Edge(StoryInternalReview, "Resume Internal Review"),
		Edge(StoryPendingClientReview, "Resume Client Review"),
		NotedEdge(StoryOutOfScope, "Mark Out of Scope"),
	).
	On(StoryOutOfScope, []role.Role{role.Admin, role.PortfolioManager},
		NotedEdge(StoryDraft, "Reopen as Draft"),
	)
