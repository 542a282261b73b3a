package workflow

import "github.com/zulandar/tracewell/internal/role"

// DefectStatus is a defect's lifecycle state.
type DefectStatus string

const (
	DefectOpen       DefectStatus = "open"
	DefectConfirmed  DefectStatus = "confirmed"
	DefectInProgress DefectStatus = "in_progress"
	DefectFixed      DefectStatus = "fixed"
	DefectVerified   DefectStatus = "verified"
	DefectClosed     DefectStatus = "closed"
)

// DefectTable governs defects. Rejecting and reopening edges require notes.
var DefectTable = NewTable[DefectStatus]("defect", DefectOpen).
	On(DefectOpen, []role.Role{role.Admin, role.PortfolioManager, role.ProgramManager, role.UATManager},
		Edge(DefectConfirmed, "Confirm Defect"),
		NotedEdge(DefectClosed, "Close as Invalid"),
	).
	On(DefectConfirmed, []role.Role{role.Admin, role.PortfolioManager, role.ProgramManager, role.UATManager, role.Developer},
		Edge(DefectInProgress, "Start Fix"),
		NotedEdge(DefectClosed, "Close as Won't Fix"),
	).
	On(DefectInProgress, []role.Role{role.Admin, role.PortfolioManager, role.ProgramManager, role.Developer},
		Edge(DefectFixed, "Mark Fixed"),
	).
	On(DefectFixed, []role.Role{role.Admin, role.PortfolioManager, role.ProgramManager, role.UATManager, role.UATTester},
		Edge(DefectVerified, "Verify Fix"),
		NotedEdge(DefectInProgress, "Fix Failed Re-test"),
	).
	On(DefectVerified, []role.Role{role.Admin, role.PortfolioManager, role.ProgramManager, role.UATManager},
		Edge(DefectClosed, "Close Defect"),
		NotedEdge(DefectOpen, "Reopen"),
	).
	On(DefectClosed, []role.Role{role.Admin, role.PortfolioManager, role.ProgramManager, role.UATManager})

// DefectAssigners may set or change a defect's assignee in any status.
var DefectAssigners = []role.Role{role.Admin, role.PortfolioManager, role.UATManager}
