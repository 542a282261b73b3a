package defect

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zulandar/tracewell/internal/audit"
	"github.com/zulandar/tracewell/internal/db"
	"github.com/zulandar/tracewell/internal/models"
	"github.com/zulandar/tracewell/internal/role"
	"github.com/zulandar/tracewell/internal/workflow"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func testDB(t *testing.T) *gorm.DB {
	t.Helper()
	gdb, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	sqlDB, _ := gdb.DB()
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, db.AutoMigrate(gdb))
	return gdb
}

var (
	admin  = role.Actor{ID: "u-admin", Role: role.Admin}
	tester = role.Actor{ID: "u-tester", Role: role.UATTester}
	dev    = role.Actor{ID: "u-dev", Role: role.Developer}
	uatMgr = role.Actor{ID: "u-uatm", Role: role.UATManager}
)

func report(t *testing.T, gdb *gorm.DB) *models.Defect {
	t.Helper()
	d, err := Create(gdb, tester, CreateOpts{Title: "Lab result dates off by one day", Severity: models.PriorityHigh})
	require.NoError(t, err)
	return d
}

func TestCreate(t *testing.T) {
	gdb := testDB(t)
	d := report(t, gdb)
	assert.Equal(t, workflow.DefectOpen, d.Status)
	assert.Equal(t, "u-tester", d.ReportedBy)
	assert.Equal(t, 1, d.Version)

	_, err := Create(gdb, tester, CreateOpts{Title: ""})
	assert.ErrorContains(t, err, "title is required")

	_, err = Create(gdb, tester, CreateOpts{Title: "x", Severity: "blocker"})
	assert.ErrorContains(t, err, "invalid severity")

	_, err = Create(gdb, tester, CreateOpts{Title: "x", AssignedTo: "u-dev"})
	assert.ErrorIs(t, err, workflow.ErrUnauthorized)

	_, err = Create(gdb, tester, CreateOpts{Title: "x", ExecutionID: "missing"})
	assert.ErrorIs(t, err, db.ErrNotFound)
}

func TestCreate_FromExecution(t *testing.T) {
	gdb := testDB(t)
	ex := models.TestExecution{
		ID: "ex-1", TestCaseID: "tc-1", StoryID: "st-1",
		Status: workflow.ExecutionFailed, Version: 3, AssignedTo: "u-tester",
	}
	require.NoError(t, gdb.Create(&ex).Error)

	d, err := Create(gdb, tester, CreateOpts{Title: "Confirmation email missing", ExecutionID: "ex-1"})
	require.NoError(t, err)
	assert.Equal(t, "tc-1", d.TestCaseID)
	assert.Equal(t, "st-1", d.StoryID)
}

func TestTransition_HappyPath(t *testing.T) {
	gdb := testDB(t)
	d := report(t, gdb)

	for _, to := range []workflow.DefectStatus{
		workflow.DefectConfirmed,
		workflow.DefectInProgress,
		workflow.DefectFixed,
		workflow.DefectVerified,
		workflow.DefectClosed,
	} {
		got, err := Transition(gdb, admin, TransitionRequest{DefectID: d.ID, To: to})
		require.NoError(t, err, "to %q", to)
		assert.Equal(t, to, got.Status)
		d = got
	}
	assert.Equal(t, 6, d.Version)
	assert.NotNil(t, d.FixedAt)
	assert.NotNil(t, d.ClosedAt)
	assert.Empty(t, AllowedTransitions(d, admin))

	hist, err := History(gdb, d.ID)
	require.NoError(t, err)
	assert.Len(t, hist, 6)
}

func TestTransition_NoSkipping(t *testing.T) {
	gdb := testDB(t)
	d := report(t, gdb)

	_, err := Transition(gdb, admin, TransitionRequest{DefectID: d.ID, To: workflow.DefectFixed})
	assert.ErrorIs(t, err, workflow.ErrIllegalTransition)

	got, err := Get(gdb, d.ID)
	require.NoError(t, err)
	assert.Equal(t, workflow.DefectOpen, got.Status)
}

func TestTransition_RolesAndNotes(t *testing.T) {
	gdb := testDB(t)
	d := report(t, gdb)

	_, err := Transition(gdb, dev, TransitionRequest{DefectID: d.ID, To: workflow.DefectConfirmed})
	assert.ErrorIs(t, err, workflow.ErrUnauthorized, "developers do not triage")

	_, err = Transition(gdb, uatMgr, TransitionRequest{DefectID: d.ID, To: workflow.DefectClosed})
	assert.ErrorIs(t, err, workflow.ErrNotesRequired)

	_, err = Transition(gdb, uatMgr, TransitionRequest{DefectID: d.ID, To: workflow.DefectConfirmed})
	require.NoError(t, err)
	_, err = Transition(gdb, dev, TransitionRequest{DefectID: d.ID, To: workflow.DefectInProgress})
	require.NoError(t, err)
	_, err = Transition(gdb, dev, TransitionRequest{DefectID: d.ID, To: workflow.DefectFixed})
	require.NoError(t, err)

	_, err = Transition(gdb, tester, TransitionRequest{DefectID: d.ID, To: workflow.DefectInProgress})
	assert.ErrorIs(t, err, workflow.ErrNotesRequired)
	got, err := Transition(gdb, tester, TransitionRequest{DefectID: d.ID, To: workflow.DefectInProgress, Notes: "still off by one in PST"})
	require.NoError(t, err)
	assert.Equal(t, workflow.DefectInProgress, got.Status)
}

func TestTransition_Reopen(t *testing.T) {
	gdb := testDB(t)
	d := report(t, gdb)
	for _, to := range []workflow.DefectStatus{
		workflow.DefectConfirmed, workflow.DefectInProgress, workflow.DefectFixed, workflow.DefectVerified,
	} {
		_, err := Transition(gdb, admin, TransitionRequest{DefectID: d.ID, To: to})
		require.NoError(t, err)
	}

	got, err := Transition(gdb, uatMgr, TransitionRequest{DefectID: d.ID, To: workflow.DefectOpen, Notes: "regressed"})
	require.NoError(t, err)
	assert.Equal(t, workflow.DefectOpen, got.Status)
	assert.Nil(t, got.FixedAt)
}

func TestAssign(t *testing.T) {
	gdb := testDB(t)
	d := report(t, gdb)

	_, err := Assign(gdb, dev, d.ID, "u-dev")
	assert.ErrorIs(t, err, workflow.ErrUnauthorized)

	got, err := Assign(gdb, uatMgr, d.ID, "u-dev")
	require.NoError(t, err)
	assert.Equal(t, "u-dev", got.AssignedTo)
	assert.Equal(t, 2, got.Version)

	again, err := Assign(gdb, uatMgr, d.ID, "u-dev")
	require.NoError(t, err)
	assert.Equal(t, 2, again.Version, "same assignee leaves the row untouched")

	hist, err := History(gdb, d.ID)
	require.NoError(t, err)
	var assigns int
	for _, h := range hist {
		if h.Action == audit.ActionAssign {
			assigns++
		}
	}
	assert.Equal(t, 2, assigns)

	_, err = Assign(gdb, uatMgr, "missing", "u-dev")
	assert.ErrorIs(t, err, db.ErrNotFound)
}

func TestList(t *testing.T) {
	gdb := testDB(t)
	a := report(t, gdb)
	_, err := Create(gdb, uatMgr, CreateOpts{Title: "Typo on consent page", Severity: models.PriorityLow, AssignedTo: "u-dev"})
	require.NoError(t, err)
	_, err = Transition(gdb, admin, TransitionRequest{DefectID: a.ID, To: workflow.DefectConfirmed})
	require.NoError(t, err)

	all, err := List(gdb, ListFilters{})
	require.NoError(t, err)
	assert.Len(t, all, 2)

	mine, err := List(gdb, ListFilters{AssignedTo: "u-dev"})
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Equal(t, "Typo on consent page", mine[0].Title)

	confirmed, err := List(gdb, ListFilters{Status: workflow.DefectConfirmed, Severity: models.PriorityHigh})
	require.NoError(t, err)
	require.Len(t, confirmed, 1)
	assert.Equal(t, a.ID, confirmed[0].ID)
}
