package audit

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zulandar/tracewell/internal/models"
	"github.com/zulandar/tracewell/internal/role"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func testDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	sqlDB, _ := db.DB()
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, db.AutoMigrate(&models.AuditEntry{}))
	return db
}

var pm = role.Actor{ID: "u-pm", Role: role.ProgramManager}

func TestRecord(t *testing.T) {
	db := testDB(t)

	entry, err := Record(db, pm, Entry{
		EntityType: EntityStory,
		EntityID:   "st-1",
		Action:     ActionTransition,
		From:       "Draft",
		To:         "Needs Discussion",
		Notes:      "scope unclear",
	})
	require.NoError(t, err)
	assert.NotZero(t, entry.ID)
	assert.Equal(t, "u-pm", entry.ActorID)
	assert.Equal(t, "program_manager", entry.ActorRole)
	assert.False(t, entry.CreatedAt.IsZero())
}

func TestRecord_Validation(t *testing.T) {
	db := testDB(t)
	tests := []struct {
		name  string
		actor role.Actor
		entry Entry
		want  string
	}{
		{"no entity", pm, Entry{Action: ActionCreate}, "entity type and id"},
		{"no action", pm, Entry{EntityType: EntityStory, EntityID: "st-1"}, "action is required"},
		{"anonymous", role.Actor{Role: role.Admin}, Entry{EntityType: EntityStory, EntityID: "st-1", Action: ActionCreate}, "actor id"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Record(db, tt.actor, tt.entry)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestHistory_OrderedAndScoped(t *testing.T) {
	db := testDB(t)
	for _, to := range []string{"Internal Review", "Pending Client Review", "Approved"} {
		_, err := Record(db, pm, Entry{EntityType: EntityStory, EntityID: "st-1", Action: ActionTransition, To: to})
		require.NoError(t, err)
	}
	_, err := Record(db, pm, Entry{EntityType: EntityStory, EntityID: "st-2", Action: ActionCreate})
	require.NoError(t, err)
	_, err = Record(db, pm, Entry{EntityType: EntityDefect, EntityID: "st-1", Action: ActionCreate})
	require.NoError(t, err)

	entries, err := History(db, EntityStory, "st-1")
	require.NoError(t, err)
	require.Len(t, entries, 3)
	assert.Equal(t, "Internal Review", entries[0].ToStatus)
	assert.Equal(t, "Approved", entries[2].ToStatus)
}
