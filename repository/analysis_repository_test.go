package repository

import (
	"context"
	"testing"

	"DHX/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
)

// dryRunDB builds SQL without a server and records the last statement.
func dryRunDB(t *testing.T) (*gorm.DB, *string) {
	t.Helper()
	gdb, err := gorm.Open(mysql.New(mysql.Config{
		DSN:                       "dj:pw@tcp(127.0.0.1:3306)/dhx?parseTime=true",
		SkipInitializeWithVersion: true,
	}), &gorm.Config{DryRun: true, DisableAutomaticPing: true})
	require.NoError(t, err)

	var last string
	capture := func(tx *gorm.DB) { last = tx.Statement.SQL.String() }
	require.NoError(t, gdb.Callback().Create().After("gorm:create").Register("test:capture_create", capture))
	require.NoError(t, gdb.Callback().Query().After("gorm:query").Register("test:capture_query", capture))
	return gdb, &last
}

func TestUpsertUpdatesOnHashConflict(t *testing.T) {
	gdb, last := dryRunDB(t)
	repo := NewGormAnalysisRepository(gdb)

	err := repo.Upsert(context.Background(), &model.TrackAnalysis{
		ContentHash: "abc",
		Title:       "Strobe",
		Artist:      "deadmau5",
		BPM:         128,
		MusicalKey:  "A",
	})
	require.NoError(t, err)
	assert.Contains(t, *last, "INSERT INTO `track_analyses`")
	assert.Contains(t, *last, "ON DUPLICATE KEY UPDATE")
	assert.Contains(t, *last, "`musical_key`")
}

func TestListOrdersByRecency(t *testing.T) {
	gdb, last := dryRunDB(t)
	repo := NewGormAnalysisRepository(gdb)

	_, err := repo.List(context.Background(), 0)
	require.NoError(t, err)
	assert.Contains(t, *last, "ORDER BY updated_at DESC")
	assert.Contains(t, *last, "LIMIT 100")

	_, err = repo.List(context.Background(), 5)
	require.NoError(t, err)
	assert.Contains(t, *last, "LIMIT 5")
}

func TestGetByHashFiltersOnHash(t *testing.T) {
	gdb, last := dryRunDB(t)
	repo := NewGormAnalysisRepository(gdb)

	_, err := repo.GetByHash(context.Background(), "abc")
	require.NoError(t, err)
	assert.Contains(t, *last, "content_hash = ?")
}
