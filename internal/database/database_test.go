package database

import (
	"testing"

	"synergy-backend/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func TestParseLogLevel(t *testing.T) {
	assert.Equal(t, logger.Silent, ParseLogLevel("silent"))
	assert.Equal(t, logger.Error, ParseLogLevel("ERROR"))
	assert.Equal(t, logger.Info, ParseLogLevel("info"))
	assert.Equal(t, logger.Warn, ParseLogLevel("whatever"))
}

func TestMigrateCreatesTables(t *testing.T) {
	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	defer sqlDB.Close()
	require.NoError(t, Migrate(db))

	for _, model := range []any{
		&models.User{}, &models.Swipe{}, &models.Match{}, &models.Collaboration{},
		&models.UserCollaboration{}, &models.CollaborationRequest{}, &models.CollaborationPhoto{},
		&models.Collection{}, &models.CollectionItem{}, &models.ChatMessage{},
	} {
		assert.True(t, db.Migrator().HasTable(model), "%T", model)
	}
	assert.True(t, db.Migrator().HasIndex(&models.CollaborationRequest{}, "idx_pending_request"))
	assert.True(t, db.Migrator().HasIndex(&models.Match{}, "idx_matches_pair"))

	// Migrating twice is a no-op.
	require.NoError(t, Migrate(db))
}
