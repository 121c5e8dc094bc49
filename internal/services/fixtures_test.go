package services

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"synergy-backend/internal/database"
	"synergy-backend/internal/models"
	"synergy-backend/internal/notify"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	// One connection keeps shared-cache sqlite from reporting table locks.
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, database.Migrate(db))
	t.Cleanup(func() { sqlDB.Close() })
	return db
}

func testLogger() *logrus.Logger {
	log, _ := test.NewNullLogger()
	return log
}

func createUser(t *testing.T, db *gorm.DB, username string) *models.User {
	t.Helper()
	user := models.User{Username: username, PasswordHash: "hash"}
	require.NoError(t, db.Create(&user).Error)
	return &user
}

func newFileStore(t *testing.T) (*FileStore, *LocalStorage) {
	t.Helper()
	local, err := NewLocalStorage(t.TempDir())
	require.NoError(t, err)
	return NewFileStore(local, 1024, []string{"png", "jpg", "jpeg", "gif"}, testLogger()), local
}

func pngUpload(name string) Upload {
	body := "\x89PNG fake image"
	return Upload{Filename: name, Size: int64(len(body)), ContentType: "image/png", Body: strings.NewReader(body)}
}

type recordingPusher struct {
	sent []notify.Notification
}

func (p *recordingPusher) Push(_ context.Context, _ string, n notify.Notification) error {
	p.sent = append(p.sent, n)
	return nil
}
