package services

import (
	"path/filepath"
	"testing"

	"leadstore/config"
	"leadstore/models"
	"leadstore/workers"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := filepath.Join(t.TempDir(), "test.db") + "?_foreign_keys=on"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}

	if err := db.AutoMigrate(
		&models.User{},
		&models.Order{},
		&models.CreditPurchase{},
		&models.AffiliateClick{},
		&models.AffiliateCommission{},
	); err != nil {
		t.Fatalf("auto-migrate: %v", err)
	}

	return db
}

// nopSender satisfies workers.Sender for tests that don't inspect mail.
type nopSender struct{}

func (nopSender) Send(to, subject, body string) error { return nil }

func newTestMailer() *workers.Mailer {
	// Run is never started; Enqueue just buffers and the buffer is big
	// enough that nothing under test can fill it.
	return workers.NewMailer(nopSender{}, 1024)
}

func createUser(t *testing.T, db *gorm.DB, credits int64) *models.User {
	t.Helper()

	user := &models.User{
		ID:           uuid.NewString(),
		Email:        uuid.NewString()[:8] + "@example.com",
		Username:     "user-" + uuid.NewString()[:8],
		PasswordHash: "x",
		Credits:      credits,
	}
	if err := db.Create(user).Error; err != nil {
		t.Fatalf("create user: %v", err)
	}
	return user
}

func testConfig() *config.Config {
	return &config.Config{
		StoreBaseURL: "http://localhost:3000",
		AdminEmail:   "ops@example.com",
		Packages:     config.DefaultPackages(),
	}
}

func balanceOf(t *testing.T, db *gorm.DB, userID string) int64 {
	t.Helper()

	var user models.User
	if err := db.First(&user, "id = ?", userID).Error; err != nil {
		t.Fatalf("fetch user: %v", err)
	}
	return user.Credits
}
