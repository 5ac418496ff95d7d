package mail

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/ekaramel/rentdesk/internal/models"
)

type fakeSender struct {
	sent []Event
	err  error
}

func (f *fakeSender) Send(to, subject, body string) error {
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, Event{To: to, Subject: subject, Body: body})
	return nil
}

func setupDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.AutoMigrate(&models.Notification{}))
	return db
}

func TestDeliverAppendsSentRow(t *testing.T) {
	db := setupDB(t)
	sender := &fakeSender{}
	userID := uint(7)

	Deliver(db, sender, Event{
		Type:    models.MailTypeInvite,
		To:      "owner@test.local",
		Subject: "You have a new property invitation",
		Body:    "details",
		UserID:  &userID,
	})

	require.Len(t, sender.sent, 1)

	var row models.Notification
	require.NoError(t, db.First(&row).Error)
	assert.Equal(t, models.MailStatusSent, row.Status)
	assert.Equal(t, models.MailTypeInvite, row.Type)
	assert.Equal(t, "owner@test.local", row.To)
	require.NotNil(t, row.UserID)
	assert.Equal(t, userID, *row.UserID)
	assert.Empty(t, row.ErrorMessage)
}

func TestDeliverRecordsFailure(t *testing.T) {
	db := setupDB(t)
	sender := &fakeSender{err: errors.New("smtp not configured")}

	Deliver(db, sender, Event{
		Type:    models.MailTypeReminder,
		To:      "user@test.local",
		Subject: "Reminder",
		Body:    "rent due",
	})

	var row models.Notification
	require.NoError(t, db.First(&row).Error)
	assert.Equal(t, models.MailStatusFailed, row.Status)
	assert.Equal(t, "smtp not configured", row.ErrorMessage)
}
