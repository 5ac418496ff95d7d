package database

import (
	"log"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/ekaramel/rentdesk/internal/models"
	"github.com/ekaramel/rentdesk/internal/token"
)

// SeedDevData populates the database with development test data.
// Idempotent: skips if data already exists.
func SeedDevData(db *gorm.DB) error {
	var existing models.User
	result := db.Where("mail = ?", "realtor@rentdesk.local").First(&existing)
	if result.Error == nil {
		log.Println("Seed data already exists, skipping")
		return nil
	}

	passwordHash, err := token.HashPassword("devpassword")
	if err != nil {
		return err
	}

	realtor := models.User{
		Name:         "Deniz",
		Surname:      "Aksoy",
		Mail:         "realtor@rentdesk.local",
		PasswordHash: passwordHash,
		Role:         models.RoleRealtor,
		IsVerified:   true,
	}
	if err := db.Create(&realtor).Error; err != nil {
		return err
	}

	owner := models.User{
		Name:         "Melis",
		Surname:      "Kaya",
		Mail:         "owner@rentdesk.local",
		PasswordHash: passwordHash,
		Role:         models.RoleOwner,
		IsVerified:   true,
	}
	if err := db.Create(&owner).Error; err != nil {
		return err
	}

	now := time.Now()
	property := models.Property{
		RentPrice: 18500,
		RentDate:  now.AddDate(0, -2, 0),
		EndDate:   now.AddDate(0, 10, 0),
		Location:  "Kadıköy, Istanbul",
		RealtorID: realtor.ID,
		Notes:     datatypes.JSON([]byte(`{"blocks":[{"type":"paragraph","text":"South-facing, renovated kitchen."}]}`)),
	}
	if err := db.Create(&property).Error; err != nil {
		return err
	}

	invite := models.Assignment{
		PropertyID: property.ID,
		FromUserID: realtor.ID,
		ToUserID:   owner.ID,
		Role:       models.RoleOwner,
		Status:     models.AssignmentStatusPending,
	}
	if err := db.Create(&invite).Error; err != nil {
		return err
	}

	day := 5
	reminder := models.Reminder{
		UserID:     realtor.ID,
		PropertyID: &property.ID,
		Type:       models.ReminderTypeMonthlyPayment,
		Message:    "Collect rent for Kadıköy flat",
		RemindAt:   time.Date(now.Year(), now.Month()+1, day, 9, 0, 0, 0, time.Local),
		DayOfMonth: &day,
	}
	if err := db.Create(&reminder).Error; err != nil {
		return err
	}

	log.Println("Seeded dev data: 2 users, 1 property, 1 pending assignment, 1 reminder")
	return nil
}
