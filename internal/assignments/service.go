// Package assignments implements the two-sided confirmation flow that links
// an owner or a second realtor to a property: invite, accept, reject.
package assignments

import (
	"context"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/ekaramel/rentdesk/internal/httpapi"
	"github.com/ekaramel/rentdesk/internal/mail"
	"github.com/ekaramel/rentdesk/internal/models"
)

// CreateInput describes an invite request.
type CreateInput struct {
	PropertyID uint
	FromUserID uint
	TargetMail string
	Role       string // role the target would take: 'owner' or 'realtor'
}

// Create validates an invite and persists a pending assignment. The caller
// must hold the opposite role slot on the property. A pending assignment for
// the same (property, role) makes this a no-op success: the existing row is
// returned and no second invite mail goes out.
func Create(ctx context.Context, db *gorm.DB, pub *mail.Publisher, in CreateInput) (*models.Assignment, error) {
	if in.Role != models.RoleOwner && in.Role != models.RoleRealtor {
		return nil, httpapi.BadRequest("role must be 'owner' or 'realtor'")
	}

	var property models.Property
	if err := db.WithContext(ctx).First(&property, in.PropertyID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, httpapi.NotFound("property not found")
		}
		return nil, err
	}

	// Only the holder of the opposite slot may invite: the realtor invites
	// an owner, a linked owner invites a realtor.
	switch in.Role {
	case models.RoleOwner:
		if property.RealtorID != in.FromUserID {
			return nil, httpapi.Forbidden("only the property's realtor can invite an owner")
		}
		if property.OwnerID != nil {
			return nil, httpapi.BadRequest("property already has an owner")
		}
	case models.RoleRealtor:
		if property.OwnerID == nil || *property.OwnerID != in.FromUserID {
			return nil, httpapi.Forbidden("only the property's owner can invite a realtor")
		}
	}

	targetMail := strings.ToLower(strings.TrimSpace(in.TargetMail))
	var target models.User
	if err := db.WithContext(ctx).Where("mail = ?", targetMail).First(&target).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, httpapi.NotFound("no user registered with that mail")
		}
		return nil, err
	}
	if target.Role != in.Role {
		return nil, httpapi.BadRequest(fmt.Sprintf("user is not registered as a %s", in.Role))
	}
	if target.ID == in.FromUserID {
		return nil, httpapi.BadRequest("cannot invite yourself")
	}

	// Duplicate pending invite for the same (property, role) is a no-op.
	var existing models.Assignment
	result := db.WithContext(ctx).
		Where("property_id = ? AND role = ? AND status = ?", in.PropertyID, in.Role, models.AssignmentStatusPending).
		First(&existing)
	if result.Error == nil {
		return &existing, nil
	}
	if result.Error != gorm.ErrRecordNotFound {
		return nil, result.Error
	}

	assignment := models.Assignment{
		PropertyID: in.PropertyID,
		FromUserID: in.FromUserID,
		ToUserID:   target.ID,
		Role:       in.Role,
		Status:     models.AssignmentStatusPending,
	}
	if err := db.WithContext(ctx).Create(&assignment).Error; err != nil {
		return nil, err
	}

	pub.PublishBestEffort(ctx, mail.Event{
		Type:       models.MailTypeInvite,
		To:         target.Mail,
		Subject:    "You have a new property invitation",
		Body:       fmt.Sprintf("You have been invited as %s for the property at %s. Log in to accept or reject the invitation.", in.Role, property.Location),
		UserID:     &target.ID,
		PropertyID: &property.ID,
	})

	return &assignment, nil
}

// Accept transitions a pending assignment to accepted and writes the link
// back onto the property. Only the invited user may accept. The transition
// is a conditional update on status so two concurrent accepts cannot both
// win; the loser sees the same not-found as a missing row.
func Accept(ctx context.Context, db *gorm.DB, pub *mail.Publisher, assignmentID, callerID uint) (*models.Assignment, error) {
	var assignment models.Assignment
	if err := db.WithContext(ctx).First(&assignment, assignmentID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, httpapi.NotFound("assignment not found")
		}
		return nil, err
	}
	if assignment.ToUserID != callerID {
		return nil, httpapi.Forbidden("only the invited user can accept this assignment")
	}

	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.Assignment{}).
			Where("id = ? AND status = ?", assignmentID, models.AssignmentStatusPending).
			Update("status", models.AssignmentStatusAccepted)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return httpapi.NotFound("assignment not found")
		}

		column := "owner_id"
		if assignment.Role == models.RoleRealtor {
			column = "realtor_id"
		}
		return tx.Model(&models.Property{}).
			Where("id = ?", assignment.PropertyID).
			Update(column, assignment.ToUserID).Error
	})
	if err != nil {
		return nil, err
	}
	assignment.Status = models.AssignmentStatusAccepted

	notifyCounterparty(ctx, db, pub, &assignment, models.MailTypeAccept,
		"Your invitation was accepted",
		"accepted your invitation for")

	return &assignment, nil
}

// Reject transitions a pending assignment to rejected. The property is never
// touched. Same conditional update and caller rules as Accept.
func Reject(ctx context.Context, db *gorm.DB, pub *mail.Publisher, assignmentID, callerID uint) (*models.Assignment, error) {
	var assignment models.Assignment
	if err := db.WithContext(ctx).First(&assignment, assignmentID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, httpapi.NotFound("assignment not found")
		}
		return nil, err
	}
	if assignment.ToUserID != callerID {
		return nil, httpapi.Forbidden("only the invited user can reject this assignment")
	}

	res := db.WithContext(ctx).Model(&models.Assignment{}).
		Where("id = ? AND status = ?", assignmentID, models.AssignmentStatusPending).
		Update("status", models.AssignmentStatusRejected)
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, httpapi.NotFound("assignment not found")
	}
	assignment.Status = models.AssignmentStatusRejected

	notifyCounterparty(ctx, db, pub, &assignment, models.MailTypeReject,
		"Your invitation was rejected",
		"rejected your invitation for")

	return &assignment, nil
}

// ListPending returns assignments waiting on the given user's decision.
func ListPending(ctx context.Context, db *gorm.DB, userID uint) ([]models.Assignment, error) {
	var list []models.Assignment
	err := db.WithContext(ctx).
		Preload("Property").Preload("FromUser").
		Where("to_user_id = ? AND status = ?", userID, models.AssignmentStatusPending).
		Order("created_at DESC").
		Find(&list).Error
	return list, err
}

// ListSent returns pending invitations the given user has sent.
func ListSent(ctx context.Context, db *gorm.DB, userID uint) ([]models.Assignment, error) {
	var list []models.Assignment
	err := db.WithContext(ctx).
		Preload("Property").Preload("ToUser").
		Where("from_user_id = ? AND status = ?", userID, models.AssignmentStatusPending).
		Order("created_at DESC").
		Find(&list).Error
	return list, err
}

// CancelPendingForProperty marks all pending assignments of a property as
// cancelled. Called when the property itself is deleted.
func CancelPendingForProperty(ctx context.Context, db *gorm.DB, propertyID uint) error {
	return db.WithContext(ctx).Model(&models.Assignment{}).
		Where("property_id = ? AND status = ?", propertyID, models.AssignmentStatusPending).
		Update("status", models.AssignmentStatusCancelled).Error
}

func notifyCounterparty(ctx context.Context, db *gorm.DB, pub *mail.Publisher, a *models.Assignment, mailType, subject, verb string) {
	var from models.User
	if err := db.WithContext(ctx).First(&from, a.FromUserID).Error; err != nil {
		return
	}
	var property models.Property
	location := ""
	if err := db.WithContext(ctx).Unscoped().First(&property, a.PropertyID).Error; err == nil {
		location = property.Location
	}

	pub.PublishBestEffort(ctx, mail.Event{
		Type:       mailType,
		To:         from.Mail,
		Subject:    subject,
		Body:       fmt.Sprintf("The user you invited %s the property at %s.", verb, location),
		UserID:     &from.ID,
		PropertyID: &a.PropertyID,
	})
}
