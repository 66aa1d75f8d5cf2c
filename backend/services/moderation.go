package services

import (
	"errors"
	"strings"

	"farmlink/backend/models"

	"gorm.io/gorm"
)

// CanModerate reports whether a role carries moderator privileges.
// Kept as the single capability check so the policy can change in one place.
func CanModerate(role string) bool {
	return role == models.RoleExpert || role == models.RoleAdmin
}

// InitialStatus decides where a freshly submitted post or comment starts:
// trusted authors publish immediately, everyone else waits for review.
func InitialStatus(role string) string {
	if CanModerate(role) {
		return models.StatusPublished
	}
	return models.StatusPendingReview
}

// PendingReviews is the moderation queue: a filtered read over current
// statuses, never a separately maintained table.
func PendingReviews(db *gorm.DB, requester models.User, itemType string) ([]models.Post, []models.Comment, error) {
	if !CanModerate(requester.Role) {
		return nil, nil, ErrForbidden("moderator privileges required")
	}

	posts := []models.Post{}
	comments := []models.Comment{}

	if itemType != models.SubjectPost && itemType != models.SubjectComment && itemType != "both" {
		return nil, nil, ErrValidation("type must be 'post', 'comment' or 'both'")
	}

	if itemType == models.SubjectPost || itemType == "both" {
		if err := db.Where("status = ?", models.StatusPendingReview).
			Order("created_at ASC").Find(&posts).Error; err != nil {
			return nil, nil, err
		}
	}
	if itemType == models.SubjectComment || itemType == "both" {
		if err := db.Where("status = ?", models.StatusPendingReview).
			Order("created_at ASC").Find(&comments).Error; err != nil {
			return nil, nil, err
		}
	}

	return posts, comments, nil
}

// Approve publishes a post or comment, keeping the optional note on the
// record. Re-approving a published item is a no-op; a missing item means it
// was deleted concurrently and is a conflict.
func Approve(db *gorm.DB, requester models.User, itemType string, id uint, note string) error {
	if !CanModerate(requester.Role) {
		return ErrForbidden("moderator privileges required")
	}

	return applyDecision(db, itemType, id, models.StatusPublished, "", note)
}

// Reject turns down a post or comment with a reason the author can read.
func Reject(db *gorm.DB, requester models.User, itemType string, id uint, reason string) error {
	if !CanModerate(requester.Role) {
		return ErrForbidden("moderator privileges required")
	}
	if strings.TrimSpace(reason) == "" {
		return ErrValidation("a reason is required to reject")
	}

	return applyDecision(db, itemType, id, models.StatusRejected, reason, "")
}

func applyDecision(db *gorm.DB, itemType string, id uint, status, reason, note string) error {
	updates := map[string]interface{}{
		"status":        status,
		"reject_reason": reason,
		"review_note":   note,
	}

	switch itemType {
	case models.SubjectPost:
		return db.Transaction(func(tx *gorm.DB) error {
			var post models.Post
			if err := tx.First(&post, id).Error; err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return ErrConflict("post no longer exists")
				}
				return err
			}
			if post.Status == status {
				return nil
			}
			return tx.Model(&post).Updates(updates).Error
		})
	case models.SubjectComment:
		return db.Transaction(func(tx *gorm.DB) error {
			var comment models.Comment
			if err := tx.First(&comment, id).Error; err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return ErrConflict("comment no longer exists")
				}
				return err
			}
			if comment.Status == status {
				return nil
			}
			return tx.Model(&comment).Updates(updates).Error
		})
	default:
		return ErrValidation("type must be 'post' or 'comment'")
	}
}
