package services

import (
	"errors"
	"fmt"
	"strings"

	"farmlink/backend/models"

	"gorm.io/gorm"
)

// answerLocks serializes mark-as-answer per post so the one-answer invariant
// holds under concurrent marking.
var answerLocks = newKeyedMutex()

const maxCommentLength = 2000

// AddComment attaches a comment to a post, optionally as a reply to a
// top-level comment. Replies to replies are rejected: threads nest one level
// only. The new comment passes the same moderation gate as a post.
func AddComment(db *gorm.DB, author models.User, postID uint, content string, parentID *uint) (*models.Comment, error) {
	if strings.TrimSpace(content) == "" {
		return nil, ErrValidation("content is required")
	}
	if len(content) > maxCommentLength {
		return nil, ErrValidation("content is too long")
	}

	var post models.Post
	if err := db.First(&post, postID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound("post not found")
		}
		return nil, err
	}
	if post.Status != models.StatusPublished &&
		post.AuthorID != author.ID && !CanModerate(author.Role) {
		return nil, ErrNotFound("post not found")
	}
	if post.IsLocked {
		return nil, ErrForbidden("post is locked")
	}

	if parentID != nil {
		var parent models.Comment
		if err := db.First(&parent, *parentID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, ErrValidation("parent comment not found")
			}
			return nil, err
		}
		if parent.PostID != postID {
			return nil, ErrValidation("parent comment belongs to a different post")
		}
		if parent.ParentID != nil {
			return nil, ErrValidation("replies to replies are not allowed")
		}
	}

	comment := models.Comment{
		PostID:   postID,
		AuthorID: author.ID,
		Content:  content,
		ParentID: parentID,
		Status:   InitialStatus(author.Role),
	}

	err := db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&comment).Error; err != nil {
			return err
		}
		return tx.Model(&models.Post{}).Where("id = ?", postID).
			UpdateColumn("comment_count", gorm.Expr("comment_count + ?", 1)).Error
	})
	if err != nil {
		return nil, err
	}
	return &comment, nil
}

// DeleteComment hard-deletes a comment, its direct replies and all votes on
// the removed rows, keeping the post's comment_count in step.
func DeleteComment(db *gorm.DB, requester models.User, commentID uint) error {
	var comment models.Comment
	if err := db.First(&comment, commentID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNotFound("comment not found")
		}
		return err
	}

	if comment.AuthorID != requester.ID && !CanModerate(requester.Role) {
		return ErrForbidden("only the author or a moderator can delete a comment")
	}

	return db.Transaction(func(tx *gorm.DB) error {
		var replyIDs []uint
		if err := tx.Model(&models.Comment{}).Where("parent_id = ?", commentID).
			Pluck("id", &replyIDs).Error; err != nil {
			return err
		}

		removed := append(replyIDs, commentID)
		if err := tx.Where("subject_type = ? AND subject_id IN ?",
			models.SubjectComment, removed).Delete(&models.Vote{}).Error; err != nil {
			return err
		}
		if err := tx.Unscoped().Where("id IN ?", removed).
			Delete(&models.Comment{}).Error; err != nil {
			return err
		}
		return tx.Model(&models.Post{}).Where("id = ?", comment.PostID).
			UpdateColumn("comment_count", gorm.Expr("comment_count - ?", len(removed))).Error
	})
}

// MarkAnswer flags a comment as the accepted answer for its post. At most one
// comment per post carries the flag; marking another one moves it. Re-marking
// the same comment is a no-op. IsExpertAnswer follows the comment author's
// role at marking time.
func MarkAnswer(db *gorm.DB, requester models.User, commentID uint) (*models.Comment, error) {
	if !CanModerate(requester.Role) {
		return nil, ErrForbidden("only experts can mark answers")
	}

	var comment models.Comment
	if err := db.First(&comment, commentID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound("comment not found")
		}
		return nil, err
	}

	if comment.IsAnswer {
		return &comment, nil
	}

	var author models.User
	if err := db.First(&author, comment.AuthorID).Error; err != nil {
		return nil, err
	}

	unlock := answerLocks.Lock(fmt.Sprintf("answer:%d", comment.PostID))
	defer unlock()

	err := db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.Comment{}).
			Where("post_id = ? AND is_answer = ?", comment.PostID, true).
			Updates(map[string]interface{}{
				"is_answer":        false,
				"is_expert_answer": false,
			}).Error; err != nil {
			return err
		}
		return tx.Model(&models.Comment{}).Where("id = ?", commentID).
			Updates(map[string]interface{}{
				"is_answer":        true,
				"is_expert_answer": author.Role == models.RoleExpert,
			}).Error
	})
	if err != nil {
		return nil, err
	}

	if err := db.First(&comment, commentID).Error; err != nil {
		return nil, err
	}
	return &comment, nil
}
