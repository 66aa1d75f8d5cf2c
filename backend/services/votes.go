package services

import (
	"errors"
	"fmt"

	"farmlink/backend/models"

	"gorm.io/gorm"
)

// voteLocks serializes vote mutations per (subject, user) key so the counters
// can never drift from the ledger rows. Independent keys do not contend.
var voteLocks = newKeyedMutex()

type VoteResult struct {
	Upvotes   int     `json:"upvotes"`
	Downvotes int     `json:"downvotes"`
	UserVote  *string `json:"user_vote"`
}

// CastVote applies the desired vote value for one user on one subject.
//   - no active vote: insert it and bump the matching counter
//   - same value again: remove the vote (toggle-off)
//   - other value: switch the row and move one count across
//
// A nil or unknown value clears any active vote. The result is always
// recomputed from the ledger, never from anything the client claims.
func CastVote(db *gorm.DB, subjectType string, subjectID, userID uint, value *string) (*VoteResult, error) {
	if subjectType != models.SubjectPost && subjectType != models.SubjectComment {
		return nil, ErrValidation("subject type must be 'post' or 'comment'")
	}

	// clients clear a vote by sending null; any other unknown value is
	// treated the same way
	desired := ""
	if value != nil && (*value == models.VoteUp || *value == models.VoteDown) {
		desired = *value
	}

	if err := checkSubjectVotable(db, subjectType, subjectID); err != nil {
		return nil, err
	}

	unlock := voteLocks.Lock(fmt.Sprintf("%s:%d:%d", subjectType, subjectID, userID))
	defer unlock()

	err := db.Transaction(func(tx *gorm.DB) error {
		var vote models.Vote
		err := tx.Where("subject_type = ? AND subject_id = ? AND user_id = ?",
			subjectType, subjectID, userID).First(&vote).Error

		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			if desired == "" {
				return nil // nothing to clear
			}
			vote = models.Vote{
				SubjectType: subjectType,
				SubjectID:   subjectID,
				UserID:      userID,
				Value:       desired,
			}
			if err := tx.Create(&vote).Error; err != nil {
				return err
			}
			return adjustVoteCounter(tx, subjectType, subjectID, desired, +1)

		case err != nil:
			return err

		case desired == "" || vote.Value == desired:
			// toggle-off (or explicit clear)
			if err := tx.Delete(&models.Vote{}, vote.ID).Error; err != nil {
				return err
			}
			return adjustVoteCounter(tx, subjectType, subjectID, vote.Value, -1)

		default:
			// switching sides
			if err := tx.Model(&models.Vote{}).Where("id = ?", vote.ID).
				Update("value", desired).Error; err != nil {
				return err
			}
			if err := adjustVoteCounter(tx, subjectType, subjectID, vote.Value, -1); err != nil {
				return err
			}
			return adjustVoteCounter(tx, subjectType, subjectID, desired, +1)
		}
	})
	if err != nil {
		return nil, err
	}

	return voteState(db, subjectType, subjectID, userID)
}

// UserVotes returns the caller's active votes on a set of subjects, keyed by
// subject ID. Used to embed user_vote into listings.
func UserVotes(db *gorm.DB, userID uint, subjectType string, subjectIDs []uint) (map[uint]string, error) {
	result := make(map[uint]string, len(subjectIDs))
	if len(subjectIDs) == 0 {
		return result, nil
	}

	var votes []models.Vote
	if err := db.Where("user_id = ? AND subject_type = ? AND subject_id IN ?",
		userID, subjectType, subjectIDs).Find(&votes).Error; err != nil {
		return nil, err
	}
	for _, v := range votes {
		result[v.SubjectID] = v.Value
	}
	return result, nil
}

// checkSubjectVotable confirms the subject exists and its thread is not
// locked. A lock on a post freezes votes on the post and all its comments.
func checkSubjectVotable(db *gorm.DB, subjectType string, subjectID uint) error {
	switch subjectType {
	case models.SubjectPost:
		var post models.Post
		if err := db.First(&post, subjectID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound("post not found")
			}
			return err
		}
		if post.IsLocked {
			return ErrForbidden("post is locked")
		}
	case models.SubjectComment:
		var comment models.Comment
		if err := db.First(&comment, subjectID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound("comment not found")
			}
			return err
		}
		var post models.Post
		if err := db.First(&post, comment.PostID).Error; err != nil {
			return err
		}
		if post.IsLocked {
			return ErrForbidden("post is locked")
		}
	}
	return nil
}

func adjustVoteCounter(tx *gorm.DB, subjectType string, subjectID uint, value string, delta int) error {
	column := "upvotes"
	if value == models.VoteDown {
		column = "downvotes"
	}

	if subjectType == models.SubjectPost {
		return tx.Model(&models.Post{}).Where("id = ?", subjectID).
			UpdateColumn(column, gorm.Expr(column+" + ?", delta)).Error
	}
	return tx.Model(&models.Comment{}).Where("id = ?", subjectID).
		UpdateColumn(column, gorm.Expr(column+" + ?", delta)).Error
}

// voteState reads the authoritative counters and the caller's active vote.
func voteState(db *gorm.DB, subjectType string, subjectID, userID uint) (*VoteResult, error) {
	result := &VoteResult{}

	if subjectType == models.SubjectPost {
		var post models.Post
		if err := db.First(&post, subjectID).Error; err != nil {
			return nil, err
		}
		result.Upvotes = post.Upvotes
		result.Downvotes = post.Downvotes
	} else {
		var comment models.Comment
		if err := db.First(&comment, subjectID).Error; err != nil {
			return nil, err
		}
		result.Upvotes = comment.Upvotes
		result.Downvotes = comment.Downvotes
	}

	var vote models.Vote
	err := db.Where("subject_type = ? AND subject_id = ? AND user_id = ?",
		subjectType, subjectID, userID).First(&vote).Error
	if err == nil {
		result.UserVote = &vote.Value
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	return result, nil
}
