package models

import (
	"strings"
	"time"
)

const (
	StatusDraft         = "draft"
	StatusPendingReview = "pending_review"
	StatusPublished     = "published"
	StatusRejected      = "rejected"
)

const (
	SubjectPost    = "post"
	SubjectComment = "comment"
)

const (
	VoteUp   = "upvote"
	VoteDown = "downvote"
)

const MaxPostTags = 10

type Category struct {
	Model
	Name        string `gorm:"unique;not null" json:"name"`
	Description string `json:"description"`
	IsActive    bool   `gorm:"default:true" json:"is_active"`
	ExpertOnly  bool   `gorm:"default:false" json:"expert_only"`
}

type Post struct {
	Model
	AuthorID     uint             `gorm:"index;not null" json:"author_id"`
	CategoryID   uint             `gorm:"index;not null" json:"category_id"`
	Title        string           `gorm:"size:255;not null" json:"title"`
	Body         string           `gorm:"type:text;not null" json:"body"`
	Tags         string           `gorm:"size:512" json:"tags"` // comma-separated, max 10
	Status       string           `gorm:"size:32;index;default:pending_review" json:"status"` // draft, pending_review, published, rejected
	RejectReason string           `json:"reject_reason,omitempty"`
	ReviewNote   string           `json:"review_note,omitempty"`
	Upvotes      int              `gorm:"default:0" json:"upvotes"`
	Downvotes    int              `gorm:"default:0" json:"downvotes"`
	ViewCount    int              `gorm:"default:0" json:"view_count"`
	CommentCount int              `gorm:"default:0" json:"comment_count"`
	IsPinned     bool             `gorm:"default:false" json:"is_pinned"`
	IsLocked     bool             `gorm:"default:false" json:"is_locked"`
	Attachments  []PostAttachment `json:"attachments"`
}

func (Post) TableName() string {
	return "posts"
}

// VoteDifference is derived from the vote counters, never stored.
func (p *Post) VoteDifference() int {
	return p.Upvotes - p.Downvotes
}

// PostAttachment holds an opaque file reference owned by the upload service.
type PostAttachment struct {
	Model
	PostID   uint   `gorm:"index;not null" json:"post_id"`
	FileID   string `gorm:"not null" json:"file_id"`
	Position int    `gorm:"default:0" json:"position"`
}

type Comment struct {
	Model
	PostID         uint   `gorm:"index;not null" json:"post_id"`
	AuthorID       uint   `gorm:"index;not null" json:"author_id"`
	Content        string `gorm:"size:2000;not null" json:"content"`
	ParentID       *uint  `gorm:"index" json:"parent_id,omitempty"` // nil = top-level, replies only one level deep
	IsAnswer       bool   `gorm:"default:false" json:"is_answer"`
	IsExpertAnswer bool   `gorm:"default:false" json:"is_expert_answer"`
	Status         string `gorm:"size:32;index;default:pending_review" json:"status"`
	RejectReason   string `json:"reject_reason,omitempty"`
	ReviewNote     string `json:"review_note,omitempty"`
	Upvotes        int    `gorm:"default:0" json:"upvotes"`
	Downvotes      int    `gorm:"default:0" json:"downvotes"`
}

func (Comment) TableName() string {
	return "comments"
}

// Vote is one user's active vote on a post or comment. A row exists iff the
// vote is active; the composite unique index is what prevents double-voting.
type Vote struct {
	ID          uint   `gorm:"primaryKey" json:"id"`
	SubjectType string `gorm:"size:16;not null;uniqueIndex:idx_votes_subject_user" json:"subject_type"` // post, comment
	SubjectID   uint   `gorm:"not null;uniqueIndex:idx_votes_subject_user" json:"subject_id"`
	UserID      uint   `gorm:"not null;uniqueIndex:idx_votes_subject_user" json:"user_id"`
	Value       string `gorm:"size:16;not null" json:"value"` // upvote, downvote
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

func (Vote) TableName() string {
	return "votes"
}

// JoinTags normalizes a tag list into the stored comma-separated form.
// Empty entries are dropped, duplicates kept as sent.
func JoinTags(tags []string) string {
	cleaned := make([]string, 0, len(tags))
	for _, t := range tags {
		t = strings.TrimSpace(t)
		if t != "" {
			cleaned = append(cleaned, t)
		}
	}
	return strings.Join(cleaned, ",")
}

func SplitTags(tags string) []string {
	if tags == "" {
		return []string{}
	}
	return strings.Split(tags, ",")
}
