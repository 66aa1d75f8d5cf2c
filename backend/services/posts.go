package services

import (
	"errors"
	"strings"

	"farmlink/backend/models"

	"gorm.io/gorm"
)

const (
	SortNewest        = "newest"
	SortTrending      = "trending"
	SortMostCommented = "most_commented"
	SortMostVoted     = "most_voted"
)

const (
	maxTitleLength = 255
	maxBodyLength  = 20000
)

type PostInput struct {
	CategoryID  uint
	Title       string
	Body        string
	Tags        []string
	Attachments []string
}

type PostUpdate struct {
	CategoryID *uint
	Title      *string
	Body       *string
	Tags       []string // nil = unchanged
	IsPinned   *bool
	IsLocked   *bool
}

type ListOptions struct {
	CategoryID uint
	SortBy     string
	Search     string
	Limit      int
}

// CreatePost validates the submission and stores it with the initial status
// decided by the moderation gate: experts and admins publish immediately,
// farmers wait for review.
func CreatePost(db *gorm.DB, author models.User, in PostInput) (*models.Post, error) {
	tags, err := validatePostContent(in.Title, in.Body, in.Tags)
	if err != nil {
		return nil, err
	}
	if err := checkCategory(db, in.CategoryID, author); err != nil {
		return nil, err
	}

	post := models.Post{
		AuthorID:   author.ID,
		CategoryID: in.CategoryID,
		Title:      strings.TrimSpace(in.Title),
		Body:       in.Body,
		Tags:       models.JoinTags(tags),
		Status:     InitialStatus(author.Role),
	}
	for i, fileID := range in.Attachments {
		post.Attachments = append(post.Attachments, models.PostAttachment{
			FileID:   fileID,
			Position: i,
		})
	}

	if err := db.Create(&post).Error; err != nil {
		return nil, err
	}
	return &post, nil
}

// UpdatePost applies field changes from the author or a moderator. A content
// change by a non-trusted requester sends the post back to review, even if it
// was already published; pin/lock are moderator-only and bypass review.
func UpdatePost(db *gorm.DB, requester models.User, postID uint, in PostUpdate) (*models.Post, error) {
	var post models.Post
	if err := db.First(&post, postID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound("post not found")
		}
		return nil, err
	}

	isAuthor := post.AuthorID == requester.ID
	isModerator := CanModerate(requester.Role)
	if !isAuthor && !isModerator {
		return nil, ErrForbidden("only the author or a moderator can update a post")
	}

	if (in.IsPinned != nil || in.IsLocked != nil) && !isModerator {
		return nil, ErrForbidden("only moderators can pin or lock posts")
	}

	updates := map[string]interface{}{}
	contentChanged := false

	if in.Title != nil {
		contentChanged = true
		updates["title"] = strings.TrimSpace(*in.Title)
	}
	if in.Body != nil {
		contentChanged = true
		updates["body"] = *in.Body
	}
	if in.Tags != nil {
		contentChanged = true
		updates["tags"] = models.JoinTags(in.Tags)
	}
	if in.CategoryID != nil && *in.CategoryID != post.CategoryID {
		contentChanged = true
		if err := checkCategory(db, *in.CategoryID, requester); err != nil {
			return nil, err
		}
		updates["category_id"] = *in.CategoryID
	}

	if contentChanged {
		title := post.Title
		if in.Title != nil {
			title = *in.Title
		}
		body := post.Body
		if in.Body != nil {
			body = *in.Body
		}
		tags := models.SplitTags(post.Tags)
		if in.Tags != nil {
			tags = in.Tags
		}
		if _, err := validatePostContent(title, body, tags); err != nil {
			return nil, err
		}

		// an edit by a non-trusted author re-enters review; a rejected post
		// takes the same path back
		if !CanModerate(requester.Role) {
			updates["status"] = models.StatusPendingReview
			updates["reject_reason"] = ""
			updates["review_note"] = ""
		}
	}

	if in.IsPinned != nil {
		updates["is_pinned"] = *in.IsPinned
	}
	if in.IsLocked != nil {
		updates["is_locked"] = *in.IsLocked
	}

	if len(updates) == 0 {
		return &post, nil
	}

	if err := db.Model(&post).Updates(updates).Error; err != nil {
		return nil, err
	}

	if err := db.Preload("Attachments").First(&post, postID).Error; err != nil {
		return nil, err
	}
	return &post, nil
}

// DeletePost hard-deletes a post together with its comments and every vote
// on the post or its comments. The cascade is all-or-nothing.
func DeletePost(db *gorm.DB, requester models.User, postID uint) error {
	var post models.Post
	if err := db.First(&post, postID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNotFound("post not found")
		}
		return err
	}

	if post.AuthorID != requester.ID && !CanModerate(requester.Role) {
		return ErrForbidden("only the author or a moderator can delete a post")
	}

	return db.Transaction(func(tx *gorm.DB) error {
		var commentIDs []uint
		if err := tx.Model(&models.Comment{}).Where("post_id = ?", postID).
			Pluck("id", &commentIDs).Error; err != nil {
			return err
		}

		if len(commentIDs) > 0 {
			if err := tx.Where("subject_type = ? AND subject_id IN ?",
				models.SubjectComment, commentIDs).Delete(&models.Vote{}).Error; err != nil {
				return err
			}
		}
		if err := tx.Where("subject_type = ? AND subject_id = ?",
			models.SubjectPost, postID).Delete(&models.Vote{}).Error; err != nil {
			return err
		}
		if err := tx.Unscoped().Where("post_id = ?", postID).
			Delete(&models.Comment{}).Error; err != nil {
			return err
		}
		if err := tx.Unscoped().Where("post_id = ?", postID).
			Delete(&models.PostAttachment{}).Error; err != nil {
			return err
		}
		return tx.Unscoped().Delete(&models.Post{}, postID).Error
	})
}

// IncrementView bumps the view counter. Best-effort: a lost increment under
// extreme concurrency breaks nothing.
func IncrementView(db *gorm.DB, postID uint) error {
	return db.Model(&models.Post{}).Where("id = ?", postID).
		UpdateColumn("view_count", gorm.Expr("view_count + 1")).Error
}

// ListPosts returns posts visible to the caller: everything published plus
// the caller's own submissions in any state. Moderators see every post.
func ListPosts(db *gorm.DB, caller models.User, opts ListOptions) ([]models.Post, error) {
	limit := opts.Limit
	if limit <= 0 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}

	query := db.Model(&models.Post{}).Preload("Attachments")
	if !CanModerate(caller.Role) {
		query = query.Where("status = ? OR author_id = ?", models.StatusPublished, caller.ID)
	}

	if opts.CategoryID != 0 {
		query = query.Where("category_id = ?", opts.CategoryID)
	}
	if opts.Search != "" {
		pattern := "%" + opts.Search + "%"
		query = query.Where("title LIKE ? OR body LIKE ?", pattern, pattern)
	}

	switch opts.SortBy {
	case SortTrending:
		query = query.Order("is_pinned DESC").
			Order("(upvotes - downvotes + comment_count) DESC").
			Order("created_at DESC")
	case SortMostCommented:
		query = query.Order("is_pinned DESC").
			Order("comment_count DESC").
			Order("created_at DESC")
	case SortMostVoted:
		query = query.Order("is_pinned DESC").
			Order("(upvotes - downvotes) DESC").
			Order("created_at DESC")
	case SortNewest, "":
		query = query.Order("is_pinned DESC").Order("created_at DESC")
	default:
		return nil, ErrValidation("sort_by must be one of newest, trending, most_commented, most_voted")
	}

	var posts []models.Post
	if err := query.Limit(limit).Find(&posts).Error; err != nil {
		return nil, err
	}
	return posts, nil
}

// CommentNode is a top-level comment with its direct replies. Threads only
// ever nest one level.
type CommentNode struct {
	models.Comment
	Replies []models.Comment `json:"replies"`
}

// GetPost loads one post and its comment thread as visible to the caller.
// Unpublished posts exist only for their author and moderators.
func GetPost(db *gorm.DB, caller models.User, postID uint) (*models.Post, []CommentNode, error) {
	var post models.Post
	if err := db.Preload("Attachments").First(&post, postID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, ErrNotFound("post not found")
		}
		return nil, nil, err
	}

	if post.Status != models.StatusPublished &&
		post.AuthorID != caller.ID && !CanModerate(caller.Role) {
		return nil, nil, ErrNotFound("post not found")
	}

	commentQuery := db.Where("post_id = ?", postID)
	if !CanModerate(caller.Role) {
		commentQuery = commentQuery.Where("status = ? OR author_id = ?",
			models.StatusPublished, caller.ID)
	}

	var comments []models.Comment
	if err := commentQuery.Order("created_at ASC").Find(&comments).Error; err != nil {
		return nil, nil, err
	}

	thread := buildThread(comments)
	return &post, thread, nil
}

func buildThread(comments []models.Comment) []CommentNode {
	nodes := []CommentNode{}
	index := map[uint]int{}

	for _, c := range comments {
		if c.ParentID == nil {
			nodes = append(nodes, CommentNode{Comment: c, Replies: []models.Comment{}})
			index[c.ID] = len(nodes) - 1
		}
	}
	for _, c := range comments {
		if c.ParentID == nil {
			continue
		}
		if i, ok := index[*c.ParentID]; ok {
			nodes[i].Replies = append(nodes[i].Replies, c)
		}
	}
	return nodes
}

func validatePostContent(title, body string, tags []string) ([]string, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, ErrValidation("title is required")
	}
	if len(title) > maxTitleLength {
		return nil, ErrValidation("title is too long")
	}
	if strings.TrimSpace(body) == "" {
		return nil, ErrValidation("body is required")
	}
	if len(body) > maxBodyLength {
		return nil, ErrValidation("body is too long")
	}

	seen := map[string]bool{}
	unique := make([]string, 0, len(tags))
	for _, t := range tags {
		t = strings.TrimSpace(t)
		if t == "" || seen[t] {
			continue
		}
		seen[t] = true
		unique = append(unique, t)
	}
	if len(unique) > models.MaxPostTags {
		return nil, ErrValidation("a post can carry at most 10 tags")
	}
	return unique, nil
}

func checkCategory(db *gorm.DB, categoryID uint, requester models.User) error {
	var category models.Category
	if err := db.First(&category, categoryID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNotFound("category not found")
		}
		return err
	}
	if !category.IsActive {
		return ErrValidation("category is not active")
	}
	if category.ExpertOnly && !CanModerate(requester.Role) {
		return ErrForbidden("category is restricted to experts")
	}
	return nil
}
