package controllers

import (
	"strconv"

	"farmlink/backend/config"
	"farmlink/backend/models"
	"farmlink/backend/services"
	"farmlink/backend/utils"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

type ForumController struct {
	DB  *gorm.DB
	Cfg *config.Config
}

func NewForumController(db *gorm.DB, cfg *config.Config) *ForumController {
	return &ForumController{DB: db, Cfg: cfg}
}

// currentUser resolves the authenticated caller to their user record, using
// the identity the auth middleware stored on the request. The role used for
// permission checks is the stored one, not the token claim.
func currentUser(c *fiber.Ctx, db *gorm.DB) (models.User, error) {
	userID, ok := c.Locals("user_id").(uint)
	if !ok {
		return models.User{}, fiber.NewError(fiber.StatusUnauthorized, "Missing identity")
	}

	var user models.User
	if err := db.First(&user, userID).Error; err != nil {
		return models.User{}, fiber.NewError(fiber.StatusUnauthorized, "Unknown user")
	}
	return user, nil
}

func parseIDParam(c *fiber.Ctx, name string) (uint, error) {
	id, err := strconv.Atoi(c.Params(name))
	if err != nil || id <= 0 {
		return 0, fiber.NewError(fiber.StatusBadRequest, "Invalid ID")
	}
	return uint(id), nil
}

// postView is a post plus the caller's active vote, the shape list and
// detail responses share.
type postView struct {
	models.Post
	VoteDifference int     `json:"vote_difference"`
	UserVote       *string `json:"user_vote"`
}

func toPostView(post models.Post, userVote string) postView {
	view := postView{Post: post, VoteDifference: post.VoteDifference()}
	if userVote != "" {
		view.UserVote = &userVote
	}
	return view
}

// ListPosts godoc
// @Summary List forum posts
// @Description Published posts plus the caller's own, with the caller's vote embedded
// @Tags forum
// @Produce json
// @Param category query int false "Category ID"
// @Param sort_by query string false "newest | trending | most_commented | most_voted"
// @Param search query string false "Search in title and body"
// @Param limit query int false "Max results (default 20)"
// @Success 200 {object} utils.SuccessResponse
// @Failure 400 {object} utils.ErrorResponse
// @Security ApiKeyAuth
// @Router /forum/posts [get]
func (fc *ForumController) ListPosts(c *fiber.Ctx) error {
	user, err := currentUser(c, fc.DB)
	if err != nil {
		return utils.Unauthorized(c, "Unauthorized")
	}

	categoryID, _ := strconv.Atoi(c.Query("category"))
	limit, _ := strconv.Atoi(c.Query("limit"))

	posts, err := services.ListPosts(fc.DB, user, services.ListOptions{
		CategoryID: uint(categoryID),
		SortBy:     c.Query("sort_by"),
		Search:     c.Query("search"),
		Limit:      limit,
	})
	if err != nil {
		return utils.FromServiceError(c, err)
	}

	postIDs := make([]uint, 0, len(posts))
	for _, p := range posts {
		postIDs = append(postIDs, p.ID)
	}
	votes, err := services.UserVotes(fc.DB, user.ID, models.SubjectPost, postIDs)
	if err != nil {
		return utils.FromServiceError(c, err)
	}

	views := make([]postView, 0, len(posts))
	for _, p := range posts {
		views = append(views, toPostView(p, votes[p.ID]))
	}

	return utils.Success(c, fiber.StatusOK, views)
}

// GetPost godoc
// @Summary Get one post with its comment thread
// @Description Returns the post and comments nested one level; counts a view
// @Tags forum
// @Produce json
// @Param id path int true "Post ID"
// @Success 200 {object} utils.SuccessResponse
// @Failure 404 {object} utils.ErrorResponse
// @Security ApiKeyAuth
// @Router /forum/posts/{id} [get]
func (fc *ForumController) GetPost(c *fiber.Ctx) error {
	user, err := currentUser(c, fc.DB)
	if err != nil {
		return utils.Unauthorized(c, "Unauthorized")
	}
	postID, err := parseIDParam(c, "id")
	if err != nil {
		return utils.BadRequest(c, "Invalid post ID")
	}

	post, thread, err := services.GetPost(fc.DB, user, postID)
	if err != nil {
		return utils.FromServiceError(c, err)
	}

	if err := services.IncrementView(fc.DB, postID); err == nil {
		post.ViewCount++
	}

	votes, err := services.UserVotes(fc.DB, user.ID, models.SubjectPost, []uint{postID})
	if err != nil {
		return utils.FromServiceError(c, err)
	}

	return utils.Success(c, fiber.StatusOK, fiber.Map{
		"post":     toPostView(*post, votes[postID]),
		"comments": thread,
	})
}

// CreatePost godoc
// @Summary Create a forum post
// @Description Trusted authors publish immediately, others enter review
// @Tags forum
// @Accept json
// @Produce json
// @Param input body map[string]interface{} true "Post fields"
// @Success 201 {object} utils.SuccessResponse
// @Failure 400 {object} utils.ErrorResponse
// @Failure 403 {object} utils.ErrorResponse
// @Security ApiKeyAuth
// @Router /forum/posts [post]
func (fc *ForumController) CreatePost(c *fiber.Ctx) error {
	user, err := currentUser(c, fc.DB)
	if err != nil {
		return utils.Unauthorized(c, "Unauthorized")
	}

	var input struct {
		CategoryID  uint     `json:"category_id"`
		Title       string   `json:"title"`
		Body        string   `json:"body"`
		Tags        []string `json:"tags"`
		Attachments []string `json:"attachments"`
	}
	if err := c.BodyParser(&input); err != nil {
		return utils.BadRequest(c, "Cannot parse JSON")
	}

	post, err := services.CreatePost(fc.DB, user, services.PostInput{
		CategoryID:  input.CategoryID,
		Title:       input.Title,
		Body:        input.Body,
		Tags:        input.Tags,
		Attachments: input.Attachments,
	})
	if err != nil {
		return utils.FromServiceError(c, err)
	}

	return utils.Created(c, post)
}

// UpdatePost godoc
// @Summary Update a post
// @Description Content edits by non-trusted authors re-enter review; pin/lock are moderator-only
// @Tags forum
// @Accept json
// @Produce json
// @Param id path int true "Post ID"
// @Param input body map[string]interface{} true "Fields to change"
// @Success 200 {object} utils.SuccessResponse
// @Failure 400 {object} utils.ErrorResponse
// @Failure 403 {object} utils.ErrorResponse
// @Failure 404 {object} utils.ErrorResponse
// @Security ApiKeyAuth
// @Router /forum/posts/{id} [put]
func (fc *ForumController) UpdatePost(c *fiber.Ctx) error {
	user, err := currentUser(c, fc.DB)
	if err != nil {
		return utils.Unauthorized(c, "Unauthorized")
	}
	postID, err := parseIDParam(c, "id")
	if err != nil {
		return utils.BadRequest(c, "Invalid post ID")
	}

	var input struct {
		CategoryID *uint    `json:"category_id"`
		Title      *string  `json:"title"`
		Body       *string  `json:"body"`
		Tags       []string `json:"tags"`
		IsPinned   *bool    `json:"is_pinned"`
		IsLocked   *bool    `json:"is_locked"`
	}
	if err := c.BodyParser(&input); err != nil {
		return utils.BadRequest(c, "Cannot parse JSON")
	}

	post, err := services.UpdatePost(fc.DB, user, postID, services.PostUpdate{
		CategoryID: input.CategoryID,
		Title:      input.Title,
		Body:       input.Body,
		Tags:       input.Tags,
		IsPinned:   input.IsPinned,
		IsLocked:   input.IsLocked,
	})
	if err != nil {
		return utils.FromServiceError(c, err)
	}

	return utils.Success(c, fiber.StatusOK, post)
}

// DeletePost godoc
// @Summary Delete a post
// @Description Hard delete, cascading to comments and votes
// @Tags forum
// @Param id path int true "Post ID"
// @Success 204
// @Failure 403 {object} utils.ErrorResponse
// @Failure 404 {object} utils.ErrorResponse
// @Security ApiKeyAuth
// @Router /forum/posts/{id} [delete]
func (fc *ForumController) DeletePost(c *fiber.Ctx) error {
	user, err := currentUser(c, fc.DB)
	if err != nil {
		return utils.Unauthorized(c, "Unauthorized")
	}
	postID, err := parseIDParam(c, "id")
	if err != nil {
		return utils.BadRequest(c, "Invalid post ID")
	}

	if err := services.DeletePost(fc.DB, user, postID); err != nil {
		return utils.FromServiceError(c, err)
	}
	return utils.NoContent(c)
}

// VotePost godoc
// @Summary Vote on a post
// @Description Same value toggles the vote off; null clears it
// @Tags forum
// @Accept json
// @Produce json
// @Param id path int true "Post ID"
// @Param input body map[string]interface{} true "{\"value\": \"upvote\" | \"downvote\" | null}"
// @Success 200 {object} utils.SuccessResponse
// @Failure 403 {object} utils.ErrorResponse
// @Failure 404 {object} utils.ErrorResponse
// @Security ApiKeyAuth
// @Router /forum/posts/{id}/vote [post]
func (fc *ForumController) VotePost(c *fiber.Ctx) error {
	return fc.vote(c, models.SubjectPost)
}

// VoteComment godoc
// @Summary Vote on a comment
// @Tags forum
// @Accept json
// @Produce json
// @Param id path int true "Comment ID"
// @Param input body map[string]interface{} true "{\"value\": \"upvote\" | \"downvote\" | null}"
// @Success 200 {object} utils.SuccessResponse
// @Failure 403 {object} utils.ErrorResponse
// @Failure 404 {object} utils.ErrorResponse
// @Security ApiKeyAuth
// @Router /forum/comments/{id}/vote [post]
func (fc *ForumController) VoteComment(c *fiber.Ctx) error {
	return fc.vote(c, models.SubjectComment)
}

func (fc *ForumController) vote(c *fiber.Ctx, subjectType string) error {
	user, err := currentUser(c, fc.DB)
	if err != nil {
		return utils.Unauthorized(c, "Unauthorized")
	}
	subjectID, err := parseIDParam(c, "id")
	if err != nil {
		return utils.BadRequest(c, "Invalid ID")
	}

	var input struct {
		Value *string `json:"value"`
	}
	if err := c.BodyParser(&input); err != nil {
		return utils.BadRequest(c, "Cannot parse JSON")
	}

	result, err := services.CastVote(fc.DB, subjectType, subjectID, user.ID, input.Value)
	if err != nil {
		return utils.FromServiceError(c, err)
	}

	return utils.Success(c, fiber.StatusOK, result)
}

// AddComment godoc
// @Summary Comment on a post
// @Description Optionally replies to a top-level comment; one nesting level only
// @Tags forum
// @Accept json
// @Produce json
// @Param id path int true "Post ID"
// @Param input body map[string]interface{} true "{\"content\": \"...\", \"parent_comment_id\": 1}"
// @Success 201 {object} utils.SuccessResponse
// @Failure 400 {object} utils.ErrorResponse
// @Failure 404 {object} utils.ErrorResponse
// @Security ApiKeyAuth
// @Router /forum/posts/{id}/comments [post]
func (fc *ForumController) AddComment(c *fiber.Ctx) error {
	user, err := currentUser(c, fc.DB)
	if err != nil {
		return utils.Unauthorized(c, "Unauthorized")
	}
	postID, err := parseIDParam(c, "id")
	if err != nil {
		return utils.BadRequest(c, "Invalid post ID")
	}

	var input struct {
		Content         string `json:"content"`
		ParentCommentID *uint  `json:"parent_comment_id"`
	}
	if err := c.BodyParser(&input); err != nil {
		return utils.BadRequest(c, "Cannot parse JSON")
	}

	comment, err := services.AddComment(fc.DB, user, postID, input.Content, input.ParentCommentID)
	if err != nil {
		return utils.FromServiceError(c, err)
	}

	return utils.Created(c, comment)
}

// DeleteComment godoc
// @Summary Delete a comment
// @Description Hard delete, cascading to direct replies and their votes
// @Tags forum
// @Param id path int true "Comment ID"
// @Success 204
// @Failure 403 {object} utils.ErrorResponse
// @Failure 404 {object} utils.ErrorResponse
// @Security ApiKeyAuth
// @Router /forum/comments/{id} [delete]
func (fc *ForumController) DeleteComment(c *fiber.Ctx) error {
	user, err := currentUser(c, fc.DB)
	if err != nil {
		return utils.Unauthorized(c, "Unauthorized")
	}
	commentID, err := parseIDParam(c, "id")
	if err != nil {
		return utils.BadRequest(c, "Invalid comment ID")
	}

	if err := services.DeleteComment(fc.DB, user, commentID); err != nil {
		return utils.FromServiceError(c, err)
	}
	return utils.NoContent(c)
}

// MarkAnswer godoc
// @Summary Mark a comment as the accepted answer
// @Description Expert/admin only; at most one answer per post
// @Tags forum
// @Produce json
// @Param id path int true "Comment ID"
// @Success 200 {object} utils.SuccessResponse
// @Failure 403 {object} utils.ErrorResponse
// @Failure 404 {object} utils.ErrorResponse
// @Security ApiKeyAuth
// @Router /forum/comments/{id}/answer [post]
func (fc *ForumController) MarkAnswer(c *fiber.Ctx) error {
	user, err := currentUser(c, fc.DB)
	if err != nil {
		return utils.Unauthorized(c, "Unauthorized")
	}
	commentID, err := parseIDParam(c, "id")
	if err != nil {
		return utils.BadRequest(c, "Invalid comment ID")
	}

	comment, err := services.MarkAnswer(fc.DB, user, commentID)
	if err != nil {
		return utils.FromServiceError(c, err)
	}

	return utils.Success(c, fiber.StatusOK, comment)
}
