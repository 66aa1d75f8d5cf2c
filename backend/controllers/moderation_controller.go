package controllers

import (
	"farmlink/backend/config"
	"farmlink/backend/services"
	"farmlink/backend/utils"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

type ModerationController struct {
	DB  *gorm.DB
	Cfg *config.Config
}

func NewModerationController(db *gorm.DB, cfg *config.Config) *ModerationController {
	return &ModerationController{DB: db, Cfg: cfg}
}

// PendingReviews godoc
// @Summary List items waiting for review
// @Description The moderation queue, computed from current statuses
// @Tags moderation
// @Produce json
// @Param type query string false "post | comment | both (default both)"
// @Success 200 {object} utils.SuccessResponse
// @Failure 403 {object} utils.ErrorResponse
// @Security ApiKeyAuth
// @Router /moderation/pending [get]
func (mc *ModerationController) PendingReviews(c *fiber.Ctx) error {
	user, err := currentUser(c, mc.DB)
	if err != nil {
		return utils.Unauthorized(c, "Unauthorized")
	}

	itemType := c.Query("type", "both")

	posts, comments, err := services.PendingReviews(mc.DB, user, itemType)
	if err != nil {
		return utils.FromServiceError(c, err)
	}

	return utils.Success(c, fiber.StatusOK, fiber.Map{
		"posts":    posts,
		"comments": comments,
	})
}

// Approve godoc
// @Summary Approve a pending post or comment
// @Description Idempotent on already-published targets
// @Tags moderation
// @Accept json
// @Param type path string true "post | comment"
// @Param id path int true "Target ID"
// @Param input body map[string]interface{} false "{\"note\": \"optional context\"}"
// @Success 204
// @Failure 403 {object} utils.ErrorResponse
// @Failure 409 {object} utils.ErrorResponse
// @Security ApiKeyAuth
// @Router /moderation/{type}/{id}/approve [post]
func (mc *ModerationController) Approve(c *fiber.Ctx) error {
	user, err := currentUser(c, mc.DB)
	if err != nil {
		return utils.Unauthorized(c, "Unauthorized")
	}
	id, err := parseIDParam(c, "id")
	if err != nil {
		return utils.BadRequest(c, "Invalid ID")
	}

	var input struct {
		Note string `json:"note"`
	}
	_ = c.BodyParser(&input) // note is optional, an empty body is fine

	if err := services.Approve(mc.DB, user, c.Params("type"), id, input.Note); err != nil {
		return utils.FromServiceError(c, err)
	}
	return utils.NoContent(c)
}

// Reject godoc
// @Summary Reject a pending post or comment
// @Description Requires a non-empty reason the author can read
// @Tags moderation
// @Accept json
// @Param type path string true "post | comment"
// @Param id path int true "Target ID"
// @Param input body map[string]interface{} true "{\"reason\": \"why\"}"
// @Success 204
// @Failure 400 {object} utils.ErrorResponse
// @Failure 403 {object} utils.ErrorResponse
// @Failure 409 {object} utils.ErrorResponse
// @Security ApiKeyAuth
// @Router /moderation/{type}/{id}/reject [post]
func (mc *ModerationController) Reject(c *fiber.Ctx) error {
	user, err := currentUser(c, mc.DB)
	if err != nil {
		return utils.Unauthorized(c, "Unauthorized")
	}
	id, err := parseIDParam(c, "id")
	if err != nil {
		return utils.BadRequest(c, "Invalid ID")
	}

	var input struct {
		Reason string `json:"reason"`
	}
	if err := c.BodyParser(&input); err != nil {
		return utils.BadRequest(c, "Cannot parse JSON")
	}

	if err := services.Reject(mc.DB, user, c.Params("type"), id, input.Reason); err != nil {
		return utils.FromServiceError(c, err)
	}
	return utils.NoContent(c)
}
