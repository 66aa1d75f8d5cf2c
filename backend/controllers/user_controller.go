package controllers

import (
	"farmlink/backend/config"
	"farmlink/backend/models"
	"farmlink/backend/utils"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

type UserController struct {
	DB  *gorm.DB
	Cfg *config.Config
}

func NewUserController(db *gorm.DB, cfg *config.Config) *UserController {
	return &UserController{DB: db, Cfg: cfg}
}

// GetProfile godoc
// @Summary Get current user profile
// @Tags user
// @Produce json
// @Success 200 {object} models.User
// @Failure 401 {object} utils.ErrorResponse
// @Security ApiKeyAuth
// @Router /user/profile [get]
func (uc *UserController) GetProfile(c *fiber.Ctx) error {
	userID, ok := c.Locals("user_id").(uint)
	if !ok {
		return utils.Unauthorized(c, "Unauthorized")
	}

	var user models.User
	if err := uc.DB.First(&user, userID).Error; err != nil {
		return utils.NotFound(c, "User not found")
	}

	return c.JSON(user)
}

// UpdateProfile godoc
// @Summary Update current user profile
// @Tags user
// @Accept json
// @Produce json
// @Param input body map[string]interface{} true "Profile fields"
// @Success 200 {object} models.User
// @Failure 400 {object} utils.ErrorResponse
// @Failure 401 {object} utils.ErrorResponse
// @Security ApiKeyAuth
// @Router /user/profile [put]
func (uc *UserController) UpdateProfile(c *fiber.Ctx) error {
	userID, ok := c.Locals("user_id").(uint)
	if !ok {
		return utils.Unauthorized(c, "Unauthorized")
	}

	var user models.User
	if err := uc.DB.First(&user, userID).Error; err != nil {
		return utils.NotFound(c, "User not found")
	}

	var input struct {
		Email     *string `json:"email"`
		FarmName  *string `json:"farm_name"`
		Region    *string `json:"region"`
		Specialty *string `json:"specialty"`
	}
	if err := c.BodyParser(&input); err != nil {
		return utils.BadRequest(c, "Cannot parse JSON")
	}

	if input.Email != nil {
		user.Email = *input.Email
	}
	if input.FarmName != nil {
		user.FarmName = *input.FarmName
	}
	if input.Region != nil {
		user.Region = *input.Region
	}
	if input.Specialty != nil {
		user.Specialty = *input.Specialty
	}

	if err := uc.DB.Save(&user).Error; err != nil {
		return utils.InternalServerError(c, "Could not update profile")
	}

	return c.JSON(user)
}
