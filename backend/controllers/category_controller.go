package controllers

import (
	"farmlink/backend/config"
	"farmlink/backend/models"
	"farmlink/backend/utils"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

type CategoryController struct {
	DB  *gorm.DB
	Cfg *config.Config
}

func NewCategoryController(db *gorm.DB, cfg *config.Config) *CategoryController {
	return &CategoryController{DB: db, Cfg: cfg}
}

// GetCategories godoc
// @Summary List active forum categories
// @Tags forum
// @Produce json
// @Success 200 {object} utils.SuccessResponse
// @Router /forum/categories [get]
func (cc *CategoryController) GetCategories(c *fiber.Ctx) error {
	var categories []models.Category
	if err := cc.DB.Where("is_active = ?", true).Order("name ASC").
		Find(&categories).Error; err != nil {
		return utils.InternalServerError(c, "Could not fetch categories")
	}

	return utils.Success(c, fiber.StatusOK, categories)
}
