package utils

import (
	"fmt"

	"farmlink/backend/config"
	"farmlink/backend/models"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func InitDB(cfg *config.Config) (*gorm.DB, error) {
	dsn := fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=disable",
		cfg.DBHost, cfg.DBPort, cfg.DBUser, cfg.DBPassword, cfg.DBName)

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, err
	}

	if err := MigrateDB(db); err != nil {
		return nil, err
	}

	if err := SeedCategories(db); err != nil {
		return nil, err
	}

	return db, nil
}

func MigrateDB(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.User{},
		&models.LoginHistory{},
		&models.Category{},
		&models.Post{},
		&models.PostAttachment{},
		&models.Comment{},
		&models.Vote{},
	)
}

// SeedCategories inserts the default forum categories on first start.
func SeedCategories(db *gorm.DB) error {
	var count int64
	if err := db.Model(&models.Category{}).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	categories := []models.Category{
		{Name: "Crop Production", Description: "Planting, growing and harvesting questions", IsActive: true},
		{Name: "Livestock", Description: "Animal husbandry and veterinary questions", IsActive: true},
		{Name: "Soil & Fertilizers", Description: "Soil health, testing and amendments", IsActive: true},
		{Name: "Pest & Disease Control", Description: "Identification and treatment", IsActive: true},
		{Name: "Market & Prices", Description: "Selling produce and market trends", IsActive: true},
		{Name: "Expert Advisory", Description: "Announcements and advisories from verified experts", IsActive: true, ExpertOnly: true},
	}
	return db.Create(&categories).Error
}
