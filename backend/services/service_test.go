package services

import (
	"fmt"
	"strings"
	"testing"

	"farmlink/backend/models"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// testDB opens a throwaway in-memory database named after the test so
// parallel tests never share state.
func testDB(t *testing.T) *gorm.DB {
	t.Helper()

	name := strings.ReplaceAll(t.Name(), "/", "_")
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", name)
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	// sqlite cannot take concurrent writers; one connection serializes them
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.AutoMigrate(
		&models.User{},
		&models.Category{},
		&models.Post{},
		&models.PostAttachment{},
		&models.Comment{},
		&models.Vote{},
	))
	return db
}

func createUser(t *testing.T, db *gorm.DB, username, role string) models.User {
	t.Helper()
	user := models.User{
		Username:     username,
		Email:        username + "@example.com",
		PasswordHash: "x",
		Role:         role,
	}
	require.NoError(t, db.Create(&user).Error)
	return user
}

func createCategory(t *testing.T, db *gorm.DB, name string, active, expertOnly bool) models.Category {
	t.Helper()
	category := models.Category{Name: name, IsActive: active, ExpertOnly: expertOnly}
	require.NoError(t, db.Create(&category).Error)
	if !active {
		// gorm omits zero-valued fields tagged default:true from the INSERT,
		// so force the flag with an explicit update
		require.NoError(t, db.Model(&category).Update("is_active", false).Error)
		category.IsActive = false
	}
	return category
}

func createPublishedPost(t *testing.T, db *gorm.DB, author models.User, category models.Category) *models.Post {
	t.Helper()
	post, err := CreatePost(db, author, PostInput{
		CategoryID: category.ID,
		Title:      "Test post",
		Body:       "Test body",
	})
	require.NoError(t, err)
	if post.Status != models.StatusPublished {
		require.NoError(t, db.Model(post).Update("status", models.StatusPublished).Error)
		post.Status = models.StatusPublished
	}
	return post
}
