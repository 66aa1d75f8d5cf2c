package routes

import (
	"farmlink/backend/config"
	"farmlink/backend/controllers"
	"farmlink/backend/middleware"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

func SetupRoutes(app *fiber.App, db *gorm.DB, cfg *config.Config) {
	// Auth routes
	authController := controllers.NewAuthController(db, cfg)
	app.Post("/api/auth/register", authController.Register)
	app.Post("/api/auth/login", authController.Login)

	// Middleware
	authMiddleware := middleware.AuthMiddleware(cfg)
	moderatorMiddleware := middleware.ModeratorMiddleware(cfg)

	// User routes
	userController := controllers.NewUserController(db, cfg)
	app.Get("/api/user/profile", authMiddleware, userController.GetProfile)
	app.Put("/api/user/profile", authMiddleware, userController.UpdateProfile)

	// Category routes
	categoryController := controllers.NewCategoryController(db, cfg)
	app.Get("/api/forum/categories", categoryController.GetCategories)

	// Forum routes
	forumController := controllers.NewForumController(db, cfg)
	forum := app.Group("/api/forum", authMiddleware)
	forum.Get("/posts", forumController.ListPosts)
	forum.Post("/posts", forumController.CreatePost)
	forum.Get("/posts/:id", forumController.GetPost)
	forum.Put("/posts/:id", forumController.UpdatePost)
	forum.Delete("/posts/:id", forumController.DeletePost)
	forum.Post("/posts/:id/vote", forumController.VotePost)
	forum.Post("/posts/:id/comments", forumController.AddComment)
	forum.Delete("/comments/:id", forumController.DeleteComment)
	forum.Post("/comments/:id/vote", forumController.VoteComment)
	forum.Post("/comments/:id/answer", forumController.MarkAnswer)

	// Moderation routes
	moderationController := controllers.NewModerationController(db, cfg)
	moderation := app.Group("/api/moderation", authMiddleware, moderatorMiddleware)
	moderation.Get("/pending", moderationController.PendingReviews)
	moderation.Post("/:type/:id/approve", moderationController.Approve)
	moderation.Post("/:type/:id/reject", moderationController.Reject)
}
