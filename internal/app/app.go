package app

import (
	"context"
	"fmt"

	"acervo_backend/database"
	"acervo_backend/internal/auth"
	"acervo_backend/internal/config"
	"acervo_backend/internal/email"
	"acervo_backend/internal/handlers"
	"acervo_backend/internal/identity"
	"acervo_backend/internal/logger"
	"acervo_backend/internal/middleware"
	"acervo_backend/internal/models"
	"acervo_backend/internal/repositories"
	"acervo_backend/internal/routes"
	"acervo_backend/internal/services"
	"acervo_backend/internal/validator"
	"acervo_backend/internal/whatsapp"
	"acervo_backend/internal/workers"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

func Run() {
	config.LoadConfig()
	cfg := config.AppConfig
	logger.Init(cfg.Server.Env)
	logger.Info("Logger initialized", "env", cfg.Server.Env)

	gormDB, err := database.ConnectGorm()
	if err != nil {
		logger.Fatal("Failed to connect to GORM", "error", err)
	}
	sqlDB, err := gormDB.DB()
	if err != nil {
		logger.Fatal("Failed to get *sql.DB from GORM", "error", err)
	}
	if err = sqlDB.Ping(); err != nil {
		logger.Fatal("Database unavailable", "error", err)
	}
	logger.Info("Database connected")

	if err := database.AutoMigrate(gormDB); err != nil {
		logger.Fatal("Failed to run migrations", "error", err)
	}
	if err := seedFreePlan(gormDB); err != nil {
		logger.Fatal("Failed to seed free plan", "error", err)
	}
	if err := seedFirstAdmin(gormDB); err != nil {
		logger.Fatal("Failed to seed first admin user", "error", err)
	}

	ginRouter := SetupRouter(cfg, gormDB)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	workers.NewExpiryWorker(gormDB).Start(ctx)

	address := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	logger.Info("Server starting", "address", address)
	if err := ginRouter.Run(address); err != nil {
		logger.Fatal("Server startup error", "error", err)
	}
}

func SetupRouter(cfg *config.Config, gormDB *gorm.DB) *gin.Engine {
	// Repositories
	userRepo := repositories.NewUserRepository(gormDB)
	catalogRepo := repositories.NewCatalogRepository(gormDB)
	accessRepo := repositories.NewAccessRepository(gormDB)
	resourceRepo := repositories.NewResourceRepository(gormDB)
	transactor := repositories.NewTransactor(gormDB)

	// External collaborators
	var identityProvider identity.Provider = identity.NewHTTPProvider(cfg.Identity.BaseURL, cfg.Identity.APIKey)
	var oracle whatsapp.Oracle = whatsapp.NewHTTPOracle(cfg.Whatsapp.BaseURL, cfg.Whatsapp.APIKey)
	var mailer email.Mailer = email.NewSMTPMailer(cfg)
	if cfg.Email.SMTPHost == "" {
		logger.Warn("SMTP not configured, welcome emails will only be logged")
		mailer = &LogMailer{}
	}

	// Services
	authService := services.NewAuthService(userRepo)
	catalogService := services.NewCatalogService(resourceRepo, userRepo, accessRepo, catalogRepo)
	enrollmentService := services.NewEnrollmentService(
		transactor, userRepo, catalogRepo, accessRepo, identityProvider, oracle, mailer,
	)

	// Handlers
	v := validator.New()
	base := handlers.NewBaseHandler(v)
	appHandlers := &handlers.AppHandlers{
		AuthHandler:       handlers.NewAuthHandler(base, authService),
		CatalogHandler:    handlers.NewCatalogHandler(base, catalogService),
		EnrollmentHandler: handlers.NewEnrollmentHandler(base, enrollmentService, cfg.Enrollment.APIKey),
	}

	ginRouter := initializeGinRouter(cfg)
	routes.RegisterRoutes(ginRouter, appHandlers)
	return ginRouter
}

func initializeGinRouter(cfg *config.Config) *gin.Engine {
	if cfg.Server.Env != "development" {
		gin.SetMode(gin.ReleaseMode)
	}

	ginRouter := gin.New()
	ginRouter.Use(
		gin.Recovery(),
		middleware.RequestIDMiddleware(),
		middleware.LoggingMiddleware(),
	)
	return ginRouter
}

// seedFreePlan guarantees the structural free plan exists: enrollment
// backfills a free subscription row and depends on finding it by slug.
func seedFreePlan(db *gorm.DB) error {
	var count int64
	if err := db.Model(&models.Plan{}).Where("slug = ?", models.PlanSlugFree).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	logger.Info("Seeding free plan")
	return db.Create(&models.Plan{
		Slug:     models.PlanSlugFree,
		Name:     "Gratuito",
		IsActive: true,
	}).Error
}

func seedFirstAdmin(db *gorm.DB) error {
	var count int64
	if err := db.Model(&models.User{}).Where("role = ?", models.UserRoleAdmin).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	password, err := auth.GenerateTempPassword(16)
	if err != nil {
		return err
	}
	hash, err := auth.HashPassword(password)
	if err != nil {
		return err
	}

	admin := &models.User{
		Name:         "Admin",
		Email:        "admin@localhost",
		PasswordHash: hash,
		Role:         models.UserRoleAdmin,
	}
	if err := db.Create(admin).Error; err != nil {
		return err
	}

	// Logged once; rotate it on first login.
	logger.Warn("Seeded first admin user", "email", admin.Email, "password", password)
	return nil
}
