package config

import (
	"os"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"gorm.io/gorm"

	"github.com/nocap-app/nocap-backend/internal/api/handlers"
	"github.com/nocap-app/nocap-backend/internal/api/routes"
	"github.com/nocap-app/nocap-backend/internal/middleware"
	"github.com/nocap-app/nocap-backend/internal/utils"
	"github.com/nocap-app/nocap-backend/internal/utils/storage"
	"github.com/nocap-app/nocap-backend/pkg/game"
	"github.com/nocap-app/nocap-backend/pkg/jwt"
	"github.com/nocap-app/nocap-backend/pkg/media"
	"github.com/nocap-app/nocap-backend/pkg/payment"
	"github.com/nocap-app/nocap-backend/pkg/scan"
	"github.com/nocap-app/nocap-backend/pkg/token"
	"github.com/nocap-app/nocap-backend/pkg/user"
)

func NewApp(db *gorm.DB) (*fiber.App, error) {
	utils.InitValidator()
	app := fiber.New(fiber.Config{
		EnablePrintRoutes: true,
		BodyLimit:         storage.MaxUploadSize,
	})
	middlewares := middleware.NewMiddleware()
	validator := utils.Validate

	// setting up logging and limiter
	err := os.MkdirAll("./logs", os.ModePerm)
	if err != nil {
		log.Fatalf("error creating logs directory: %v", err)
	}
	file, err := os.OpenFile(
		"./logs/app.log",
		os.O_RDWR|os.O_CREATE|os.O_APPEND,
		0666,
	)
	if err != nil {
		log.Fatalf("error opening file: %v", err)
	}
	app.Use(logger.New(logger.Config{
		TimeFormat: "2006-01-02 15:04:05",
		TimeZone:   "UTC",
		Output:     file,
	}))

	app.Use(limiter.New(limiter.Config{
		Max:        10,
		Expiration: 1 * time.Second,
	}))

	// utils
	s3 := storage.NewAwsS3()

	// Repository
	userRepository := user.NewUserRepository(db)
	tokenRepository := token.NewTokenRepository(db)
	scanRepository := scan.NewScanRepository(db)
	gameRepository := game.NewGameRepository(db)

	// Service
	jwtService := jwt.NewJWTService()
	userService := user.NewUserService(userRepository, jwtService)
	tokenService := token.NewTokenService(tokenRepository)
	detector := scan.NewMockDetector()
	scanService := scan.NewScanService(scanRepository, tokenService, s3, detector)
	paymentService := payment.NewPaymentService(tokenRepository, userRepository)
	gameService := game.NewGameService(gameRepository, tokenRepository)
	extractService := media.NewExtractService()

	// Handler
	userHandler := handlers.NewUserHandler(userService, validator)
	scanHandler := handlers.NewScanHandler(scanService, validator)
	tokenHandler := handlers.NewTokenHandler(tokenService, paymentService, validator)
	gameHandler := handlers.NewGameHandler(gameService, validator)
	mediaHandler := handlers.NewMediaHandler(extractService, validator)
	webhookHandler := handlers.NewWebhookHandler(paymentService)

	// routes
	routesConfig := routes.Config{
		App:            app,
		UserHandler:    userHandler,
		ScanHandler:    scanHandler,
		TokenHandler:   tokenHandler,
		GameHandler:    gameHandler,
		MediaHandler:   mediaHandler,
		WebhookHandler: webhookHandler,
		Middleware:     middlewares,
		JWTService:     jwtService,
	}
	routesConfig.Setup()
	return app, nil
}
