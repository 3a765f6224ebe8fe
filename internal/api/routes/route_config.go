package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/nocap-app/nocap-backend/internal/api/handlers"
	"github.com/nocap-app/nocap-backend/internal/middleware"
	"github.com/nocap-app/nocap-backend/pkg/jwt"
)

type Config struct {
	App            *fiber.App
	UserHandler    handlers.UserHandler
	ScanHandler    handlers.ScanHandler
	TokenHandler   handlers.TokenHandler
	GameHandler    handlers.GameHandler
	MediaHandler   handlers.MediaHandler
	WebhookHandler handlers.WebhookHandler
	Middleware     middleware.Middleware
	JWTService     jwt.JWTService
}

func (c *Config) Setup() {
	c.App.Use(c.Middleware.CORSMiddleware())
	c.User()
	c.Scans()
	c.Tokens()
	c.Game()
	c.Media()
	c.GuestRoute()
}

func (c *Config) User() {
	user := c.App.Group("/api/v1/users")
	{
		user.Post("/register", c.UserHandler.Register)
		user.Post("/login", c.UserHandler.Login)
		user.Get("/me", c.Middleware.AuthMiddleware(c.JWTService), c.UserHandler.Me)
	}
}

func (c *Config) Scans() {
	scans := c.App.Group("/api/v1/scans", c.Middleware.AuthMiddleware(c.JWTService))
	{
		scans.Post("/upload", c.ScanHandler.UploadScan)
		scans.Post("/analyze", c.ScanHandler.AnalyzeScan)
		scans.Get("", c.ScanHandler.GetScans)
		scans.Get("/:id", c.ScanHandler.GetScan)
		scans.Delete("/:id", c.ScanHandler.DeleteScan)
	}
}

func (c *Config) Tokens() {
	tokens := c.App.Group("/api/v1/tokens", c.Middleware.AuthMiddleware(c.JWTService))
	{
		tokens.Get("/balance", c.TokenHandler.GetUserTokens)
		tokens.Get("/packages", c.TokenHandler.GetPackages)
		tokens.Get("/history", c.TokenHandler.GetTransactionHistory)
		tokens.Post("/checkout", c.TokenHandler.CreateCheckout)
	}
}

func (c *Config) Game() {
	game := c.App.Group("/api/v1/game", c.Middleware.AuthMiddleware(c.JWTService))
	{
		game.Get("/media", c.GameHandler.GetGameMedia)
		game.Post("/guess", c.GameHandler.SubmitGuess)
	}
}

func (c *Config) Media() {
	media := c.App.Group("/api/v1/media", c.Middleware.AuthMiddleware(c.JWTService))
	{
		media.Post("/extract", c.MediaHandler.ExtractMedia)
	}
}

func (c *Config) GuestRoute() {
	c.App.Get("/api/ping", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"message": "pong"})
	})
	c.App.Post("/webhook/stripe", c.WebhookHandler.StripeWebhook)
}
