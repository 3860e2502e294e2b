package http

import (
	"time"

	"github.com/Mokete-tech/spaan-backend/internal/config"
	"github.com/Mokete-tech/spaan-backend/internal/http/handlers"
	"github.com/Mokete-tech/spaan-backend/internal/middleware"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

func SetupRouter(
	app *fiber.App,
	cfg *config.Config,
	log *zap.Logger,
	rdb *redis.Client,
	escrowHandler *handlers.EscrowHandler,
	webhookHandler *handlers.WebhookHandler,
) {
	// Global middleware
	app.Use(recover.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowHeaders: "Origin, Content-Type, Accept, Authorization, X-Request-ID",
	}))
	app.Use(middleware.RequestIDMiddleware())
	app.Use(middleware.LoggerMiddleware(log))

	// Health check
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	// Gateway notifications: public, no rate limit (the gateway retries
	// on its own schedule), method checked inside the handler.
	app.All("/webhooks/payfast", webhookHandler.PayFastITN)
	app.All("/webhooks/paystack", webhookHandler.PaystackEvent)

	api := app.Group("/api/v1")
	api.Use(middleware.RateLimitMiddleware(rdb, 100, time.Minute))

	// Escrow actions require an authenticated actor.
	protected := api.Group("", middleware.AuthMiddleware(cfg, log))
	protected.Post("/escrow/start", escrowHandler.StartEscrow)
	protected.Post("/escrow/release", escrowHandler.ReleaseEscrow)
	protected.Post("/escrow/refund", escrowHandler.RefundEscrow)
	protected.Get("/escrow/:id", escrowHandler.GetTransaction)
	protected.Get("/escrow/:id/events", escrowHandler.GetTransactionEvents)
}
