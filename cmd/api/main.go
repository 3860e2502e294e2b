package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/Mokete-tech/spaan-backend/internal/apperror"
	"github.com/Mokete-tech/spaan-backend/internal/config"
	"github.com/Mokete-tech/spaan-backend/internal/db"
	"github.com/Mokete-tech/spaan-backend/internal/events"
	"github.com/Mokete-tech/spaan-backend/internal/gateway"
	apphttp "github.com/Mokete-tech/spaan-backend/internal/http"
	"github.com/Mokete-tech/spaan-backend/internal/http/handlers"
	"github.com/Mokete-tech/spaan-backend/internal/repositories"
	"github.com/Mokete-tech/spaan-backend/internal/services"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

func main() {
	log, _ := zap.NewProduction()
	defer log.Sync()

	cfg := config.Load()
	cfg.Validate(log)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Database
	pool, err := db.NewPostgresPool(ctx, cfg.PostgresDSN, log)
	if err != nil {
		log.Fatal("failed to connect to postgres", zap.Error(err))
	}
	defer pool.Close()

	if err := db.RunMigrations(ctx, pool, "migrations", log); err != nil {
		log.Fatal("failed to run migrations", zap.Error(err))
	}

	// Redis
	rdb, err := db.NewRedisClient(ctx, cfg.RedisURL, log)
	if err != nil {
		log.Fatal("failed to connect to redis", zap.Error(err))
	}
	defer rdb.Close()

	// Repositories
	escrowRepo := repositories.NewEscrowRepo(pool)
	paymentRepo := repositories.NewPaymentRepo(pool)
	auditRepo := repositories.NewAuditRepo(pool)

	// Gateway adapters
	payfast := gateway.NewPayFast(gateway.PayFastConfig{
		MerchantID:  cfg.PayFastMerchantID,
		MerchantKey: cfg.PayFastMerchantKey,
		Passphrase:  cfg.PayFastPassphrase,
		Sandbox:     cfg.PayFastSandbox,
		ReturnURL:   cfg.PayFastReturnURL,
		CancelURL:   cfg.PayFastCancelURL,
		NotifyURL:   cfg.PayFastNotifyURL,
	}, log)
	stripe := gateway.NewStripe(gateway.StripeConfig{
		SecretKey: cfg.StripeSecretKey,
		Timeout:   cfg.GatewayTimeout,
	}, log)
	paystack := gateway.NewPaystack(gateway.PaystackConfig{
		SecretKey: cfg.PaystackSecretKey,
		Timeout:   cfg.GatewayTimeout,
	}, log)
	registry := gateway.NewRegistry(cfg.PrimaryCurrency, paystack, payfast, stripe)

	// Services
	publisher := events.NewRedisPublisher(rdb, log)
	mailer := services.NewMailerClient(cfg.MailerInternalURL, log)
	escrowService := services.NewEscrowService(escrowRepo, paymentRepo, auditRepo, registry, publisher, mailer, cfg, log)

	// Handlers
	escrowHandler := handlers.NewEscrowHandler(escrowService, log)
	webhookHandler := handlers.NewWebhookHandler(escrowService, cfg, log)

	// Fiber app
	app := fiber.New(fiber.Config{
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			code := apperror.HTTPStatusOf(err)
			if e, ok := err.(*fiber.Error); ok {
				code = e.Code
			}
			if code >= fiber.StatusInternalServerError {
				log.Error("unhandled request error", zap.String("path", c.Path()), zap.Error(err))
			}
			return c.Status(code).JSON(fiber.Map{"error": apperror.UserMessage(err)})
		},
	})

	apphttp.SetupRouter(app, cfg, log, rdb, escrowHandler, webhookHandler)

	// Graceful shutdown
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		log.Info("shutting down...")
		cancel()
		_ = app.Shutdown()
	}()

	addr := fmt.Sprintf(":%s", cfg.APIPort)
	log.Info("starting payments API server", zap.String("addr", addr))
	if err := app.Listen(addr); err != nil {
		log.Fatal("server error", zap.Error(err))
	}
}
