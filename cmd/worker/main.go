package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Mokete-tech/spaan-backend/internal/config"
	"github.com/Mokete-tech/spaan-backend/internal/db"
	"github.com/Mokete-tech/spaan-backend/internal/events"
	"github.com/Mokete-tech/spaan-backend/internal/models"
	"github.com/Mokete-tech/spaan-backend/internal/repositories"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// The worker sweeps pending transactions whose hosted checkout was never
// completed. A pending row older than the abandon age gets flagged so it
// stops showing up in dashboards as live; money never moved, so no
// status transition happens.
func main() {
	log, _ := zap.NewProduction()
	defer log.Sync()

	cfg := config.Load()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pool, err := db.NewPostgresPool(ctx, cfg.PostgresDSN, log)
	if err != nil {
		log.Fatal("failed to connect to postgres", zap.Error(err))
	}
	defer pool.Close()

	rdb, err := db.NewRedisClient(ctx, cfg.RedisURL, log)
	if err != nil {
		log.Fatal("failed to connect to redis", zap.Error(err))
	}
	defer rdb.Close()

	escrowRepo := repositories.NewEscrowRepo(pool)
	paymentRepo := repositories.NewPaymentRepo(pool)
	auditRepo := repositories.NewAuditRepo(pool)
	publisher := events.NewRedisPublisher(rdb, log)

	// Tail the escrow stream so every transition shows up in the worker
	// log next to the sweep results it relates to.
	subscriber := events.NewRedisSubscriber(rdb, log)
	if err := subscriber.Subscribe(ctx, events.StreamEscrow, func(e events.Event) {
		log.Info("escrow event",
			zap.String("type", e.Type),
			zap.Any("payload", e.Payload))
	}); err != nil {
		log.Warn("failed to subscribe to escrow events", zap.Error(err))
	}

	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		log.Info("shutting down worker...")
		cancel()
	}()

	log.Info("reconciliation worker started",
		zap.Duration("interval", cfg.SweepInterval),
		zap.Duration("abandon_age", cfg.PendingAbandonAge))

	ticker := time.NewTicker(cfg.SweepInterval)
	defer ticker.Stop()

	for {
		sweep(ctx, escrowRepo, paymentRepo, auditRepo, publisher, cfg.PendingAbandonAge, log)
		select {
		case <-ctx.Done():
			log.Info("worker stopped")
			return
		case <-ticker.C:
		}
	}
}

// Narrow store views so the sweep can be exercised without a database.

type escrowSweepStore interface {
	ListStalePending(ctx context.Context, olderThan time.Duration) ([]models.EscrowTransaction, error)
	MarkAbandoned(ctx context.Context, id uuid.UUID) error
}

type paymentLookup interface {
	GetByExternalRef(ctx context.Context, ref string) (*models.Payment, error)
}

type auditWriter interface {
	Log(ctx context.Context, entry models.AuditLog) error
}

func sweep(
	ctx context.Context,
	escrowStore escrowSweepStore,
	payments paymentLookup,
	audit auditWriter,
	publisher events.Publisher,
	abandonAge time.Duration,
	log *zap.Logger,
) {
	stale, err := escrowStore.ListStalePending(ctx, abandonAge)
	if err != nil {
		log.Error("failed to list stale pending transactions", zap.Error(err))
		return
	}
	if len(stale) == 0 {
		return
	}

	log.Info("sweeping abandoned checkouts", zap.Int("count", len(stale)))
	for _, t := range stale {
		// A payment row for the reference means money actually moved and
		// the confirmation was lost somewhere. That is an operator problem,
		// not an abandoned checkout.
		if _, err := payments.GetByExternalRef(ctx, t.EscrowID); err == nil {
			log.Error("payment recorded but transaction still pending, skipping abandon",
				zap.String("transaction_id", t.ID.String()),
				zap.String("escrow_id", t.EscrowID))
			continue
		}

		if err := escrowStore.MarkAbandoned(ctx, t.ID); err != nil {
			log.Error("failed to mark transaction abandoned",
				zap.String("transaction_id", t.ID.String()), zap.Error(err))
			continue
		}

		id := t.ID.String()
		if err := audit.Log(ctx, models.AuditLog{
			ActorType:  models.ActorTypeSystem,
			Action:     "escrow_abandoned",
			EntityType: "escrow_transaction",
			EntityID:   &id,
			Meta: map[string]any{
				"age_hours": time.Since(t.CreatedAt).Hours(),
			},
		}); err != nil {
			log.Warn("failed to write audit entry", zap.Error(err))
		}

		if err := publisher.Publish(ctx, events.StreamEscrow, events.Event{
			Type: events.EventEscrowAbandoned,
			Payload: map[string]any{
				"transaction_id": id,
				"buyer_id":       t.BuyerID,
				"provider_id":    t.ProviderID,
				"amount_cents":   t.AmountCents,
				"currency":       t.Currency,
			},
		}); err != nil {
			log.Warn("failed to publish event", zap.Error(err))
		}
	}
}
