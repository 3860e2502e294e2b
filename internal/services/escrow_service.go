package services

import (
	"context"
	"errors"
	"time"

	"github.com/Mokete-tech/spaan-backend/internal/apperror"
	"github.com/Mokete-tech/spaan-backend/internal/commission"
	"github.com/Mokete-tech/spaan-backend/internal/config"
	"github.com/Mokete-tech/spaan-backend/internal/events"
	"github.com/Mokete-tech/spaan-backend/internal/gateway"
	"github.com/Mokete-tech/spaan-backend/internal/models"
	"github.com/Mokete-tech/spaan-backend/internal/rbac"
	"github.com/Mokete-tech/spaan-backend/internal/retry"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
)

// EscrowStore is the ledger persistence the service transitions through.
type EscrowStore interface {
	Create(ctx context.Context, t *models.EscrowTransaction) (bool, error)
	GetByID(ctx context.Context, id uuid.UUID) (*models.EscrowTransaction, error)
	GetByExternalRef(ctx context.Context, ref string) (*models.EscrowTransaction, error)
	MarkInEscrow(ctx context.Context, id uuid.UUID, details map[string]any) (*models.EscrowTransaction, error)
	MarkReleased(ctx context.Context, id uuid.UUID) (*models.EscrowTransaction, error)
	MarkRefunded(ctx context.Context, id uuid.UUID, details map[string]any) (*models.EscrowTransaction, error)
}

type PaymentStore interface {
	Insert(ctx context.Context, p *models.Payment) (bool, error)
}

type AuditStore interface {
	Log(ctx context.Context, entry models.AuditLog) error
	GetByEntity(ctx context.Context, entityType, entityID string, limit, offset int) ([]models.AuditLog, error)
}

// AdapterResolver picks the gateway adapter for a method and currency.
type AdapterResolver interface {
	ByMethod(method, currency string) (gateway.Adapter, error)
}

// Notifier delivers fire-and-forget user notices; failures never
// propagate into the payment path.
type Notifier interface {
	Send(ctx context.Context, userID, template string, data map[string]any)
}

// Actor identifies the authenticated caller of an escrow mutation.
type Actor struct {
	ID   string
	Role string
}

// EscrowService owns every escrow status transition. No other component
// writes transaction status.
type EscrowService struct {
	store     EscrowStore
	payments  PaymentStore
	audit     AuditStore
	gateways  AdapterResolver
	publisher events.Publisher
	notifier  Notifier
	cfg       *config.Config
	log       *zap.Logger
}

func NewEscrowService(
	store EscrowStore,
	payments PaymentStore,
	audit AuditStore,
	gateways AdapterResolver,
	publisher events.Publisher,
	notifier Notifier,
	cfg *config.Config,
	log *zap.Logger,
) *EscrowService {
	return &EscrowService{
		store:     store,
		payments:  payments,
		audit:     audit,
		gateways:  gateways,
		publisher: publisher,
		notifier:  notifier,
		cfg:       cfg,
		log:       log,
	}
}

type StartEscrowInput struct {
	ServiceID   string
	ProviderID  string
	AmountCents int64
	Currency    string
	Method      string
	Description string
	BuyerEmail  string
	Details     map[string]any
}

type StartEscrowResult struct {
	Transaction *models.EscrowTransaction
	RedirectURL string
	ClientSecret string
}

// StartEscrow charges the buyer through the selected gateway. Direct-API
// charges create the ledger record immediately; hosted-redirect flows
// return the checkout URL and leave completion to the webhook.
func (s *EscrowService) StartEscrow(ctx context.Context, actor Actor, input StartEscrowInput) (*StartEscrowResult, error) {
	if !rbac.HasPermission(actor.Role, rbac.PermStartEscrow) {
		return nil, apperror.New(apperror.ErrCodeForbidden, "only buyers can start an escrow payment")
	}
	if input.ServiceID == "" || input.ProviderID == "" {
		return nil, apperror.New(apperror.ErrCodeValidation, "service_id and provider_id are required")
	}
	if input.AmountCents <= 0 {
		return nil, apperror.New(apperror.ErrCodeValidation, "amount must be positive")
	}
	if len(input.Currency) != 3 {
		return nil, apperror.Newf(apperror.ErrCodeValidation, "invalid currency %q", input.Currency)
	}

	// Gateway fee is unknown at charge time, so it enters as zero; the
	// split still has to be on the record from the first write.
	breakdown, err := commission.Compute(input.AmountCents, 0, s.cfg.CommissionRateBPS)
	if err != nil {
		return nil, apperror.Wrap(err, apperror.ErrCodeInternal, "commission rate misconfigured")
	}

	adapter, err := s.gateways.ByMethod(input.Method, input.Currency)
	if err != nil {
		return nil, err
	}

	merchantRef := uuid.NewString()
	chargeReq := gateway.ChargeRequest{
		MerchantRef: merchantRef,
		AmountCents: input.AmountCents,
		Currency:    input.Currency,
		Description: input.Description,
		BuyerEmail:  input.BuyerEmail,
		ServiceID:   input.ServiceID,
		BuyerID:     actor.ID,
		ProviderID:  input.ProviderID,
	}

	// Transient gateway failures on the client-initiated path are retried
	// with backoff; terminal errors stop immediately.
	var result *gateway.ChargeResult
	retryCfg := retry.Config{
		MaxAttempts: s.cfg.PayRetryMaxAttempts,
		BaseDelay:   s.cfg.PayRetryBaseDelay,
	}
	err = retry.Do(ctx, retryCfg, func(ctx context.Context) error {
		var chargeErr error
		result, chargeErr = adapter.Charge(ctx, chargeReq)
		return chargeErr
	}, func(attempt int, lastErr error) {
		s.log.Warn("retrying payment charge",
			zap.Int("attempt", attempt),
			zap.String("method", adapter.Name()),
			zap.String("merchant_ref", merchantRef),
			zap.Error(lastErr),
		)
	})
	if err != nil {
		s.log.Error("payment charge failed",
			zap.String("method", adapter.Name()),
			zap.String("merchant_ref", merchantRef),
			zap.Error(err),
		)
		s.auditLog(ctx, &actor.ID, models.ActorTypeUser, "escrow_start_failed", "escrow_transaction", nil, map[string]any{
			"method": adapter.Name(), "merchant_ref": merchantRef, "error": apperror.UserMessage(err),
		})
		return nil, err
	}

	// Hosted checkout without a gateway reference: nothing to record yet,
	// the webhook creates the transaction on completion.
	if result.RedirectURL != "" && result.TransactionID == "" {
		return &StartEscrowResult{RedirectURL: result.RedirectURL}, nil
	}

	status := models.EscrowStatusInEscrow
	if result.RedirectURL != "" {
		// Reference known but buyer still has to complete hosted checkout.
		status = models.EscrowStatusPending
	}

	details := map[string]any{"merchant_ref": merchantRef}
	for k, v := range input.Details {
		details[k] = v
	}
	for k, v := range result.Raw {
		details[k] = v
	}

	txn := &models.EscrowTransaction{
		ServiceID:      input.ServiceID,
		BuyerID:        actor.ID,
		ProviderID:     input.ProviderID,
		AmountCents:    input.AmountCents,
		Currency:       input.Currency,
		Status:         status,
		PaymentMethod:  adapter.Name(),
		EscrowID:       result.TransactionID,
		PaymentDetails: details,
	}
	created, err := s.store.Create(ctx, txn)
	if err != nil {
		return nil, apperror.Wrap(err, apperror.ErrCodeInternal, "failed to record escrow transaction")
	}
	if !created {
		// The same gateway reference was already recorded; reuse it.
		existing, err := s.store.GetByExternalRef(ctx, result.TransactionID)
		if err != nil {
			return nil, apperror.Wrap(err, apperror.ErrCodeInternal, "failed to load escrow transaction")
		}
		txn = existing
	}

	if status == models.EscrowStatusInEscrow && created {
		s.recordPayment(ctx, &models.Payment{
			ExternalRef:     result.TransactionID,
			MerchantRef:     merchantRef,
			Method:          adapter.Name(),
			Status:          models.PaymentStatusComplete,
			Currency:        input.Currency,
			GrossCents:      input.AmountCents,
			NetCents:        breakdown.NetCents,
			CommissionCents: breakdown.CommissionCents,
			PayoutCents:     breakdown.PayoutCents,
			Raw:             result.Raw,
		})
		s.afterTransition(ctx, txn, &actor.ID, models.ActorTypeUser, events.EventEscrowCreated, "")
	}

	return &StartEscrowResult{
		Transaction:  txn,
		RedirectURL:  result.RedirectURL,
		ClientSecret: result.ClientSecret,
	}, nil
}

// Release transitions in_escrow -> released. Releasing an already
// released transaction is a safe no-op returning the terminal state.
func (s *EscrowService) Release(ctx context.Context, actor Actor, id uuid.UUID) (*models.EscrowTransaction, error) {
	txn, err := s.getForMutation(ctx, actor, id, rbac.PermReleaseEscrow)
	if err != nil {
		return nil, err
	}

	if txn.Status == models.EscrowStatusReleased {
		return txn, nil
	}
	if txn.Status != models.EscrowStatusInEscrow {
		return nil, apperror.Newf(apperror.ErrCodeInvalidState,
			"cannot release transaction in status %q", txn.Status)
	}

	updated, err := s.store.MarkReleased(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return s.resolveLostRace(ctx, id, models.EscrowStatusReleased, "release")
		}
		return nil, apperror.Wrap(err, apperror.ErrCodeInternal, "failed to release escrow")
	}

	s.afterTransition(ctx, updated, &actor.ID, models.ActorTypeUser, events.EventEscrowReleased, "")
	return updated, nil
}

// Refund transitions in_escrow -> refunded, calling the gateway reversal
// first where one exists. The local refund record is authoritative even
// when the upstream reversal fails; such failures are logged and audited
// for manual reconciliation.
func (s *EscrowService) Refund(ctx context.Context, actor Actor, id uuid.UUID, reason string) (*models.EscrowTransaction, error) {
	if reason == "" {
		return nil, apperror.New(apperror.ErrCodeValidation, "refund reason is required")
	}

	txn, err := s.getForMutation(ctx, actor, id, rbac.PermRefundEscrow)
	if err != nil {
		return nil, err
	}

	if txn.Status == models.EscrowStatusRefunded {
		return txn, nil
	}
	if txn.Status != models.EscrowStatusInEscrow {
		return nil, apperror.Newf(apperror.ErrCodeInvalidState,
			"cannot refund transaction in status %q", txn.Status)
	}

	details := map[string]any{
		"refund_reason": reason,
		"refund_date":   time.Now().UTC().Format(time.RFC3339),
	}

	adapter, err := s.gateways.ByMethod(txn.PaymentMethod, txn.Currency)
	if err == nil {
		res, revErr := adapter.Refund(ctx, gateway.RefundRequest{
			TransactionID: txn.EscrowID,
			AmountCents:   txn.AmountCents,
			Currency:      txn.Currency,
			Reason:        reason,
		})
		switch {
		case revErr == nil:
			details["refund_id"] = res.RefundID
		case errors.Is(revErr, gateway.ErrManualRefund):
			details["refund_manual"] = true
		default:
			s.log.Error("upstream refund reversal failed, recording local refund anyway",
				zap.String("transaction_id", id.String()),
				zap.String("method", txn.PaymentMethod),
				zap.Error(revErr),
			)
			s.auditLog(ctx, &actor.ID, models.ActorTypeUser, "refund_reversal_failed", "escrow_transaction", ptr(id.String()), map[string]any{
				"method": txn.PaymentMethod, "error": apperror.UserMessage(revErr),
			})
			details["refund_reversal_failed"] = true
		}
	}

	updated, err := s.store.MarkRefunded(ctx, id, details)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return s.resolveLostRace(ctx, id, models.EscrowStatusRefunded, "refund")
		}
		return nil, apperror.Wrap(err, apperror.ErrCodeInternal, "failed to refund escrow")
	}

	s.afterTransition(ctx, updated, &actor.ID, models.ActorTypeUser, events.EventEscrowRefunded, reason)
	return updated, nil
}

// PaymentNotification is the normalized shape of an inbound gateway
// notification after field mapping.
type PaymentNotification struct {
	ExternalRef string
	MerchantRef string
	Method      string
	Currency    string
	GrossCents  int64
	FeeCents    int64
	ServiceID   string
	BuyerID     string
	ProviderID  string
	Raw         map[string]any
}

// ConfirmPayment applies a complete gateway notification: records the
// payment audit row and moves the transaction into escrow. Keyed by the
// external reference, so duplicate deliveries collapse into a no-op.
func (s *EscrowService) ConfirmPayment(ctx context.Context, n PaymentNotification) (bool, error) {
	breakdown, err := commission.Compute(n.GrossCents, n.FeeCents, s.cfg.CommissionRateBPS)
	if err != nil {
		return false, apperror.Wrap(err, apperror.ErrCodeValidation, "invalid notification amounts")
	}

	s.recordPayment(ctx, &models.Payment{
		ExternalRef:     n.ExternalRef,
		MerchantRef:     n.MerchantRef,
		Method:          n.Method,
		Status:          models.PaymentStatusComplete,
		Currency:        n.Currency,
		GrossCents:      n.GrossCents,
		FeeCents:        n.FeeCents,
		NetCents:        breakdown.NetCents,
		CommissionCents: breakdown.CommissionCents,
		PayoutCents:     breakdown.PayoutCents,
		Raw:             n.Raw,
	})

	existing, err := s.store.GetByExternalRef(ctx, n.ExternalRef)
	switch {
	case err == nil && existing.Status == models.EscrowStatusPending:
		// Hosted checkout completed for a transaction we opened earlier.
		updated, err := s.store.MarkInEscrow(ctx, existing.ID, map[string]any{
			"gateway_fee_cents": n.FeeCents,
			"net_cents":         breakdown.NetCents,
		})
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				// Raced with another delivery; already past pending.
				return false, nil
			}
			return false, apperror.Wrap(err, apperror.ErrCodeInternal, "failed to confirm escrow transaction")
		}
		s.afterTransition(ctx, updated, nil, models.ActorTypeGateway, events.EventPaymentReceived, "")
		return true, nil
	case err == nil:
		// Already in escrow or terminal: duplicate delivery, no-op.
		return false, nil
	case !errors.Is(err, pgx.ErrNoRows):
		return false, apperror.Wrap(err, apperror.ErrCodeInternal, "failed to look up escrow transaction")
	}

	if n.ServiceID == "" || n.BuyerID == "" || n.ProviderID == "" {
		return false, apperror.New(apperror.ErrCodeValidation, "notification is missing correlation identifiers")
	}

	txn := &models.EscrowTransaction{
		ServiceID:     n.ServiceID,
		BuyerID:       n.BuyerID,
		ProviderID:    n.ProviderID,
		AmountCents:   n.GrossCents,
		Currency:      n.Currency,
		Status:        models.EscrowStatusInEscrow,
		PaymentMethod: n.Method,
		EscrowID:      n.ExternalRef,
		PaymentDetails: map[string]any{
			"merchant_ref":      n.MerchantRef,
			"gateway_fee_cents": n.FeeCents,
			"net_cents":         breakdown.NetCents,
		},
	}
	created, err := s.store.Create(ctx, txn)
	if err != nil {
		return false, apperror.Wrap(err, apperror.ErrCodeInternal, "failed to create escrow transaction")
	}
	if !created {
		return false, nil
	}

	s.afterTransition(ctx, txn, nil, models.ActorTypeGateway, events.EventPaymentReceived, "")
	return true, nil
}

// GetTransaction returns a transaction visible to its buyer, its provider
// or an admin.
func (s *EscrowService) GetTransaction(ctx context.Context, actor Actor, id uuid.UUID) (*models.EscrowTransaction, error) {
	txn, err := s.store.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperror.New(apperror.ErrCodeNotFound, "transaction not found")
		}
		return nil, apperror.Wrap(err, apperror.ErrCodeInternal, "failed to load transaction")
	}
	if actor.Role != rbac.RoleAdmin && actor.ID != txn.BuyerID && actor.ID != txn.ProviderID {
		return nil, apperror.New(apperror.ErrCodeForbidden, "not allowed to view this transaction")
	}
	return txn, nil
}

// GetTransactionEvents returns the audit trail; admin only.
func (s *EscrowService) GetTransactionEvents(ctx context.Context, actor Actor, id uuid.UUID) ([]models.AuditLog, error) {
	if actor.Role != rbac.RoleAdmin {
		return nil, apperror.New(apperror.ErrCodeForbidden, "admin access required")
	}
	return s.audit.GetByEntity(ctx, "escrow_transaction", id.String(), 100, 0)
}

// --- helpers ---

func (s *EscrowService) getForMutation(ctx context.Context, actor Actor, id uuid.UUID, perm string) (*models.EscrowTransaction, error) {
	txn, err := s.store.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperror.New(apperror.ErrCodeNotFound, "transaction not found")
		}
		return nil, apperror.Wrap(err, apperror.ErrCodeInternal, "failed to load transaction")
	}
	if !rbac.HasPermission(actor.Role, perm) || !rbac.CanMutateTransaction(actor.Role, actor.ID, txn.BuyerID) {
		return nil, apperror.New(apperror.ErrCodeForbidden, "not allowed to modify this transaction")
	}
	return txn, nil
}

// resolveLostRace re-reads after a guarded update matched no row. A
// concurrent caller reaching the same terminal state first makes this a
// no-op; anything else is an invalid transition.
func (s *EscrowService) resolveLostRace(ctx context.Context, id uuid.UUID, wantStatus, op string) (*models.EscrowTransaction, error) {
	txn, err := s.store.GetByID(ctx, id)
	if err != nil {
		return nil, apperror.Wrap(err, apperror.ErrCodeInternal, "failed to load transaction")
	}
	if txn.Status == wantStatus {
		return txn, nil
	}
	return nil, apperror.Newf(apperror.ErrCodeInvalidState,
		"cannot %s transaction in status %q", op, txn.Status)
}

func (s *EscrowService) recordPayment(ctx context.Context, p *models.Payment) {
	if _, err := s.payments.Insert(ctx, p); err != nil {
		// Bookkeeping failure must not break the payment path; surface it
		// for reconciliation instead.
		s.log.Error("failed to record payment audit row",
			zap.String("external_ref", p.ExternalRef),
			zap.Error(err),
		)
	}
}

func (s *EscrowService) afterTransition(ctx context.Context, txn *models.EscrowTransaction, actorID *string, actorType, eventType, reason string) {
	entityID := txn.ID.String()
	meta := map[string]any{"status": txn.Status, "escrow_id": txn.EscrowID}
	if reason != "" {
		meta["reason"] = reason
	}
	s.auditLog(ctx, actorID, actorType, eventType, "escrow_transaction", &entityID, meta)

	if err := s.publisher.Publish(ctx, events.StreamEscrow, events.Event{
		Type: eventType,
		Payload: map[string]any{
			"transaction_id": txn.ID.String(),
			"status":         txn.Status,
			"buyer_id":       txn.BuyerID,
			"provider_id":    txn.ProviderID,
			"amount_cents":   txn.AmountCents,
			"currency":       txn.Currency,
		},
	}); err != nil {
		s.log.Warn("failed to publish escrow event", zap.String("type", eventType), zap.Error(err))
	}

	if s.notifier != nil {
		data := map[string]any{
			"transaction_id": txn.ID.String(),
			"amount":         commission.FormatAmount(txn.AmountCents),
			"currency":       txn.Currency,
			"status":         txn.Status,
		}
		s.notifier.Send(ctx, txn.BuyerID, eventType, data)
		s.notifier.Send(ctx, txn.ProviderID, eventType, data)
	}
}

func (s *EscrowService) auditLog(ctx context.Context, actorID *string, actorType, action, entityType string, entityID *string, meta map[string]any) {
	if err := s.audit.Log(ctx, models.AuditLog{
		ActorID:    actorID,
		ActorType:  actorType,
		Action:     action,
		EntityType: entityType,
		EntityID:   entityID,
		Meta:       meta,
	}); err != nil {
		s.log.Warn("failed to write audit log", zap.String("action", action), zap.Error(err))
	}
}

func ptr(s string) *string { return &s }
