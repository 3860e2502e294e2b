package repositories

import (
	"context"
	"encoding/json"
	"time"

	"github.com/Mokete-tech/spaan-backend/internal/models"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const escrowColumns = `id, service_id, buyer_id, provider_id, amount_cents, currency, status,
	       payment_method, escrow_id, payment_details, abandoned_at, created_at, updated_at`

// EscrowRepo is the only writer of escrow transaction status. Transitions
// are single status-guarded UPDATE statements so concurrent release,
// refund and webhook completion cannot produce lost updates.
type EscrowRepo struct {
	pool *pgxpool.Pool
}

func NewEscrowRepo(pool *pgxpool.Pool) *EscrowRepo {
	return &EscrowRepo{pool: pool}
}

// Create inserts a transaction keyed by the gateway external reference.
// A conflict on escrow_id means the payment was already recorded; the
// insert is skipped and created is false.
func (r *EscrowRepo) Create(ctx context.Context, t *models.EscrowTransaction) (bool, error) {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	details, err := json.Marshal(orEmpty(t.PaymentDetails))
	if err != nil {
		return false, err
	}

	err = r.pool.QueryRow(ctx, `
		INSERT INTO escrow_transactions (id, service_id, buyer_id, provider_id, amount_cents,
		                                 currency, status, payment_method, escrow_id, payment_details)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (escrow_id) DO NOTHING
		RETURNING created_at, updated_at
	`, t.ID, t.ServiceID, t.BuyerID, t.ProviderID, t.AmountCents,
		t.Currency, t.Status, t.PaymentMethod, t.EscrowID, details,
	).Scan(&t.CreatedAt, &t.UpdatedAt)
	if err == pgx.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (r *EscrowRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.EscrowTransaction, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+escrowColumns+`
		FROM escrow_transactions WHERE id = $1
	`, id)
	return scanEscrow(row)
}

func (r *EscrowRepo) GetByExternalRef(ctx context.Context, ref string) (*models.EscrowTransaction, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+escrowColumns+`
		FROM escrow_transactions WHERE escrow_id = $1
	`, ref)
	return scanEscrow(row)
}

// MarkInEscrow confirms a hosted-checkout transaction the webhook
// completed: pending -> in_escrow, appending gateway response fields.
func (r *EscrowRepo) MarkInEscrow(ctx context.Context, id uuid.UUID, details map[string]any) (*models.EscrowTransaction, error) {
	appended, err := json.Marshal(orEmpty(details))
	if err != nil {
		return nil, err
	}
	row := r.pool.QueryRow(ctx, `
		UPDATE escrow_transactions
		SET status = 'in_escrow', updated_at = now(),
		    payment_details = payment_details || $2::jsonb
		WHERE id = $1 AND status = 'pending'
		RETURNING `+escrowColumns+`
	`, id, appended)
	return scanEscrow(row)
}

// MarkReleased performs the in_escrow -> released transition as one
// compare-and-swap. pgx.ErrNoRows means the precondition did not hold;
// the caller re-reads to classify.
func (r *EscrowRepo) MarkReleased(ctx context.Context, id uuid.UUID) (*models.EscrowTransaction, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE escrow_transactions
		SET status = 'released', updated_at = now()
		WHERE id = $1 AND status = 'in_escrow'
		RETURNING `+escrowColumns+`
	`, id)
	return scanEscrow(row)
}

// MarkRefunded transitions in_escrow -> refunded and appends the given
// keys into payment_details. jsonb concatenation only adds or overwrites
// the supplied keys; existing keys are never removed.
func (r *EscrowRepo) MarkRefunded(ctx context.Context, id uuid.UUID, details map[string]any) (*models.EscrowTransaction, error) {
	appended, err := json.Marshal(orEmpty(details))
	if err != nil {
		return nil, err
	}
	row := r.pool.QueryRow(ctx, `
		UPDATE escrow_transactions
		SET status = 'refunded', updated_at = now(),
		    payment_details = payment_details || $2::jsonb
		WHERE id = $1 AND status = 'in_escrow'
		RETURNING `+escrowColumns+`
	`, id, appended)
	return scanEscrow(row)
}

// ListStalePending returns pending transactions older than the cutoff
// that have not yet been flagged by a sweep.
func (r *EscrowRepo) ListStalePending(ctx context.Context, olderThan time.Duration) ([]models.EscrowTransaction, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+escrowColumns+`
		FROM escrow_transactions
		WHERE status = 'pending'
		  AND abandoned_at IS NULL
		  AND created_at < now() - ($1 || ' seconds')::interval
		ORDER BY created_at
	`, int64(olderThan.Seconds()))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var txns []models.EscrowTransaction
	for rows.Next() {
		t, err := scanEscrow(rows)
		if err != nil {
			return nil, err
		}
		txns = append(txns, *t)
	}
	return txns, rows.Err()
}

// MarkAbandoned flags a stale pending transaction so the sweep does not
// report it again. Status stays pending; absence of a webhook is not an
// error state.
func (r *EscrowRepo) MarkAbandoned(ctx context.Context, id uuid.UUID) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE escrow_transactions SET abandoned_at = now()
		WHERE id = $1 AND status = 'pending' AND abandoned_at IS NULL
	`, id)
	return err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEscrow(row rowScanner) (*models.EscrowTransaction, error) {
	var t models.EscrowTransaction
	var details []byte
	err := row.Scan(&t.ID, &t.ServiceID, &t.BuyerID, &t.ProviderID, &t.AmountCents, &t.Currency, &t.Status,
		&t.PaymentMethod, &t.EscrowID, &details, &t.AbandonedAt, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return nil, err
	}
	_ = json.Unmarshal(details, &t.PaymentDetails)
	return &t, nil
}

func orEmpty(m map[string]any) map[string]any {
	if m == nil {
		return map[string]any{}
	}
	return m
}
