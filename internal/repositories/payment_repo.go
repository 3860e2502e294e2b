package repositories

import (
	"context"
	"encoding/json"

	"github.com/Mokete-tech/spaan-backend/internal/models"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const paymentColumns = `id, external_ref, merchant_ref, method, status, currency,
	       gross_cents, fee_cents, net_cents, commission_cents, payout_cents, raw, created_at`

// PaymentRepo stores the append-only audit trail of gateway responses.
type PaymentRepo struct {
	pool *pgxpool.Pool
}

func NewPaymentRepo(pool *pgxpool.Pool) *PaymentRepo {
	return &PaymentRepo{pool: pool}
}

// Insert records a payment once per gateway reference. Duplicate webhook
// deliveries conflict on external_ref and report created=false.
func (r *PaymentRepo) Insert(ctx context.Context, p *models.Payment) (bool, error) {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	raw, err := json.Marshal(orEmpty(p.Raw))
	if err != nil {
		return false, err
	}

	err = r.pool.QueryRow(ctx, `
		INSERT INTO payments (id, external_ref, merchant_ref, method, status, currency,
		                      gross_cents, fee_cents, net_cents, commission_cents, payout_cents, raw)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		ON CONFLICT (external_ref) DO NOTHING
		RETURNING created_at
	`, p.ID, p.ExternalRef, p.MerchantRef, p.Method, p.Status, p.Currency,
		p.GrossCents, p.FeeCents, p.NetCents, p.CommissionCents, p.PayoutCents, raw,
	).Scan(&p.CreatedAt)
	if err == pgx.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (r *PaymentRepo) GetByExternalRef(ctx context.Context, ref string) (*models.Payment, error) {
	var p models.Payment
	var raw []byte
	err := r.pool.QueryRow(ctx, `
		SELECT `+paymentColumns+`
		FROM payments WHERE external_ref = $1
	`, ref).Scan(&p.ID, &p.ExternalRef, &p.MerchantRef, &p.Method, &p.Status, &p.Currency,
		&p.GrossCents, &p.FeeCents, &p.NetCents, &p.CommissionCents, &p.PayoutCents, &raw, &p.CreatedAt)
	if err != nil {
		return nil, err
	}
	_ = json.Unmarshal(raw, &p.Raw)
	return &p, nil
}
