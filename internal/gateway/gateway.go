// Package gateway adapts external payment processors behind one interface.
// Adapters are stateless: all credentials and endpoints come in through
// their config structs, never from globals.
package gateway

import (
	"context"
	"errors"
	"strings"

	"github.com/Mokete-tech/spaan-backend/internal/apperror"
)

// Payment method tags
const (
	MethodPayFast  = "payfast"
	MethodStripe   = "stripe"
	MethodPaystack = "paystack"
)

// ErrManualRefund is returned by adapters without a programmatic refund
// API. The ledger's local refund record is authoritative in that case.
var ErrManualRefund = errors.New("gateway has no programmatic refund, manual reversal required")

type ChargeRequest struct {
	// MerchantRef is our correlation id, echoed back by the gateway.
	MerchantRef string
	AmountCents int64
	Currency    string
	Description string
	BuyerEmail  string

	// Correlation fields threaded through the gateway round-trip.
	ServiceID  string
	BuyerID    string
	ProviderID string
}

type ChargeResult struct {
	// TransactionID is the gateway's reference for this charge. For
	// hosted-redirect flows it is assigned later and arrives via webhook.
	TransactionID string
	// RedirectURL is set for hosted checkout flows; the charge outcome
	// then arrives asynchronously.
	RedirectURL string
	// ClientSecret is set by direct-API card flows for client-side confirm.
	ClientSecret string
	Raw          map[string]any
}

type RefundRequest struct {
	TransactionID string
	AmountCents   int64
	Currency      string
	Reason        string
}

type RefundResult struct {
	RefundID string
	Raw      map[string]any
}

type Adapter interface {
	Name() string
	Charge(ctx context.Context, req ChargeRequest) (*ChargeResult, error)
	Refund(ctx context.Context, req RefundRequest) (*RefundResult, error)
}

// Registry picks the adapter for a charge. Non-primary currencies are
// routed to the regional processor regardless of the requested method.
type Registry struct {
	adapters        map[string]Adapter
	regional        Adapter
	primaryCurrency string
}

func NewRegistry(primaryCurrency string, regional Adapter, adapters ...Adapter) *Registry {
	byName := make(map[string]Adapter, len(adapters)+1)
	for _, a := range adapters {
		byName[a.Name()] = a
	}
	if regional != nil {
		byName[regional.Name()] = regional
	}
	return &Registry{
		adapters:        byName,
		regional:        regional,
		primaryCurrency: strings.ToUpper(primaryCurrency),
	}
}

func (r *Registry) ByMethod(method, currency string) (Adapter, error) {
	if r.regional != nil && strings.ToUpper(currency) != r.primaryCurrency {
		return r.regional, nil
	}
	a, ok := r.adapters[method]
	if !ok {
		return nil, apperror.Newf(apperror.ErrCodeValidation, "unknown payment method %q", method)
	}
	return a, nil
}
