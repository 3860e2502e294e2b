package gateway

import (
	"context"
	"fmt"
	"net/url"
	"sort"
	"strings"

	"github.com/Mokete-tech/spaan-backend/internal/commission"
	"go.uber.org/zap"
)

const (
	payfastLiveURL    = "https://www.payfast.co.za/eng/process"
	payfastSandboxURL = "https://sandbox.payfast.co.za/eng/process"
)

type PayFastConfig struct {
	MerchantID  string
	MerchantKey string
	Passphrase  string
	Sandbox     bool
	ReturnURL   string
	CancelURL   string
	NotifyURL   string
}

// PayFast is the hosted-redirect EFT/card gateway for ZAR payments.
// Charge builds a signed checkout URL; the outcome arrives later through
// the ITN webhook, so no transaction id is known at charge time.
type PayFast struct {
	cfg PayFastConfig
	log *zap.Logger
}

func NewPayFast(cfg PayFastConfig, log *zap.Logger) *PayFast {
	return &PayFast{cfg: cfg, log: log}
}

func (p *PayFast) Name() string { return MethodPayFast }

func (p *PayFast) Charge(_ context.Context, req ChargeRequest) (*ChargeResult, error) {
	params := map[string]string{
		"merchant_id":   p.cfg.MerchantID,
		"merchant_key":  p.cfg.MerchantKey,
		"return_url":    p.cfg.ReturnURL,
		"cancel_url":    p.cfg.CancelURL,
		"notify_url":    p.cfg.NotifyURL,
		"m_payment_id":  req.MerchantRef,
		"amount":        commission.FormatAmount(req.AmountCents),
		"item_name":     req.Description,
		"email_address": req.BuyerEmail,
		"custom_str1":   req.ServiceID,
		"custom_str2":   req.BuyerID,
		"custom_str3":   req.ProviderID,
	}
	params["signature"] = SignParams(params, p.cfg.Passphrase)

	endpoint := payfastLiveURL
	if p.cfg.Sandbox {
		endpoint = payfastSandboxURL
	}

	p.log.Info("built payfast checkout url",
		zap.String("merchant_ref", req.MerchantRef),
		zap.String("amount", params["amount"]),
		zap.Bool("sandbox", p.cfg.Sandbox),
	)

	return &ChargeResult{
		RedirectURL: endpoint + "?" + encodeQuery(params),
		Raw:         map[string]any{"m_payment_id": req.MerchantRef},
	}, nil
}

// Refund: the gateway exposes no refund API for this integration tier.
// Reversal happens out-of-band; the ledger records it locally.
func (p *PayFast) Refund(_ context.Context, req RefundRequest) (*RefundResult, error) {
	p.log.Warn("payfast refund requested, manual reversal required",
		zap.String("transaction_id", req.TransactionID),
		zap.String("reason", req.Reason),
	)
	return nil, ErrManualRefund
}

// encodeQuery renders params in sorted key order so the query string
// matches the order used when signing.
func encodeQuery(params map[string]string) string {
	keys := make([]string, 0, len(params))
	for k, v := range params {
		if v == "" {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s=%s", k, url.QueryEscape(params[k])))
	}
	return strings.Join(parts, "&")
}
