package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/Mokete-tech/spaan-backend/internal/apperror"
	"go.uber.org/zap"
)

type PaystackConfig struct {
	SecretKey string
	BaseURL   string
	Timeout   time.Duration
}

// Paystack handles charges in currencies the primary gateway does not
// support. Initialize returns a hosted authorization URL; completion
// arrives through its webhook like the primary redirect flow.
type Paystack struct {
	cfg        PaystackConfig
	httpClient *http.Client
	log        *zap.Logger
}

func NewPaystack(cfg PaystackConfig, log *zap.Logger) *Paystack {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.paystack.co"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 20 * time.Second
	}
	return &Paystack{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		log:        log,
	}
}

func (p *Paystack) Name() string { return MethodPaystack }

func (p *Paystack) Charge(ctx context.Context, req ChargeRequest) (*ChargeResult, error) {
	payload := map[string]any{
		"email":     req.BuyerEmail,
		"amount":    req.AmountCents,
		"currency":  strings.ToUpper(req.Currency),
		"reference": req.MerchantRef,
		"metadata": map[string]any{
			"service_id":  req.ServiceID,
			"buyer_id":    req.BuyerID,
			"provider_id": req.ProviderID,
		},
	}

	body, err := p.post(ctx, "/transaction/initialize", payload)
	if err != nil {
		return nil, err
	}

	data, _ := body["data"].(map[string]any)
	authURL, _ := data["authorization_url"].(string)
	reference, _ := data["reference"].(string)
	if authURL == "" {
		return nil, apperror.New(apperror.ErrCodeGateway, "payment processor returned no checkout url")
	}

	return &ChargeResult{
		TransactionID: reference,
		RedirectURL:   authURL,
		Raw:           body,
	}, nil
}

func (p *Paystack) Refund(ctx context.Context, req RefundRequest) (*RefundResult, error) {
	payload := map[string]any{
		"transaction":   req.TransactionID,
		"merchant_note": req.Reason,
	}

	body, err := p.post(ctx, "/refund", payload)
	if err != nil {
		return nil, err
	}

	data, _ := body["data"].(map[string]any)
	refundID := ""
	if id, ok := data["id"].(float64); ok {
		refundID = fmt.Sprintf("%.0f", id)
	}
	return &RefundResult{RefundID: refundID, Raw: body}, nil
}

func (p *Paystack) post(ctx context.Context, path string, payload map[string]any) (map[string]any, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, apperror.Wrap(err, apperror.ErrCodeInternal, "failed to build processor request")
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.cfg.BaseURL+path, bytes.NewReader(raw))
	if err != nil {
		return nil, apperror.Wrap(err, apperror.ErrCodeInternal, "failed to build processor request")
	}
	httpReq.Header.Set("Authorization", "Bearer "+p.cfg.SecretKey)
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := p.httpClient.Do(httpReq)
	if err != nil {
		return nil, apperror.Wrap(err, apperror.ErrCodeGateway, "payment processor unavailable")
	}
	defer resp.Body.Close()

	respBytes, _ := io.ReadAll(resp.Body)
	var body map[string]any
	if err := json.Unmarshal(respBytes, &body); err != nil {
		return nil, apperror.Wrap(err, apperror.ErrCodeGateway, "payment processor returned malformed response")
	}

	if resp.StatusCode >= 400 {
		msg, _ := body["message"].(string)
		p.log.Error("paystack request failed",
			zap.Int("status", resp.StatusCode),
			zap.String("message", msg),
		)
		return nil, apperror.New(apperror.ErrCodeGateway, "payment could not be processed")
	}
	return body, nil
}
