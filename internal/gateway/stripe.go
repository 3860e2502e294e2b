package gateway

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/Mokete-tech/spaan-backend/internal/apperror"
	"go.uber.org/zap"
)

type StripeConfig struct {
	SecretKey string
	// BaseURL overrides the live endpoint, used by tests.
	BaseURL string
	Timeout time.Duration
}

// Stripe is the direct-API card processor. Charge creates a payment
// intent server-side and returns the client secret for confirmation.
type Stripe struct {
	cfg        StripeConfig
	httpClient *http.Client
	log        *zap.Logger
}

func NewStripe(cfg StripeConfig, log *zap.Logger) *Stripe {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.stripe.com"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 20 * time.Second
	}
	return &Stripe{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		log:        log,
	}
}

func (s *Stripe) Name() string { return MethodStripe }

func (s *Stripe) Charge(ctx context.Context, req ChargeRequest) (*ChargeResult, error) {
	form := url.Values{}
	form.Set("amount", strconv.FormatInt(req.AmountCents, 10))
	form.Set("currency", strings.ToLower(req.Currency))
	form.Set("description", req.Description)
	form.Set("metadata[merchant_ref]", req.MerchantRef)
	form.Set("metadata[service_id]", req.ServiceID)
	form.Set("metadata[buyer_id]", req.BuyerID)
	form.Set("metadata[provider_id]", req.ProviderID)

	body, err := s.post(ctx, "/v1/payment_intents", form)
	if err != nil {
		return nil, err
	}

	id, _ := body["id"].(string)
	secret, _ := body["client_secret"].(string)
	if id == "" {
		return nil, apperror.New(apperror.ErrCodeGateway, "payment processor returned no transaction id")
	}

	return &ChargeResult{
		TransactionID: id,
		ClientSecret:  secret,
		Raw:           body,
	}, nil
}

func (s *Stripe) Refund(ctx context.Context, req RefundRequest) (*RefundResult, error) {
	form := url.Values{}
	form.Set("payment_intent", req.TransactionID)
	if req.AmountCents > 0 {
		form.Set("amount", strconv.FormatInt(req.AmountCents, 10))
	}
	form.Set("metadata[reason]", req.Reason)

	body, err := s.post(ctx, "/v1/refunds", form)
	if err != nil {
		return nil, err
	}

	id, _ := body["id"].(string)
	return &RefundResult{RefundID: id, Raw: body}, nil
}

func (s *Stripe) post(ctx context.Context, path string, form url.Values) (map[string]any, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, s.cfg.BaseURL+path, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, apperror.Wrap(err, apperror.ErrCodeInternal, "failed to build processor request")
	}
	httpReq.Header.Set("Authorization", "Bearer "+s.cfg.SecretKey)
	httpReq.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := s.httpClient.Do(httpReq)
	if err != nil {
		return nil, apperror.Wrap(err, apperror.ErrCodeGateway, "payment processor unavailable")
	}
	defer resp.Body.Close()

	raw, _ := io.ReadAll(resp.Body)
	var body map[string]any
	if err := json.Unmarshal(raw, &body); err != nil {
		return nil, apperror.Wrap(err, apperror.ErrCodeGateway, "payment processor returned malformed response")
	}

	if resp.StatusCode >= 400 {
		return nil, s.normalizeError(resp.StatusCode, body)
	}
	return body, nil
}

// normalizeError separates card declines, which the buyer can fix, from
// integration errors, which get a generic message with full detail logged.
func (s *Stripe) normalizeError(status int, body map[string]any) error {
	errObj, _ := body["error"].(map[string]any)
	errType, _ := errObj["type"].(string)
	errMsg, _ := errObj["message"].(string)

	s.log.Error("stripe request failed",
		zap.Int("status", status),
		zap.String("error_type", errType),
		zap.String("error_message", errMsg),
	)

	if errType == "card_error" && errMsg != "" {
		return apperror.New(apperror.ErrCodeGateway, errMsg)
	}
	return apperror.New(apperror.ErrCodeGateway, "payment could not be processed")
}
