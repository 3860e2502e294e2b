package handlers

import (
	"encoding/json"
	"net/url"
	"strings"

	"github.com/Mokete-tech/spaan-backend/internal/commission"
	"github.com/Mokete-tech/spaan-backend/internal/config"
	"github.com/Mokete-tech/spaan-backend/internal/gateway"
	"github.com/Mokete-tech/spaan-backend/internal/services"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// PayFast ITN payment_status values that mean the charge completed.
const itnStatusComplete = "COMPLETE"

// WebhookHandler ingests asynchronous payment notifications. It always
// acknowledges with 200 once past signature verification, even when
// bookkeeping fails, so the gateway does not retry into a broken
// handler; failures are logged for reconciliation instead.
type WebhookHandler struct {
	escrowService *services.EscrowService
	cfg           *config.Config
	log           *zap.Logger
}

func NewWebhookHandler(escrowService *services.EscrowService, cfg *config.Config, log *zap.Logger) *WebhookHandler {
	return &WebhookHandler{escrowService: escrowService, cfg: cfg, log: log}
}

func (h *WebhookHandler) PayFastITN(c *fiber.Ctx) error {
	if c.Method() != fiber.MethodPost {
		return c.Status(fiber.StatusMethodNotAllowed).SendString("method not allowed")
	}

	values, err := url.ParseQuery(string(c.Body()))
	if err != nil {
		h.log.Error("malformed ITN payload", zap.Error(err))
		return c.JSON(fiber.Map{"ok": false})
	}
	params := make(map[string]string, len(values))
	for k := range values {
		params[k] = values.Get(k)
	}

	if _, ok := params["signature"]; ok {
		if err := gateway.VerifySignature(params, h.cfg.PayFastPassphrase); err != nil {
			h.log.Warn("ITN signature rejected",
				zap.String("pf_payment_id", params["pf_payment_id"]),
				zap.String("m_payment_id", params["m_payment_id"]),
				zap.Error(err),
			)
			return c.Status(fiber.StatusBadRequest).SendString("invalid signature")
		}
	}

	status := strings.ToUpper(params["payment_status"])
	if status != itnStatusComplete {
		// Partial and pending notifications are acknowledged, not errors.
		h.log.Info("ignoring non-complete ITN",
			zap.String("payment_status", status),
			zap.String("pf_payment_id", params["pf_payment_id"]),
		)
		return c.SendString("OK")
	}

	n, err := mapITN(params)
	if err != nil {
		h.log.Error("unprocessable ITN, acknowledging to stop redelivery",
			zap.String("pf_payment_id", params["pf_payment_id"]),
			zap.Error(err),
		)
		return c.JSON(fiber.Map{"ok": false})
	}

	created, err := h.escrowService.ConfirmPayment(c.Context(), n)
	if err != nil {
		h.log.Error("ITN bookkeeping failed, acknowledging to stop redelivery",
			zap.String("pf_payment_id", n.ExternalRef),
			zap.Error(err),
		)
		return c.JSON(fiber.Map{"ok": false})
	}
	if !created {
		h.log.Info("duplicate ITN collapsed", zap.String("pf_payment_id", n.ExternalRef))
	}

	return c.SendString("OK")
}

// paystackEvent is the envelope the regional processor posts. Amounts
// arrive in minor units already; the metadata block echoes back the
// correlation ids sent at initialize time.
type paystackEvent struct {
	Event string `json:"event"`
	Data  struct {
		Reference string `json:"reference"`
		Amount    int64  `json:"amount"`
		Fees      int64  `json:"fees"`
		Currency  string `json:"currency"`
		Metadata  struct {
			ServiceID  string `json:"service_id"`
			BuyerID    string `json:"buyer_id"`
			ProviderID string `json:"provider_id"`
		} `json:"metadata"`
	} `json:"data"`
}

const paystackEventChargeSuccess = "charge.success"

func (h *WebhookHandler) PaystackEvent(c *fiber.Ctx) error {
	if c.Method() != fiber.MethodPost {
		return c.Status(fiber.StatusMethodNotAllowed).SendString("method not allowed")
	}

	body := c.Body()
	if err := gateway.VerifyEventSignature(body, c.Get("x-paystack-signature"), h.cfg.PaystackSecretKey); err != nil {
		h.log.Warn("paystack event signature rejected", zap.Error(err))
		return c.Status(fiber.StatusBadRequest).SendString("invalid signature")
	}

	var ev paystackEvent
	if err := json.Unmarshal(body, &ev); err != nil {
		h.log.Error("malformed paystack event payload", zap.Error(err))
		return c.JSON(fiber.Map{"ok": false})
	}

	if ev.Event != paystackEventChargeSuccess {
		h.log.Info("ignoring paystack event", zap.String("event", ev.Event))
		return c.SendString("OK")
	}
	if ev.Data.Reference == "" {
		h.log.Error("paystack event without reference, acknowledging to stop redelivery")
		return c.JSON(fiber.Map{"ok": false})
	}

	var raw map[string]any
	_ = json.Unmarshal(body, &raw)

	n := services.PaymentNotification{
		ExternalRef: ev.Data.Reference,
		MerchantRef: ev.Data.Reference,
		Method:      gateway.MethodPaystack,
		Currency:    strings.ToUpper(ev.Data.Currency),
		GrossCents:  ev.Data.Amount,
		FeeCents:    ev.Data.Fees,
		ServiceID:   ev.Data.Metadata.ServiceID,
		BuyerID:     ev.Data.Metadata.BuyerID,
		ProviderID:  ev.Data.Metadata.ProviderID,
		Raw:         raw,
	}

	created, err := h.escrowService.ConfirmPayment(c.Context(), n)
	if err != nil {
		h.log.Error("paystack event bookkeeping failed, acknowledging to stop redelivery",
			zap.String("reference", n.ExternalRef),
			zap.Error(err),
		)
		return c.JSON(fiber.Map{"ok": false})
	}
	if !created {
		h.log.Info("duplicate paystack event collapsed", zap.String("reference", n.ExternalRef))
	}

	return c.SendString("OK")
}

// mapITN translates gateway field names into the normalized notification
// shape. The three custom fields carry our correlation ids through the
// gateway round-trip.
func mapITN(params map[string]string) (services.PaymentNotification, error) {
	n := services.PaymentNotification{
		ExternalRef: params["pf_payment_id"],
		MerchantRef: params["m_payment_id"],
		Method:      gateway.MethodPayFast,
		Currency:    "ZAR",
		ServiceID:   params["custom_str1"],
		BuyerID:     params["custom_str2"],
		ProviderID:  params["custom_str3"],
	}
	if n.ExternalRef == "" {
		return n, fiber.NewError(fiber.StatusBadRequest, "missing pf_payment_id")
	}

	gross, err := commission.ParseAmount(params["amount_gross"])
	if err != nil {
		return n, err
	}
	n.GrossCents = gross

	// The gateway reports its fee as a negative adjustment; we keep the
	// magnitude. Defaults to 0 when absent or unparseable.
	feeStr := strings.TrimPrefix(params["amount_fee"], "-")
	if fee, err := commission.ParseAmount(feeStr); err == nil {
		n.FeeCents = fee
	}

	raw := make(map[string]any, len(params))
	for k, v := range params {
		if k == "signature" {
			continue
		}
		raw[k] = v
	}
	n.Raw = raw

	return n, nil
}
