package gateway

import (
	"context"
	"errors"
	"net/url"
	"strings"
	"testing"

	"go.uber.org/zap"
)

func testPayFast() *PayFast {
	return NewPayFast(PayFastConfig{
		MerchantID:  "10000100",
		MerchantKey: "46f0cd694581a",
		Passphrase:  "jt7NOE43FZPn",
		Sandbox:     true,
		ReturnURL:   "https://app.example/pay/return",
		CancelURL:   "https://app.example/pay/cancel",
		NotifyURL:   "https://app.example/webhooks/payfast",
	}, zap.NewNop())
}

func TestPayFastChargeBuildsSignedCheckoutURL(t *testing.T) {
	p := testPayFast()

	res, err := p.Charge(context.Background(), ChargeRequest{
		MerchantRef: "mr-001",
		AmountCents: 25000,
		Currency:    "ZAR",
		Description: "Plumbing callout",
		BuyerEmail:  "buyer@example.com",
		ServiceID:   "svc-42",
		BuyerID:     "buyer-7",
		ProviderID:  "provider-9",
	})
	if err != nil {
		t.Fatalf("Charge: %v", err)
	}
	if res.TransactionID != "" {
		t.Error("hosted redirect flow must not invent a transaction id")
	}
	if !strings.HasPrefix(res.RedirectURL, "https://sandbox.payfast.co.za/") {
		t.Errorf("redirect = %q, want sandbox endpoint", res.RedirectURL)
	}

	u, err := url.Parse(res.RedirectURL)
	if err != nil {
		t.Fatal(err)
	}
	q := u.Query()
	if q.Get("amount") != "250.00" {
		t.Errorf("amount = %q, want 250.00", q.Get("amount"))
	}
	if q.Get("m_payment_id") != "mr-001" {
		t.Errorf("m_payment_id = %q", q.Get("m_payment_id"))
	}
	if q.Get("custom_str2") != "buyer-7" {
		t.Errorf("custom_str2 = %q, correlation ids must ride along", q.Get("custom_str2"))
	}

	// The query must verify under the same scheme the ITN uses.
	params := make(map[string]string, len(q))
	for k := range q {
		params[k] = q.Get(k)
	}
	if err := VerifySignature(params, "jt7NOE43FZPn"); err != nil {
		t.Errorf("checkout query does not verify: %v", err)
	}
}

func TestPayFastRefundIsManual(t *testing.T) {
	p := testPayFast()
	_, err := p.Refund(context.Background(), RefundRequest{TransactionID: "1089250"})
	if !errors.Is(err, ErrManualRefund) {
		t.Errorf("error = %v, want ErrManualRefund", err)
	}
}
