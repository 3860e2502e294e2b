package gateway

import (
	"crypto/md5"
	"encoding/hex"
	"strings"
	"testing"

	"github.com/Mokete-tech/spaan-backend/internal/apperror"
)

func itnParams() map[string]string {
	return map[string]string{
		"m_payment_id":   "a3f1c8e2-7b4d-4f2a-9c1e-000000000001",
		"pf_payment_id":  "1089250",
		"payment_status": "COMPLETE",
		"item_name":      "Plumbing callout",
		"amount_gross":   "250.00",
		"amount_fee":     "-5.75",
		"amount_net":     "244.25",
		"custom_str1":    "svc-42",
		"custom_str2":    "buyer-7",
		"custom_str3":    "provider-9",
		"merchant_id":    "10000100",
	}
}

func TestSignParamsCanonicalization(t *testing.T) {
	params := map[string]string{
		"b_key": "two words",
		"a_key": "first",
		"empty": "",
		// A stale signature in the input must not feed the digest.
		"signature": "deadbeefdeadbeefdeadbeefdeadbeef",
	}

	// Keys sorted, empty values and signature dropped, values escaped.
	base := "a_key=first&b_key=two+words"
	sum := md5.Sum([]byte(base))
	want := hex.EncodeToString(sum[:])

	if got := SignParams(params, ""); got != want {
		t.Errorf("SignParams = %s, want %s", got, want)
	}
}

func TestSignParamsPassphrase(t *testing.T) {
	params := map[string]string{"amount_gross": "100.00"}

	withPass := SignParams(params, "s3cret phrase")
	withoutPass := SignParams(params, "")
	if withPass == withoutPass {
		t.Error("passphrase must change the signature")
	}

	base := "amount_gross=100.00&passphrase=s3cret+phrase"
	sum := md5.Sum([]byte(base))
	if want := hex.EncodeToString(sum[:]); withPass != want {
		t.Errorf("SignParams with passphrase = %s, want %s", withPass, want)
	}
}

func TestVerifySignature(t *testing.T) {
	passphrase := "jt7NOE43FZPn"

	params := itnParams()
	params["signature"] = SignParams(params, passphrase)

	if err := VerifySignature(params, passphrase); err != nil {
		t.Fatalf("valid signature rejected: %v", err)
	}

	// Uppercase hex from the sender must still verify.
	params["signature"] = strings.ToUpper(params["signature"])
	if err := VerifySignature(params, passphrase); err != nil {
		t.Fatalf("uppercase signature rejected: %v", err)
	}
}

func TestVerifySignatureRejectsTampering(t *testing.T) {
	passphrase := "jt7NOE43FZPn"

	params := itnParams()
	params["signature"] = SignParams(params, passphrase)
	params["amount_gross"] = "9999.00"

	err := VerifySignature(params, passphrase)
	if err == nil {
		t.Fatal("tampered payload must be rejected")
	}
	if !apperror.Is(err, apperror.ErrCodeSignature) {
		t.Errorf("expected signature error code, got %v", apperror.CodeOf(err))
	}
}

func TestVerifySignatureRejectsWrongPassphrase(t *testing.T) {
	params := itnParams()
	params["signature"] = SignParams(params, "correct")

	if err := VerifySignature(params, "wrong"); err == nil {
		t.Fatal("signature made with a different passphrase must be rejected")
	}
}

func TestVerifyEventSignature(t *testing.T) {
	secret := "sk_test_0123456789"
	body := []byte(`{"event":"charge.success","data":{"reference":"ps-ref-001","amount":5000}}`)

	sig := SignEventBody(body, secret)
	if err := VerifyEventSignature(body, sig, secret); err != nil {
		t.Fatalf("valid event signature rejected: %v", err)
	}
	if err := VerifyEventSignature(body, strings.ToUpper(sig), secret); err != nil {
		t.Fatalf("uppercase event signature rejected: %v", err)
	}

	tampered := []byte(`{"event":"charge.success","data":{"reference":"ps-ref-001","amount":999900}}`)
	if err := VerifyEventSignature(tampered, sig, secret); err == nil {
		t.Fatal("tampered event body must be rejected")
	}
	if err := VerifyEventSignature(body, sig, "wrong-secret"); err == nil {
		t.Fatal("signature keyed with a different secret must be rejected")
	}

	err := VerifyEventSignature(body, "", secret)
	if !apperror.Is(err, apperror.ErrCodeSignature) {
		t.Errorf("missing signature: error = %v, want signature code", err)
	}
}

func TestVerifySignatureMissing(t *testing.T) {
	params := itnParams()
	err := VerifySignature(params, "anything")
	if err == nil {
		t.Fatal("missing signature must be rejected")
	}
	if !apperror.Is(err, apperror.ErrCodeSignature) {
		t.Errorf("expected signature error code, got %v", apperror.CodeOf(err))
	}
}
