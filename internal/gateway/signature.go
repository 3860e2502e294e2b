package gateway

import (
	"crypto/hmac"
	"crypto/md5"
	"crypto/sha512"
	"crypto/subtle"
	"encoding/hex"
	"net/url"
	"sort"
	"strings"

	"github.com/Mokete-tech/spaan-backend/internal/apperror"
)

// SignParams implements the gateway's documented ITN signing scheme:
// drop the signature field and empty values, sort the remaining keys
// lexicographically, join as key=urlencode(value) pairs, append the
// passphrase when one is configured, MD5 the result. MD5 is weak by
// modern standards but the other side of the protocol is fixed; this
// must stay wire compatible.
func SignParams(params map[string]string, passphrase string) string {
	keys := make([]string, 0, len(params))
	for k, v := range params {
		if k == "signature" || v == "" {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	for i, k := range keys {
		if i > 0 {
			b.WriteByte('&')
		}
		b.WriteString(k)
		b.WriteByte('=')
		b.WriteString(url.QueryEscape(params[k]))
	}
	if passphrase != "" {
		b.WriteString("&passphrase=")
		b.WriteString(url.QueryEscape(passphrase))
	}

	sum := md5.Sum([]byte(b.String()))
	return hex.EncodeToString(sum[:])
}

// VerifySignature checks an inbound notification's signature field against
// the recomputed digest. Fixed-length comparison, no early exit.
func VerifySignature(params map[string]string, passphrase string) error {
	supplied, ok := params["signature"]
	if !ok || supplied == "" {
		return apperror.New(apperror.ErrCodeSignature, "notification signature missing")
	}

	expected := SignParams(params, passphrase)
	if subtle.ConstantTimeCompare([]byte(strings.ToLower(supplied)), []byte(expected)) != 1 {
		return apperror.New(apperror.ErrCodeSignature, "notification signature mismatch")
	}
	return nil
}

// SignEventBody is the regional processor's webhook scheme: HMAC-SHA512
// of the raw request body keyed with the account secret, hex encoded.
func SignEventBody(body []byte, secret string) string {
	mac := hmac.New(sha512.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

// VerifyEventSignature checks the signature header of an inbound event
// against the recomputed body digest.
func VerifyEventSignature(body []byte, supplied, secret string) error {
	if supplied == "" {
		return apperror.New(apperror.ErrCodeSignature, "event signature missing")
	}
	expected := SignEventBody(body, secret)
	if subtle.ConstantTimeCompare([]byte(strings.ToLower(supplied)), []byte(expected)) != 1 {
		return apperror.New(apperror.ErrCodeSignature, "event signature mismatch")
	}
	return nil
}
