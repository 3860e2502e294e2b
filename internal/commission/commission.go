// Package commission computes the platform's settlement breakdown.
// All amounts are integer minor units (cents); the rate is basis points.
// Display and settlement must both use this package; never reimplement
// the formula elsewhere.
package commission

import (
	"fmt"
	"strconv"
	"strings"
)

// Breakdown is the derived settlement split for a single payment.
// Commission + ProviderPayout == NetCents always holds exactly.
type Breakdown struct {
	NetCents        int64 `json:"net_cents"`
	CommissionCents int64 `json:"commission_cents"`
	PayoutCents     int64 `json:"payout_cents"`
}

// Compute derives net, commission and provider payout from a gross charge.
// feeCents is the gateway's processing fee (0 when unknown); rateBPS is the
// platform commission in basis points (700 = 7%). Commission rounds down,
// the remainder goes to the provider.
func Compute(grossCents, feeCents int64, rateBPS int) (Breakdown, error) {
	if grossCents < 0 {
		return Breakdown{}, fmt.Errorf("gross amount must not be negative, got %d", grossCents)
	}
	if feeCents < 0 {
		return Breakdown{}, fmt.Errorf("gateway fee must not be negative, got %d", feeCents)
	}
	if rateBPS < 0 || rateBPS > 10000 {
		return Breakdown{}, fmt.Errorf("commission rate must be within [0, 10000] bps, got %d", rateBPS)
	}

	net := grossCents - feeCents
	if net < 0 {
		net = 0
	}
	comm := net * int64(rateBPS) / 10000

	return Breakdown{
		NetCents:        net,
		CommissionCents: comm,
		PayoutCents:     net - comm,
	}, nil
}

// ParseAmount converts a gateway decimal amount string ("123.45") into
// minor units. Up to two fraction digits; a missing fraction is zero.
func ParseAmount(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("empty amount")
	}
	if strings.HasPrefix(s, "-") {
		return 0, fmt.Errorf("negative amount %q", s)
	}

	whole, frac, _ := strings.Cut(s, ".")
	units, err := strconv.ParseInt(whole, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid amount %q: %w", s, err)
	}

	var cents int64
	switch len(frac) {
	case 0:
	case 1:
		d, err := strconv.ParseInt(frac, 10, 64)
		if err != nil {
			return 0, fmt.Errorf("invalid amount %q: %w", s, err)
		}
		cents = d * 10
	case 2:
		d, err := strconv.ParseInt(frac, 10, 64)
		if err != nil {
			return 0, fmt.Errorf("invalid amount %q: %w", s, err)
		}
		cents = d
	default:
		return 0, fmt.Errorf("invalid amount %q: more than two fraction digits", s)
	}

	return units*100 + cents, nil
}

// FormatAmount renders minor units as a gateway decimal string ("123.45").
func FormatAmount(cents int64) string {
	sign := ""
	if cents < 0 {
		sign = "-"
		cents = -cents
	}
	return fmt.Sprintf("%s%d.%02d", sign, cents/100, cents%100)
}
