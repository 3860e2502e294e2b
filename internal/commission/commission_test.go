package commission

import "testing"

func TestCompute(t *testing.T) {
	tests := []struct {
		name       string
		gross      int64
		fee        int64
		rateBPS    int
		wantNet    int64
		wantComm   int64
		wantPayout int64
	}{
		{"typical charge", 10000, 290, 700, 9710, 679, 9031},
		{"round amount no fee", 10000, 0, 700, 10000, 700, 9300},
		{"one cent", 1, 0, 700, 1, 0, 1},
		{"commission rounds down", 1001, 0, 700, 1001, 70, 931},
		{"zero rate", 10000, 290, 0, 9710, 0, 9710},
		{"full rate", 10000, 0, 10000, 10000, 10000, 0},
		{"fee exceeds gross clamps net", 100, 250, 700, 0, 0, 0},
		{"zero gross", 0, 0, 700, 0, 0, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b, err := Compute(tt.gross, tt.fee, tt.rateBPS)
			if err != nil {
				t.Fatalf("Compute(%d, %d, %d) error: %v", tt.gross, tt.fee, tt.rateBPS, err)
			}
			if b.NetCents != tt.wantNet {
				t.Errorf("net = %d, want %d", b.NetCents, tt.wantNet)
			}
			if b.CommissionCents != tt.wantComm {
				t.Errorf("commission = %d, want %d", b.CommissionCents, tt.wantComm)
			}
			if b.PayoutCents != tt.wantPayout {
				t.Errorf("payout = %d, want %d", b.PayoutCents, tt.wantPayout)
			}
		})
	}
}

func TestComputeSplitIsExact(t *testing.T) {
	// Commission plus payout must reconstruct net with no drift,
	// whatever the amounts.
	amounts := []int64{1, 99, 100, 101, 9999, 12345, 1000000, 999999999}
	fees := []int64{0, 1, 29, 290, 3333}
	rates := []int{0, 1, 250, 700, 1500, 9999, 10000}

	for _, gross := range amounts {
		for _, fee := range fees {
			for _, rate := range rates {
				b, err := Compute(gross, fee, rate)
				if err != nil {
					t.Fatalf("Compute(%d, %d, %d) error: %v", gross, fee, rate, err)
				}
				if b.CommissionCents+b.PayoutCents != b.NetCents {
					t.Errorf("Compute(%d, %d, %d): commission %d + payout %d != net %d",
						gross, fee, rate, b.CommissionCents, b.PayoutCents, b.NetCents)
				}
				if b.CommissionCents < 0 || b.PayoutCents < 0 || b.NetCents < 0 {
					t.Errorf("Compute(%d, %d, %d): negative component in %+v", gross, fee, rate, b)
				}
			}
		}
	}
}

func TestComputeRejectsInvalidInput(t *testing.T) {
	if _, err := Compute(-1, 0, 700); err == nil {
		t.Error("negative gross should be rejected")
	}
	if _, err := Compute(100, -1, 700); err == nil {
		t.Error("negative fee should be rejected")
	}
	if _, err := Compute(100, 0, -1); err == nil {
		t.Error("negative rate should be rejected")
	}
	if _, err := Compute(100, 0, 10001); err == nil {
		t.Error("rate above 10000 bps should be rejected")
	}
}

func TestParseAmount(t *testing.T) {
	tests := []struct {
		in      string
		want    int64
		wantErr bool
	}{
		{"123.45", 12345, false},
		{"0.01", 1, false},
		{"100", 10000, false},
		{"100.5", 10050, false},
		{"0.00", 0, false},
		{" 250.00 ", 25000, false},
		{"", 0, true},
		{"-5.00", 0, true},
		{"1.234", 0, true},
		{"abc", 0, true},
		{"1.x2", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseAmount(tt.in)
			if tt.wantErr {
				if err == nil {
					t.Errorf("ParseAmount(%q) = %d, want error", tt.in, got)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseAmount(%q) error: %v", tt.in, err)
			}
			if got != tt.want {
				t.Errorf("ParseAmount(%q) = %d, want %d", tt.in, got, tt.want)
			}
		})
	}
}

func TestFormatAmount(t *testing.T) {
	tests := []struct {
		in   int64
		want string
	}{
		{12345, "123.45"},
		{1, "0.01"},
		{10000, "100.00"},
		{0, "0.00"},
		{-12345, "-123.45"},
	}

	for _, tt := range tests {
		if got := FormatAmount(tt.in); got != tt.want {
			t.Errorf("FormatAmount(%d) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
