package domain

import (
	"errors"
	"testing"
	"time"
)

func TestParseQuoteKind(t *testing.T) {
	k, err := ParseQuoteKind(" Gold ")
	if err != nil || k != KindGold {
		t.Fatalf("expected gold, got %q err=%v", k, err)
	}
	if _, err := ParseQuoteKind("palladium"); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}

func TestIsMetal(t *testing.T) {
	for _, k := range Metals {
		if !k.IsMetal() {
			t.Errorf("%s should be a metal", k)
		}
	}
	if KindUSDTWD.IsMetal() {
		t.Error("exchange rate is not a metal")
	}
}

func TestPriceCalculationRequestValidate(t *testing.T) {
	neg := -1.0
	zero := 0.0
	cases := []struct {
		name string
		req  PriceCalculationRequest
		ok   bool
	}{
		{"valid default fee", PriceCalculationRequest{Weight: 1}, true},
		{"valid zero fee", PriceCalculationRequest{Weight: 0.5, Fee: &zero}, true},
		{"zero weight", PriceCalculationRequest{Weight: 0}, false},
		{"negative weight", PriceCalculationRequest{Weight: -2}, false},
		{"negative fee", PriceCalculationRequest{Weight: 1, Fee: &neg}, false},
	}
	for _, tc := range cases {
		err := tc.req.Validate()
		if tc.ok && err != nil {
			t.Errorf("%s: unexpected error %v", tc.name, err)
		}
		if !tc.ok && !errors.Is(err, ErrInvalidInput) {
			t.Errorf("%s: expected ErrInvalidInput, got %v", tc.name, err)
		}
	}
}

func TestProviderErrorUnwrap(t *testing.T) {
	cause := errors.New("timeout")
	err := error(&ProviderError{Kind: KindGold, Cause: cause})
	if !errors.Is(err, cause) {
		t.Fatal("expected ProviderError to unwrap to its cause")
	}
	var pe *ProviderError
	if !errors.As(err, &pe) || pe.Kind != KindGold {
		t.Fatalf("expected errors.As to find ProviderError, got %+v", pe)
	}
}

func TestScheduleConfigContains(t *testing.T) {
	c := ScheduleConfig{Interval: 15 * time.Minute, Min: 15 * time.Minute, Max: 24 * time.Hour}
	if !c.Contains(15*time.Minute) || !c.Contains(24*time.Hour) {
		t.Fatal("bounds should be inclusive")
	}
	if c.Contains(14*time.Minute) || c.Contains(25*time.Hour) {
		t.Fatal("values outside bounds should be rejected")
	}
}
