package advisor

import (
	"context"
	"strings"
	"testing"

	"github.com/watson9049/billygold-website/internal/domain"
)

func TestBuildSystemPromptContainsBrief(t *testing.T) {
	prompt := BuildSystemPrompt("some context")
	for _, want := range []string{"gold consultant", "Traditional Chinese", "LIVE PRICES", "some context"} {
		if !strings.Contains(prompt, want) {
			t.Fatalf("expected %q in prompt", want)
		}
	}
}

func TestFormatMarketContext(t *testing.T) {
	current := (&stubPrices{}).CurrentGoldPrice(context.Background())
	metals := []domain.MetalPriceSnapshot{
		{Kind: domain.KindSilver, Price: 38.2, ChangePercent: 34.04, Source: domain.SourceFallback},
	}

	ctx := FormatMarketContext(current, metals)
	for _, want := range []string{"spot: $3311.96/oz (live)", "per tael: NT$12697.97", "silver: $38.20 (+34.04% vs reference, fallback)"} {
		if !strings.Contains(ctx, want) {
			t.Fatalf("expected %q in context:\n%s", want, ctx)
		}
	}
}

func TestFormatMarketContextEmpty(t *testing.T) {
	ctx := FormatMarketContext(domain.CurrentGoldPrice{}, nil)
	if ctx != "No price data currently available." {
		t.Fatalf("expected fallback text, got: %s", ctx)
	}
}

func TestExtractKinds(t *testing.T) {
	cases := []struct {
		text string
		want []domain.QuoteKind
	}{
		{"黃金今天多少？", []domain.QuoteKind{domain.KindGold}},
		{"白金戒指和銀手鍊", []domain.QuoteKind{domain.KindSilver, domain.KindPlatinum}},
		{"Is GOLD or copper better?", []domain.QuoteKind{domain.KindGold, domain.KindCopper}},
		{"鉑金", []domain.QuoteKind{domain.KindPlatinum}},
		{"運費怎麼算", nil},
	}
	for _, tc := range cases {
		got := ExtractKinds(tc.text)
		if len(got) != len(tc.want) {
			t.Fatalf("%q: expected %v, got %v", tc.text, tc.want, got)
		}
		for i := range got {
			if got[i] != tc.want[i] {
				t.Fatalf("%q: expected %v, got %v", tc.text, tc.want, got)
			}
		}
	}
}
