package advisor

import (
	"strings"

	"github.com/watson9049/billygold-website/internal/domain"
)

// kindAliases maps words customers use to metals. Longer aliases come first
// so 白金 (platinum) is not read as 金 (gold).
var kindAliases = []struct {
	alias string
	kind  domain.QuoteKind
}{
	{"platinum", domain.KindPlatinum},
	{"白金", domain.KindPlatinum},
	{"鉑金", domain.KindPlatinum},
	{"silver", domain.KindSilver},
	{"白銀", domain.KindSilver},
	{"copper", domain.KindCopper},
	{"銅", domain.KindCopper},
	{"gold", domain.KindGold},
	{"黃金", domain.KindGold},
	{"金", domain.KindGold},
	{"銀", domain.KindSilver},
}

// ExtractKinds returns the metals mentioned in text, deduplicated, in
// display order.
func ExtractKinds(text string) []domain.QuoteKind {
	rest := strings.ToLower(text)
	seen := make(map[domain.QuoteKind]bool)
	for _, a := range kindAliases {
		if strings.Contains(rest, a.alias) {
			seen[a.kind] = true
			rest = strings.ReplaceAll(rest, a.alias, " ")
		}
	}

	var result []domain.QuoteKind
	for _, kind := range domain.Metals {
		if seen[kind] {
			result = append(result, kind)
		}
	}
	return result
}
