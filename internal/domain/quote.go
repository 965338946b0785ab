package domain

import (
	"fmt"
	"strings"
	"time"
)

// QuoteKind identifies one tracked price or rate. It is the cache key.
type QuoteKind string

const (
	KindGold     QuoteKind = "gold"
	KindSilver   QuoteKind = "silver"
	KindPlatinum QuoteKind = "platinum"
	KindCopper   QuoteKind = "copper"
	KindUSDTWD   QuoteKind = "usd_twd"
)

// QuoteSource records where a cached value came from.
type QuoteSource string

const (
	SourceLive     QuoteSource = "live"
	SourceFallback QuoteSource = "fallback"
)

// Quote is a single cached value for one kind.
type Quote struct {
	Kind      QuoteKind   `json:"kind"`
	Value     float64     `json:"value"`
	FetchedAt time.Time   `json:"fetched_at"`
	Source    QuoteSource `json:"source"`
}

// Metals lists the tracked metals in display order.
var Metals = []QuoteKind{KindGold, KindSilver, KindPlatinum, KindCopper}

// AllKinds lists every tracked kind, metals first.
var AllKinds = []QuoteKind{KindGold, KindSilver, KindPlatinum, KindCopper, KindUSDTWD}

// SpotSymbol maps metal kinds to the spot feed's instrument symbols.
var SpotSymbol = map[QuoteKind]string{
	KindGold:     "XAU",
	KindSilver:   "XAG",
	KindPlatinum: "XPT",
	KindCopper:   "HG",
}

// IsMetal reports whether k is quoted by the spot metals feed.
func (k QuoteKind) IsMetal() bool {
	_, ok := SpotSymbol[k]
	return ok
}

func (k QuoteKind) Valid() bool {
	for _, known := range AllKinds {
		if k == known {
			return true
		}
	}
	return false
}

// ParseQuoteKind accepts the lower-case kind names, case-insensitively.
func ParseQuoteKind(s string) (QuoteKind, error) {
	k := QuoteKind(strings.ToLower(strings.TrimSpace(s)))
	if !k.Valid() {
		return "", fmt.Errorf("%w: unknown quote kind %q", ErrInvalidInput, s)
	}
	return k, nil
}

// SupportedKindNames returns the kind names as plain strings, for error payloads.
func SupportedKindNames(kinds []QuoteKind) []string {
	names := make([]string, len(kinds))
	for i, k := range kinds {
		names[i] = string(k)
	}
	return names
}
