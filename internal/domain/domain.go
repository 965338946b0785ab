package domain

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrInvalidInput marks caller mistakes: bad weight, fee, or kind.
	ErrInvalidInput = errors.New("invalid input")
	// ErrInvalidConfig marks a schedule interval outside the configured bounds.
	ErrInvalidConfig = errors.New("invalid config")
)

// ProviderError is returned by upstream adapters. The engine absorbs it.
type ProviderError struct {
	Kind  QuoteKind
	Cause error
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("provider %s: %v", e.Kind, e.Cause)
}

func (e *ProviderError) Unwrap() error {
	return e.Cause
}

// MetalPriceSnapshot compares a current quote with its reference baseline.
type MetalPriceSnapshot struct {
	Kind          QuoteKind   `json:"kind"`
	Price         float64     `json:"price"`
	Change        float64     `json:"change"`
	ChangePercent float64     `json:"changePercent"`
	Source        QuoteSource `json:"source"`
	FetchedAt     time.Time   `json:"fetchedAt"`
}

type AllMetalPrices struct {
	Metals       map[QuoteKind]MetalPriceSnapshot `json:"metalPrices"`
	ExchangeRate Quote                            `json:"exchangeRate"`
	Timestamp    time.Time                        `json:"timestamp"`
}

// PriceCalculationRequest asks for the retail price of Weight taels.
// A nil Fee means the configured default workmanship fee.
type PriceCalculationRequest struct {
	ID     string   `json:"id,omitempty"`
	Weight float64  `json:"weight"`
	Fee    *float64 `json:"workmanshipFee,omitempty"`
}

// Validate checks weight > 0 and fee >= 0.
func (r PriceCalculationRequest) Validate() error {
	if !(r.Weight > 0) {
		return fmt.Errorf("%w: weight must be greater than 0, got %v", ErrInvalidInput, r.Weight)
	}
	if r.Fee != nil && !(*r.Fee >= 0) {
		return fmt.Errorf("%w: workmanship fee must not be negative, got %v", ErrInvalidInput, *r.Fee)
	}
	return nil
}

type PriceBreakdown struct {
	GoldValueTWD float64 `json:"goldValue"`
	FeeTWD       float64 `json:"workmanship"`
}

type PriceCalculationResult struct {
	RequestedWeight       float64        `json:"weight"`
	InternationalPriceUSD float64        `json:"internationalPrice"`
	ExchangeRate          float64        `json:"exchangeRate"`
	PricePerTaelUSD       float64        `json:"pricePerTaelUSD"`
	PricePerTaelTWD       float64        `json:"pricePerTaelTWD"`
	FlatFee               float64        `json:"workmanshipFee"`
	TotalPriceTWD         float64        `json:"totalPrice"`
	Breakdown             PriceBreakdown `json:"breakdown"`
	GoldSource            QuoteSource    `json:"goldSource,omitempty"`
	RateSource            QuoteSource    `json:"rateSource,omitempty"`
}

// BatchItemResult holds either a result or the error for one batch element.
type BatchItemResult struct {
	ID     string                  `json:"id,omitempty"`
	Result *PriceCalculationResult `json:"result,omitempty"`
	Error  string                  `json:"error,omitempty"`
}

// ScheduleConfig is owned by the scheduler. Min <= Interval <= Max.
type ScheduleConfig struct {
	Interval time.Duration
	Min      time.Duration
	Max      time.Duration
}

func (c ScheduleConfig) Contains(d time.Duration) bool {
	return d >= c.Min && d <= c.Max
}

type QuoteStatus struct {
	Source    QuoteSource `json:"source"`
	Value     float64     `json:"value"`
	FetchedAt time.Time   `json:"fetchedAt"`
	AgeMillis int64       `json:"ageMillis"`
}

type EngineStatus struct {
	Quotes           map[QuoteKind]QuoteStatus `json:"quotes"`
	ScheduleInterval time.Duration             `json:"-"`
	IntervalMinutes  int                       `json:"intervalMinutes"`
	Running          bool                      `json:"running"`
}

// ConversationMessage is one turn of an advisor conversation.
type ConversationMessage struct {
	Role      string
	Content   string
	CreatedAt time.Time
}

// QuoteHistoryEntry is a persisted quote, used by the history endpoint.
type QuoteHistoryEntry struct {
	ID        int64       `json:"id"`
	Kind      QuoteKind   `json:"kind"`
	Value     float64     `json:"value"`
	Source    QuoteSource `json:"source"`
	FetchedAt time.Time   `json:"fetchedAt"`
}

// CurrentGoldPrice is the gold quote and rate with the derived per-tael TWD price.
type CurrentGoldPrice struct {
	Gold            Quote     `json:"gold"`
	ExchangeRate    Quote     `json:"exchangeRate"`
	PricePerTaelTWD float64   `json:"pricePerTaelTWD"`
	Timestamp       time.Time `json:"timestamp"`
}
