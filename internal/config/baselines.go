package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/watson9049/billygold-website/internal/domain"
)

// Baselines is the optional YAML file of fallback centres and reference
// prices, keyed by quote kind:
//
//	fallback:
//	  gold: 3350
//	  usd_twd: 31.8
//	reference:
//	  gold: 2350
type Baselines struct {
	Fallback  map[domain.QuoteKind]float64 `yaml:"fallback"`
	Reference map[domain.QuoteKind]float64 `yaml:"reference"`
}

func LoadBaselines(path string) (*Baselines, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read baselines: %w", err)
	}
	return ParseBaselines(data)
}

// ParseBaselines rejects unknown kinds and non-positive values.
func ParseBaselines(data []byte) (*Baselines, error) {
	var b Baselines
	if err := yaml.Unmarshal(data, &b); err != nil {
		return nil, fmt.Errorf("parse baselines: %w", err)
	}
	for section, values := range map[string]map[domain.QuoteKind]float64{
		"fallback":  b.Fallback,
		"reference": b.Reference,
	} {
		for kind, v := range values {
			if !kind.Valid() {
				return nil, fmt.Errorf("%w: unknown kind %q in %s", domain.ErrInvalidConfig, kind, section)
			}
			if !(v > 0) {
				return nil, fmt.Errorf("%w: %s.%s must be positive", domain.ErrInvalidConfig, section, kind)
			}
		}
	}
	return &b, nil
}
