// Package cost estimates the spend of a research run from token and query
// counts.
package cost

import "strings"

// Rates holds per-model and per-query pricing.
type Rates struct {
	Models     map[string]ModelRate `yaml:"models" mapstructure:"models"`
	Perplexity PerplexityRate       `yaml:"perplexity" mapstructure:"perplexity"`
}

// ModelRate holds per-model token pricing (per million tokens).
type ModelRate struct {
	Input  float64 `yaml:"input" mapstructure:"input"`
	Output float64 `yaml:"output" mapstructure:"output"`
}

// PerplexityRate holds Perplexity pricing.
type PerplexityRate struct {
	PerQuery float64 `yaml:"per_query" mapstructure:"per_query"`
}

// Calculator computes costs for API usage. It is read-only after
// construction and safe for concurrent use.
type Calculator struct {
	rates Rates
}

// NewCalculator creates a Calculator with the given rates. Models missing
// from rates fall back to DefaultRates.
func NewCalculator(rates Rates) *Calculator {
	def := DefaultRates()
	merged := Rates{Models: make(map[string]ModelRate, len(def.Models)+len(rates.Models)), Perplexity: rates.Perplexity}
	for k, v := range def.Models {
		merged.Models[k] = v
	}
	for k, v := range rates.Models {
		merged.Models[strings.ToLower(k)] = v
	}
	if merged.Perplexity.PerQuery == 0 {
		merged.Perplexity = def.Perplexity
	}
	return &Calculator{rates: merged}
}

// Completion computes the cost of one completion. Unknown models and a
// nil Calculator cost 0.
func (c *Calculator) Completion(model string, input, output int64) float64 {
	if c == nil {
		return 0
	}
	rate, ok := c.rates.Models[strings.ToLower(model)]
	if !ok {
		return 0
	}
	inCost := (float64(input) / 1e6) * rate.Input
	outCost := (float64(output) / 1e6) * rate.Output
	return inCost + outCost
}

// PerplexityQuery returns the flat cost per Perplexity query.
func (c *Calculator) PerplexityQuery() float64 {
	if c == nil {
		return 0
	}
	return c.rates.Perplexity.PerQuery
}

// Known reports whether model has a rate.
func (c *Calculator) Known(model string) bool {
	_, ok := c.rates.Models[strings.ToLower(model)]
	return ok
}

// DefaultRates returns the default pricing rates.
func DefaultRates() Rates {
	return Rates{
		Models: map[string]ModelRate{
			"claude-haiku-4-5-20251001":  {Input: 1.00, Output: 5.00},
			"claude-sonnet-4-5-20250929": {Input: 3.00, Output: 15.00},
			"gpt-4o":                     {Input: 2.50, Output: 10.00},
			"gpt-4o-mini":                {Input: 0.15, Output: 0.60},
		},
		Perplexity: PerplexityRate{PerQuery: 0.005},
	}
}
