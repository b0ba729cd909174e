// Package cost accumulates token usage and USD costs per agent. A Tracker
// can be attached to the event bus to record llm_responded traffic
// automatically, and a BudgetManager enforces per-agent spending caps.
package cost

import (
	"sort"
	"strings"
)

// PricingEntry is one model's pricing, in USD per 1000 tokens.
type PricingEntry struct {
	InputCostPer1K  float64
	OutputCostPer1K float64
}

// modelPricing maps canonical model IDs to pricing. Public list pricing,
// best effort as of February 2026; negotiated rates are not reflected.
var modelPricing = map[string]PricingEntry{
	"claude-opus-4":     {InputCostPer1K: 0.015, OutputCostPer1K: 0.075},
	"claude-sonnet-4-5": {InputCostPer1K: 0.003, OutputCostPer1K: 0.015},
	"claude-haiku-4-5":  {InputCostPer1K: 0.00025, OutputCostPer1K: 0.00125},
	"gpt-4o":            {InputCostPer1K: 0.005, OutputCostPer1K: 0.015},
	"gpt-4o-mini":       {InputCostPer1K: 0.00015, OutputCostPer1K: 0.0006},
	"gpt-3.5-turbo":     {InputCostPer1K: 0.0005, OutputCostPer1K: 0.0015},
	"gemini-1.5-pro":    {InputCostPer1K: 0.00125, OutputCostPer1K: 0.005},
	"gemini-1.5-flash":  {InputCostPer1K: 0.000075, OutputCostPer1K: 0.0003},
	"llama-3.1-70b":     {InputCostPer1K: 0.00059, OutputCostPer1K: 0.00079},
	"mistral-large":     {InputCostPer1K: 0.004, OutputCostPer1K: 0.012},
}

// Pricing resolves a model identifier to its pricing entry. Lookup is
// case-insensitive; when no exact match exists, prefix fuzzy matching in
// either direction applies and the first canonical ID in sort order wins
// on ambiguity.
func Pricing(model string) (PricingEntry, bool) {
	normalized := strings.ToLower(model)

	if entry, ok := modelPricing[normalized]; ok {
		return entry, true
	}

	var candidates []string
	for canonical := range modelPricing {
		if strings.HasPrefix(canonical, normalized) || strings.HasPrefix(normalized, canonical) {
			candidates = append(candidates, canonical)
		}
	}
	if len(candidates) == 0 {
		return PricingEntry{}, false
	}
	sort.Strings(candidates)
	return modelPricing[candidates[0]], true
}

// Models returns the canonical model IDs in the catalogue, sorted.
func Models() []string {
	out := make([]string, 0, len(modelPricing))
	for model := range modelPricing {
		out = append(out, model)
	}
	sort.Strings(out)
	return out
}
