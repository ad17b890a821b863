// Recipewise - Recipe Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/recipewise

package recommend

import "strings"

// Lane and source names.
const (
	LaneRuleBased     = "rule_based"
	LaneCollaborative = "collaborative"
	LaneContentBased  = "content_based"
	SourcePopular     = "popular"
	SourceSimilar     = "similar"

	// SourceColdStartPrefix prefixes the strategy name of cold-start results.
	SourceColdStartPrefix = "cold_start:"
)

// Reason tags attached to recommendations.
const (
	ReasonInventory    = "inventory_match"
	ReasonPrice        = "budget_friendly"
	ReasonNutrition    = "nutrition_goal"
	ReasonPreference   = "matches_preferences"
	ReasonSeasonal     = "seasonal"
	ReasonSimilarUsers = "similar_users"
	ReasonTaste        = "matches_taste"
	ReasonPopular      = "popular"
	ReasonQuickEasy    = "quick_and_easy"
	ReasonDemographic  = "popular_with_peers"
)

// GenericExplanation is used when no specific reason applies.
const GenericExplanation = "Recommended based on your overall profile"

type reasonRule struct {
	tag   string
	text  string
	ratio func(Metadata) float64
}

var metadataReasons = []reasonRule{
	{ReasonInventory, "you have most of the ingredients", func(m Metadata) float64 { return m.InventoryMatch }},
	{ReasonNutrition, "it fits your nutrition goal", func(m Metadata) float64 { return m.NutritionMatch }},
	{ReasonPreference, "it matches your preferences", func(m Metadata) float64 { return m.PreferenceMatch }},
	{ReasonPrice, "it fits your budget", func(m Metadata) float64 { return m.PriceMatch }},
	{ReasonSeasonal, "it is in season", func(m Metadata) float64 { return m.SeasonalMatch }},
}

var reasonTexts = map[string]string{
	ReasonSimilarUsers: "people with similar taste rated it highly",
	ReasonTaste:        "it is similar to recipes you enjoyed",
	ReasonPopular:      "it is popular with other cooks",
	ReasonQuickEasy:    "it suits your cooking time and skill",
	ReasonDemographic:  "people like you enjoy it",
}

// Explain attaches reason tags and an explanation to rec. A reason is added
// for every metadata ratio above threshold, after any reasons the producing
// lane already set. Recommendations with no reason get GenericExplanation.
func Explain(rec *Recommendation, threshold float64) {
	seen := make(map[string]struct{}, len(rec.Reasons))
	reasons := make([]string, 0, len(rec.Reasons)+len(metadataReasons))
	add := func(tag string) {
		if _, dup := seen[tag]; dup {
			return
		}
		seen[tag] = struct{}{}
		reasons = append(reasons, tag)
	}

	for _, r := range rec.Reasons {
		add(r)
	}
	for _, rule := range metadataReasons {
		if rule.ratio(rec.Metadata) > threshold {
			add(rule.tag)
		}
	}
	switch rec.Source {
	case LaneCollaborative:
		add(ReasonSimilarUsers)
	case LaneContentBased:
		add(ReasonTaste)
	}

	rec.Reasons = reasons
	rec.Explanation = explanationFor(reasons)
}

func explanationFor(reasons []string) string {
	texts := make([]string, 0, len(reasons))
	for _, tag := range reasons {
		if text, ok := reasonText(tag); ok {
			texts = append(texts, text)
		}
	}
	if len(texts) == 0 {
		return GenericExplanation
	}
	return "Recommended because " + strings.Join(texts, " and ")
}

func reasonText(tag string) (string, bool) {
	for _, rule := range metadataReasons {
		if rule.tag == tag {
			return rule.text, true
		}
	}
	text, ok := reasonTexts[tag]
	return text, ok
}
