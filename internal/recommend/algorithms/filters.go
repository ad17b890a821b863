// Recipewise - Recipe Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/recipewise

package algorithms

import (
	"github.com/tomtom215/recipewise/internal/recommend"
)

// Ingredient categories excluded by plant-based diets.
var (
	meatCategories   = []string{"meat", "poultry", "seafood", "fish", "shellfish", "pork", "beef"}
	animalCategories = []string{"dairy", "egg", "eggs", "honey", "gelatin"}
)

// Numeric limits of the dietary gate, in grams per serving. A recipe past
// them is never recommended.
const (
	lowCarbMaxCarbs       = 30
	lowFatMaxFat          = 15
	highProteinMinProtein = 20
)

// Nutrition scoring targets for the same diets, in grams per serving. They
// are at least as strict as the gate: a recipe between a target and its
// gate limit is still recommended but scores lower.
const (
	lowCarbTargetCarbs       = 20
	lowFatTargetFat          = lowFatMaxFat
	highProteinTargetProtein = 25
)

// DietaryProfile gathers everything the dietary gate checks.
type DietaryProfile struct {
	Types     []recommend.DietaryType
	Allergies []string
	Excluded  []string
}

// NewDietaryProfile merges a stored preference with request restrictions.
// Restriction strings naming a dietary type ("vegan", "low_carb") become
// types; anything else is treated as an ingredient to exclude.
func NewDietaryProfile(pref *recommend.Preference, rc recommend.Context) DietaryProfile {
	var p DietaryProfile
	addType := func(t recommend.DietaryType) {
		for _, have := range p.Types {
			if have == t {
				return
			}
		}
		p.Types = append(p.Types, t)
	}

	restrictions := rc.DietaryRestrictions
	if pref != nil {
		if pref.DietaryType != "" {
			addType(pref.DietaryType)
		}
		restrictions = append(append([]string{}, pref.DietaryRestrictions...), restrictions...)
		p.Allergies = normalizeAll(pref.Allergies)
	}

	var excluded []string
	for _, r := range restrictions {
		if t, ok := parseDietaryType(r); ok {
			addType(t)
			continue
		}
		excluded = append(excluded, r)
	}
	p.Excluded = normalizeAll(excluded, rc.ExcludedIngredients)
	return p
}

func parseDietaryType(s string) (recommend.DietaryType, bool) {
	switch t := recommend.DietaryType(recommend.NormalizeName(s)); t {
	case recommend.DietaryVegetarian, recommend.DietaryVegan, recommend.DietaryLowCarb, recommend.DietaryLowFat, recommend.DietaryHighProtein:
		return t, true
	default:
		return "", false
	}
}

// Allows reports whether recipe passes every dietary restriction. Failing
// recipes are excluded outright, never penalized.
func (p DietaryProfile) Allows(recipe *recommend.Recipe) bool {
	for _, t := range p.Types {
		if !satisfiesDietaryType(recipe, t) {
			return false
		}
	}

	names := recipe.IngredientNames()
	if countMatches(names, p.Allergies) > 0 || countMatches(names, p.Excluded) > 0 {
		return false
	}
	return true
}

// satisfiesDietaryType checks a single dietary type.
func satisfiesDietaryType(recipe *recommend.Recipe, t recommend.DietaryType) bool {
	switch t {
	case recommend.DietaryVegetarian:
		return !hasIngredientCategory(recipe, meatCategories)
	case recommend.DietaryVegan:
		return !hasIngredientCategory(recipe, meatCategories) && !hasIngredientCategory(recipe, animalCategories)
	case recommend.DietaryLowCarb:
		return recipe.Nutrition.Carbs <= lowCarbMaxCarbs
	case recommend.DietaryLowFat:
		return recipe.Nutrition.Fat <= lowFatMaxFat
	case recommend.DietaryHighProtein:
		return recipe.Nutrition.Protein >= highProteinMinProtein
	default:
		return true
	}
}

func hasIngredientCategory(recipe *recommend.Recipe, categories []string) bool {
	for _, ing := range recipe.Ingredients {
		if containsName(categories, ing.Category) {
			return true
		}
	}
	return false
}

// matchesContext applies the request's hard filters: meal type, cook time
// and excluded ingredients.
//
//nolint:gocritic // hugeParam: rc passed by value for immutability
func matchesContext(recipe *recommend.Recipe, rc recommend.Context) bool {
	if rc.MaxCookTime > 0 && recipe.CookTimeMinutes > rc.MaxCookTime {
		return false
	}
	if rc.MealType != "" {
		meal := recommend.NormalizeName(rc.MealType)
		if recommend.NormalizeName(recipe.Category) != meal && !containsName(recipe.Tags, meal) {
			return false
		}
	}
	if len(rc.ExcludedIngredients) > 0 && countMatches(recipe.IngredientNames(), normalizeAll(rc.ExcludedIngredients)) > 0 {
		return false
	}
	return true
}
