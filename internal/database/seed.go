// Recipewise - Recipe Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/recipewise

package database

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/goccy/go-json"
	"gopkg.in/yaml.v3"

	"github.com/tomtom215/recipewise/internal/recommend"
)

// SeedData is the content of a seed file. Field names follow the JSON
// names of the recommend types in both JSON and YAML files.
type SeedData struct {
	Recipes      []recommend.Recipe        `json:"recipes"`
	Ratings      []recommend.Rating        `json:"ratings"`
	Favorites    []recommend.Favorite      `json:"favorites"`
	Views        []recommend.View          `json:"views"`
	Preferences  []recommend.Preference    `json:"preferences"`
	HealthGoals  []recommend.HealthGoal    `json:"health_goals"`
	Demographics []recommend.Demographics  `json:"demographics"`
	Inventory    []recommend.InventoryItem `json:"inventory"`
}

// SeedSummary counts the records written by Seed.
type SeedSummary struct {
	Recipes   int `json:"recipes"`
	Ratings   int `json:"ratings"`
	Favorites int `json:"favorites"`
	Views     int `json:"views"`
	Users     int `json:"users"`
}

// ReadSeedFile parses a .json, .yaml or .yml seed file.
func ReadSeedFile(path string) (*SeedData, error) {
	raw, err := os.ReadFile(path) //nolint:gosec // path comes from operator configuration
	if err != nil {
		return nil, fmt.Errorf("read seed file: %w", err)
	}
	return ParseSeed(raw, strings.ToLower(filepath.Ext(path)))
}

// ParseSeed decodes seed content. YAML is converted to JSON first so both
// formats share the JSON field names.
func ParseSeed(raw []byte, ext string) (*SeedData, error) {
	switch ext {
	case ".yaml", ".yml":
		var doc interface{}
		if err := yaml.Unmarshal(raw, &doc); err != nil {
			return nil, fmt.Errorf("parse seed yaml: %w", err)
		}
		converted, err := json.Marshal(doc)
		if err != nil {
			return nil, fmt.Errorf("convert seed yaml: %w", err)
		}
		raw = converted
	case ".json", "":
	default:
		return nil, fmt.Errorf("unsupported seed format %q", ext)
	}

	var data SeedData
	if err := json.Unmarshal(raw, &data); err != nil {
		return nil, fmt.Errorf("parse seed: %w", err)
	}
	return &data, nil
}

// Seed writes data into the store. Recipes are written first so that
// interactions can update their aggregates.
func (d *DB) Seed(ctx context.Context, data *SeedData) (SeedSummary, error) {
	var sum SeedSummary
	users := make(map[int64]struct{})

	for i := range data.Recipes {
		if err := d.PutRecipe(ctx, &data.Recipes[i]); err != nil {
			return sum, fmt.Errorf("seed recipe %d: %w", data.Recipes[i].ID, err)
		}
		sum.Recipes++
	}
	for _, r := range data.Ratings {
		if err := d.AddRating(ctx, r); err != nil {
			return sum, fmt.Errorf("seed rating %d/%d: %w", r.UserID, r.RecipeID, err)
		}
		users[r.UserID] = struct{}{}
		sum.Ratings++
	}
	for _, f := range data.Favorites {
		if err := d.AddFavorite(ctx, f); err != nil {
			return sum, fmt.Errorf("seed favorite %d/%d: %w", f.UserID, f.RecipeID, err)
		}
		users[f.UserID] = struct{}{}
		sum.Favorites++
	}
	for _, v := range data.Views {
		if err := d.AddView(ctx, v); err != nil {
			return sum, fmt.Errorf("seed view %d/%d: %w", v.UserID, v.RecipeID, err)
		}
		users[v.UserID] = struct{}{}
		sum.Views++
	}

	for i := range data.Preferences {
		if err := d.UpsertPreference(ctx, &data.Preferences[i]); err != nil {
			return sum, fmt.Errorf("seed preference %d: %w", data.Preferences[i].UserID, err)
		}
		users[data.Preferences[i].UserID] = struct{}{}
	}
	for i := range data.HealthGoals {
		if err := d.PutHealthGoal(ctx, &data.HealthGoals[i]); err != nil {
			return sum, fmt.Errorf("seed health goal %d: %w", data.HealthGoals[i].UserID, err)
		}
	}
	for i := range data.Demographics {
		if err := d.PutDemographics(ctx, &data.Demographics[i]); err != nil {
			return sum, fmt.Errorf("seed demographics %d: %w", data.Demographics[i].UserID, err)
		}
	}

	inventory := make(map[int64][]recommend.InventoryItem)
	for _, item := range data.Inventory {
		inventory[item.UserID] = append(inventory[item.UserID], item)
	}
	for userID, items := range inventory {
		if err := d.SetInventory(ctx, userID, items); err != nil {
			return sum, fmt.Errorf("seed inventory %d: %w", userID, err)
		}
	}

	sum.Users = len(users)
	d.logger.Info().
		Int("recipes", sum.Recipes).
		Int("ratings", sum.Ratings).
		Int("favorites", sum.Favorites).
		Int("views", sum.Views).
		Int("users", sum.Users).
		Msg("seed data loaded")
	return sum, nil
}
