// Recipewise - Recipe Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/recipewise

package database

import (
	"fmt"
	"strings"
)

const (
	recipePrefix    = "recipe:"
	ratingPrefix    = "rating:"
	favoritePrefix  = "favorite:"
	viewPrefix      = "view:"
	prefPrefix      = "pref:"
	learnedPrefix   = "learned:"
	goalPrefix      = "goal:"
	demoPrefix      = "demo:"
	inventoryPrefix = "inventory:"
)

func pad(v int64) string {
	return fmt.Sprintf("%020d", v)
}

func recipeKey(recipeID int64) []byte {
	return []byte(recipePrefix + pad(recipeID))
}

func ratingKey(userID, recipeID int64) []byte {
	return []byte(ratingPrefix + pad(userID) + ":" + pad(recipeID))
}

func favoriteKey(userID, recipeID int64) []byte {
	return []byte(favoritePrefix + pad(userID) + ":" + pad(recipeID))
}

func viewKey(userID, recipeID, unixNano int64) []byte {
	return []byte(viewPrefix + pad(userID) + ":" + pad(recipeID) + ":" + pad(unixNano))
}

func inventoryKey(userID int64, name string) []byte {
	return []byte(inventoryPrefix + pad(userID) + ":" + name)
}

// userKey builds a single-record-per-user key such as pref:{user}.
func userKey(prefix string, userID int64) []byte {
	return []byte(prefix + pad(userID))
}

// userScope is the iteration prefix for all records of a user under prefix.
func userScope(prefix string, userID int64) []byte {
	return []byte(prefix + pad(userID) + ":")
}

// normalizeItemName folds inventory names so "Garlic " and "garlic" share
// a key.
func normalizeItemName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}
