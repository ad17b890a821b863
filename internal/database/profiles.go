// Recipewise - Recipe Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/recipewise

package database

import (
	"context"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/goccy/go-json"

	"github.com/tomtom215/recipewise/internal/recommend"
)

// getUserRecord loads the single per-user record under prefix into v,
// reporting whether it exists.
func (d *DB) getUserRecord(ctx context.Context, op, prefix string, userID int64, v interface{}) (bool, error) {
	var found bool
	err := d.view(ctx, op, func(txn *badger.Txn) error {
		var err error
		found, err = getJSON(txn, userKey(prefix, userID), v)
		return err
	})
	return found, err
}

func (d *DB) putUserRecord(ctx context.Context, op, prefix string, userID int64, v interface{}) error {
	if userID <= 0 {
		return invalid("user id must be positive, got %d", userID)
	}
	return d.update(ctx, op, func(txn *badger.Txn) error {
		return setJSON(txn, userKey(prefix, userID), v)
	})
}

// Preference returns a user's stored preferences, or nil when absent.
func (d *DB) Preference(ctx context.Context, userID int64) (*recommend.Preference, error) {
	var p recommend.Preference
	found, err := d.getUserRecord(ctx, "preference", prefPrefix, userID, &p)
	if err != nil || !found {
		return nil, err
	}
	return &p, nil
}

// UpsertPreference stores a user's preferences.
func (d *DB) UpsertPreference(ctx context.Context, p *recommend.Preference) error {
	return d.putUserRecord(ctx, "upsert_preference", prefPrefix, p.UserID, p)
}

// LearnedPreference returns the mined preferences of a user, or nil.
func (d *DB) LearnedPreference(ctx context.Context, userID int64) (*recommend.LearnedPreference, error) {
	var lp recommend.LearnedPreference
	found, err := d.getUserRecord(ctx, "learned_preference", learnedPrefix, userID, &lp)
	if err != nil || !found {
		return nil, err
	}
	return &lp, nil
}

// UpsertLearnedPreference stores mined preferences.
func (d *DB) UpsertLearnedPreference(ctx context.Context, lp *recommend.LearnedPreference) error {
	return d.putUserRecord(ctx, "upsert_learned_preference", learnedPrefix, lp.UserID, lp)
}

// PutHealthGoal replaces a user's goal.
func (d *DB) PutHealthGoal(ctx context.Context, g *recommend.HealthGoal) error {
	if g.CreatedAt.IsZero() {
		g.CreatedAt = time.Now().UTC()
	}
	return d.putUserRecord(ctx, "put_health_goal", goalPrefix, g.UserID, g)
}

// ActiveHealthGoal returns the user's goal if it is active, or nil.
func (d *DB) ActiveHealthGoal(ctx context.Context, userID int64) (*recommend.HealthGoal, error) {
	var g recommend.HealthGoal
	found, err := d.getUserRecord(ctx, "active_health_goal", goalPrefix, userID, &g)
	if err != nil || !found || !g.Active {
		return nil, err
	}
	return &g, nil
}

// PutDemographics stores a user's demographic profile.
func (d *DB) PutDemographics(ctx context.Context, dm *recommend.Demographics) error {
	return d.putUserRecord(ctx, "put_demographics", demoPrefix, dm.UserID, dm)
}

// Demographics returns a user's demographic profile, or nil.
func (d *DB) Demographics(ctx context.Context, userID int64) (*recommend.Demographics, error) {
	var dm recommend.Demographics
	found, err := d.getUserRecord(ctx, "demographics", demoPrefix, userID, &dm)
	if err != nil || !found {
		return nil, err
	}
	return &dm, nil
}

// SetInventory replaces a user's whole inventory. Items with a
// non-positive quantity are dropped.
func (d *DB) SetInventory(ctx context.Context, userID int64, items []recommend.InventoryItem) error {
	if userID <= 0 {
		return invalid("user id must be positive, got %d", userID)
	}
	return d.update(ctx, "set_inventory", func(txn *badger.Txn) error {
		for _, key := range scanKeys(txn, userScope(inventoryPrefix, userID)) {
			if err := txn.Delete(key); err != nil {
				return err
			}
		}
		for i := range items {
			item := items[i]
			item.UserID = userID
			item.Name = normalizeItemName(item.Name)
			if item.Name == "" || item.Quantity <= 0 {
				continue
			}
			if err := setJSON(txn, inventoryKey(userID, item.Name), &item); err != nil {
				return err
			}
		}
		return nil
	})
}

// Inventory returns a user's on-hand ingredients ordered by name.
func (d *DB) Inventory(ctx context.Context, userID int64) ([]recommend.InventoryItem, error) {
	var out []recommend.InventoryItem
	err := d.view(ctx, "inventory", func(txn *badger.Txn) error {
		return scanJSON(txn, userScope(inventoryPrefix, userID), func(val []byte) error {
			var item recommend.InventoryItem
			if err := json.Unmarshal(val, &item); err != nil {
				return err
			}
			out = append(out, item)
			return nil
		})
	})
	return out, err
}

var _ recommend.Repository = (*DB)(nil)
