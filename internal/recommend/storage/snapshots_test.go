// Recipewise - Recipe Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/recipewise

package storage

import (
	"context"
	"encoding/gob"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

type averages struct {
	Version uint64
	User    map[int64]float64
	Item    map[int64]float64
	Global  float64
}

func sampleAverages(version uint64) averages {
	return averages{
		Version: version,
		User:    map[int64]float64{1: 4, 2: 3.5},
		Item:    map[int64]float64{10: 4.25, 11: 3},
		Global:  3.75,
	}
}

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := NewStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewStore() error = %v", err)
	}
	return store
}

func TestNewStore_CreatesDirectory(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "snapshots")
	if _, err := NewStore(dir); err != nil {
		t.Fatalf("NewStore() error = %v", err)
	}
	if info, err := os.Stat(dir); err != nil || !info.IsDir() {
		t.Errorf("directory %s not created: %v", dir, err)
	}
}

func TestStore_SaveAndLoad(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	built := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	want := sampleAverages(7)
	if err := store.Save(ctx, "matrix_averages", 7, want, SnapshotMetadata{BuiltAt: built, UserCount: 2, ItemCount: 2}); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	var got averages
	meta, err := store.Load(ctx, "matrix_averages", 0, &got)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if got.Version != 7 || got.Global != want.Global {
		t.Errorf("Load() = %+v, want %+v", got, want)
	}
	for k, v := range want.User {
		if got.User[k] != v {
			t.Errorf("User[%d] = %v, want %v", k, got.User[k], v)
		}
	}
	for k, v := range want.Item {
		if got.Item[k] != v {
			t.Errorf("Item[%d] = %v, want %v", k, got.Item[k], v)
		}
	}

	if meta.Name != "matrix_averages" || meta.Version != 7 {
		t.Errorf("metadata = %s v%d, want matrix_averages v7", meta.Name, meta.Version)
	}
	if !meta.BuiltAt.Equal(built) {
		t.Errorf("BuiltAt = %v, want %v", meta.BuiltAt, built)
	}
	if len(meta.Checksum) != 64 {
		t.Errorf("Checksum length = %d, want 64", len(meta.Checksum))
	}
	if meta.SizeBytes <= 0 {
		t.Errorf("SizeBytes = %d, want > 0", meta.SizeBytes)
	}
}

func TestStore_LoadMissing(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	var got averages
	if _, err := store.Load(ctx, "nothing", 0, &got); !errors.Is(err, ErrSnapshotNotFound) {
		t.Errorf("Load(latest) error = %v, want ErrSnapshotNotFound", err)
	}
	if _, err := store.Load(ctx, "nothing", 3, &got); !errors.Is(err, ErrSnapshotNotFound) {
		t.Errorf("Load(v3) error = %v, want ErrSnapshotNotFound", err)
	}
}

func TestStore_InvalidName(t *testing.T) {
	store := newTestStore(t)
	for _, name := range []string{"", "../escape", `a\b`} {
		if err := store.Save(context.Background(), name, 1, sampleAverages(1), SnapshotMetadata{}); err == nil {
			t.Errorf("Save(%q) succeeded, want error", name)
		}
	}
}

func TestStore_CancelledContext(t *testing.T) {
	store := newTestStore(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := store.Save(ctx, "avg", 1, sampleAverages(1), SnapshotMetadata{}); !errors.Is(err, context.Canceled) {
		t.Errorf("Save() error = %v, want context.Canceled", err)
	}
}

func TestStore_VersionsAndReopen(t *testing.T) {
	dir := t.TempDir()
	store, err := NewStore(dir)
	if err != nil {
		t.Fatalf("NewStore() error = %v", err)
	}
	ctx := context.Background()

	for _, v := range []int{1, 3, 2} {
		if err := store.Save(ctx, "avg", v, sampleAverages(uint64(v)), SnapshotMetadata{}); err != nil {
			t.Fatalf("Save(v%d) error = %v", v, err)
		}
	}
	if v, ok := store.LatestVersion("avg"); !ok || v != 3 {
		t.Errorf("LatestVersion() = %d, %v; want 3, true", v, ok)
	}

	reopened, err := NewStore(dir)
	if err != nil {
		t.Fatalf("NewStore(reopen) error = %v", err)
	}
	var got averages
	if _, err := reopened.Load(ctx, "avg", 0, &got); err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if got.Version != 3 {
		t.Errorf("reopened latest version = %d, want 3", got.Version)
	}

	if _, err := reopened.Load(ctx, "avg", 2, &got); err != nil || got.Version != 2 {
		t.Errorf("Load(v2) = %d, %v; want 2, nil", got.Version, err)
	}
}

func TestStore_ChecksumMismatch(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	if err := store.Save(ctx, "avg", 1, sampleAverages(1), SnapshotMetadata{}); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	// Rewrite the file with a payload that does not match the checksum.
	sf, err := store.readFile("avg", 1)
	if err != nil {
		t.Fatalf("readFile() error = %v", err)
	}
	sf.Metadata.Checksum = "00"
	if err := writeStored(store.path("avg", 1), sf); err != nil {
		t.Fatalf("writeStored() error = %v", err)
	}

	var got averages
	if _, err := store.Load(ctx, "avg", 1, &got); !errors.Is(err, ErrChecksumMismatch) {
		t.Errorf("Load() error = %v, want ErrChecksumMismatch", err)
	}
}

func writeStored(path string, sf *storedFile) error {
	f, err := os.Create(path) //nolint:gosec // test path
	if err != nil {
		return err
	}
	if err := gob.NewEncoder(f).Encode(sf); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

func TestStore_DeleteAndPrune(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	for v := 1; v <= 5; v++ {
		if err := store.Save(ctx, "avg", v, sampleAverages(uint64(v)), SnapshotMetadata{}); err != nil {
			t.Fatalf("Save(v%d) error = %v", v, err)
		}
	}

	if err := store.Delete(ctx, "avg", 5); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if v, _ := store.LatestVersion("avg"); v != 4 {
		t.Errorf("LatestVersion() after delete = %d, want 4", v)
	}

	removed, err := store.Prune(ctx, "avg", 2)
	if err != nil {
		t.Fatalf("Prune() error = %v", err)
	}
	if removed != 2 {
		t.Errorf("Prune() removed %d, want 2", removed)
	}

	var got averages
	for _, v := range []int{1, 2} {
		if _, err := store.Load(ctx, "avg", v, &got); !errors.Is(err, ErrSnapshotNotFound) {
			t.Errorf("Load(v%d) after prune error = %v, want ErrSnapshotNotFound", v, err)
		}
	}
	if _, err := store.Load(ctx, "avg", 0, &got); err != nil || got.Version != 4 {
		t.Errorf("Load(latest) = %d, %v; want 4, nil", got.Version, err)
	}

	for _, v := range []int{3, 4} {
		if err := store.Delete(ctx, "avg", v); err != nil {
			t.Fatalf("Delete(v%d) error = %v", v, err)
		}
	}
	if _, ok := store.LatestVersion("avg"); ok {
		t.Error("LatestVersion() reports a version after every snapshot was deleted")
	}
}

func TestStore_List(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	for _, name := range []string{"zeta", "alpha"} {
		if err := store.Save(ctx, name, 1, sampleAverages(1), SnapshotMetadata{UserCount: 2}); err != nil {
			t.Fatalf("Save(%s) error = %v", name, err)
		}
	}

	list, err := store.List(ctx)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(list) != 2 || list[0].Name != "alpha" || list[1].Name != "zeta" {
		t.Errorf("List() = %+v, want alpha then zeta", list)
	}
}

func TestParseSnapshotFilename(t *testing.T) {
	tests := []struct {
		filename    string
		wantName    string
		wantVersion int
		wantOK      bool
	}{
		{"matrix_averages_v12.gob.gz", "matrix_averages", 12, true},
		{"a_values_v3.gob.gz", "a_values", 3, true},
		{"avg_v1.gob", "", 0, false},
		{"_v1.gob.gz", "", 0, false},
		{"avg_vx.gob.gz", "", 0, false},
		{"avg.gob.gz", "", 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.filename, func(t *testing.T) {
			name, version, ok := parseSnapshotFilename(tt.filename)
			if name != tt.wantName || version != tt.wantVersion || ok != tt.wantOK {
				t.Errorf("parseSnapshotFilename(%q) = %q, %d, %v; want %q, %d, %v",
					tt.filename, name, version, ok, tt.wantName, tt.wantVersion, tt.wantOK)
			}
		})
	}
}
