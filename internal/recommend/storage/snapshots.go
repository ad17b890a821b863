// Recipewise - Recipe Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/recipewise

package storage

import (
	"bytes"
	"compress/gzip"
	"context"
	"crypto/sha256"
	"encoding/gob"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"
)

const snapshotExt = ".gob.gz"

// ErrSnapshotNotFound is returned when no snapshot exists for a name.
var ErrSnapshotNotFound = errors.New("snapshot not found")

// ErrChecksumMismatch is returned when a stored payload fails verification.
var ErrChecksumMismatch = errors.New("snapshot checksum mismatch")

// SnapshotMetadata describes a stored snapshot.
type SnapshotMetadata struct {
	Name    string    `json:"name"`
	Version int       `json:"version"`
	BuiltAt time.Time `json:"built_at"`
	SavedAt time.Time `json:"saved_at"`

	UserCount   int `json:"user_count"`
	ItemCount   int `json:"item_count"`
	RatingCount int `json:"rating_count"`

	// Checksum is the hex SHA-256 of the uncompressed gob payload.
	Checksum  string `json:"checksum"`
	SizeBytes int64  `json:"size_bytes"`
}

// storedFile is the on-disk layout.
type storedFile struct {
	Metadata       SnapshotMetadata
	CompressedData []byte
}

// Store manages versioned snapshot files in a directory.
type Store struct {
	baseDir string

	mu       sync.RWMutex
	versions map[string]int
}

// NewStore creates a store at baseDir, creating the directory if needed,
// and indexes the snapshots already present.
func NewStore(baseDir string) (*Store, error) {
	if err := os.MkdirAll(baseDir, 0o750); err != nil {
		return nil, fmt.Errorf("create snapshot directory: %w", err)
	}

	s := &Store{
		baseDir:  baseDir,
		versions: make(map[string]int),
	}

	all, err := s.scan()
	if err != nil {
		return nil, fmt.Errorf("scan snapshots: %w", err)
	}
	for name, versions := range all {
		s.versions[name] = versions[0]
	}
	return s, nil
}

// scan returns every stored version per name, newest first.
func (s *Store) scan() (map[string][]int, error) {
	entries, err := os.ReadDir(s.baseDir)
	if err != nil {
		return nil, err
	}

	out := make(map[string][]int)
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name, version, ok := parseSnapshotFilename(entry.Name())
		if !ok {
			continue
		}
		out[name] = append(out[name], version)
	}
	for _, versions := range out {
		sort.Sort(sort.Reverse(sort.IntSlice(versions)))
	}
	return out, nil
}

// parseSnapshotFilename splits "averages_v12.gob.gz" into ("averages", 12).
func parseSnapshotFilename(filename string) (name string, version int, ok bool) {
	base, found := strings.CutSuffix(filename, snapshotExt)
	if !found {
		return "", 0, false
	}
	idx := strings.LastIndex(base, "_v")
	if idx <= 0 {
		return "", 0, false
	}
	version, err := strconv.Atoi(base[idx+2:])
	if err != nil || version < 0 {
		return "", 0, false
	}
	return base[:idx], version, true
}

// Save encodes data and writes it as version of name. The file is written
// to a temporary path and renamed into place.
//
//nolint:gocritic // meta passed by value is acceptable for this write operation
func (s *Store) Save(ctx context.Context, name string, version int, data interface{}, meta SnapshotMetadata) error {
	if name == "" || strings.ContainsAny(name, `/\`) {
		return fmt.Errorf("invalid snapshot name %q", name)
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	var raw bytes.Buffer
	if err := gob.NewEncoder(&raw).Encode(data); err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}
	sum := sha256.Sum256(raw.Bytes())

	var compressed bytes.Buffer
	gzw := gzip.NewWriter(&compressed)
	if _, err := gzw.Write(raw.Bytes()); err != nil {
		return fmt.Errorf("compress snapshot: %w", err)
	}
	if err := gzw.Close(); err != nil {
		return fmt.Errorf("finalize compression: %w", err)
	}

	meta.Name = name
	meta.Version = version
	meta.Checksum = hex.EncodeToString(sum[:])
	meta.SizeBytes = int64(compressed.Len())
	meta.SavedAt = time.Now()

	s.mu.Lock()
	defer s.mu.Unlock()

	path := s.path(name, version)
	tmp := path + ".tmp"
	f, err := os.Create(tmp) //nolint:gosec // path is built from a validated name
	if err != nil {
		return fmt.Errorf("create snapshot file: %w", err)
	}
	encErr := gob.NewEncoder(f).Encode(storedFile{Metadata: meta, CompressedData: compressed.Bytes()})
	closeErr := f.Close()
	if encErr != nil || closeErr != nil {
		_ = os.Remove(tmp) //nolint:errcheck // best-effort cleanup
		return fmt.Errorf("write snapshot file: %w", errors.Join(encErr, closeErr))
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("install snapshot file: %w", err)
	}

	if current, ok := s.versions[name]; !ok || version > current {
		s.versions[name] = version
	}
	return nil
}

// Load decodes version of name into target. Version 0 loads the latest.
func (s *Store) Load(ctx context.Context, name string, version int, target interface{}) (*SnapshotMetadata, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if version == 0 {
		latest, ok := s.versions[name]
		if !ok {
			return nil, fmt.Errorf("%s: %w", name, ErrSnapshotNotFound)
		}
		version = latest
	}

	sf, err := s.readFile(name, version)
	if err != nil {
		return nil, err
	}

	gzr, err := gzip.NewReader(bytes.NewReader(sf.CompressedData))
	if err != nil {
		return nil, fmt.Errorf("decompress snapshot: %w", err)
	}
	defer func() { _ = gzr.Close() }() //nolint:errcheck // close after read is not actionable

	raw, err := io.ReadAll(gzr)
	if err != nil {
		return nil, fmt.Errorf("read decompressed snapshot: %w", err)
	}

	sum := sha256.Sum256(raw)
	if got := hex.EncodeToString(sum[:]); got != sf.Metadata.Checksum {
		return nil, fmt.Errorf("%s v%d: %w", name, version, ErrChecksumMismatch)
	}

	if err := gob.NewDecoder(bytes.NewReader(raw)).Decode(target); err != nil {
		return nil, fmt.Errorf("decode snapshot: %w", err)
	}
	return &sf.Metadata, nil
}

func (s *Store) readFile(name string, version int) (*storedFile, error) {
	f, err := os.Open(s.path(name, version)) //nolint:gosec // path is built from a validated name
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%s v%d: %w", name, version, ErrSnapshotNotFound)
		}
		return nil, fmt.Errorf("open snapshot file: %w", err)
	}
	defer func() { _ = f.Close() }() //nolint:errcheck // close after read is not actionable

	var sf storedFile
	if err := gob.NewDecoder(f).Decode(&sf); err != nil {
		return nil, fmt.Errorf("read snapshot file: %w", err)
	}
	return &sf, nil
}

// LatestVersion returns the newest stored version of name.
func (s *Store) LatestVersion(name string) (int, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.versions[name]
	return v, ok
}

// List returns the metadata of the latest version of every snapshot,
// sorted by name. Unreadable files are skipped.
func (s *Store) List(ctx context.Context) ([]SnapshotMetadata, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	names := make([]string, 0, len(s.versions))
	for name := range s.versions {
		names = append(names, name)
	}
	sort.Strings(names)

	out := make([]SnapshotMetadata, 0, len(names))
	for _, name := range names {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		sf, err := s.readFile(name, s.versions[name])
		if err != nil {
			continue
		}
		out = append(out, sf.Metadata)
	}
	return out, nil
}

// Delete removes one version of name.
func (s *Store) Delete(_ context.Context, name string, version int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.Remove(s.path(name, version)); err != nil {
		return fmt.Errorf("delete snapshot: %w", err)
	}
	return s.reindexLocked(name)
}

// Prune keeps the newest keep versions of name and removes the rest.
func (s *Store) Prune(_ context.Context, name string, keep int) (int, error) {
	if keep < 1 {
		keep = 1
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	all, err := s.scan()
	if err != nil {
		return 0, fmt.Errorf("scan snapshots: %w", err)
	}
	versions := all[name]
	removed := 0
	for i := keep; i < len(versions); i++ {
		if err := os.Remove(s.path(name, versions[i])); err == nil {
			removed++
		}
	}
	return removed, s.reindexLocked(name)
}

func (s *Store) reindexLocked(name string) error {
	all, err := s.scan()
	if err != nil {
		return fmt.Errorf("scan snapshots: %w", err)
	}
	if versions := all[name]; len(versions) > 0 {
		s.versions[name] = versions[0]
	} else {
		delete(s.versions, name)
	}
	return nil
}

func (s *Store) path(name string, version int) string {
	return filepath.Join(s.baseDir, fmt.Sprintf("%s_v%d%s", name, version, snapshotExt))
}
