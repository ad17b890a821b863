// Recipewise - Recipe Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/recipewise

// Package storage persists derived recommendation snapshots, such as the
// user and recipe rating averages of a rating matrix, across restarts.
//
// Snapshots are gob encoded, gzip compressed and stored one file per
// version:
//
//	{name}_v{version}.gob.gz
//
// Each file carries a SnapshotMetadata header with a SHA-256 checksum of the
// uncompressed payload, verified on Load.
//
// # Usage
//
//	store, err := storage.NewStore("/data/snapshots")
//	if err != nil {
//	    return err
//	}
//
//	avg := matrix.Averages()
//	err = store.Save(ctx, "matrix_averages", int(avg.Version), avg, storage.SnapshotMetadata{
//	    UserCount: len(avg.User),
//	    ItemCount: len(avg.Item),
//	})
//
//	var restored algorithms.Averages
//	meta, err := store.Load(ctx, "matrix_averages", 0, &restored) // 0 = latest
//
// # Thread Safety
//
// A Store serializes writers with a mutex. Multiple processes must not
// share a directory.
package storage
