// Recipewise - Recipe Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/recipewise

package database

import (
	"errors"
	"fmt"
)

var (
	// ErrClosed is returned by operations on a closed database.
	ErrClosed = errors.New("database closed")

	// ErrInvalidRecord is wrapped by validation failures on writes.
	ErrInvalidRecord = errors.New("invalid record")
)

func invalid(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrInvalidRecord, fmt.Sprintf(format, args...))
}
