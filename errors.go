// SPDX-License-Identifier: MIT
// Copyright (c) 2026 Pakworks
// Source: github.com/pakworks/qfs

package qfs

import (
	"errors"
	"fmt"
)

// Sentinel errors for VFS operations. Use errors.Is in callers.
//
// Errors wrapping ErrCorrupt are not recoverable: they mean the archive on
// disk (or the stream behind a handle) is malformed or truncated, and
// continuing to read from it would deliver corrupt data. Callers must
// discard the archive or handle involved. Everything else is an ordinary
// recoverable failure.
var (
	// ErrCorrupt marks archive corruption or truncation.
	ErrCorrupt = errors.New("archive corrupt or truncated")
	// ErrInvalidHeader means the file is missing or has a bad container header.
	ErrInvalidHeader = fmt.Errorf("%w: missing or bad container header", ErrCorrupt)
	// ErrTooManyEntries means the directory exceeds the flat-archive entry cap.
	ErrTooManyEntries = fmt.Errorf("%w: directory exceeds maximum entry count", ErrCorrupt)
	// ErrNameTooLong means an entry name exceeds the directory record limit.
	ErrNameTooLong = fmt.Errorf("%w: entry name exceeds maximum length", ErrCorrupt)
	// ErrEntryTooLarge means an entry's uncompressed size is not representable.
	ErrEntryTooLarge = fmt.Errorf("%w: entry uncompressed size too large", ErrCorrupt)
	// ErrUnsupportedEntry means a ZIP entry uses a compression method or
	// feature other than store and DEFLATE.
	ErrUnsupportedEntry = fmt.Errorf("%w: unsupported zip entry", ErrCorrupt)

	// ErrNotFound means no search-path location satisfies the requested name.
	ErrNotFound = errors.New("file not found")
	// ErrSeekOutOfRange means a seek target lies outside the handle's window.
	ErrSeekOutOfRange = errors.New("seek target outside file window")
	// ErrClosed means the handle was already closed.
	ErrClosed = errors.New("handle already closed")
)
