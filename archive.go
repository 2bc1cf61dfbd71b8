// SPDX-License-Identifier: MIT
// Copyright (c) 2026 Pakworks
// Source: github.com/pakworks/qfs

package qfs

import (
	"fmt"
	"os"

	"github.com/klauspost/compress/zip"
)

// Archive is one loaded container file together with its directory index.
// An Archive owns its file descriptor; handles opened without the
// independent option borrow it, handles opened independently get a private
// clone with its own descriptor.
type Archive struct {
	// file is the physical descriptor backing payload reads.
	file *os.File
	// filename is the path the archive was loaded from, kept for reopening.
	filename string
	// entries is the in-memory directory index, shared between an archive
	// and its clones.
	entries []Entry
	// format selects the backend opener for this archive's entries.
	format Format
	// size is the physical archive size in bytes.
	size int64
	// zip is the central-directory decode context, ZIP archives only.
	zip *zip.Reader
}

// Filename returns the path the archive was loaded from.
func (a *Archive) Filename() string {
	if a == nil {
		return ""
	}

	return a.filename
}

// Format returns the archive's container format.
func (a *Archive) Format() Format {
	if a == nil {
		return 0
	}

	return a.format
}

// NumEntries returns the number of indexed entries.
func (a *Archive) NumEntries() int {
	if a == nil {
		return 0
	}

	return len(a.entries)
}

// Entries returns a copy of the directory index.
func (a *Archive) Entries() []Entry {
	if a == nil {
		return nil
	}

	entries := make([]Entry, len(a.entries))
	copy(entries, a.entries)
	return entries
}

// findEntry returns the index of the first entry named name, or -1. Matching
// is exact: the index stores whatever names the container carries.
func (a *Archive) findEntry(name string) int {
	for i := range a.entries {
		if a.entries[i].Name == name {
			return i
		}
	}

	return -1
}

// openEntry opens entry idx through the format-appropriate backend. With
// independent set, the handle gets a private descriptor clone so it can be
// used concurrently with other handles on the same archive.
func (a *Archive) openEntry(idx int, independent bool) (*Handle, error) {
	if idx < 0 || idx >= len(a.entries) {
		return nil, fmt.Errorf("%w: entry index %d in %s", ErrNotFound, idx, a.filename)
	}

	if a.format == FormatZIP {
		return a.openZIPEntry(idx, independent)
	}

	return a.openStored(idx, independent)
}

// clone produces a shallow copy with a fresh descriptor. The entry index is
// shared by reference; for ZIP archives a fresh central-directory reader is
// bound to the new descriptor.
func (a *Archive) clone() (*Archive, error) {
	f, err := os.Open(a.filename)
	if err != nil {
		return nil, fmt.Errorf("reopen %s: %w", a.filename, err)
	}

	c := &Archive{
		file:     f,
		filename: a.filename,
		entries:  a.entries,
		format:   a.format,
		size:     a.size,
	}
	if a.format == FormatZIP {
		zr, err := zip.NewReader(f, a.size)
		if err != nil {
			_ = f.Close()
			return nil, fmt.Errorf("%w: reopen %s: %v", ErrCorrupt, a.filename, err)
		}

		c.zip = zr
	}

	return c, nil
}

// close releases the archive's descriptor. The entry index may still be
// referenced by clones and stays valid.
func (a *Archive) close() error {
	if a == nil || a.file == nil {
		return nil
	}

	return a.file.Close()
}
