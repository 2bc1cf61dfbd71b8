// SPDX-License-Identifier: MIT
// Copyright (c) 2026 Pakworks
// Source: github.com/pakworks/qfs

package qfs

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"log/slog"
	"os"
)

// loadPAK loads a flat "PACK" archive and builds its in-memory index.
//
// The on-disk layout is a 12-byte header (magic, directory offset, directory
// length, both little-endian int32) followed by entry content, with a
// directory of fixed 64-byte records at the declared offset. A nil archive
// with a nil error means the file had no entries and was discarded with a
// warning.
func loadPAK(path string, logger *slog.Logger) (*Archive, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open archive: %w", err)
	}

	var hdr [pakHeaderSize]byte
	if _, err := io.ReadFull(f, hdr[:]); err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("%w: %s is not a packfile", ErrInvalidHeader, path)
	}
	if string(hdr[0:4]) != pakMagic {
		_ = f.Close()
		return nil, fmt.Errorf("%w: %s is not a packfile", ErrInvalidHeader, path)
	}

	dirofs := int32(binary.LittleEndian.Uint32(hdr[4:8]))
	dirlen := int32(binary.LittleEndian.Uint32(hdr[8:12]))
	if dirofs < 0 || dirlen < 0 {
		_ = f.Close()
		return nil, fmt.Errorf("%w: invalid packfile %s (dirlen: %d, dirofs: %d)", ErrCorrupt, path, dirlen, dirofs)
	}
	if dirlen%pakRecordSize != 0 {
		_ = f.Close()
		return nil, fmt.Errorf("%w: directory length %d of %s is not a multiple of the record size", ErrCorrupt, dirlen, path)
	}

	numEntries := int(dirlen) / pakRecordSize
	if numEntries == 0 {
		logger.Warn("archive has no files, ignored", "archive", path)
		_ = f.Close()
		return nil, nil
	}
	if numEntries > maxPakEntries {
		_ = f.Close()
		return nil, fmt.Errorf("%w: %s has %d files", ErrTooManyEntries, path, numEntries)
	}

	dir := make([]byte, dirlen)
	if _, err := f.ReadAt(dir, int64(dirofs)); err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("%w: error reading directory of %s: %v", ErrCorrupt, path, err)
	}

	entries := make([]Entry, 0, numEntries)
	for i := 0; i < numEntries; i++ {
		rec := dir[i*pakRecordSize : (i+1)*pakRecordSize]
		name := rec[:maxEntryName]
		if j := bytes.IndexByte(name, 0); j >= 0 {
			name = name[:j]
		}

		entries = append(entries, Entry{
			Name:   string(name),
			Offset: int64(int32(binary.LittleEndian.Uint32(rec[56:60]))),
			Size:   int64(int32(binary.LittleEndian.Uint32(rec[60:64]))),
		})
	}

	fi, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("stat %s: %w", path, err)
	}

	return &Archive{
		file:     f,
		filename: path,
		entries:  entries,
		format:   FormatPAK,
		size:     fi.Size(),
	}, nil
}
