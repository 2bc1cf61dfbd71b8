// SPDX-License-Identifier: MIT
// Copyright (c) 2026 Pakworks
// Source: github.com/pakworks/qfs

package qfs

import (
	"fmt"
	"log/slog"
	"math"
	"os"

	"github.com/klauspost/compress/zip"
	"golang.org/x/text/encoding/charmap"
)

// loadZIP loads a ZIP-style archive by enumerating its central directory
// over the file descriptor. Directory-type entries are skipped; entry names
// stored in the legacy 8-bit code page (UTF-8 flag unset) are transcoded
// from IBM437, the long-standing convention for such archives. A nil archive
// with a nil error means no usable entries remained and the file was
// discarded with a warning.
//
// Compression methods are not validated here: the original directory only
// promises what the local file header confirms, so the method check happens
// when an entry is opened.
func loadZIP(path string, logger *slog.Logger) (*Archive, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open archive: %w", err)
	}

	fi, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("stat %s: %w", path, err)
	}

	zr, err := zip.NewReader(f, fi.Size())
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("%w: %s cannot be opened as a zip archive: %v", ErrInvalidHeader, path, err)
	}

	entries := make([]Entry, 0, len(zr.File))
	for i, zf := range zr.File {
		if zf.FileInfo().IsDir() {
			continue
		}
		if zf.UncompressedSize64 > math.MaxInt32 {
			_ = f.Close()
			return nil, fmt.Errorf("%w: %s in %s", ErrEntryTooLarge, zf.Name, path)
		}

		name := zf.Name
		if zf.NonUTF8 && !isASCII(name) {
			decoded, derr := charmap.CodePage437.NewDecoder().String(name)
			if derr == nil {
				name = decoded
			}
		}
		if len(name) >= maxEntryName {
			_ = f.Close()
			return nil, fmt.Errorf("%w: %s in %s", ErrNameTooLong, name, path)
		}

		entries = append(entries, Entry{
			Name:   name,
			Offset: int64(i),
			Size:   int64(zf.UncompressedSize64),
		})
	}

	if len(entries) == 0 {
		logger.Warn("archive has no files, ignored", "archive", path)
		_ = f.Close()
		return nil, nil
	}

	return &Archive{
		file:     f,
		filename: path,
		entries:  entries,
		format:   FormatZIP,
		size:     fi.Size(),
		zip:      zr,
	}, nil
}

// openZIPEntry opens one ZIP entry. It builds the plain archive-stored
// handle first, resolves the entry's true content offset from its local file
// header, and only then decides whether the stored backend suffices or an
// inflate session is needed.
//
// The content offset is re-derived from the local header rather than trusted
// from the central directory because local header sizes vary between zip
// implementations.
func (a *Archive) openZIPEntry(idx int, independent bool) (*Handle, error) {
	h, err := a.openStored(idx, independent)
	if err != nil {
		return nil, err
	}

	sb := h.be.(*storedBackend)
	ref := sb.arch
	ent := &ref.entries[idx]
	zf := ref.zip.File[ent.Offset]

	if zf.Method != zip.Store && zf.Method != zip.Deflate {
		_ = sb.close()
		return nil, fmt.Errorf("%w: %s in %s uses method %d", ErrUnsupportedEntry, ent.Name, ref.filename, zf.Method)
	}

	// DataOffset validates the 4-byte local-header signature and skips the
	// variable-length filename and extra fields.
	contentOffset, err := zf.DataOffset()
	if err != nil {
		_ = sb.close()
		return nil, fmt.Errorf("%w: corrupt local header of %s in %s: %v", ErrCorrupt, ent.Name, ref.filename, err)
	}

	compSize := int64(zf.CompressedSize64)
	if contentOffset+compSize > ref.size {
		_ = sb.close()
		return nil, fmt.Errorf("%w: truncated zip file %s", ErrCorrupt, ref.filename)
	}

	sb.content = contentOffset
	if zf.Method == zip.Store {
		// Stored entry, plain archive reads apply.
		return h, nil
	}

	inSize := int64(inflateInBufSize)
	if compSize < inSize {
		inSize = compSize
	}

	sess := &inflateSession{
		in:       make([]byte, inSize),
		out:      make([]byte, inflateOutBufSize),
		src:      ref.file,
		base:     contentOffset,
		compSize: compSize,
		name:     ent.Name,
		archname: ref.filename,
	}
	sess.dec = newFlateDecompressor((*sessionInput)(sess))
	h.be = &deflateBackend{stored: sb, sess: sess}

	return h, nil
}
