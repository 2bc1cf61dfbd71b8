// SPDX-License-Identifier: MIT
// Copyright (c) 2026 Pakworks
// Source: github.com/pakworks/qfs

package qfs

import (
	"fmt"
	"io"
)

// backend is the physical-coordinate contract shared by the disk,
// archive-stored, and archive-deflated variants. Backends never see the
// window: length clamping and offset translation happen on the Handle, and
// backends read, reposition, and report sizes in raw physical terms.
//
// read and seek receive the handle so they can advance its physical
// position; the remaining bookkeeping stays backend-private.
type backend interface {
	read(h *Handle, p []byte) (int, error)
	seek(h *Handle, pos int64) error
	size() int64
	close() error
}

// Handle is the per-open file object through which callers read disk or
// archive content. All offsets observed through a Handle are relative to its
// window, the [start, size-endtrim) sub-range of the backend's physical
// extent. A freshly opened handle has an unrestricted window.
//
// A Handle is not safe for concurrent use. Handles opened from the same
// archive without the independent option share one descriptor and decode
// context; open independently when two handles must be used from separate
// goroutines.
type Handle struct {
	be      backend
	pos     int64 // physical read position
	start   int64 // bytes trimmed from the physical start
	endtrim int64 // bytes trimmed from the physical end
}

// Read reads up to len(p) bytes from the current position, never crossing
// the window end. At the end of the window it returns 0 and io.EOF; short
// reads before that are not an error.
func (h *Handle) Read(p []byte) (int, error) {
	if h == nil || h.be == nil {
		return 0, ErrClosed
	}
	if len(p) == 0 {
		return 0, nil
	}

	limit := h.be.size() - h.endtrim
	avail := limit - h.pos
	if avail <= 0 {
		return 0, io.EOF
	}
	if int64(len(p)) > avail {
		p = p[:avail]
	}

	n, err := h.be.read(h, p)
	if err == nil && n == 0 {
		err = io.EOF
	}

	return n, err
}

// Seek repositions the handle within its window. The offset is interpreted
// against the window start, current position, or window end per whence, and
// the new logical offset is returned. Targets outside the window fail with
// ErrSeekOutOfRange and leave the position unchanged.
//
// Seeking backward on a DEFLATE-compressed entry restarts decompression from
// the beginning of the entry and re-skips forward, so it costs O(target).
// Entries that need frequent backward seeks are better stored uncompressed.
func (h *Handle) Seek(offset int64, whence int) (int64, error) {
	if h == nil || h.be == nil {
		return 0, ErrClosed
	}

	size := h.be.size()
	var target int64
	switch whence {
	case io.SeekStart:
		target = h.start + offset
	case io.SeekCurrent:
		target = h.pos + offset
	case io.SeekEnd:
		target = size - h.endtrim + offset
	default:
		return 0, fmt.Errorf("%w: unknown whence %d", ErrSeekOutOfRange, whence)
	}

	if target < h.start || target > size-h.endtrim {
		return 0, fmt.Errorf("%w: offset %d whence %d", ErrSeekOutOfRange, offset, whence)
	}

	if err := h.be.seek(h, target); err != nil {
		return 0, err
	}

	h.pos = target
	return target - h.start, nil
}

// Tell returns the current logical offset within the window.
func (h *Handle) Tell() int64 {
	if h == nil || h.be == nil {
		return 0
	}

	return h.pos - h.start
}

// Size returns the length of the visible window.
func (h *Handle) Size() int64 {
	if h == nil || h.be == nil {
		return 0
	}

	return h.be.size() - h.start - h.endtrim
}

// EOF reports whether the position has reached the window end.
func (h *Handle) EOF() bool {
	if h == nil || h.be == nil {
		return true
	}

	return h.pos >= h.be.size()-h.endtrim
}

// Close releases the backend's resources. Closing an already closed handle
// is a no-op.
func (h *Handle) Close() error {
	if h == nil || h.be == nil {
		return nil
	}

	err := h.be.close()
	h.be = nil
	return err
}

// IgnoreBytes trims the visible window. With io.SeekStart the cut becomes
// the new start trim, except that a zero cut resets both trims; with
// io.SeekEnd the cut is trimmed from the window end. When the trim leaves
// the current position outside the window it is moved to the nearest window
// boundary. Reports whether the window was changed.
func (h *Handle) IgnoreBytes(cut int64, whence int) bool {
	if h == nil || h.be == nil || cut < 0 {
		return false
	}

	size := h.be.size()
	switch {
	case whence == io.SeekStart && cut == 0:
		h.start, h.endtrim = 0, 0
	case whence == io.SeekStart && cut <= size-h.endtrim:
		h.start = cut
	case whence == io.SeekEnd && cut <= size-h.start:
		h.endtrim = cut
	default:
		return false
	}

	if h.pos < h.start {
		if h.be.seek(h, h.start) != nil {
			return false
		}
		h.pos = h.start
	} else if h.pos > size-h.endtrim {
		if h.be.seek(h, size-h.endtrim) != nil {
			return false
		}
		h.pos = size - h.endtrim
	}

	return true
}

// ReadChar reads a single byte, reporting false at the end of the window.
func (h *Handle) ReadChar() (byte, bool) {
	var b [1]byte
	if n, _ := h.Read(b[:]); n != 1 {
		return 0, false
	}

	return b[0], true
}

// ReadLine reads one line into buf, dropping carriage returns and stopping
// at a newline (not stored), a NUL byte, a full buffer, or the end of the
// window. It returns the number of bytes written.
func (h *Handle) ReadLine(buf []byte) int {
	o := 0
	for o < len(buf) {
		ch, ok := h.ReadChar()
		if !ok || ch == '\n' || ch == 0 {
			break
		}
		if ch != '\r' {
			buf[o] = ch
			o++
		}
	}

	return o
}
