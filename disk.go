// SPDX-License-Identifier: MIT
// Copyright (c) 2026 Pakworks
// Source: github.com/pakworks/qfs

package qfs

import (
	"fmt"
	"io"
	"os"
)

// diskBackend wraps a plain file on disk. Reads are sequential against the
// descriptor's own cursor; seeks reposition it absolutely.
type diskBackend struct {
	f    *os.File
	owns bool
}

// openDisk opens path as an unwindowed disk-backed handle.
func openDisk(path string) (*Handle, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}

	return &Handle{be: &diskBackend{f: f, owns: true}}, nil
}

func (d *diskBackend) read(h *Handle, p []byte) (int, error) {
	n, err := d.f.Read(p)
	h.pos += int64(n)
	if err == io.EOF {
		// A short read at the end of the file is not an error.
		err = nil
	}

	return n, err
}

func (d *diskBackend) seek(_ *Handle, pos int64) error {
	_, err := d.f.Seek(pos, io.SeekStart)
	return err
}

func (d *diskBackend) size() int64 {
	fi, err := d.f.Stat()
	if err != nil {
		return 0
	}

	return fi.Size()
}

func (d *diskBackend) close() error {
	if !d.owns {
		return nil
	}

	return d.f.Close()
}
