// SPDX-License-Identifier: MIT
// Copyright (c) 2026 Pakworks
// Source: github.com/pakworks/qfs

package qfs

import "io"

// storedBackend reads an uncompressed entry inside an archive, either a flat
// archive entry or a stored ZIP entry. The absolute physical offset is
// recomputed per read from the entry's content offset and the handle's
// position, so seeks are purely logical.
type storedBackend struct {
	// arch is the shared archive, or a private clone when owns is set.
	arch *Archive
	// idx is the entry index within the archive's directory.
	idx int
	// owns marks arch as a clone that must be released with the handle.
	owns bool
	// content is the absolute offset of the entry payload in the archive.
	content int64
}

// openStored opens entry idx as a plain archive-stored handle. With
// independent set, the archive is cloned so the handle has its own
// descriptor and can be used concurrently with other handles.
func (a *Archive) openStored(idx int, independent bool) (*Handle, error) {
	ref := a
	if independent {
		c, err := a.clone()
		if err != nil {
			return nil, err
		}
		ref = c
	}

	sb := &storedBackend{
		arch:    ref,
		idx:     idx,
		owns:    independent,
		content: ref.entries[idx].Offset,
	}

	return &Handle{be: sb}, nil
}

func (s *storedBackend) read(h *Handle, p []byte) (int, error) {
	// Never read past the entry's extent, whatever the caller asked for.
	avail := s.arch.entries[s.idx].Size - h.pos
	if avail <= 0 {
		return 0, nil
	}
	if int64(len(p)) > avail {
		p = p[:avail]
	}

	n, err := s.arch.file.ReadAt(p, s.content+h.pos)
	h.pos += int64(n)
	if err == io.EOF {
		err = nil
	}

	return n, err
}

// seek is logical only: the physical position is derived on the next read.
func (s *storedBackend) seek(_ *Handle, _ int64) error {
	return nil
}

func (s *storedBackend) size() int64 {
	return s.arch.entries[s.idx].Size
}

func (s *storedBackend) close() error {
	if !s.owns {
		return nil
	}

	return s.arch.close()
}
