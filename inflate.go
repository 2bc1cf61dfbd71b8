// SPDX-License-Identifier: MIT
// Copyright (c) 2026 Pakworks
// Source: github.com/pakworks/qfs

package qfs

import (
	"errors"
	"fmt"
	"io"

	"github.com/klauspost/compress/flate"
)

// decompressor is the stream decode primitive behind an inflate session. It
// turns the bytes the session feeds it into decompressed output and reports
// io.EOF at the end of the stream. flate satisfies it; tests substitute a
// fake to exercise the session state machine without real DEFLATE data.
type decompressor interface {
	io.ReadCloser
	Reset(r io.Reader, dict []byte) error
}

// flateDecompressor adapts a flate reader to the decompressor contract.
type flateDecompressor struct {
	io.ReadCloser
}

func newFlateDecompressor(r io.Reader) decompressor {
	return flateDecompressor{ReadCloser: flate.NewReader(r)}
}

func (d flateDecompressor) Reset(r io.Reader, dict []byte) error {
	return d.ReadCloser.(flate.Resetter).Reset(r, dict)
}

// sessionState names the phase an inflate session rests in between calls.
type sessionState int

const (
	// stateIdle: both buffers empty, more compressed input ahead.
	stateIdle sessionState = iota
	// stateRefilling: transient, input or output buffer being refilled.
	stateRefilling
	// stateDraining: decompressed bytes are buffered but not yet delivered.
	stateDraining
	// stateAtEnd: the stream is fully decompressed and fully delivered.
	stateAtEnd
)

// inflateSession is the bounded double-buffer state used to stream one
// DEFLATE-compressed entry. Compressed bytes are pulled from the archive in
// input-buffer-sized chunks; decompressed bytes accumulate in the output
// buffer until the caller drains them.
//
// Invariants between calls: out holds pOut-outRead undelivered decompressed
// bytes; in holds readszIn-pIn unconsumed compressed bytes; foffsIn is the
// next physical input offset relative to the content start; foffsOut counts
// every decompressed byte produced so far.
type inflateSession struct {
	in  []byte // compressed input buffer
	out []byte // decompressed output buffer

	pIn      int   // bytes consumed from in
	readszIn int   // valid bytes in in
	pOut     int   // bytes produced into out
	outRead  int   // bytes delivered to the caller from out
	foffsIn  int64 // physical input cursor, relative to the content start
	foffsOut int64 // total decompressed bytes produced

	eof   bool // decompressor reported end of stream
	state sessionState

	dec      decompressor
	src      io.ReaderAt // archive descriptor
	base     int64       // absolute content offset in the archive
	compSize int64       // compressed entry size
	name     string      // entry name, for error context
	archname string      // archive file name, for error context
}

// sessionInput is the io.Reader the decompressor pulls compressed bytes
// from. It serves from the session's input buffer, refilling it from the
// archive on demand. It also implements io.ByteReader so flate does not
// interpose its own buffering and desynchronize the session's cursors.
type sessionInput inflateSession

func (in *sessionInput) Read(p []byte) (int, error) {
	s := (*inflateSession)(in)
	if s.pIn >= s.readszIn {
		if err := s.refill(); err != nil {
			return 0, err
		}
		if s.readszIn == 0 {
			return 0, io.EOF
		}
	}

	n := copy(p, s.in[s.pIn:s.readszIn])
	s.pIn += n
	return n, nil
}

func (in *sessionInput) ReadByte() (byte, error) {
	s := (*inflateSession)(in)
	if s.pIn >= s.readszIn {
		if err := s.refill(); err != nil {
			return 0, err
		}
		if s.readszIn == 0 {
			return 0, io.EOF
		}
	}

	b := s.in[s.pIn]
	s.pIn++
	return b, nil
}

// refill reads the next compressed chunk into the input buffer. A short
// physical read means the archive was truncated under us and is fatal for
// the stream.
func (s *inflateSession) refill() error {
	s.state = stateRefilling
	want := int64(len(s.in))
	if rem := s.compSize - s.foffsIn; rem < want {
		want = rem
	}
	if want <= 0 {
		s.pIn, s.readszIn = 0, 0
		return nil
	}

	n, err := s.src.ReadAt(s.in[:want], s.base+s.foffsIn)
	if int64(n) != want {
		if err == nil {
			err = io.ErrUnexpectedEOF
		}
		return fmt.Errorf("%w: i/o error on %s in %s: %v", ErrCorrupt, s.name, s.archname, err)
	}

	s.pIn = 0
	s.readszIn = int(want)
	s.foffsIn += want
	return nil
}

// settle records the resting state implied by the cursors.
func (s *inflateSession) settle() {
	switch {
	case s.eof && s.pOut == 0:
		s.state = stateAtEnd
	case s.pOut > s.outRead:
		s.state = stateDraining
	default:
		s.state = stateIdle
	}
}

// read copies up to want decompressed bytes into dst, pulling the
// decompressor as needed. A nil dst discards the bytes while still advancing
// the stream; forward seeks rely on that. A short count is returned without
// error only at the true end of the decompressed stream.
func (s *inflateSession) read(dst []byte, want int) (int, error) {
	if want <= 0 {
		return 0, nil
	}

	rd := 0
	for {
		if s.pOut > s.outRead || s.eof {
			// Drain undelivered output first.
			ncpy := s.pOut - s.outRead
			if rem := want - rd; ncpy > rem {
				ncpy = rem
			}
			if dst != nil {
				copy(dst[rd:rd+ncpy], s.out[s.outRead:s.outRead+ncpy])
			}
			rd += ncpy
			s.outRead += ncpy

			if s.outRead >= s.pOut {
				s.outRead, s.pOut = 0, 0
			}
			if rd >= want || (s.eof && s.pOut == 0) {
				s.settle()
				return rd, nil
			}
		}

		s.state = stateRefilling
		n, err := s.dec.Read(s.out[s.pOut:])
		s.pOut += n
		s.foffsOut += int64(n)
		switch {
		case err == io.EOF:
			s.eof = true
		case err != nil:
			s.settle()
			if errors.Is(err, ErrCorrupt) {
				return rd, err
			}
			return rd, fmt.Errorf("%w: failed to inflate %s in %s: %v", ErrCorrupt, s.name, s.archname, err)
		case n == 0:
			s.settle()
			return rd, fmt.Errorf("%w: inflating %s in %s made no progress", ErrCorrupt, s.name, s.archname)
		}
	}
}

// reset rewinds the session to the beginning of the entry: all cursors
// cleared, decompressor state reinitialized.
func (s *inflateSession) reset() error {
	s.pIn, s.readszIn = 0, 0
	s.pOut, s.outRead = 0, 0
	s.foffsIn, s.foffsOut = 0, 0
	s.eof = false
	s.state = stateIdle

	return s.dec.Reset((*sessionInput)(s), nil)
}

// deflateBackend reads a DEFLATE-compressed ZIP entry through an inflate
// session. It reuses the stored backend's archive reference and ownership
// for descriptor lifetime; all positioning runs through the session.
type deflateBackend struct {
	stored *storedBackend
	sess   *inflateSession
}

func (d *deflateBackend) read(h *Handle, p []byte) (int, error) {
	n, err := d.sess.read(p, len(p))
	h.pos += int64(n)
	return n, err
}

// seek handles the three cases in priority order: the target still lies in
// the output buffer (cursor move only), the target is ahead of everything
// buffered (synthesized forward skip), or the target is behind the buffered
// window (full restart, then a forward skip from zero).
func (d *deflateBackend) seek(h *Handle, pos int64) error {
	s := d.sess
	bufStart := h.pos - int64(s.outRead)

	switch {
	case pos >= bufStart && pos-bufStart <= int64(s.pOut):
		s.outRead = int(pos - bufStart)
		s.settle()
		return nil
	case pos > bufStart+int64(s.pOut):
		return d.skip(h, pos)
	default:
		if err := s.reset(); err != nil {
			return fmt.Errorf("%w: reset inflate of %s in %s: %v", ErrCorrupt, s.name, s.archname, err)
		}
		h.pos = 0
		return d.skip(h, pos)
	}
}

// skip advances the decompressed stream to pos, discarding output. Running
// out of stream before reaching pos is a failure.
func (d *deflateBackend) skip(h *Handle, pos int64) error {
	want := pos - h.pos
	n, err := d.sess.read(nil, int(want))
	h.pos += int64(n)
	if err != nil {
		return err
	}
	if int64(n) != want {
		return fmt.Errorf("%w: %s in %s ended %d bytes short of seek target", ErrSeekOutOfRange, d.sess.name, d.sess.archname, want-int64(n))
	}

	return nil
}

func (d *deflateBackend) size() int64 {
	return d.stored.size()
}

func (d *deflateBackend) close() error {
	err := d.sess.dec.Close()
	if cerr := d.stored.close(); err == nil {
		err = cerr
	}

	return err
}
