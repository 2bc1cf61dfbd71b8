// SPDX-License-Identifier: MIT
// Copyright (c) 2026 Pakworks
// Source: github.com/pakworks/qfs

package qfs

import (
	"bytes"
	"errors"
	"io"
	"testing"

	"github.com/klauspost/compress/flate"
)

// fakeDecompressor feeds predetermined "decompressed" bytes in bounded
// chunks, so session tests control exactly how much each pull produces.
type fakeDecompressor struct {
	data   []byte
	pos    int
	chunk  int
	resets int
}

func (f *fakeDecompressor) Read(p []byte) (int, error) {
	if f.pos >= len(f.data) {
		return 0, io.EOF
	}

	n := f.chunk
	if n > len(p) {
		n = len(p)
	}
	if rem := len(f.data) - f.pos; n > rem {
		n = rem
	}

	copy(p, f.data[f.pos:f.pos+n])
	f.pos += n
	return n, nil
}

func (f *fakeDecompressor) Close() error {
	return nil
}

func (f *fakeDecompressor) Reset(io.Reader, []byte) error {
	f.pos = 0
	f.resets++
	return nil
}

func newFakeSession(data []byte, outCap, chunk int) (*inflateSession, *fakeDecompressor) {
	dec := &fakeDecompressor{data: data, chunk: chunk}
	return &inflateSession{
		out:      make([]byte, outCap),
		dec:      dec,
		name:     "fake.bin",
		archname: "fake.pak",
	}, dec
}

func TestInflateSession_StateTransitions(t *testing.T) {
	t.Parallel()

	data := makePlaintext(40)
	s, _ := newFakeSession(data, 16, 64)

	if s.state != stateIdle {
		t.Fatalf("initial state=%v, want idle", s.state)
	}

	// Partial drain of a full output buffer leaves bytes pending.
	dst := make([]byte, 10)
	n, err := s.read(dst, 10)
	if n != 10 || err != nil {
		t.Fatalf("read=%d,%v", n, err)
	}
	if s.state != stateDraining {
		t.Fatalf("state=%v after partial drain, want draining", s.state)
	}
	if !bytes.Equal(dst, data[:10]) {
		t.Fatal("first drain delivered wrong bytes")
	}

	// Draining the rest of the buffer empties it.
	n, err = s.read(dst[:6], 6)
	if n != 6 || err != nil {
		t.Fatalf("read=%d,%v", n, err)
	}
	if s.state != stateIdle {
		t.Fatalf("state=%v after full drain, want idle", s.state)
	}
	if !bytes.Equal(dst[:6], data[10:16]) {
		t.Fatal("second drain delivered wrong bytes")
	}

	// Asking for more than remains returns a short count with no error and
	// parks the session at the end of the stream.
	rest := make([]byte, 100)
	n, err = s.read(rest, 100)
	if err != nil {
		t.Fatalf("read at end: %v", err)
	}
	if n != 24 {
		t.Fatalf("read=%d at end, want 24", n)
	}
	if s.state != stateAtEnd {
		t.Fatalf("state=%v after exhausting the stream, want at-end", s.state)
	}
	if !bytes.Equal(rest[:24], data[16:]) {
		t.Fatal("tail bytes mismatch")
	}

	// Further reads deliver nothing, still without error.
	if n, err := s.read(dst, 10); n != 0 || err != nil {
		t.Fatalf("read past end=%d,%v", n, err)
	}
}

func TestInflateSession_DiscardAdvancesStream(t *testing.T) {
	t.Parallel()

	data := makePlaintext(200)
	s, _ := newFakeSession(data, 32, 32)

	n, err := s.read(nil, 150)
	if n != 150 || err != nil {
		t.Fatalf("discard read=%d,%v", n, err)
	}
	if s.foffsOut < 150 {
		t.Fatalf("foffsOut=%d after discarding 150, want >= 150", s.foffsOut)
	}

	// The next delivered bytes come from past the discarded range.
	dst := make([]byte, 20)
	if n, err := s.read(dst, 20); n != 20 || err != nil {
		t.Fatalf("read=%d,%v", n, err)
	}
	if !bytes.Equal(dst, data[150:170]) {
		t.Fatal("bytes after discard are misaligned")
	}
}

func TestInflateSession_ResetRestartsStream(t *testing.T) {
	t.Parallel()

	data := makePlaintext(100)
	s, dec := newFakeSession(data, 32, 32)

	if n, err := s.read(nil, 80); n != 80 || err != nil {
		t.Fatalf("read=%d,%v", n, err)
	}

	if err := s.reset(); err != nil {
		t.Fatalf("reset: %v", err)
	}
	if dec.resets != 1 {
		t.Fatalf("decompressor resets=%d, want 1", dec.resets)
	}
	if s.state != stateIdle || s.eof || s.pOut != 0 || s.outRead != 0 || s.foffsOut != 0 {
		t.Fatal("reset left cursors dirty")
	}

	got := make([]byte, 100)
	if n, err := s.read(got, 100); n != 100 || err != nil {
		t.Fatalf("read after reset=%d,%v", n, err)
	}
	if !bytes.Equal(got, data) {
		t.Fatal("stream after reset differs")
	}
}

// stuckDecompressor returns (0, nil) forever.
type stuckDecompressor struct{}

func (stuckDecompressor) Read([]byte) (int, error) { return 0, nil }

func (stuckDecompressor) Close() error { return nil }

func (stuckDecompressor) Reset(io.Reader, []byte) error { return nil }

func TestInflateSession_NoProgressIsCorrupt(t *testing.T) {
	t.Parallel()

	s := &inflateSession{
		out:      make([]byte, 16),
		dec:      stuckDecompressor{},
		name:     "stuck.bin",
		archname: "stuck.pak",
	}

	_, err := s.read(make([]byte, 8), 8)
	if !errors.Is(err, ErrCorrupt) {
		t.Fatalf("expected ErrCorrupt on a stalled decompressor, got %v", err)
	}
}

func TestInflateSession_RefillShortReadIsCorrupt(t *testing.T) {
	t.Parallel()

	// The directory promises 20 compressed bytes but the file only has 10.
	s := &inflateSession{
		in:       make([]byte, 16),
		src:      bytes.NewReader(make([]byte, 10)),
		compSize: 20,
		name:     "trunc.bin",
		archname: "trunc.pak",
	}

	if err := s.refill(); !errors.Is(err, ErrCorrupt) {
		t.Fatalf("expected ErrCorrupt on truncated input, got %v", err)
	}
}

func TestSessionInput_BoundedByCompressedSize(t *testing.T) {
	t.Parallel()

	// Physical file holds 100 bytes but the entry only owns the first 5;
	// the decompressor's input view must end there.
	s := &inflateSession{
		in:       make([]byte, 8),
		src:      bytes.NewReader([]byte("abcdeXXXXXXXXXX")),
		compSize: 5,
	}
	in := (*sessionInput)(s)

	got, err := io.ReadAll(in)
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != "abcde" {
		t.Fatalf("input view read %q, want %q", got, "abcde")
	}

	if _, err := in.ReadByte(); err != io.EOF {
		t.Fatalf("ReadByte past the entry: %v, want io.EOF", err)
	}
}

func TestInflateSession_RealFlateRoundTrip(t *testing.T) {
	t.Parallel()

	plain := makePlaintext(10000)

	var comp bytes.Buffer
	fw, err := flate.NewWriter(&comp, flate.DefaultCompression)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := fw.Write(plain); err != nil {
		t.Fatal(err)
	}
	if err := fw.Close(); err != nil {
		t.Fatal(err)
	}

	// Deliberately tiny buffers force many refill/drain cycles.
	s := &inflateSession{
		in:       make([]byte, 64),
		out:      make([]byte, 128),
		src:      bytes.NewReader(comp.Bytes()),
		compSize: int64(comp.Len()),
		name:     "round.txt",
		archname: "round.pk3",
	}
	s.dec = newFlateDecompressor((*sessionInput)(s))
	defer func() { _ = s.dec.Close() }()

	readAll := func() []byte {
		var got bytes.Buffer
		buf := make([]byte, 33)
		for {
			n, err := s.read(buf, len(buf))
			if err != nil {
				t.Fatalf("session read: %v", err)
			}
			got.Write(buf[:n])
			if n < len(buf) {
				return got.Bytes()
			}
		}
	}

	if got := readAll(); !bytes.Equal(got, plain) {
		t.Fatal("first pass did not reconstruct the plaintext")
	}
	if s.state != stateAtEnd {
		t.Fatalf("state=%v after first pass, want at-end", s.state)
	}

	if err := s.reset(); err != nil {
		t.Fatalf("reset: %v", err)
	}
	if got := readAll(); !bytes.Equal(got, plain) {
		t.Fatal("second pass after reset did not reconstruct the plaintext")
	}
}
