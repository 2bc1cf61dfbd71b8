// SPDX-License-Identifier: MIT
// Copyright (c) 2026 Pakworks
// Source: github.com/pakworks/qfs

/*
Package qfs implements a read-only virtual file system in the style of
classic id Tech engines: logical file names resolve against an ordered list
of search locations, which may be plain directories or mounted archives, and
every match is read through one uniform handle abstraction.

Two container formats are supported:

  - flat "PACK" archives with a fixed directory of name/offset/length
    records;
  - ZIP-style archives, limited to entries that are stored uncompressed or
    compressed with the regular DEFLATE method.

DEFLATE entries are decompressed through a bounded double-buffer streaming
session, so reading the first bytes of a large compressed entry never
inflates the whole thing. Forward seeks skip through the stream; backward
seeks restart it from the beginning of the entry and cost O(target).

# Mounting and resolution

Archives live in a fixed-capacity Registry and are addressed by small
integer ids (0 always means "no archive"). An FS walks its search locations
highest priority first, so content mounted later overrides content mounted
earlier:

	fsys, err := qfs.NewFS(qfs.Options{})
	if err != nil {
	    return err
	}
	reg := fsys.Registry()
	defer reg.Shutdown()

	fsys.AddDirectory("basegame", 1)
	if id, err := reg.Load("basegame/pak0.pak"); err == nil && id != 0 {
	    _ = fsys.AddArchive(id, 1)
	}

	h, _, err := fsys.Open("sound/ambience/water1.wav")
	if err != nil {
	    return err
	}
	defer h.Close()

# Handles

A Handle supports Read, Seek, Tell, Size, EOF, and Close regardless of
which backend satisfied the open. IgnoreBytes trims the visible window from
either end, which is how callers skip container headers or cut trailing
metadata without copying; all offsets observed through the handle stay
relative to the window.

Handles opened with Open share the archive's file descriptor and must not be
used concurrently with other handles from the same archive. OpenIndependent
clones the archive descriptor per handle, which makes concurrent reads from
one archive safe:

	a, _, err := fsys.OpenIndependent("music/track02.ogg")

Whole-file loads size the buffer exactly and can delegate placement to an
arena-style allocator:

	data, _, err := fsys.LoadFile("maps/e1m1.bsp")
	data, _, err = fsys.LoadFileAlloc("maps/e1m1.bsp", hunk.Alloc)

# Errors

Failures come in two tiers. Errors wrapping ErrCorrupt mean the archive
itself is malformed or truncated; continuing to read from it would deliver
corrupt data, so callers must discard the archive or handle involved.
Everything else is recoverable: ErrNotFound from resolution,
ErrSeekOutOfRange from a seek outside the window, io.EOF at the end of a
handle's window.
*/
package qfs
