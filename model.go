// SPDX-License-Identifier: MIT
// Copyright (c) 2026 Pakworks
// Source: github.com/pakworks/qfs

package qfs

// Binary layout and format limits.
const (
	pakMagic      = "PACK" // flat archive magic id
	pakHeaderSize = 12     // magic[4] + dirofs + dirlen
	pakRecordSize = 64     // name[56] + filepos + filelen
	maxEntryName  = 56     // directory record name field, including the NUL
	maxPakEntries = 2048   // directory entry cap for flat archives
)

// DefaultMaxArchives is the default registry capacity. Slot 0 is reserved so
// id 0 can mean "no archive".
const DefaultMaxArchives = 32

// Inflate session buffer bounds. The output buffer size is fixed; the input
// buffer shrinks to the compressed size for small entries.
const (
	inflateOutBufSize = 64 * 1024
	inflateInBufSize  = inflateOutBufSize / 2
)

// Format identifies the container layout of a loaded archive.
type Format int

// Supported container formats.
const (
	// FormatPAK is the flat "PACK" table-of-contents container.
	FormatPAK Format = iota + 1
	// FormatZIP is the ZIP-style container with stored or DEFLATE entries.
	FormatZIP
)

// Entry is one named, sized item inside an Archive. Names are unique by
// convention only; lookups return the first match.
type Entry struct {
	// Name is the entry path as stored in the archive index.
	Name string
	// Offset is the absolute content offset for flat archives. For ZIP
	// archives it is the central-directory index; the content offset of a
	// ZIP entry is resolved lazily from its local file header at open time.
	Offset int64
	// Size is the uncompressed entry length in bytes.
	Size int64
}
