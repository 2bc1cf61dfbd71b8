// SPDX-License-Identifier: MIT
// Copyright (c) 2026 Pakworks
// Source: github.com/pakworks/qfs

package qfs

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/woozymasta/pathrules"
)

// searchPath is one prioritized resolution location: a directory root or a
// registered archive, tagged with a caller-assigned path group id.
type searchPath struct {
	id      uint32
	dir     string
	archive int // registry id; 0 means directory-backed
}

// Options configures an FS facade.
type Options struct {
	// Registry supplies archive lookups. A private registry with default
	// options is created when nil.
	Registry *Registry
	// Restricted forbids names containing path separators in directory
	// lookups, confining demo/shareware content to the top level. Archive
	// lookups are unaffected.
	Restricted bool
	// Logger receives resolution diagnostics. Default is slog.Default().
	Logger *slog.Logger
	// QuietRules select names whose can't-find diagnostics are suppressed.
	// The default set covers optional companion files that are routinely
	// probed for and routinely absent: *.pcx, *.tga, *.lit, *.vis, *.ent.
	QuietRules []pathrules.Rule
}

// applyDefaults fills zero-valued options with defaults.
func (opts *Options) applyDefaults() {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	if opts.Registry == nil {
		opts.Registry = NewRegistry(RegistryOptions{Logger: opts.Logger})
	}

	if opts.QuietRules == nil {
		opts.QuietRules = []pathrules.Rule{
			{Action: pathrules.ActionInclude, Pattern: "*.pcx"},
			{Action: pathrules.ActionInclude, Pattern: "*.tga"},
			{Action: pathrules.ActionInclude, Pattern: "*.lit"},
			{Action: pathrules.ActionInclude, Pattern: "*.vis"},
			{Action: pathrules.ActionInclude, Pattern: "*.ent"},
		}
	}
}

// FS resolves logical file names against an ordered list of search locations
// and opens the matching backend. Locations added later take priority over
// earlier ones, so a patch archive mounted last overrides base content.
type FS struct {
	reg        *Registry
	paths      []searchPath // highest priority first
	restricted bool
	logger     *slog.Logger
	quiet      *pathrules.Matcher
}

// NewFS creates an FS facade with an empty search path.
func NewFS(opts Options) (*FS, error) {
	opts.applyDefaults()

	quiet, err := pathrules.NewMatcher(opts.QuietRules, pathrules.MatcherOptions{
		CaseInsensitive: true,
		DefaultAction:   pathrules.ActionExclude,
	})
	if err != nil {
		return nil, fmt.Errorf("compile quiet rules: %w", err)
	}

	return &FS{
		reg:        opts.Registry,
		restricted: opts.Restricted,
		logger:     opts.Logger,
		quiet:      quiet,
	}, nil
}

// Registry returns the registry backing this FS.
func (fs *FS) Registry() *Registry {
	return fs.reg
}

// AddDirectory prepends a directory search location tagged with pathID.
func (fs *FS) AddDirectory(dir string, pathID uint32) {
	fs.paths = append([]searchPath{{id: pathID, dir: dir}}, fs.paths...)
}

// AddArchive prepends an archive search location by registry id, tagged with
// pathID. The id must refer to a currently registered archive.
func (fs *FS) AddArchive(id int, pathID uint32) error {
	if fs.reg.Get(id) == nil {
		return fmt.Errorf("%w: archive id %d is not registered", ErrNotFound, id)
	}

	fs.paths = append([]searchPath{{id: pathID, archive: id}}, fs.paths...)
	return nil
}

// resolve walks the search-path list and opens the first location matching
// name (openFile false only probes for existence). On a miss it returns
// ErrNotFound after emitting a diagnostic, unless the name matches the
// quiet rules.
func (fs *FS) resolve(name string, openFile, independent bool) (*Handle, int64, uint32, error) {
	for _, sp := range fs.paths {
		if sp.archive != 0 {
			arch := fs.reg.Get(sp.archive)
			if arch == nil {
				return nil, -1, 0, fmt.Errorf("search path references freed archive id %d", sp.archive)
			}

			idx := arch.findEntry(name)
			if idx < 0 {
				continue
			}

			size := arch.entries[idx].Size
			if !openFile {
				return nil, size, sp.id, nil
			}

			h, err := arch.openEntry(idx, independent)
			if err != nil {
				return nil, -1, 0, err
			}

			return h, size, sp.id, nil
		}

		// Directory-backed location.
		if fs.restricted && strings.ContainsAny(name, `/\`) {
			continue
		}

		full := filepath.Join(sp.dir, filepath.FromSlash(name))
		fi, err := os.Stat(full)
		if err != nil || !fi.Mode().IsRegular() {
			continue
		}
		if !openFile {
			return nil, fi.Size(), sp.id, nil
		}

		h, err := openDisk(full)
		if err != nil {
			return nil, -1, 0, err
		}

		return h, fi.Size(), sp.id, nil
	}

	if !fs.quiet.Included(name, false) {
		fs.logger.Debug("can't find file", "name", name)
	}

	return nil, -1, 0, fmt.Errorf("%w: %s", ErrNotFound, name)
}

// Open opens name against the search path, returning the handle and the id
// of the search location that matched. Archive-backed handles borrow the
// archive's shared descriptor; see OpenIndependent when the handle must be
// usable concurrently with others from the same archive.
func (fs *FS) Open(name string) (*Handle, uint32, error) {
	h, _, pathID, err := fs.resolve(name, true, false)
	return h, pathID, err
}

// OpenIndependent is Open with a private descriptor: on an archive match the
// archive is cloned so the handle owns its own file descriptor and decode
// context.
func (fs *FS) OpenIndependent(name string) (*Handle, uint32, error) {
	h, _, pathID, err := fs.resolve(name, true, true)
	return h, pathID, err
}

// Exists reports whether name resolves against the search path, without
// opening anything, along with the matching path id.
func (fs *FS) Exists(name string) (bool, uint32) {
	_, size, pathID, err := fs.resolve(name, false, false)
	if err != nil || size < 0 {
		return false, 0
	}

	return true, pathID
}

// LoadFile reads the whole of name into memory. The returned slice's length
// is exactly the file size.
func (fs *FS) LoadFile(name string) ([]byte, uint32, error) {
	return fs.LoadFileAlloc(name, func(size int64) []byte {
		return make([]byte, size)
	})
}

// LoadFileAlloc is LoadFile with caller-controlled buffer placement: alloc
// receives the required size and must return a slice of at least that
// length, letting arena-style allocators place the data themselves. The
// returned slice is truncated to the file size.
func (fs *FS) LoadFileAlloc(name string, alloc func(size int64) []byte) ([]byte, uint32, error) {
	h, pathID, err := fs.Open(name)
	if err != nil {
		return nil, 0, err
	}
	defer func() { _ = h.Close() }()

	size := h.Size()
	buf := alloc(size)
	if int64(len(buf)) < size {
		return nil, 0, fmt.Errorf("allocator returned %d bytes for %s, %d needed", len(buf), name, size)
	}

	buf = buf[:size]
	if _, err := io.ReadFull(h, buf); err != nil {
		return nil, 0, fmt.Errorf("%w: error reading %s: %v", ErrCorrupt, name, err)
	}

	return buf, pathID, nil
}
