// SPDX-License-Identifier: MIT
// Copyright (c) 2026 Pakworks
// Source: github.com/pakworks/qfs

package qfs

import (
	"log/slog"
	"strings"
	"sync"
)

// RegistryOptions configures a Registry.
type RegistryOptions struct {
	// Capacity is the number of archive slots. Default is DefaultMaxArchives.
	Capacity int
	// Logger receives load diagnostics. Default is slog.Default().
	Logger *slog.Logger
}

// applyDefaults fills zero-valued registry options with defaults.
func (opts *RegistryOptions) applyDefaults() {
	if opts.Capacity <= 0 {
		opts.Capacity = DefaultMaxArchives
	}

	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
}

// Registry is a fixed-capacity slot table of loaded archives, addressed by
// small integer ids. Id 0 is reserved and always means "no archive". The
// table is guarded by an internal mutex, so registration and lookup are safe
// from multiple goroutines; the handles opened from a registered archive are
// not (see Handle).
type Registry struct {
	mu     sync.Mutex
	slots  []*Archive
	logger *slog.Logger
}

// NewRegistry creates an empty registry.
func NewRegistry(opts RegistryOptions) *Registry {
	opts.applyDefaults()

	return &Registry{
		slots:  make([]*Archive, opts.Capacity+1),
		logger: opts.Logger,
	}
}

// Load opens the archive at path, detecting the container format by file
// extension (".pk3" and ".zip" load as ZIP, everything else as a flat
// packfile), and registers it. It returns the archive id, or 0 when the
// archive had no usable entries or the registry is full; callers must treat
// 0 as "not loaded" and never retry.
func (r *Registry) Load(path string) (int, error) {
	var (
		a   *Archive
		err error
	)

	switch ext := fileExtension(path); {
	case strings.EqualFold(ext, "pk3") || strings.EqualFold(ext, "zip"):
		a, err = loadZIP(path, r.logger)
	default:
		a, err = loadPAK(path, r.logger)
	}
	if err != nil {
		return 0, err
	}
	if a == nil {
		return 0, nil
	}

	return r.Register(a), nil
}

// Register adds an archive to the table and returns its id. When the table
// is full the archive is closed immediately and 0 is returned.
func (r *Registry) Register(a *Archive) int {
	r.mu.Lock()
	for i := 1; i < len(r.slots); i++ {
		if r.slots[i] == nil {
			r.slots[i] = a
			r.mu.Unlock()
			return i
		}
	}
	r.mu.Unlock()

	_ = a.close()
	r.logger.Warn("too many archives loaded", "archive", a.filename)
	return 0
}

// Get returns the archive registered under id, or nil.
func (r *Registry) Get(id int) *Archive {
	return r.lookup(id, false)
}

// take removes the archive from its slot and transfers ownership to the
// caller, who becomes responsible for closing it.
func (r *Registry) take(id int) *Archive {
	return r.lookup(id, true)
}

func (r *Registry) lookup(id int, unregister bool) *Archive {
	r.mu.Lock()
	defer r.mu.Unlock()

	if id <= 0 || id >= len(r.slots) {
		return nil
	}

	a := r.slots[id]
	if unregister {
		r.slots[id] = nil
	}

	return a
}

// Free closes the archive registered under id and releases its slot.
// Unknown ids are ignored.
func (r *Registry) Free(id int) {
	if a := r.take(id); a != nil {
		_ = a.close()
	}
}

// Shutdown closes every still-registered archive. Safe to call more than
// once; the registry remains usable afterwards.
func (r *Registry) Shutdown() {
	r.mu.Lock()
	defer r.mu.Unlock()

	for i := 1; i < len(r.slots); i++ {
		if r.slots[i] != nil {
			_ = r.slots[i].close()
			r.slots[i] = nil
		}
	}
}

// ArchiveName returns the file name of the archive under id, or "".
func (r *Registry) ArchiveName(id int) string {
	return r.Get(id).Filename()
}

// NumEntries returns the entry count of the archive under id, or 0.
func (r *Registry) NumEntries(id int) int {
	return r.Get(id).NumEntries()
}

// EntryName returns the name of entry idx in the archive under id, or "".
func (r *Registry) EntryName(id, idx int) string {
	a := r.Get(id)
	if a == nil || idx < 0 || idx >= len(a.entries) {
		return ""
	}

	return a.entries[idx].Name
}

// EntrySize returns the uncompressed size of entry idx in the archive under
// id, or 0.
func (r *Registry) EntrySize(id, idx int) int64 {
	a := r.Get(id)
	if a == nil || idx < 0 || idx >= len(a.entries) {
		return 0
	}

	return a.entries[idx].Size
}
