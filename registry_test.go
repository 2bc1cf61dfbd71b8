// SPDX-License-Identifier: MIT
// Copyright (c) 2026 Pakworks
// Source: github.com/pakworks/qfs

package qfs

import (
	"path/filepath"
	"testing"

	"github.com/klauspost/compress/zip"
)

func writeTestPak(t *testing.T, dir, name string) string {
	t.Helper()

	path := filepath.Join(dir, name)
	writePAK(t, path, []pakEntrySpec{{name: "gfx/conback.lmp", data: []byte("console")}})
	return path
}

func TestRegistry_SlotAssignmentAndCapacity(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	r := NewRegistry(RegistryOptions{Capacity: 2, Logger: testLogger()})
	defer r.Shutdown()

	id1, err := r.Load(writeTestPak(t, dir, "pak0.pak"))
	if err != nil || id1 != 1 {
		t.Fatalf("first Load=%d,%v, want 1", id1, err)
	}
	id2, err := r.Load(writeTestPak(t, dir, "pak1.pak"))
	if err != nil || id2 != 2 {
		t.Fatalf("second Load=%d,%v, want 2", id2, err)
	}

	// Table full: the archive is rejected with id 0, not an error.
	id3, err := r.Load(writeTestPak(t, dir, "pak2.pak"))
	if err != nil || id3 != 0 {
		t.Fatalf("overflow Load=%d,%v, want 0,nil", id3, err)
	}
}

func TestRegistry_FreeReleasesSlotForReuse(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	r := NewRegistry(RegistryOptions{Capacity: 2, Logger: testLogger()})
	defer r.Shutdown()

	id1, _ := r.Load(writeTestPak(t, dir, "pak0.pak"))
	if _, err := r.Load(writeTestPak(t, dir, "pak1.pak")); err != nil {
		t.Fatal(err)
	}

	r.Free(id1)
	if r.Get(id1) != nil {
		t.Fatal("freed id still resolves")
	}

	id3, err := r.Load(writeTestPak(t, dir, "pak2.pak"))
	if err != nil || id3 != id1 {
		t.Fatalf("Load after Free=%d,%v, want reused slot %d", id3, err, id1)
	}
}

func TestRegistry_FreeUnknownIDIgnored(t *testing.T) {
	t.Parallel()

	r := NewRegistry(RegistryOptions{Capacity: 2, Logger: testLogger()})
	r.Free(0)
	r.Free(-1)
	r.Free(99)
}

func TestRegistry_GetInvalidIDs(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	r := NewRegistry(RegistryOptions{Logger: testLogger()})
	defer r.Shutdown()

	if _, err := r.Load(writeTestPak(t, dir, "pak0.pak")); err != nil {
		t.Fatal(err)
	}

	for _, id := range []int{0, -1, 999} {
		if r.Get(id) != nil {
			t.Fatalf("Get(%d) returned an archive", id)
		}
	}
}

func TestRegistry_ShutdownIdempotent(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	r := NewRegistry(RegistryOptions{Logger: testLogger()})

	id, err := r.Load(writeTestPak(t, dir, "pak0.pak"))
	if err != nil {
		t.Fatal(err)
	}

	r.Shutdown()
	if r.Get(id) != nil {
		t.Fatal("archive survives Shutdown")
	}
	r.Shutdown()

	// The registry stays usable after Shutdown.
	id, err = r.Load(writeTestPak(t, dir, "pak1.pak"))
	if err != nil || id != 1 {
		t.Fatalf("Load after Shutdown=%d,%v, want 1", id, err)
	}
	r.Shutdown()
}

func TestRegistry_Introspection(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "pak0.pak")
	writePAK(t, path, []pakEntrySpec{
		{name: "progs/player.mdl", data: []byte("model-bytes")},
		{name: "maps/start.bsp", data: []byte("bsp")},
	})

	r := NewRegistry(RegistryOptions{Logger: testLogger()})
	defer r.Shutdown()

	id, err := r.Load(path)
	if err != nil {
		t.Fatal(err)
	}

	if got := r.ArchiveName(id); got != path {
		t.Fatalf("ArchiveName=%q, want %q", got, path)
	}
	if got := r.NumEntries(id); got != 2 {
		t.Fatalf("NumEntries=%d, want 2", got)
	}
	if got := r.EntryName(id, 0); got != "progs/player.mdl" {
		t.Fatalf("EntryName(0)=%q", got)
	}
	if got := r.EntrySize(id, 1); got != 3 {
		t.Fatalf("EntrySize(1)=%d, want 3", got)
	}

	// Bad ids and indexes degrade to zero values.
	if r.ArchiveName(0) != "" || r.NumEntries(99) != 0 {
		t.Fatal("bad archive id must yield zero values")
	}
	if r.EntryName(id, 2) != "" || r.EntrySize(id, -1) != 0 {
		t.Fatal("bad entry index must yield zero values")
	}
}

func TestRegistry_LoadDispatchesByExtension(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	zpath := filepath.Join(dir, "pak0.PK3")
	writeZIP(t, zpath, []zipEntrySpec{{name: "env/sky.tga", data: []byte("sky"), method: zip.Store}})

	r := NewRegistry(RegistryOptions{Logger: testLogger()})
	defer r.Shutdown()

	id, err := r.Load(zpath)
	if err != nil || id == 0 {
		t.Fatalf("Load=%d,%v", id, err)
	}
	if r.Get(id).Format() != FormatZIP {
		t.Fatalf("Format=%v, want FormatZIP", r.Get(id).Format())
	}
}

func TestRegistry_LoadEmptyArchiveYieldsZero(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "empty.pak")
	writePAK(t, path, nil)

	r := NewRegistry(RegistryOptions{Logger: testLogger()})
	defer r.Shutdown()

	id, err := r.Load(path)
	if err != nil || id != 0 {
		t.Fatalf("Load of empty archive=%d,%v, want 0,nil", id, err)
	}
}
