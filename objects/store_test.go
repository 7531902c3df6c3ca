// Copyright 2012 Rémy Oudompheng. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package objects

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/arourke/gitkit/internal/zlibstream"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, Init(dir))
	return NewStore(dir)
}

func TestStoreWriteReadRoundTrip(t *testing.T) {
	s := newTestStore(t)
	b := Blob{Data: []byte("hello world\n")}
	canonical := Canonical(b)

	h, err := s.Write(canonical)
	require.NoError(t, err)
	require.Equal(t, "3b18e512dba79e4c8300dd08aeb37f8e728b8dad", h.String())

	got, err := s.Read(h)
	require.NoError(t, err)
	require.Equal(t, canonical, got)
}

func TestStoreWritePath(t *testing.T) {
	s := newTestStore(t)
	h, err := s.Write(Canonical(Blob{}))
	require.NoError(t, err)

	hex := h.String()
	want := filepath.Join(s.root, hex[:2], hex[2:])
	_, err = os.Stat(want)
	require.NoError(t, err)
}

func TestStoreWriteIsIdempotent(t *testing.T) {
	s := newTestStore(t)
	canonical := Canonical(Blob{Data: []byte("x")})

	h1, err := s.Write(canonical)
	require.NoError(t, err)
	info1, err := os.Stat(s.path(h1))
	require.NoError(t, err)

	h2, err := s.Write(canonical)
	require.NoError(t, err)
	info2, err := os.Stat(s.path(h2))
	require.NoError(t, err)

	require.Equal(t, h1, h2)
	require.Equal(t, info1.ModTime(), info2.ModTime(), "rewriting an existing object must not touch the file")
}

func TestStoreReadNotFound(t *testing.T) {
	s := newTestStore(t)
	var h Hash
	_, err := s.Read(h)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestStoreReadCorrupt(t *testing.T) {
	s := newTestStore(t)
	var h Hash
	p := s.path(h)
	require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
	require.NoError(t, os.WriteFile(p, []byte("not zlib data"), 0o444))

	_, err := s.Read(h)
	require.ErrorIs(t, err, ErrCorrupt)
}

func TestStoreReadVerifiedDetectsTampering(t *testing.T) {
	s := newTestStore(t)
	h, err := s.Write(Canonical(Blob{Data: []byte("original")}))
	require.NoError(t, err)

	// Overwrite the stored bytes with a different object's compressed
	// payload while keeping the path keyed on the original hash.
	otherCanonical := Canonical(Blob{Data: []byte("tampered")})
	require.NoError(t, os.Remove(s.path(h)))
	require.NoError(t, writeAtomic(s.path(h), mustDeflate(t, otherCanonical)))

	_, err = s.ReadVerified(h)
	require.ErrorIs(t, err, ErrHashMismatch)
}

func TestWriteObjectAndReadObject(t *testing.T) {
	s := newTestStore(t)
	b := Blob{Data: []byte("content")}
	h, err := s.WriteObject(b)
	require.NoError(t, err)

	obj, err := s.ReadObject(h)
	require.NoError(t, err)
	require.Equal(t, h, obj.ID())
	require.Equal(t, BLOB, obj.Type())
}

func mustDeflate(t *testing.T, b []byte) []byte {
	t.Helper()
	out, err := zlibstream.Deflate(b)
	require.NoError(t, err)
	return out
}
