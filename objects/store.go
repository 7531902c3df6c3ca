// Copyright 2012 Rémy Oudompheng. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package objects

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/arourke/gitkit/internal/zlibstream"
)

var (
	ErrNotFound     = errors.New("gitkit: object not found")
	ErrCorrupt      = errors.New("gitkit: corrupt loose object")
	ErrHashMismatch = errors.New("gitkit: object hash mismatch")
)

// Store is a content-addressed, zlib-compressed object database rooted at
// a .git/objects directory, bit-exact compatible with existing Git
// repositories: the path for an object is derived purely from its hash,
// and the same hash always serializes to the same bytes.
type Store struct {
	root string // path to the "objects" directory
}

// NewStore opens (without creating) the object store rooted at objectsDir.
func NewStore(objectsDir string) *Store {
	return &Store{root: objectsDir}
}

// Init creates an empty objects directory, matching "git init"'s layout.
func Init(objectsDir string) error {
	return os.MkdirAll(objectsDir, 0o755)
}

func (s *Store) path(h Hash) string {
	hex := h.String()
	return filepath.Join(s.root, hex[:2], hex[2:])
}

// Read locates, inflates and returns the canonical bytes for h. It does
// not validate that sha1(canonical) == h; callers that need that
// guarantee should use ReadVerified.
func (s *Store) Read(h Hash) ([]byte, error) {
	raw, err := os.ReadFile(s.path(h))
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, h)
	}
	if err != nil {
		return nil, err
	}
	canonical, _, err := zlibstream.Inflate(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrCorrupt, h, err)
	}
	return canonical, nil
}

// ReadVerified is Read plus a hash check of the decompressed bytes.
func (s *Store) ReadVerified(h Hash) ([]byte, error) {
	canonical, err := s.Read(h)
	if err != nil {
		return nil, err
	}
	if got := Sum(canonical); got != h {
		return nil, fmt.Errorf("%w: reading %s: got %s", ErrHashMismatch, h, got)
	}
	return canonical, nil
}

// ReadObject reads, hash-verifies and parses the object stored at h. A
// loose object whose on-disk bytes no longer hash to their own path (disk
// corruption, or a hand-edited repository) is reported as ErrHashMismatch
// rather than silently parsed.
func (s *Store) ReadObject(h Hash) (Object, error) {
	canonical, err := s.ReadVerified(h)
	if err != nil {
		return nil, err
	}
	return ParseCanonical(canonical)
}

// Write computes the hash of canonical, deflates it, and stores it at the
// content-addressed path, returning the hash. Because the store is
// content-addressed, writing bytes that already exist on disk is a no-op:
// the existing file is never rewritten, and no temporary file is created.
func (s *Store) Write(canonical []byte) (Hash, error) {
	h := Sum(canonical)
	dst := s.path(h)
	if _, err := os.Stat(dst); err == nil {
		return h, nil
	}

	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return h, err
	}

	deflated, err := zlibstream.Deflate(canonical)
	if err != nil {
		return h, err
	}

	return h, writeAtomic(dst, deflated)
}

// WriteObject serializes o canonically and writes it to the store.
func (s *Store) WriteObject(o Object) (Hash, error) {
	return s.Write(Canonical(o))
}

// writeAtomic writes data to a temporary sibling of dst and renames it
// into place, so that a crash or concurrent reader never observes a
// partially-written object at dst. The temporary name is suffixed with a
// random uuid (rather than a pid or timestamp) so that two gitkit
// processes writing the same object concurrently — e.g. two clones that
// happen to share a filesystem-level object store — never collide on the
// staging path even though they target the same final path.
func writeAtomic(dst string, data []byte) error {
	tmp := dst + ".tmp-" + uuid.NewString()
	f, err := os.OpenFile(tmp, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o444)
	if err != nil {
		return err
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		os.Remove(tmp)
		return err
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return err
	}
	if err := os.Rename(tmp, dst); err != nil {
		os.Remove(tmp)
		return err
	}
	return nil
}
