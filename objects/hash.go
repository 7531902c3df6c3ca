// Copyright 2012 Rémy Oudompheng. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package objects

import (
	"encoding/hex"
	"errors"
	"hash"

	"github.com/pjbgf/sha1cd"
)

// ErrInvalidHex is returned by FromHex when its argument is not exactly 40
// hexadecimal characters.
var ErrInvalidHex = errors.New("gitkit: invalid hex object id")

// Hash is the 20-byte SHA-1 object identifier of a Git object.
type Hash [20]byte

func (h Hash) String() string { return hex.EncodeToString(h[:]) }

// IsZero reports whether h is the all-zero hash, used as a sentinel for
// "no parent"/"no object" in places that need a concrete Hash value.
func (h Hash) IsZero() bool { return h == Hash{} }

// ToHex renders a raw hash as lowercase hexadecimal.
func ToHex(h Hash) string { return h.String() }

// FromHex parses a 40-character lowercase or uppercase hex string into a
// Hash. It fails if the input is not exactly 40 hex digits.
func FromHex(s string) (Hash, error) {
	var h Hash
	if len(s) != 40 {
		return h, ErrInvalidHex
	}
	n, err := hex.Decode(h[:], []byte(s))
	if err != nil || n != len(h) {
		return h, ErrInvalidHex
	}
	return h, nil
}

// Sum computes the SHA-1 of b using a collision-detecting implementation,
// so that a remote serving maliciously crafted colliding objects is
// surfaced as a hash mismatch rather than silently accepted.
func Sum(b []byte) Hash {
	var h Hash
	s := sha1cd.New()
	s.Write(b)
	s.Sum(h[:0])
	return h
}

// NewHasher returns a fresh collision-detecting SHA-1 hash.Hash, for
// callers (such as the object store) that want to stream data through a
// writer instead of holding it all in memory at once.
func NewHasher() hash.Hash { return sha1cd.New() }
