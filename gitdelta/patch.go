// Copyright 2012 Rémy Oudompheng. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package gitdelta implements Git's delta encoding: the copy/insert
// instruction stream used by OFS_DELTA and REF_DELTA packfile entries to
// reconstruct a target object from a base object plus a small patch.
//
// Reference: Documentation/technical/pack-format.txt and delta.h in Git
// sources; https://github.com/tarruda/node-git-core's delta.js documents
// the same format with useful commentary.
package gitdelta

import (
	"encoding/binary"
	"errors"
)

var (
	// ErrInvalidDelta covers any structurally broken delta stream: a
	// truncated header, a copy instruction reaching outside the base, or
	// a result whose length does not match the declared target size.
	ErrInvalidDelta = errors.New("gitkit: invalid delta stream")
	// ErrDeltaOpcode is returned for the reserved 0x00 instruction byte.
	ErrDeltaOpcode = errors.New("gitkit: invalid delta opcode 0x00")
)

// Patch reconstructs a target object from base and a delta instruction
// stream. It returns ErrInvalidDelta (or ErrDeltaOpcode for the reserved
// 0x00 instruction) rather than a partial result on any malformed input — a
// half-applied delta must never be mistaken for a real object.
func Patch(base, delta []byte) ([]byte, error) {
	baseSize, n := binary.Uvarint(delta)
	if n <= 0 {
		return nil, ErrInvalidDelta
	}
	delta = delta[n:]
	if uint64(len(base)) != baseSize {
		return nil, ErrInvalidDelta
	}

	targetSize, n := binary.Uvarint(delta)
	if n <= 0 {
		return nil, ErrInvalidDelta
	}
	delta = delta[n:]

	out := make([]byte, 0, targetSize)
	for len(delta) > 0 {
		op := delta[0]
		delta = delta[1:]
		switch {
		case op&0x80 != 0:
			off, sz, rest, err := decodeCopy(op, delta)
			if err != nil {
				return nil, err
			}
			delta = rest
			end := off + sz
			if end < off || end > uint64(len(base)) {
				return nil, ErrInvalidDelta
			}
			out = append(out, base[off:end]...)

		case op != 0:
			length := int(op & 0x7f)
			if length > len(delta) {
				return nil, ErrInvalidDelta
			}
			out = append(out, delta[:length]...)
			delta = delta[length:]

		default:
			return nil, ErrDeltaOpcode
		}
	}

	if uint64(len(out)) != targetSize {
		return nil, ErrInvalidDelta
	}
	return out, nil
}

// decodeCopy reads the offset/size bytes that follow a copy opcode (bit 7
// set). Bits 0-3 of op select which of the 4 little-endian offset bytes
// are present in the stream; bits 4-6 select which of the 3 size bytes
// are present. Any unselected byte contributes 0. A size that decodes to
// zero means 0x10000, matching git's documented quirk.
func decodeCopy(op byte, delta []byte) (off, size uint64, rest []byte, err error) {
	for i := uint(0); i < 4; i++ {
		if op&(1<<i) == 0 {
			continue
		}
		if len(delta) == 0 {
			return 0, 0, nil, ErrInvalidDelta
		}
		off |= uint64(delta[0]) << (8 * i)
		delta = delta[1:]
	}
	for i := uint(0); i < 3; i++ {
		if op&(1<<(4+i)) == 0 {
			continue
		}
		if len(delta) == 0 {
			return 0, 0, nil, ErrInvalidDelta
		}
		size |= uint64(delta[0]) << (8 * i)
		delta = delta[1:]
	}
	if size == 0 {
		size = 0x10000
	}
	return off, size, delta, nil
}
