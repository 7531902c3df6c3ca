// Copyright 2012 Rémy Oudompheng. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package packfile decodes Git packfiles: the PACK-magic binary format
// used to ship a batch of objects in one stream, including the two
// delta-encoding schemes (OFS_DELTA and REF_DELTA) used to compress a
// chain of similar objects against a base.
//
// Reference: Documentation/technical/pack-format.txt in Git sources.
package packfile

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/arourke/gitkit/objects"
)

// ObjectKind is the packfile-specific type tag carried by an entry header.
// It is a superset of objects.Kind: in addition to the four base object
// kinds it also names the two delta encodings, which are not real object
// types but header values meaning "apply a patch to locate the real kind".
type ObjectKind uint8

const (
	KindCommit   ObjectKind = 1
	KindTree     ObjectKind = 2
	KindBlob     ObjectKind = 3
	KindTag      ObjectKind = 4
	KindOfsDelta ObjectKind = 6
	KindRefDelta ObjectKind = 7
)

func (k ObjectKind) String() string {
	switch k {
	case KindCommit:
		return "commit"
	case KindTree:
		return "tree"
	case KindBlob:
		return "blob"
	case KindTag:
		return "tag"
	case KindOfsDelta:
		return "ofs-delta"
	case KindRefDelta:
		return "ref-delta"
	default:
		return fmt.Sprintf("bad-kind-%d", int(k))
	}
}

// baseKind converts a non-delta packfile kind to the objects package's
// Kind enum. The two numbering schemes are deliberately different (the
// pack header reserves 0 and 5 as unused, and counts from 1) so this
// conversion is never a no-op cast.
func baseKind(k ObjectKind) (objects.Kind, bool) {
	switch k {
	case KindCommit:
		return objects.COMMIT, true
	case KindTree:
		return objects.TREE, true
	case KindBlob:
		return objects.BLOB, true
	case KindTag:
		return objects.TAG, true
	default:
		return 0, false
	}
}

var (
	// ErrMalformed covers a broken PACK header, truncated entry header, or
	// any other structural violation short of a checksum/size mismatch.
	ErrMalformed = errors.New("gitkit: malformed packfile")
	// ErrCorruptPack covers a declared-size mismatch, an out-of-bounds or
	// non-canonical delta base reference, or a trailing checksum mismatch.
	ErrCorruptPack = errors.New("gitkit: corrupt packfile")
	// ErrUnresolvedDeltas is returned when a full resolution pass makes no
	// progress while pending deltas remain.
	ErrUnresolvedDeltas = errors.New("gitkit: unresolved deltas in packfile")
)

const packMagic = "PACK"

// header is the decoded per-entry header: packfile kind, declared
// uncompressed size of the entry's zlib payload (for deltas: the size of
// the delta instruction stream, not of the patched result), and the delta
// base selector when kind is KindOfsDelta/KindRefDelta.
type header struct {
	kind       ObjectKind
	size       uint64
	baseOID    objects.Hash // set when kind == KindRefDelta
	baseOffset int64        // set when kind == KindOfsDelta: absolute offset of the base entry
}

// decodeEntryHeader reads one entry's header from buf starting at off,
// returning the decoded header and the number of bytes consumed from buf
// (header bytes only; the caller advances past these before inflating the
// zlib payload that follows).
//
// The object-size VLQ is distinct from the generic delta-header VLQ and
// the OFS_DELTA negative-offset VLQ used elsewhere in this package: each
// has its own bit layout and must not be conflated (see SPEC_FULL.md's
// design notes, carried from the original pack-format documentation).
func decodeEntryHeader(buf []byte, off int64) (h header, consumed int, err error) {
	pos := int(off)
	if pos >= len(buf) {
		return header{}, 0, fmt.Errorf("%w: truncated entry header", ErrMalformed)
	}
	b0 := buf[pos]
	pos++
	kind := ObjectKind((b0 >> 4) & 0x07)
	size := uint64(b0 & 0x0f)
	shift := uint(4)
	for b0&0x80 != 0 {
		if pos >= len(buf) {
			return header{}, 0, fmt.Errorf("%w: truncated object-size VLQ", ErrMalformed)
		}
		b0 = buf[pos]
		pos++
		size |= uint64(b0&0x7f) << shift
		shift += 7
	}
	h.kind = kind
	h.size = size

	switch kind {
	case KindRefDelta:
		if pos+20 > len(buf) {
			return header{}, 0, fmt.Errorf("%w: truncated REF_DELTA base", ErrMalformed)
		}
		copy(h.baseOID[:], buf[pos:pos+20])
		pos += 20
	case KindOfsDelta:
		negOff, n, err := decodeOfsDeltaOffset(buf[pos:])
		if err != nil {
			return header{}, 0, err
		}
		pos += n
		base := off - negOff
		if negOff <= 0 || base < 0 {
			return header{}, 0, fmt.Errorf("%w: non-canonical OFS_DELTA offset", ErrCorruptPack)
		}
		h.baseOffset = base
	}
	return h, pos - int(off), nil
}

// decodeOfsDeltaOffset decodes the OFS_DELTA negative-offset VLQ: bytes
// b0..bk chained as offset = b0&0x7f, then offset = ((offset+1)<<7) |
// (b&0x7f) for each continuation byte. This encoding is deliberately not
// the same bit layout as the generic delta-header VLQ (decodeUvarint):
// it must add 1 before each shift so that every byte length has a unique
// canonical encoding, ruling out over-long offsets.
func decodeOfsDeltaOffset(buf []byte) (offset int64, consumed int, err error) {
	if len(buf) == 0 {
		return 0, 0, fmt.Errorf("%w: truncated OFS_DELTA offset", ErrMalformed)
	}
	b := buf[0]
	off := int64(b & 0x7f)
	consumed = 1
	for b&0x80 != 0 {
		if consumed >= len(buf) {
			return 0, 0, fmt.Errorf("%w: truncated OFS_DELTA offset", ErrMalformed)
		}
		b = buf[consumed]
		consumed++
		off = ((off + 1) << 7) | int64(b&0x7f)
	}
	return off, consumed, nil
}

// readUint32 reads a big-endian uint32 from the PACK/checksum headers.
func readUint32(b []byte) uint32 { return binary.BigEndian.Uint32(b) }

// VerifyChecksum checks the trailing 20-byte SHA-1 that covers every
// preceding byte of a packfile. Checksum verification is optional per
// the pack format (a parser may accept a pack without checking it), so
// this is a separate call rather than something Parse always does.
func VerifyChecksum(data []byte) error {
	if len(data) < 12+20 {
		return fmt.Errorf("%w: too short for a trailing checksum", ErrMalformed)
	}
	want := data[len(data)-20:]
	got := objects.Sum(data[:len(data)-20])
	if !bytes.Equal(got[:], want) {
		return fmt.Errorf("%w: trailing checksum mismatch", ErrCorruptPack)
	}
	return nil
}
