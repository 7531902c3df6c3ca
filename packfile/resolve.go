// Copyright 2012 Rémy Oudompheng. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package packfile

import (
	"fmt"

	"github.com/emirpasic/gods/maps/treemap"
	"github.com/emirpasic/gods/utils"

	"github.com/arourke/gitkit/gitdelta"
	"github.com/arourke/gitkit/internal/zlibstream"
	"github.com/arourke/gitkit/objects"
)

// Entry is one fully resolved object recovered from a packfile: its
// position in the source pack, its final (non-delta) kind, its identity,
// and its payload bytes (the object body, not the canonical header).
type Entry struct {
	OffsetInPack int64
	Kind         objects.Kind
	OID          objects.Hash
	Payload      []byte
}

// pending is a not-yet-resolved delta entry collected during Pass 1.
type pending struct {
	offset     int64
	refBase    objects.Hash // valid when isRef
	isRef      bool
	baseOffset int64 // valid when !isRef: absolute offset of the base entry
	delta      []byte
}

// resolvedObj is what Pass 2 needs from an already-resolved object: its
// kind (inherited by any delta built on top of it) and its payload.
type resolvedObj struct {
	kind    objects.Kind
	payload []byte
}

// Parse decodes a complete packfile (PACK magic, version 2, N entries,
// trailing checksum) and fully resolves every delta-encoded entry,
// returning the final object list ordered by offset_in_pack ascending
// regardless of the order resolution actually happened in.
func Parse(data []byte) ([]Entry, error) {
	if len(data) < 12 || string(data[:4]) != packMagic {
		return nil, fmt.Errorf("%w: missing PACK magic", ErrMalformed)
	}
	version := readUint32(data[4:8])
	if version != 2 {
		return nil, fmt.Errorf("%w: unsupported pack version %d", ErrMalformed, version)
	}
	count := readUint32(data[8:12])

	cache := make(map[objects.Hash]resolvedObj)
	// offsetToOID is ordered ascending by pack offset, which both lets
	// OFS_DELTA bases be located by offset and lets the final emission
	// step fall out of an in-order traversal instead of a separate sort.
	offsetToOID := treemap.NewWith(utils.Int64Comparator)

	var pendings []*pending
	cursor := int64(12)

	for i := uint32(0); i < count; i++ {
		offset := cursor
		h, hlen, err := decodeEntryHeader(data, offset)
		if err != nil {
			return nil, err
		}
		cursor += int64(hlen)
		if cursor >= int64(len(data)) {
			return nil, fmt.Errorf("%w: truncated entry payload", ErrMalformed)
		}

		payload, consumed, err := zlibstream.Inflate(data[cursor:])
		if err != nil {
			return nil, fmt.Errorf("%w: entry %d: %v", ErrMalformed, i, err)
		}
		if uint64(len(payload)) != h.size {
			return nil, fmt.Errorf("%w: entry %d declared size %d, got %d", ErrCorruptPack, i, h.size, len(payload))
		}
		cursor += int64(consumed)

		switch h.kind {
		case KindOfsDelta:
			pendings = append(pendings, &pending{offset: offset, baseOffset: h.baseOffset, delta: payload})
		case KindRefDelta:
			pendings = append(pendings, &pending{offset: offset, isRef: true, refBase: h.baseOID, delta: payload})
		default:
			kind, ok := baseKind(h.kind)
			if !ok {
				return nil, fmt.Errorf("%w: entry %d has invalid kind %d", ErrMalformed, i, h.kind)
			}
			obj, err := objects.Parse(kind, payload)
			if err != nil {
				return nil, fmt.Errorf("%w: entry %d: %v", ErrMalformed, i, err)
			}
			oid := obj.ID()
			cache[oid] = resolvedObj{kind: kind, payload: payload}
			offsetToOID.Put(offset, oid)
		}
	}

	if err := resolveDeltas(pendings, cache, offsetToOID); err != nil {
		return nil, err
	}

	entries := make([]Entry, 0, offsetToOID.Size())
	it := offsetToOID.Iterator()
	for it.Next() {
		offset := it.Key().(int64)
		oid := it.Value().(objects.Hash)
		obj := cache[oid]
		entries = append(entries, Entry{
			OffsetInPack: offset,
			Kind:         obj.kind,
			OID:          oid,
			Payload:      obj.payload,
		})
	}
	return entries, nil
}

// resolveDeltas repeatedly walks the pending list, applying any delta
// whose base has become available, until either the list is empty or a
// full pass makes no progress (ErrUnresolvedDeltas). A missing base is
// recoverable within a pass — the entry is simply requeued for the next
// one — since OFS_DELTA/REF_DELTA bases may appear later in the pack than
// the delta that references them.
func resolveDeltas(pendings []*pending, cache map[objects.Hash]resolvedObj, offsetToOID *treemap.Map) error {
	remaining := pendings
	for len(remaining) > 0 {
		var next []*pending
		progress := false

		for _, p := range remaining {
			baseOID, ok := p.resolveBaseOID(offsetToOID)
			if !ok {
				next = append(next, p)
				continue
			}
			base, ok := cache[baseOID]
			if !ok {
				next = append(next, p)
				continue
			}

			target, err := gitdelta.Patch(base.payload, p.delta)
			if err != nil {
				return fmt.Errorf("%w: entry at offset %d: %v", ErrCorruptPack, p.offset, err)
			}
			obj, err := objects.Parse(base.kind, target)
			if err != nil {
				return fmt.Errorf("%w: entry at offset %d: %v", ErrCorruptPack, p.offset, err)
			}
			oid := obj.ID()
			cache[oid] = resolvedObj{kind: base.kind, payload: target}
			offsetToOID.Put(p.offset, oid)
			progress = true
		}

		if !progress && len(next) > 0 {
			return ErrUnresolvedDeltas
		}
		remaining = next
	}
	return nil
}

// resolveBaseOID finds the OID of p's delta base if it is currently known.
// For REF_DELTA the OID is carried directly in the entry; for OFS_DELTA it
// must be looked up via the offset this entry's base offset resolved to
// (which may not exist yet, if the base appears later in iteration or is
// itself an unresolved delta).
func (p *pending) resolveBaseOID(offsetToOID *treemap.Map) (objects.Hash, bool) {
	if p.isRef {
		return p.refBase, true
	}
	v, found := offsetToOID.Get(p.baseOffset)
	if !found {
		return objects.Hash{}, false
	}
	return v.(objects.Hash), true
}
