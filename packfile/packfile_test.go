// Copyright 2012 Rémy Oudompheng. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package packfile

import (
	"bytes"
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/arourke/gitkit/internal/zlibstream"
	"github.com/arourke/gitkit/objects"
)

// packBuilder assembles a minimal, spec-conformant synthetic packfile for
// tests: gitkit never writes packs itself (only push/thin-pack completion
// would need that), so every fixture is built by hand here.
type packBuilder struct {
	entries [][]byte
}

func (p *packBuilder) addBase(kind ObjectKind, payload []byte) int64 {
	h := encodeBaseHeader(kind, len(payload))
	deflated, err := zlibstream.Deflate(payload)
	if err != nil {
		panic(err)
	}
	buf := append(h, deflated...)
	p.entries = append(p.entries, buf)
	return p.offsetOf(len(p.entries) - 1)
}

func (p *packBuilder) addRefDelta(base objects.Hash, delta []byte) int64 {
	h := encodeBaseHeader(KindRefDelta, len(delta))
	h = append(h, base[:]...)
	deflated, err := zlibstream.Deflate(delta)
	if err != nil {
		panic(err)
	}
	buf := append(h, deflated...)
	p.entries = append(p.entries, buf)
	return p.offsetOf(len(p.entries) - 1)
}

func (p *packBuilder) addOfsDelta(baseOffset int64, delta []byte) int64 {
	entryOffset := p.offsetOf(len(p.entries))
	negOff := entryOffset - baseOffset
	h := encodeBaseHeader(KindOfsDelta, len(delta))
	h = append(h, encodeOfsDeltaOffset(negOff)...)
	deflated, err := zlibstream.Deflate(delta)
	if err != nil {
		panic(err)
	}
	buf := append(h, deflated...)
	p.entries = append(p.entries, buf)
	return entryOffset
}

func (p *packBuilder) offsetOf(idx int) int64 {
	off := int64(12)
	for i := 0; i < idx; i++ {
		off += int64(len(p.entries[i]))
	}
	return off
}

func (p *packBuilder) bytes() []byte {
	var buf bytes.Buffer
	buf.WriteString("PACK")
	var tmp [4]byte
	binary.BigEndian.PutUint32(tmp[:], 2)
	buf.Write(tmp[:])
	binary.BigEndian.PutUint32(tmp[:], uint32(len(p.entries)))
	buf.Write(tmp[:])
	for _, e := range p.entries {
		buf.Write(e)
	}
	// 20 zero bytes stand in for a trailing checksum; tests here never
	// call VerifyChecksum.
	buf.Write(make([]byte, 20))
	return buf.Bytes()
}

func encodeBaseHeader(kind ObjectKind, size int) []byte {
	b0 := byte(kind) << 4
	rest := uint64(size) >> 4
	b0 |= byte(size) & 0x0f
	var out []byte
	if rest > 0 {
		b0 |= 0x80
	}
	out = append(out, b0)
	for rest > 0 {
		b := byte(rest & 0x7f)
		rest >>= 7
		if rest > 0 {
			b |= 0x80
		}
		out = append(out, b)
	}
	return out
}

func encodeOfsDeltaOffset(off int64) []byte {
	// Inverse of decodeOfsDeltaOffset's "+1" bias chain.
	var stack []byte
	stack = append(stack, byte(off&0x7f))
	off >>= 7
	for off > 0 {
		off--
		stack = append(stack, byte(off&0x7f)|0x80)
		off >>= 7
	}
	// Reverse: the most-significant byte comes first on the wire.
	out := make([]byte, len(stack))
	for i, b := range stack {
		out[len(stack)-1-i] = b
	}
	return out
}

func buildDeltaStream(baseSize, targetSize int, copyOff, copyLen int, add []byte) []byte {
	var buf bytes.Buffer
	var tmp [10]byte
	n := binary.PutUvarint(tmp[:], uint64(baseSize))
	buf.Write(tmp[:n])
	n = binary.PutUvarint(tmp[:], uint64(targetSize))
	buf.Write(tmp[:n])

	if copyLen > 0 {
		buf.WriteByte(0x80 | 0x01 | 0x10 | 0x20)
		buf.WriteByte(byte(copyOff))
		if copyLen == 0x10000 {
			buf.Write([]byte{0, 0})
		} else {
			buf.Write([]byte{byte(copyLen), byte(copyLen >> 8)})
		}
	}
	// An add opcode carries at most 0x7f literal bytes.
	for len(add) > 0 {
		n := len(add)
		if n > 0x7f {
			n = 0x7f
		}
		buf.WriteByte(byte(n))
		buf.Write(add[:n])
		add = add[n:]
	}
	return buf.Bytes()
}

func TestParseSingleRefDelta(t *testing.T) {
	base := bytes.Repeat([]byte{'a'}, 1000)
	baseBlob, err := objects.Parse(objects.BLOB, base)
	require.NoError(t, err)

	var pb packBuilder
	pb.addBase(KindBlob, base)

	add := bytes.Repeat([]byte{'b'}, 500)
	delta := buildDeltaStream(len(base), 1000, 0, 500, add)
	pb.addRefDelta(baseBlob.ID(), delta)

	entries, err := Parse(pb.bytes())
	require.NoError(t, err)
	require.Len(t, entries, 2)
	// Ordered by offset_in_pack ascending: base first, delta second.
	require.Equal(t, baseBlob.ID(), entries[0].OID)
	require.Equal(t, objects.BLOB, entries[1].Kind)
	require.Equal(t, append(append([]byte{}, base[:500]...), add...), entries[1].Payload)
}

func TestParseRefDeltaBeforeBaseRequiresMultiplePasses(t *testing.T) {
	base := bytes.Repeat([]byte{'x'}, 200)
	baseBlob, err := objects.Parse(objects.BLOB, base)
	require.NoError(t, err)

	delta := buildDeltaStream(len(base), 200, 0, 200, nil)

	var pb packBuilder
	deltaOffset := pb.addRefDelta(baseBlob.ID(), delta)
	baseOffset := pb.addBase(KindBlob, base)
	require.Less(t, deltaOffset, baseOffset)

	entries, err := Parse(pb.bytes())
	require.NoError(t, err)
	require.Len(t, entries, 2)
	// Final ordering still ascends by offset, regardless of resolution order.
	require.Equal(t, deltaOffset, entries[0].OffsetInPack)
	require.Equal(t, baseOffset, entries[1].OffsetInPack)
	require.Equal(t, base, entries[0].Payload)
}

func TestParseOfsDeltaChain(t *testing.T) {
	base := bytes.Repeat([]byte{'z'}, 300)
	var pb packBuilder
	baseOffset := pb.addBase(KindBlob, base)

	delta := buildDeltaStream(len(base), 300, 0, 300, nil)
	deltaOffset := pb.addOfsDelta(baseOffset, delta)
	require.Greater(t, deltaOffset, baseOffset)

	entries, err := Parse(pb.bytes())
	require.NoError(t, err)
	require.Len(t, entries, 2)
	require.Equal(t, base, entries[1].Payload)
}

func TestParseCopySizeZeroMeans0x10000(t *testing.T) {
	base := bytes.Repeat([]byte{'q'}, 0x10000)
	baseBlob, err := objects.Parse(objects.BLOB, base)
	require.NoError(t, err)

	var pb packBuilder
	pb.addBase(KindBlob, base)
	delta := buildDeltaStream(len(base), 0x10000, 0, 0x10000, nil)
	pb.addRefDelta(baseBlob.ID(), delta)

	entries, err := Parse(pb.bytes())
	require.NoError(t, err)
	require.Len(t, entries, 2)
	require.Equal(t, base, entries[1].Payload)
}

func TestParseUnresolvedDeltaIsFatal(t *testing.T) {
	var missingBase objects.Hash
	for i := range missingBase {
		missingBase[i] = 0xee
	}
	delta := buildDeltaStream(10, 10, 0, 10, nil)

	var pb packBuilder
	pb.addRefDelta(missingBase, delta)

	_, err := Parse(pb.bytes())
	require.ErrorIs(t, err, ErrUnresolvedDeltas)
}

func TestParseDeclaredSizeMismatchIsFatal(t *testing.T) {
	payload := []byte("hello")
	h := encodeBaseHeader(KindBlob, len(payload)+1) // lie about the size
	deflated, err := zlibstream.Deflate(payload)
	require.NoError(t, err)

	var buf bytes.Buffer
	buf.WriteString("PACK")
	var tmp [4]byte
	binary.BigEndian.PutUint32(tmp[:], 2)
	buf.Write(tmp[:])
	binary.BigEndian.PutUint32(tmp[:], 1)
	buf.Write(tmp[:])
	buf.Write(h)
	buf.Write(deflated)
	buf.Write(make([]byte, 20))

	_, err = Parse(buf.Bytes())
	require.ErrorIs(t, err, ErrCorruptPack)
}

func TestParseRejectsBadMagic(t *testing.T) {
	_, err := Parse([]byte("NOTAPACK0000000000000000"))
	require.ErrorIs(t, err, ErrMalformed)
}

func TestVerifyChecksum(t *testing.T) {
	var pb packBuilder
	pb.addBase(KindBlob, []byte("hello"))
	data := pb.bytes()[:len(pb.bytes())-20]
	sum := objects.Sum(data)

	full := append(append([]byte{}, data...), sum[:]...)
	require.NoError(t, VerifyChecksum(full))

	full[len(full)-1] ^= 0xff
	require.ErrorIs(t, VerifyChecksum(full), ErrCorruptPack)
}
