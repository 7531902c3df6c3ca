// Copyright 2012 Rémy Oudompheng. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package zlibstream wraps klauspost/compress's zlib implementation with
// the two behaviours the object store and packfile parser both need: an
// output buffer that grows to fit whatever the stream actually contains,
// and a count of how many input bytes were consumed reaching end-of-stream.
//
// The second property matters because a packfile embeds one deflate stream
// per object inside a much larger byte sequence: the parser needs to know
// exactly where one object's compressed payload ends and the next begins.
package zlibstream

import (
	"bytes"
	"errors"
	"io"

	"github.com/klauspost/compress/zlib"
)

var ErrCompression = errors.New("gitkit: zlib stream error")

// countingReader tracks how many bytes have been consumed from the
// underlying *bytes.Reader, so that after the zlib reader has read exactly
// as much as it needs, the caller can learn how far the compressed stream
// extended into a larger buffer.
//
// It implements io.ByteReader directly (delegating to bytes.Reader, which
// already does) so that compress/flate's bit reader talks to it without
// interposing its own bufio.Reader — a wrapping bufio.Reader would read
// ahead in blocks and make the consumed-byte count useless for locating
// the end of an embedded stream.
type countingReader struct {
	r    *bytes.Reader
	size int64
}

func newCountingReader(in []byte) *countingReader {
	r := bytes.NewReader(in)
	return &countingReader{r: r, size: int64(len(in))}
}

func (c *countingReader) Read(p []byte) (int, error) { return c.r.Read(p) }

func (c *countingReader) ReadByte() (byte, error) { return c.r.ReadByte() }

// consumed returns how many bytes have been read off the front of in.
func (c *countingReader) consumed() int64 { return c.size - int64(c.r.Len()) }

// Inflate decompresses a zlib stream, returning the decompressed bytes and
// the number of bytes of in that were consumed to produce them. Unlike a
// plain io.ReadAll(zlib.NewReader(...)), the returned count does not
// include trailing bytes in in that were never read by the decompressor.
//
// An empty in is invalid: a zlib stream always has at least a 2-byte
// header and 4-byte trailer, even when it encodes zero payload bytes.
func Inflate(in []byte) (out []byte, consumed int, err error) {
	cr := newCountingReader(in)
	zr, err := zlib.NewReader(cr)
	if err != nil {
		return nil, 0, errCompression(err)
	}
	defer zr.Close()

	buf := new(bytes.Buffer)
	if _, err := io.Copy(buf, zr); err != nil {
		return nil, 0, errCompression(err)
	}
	return buf.Bytes(), int(cr.consumed()), nil
}

// Deflate compresses in at the default compression level.
func Deflate(in []byte) ([]byte, error) {
	buf := new(bytes.Buffer)
	w := zlib.NewWriter(buf)
	if _, err := w.Write(in); err != nil {
		w.Close()
		return nil, errCompression(err)
	}
	if err := w.Close(); err != nil {
		return nil, errCompression(err)
	}
	return buf.Bytes(), nil
}

func errCompression(err error) error {
	return errors.Join(ErrCompression, err)
}
