package zlibstream

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestInflateDeflateRoundTrip(t *testing.T) {
	cases := [][]byte{
		nil,
		[]byte("hello world\n"),
		make([]byte, 4096),
	}
	for _, data := range cases {
		compressed, err := Deflate(data)
		require.NoError(t, err)

		out, consumed, err := Inflate(compressed)
		require.NoError(t, err)
		// Compared as strings: for the nil case Inflate returns an empty,
		// non-nil slice, which has the same contents.
		require.Equal(t, string(data), string(out))
		require.Equal(t, len(compressed), consumed)
	}
}

func TestInflateStopsAtStreamEnd(t *testing.T) {
	data := []byte("the quick brown fox")
	compressed, err := Deflate(data)
	require.NoError(t, err)

	trailer := []byte("trailing object header follows")
	buf := append(append([]byte{}, compressed...), trailer...)

	out, consumed, err := Inflate(buf)
	require.NoError(t, err)
	require.Equal(t, data, out)
	require.Equal(t, len(compressed), consumed, "Inflate must not read past the zlib trailer into unrelated data")
}

func TestInflateBadInput(t *testing.T) {
	_, _, err := Inflate([]byte{0x00, 0x01, 0x02})
	require.Error(t, err)
}
