// Copyright 2012 Rémy Oudompheng. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package objects

import (
	"os"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSingleFileTreeHash(t *testing.T) {
	empty := Blob{}
	empty.Hash = rehash(empty)
	require.Equal(t, "e69de29bb2d1d6434b8b29ae775ad8c2e48c5391", empty.Hash.String())

	tr := NewTree([]TreeElem{{Name: "hello", Mode: 0o644, Hash: empty.Hash}})
	require.Len(t, tr.Entries, 1)
	require.NotZero(t, tr.Hash)

	canonical := Canonical(tr)
	kind, payload, err := SplitHeader(canonical)
	require.NoError(t, err)
	require.Equal(t, TREE, kind)

	parsed, err := Parse(kind, payload)
	require.NoError(t, err)
	require.Equal(t, tr.Hash, parsed.ID())
}

func TestParseDoesNotSort(t *testing.T) {
	empty := Blob{}
	empty.Hash = rehash(empty)

	// entries intentionally out of canonical order ("z" before "a")
	unsorted := Tree{Entries: []TreeElem{
		{Name: "z", Mode: 0o644, Hash: empty.Hash},
		{Name: "a", Mode: 0o644, Hash: empty.Hash},
	}}
	canonical := Canonical(unsorted)
	_, payload, err := SplitHeader(canonical)
	require.NoError(t, err)

	parsed, err := parseTree(payload)
	require.NoError(t, err)
	require.Equal(t, []string{"z", "a"}, namesOf(parsed.Entries))
}

func TestSortEntriesDirectorySuffixRule(t *testing.T) {
	empty := Blob{}
	empty.Hash = rehash(empty)

	entries := []TreeElem{
		{Name: "foo.txt", Mode: 0o644, Hash: empty.Hash},
		{Name: "foo", Mode: os.ModeDir, Hash: empty.Hash},
	}
	SortEntries(entries)
	// The directory compares as "foo/": against "foo.txt", byte 4 is '/'
	// (0x2F) vs '.' (0x2E), so "foo.txt" sorts first under strict byte
	// comparison of the suffixed form. This matches git's documented
	// behavior.
	require.Equal(t, []string{"foo.txt", "foo"}, namesOf(entries))
}

func TestSortEntriesDeterministic(t *testing.T) {
	empty := Blob{}
	empty.Hash = rehash(empty)
	entries := []TreeElem{
		{Name: "c.txt", Mode: 0o644, Hash: empty.Hash},
		{Name: "a", Mode: os.ModeDir, Hash: empty.Hash},
	}
	SortEntries(entries)
	require.Equal(t, []string{"a", "c.txt"}, namesOf(entries))
}

func namesOf(entries []TreeElem) []string {
	names := make([]string, len(entries))
	for i, e := range entries {
		names[i] = e.Name
	}
	return names
}
