// Copyright 2012 Rémy Oudompheng. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package objects

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
)

// Tree represents a directory listing: a sequence of named entries, each
// pointing at a blob (file), another tree (subdirectory), or a gitlink.
type Tree struct {
	Hash    Hash
	Entries []TreeElem
}

// TreeElem is one entry of a Tree.
type TreeElem struct {
	Name string
	Mode os.FileMode
	Hash Hash
}

func (t Tree) ID() Hash   { return t.Hash }
func (t Tree) Type() Kind { return TREE }

// WriteTo serializes the tree payload. Entries are written in the order
// they are stored in t.Entries; callers that build a Tree from scratch
// must call SortEntries first to get the canonical, hash-stable ordering
// — WriteTo itself never reorders, so that a Tree parsed from an existing
// (and possibly already out-of-order, e.g. hand-crafted test) payload
// round-trips byte for byte.
func (t Tree) WriteTo(w io.Writer) error {
	buf := new(bytes.Buffer)
	for _, entry := range t.Entries {
		fmt.Fprintf(buf, "%o %s\x00%s", gitMode(entry.Mode), entry.Name, entry.Hash[:])
	}
	if _, err := fmt.Fprintf(w, "tree %d\x00", buf.Len()); err != nil {
		return err
	}
	_, err := w.Write(buf.Bytes())
	return err
}

// Mode is Git's packed file mode: (type << 12) | unix permission bits.
type Mode uint16

const (
	ModeRegular Mode = 8 << 12
	ModeDir     Mode = 4 << 12
	ModeSymlink Mode = 2 << 12

	ModeGitlink = ModeDir | ModeSymlink
)

// gitMode computes the packed mode bits Git expects on disk/in a tree entry.
func gitMode(mode os.FileMode) Mode {
	m := Mode(mode & os.ModePerm)
	switch {
	case mode&os.ModeIrregular != 0:
		m |= ModeRegular | ModeGitlink // 0160000
	case mode&os.ModeDir != 0:
		m |= ModeDir
	case mode&os.ModeSymlink != 0:
		m |= ModeRegular | ModeSymlink // 0120000
	case mode&os.ModeType == 0:
		m |= ModeRegular
	}
	return m
}

// osMode converts a packed Git mode back to os.FileMode. A gitlink
// (submodule reference) has no real os.FileMode equivalent, since it is
// neither a directory nor a regular file from this client's point of
// view; it is tagged with os.ModeIrregular ("nothing else is known about
// this entry") so callers skip it the same way they would an unknown mode.
func osMode(mode Mode) os.FileMode {
	m := os.FileMode(mode & 0777)
	switch {
	case mode&ModeDir != 0 && mode&ModeSymlink != 0:
		return m | os.ModeIrregular // gitlink
	case mode&ModeDir != 0:
		return m | os.ModeDir
	case mode&ModeSymlink != 0:
		return m | os.ModeSymlink
	default:
		return m
	}
}

var errBadTreeData = errors.New("gitkit: malformed tree entry")

// parseTree consumes a tree payload until exhausted, in the order entries
// are found. It does not sort — that is SortEntries' job, applied only
// when serializing a tree gitkit itself constructed (write-tree).
func parseTree(s []byte) (t Tree, err error) {
	for len(s) > 0 {
		sp := bytes.IndexByte(s, ' ')
		nul := bytes.IndexByte(s, '\x00')
		if sp < 0 || nul < 0 || nul < sp || nul+21 > len(s) {
			return t, errBadTreeData
		}
		mode, err := strconv.ParseUint(string(s[:sp]), 8, 16)
		if err != nil {
			return t, errBadTreeData
		}
		var e TreeElem
		e.Mode = osMode(Mode(mode))
		e.Name = string(s[sp+1 : nul])
		copy(e.Hash[:], s[nul+1:nul+21])
		s = s[nul+21:]
		t.Entries = append(t.Entries, e)
	}
	return t, nil
}

// treeEntryKey is the per-byte comparison key for the Git tree ordering
// rule: directory entries sort as though their name carried a trailing
// "/", so that e.g. a file "foo" sorts before "foo.txt" while a directory
// "foo" (compared as "foo/") sorts after it. See SPEC_FULL.md §9's Open Question: this
// follows the reference Git rule, not the naive byte-compare a naive port
// of the original source would produce.
func treeEntryKey(e TreeElem) string {
	if e.Mode.IsDir() {
		return e.Name + "/"
	}
	return e.Name
}

// SortEntries orders entries by the Git tree ordering rule, in place, and
// returns the same slice for chaining. write-tree must call this before
// serializing; parse never does.
func SortEntries(entries []TreeElem) []TreeElem {
	sort.SliceStable(entries, func(i, j int) bool {
		return treeEntryKey(entries[i]) < treeEntryKey(entries[j])
	})
	return entries
}

// NewTree builds a Tree with entries sorted by the canonical ordering rule
// and its Hash computed, ready to be written to the store.
func NewTree(entries []TreeElem) Tree {
	cp := append([]TreeElem(nil), entries...)
	SortEntries(cp)
	t := Tree{Entries: cp}
	t.Hash = rehash(t)
	return t
}
