// Copyright 2012 Rémy Oudompheng. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"fmt"
	"os"

	"github.com/arourke/gitkit/objects"
)

type lsTreeCommand struct {
	NameOnly bool `long:"name-only" description:"list only filenames"`

	Args struct {
		OID string `positional-arg-name:"oid" required:"true"`
	} `positional-args:"yes"`
}

func (c *lsTreeCommand) Execute(args []string) error {
	oid, err := objects.FromHex(c.Args.OID)
	if err != nil {
		return err
	}
	store := objects.NewStore(".git/objects")
	obj, err := store.ReadObject(oid)
	if err != nil {
		return err
	}
	tree, ok := obj.(objects.Tree)
	if !ok {
		return fmt.Errorf("gitkit: %s is not a tree", oid)
	}

	for _, e := range tree.Entries {
		if err := printTreeEntry(e, c.NameOnly); err != nil {
			return err
		}
	}
	return nil
}

// entryKind reports the object kind ls-tree/cat-file print for a tree
// entry: "tree" for a directory, "blob" otherwise (gitlinks print as
// "commit", matching real Git, even though this client never checks one
// out).
func entryKind(e objects.TreeElem) string {
	switch {
	case e.Mode&os.ModeIrregular != 0:
		return "commit"
	case e.Mode.IsDir():
		return "tree"
	default:
		return "blob"
	}
}

func printTreeEntry(e objects.TreeElem, nameOnly bool) error {
	if nameOnly {
		_, err := fmt.Println(e.Name)
		return err
	}
	_, err := fmt.Printf("%06o %s %s\t%s\n", gitModeBits(e), entryKind(e), e.Hash, e.Name)
	return err
}

// gitModeBits renders the packed mode (type nibble + permission bits) the
// way Git's ls-tree does, independent of objects.TreeElem's os.FileMode
// in-memory representation.
func gitModeBits(e objects.TreeElem) uint32 {
	switch {
	case e.Mode&os.ModeIrregular != 0:
		return 0160000 // gitlink
	case e.Mode.IsDir():
		return 040000
	case e.Mode&os.ModeSymlink != 0:
		return 0120000
	default:
		perm := uint32(e.Mode.Perm())
		return 0100000 | perm
	}
}
