// Copyright 2012 Rémy Oudompheng. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"fmt"
	"os"

	"github.com/arourke/gitkit/objects"
)

type catFileCommand struct {
	Pretty bool `short:"p" description:"pretty-print the object's contents"`

	Args struct {
		OID string `positional-arg-name:"oid" required:"true"`
	} `positional-args:"yes"`
}

func (c *catFileCommand) Execute(args []string) error {
	oid, err := objects.FromHex(c.Args.OID)
	if err != nil {
		return err
	}
	store := objects.NewStore(".git/objects")
	obj, err := store.ReadObject(oid)
	if err != nil {
		return err
	}

	switch o := obj.(type) {
	case objects.Blob:
		_, err = os.Stdout.Write(o.Data)
	case objects.Tree:
		for _, e := range o.Entries {
			err = printTreeEntry(e, false)
			if err != nil {
				return err
			}
		}
	case objects.Commit:
		fmt.Printf("tree %s\n", o.Tree)
		for _, p := range o.Parents {
			fmt.Printf("parent %s\n", p)
		}
		fmt.Printf("author %s\ncommitter %s\n\n%s", o.Author, o.Committer, o.Message)
	case objects.Tag:
		fmt.Printf("object %s\ntype %s\ntag %s\ntagger %s\n\n%s",
			o.Object, o.ObjectType, o.Name, o.Tagger, o.Message)
	}
	return err
}
