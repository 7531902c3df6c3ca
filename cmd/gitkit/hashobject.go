// Copyright 2012 Rémy Oudompheng. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"fmt"
	"os"

	"github.com/arourke/gitkit/objects"
)

type hashObjectCommand struct {
	Write bool `short:"w" description:"write the object into the object database"`

	Args struct {
		Path string `positional-arg-name:"path" required:"true"`
	} `positional-args:"yes"`
}

func (c *hashObjectCommand) Execute(args []string) error {
	data, err := os.ReadFile(c.Args.Path)
	if err != nil {
		return err
	}
	blob := objects.Blob{Data: data}

	store := objects.NewStore(".git/objects")
	var oid objects.Hash
	if c.Write {
		oid, err = store.WriteObject(blob)
		if err != nil {
			return err
		}
	} else {
		oid = objects.Sum(objects.Canonical(blob))
	}

	fmt.Println(oid)
	return nil
}
