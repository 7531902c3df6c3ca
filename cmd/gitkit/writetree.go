// Copyright 2012 Rémy Oudompheng. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"fmt"

	"github.com/arourke/gitkit"
	"github.com/arourke/gitkit/objects"
)

type writeTreeCommand struct{}

func (c *writeTreeCommand) Execute(args []string) error {
	store := objects.NewStore(".git/objects")
	oid, err := gitkit.WriteTree(store, ".")
	if err != nil {
		return err
	}
	fmt.Println(oid)
	return nil
}
