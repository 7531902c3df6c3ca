// Copyright 2012 Rémy Oudompheng. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"fmt"

	"github.com/arourke/gitkit"
	"github.com/arourke/gitkit/objects"
)

type commitTreeCommand struct {
	Parent  string `short:"p" description:"parent commit id"`
	Message string `short:"m" required:"true" description:"commit message"`

	Args struct {
		Tree string `positional-arg-name:"tree" required:"true"`
	} `positional-args:"yes"`
}

func (c *commitTreeCommand) Execute(args []string) error {
	treeOID, err := objects.FromHex(c.Args.Tree)
	if err != nil {
		return err
	}

	var parents []objects.Hash
	if c.Parent != "" {
		parentOID, err := objects.FromHex(c.Parent)
		if err != nil {
			return err
		}
		parents = append(parents, parentOID)
	}

	r := &gitkit.Repo{Path: ".git", Store: objects.NewStore(".git/objects")}
	oid, err := r.CommitTree(treeOID, parents, c.Message+"\n")
	if err != nil {
		return err
	}
	fmt.Println(oid)
	return nil
}
