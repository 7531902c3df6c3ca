// Copyright 2012 Rémy Oudompheng. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import "github.com/arourke/gitkit"

type initCommand struct{}

func (c *initCommand) Execute(args []string) error {
	_, err := gitkit.Init(".git")
	return err
}
