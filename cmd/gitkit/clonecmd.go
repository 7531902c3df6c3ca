// Copyright 2012 Rémy Oudompheng. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"context"
	"os"

	"github.com/arourke/gitkit"
)

type cloneCommand struct {
	Args struct {
		URL string `positional-arg-name:"url" required:"true"`
		Dir string `positional-arg-name:"dir" required:"false"`
	} `positional-args:"yes"`
}

func (c *cloneCommand) Execute(args []string) error {
	dir := c.Args.Dir
	if dir == "" {
		dir = gitkit.DeriveDirName(c.Args.URL)
	}

	progress := gitkit.NewHumanProgress(os.Stderr)
	transport := gitkit.NewHTTPTransport(nil)
	_, err := gitkit.Clone(context.Background(), transport, c.Args.URL, dir, progress)
	return err
}
