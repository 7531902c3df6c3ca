// Copyright 2012 Rémy Oudompheng. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Command gitkit is a minimal Git-compatible client: it can initialize a
// repository, hash and inspect objects, build trees and commits, and
// clone a remote repository over Smart HTTP.
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/jessevdk/go-flags"

	"github.com/arourke/gitkit"
	"github.com/arourke/gitkit/internal/zlibstream"
	"github.com/arourke/gitkit/objects"
	"github.com/arourke/gitkit/packfile"
	"github.com/arourke/gitkit/pktline"
)

var parser = flags.NewParser(nil, flags.Default)

func init() {
	mustAddCommand("init", "create a new repository", "", &initCommand{})
	mustAddCommand("hash-object", "compute and optionally store an object id", "", &hashObjectCommand{})
	mustAddCommand("cat-file", "print the contents of a repository object", "", &catFileCommand{})
	mustAddCommand("ls-tree", "list the contents of a tree object", "", &lsTreeCommand{})
	mustAddCommand("write-tree", "write the working directory as a tree object", "", &writeTreeCommand{})
	mustAddCommand("commit-tree", "create a new commit from a tree", "", &commitTreeCommand{})
	mustAddCommand("clone", "clone a repository over Smart HTTP", "", &cloneCommand{})
}

func mustAddCommand(name, short, long string, data interface{}) {
	if _, err := parser.AddCommand(name, short, long, data); err != nil {
		panic(err)
	}
}

func main() {
	if _, err := parser.Parse(); err != nil {
		var flagsErr *flags.Error
		if errors.As(err, &flagsErr) && flagsErr.Type == flags.ErrHelp {
			os.Exit(0)
		}
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(exitCodeFor(err))
	}
}

// Exit codes, documented per command: 0 on success, a distinct non-zero
// code per taxonomy entry so scripts can distinguish "nothing there" from
// "the network is broken" from "the data was corrupt" without scraping
// stderr text.
const (
	exitUsage            = 2
	exitNotFound         = 3
	exitMalformed        = 4
	exitCompressionError = 5
	exitCorruptPack      = 6
	exitUnresolvedDeltas = 7
	exitRemoteError      = 8
	exitTransportError   = 9
	exitHashMismatch     = 10
	exitGeneralError     = 1
)

func exitCodeFor(err error) int {
	var flagsErr *flags.Error
	switch {
	case errors.As(err, &flagsErr):
		return exitUsage
	case errors.Is(err, objects.ErrNotFound):
		return exitNotFound
	case errors.Is(err, zlibstream.ErrCompression):
		return exitCompressionError
	case errors.Is(err, objects.ErrMalformedHeader),
		errors.Is(err, objects.ErrObjectSize),
		errors.Is(err, objects.ErrInvalidType),
		errors.Is(err, objects.ErrCorrupt):
		return exitMalformed
	case errors.Is(err, packfile.ErrMalformed):
		return exitMalformed
	case errors.Is(err, packfile.ErrCorruptPack):
		return exitCorruptPack
	case errors.Is(err, packfile.ErrUnresolvedDeltas):
		return exitUnresolvedDeltas
	case errors.Is(err, objects.ErrHashMismatch):
		return exitHashMismatch
	case errors.Is(err, gitkit.ErrTransport):
		return exitTransportError
	case isRemoteError(err):
		return exitRemoteError
	default:
		return exitGeneralError
	}
}

func isRemoteError(err error) bool {
	var remoteErr *pktline.RemoteError
	return errors.As(err, &remoteErr)
}
