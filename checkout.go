// Copyright 2012 Rémy Oudompheng. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package gitkit

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/arourke/gitkit/objects"
)

// Checkout reads the commit at oid, resolves its tree, and recursively
// materializes it into dir. 40000 entries become directories; 100644 and
// 100755 entries become files with the corresponding permission bits;
// any other mode (symlinks, gitlinks) is skipped with a warning printed
// to stderr, per this client's scope (no symlink materialization).
func Checkout(r *Repo, oid objects.Hash, dir string) error {
	obj, err := r.Store.ReadObject(oid)
	if err != nil {
		return fmt.Errorf("gitkit: checkout: %w", err)
	}
	commit, ok := obj.(objects.Commit)
	if !ok {
		return fmt.Errorf("gitkit: checkout: %s is not a commit", oid)
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("gitkit: checkout: %w", err)
	}
	return materializeTree(r, commit.Tree, dir)
}

func materializeTree(r *Repo, treeOID objects.Hash, dir string) error {
	obj, err := r.Store.ReadObject(treeOID)
	if err != nil {
		return fmt.Errorf("gitkit: checkout: %w", err)
	}
	tree, ok := obj.(objects.Tree)
	if !ok {
		return fmt.Errorf("gitkit: checkout: %s is not a tree", treeOID)
	}

	for _, e := range tree.Entries {
		target := filepath.Join(dir, e.Name)
		switch {
		case e.Mode.IsDir():
			if err := os.MkdirAll(target, 0o755); err != nil {
				return fmt.Errorf("gitkit: checkout: %w", err)
			}
			if err := materializeTree(r, e.Hash, target); err != nil {
				return err
			}
		case e.Mode.IsRegular():
			blobObj, err := r.Store.ReadObject(e.Hash)
			if err != nil {
				return fmt.Errorf("gitkit: checkout: %w", err)
			}
			blob, ok := blobObj.(objects.Blob)
			if !ok {
				return fmt.Errorf("gitkit: checkout: %s is not a blob", e.Hash)
			}
			perm := os.FileMode(0o644)
			if e.Mode.Perm()&0o111 != 0 {
				perm = 0o755
			}
			if err := os.WriteFile(target, blob.Data, perm); err != nil {
				return fmt.Errorf("gitkit: checkout: %w", err)
			}
		default:
			fmt.Fprintf(os.Stderr, "gitkit: warning: skipping %s: unsupported mode %s\n", target, e.Mode)
		}
	}
	return nil
}
