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

// WriteTree recursively hashes dir (skipping any entry named ".git", at
// every level of the walk, not only the top) and
// writes every blob and tree object it discovers to store, returning the
// root tree's OID.
func WriteTree(store *objects.Store, dir string) (objects.Hash, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return objects.Hash{}, fmt.Errorf("gitkit: write-tree: %w", err)
	}

	var elems []objects.TreeElem
	for _, e := range entries {
		if e.Name() == ".git" {
			continue
		}
		path := filepath.Join(dir, e.Name())
		info, err := e.Info()
		if err != nil {
			return objects.Hash{}, fmt.Errorf("gitkit: write-tree: %w", err)
		}

		switch {
		case e.IsDir():
			sub, err := WriteTree(store, path)
			if err != nil {
				return objects.Hash{}, err
			}
			elems = append(elems, objects.TreeElem{Name: e.Name(), Mode: os.ModeDir | 0o755, Hash: sub})
		case info.Mode().IsRegular():
			data, err := os.ReadFile(path)
			if err != nil {
				return objects.Hash{}, fmt.Errorf("gitkit: write-tree: %w", err)
			}
			oid, err := store.WriteObject(objects.Blob{Data: data})
			if err != nil {
				return objects.Hash{}, fmt.Errorf("gitkit: write-tree: %w", err)
			}
			elems = append(elems, objects.TreeElem{Name: e.Name(), Mode: info.Mode(), Hash: oid})
		default:
			// Symlinks and other special files are skipped: materializing
			// them is out of scope, and write-tree never produced them.
		}
	}

	tree := objects.NewTree(elems)
	oid, err := store.WriteObject(tree)
	if err != nil {
		return objects.Hash{}, fmt.Errorf("gitkit: write-tree: %w", err)
	}
	return oid, nil
}
