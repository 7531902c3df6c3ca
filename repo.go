// Copyright 2012 Rémy Oudompheng. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package gitkit ties the object store, packfile resolver, and pkt-line
// transport codec together into repository-level operations: init, ref
// and HEAD handling, fetch-over-Smart-HTTP, and working-tree checkout.
//
// Unlike objects/pktline/packfile/gitdelta, this package and cmd/gitkit
// are the only ones that know about the filesystem layout of a `.git`
// directory and (for Fetch/Clone) the network.
package gitkit

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/arourke/gitkit/objects"
)

// DefaultIdentity is the author/committer identity CommitTree uses. A
// real client would resolve this from .gitconfig; this one constant is
// the whole of that layer, per this project's scope.
var DefaultIdentity = "gitkit <gitkit@localhost>"

var (
	// ErrNotARepository is returned by Open when dir has no objects
	// subdirectory.
	ErrNotARepository = errors.New("gitkit: not a git repository")
	errTruncatedHead  = errors.New("gitkit: ref file truncated or malformed")
)

// Repo is a handle to a repository's on-disk layout: its object store and
// its set of branch refs.
type Repo struct {
	Path  string // the .git directory (or bare repository root)
	Store *objects.Store
}

// Ref is one entry under refs/heads.
type Ref struct {
	Name string
	ID   objects.Hash
}

// Init creates a new repository at dir: dir/objects, dir/refs/heads, and
// a HEAD file pointing at refs/heads/main. dir is the .git directory
// itself, not its parent.
func Init(dir string) (*Repo, error) {
	if err := os.MkdirAll(filepath.Join(dir, "refs", "heads"), 0o755); err != nil {
		return nil, fmt.Errorf("gitkit: init: %w", err)
	}
	objectsDir := filepath.Join(dir, "objects")
	if err := objects.Init(objectsDir); err != nil {
		return nil, fmt.Errorf("gitkit: init: %w", err)
	}
	store := objects.NewStore(objectsDir)
	if err := os.WriteFile(filepath.Join(dir, "HEAD"), []byte("ref: refs/heads/main\n"), 0o644); err != nil {
		return nil, fmt.Errorf("gitkit: init: %w", err)
	}
	return &Repo{Path: dir, Store: store}, nil
}

// Open loads an existing repository rooted at dir (the .git directory).
func Open(dir string) (*Repo, error) {
	info, err := os.Stat(filepath.Join(dir, "objects"))
	if err != nil || !info.IsDir() {
		return nil, ErrNotARepository
	}
	return &Repo{Path: dir, Store: objects.NewStore(filepath.Join(dir, "objects"))}, nil
}

// Branches lists every ref under refs/heads.
func (r *Repo) Branches() ([]Ref, error) {
	entries, err := os.ReadDir(filepath.Join(r.Path, "refs", "heads"))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("gitkit: %w", err)
	}
	refs := make([]Ref, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		id, err := r.readRefFile(filepath.Join("refs", "heads", e.Name()))
		if err != nil {
			return nil, err
		}
		refs = append(refs, Ref{Name: e.Name(), ID: id})
	}
	return refs, nil
}

// Head resolves HEAD to the OID it currently points at, following one
// level of "ref: <path>" indirection (the only kind this client ever
// writes or expects to read).
func (r *Repo) Head() (objects.Hash, error) {
	data, err := os.ReadFile(filepath.Join(r.Path, "HEAD"))
	if err != nil {
		return objects.Hash{}, fmt.Errorf("gitkit: %w", err)
	}
	s := strings.TrimSpace(string(data))
	if rest, ok := strings.CutPrefix(s, "ref: "); ok {
		return r.readRefFile(rest)
	}
	return objects.FromHex(s)
}

// SetHeadBranch writes refs/heads/<name> = id and points HEAD at it.
func (r *Repo) SetHeadBranch(name string, id objects.Hash) error {
	refPath := filepath.Join(r.Path, "refs", "heads", name)
	if err := os.MkdirAll(filepath.Dir(refPath), 0o755); err != nil {
		return fmt.Errorf("gitkit: %w", err)
	}
	if err := os.WriteFile(refPath, []byte(id.String()+"\n"), 0o644); err != nil {
		return fmt.Errorf("gitkit: %w", err)
	}
	head := fmt.Sprintf("ref: refs/heads/%s\n", name)
	if err := os.WriteFile(filepath.Join(r.Path, "HEAD"), []byte(head), 0o644); err != nil {
		return fmt.Errorf("gitkit: %w", err)
	}
	return nil
}

func (r *Repo) readRefFile(relPath string) (objects.Hash, error) {
	data, err := os.ReadFile(filepath.Join(r.Path, relPath))
	if err != nil {
		return objects.Hash{}, fmt.Errorf("gitkit: %w", err)
	}
	s := bytes.TrimSpace(data)
	id, err := objects.FromHex(string(s))
	if err != nil {
		return objects.Hash{}, errTruncatedHead
	}
	return id, nil
}

// CommitTree builds and writes a commit object with the given tree,
// parents, and message, using DefaultIdentity for both author and
// committer and the current time for both timestamps.
func (r *Repo) CommitTree(tree objects.Hash, parents []objects.Hash, message string) (objects.Hash, error) {
	now := time.Now()
	c := objects.Commit{
		Tree:          tree,
		Parents:       parents,
		Author:        DefaultIdentity,
		AuthorTime:    now,
		Committer:     DefaultIdentity,
		CommitterTime: now,
		Message:       []byte(message),
	}
	c.Hash = objects.Sum(objects.Canonical(c))
	return r.Store.WriteObject(c)
}
