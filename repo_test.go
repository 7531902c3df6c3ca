// Copyright 2012 Rémy Oudompheng. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package gitkit

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/arourke/gitkit/objects"
)

func TestInitCreatesLayout(t *testing.T) {
	dir := t.TempDir()
	gitDir := filepath.Join(dir, ".git")

	r, err := Init(gitDir)
	require.NoError(t, err)
	require.DirExists(t, filepath.Join(gitDir, "objects"))
	require.DirExists(t, filepath.Join(gitDir, "refs", "heads"))
	require.FileExists(t, filepath.Join(gitDir, "HEAD"))

	head, err := r.Head()
	require.Error(t, err) // refs/heads/main does not exist yet
	require.True(t, head.IsZero())
}

func TestSetHeadBranchAndHead(t *testing.T) {
	dir := t.TempDir()
	r, err := Init(filepath.Join(dir, ".git"))
	require.NoError(t, err)

	blob := objects.Blob{Data: []byte("hello\n")}
	oid, err := r.Store.WriteObject(blob)
	require.NoError(t, err)

	require.NoError(t, r.SetHeadBranch("main", oid))

	head, err := r.Head()
	require.NoError(t, err)
	require.Equal(t, oid, head)

	branches, err := r.Branches()
	require.NoError(t, err)
	require.Len(t, branches, 1)
	require.Equal(t, "main", branches[0].Name)
	require.Equal(t, oid, branches[0].ID)
}

func TestOpenRejectsNonRepository(t *testing.T) {
	dir := t.TempDir()
	_, err := Open(dir)
	require.ErrorIs(t, err, ErrNotARepository)
}

func TestCommitTreeRoundTrip(t *testing.T) {
	dir := t.TempDir()
	r, err := Init(filepath.Join(dir, ".git"))
	require.NoError(t, err)

	tree := objects.NewTree(nil)
	_, err = r.Store.WriteObject(tree)
	require.NoError(t, err)

	oid, err := r.CommitTree(tree.Hash, nil, "initial commit\n")
	require.NoError(t, err)

	obj, err := r.Store.ReadObject(oid)
	require.NoError(t, err)
	commit, ok := obj.(objects.Commit)
	require.True(t, ok)
	require.Equal(t, tree.Hash, commit.Tree)
	require.Equal(t, DefaultIdentity, commit.Author)
	require.Empty(t, commit.Parents)
}

func TestDeriveDirName(t *testing.T) {
	require.Equal(t, "foo", DeriveDirName("https://example.com/bar/foo.git"))
	require.Equal(t, "foo", DeriveDirName("https://example.com/bar/foo"))
	require.Equal(t, "gitkit", DeriveDirName("git@example.com:org/gitkit.git"))
}
