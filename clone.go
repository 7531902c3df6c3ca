// Copyright 2012 Rémy Oudompheng. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package gitkit

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
	"strings"

	"github.com/arourke/gitkit/objects"
	"github.com/arourke/gitkit/packfile"
	"github.com/arourke/gitkit/pktline"
)

// ClientAgent identifies this client in the "want" capability line, the
// way real Git sends "agent=git/2.x".
const ClientAgent = "gitkit/1.0"

// ErrTransport covers any non-200 HTTP response from the remote.
var ErrTransport = errors.New("gitkit: transport error")

// Transport is the network boundary Fetch/Clone depend on. The default,
// httpTransport, is the only thing in this module that imports net/http;
// core packages (objects, pktline, packfile) never see a socket.
type Transport interface {
	// Discover performs the Smart HTTP ref-discovery GET request.
	Discover(ctx context.Context, repoURL string) (io.ReadCloser, error)
	// UploadPack performs the git-upload-pack POST request with body as
	// the pkt-line-framed request payload.
	UploadPack(ctx context.Context, repoURL string, body io.Reader) (io.ReadCloser, error)
}

type httpTransport struct {
	client *http.Client
}

// NewHTTPTransport returns the default Transport, backed by
// http.DefaultClient if client is nil.
func NewHTTPTransport(client *http.Client) Transport {
	if client == nil {
		client = http.DefaultClient
	}
	return &httpTransport{client: client}
}

func (t *httpTransport) Discover(ctx context.Context, repoURL string) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, repoURL+"/info/refs?service=git-upload-pack", nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTransport, err)
	}
	resp, err := t.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTransport, err)
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("%w: discovery: status %d", ErrTransport, resp.StatusCode)
	}
	return resp.Body, nil
}

func (t *httpTransport) UploadPack(ctx context.Context, repoURL string, body io.Reader) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, repoURL+"/git-upload-pack", body)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTransport, err)
	}
	req.Header.Set("Content-Type", "application/x-git-upload-pack-request")
	resp, err := t.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTransport, err)
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("%w: upload-pack: status %d", ErrTransport, resp.StatusCode)
	}
	return resp.Body, nil
}

// Clone fetches repoURL's default branch over Smart HTTP into a new
// repository at dir, then checks out its tree. dir is created if it does
// not exist.
func Clone(ctx context.Context, transport Transport, repoURL, dir string, progress Progress) (*Repo, error) {
	r, err := Init(path.Join(dir, ".git"))
	if err != nil {
		return nil, err
	}

	oid, err := fetch(ctx, transport, repoURL, r, progress)
	if err != nil {
		return nil, err
	}

	if err := r.SetHeadBranch("main", oid); err != nil {
		return nil, err
	}
	if err := Checkout(r, oid, dir); err != nil {
		return nil, err
	}
	return r, nil
}

// fetch runs the wire half of clone (steps 1-5 of the seven-step sequence):
// ref discovery, want/done negotiation, side-band demultiplex, and
// packfile resolution, writing every resolved object into r.Store. It
// returns the discovered HEAD commit's OID.
func fetch(ctx context.Context, transport Transport, repoURL string, r *Repo, progress Progress) (objects.Hash, error) {
	refsBody, err := transport.Discover(ctx, repoURL)
	if err != nil {
		return objects.Hash{}, err
	}
	defer refsBody.Close()

	hexOID, err := pktline.DiscoverHead(refsBody)
	if err != nil {
		return objects.Hash{}, fmt.Errorf("gitkit: ref discovery: %w", err)
	}
	oid, err := objects.FromHex(hexOID)
	if err != nil {
		return objects.Hash{}, fmt.Errorf("gitkit: ref discovery: %w", err)
	}

	reqBody, err := buildWantRequest(oid)
	if err != nil {
		return objects.Hash{}, err
	}
	packBody, err := transport.UploadPack(ctx, repoURL, reqBody)
	if err != nil {
		return objects.Hash{}, err
	}
	defer packBody.Close()

	var sink io.Writer
	if progress != nil {
		sink = progress
	}
	pack, err := pktline.DemultiplexSideBand(packBody, sink)
	if err != nil {
		var remoteErr *pktline.RemoteError
		if errors.As(err, &remoteErr) {
			return objects.Hash{}, fmt.Errorf("gitkit: %w", remoteErr)
		}
		return objects.Hash{}, fmt.Errorf("gitkit: side-band demultiplex: %w", err)
	}
	if hp, ok := progress.(*HumanProgress); ok {
		hp.ReportPackSize(len(pack))
	}

	entries, err := packfile.Parse(pack)
	if err != nil {
		return objects.Hash{}, fmt.Errorf("gitkit: packfile: %w", err)
	}
	for _, e := range entries {
		// e.OID is already derived from objects.Parse(e.Kind, e.Payload).ID()
		// inside packfile.Parse, so re-parsing here to obtain an Object for
		// storage can never disagree with it.
		obj, err := objects.Parse(e.Kind, e.Payload)
		if err != nil {
			return objects.Hash{}, fmt.Errorf("gitkit: packfile: %w", err)
		}
		if _, err := r.Store.WriteObject(obj); err != nil {
			return objects.Hash{}, fmt.Errorf("gitkit: %w", err)
		}
	}

	return oid, nil
}

// buildWantRequest renders the pkt-line framed git-upload-pack request
// body: one "want <oid> <capabilities>" line, a flush, and "done".
func buildWantRequest(oid objects.Hash) (io.Reader, error) {
	var buf bytes.Buffer
	want := fmt.Sprintf("want %s multi_ack_detailed no-done side-band-64k agent=%s\n", oid, ClientAgent)
	wantPkt, err := pktline.Encode([]byte(want))
	if err != nil {
		return nil, fmt.Errorf("gitkit: %w", err)
	}
	buf.Write(wantPkt)

	flush, _ := pktline.Encode(nil)
	buf.Write(flush)

	donePkt, err := pktline.Encode([]byte("done\n"))
	if err != nil {
		return nil, fmt.Errorf("gitkit: %w", err)
	}
	buf.Write(donePkt)
	return &buf, nil
}

// DeriveDirName extracts a destination directory name from a repository
// URL the way "git clone" does when no explicit directory is given: the
// last path segment, with a trailing ".git" stripped.
func DeriveDirName(repoURL string) string {
	u, err := url.Parse(repoURL)
	var last string
	if err == nil && u.Path != "" {
		last = path.Base(u.Path)
	} else {
		last = path.Base(repoURL)
	}
	return strings.TrimSuffix(last, ".git")
}
