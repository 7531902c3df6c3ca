// Copyright 2012 Rémy Oudompheng. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package gitkit

import (
	"fmt"
	"io"

	"github.com/dustin/go-humanize"
)

// Progress receives human-readable status lines during Fetch/Clone: the
// side-band band-2 bytes the remote sends while counting, compressing,
// and sending objects. A nil Progress discards these.
type Progress interface {
	io.Writer
}

// HumanProgress wraps w, prefixing it with nothing extra — the remote's
// band-2 text is already human-readable — but exposes ReportPackSize to
// print a go-humanize-formatted byte count once the pack finishes
// downloading, the way `git clone`'s own progress meter does.
type HumanProgress struct {
	w io.Writer
}

// NewHumanProgress wraps w (typically os.Stderr) as a Progress sink.
func NewHumanProgress(w io.Writer) *HumanProgress { return &HumanProgress{w: w} }

func (p *HumanProgress) Write(b []byte) (int, error) { return p.w.Write(b) }

// ReportPackSize writes a one-line human-readable summary of how many
// bytes of packfile data were received, e.g. "Receiving objects: 1.2 MB,
// done.".
func (p *HumanProgress) ReportPackSize(n int) {
	fmt.Fprintf(p.w, "Receiving objects: %s, done.\n", humanize.Bytes(uint64(n)))
}
