// Copyright 2012 Rémy Oudompheng. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package pktline

import (
	"bytes"
	"fmt"
	"io"
)

const (
	bandData     = 1
	bandProgress = 2
	bandError    = 3
)

// RemoteError is returned by DemultiplexSideBand when the remote sends a
// band-3 fatal error message.
type RemoteError struct {
	Text string
}

func (e *RemoteError) Error() string { return fmt.Sprintf("gitkit: remote error: %s", e.Text) }

// DemultiplexSideBand reads a side-band-64k encoded pkt-line stream from r
// and returns the concatenated band-1 (packfile data) bytes. Band-2
// progress text is written to progress as it arrives (if non-nil); a
// band-3 frame aborts immediately with a *RemoteError. Any other band
// value, or an empty Data frame, is ignored.
func DemultiplexSideBand(r io.Reader, progress io.Writer) ([]byte, error) {
	dec := NewDecoder(r)
	var pack bytes.Buffer

	for {
		frame, ok, err := dec.Next()
		if err != nil {
			return nil, err
		}
		if !ok {
			return pack.Bytes(), nil
		}
		if frame.Flush || len(frame.Data) == 0 {
			continue
		}

		band, payload := frame.Data[0], frame.Data[1:]
		switch band {
		case bandData:
			pack.Write(payload)
		case bandProgress:
			if progress != nil {
				progress.Write(payload)
			}
		case bandError:
			return nil, &RemoteError{Text: string(payload)}
		}
	}
}
