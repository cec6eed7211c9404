// Copyright 2020 Erin Shepherd
// SPDX-License-Identifier: ISC

// Package stream implements the forward-only byte cursor which the decoder
// reads from
package stream

import (
	"os"

	"go.e43.eu/bfp/internal/errors"
)

// Stream is a bounds checked forward cursor over an immutable buffer.
//
// A Stream must not be used from multiple goroutines at once
type Stream struct {
	buf []byte
	pos int
}

// New returns a stream positioned at the start of buf. The buffer is not
// copied and must not be modified while the stream is in use
func New(buf []byte) *Stream {
	return &Stream{buf: buf}
}

// FromFile reads the whole file at path into a new stream
func FromFile(path string) (*Stream, error) {
	buf, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return New(buf), nil
}

// Read returns the next n bytes and advances past them
func (s *Stream) Read(n int) ([]byte, error) {
	b, err := s.Peek(n)
	if err != nil {
		return nil, err
	}
	s.pos += len(b)
	return b, nil
}

// Peek returns the next n bytes without advancing
func (s *Stream) Peek(n int) ([]byte, error) {
	if n <= 0 {
		return nil, nil
	}

	if avail := len(s.buf) - s.pos; avail < n {
		return nil, errors.ShortReadError{Requested: n, Available: avail}
	}
	return s.buf[s.pos : s.pos+n : s.pos+n], nil
}

// Remaining consumes and returns every unread byte
func (s *Stream) Remaining() []byte {
	b := s.buf[s.pos:]
	s.pos = len(s.buf)
	return b
}

// Len returns the number of unread bytes
func (s *Stream) Len() int {
	return len(s.buf) - s.pos
}

// Offset returns the number of bytes consumed so far
func (s *Stream) Offset() int {
	return s.pos
}
