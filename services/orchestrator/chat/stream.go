// Copyright (C) 2025 Gavelworks
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package chat

import (
	"context"
	"strings"

	"github.com/gavelworks/courtroom/services/orchestrator/datatypes"
)

// AnswerStream delivers answer chunks to one consumer.
//
// # Description
//
// A single producer goroutine feeds the stream; the consumer drains it
// with Recv until ok is false, then inspects Err. Close abandons the
// stream early and cancels the producer.
//
// # Thread Safety
//
// Recv must be called from one goroutine at a time. Close is safe to
// call concurrently with Recv.
type AnswerStream struct {
	ch     chan string
	cancel context.CancelFunc

	// err and sources are written by the producer before ch is closed.
	err     error
	sources []datatypes.SourceInfo
}

func newAnswerStream(cancel context.CancelFunc) *AnswerStream {
	return &AnswerStream{
		ch:     make(chan string, 16),
		cancel: cancel,
	}
}

// Recv returns the next chunk. ok is false once the stream is finished,
// after which Err reports how it ended.
func (s *AnswerStream) Recv() (chunk string, ok bool) {
	chunk, ok = <-s.ch
	return chunk, ok
}

// Err returns the terminal error, if any. Valid only after Recv has
// returned ok == false.
func (s *AnswerStream) Err() error {
	return s.err
}

// Sources returns the attribution for the retrieved chunks. Valid only
// after Recv has returned ok == false.
func (s *AnswerStream) Sources() []datatypes.SourceInfo {
	return s.sources
}

// Close abandons the stream. The producer is cancelled and the session
// history is left untouched. Safe to call more than once.
func (s *AnswerStream) Close() {
	s.cancel()
	// Drain so the producer never blocks on send.
	go func() {
		for range s.ch {
		}
	}()
}

// Text drains the stream and returns the concatenated answer.
func (s *AnswerStream) Text() (string, error) {
	var b strings.Builder
	for {
		chunk, ok := s.Recv()
		if !ok {
			break
		}
		b.WriteString(chunk)
	}
	if err := s.Err(); err != nil {
		return "", err
	}
	return b.String(), nil
}

// send delivers one chunk, aborting when the consumer is gone.
func (s *AnswerStream) send(ctx context.Context, chunk string) error {
	select {
	case s.ch <- chunk:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// finish ends the stream. A nil err marks clean completion.
func (s *AnswerStream) finish(err error) {
	s.err = err
	close(s.ch)
}
