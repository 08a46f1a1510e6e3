// Copyright (C) 2025 Gavelworks
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package session keeps per-session conversation history in process
// memory. Histories are created lazily on first access and live for the
// lifetime of the process unless a Janitor evicts them.
package session

import (
	"sync"
	"time"

	"github.com/gavelworks/courtroom/services/orchestrator/datatypes"
)

// Store maps session keys to their conversation histories.
//
// # Thread Safety
//
// All methods are safe for concurrent use. Get for the same key always
// returns the same *History pointer, so callers may hold it across
// requests.
type Store struct {
	mu       sync.RWMutex
	sessions map[string]*History
}

func NewStore() *Store {
	return &Store{
		sessions: make(map[string]*History),
	}
}

// Get returns the history for key, creating an empty one on first use.
//
// # Description
//
// Creation is atomic: concurrent callers racing on a new key all
// receive the same History instance. The fast path takes only the
// read lock.
func (s *Store) Get(key string) *History {
	s.mu.RLock()
	h, ok := s.sessions[key]
	s.mu.RUnlock()
	if ok {
		return h
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	// Re-check under the write lock; another goroutine may have won.
	if h, ok := s.sessions[key]; ok {
		return h
	}
	h = newHistory()
	s.sessions[key] = h
	return h
}

// Len returns the number of live sessions.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// Keys returns a snapshot of all session keys.
func (s *Store) Keys() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	keys := make([]string, 0, len(s.sessions))
	for k := range s.sessions {
		keys = append(keys, k)
	}
	return keys
}

// evictExpired removes sessions whose last activity is older than ttl.
// Returns the number of sessions removed. Used by the Janitor.
func (s *Store) evictExpired(now time.Time, ttl time.Duration) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	evicted := 0
	for key, h := range s.sessions {
		if now.Sub(h.lastActive()) > ttl {
			delete(s.sessions, key)
			evicted++
		}
	}
	return evicted
}

// History is the append-only turn log of one session.
//
// # Thread Safety
//
// Append and Snapshot are safe for concurrent use. Snapshot returns a
// copy, so callers can iterate without holding any lock while other
// goroutines append.
type History struct {
	mu      sync.Mutex
	turns   []datatypes.Turn
	touched time.Time
}

func newHistory() *History {
	return &History{touched: time.Now()}
}

// Append adds turns to the end of the log in the given order.
func (h *History) Append(turns ...datatypes.Turn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.turns = append(h.turns, turns...)
	h.touched = time.Now()
}

// Snapshot returns a copy of the current turn log.
func (h *History) Snapshot() []datatypes.Turn {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.touched = time.Now()
	out := make([]datatypes.Turn, len(h.turns))
	copy(out, h.turns)
	return out
}

// Len returns the number of stored turns.
func (h *History) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.turns)
}

func (h *History) lastActive() time.Time {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.touched
}
