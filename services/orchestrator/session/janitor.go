// Copyright (C) 2025 Gavelworks
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package session

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// JanitorConfig controls idle-session eviction.
//
// # Fields
//
//   - TTL: How long a session may sit idle before eviction.
//   - Interval: How often the store is swept.
type JanitorConfig struct {
	TTL      time.Duration
	Interval time.Duration
}

// DefaultJanitorConfig returns sweep settings suitable for production:
// sessions idle for 24 hours are dropped, checked every 10 minutes.
func DefaultJanitorConfig() JanitorConfig {
	return JanitorConfig{
		TTL:      24 * time.Hour,
		Interval: 10 * time.Minute,
	}
}

// Janitor periodically evicts idle sessions from a Store.
//
// # Description
//
// Eviction is opt-in. A service that wants process-lifetime histories
// simply never starts a Janitor; Start begins the sweep loop and Stop
// shuts it down. Stop blocks until the loop has exited.
type Janitor struct {
	store  *Store
	config JanitorConfig

	stopOnce sync.Once
	started  bool
	cancel   context.CancelFunc
	done     chan struct{}
}

func NewJanitor(store *Store, config JanitorConfig) *Janitor {
	if config.TTL <= 0 {
		config.TTL = DefaultJanitorConfig().TTL
		slog.Warn("janitor TTL not set, defaulting", "ttl", config.TTL)
	}
	if config.Interval <= 0 {
		config.Interval = DefaultJanitorConfig().Interval
		slog.Warn("janitor interval not set, defaulting", "interval", config.Interval)
	}
	return &Janitor{
		store:  store,
		config: config,
		done:   make(chan struct{}),
	}
}

// Start launches the sweep loop in its own goroutine.
func (j *Janitor) Start() {
	ctx, cancel := context.WithCancel(context.Background())
	j.cancel = cancel
	j.started = true

	go func() {
		defer close(j.done)
		ticker := time.NewTicker(j.config.Interval)
		defer ticker.Stop()

		slog.Info("session janitor started",
			"ttl", j.config.TTL,
			"interval", j.config.Interval,
		)
		for {
			select {
			case <-ctx.Done():
				slog.Info("session janitor stopped")
				return
			case now := <-ticker.C:
				if evicted := j.store.evictExpired(now, j.config.TTL); evicted > 0 {
					slog.Info("evicted idle sessions",
						"evicted", evicted,
						"remaining", j.store.Len(),
					)
				}
			}
		}
	}()
}

// Stop halts the sweep loop and waits for it to exit.
func (j *Janitor) Stop() {
	j.stopOnce.Do(func() {
		if !j.started {
			return
		}
		j.cancel()
		<-j.done
	})
}

// SweepNow runs one eviction pass immediately. Exposed for admin use.
func (j *Janitor) SweepNow() int {
	return j.store.evictExpired(time.Now(), j.config.TTL)
}
