// Copyright (C) 2025 Gavelworks
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package middleware

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

// maxTrackedClients bounds the per-client limiter map.
const maxTrackedClients = 10000

// staleClientAge is how long an idle client keeps its limiter.
const staleClientAge = 10 * time.Minute

type clientLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimitMiddleware creates a per-client token bucket limiter.
//
// # Description
//
// Each client IP gets its own bucket refilling at rps requests per
// second with the given burst. Requests over the limit are rejected
// with 429. Idle client entries are pruned once the map grows past
// maxTrackedClients.
//
// An rps of 0 or less disables limiting.
//
// # Inputs
//
//   - rps: Sustained requests per second allowed per client.
//   - burst: Maximum burst size per client.
//
// # Outputs
//
//   - gin.HandlerFunc: Middleware function ready for use with Gin
func RateLimitMiddleware(rps float64, burst int) gin.HandlerFunc {
	if rps <= 0 {
		return func(c *gin.Context) { c.Next() }
	}

	var mu sync.Mutex
	clients := make(map[string]*clientLimiter)

	return func(c *gin.Context) {
		key := c.ClientIP()

		mu.Lock()
		cl, ok := clients[key]
		if !ok {
			cl = &clientLimiter{limiter: rate.NewLimiter(rate.Limit(rps), burst)}
			clients[key] = cl
		}
		cl.lastSeen = time.Now()
		if len(clients) > maxTrackedClients {
			cutoff := time.Now().Add(-staleClientAge)
			for k, v := range clients {
				if v.lastSeen.Before(cutoff) {
					delete(clients, k)
				}
			}
		}
		mu.Unlock()

		if !cl.limiter.Allow() {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error": "rate limit exceeded",
			})
			return
		}
		c.Next()
	}
}
