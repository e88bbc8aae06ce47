package server

import (
	"sync"
	"time"
)

// limiter is a sliding-window request limiter keyed by client. Sub-buckets
// keep the window accurate without storing per-request timestamps.
type limiter struct {
	perMinute   int
	bucketCount int
	mu          sync.Mutex
	clients     map[string]*window
}

type window struct {
	buckets  map[int64]int
	total    int
	lastSeen time.Time
}

func newLimiter(perMinute int) *limiter {
	return &limiter{
		perMinute:   perMinute,
		bucketCount: 6, // 10s buckets over a 60s window
		clients:     make(map[string]*window),
	}
}

// allow records one request for the client and reports whether it fits the
// window.
func (l *limiter) allow(client string) bool {
	now := time.Now()
	bucketSize := int64(60 / l.bucketCount)
	current := now.Unix() / bucketSize
	oldest := current - int64(l.bucketCount) + 1

	l.mu.Lock()
	defer l.mu.Unlock()

	w, ok := l.clients[client]
	if !ok {
		w = &window{buckets: make(map[int64]int)}
		l.clients[client] = w
	}
	w.lastSeen = now

	for b, n := range w.buckets {
		if b < oldest {
			w.total -= n
			delete(w.buckets, b)
		}
	}

	if w.total >= l.perMinute {
		return false
	}
	w.buckets[current]++
	w.total++
	return true
}

// sweep drops clients idle longer than maxIdle. Called opportunistically
// from the request path.
func (l *limiter) sweep(maxIdle time.Duration) {
	cutoff := time.Now().Add(-maxIdle)
	l.mu.Lock()
	defer l.mu.Unlock()
	for client, w := range l.clients {
		if w.lastSeen.Before(cutoff) {
			delete(l.clients, client)
		}
	}
}
