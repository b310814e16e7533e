// Package client implements the client-side send/receive pipeline:
// route selection over the server database, onion-wrapped sends with
// redundancy tracking, receive deduplication, and the cleartext message
// store.
package client

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"sync"
	"time"
)

// Deduplicator tracks recently seen message digests so a redundant send
// (or flood rebroadcast) is only processed once. A TTL of zero keeps
// every entry forever.
type Deduplicator struct {
	mu    sync.Mutex
	seen  map[string]time.Time // key -> expiration; zero time means forever
	ttl   time.Duration
	clock func() time.Time
}

// NewDeduplicator builds a Deduplicator with the given TTL.
func NewDeduplicator(ttl time.Duration) *Deduplicator {
	return &Deduplicator{seen: make(map[string]time.Time), ttl: ttl, clock: time.Now}
}

// IsNew reports whether data hasn't been seen (or its prior sighting has
// expired), recording it as seen (with a fresh TTL) either way —
// matching the source's is_msg_new, which always resets the expiration
// so a retransmitted message keeps its entry alive.
func (d *Deduplicator) IsNew(data []byte) bool {
	if len(data) == 0 {
		return true
	}
	sum := sha256.Sum256(data)
	key := hex.EncodeToString(sum[:])

	now := d.clock()
	d.mu.Lock()
	defer d.mu.Unlock()

	expiration, existed := d.seen[key]
	if d.ttl > 0 {
		d.seen[key] = now.Add(d.ttl)
	} else {
		d.seen[key] = time.Time{} // never expires
	}
	if !existed {
		return true
	}
	if d.ttl <= 0 {
		return false // kept forever, already seen
	}
	return expiration.Before(now)
}

// Purge removes every entry whose TTL has elapsed. Entries kept forever
// (zero expiration) are never purged.
func (d *Deduplicator) Purge() {
	now := d.clock()
	d.mu.Lock()
	defer d.mu.Unlock()
	for key, expiration := range d.seen {
		if expiration.IsZero() {
			continue
		}
		if !expiration.After(now) {
			delete(d.seen, key)
		}
	}
}

// Run purges expired entries on the given interval until ctx is done.
func (d *Deduplicator) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			d.Purge()
		}
	}
}
