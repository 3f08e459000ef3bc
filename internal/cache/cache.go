// ABOUTME: Snapshot cache of the most recent profile listing, keyed by vendor id.
// ABOUTME: On-demand reassessment reads from it until the listing ages past the TTL.

package cache

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/jfeddern/VendorRisk/internal/types"

	"github.com/sirupsen/logrus"
)

const (
	DefaultTTL    = 30 * time.Minute
	pruneInterval = 10 * time.Minute
)

// Snapshot is one vendor profile as last listed by a source
type Snapshot struct {
	Profile   types.VendorProfile
	Source    string
	FetchedAt time.Time
}

// Stats describes the cache contents and how lookups were served
type Stats struct {
	Entries int    `json:"entries"`
	Expired int    `json:"expired"`
	Hits    uint64 `json:"hits"`
	Misses  uint64 `json:"misses"`
}

// ProfileCache holds the last listing of a profile source. A new listing
// replaces the previous one wholesale.
type ProfileCache struct {
	mutex     sync.RWMutex
	snapshots map[string]Snapshot
	ttl       time.Duration
	now       func() time.Time
	logger    *logrus.Logger

	hits   atomic.Uint64
	misses atomic.Uint64

	stop     chan struct{}
	stopOnce sync.Once
}

// NewProfileCache starts a cache that prunes expired snapshots in the background; call Close to stop it
func NewProfileCache(ttl time.Duration, logger *logrus.Logger) *ProfileCache {
	c := newProfileCache(ttl, time.Now, logger)
	go c.pruneEvery(pruneInterval)
	return c
}

func newProfileCache(ttl time.Duration, now func() time.Time, logger *logrus.Logger) *ProfileCache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &ProfileCache{
		snapshots: make(map[string]Snapshot),
		ttl:       ttl,
		now:       now,
		logger:    logger,
		stop:      make(chan struct{}),
	}
}

func (c *ProfileCache) expired(snapshot Snapshot, at time.Time) bool {
	return at.Sub(snapshot.FetchedAt) >= c.ttl
}

// Lookup returns the vendor's snapshot while it is younger than the TTL
func (c *ProfileCache) Lookup(vendorID string) (Snapshot, bool) {
	c.mutex.RLock()
	snapshot, exists := c.snapshots[vendorID]
	c.mutex.RUnlock()

	if !exists || c.expired(snapshot, c.now()) {
		c.misses.Add(1)
		return Snapshot{}, false
	}

	c.hits.Add(1)
	c.logger.WithFields(logrus.Fields{
		"vendor_id": vendorID,
		"source":    snapshot.Source,
	}).Debug("Profile cache hit")
	return snapshot, true
}

// Replace swaps in a complete source listing. Vendors absent from the listing
// are dropped so a removed vendor is never reassessed from a stale snapshot.
func (c *ProfileCache) Replace(source string, records []types.VendorRecord) {
	fetchedAt := c.now()
	snapshots := make(map[string]Snapshot, len(records))
	for _, record := range records {
		snapshots[record.VendorID] = Snapshot{Profile: record.Profile, Source: source, FetchedAt: fetchedAt}
	}

	c.mutex.Lock()
	dropped := 0
	for vendorID := range c.snapshots {
		if _, kept := snapshots[vendorID]; !kept {
			dropped++
		}
	}
	c.snapshots = snapshots
	c.mutex.Unlock()

	c.logger.WithFields(logrus.Fields{
		"source":   source,
		"profiles": len(snapshots),
		"dropped":  dropped,
	}).Debug("Replaced cached profile listing")
}

// Prune removes expired snapshots and reports how many were removed
func (c *ProfileCache) Prune() int {
	now := c.now()

	c.mutex.Lock()
	defer c.mutex.Unlock()

	removed := 0
	for vendorID, snapshot := range c.snapshots {
		if c.expired(snapshot, now) {
			delete(c.snapshots, vendorID)
			removed++
		}
	}
	return removed
}

func (c *ProfileCache) pruneEvery(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if removed := c.Prune(); removed > 0 {
				c.logger.WithField("expired_entries", removed).Debug("Pruned expired profile snapshots")
			}
		case <-c.stop:
			return
		}
	}
}

func (c *ProfileCache) Stats() Stats {
	now := c.now()

	c.mutex.RLock()
	defer c.mutex.RUnlock()

	stats := Stats{
		Entries: len(c.snapshots),
		Hits:    c.hits.Load(),
		Misses:  c.misses.Load(),
	}
	for _, snapshot := range c.snapshots {
		if c.expired(snapshot, now) {
			stats.Expired++
		}
	}
	return stats
}

// Close stops background pruning; it is safe to call more than once
func (c *ProfileCache) Close() {
	c.stopOnce.Do(func() { close(c.stop) })
}
