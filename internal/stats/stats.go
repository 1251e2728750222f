// Package stats tracks the lifetime download counter in a small JSON file.
package stats

import (
	"encoding/json"
	"os"
	"sync"
	"time"
)

// Snapshot is the persisted counter state.
type Snapshot struct {
	TotalDownloads int       `json:"totalDownloads"`
	LastUpdated    time.Time `json:"lastUpdated"`
}

// Counter is a process-wide download counter backed by a JSON file.
// A missing or corrupt file resets the count to zero rather than failing.
type Counter struct {
	mu   sync.Mutex
	path string
	snap Snapshot
}

// Load reads the counter file at path, tolerating absence and corruption.
func Load(path string) *Counter {
	c := &Counter{path: path}

	data, err := os.ReadFile(path)
	if err != nil {
		return c
	}
	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return c
	}
	c.snap = snap
	return c
}

// Increment bumps the counter and persists it. Write failures are
// ignored; the in-memory count stays authoritative for this process.
func (c *Counter) Increment() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.snap.TotalDownloads++
	c.snap.LastUpdated = time.Now().UTC()

	data, err := json.MarshalIndent(c.snap, "", "  ")
	if err != nil {
		return
	}
	_ = os.WriteFile(c.path, data, 0o644)
}

// Get returns the current snapshot.
func (c *Counter) Get() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snap
}
