package services

import (
	"sync"

	"github.com/printbatch/printbatch/internal/common"
)

// ResultCache holds the most recently merged document per batch for the
// lifetime of the process. It is a rebuildable cache, not a source of
// truth: a restart loses all artifacts and a re-run of the merge restores
// them, provided the ledger entries were not yet marked processed.
//
// The cache is the only structure shared between the merge engine and the
// download path, so all access goes through the mutex.
type ResultCache struct {
	mu        sync.RWMutex
	artifacts map[string][]byte
}

func NewResultCache() *ResultCache {
	return &ResultCache{artifacts: make(map[string][]byte)}
}

// Put stores the merged bytes under the verbatim batch label. Last write
// wins. The slice is copied so later caller mutations cannot corrupt the
// cached artifact.
func (c *ResultCache) Put(batch string, data []byte) {
	cp := make([]byte, len(data))
	copy(cp, data)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.artifacts[batch] = cp
}

// Get returns a copy of the cached artifact, or common.ErrNotFound.
func (c *ResultCache) Get(batch string) ([]byte, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	data, ok := c.artifacts[batch]
	if !ok {
		return nil, common.ErrNotFound
	}
	cp := make([]byte, len(data))
	copy(cp, data)
	return cp, nil
}

// Clear drops the artifact for batch, if any.
func (c *ResultCache) Clear(batch string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.artifacts, batch)
}
