// Package memory provides the reference in-memory implementation of the
// storage.Backend contract: plain Go maps behind a mutex, with no
// persistence beyond the process lifetime.
package memory

import (
	"context"
	"strconv"
	"sync"

	"github.com/dupefind/dupefind/pkg/dferr"
	"github.com/dupefind/dupefind/pkg/hashing"
	"github.com/dupefind/dupefind/pkg/storage"
)

const component = "storage/memory"

type bucketKey struct {
	band     int
	bandHash uint32
}

// Backend is an in-memory storage.Backend. The zero value is not usable;
// construct with New. Safe for concurrent use.
type Backend struct {
	mu          sync.RWMutex
	initialized bool
	settings    map[string]string
	documents   map[uint64][]byte
	buckets     map[bucketKey]map[uint64]struct{}
}

// New creates an empty in-memory backend.
func New() *Backend {
	return &Backend{
		settings:  make(map[string]string),
		documents: make(map[uint64][]byte),
		buckets:   make(map[bucketKey]map[uint64]struct{}),
	}
}

var _ storage.Backend = (*Backend)(nil)

// Initialize marks the backend ready. Idempotent: calling it again is a
// no-op, never AlreadyInitialized, since the in-memory reference backend
// has no on-disk state to protect from double-setup.
func (b *Backend) Initialize(_ context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.initialized = true
	return nil
}

// PutSetting stores a configuration value.
func (b *Backend) PutSetting(_ context.Context, key, value string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.settings[key] = value
	return nil
}

// GetSetting retrieves a configuration value.
func (b *Backend) GetSetting(_ context.Context, key string) (string, bool, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	v, ok := b.settings[key]
	return v, ok, nil
}

// PutDocument stores blob under id if supplied, overwriting any existing
// record; otherwise it derives an id by hashing blob with XXHash-32 and
// linearly probing forward past collisions, mirroring the reference
// implementation's auto-id scheme.
func (b *Backend) PutDocument(_ context.Context, blob []byte, id *uint64) (uint64, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if id != nil {
		b.documents[*id] = blob
		return *id, nil
	}
	candidate := uint64(hashing.XXHash32(blob))
	for {
		if _, exists := b.documents[candidate]; !exists {
			break
		}
		candidate++
	}
	b.documents[candidate] = blob
	return candidate, nil
}

// GetDocument retrieves a single document blob.
func (b *Backend) GetDocument(_ context.Context, id uint64) ([]byte, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	blob, ok := b.documents[id]
	if !ok {
		return nil, dferr.New(dferr.NotFound, component, "GetDocument", notFoundErr(id))
	}
	return blob, nil
}

// GetDocuments retrieves multiple document blobs, failing NotFound if any
// requested id is absent.
func (b *Backend) GetDocuments(_ context.Context, ids []uint64) ([][]byte, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	blobs := make([][]byte, len(ids))
	for i, id := range ids {
		blob, ok := b.documents[id]
		if !ok {
			return nil, dferr.New(dferr.NotFound, component, "GetDocuments", notFoundErr(id))
		}
		blobs[i] = blob
	}
	return blobs, nil
}

// DeleteDocument removes a document record. No-op if absent.
func (b *Backend) DeleteDocument(_ context.Context, id uint64) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.documents, id)
	return nil
}

// AddToBucket links id into the set for (band, bandHash).
func (b *Backend) AddToBucket(_ context.Context, band int, bandHash uint32, id uint64) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	key := bucketKey{band, bandHash}
	set, ok := b.buckets[key]
	if !ok {
		set = make(map[uint64]struct{})
		b.buckets[key] = set
	}
	set[id] = struct{}{}
	return nil
}

// GetBucket returns the id set for (band, bandHash).
func (b *Backend) GetBucket(_ context.Context, band int, bandHash uint32) ([]uint64, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	set := b.buckets[bucketKey{band, bandHash}]
	ids := make([]uint64, 0, len(set))
	for id := range set {
		ids = append(ids, id)
	}
	return ids, nil
}

// RemoveFromBucket removes id from the set for (band, bandHash). Removing
// a non-member is a no-op.
func (b *Backend) RemoveFromBucket(_ context.Context, band int, bandHash uint32, id uint64) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	key := bucketKey{band, bandHash}
	set, ok := b.buckets[key]
	if !ok {
		return nil
	}
	delete(set, id)
	if len(set) == 0 {
		delete(b.buckets, key)
	}
	return nil
}

type notFoundErr uint64

func (e notFoundErr) Error() string {
	return "document " + strconv.FormatUint(uint64(e), 10) + " not found"
}
