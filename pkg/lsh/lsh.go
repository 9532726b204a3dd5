// Package lsh implements the banded Locality-Sensitive Hashing index:
// band-hash computation, insert, query, top-N query, and remove, driven
// through a storage.Backend. Band lookups and candidate document loads are
// fanned out concurrently with errgroup; the index itself holds no
// mutable state beyond the backend handle and its immutable config.
package lsh

import (
	"context"
	"encoding/binary"
	"sort"

	"golang.org/x/sync/errgroup"

	"github.com/dupefind/dupefind/pkg/dferr"
	"github.com/dupefind/dupefind/pkg/hashing"
	"github.com/dupefind/dupefind/pkg/minhash"
	"github.com/dupefind/dupefind/pkg/storage"
)

const component = "lsh"

// exactPartSeparator is the domain-separator byte appended before an
// exact_part's UTF-8 bytes when computing a band hash, so exact parts
// partition the bucket space and can never collide with an unqualified
// band hash.
const exactPartSeparator = 0x2D

// Config is an immutable LSH parameterization. K must equal B*R.
type Config struct {
	K int
	B int
	R int
}

// NewConfig validates and returns a Config, failing InvalidInput if
// K != B*R.
func NewConfig(k, b, r int) (Config, error) {
	if k != b*r {
		return Config{}, dferr.New(dferr.InvalidInput, component, "NewConfig", errBadConfig)
	}
	return Config{K: k, B: b, R: r}, nil
}

type configError string

func (e configError) Error() string { return string(e) }

const errBadConfig = configError("lsh config must satisfy K = B*R")

// Index is a banded LSH index over a storage.Backend. Immutable after
// construction and safe to share across goroutines; two concurrent
// Inserts for distinct ids are safe, and concurrent Insert/Remove on the
// same id has backend-defined ordering.
type Index struct {
	backend storage.Backend
	level   storage.Level
	cfg     Config
}

// New constructs an Index over backend, persisting documents at level and
// banding fingerprints per cfg.
func New(backend storage.Backend, level storage.Level, cfg Config) *Index {
	return &Index{backend: backend, level: level, cfg: cfg}
}

// Config returns the index's LSH parameterization.
func (idx *Index) Config() Config { return idx.cfg }

// bandHash reduces the length-R slice of fp for band to a 32-bit integer
// via Murmur3 over its little-endian byte layout, optionally domain
// separated by an exact_part.
func (idx *Index) bandHash(fp minhash.Fingerprint, band int, exactPart *string) uint32 {
	start := band * idx.cfg.R
	end := start + idx.cfg.R
	buf := make([]byte, 0, idx.cfg.R*4+1+32)
	for _, v := range fp[start:end] {
		buf = binary.LittleEndian.AppendUint32(buf, v)
	}
	if exactPart != nil {
		buf = append(buf, exactPartSeparator)
		buf = append(buf, []byte(*exactPart)...)
	}
	return hashing.Murmur3_32(buf)
}

// Insert persists doc at the index's storage level and adds its id to
// every band bucket. idExternal marks doc.ID as caller-supplied (an
// idempotent overwrite) rather than backend-assigned. Fails InvalidInput
// if doc.Fingerprint is nil.
func (idx *Index) Insert(ctx context.Context, doc storage.StoredDocument, idExternal bool) (uint64, error) {
	if doc.Fingerprint == nil {
		return 0, dferr.New(dferr.InvalidInput, component, "Insert", errNilFingerprint)
	}
	blob := storage.Serialize(doc, idx.level, idExternal)
	var idPtr *uint64
	if idExternal {
		idPtr = &doc.ID
	}
	id, err := idx.backend.PutDocument(ctx, blob, idPtr)
	if err != nil {
		return 0, dferr.New(dferr.BackendError, component, "Insert", err)
	}
	for band := 0; band < idx.cfg.B; band++ {
		h := idx.bandHash(doc.Fingerprint, band, doc.ExactPart)
		if err := idx.backend.AddToBucket(ctx, band, h, id); err != nil {
			return id, dferr.New(dferr.BackendError, component, "Insert", err)
		}
	}
	return id, nil
}

type fingerprintError string

func (e fingerprintError) Error() string { return string(e) }

const errNilFingerprint = fingerprintError("fingerprint must not be nil")

// fetchBandIDs fetches every band's candidate id set concurrently,
// returning one slice per band in band order.
func (idx *Index) fetchBandIDs(ctx context.Context, fp minhash.Fingerprint, exactPart *string) ([][]uint64, error) {
	results := make([][]uint64, idx.cfg.B)
	g, gctx := errgroup.WithContext(ctx)
	for band := 0; band < idx.cfg.B; band++ {
		band := band
		g.Go(func() error {
			h := idx.bandHash(fp, band, exactPart)
			ids, err := idx.backend.GetBucket(gctx, band, h)
			if err != nil {
				return dferr.New(dferr.BackendError, component, "Query", err)
			}
			results[band] = ids
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// unionIDs merges per-band id slices into a deduplicated candidate list,
// preserving first-seen order.
func unionIDs(perBand [][]uint64) []uint64 {
	seen := make(map[uint64]struct{})
	ids := make([]uint64, 0)
	for _, band := range perBand {
		for _, id := range band {
			if _, ok := seen[id]; !ok {
				seen[id] = struct{}{}
				ids = append(ids, id)
			}
		}
	}
	return ids
}

// loadDocuments loads each candidate id's StoredDocument concurrently,
// returning them in the same order as ids.
func (idx *Index) loadDocuments(ctx context.Context, ids []uint64) ([]storage.StoredDocument, error) {
	docs := make([]storage.StoredDocument, len(ids))
	g, gctx := errgroup.WithContext(ctx)
	for i, id := range ids {
		i, id := i, id
		g.Go(func() error {
			blob, err := idx.backend.GetDocument(gctx, id)
			if err != nil {
				return err
			}
			doc, _, err := storage.Deserialize(blob, id)
			if err != nil {
				return dferr.New(dferr.BackendError, component, "Query", err)
			}
			docs[i] = doc
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return docs, nil
}

// Query returns every StoredDocument whose fingerprint matches fp in at
// least one band (and whose exact_part, if any, matches exactPart),
// deduplicated, as an unordered collection.
func (idx *Index) Query(ctx context.Context, fp minhash.Fingerprint, exactPart *string) ([]storage.StoredDocument, error) {
	perBand, err := idx.fetchBandIDs(ctx, fp, exactPart)
	if err != nil {
		return nil, err
	}
	return idx.loadDocuments(ctx, unionIDs(perBand))
}

// TopN returns up to n StoredDocuments with the highest band-match count
// against fp, ties broken by ascending id. Fewer than n are returned if
// the candidate pool is smaller.
func (idx *Index) TopN(ctx context.Context, fp minhash.Fingerprint, exactPart *string, n int) ([]storage.StoredDocument, error) {
	perBand, err := idx.fetchBandIDs(ctx, fp, exactPart)
	if err != nil {
		return nil, err
	}
	counts := make(map[uint64]int)
	for _, band := range perBand {
		for _, id := range band {
			counts[id]++
		}
	}
	ids := make([]uint64, 0, len(counts))
	for id := range counts {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool {
		if counts[ids[i]] != counts[ids[j]] {
			return counts[ids[i]] > counts[ids[j]]
		}
		return ids[i] < ids[j]
	})
	if len(ids) > n {
		ids = ids[:n]
	}
	return idx.loadDocuments(ctx, ids)
}

// Remove deletes a document and its band bucket entries. If the document
// is absent, Remove returns quietly unless requireExists is set, in which
// case it fails NotFound. Fails InsufficientStorageLevel if the stored
// record has no fingerprint.
func (idx *Index) Remove(ctx context.Context, id uint64, requireExists bool) error {
	blob, err := idx.backend.GetDocument(ctx, id)
	if err != nil {
		if dferr.Is(err, dferr.NotFound) {
			if requireExists {
				return err
			}
			return nil
		}
		return dferr.New(dferr.BackendError, component, "Remove", err)
	}
	doc, _, err := storage.Deserialize(blob, id)
	if err != nil {
		return dferr.New(dferr.BackendError, component, "Remove", err)
	}
	if doc.Fingerprint == nil {
		return dferr.New(dferr.InsufficientStorageLevel, component, "Remove", errNoFingerprint)
	}
	for band := 0; band < idx.cfg.B; band++ {
		h := idx.bandHash(doc.Fingerprint, band, doc.ExactPart)
		if err := idx.backend.RemoveFromBucket(ctx, band, h, id); err != nil {
			return dferr.New(dferr.BackendError, component, "Remove", err)
		}
	}
	if err := idx.backend.DeleteDocument(ctx, id); err != nil {
		return dferr.New(dferr.BackendError, component, "Remove", err)
	}
	return nil
}

const errNoFingerprint = fingerprintError("stored document has no fingerprint; insufficient storage level")
