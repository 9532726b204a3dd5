// Package storage defines the backend contract the LSH index drives
// (settings KV, document blob store, bucket multimap) plus the binary
// encoding used to serialize a StoredDocument at a given storage level.
// Concrete backends implement Backend; pkg/storage/memory provides the
// in-memory reference implementation.
package storage

import (
	"context"
	"encoding/binary"

	"github.com/dupefind/dupefind/pkg/dferr"
	"github.com/dupefind/dupefind/pkg/minhash"
)

// Level is a bit-flag set controlling which StoredDocument fields are
// persisted. Minimal always retains Data; Document gates Document and
// ExactPart; Fingerprint gates Fingerprint and ExactPart; Full is all
// three combined.
type Level uint8

const (
	Minimal Level = 1 << iota
	Fingerprint
	Document
)

// Full retains every payload field.
const Full = Minimal | Fingerprint | Document

// Has reports whether l includes every bit of other.
func (l Level) Has(other Level) bool {
	return l&other == other
}

// StoredDocument is the record the similarity store inserts and the LSH
// index queries. Fields are pointers so "absent" and "empty string" are
// distinguishable; presence on the wire depends on the active Level.
type StoredDocument struct {
	ID          uint64
	Document    *string
	ExactPart   *string
	Fingerprint minhash.Fingerprint
	Data        *string
}

// wire tags for the framed binary encoding. Values are stable; do not
// renumber, existing serialized records depend on them.
const (
	tagData        byte = 1
	tagDocument    byte = 2
	tagExactPart   byte = 3
	tagFingerprint byte = 4
	tagIDExternal  byte = 5
)

// Serialize encodes doc as a length-prefixed tag-value binary record,
// including only the fields the active storage level admits:
//   - Data is always included.
//   - Document and ExactPart are included when level includes Document.
//   - ExactPart and Fingerprint are included when level includes
//     Fingerprint (so ExactPart appears under either bit).
//
// idExternal records whether doc.ID was supplied by the caller rather than
// assigned by the backend, for backends that want to distinguish the two
// on reload.
func Serialize(doc StoredDocument, level Level, idExternal bool) []byte {
	buf := make([]byte, 0, 64)

	writeBool := func(tag byte, v bool) {
		val := byte(0)
		if v {
			val = 1
		}
		buf = append(buf, tag, val)
	}
	writeString := func(tag byte, s *string) {
		if s == nil {
			return
		}
		b := []byte(*s)
		buf = append(buf, tag)
		buf = binary.LittleEndian.AppendUint32(buf, uint32(len(b)))
		buf = append(buf, b...)
	}
	writeFingerprint := func(tag byte, fp minhash.Fingerprint) {
		if fp == nil {
			return
		}
		buf = append(buf, tag)
		buf = binary.LittleEndian.AppendUint32(buf, uint32(len(fp)*4))
		for _, v := range fp {
			buf = binary.LittleEndian.AppendUint32(buf, v)
		}
	}

	writeBool(tagIDExternal, idExternal)
	writeString(tagData, doc.Data)
	if level.Has(Document) {
		writeString(tagDocument, doc.Document)
	}
	if level.Has(Document) || level.Has(Fingerprint) {
		writeString(tagExactPart, doc.ExactPart)
	}
	if level.Has(Fingerprint) {
		writeFingerprint(tagFingerprint, doc.Fingerprint)
	}
	return buf
}

// Deserialize decodes a record produced by Serialize. Fields absent from
// the blob are left at their zero value. idExternal reports whether the
// record was stored with a caller-supplied id.
func Deserialize(blob []byte, id uint64) (StoredDocument, bool, error) {
	doc := StoredDocument{ID: id}
	idExternal := false
	i := 0
	for i < len(blob) {
		tag := blob[i]
		i++
		switch tag {
		case tagIDExternal:
			if i >= len(blob) {
				return doc, false, dferr.New(dferr.CorruptConfig, "storage", "Deserialize", errTruncated)
			}
			idExternal = blob[i] == 1
			i++
		case tagData, tagDocument, tagExactPart:
			if i+4 > len(blob) {
				return doc, false, dferr.New(dferr.CorruptConfig, "storage", "Deserialize", errTruncated)
			}
			n := int(binary.LittleEndian.Uint32(blob[i : i+4]))
			i += 4
			if i+n > len(blob) {
				return doc, false, dferr.New(dferr.CorruptConfig, "storage", "Deserialize", errTruncated)
			}
			s := string(blob[i : i+n])
			i += n
			switch tag {
			case tagData:
				doc.Data = &s
			case tagDocument:
				doc.Document = &s
			case tagExactPart:
				doc.ExactPart = &s
			}
		case tagFingerprint:
			if i+4 > len(blob) {
				return doc, false, dferr.New(dferr.CorruptConfig, "storage", "Deserialize", errTruncated)
			}
			n := int(binary.LittleEndian.Uint32(blob[i : i+4]))
			i += 4
			if i+n > len(blob) || n%4 != 0 {
				return doc, false, dferr.New(dferr.CorruptConfig, "storage", "Deserialize", errTruncated)
			}
			fp := make(minhash.Fingerprint, n/4)
			for j := range fp {
				fp[j] = binary.LittleEndian.Uint32(blob[i+j*4 : i+j*4+4])
			}
			i += n
			doc.Fingerprint = fp
		default:
			return doc, false, dferr.New(dferr.CorruptConfig, "storage", "Deserialize", errUnknownTag)
		}
	}
	return doc, idExternal, nil
}

type storageError string

func (e storageError) Error() string { return string(e) }

const (
	errTruncated  = storageError("truncated serialized document")
	errUnknownTag = storageError("unknown field tag in serialized document")
)

// Backend is the storage contract the LSH index and similarity store
// drive. Every method may suspend at a call boundary (context-cancellable)
// and may fail with a BackendError wrapping an opaque backend-specific
// cause; NotFound is reserved for document lookups.
type Backend interface {
	// Initialize prepares the backend for use. Idempotent or
	// AlreadyInitialized depending on the backend's own semantics.
	Initialize(ctx context.Context) error

	// PutSetting stores a configuration value.
	PutSetting(ctx context.Context, key, value string) error
	// GetSetting retrieves a configuration value; ok is false if absent.
	GetSetting(ctx context.Context, key string) (value string, ok bool, err error)

	// PutDocument stores blob under id if id is non-nil (overwriting any
	// existing record), or under a backend-chosen unused id otherwise, and
	// returns the id used.
	PutDocument(ctx context.Context, blob []byte, id *uint64) (uint64, error)
	// GetDocument retrieves a single document blob, failing NotFound if
	// absent.
	GetDocument(ctx context.Context, id uint64) ([]byte, error)
	// GetDocuments retrieves multiple document blobs, failing NotFound if
	// any requested id is absent.
	GetDocuments(ctx context.Context, ids []uint64) ([][]byte, error)
	// DeleteDocument removes a document record. No-op if absent.
	DeleteDocument(ctx context.Context, id uint64) error

	// AddToBucket links id into the multi-valued set for (band, bandHash).
	AddToBucket(ctx context.Context, band int, bandHash uint32, id uint64) error
	// GetBucket returns the id set for (band, bandHash).
	GetBucket(ctx context.Context, band int, bandHash uint32) ([]uint64, error)
	// RemoveFromBucket removes id from the set for (band, bandHash).
	// Removing a non-member is a no-op.
	RemoveFromBucket(ctx context.Context, band int, bandHash uint32, id uint64) error
}
