package storage

import (
	"testing"

	"github.com/dupefind/dupefind/pkg/minhash"
)

func strp(s string) *string { return &s }

func TestSerializeRoundTripFull(t *testing.T) {
	doc := StoredDocument{
		Document:    strp("hello world"),
		ExactPart:   strp("key-1"),
		Fingerprint: minhash.Fingerprint{1, 2, 3, 4},
		Data:        strp("payload"),
	}
	blob := Serialize(doc, Full, true)
	got, idExternal, err := Deserialize(blob, 42)
	if err != nil {
		t.Fatalf("Deserialize returned error: %v", err)
	}
	if !idExternal {
		t.Error("idExternal = false, want true")
	}
	if got.ID != 42 {
		t.Errorf("ID = %d, want 42", got.ID)
	}
	if got.Document == nil || *got.Document != "hello world" {
		t.Errorf("Document = %v, want \"hello world\"", got.Document)
	}
	if got.ExactPart == nil || *got.ExactPart != "key-1" {
		t.Errorf("ExactPart = %v, want \"key-1\"", got.ExactPart)
	}
	if !got.Fingerprint.Equal(doc.Fingerprint) {
		t.Errorf("Fingerprint = %v, want %v", got.Fingerprint, doc.Fingerprint)
	}
	if got.Data == nil || *got.Data != "payload" {
		t.Errorf("Data = %v, want \"payload\"", got.Data)
	}
}

func TestSerializeMinimalOmitsOtherFields(t *testing.T) {
	doc := StoredDocument{
		Document:    strp("hello"),
		ExactPart:   strp("x"),
		Fingerprint: minhash.Fingerprint{9},
		Data:        strp("payload"),
	}
	blob := Serialize(doc, Minimal, false)
	got, _, err := Deserialize(blob, 1)
	if err != nil {
		t.Fatalf("Deserialize returned error: %v", err)
	}
	if got.Data == nil || *got.Data != "payload" {
		t.Errorf("Data = %v, want \"payload\"", got.Data)
	}
	if got.Document != nil {
		t.Errorf("Document = %v, want nil at Minimal level", got.Document)
	}
	if got.ExactPart != nil {
		t.Errorf("ExactPart = %v, want nil at Minimal level", got.ExactPart)
	}
	if got.Fingerprint != nil {
		t.Errorf("Fingerprint = %v, want nil at Minimal level", got.Fingerprint)
	}
}

func TestSerializeDocumentLevelIncludesExactPart(t *testing.T) {
	doc := StoredDocument{
		Document:    strp("hello"),
		ExactPart:   strp("x"),
		Fingerprint: minhash.Fingerprint{9},
	}
	blob := Serialize(doc, Document, false)
	got, _, err := Deserialize(blob, 1)
	if err != nil {
		t.Fatalf("Deserialize returned error: %v", err)
	}
	if got.Document == nil || *got.Document != "hello" {
		t.Error("Document should be retained at Document level")
	}
	if got.ExactPart == nil || *got.ExactPart != "x" {
		t.Error("ExactPart should be retained at Document level")
	}
	if got.Fingerprint != nil {
		t.Error("Fingerprint should not be retained at Document-only level")
	}
}

func TestSerializeFingerprintLevelIncludesExactPart(t *testing.T) {
	doc := StoredDocument{
		Document:    strp("hello"),
		ExactPart:   strp("x"),
		Fingerprint: minhash.Fingerprint{9},
	}
	blob := Serialize(doc, Fingerprint, false)
	got, _, err := Deserialize(blob, 1)
	if err != nil {
		t.Fatalf("Deserialize returned error: %v", err)
	}
	if got.Document != nil {
		t.Error("Document should not be retained at Fingerprint-only level")
	}
	if got.ExactPart == nil || *got.ExactPart != "x" {
		t.Error("ExactPart should be retained at Fingerprint level")
	}
	if got.Fingerprint == nil {
		t.Error("Fingerprint should be retained at Fingerprint level")
	}
}

func TestDeserializeTruncated(t *testing.T) {
	if _, _, err := Deserialize([]byte{tagData, 0xff, 0xff}, 1); err == nil {
		t.Fatal("expected error on truncated blob")
	}
}

func TestDeserializeUnknownTag(t *testing.T) {
	if _, _, err := Deserialize([]byte{0x7f}, 1); err == nil {
		t.Fatal("expected error on unknown tag")
	}
}

func TestLevelHas(t *testing.T) {
	if !Full.Has(Minimal) || !Full.Has(Fingerprint) || !Full.Has(Document) {
		t.Error("Full should include all three bits")
	}
	if Minimal.Has(Document) {
		t.Error("Minimal should not include Document")
	}
}
