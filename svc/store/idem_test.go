package store

import (
	"testing"

	"gitpaste/pkg/domain"
)

func TestIdempotencyRoundTrip(t *testing.T) {
	dir := t.TempDir()
	rec := &domain.IdempotencyRecord{
		RequestFingerprint: "fp1",
		Response: domain.CreateResponse{
			ID:     "01XYZ",
			Path:   "pastes/2026/08/29/01XYZ__paste.txt",
			Commit: "abcdef123456",
			RawURL: "/api/v1/p/01XYZ/raw",
		},
	}
	if err := WriteIdempotencyRecord(dir, "client-key-1", rec); err != nil {
		t.Fatalf("write failed: %v", err)
	}
	got, err := ReadIdempotencyRecord(dir, "client-key-1")
	if err != nil {
		t.Fatalf("read failed: %v", err)
	}
	if got == nil {
		t.Fatal("record not found after write")
	}
	if got.RequestFingerprint != "fp1" || got.Response != rec.Response {
		t.Errorf("record mismatch: %+v", got)
	}
}

func TestIdempotencyMissingKey(t *testing.T) {
	got, err := ReadIdempotencyRecord(t.TempDir(), "nothing")
	if err != nil {
		t.Fatalf("read failed: %v", err)
	}
	if got != nil {
		t.Errorf("got %+v, want nil", got)
	}
}

func TestIdempotencyHostileKeys(t *testing.T) {
	dir := t.TempDir()
	// Keys are arbitrary caller strings; the ledger must file them
	// safely regardless.
	for _, key := range []string{"../../etc/passwd", "a/b/c", "key with spaces", "ключ"} {
		rec := &domain.IdempotencyRecord{RequestFingerprint: "fp-" + key}
		if err := WriteIdempotencyRecord(dir, key, rec); err != nil {
			t.Fatalf("write(%q) failed: %v", key, err)
		}
		got, err := ReadIdempotencyRecord(dir, key)
		if err != nil || got == nil {
			t.Fatalf("read(%q) failed: %v %v", key, got, err)
		}
		if got.RequestFingerprint != "fp-"+key {
			t.Errorf("record for %q mixed up: %s", key, got.RequestFingerprint)
		}
	}
}
