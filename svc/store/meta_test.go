package store

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"gitpaste/pkg/domain"
)

type stubLookup struct {
	commit string
	calls  int
	err    error
}

func (s *stubLookup) LookupCommit(relPath string) (string, error) {
	s.calls++
	return s.commit, s.err
}

func writeMeta(t *testing.T, repo string, meta domain.PasteMeta) {
	t.Helper()
	dir := filepath.Join(repo, "meta")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("mkdir meta: %v", err)
	}
	data, err := json.Marshal(meta)
	if err != nil {
		t.Fatalf("marshal meta: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, meta.ID+".json"), data, 0o644); err != nil {
		t.Fatalf("write meta: %v", err)
	}
}

func TestReadMetaHydratesCommit(t *testing.T) {
	repo := t.TempDir()
	writeMeta(t, repo, domain.PasteMeta{
		ID:        "01ABC",
		CreatedAt: time.Now().UTC(),
		Path:      "pastes/2026/01/01/01ABC__x.txt",
	})
	git := &stubLookup{commit: "abcdef123456"}
	meta, err := ReadMeta(repo, git, "01ABC")
	if err != nil {
		t.Fatalf("ReadMeta failed: %v", err)
	}
	if meta.Commit != "abcdef123456" {
		t.Errorf("commit %q, want hydrated value", meta.Commit)
	}
	if git.calls != 1 {
		t.Errorf("lookup called %d times, want 1", git.calls)
	}
}

func TestReadMetaSkipsHydrationWhenPresent(t *testing.T) {
	repo := t.TempDir()
	writeMeta(t, repo, domain.PasteMeta{ID: "01DEF", Commit: "existing12345"})
	git := &stubLookup{commit: "other"}
	meta, err := ReadMeta(repo, git, "01DEF")
	if err != nil {
		t.Fatalf("ReadMeta failed: %v", err)
	}
	if meta.Commit != "existing12345" {
		t.Errorf("commit %q, want stored value kept", meta.Commit)
	}
	if git.calls != 0 {
		t.Errorf("lookup called %d times, want 0", git.calls)
	}
}

func TestReadMetaNotFound(t *testing.T) {
	repo := t.TempDir()
	if _, err := ReadMeta(repo, &stubLookup{}, "missing"); err != domain.ErrPasteNotFound {
		t.Errorf("got %v, want ErrPasteNotFound", err)
	}
}

func TestReadRecentOrderFilterLimit(t *testing.T) {
	repo := t.TempDir()
	base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		tag := ""
		if i%2 == 0 {
			tag = "even"
		}
		writeMeta(t, repo, domain.PasteMeta{
			ID:        fmt.Sprintf("01REC%d", i),
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
			Commit:    "c",
			Tag:       tag,
		})
	}
	git := &stubLookup{commit: "c"}

	metas, err := ReadRecent(repo, git, 3, "")
	if err != nil {
		t.Fatalf("ReadRecent failed: %v", err)
	}
	if len(metas) != 3 {
		t.Fatalf("got %d metas, want 3", len(metas))
	}
	for i := 1; i < len(metas); i++ {
		if metas[i].CreatedAt.After(metas[i-1].CreatedAt) {
			t.Error("metas not sorted newest first")
		}
	}
	if metas[0].ID != "01REC4" {
		t.Errorf("newest is %s, want 01REC4", metas[0].ID)
	}

	tagged, err := ReadRecent(repo, git, 10, "even")
	if err != nil {
		t.Fatalf("ReadRecent(tag) failed: %v", err)
	}
	if len(tagged) != 3 {
		t.Fatalf("got %d tagged metas, want 3", len(tagged))
	}
	for _, m := range tagged {
		if m.Tag != "even" {
			t.Errorf("meta %s has tag %q", m.ID, m.Tag)
		}
	}
}

func TestReadRecentMissingDir(t *testing.T) {
	metas, err := ReadRecent(t.TempDir(), &stubLookup{}, 10, "")
	if err != nil {
		t.Fatalf("ReadRecent failed: %v", err)
	}
	if len(metas) != 0 {
		t.Errorf("got %d metas, want 0", len(metas))
	}
}
