package store

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/pkg/errors"

	"gitpaste/pkg/domain"
)

// CommitLookup resolves the most recent commit touching a repo-relative
// path. The git adapter satisfies it; tests substitute a stub.
type CommitLookup interface {
	LookupCommit(relPath string) (string, error)
}

func hydrateCommit(git CommitLookup, meta *domain.PasteMeta) error {
	if meta.Commit != "" {
		return nil
	}
	commit, err := git.LookupCommit(meta.Path)
	if err != nil {
		return err
	}
	meta.Commit = commit
	return nil
}

func ReadMeta(repo string, git CommitLookup, id string) (*domain.PasteMeta, error) {
	path := filepath.Join(repo, "meta", id+".json")
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, domain.ErrPasteNotFound
		}
		return nil, errors.Wrap(err, "read meta")
	}
	var meta domain.PasteMeta
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, errors.Wrap(err, "parse meta")
	}
	if err := hydrateCommit(git, &meta); err != nil {
		return nil, err
	}
	return &meta, nil
}

// ReadRecent lists metadata records newest first, optionally filtered to
// an exact tag, truncated to n. Hydration is recomputed per read; commit
// ids are never cached here.
func ReadRecent(repo string, git CommitLookup, n int, tag string) ([]domain.PasteMeta, error) {
	metaDir := filepath.Join(repo, "meta")
	entries, err := os.ReadDir(metaDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, errors.Wrap(err, "read meta dir")
	}
	var metas []domain.PasteMeta
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		data, err := os.ReadFile(filepath.Join(metaDir, entry.Name()))
		if err != nil {
			return nil, errors.Wrap(err, "read meta file")
		}
		var meta domain.PasteMeta
		if err := json.Unmarshal(data, &meta); err != nil {
			continue
		}
		if tag != "" && meta.Tag != tag {
			continue
		}
		if err := hydrateCommit(git, &meta); err != nil {
			return nil, err
		}
		metas = append(metas, meta)
	}
	sort.Slice(metas, func(i, j int) bool {
		return metas[i].CreatedAt.After(metas[j].CreatedAt)
	})
	if len(metas) > n {
		metas = metas[:n]
	}
	return metas, nil
}

func ReadContent(repo string, meta *domain.PasteMeta) ([]byte, error) {
	data, err := os.ReadFile(filepath.Join(repo, meta.Path))
	if err != nil {
		return nil, errors.Wrap(err, "read paste")
	}
	return data, nil
}
