package store

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/pkg/errors"

	"gitpaste/pkg/domain"
)

// BuildDraft writes the paste content and its metadata record under the
// repo working tree and returns the pending draft for the committer.
// Callers must hold the git lock: the working tree and index are shared
// state. Any filesystem failure fails the whole draft.
func BuildDraft(repo string, in domain.CreateInput) (*domain.PasteDraft, error) {
	id := ulid.Make().String()
	createdAt := time.Now().UTC()
	datePath := createdAt.Format("2006/01/02")

	name := in.Name
	if name == "" {
		name = "paste"
	}
	slug, err := SanitizeName(name)
	if err != nil {
		return nil, err
	}
	ext := ChooseExt(in.Name, in.ContentType)
	relPath := fmt.Sprintf("pastes/%s/%s__%s.%s", datePath, id, slug, ext)
	absPath := filepath.Join(repo, relPath)

	sha := ContentHash(in.Bytes)

	contentType := in.ContentType
	if ext == "md" {
		contentType = "text/markdown; charset=utf-8"
	} else if contentType == "" {
		contentType = "text/plain; charset=utf-8"
	}

	subject := fmt.Sprintf("paste: %s %s", id, slug)
	if in.Tag != "" {
		subject += fmt.Sprintf(" [tag:%s]", in.Tag)
	}
	if in.Msg != "" {
		subject = in.Msg
	}

	metaRelPath := fmt.Sprintf("meta/%s.json", id)
	metaPath := filepath.Join(repo, metaRelPath)
	meta := domain.PasteMeta{
		ID:          id,
		CreatedAt:   createdAt,
		Path:        relPath,
		Size:        len(in.Bytes),
		ContentType: contentType,
		Commit:      "",
		SHA256:      sha,
		Tag:         in.Tag,
		ClientIP:    in.ClientIP,
		UserAgent:   in.UserAgent,
	}

	if err := os.MkdirAll(filepath.Dir(absPath), 0o755); err != nil {
		return nil, errors.Wrap(err, "create paste parent")
	}
	if err := os.MkdirAll(filepath.Join(repo, "meta"), 0o755); err != nil {
		return nil, errors.Wrap(err, "create meta dir")
	}
	if err := os.WriteFile(absPath, in.Bytes, 0o644); err != nil {
		return nil, errors.Wrap(err, "write paste")
	}
	metaJSON, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return nil, errors.Wrap(err, "serialize meta")
	}
	if err := os.WriteFile(metaPath, metaJSON, 0o644); err != nil {
		return nil, errors.Wrap(err, "write meta")
	}

	return &domain.PasteDraft{
		ID:          id,
		RelPath:     relPath,
		AbsPath:     absPath,
		MetaPath:    metaPath,
		MetaRelPath: metaRelPath,
		ContentType: contentType,
		Size:        len(in.Bytes),
		SHA256:      sha,
		Subject:     subject,
		Meta:        meta,
	}, nil
}

// RemoveFiles is best-effort cleanup for rollback paths.
func RemoveFiles(paths ...string) {
	for _, p := range paths {
		_ = os.Remove(p)
	}
}
