package store

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"

	"gitpaste/pkg/domain"
)

const maxSlugLen = 80

// SanitizeName turns a caller-supplied name into a filesystem-safe slug.
// Names that try to escape the paste tree are rejected outright rather
// than silently repaired.
func SanitizeName(name string) (string, error) {
	if strings.ContainsAny(name, "/\\") || strings.Contains(name, "..") {
		return "", domain.ErrInvalidName
	}
	if strings.HasPrefix(name, ".") {
		return "", domain.ErrInvalidName
	}
	normalized := strings.ReplaceAll(strings.TrimSpace(name), " ", "-")
	if normalized == "" {
		return "paste", nil
	}
	var b strings.Builder
	for _, ch := range normalized {
		if isSlugRune(ch) {
			b.WriteRune(ch)
		} else {
			b.WriteByte('-')
		}
	}
	out := b.String()
	for strings.Contains(out, "--") {
		out = strings.ReplaceAll(out, "--", "-")
	}
	out = strings.Trim(out, "-")
	if out == "" {
		out = "paste"
	}
	if len(out) > maxSlugLen {
		out = out[:maxSlugLen]
	}
	return out, nil
}

func isSlugRune(ch rune) bool {
	switch {
	case ch >= 'a' && ch <= 'z', ch >= 'A' && ch <= 'Z', ch >= '0' && ch <= '9':
		return true
	case ch == '.' || ch == '_' || ch == '-':
		return true
	}
	return false
}

// ChooseExt picks the stored extension: markdown wins if either the
// declared content type or the name suffix says so.
func ChooseExt(name, contentType string) string {
	if strings.Contains(strings.ToLower(contentType), "text/markdown") {
		return "md"
	}
	if strings.HasSuffix(strings.ToLower(name), ".md") {
		return "md"
	}
	return "txt"
}

func ContentHash(b []byte) string {
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}

// Fingerprint digests the semantic content of a create request: name,
// tag, declared content type and the byte hash. Transport-level noise
// (other headers, ordering) never changes it, so a byte-identical retry
// always fingerprints identically.
func Fingerprint(in domain.CreateInput) string {
	h := sha256.New()
	h.Write([]byte(in.Name))
	h.Write([]byte{0})
	h.Write([]byte(in.Tag))
	h.Write([]byte{0})
	h.Write([]byte(in.ContentType))
	h.Write([]byte{0})
	h.Write([]byte(ContentHash(in.Bytes)))
	return hex.EncodeToString(h.Sum(nil))
}
