package domain

import (
	"time"
)

type PasteMeta struct {
	ID          string    `json:"id"`
	CreatedAt   time.Time `json:"created_at"`
	Path        string    `json:"path"`
	Size        int       `json:"size"`
	ContentType string    `json:"content_type"`
	Commit      string    `json:"commit"`
	SHA256      string    `json:"sha256"`
	Tag         string    `json:"tag,omitempty"`
	ClientIP    string    `json:"client_ip,omitempty"`
	UserAgent   string    `json:"user_agent,omitempty"`
}

type CreateInput struct {
	Name        string
	Msg         string
	Tag         string
	ContentType string
	Bytes       []byte
	ClientIP    string
	UserAgent   string
}

type PasteDraft struct {
	ID          string
	RelPath     string
	AbsPath     string
	MetaPath    string
	MetaRelPath string
	ContentType string
	Size        int
	SHA256      string
	Subject     string
	Meta        PasteMeta
}

type CreateResponse struct {
	ID      string `json:"id"`
	Path    string `json:"path"`
	Commit  string `json:"commit"`
	RawURL  string `json:"raw_url"`
	ViewURL string `json:"view_url"`
	MetaURL string `json:"meta_url"`
}

type IdempotencyRecord struct {
	RequestFingerprint string         `json:"request_fingerprint"`
	Response           CreateResponse `json:"response"`
}

type RecentItem struct {
	ID          string    `json:"id"`
	CreatedAt   time.Time `json:"created_at"`
	Path        string    `json:"path"`
	Commit      string    `json:"commit"`
	Tag         string    `json:"tag,omitempty"`
	Size        int       `json:"size"`
	ContentType string    `json:"content_type"`
}

type CommitResult struct {
	Commit    string
	Pushed    bool
	PushError string
}

type PushMode string

const (
	PushOff        PushMode = "off"
	PushBestEffort PushMode = "best_effort"
	PushStrict     PushMode = "strict"
)

func ParsePushMode(s string) (PushMode, bool) {
	switch PushMode(s) {
	case PushOff, PushBestEffort, PushStrict:
		return PushMode(s), true
	}
	return "", false
}
