package api

import (
	"encoding/json"
	"fmt"
	"html"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/hlog"
	"golang.org/x/text/unicode/norm"

	"gitpaste/cfg"
	"gitpaste/metrics"
	"gitpaste/pkg/domain"
	"gitpaste/svc/auth"
	"gitpaste/svc/cache"
	gitx "gitpaste/svc/git"
	"gitpaste/svc/lim"
	"gitpaste/svc/render"
	"gitpaste/svc/store"
	"gitpaste/svc/util"
)

const (
	tokenHeader          = "X-Paste-Token"
	apiKeyHeader         = "X-API-Key"
	idempotencyKeyHeader = "Idempotency-Key"

	defaultRecent = 50
	maxRecent     = 500
)

type Hdl struct {
	cfg    *cfg.Cfg
	paths  cfg.Paths
	git    *gitx.Runner
	keys   *auth.KeyStore
	rcache *cache.Render
}

func NewHdl(c *cfg.Cfg, g *gitx.Runner, keys *auth.KeyStore, rcache *cache.Render) *Hdl {
	return &Hdl{cfg: c, paths: c.Paths(), git: g, keys: keys, rcache: rcache}
}

// authorize is the admission gate shared by the API handlers: scoped
// API keys when a key file is configured, else the shared token.
func (h *Hdl) authorize(r *http.Request, scope auth.Scope) error {
	if h.keys.Enabled() {
		return h.keys.Authorize(r.Header.Get(apiKeyHeader), scope)
	}
	return auth.VerifyToken(h.cfg.Token.Value(), r.Header.Get(tokenHeader))
}

func (h *Hdl) CreatePaste(w http.ResponseWriter, r *http.Request) {
	log := hlog.FromRequest(r)
	if err := h.authorize(r, auth.ScopePasteCreate); err != nil {
		writeErr(w, r, err)
		return
	}
	ip := lim.GetRealIP(r, h.cfg.TrustedProxies)
	if err := auth.CheckCIDR(h.cfg.AllowCIDR, ip); err != nil {
		writeErr(w, r, err)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, h.cfg.MaxPasteSize)
	body, err := io.ReadAll(r.Body)
	if err != nil {
		writeErr(w, r, domain.ErrPasteTooLarge)
		return
	}

	q := r.URL.Query()
	input := domain.CreateInput{
		Name:        norm.NFC.String(q.Get("name")),
		Msg:         q.Get("msg"),
		Tag:         q.Get("tag"),
		ContentType: r.Header.Get("Content-Type"),
		Bytes:       body,
		ClientIP:    ip,
		UserAgent:   r.Header.Get("User-Agent"),
	}
	idempotencyKey := strings.TrimSpace(r.Header.Get(idempotencyKeyHeader))

	// The git lock serializes draft build, commit, push and the
	// idempotency read-modify-write against every other writer.
	lock, err := gitx.AcquireLock(h.paths.GitLock)
	if err != nil {
		writeErr(w, r, err)
		return
	}
	defer lock.Release()

	var fingerprint string
	if idempotencyKey != "" {
		fingerprint = store.Fingerprint(input)
		rec, err := store.ReadIdempotencyRecord(h.paths.Idempotency, idempotencyKey)
		if err != nil {
			writeErr(w, r, err)
			return
		}
		if rec != nil {
			if rec.RequestFingerprint != fingerprint {
				writeErr(w, r, domain.ErrIdempotencyReuse)
				return
			}
			metrics.IdempotentReplays.Inc()
			log.Info().Str("paste_id", rec.Response.ID).Msg("idempotent replay")
			writeJSON(w, http.StatusOK, rec.Response)
			return
		}
	}

	draft, err := store.BuildDraft(h.paths.Repo, input)
	if err != nil {
		writeErr(w, r, err)
		return
	}
	result, err := gitx.CommitPaste(h.git, draft, h.cfg.Push, h.cfg.GitRemote)
	if err != nil {
		log.Error().Err(err).Str("paste_id", draft.ID).Msg("commit failed")
		writeErr(w, r, err)
		return
	}
	if result.PushError != "" {
		log.Warn().Str("push_error", result.PushError).Msg("best-effort push failed")
	}

	resp := domain.CreateResponse{
		ID:      draft.ID,
		Path:    draft.RelPath,
		Commit:  result.Commit,
		RawURL:  fmt.Sprintf("/api/v1/p/%s/raw", draft.ID),
		ViewURL: fmt.Sprintf("/p/%s", draft.ID),
		MetaURL: fmt.Sprintf("/api/v1/p/%s", draft.ID),
	}

	if idempotencyKey != "" {
		rec := &domain.IdempotencyRecord{RequestFingerprint: fingerprint, Response: resp}
		if err := store.WriteIdempotencyRecord(h.paths.Idempotency, idempotencyKey, rec); err != nil {
			writeErr(w, r, err)
			return
		}
	}

	metrics.PasteCreated.Inc()
	log.Info().
		Str("paste_id", draft.ID).
		Str("commit", result.Commit).
		Bool("pushed", result.Pushed).
		Int("size", draft.Size).
		Msg("paste created")
	writeJSON(w, http.StatusCreated, resp)
}

func (h *Hdl) GetMeta(w http.ResponseWriter, r *http.Request) {
	if err := h.authorize(r, auth.ScopePasteRead); err != nil {
		writeErr(w, r, err)
		return
	}
	meta, err := store.ReadMeta(h.paths.Repo, h.git, chi.URLParam(r, "id"))
	if err != nil {
		writeErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, meta)
}

func (h *Hdl) GetRaw(w http.ResponseWriter, r *http.Request) {
	if err := h.authorize(r, auth.ScopePasteRead); err != nil {
		writeErr(w, r, err)
		return
	}
	meta, err := store.ReadMeta(h.paths.Repo, h.git, chi.URLParam(r, "id"))
	if err != nil {
		writeErr(w, r, err)
		return
	}
	data, err := store.ReadContent(h.paths.Repo, meta)
	if err != nil {
		writeErr(w, r, err)
		return
	}
	metrics.PasteRetrieved.Inc()
	w.Header().Set("Content-Type", "application/octet-stream")
	w.Header().Set("Content-Disposition", "attachment")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.Write(data)
}

func (h *Hdl) Recent(w http.ResponseWriter, r *http.Request) {
	if err := h.authorize(r, auth.ScopeRecentRead); err != nil {
		writeErr(w, r, err)
		return
	}
	n := defaultRecent
	if s := r.URL.Query().Get("n"); s != "" {
		v, err := strconv.Atoi(s)
		if err != nil || v < 0 {
			writeErr(w, r, domain.ErrInvalidRequest)
			return
		}
		n = v
	}
	if n > maxRecent {
		n = maxRecent
	}
	metas, err := store.ReadRecent(h.paths.Repo, h.git, n, r.URL.Query().Get("tag"))
	if err != nil {
		writeErr(w, r, err)
		return
	}
	out := make([]domain.RecentItem, 0, len(metas))
	for _, m := range metas {
		out = append(out, recentItem(m))
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *Hdl) APIIndex(w http.ResponseWriter, r *http.Request) {
	if err := h.authorize(r, auth.ScopeAPIIndex); err != nil {
		writeErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"name":    "gitpaste",
		"version": "v1",
		"endpoints": []string{
			"/api/v1/paste (POST)",
			"/api/v1/p/{id} (GET)",
			"/api/v1/p/{id}/raw (GET)",
			"/api/v1/recent?n=50&tag=... (GET)",
		},
	})
}

func (h *Hdl) Dashboard(w http.ResponseWriter, r *http.Request) {
	metas, err := store.ReadRecent(h.paths.Repo, h.git, 20, "")
	if err != nil {
		writeErr(w, r, err)
		return
	}
	var b strings.Builder
	b.WriteString("<table><tr><th>id</th><th>created</th><th>path</th><th>commit</th><th>tag</th><th>size</th></tr>")
	for _, m := range metas {
		// Name, path and tag are caller-supplied; nothing lands in the
		// page unescaped.
		item := recentItem(m)
		id := html.EscapeString(item.ID)
		fmt.Fprintf(&b, "<tr><td><a href=\"/p/%s\">%s</a></td><td>%s</td><td>%s</td><td>%s</td><td>%s</td><td>%d</td></tr>",
			id, id, item.CreatedAt.Format("2006-01-02 15:04:05"),
			html.EscapeString(item.Path), html.EscapeString(item.Commit),
			html.EscapeString(item.Tag), item.Size)
	}
	b.WriteString("</table>")
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	io.WriteString(w, render.Page("gitpaste", b.String()))
}

func (h *Hdl) RenderView(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	meta, err := store.ReadMeta(h.paths.Repo, h.git, id)
	if err != nil {
		writeErr(w, r, err)
		return
	}
	page, ok := h.rcache.Get(meta.ID, meta.SHA256)
	if ok {
		metrics.RenderCacheHits.Inc()
	} else {
		metrics.RenderCacheMisses.Inc()
		data, err := store.ReadContent(h.paths.Repo, meta)
		if err != nil {
			writeErr(w, r, err)
			return
		}
		var body string
		if strings.Contains(meta.ContentType, "markdown") || strings.HasSuffix(meta.Path, ".md") {
			body, err = render.Markdown(data)
			if err != nil {
				writeErr(w, r, errors.Wrap(err, "render markdown"))
				return
			}
		} else {
			body = render.Pre(data)
		}
		page = render.Page(meta.ID, body)
		h.rcache.Set(meta.ID, meta.SHA256, page)
	}
	metrics.PasteRetrieved.Inc()
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	io.WriteString(w, page)
}

func recentItem(m domain.PasteMeta) domain.RecentItem {
	return domain.RecentItem{
		ID:          m.ID,
		CreatedAt:   m.CreatedAt,
		Path:        m.Path,
		Commit:      m.Commit,
		Tag:         m.Tag,
		Size:        m.Size,
		ContentType: m.ContentType,
	}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeErr(w http.ResponseWriter, r *http.Request, err error) {
	requestID := util.GetRequestID(r.Context())
	statusCode := domain.Status(err)
	resp := domain.ToResp(err)
	if statusCode >= 500 {
		resp.Msg = "internal error"
		util.Error().
			Err(err).
			Str("request_id", requestID).
			Msg("internal error with detailed info")
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(resp)
}
