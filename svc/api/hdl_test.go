package api

import (
	"encoding/json"
	"net"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os/exec"
	"strconv"
	"strings"
	"testing"
	"time"

	"gitpaste/cfg"
	"gitpaste/pkg/domain"
	"gitpaste/svc/auth"
	"gitpaste/svc/cache"
	gitx "gitpaste/svc/git"
	"gitpaste/svc/lim"
	"gitpaste/svc/util"
)

const testToken = "test-token"

type testEnv struct {
	srv *Server
	cfg *cfg.Cfg
	git *gitx.Runner
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git not installed")
	}
	util.InitLog("error", false)

	c := &cfg.Cfg{
		Port:           "0",
		Environment:    "development",
		BaseDir:        t.TempDir(),
		Token:          cfg.NewSecret(testToken),
		MaxPasteSize:   1024 * 1024,
		Push:           domain.PushOff,
		GitRemote:      "origin",
		GitAuthorName:  "Test",
		GitAuthorEmail: "test@example.com",
		RateLimit: cfg.RateLimitCfg{
			RPM:               100000,
			Burst:             100000,
			ConservativeLimit: 100000,
		},
		RenderCacheSize: 16,
		ContextTimeout:  30 * time.Second,
	}
	paths := c.Paths()
	g := gitx.NewRunner(paths.Repo, c.GitAuthorName, c.GitAuthorEmail)
	if err := gitx.Preflight(paths, g); err != nil {
		t.Fatalf("preflight: %v", err)
	}
	keys, err := auth.NewKeyStore("")
	if err != nil {
		t.Fatalf("key store: %v", err)
	}
	rcache, err := cache.NewRender(c.RenderCacheSize)
	if err != nil {
		t.Fatalf("render cache: %v", err)
	}
	limiter := lim.New(c.RateLimit.RPM, c.RateLimit.Burst, c.RateLimit.ConservativeLimit, nil, nil)
	t.Cleanup(limiter.Stop)

	hdl := NewHdl(c, g, keys, rcache)
	return &testEnv{srv: NewServer(c, hdl, limiter), cfg: c, git: g}
}

func (e *testEnv) do(t *testing.T, method, target, body string, hdr map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
	}
	req.Header.Set("X-Paste-Token", testToken)
	for k, v := range hdr {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	e.srv.ServeHTTP(w, req)
	return w
}

func (e *testEnv) commitCount(t *testing.T) int {
	t.Helper()
	out, err := e.git.Run("rev-list", "--count", "HEAD")
	if err != nil {
		t.Fatalf("rev-list: %v", err)
	}
	n, err := strconv.Atoi(out)
	if err != nil {
		t.Fatalf("parse rev-list output %q: %v", out, err)
	}
	return n
}

func decodeCreate(t *testing.T, w *httptest.ResponseRecorder) domain.CreateResponse {
	t.Helper()
	var resp domain.CreateResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode create response: %v\nbody: %s", err, w.Body.String())
	}
	return resp
}

func TestCreateAndFetch(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodPost, "/api/v1/paste?name=note.md&tag=demo", "# hello\n",
		map[string]string{"Content-Type": "text/markdown"})
	if w.Code != http.StatusCreated {
		t.Fatalf("create: status %d, body %s", w.Code, w.Body.String())
	}
	resp := decodeCreate(t, w)
	if len(resp.ID) != 26 {
		t.Errorf("ID %q is not a 26-char ulid", resp.ID)
	}
	if len(resp.Commit) != 12 {
		t.Errorf("Commit %q is not 12 chars", resp.Commit)
	}
	if resp.RawURL != "/api/v1/p/"+resp.ID+"/raw" {
		t.Errorf("RawURL = %q", resp.RawURL)
	}

	w = env.do(t, http.MethodGet, "/api/v1/p/"+resp.ID, "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("meta: status %d, body %s", w.Code, w.Body.String())
	}
	var meta domain.PasteMeta
	if err := json.Unmarshal(w.Body.Bytes(), &meta); err != nil {
		t.Fatalf("decode meta: %v", err)
	}
	if meta.Commit != resp.Commit {
		t.Errorf("meta commit %q != create commit %q", meta.Commit, resp.Commit)
	}
	if meta.Tag != "demo" {
		t.Errorf("meta tag = %q", meta.Tag)
	}

	w = env.do(t, http.MethodGet, "/api/v1/p/"+resp.ID+"/raw", "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("raw: status %d", w.Code)
	}
	if w.Body.String() != "# hello\n" {
		t.Errorf("raw body = %q", w.Body.String())
	}

	w = env.do(t, http.MethodGet, "/p/"+resp.ID, "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("render: status %d, body %s", w.Code, w.Body.String())
	}
	if !strings.Contains(w.Body.String(), "<h1") {
		t.Errorf("rendered page missing heading: %q", w.Body.String())
	}

	w = env.do(t, http.MethodGet, "/api/v1/recent", "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("recent: status %d", w.Code)
	}
	var items []domain.RecentItem
	if err := json.Unmarshal(w.Body.Bytes(), &items); err != nil {
		t.Fatalf("decode recent: %v", err)
	}
	if len(items) != 1 || items[0].ID != resp.ID {
		t.Errorf("recent = %+v, want single item %s", items, resp.ID)
	}
}

func TestCreateRequiresToken(t *testing.T) {
	env := newTestEnv(t)
	w := env.do(t, http.MethodPost, "/api/v1/paste", "x",
		map[string]string{"X-Paste-Token": "wrong"})
	if w.Code != http.StatusUnauthorized {
		t.Errorf("wrong token: status %d, want 401", w.Code)
	}
}

func TestCreateCIDRGate(t *testing.T) {
	env := newTestEnv(t)
	_, allow, _ := net.ParseCIDR("10.0.0.0/8")
	env.cfg.AllowCIDR = []*net.IPNet{allow}
	// httptest requests come from 192.0.2.1.
	w := env.do(t, http.MethodPost, "/api/v1/paste", "x", nil)
	if w.Code != http.StatusForbidden {
		t.Errorf("out-of-range IP: status %d, want 403", w.Code)
	}
}

func TestIdempotentReplay(t *testing.T) {
	env := newTestEnv(t)
	hdr := map[string]string{"Idempotency-Key": "job-42"}

	first := env.do(t, http.MethodPost, "/api/v1/paste?name=a.txt", "same body", hdr)
	if first.Code != http.StatusCreated {
		t.Fatalf("first create: status %d", first.Code)
	}
	count := env.commitCount(t)

	second := env.do(t, http.MethodPost, "/api/v1/paste?name=a.txt", "same body", hdr)
	if second.Code != http.StatusOK {
		t.Fatalf("replay: status %d, want 200", second.Code)
	}
	if decodeCreate(t, first) != decodeCreate(t, second) {
		t.Errorf("replay returned a different response:\n%s\nvs\n%s",
			first.Body.String(), second.Body.String())
	}
	if got := env.commitCount(t); got != count {
		t.Errorf("replay added commits: %d -> %d", count, got)
	}
}

func TestIdempotencyKeyConflict(t *testing.T) {
	env := newTestEnv(t)
	hdr := map[string]string{"Idempotency-Key": "job-42"}

	if w := env.do(t, http.MethodPost, "/api/v1/paste?name=a.txt", "body one", hdr); w.Code != http.StatusCreated {
		t.Fatalf("first create: status %d", w.Code)
	}
	w := env.do(t, http.MethodPost, "/api/v1/paste?name=a.txt", "body two", hdr)
	if w.Code != http.StatusConflict {
		t.Errorf("reused key with new payload: status %d, want 409", w.Code)
	}
}

func TestCreateTooLarge(t *testing.T) {
	env := newTestEnv(t)
	env.cfg.MaxPasteSize = 16
	w := env.do(t, http.MethodPost, "/api/v1/paste", strings.Repeat("a", 64), nil)
	if w.Code != http.StatusRequestEntityTooLarge {
		t.Errorf("oversized paste: status %d, want 413", w.Code)
	}
}

func TestCreateRejectsPathName(t *testing.T) {
	env := newTestEnv(t)
	w := env.do(t, http.MethodPost, "/api/v1/paste?name=..%2Fescape", "x", nil)
	if w.Code != http.StatusBadRequest {
		t.Errorf("path-escaping name: status %d, want 400", w.Code)
	}
}

func TestDashboardEscapesTag(t *testing.T) {
	env := newTestEnv(t)
	tag := "<script>alert(1)</script>"
	w := env.do(t, http.MethodPost, "/api/v1/paste?name=x.txt&tag="+url.QueryEscape(tag), "x", nil)
	if w.Code != http.StatusCreated {
		t.Fatalf("create: status %d, body %s", w.Code, w.Body.String())
	}
	for _, target := range []string{"/", "/dashboard"} {
		w = env.do(t, http.MethodGet, target, "", nil)
		if w.Code != http.StatusOK {
			t.Fatalf("%s: status %d", target, w.Code)
		}
		body := w.Body.String()
		if strings.Contains(body, tag) {
			t.Errorf("%s echoes raw tag markup", target)
		}
		if !strings.Contains(body, "&lt;script&gt;alert(1)&lt;/script&gt;") {
			t.Errorf("%s lost the escaped tag: %q", target, body)
		}
	}
}

func TestGetUnknownPaste(t *testing.T) {
	env := newTestEnv(t)
	w := env.do(t, http.MethodGet, "/api/v1/p/01ARZ3NDEKTSV4RRFFQ69G5FAV", "", nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("unknown paste: status %d, want 404", w.Code)
	}
}

func TestRecentBadCount(t *testing.T) {
	env := newTestEnv(t)
	w := env.do(t, http.MethodGet, "/api/v1/recent?n=abc", "", nil)
	if w.Code != http.StatusBadRequest {
		t.Errorf("bad n: status %d, want 400", w.Code)
	}
}

func TestHealthAndReady(t *testing.T) {
	env := newTestEnv(t)
	if w := env.do(t, http.MethodGet, "/healthz", "", nil); w.Code != http.StatusOK {
		t.Errorf("healthz: status %d", w.Code)
	}
	if w := env.do(t, http.MethodGet, "/readyz", "", nil); w.Code != http.StatusOK {
		t.Errorf("readyz: status %d, body %s", w.Code, w.Body.String())
	}
}
