package auth

import (
	"crypto/subtle"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/pkg/errors"

	"gitpaste/pkg/domain"
)

type Scope string

const (
	ScopeAPIIndex    Scope = "api:index"
	ScopePasteCreate Scope = "paste:create"
	ScopePasteRead   Scope = "paste:read"
	ScopeRecentRead  Scope = "recent:read"
)

// MaxRequestsPerMinute is a pointer so an absent field (unlimited) and
// an explicit zero (rejected as invalid) stay distinguishable.
type KeyEntry struct {
	Name                 string   `json:"name,omitempty"`
	Key                  string   `json:"key"`
	Scopes               []string `json:"scopes"`
	MaxRequestsPerMinute *int     `json:"max_requests_per_minute,omitempty"`
}

type keysFile struct {
	Keys []KeyEntry `json:"keys"`
}

// rateWindow is a per-key-name fixed window bucketed by wall-clock
// minute. In-memory only: a restart resets all quotas.
type rateWindow struct {
	minute int64
	count  int
}

type KeyStore struct {
	entries  []KeyEntry
	mu       sync.Mutex
	counters map[string]rateWindow
	now      func() time.Time
}

func NewKeyStore(path string) (*KeyStore, error) {
	s := &KeyStore{counters: make(map[string]rateWindow), now: time.Now}
	if path == "" {
		return s, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "read api key file")
	}
	var file keysFile
	if err := json.Unmarshal(raw, &file); err != nil {
		return nil, errors.Wrap(err, "parse api key file")
	}
	seen := make(map[string]bool)
	for _, entry := range file.Keys {
		name := entry.Name
		if name == "" {
			name = "unnamed"
		}
		if strings.TrimSpace(entry.Key) == "" {
			return nil, errors.New("api key entry has empty key")
		}
		if len(entry.Scopes) == 0 {
			return nil, fmt.Errorf("api key %q must include at least one scope", name)
		}
		if entry.MaxRequestsPerMinute != nil && *entry.MaxRequestsPerMinute <= 0 {
			return nil, fmt.Errorf("api key %q has invalid max_requests_per_minute", name)
		}
		if seen[entry.Key] {
			return nil, errors.New("duplicate api key in api key file")
		}
		seen[entry.Key] = true
	}
	s.entries = file.Keys
	return s, nil
}

func (s *KeyStore) Enabled() bool {
	return len(s.entries) > 0
}

// resolveKey compares against every entry in constant time per entry so
// lookup cost does not depend on which key matched.
func (s *KeyStore) resolveKey(provided string) (KeyEntry, bool) {
	var found KeyEntry
	ok := false
	for _, entry := range s.entries {
		if subtle.ConstantTimeCompare([]byte(entry.Key), []byte(provided)) == 1 && !ok {
			found = entry
			ok = true
		}
	}
	return found, ok
}

func (s *KeyStore) enforceRateLimit(entry KeyEntry) error {
	if entry.MaxRequestsPerMinute == nil {
		return nil
	}
	max := *entry.MaxRequestsPerMinute
	nowMinute := s.now().Unix() / 60
	keyID := entry.Name
	if keyID == "" {
		keyID = "key:" + firstN(entry.Key, 8)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	w := s.counters[keyID]
	if w.minute != nowMinute {
		w = rateWindow{minute: nowMinute}
	}
	if w.count >= max {
		s.counters[keyID] = w
		return domain.ErrKeyRateLimited
	}
	w.count++
	s.counters[keyID] = w
	return nil
}

// Authorize admits a request when the store is disabled, otherwise
// requires a key holding the wildcard or the specific scope, then
// charges the key's minute window.
func (s *KeyStore) Authorize(provided string, scope Scope) error {
	if !s.Enabled() {
		return nil
	}
	if provided == "" {
		return domain.ErrInvalidAPIKey
	}
	entry, ok := s.resolveKey(provided)
	if !ok {
		return domain.ErrInvalidAPIKey
	}
	allowed := false
	for _, sc := range entry.Scopes {
		if sc == "*" || sc == string(scope) {
			allowed = true
			break
		}
	}
	if !allowed {
		return domain.ErrScopeForbidden
	}
	return s.enforceRateLimit(entry)
}

func firstN(s string, n int) string {
	if len(s) > n {
		return s[:n]
	}
	return s
}
