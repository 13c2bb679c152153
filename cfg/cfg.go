package cfg

import (
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"

	"gitpaste/pkg/domain"
)

type Secret struct {
	value []byte
}

func NewSecret(s string) Secret {
	return Secret{value: []byte(s)}
}
func (s Secret) Value() string {
	return string(s.value)
}
func (s Secret) Wipe() {
	for i := range s.value {
		s.value[i] = 0
	}
}
func (s Secret) String() string {
	return "***REDACTED***"
}

type Cfg struct {
	Port            string
	Environment     string
	LogLevel        string
	BaseDir         string
	Token           Secret
	APIKeysFile     string
	MaxPasteSize    int64
	Push            domain.PushMode
	GitRemote       string
	GitAuthorName   string
	GitAuthorEmail  string
	AllowCIDR       []*net.IPNet
	TrustedProxies  []string
	AllowedOrigins  []string
	RateLimit       RateLimitCfg
	RedisURL        string
	RedisTLS        bool
	RedisUsername   string
	RedisPassword   Secret
	RedisTimeout    time.Duration
	RenderCacheSize int
	ContextTimeout  time.Duration
	MetricsUser     string
	MetricsPass     Secret
}

type RateLimitCfg struct {
	RPM               int
	Burst             int
	ConservativeLimit int
}

// Paths is the on-disk layout the service owns below BaseDir. The repo
// subtree is the git working tree; run/ holds locks and idempotency
// records and is never committed.
type Paths struct {
	Base        string
	Repo        string
	Run         string
	Tmp         string
	GitLock     string
	DaemonLock  string
	Idempotency string
}

func PathsFrom(base string) Paths {
	run := filepath.Join(base, "run")
	return Paths{
		Base:        base,
		Repo:        filepath.Join(base, "repo"),
		Run:         run,
		Tmp:         filepath.Join(base, "tmp"),
		GitLock:     filepath.Join(run, "git.lock"),
		DaemonLock:  filepath.Join(run, "daemon.lock"),
		Idempotency: filepath.Join(run, "idempotency"),
	}
}

func (c *Cfg) Paths() Paths {
	return PathsFrom(c.BaseDir)
}

func Load() (*Cfg, error) {
	c := &Cfg{}
	c.Port = getEnv("PORT", "8090")
	c.Environment = getEnv("ENVIRONMENT", "development")
	c.LogLevel = getEnv("LOG_LEVEL", "info")
	c.BaseDir = getEnv("BASE_DIR", "data")
	c.Token = NewSecret(getEnv("TOKEN", ""))
	c.APIKeysFile = getEnv("API_KEYS_FILE", "")
	var err error
	c.MaxPasteSize, err = getInt64("MAX_PASTE_SIZE", 1024*1024)
	if err != nil {
		return nil, err
	}
	pushStr := getEnv("PUSH_MODE", "off")
	push, ok := domain.ParsePushMode(pushStr)
	if !ok {
		return nil, fmt.Errorf("invalid PUSH_MODE %q (off, best_effort, strict)", pushStr)
	}
	c.Push = push
	c.GitRemote = getEnv("GIT_REMOTE", "origin")
	c.GitAuthorName = getEnv("GIT_AUTHOR_NAME", "LAN Paste")
	c.GitAuthorEmail = getEnv("GIT_AUTHOR_EMAIL", "paste@lan")
	for _, cidr := range getSlice("ALLOW_CIDR", []string{}) {
		_, ipnet, err := net.ParseCIDR(cidr)
		if err != nil {
			return nil, fmt.Errorf("invalid CIDR in ALLOW_CIDR: %s", cidr)
		}
		c.AllowCIDR = append(c.AllowCIDR, ipnet)
	}
	c.TrustedProxies = getSlice("TRUSTED_PROXIES", []string{})
	c.AllowedOrigins = getSlice("ALLOWED_ORIGINS", []string{})
	c.RateLimit.RPM, err = getInt("RATE_LIMIT_RPM", 120)
	if err != nil {
		return nil, err
	}
	c.RateLimit.Burst, err = getInt("RATE_LIMIT_BURST", 20)
	if err != nil {
		return nil, err
	}
	c.RateLimit.ConservativeLimit, err = getInt("RATE_LIMIT_CONSERVATIVE", 10)
	if err != nil {
		return nil, err
	}
	c.RedisURL = getEnv("REDIS_URL", "")
	c.RedisTLS = getEnv("REDIS_TLS", "false") == "true"
	c.RedisUsername = getEnv("REDIS_USERNAME", "")
	c.RedisPassword = NewSecret(getEnv("REDIS_PASSWORD", ""))
	c.RedisTimeout, err = getDuration("REDIS_TIMEOUT", 5*time.Second)
	if err != nil {
		return nil, err
	}
	c.RenderCacheSize, err = getInt("RENDER_CACHE_SIZE", 256)
	if err != nil {
		return nil, err
	}
	c.ContextTimeout, err = getDuration("CONTEXT_TIMEOUT", 30*time.Second)
	if err != nil {
		return nil, err
	}
	c.MetricsUser = getEnv("METRICS_USER", "")
	c.MetricsPass = NewSecret(getEnv("METRICS_PASS", ""))
	return c, nil
}

func Validate(c *Cfg) error {
	if c.Port == "" {
		return errors.New("PORT is required")
	}
	if _, err := strconv.Atoi(c.Port); err != nil {
		return errors.New("PORT must be a number")
	}
	if c.BaseDir == "" {
		return errors.New("BASE_DIR is required")
	}
	if c.MaxPasteSize <= 0 {
		return errors.New("MAX_PASTE_SIZE must be positive")
	}
	if c.MaxPasteSize > 64*1024*1024 {
		return errors.New("MAX_PASTE_SIZE cannot exceed 64MB")
	}
	if c.GitRemote == "" && c.Push != domain.PushOff {
		return errors.New("GIT_REMOTE is required when PUSH_MODE is not off")
	}
	if c.GitAuthorName == "" || c.GitAuthorEmail == "" {
		return errors.New("GIT_AUTHOR_NAME and GIT_AUTHOR_EMAIL are required")
	}
	if c.RateLimit.RPM <= 0 {
		return errors.New("RATE_LIMIT_RPM must be positive")
	}
	if c.RenderCacheSize <= 0 {
		return errors.New("RENDER_CACHE_SIZE must be positive")
	}
	for _, proxy := range c.TrustedProxies {
		if strings.Contains(proxy, "/") {
			if _, _, err := net.ParseCIDR(proxy); err != nil {
				return fmt.Errorf("invalid CIDR in TRUSTED_PROXIES: %s", proxy)
			}
		} else {
			if net.ParseIP(proxy) == nil {
				return fmt.Errorf("invalid IP in TRUSTED_PROXIES: %s", proxy)
			}
		}
	}
	if c.RedisURL != "" {
		if !strings.HasPrefix(c.RedisURL, "redis://") && !strings.HasPrefix(c.RedisURL, "rediss://") {
			return errors.New("REDIS_URL must start with redis:// or rediss://")
		}
		if strings.HasPrefix(c.RedisURL, "rediss://") && !c.RedisTLS {
			return errors.New("REDIS_URL uses rediss:// but REDIS_TLS=false")
		}
	}
	if c.Environment == "production" {
		if c.MetricsUser == "" || c.MetricsPass.Value() == "" {
			return errors.New("METRICS_USER and METRICS_PASS are required in production")
		}
	}
	return nil
}

func (c *Cfg) Wipe() {
	c.Token.Wipe()
	c.RedisPassword.Wipe()
	c.MetricsPass.Wipe()
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok {
		return v
	}
	return fallback
}
func getInt(key string, fallback int) (int, error) {
	s := getEnv(key, "")
	if s == "" {
		return fallback, nil
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("invalid integer for %s: %w", key, err)
	}
	return v, nil
}
func getInt64(key string, fallback int64) (int64, error) {
	s := getEnv(key, "")
	if s == "" {
		return fallback, nil
	}
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid integer for %s: %w", key, err)
	}
	return v, nil
}
func getDuration(key string, fallback time.Duration) (time.Duration, error) {
	s := getEnv(key, "")
	if s == "" {
		return fallback, nil
	}
	v, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("invalid duration for %s: %w", key, err)
	}
	return v, nil
}
func getSlice(key string, fallback []string) []string {
	s := getEnv(key, "")
	if s == "" {
		return fallback
	}
	parts := strings.Split(s, ",")
	var result []string
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			result = append(result, p)
		}
	}
	return result
}
