package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/joho/godotenv/autoload"
	"golang.org/x/sync/errgroup"

	"gitpaste/cfg"
	"gitpaste/metrics"
	"gitpaste/svc/api"
	"gitpaste/svc/auth"
	"gitpaste/svc/cache"
	"gitpaste/svc/db"
	gitx "gitpaste/svc/git"
	"gitpaste/svc/lim"
	"gitpaste/svc/util"
)

func main() {
	c, err := cfg.Load()
	if err != nil {
		util.InitLog("info", true)
		util.Fatal().Err(err).Msg("failed to load configuration")
	}
	util.InitLog(c.LogLevel, c.Environment == "development")
	if err := cfg.Validate(c); err != nil {
		util.Fatal().Err(err).Msg("invalid configuration")
	}
	defer c.Wipe()
	util.Info().Msg("starting gitpaste")
	metrics.Init()

	paths := c.Paths()
	git := gitx.NewRunner(paths.Repo, c.GitAuthorName, c.GitAuthorEmail)
	if err := gitx.Preflight(paths, git); err != nil {
		util.Fatal().Err(err).Msg("preflight failed")
	}
	util.Info().Str("base", paths.Base).Msg("repository bootstrapped")

	// Held for the whole process lifetime; a second daemon against the
	// same base dir must fail fast.
	daemonLock, err := gitx.AcquireLock(paths.DaemonLock)
	if err != nil {
		util.Fatal().Err(err).Msg("another instance is already running")
	}
	defer daemonLock.Release()

	keys, err := auth.NewKeyStore(c.APIKeysFile)
	if err != nil {
		util.Fatal().Err(err).Msg("failed to load api keys")
	}
	if keys.Enabled() {
		util.Info().Str("file", c.APIKeysFile).Msg("api key auth enabled")
	} else if c.Token.Value() != "" {
		util.Info().Msg("shared token auth enabled")
	} else {
		util.Warn().Msg("no auth configured, all requests admitted")
	}

	var rdb *db.Redis
	if c.RedisURL != "" {
		rdb, err = db.NewRedis(c.RedisURL, c)
		if err != nil {
			util.Warn().Err(err).Msg("redis unavailable, local rate limiting only")
		} else {
			util.Info().Msg("redis connected")
			defer rdb.Close()
		}
	}

	limiter := lim.New(c.RateLimit.RPM, c.RateLimit.Burst, c.RateLimit.ConservativeLimit, rdb, c.TrustedProxies)
	defer limiter.Stop()

	rcache, err := cache.NewRender(c.RenderCacheSize)
	if err != nil {
		util.Fatal().Err(err).Msg("failed to create render cache")
	}

	hdl := api.NewHdl(c, git, keys, rcache)
	server := api.NewServer(c, hdl, limiter)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(server.Start)
	g.Go(func() error {
		<-gctx.Done()
		util.Info().Msg("shutting down gracefully...")
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()
		return server.Shutdown(shutdownCtx)
	})
	if err := g.Wait(); err != nil {
		util.Error().Err(err).Msg("server error")
		os.Exit(1)
	}
	util.Info().Msg("shutdown complete")
}
