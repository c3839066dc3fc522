// cmd/web/main.go
//
// labportal – HTTP entry point.
//
// Boot sequence
// -------------
//
//  1. Load env vars (jail-wide file → conf/.env fallback).
//
//  2. Start daily rotating logger (tees to console when running in a TTY).
//
//  3. Connect Vault when VAULT_ADDR is present, then load and validate the
//     layered configuration (dotenv → YAML → PORTAL_ env overrides).
//
//  4. Parse the immutable test catalog and open the optional GeoLite2
//     database for lead-origin tagging.
//
//  5. Assemble the pipeline collaborators (Turnstile verifier, SMTP
//     mailer, rate limiter) and mount the API routes plus /metrics.
//
//  6. Serve with hardened timeouts; SIGINT/SIGTERM drain the server and
//     stop the limiter sweeper via one shared context.
package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"github.com/itestchem/labportal/internal/catalog"
	"github.com/itestchem/labportal/internal/config"
	"github.com/itestchem/labportal/internal/logger"
	"github.com/itestchem/labportal/internal/mailer"
	"github.com/itestchem/labportal/internal/middleware"
	"github.com/itestchem/labportal/internal/ratelimit"
	"github.com/itestchem/labportal/internal/requestinfo"
	"github.com/itestchem/labportal/internal/server"
	"github.com/itestchem/labportal/internal/vault"
	"github.com/itestchem/labportal/internal/verify"
	"github.com/itestchem/labportal/internal/web"
)

const serverEnvPath = "/usr/local/etc/labportal/global.env"

// loadEnv prefers the jail-wide env file; on dev it falls back to .env.
func loadEnv() {
	if _, err := os.Stat(serverEnvPath); err == nil {
		_ = godotenv.Load(serverEnvPath)
		return
	}
	_ = godotenv.Load()
}

// runningInTTY returns true when stdout is a character device.
func runningInTTY() bool {
	fi, err := os.Stdout.Stat()
	if err != nil {
		return false
	}
	return fi.Mode()&os.ModeCharDevice != 0
}

func init() { loadEnv() }

func main() {
	rootDir, _ := os.Getwd()
	logOut, err := logger.New(rootDir, runningInTTY())
	if err != nil {
		log.Fatalf("start logger: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	//
	// ── 1.  Secrets + configuration ─────────────────────────────────────
	//
	var secrets config.SecretResolver
	if os.Getenv("VAULT_ADDR") != "" {
		cli, err := vault.New(ctx)
		if err != nil {
			logOut.Fatalf("vault connect: %v", err)
		}
		secrets = cli
		logOut.Infow("vault online")
	}

	cfg, err := config.Load(ctx, secrets)
	if err != nil {
		logOut.Fatalf("load config: %v", err)
	}

	//
	// ── 2.  Reference data + geo ────────────────────────────────────────
	//
	cat, err := catalog.Load(filepath.Join(cfg.Paths.Root, "conf", "catalog.yaml"))
	if err != nil {
		logOut.Fatalf("load catalog: %v", err)
	}
	logOut.Infow("catalog loaded", "categories", len(cat.Categories))

	if err := requestinfo.InitGeo(cfg.Geo.DBPath); err != nil {
		// Geo tagging is a nicety; a broken DB must not block lead intake.
		logOut.Warnw("geo database unavailable", "path", cfg.Geo.DBPath, "err", err)
	}

	//
	// ── 3.  Pipeline collaborators ──────────────────────────────────────
	//
	verifier := verify.NewTurnstile(cfg.Turnstile.Secret, cfg.Turnstile.VerifyURL)
	smtp := mailer.NewSMTP(cfg.SMTP)
	limiter := ratelimit.New(cfg.RateLimit.Limit, cfg.RateLimit.Window)

	//
	// ── 4.  Routes: API + metrics, wrapped in hardening middleware ─────
	//
	api := web.New(cfg, logOut, cat, verifier, smtp, limiter)

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.Handle("/", api.Routes())

	var handler http.Handler = middleware.Security(mux)
	if cfg.HTTP.ForceHTTPS {
		handler = middleware.ForceHTTPS(handler)
	}

	httpSrv := server.New(cfg.HTTP.ListenAddr, handler)

	//
	// ── 5.  Serve until signalled ───────────────────────────────────────
	//
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logOut.Infow("listening", "addr", cfg.HTTP.ListenAddr)
		if err := httpSrv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		limiter.Run(gctx, cfg.RateLimit.SweepInterval)
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return httpSrv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logOut.Fatalf("server exit: %v", err)
	}
	logOut.Infow("shutdown complete")
}
