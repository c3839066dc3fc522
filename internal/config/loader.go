// internal/config/loader.go
//
// Configuration loader.
//
/*
Context
--------
`Load()` builds one immutable `Config` struct from three layers (highest
precedence last):

  1. Optional `<root>/conf/.env` — dotenv values.
  2. `conf/global.yaml`.
  3. Environment variables prefixed `PORTAL_`, where `__` maps to “.”
     (e.g., `PORTAL_HTTP__LISTEN_ADDR → http.listen_addr`).

After merging, the tree is unmarshalled into strongly-typed structs,
validated, enriched with the runtime root path, and cached in an
`atomic.Pointer` for lock-free reads.  `Reload()` calls `Load()` again and
swaps the pointer.

Secret references (`vault:<mount/path>#<key>`) are resolved through an
optional SecretResolver before validation, so a missing Vault deployment
only matters when the YAML actually references one.

Instrumentation
---------------
Logs use the global sugared logger (`zap.S()`) so early boot issues surface
even before the file logger is installed.
*/
package config

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	koanf "github.com/knadh/koanf/v2"
	"go.uber.org/zap"
)

// SecretResolver resolves one external secret reference.  Satisfied by
// *vault.Client; nil disables resolution.
type SecretResolver interface {
	Resolve(ctx context.Context, ref string) (string, error)
}

const vaultPrefix = "vault:"

var current atomic.Pointer[Config]

/*──────────────────────────── root discovery ───────────────────────────────*/

// rootDir resolves PORTAL_ROOT or climbs directories until conf/global.yaml
// is found.  Falls back to executable heuristic for production layout.
func rootDir() string {
	if r := os.Getenv("PORTAL_ROOT"); r != "" {
		return r
	}

	wd, _ := os.Getwd()
	dir := wd
	for {
		if _, err := os.Stat(filepath.Join(dir, "conf", "global.yaml")); err == nil {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir { // reached filesystem root
			break
		}
		dir = parent
	}

	exe, _ := os.Executable()
	if filepath.Base(filepath.Dir(exe)) == "bin" {
		return filepath.Dir(filepath.Dir(exe))
	}
	return wd
}

/*─────────────────────────────── loader ───────────────────────────────────*/

// Load reads .env, YAML, and env overrides, resolves secret references,
// validates, and caches the resulting Config.
func Load(ctx context.Context, secrets SecretResolver) (*Config, error) {
	root := rootDir()
	zap.S().Debugw("config root resolved", "root", root)

	// .env (optional, no error if missing)
	_ = godotenv.Load(filepath.Join(root, "conf", ".env"))

	k := koanf.New(".")

	yamlPath := filepath.Join(root, "conf", "global.yaml")
	if err := k.Load(file.Provider(yamlPath), yaml.Parser()); err != nil {
		zap.S().Errorw("config yaml load failed", "file", yamlPath, "err", err)
		return nil, err
	}

	// Env overrides: PORTAL_SMTP__HOST → smtp.host
	if err := k.Load(env.Provider("PORTAL_", ".", func(s string) string {
		s = strings.TrimPrefix(s, "PORTAL_")
		return strings.ToLower(strings.ReplaceAll(s, "__", "."))
	}), nil); err != nil {
		zap.S().Errorw("config env overlay failed", "err", err)
		return nil, err
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		zap.S().Errorw("config unmarshal failed", "err", err)
		return nil, err
	}

	cfg.Paths.Root = root

	if err := resolveSecrets(ctx, &cfg, secrets); err != nil {
		zap.S().Errorw("config secret resolution failed", "err", err)
		return nil, err
	}

	if err := validateStruct(&cfg); err != nil {
		zap.S().Errorw("config validation failed", "err", err)
		return nil, err
	}

	current.Store(&cfg)
	zap.S().Infow("config loaded",
		"listen_addr", cfg.HTTP.ListenAddr,
		"smtp_host", cfg.SMTP.Host,
		"rate_limit", cfg.RateLimit.Limit,
		"root", cfg.Paths.Root,
	)
	return &cfg, nil
}

// resolveSecrets replaces `vault:` references in the two secret-bearing
// fields.  Plain values pass through untouched.
func resolveSecrets(ctx context.Context, cfg *Config, secrets SecretResolver) error {
	for _, f := range []*string{&cfg.SMTP.Password, &cfg.Turnstile.Secret} {
		ref, ok := strings.CutPrefix(*f, vaultPrefix)
		if !ok {
			continue
		}
		if secrets == nil {
			return fmt.Errorf("config references %q but no secret resolver is configured", vaultPrefix+ref)
		}
		val, err := secrets.Resolve(ctx, ref)
		if err != nil {
			return err
		}
		*f = val
	}
	return nil
}

/*──────────────────────────── helpers ─────────────────────────────────────*/

func Get() *Config { return current.Load() }

func Reload(ctx context.Context, secrets SecretResolver) error {
	_, err := Load(ctx, secrets)
	return err
}
