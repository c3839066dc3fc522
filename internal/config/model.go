// internal/config/model.go
//
// Typed configuration model for the portal.
//
// Context
// -------
// These structs define the shape of the configuration tree that
// `internal/config/loader.go` builds from three overlay layers:
//
//   • optional `conf/.env`                     – dotenv values,
//   • `conf/global.yaml`                       – primary static file,
//   • `PORTAL_`-prefixed environment overrides – highest precedence.
//
// Any value whose string begins with the prefix `vault:` is resolved
// through the Vault client *after* unmarshalling, so the rest of the app
// only ever sees plain strings.  In practice that covers the SMTP password
// and the Turnstile secret.
//
// Validation happens immediately after unmarshal; the app fails fast if
// required fields are missing.
//
// Notes
// -----
//   • Struct tags use `koanf:"…"`, not `yaml:"…"`—Koanf ignores `yaml` tags
//     unless configured otherwise.
//   • The `Paths` block is filled at runtime; YAML must not try to set it.

package config

import "time"

//
// HTTP section
//

// HTTP holds web-server tunables.
type HTTP struct {
	ListenAddr string `koanf:"listen_addr" validate:"required,hostname_port"`
	ForceHTTPS bool   `koanf:"force_https"`
}

//
// SMTP section
//

// SMTP parameterizes mail dispatch.  Sender authenticates against Host;
// Recipient is the fixed operations inbox every submission is relayed to.
// Password may be a `vault:` reference.
type SMTP struct {
	Host      string `koanf:"host"      validate:"required"`
	Port      int    `koanf:"port"      validate:"required,min=1,max=65535"`
	Username  string `koanf:"username"  validate:"required"`
	Password  string `koanf:"password"  validate:"required"`
	Sender    string `koanf:"sender"    validate:"required,email"`
	Recipient string `koanf:"recipient" validate:"required,email"`
}

//
// Turnstile section
//

// Turnstile holds the server-side half of the Cloudflare challenge.  The
// secret may be a `vault:` reference.  VerifyURL is configurable so tests
// and staging can point at a stub endpoint.
type Turnstile struct {
	Secret    string `koanf:"secret"     validate:"required"`
	VerifyURL string `koanf:"verify_url" validate:"required,url"`
}

//
// Rate-limit section
//

// RateLimit tunes the best-effort per-IP submission counter.  The window
// is fixed, the counter lives in process memory, and entries are swept on
// SweepInterval to bound the map.
type RateLimit struct {
	Limit         int           `koanf:"limit"          validate:"min=1"`
	Window        time.Duration `koanf:"window"         validate:"required"`
	SweepInterval time.Duration `koanf:"sweep_interval" validate:"required"`
}

//
// Geo section
//

// Geo points at an optional GeoLite2 database used to tag incoming leads
// with a country code.  Empty path disables the lookup.
type Geo struct {
	DBPath string `koanf:"db_path"`
}

//
// Paths section (runtime only)
//

// Paths is resolved at runtime—never set in YAML or env.  The loader
// discovers Root so later code can build absolute file paths (catalog,
// logs).
type Paths struct {
	Root string
}

//
// Root aggregate
//

// Config is the immutable aggregate returned by Load() and cached in an
// atomic.Pointer for lock-free reads throughout the app lifetime.
type Config struct {
	HTTP      HTTP      `koanf:"http"`
	SMTP      SMTP      `koanf:"smtp"`
	Turnstile Turnstile `koanf:"turnstile"`
	RateLimit RateLimit `koanf:"rate_limit"`
	Geo       Geo       `koanf:"geo"`
	Paths     Paths     `koanf:"-"`
}
