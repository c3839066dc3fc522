// internal/vault/vault.go
//
// Vault client wrapper.
//
// Context
// -------
// The portal keeps its two operational secrets—the SMTP password and the
// Turnstile server secret—out of flat files by letting `conf/global.yaml`
// reference them as `vault:<mount/path>#<key>`.  This package wraps the
// HashiCorp Vault Go SDK with KV-v2 reads, per-key caching, and a
// background token-renewal loop, and satisfies config.SecretResolver.
//
// Workflow
// --------
//  1. cli, err := vault.New(ctx)                  // during boot, optional.
//  2. val, err := cli.Resolve(ctx, "kv/portal#smtp_password")
//
// Environment expectations: VAULT_ADDR and VAULT_TOKEN, per the SDK.
package vault

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	vault "github.com/hashicorp/vault/api"
	"go.uber.org/zap"
)

// cacheTTL bounds how stale a resolved secret may be across Reload calls.
const cacheTTL = 5 * time.Minute

// Client is safe for concurrent use.  Create once at startup.  The zero
// value is invalid.
type Client struct {
	api *vault.Client

	cacheMu sync.RWMutex
	cache   map[string]cached // "<path>#<key>" → value + expiry
}

type cached struct {
	val string
	exp time.Time
}

// New constructs a Vault client and starts a background token-renewal
// loop tied to ctx.
func New(ctx context.Context) (*Client, error) {
	cfg := vault.DefaultConfig()
	if err := cfg.ReadEnvironment(); err != nil {
		return nil, fmt.Errorf("vault env cfg: %w", err)
	}

	apiCli, err := vault.NewClient(cfg)
	if err != nil {
		return nil, fmt.Errorf("vault api: %w", err)
	}
	if tok := os.Getenv("VAULT_TOKEN"); tok != "" {
		apiCli.SetToken(tok)
	}

	c := &Client{
		api:   apiCli,
		cache: make(map[string]cached),
	}
	go c.renewLoop(ctx)
	return c, nil
}

// Resolve fetches one value for a `<mount/path>#<key>` reference.  Results
// are cached for cacheTTL so config reloads do not hammer Vault.
func (c *Client) Resolve(ctx context.Context, ref string) (string, error) {
	secretPath, key, ok := strings.Cut(ref, "#")
	if !ok || secretPath == "" || key == "" {
		return "", fmt.Errorf("malformed secret reference %q, want <mount/path>#<key>", ref)
	}

	c.cacheMu.RLock()
	if cv, hit := c.cache[ref]; hit && time.Now().Before(cv.exp) {
		c.cacheMu.RUnlock()
		return cv.val, nil
	}
	c.cacheMu.RUnlock()

	mount, rel, ok := strings.Cut(secretPath, "/")
	if !ok {
		return "", errors.New("secret path must contain a mount segment")
	}
	sec, err := c.api.KVv2(mount).Get(ctx, rel)
	if err != nil {
		return "", fmt.Errorf("vault get %s: %w", secretPath, err)
	}

	raw, found := sec.Data[key]
	if !found {
		return "", fmt.Errorf("key %q not found in secret %q", key, secretPath)
	}
	sval, isStr := raw.(string)
	if !isStr {
		return "", fmt.Errorf("value at %s is not a string", ref)
	}

	c.cacheMu.Lock()
	c.cache[ref] = cached{val: sval, exp: time.Now().Add(cacheTTL)}
	c.cacheMu.Unlock()

	return sval, nil
}

//
// background token renewal
//

// renewLoop keeps the auth token alive for the process lifetime.  Failures
// back off and retry; a non-renewable token simply parks the loop.
func (c *Client) renewLoop(ctx context.Context) {
	for ctx.Err() == nil {
		sec, err := c.api.Auth().Token().RenewSelf(0)
		if err != nil {
			zap.S().Warnw("vault token renew failed", "err", err)
			sleep(ctx, 30*time.Second)
			continue
		}
		if sec == nil || sec.Auth == nil || !sec.Auth.Renewable {
			zap.S().Infow("vault token not renewable, parking renewal loop")
			sleep(ctx, time.Hour)
			continue
		}

		watcher, err := c.api.NewLifetimeWatcher(&vault.LifetimeWatcherInput{Secret: sec})
		if err != nil {
			zap.S().Warnw("vault lifetime watcher init failed", "err", err)
			sleep(ctx, 30*time.Second)
			continue
		}

		go watcher.Start()
		func() {
			defer watcher.Stop()
			for {
				select {
				case <-ctx.Done():
					return
				case err := <-watcher.DoneCh():
					if err != nil {
						zap.S().Warnw("vault token renewal stopped", "err", err)
					}
					return
				case <-watcher.RenewCh():
					// Renewed; keep watching.
				}
			}
		}()
		sleep(ctx, 15*time.Second)
	}
}

func sleep(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
