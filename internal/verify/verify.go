// internal/verify/verify.go
//
// Human-verification check against the Cloudflare Turnstile service.
//
// Context
//   Every submission carries an opaque one-time token minted by the
//   Turnstile widget in the browser.  Before any processing, the server
//   confirms the token with the siteverify endpoint; a missing or rejected
//   token terminates the attempt before validation, rendering, or mail
//   dispatch spend any resources.  The token is checked, not consumed—the
//   external service owns replay semantics.
//
// Workflow
//   •  Verifier is the narrow capability the handlers depend on, so tests
//      swap in a counting fake without touching pipeline logic.
//   •  Turnstile POSTs `secret=<secret>&response=<token>` form-encoded and
//      reads the boolean `success` field of the JSON reply.
//
//------------------------------------------------------------------------------

package verify

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Verifier reports whether a challenge token is valid.  The error return
// is for transport problems; a reachable service that rejects the token is
// (false, nil).
type Verifier interface {
	Verify(ctx context.Context, token string) (bool, error)
}

// DefaultEndpoint is the production siteverify URL.
const DefaultEndpoint = "https://challenges.cloudflare.com/turnstile/v0/siteverify"

// Turnstile is the live implementation.
type Turnstile struct {
	secret   string
	endpoint string
	client   *http.Client
}

// NewTurnstile builds a verifier.  endpoint may be empty to use the
// production URL; tests point it at an httptest server.
func NewTurnstile(secret, endpoint string) *Turnstile {
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}
	return &Turnstile{
		secret:   secret,
		endpoint: endpoint,
		client:   &http.Client{Timeout: 10 * time.Second},
	}
}

// siteverifyResponse mirrors the service reply.  Error codes are retained
// for server-side logging only; they never reach the submitter.
type siteverifyResponse struct {
	Success    bool     `json:"success"`
	ErrorCodes []string `json:"error-codes"`
}

// Verify checks one token.
func (t *Turnstile) Verify(ctx context.Context, token string) (bool, error) {
	form := url.Values{}
	form.Set("secret", t.secret)
	form.Set("response", token)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.endpoint,
		strings.NewReader(form.Encode()))
	if err != nil {
		return false, fmt.Errorf("turnstile request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := t.client.Do(req)
	if err != nil {
		return false, fmt.Errorf("turnstile call: %w", err)
	}
	defer resp.Body.Close()

	var sv siteverifyResponse
	if err := json.NewDecoder(resp.Body).Decode(&sv); err != nil {
		return false, fmt.Errorf("turnstile decode: %w", err)
	}
	return sv.Success, nil
}
