package adapters

import (
	"net/http"
	"sync"
)

// BearerTransport is an http.RoundTripper that injects the current session
// token as an Authorization header on outbound requests. It doubles as the
// RequestAuthSink the state manager pushes token changes to, so an http.Client
// built on it always carries the latest credential.
type BearerTransport struct {
	// Base is the underlying transport; http.DefaultTransport when nil.
	Base http.RoundTripper

	mu    sync.RWMutex
	token string
}

var _ RequestAuthSink = (*BearerTransport)(nil)
var _ http.RoundTripper = (*BearerTransport)(nil)

// SetBearerToken stores the token for subsequent requests; empty clears it.
func (t *BearerTransport) SetBearerToken(token string) error {
	t.mu.Lock()
	t.token = token
	t.mu.Unlock()
	return nil
}

// Token returns the currently held token ("" when cleared).
func (t *BearerTransport) Token() string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.token
}

func (t *BearerTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	t.mu.RLock()
	token := t.token
	t.mu.RUnlock()

	if token != "" {
		// RoundTrippers must not mutate the caller's request.
		req = req.Clone(req.Context())
		req.Header.Set("Authorization", "Bearer "+token)
	}

	base := t.Base
	if base == nil {
		base = http.DefaultTransport
	}
	return base.RoundTrip(req)
}
