// Package bitfinex provides Bitfinex exchange adapters for spot ("exchange"
// wallet) and derivatives orders over the v2 REST API.
package bitfinex

import (
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
	"strconv"
	"sync"
	"time"

	"tradebridge/internal/domain"
)

// apiPrefix is baked into the Bitfinex v2 signing payload.
const apiPrefix = "/api/v2"

// Signer builds Bitfinex v2 authentication headers.
//
// Signature: hex(hmac_sha384(secret, "/api/v2" + path + nonce + body)) with a
// millisecond nonce. Nonces are monotonically non-decreasing for the lifetime
// of the credentials; Bitfinex rejects stale or repeated nonces.
type Signer struct {
	apiKey string
	secret []byte

	now  func() time.Time
	mu   sync.Mutex
	last int64
}

// NewSigner creates a signer, failing with a ConfigError when either
// credential is missing.
func NewSigner(apiKey, secret string) (*Signer, error) {
	if apiKey == "" || secret == "" {
		return nil, domain.NewConfigError("bitfinex", "missing api key or secret")
	}
	return &Signer{
		apiKey: apiKey,
		secret: []byte(secret),
		now:    time.Now,
	}, nil
}

// nonce returns the next millisecond nonce, never repeating or decreasing.
func (s *Signer) nonce() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := s.now().UnixMilli()
	if n <= s.last {
		n = s.last + 1
	}
	s.last = n
	return strconv.FormatInt(n, 10)
}

// sign computes the hex HMAC-SHA384 signature for one request.
func (s *Signer) sign(path, nonce, body string) string {
	mac := hmac.New(sha512.New384, s.secret)
	mac.Write([]byte(apiPrefix + path + nonce + body))
	return hex.EncodeToString(mac.Sum(nil))
}

// Headers returns the authentication headers for a signed request.
func (s *Signer) Headers(path, body string) map[string]string {
	nonce := s.nonce()
	return map[string]string{
		"bfx-apikey":    s.apiKey,
		"bfx-nonce":     nonce,
		"bfx-signature": s.sign(path, nonce, body),
		"Content-Type":  "application/json",
	}
}
