// Package coinbase provides a Coinbase Exchange (legacy) spot adapter.
// The exchange has no derivatives surface in this system; requesting a swap
// adapter is a configuration error in the factory.
package coinbase

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"strconv"
	"time"

	"tradebridge/internal/domain"
)

// Signer builds Coinbase Exchange authentication headers.
//
// Signature: base64(hmac_sha256(base64_decode(secret), ts + method +
// request_path + body)) where ts has second resolution and request_path
// includes the query string when present.
type Signer struct {
	apiKey     string
	secret     []byte
	passphrase string
	now        func() time.Time
}

// NewSigner creates a signer. It fails with a ConfigError when a credential
// is missing or the secret is not valid base64; a decode failure here would
// otherwise surface as a silent authentication failure on every request.
func NewSigner(apiKey, secret, passphrase string) (*Signer, error) {
	if apiKey == "" || secret == "" || passphrase == "" {
		return nil, domain.NewConfigError("coinbaseexchange", "missing api key, secret or passphrase")
	}
	secretBytes, err := base64.StdEncoding.DecodeString(secret)
	if err != nil {
		return nil, domain.NewConfigError("coinbaseexchange", "secret is not valid base64: %v", err)
	}
	return &Signer{
		apiKey:     apiKey,
		secret:     secretBytes,
		passphrase: passphrase,
		now:        time.Now,
	}, nil
}

// sign computes the base64 HMAC-SHA256 signature over the prehash string.
func (s *Signer) sign(ts, method, requestPath, body string) string {
	mac := hmac.New(sha256.New, s.secret)
	mac.Write([]byte(ts + method + requestPath + body))
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

// Headers returns the authentication headers for a signed request.
// requestPath must include the query string when the request has one.
func (s *Signer) Headers(method, requestPath, body string) map[string]string {
	ts := strconv.FormatInt(s.now().Unix(), 10)
	return map[string]string{
		"CB-ACCESS-KEY":        s.apiKey,
		"CB-ACCESS-SIGN":       s.sign(ts, method, requestPath, body),
		"CB-ACCESS-TIMESTAMP":  ts,
		"CB-ACCESS-PASSPHRASE": s.passphrase,
		"Content-Type":         "application/json",
	}
}
