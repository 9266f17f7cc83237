package kraken

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/sha512"
	"encoding/base64"
	"strconv"
	"sync"
	"time"

	"tradebridge/internal/domain"
)

// Signer produces Kraken spot API-Sign headers. The secret is the
// base64-decoded API secret; the signed message is the request path
// concatenated with the SHA-256 digest of nonce+postdata.
type Signer struct {
	apiKey string
	secret []byte

	now func() time.Time

	mu   sync.Mutex
	last int64
}

// NewSigner creates a spot signer. The secret must be valid base64.
func NewSigner(apiKey, apiSecret string) (*Signer, error) {
	if apiKey == "" || apiSecret == "" {
		return nil, domain.NewConfigError(exchangeName, "missing api key or secret")
	}
	secret, err := base64.StdEncoding.DecodeString(apiSecret)
	if err != nil {
		return nil, domain.NewConfigError(exchangeName, "api secret is not valid base64")
	}
	return &Signer{apiKey: apiKey, secret: secret, now: time.Now}, nil
}

// Nonce returns a strictly increasing millisecond nonce.
func (s *Signer) Nonce() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := s.now().UnixMilli()
	if n <= s.last {
		n = s.last + 1
	}
	s.last = n
	return strconv.FormatInt(n, 10)
}

// Sign computes the API-Sign value for a private endpoint call.
func (s *Signer) Sign(path, nonce, postdata string) string {
	inner := sha256.Sum256([]byte(nonce + postdata))
	mac := hmac.New(sha512.New, s.secret)
	mac.Write([]byte(path))
	mac.Write(inner[:])
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

// Headers returns the authentication headers for a private call whose form
// body already includes the nonce.
func (s *Signer) Headers(path, nonce, postdata string) map[string]string {
	return map[string]string{
		"API-Key":      s.apiKey,
		"API-Sign":     s.Sign(path, nonce, postdata),
		"Content-Type": "application/x-www-form-urlencoded",
	}
}

// FuturesSigner produces Authent headers for the Kraken futures API. Unlike
// spot, the HMAC key is the raw secret string and the digest is a single
// HMAC-SHA256 over nonce+postdata+path.
type FuturesSigner struct {
	apiKey string
	secret []byte

	now func() time.Time

	mu   sync.Mutex
	last int64
}

// NewFuturesSigner creates a futures signer.
func NewFuturesSigner(apiKey, apiSecret string) (*FuturesSigner, error) {
	if apiKey == "" || apiSecret == "" {
		return nil, domain.NewConfigError(exchangeName, "missing api key or secret")
	}
	return &FuturesSigner{apiKey: apiKey, secret: []byte(apiSecret), now: time.Now}, nil
}

// Nonce returns a strictly increasing millisecond nonce.
func (s *FuturesSigner) Nonce() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := s.now().UnixMilli()
	if n <= s.last {
		n = s.last + 1
	}
	s.last = n
	return strconv.FormatInt(n, 10)
}

// Sign computes the Authent value. The signed path is the full endpoint
// path as sent, without the host.
func (s *FuturesSigner) Sign(path, nonce, postdata string) string {
	mac := hmac.New(sha256.New, s.secret)
	mac.Write([]byte(nonce + postdata + path))
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

// Headers returns the authentication headers for a futures private call.
func (s *FuturesSigner) Headers(path, nonce, postdata string) map[string]string {
	return map[string]string{
		"APIKey":       s.apiKey,
		"Nonce":        nonce,
		"Authent":      s.Sign(path, nonce, postdata),
		"Content-Type": "application/x-www-form-urlencoded",
	}
}
