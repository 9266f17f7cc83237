package kucoin

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"strconv"
	"sync"
	"time"

	"tradebridge/internal/domain"
)

// Signer produces KC-API v2 headers, shared by the spot and futures APIs.
// The passphrase header is itself an HMAC of the passphrase under the
// secret, per key version 2.
type Signer struct {
	apiKey     string
	secret     []byte
	passphrase string

	now func() time.Time

	mu   sync.Mutex
	last int64
}

// NewSigner creates a signer. KuCoin needs all three credentials.
func NewSigner(apiKey, apiSecret, passphrase string) (*Signer, error) {
	if apiKey == "" || apiSecret == "" || passphrase == "" {
		return nil, domain.NewConfigError(exchangeName, "missing api key, secret or passphrase")
	}
	return &Signer{
		apiKey:     apiKey,
		secret:     []byte(apiSecret),
		passphrase: passphrase,
		now:        time.Now,
	}, nil
}

// timestamp returns a strictly increasing millisecond timestamp.
func (s *Signer) timestamp() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := s.now().UnixMilli()
	if n <= s.last {
		n = s.last + 1
	}
	s.last = n
	return strconv.FormatInt(n, 10)
}

func (s *Signer) sign(msg string) string {
	mac := hmac.New(sha256.New, s.secret)
	mac.Write([]byte(msg))
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

// Headers signs timestamp+method+path+body. The path must include the query
// string when one is sent.
func (s *Signer) Headers(method, pathWithQuery, body string) map[string]string {
	ts := s.timestamp()
	return map[string]string{
		"KC-API-KEY":         s.apiKey,
		"KC-API-SIGN":        s.sign(ts + method + pathWithQuery + body),
		"KC-API-TIMESTAMP":   ts,
		"KC-API-PASSPHRASE":  s.sign(s.passphrase),
		"KC-API-KEY-VERSION": "2",
		"Content-Type":       "application/json",
	}
}
