// Package gate provides Gate.io adapters for spot and USDT-settled futures
// over the apiv4 REST API.
package gate

import (
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
	"strconv"
	"time"

	"tradebridge/internal/domain"
)

// Signer builds Gate.io apiv4 authentication headers.
//
// Signature: hex(hmac_sha512(secret, method + "\n" + path + "\n" + query +
// "\n" + body + "\n" + ts)) with a second-resolution timestamp.
type Signer struct {
	apiKey string
	secret []byte
	now    func() time.Time
}

// NewSigner creates a signer, failing with a ConfigError when either
// credential is missing.
func NewSigner(apiKey, secret string) (*Signer, error) {
	if apiKey == "" || secret == "" {
		return nil, domain.NewConfigError("gate", "missing api key or secret")
	}
	return &Signer{
		apiKey: apiKey,
		secret: []byte(secret),
		now:    time.Now,
	}, nil
}

// sign computes the hex HMAC-SHA512 signature for one request.
func (s *Signer) sign(method, path, query, body, ts string) string {
	mac := hmac.New(sha512.New, s.secret)
	mac.Write([]byte(method + "\n" + path + "\n" + query + "\n" + body + "\n" + ts))
	return hex.EncodeToString(mac.Sum(nil))
}

// Headers returns the authentication headers for a signed request.
func (s *Signer) Headers(method, path, query, body string) map[string]string {
	ts := strconv.FormatInt(s.now().Unix(), 10)
	return map[string]string{
		"KEY":          s.apiKey,
		"Timestamp":    ts,
		"SIGN":         s.sign(method, path, query, body, ts),
		"Content-Type": "application/json",
	}
}
