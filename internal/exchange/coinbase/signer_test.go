package coinbase

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tradebridge/internal/domain"
)

func TestNewSigner_RequiresCredentials(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		key        string
		secret     string
		passphrase string
	}{
		{name: "missing key", key: "", secret: "c2VjcmV0", passphrase: "p"},
		{name: "missing secret", key: "k", secret: "", passphrase: "p"},
		{name: "missing passphrase", key: "k", secret: "c2VjcmV0", passphrase: ""},
		{name: "secret not base64", key: "k", secret: "not base64!!", passphrase: "p"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			_, err := NewSigner(tt.key, tt.secret, tt.passphrase)
			require.Error(t, err)
			assert.True(t, domain.IsConfigError(err))
		})
	}
}

func TestSigner_Headers_KnownAnswer(t *testing.T) {
	t.Parallel()

	// The secret decodes to "coinbase-secret-bytes".
	s, err := NewSigner("coinbase-key", "Y29pbmJhc2Utc2VjcmV0LWJ5dGVz", "coinbase-pass")
	require.NoError(t, err)
	s.now = func() time.Time { return time.Unix(1700000000, 0) }

	headers := s.Headers("POST", "/orders", `{"product_id":"BTC-USDT"}`)

	assert.Equal(t, "coinbase-key", headers["CB-ACCESS-KEY"])
	assert.Equal(t, "1700000000", headers["CB-ACCESS-TIMESTAMP"])
	assert.Equal(t, "fH/NYfff5J0DOwh4nLhh/EZ13doJgDcp2YOx9Z+WO4A=", headers["CB-ACCESS-SIGN"])
	assert.Equal(t, "coinbase-pass", headers["CB-ACCESS-PASSPHRASE"])
	assert.Equal(t, "application/json", headers["Content-Type"])
}
