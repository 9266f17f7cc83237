package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tradebridge/pkg/config"
)

func createTempConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

const validConfig = `
app:
  name: tradebridge
  env: development
  log_level: debug

exchanges:
  gate:
    enabled: true
    market_type: swap
    timeout: 15s
    margin_mode: isolated
  kraken:
    enabled: true
    market_type: spot
    futures_base_url: https://futures.kraken.example
  bitfinex:
    enabled: false

execution:
  max_wait_sec: 7.5
  poll_interval_ms: 250
  return_on_partial: true
`

func TestLoad_ValidConfig(t *testing.T) {
	t.Parallel()

	cfg, err := config.Load(createTempConfig(t, validConfig))
	require.NoError(t, err)

	assert.Equal(t, "tradebridge", cfg.App.Name)
	assert.Equal(t, "debug", cfg.App.LogLevel)
	assert.True(t, cfg.IsDevelopment())
	assert.False(t, cfg.IsProduction())

	gate := cfg.Exchanges["gate"]
	assert.True(t, gate.Enabled)
	assert.Equal(t, "swap", gate.MarketType)
	assert.Equal(t, 15*time.Second, gate.Timeout)
	assert.Equal(t, "isolated", gate.MarginMode)

	kraken := cfg.Exchanges["kraken"]
	assert.Equal(t, "https://futures.kraken.example", kraken.FuturesBaseURL)

	assert.False(t, cfg.Exchanges["bitfinex"].Enabled)

	require.NotNil(t, cfg.Execution)
	assert.Equal(t, 7500*time.Millisecond, cfg.Execution.MaxWait())
	assert.Equal(t, 250*time.Millisecond, cfg.Execution.PollInterval())
	assert.True(t, cfg.Execution.ReturnOnPartial)
}

func TestLoad_MissingFile(t *testing.T) {
	t.Parallel()

	_, err := config.Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestLoad_InvalidYAML(t *testing.T) {
	t.Parallel()

	_, err := config.Load(createTempConfig(t, "app: [unclosed"))
	assert.Error(t, err)
}

func TestValidate_Failures(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		content string
		wantErr string
	}{
		{
			name: "missing app name",
			content: `
app:
  env: development
exchanges:
  gate:
    enabled: true
`,
			wantErr: "app.name is required",
		},
		{
			name: "no enabled exchange",
			content: `
app:
  name: tradebridge
exchanges:
  gate:
    enabled: false
`,
			wantErr: "at least one exchange must be enabled",
		},
		{
			name: "unknown market type",
			content: `
app:
  name: tradebridge
exchanges:
  gate:
    enabled: true
    market_type: margin
`,
			wantErr: "unknown market_type",
		},
		{
			name: "negative max wait",
			content: `
app:
  name: tradebridge
exchanges:
  gate:
    enabled: true
execution:
  max_wait_sec: -1
`,
			wantErr: "max_wait_sec",
		},
		{
			name: "negative poll interval",
			content: `
app:
  name: tradebridge
exchanges:
  gate:
    enabled: true
execution:
  poll_interval_ms: -5
`,
			wantErr: "poll_interval_ms",
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			_, err := config.Load(createTempConfig(t, tt.content))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestValidate_MarketTypeAliasesAccepted(t *testing.T) {
	t.Parallel()

	for _, alias := range []string{"spot", "swap", "futures", "future", "perp", "perpetual"} {
		alias := alias
		t.Run(alias, func(t *testing.T) {
			t.Parallel()

			content := `
app:
  name: tradebridge
exchanges:
  gate:
    enabled: true
    market_type: ` + alias + `
`
			_, err := config.Load(createTempConfig(t, content))
			assert.NoError(t, err)
		})
	}
}
