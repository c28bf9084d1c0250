package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, DefaultAppConfig, *cfg)
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("WISHADAY_ADDR", "127.0.0.1:9090")
	t.Setenv("WISHADAY_DATA_DIR", "/var/lib/wishaday")
	t.Setenv("WISHADAY_BASE_URL", "https://wishaday.example.com")
	t.Setenv("WISHADAY_MAX_BODY_BYTES", "128KiB")
	t.Setenv("WISHADAY_GRACE_PERIOD", "2h")
	t.Setenv("WISHADAY_SWEEP_INTERVAL", "0s")
	t.Setenv("WISHADAY_RATE_LIMIT_PER_DAY", "25")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:9090", cfg.Addr)
	assert.Equal(t, "/var/lib/wishaday", cfg.DataDir)
	assert.Equal(t, "https://wishaday.example.com", cfg.BaseURL)
	assert.Equal(t, int64(128<<10), cfg.MaxBodyBytes)
	assert.Equal(t, 2*time.Hour, cfg.GracePeriod)
	assert.Equal(t, time.Duration(0), cfg.SweepInterval)
	assert.Equal(t, 25, cfg.RateLimitPerDay)
	// Untouched keys keep their defaults.
	assert.Equal(t, DefaultAppConfig.MetricsFlushInterval, cfg.MetricsFlushInterval)
}

func TestLoadRejectsBadAddr(t *testing.T) {
	t.Setenv("WISHADAY_ADDR", "localhost:8080")
	_, err := Load()
	require.Error(t, err)
}

func TestLoadRejectsTraversalDataDir(t *testing.T) {
	t.Setenv("WISHADAY_DATA_DIR", "../outside")
	_, err := Load()
	require.Error(t, err)
}

func TestValidIPPort(t *testing.T) {
	tests := []struct {
		addr string
		want bool
	}{
		{":8080", true},
		{"0.0.0.0:80", true},
		{"127.0.0.1:65535", true},
		{"[::1]:8080", true},
		{"localhost:8080", false},
		{"127.0.0.1:0", false},
		{"127.0.0.1:70000", false},
		{"127.0.0.1", false},
		{"8080", false},
		{"", false},
	}
	for _, tt := range tests {
		cfg := DefaultAppConfig
		cfg.Addr = tt.addr
		err := Validate(&cfg)
		if tt.want {
			assert.NoError(t, err, "addr %q", tt.addr)
		} else {
			assert.Error(t, err, "addr %q", tt.addr)
		}
	}
}

func TestValidSafePath(t *testing.T) {
	tests := []struct {
		path string
		want bool
	}{
		{"data", true},
		{"./data", true},
		{"/var/lib/wishaday", true},
		{"nested/dir", true},
		{".", false},
		{"/", false},
		{"//", false},
		{"../data", false},
		{"data/..", false},
		{"data/../../etc", false},
		{"", false},
	}
	for _, tt := range tests {
		cfg := DefaultAppConfig
		cfg.DataDir = tt.path
		err := Validate(&cfg)
		if tt.want {
			assert.NoError(t, err, "path %q", tt.path)
		} else {
			assert.Error(t, err, "path %q", tt.path)
		}
	}
}

func TestParseByteSize(t *testing.T) {
	tests := []struct {
		in      string
		want    int64
		wantErr bool
	}{
		{"4096", 4096, false},
		{"64KiB", 64 << 10, false},
		{"64kb", 64 << 10, false},
		{"1M", 1 << 20, false},
		{"2 MiB", 2 << 20, false},
		{"1G", 1 << 30, false},
		{"", 0, true},
		{"KiB", 0, true},
		{"12XB", 0, true},
	}
	for _, tt := range tests {
		got, err := ParseByteSize(tt.in)
		if tt.wantErr {
			assert.Error(t, err, "input %q", tt.in)
			continue
		}
		require.NoError(t, err, "input %q", tt.in)
		assert.Equal(t, tt.want, got, "input %q", tt.in)
	}
}
