package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("UPSTREAM_URL", "https://example.com/webhook/analyze")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 30*time.Second, cfg.Upstream.Timeout)
	assert.Equal(t, 1280, cfg.Preprocess.MaxDimension)
	assert.Equal(t, PolicyNetworkFirst, cfg.Cache.Policy)
	assert.Equal(t, "/offline.html", cfg.Cache.OfflinePath)
	assert.Contains(t, cfg.Cache.Manifest, "/index.html")
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("UPSTREAM_URL", "https://example.com/analyze")
	t.Setenv("UPSTREAM_TIMEOUT", "5s")
	t.Setenv("CACHE_POLICY", PolicyCacheFirst)
	t.Setenv("CACHE_MANIFEST", " /a.js, ,/b.css ")
	t.Setenv("PREPROCESS_QUALITY", "0.5")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 5*time.Second, cfg.Upstream.Timeout)
	assert.Equal(t, PolicyCacheFirst, cfg.Cache.Policy)
	assert.Equal(t, []string{"/a.js", "/b.css"}, cfg.Cache.Manifest)
	assert.InDelta(t, 0.5, cfg.Preprocess.Quality, 1e-9)
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			Upstream:   UpstreamConfig{URL: "https://example.com/analyze", Timeout: time.Second},
			Preprocess: PreprocessConfig{MaxDimension: 1280, Quality: 0.8},
			Cache:      CacheConfig{Version: "v1", Origin: "http://localhost:8081", Policy: PolicyCacheFirst},
		}
	}

	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr bool
	}{
		{"valid", func(c *Config) {}, false},
		{"bad policy", func(c *Config) { c.Cache.Policy = "stale-while-revalidate" }, true},
		{"relative origin", func(c *Config) { c.Cache.Origin = "/shell" }, true},
		{"zero timeout", func(c *Config) { c.Upstream.Timeout = 0 }, true},
		{"quality above one", func(c *Config) { c.Preprocess.Quality = 1.5 }, true},
		{"missing version", func(c *Config) { c.Cache.Version = "" }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
