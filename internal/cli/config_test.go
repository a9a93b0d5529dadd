package cli

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/maplibre/maplibre-native-go/pkg/errors"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadConfig(t *testing.T) {
	path := writeConfig(t, `
style = "styles/basic.json"

[server]
addr = ":9000"
max_age = 600
tile_ttl = "24h"

[renderer]
backend = "debug"
width = 256
height = 256
pixel_ratio = 2.0

[pool]
workers = 8

[cache]
backend = "redis"
redis_url = "redis://cache:6379"
ttl = "90s"
key_prefix = "mln"
`)

	cfg, err := loadConfig(path)
	if err != nil {
		t.Fatalf("loadConfig() error: %v", err)
	}

	if cfg.Style != "styles/basic.json" {
		t.Errorf("Style = %q", cfg.Style)
	}
	if cfg.Server.Addr != ":9000" {
		t.Errorf("Server.Addr = %q", cfg.Server.Addr)
	}
	if cfg.Server.MaxAge != 600 {
		t.Errorf("Server.MaxAge = %d", cfg.Server.MaxAge)
	}
	if cfg.Server.TileTTL.Duration != 24*time.Hour {
		t.Errorf("Server.TileTTL = %v", cfg.Server.TileTTL.Duration)
	}
	if cfg.Renderer.Backend != "debug" || cfg.Renderer.Width != 256 {
		t.Errorf("renderer section = %+v", cfg.Renderer)
	}
	if cfg.Renderer.PixelRatio != 2.0 {
		t.Errorf("Renderer.PixelRatio = %v", cfg.Renderer.PixelRatio)
	}
	if cfg.Pool.Workers != 8 {
		t.Errorf("Pool.Workers = %d", cfg.Pool.Workers)
	}
	if cfg.Cache.Backend != "redis" || cfg.Cache.RedisURL != "redis://cache:6379" {
		t.Errorf("cache section = %+v", cfg.Cache)
	}
	if cfg.Cache.TTL.Duration != 90*time.Second {
		t.Errorf("Cache.TTL = %v", cfg.Cache.TTL.Duration)
	}
}

func TestLoadConfigEmptyPath(t *testing.T) {
	cfg, err := loadConfig("")
	if err != nil {
		t.Fatalf("loadConfig(\"\") error: %v", err)
	}
	if cfg.Style != "" || cfg.Pool.Workers != 0 {
		t.Errorf("empty path should produce a zero config, got %+v", cfg)
	}
}

func TestLoadConfigMissingFile(t *testing.T) {
	_, err := loadConfig(filepath.Join(t.TempDir(), "nope.toml"))
	if !errors.Is(err, errors.ErrCodeConfig) {
		t.Errorf("missing file should be CONFIG_ERROR, got %v", err)
	}
}

func TestLoadConfigBadTOML(t *testing.T) {
	path := writeConfig(t, "style = [broken\n")
	_, err := loadConfig(path)
	if !errors.Is(err, errors.ErrCodeConfig) {
		t.Errorf("parse failure should be CONFIG_ERROR, got %v", err)
	}
}

func TestLoadConfigBadDuration(t *testing.T) {
	path := writeConfig(t, "[cache]\nttl = \"soon\"\n")
	_, err := loadConfig(path)
	if !errors.Is(err, errors.ErrCodeConfig) {
		t.Errorf("bad duration should be CONFIG_ERROR, got %v", err)
	}
}

func TestLoadConfigEnvOverridesFile(t *testing.T) {
	path := writeConfig(t, `
style = "from-file.json"

[renderer]
api_key = "file-key"
`)
	t.Setenv("MLN_STYLE", "from-env.json")
	t.Setenv("MLN_API_KEY", "env-key")
	t.Setenv("MLN_CACHE_DIR", "/tmp/env-cache")

	cfg, err := loadConfig(path)
	if err != nil {
		t.Fatalf("loadConfig() error: %v", err)
	}

	if cfg.Style != "from-env.json" {
		t.Errorf("Style = %q, env should outrank the file", cfg.Style)
	}
	if cfg.Renderer.APIKey != "env-key" {
		t.Errorf("APIKey = %q, env should outrank the file", cfg.Renderer.APIKey)
	}
	if cfg.Cache.Dir != "/tmp/env-cache" {
		t.Errorf("Cache.Dir = %q", cfg.Cache.Dir)
	}
}

func TestRendererOptionsMapping(t *testing.T) {
	cfg := &config{}
	cfg.Renderer.Backend = "debug"
	cfg.Renderer.Width = 1024
	cfg.Renderer.AssetRoot = "/assets"

	opts := cfg.rendererOptions()
	if opts.Backend != "debug" || opts.Width != 1024 || opts.AssetRoot != "/assets" {
		t.Errorf("rendererOptions() = %+v", opts)
	}
}

func TestCacheConfigMapping(t *testing.T) {
	cfg := &config{}
	cfg.Cache.Backend = "mongo"
	cfg.Cache.MongoURI = "mongodb://db:27017"
	cfg.Cache.TTL.Duration = time.Hour

	cc := cfg.cacheConfig()
	if cc.Backend != "mongo" || cc.MongoURI != "mongodb://db:27017" || cc.TTL != time.Hour {
		t.Errorf("cacheConfig() = %+v", cc)
	}
}
