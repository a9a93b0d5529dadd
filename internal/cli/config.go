package cli

import (
	"os"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/maplibre/maplibre-native-go/pkg/cache"
	"github.com/maplibre/maplibre-native-go/pkg/errors"
	"github.com/maplibre/maplibre-native-go/pkg/renderer"
)

// config is the on-disk configuration file schema. Everything in it can
// also be set per invocation; precedence is flags > environment > file >
// built-in defaults.
//
// Example:
//
//	style = "styles/basic.json"
//
//	[server]
//	addr = ":8080"
//	max_age = 3600
//	tile_ttl = "24h"
//
//	[renderer]
//	backend = "debug"
//	width = 512
//	height = 512
//
//	[pool]
//	workers = 4
//
//	[cache]
//	backend = "file"
//	ttl = "24h"
type config struct {
	// Style is the default style path for render, batch, and serve.
	Style string `toml:"style"`

	Server   serverSection   `toml:"server"`
	Renderer rendererSection `toml:"renderer"`
	Pool     poolSection     `toml:"pool"`
	Cache    cacheSection    `toml:"cache"`
}

type serverSection struct {
	Addr    string   `toml:"addr"`
	MaxAge  int      `toml:"max_age"`
	TileTTL duration `toml:"tile_ttl"`
}

type rendererSection struct {
	Backend    string  `toml:"backend"`
	Width      uint32  `toml:"width"`
	Height     uint32  `toml:"height"`
	PixelRatio float64 `toml:"pixel_ratio"`
	AssetRoot  string  `toml:"asset_root"`
	BaseURL    string  `toml:"base_url"`
	CachePath  string  `toml:"cache_path"`
	APIKey     string  `toml:"api_key"`
	Debug      bool    `toml:"debug"`
}

type poolSection struct {
	// Workers is the process-pool size. Zero means render in-process.
	Workers int `toml:"workers"`
}

type cacheSection struct {
	Backend         string   `toml:"backend"`
	Dir             string   `toml:"dir"`
	TTL             duration `toml:"ttl"`
	RedisURL        string   `toml:"redis_url"`
	MongoURI        string   `toml:"mongo_uri"`
	MongoDatabase   string   `toml:"mongo_database"`
	MongoCollection string   `toml:"mongo_collection"`
	KeyPrefix       string   `toml:"key_prefix"`
}

// duration lets TOML carry durations as strings like "90s" or "24h".
type duration struct {
	time.Duration
}

func (d *duration) UnmarshalText(text []byte) error {
	var err error
	d.Duration, err = time.ParseDuration(string(text))
	return err
}

// loadConfig reads and parses the config file at path and overlays the
// MLN_* environment variables. An empty path skips the file but still
// applies the environment.
func loadConfig(path string) (*config, error) {
	cfg := &config{}
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeConfig, err, "read config %s", path)
		}
		if err := toml.Unmarshal(data, cfg); err != nil {
			return nil, errors.Wrap(errors.ErrCodeConfig, err, "parse config %s", path)
		}
	}
	cfg.applyEnv()
	return cfg, nil
}

// applyEnv overlays the MLN_* environment variables, which outrank the file.
func (c *config) applyEnv() {
	if v := os.Getenv("MLN_STYLE"); v != "" {
		c.Style = v
	}
	if v := os.Getenv("MLN_API_KEY"); v != "" {
		c.Renderer.APIKey = v
	}
	if v := os.Getenv("MLN_CACHE_DIR"); v != "" {
		c.Cache.Dir = v
	}
}

// rendererOptions maps the renderer section onto renderer.Options. Unset
// fields stay zero; Options.Normalized fills in the defaults.
func (c *config) rendererOptions() renderer.Options {
	return renderer.Options{
		Backend:    c.Renderer.Backend,
		Width:      c.Renderer.Width,
		Height:     c.Renderer.Height,
		PixelRatio: c.Renderer.PixelRatio,
		AssetRoot:  c.Renderer.AssetRoot,
		BaseURL:    c.Renderer.BaseURL,
		CachePath:  c.Renderer.CachePath,
		APIKey:     c.Renderer.APIKey,
		Debug:      c.Renderer.Debug,
	}
}

// cacheConfig maps the cache section onto cache.Config.
func (c *config) cacheConfig() cache.Config {
	return cache.Config{
		Backend:         c.Cache.Backend,
		Dir:             c.Cache.Dir,
		TTL:             c.Cache.TTL.Duration,
		RedisURL:        c.Cache.RedisURL,
		MongoURI:        c.Cache.MongoURI,
		MongoDatabase:   c.Cache.MongoDatabase,
		MongoCollection: c.Cache.MongoCollection,
		KeyPrefix:       c.Cache.KeyPrefix,
	}
}
