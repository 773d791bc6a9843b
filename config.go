package main

import (
	"os"
	"time"

	"github.com/cockroachdb/errors"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Server struct {
		Addr string `yaml:"addr"`
	} `yaml:"server"`

	Logging struct {
		File  string `yaml:"file"`
		Level string `yaml:"level"`
	} `yaml:"logging"`

	Dataset struct {
		Dir             string `yaml:"dir"`
		RefreshInterval string `yaml:"refresh_interval"`
		Watch           bool   `yaml:"watch"`
	} `yaml:"dataset"`

	Cache struct {
		Path string `yaml:"path"`
	} `yaml:"cache"`

	Chart layoutConfig `yaml:"chart"`

	Upstream struct {
		BaseURL string `yaml:"base_url"`
		Timeout string `yaml:"timeout"`
	} `yaml:"upstream"`

	MySQL mysqlConfig `yaml:"mysql"`
}

type layoutConfig struct {
	Width  int `yaml:"width"`
	Height int `yaml:"height"`
	Margin struct {
		Top    int `yaml:"top"`
		Right  int `yaml:"right"`
		Bottom int `yaml:"bottom"`
		Left   int `yaml:"left"`
	} `yaml:"margin"`
}

var errNonPositiveInterval = errors.New("interval must be positive")

const (
	defaultAddr            = ":5000"
	defaultRefreshInterval = 2 * time.Hour
	defaultUpstreamTimeout = 30 * time.Second
)

func defaultConfig() Config {
	var cfg Config
	cfg.Server.Addr = defaultAddr
	cfg.Logging.Level = "info"
	cfg.Dataset.Dir = "data"
	cfg.Dataset.Watch = true
	cfg.Chart.Width = 1100
	cfg.Chart.Height = 600
	cfg.Chart.Margin.Top = 100
	cfg.Chart.Margin.Right = 200
	cfg.Chart.Margin.Bottom = 25
	cfg.Chart.Margin.Left = 100
	return cfg
}

// loadConfig reads path on top of the defaults. A missing file is not an error.
func loadConfig(path string) (Config, error) {
	cfg := defaultConfig()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, errors.Wrapf(err, "read config %s", path)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, errors.Wrapf(err, "parse config %s", path)
	}
	if cfg.Server.Addr == "" {
		cfg.Server.Addr = defaultAddr
	}
	return cfg, nil
}

func (c Config) refreshInterval() (time.Duration, error) {
	d, err := parseDurationOr(c.Dataset.RefreshInterval, defaultRefreshInterval)
	if err != nil {
		return 0, err
	}
	if d <= 0 {
		return 0, errors.Wrapf(errNonPositiveInterval, "dataset.refresh_interval %q", c.Dataset.RefreshInterval)
	}
	return d, nil
}

func (c Config) upstreamTimeout() (time.Duration, error) {
	return parseDurationOr(c.Upstream.Timeout, defaultUpstreamTimeout)
}

func parseDurationOr(raw string, def time.Duration) (time.Duration, error) {
	if raw == "" {
		return def, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, errors.Wrapf(err, "invalid duration %q", raw)
	}
	return d, nil
}

func (l layoutConfig) layout() Layout {
	return Layout{
		Width:  l.Width,
		Height: l.Height,
		Margin: Margin{
			Top:    l.Margin.Top,
			Right:  l.Margin.Right,
			Bottom: l.Margin.Bottom,
			Left:   l.Margin.Left,
		},
	}
}
