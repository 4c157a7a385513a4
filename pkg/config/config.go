package config

import (
	"apodgallery/pkg/consts"
	"apodgallery/pkg/repository"
	"os"

	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Port     string            `yaml:"port"`
	LogLevel string            `yaml:"logLevel"`
	Feed     FeedConfig        `yaml:"feed"`
	Modal    ModalConfig       `yaml:"modal"`
	Database repository.Config `yaml:"database"`
}

type FeedConfig struct {
	URL    string `yaml:"url"`
	Format string `yaml:"format"`
}

type ModalConfig struct {
	AllowStacking bool `yaml:"allowStacking"`
}

// Load reads the yaml file (if any) over defaults, then applies env overrides.
func Load() Config {

	cfg := defaultConfig()

	if path := os.Getenv(consts.ConfigPath); path != "" {
		fileCfg, err := readFile(path)
		if err != nil {
			logrus.Warnf("config: cannot load %s: %s (falling back to defaults)", path, err.Error())
		} else {
			cfg = mergeConfig(cfg, fileCfg)
		}
	}

	cfg.applyEnvOverrides()
	return cfg
}

func readFile(path string) (Config, error) {

	raw, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}

	var c Config
	if err := yaml.Unmarshal(raw, &c); err != nil {
		return Config{}, err
	}

	return c, nil
}

func (c *Config) applyEnvOverrides() {

	set := func(dst *string, env string) {
		if v := os.Getenv(env); v != "" {
			*dst = v
		}
	}

	set(&c.Port, consts.AppPort)
	set(&c.LogLevel, consts.LogLevel)
	set(&c.Feed.URL, consts.FeedURL)
	set(&c.Feed.Format, consts.FeedFormat)
	set(&c.Database.Host, consts.DBHost)
	set(&c.Database.Port, consts.DBPort)
	set(&c.Database.Username, consts.DBUsername)
	set(&c.Database.DBName, consts.DBName)
	set(&c.Database.SSLMode, consts.DBSSLMode)
	set(&c.Database.Password, consts.DBPassword)
}

func mergeConfig(base, override Config) Config {

	if override.Port != "" {
		base.Port = override.Port
	}
	if override.LogLevel != "" {
		base.LogLevel = override.LogLevel
	}

	if override.Feed.URL != "" {
		base.Feed.URL = override.Feed.URL
	}
	if override.Feed.Format != "" {
		base.Feed.Format = override.Feed.Format
	}

	if override.Modal.AllowStacking {
		base.Modal.AllowStacking = true
	}

	if override.Database.Host != "" {
		base.Database = override.Database
	}

	return base
}

func defaultConfig() Config {
	return Config{
		Port:     "8080",
		LogLevel: "info",
		Feed: FeedConfig{
			URL:    consts.DefaultFeedURL,
			Format: "auto",
		},
	}
}
