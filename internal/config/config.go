// Package config loads runtime configuration from a YAML file and the
// environment, with sane defaults for every knob.
package config

import (
	"fmt"
	"log"
	"time"

	"github.com/spf13/viper"
)

type ServerConfig struct {
	Addr string `mapstructure:"addr"`
}

type InfluxConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	URL     string `mapstructure:"url"`
	Token   string `mapstructure:"token"`
	Org     string `mapstructure:"org"`
	Bucket  string `mapstructure:"bucket"`
}

type SamplingConfig struct {
	CheckInterval  time.Duration `mapstructure:"check_interval"`
	SampleInterval time.Duration `mapstructure:"sample_interval"`
	MaxStale       time.Duration `mapstructure:"max_stale"`
}

type AirQualityConfig struct {
	BurnIn     time.Duration `mapstructure:"burn_in"`
	WindowSize int           `mapstructure:"window_size"`
	MinSamples int           `mapstructure:"min_samples"`
	CachePath  string        `mapstructure:"cache_path"`
	CacheTTL   time.Duration `mapstructure:"cache_ttl"`
	ReadOnly   bool          `mapstructure:"read_only"`
}

type MagnetConfig struct {
	WindowSize   int     `mapstructure:"window_size"`
	MinSamples   int     `mapstructure:"min_samples"`
	TriggerSigma float64 `mapstructure:"trigger_sigma"`
	ReleaseSigma float64 `mapstructure:"release_sigma"`
}

type SensorsConfig struct {
	Enabled  []string `mapstructure:"enabled"`
	I2CBus   string   `mapstructure:"i2c_bus"`
	DHT22Pin string   `mapstructure:"dht22_pin"`
}

type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Influx     InfluxConfig     `mapstructure:"influx"`
	Sampling   SamplingConfig   `mapstructure:"sampling"`
	AirQuality AirQualityConfig `mapstructure:"air_quality"`
	Magnet     MagnetConfig     `mapstructure:"magnet"`
	Sensors    SensorsConfig    `mapstructure:"sensors"`
}

// Load reads config.yaml from path (a directory), overlays matching
// environment variables and validates the result. A missing file is
// not an error; defaults apply.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(path)
	v.AutomaticEnv()
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("read config: %w", err)
		}
		log.Printf("config: no config file in %s, using defaults", path)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.addr", ":8080")
	v.SetDefault("influx.enabled", false)
	v.SetDefault("influx.url", "http://localhost:8086")
	v.SetDefault("sampling.check_interval", "5s")
	v.SetDefault("sampling.sample_interval", "1s")
	v.SetDefault("sampling.max_stale", "30s")
	v.SetDefault("air_quality.burn_in", "300s")
	v.SetDefault("air_quality.window_size", 50)
	v.SetDefault("air_quality.min_samples", 2)
	v.SetDefault("air_quality.cache_path", "baseline_cache.json")
	v.SetDefault("air_quality.cache_ttl", "1h")
	v.SetDefault("air_quality.read_only", false)
	v.SetDefault("magnet.window_size", 50)
	v.SetDefault("magnet.min_samples", 5)
	v.SetDefault("magnet.trigger_sigma", 5.0)
	v.SetDefault("magnet.release_sigma", 3.0)
	v.SetDefault("sensors.enabled", []string{
		"tmp117", "veml7700", "mmc5983", "sths34pf80", "max17048", "sysinfo", "virtual",
	})
	v.SetDefault("sensors.i2c_bus", "")
	v.SetDefault("sensors.dht22_pin", "GPIO4")
}

func (c *Config) validate() error {
	if c.Magnet.ReleaseSigma >= c.Magnet.TriggerSigma {
		return fmt.Errorf("config: magnet release_sigma %.2f must be below trigger_sigma %.2f",
			c.Magnet.ReleaseSigma, c.Magnet.TriggerSigma)
	}
	if c.Sampling.SampleInterval <= 0 || c.Sampling.CheckInterval <= 0 {
		return fmt.Errorf("config: sampling intervals must be positive")
	}
	return nil
}
