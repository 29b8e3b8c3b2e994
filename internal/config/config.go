// Package config provides a reusable loader for the bot's configuration
// file and environment variable overrides. It mirrors the shape of the
// recognized configuration keys the worker consumes.
package config

import (
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/swccgarena/gemp-bot/internal/util"
)

// Config is the unified configuration for a single worker instance.
type Config struct {
	Server struct {
		URL string `mapstructure:"server_url"`
	} `mapstructure:"server"`

	Credentials struct {
		Username string `mapstructure:"username"`
		Password string `mapstructure:"password"`
	} `mapstructure:"credentials"`

	Timing struct {
		PollIntervalSeconds     int `mapstructure:"poll_interval_seconds"`
		RequestTimeoutSeconds   int `mapstructure:"request_timeout_seconds"`
		GameStateTimeoutSeconds int `mapstructure:"game_state_timeout_seconds"`
	} `mapstructure:"timing"`

	CardData struct {
		JSONDir string `mapstructure:"card_json_dir"`
	} `mapstructure:"card_data"`

	Evaluator struct {
		DeployThreshold          float64 `mapstructure:"deploy_threshold"`
		MaxHandSize              int     `mapstructure:"max_hand_size"`
		HandSoftCap              int     `mapstructure:"hand_soft_cap"`
		ForceGenTarget           int     `mapstructure:"force_gen_target"`
		BattleFavorableThreshold int     `mapstructure:"battle_favorable_threshold"`
		BattleDangerThreshold    int     `mapstructure:"battle_danger_threshold"`
	} `mapstructure:"evaluator"`

	Brain struct {
		Name string `mapstructure:"brain_name"`
	} `mapstructure:"brain"`
}

// Defaults returns the baseline configuration applied before any file or
// environment override is layered on top.
func Defaults() Config {
	var c Config
	c.Timing.PollIntervalSeconds = 3
	c.Timing.RequestTimeoutSeconds = 10
	c.Timing.GameStateTimeoutSeconds = 15
	c.Brain.Name = "Static"
	return c
}

// Load reads the configuration file at path (if non-empty) and merges
// environment variable overrides on top, prefixed GEMPBOT_ and with "."
// replaced by "_" (e.g. GEMPBOT_SERVER_SERVER_URL for server.server_url).
// Environment variables override only keys that the config file sets.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvPrefix("GEMPBOT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, util.Wrap(err, "load config")
		}
	}

	if err := v.Unmarshal(&cfg); err != nil {
		return nil, util.Wrap(err, "unmarshal config")
	}

	if err := validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func validate(c *Config) error {
	if c.Server.URL == "" {
		return util.Wrap(errRequired("server_url"), "validate config")
	}
	if c.Credentials.Username == "" || c.Credentials.Password == "" {
		return util.Wrap(errRequired("username/password"), "validate config")
	}
	if c.CardData.JSONDir == "" {
		return util.Wrap(errRequired("card_json_dir"), "validate config")
	}
	return nil
}

// PollInterval returns the configured hall-polling interval as a Duration.
func (c Config) PollInterval() time.Duration {
	return time.Duration(c.Timing.PollIntervalSeconds) * time.Second
}

// RequestTimeout returns the configured non-long-poll request timeout.
func (c Config) RequestTimeout() time.Duration {
	return time.Duration(c.Timing.RequestTimeoutSeconds) * time.Second
}

// GameStateTimeout returns the configured long-poll read timeout.
func (c Config) GameStateTimeout() time.Duration {
	return time.Duration(c.Timing.GameStateTimeoutSeconds) * time.Second
}

type missingFieldError string

func (e missingFieldError) Error() string { return "missing required config field: " + string(e) }

func errRequired(field string) error { return missingFieldError(field) }
