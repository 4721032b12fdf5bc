// Package config loads runtime settings for the game client and the
// relay daemon. Precedence: environment variables over the optional YAML
// file over built-in defaults; command-line flags are applied on top by
// the binaries themselves.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/Matthew-Oliver97/StronglyTyped/internal/relay"
)

// Transport selects how the client reaches the relay.
const (
	TransportNATS = "nats"
	TransportWS   = "ws"
)

type Config struct {
	Transport string `yaml:"transport"`
	RelayURL  string `yaml:"relay_url"`    // NATS server
	WSURL     string `yaml:"ws_relay_url"` // self-hosted relayd

	PublishInterval time.Duration `yaml:"publish_interval"`
	HandshakeWait   time.Duration `yaml:"handshake_wait"`

	LogFile         string `yaml:"log_file"` // empty disables logging
	LeaderboardFile string `yaml:"leaderboard_file"`

	Relayd struct {
		Addr string `yaml:"addr"`
	} `yaml:"relayd"`
}

func Default() Config {
	var c Config
	c.Transport = TransportNATS
	c.RelayURL = relay.DefaultNATSURL
	c.WSURL = "ws://localhost:8083/ws"
	c.PublishInterval = 200 * time.Millisecond
	c.HandshakeWait = 60 * time.Second
	c.LogFile = "stronglytyped.log"
	c.LeaderboardFile = "leaderboard.json"
	c.Relayd.Addr = ":8083"
	return c
}

// Load builds the effective config. path may be empty; a named file that
// is missing is an error, since the user asked for it.
func Load(path string) (Config, error) {
	c := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &c); err != nil {
			return Config{}, fmt.Errorf("parse config file: %w", err)
		}
	}

	c.Transport = getEnv("RELAY_TRANSPORT", c.Transport)
	c.RelayURL = getEnv("NATS_URL", c.RelayURL)
	c.WSURL = getEnv("WS_RELAY_URL", c.WSURL)
	c.PublishInterval = getEnvAsDuration("PUBLISH_INTERVAL", c.PublishInterval)
	c.HandshakeWait = getEnvAsDuration("HANDSHAKE_WAIT", c.HandshakeWait)
	if v, ok := os.LookupEnv("LOG_FILE"); ok {
		c.LogFile = v
	}
	c.LeaderboardFile = getEnv("LEADERBOARD_FILE", c.LeaderboardFile)
	c.Relayd.Addr = getEnv("RELAYD_ADDR", c.Relayd.Addr)

	if err := c.Validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

func (c Config) Validate() error {
	if c.Transport != TransportNATS && c.Transport != TransportWS {
		return fmt.Errorf("unknown transport %q (want %q or %q)", c.Transport, TransportNATS, TransportWS)
	}
	if c.Transport == TransportNATS && c.RelayURL == "" {
		return fmt.Errorf("relay_url is empty")
	}
	if c.Transport == TransportWS && c.WSURL == "" {
		return fmt.Errorf("ws_relay_url is empty")
	}
	if c.PublishInterval < 50*time.Millisecond {
		return fmt.Errorf("publish_interval %v too aggressive for a public relay", c.PublishInterval)
	}
	if c.HandshakeWait < time.Second {
		return fmt.Errorf("handshake_wait %v too short", c.HandshakeWait)
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
