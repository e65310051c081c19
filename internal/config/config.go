// Package config loads the service configuration from a YAML file with
// environment-variable overrides for deployment wiring.
package config

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Config is the service configuration.
type Config struct {
	Server struct {
		HTTPAddr string `yaml:"http_addr"`
		GRPCAddr string `yaml:"grpc_addr"`
	} `yaml:"server"`

	NATS struct {
		URL string `yaml:"url"`
	} `yaml:"nats"`

	Postgres struct {
		// Empty DSN selects the in-memory store.
		DSN           string `yaml:"dsn"`
		MigrationsDir string `yaml:"migrations_dir"`
	} `yaml:"postgres"`

	Ingest struct {
		CommandBuffer int `yaml:"command_buffer"`
		PublishBuffer int `yaml:"publish_buffer"`
	} `yaml:"ingest"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	c := &Config{}
	c.Server.HTTPAddr = ":8080"
	c.Server.GRPCAddr = ":9090"
	c.NATS.URL = "nats://127.0.0.1:4222"
	c.Postgres.MigrationsDir = "migrations"
	c.Ingest.CommandBuffer = 1024
	c.Ingest.PublishBuffer = 1024
	return c
}

// Load reads path (when non-empty), expands ${VAR} references, applies env
// overrides, and fills defaults.
func Load(path string) (*Config, error) {
	c := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
		expanded := os.Expand(string(data), func(key string) string {
			if v := os.Getenv(key); v != "" {
				return v
			}
			return "${" + key + "}"
		})
		if err := yaml.Unmarshal([]byte(expanded), c); err != nil {
			return nil, fmt.Errorf("parse config yaml: %w", err)
		}
	}

	c.applyEnv()
	c.fillDefaults()
	return c, nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv("SYNTH_HTTP_ADDR"); v != "" {
		c.Server.HTTPAddr = v
	}
	if v := os.Getenv("SYNTH_GRPC_ADDR"); v != "" {
		c.Server.GRPCAddr = v
	}
	if v := os.Getenv("SYNTH_NATS_URL"); v != "" {
		c.NATS.URL = v
	}
	if v := os.Getenv("SYNTH_POSTGRES_DSN"); v != "" {
		c.Postgres.DSN = v
	}
	if v := os.Getenv("SYNTH_MIGRATIONS_DIR"); v != "" {
		c.Postgres.MigrationsDir = v
	}
	if v := os.Getenv("SYNTH_COMMAND_BUFFER"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			c.Ingest.CommandBuffer = n
		}
	}
	if v := os.Getenv("SYNTH_PUBLISH_BUFFER"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			c.Ingest.PublishBuffer = n
		}
	}
}

func (c *Config) fillDefaults() {
	d := Default()
	if c.Server.HTTPAddr == "" {
		c.Server.HTTPAddr = d.Server.HTTPAddr
	}
	if c.Server.GRPCAddr == "" {
		c.Server.GRPCAddr = d.Server.GRPCAddr
	}
	if c.NATS.URL == "" {
		c.NATS.URL = d.NATS.URL
	}
	if c.Postgres.MigrationsDir == "" {
		c.Postgres.MigrationsDir = d.Postgres.MigrationsDir
	}
	if c.Ingest.CommandBuffer <= 0 {
		c.Ingest.CommandBuffer = d.Ingest.CommandBuffer
	}
	if c.Ingest.PublishBuffer <= 0 {
		c.Ingest.PublishBuffer = d.Ingest.PublishBuffer
	}
}
