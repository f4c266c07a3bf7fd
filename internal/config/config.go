package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"
)

type ServerConfig struct {
	Port string `toml:"port"`
	Env  string `toml:"env"`
}

type PostgresConfig struct {
	URL string `toml:"url"`
}

type Neo4jConfig struct {
	URI      string `toml:"uri"`
	User     string `toml:"user"`
	Password string `toml:"password"`
	// TimeoutSeconds bounds every graph store call.
	TimeoutSeconds int `toml:"timeout_seconds"`
}

// ScoringConfig carries the confidence scoring constants so the policy can
// change without touching extraction code.
type ScoringConfig struct {
	Base            float64 `toml:"base"`
	DetailBonus     float64 `toml:"detail_bonus"`
	DetailBonusCap  float64 `toml:"detail_bonus_cap"`
	LongNameBonus   float64 `toml:"long_name_bonus"`
	LongNameMinLen  int     `toml:"long_name_min_len"`
	ReliableBonus   float64 `toml:"reliable_bonus"`
	Max             float64 `toml:"max"`
	AutoCommitFloor float64 `toml:"auto_commit_floor"`
}

type SchedulerConfig struct {
	Enabled        bool   `toml:"enabled"`
	AutoCommitCron string `toml:"auto_commit_cron"`
	MinPendingAge  string `toml:"min_pending_age"`
}

type Config struct {
	Server    ServerConfig    `toml:"server"`
	Postgres  PostgresConfig  `toml:"postgres"`
	Neo4j     Neo4jConfig     `toml:"neo4j"`
	Scoring   ScoringConfig   `toml:"scoring"`
	Scheduler SchedulerConfig `toml:"scheduler"`
}

func Load(path string) (*Config, error) {
	// .env is optional, env vars win over the TOML file either way.
	_ = godotenv.Load()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file '%s': %w", path, err)
	}

	var cfg Config
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse TOML: %w", err)
	}

	cfg.applyEnv()
	cfg.applyDefaults()

	return &cfg, nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv("PORT"); v != "" {
		c.Server.Port = v
	}
	if v := os.Getenv("ENV"); v != "" {
		c.Server.Env = v
	}
	if v := os.Getenv("DATABASE_URL"); v != "" {
		c.Postgres.URL = v
	}
	if v := os.Getenv("NEO4J_URI"); v != "" {
		c.Neo4j.URI = v
	}
	if v := os.Getenv("NEO4J_USER"); v != "" {
		c.Neo4j.User = v
	}
	if v := os.Getenv("NEO4J_PASSWORD"); v != "" {
		c.Neo4j.Password = v
	}
	if v := os.Getenv("NEO4J_TIMEOUT_SECONDS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Neo4j.TimeoutSeconds = n
		}
	}
}

func (c *Config) applyDefaults() {
	if c.Server.Port == "" {
		c.Server.Port = "8080"
	}
	if c.Server.Env == "" {
		c.Server.Env = "development"
	}
	if c.Neo4j.URI == "" {
		c.Neo4j.URI = "bolt://localhost:7687"
	}
	if c.Neo4j.TimeoutSeconds <= 0 {
		c.Neo4j.TimeoutSeconds = 10
	}
	if c.Scoring == (ScoringConfig{}) {
		c.Scoring = DefaultScoring()
	}
	if c.Scheduler.AutoCommitCron == "" {
		c.Scheduler.AutoCommitCron = "@every 5m"
	}
	if c.Scheduler.MinPendingAge == "" {
		c.Scheduler.MinPendingAge = "30m"
	}
}

// DefaultScoring returns the stock confidence policy.
func DefaultScoring() ScoringConfig {
	return ScoringConfig{
		Base:            0.70,
		DetailBonus:     0.05,
		DetailBonusCap:  0.20,
		LongNameBonus:   0.05,
		LongNameMinLen:  10,
		ReliableBonus:   0.05,
		Max:             0.95,
		AutoCommitFloor: 0.85,
	}
}

// IsProduction reports whether the server runs with production settings.
func (c *Config) IsProduction() bool {
	return c.Server.Env == "production"
}

// GraphTimeout returns the bounded timeout applied to graph store calls.
func (c *Config) GraphTimeout() time.Duration {
	return time.Duration(c.Neo4j.TimeoutSeconds) * time.Second
}

// MinPendingAge parses the scheduler age gate, defaulting to 30 minutes.
func (c *Config) MinPendingAge() time.Duration {
	d, err := time.ParseDuration(c.Scheduler.MinPendingAge)
	if err != nil || d <= 0 {
		return 30 * time.Minute
	}
	return d
}
