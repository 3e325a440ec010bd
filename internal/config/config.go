package config

import (
	"fmt"
	"os"
	"time"

	"vocab-battle/internal/domain"
	"vocab-battle/internal/match"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server struct {
		Port string `yaml:"port"`
	} `yaml:"server"`
	Log struct {
		Level string `yaml:"level"`
	} `yaml:"log"`
	Redis struct {
		Addr     string `yaml:"addr"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
		TTL      string `yaml:"ttl"`
	} `yaml:"redis"`
	Postgres struct {
		URL string `yaml:"url"`
	} `yaml:"postgres"`
	Roster struct {
		TTL string `yaml:"ttl"`
	} `yaml:"roster"`
	Match struct {
		QuestionsPerStudent int    `yaml:"questionsPerStudent"`
		MaxTime             string `yaml:"maxTime"`
		BasePoints          *int   `yaml:"basePoints"`
		MaxBonus            *int   `yaml:"maxBonus"`
	} `yaml:"match"`
	Persistence struct {
		MaxRetries      uint64 `yaml:"maxRetries"`
		InitialInterval string `yaml:"initialInterval"`
		MaxInterval     string `yaml:"maxInterval"`
	} `yaml:"persistence"`
}

// Load reads YAML config from path.
func Load(path string) (Config, error) {
	cfg := Config{}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// TTLDuration parses a duration string or returns the fallback if empty.
func TTLDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}
	if d, err := time.ParseDuration(raw); err == nil {
		return d
	}
	return fallback
}

// MatchDefaults is the match configuration used when a start request carries none.
func (c Config) MatchDefaults() domain.MatchConfig {
	out := domain.MatchConfig{
		QuestionsPerStudent: 3,
		MaxTime:             TTLDuration(c.Match.MaxTime, 10*time.Second),
		BasePoints:          100,
		MaxBonus:            100,
	}
	if c.Match.QuestionsPerStudent > 0 {
		out.QuestionsPerStudent = c.Match.QuestionsPerStudent
	}
	if c.Match.BasePoints != nil {
		out.BasePoints = *c.Match.BasePoints
	}
	if c.Match.MaxBonus != nil {
		out.MaxBonus = *c.Match.MaxBonus
	}
	return out
}

// ValidatedMatchDefaults returns MatchDefaults, failing when the configured values
// could never start a match.
func (c Config) ValidatedMatchDefaults() (domain.MatchConfig, error) {
	cfg := c.MatchDefaults()
	if err := match.ValidateConfig(cfg); err != nil {
		return domain.MatchConfig{}, fmt.Errorf("config match defaults: %w", err)
	}
	return cfg, nil
}
