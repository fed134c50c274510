package config

import (
	"log"
	"os"

	"gopkg.in/yaml.v3"
)

const (
	configPathEnv   = "POSITIVE_NEWS_CONFIG"
	databasePathEnv = "DATABASE_PATH"
	claudeAPIKeyEnv = "ANTHROPIC_API_KEY"
	unsplashKeyEnv  = "UNSPLASH_ACCESS_KEY"
)

// Config holds bootstrap settings required across the application.
// Runtime-tunable values (scrape interval, minimum score, maximum
// articles per run) live in the settings table instead; Pipeline only
// carries their first-run defaults.
type Config struct {
	Database DatabaseConfig `yaml:"database"`
	Logging  LoggingConfig  `yaml:"logging"`
	Claude   ClaudeConfig   `yaml:"claude"`
	Unsplash UnsplashConfig `yaml:"unsplash"`
	Pipeline PipelineConfig `yaml:"pipeline"`
	Seeds    SeedConfig     `yaml:"seeds"`
}

// DatabaseConfig describes the SQLite file location.
type DatabaseConfig struct {
	Path string `yaml:"path"`
}

// LoggingConfig selects handler level and format.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// ClaudeConfig defines how to contact the Anthropic messages API.
type ClaudeConfig struct {
	Endpoint   string `yaml:"endpoint"`
	APIKey     string `yaml:"apiKey"`
	JudgeModel string `yaml:"judgeModel"`
	WriteModel string `yaml:"writeModel"`
	// Language is the target output language for generated articles,
	// applied regardless of the source language.
	Language string `yaml:"language"`
}

// UnsplashConfig wires the image search service.
type UnsplashConfig struct {
	Endpoint  string `yaml:"endpoint"`
	AccessKey string `yaml:"accessKey"`
}

// PipelineConfig carries curation constants and first-run defaults
// for the durable settings.
type PipelineConfig struct {
	OracleBudget         int     `yaml:"oracleBudget"`
	DefaultIntervalHours float64 `yaml:"defaultIntervalHours"`
	DefaultMinScore      float64 `yaml:"defaultMinScore"`
	DefaultMaxArticles   int     `yaml:"defaultMaxArticles"`
	ArchiveAfterDays     int     `yaml:"archiveAfterDays"`
}

// SeedConfig lists sources and keywords inserted on first run against
// an empty database.
type SeedConfig struct {
	Sources  []SourceSeed  `yaml:"sources"`
	Keywords []KeywordSeed `yaml:"keywords"`
}

// SourceSeed describes one default feed endpoint.
type SourceSeed struct {
	Name     string `yaml:"name"`
	URL      string `yaml:"url"`
	Language string `yaml:"language"`
}

// KeywordSeed describes one default ledger entry.
type KeywordSeed struct {
	Word   string  `yaml:"word"`
	Weight float64 `yaml:"weight"`
	Type   string  `yaml:"type"`
}

// Load reads YAML configuration (if present) and applies environment
// overrides.
func Load() Config {
	cfg := defaultConfig()

	if path := os.Getenv(configPathEnv); path != "" {
		if raw, err := os.ReadFile(path); err != nil {
			log.Printf("config: cannot read %s: %v (falling back to defaults)", path, err)
		} else {
			var fileCfg Config
			if err := yaml.Unmarshal(raw, &fileCfg); err != nil {
				log.Printf("config: cannot parse %s: %v (falling back to defaults)", path, err)
			} else {
				cfg = mergeConfig(cfg, fileCfg)
			}
		}
	}

	cfg.applyEnvOverrides()
	return cfg
}

func (c *Config) applyEnvOverrides() {
	if v := os.Getenv(databasePathEnv); v != "" {
		c.Database.Path = v
	}
	if v := os.Getenv(claudeAPIKeyEnv); v != "" {
		c.Claude.APIKey = v
	}
	if v := os.Getenv(unsplashKeyEnv); v != "" {
		c.Unsplash.AccessKey = v
	}
}

func mergeConfig(base, override Config) Config {
	if override.Database.Path != "" {
		base.Database = override.Database
	}

	if override.Logging.Level != "" {
		base.Logging.Level = override.Logging.Level
	}
	if override.Logging.Format != "" {
		base.Logging.Format = override.Logging.Format
	}

	if override.Claude.Endpoint != "" {
		base.Claude.Endpoint = override.Claude.Endpoint
	}
	if override.Claude.APIKey != "" {
		base.Claude.APIKey = override.Claude.APIKey
	}
	if override.Claude.JudgeModel != "" {
		base.Claude.JudgeModel = override.Claude.JudgeModel
	}
	if override.Claude.WriteModel != "" {
		base.Claude.WriteModel = override.Claude.WriteModel
	}
	if override.Claude.Language != "" {
		base.Claude.Language = override.Claude.Language
	}

	if override.Unsplash.Endpoint != "" {
		base.Unsplash.Endpoint = override.Unsplash.Endpoint
	}
	if override.Unsplash.AccessKey != "" {
		base.Unsplash.AccessKey = override.Unsplash.AccessKey
	}

	if override.Pipeline.OracleBudget > 0 {
		base.Pipeline.OracleBudget = override.Pipeline.OracleBudget
	}
	if override.Pipeline.DefaultIntervalHours > 0 {
		base.Pipeline.DefaultIntervalHours = override.Pipeline.DefaultIntervalHours
	}
	if override.Pipeline.DefaultMinScore > 0 {
		base.Pipeline.DefaultMinScore = override.Pipeline.DefaultMinScore
	}
	if override.Pipeline.DefaultMaxArticles > 0 {
		base.Pipeline.DefaultMaxArticles = override.Pipeline.DefaultMaxArticles
	}
	if override.Pipeline.ArchiveAfterDays > 0 {
		base.Pipeline.ArchiveAfterDays = override.Pipeline.ArchiveAfterDays
	}

	if len(override.Seeds.Sources) > 0 {
		base.Seeds.Sources = override.Seeds.Sources
	}
	if len(override.Seeds.Keywords) > 0 {
		base.Seeds.Keywords = override.Seeds.Keywords
	}

	return base
}

func defaultConfig() Config {
	return Config{
		Database: DatabaseConfig{Path: "data/positive_news.db"},
		Logging:  LoggingConfig{Level: "info", Format: "text"},
		Claude: ClaudeConfig{
			Endpoint:   "https://api.anthropic.com/v1/messages",
			JudgeModel: "claude-haiku-4-5",
			WriteModel: "claude-sonnet-4-6",
			Language:   "en",
		},
		Unsplash: UnsplashConfig{Endpoint: "https://api.unsplash.com"},
		Pipeline: PipelineConfig{
			OracleBudget:         25,
			DefaultIntervalHours: 2.0,
			DefaultMinScore:      6.0,
			DefaultMaxArticles:   6,
			ArchiveAfterDays:     10,
		},
		Seeds: SeedConfig{
			Sources: []SourceSeed{
				{Name: "BBC News", URL: "http://feeds.bbci.co.uk/news/rss.xml", Language: "en"},
				{Name: "Good News Network", URL: "https://www.goodnewsnetwork.org/feed/", Language: "en"},
				{Name: "Reuters", URL: "https://feeds.reuters.com/reuters/topNews", Language: "en"},
			},
			Keywords: []KeywordSeed{
				{Word: "success", Weight: 1.5, Type: "positive"},
				{Word: "hope", Weight: 1.2, Type: "positive"},
				{Word: "joy", Weight: 1.5, Type: "positive"},
				{Word: "breakthrough", Weight: 1.3, Type: "positive"},
				{Word: "inspire", Weight: 1.2, Type: "positive"},
				{Word: "rescue", Weight: 1.2, Type: "positive"},
				{Word: "record", Weight: 0.8, Type: "positive"},
				{Word: "recovery", Weight: 0.8, Type: "positive"},
				{Word: "war", Weight: -2.0, Type: "negative"},
				{Word: "disaster", Weight: -2.0, Type: "negative"},
				{Word: "crisis", Weight: -1.5, Type: "negative"},
				{Word: "attack", Weight: -1.8, Type: "negative"},
				{Word: "death", Weight: -2.0, Type: "negative"},
				{Word: "tragedy", Weight: -2.0, Type: "negative"},
			},
		},
	}
}
