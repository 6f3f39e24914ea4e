package config

import (
	_ "embed"
	"os"
	"strconv"
	"strings"

	"github.com/kozaktomas/attendance/internal/constants"
	"gopkg.in/yaml.v3"
)

//go:embed models.yaml
var modelsYAML []byte

const (
	defaultEmbeddingModel = "dlib"
	defaultMetric         = "euclidean"
	defaultThreshold      = 0.45
)

type Config struct {
	Embedding EmbeddingConfig
	Match     MatchConfig
	Storage   StorageConfig
	Web       WebConfig
	Database  DatabaseConfig
	Roster    RosterConfig
	Models    ModelsConfig
}

type EmbeddingConfig struct {
	URL          string // defaults to http://localhost:8000
	Model        string // key into models.yaml, defaults to dlib
	MaxImageSize int    // longest edge in pixels before upload (default 1920)
}

type MatchConfig struct {
	Threshold float64 // overrides the model threshold when > 0
	Metric    string  // overrides the model metric when set
}

type StorageConfig struct {
	PhotoDir string // reference photo directory (default "uploads")
}

type WebConfig struct {
	Host           string
	Port           int
	APIToken       string   // bearer token, empty disables auth
	AllowedOrigins []string // CORS whitelist, localhost is always allowed
}

type DatabaseConfig struct {
	URL          string // PostgreSQL connection URL
	MaxOpenConns int    // Maximum open connections (default 25)
	MaxIdleConns int    // Maximum idle connections (default 5)
}

type RosterConfig struct {
	DatabaseURL string // MariaDB DSN of the school roster (e.g., roster:roster@tcp(mariadb:3306)/school)
	Table       string // roster table, defaults to "roster"
	PhotoDir    string // base directory of relative roster photo paths
}

type ModelsConfig struct {
	Models map[string]ModelMatching `yaml:"models"`
}

// ModelMatching holds matching defaults for one embedding model.
type ModelMatching struct {
	Metric    string  `yaml:"metric"`
	Threshold float64 `yaml:"threshold"`
	Dim       int     `yaml:"dim"`
}

// envInt reads an environment variable and parses it as a positive integer.
// Returns the default value if the env var is unset, empty, or invalid.
func envInt(key string, defaultVal int) int {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	if n, err := strconv.Atoi(s); err == nil && n > 0 {
		return n
	}
	return defaultVal
}

// envFloat reads an environment variable as a positive float, 0 if unset or invalid.
func envFloat(key string) float64 {
	s := os.Getenv(key)
	if s == "" {
		return 0
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil && f > 0 {
		return f
	}
	return 0
}

// envList reads a comma-separated environment variable, dropping empty items.
func envList(key string) []string {
	var items []string
	for item := range strings.SplitSeq(os.Getenv(key), ",") {
		if item = strings.TrimSpace(item); item != "" {
			items = append(items, item)
		}
	}
	return items
}

func envString(key, defaultVal string) string {
	if s := os.Getenv(key); s != "" {
		return s
	}
	return defaultVal
}

func Load() *Config {
	var models ModelsConfig
	if err := yaml.Unmarshal(modelsYAML, &models); err != nil {
		// Embedded file, this only happens on a broken build
		panic("failed to unmarshal embedded models.yaml: " + err.Error())
	}

	return &Config{
		Embedding: EmbeddingConfig{
			URL:          os.Getenv("EMBEDDING_URL"),
			Model:        envString("EMBEDDING_MODEL", defaultEmbeddingModel),
			MaxImageSize: envInt("MAX_IMAGE_SIZE", constants.MaxImageSize),
		},
		Match: MatchConfig{
			Threshold: envFloat("MATCH_THRESHOLD"),
			Metric:    os.Getenv("MATCH_METRIC"),
		},
		Storage: StorageConfig{
			PhotoDir: envString("PHOTO_DIR", "uploads"),
		},
		Web: WebConfig{
			Host:           envString("WEB_HOST", "0.0.0.0"),
			Port:           envInt("WEB_PORT", 8080),
			APIToken:       os.Getenv("WEB_API_TOKEN"),
			AllowedOrigins: envList("WEB_ALLOWED_ORIGINS"),
		},
		Database: DatabaseConfig{
			URL:          os.Getenv("DATABASE_URL"),
			MaxOpenConns: envInt("DATABASE_MAX_OPEN_CONNS", 25),
			MaxIdleConns: envInt("DATABASE_MAX_IDLE_CONNS", 5),
		},
		Roster: RosterConfig{
			DatabaseURL: os.Getenv("ROSTER_DATABASE_URL"),
			Table:       os.Getenv("ROSTER_TABLE"),
			PhotoDir:    os.Getenv("ROSTER_PHOTO_DIR"),
		},
		Models: models,
	}
}

// GetModelMatching returns matching defaults for a model, with fallback defaults
func (c *Config) GetModelMatching(modelName string) ModelMatching {
	if m, ok := c.Models.Models[modelName]; ok {
		return m
	}
	return ModelMatching{Metric: defaultMetric, Threshold: defaultThreshold}
}

// Matching resolves the effective metric and threshold for the configured model.
// Explicit MATCH_METRIC / MATCH_THRESHOLD values win over the model defaults.
func (c *Config) Matching() ModelMatching {
	m := c.GetModelMatching(c.Embedding.Model)
	if c.Match.Metric != "" {
		m.Metric = c.Match.Metric
	}
	if c.Match.Threshold > 0 {
		m.Threshold = c.Match.Threshold
	}
	if m.Metric == "" {
		m.Metric = defaultMetric
	}
	if m.Threshold <= 0 {
		m.Threshold = defaultThreshold
	}
	return m
}
