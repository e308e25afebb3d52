package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Duration is a time.Duration that unmarshals from YAML strings like
// "250ms" or "12s".
type Duration time.Duration

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	*d = Duration(parsed)
	return nil
}

func (d Duration) Std() time.Duration { return time.Duration(d) }

// Config holds everything the framesight pipeline needs at startup.
// Environment variables are the primary source; an optional YAML file
// (FRAMESIGHT_CONFIG or --config) overrides the env-derived values.
type Config struct {
	ML struct {
		BaseURL           string   `yaml:"base_url"`
		MaxAttempts       int      `yaml:"max_attempts"`
		RetryWait         Duration `yaml:"retry_wait"`
		RetryMaxWait      Duration `yaml:"retry_max_wait"`
		PerAttemptTimeout Duration `yaml:"per_attempt_timeout"`
	} `yaml:"ml"`

	Parser struct {
		// ImperialThreshold is the mean absolute coordinate magnitude
		// above which an undeclared unit system is guessed as imperial.
		ImperialThreshold float64 `yaml:"imperial_threshold"`
	} `yaml:"parser"`

	Learning struct {
		// RetrainEvery fires a retraining signal after this many
		// accepted corrections.
		RetrainEvery int `yaml:"retrain_every"`
	} `yaml:"learning"`

	Log struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
	} `yaml:"log"`
}

// Load reads env vars and, when path is non-empty, merges the YAML file
// on top. A named-but-unreadable file is an error; absent keys keep the
// env-derived values.
func Load(path string) (*Config, error) {
	cfg := &Config{}

	cfg.ML.BaseURL = getEnv("ML_SERVICE_URL", "http://localhost:8000")
	cfg.ML.MaxAttempts = parseInt(getEnv("ML_MAX_ATTEMPTS", "2"), 2)
	cfg.ML.RetryWait = Duration(parseDuration(getEnv("ML_RETRY_WAIT", "1s"), time.Second))
	cfg.ML.RetryMaxWait = Duration(parseDuration(getEnv("ML_RETRY_MAX_WAIT", "5s"), 5*time.Second))
	cfg.ML.PerAttemptTimeout = Duration(parseDuration(getEnv("ML_ATTEMPT_TIMEOUT", "12s"), 12*time.Second))

	cfg.Parser.ImperialThreshold = parseFloat(getEnv("PARSER_IMPERIAL_THRESHOLD", "200"), 200)
	cfg.Learning.RetrainEvery = parseInt(getEnv("LEARNING_RETRAIN_EVERY", "5"), 5)

	cfg.Log.Level = getEnv("LOG_LEVEL", "info")
	cfg.Log.Format = getEnv("LOG_FORMAT", "json")

	if path == "" {
		path = os.Getenv("FRAMESIGHT_CONFIG")
	}
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	return cfg, nil
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func parseInt(s string, def int) int {
	if n, err := strconv.Atoi(s); err == nil {
		return n
	}
	return def
}

func parseFloat(s string, def float64) float64 {
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return f
	}
	return def
}

func parseDuration(s string, def time.Duration) time.Duration {
	if d, err := time.ParseDuration(s); err == nil {
		return d
	}
	return def
}
