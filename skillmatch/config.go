package skillmatch

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	configName = "occumatch"
	envPrefix  = "OCCUMATCH"
)

// DatasetConfig locates the CBO CSV exports.
type DatasetConfig struct {
	Dir             string `mapstructure:"dir"`
	OccupationsFile string `mapstructure:"occupations_file"`
	SynonymsFile    string `mapstructure:"synonyms_file"`
	ProfileFile     string `mapstructure:"profile_file"`
	ProfileMaxRows  int    `mapstructure:"profile_max_rows"`
	Encoding        string `mapstructure:"encoding"`
}

// EmbedderConfig selects and configures the embedding backend and its caches.
type EmbedderConfig struct {
	Provider      string        `mapstructure:"provider"`
	OrtDLL        string        `mapstructure:"ort_dll"`
	ModelPath     string        `mapstructure:"model_path"`
	TokenizerPath string        `mapstructure:"tokenizer_path"`
	MaxSeqLen     int           `mapstructure:"max_seq_len"`
	Dimension     int           `mapstructure:"dimension"`
	BatchSize     int           `mapstructure:"batch_size"`
	ModelID       string        `mapstructure:"model_id"`
	CacheDir      string        `mapstructure:"cache_dir"`
	RedisURL      string        `mapstructure:"redis_url"`
	RedisTTL      time.Duration `mapstructure:"redis_ttl"`
	GeminiAPIKey  string        `mapstructure:"gemini_api_key"`
	GeminiModel   string        `mapstructure:"gemini_model"`
}

// MatchingConfig holds the default thresholds and sizes of the core operations.
type MatchingConfig struct {
	SkillThreshold      float64 `mapstructure:"skill_threshold"`
	OccupationThreshold float64 `mapstructure:"occupation_threshold"`
	SkillTopK           int     `mapstructure:"skill_top_k"`
	OccupationTopK      int     `mapstructure:"occupation_top_k"`
	UnrecognizedTopK    int     `mapstructure:"unrecognized_top_k"`
	ProfileThreshold    float64 `mapstructure:"profile_threshold"`
	OccupationLimit     int     `mapstructure:"occupation_limit"`
	Workers             int     `mapstructure:"workers"`
	RulesFile           string  `mapstructure:"rules_file"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Addr           string        `mapstructure:"addr"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
	RateLimit      float64       `mapstructure:"rate_limit"`
	Burst          int           `mapstructure:"burst"`
	MaxBodyBytes   int64         `mapstructure:"max_body_bytes"`
}

// Config aggregates runtime settings read from occumatch.yaml and the environment.
type Config struct {
	Dataset  DatasetConfig  `mapstructure:"dataset"`
	Embedder EmbedderConfig `mapstructure:"embedder"`
	Matching MatchingConfig `mapstructure:"matching"`
	Server   ServerConfig   `mapstructure:"server"`
}

// DefaultConfig returns a configuration with every default applied.
func DefaultConfig() Config {
	var cfg Config
	cfg.ApplyDefaults()
	return cfg
}

// ApplyDefaults populates zero values with sensible defaults.
func (c *Config) ApplyDefaults() {
	if c.Dataset.Dir == "" {
		c.Dataset.Dir = "data"
	}
	if c.Dataset.OccupationsFile == "" {
		c.Dataset.OccupationsFile = "CBO2002 - Ocupacao.csv"
	}
	if c.Dataset.SynonymsFile == "" {
		c.Dataset.SynonymsFile = "CBO2002 - Sinonimo.csv"
	}
	if c.Dataset.ProfileFile == "" {
		c.Dataset.ProfileFile = "CBO2002 - PerfilOcupacional.csv"
	}
	if c.Dataset.ProfileMaxRows <= 0 {
		c.Dataset.ProfileMaxRows = 10000
	}
	if c.Dataset.Encoding == "" {
		c.Dataset.Encoding = EncodingLatin1
	}

	if c.Embedder.Provider == "" {
		c.Embedder.Provider = ProviderONNX
	}
	if c.Embedder.MaxSeqLen <= 0 {
		c.Embedder.MaxSeqLen = 512
	}
	if c.Embedder.BatchSize <= 0 {
		c.Embedder.BatchSize = 32
	}
	if c.Embedder.RedisTTL <= 0 {
		c.Embedder.RedisTTL = 7 * 24 * time.Hour
	}
	if c.Embedder.ModelID == "" {
		switch {
		case c.Embedder.Provider == ProviderGemini && c.Embedder.GeminiModel != "":
			c.Embedder.ModelID = c.Embedder.GeminiModel
		case c.Embedder.ModelPath != "":
			c.Embedder.ModelID = filepath.Base(c.Embedder.ModelPath)
		default:
			c.Embedder.ModelID = c.Embedder.Provider
		}
	}

	if c.Matching.SkillThreshold <= 0 {
		c.Matching.SkillThreshold = 0.75
	}
	if c.Matching.OccupationThreshold <= 0 {
		c.Matching.OccupationThreshold = 0.65
	}
	if c.Matching.SkillTopK <= 0 {
		c.Matching.SkillTopK = 1
	}
	if c.Matching.OccupationTopK <= 0 {
		c.Matching.OccupationTopK = 5
	}
	if c.Matching.UnrecognizedTopK <= 0 {
		c.Matching.UnrecognizedTopK = 3
	}
	if c.Matching.ProfileThreshold <= 0 {
		c.Matching.ProfileThreshold = 0.70
	}
	if c.Matching.OccupationLimit <= 0 {
		c.Matching.OccupationLimit = 10
	}
	if c.Matching.Workers <= 0 {
		c.Matching.Workers = 4
	}

	if c.Server.Addr == "" {
		c.Server.Addr = ":5001"
	}
	if c.Server.RequestTimeout <= 0 {
		c.Server.RequestTimeout = 30 * time.Second
	}
	if c.Server.Burst <= 0 {
		c.Server.Burst = 20
	}
	if c.Server.MaxBodyBytes <= 0 {
		c.Server.MaxBodyBytes = 16 << 20
	}
}

// SetDefaults registers every known key on v so that environment variables
// are picked up by Unmarshal even when the config file omits them.
func SetDefaults(v *viper.Viper) {
	d := DefaultConfig()
	v.SetDefault("dataset.dir", d.Dataset.Dir)
	v.SetDefault("dataset.occupations_file", d.Dataset.OccupationsFile)
	v.SetDefault("dataset.synonyms_file", d.Dataset.SynonymsFile)
	v.SetDefault("dataset.profile_file", d.Dataset.ProfileFile)
	v.SetDefault("dataset.profile_max_rows", d.Dataset.ProfileMaxRows)
	v.SetDefault("dataset.encoding", d.Dataset.Encoding)

	v.SetDefault("embedder.provider", d.Embedder.Provider)
	v.SetDefault("embedder.ort_dll", "")
	v.SetDefault("embedder.model_path", "")
	v.SetDefault("embedder.tokenizer_path", "")
	v.SetDefault("embedder.max_seq_len", d.Embedder.MaxSeqLen)
	v.SetDefault("embedder.dimension", 0)
	v.SetDefault("embedder.batch_size", d.Embedder.BatchSize)
	v.SetDefault("embedder.model_id", "")
	v.SetDefault("embedder.cache_dir", "")
	v.SetDefault("embedder.redis_url", "")
	v.SetDefault("embedder.redis_ttl", d.Embedder.RedisTTL)
	v.SetDefault("embedder.gemini_api_key", "")
	v.SetDefault("embedder.gemini_model", "")

	v.SetDefault("matching.skill_threshold", d.Matching.SkillThreshold)
	v.SetDefault("matching.occupation_threshold", d.Matching.OccupationThreshold)
	v.SetDefault("matching.skill_top_k", d.Matching.SkillTopK)
	v.SetDefault("matching.occupation_top_k", d.Matching.OccupationTopK)
	v.SetDefault("matching.unrecognized_top_k", d.Matching.UnrecognizedTopK)
	v.SetDefault("matching.profile_threshold", d.Matching.ProfileThreshold)
	v.SetDefault("matching.occupation_limit", d.Matching.OccupationLimit)
	v.SetDefault("matching.workers", d.Matching.Workers)
	v.SetDefault("matching.rules_file", "")

	v.SetDefault("server.addr", d.Server.Addr)
	v.SetDefault("server.request_timeout", d.Server.RequestTimeout)
	v.SetDefault("server.rate_limit", 0)
	v.SetDefault("server.burst", d.Server.Burst)
	v.SetDefault("server.max_body_bytes", d.Server.MaxBodyBytes)
}

// LoadConfig reads configuration into v from path, or from occumatch.yaml in
// the working directory when path is empty. A missing default file is not an
// error; a missing explicit file is.
func LoadConfig(v *viper.Viper, path string) (Config, error) {
	if v == nil {
		v = viper.New()
	}
	SetDefaults(v)
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.AddConfigPath(".")
		v.SetConfigName(configName)
		v.SetConfigType("yaml")
	}

	var cfg Config
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return cfg, fmt.Errorf("read config: %w", err)
		}
	}
	if err := v.Unmarshal(&cfg); err != nil {
		return cfg, fmt.Errorf("decode config: %w", err)
	}
	cfg.ApplyDefaults()
	if cfg.Embedder.CacheDir != "" {
		if err := os.MkdirAll(cfg.Embedder.CacheDir, 0o755); err != nil {
			return cfg, fmt.Errorf("create cache dir: %w", err)
		}
	}
	return cfg, nil
}

// WriteDefaultConfig writes a starter configuration file with every default.
func WriteDefaultConfig(path string) error {
	if path == "" {
		path = configName + ".yaml"
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}
	v := viper.New()
	SetDefaults(v)
	if err := v.WriteConfigAs(path); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}
