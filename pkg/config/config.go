// Package config loads a StoreConfig from a YAML or JSON file, falling
// back to package defaults when no file is given and to environment
// variable overrides on top of either.
package config

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"

	"github.com/dupefind/dupefind/pkg/dferr"
	"github.com/dupefind/dupefind/pkg/similarity"
	"github.com/dupefind/dupefind/pkg/storage"
	"github.com/dupefind/dupefind/pkg/tokenize"
	"github.com/dupefind/dupefind/pkg/validation"
)

// StoreConfig is the file/environment-loadable form of similarity.Config.
type StoreConfig struct {
	StorageLevel string  `json:"storage_level" yaml:"storage_level"`
	Tokenizer    string  `json:"tokenizer" yaml:"tokenizer"`
	Threshold    float64 `json:"threshold" yaml:"threshold"`
	MaxFN        float64 `json:"max_fn" yaml:"max_fn"`
	MaxFP        float64 `json:"max_fp" yaml:"max_fp"`
}

// DefaultStoreConfig mirrors the similarity package's own defaults.
func DefaultStoreConfig() StoreConfig {
	return StoreConfig{
		StorageLevel: "Minimal",
		Tokenizer:    "word_ngrams(3)",
		Threshold:    similarity.DefaultThreshold,
		MaxFN:        similarity.DefaultMaxFN,
		MaxFP:        similarity.DefaultMaxFP,
	}
}

// Load reads configuration with priority: environment > file > defaults.
// configPath may be empty, in which case only defaults and environment
// overrides apply.
func Load(configPath string) (StoreConfig, error) {
	cfg := DefaultStoreConfig()
	if configPath != "" {
		if err := loadFile(configPath, &cfg); err != nil {
			return cfg, fmt.Errorf("load config file: %w", err)
		}
	}
	loadEnv(&cfg)
	return cfg, nil
}

func loadFile(path string, cfg *StoreConfig) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse config as YAML/JSON: %w", err)
	}
	return nil
}

// ToSimilarityConfig resolves a StoreConfig into a similarity.Config,
// parsing the storage level name and tokenizer descriptor.
func (c StoreConfig) ToSimilarityConfig() (similarity.Config, error) {
	level, err := parseLevel(c.StorageLevel)
	if err != nil {
		return similarity.Config{}, err
	}
	tok, err := tokenize.Parse(c.Tokenizer)
	if err != nil {
		return similarity.Config{}, err
	}
	if err := validation.ValidatePlannerBounds(c.Threshold, c.MaxFN, c.MaxFP); err != nil {
		return similarity.Config{}, err
	}
	return similarity.Config{
		Level:              level,
		Tokenizer:          tok,
		TokenizeDescriptor: c.Tokenizer,
		Threshold:          c.Threshold,
		MaxFN:              c.MaxFN,
		MaxFP:              c.MaxFP,
	}, nil
}

func parseLevel(name string) (storage.Level, error) {
	switch name {
	case "", "Minimal":
		return storage.Minimal, nil
	case "Fingerprint":
		return storage.Fingerprint, nil
	case "Document":
		return storage.Document, nil
	case "Full":
		return storage.Full, nil
	default:
		return 0, dferr.New(dferr.InvalidInput, "config", "ToSimilarityConfig", unknownLevelError(name))
	}
}

type unknownLevelError string

func (e unknownLevelError) Error() string { return "unknown storage level: " + string(e) }

func loadEnv(cfg *StoreConfig) {
	if v := os.Getenv("DUPEFIND_STORAGE_LEVEL"); v != "" {
		cfg.StorageLevel = v
	}
	if v := os.Getenv("DUPEFIND_TOKENIZER"); v != "" {
		cfg.Tokenizer = v
	}
	if v := os.Getenv("DUPEFIND_THRESHOLD"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.Threshold = f
		}
	}
	if v := os.Getenv("DUPEFIND_MAX_FN"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.MaxFN = f
		}
	}
	if v := os.Getenv("DUPEFIND_MAX_FP"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.MaxFP = f
		}
	}
}
