package config

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Load builds a Config by layering defaults, optional file, and env vars.
// Order of precedence (low -> high):
//  1. defaults (New)
//  2. file (YAML) if WOUNDSIM_CONFIG is set
//  3. env (prefix WOUNDSIM_)
func Load(ctx context.Context) (*Config, error) {
	base := New(ctx)

	k := koanf.New(".")

	if path := os.Getenv("WOUNDSIM_CONFIG"); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrLoadConfig, err)
		}
	}

	// Environment variables: WOUNDSIM_ADDR, WOUNDSIM_RETRIEVAL_TOP_K, ...
	// Keys map to the flat koanf tags on the struct; underscores preserved.
	envProvider := env.Provider("WOUNDSIM_", ".", func(s string) string {
		s = strings.ToLower(s)
		return strings.TrimPrefix(s, "woundsim_")
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrLoadConfig, err)
	}

	cfg := *base
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrLoadConfig, err)
	}

	if err := validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func validate(cfg *Config) error {
	switch {
	case cfg.Addr == "":
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	case cfg.RetrievalTopK < 1:
		return fmt.Errorf("%w: retrieval_top_k must be positive", ErrInvalidConfig)
	case cfg.RetrievalFailureRate < 0 || cfg.RetrievalFailureRate > 1:
		return fmt.Errorf("%w: retrieval_failure_rate must be in [0,1]", ErrInvalidConfig)
	case cfg.RetrievalLatencyMinMS > 0 && cfg.RetrievalLatencyMaxMS <= cfg.RetrievalLatencyMinMS:
		return fmt.Errorf("%w: retrieval latency range is inverted", ErrInvalidConfig)
	}
	return nil
}
