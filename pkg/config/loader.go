package config

import (
	"fmt"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/rawbytes"
	"github.com/knadh/koanf/v2"
)

const envPrefix = "CONTEXTKIT_"

// Load builds a Config from defaults, an optional YAML document, and
// environment variables, in that precedence order (later wins).
//
// Environment variables use the CONTEXTKIT_ prefix with the first underscore
// separating the section, for example:
//
//	CONTEXTKIT_ENGINE_CONCURRENCY=8        -> engine.concurrency
//	CONTEXTKIT_REFINEMENT_MAX_ITERATIONS=5 -> refinement.max_iterations
//
// Pass nil yamlBytes to skip the YAML layer.
func Load(yamlBytes []byte) (Config, error) {
	k := koanf.New(".")

	cfg := Default()

	if len(yamlBytes) > 0 {
		if err := k.Load(rawbytes.Provider(yamlBytes), yaml.Parser()); err != nil {
			return Config{}, fmt.Errorf("parsing yaml config: %w", err)
		}
	}

	if err := k.Load(env.Provider(envPrefix, ".", envTransform), nil); err != nil {
		return Config{}, fmt.Errorf("loading env config: %w", err)
	}

	if err := k.Unmarshal("", &cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshaling config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// envTransform maps CONTEXTKIT_SECTION_KEY_NAME to section.key_name. The
// first underscore separates the section; the rest of the key keeps its
// underscores, matching the koanf field tags.
func envTransform(s string) string {
	s = strings.ToLower(strings.TrimPrefix(s, envPrefix))
	parts := strings.SplitN(s, "_", 2)
	if len(parts) != 2 {
		return s
	}
	return parts[0] + "." + parts[1]
}
