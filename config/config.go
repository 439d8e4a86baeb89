// Package config implements the evaluator's settings object
// (SPEC_FULL.md's "config.Options ... loaded the way holomush
// composes koanf providers"): a base defaults layer, an optional YAML
// file layer, and a PKLCORE_-prefixed environment layer.
package config

import (
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Options is the evaluator's settings object: allowed module/resource
// URI patterns (spec §6's security policy), the module cache
// directory, environment/property pass-through for
// `read("env:...")`/`read("prop:...")`, the default output format,
// and an evaluation timeout.
type Options struct {
	AllowedModulePatterns   []string
	AllowedResourcePatterns []string
	DeniedModulePatterns    []string
	DeniedResourcePatterns  []string
	CacheDir                string
	OutputFormat            string
	Timeout                 time.Duration
	PassthroughEnv          map[string]string
}

func defaults() *koanf.Koanf {
	k := koanf.New(".")
	_ = k.Load(confmap.Provider(map[string]any{
		"cacheDir":     ".pklcore-cache",
		"outputFormat": "xml",
		"timeoutMs":    30000,
	}, "."), nil)
	return k
}

// Load composes the defaults layer, an optional YAML file at path (if
// non-empty), and PKLCORE_-prefixed environment overrides, the same
// base/file/env layering order holomush's koanf setup uses.
func Load(path string) (*Options, error) {
	k := defaults()

	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, err
		}
	}

	knownKeys := []string{
		"allowedModulePatterns", "allowedResourcePatterns",
		"deniedModulePatterns", "deniedResourcePatterns",
		"cacheDir", "outputFormat", "timeoutMs",
	}
	if err := k.Load(env.Provider("PKLCORE_", ".", func(s string) string {
		name := strings.ReplaceAll(strings.ToLower(strings.TrimPrefix(s, "PKLCORE_")), "_", ".")
		for _, key := range knownKeys {
			if strings.EqualFold(key, name) {
				return key
			}
		}
		return name
	}), nil); err != nil {
		return nil, err
	}

	opts := &Options{
		AllowedModulePatterns:   k.Strings("allowedModulePatterns"),
		AllowedResourcePatterns: k.Strings("allowedResourcePatterns"),
		DeniedModulePatterns:    k.Strings("deniedModulePatterns"),
		DeniedResourcePatterns:  k.Strings("deniedResourcePatterns"),
		CacheDir:                k.String("cacheDir"),
		OutputFormat:            k.String("outputFormat"),
		Timeout:                 time.Duration(k.Int64("timeoutMs")) * time.Millisecond,
		PassthroughEnv:          map[string]string{},
	}
	return opts, nil
}

// Default returns the base-layer Options with no file/env overrides
// applied, useful for tests and embedders that configure entirely in
// Go.
func Default() *Options {
	opts, _ := Load("")
	return opts
}
