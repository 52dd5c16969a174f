// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package config

import (
	"errors"
	"fmt"

	"dario.cat/mergo"
)

// source is one layer of configuration together with where it came from.
type source struct {
	name string
	cfg  *StructuredConfig
}

// configBuilder layers defaults, environment, flags and an optional JSON
// file. Later layers override non-zero fields of earlier ones.
type configBuilder struct {
	sources []source
	err     error
}

func newConfigBuilder() *configBuilder {
	return &configBuilder{sources: make([]source, 0, 4)}
}

func (b *configBuilder) add(name string, cfg *StructuredConfig, err error) *configBuilder {
	if err != nil {
		b.err = errors.Join(b.err, fmt.Errorf("%s: %w", name, err))
		return b
	}
	if cfg != nil {
		b.sources = append(b.sources, source{name: name, cfg: cfg})
	}
	return b
}

func (b *configBuilder) build() (*StructuredConfig, error) {
	if b.err != nil {
		return nil, fmt.Errorf("error occured during building config: %w", b.err)
	}

	merged := new(StructuredConfig)
	for _, s := range b.sources {
		if err := mergo.Merge(merged, s.cfg, mergo.WithOverride); err != nil {
			return nil, fmt.Errorf("error merging %s config: %w", s.name, err)
		}
	}

	return merged, merged.validate()
}

func (b *configBuilder) withDefaults() *configBuilder {
	return b.add("defaults", defaults(), nil)
}

func (b *configBuilder) withEnv() *configBuilder {
	envCfg := &StructuredConfig{}
	return b.add("env", envCfg, parseEnv(envCfg))
}

func (b *configBuilder) withFlags() *configBuilder {
	return b.add("flags", ParseFlags(), nil)
}

// withJSON loads the file named by the last layer that set JSONFilePath.
func (b *configBuilder) withJSON() *configBuilder {
	path := ""
	for _, s := range b.sources {
		if s.cfg.JSONFilePath != "" {
			path = s.cfg.JSONFilePath
		}
	}
	if path == "" {
		return b
	}

	jsonCfg, err := parseJSON(path)
	return b.add("json "+path, jsonCfg, err)
}
