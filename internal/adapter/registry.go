// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package adapter

import (
	"fmt"
	"sort"
	"strings"

	"github.com/MKhiriev/go-note-sync/internal/config"
	"github.com/MKhiriev/go-note-sync/internal/logger"
)

// Kind is the fixed numeric identifier of a backend type.
type Kind int

const (
	KindMemory     Kind = 1
	KindFilesystem Kind = 2
	KindWebDAV     Kind = 6
	KindS3         Kind = 8
)

var kindNames = map[string]Kind{
	"memory":     KindMemory,
	"filesystem": KindFilesystem,
	"webdav":     KindWebDAV,
	"s3":         KindS3,
}

// ParseKind resolves a configured backend name.
func ParseKind(name string) (Kind, error) {
	kind, ok := kindNames[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrUnsupportedKind, name)
	}
	return kind, nil
}

func (k Kind) String() string {
	for name, kind := range kindNames {
		if kind == k {
			return name
		}
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Capabilities describes optional behaviour of a backend.
type Capabilities struct {
	// NativeDelta is set when the driver implements [ChangeFeed] and its
	// cursor should replace list-based delta computation.
	NativeDelta bool
}

// Factory builds a driver for one target.
type Factory func(cfg config.ClientTarget, logger *logger.Logger) (Driver, error)

type registration struct {
	caps    Capabilities
	factory Factory
}

// Registry maps backend kinds to driver factories. It is populated once at
// startup and read-only afterwards.
type Registry struct {
	entries map[Kind]registration
}

// NewRegistry returns a registry holding every built-in backend.
func NewRegistry() *Registry {
	r := &Registry{entries: make(map[Kind]registration)}

	r.Register(KindMemory, Capabilities{}, func(_ config.ClientTarget, logger *logger.Logger) (Driver, error) {
		return NewMemoryDriver(logger), nil
	})
	r.Register(KindFilesystem, Capabilities{}, func(cfg config.ClientTarget, logger *logger.Logger) (Driver, error) {
		return NewFilesystemDriver(cfg.Path, logger), nil
	})
	r.Register(KindWebDAV, Capabilities{}, NewWebDAVDriver)
	r.Register(KindS3, Capabilities{}, NewObjectDriver)

	return r
}

// Register adds or replaces the factory for kind.
func (r *Registry) Register(kind Kind, caps Capabilities, factory Factory) {
	r.entries[kind] = registration{caps: caps, factory: factory}
}

// Kinds lists registered kinds in ascending order.
func (r *Registry) Kinds() []Kind {
	kinds := make([]Kind, 0, len(r.entries))
	for k := range r.entries {
		kinds = append(kinds, k)
	}
	sort.Slice(kinds, func(i, j int) bool { return kinds[i] < kinds[j] })
	return kinds
}

// Open resolves cfg.Kind, builds the driver and wraps it with transient
// failure retries configured by syncCfg.
func (r *Registry) Open(cfg config.ClientTarget, syncCfg config.ClientSync, logger *logger.Logger) (Driver, Capabilities, error) {
	kind, err := ParseKind(cfg.Kind)
	if err != nil {
		return nil, Capabilities{}, err
	}

	entry, ok := r.entries[kind]
	if !ok {
		return nil, Capabilities{}, fmt.Errorf("%w: %s", ErrUnsupportedKind, kind)
	}

	driver, err := entry.factory(cfg, logger)
	if err != nil {
		return nil, Capabilities{}, fmt.Errorf("error creating %s driver: %w", kind, err)
	}

	caps := entry.caps
	if _, ok := driver.(ChangeFeed); !ok {
		caps.NativeDelta = false
	}

	return NewRetryingDriver(driver, syncCfg.MaxRetries, syncCfg.RetryBaseDelay, logger), caps, nil
}
