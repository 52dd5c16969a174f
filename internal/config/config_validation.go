// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package config

import (
	"fmt"
	"strings"
)

// validate checks that the final merged [StructuredConfig] satisfies all
// application invariants before it is used at startup.
//
// Currently a no-op placeholder; the client view carries the real rules.
func (cfg *StructuredConfig) validate() error {
	return nil
}

func (cfg *ClientConfig) validate() error {
	if cfg.Storage.DB.DSN == "" || strings.Contains(cfg.Storage.DB.DSN, "memory") {
		return ErrInvalidStorageConfigs
	}

	if err := cfg.Target.validate(); err != nil {
		return err
	}

	if cfg.Sync.LockStaleAfter <= 0 || cfg.Sync.MaxRetries < 0 || cfg.Sync.MaxDecryptionAttempts < 1 || cfg.Sync.DeltaPageSize < 1 {
		return ErrInvalidSyncConfigs
	}

	if cfg.Workers.SyncInterval == 0 || cfg.Workers.ResourceFetchConcurrency < 1 {
		return ErrInvalidWorkerConfigs
	}

	if cfg.Sync.EncryptionEnabled && cfg.App.MasterPassword == "" {
		return ErrInvalidAppConfigs
	}

	return nil
}

func (t ClientTarget) validate() error {
	if t.ID == "" {
		return fmt.Errorf("%w: empty target id", ErrInvalidTargetConfigs)
	}

	switch t.Kind {
	case "memory":
	case "filesystem":
		if t.Path == "" {
			return fmt.Errorf("%w: filesystem target needs a path", ErrInvalidTargetConfigs)
		}
	case "webdav":
		if t.URL == "" {
			return fmt.Errorf("%w: webdav target needs a url", ErrInvalidTargetConfigs)
		}
	case "s3":
		if t.URL == "" || t.Bucket == "" {
			return fmt.Errorf("%w: s3 target needs an endpoint and a bucket", ErrInvalidTargetConfigs)
		}
	default:
		return fmt.Errorf("%w: unknown kind %q", ErrInvalidTargetConfigs, t.Kind)
	}

	return nil
}
