package config

import "errors"

// Validation errors returned by [ClientConfig.validate] when required
// configuration groups are incomplete or invalid.
var (
	// ErrInvalidTargetConfigs indicates invalid target settings
	// (for example, an unknown kind or a missing root path).
	ErrInvalidTargetConfigs = errors.New("invalid target configuration")
	// ErrInvalidStorageConfigs indicates invalid client storage settings
	// (for example, empty DSN or unsupported in-memory DSN).
	ErrInvalidStorageConfigs = errors.New("invalid storage configuration")
	// ErrInvalidSyncConfigs indicates invalid session tuning values.
	ErrInvalidSyncConfigs = errors.New("invalid sync configuration")
	// ErrInvalidWorkerConfigs indicates invalid background worker settings
	// (for example, zero sync interval).
	ErrInvalidWorkerConfigs = errors.New("invalid worker configuration")
	// ErrInvalidAppConfigs indicates invalid application-level settings
	// (for example, encryption enabled without a master password).
	ErrInvalidAppConfigs = errors.New("invalid app configuration")
)
