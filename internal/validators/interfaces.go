// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

// Package validators checks items and conflicts before they reach the local
// database. The item store runs every local save and every remote upsert
// through a [Validator]; a failure there rejects the write without touching
// sync bookkeeping.
package validators

import "context"

// Validator checks v. When fields are given only those fields are checked;
// an unknown field name yields [ErrUnknownField].
type Validator interface {
	Validate(ctx context.Context, v any, fields ...string) error
}
