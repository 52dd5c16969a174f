// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

// Package client implements the sync client runtime.
//
// It unlocks the master keys, wires the synchronizer to one target and runs
// the periodic sync job and the resource fetcher for the lifetime of the
// process.
package client
