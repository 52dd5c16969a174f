// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

// Package app contains shared application-layer constants used by the sync
// client when it reports the outcome of a session.
//
// All Msg* constants are human-readable hints printed next to a failed
// session so the operator knows whether to wait, fix something or upgrade.
// Keeping them in one place ensures consistent wording throughout the client.
package app

const (
	// MsgNetworkFailure is shown when the target could not be reached after
	// all retries.
	MsgNetworkFailure = "target unreachable, the next scheduled sync will try again"

	// MsgAuthFailure is shown when the target rejected the credentials.
	MsgAuthFailure = "target rejected the credentials, check the target username and password"

	// MsgLockContention is shown when another client holds a lock on the
	// target.
	MsgLockContention = "another client is syncing or migrating this target, the next scheduled sync will try again"

	// MsgKeyUnavailable is shown when encryption is enabled but no master key
	// is loaded.
	MsgKeyUnavailable = "no master key is unlocked, check the master password"

	// MsgTargetNeedsUpgrade is shown when the target layout is older than the
	// client and the automatic upgrade failed.
	MsgTargetNeedsUpgrade = "target layout is outdated and could not be upgraded"

	// MsgClientTooOld is shown when the target was written by a newer client.
	MsgClientTooOld = "target was upgraded by a newer client, update this client"

	// MsgCancelled is shown when the session was interrupted.
	MsgCancelled = "sync cancelled"

	// MsgInternalError is shown for failures the client cannot resolve on
	// its own.
	MsgInternalError = "internal error, see the log for details"
)
