// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package client

import (
	"context"

	"github.com/MKhiriev/go-note-sync/models"
)

// Client defines the minimal lifecycle contract for runnable client
// applications.
type Client interface {
	// Run starts the client application and blocks until ctx is done.
	Run(ctx context.Context) error
}

// MasterKeyStore is the part of the local item store that holds master key
// items.
type MasterKeyStore interface {
	ItemsByType(ctx context.Context, itemType models.ItemType) ([]models.Item, error)
	SaveItem(ctx context.Context, item models.Item) error
}
