// Package storage holds the persistence gateways that load and save chart
// snapshots, plus the file-system primitives the file gateway builds on.
package storage

import (
	"context"

	"github.com/starford/orgboard/internal/models"
)

//go:generate mockgen -source=provider.go -destination=mocks/mocks.go -package=mocks Gateway

// Gateway loads and saves the whole chart snapshot. Load returns the default
// chart when nothing has been saved. Save overwrites the stored snapshot
// entirely; there is no merge.
type Gateway interface {
	Load(ctx context.Context) (models.Chart, error)
	Save(ctx context.Context, c models.Chart) error
}

// Provider is the interface for data-directory file operations.
type Provider interface {
	// Read returns the raw bytes of the file at path (relative to the root).
	Read(path string) ([]byte, error)
	// Write atomically writes content to path (relative to the root).
	Write(path string, content []byte) error
	// Root returns the absolute root directory.
	Root() string
}
