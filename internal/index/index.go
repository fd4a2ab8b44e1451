package index

import (
	"context"

	"github.com/starford/orgboard/internal/models"
	"github.com/starford/orgboard/internal/storage"
)

// SnapshotIndex defines the SQLite-backed snapshot operations.
// Consumers should depend on this interface rather than the concrete *DB type
// to facilitate testing with mocks.
type SnapshotIndex interface {
	storage.Gateway
	Placement(ctx context.Context, role string) (models.Placement, error)
	Search(ctx context.Context, query string, limit int) ([]models.Placement, error)
	Checksum(ctx context.Context) (string, error)
	Close() error
}

// Verify *DB satisfies SnapshotIndex at compile time.
var _ SnapshotIndex = (*DB)(nil)
