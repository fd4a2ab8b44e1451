package storage

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"sync"

	"github.com/starford/orgboard/internal/checksum"
	"github.com/starford/orgboard/internal/models"
	"github.com/starford/orgboard/internal/parser"
)

// DefaultSnapshotFile is the snapshot file name inside the data directory.
const DefaultSnapshotFile = "chart.json"

// FileGateway stores the snapshot as a JSON document in a Provider.
type FileGateway struct {
	provider Provider
	name     string
	logger   *slog.Logger

	mu      sync.Mutex
	lastSum string
}

// NewFileGateway creates a gateway writing the snapshot to name.
func NewFileGateway(p Provider, name string, logger *slog.Logger) *FileGateway {
	if name == "" {
		name = DefaultSnapshotFile
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &FileGateway{provider: p, name: name, logger: logger}
}

// Name returns the snapshot file name relative to the provider root.
func (g *FileGateway) Name() string { return g.name }

// Load reads and validates the snapshot. A missing file yields the default chart.
func (g *FileGateway) Load(_ context.Context) (models.Chart, error) {
	data, err := g.provider.Read(g.name)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			g.logger.Info("snapshot: none saved yet, using default chart", slog.String("file", g.name))
			g.remember("")
			return models.DefaultChart(), nil
		}
		return models.Chart{}, err
	}
	c, err := parser.DecodeSnapshot(data)
	if err != nil {
		return models.Chart{}, err
	}
	g.remember(checksum.Sum(data))
	return c, nil
}

// Save overwrites the snapshot file atomically.
func (g *FileGateway) Save(_ context.Context, c models.Chart) error {
	data, err := parser.EncodeSnapshot(c)
	if err != nil {
		return err
	}
	if err := g.provider.Write(g.name, data); err != nil {
		return err
	}
	g.remember(checksum.Sum(data))
	return nil
}

// LastChecksum returns the checksum of the snapshot this process last read
// or wrote, or "" when none exists yet.
func (g *FileGateway) LastChecksum() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.lastSum
}

func (g *FileGateway) remember(sum string) {
	g.mu.Lock()
	g.lastSum = sum
	g.mu.Unlock()
}
