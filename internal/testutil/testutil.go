// Package testutil provides shared test helpers for building chart sessions.
package testutil

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/starford/orgboard/internal/session"
	"github.com/starford/orgboard/internal/storage"
)

// Logger returns a logger that discards everything.
func Logger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// LoadedStore creates a session over gw and loads it. A nil gw gets a fresh
// in-memory gateway.
func LoadedStore(t *testing.T, gw storage.Gateway, opts ...session.Option) *session.Store {
	t.Helper()
	if gw == nil {
		gw = storage.NewMemoryGateway()
	}
	opts = append([]session.Option{session.WithLogger(Logger())}, opts...)
	store, err := session.New(gw, opts...)
	if err != nil {
		t.Fatal(err)
	}
	if err := store.Load(context.Background()); err != nil {
		t.Fatalf("Load: %v", err)
	}
	return store
}
