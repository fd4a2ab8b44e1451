package internal

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"text/tabwriter"
	"time"

	"github.com/starford/orgboard/internal/auth"
	"github.com/starford/orgboard/internal/chart"
	"github.com/starford/orgboard/internal/mcpserver"
	"github.com/starford/orgboard/internal/models"
	"github.com/starford/orgboard/internal/parser"
	"github.com/starford/orgboard/internal/session"
)

// RunMCP serves the chart session as MCP tools on stdin/stdout. Logs go to
// stderr because stdout carries the protocol.
func RunMCP(ctx context.Context, cfg *Config, version string) error {
	logger := newLogger(cfg, os.Stderr)

	b, err := openBackend(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer b.Close()

	store, err := session.New(b.gateway, session.WithLogger(logger))
	if err != nil {
		return err
	}
	if err := store.Load(ctx); err != nil {
		return fmt.Errorf("load chart: %w", err)
	}

	logger.Info("MCP server starting", slog.String("backend", cfg.Storage.Backend))
	return mcpserver.New(store, version).ServeStdio()
}

// Import validates a YAML or JSON chart file and saves it through the
// configured gateway, replacing the stored snapshot.
func Import(ctx context.Context, cfg *Config, path string, logger *slog.Logger) (models.Chart, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return models.Chart{}, fmt.Errorf("read %s: %w", path, err)
	}
	c, err := parser.ParseSeed(data, chart.NewID)
	if err != nil {
		return models.Chart{}, fmt.Errorf("parse %s: %w", path, err)
	}

	b, err := openBackend(ctx, cfg, logger)
	if err != nil {
		return models.Chart{}, err
	}
	defer b.Close()

	if err := b.gateway.Save(ctx, c); err != nil {
		return models.Chart{}, fmt.Errorf("save chart: %w", err)
	}
	logger.Info("chart imported",
		slog.String("file", path),
		slog.Int("departments", len(c.Departments)),
		slog.Int("roles", c.RoleCount()))
	return c, nil
}

// Show writes the stored snapshot to w as JSON.
func Show(ctx context.Context, cfg *Config, w io.Writer, logger *slog.Logger) error {
	b, err := openBackend(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer b.Close()

	c, err := b.gateway.Load(ctx)
	if err != nil {
		return fmt.Errorf("load chart: %w", err)
	}
	data, err := parser.EncodeSnapshot(c)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}

// Find writes roles whose name contains query as a table. The sqlite
// backend answers from its role index; other backends scan the snapshot.
func Find(ctx context.Context, cfg *Config, query string, limit int, w io.Writer, logger *slog.Logger) error {
	b, err := openBackend(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer b.Close()

	var results []models.Placement
	if b.index != nil {
		results, err = b.index.Search(ctx, query, limit)
		if err != nil {
			return fmt.Errorf("search index: %w", err)
		}
	} else {
		c, err := b.gateway.Load(ctx)
		if err != nil {
			return fmt.Errorf("load chart: %w", err)
		}
		results = chart.Search(c, query, limit)
	}

	if len(results) == 0 {
		_, err := fmt.Fprintln(w, "no roles found")
		return err
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ROLE\tDEPARTMENT\tLEVEL\tPOSITION")
	for _, p := range results {
		fmt.Fprintf(tw, "%s\t%s\t%d\t%d\n", p.Role, p.DepartmentName, p.LevelNumber, p.Index)
	}
	return tw.Flush()
}

// Token mints a signed token for the jwt auth mode and writes it to w.
func Token(cfg *Config, subject, role string, ttl time.Duration, w io.Writer) error {
	if cfg.Auth.JWTSecret == "" {
		return fmt.Errorf("auth.jwt_secret is not configured")
	}
	if ttl <= 0 {
		ttl = cfg.Auth.TokenTTL
	}
	tok, exp, err := auth.NewTokenManager(cfg.Auth.JWTSecret, ttl).GenerateToken(subject, role)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "%s\n# expires %s\n", tok, exp.UTC().Format(time.RFC3339))
	return err
}
