package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	_ "github.com/joho/godotenv/autoload"
	"github.com/urfave/cli/v3"

	"github.com/starford/orgboard/internal"
	"github.com/starford/orgboard/internal/auth"
	pkgconfig "github.com/starford/orgboard/pkg/config"
)

var version = "dev"

func loadConfig(cmd *cli.Command) (*internal.Config, error) {
	configPath := cmd.String("config")

	cfg := internal.NewDefaultConfig()
	found, err := pkgconfig.LoadOptional(configPath, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if !found {
		slog.Warn("config file not found, using defaults", slog.String("path", configPath))
	}
	return cfg, nil
}

func stderrLogger(cfg *internal.Config) *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.App.LogLevel}))
}

func run(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	opts := []internal.Option{
		internal.WithConfig(cfg),
	}

	if err := internal.Run(ctx, opts...); err != nil {
		return fmt.Errorf("app run error: %w", err)
	}

	return nil
}

func runMCP(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	return internal.RunMCP(ctx, cfg, version)
}

func runImport(ctx context.Context, cmd *cli.Command) error {
	path := cmd.Args().First()
	if path == "" {
		return fmt.Errorf("usage: orgboard import <file>")
	}
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	c, err := internal.Import(ctx, cfg, path, stderrLogger(cfg))
	if err != nil {
		return err
	}
	fmt.Printf("imported %d departments, %d roles\n", len(c.Departments), c.RoleCount())
	return nil
}

func runShow(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	return internal.Show(ctx, cfg, os.Stdout, stderrLogger(cfg))
}

func runFind(ctx context.Context, cmd *cli.Command) error {
	query := cmd.Args().First()
	if query == "" {
		return fmt.Errorf("usage: orgboard find <query>")
	}
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	return internal.Find(ctx, cfg, query, int(cmd.Int("limit")), os.Stdout, stderrLogger(cfg))
}

func runToken(_ context.Context, cmd *cli.Command) error {
	subject := cmd.Args().First()
	if subject == "" {
		return fmt.Errorf("usage: orgboard token <subject>")
	}
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	return internal.Token(cfg, subject, cmd.String("role"), cmd.Duration("ttl"), os.Stdout)
}

func main() {
	cmd := &cli.Command{
		Name:    "orgboard",
		Usage:   "Organization chart editor with drag-and-drop role placement",
		Version: version,
		Action:  run,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "config",
				Aliases:     []string{"c"},
				Usage:       "Path to config file",
				DefaultText: "config/config.yaml",
				Value:       "config/config.yaml",
				Sources:     cli.EnvVars("APP_CONFIG_FILE"),
			},
		},
		Commands: []*cli.Command{
			{
				Name:   "mcp",
				Usage:  "Serve the chart as MCP tools on stdio",
				Action: runMCP,
			},
			{
				Name:      "import",
				Usage:     "Validate a YAML/JSON chart and save it as the stored snapshot",
				ArgsUsage: "<file>",
				Action:    runImport,
			},
			{
				Name:   "show",
				Usage:  "Print the stored chart as JSON",
				Action: runShow,
			},
			{
				Name:      "find",
				Usage:     "List roles whose name contains the query",
				ArgsUsage: "<query>",
				Flags: []cli.Flag{
					&cli.IntFlag{Name: "limit", Aliases: []string{"n"}, Value: 20, Usage: "Max results"},
				},
				Action: runFind,
			},
			{
				Name:      "token",
				Usage:     "Mint a bearer token for auth.mode jwt",
				ArgsUsage: "<subject>",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "role", Value: auth.RoleAdmin, Usage: "Role claim"},
					&cli.DurationFlag{Name: "ttl", Usage: "Token lifetime (defaults to auth.token_ttl)"},
				},
				Action: runToken,
			},
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		slog.Error("application error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
