package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	_ "github.com/joho/godotenv/autoload"
	"github.com/urfave/cli/v3"

	"github.com/starford/atlas/internal"
	"github.com/starford/atlas/internal/apperr"
	pkgconfig "github.com/starford/atlas/pkg/config"
)

var version = "dev"

func loadConfig(cmd *cli.Command) (*internal.Config, error) {
	cfg := internal.NewDefaultConfig()
	if err := pkgconfig.Load(cmd.String("config"), cfg); err != nil {
		return nil, fmt.Errorf("%w: failed to parse config: %v", apperr.ErrConfig, err)
	}
	return cfg, nil
}

func runMode(mode internal.Mode) cli.ActionFunc {
	return func(ctx context.Context, cmd *cli.Command) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}

		opts := []internal.Option{
			internal.WithConfig(cfg),
			internal.WithMode(mode),
			internal.WithVersion(version),
		}
		if mode == internal.ModeGenerate {
			opts = append(opts, internal.WithTarget(cmd.String("process-file")))
		}

		if err := internal.Run(ctx, opts...); err != nil {
			return fmt.Errorf("app run error: %w", err)
		}
		return nil
	}
}

func main() {
	cmd := &cli.Command{
		Name:    "atlas",
		Usage:   "Generate Map of Content notes for an Obsidian vault from Smart Connections embeddings",
		Version: version,
		Action:  runMode(internal.ModeGenerate),
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "config",
				Aliases:     []string{"c"},
				Usage:       "Path to config file",
				DefaultText: "config/config.yaml",
				Value:       "config/config.yaml",
				Sources:     cli.EnvVars("ATLAS_CONFIG_FILE"),
			},
			&cli.StringFlag{
				Name:    "process-file",
				Aliases: []string{"p"},
				Usage:   "Vault-relative path of the note to process; asked for when omitted",
			},
		},
		Commands: []*cli.Command{
			{
				Name:   "watch",
				Usage:  "Generate a MOC for every note Smart Connections newly indexes",
				Action: runMode(internal.ModeWatch),
			},
			{
				Name:   "mcp",
				Usage:  "Serve the vault tools over MCP stdio",
				Action: runMode(internal.ModeMCP),
			},
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		slog.Error("application error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
