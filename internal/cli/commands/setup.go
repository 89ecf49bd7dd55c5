package commands

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/leapstack-labs/macrostub/internal/cli/config"
	"github.com/leapstack-labs/macrostub/internal/cli/output"
	"github.com/leapstack-labs/macrostub/internal/phpscan"
	"github.com/leapstack-labs/macrostub/internal/registry"
	"github.com/spf13/cobra"
)

// CommandContext holds common dependencies for CLI commands.
type CommandContext struct {
	Cfg      *config.Config
	Logger   *slog.Logger
	Renderer *output.Renderer
}

// NewCommandContext builds the command dependencies from the context set up
// by the root command.
func NewCommandContext(cmd *cobra.Command) *CommandContext {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	cfg := config.GetConfig(ctx)
	return &CommandContext{
		Cfg:      cfg,
		Logger:   config.GetLogger(ctx),
		Renderer: output.NewRenderer(cmd.OutOrStdout(), cmd.ErrOrStderr(), output.Mode(cfg.OutputFormat)),
	}
}

// Environment is a loaded class environment and where it came from.
type Environment struct {
	Registry *registry.Registry
	Stats    phpscan.Stats
	// Files are the PHP sources that were scanned.
	Files []string
}

// LoadEnvironment builds the class environment from the manifest and the
// configured sources. skip is left out of the scan, typically the stub file
// being generated.
func (c *CommandContext) LoadEnvironment(ctx context.Context, skip ...string) (*Environment, error) {
	reg := registry.New()

	if c.Cfg.Manifest != "" {
		if err := reg.LoadManifest(c.Cfg.Manifest); err != nil {
			return nil, err
		}
		c.Logger.Debug("loaded manifest", "path", c.Cfg.Manifest, "classes", reg.Len())
	}

	env := &Environment{Registry: reg}
	if len(c.Cfg.Sources) == 0 {
		return env, nil
	}

	exclude := append([]string(nil), c.Cfg.Exclude...)
	for _, path := range skip {
		if path == "" {
			continue
		}
		if rel := c.Cfg.Rel(path); !filepath.IsAbs(rel) {
			exclude = append(exclude, filepath.ToSlash(rel))
		}
	}

	files, err := phpscan.Files(c.Cfg.ProjectRoot, c.Cfg.Sources, exclude)
	if err != nil {
		return nil, err
	}

	scanner, err := phpscan.New(reg, c.Logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create scanner: %w", err)
	}
	defer scanner.Close()

	stats, err := scanner.Scan(ctx, c.Cfg.ProjectRoot, c.Cfg.Sources, exclude)
	if err != nil {
		return nil, fmt.Errorf("failed to scan sources: %w", err)
	}
	c.Logger.Debug("scanned sources",
		"files", stats.Files, "classes", stats.Classes, "registrations", stats.Registrations, "failed", stats.Failed)

	env.Stats = stats
	env.Files = files
	return env, nil
}
