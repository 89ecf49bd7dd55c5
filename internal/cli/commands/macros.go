package commands

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/leapstack-labs/macrostub/internal/cli/config"
	"github.com/leapstack-labs/macrostub/internal/cli/output"
	"github.com/leapstack-labs/macrostub/internal/stub"
	"github.com/spf13/cobra"
)

// NewMacrosCommand creates the macros command.
func NewMacrosCommand() *cobra.Command {
	var (
		filename string
		watch    bool
	)

	cmd := &cobra.Command{
		Use:     "macros",
		Aliases: []string{"ide-helper:macros"},
		Short:   "Generate an IDE helper file for macros",
		Long: `Generate a PHP stub file declaring every macro registered on the
configured Macroable classes, so editors can autocomplete them.

Classes come from the built-in Laravel list plus the classes setting. Macros
are read from the manifest and from Class::macro() calls found in the
configured sources.`,
		Example: `  # Write the stub to the configured filename
  macrostub macros

  # Write to an explicit file
  macrostub macros --filename _ide_macros.php

  # Regenerate whenever sources or the manifest change
  macrostub macros --watch`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cmdCtx := NewCommandContext(cmd)
			target, err := resolveOutput(cmdCtx.Cfg, filename)
			if err != nil {
				return err
			}
			if watch {
				return runWatch(cmd.Context(), cmdCtx, target)
			}
			return runMacros(cmd.Context(), cmdCtx, target)
		},
	}

	cmd.Flags().StringVar(&filename, "filename", "", "Output file, relative to the project root (overrides the filename setting)")
	cmd.Flags().BoolVarP(&watch, "watch", "w", false, "Regenerate when sources or the manifest change")

	return cmd
}

// outputTarget is the stub file as the user named it and where it lives.
type outputTarget struct {
	Name string
	Path string
}

// resolveOutput picks the --filename flag over the filename setting. Both
// are relative to the project root.
func resolveOutput(cfg *config.Config, flagValue string) (outputTarget, error) {
	if flagValue != "" {
		abs, err := filepath.Abs(cfg.ResolvePath(flagValue))
		if err != nil {
			return outputTarget{}, fmt.Errorf("invalid filename %q: %w", flagValue, err)
		}
		return outputTarget{Name: flagValue, Path: abs}, nil
	}
	if err := cfg.ValidateFilename(); err != nil {
		return outputTarget{}, err
	}
	return outputTarget{Name: cfg.Filename, Path: cfg.OutputPath()}, nil
}

func runMacros(ctx context.Context, c *CommandContext, target outputTarget) error {
	if _, err := generate(ctx, c, target); err != nil {
		return err
	}
	return nil
}

// generate builds the environment and writes the stub once.
func generate(ctx context.Context, c *CommandContext, target outputTarget) (*Environment, error) {
	env, err := c.LoadEnvironment(ctx, target.Path)
	if err != nil {
		return nil, err
	}

	gen := stub.NewGenerator(env.Registry, c.Logger)
	plan, err := gen.WriteFile(target.Path, c.Cfg.ClassList())
	if err != nil {
		return env, err
	}

	c.Logger.Debug("stub written",
		"path", target.Path, "classes", len(plan.Blocks), "macros", plan.MacroCount(), "skipped", len(plan.Skipped))

	r := c.Renderer
	if r.EffectiveMode() == output.ModeJSON {
		return env, r.JSON(output.GenerateOutput{
			Filename: target.Name,
			Path:     target.Path,
			Classes:  len(plan.Blocks),
			Macros:   plan.MacroCount(),
			Skipped:  len(plan.Skipped),
		})
	}
	r.Info(fmt.Sprintf("%s has been successfully generated.", target.Name))
	return env, nil
}
