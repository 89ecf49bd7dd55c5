package commands

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
)

// NewInitCommand creates the init command.
func NewInitCommand() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "init [directory]",
		Short: "Create a macrostub configuration for a Laravel project",
		Long: `Create the files macrostub needs in a Laravel project:

  - macrostub.yaml  configuration (output file, sources, excludes)
  - macros.yaml     manifest for vendor classes that app code extends

Existing files are kept unless --force is given.`,
		Example: `  # Initialize the current directory
  macrostub init

  # Initialize another project
  macrostub init ../shop

  # Overwrite an existing configuration
  macrostub init --force`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := "."
			if len(args) > 0 {
				dir = args[0]
			}
			return runInit(NewCommandContext(cmd), dir, force)
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "Overwrite existing files")

	return cmd
}

func runInit(c *CommandContext, dir string, force bool) error {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", dir, err)
	}

	configPath := filepath.Join(dir, "macrostub.yaml")
	if _, err := os.Stat(configPath); err == nil && !force {
		return fmt.Errorf("%s already exists. Use --force to overwrite", configPath)
	}

	written, kept, err := copyTemplate("default", dir, force)
	if err != nil {
		return fmt.Errorf("failed to initialize project: %w", err)
	}
	c.Logger.Debug("initialized project", "dir", dir, "written", len(written), "kept", len(kept))

	r := c.Renderer
	for _, f := range written {
		r.StatusLine(f, "success", "")
	}
	for _, f := range kept {
		r.StatusLine(f, "skipped", "exists")
	}

	r.Println("")
	r.Success("macrostub initialized!")
	r.Println("")
	r.Println("Next steps:")
	r.Println("  1. Describe vendor classes you extend in macros.yaml")
	r.Println("  2. Run 'macrostub list' to check which classes have macros")
	r.Println("  3. Run 'macrostub macros' to write the IDE helper file")

	return nil
}
