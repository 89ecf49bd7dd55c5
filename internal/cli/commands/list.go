package commands

import (
	"fmt"
	"strconv"

	"github.com/leapstack-labs/macrostub/internal/cli/output"
	"github.com/leapstack-labs/macrostub/internal/registry"
	"github.com/leapstack-labs/macrostub/internal/stub"
	"github.com/spf13/cobra"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Class statuses reported by list.
const (
	statusMacros  = "macros"
	statusSkipped = "skipped"
)

// NewListCommand creates the list command.
func NewListCommand() *cobra.Command {
	var registered bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List Macroable classes and their macros",
		Long: `List every class from the class list with its macro storage, where it
was declared and the macros that would be written to the stub.

Output adapts to environment:
  - Terminal: Styled table
  - Piped/Scripted: Markdown format (agent-friendly)

Use --output to override: auto, text, markdown, json`,
		Example: `  # List classes (auto-detect output format)
  macrostub list

  # Only classes that have macros, as JSON
  macrostub list --registered --output json`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runList(cmd, registered)
		},
	}

	cmd.Flags().BoolVar(&registered, "registered", false, "Only show classes with registered macros")

	return cmd
}

func runList(cmd *cobra.Command, registered bool) error {
	cmdCtx := NewCommandContext(cmd)

	env, err := cmdCtx.LoadEnvironment(cmd.Context())
	if err != nil {
		return err
	}

	gen := stub.NewGenerator(env.Registry, cmdCtx.Logger)
	result := buildList(env.Registry, gen, cmdCtx.Cfg.ClassList(), registered)
	for i := range result.Classes {
		result.Classes[i].Origin = cmdCtx.Cfg.Rel(result.Classes[i].Origin)
	}

	r := cmdCtx.Renderer
	switch r.EffectiveMode() {
	case output.ModeJSON:
		return r.JSON(result)
	case output.ModeMarkdown:
		listMarkdown(r, result)
	default:
		listText(r, result)
	}
	return nil
}

// buildList collects each class on its own so skipped and generated classes
// keep class list order.
func buildList(reg *registry.Registry, gen *stub.Generator, classes []string, registered bool) output.ListOutput {
	result := output.ListOutput{Classes: []output.ClassInfo{}}

	for _, class := range classes {
		plan := gen.Collect([]string{class})
		info := output.ClassInfo{Class: class, Macros: []output.MacroInfo{}}

		if c, ok := reg.Lookup(class); ok {
			info.Class = c.Name
			info.Origin = c.Origin
		}

		if len(plan.Blocks) == 1 {
			block := plan.Blocks[0]
			info.Status = statusMacros
			info.Field = block.Field
			for _, m := range block.Methods {
				info.Macros = append(info.Macros, output.MacroInfo{
					Name:      m.Name,
					Signature: m.Declaration(),
					Static:    m.Static,
					Resolved:  m.Resolved,
				})
			}
			result.Summary.WithMacros++
			result.Summary.TotalMacros += len(block.Methods)
		} else {
			if registered {
				continue
			}
			info.Status = statusSkipped
			info.Skipped = string(plan.Skipped[0].Reason)
		}

		result.Classes = append(result.Classes, info)
	}

	result.Summary.TotalClasses = len(result.Classes)
	return result
}

// listText outputs classes as a styled table.
func listText(r *output.Renderer, result output.ListOutput) {
	r.Header(1, fmt.Sprintf("Classes (%d total, %d with macros)", result.Summary.TotalClasses, result.Summary.WithMacros))

	title := cases.Title(language.English)
	rows := make([][]string, 0, len(result.Classes))
	for _, c := range result.Classes {
		status := c.Status
		if c.Skipped != "" {
			status = c.Skipped
		}
		rows = append(rows, []string{c.Class, title.String(status), c.Field, strconv.Itoa(len(c.Macros))})
	}
	r.Table([]string{"Class", "Status", "Field", "Macros"}, rows)

	styles := r.Styles()
	for _, c := range result.Classes {
		if len(c.Macros) == 0 {
			continue
		}
		r.Println("")
		r.Println(styles.Class.Render(c.Class))
		for _, m := range c.Macros {
			line := "  " + m.Signature
			if !m.Resolved {
				line += styles.Muted.Render("  (signature unknown)")
			}
			r.Println(line)
		}
	}

	r.Println("")
	r.Println(styles.Muted.Render(fmt.Sprintf("%d macros", result.Summary.TotalMacros)))
}

// listMarkdown outputs classes in markdown format.
func listMarkdown(r *output.Renderer, result output.ListOutput) {
	r.Println(output.FormatHeader(1, fmt.Sprintf("Classes (%d total)", result.Summary.TotalClasses)))
	r.Println("")

	for _, c := range result.Classes {
		r.Println(output.FormatHeader(2, c.Class))

		if c.Skipped != "" {
			r.Println(output.FormatKeyValue("Skipped", c.Skipped))
		} else {
			r.Println(output.FormatKeyValue("Field", c.Field))
		}
		if c.Origin != "" {
			r.Println(output.FormatKeyValue("Origin", c.Origin))
		}

		if len(c.Macros) > 0 {
			r.Println(output.FormatKeyValue("Macros", strconv.Itoa(len(c.Macros))))
			r.Println("")
			for _, m := range c.Macros {
				r.Printf("  - `%s`\n", m.Signature)
			}
		}

		r.Println("")
	}
}
