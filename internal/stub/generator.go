// Package stub generates the PHP helper file that declares registered macros
// as ordinary methods so editors can complete them.
package stub

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/leapstack-labs/macrostub/internal/macro"
	"github.com/leapstack-labs/macrostub/internal/registry"
)

// SkipReason explains why a class produced no block.
type SkipReason string

// Skip reasons reported in a Plan.
const (
	SkipMissingClass SkipReason = "missing class"
	SkipNoStorage    SkipReason = "no macro storage"
	SkipEmptyStorage SkipReason = "empty macro storage"
)

// Method is one macro ready to be written.
type Method struct {
	Name   string
	Doc    string
	Static bool
	Params []macro.Param
	// Resolved is false when the callable's signature could not be found
	// and the method is written without parameters.
	Resolved bool
}

// Block is the namespace and class wrapper for one class's macros.
type Block struct {
	Class   macro.ClassName
	Field   string
	Methods []Method
}

// Skip records a class that was left out of the output.
type Skip struct {
	Class  string
	Reason SkipReason
}

// Plan is the result of collecting macros for a class list, in class list
// order.
type Plan struct {
	Blocks  []Block
	Skipped []Skip
}

// MacroCount returns the number of methods across all blocks.
func (p *Plan) MacroCount() int {
	n := 0
	for _, b := range p.Blocks {
		n += len(b.Methods)
	}
	return n
}

// Generator turns an environment's macro storage into a stub file.
type Generator struct {
	env    registry.Environment
	logger *slog.Logger
}

// NewGenerator creates a generator reading from env.
func NewGenerator(env registry.Environment, logger *slog.Logger) *Generator {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Generator{env: env, logger: logger}
}

// Collect resolves the macros of every class without writing anything.
func (g *Generator) Collect(classes []string) *Plan {
	plan := &Plan{}
	for _, class := range classes {
		block, reason, ok := g.collectClass(class)
		if !ok {
			g.logger.Debug("skipping class", "class", class, "reason", string(reason))
			plan.Skipped = append(plan.Skipped, Skip{Class: class, Reason: reason})
			continue
		}
		plan.Blocks = append(plan.Blocks, block)
	}
	return plan
}

func (g *Generator) collectClass(class string) (Block, SkipReason, bool) {
	c, ok := g.env.Lookup(class)
	if !ok {
		return Block{}, SkipMissingClass, false
	}

	var storage *macro.Storage
	for _, field := range macro.StorageFields {
		if storage, ok = g.env.Storage(c.Name, field); ok {
			break
		}
	}
	if !ok {
		return Block{}, SkipNoStorage, false
	}
	if storage.Len() == 0 {
		return Block{}, SkipEmptyStorage, false
	}

	block := Block{Class: macro.ParseClassName(c.Name), Field: storage.Field}
	for _, m := range storage.Macros() {
		block.Methods = append(block.Methods, g.method(c.Name, m))
	}
	return block, "", true
}

func (g *Generator) method(class string, m macro.Macro) Method {
	sig, ok := g.env.Resolve(m.Callable)
	if !ok || sig == nil {
		g.logger.Debug("callable not resolved, writing without parameters", "class", class, "macro", m.Name)
		return Method{Name: m.Name, Static: true}
	}
	return Method{
		Name:     m.Name,
		Doc:      sig.Doc,
		Static:   !sig.Instantiated(),
		Params:   sig.Params,
		Resolved: true,
	}
}

// Emit writes plan as a PHP stub.
func Emit(plan *Plan, out io.Writer) error {
	w := NewWriter(out)
	w.Line("<?php")
	for _, block := range plan.Blocks {
		emitBlock(w, block)
	}
	return w.Flush()
}

func emitBlock(w *Writer, block Block) {
	if block.Class.Namespace == "" {
		w.Open("namespace")
	} else {
		w.Open("namespace " + block.Class.Namespace)
	}
	w.Open("class " + block.Class.Short)
	for _, m := range block.Methods {
		emitMethod(w, m)
	}
	w.Close()
	w.Close()
}

func emitMethod(w *Writer, m Method) {
	if m.Doc != "" {
		w.Line(m.Doc)
	}

	w.Indented(m.Declaration())
	w.Raw(" {")
	w.Newline()
	w.Newline()
	w.Line("}")
}

// Declaration returns the method header, e.g.
// "public static function foo($a, $b = 5)".
func (m Method) Declaration() string {
	modifier := "public static"
	if !m.Static {
		modifier = "public"
	}
	return fmt.Sprintf("%s function %s(%s)", modifier, m.Name, formatParams(m.Params))
}

func formatParams(params []macro.Param) string {
	parts := make([]string, 0, len(params))
	for _, p := range params {
		s := "$" + p.Name
		if p.HasDefault() {
			s += " = " + p.Default.Export()
		}
		parts = append(parts, s)
	}
	return strings.Join(parts, ", ")
}

// Generate collects classes and writes the stub to out.
func (g *Generator) Generate(classes []string, out io.Writer) (*Plan, error) {
	plan := g.Collect(classes)
	if err := Emit(plan, out); err != nil {
		return plan, err
	}
	return plan, nil
}

// WriteFile generates the stub into path, replacing any existing file. The
// parent directory must already exist.
func (g *Generator) WriteFile(path string, classes []string) (plan *Plan, err error) {
	f, err := os.Create(path) //nolint:gosec // G304: output path comes from configuration
	if err != nil {
		return nil, fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("failed to close %s: %w", path, cerr)
		}
	}()

	plan, err = g.Generate(classes, f)
	if err != nil {
		return plan, fmt.Errorf("failed to write %s: %w", path, err)
	}
	return plan, nil
}
