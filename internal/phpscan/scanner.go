// Package phpscan populates a class registry from PHP sources.
//
// Files are parsed with tree-sitter and only three things are extracted:
// class-like declarations (parent, traits, macro storage properties, method
// signatures), global function signatures, and Class::macro() registration
// calls. Nothing is evaluated beyond constant default values.
package phpscan

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	tree_sitter "github.com/tree-sitter/go-tree-sitter"
	"golang.org/x/sync/errgroup"

	"github.com/leapstack-labs/macrostub/internal/macro"
	"github.com/leapstack-labs/macrostub/internal/registry"
)

// ScanError reports a file that could not be scanned.
type ScanError struct {
	File    string
	Message string
}

func (e *ScanError) Error() string {
	return fmt.Sprintf("scan %s: %s", e.File, e.Message)
}

// Stats summarises a scan.
type Stats struct {
	Files         int
	Classes       int
	Registrations int
	Failed        int
}

// registration is a Class::macro() call waiting for all declarations to be
// known, so that storage ownership does not depend on file order.
type registration struct {
	target string
	macro  macro.Macro
	file   string
	line   uint
}

// Scanner feeds declarations and registrations into a registry.
type Scanner struct {
	reg     *registry.Registry
	logger  *slog.Logger
	parser  *tree_sitter.Parser
	pending []registration
	stats   Stats
}

// New creates a scanner writing into reg. Close releases the parser.
func New(reg *registry.Registry, logger *slog.Logger) (*Scanner, error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	p, err := newParser()
	if err != nil {
		return nil, err
	}
	return &Scanner{reg: reg, logger: logger, parser: p}, nil
}

// Close releases the tree-sitter parser.
func (s *Scanner) Close() {
	if s.parser != nil {
		s.parser.Close()
		s.parser = nil
	}
}

// Files expands include globs under root, drops paths matching any exclude
// glob and returns the result sorted. Patterns use doublestar syntax and are
// relative to root.
func Files(root string, include, exclude []string) ([]string, error) {
	fsys := os.DirFS(root)
	seen := make(map[string]bool)
	var files []string

	for _, pattern := range include {
		if !doublestar.ValidatePattern(filepath.ToSlash(pattern)) {
			return nil, fmt.Errorf("invalid source pattern %q: %w", pattern, doublestar.ErrBadPattern)
		}
		matches, err := doublestar.Glob(fsys, filepath.ToSlash(pattern), doublestar.WithFilesOnly())
		if err != nil {
			return nil, fmt.Errorf("invalid source pattern %q: %w", pattern, err)
		}
		for _, m := range matches {
			if seen[m] || excluded(m, exclude) {
				continue
			}
			seen[m] = true
			files = append(files, m)
		}
	}

	sort.Strings(files)
	for i, f := range files {
		files[i] = filepath.Join(root, filepath.FromSlash(f))
	}
	return files, nil
}

func excluded(path string, exclude []string) bool {
	for _, pattern := range exclude {
		if ok, _ := doublestar.Match(filepath.ToSlash(pattern), path); ok {
			return true
		}
	}
	return false
}

// Scan parses every file matched under root and commits the registrations
// found. Files that fail to read or parse are logged and skipped.
func (s *Scanner) Scan(ctx context.Context, root string, include, exclude []string) (Stats, error) {
	files, err := Files(root, include, exclude)
	if err != nil {
		return Stats{}, err
	}

	sources, err := readSources(ctx, files)
	if err != nil {
		return s.stats, err
	}

	// Parsing stays sequential: the parser is not safe for concurrent use
	// and declarations must be applied in path order.
	for i, path := range files {
		if err := ctx.Err(); err != nil {
			return s.stats, err
		}
		err := sources[i].err
		if err == nil {
			err = s.ParseSource(path, sources[i].data)
		}
		if err != nil {
			s.stats.Failed++
			s.logger.Warn("skipping source file", "file", path, "error", err)
		}
	}

	s.Commit()
	return s.stats, nil
}

// readConcurrency bounds the number of files read at once.
const readConcurrency = 8

type source struct {
	data []byte
	err  error
}

// readSources reads files concurrently, keeping their order. A file that
// cannot be read carries a ScanError; only cancellation fails the batch.
func readSources(ctx context.Context, files []string) ([]source, error) {
	sources := make([]source, len(files))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(readConcurrency)
	for i, path := range files {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			data, err := os.ReadFile(path) //nolint:gosec // G304: path comes from the configured source globs
			if err != nil {
				sources[i].err = &ScanError{File: path, Message: err.Error()}
				return nil
			}
			sources[i].data = data
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return sources, nil
}

// ParseFile parses a single PHP file. Declarations are applied at once;
// registrations are held until Commit.
func (s *Scanner) ParseFile(path string) error {
	src, err := os.ReadFile(path) //nolint:gosec // G304: path comes from the configured source globs
	if err != nil {
		return &ScanError{File: path, Message: err.Error()}
	}
	return s.ParseSource(path, src)
}

// ParseSource parses PHP source text. name identifies it in logs and as the
// origin of declared classes.
func (s *Scanner) ParseSource(name string, src []byte) error {
	if s.parser == nil {
		return &ScanError{File: name, Message: "scanner is closed"}
	}
	tree := s.parser.Parse(src, nil)
	if tree == nil {
		return &ScanError{File: name, Message: "parse failed"}
	}
	defer tree.Close()

	root := tree.RootNode()
	if root.HasError() {
		s.logger.Debug("source has syntax errors, scanning what parsed", "file", name)
	}

	f := &file{
		scanner: s,
		name:    name,
		src:     src,
		uses:    make(map[string]string),
	}
	f.visitChildren(root)
	s.stats.Files++
	return nil
}

// Commit applies the registrations collected so far, in source order, and
// returns how many were applied.
func (s *Scanner) Commit() int {
	n := len(s.pending)
	for _, r := range s.pending {
		s.reg.Register(r.target, r.macro)
		s.logger.Debug("registered macro", "class", r.target, "macro", r.macro.Name, "file", r.file, "line", r.line)
	}
	s.stats.Registrations += n
	s.pending = nil
	return n
}

// Stats returns the running totals.
func (s *Scanner) Stats() Stats {
	return s.stats
}

// file is the per-file traversal state.
type file struct {
	scanner   *Scanner
	name      string
	src       []byte
	namespace string
	// uses maps a lower-cased alias to the imported fully-qualified name.
	uses map[string]string
	// class is the enclosing class, for self:: and static::.
	class string
}

func (f *file) text(n *tree_sitter.Node) string {
	return nodeText(n, f.src)
}

func (f *file) visitChildren(n *tree_sitter.Node) {
	for i := uint(0); i < n.ChildCount(); i++ {
		if child := n.Child(i); child != nil {
			f.visit(child)
		}
	}
}

func (f *file) visit(n *tree_sitter.Node) {
	switch n.Kind() {
	case "namespace_definition":
		name := macro.NormalizeClass(f.text(n.ChildByFieldName("name")))
		body := n.ChildByFieldName("body")
		if body == nil {
			// "namespace Foo;" applies to the rest of the file.
			f.namespace = name
			f.uses = make(map[string]string)
			return
		}
		inner := &file{scanner: f.scanner, name: f.name, src: f.src, namespace: name, uses: make(map[string]string)}
		inner.visitChildren(body)

	case "namespace_use_declaration":
		f.collectUses(n)

	case "class_declaration", "trait_declaration", "interface_declaration", "enum_declaration":
		fqn := f.declareClass(n)
		inner := *f
		inner.class = fqn
		inner.visitChildren(n)

	case "function_definition":
		name := f.text(n.ChildByFieldName("name"))
		if name != "" {
			f.scanner.reg.AddFunction(f.qualify(name), f.signature(n))
		}
		f.visitChildren(n)

	case "scoped_call_expression":
		f.registration(n)
		f.visitChildren(n)

	default:
		f.visitChildren(n)
	}
}

// qualify prefixes a declared name with the current namespace.
func (f *file) qualify(name string) string {
	if f.namespace == "" {
		return name
	}
	return f.namespace + `\` + name
}

// resolve turns a class reference into a fully-qualified name using the
// file's imports and namespace.
func (f *file) resolve(ref string) string {
	ref = strings.TrimSpace(ref)
	if strings.HasPrefix(ref, `\`) {
		return macro.NormalizeClass(ref)
	}

	switch strings.ToLower(ref) {
	case "self", "static":
		return f.class
	case "parent":
		if c, ok := f.scanner.reg.Lookup(f.class); ok {
			return c.Parent
		}
		return ""
	}

	first, rest, nested := strings.Cut(ref, `\`)
	if fqn, ok := f.uses[strings.ToLower(first)]; ok {
		if nested {
			return fqn + `\` + rest
		}
		return fqn
	}
	if strings.HasPrefix(strings.ToLower(ref), `namespace\`) {
		return f.qualify(ref[len(`namespace\`):])
	}
	return f.qualify(ref)
}

func (f *file) collectUses(decl *tree_sitter.Node) {
	if t := decl.ChildByFieldName("type"); t != nil {
		return
	}
	if findChildByKind(decl, "function", "const") != nil {
		return
	}

	prefix := ""
	if findChildByKind(decl, "namespace_use_group") != nil {
		prefix = macro.NormalizeClass(f.text(findChildByKind(decl, "namespace_name")))
	}

	walk(decl, func(n *tree_sitter.Node) bool {
		switch n.Kind() {
		case "namespace_use_clause", "namespace_use_group_clause":
			f.useClause(n, prefix)
			return false
		}
		return true
	})
}

func (f *file) useClause(clause *tree_sitter.Node, prefix string) {
	if t := clause.ChildByFieldName("type"); t != nil {
		return
	}
	if findChildByKind(clause, "function", "const") != nil {
		return
	}

	alias := clause.ChildByFieldName("alias")
	if aliasing := findChildByKind(clause, "namespace_aliasing_clause"); aliasing != nil {
		alias = findChildByKind(aliasing, "name")
	}

	var target *tree_sitter.Node
	for _, child := range namedChildren(clause) {
		if sameNode(child, alias) {
			continue
		}
		if k := child.Kind(); k == "name" || k == "qualified_name" || k == "namespace_name" {
			target = child
			break
		}
	}
	if target == nil {
		return
	}

	fqn := macro.NormalizeClass(f.text(target))
	if prefix != "" {
		fqn = prefix + `\` + fqn
	}

	short := fqn
	if i := strings.LastIndex(fqn, `\`); i >= 0 {
		short = fqn[i+1:]
	}
	if alias != nil {
		short = f.text(alias)
	}
	f.uses[strings.ToLower(short)] = fqn
}

// declareClass records a class-like declaration and returns its name.
func (f *file) declareClass(n *tree_sitter.Node) string {
	name := f.text(n.ChildByFieldName("name"))
	if name == "" {
		return ""
	}
	fqn := f.qualify(name)
	reg := f.scanner.reg
	c := reg.Declare(fqn)
	if c.Origin == "" {
		c.Origin = f.name
	}
	f.scanner.stats.Classes++

	if n.Kind() == "class_declaration" {
		if base := findChildByKind(n, "base_clause"); base != nil {
			for _, child := range namedChildren(base) {
				if k := child.Kind(); k == "name" || k == "qualified_name" {
					c.Parent = f.resolve(f.text(child))
					break
				}
			}
		}
	}

	scope := *f
	scope.class = fqn

	body := n.ChildByFieldName("body")
	for _, member := range namedChildren(body) {
		switch member.Kind() {
		case "use_declaration":
			for _, child := range namedChildren(member) {
				if k := child.Kind(); k != "name" && k != "qualified_name" {
					continue
				}
				trait := scope.resolve(f.text(child))
				c.Traits = append(c.Traits, trait)
				if strings.EqualFold(macro.ParseClassName(trait).Short, "Macroable") {
					reg.DeclareField(trait, macro.FieldMacros)
				}
			}

		case "property_declaration":
			if findChildByKind(member, "static_modifier") == nil {
				continue
			}
			walk(member, func(v *tree_sitter.Node) bool {
				if v.Kind() != "variable_name" {
					return true
				}
				prop := strings.TrimPrefix(f.text(v), "$")
				for _, field := range macro.StorageFields {
					if prop == field {
						c.Fields[field] = true
					}
				}
				return false
			})

		case "method_declaration":
			method := f.text(member.ChildByFieldName("name"))
			if method != "" {
				reg.AddMethod(fqn, method, scope.signature(member))
			}
		}
	}

	return fqn
}

// registration queues a Class::macro('name', callable) call.
func (f *file) registration(n *tree_sitter.Node) {
	if !strings.EqualFold(f.text(n.ChildByFieldName("name")), "macro") {
		return
	}

	scope := n.ChildByFieldName("scope")
	if scope == nil {
		return
	}
	switch scope.Kind() {
	case "name", "qualified_name", "relative_scope":
	default:
		f.scanner.logger.Debug("skipping macro on dynamic class", "file", f.name, "line", n.StartPosition().Row+1)
		return
	}
	target := f.resolve(f.text(scope))
	if target == "" {
		return
	}

	args := f.arguments(n.ChildByFieldName("arguments"))
	if len(args) < 2 {
		return
	}

	name := f.evaluate(args[0])
	if name.Kind != macro.KindString || name.Str == "" {
		f.scanner.logger.Debug("skipping macro with dynamic name", "file", f.name, "line", n.StartPosition().Row+1)
		return
	}

	callable, ok := f.callable(args[1])
	if !ok {
		f.scanner.logger.Debug("skipping macro with unsupported callable",
			"file", f.name, "line", n.StartPosition().Row+1, "macro", name.Str, "kind", args[1].Kind())
		return
	}

	if fn, ok := callable.(macro.Function); ok && fn.Signature != nil && fn.Signature.Doc == "" {
		fn.Signature.Doc = f.statementDoc(n)
	}

	f.scanner.pending = append(f.scanner.pending, registration{
		target: target,
		macro:  macro.Macro{Name: name.Str, Callable: callable},
		file:   f.name,
		line:   n.StartPosition().Row + 1,
	})
}

// arguments returns the value expressions of an argument list.
func (f *file) arguments(list *tree_sitter.Node) []*tree_sitter.Node {
	var out []*tree_sitter.Node
	for _, arg := range namedChildren(list) {
		if arg.Kind() != "argument" {
			continue
		}
		label := arg.ChildByFieldName("name")
		for _, child := range namedChildren(arg) {
			if sameNode(child, label) {
				continue
			}
			out = append(out, child)
			break
		}
	}
	return out
}

func (f *file) callable(n *tree_sitter.Node) (macro.Callable, bool) {
	switch n.Kind() {
	case "anonymous_function", "anonymous_function_creation_expression", "arrow_function":
		return macro.Function{Signature: f.signature(n)}, true

	case "string", "encapsed_string":
		v := f.evaluate(n)
		if v.Kind != macro.KindString || v.Str == "" {
			return nil, false
		}
		if owner, method, ok := strings.Cut(v.Str, "::"); ok {
			return macro.BoundMethod{Owner: macro.NormalizeClass(owner), Method: method}, true
		}
		return macro.Function{Name: v.Str}, true

	case "array_creation_expression":
		elems := f.arrayElements(n)
		if len(elems) != 2 || elems[0].key != nil || elems[1].key != nil {
			return nil, false
		}
		owner := f.classRef(elems[0].value)
		method := f.evaluate(elems[1].value)
		if owner == "" || method.Kind != macro.KindString || method.Str == "" {
			return nil, false
		}
		return macro.BoundMethod{Owner: owner, Method: method.Str}, true
	}
	return nil, false
}

// classRef resolves the target half of a [target, 'method'] pair.
func (f *file) classRef(n *tree_sitter.Node) string {
	switch n.Kind() {
	case "class_constant_access_expression":
		parts := namedChildren(n)
		if len(parts) == 2 && strings.EqualFold(f.text(parts[1]), "class") {
			return f.resolve(f.text(parts[0]))
		}
	case "object_creation_expression":
		for _, child := range namedChildren(n) {
			if k := child.Kind(); k == "name" || k == "qualified_name" {
				return f.resolve(f.text(child))
			}
		}
	case "string", "encapsed_string":
		if v := f.evaluate(n); v.Kind == macro.KindString {
			return macro.NormalizeClass(v.Str)
		}
	case "variable_name":
		if f.text(n) == "$this" {
			return f.class
		}
	}
	return ""
}

// signature extracts the parameter list and doc comment of a function-like
// node.
func (f *file) signature(n *tree_sitter.Node) *macro.Signature {
	sig := &macro.Signature{Doc: f.docComment(n)}

	for _, p := range namedChildren(n.ChildByFieldName("parameters")) {
		param := macro.Param{Name: strings.TrimPrefix(f.text(p.ChildByFieldName("name")), "$")}
		switch p.Kind() {
		case "simple_parameter", "property_promotion_parameter":
			if def := p.ChildByFieldName("default_value"); def != nil {
				param.Optional = true
				param.Default = f.evaluate(def)
			}
		case "variadic_parameter":
			param.Optional = true
			param.Variadic = true
		default:
			continue
		}
		if param.Name == "" {
			continue
		}
		sig.Params = append(sig.Params, param)
	}

	// A default followed by a required parameter does not make the
	// parameter optional.
	required := false
	for i := len(sig.Params) - 1; i >= 0; i-- {
		if !sig.Params[i].Optional {
			required = true
		} else if required {
			sig.Params[i].Optional = false
		}
	}

	return sig
}

// docComment returns the /** */ comment directly preceding n, looking
// through the argument wrapper of closures passed to macro().
func (f *file) docComment(n *tree_sitter.Node) string {
	prev := n.PrevSibling()
	if prev == nil {
		if parent := n.Parent(); parent != nil && parent.Kind() == "argument" {
			return f.docComment(parent)
		}
		return ""
	}
	if prev.Kind() != "comment" {
		return ""
	}
	text := f.text(prev)
	if !strings.HasPrefix(text, "/**") {
		return ""
	}
	return text
}

// statementDoc returns the doc comment written above the statement that
// contains call, for the common
//
//	/** ... */
//	Str::macro('name', function () {});
//
// layout.
func (f *file) statementDoc(call *tree_sitter.Node) string {
	parent := call.Parent()
	if parent == nil || parent.Kind() != "expression_statement" {
		return ""
	}
	return f.docComment(parent)
}
