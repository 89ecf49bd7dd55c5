package registry

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/leapstack-labs/macrostub/internal/macro"
	"gopkg.in/yaml.v3"
)

// exprTag marks a default value that cannot be evaluated statically.
const exprTag = "!expr"

// manifestFile is the on-disk manifest layout.
type manifestFile struct {
	Classes   map[string]manifestClass     `yaml:"classes"`
	Functions map[string]manifestSignature `yaml:"functions"`
}

type manifestClass struct {
	Extends string                       `yaml:"extends"`
	Traits  []string                     `yaml:"traits"`
	Methods map[string]manifestSignature `yaml:"methods"`
	// Storage properties are nodes so that "macros:" with no entries still
	// declares the property.
	Macros       yaml.Node `yaml:"macros"`
	GlobalMacros yaml.Node `yaml:"globalMacros"`
}

type manifestMacro struct {
	Name     string          `yaml:"name"`
	Doc      string          `yaml:"doc"`
	Params   []manifestParam `yaml:"params"`
	Method   string          `yaml:"method"`
	Function string          `yaml:"function"`
}

type manifestSignature struct {
	Doc    string          `yaml:"doc"`
	Params []manifestParam `yaml:"params"`
}

type manifestParam struct {
	Name     string    `yaml:"name"`
	Optional bool      `yaml:"optional"`
	Variadic bool      `yaml:"variadic"`
	Default  yaml.Node `yaml:"default"`
}

// ManifestError reports a malformed manifest.
type ManifestError struct {
	File    string
	Message string
}

func (e *ManifestError) Error() string {
	return fmt.Sprintf("manifest %s: %s", filepath.Base(e.File), e.Message)
}

// LoadManifest reads the manifest at path into r.
func (r *Registry) LoadManifest(path string) error {
	data, err := os.ReadFile(path) //nolint:gosec // G304: path comes from configuration
	if err != nil {
		return fmt.Errorf("failed to read manifest: %w", err)
	}
	return r.ParseManifest(path, data)
}

// ParseManifest decodes manifest content into r. name is used in errors and
// as the Origin of declared classes.
func (r *Registry) ParseManifest(name string, data []byte) error {
	var mf manifestFile
	if err := yaml.Unmarshal(data, &mf); err != nil {
		return &ManifestError{File: name, Message: err.Error()}
	}

	for fn, sig := range mf.Functions {
		s, err := sig.signature()
		if err != nil {
			return &ManifestError{File: name, Message: fmt.Sprintf("function %s: %v", fn, err)}
		}
		r.AddFunction(fn, s)
	}

	// Declarations first so that registrations below see the full class
	// graph regardless of map order.
	for className, mc := range mf.Classes {
		c := r.Declare(className)
		if c.Origin == "" {
			c.Origin = name
		}
		if mc.Extends != "" {
			c.Parent = macro.NormalizeClass(mc.Extends)
		}
		for _, t := range mc.Traits {
			c.Traits = append(c.Traits, macro.NormalizeClass(t))
		}
		for method, sig := range mc.Methods {
			s, err := sig.signature()
			if err != nil {
				return &ManifestError{File: name, Message: fmt.Sprintf("%s::%s: %v", className, method, err)}
			}
			r.AddMethod(className, method, s)
		}
		if mc.Macros.Kind != 0 {
			c.Fields[macro.FieldMacros] = true
		}
		if mc.GlobalMacros.Kind != 0 {
			c.Fields[macro.FieldGlobalMacros] = true
		}
	}

	for className, mc := range mf.Classes {
		for _, storage := range []struct {
			field string
			node  *yaml.Node
		}{
			{macro.FieldMacros, &mc.Macros},
			{macro.FieldGlobalMacros, &mc.GlobalMacros},
		} {
			if storage.node.Kind == 0 {
				continue
			}
			var entries []manifestMacro
			if err := storage.node.Decode(&entries); err != nil {
				return &ManifestError{File: name, Message: fmt.Sprintf("%s.%s: %v", className, storage.field, err)}
			}
			for _, entry := range entries {
				m, err := entry.macro()
				if err != nil {
					return &ManifestError{File: name, Message: fmt.Sprintf("%s.%s: %v", className, storage.field, err)}
				}
				r.RegisterField(className, storage.field, m)
			}
		}
	}

	return nil
}

func (m manifestMacro) macro() (macro.Macro, error) {
	if m.Name == "" {
		return macro.Macro{}, fmt.Errorf("macro without a name")
	}

	switch {
	case m.Method != "":
		owner, method, ok := strings.Cut(m.Method, "::")
		if !ok || owner == "" || method == "" {
			return macro.Macro{}, fmt.Errorf("macro %s: method must be written Class::method, got %q", m.Name, m.Method)
		}
		return macro.Macro{
			Name:     m.Name,
			Callable: macro.BoundMethod{Owner: macro.NormalizeClass(owner), Method: method},
		}, nil
	case m.Function != "":
		return macro.Macro{Name: m.Name, Callable: macro.Function{Name: m.Function}}, nil
	}

	sig, err := manifestSignature{Doc: m.Doc, Params: m.Params}.signature()
	if err != nil {
		return macro.Macro{}, fmt.Errorf("macro %s: %w", m.Name, err)
	}
	return macro.Macro{Name: m.Name, Callable: macro.Function{Signature: sig}}, nil
}

func (s manifestSignature) signature() (*macro.Signature, error) {
	sig := &macro.Signature{Doc: strings.TrimRight(s.Doc, "\n")}
	for _, p := range s.Params {
		if p.Name == "" {
			return nil, fmt.Errorf("parameter without a name")
		}
		param := macro.Param{
			Name:     strings.TrimPrefix(p.Name, "$"),
			Optional: p.Optional || p.Variadic,
			Variadic: p.Variadic,
		}
		if p.Default.Kind != 0 {
			v, err := nodeValue(&p.Default)
			if err != nil {
				return nil, fmt.Errorf("parameter %s: %w", p.Name, err)
			}
			param.Optional = true
			param.Default = v
		}
		sig.Params = append(sig.Params, param)
	}
	return sig, nil
}

// nodeValue converts a YAML node into a PHP value.
func nodeValue(n *yaml.Node) (macro.Value, error) {
	if n.Tag == exprTag {
		return macro.Unresolved(n.Value), nil
	}

	switch n.Kind {
	case yaml.AliasNode:
		return nodeValue(n.Alias)
	case yaml.SequenceNode:
		arr := macro.List()
		for _, child := range n.Content {
			v, err := nodeValue(child)
			if err != nil {
				return macro.Value{}, err
			}
			arr = arr.Append(v)
		}
		return arr, nil
	case yaml.MappingNode:
		arr := macro.List()
		for i := 0; i+1 < len(n.Content); i += 2 {
			k, err := nodeValue(n.Content[i])
			if err != nil {
				return macro.Value{}, err
			}
			if k.Kind != macro.KindInt {
				k = macro.String(n.Content[i].Value)
			}
			v, err := nodeValue(n.Content[i+1])
			if err != nil {
				return macro.Value{}, err
			}
			arr = arr.Set(k, v)
		}
		return arr, nil
	case yaml.ScalarNode:
		return scalarValue(n)
	}
	return macro.Value{}, fmt.Errorf("unsupported default at line %d", n.Line)
}

func scalarValue(n *yaml.Node) (macro.Value, error) {
	switch n.ShortTag() {
	case "!!null":
		return macro.Null(), nil
	case "!!bool":
		var b bool
		if err := n.Decode(&b); err != nil {
			return macro.Value{}, err
		}
		return macro.Bool(b), nil
	case "!!int":
		var i int64
		if err := n.Decode(&i); err != nil {
			return macro.Value{}, err
		}
		return macro.Int(i), nil
	case "!!float":
		var f float64
		if err := n.Decode(&f); err != nil {
			return macro.Value{}, err
		}
		return macro.Float(f), nil
	}
	return macro.String(n.Value), nil
}
