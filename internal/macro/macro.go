// Package macro models macros registered on Macroable PHP classes: the
// callables behind them, their parameter lists and default values.
package macro

import "strings"

// Storage field names used by Macroable classes.
const (
	// FieldMacros is the static property of the Macroable trait.
	FieldMacros = "macros"
	// FieldGlobalMacros is used by classes that keep macros shared across
	// instances, such as the Eloquent builder.
	FieldGlobalMacros = "globalMacros"
)

// StorageFields lists the storage properties in lookup order.
var StorageFields = []string{FieldMacros, FieldGlobalMacros}

// InstantiatedTag in a doc comment marks a macro that is called on an
// instance rather than statically.
const InstantiatedTag = "@instantiated"

// Macro is one registered macro.
type Macro struct {
	Name     string
	Callable Callable
}

// Callable is the value a macro was registered with. It is either a
// Function or a BoundMethod.
type Callable interface {
	callable()
}

// Function is a closure (inline Signature, empty Name) or a named global
// function resolved through the class environment.
type Function struct {
	Name      string
	Signature *Signature
}

// BoundMethod is a [target, method] pair.
type BoundMethod struct {
	Owner  string
	Method string
}

func (Function) callable()    {}
func (BoundMethod) callable() {}

// Signature is what reflection would tell us about a callable.
type Signature struct {
	Doc    string
	Params []Param
}

// Instantiated reports whether the doc comment carries InstantiatedTag.
func (s *Signature) Instantiated() bool {
	return s != nil && strings.Contains(s.Doc, InstantiatedTag)
}

// Param is a single formal parameter.
type Param struct {
	Name     string
	Optional bool
	Variadic bool
	// Default is only meaningful when Optional is set. An unresolved value
	// means the default exists but cannot be rendered.
	Default Value
}

// HasDefault reports whether the parameter has a renderable default.
func (p Param) HasDefault() bool {
	return p.Optional && !p.Variadic && p.Default.Resolved()
}

// Storage is the ordered contents of one macro storage property. Like a PHP
// array, assigning an existing name replaces the callable but keeps the
// original position.
type Storage struct {
	Field  string
	macros []Macro
	index  map[string]int
}

// NewStorage returns an empty storage for field.
func NewStorage(field string) *Storage {
	return &Storage{Field: field, index: make(map[string]int)}
}

// Put registers m.
func (s *Storage) Put(m Macro) {
	if s.index == nil {
		s.index = make(map[string]int)
	}
	if i, ok := s.index[m.Name]; ok {
		s.macros[i] = m
		return
	}
	s.index[m.Name] = len(s.macros)
	s.macros = append(s.macros, m)
}

// Get returns the macro registered under name.
func (s *Storage) Get(name string) (Macro, bool) {
	if s == nil {
		return Macro{}, false
	}
	i, ok := s.index[name]
	if !ok {
		return Macro{}, false
	}
	return s.macros[i], true
}

// Macros returns the registered macros in registration order.
func (s *Storage) Macros() []Macro {
	if s == nil {
		return nil
	}
	return s.macros
}

// Len returns the number of registered macros.
func (s *Storage) Len() int {
	if s == nil {
		return 0
	}
	return len(s.macros)
}
