// Package registry holds the class environment the stub generator reads
// from: which classes exist, which macro storage properties they declare,
// what has been registered into them, and the method and function
// signatures needed to resolve macro callables.
//
// A registry is populated from a YAML manifest, from a scan of PHP sources,
// or both. Class and function names are case-insensitive, as in PHP.
package registry

import (
	"strings"

	"github.com/leapstack-labs/macrostub/internal/macro"
)

// Environment is the read side of a registry.
type Environment interface {
	// Lookup returns the class declared under name.
	Lookup(name string) (*Class, bool)
	// Storage returns the macro storage visible from class for field. The
	// second result is false when neither the class nor its ancestors
	// declare the property.
	Storage(class, field string) (*macro.Storage, bool)
	// Resolve returns the signature behind a macro callable.
	Resolve(c macro.Callable) (*macro.Signature, bool)
}

// Class is a declared class, trait or interface.
type Class struct {
	Name    string
	Parent  string
	Traits  []string
	Fields  map[string]bool
	Methods map[string]*macro.Signature
	// Origin is the file or manifest the class was first seen in.
	Origin string
}

// DeclaresField reports whether the class itself declares the property.
func (c *Class) DeclaresField(field string) bool {
	return c.Fields[field]
}

type storageKey struct {
	owner string
	field string
}

// Registry is an in-memory Environment.
type Registry struct {
	classes   map[string]*Class
	storages  map[storageKey]*macro.Storage
	functions map[string]*macro.Signature
}

var _ Environment = (*Registry)(nil)

// New returns an empty registry.
func New() *Registry {
	return &Registry{
		classes:   make(map[string]*Class),
		storages:  make(map[storageKey]*macro.Storage),
		functions: make(map[string]*macro.Signature),
	}
}

func key(name string) string {
	return strings.ToLower(macro.NormalizeClass(name))
}

// Declare returns the class registered under name, creating it if needed.
func (r *Registry) Declare(name string) *Class {
	k := key(name)
	if c, ok := r.classes[k]; ok {
		return c
	}
	c := &Class{
		Name:    macro.NormalizeClass(name),
		Fields:  make(map[string]bool),
		Methods: make(map[string]*macro.Signature),
	}
	r.classes[k] = c
	return c
}

// DeclareField marks field as a storage property declared by class.
func (r *Registry) DeclareField(class, field string) {
	r.Declare(class).Fields[field] = true
}

// AddMethod records a method signature on class.
func (r *Registry) AddMethod(class, method string, sig *macro.Signature) {
	r.Declare(class).Methods[strings.ToLower(method)] = sig
}

// AddFunction records a global function signature.
func (r *Registry) AddFunction(name string, sig *macro.Signature) {
	r.functions[key(name)] = sig
}

// Lookup implements Environment.
func (r *Registry) Lookup(name string) (*Class, bool) {
	c, ok := r.classes[key(name)]
	return c, ok
}

// Len returns the number of known classes.
func (r *Registry) Len() int {
	return len(r.classes)
}

// Register adds m to the storage visible from target. The storage field is
// the first of macro.StorageFields found on target or its ancestors. When
// none is found the "macros" property is declared on the class that most
// likely pulls in Macroable: see undeclaredOwner.
func (r *Registry) Register(target string, m macro.Macro) {
	for _, field := range macro.StorageFields {
		if owner := r.owner(target, field); owner != "" {
			r.put(owner, field, m)
			return
		}
	}
	owner := r.undeclaredOwner(target)
	r.DeclareField(owner, macro.FieldMacros)
	r.put(key(owner), macro.FieldMacros, m)
}

// undeclaredOwner walks up from target to the first class that is unknown,
// uses an unknown trait, or has no parent. Static storage lives on the class
// using the trait and is shared by every subclass, so a macro registered on
// App\MyCollection extends Collection belongs to Collection when only the
// subclass was scanned.
func (r *Registry) undeclaredOwner(target string) string {
	name := target
	seen := make(map[string]bool)
	for k := key(name); !seen[k]; k = key(name) {
		seen[k] = true
		c, ok := r.classes[k]
		if !ok || c.Parent == "" || r.usesUnknownTrait(c) {
			return name
		}
		name = c.Parent
	}
	return target
}

func (r *Registry) usesUnknownTrait(c *Class) bool {
	for _, t := range c.Traits {
		if _, ok := r.classes[key(t)]; !ok {
			return true
		}
	}
	return false
}

// RegisterField adds m to an explicit storage field, declaring the field on
// target when no ancestor owns it.
func (r *Registry) RegisterField(target, field string, m macro.Macro) {
	owner := r.owner(target, field)
	if owner == "" {
		r.DeclareField(target, field)
		owner = key(target)
	}
	r.put(owner, field, m)
}

func (r *Registry) put(owner, field string, m macro.Macro) {
	k := storageKey{owner: owner, field: field}
	s, ok := r.storages[k]
	if !ok {
		s = macro.NewStorage(field)
		r.storages[k] = s
	}
	s.Put(m)
}

// Storage implements Environment.
func (r *Registry) Storage(class, field string) (*macro.Storage, bool) {
	owner := r.owner(class, field)
	if owner == "" {
		return nil, false
	}
	if s, ok := r.storages[storageKey{owner: owner, field: field}]; ok {
		return s, true
	}
	return macro.NewStorage(field), true
}

// owner returns the key of the class whose static property backs field as
// seen from class. Trait properties are copied into the using class, so a
// class owns a field it declares directly or through its traits; otherwise
// the property is inherited from the parent chain.
func (r *Registry) owner(class, field string) string {
	seen := make(map[string]bool)
	for k := key(class); k != "" && !seen[k]; {
		seen[k] = true
		c, ok := r.classes[k]
		if !ok {
			return ""
		}
		if c.DeclaresField(field) || r.traitDeclares(c, field, make(map[string]bool)) {
			return k
		}
		k = key(c.Parent)
	}
	return ""
}

func (r *Registry) traitDeclares(c *Class, field string, seen map[string]bool) bool {
	for _, t := range c.Traits {
		k := key(t)
		if seen[k] {
			continue
		}
		seen[k] = true
		tc, ok := r.classes[k]
		if !ok {
			continue
		}
		if tc.DeclaresField(field) || r.traitDeclares(tc, field, seen) {
			return true
		}
	}
	return false
}

// Resolve implements Environment.
func (r *Registry) Resolve(c macro.Callable) (*macro.Signature, bool) {
	switch fn := c.(type) {
	case macro.Function:
		if fn.Signature != nil {
			return fn.Signature, true
		}
		sig, ok := r.functions[key(fn.Name)]
		return sig, ok
	case macro.BoundMethod:
		return r.method(fn.Owner, fn.Method)
	}
	return nil, false
}

// method looks a method up on class, its traits and its ancestors.
func (r *Registry) method(class, name string) (*macro.Signature, bool) {
	name = strings.ToLower(name)
	seen := make(map[string]bool)
	var visit func(k string) (*macro.Signature, bool)
	visit = func(k string) (*macro.Signature, bool) {
		if k == "" || seen[k] {
			return nil, false
		}
		seen[k] = true
		c, ok := r.classes[k]
		if !ok {
			return nil, false
		}
		if sig, ok := c.Methods[name]; ok {
			return sig, true
		}
		for _, t := range c.Traits {
			if sig, ok := visit(key(t)); ok {
				return sig, true
			}
		}
		return visit(key(c.Parent))
	}
	return visit(key(class))
}
