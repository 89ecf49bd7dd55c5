package macro

import (
	"math"
	"strconv"
	"strings"
)

// Kind identifies the PHP type of a Value.
type Kind int

// Value kinds. KindUnresolved marks an expression that cannot be evaluated
// without running PHP (constants, object creation, interpolation).
const (
	KindUnresolved Kind = iota
	KindNull
	KindBool
	KindInt
	KindFloat
	KindString
	KindArray
)

// Value is a statically known PHP constant-expression value.
type Value struct {
	Kind  Kind
	Bool  bool
	Int   int64
	Float float64
	Str   string
	Items []ArrayItem
	// Expr holds the source text of an unresolved expression.
	Expr string
}

// ArrayItem is one key/value pair of a PHP array. Key is always an int or
// string Value.
type ArrayItem struct {
	Key   Value
	Value Value
}

// Null returns the PHP null value.
func Null() Value { return Value{Kind: KindNull} }

// Bool returns a PHP bool.
func Bool(b bool) Value { return Value{Kind: KindBool, Bool: b} }

// Int returns a PHP int.
func Int(i int64) Value { return Value{Kind: KindInt, Int: i} }

// Float returns a PHP float.
func Float(f float64) Value { return Value{Kind: KindFloat, Float: f} }

// String returns a PHP string.
func String(s string) Value { return Value{Kind: KindString, Str: s} }

// Unresolved returns a value whose expression could not be evaluated.
func Unresolved(expr string) Value { return Value{Kind: KindUnresolved, Expr: expr} }

// Resolved reports whether the value, and every nested array element, is known.
func (v Value) Resolved() bool {
	if v.Kind == KindUnresolved {
		return false
	}
	for _, it := range v.Items {
		if !it.Key.Resolved() || !it.Value.Resolved() {
			return false
		}
	}
	return true
}

// Array builds a PHP array from items, normalising keys the way PHP does:
// numeric strings become ints, bools become ints, null becomes "".
func Array(items ...ArrayItem) Value {
	out := Value{Kind: KindArray, Items: make([]ArrayItem, 0, len(items))}
	for _, it := range items {
		out = out.Set(it.Key, it.Value)
	}
	return out
}

// List builds a PHP array with auto-incremented integer keys.
func List(values ...Value) Value {
	out := Value{Kind: KindArray, Items: make([]ArrayItem, 0, len(values))}
	for _, v := range values {
		out = out.Append(v)
	}
	return out
}

// Append adds v under the next free integer key.
func (v Value) Append(elem Value) Value {
	return v.Set(Int(v.nextIndex()), elem)
}

// Set assigns key => elem, replacing an existing entry in place.
func (v Value) Set(key, elem Value) Value {
	key = normalizeKey(key)
	items := append([]ArrayItem(nil), v.Items...)
	for i := range items {
		if keyEqual(items[i].Key, key) {
			items[i].Value = elem
			v.Items = items
			return v
		}
	}
	v.Items = append(items, ArrayItem{Key: key, Value: elem})
	return v
}

func (v Value) nextIndex() int64 {
	next := int64(0)
	for _, it := range v.Items {
		if it.Key.Kind == KindInt && it.Key.Int >= next {
			next = it.Key.Int + 1
		}
	}
	return next
}

func normalizeKey(k Value) Value {
	switch k.Kind {
	case KindString:
		if n, err := strconv.ParseInt(k.Str, 10, 64); err == nil && strconv.FormatInt(n, 10) == k.Str {
			return Int(n)
		}
	case KindBool:
		if k.Bool {
			return Int(1)
		}
		return Int(0)
	case KindFloat:
		return Int(int64(k.Float))
	case KindNull:
		return String("")
	}
	return k
}

func keyEqual(a, b Value) bool {
	if a.Kind != b.Kind {
		return false
	}
	if a.Kind == KindInt {
		return a.Int == b.Int
	}
	return a.Str == b.Str
}

// Export renders the value as PHP's var_export would.
func (v Value) Export() string {
	var b strings.Builder
	v.export(&b, 1)
	return b.String()
}

func (v Value) export(b *strings.Builder, level int) {
	switch v.Kind {
	case KindNull:
		b.WriteString("NULL")
	case KindBool:
		if v.Bool {
			b.WriteString("true")
		} else {
			b.WriteString("false")
		}
	case KindInt:
		b.WriteString(strconv.FormatInt(v.Int, 10))
	case KindFloat:
		b.WriteString(exportFloat(v.Float))
	case KindString:
		b.WriteString(exportString(v.Str))
	case KindArray:
		if level > 1 {
			b.WriteByte('\n')
			b.WriteString(strings.Repeat(" ", level-1))
		}
		b.WriteString("array (\n")
		for _, it := range v.Items {
			b.WriteString(strings.Repeat(" ", level+1))
			it.Key.export(b, level+2)
			b.WriteString(" => ")
			it.Value.export(b, level+2)
			b.WriteString(",\n")
		}
		if level > 1 {
			b.WriteString(strings.Repeat(" ", level-1))
		}
		b.WriteByte(')')
	default:
		b.WriteString(v.Expr)
	}
}

// exportString quotes s with single quotes; NUL bytes are spliced in as
// double-quoted "\0" the same way PHP does.
func exportString(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `'`, `\'`)
	quoted := "'" + r.Replace(s) + "'"
	return strings.ReplaceAll(quoted, "\x00", `' . "\0" . '`)
}

// exportFloat follows PHP's serialize_precision=-1 output: shortest
// round-trip digits, ".0" on integral values, and E notation outside
// 1e-4 .. 1e15.
func exportFloat(f float64) string {
	switch {
	case math.IsNaN(f):
		return "NAN"
	case math.IsInf(f, 1):
		return "INF"
	case math.IsInf(f, -1):
		return "-INF"
	case f == 0:
		if math.Signbit(f) {
			return "-0.0"
		}
		return "0.0"
	}

	sci := strconv.FormatFloat(f, 'e', -1, 64)
	mant, expPart, _ := strings.Cut(sci, "e")
	exp, _ := strconv.Atoi(expPart)

	if exp < -4 || exp >= 15 {
		if !strings.Contains(mant, ".") {
			mant += ".0"
		}
		sign := "+"
		if exp < 0 {
			sign = "-"
			exp = -exp
		}
		return mant + "E" + sign + strconv.Itoa(exp)
	}

	s := strconv.FormatFloat(f, 'f', -1, 64)
	if !strings.Contains(s, ".") {
		s += ".0"
	}
	return s
}
