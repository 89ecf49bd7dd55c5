package phpscan

import (
	"math"
	"strconv"
	"strings"
	"unicode/utf8"

	tree_sitter "github.com/tree-sitter/go-tree-sitter"

	"github.com/leapstack-labs/macrostub/internal/macro"
)

// arrayElement is one entry of an array literal. key is nil for list-style
// entries.
type arrayElement struct {
	key   *tree_sitter.Node
	value *tree_sitter.Node
}

// arrayElements splits an array literal into its entries. Spreads and
// by-reference entries come back with a nil value.
func (f *file) arrayElements(n *tree_sitter.Node) []arrayElement {
	var out []arrayElement
	for _, elem := range namedChildren(n) {
		if elem.Kind() != "array_element_initializer" {
			continue
		}
		parts := namedChildren(elem)
		switch {
		case findChildByKind(elem, "=>") != nil && len(parts) == 2:
			out = append(out, arrayElement{key: parts[0], value: parts[1]})
		case len(parts) == 1:
			out = append(out, arrayElement{value: parts[0]})
		default:
			out = append(out, arrayElement{})
		}
	}
	return out
}

// evaluate computes the value of a constant expression. Anything that needs
// runtime state (constants, calls, interpolation) comes back unresolved.
func (f *file) evaluate(n *tree_sitter.Node) macro.Value {
	if n == nil {
		return macro.Unresolved("")
	}
	text := f.text(n)

	switch n.Kind() {
	case "integer":
		return parseInt(text)

	case "float":
		v, err := strconv.ParseFloat(strings.ReplaceAll(text, "_", ""), 64)
		if err != nil {
			return macro.Unresolved(text)
		}
		return macro.Float(v)

	case "boolean":
		return macro.Bool(strings.EqualFold(text, "true"))

	case "null":
		return macro.Null()

	case "string":
		return singleQuoted(text)

	case "encapsed_string":
		for _, child := range namedChildren(n) {
			if k := child.Kind(); k != "string_content" && k != "string_value" && k != "escape_sequence" {
				return macro.Unresolved(text)
			}
		}
		return doubleQuoted(text)

	case "parenthesized_expression":
		if parts := namedChildren(n); len(parts) == 1 {
			return f.evaluate(parts[0])
		}

	case "unary_op_expression":
		return f.unary(n, text)

	case "binary_expression":
		return f.binary(n, text)

	case "array_creation_expression":
		arr := macro.List()
		for _, elem := range f.arrayElements(n) {
			if elem.value == nil {
				return macro.Unresolved(text)
			}
			v := f.evaluate(elem.value)
			if elem.key == nil {
				arr = arr.Append(v)
				continue
			}
			k := f.evaluate(elem.key)
			switch k.Kind {
			case macro.KindInt, macro.KindString, macro.KindBool, macro.KindNull, macro.KindFloat:
				arr = arr.Set(k, v)
			default:
				return macro.Unresolved(text)
			}
		}
		return arr

	case "class_constant_access_expression":
		parts := namedChildren(n)
		if len(parts) == 2 && strings.EqualFold(f.text(parts[1]), "class") {
			if fqn := f.resolve(f.text(parts[0])); fqn != "" {
				return macro.String(fqn)
			}
		}
	}

	return macro.Unresolved(text)
}

func (f *file) unary(n *tree_sitter.Node, text string) macro.Value {
	parts := namedChildren(n)
	if len(parts) != 1 || n.ChildCount() < 2 {
		return macro.Unresolved(text)
	}
	op := f.text(n.Child(0))
	v := f.evaluate(parts[0])

	switch {
	case op == "-" && v.Kind == macro.KindInt:
		if v.Int == math.MinInt64 {
			return macro.Float(-float64(v.Int))
		}
		return macro.Int(-v.Int)
	case op == "-" && v.Kind == macro.KindFloat:
		return macro.Float(-v.Float)
	case op == "+" && (v.Kind == macro.KindInt || v.Kind == macro.KindFloat):
		return v
	case op == "!" && v.Kind == macro.KindBool:
		return macro.Bool(!v.Bool)
	}
	return macro.Unresolved(text)
}

func (f *file) binary(n *tree_sitter.Node, text string) macro.Value {
	op := f.text(n.ChildByFieldName("operator"))
	left := f.evaluate(n.ChildByFieldName("left"))
	right := f.evaluate(n.ChildByFieldName("right"))
	if !left.Resolved() || !right.Resolved() {
		return macro.Unresolved(text)
	}

	if op == "." {
		l, lok := concatOperand(left)
		r, rok := concatOperand(right)
		if !lok || !rok {
			return macro.Unresolved(text)
		}
		return macro.String(l + r)
	}

	if left.Kind == macro.KindInt && right.Kind == macro.KindInt {
		if v, ok := intArith(op, left.Int, right.Int); ok {
			return macro.Int(v)
		}
		if op != "+" && op != "-" && op != "*" {
			return macro.Unresolved(text)
		}
		// Overflowing integer arithmetic yields a float.
	}

	l, lok := number(left)
	r, rok := number(right)
	if !lok || !rok {
		return macro.Unresolved(text)
	}
	switch op {
	case "+":
		return macro.Float(l + r)
	case "-":
		return macro.Float(l - r)
	case "*":
		return macro.Float(l * r)
	case "/":
		if r != 0 {
			return macro.Float(l / r)
		}
	}
	return macro.Unresolved(text)
}

// intArith applies op to a and b. ok is false for unsupported operators and
// when the result does not fit in an int64.
func intArith(op string, a, b int64) (int64, bool) {
	switch op {
	case "+":
		c := a + b
		return c, (c > a) == (b > 0)
	case "-":
		c := a - b
		return c, (c < a) == (b > 0)
	case "*":
		if a == 0 || b == 0 {
			return 0, true
		}
		c := a * b
		if c/b != a || (a == -1 && b == math.MinInt64) || (b == -1 && a == math.MinInt64) {
			return 0, false
		}
		return c, true
	}
	return 0, false
}

func concatOperand(v macro.Value) (string, bool) {
	switch v.Kind {
	case macro.KindString:
		return v.Str, true
	case macro.KindInt:
		return strconv.FormatInt(v.Int, 10), true
	case macro.KindNull:
		return "", true
	case macro.KindBool:
		if v.Bool {
			return "1", true
		}
		return "", true
	}
	return "", false
}

func number(v macro.Value) (float64, bool) {
	switch v.Kind {
	case macro.KindInt:
		return float64(v.Int), true
	case macro.KindFloat:
		return v.Float, true
	}
	return 0, false
}

// parseInt handles decimal, hex, octal and binary literals with digit
// separators. Literals that overflow become floats.
func parseInt(text string) macro.Value {
	clean := strings.ReplaceAll(text, "_", "")
	if i, err := strconv.ParseInt(clean, 0, 64); err == nil {
		return macro.Int(i)
	}
	if u, err := strconv.ParseUint(clean, 0, 64); err == nil {
		return macro.Float(float64(u))
	}
	if v, err := strconv.ParseFloat(clean, 64); err == nil {
		return macro.Float(v)
	}
	return macro.Unresolved(text)
}

// singleQuoted decodes a '...' literal: only \\ and \' are escapes.
func singleQuoted(text string) macro.Value {
	body, ok := unquote(text, '\'')
	if !ok {
		return macro.Unresolved(text)
	}
	var b strings.Builder
	for i := 0; i < len(body); i++ {
		c := body[i]
		if c == '\\' && i+1 < len(body) && (body[i+1] == '\\' || body[i+1] == '\'') {
			i++
			c = body[i]
		}
		b.WriteByte(c)
	}
	return macro.String(b.String())
}

var doubleQuotedEscapes = map[byte]string{
	'n':  "\n",
	't':  "\t",
	'r':  "\r",
	'v':  "\v",
	'e':  "\x1b",
	'f':  "\f",
	'\\': `\`,
	'$':  "$",
	'"':  `"`,
}

// doubleQuoted decodes a "..." literal without interpolation. Escapes that
// PHP would reject leave the value unresolved.
func doubleQuoted(text string) macro.Value {
	body, ok := unquote(text, '"')
	if !ok {
		return macro.Unresolved(text)
	}
	var b strings.Builder
	for i := 0; i < len(body); i++ {
		c := body[i]
		if c != '\\' || i+1 == len(body) {
			b.WriteByte(c)
			continue
		}
		next := body[i+1]
		if esc, ok := doubleQuotedEscapes[next]; ok {
			b.WriteString(esc)
			i++
			continue
		}
		switch {
		case next >= '0' && next <= '7':
			j := i + 1
			for j < len(body) && j < i+4 && body[j] >= '0' && body[j] <= '7' {
				j++
			}
			n, _ := strconv.ParseUint(body[i+1:j], 8, 16)
			b.WriteByte(byte(n & 0xFF))
			i = j - 1

		case next == 'x' && i+2 < len(body) && isHex(body[i+2]):
			j := i + 2
			for j < len(body) && j < i+4 && isHex(body[j]) {
				j++
			}
			n, _ := strconv.ParseUint(body[i+2:j], 16, 8)
			b.WriteByte(byte(n))
			i = j - 1

		case next == 'u' && i+2 < len(body) && body[i+2] == '{':
			end := strings.IndexByte(body[i+3:], '}')
			if end < 1 {
				return macro.Unresolved(text)
			}
			n, err := strconv.ParseUint(body[i+3:i+3+end], 16, 32)
			// Surrogates have no valid UTF-8 form.
			if err != nil || n > utf8.MaxRune || (n >= 0xD800 && n <= 0xDFFF) {
				return macro.Unresolved(text)
			}
			b.WriteRune(rune(n))
			i += 3 + end

		default:
			b.WriteByte(c)
		}
	}
	return macro.String(b.String())
}

func isHex(c byte) bool {
	return (c >= '0' && c <= '9') || (c >= 'a' && c <= 'f') || (c >= 'A' && c <= 'F')
}

func unquote(text string, quote byte) (string, bool) {
	// Binary string prefix.
	if len(text) > 0 && (text[0] == 'b' || text[0] == 'B') {
		text = text[1:]
	}
	if len(text) < 2 || text[0] != quote || text[len(text)-1] != quote {
		return "", false
	}
	return text[1 : len(text)-1], true
}
