package phpscan

import (
	"fmt"
	"sync"

	tree_sitter "github.com/tree-sitter/go-tree-sitter"
	tree_sitter_php "github.com/tree-sitter/tree-sitter-php/bindings/go"
)

var (
	languageOnce sync.Once
	phpLanguage  *tree_sitter.Language
)

func language() *tree_sitter.Language {
	languageOnce.Do(func() {
		phpLanguage = tree_sitter.NewLanguage(tree_sitter_php.LanguagePHP())
	})
	return phpLanguage
}

// newParser returns a parser configured for PHP. The caller must Close it.
func newParser() (*tree_sitter.Parser, error) {
	p := tree_sitter.NewParser()
	if err := p.SetLanguage(language()); err != nil {
		p.Close()
		return nil, fmt.Errorf("set language: %w", err)
	}
	return p, nil
}

// nodeText returns the source text covered by node.
func nodeText(node *tree_sitter.Node, source []byte) string {
	if node == nil {
		return ""
	}
	return string(source[node.StartByte():node.EndByte()])
}

// namedChildren returns the named children of node, skipping comments.
func namedChildren(node *tree_sitter.Node) []*tree_sitter.Node {
	if node == nil {
		return nil
	}
	var out []*tree_sitter.Node
	for i := uint(0); i < node.NamedChildCount(); i++ {
		child := node.NamedChild(i)
		if child == nil || child.Kind() == "comment" {
			continue
		}
		out = append(out, child)
	}
	return out
}

// findChildByKind returns the first direct child of node with one of kinds.
func findChildByKind(node *tree_sitter.Node, kinds ...string) *tree_sitter.Node {
	if node == nil {
		return nil
	}
	for i := uint(0); i < node.ChildCount(); i++ {
		child := node.Child(i)
		if child == nil {
			continue
		}
		for _, k := range kinds {
			if child.Kind() == k {
				return child
			}
		}
	}
	return nil
}

// walkFunc is called for each node during traversal. Return false to skip
// the node's children.
type walkFunc func(node *tree_sitter.Node) bool

// walk traverses the subtree rooted at node depth-first.
func walk(node *tree_sitter.Node, fn walkFunc) {
	if node == nil {
		return
	}
	if !fn(node) {
		return
	}
	for i := uint(0); i < node.ChildCount(); i++ {
		if child := node.Child(i); child != nil {
			walk(child, fn)
		}
	}
}

func sameNode(a, b *tree_sitter.Node) bool {
	if a == nil || b == nil {
		return false
	}
	return a.StartByte() == b.StartByte() && a.EndByte() == b.EndByte() && a.Kind() == b.Kind()
}
