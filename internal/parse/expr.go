package parse

import (
	sitter "github.com/smacker/go-tree-sitter"

	"github.com/phobologic/deptrack/internal/symbols"
)

func (w *walker) member(n *sitter.Node, scope *symbols.Scope) {
	obj := n.ChildByFieldName("object")
	prop := n.ChildByFieldName("property")
	w.node(obj, scope)
	if obj == nil || prop == nil {
		return
	}
	w.ref(prop, &symbols.Member{Object: w.lower(obj, scope), Name: w.text(prop)})
}

// nestedType handles qualified type names such as `ns.Widget`.
func (w *walker) nestedType(n *sitter.Node, scope *symbols.Scope) {
	mod := n.ChildByFieldName("module")
	name := n.ChildByFieldName("name")
	if mod == nil || name == nil {
		mod, name = n.NamedChild(0), n.NamedChild(int(n.NamedChildCount())-1)
	}
	w.node(mod, scope)
	w.ref(name, &symbols.Member{Object: w.lowerQualified(mod, scope), Name: w.text(name)})
}

// nestedIdent handles dotted names in JSX tags and namespace declarations.
func (w *walker) nestedIdent(n *sitter.Node, scope *symbols.Scope) {
	obj, prop := qualifiedParts(n)
	if obj == nil || prop == nil {
		return
	}
	w.node(obj, scope)
	w.ref(prop, &symbols.Member{Object: w.lowerQualified(obj, scope), Name: w.text(prop)})
}

func qualifiedParts(n *sitter.Node) (obj, prop *sitter.Node) {
	obj = n.ChildByFieldName("object")
	prop = n.ChildByFieldName("property")
	if obj == nil || prop == nil {
		count := int(n.NamedChildCount())
		if count < 2 {
			return nil, nil
		}
		obj, prop = n.NamedChild(0), n.NamedChild(count-1)
	}
	return obj, prop
}

// lowerQualified lowers the left side of a qualified name, which always
// names values (namespaces, enums or classes).
func (w *walker) lowerQualified(n *sitter.Node, scope *symbols.Scope) symbols.Expr {
	if n == nil {
		return nil
	}
	switch n.Type() {
	case "identifier", "type_identifier":
		return &symbols.Ident{Name: w.text(n), Scope: scope}
	case "nested_identifier", "member_expression":
		obj, prop := qualifiedParts(n)
		if obj == nil || prop == nil {
			return nil
		}
		return &symbols.Member{Object: w.lowerQualified(obj, scope), Name: w.text(prop)}
	}
	return nil
}

// lower reduces a value expression to the form the linker resolves.
// Expressions it cannot follow lower to nil.
func (w *walker) lower(n *sitter.Node, scope *symbols.Scope) symbols.Expr {
	if n == nil {
		return nil
	}
	switch n.Type() {
	case "identifier", "shorthand_property_identifier":
		return &symbols.Ident{Name: w.text(n), Scope: scope}
	case "this":
		return &symbols.This{Class: w.class, Static: w.static}
	case "super":
		return &symbols.Super{Class: w.class, Static: w.static}
	case "member_expression", "nested_identifier":
		obj, prop := qualifiedParts(n)
		if obj == nil || prop == nil {
			return nil
		}
		return &symbols.Member{Object: w.lower(obj, scope), Name: w.text(prop)}
	case "call_expression":
		fn := n.ChildByFieldName("function")
		if fn == nil {
			return nil
		}
		return &symbols.Call{Fn: w.lower(fn, scope)}
	case "new_expression":
		ctor := n.ChildByFieldName("constructor")
		if ctor == nil {
			return nil
		}
		return &symbols.New{Ctor: w.lower(ctor, scope)}
	case "as_expression", "satisfies_expression":
		if n.NamedChildCount() < 2 {
			// `x as const`
			return w.lower(n.NamedChild(0), scope)
		}
		return &symbols.Typed{Type: w.lowerType(n.NamedChild(1), scope)}
	case "type_assertion":
		if args := firstNamed(n, "type_arguments"); args != nil {
			return &symbols.Typed{Type: w.lowerType(firstNamed(args), scope)}
		}
	case "parenthesized_expression", "non_null_expression", "await_expression":
		return w.lower(firstNamed(n), scope)
	}
	return nil
}

// lowerType reduces a type annotation to the named type it denotes.
func (w *walker) lowerType(n *sitter.Node, scope *symbols.Scope) symbols.Expr {
	if n == nil {
		return nil
	}
	switch n.Type() {
	case "type_annotation", "parenthesized_type", "readonly_type", "opting_type_annotation",
		"omitting_type_annotation":
		return w.lowerType(firstNamed(n), scope)
	case "type_identifier", "identifier":
		return &symbols.Ident{Name: w.text(n), Scope: scope, Type: true}
	case "generic_type":
		name := n.ChildByFieldName("name")
		if name == nil {
			name = firstNamed(n)
		}
		return w.lowerType(name, scope)
	case "nested_type_identifier":
		mod := n.ChildByFieldName("module")
		name := n.ChildByFieldName("name")
		if mod == nil || name == nil {
			return nil
		}
		return &symbols.Member{Object: w.lowerQualified(mod, scope), Name: w.text(name)}
	case "union_type":
		// T | null | undefined narrows to T.
		var only *sitter.Node
		for i := 0; i < int(n.NamedChildCount()); i++ {
			c := n.NamedChild(i)
			if isNullish(w, c) {
				continue
			}
			if c.Type() == "union_type" {
				if w.lowerType(c, scope) == nil {
					return nil
				}
			}
			if only != nil {
				return nil
			}
			only = c
		}
		return w.lowerType(only, scope)
	}
	return nil
}

func isNullish(w *walker, n *sitter.Node) bool {
	switch w.text(n) {
	case "null", "undefined", "void":
		return true
	}
	return false
}
