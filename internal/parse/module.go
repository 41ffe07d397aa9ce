package parse

import (
	sitter "github.com/smacker/go-tree-sitter"

	"github.com/phobologic/deptrack/internal/symbols"
)

func (w *walker) markModule() {
	if !w.ambient && w.ns == nil {
		w.f.ESModule = true
	}
}

func (w *walker) addImport(imp *symbols.Import, scope *symbols.Scope) {
	imp.File = w.f
	w.f.Imports = append(w.f.Imports, imp)
	scope.DeclareImport(imp)
}

func (w *walker) addExport(ex *symbols.Export) {
	if w.ambient || w.ns != nil {
		return
	}
	w.f.Exports = append(w.f.Exports, ex)
}

// exportedName returns the text of an import or export specifier name,
// which may be a string literal.
func (w *walker) exportedName(n *sitter.Node) string {
	if n.Type() == "string" {
		return unquote(w.text(n))
	}
	return w.text(n)
}

func (w *walker) importStmt(n *sitter.Node, scope *symbols.Scope) {
	w.markModule()
	source := n.ChildByFieldName("source")
	for i := 0; i < int(n.NamedChildCount()); i++ {
		c := n.NamedChild(i)
		switch c.Type() {
		case "import_clause":
			if source != nil {
				w.importClause(c, unquote(w.text(source)), scope)
			}
		case "import_require_clause":
			name := firstNamed(c, "identifier")
			src := c.ChildByFieldName("source")
			if src == nil {
				src = firstNamed(c, "string")
			}
			if name != nil && src != nil {
				w.addImport(&symbols.Import{
					Local:   w.text(name),
					Name:    "*",
					Source:  unquote(w.text(src)),
					Require: true,
				}, scope)
			}
		}
	}
}

func (w *walker) importClause(c *sitter.Node, source string, scope *symbols.Scope) {
	for i := 0; i < int(c.NamedChildCount()); i++ {
		part := c.NamedChild(i)
		switch part.Type() {
		case "identifier":
			w.addImport(&symbols.Import{Local: w.text(part), Name: "default", Source: source}, scope)
		case "namespace_import":
			if id := firstNamed(part, "identifier"); id != nil {
				w.addImport(&symbols.Import{Local: w.text(id), Name: "*", Source: source}, scope)
			}
		case "named_imports":
			for j := 0; j < int(part.NamedChildCount()); j++ {
				spec := part.NamedChild(j)
				if spec.Type() != "import_specifier" {
					continue
				}
				name := spec.ChildByFieldName("name")
				if name == nil {
					continue
				}
				local := name
				if alias := spec.ChildByFieldName("alias"); alias != nil {
					local = alias
				}
				w.addImport(&symbols.Import{
					Local:  w.text(local),
					Name:   w.exportedName(name),
					Source: source,
				}, scope)
			}
		}
	}
}

// exportStmt handles every form of ES and TypeScript export statement.
func (w *walker) exportStmt(n *sitter.Node, scope *symbols.Scope) {
	w.markModule()
	def := hasToken(n, "default")
	for i := 0; i < int(n.NamedChildCount()); i++ {
		if c := n.NamedChild(i); c.Type() == "decorator" {
			w.node(c, scope)
		}
	}

	if decl := n.ChildByFieldName("declaration"); decl != nil {
		w.exp = exportCtx{on: true, def: def}
		w.node(decl, scope)
		w.exp = exportCtx{}
		return
	}

	value := n.ChildByFieldName("value")
	assign := hasToken(n, "=")
	if value == nil && assign {
		value = firstNamed(n)
	}
	if value != nil {
		if assign {
			// export = value
			w.f.CommonJS = true
		}
		w.exportValue(value, value, "default", scope)
		return
	}

	from := ""
	if source := n.ChildByFieldName("source"); source != nil {
		from = unquote(w.text(source))
	}
	if clause := firstNamed(n, "export_clause"); clause != nil {
		for i := 0; i < int(clause.NamedChildCount()); i++ {
			spec := clause.NamedChild(i)
			if spec.Type() != "export_specifier" {
				continue
			}
			name := spec.ChildByFieldName("name")
			if name == nil {
				continue
			}
			local := w.exportedName(name)
			exported := local
			if alias := spec.ChildByFieldName("alias"); alias != nil {
				exported = w.exportedName(alias)
			}
			if from != "" {
				w.addExport(&symbols.Export{Name: exported, From: from, Imported: local})
			} else {
				w.addExport(&symbols.Export{Name: exported, Local: local, Scope: scope})
			}
		}
		return
	}
	if ns := firstNamed(n, "namespace_export"); ns != nil && from != "" {
		if id := firstNamed(ns); id != nil {
			w.addExport(&symbols.Export{Name: w.exportedName(id), From: from, Imported: "*"})
		}
		return
	}
	if from != "" && hasToken(n, "*") {
		w.addExport(&symbols.Export{Star: true, From: from})
	}
}

// exportValue exports the expression value under name. at positions the
// symbol created for anonymous functions.
func (w *walker) exportValue(value, at *sitter.Node, name string, scope *symbols.Scope) {
	switch {
	case value.Type() == "identifier":
		w.addExport(&symbols.Export{Name: name, Local: w.text(value), Scope: scope})
	case value.Type() == "class":
		var alias *sitter.Node
		if name != "default" {
			alias = at
		}
		w.exp = exportCtx{on: true, def: name == "default"}
		w.classDecl(value, scope, alias)
	case isFunctionNode(value):
		posNode := at
		if fn := value.ChildByFieldName("name"); fn != nil && name == "default" {
			posNode = fn
		}
		sym := w.declare(posNode, name, symbols.Function)
		if ret := value.ChildByFieldName("return_type"); ret != nil {
			sym.Returns = w.lowerType(ret, scope)
		}
		w.register(sym)
		w.addExport(&symbols.Export{Name: name, Symbol: sym})
		w.functionBody(value, scope, sym, nil)
	default:
		// Unreported: only carries the value's type to importers.
		sym := &symbols.Symbol{
			Name:   name,
			Kind:   symbols.Variable,
			File:   w.f,
			Pos:    w.pos(at),
			Parent: w.decl,
			Init:   w.lower(value, scope),
		}
		w.addExport(&symbols.Export{Name: name, Symbol: sym})
		w.node(value, scope)
	}
}

// assignment handles plain assignments, recognizing CommonJS exports.
func (w *walker) assignment(n *sitter.Node, scope *symbols.Scope) {
	left := n.ChildByFieldName("left")
	right := n.ChildByFieldName("right")
	name, at, ok := w.commonJSTarget(left)
	if !ok || right == nil {
		w.children(n, scope)
		return
	}
	w.f.CommonJS = true
	if at == nil {
		at = right
	}
	w.exportValue(right, at, name, scope)
	if name == "default" && right.Type() == "object" {
		w.exportObject(right, scope)
	}
}

// commonJSTarget matches `module.exports`, `exports.x` and
// `module.exports.x`. It returns the export name and the node naming it.
func (w *walker) commonJSTarget(left *sitter.Node) (string, *sitter.Node, bool) {
	if left == nil || left.Type() != "member_expression" {
		return "", nil, false
	}
	obj := left.ChildByFieldName("object")
	prop := left.ChildByFieldName("property")
	if obj == nil || prop == nil {
		return "", nil, false
	}
	if obj.Type() == "identifier" && w.text(obj) == "module" && w.text(prop) == "exports" {
		return "default", nil, true
	}
	if isExportsObject(w, obj) {
		return w.text(prop), prop, true
	}
	return "", nil, false
}

func isExportsObject(w *walker, n *sitter.Node) bool {
	switch n.Type() {
	case "identifier":
		return w.text(n) == "exports"
	case "member_expression":
		obj := n.ChildByFieldName("object")
		prop := n.ChildByFieldName("property")
		return obj != nil && prop != nil && obj.Type() == "identifier" &&
			w.text(obj) == "module" && w.text(prop) == "exports"
	}
	return false
}

// exportObject exports the properties of `module.exports = { ... }` that
// name local bindings.
func (w *walker) exportObject(obj *sitter.Node, scope *symbols.Scope) {
	for i := 0; i < int(obj.NamedChildCount()); i++ {
		p := obj.NamedChild(i)
		switch p.Type() {
		case "shorthand_property_identifier":
			w.addExport(&symbols.Export{Name: w.text(p), Local: w.text(p), Scope: scope})
		case "pair":
			key, value := p.ChildByFieldName("key"), p.ChildByFieldName("value")
			if key == nil || value == nil || value.Type() != "identifier" {
				continue
			}
			name, ok := w.memberName(key)
			if ok {
				w.addExport(&symbols.Export{Name: name, Local: w.text(value), Scope: scope})
			}
		}
	}
}

// requireCall matches `require("x")` and `require("x").name`.
func (w *walker) requireCall(n *sitter.Node) (spec, member string, ok bool) {
	if n == nil {
		return "", "", false
	}
	if n.Type() == "member_expression" {
		obj, prop := n.ChildByFieldName("object"), n.ChildByFieldName("property")
		if obj == nil || prop == nil || obj.Type() != "call_expression" {
			return "", "", false
		}
		spec, _, ok := w.requireCall(obj)
		return spec, w.text(prop), ok
	}
	if n.Type() != "call_expression" {
		return "", "", false
	}
	fn := n.ChildByFieldName("function")
	args := n.ChildByFieldName("arguments")
	if fn == nil || args == nil || fn.Type() != "identifier" || w.text(fn) != "require" {
		return "", "", false
	}
	if args.NamedChildCount() != 1 || args.NamedChild(0).Type() != "string" {
		return "", "", false
	}
	return unquote(w.text(args.NamedChild(0))), "", true
}

// requireBinding binds the names a require() declarator introduces.
func (w *walker) requireBinding(name *sitter.Node, spec, member string, scope *symbols.Scope) {
	switch name.Type() {
	case "identifier":
		imported := "*"
		if member != "" {
			imported = member
		}
		w.addImport(&symbols.Import{Local: w.text(name), Name: imported, Source: spec, Require: true}, scope)
	case "object_pattern":
		if member != "" {
			return
		}
		for i := 0; i < int(name.NamedChildCount()); i++ {
			p := name.NamedChild(i)
			switch p.Type() {
			case "shorthand_property_identifier_pattern":
				w.addImport(&symbols.Import{Local: w.text(p), Name: w.text(p), Source: spec, Require: true}, scope)
			case "pair_pattern":
				key, value := p.ChildByFieldName("key"), p.ChildByFieldName("value")
				if key == nil || value == nil || value.Type() != "identifier" {
					continue
				}
				if k, ok := w.memberName(key); ok {
					w.addImport(&symbols.Import{Local: w.text(value), Name: k, Source: spec, Require: true}, scope)
				}
			}
		}
	}
}
