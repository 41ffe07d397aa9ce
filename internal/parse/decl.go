package parse

import (
	sitter "github.com/smacker/go-tree-sitter"

	"github.com/phobologic/deptrack/internal/symbols"
)

// function handles function declarations, signatures and expressions.
func (w *walker) function(n *sitter.Node, scope *symbols.Scope, isDecl bool) {
	exp := w.takeExport()
	var sym *symbols.Symbol
	if name := n.ChildByFieldName("name"); isDecl && name != nil {
		sym = w.declare(name, w.text(name), symbols.Function)
		scope.Declare(sym)
		w.register(sym)
		w.export(exp, sym, scope, true)
	}
	w.functionBody(n, scope, sym, nil)
}

// functionBody walks the parameters, return type and body of a function
// like node. sym, if set, becomes the enclosing declaration and receives
// the return type; ctor is the class of a constructor.
func (w *walker) functionBody(n *sitter.Node, scope *symbols.Scope, sym *symbols.Symbol, ctor *symbols.Symbol) {
	fs := symbols.NewScope(scope, true)
	if n.Type() == "function_expression" || n.Type() == "function" {
		if name := n.ChildByFieldName("name"); name != nil {
			w.local(name, symbols.Variable, fs, nil, nil)
		}
	}

	saved := *w
	if sym != nil {
		w.decl = sym
	}
	w.owner = nil
	w.doc, w.loose = nil, nil
	switch n.Type() {
	case "function_declaration", "generator_function_declaration", "function_expression",
		"function", "generator_function", "function_signature":
		w.class = nil
	}

	w.typeParams(n.ChildByFieldName("type_parameters"), fs)
	if p := n.ChildByFieldName("parameter"); p != nil {
		w.local(p, symbols.Parameter, fs, nil, nil)
	}
	w.params(n.ChildByFieldName("parameters"), fs, ctor)
	if ret := n.ChildByFieldName("return_type"); ret != nil {
		if sym != nil {
			sym.Returns = w.lowerType(ret, fs)
		}
		w.node(ret, fs)
	}
	if body := n.ChildByFieldName("body"); body != nil {
		if body.Type() == "statement_block" {
			w.children(body, fs)
		} else {
			w.node(body, fs)
		}
	}

	w.decl, w.class, w.static, w.owner = saved.decl, saved.class, saved.static, saved.owner
}

// signatureType walks function and constructor types so their parameter
// names are not mistaken for references.
func (w *walker) signatureType(n *sitter.Node, scope *symbols.Scope) {
	fs := symbols.NewScope(scope, true)
	w.typeParams(n.ChildByFieldName("type_parameters"), fs)
	w.params(n.ChildByFieldName("parameters"), fs, nil)
	w.node(n.ChildByFieldName("return_type"), fs)
	w.node(n.ChildByFieldName("type"), fs)
}

func (w *walker) typeParams(n *sitter.Node, scope *symbols.Scope) {
	if n == nil {
		return
	}
	for i := 0; i < int(n.NamedChildCount()); i++ {
		tp := n.NamedChild(i)
		if tp.Type() != "type_parameter" {
			continue
		}
		name := tp.ChildByFieldName("name")
		if name == nil {
			name = firstNamed(tp, "type_identifier")
		}
		if name != nil {
			w.local(name, symbols.TypeParameter, scope, nil, nil)
		}
		w.childrenExcept(tp, scope, name)
	}
}

// params binds formal parameters in scope. Inside a constructor, TS
// parameter properties also become members of ctor.
func (w *walker) params(n *sitter.Node, scope *symbols.Scope, ctor *symbols.Symbol) {
	if n == nil {
		return
	}
	var run []symbols.Comment
	for i := 0; i < int(n.NamedChildCount()); i++ {
		p := n.NamedChild(i)
		switch p.Type() {
		case "comment":
			run = append(run, w.comment(p))
			continue
		case "decorator":
			w.node(p, scope)
			continue
		case "required_parameter", "optional_parameter":
			w.tsParam(p, scope, ctor, run)
		case "identifier":
			w.local(p, symbols.Parameter, scope, nil, nil)
		default:
			w.pattern(p, scope, nil)
		}
		run = nil
	}
}

func (w *walker) tsParam(p *sitter.Node, scope *symbols.Scope, ctor *symbols.Symbol, comments []symbols.Comment) {
	pat := p.ChildByFieldName("pattern")
	typeNode := p.ChildByFieldName("type")
	var typ symbols.Expr
	if typeNode != nil {
		typ = w.lowerType(typeNode, scope)
	}

	isProp := ctor != nil && (firstNamed(p, "accessibility_modifier", "override_modifier") != nil || hasToken(p, "readonly"))
	switch {
	case pat == nil || pat.Type() == "this":
	case pat.Type() == "identifier":
		w.local(pat, symbols.Parameter, scope, typ, nil)
		if isProp {
			var doc, loose []symbols.Comment
			for _, c := range comments {
				if isDocComment(c.Text) {
					doc = append(doc, c)
				} else {
					loose = append(loose, c)
				}
			}
			prop := &symbols.Symbol{
				Name:   w.text(pat),
				Kind:   symbols.Property,
				File:   w.f,
				Pos:    w.pos(pat),
				Parent: ctor,
				Doc:    doc,
				Loose:  loose,
				Type:   typ,
			}
			if ctor.AddMember(prop) == prop {
				w.register(prop)
			}
		}
	default:
		var init symbols.Expr
		if typ != nil {
			init = &symbols.Typed{Type: typ}
		}
		w.pattern(pat, scope, init)
	}
	w.node(typeNode, scope)
	w.node(p.ChildByFieldName("value"), scope)
}

// pattern binds the names of a destructuring pattern. init is the value
// being destructured; each property taken from it is also a member
// reference.
func (w *walker) pattern(n *sitter.Node, scope *symbols.Scope, init symbols.Expr) {
	if n == nil {
		return
	}
	switch n.Type() {
	case "identifier":
		w.local(n, symbols.Variable, scope, nil, init)
	case "shorthand_property_identifier_pattern":
		var val symbols.Expr
		if init != nil {
			val = &symbols.Member{Object: init, Name: w.text(n)}
			w.ref(n, val)
		}
		w.local(n, symbols.Variable, scope, nil, val)
	case "object_pattern", "array_pattern":
		var elem symbols.Expr
		if n.Type() == "object_pattern" {
			elem = init
		}
		for i := 0; i < int(n.NamedChildCount()); i++ {
			w.pattern(n.NamedChild(i), scope, elem)
		}
	case "pair_pattern":
		key := n.ChildByFieldName("key")
		var val symbols.Expr
		if key != nil && key.Type() == "property_identifier" && init != nil {
			val = &symbols.Member{Object: init, Name: w.text(key)}
			w.ref(key, val)
		} else if key != nil {
			w.node(key, scope)
		}
		w.pattern(n.ChildByFieldName("value"), scope, val)
	case "object_assignment_pattern", "assignment_pattern":
		w.pattern(n.ChildByFieldName("left"), scope, init)
		w.node(n.ChildByFieldName("right"), scope)
	case "rest_pattern":
		for i := 0; i < int(n.NamedChildCount()); i++ {
			w.pattern(n.NamedChild(i), scope, nil)
		}
	case "comment":
	default:
		w.node(n, scope)
	}
}

// classDecl handles class declarations and expressions. alias names an
// anonymous class expression bound to a variable or export.
func (w *walker) classDecl(n *sitter.Node, scope *symbols.Scope, alias *sitter.Node) *symbols.Symbol {
	exp := w.takeExport()
	nameNode := n.ChildByFieldName("name")
	isDecl := n.Type() != "class"

	cs := symbols.NewScope(scope, false)
	var sym *symbols.Symbol
	switch {
	case nameNode != nil:
		sym = w.declare(nameNode, w.text(nameNode), symbols.Class)
	case alias != nil:
		sym = w.declare(alias, w.text(alias), symbols.Class)
	case exp.on && exp.def:
		sym = w.declare(n, "default", symbols.Class)
	default:
		sym = &symbols.Symbol{Kind: symbols.Class, File: w.f, Pos: w.pos(n), Parent: w.decl}
	}
	if sym.Name != "" {
		w.register(sym)
	}

	switch {
	case isDecl:
		scope.Declare(sym)
		w.export(exp, sym, scope, true)
	case nameNode != nil:
		cs.Declare(sym)
		w.export(exp, sym, scope, false)
	case sym.Name != "":
		w.export(exp, sym, scope, false)
	}

	for i := 0; i < int(n.NamedChildCount()); i++ {
		if c := n.NamedChild(i); c.Type() == "decorator" {
			w.node(c, scope)
		}
	}
	w.typeParams(n.ChildByFieldName("type_parameters"), cs)
	if h := firstNamed(n, "class_heritage"); h != nil {
		w.heritage(h, cs, sym)
	}

	saved := *w
	w.decl, w.class, w.owner, w.static = sym, sym, sym, false
	w.ns, w.ambient = nil, false
	if body := n.ChildByFieldName("body"); body != nil {
		w.children(body, cs)
	}
	w.decl, w.class, w.owner, w.static = saved.decl, saved.class, saved.owner, saved.static
	w.ns, w.ambient = saved.ns, saved.ambient
	return sym
}

func (w *walker) heritage(h *sitter.Node, scope *symbols.Scope, sym *symbols.Symbol) {
	for i := 0; i < int(h.NamedChildCount()); i++ {
		c := h.NamedChild(i)
		switch c.Type() {
		case "extends_clause":
			if v := c.ChildByFieldName("value"); v != nil {
				sym.Extends = w.lower(v, scope)
			}
			w.children(c, scope)
		case "implements_clause":
			for j := 0; j < int(c.NamedChildCount()); j++ {
				if t := w.lowerType(c.NamedChild(j), scope); t != nil {
					sym.Heritage = append(sym.Heritage, t)
				}
			}
			w.children(c, scope)
		case "comment":
		default:
			// JavaScript: `extends <expression>` directly.
			if sym.Extends == nil {
				sym.Extends = w.lower(c, scope)
			}
			w.node(c, scope)
		}
	}
}

// memberName returns the name of a member and whether it is a plain name.
func (w *walker) memberName(n *sitter.Node) (string, bool) {
	if n == nil {
		return "", false
	}
	switch n.Type() {
	case "property_identifier", "private_property_identifier", "identifier", "number":
		return w.text(n), true
	case "string":
		return unquote(w.text(n)), true
	}
	return "", false
}

// method handles methods, accessors and method signatures.
func (w *walker) method(n *sitter.Node, scope *symbols.Scope) {
	nameNode := n.ChildByFieldName("name")
	name, ok := w.memberName(nameNode)
	owner := w.owner
	if !ok {
		w.node(nameNode, scope)
	}
	if owner == nil || !ok {
		w.functionBody(n, scope, nil, nil)
		return
	}
	if name == "constructor" && n.Type() == "method_definition" {
		w.functionBody(n, scope, nil, owner)
		return
	}

	kind := symbols.Method
	accessor := hasToken(n, "get") || hasToken(n, "set")
	if accessor {
		kind = symbols.Property
	}
	sym := w.declare(nameNode, name, kind)
	sym.Static = hasToken(n, "static")
	sym.Accessor = accessor
	if merged := owner.AddMember(sym); merged == sym {
		w.register(sym)
	} else {
		sym = merged
	}

	static := w.static
	w.static = sym.Static
	w.functionBody(n, scope, sym, nil)
	w.static = static
}

// field handles class fields and interface property signatures.
func (w *walker) field(n *sitter.Node, scope *symbols.Scope) {
	nameNode := n.ChildByFieldName("name")
	if nameNode == nil {
		nameNode = n.ChildByFieldName("property")
	}
	name, ok := w.memberName(nameNode)
	typeNode := n.ChildByFieldName("type")
	value := n.ChildByFieldName("value")

	var sym *symbols.Symbol
	if w.owner != nil && ok {
		sym = w.declare(nameNode, name, symbols.Property)
		sym.Static = hasToken(n, "static")
		if typeNode != nil {
			sym.Type = w.lowerType(typeNode, scope)
		}
		if value != nil {
			sym.Init = w.lower(value, scope)
			sym.FuncValue = isFunctionNode(value)
		}
		if w.owner.AddMember(sym) == sym {
			w.register(sym)
		}
	} else if !ok {
		w.node(nameNode, scope)
	}

	saved := *w
	if sym != nil {
		w.decl = sym
		w.static = sym.Static
	}
	w.owner = nil
	w.node(typeNode, scope)
	w.node(value, scope)
	for i := 0; i < int(n.NamedChildCount()); i++ {
		if c := n.NamedChild(i); c.Type() == "decorator" {
			w.node(c, scope)
		}
	}
	w.decl, w.static, w.owner = saved.decl, saved.static, saved.owner
}

func (w *walker) iface(n *sitter.Node, scope *symbols.Scope) {
	exp := w.takeExport()
	nameNode := n.ChildByFieldName("name")
	if nameNode == nil {
		return
	}
	sym := w.declare(nameNode, w.text(nameNode), symbols.Interface)
	scope.Declare(sym)
	w.register(sym)
	w.export(exp, sym, scope, true)

	cs := symbols.NewScope(scope, false)
	w.typeParams(n.ChildByFieldName("type_parameters"), cs)
	if ext := firstNamed(n, "extends_type_clause"); ext != nil {
		for i := 0; i < int(ext.NamedChildCount()); i++ {
			if t := w.lowerType(ext.NamedChild(i), cs); t != nil {
				sym.Heritage = append(sym.Heritage, t)
			}
		}
		w.children(ext, cs)
	}

	saved := *w
	w.decl, w.owner, w.class = sym, sym, nil
	w.children(n.ChildByFieldName("body"), cs)
	w.decl, w.owner, w.class = saved.decl, saved.owner, saved.class
}

func (w *walker) typeAlias(n *sitter.Node, scope *symbols.Scope) {
	exp := w.takeExport()
	nameNode := n.ChildByFieldName("name")
	if nameNode == nil {
		return
	}
	sym := w.declare(nameNode, w.text(nameNode), symbols.TypeAlias)
	scope.Declare(sym)
	w.register(sym)
	w.export(exp, sym, scope, true)

	cs := symbols.NewScope(scope, false)
	w.typeParams(n.ChildByFieldName("type_parameters"), cs)
	value := n.ChildByFieldName("value")
	if value != nil {
		sym.Type = w.lowerType(value, cs)
	}
	saved := *w
	w.decl, w.owner = sym, nil
	w.node(value, cs)
	w.decl, w.owner = saved.decl, saved.owner
}

func (w *walker) enum(n *sitter.Node, scope *symbols.Scope) {
	exp := w.takeExport()
	nameNode := n.ChildByFieldName("name")
	if nameNode == nil {
		return
	}
	sym := w.declare(nameNode, w.text(nameNode), symbols.Enum)
	scope.Declare(sym)
	w.register(sym)
	w.export(exp, sym, scope, true)
	w.children(n.ChildByFieldName("body"), scope)
}

// namespace handles `namespace N {}` and ambient `declare module "x" {}`.
func (w *walker) namespace(n *sitter.Node, scope *symbols.Scope) {
	exp := w.takeExport()
	nameNode := n.ChildByFieldName("name")
	body := n.ChildByFieldName("body")
	inner := symbols.NewScope(scope, true)

	saved := *w
	if nameNode == nil || nameNode.Type() == "string" {
		w.ns, w.ambient = nil, true
	} else {
		sym := w.declare(nameNode, w.text(nameNode), symbols.Namespace)
		scope.Declare(sym)
		w.register(sym)
		w.export(exp, sym, scope, true)
		w.decl, w.ns, w.ambient = sym, sym, false
	}
	if body != nil {
		w.children(body, inner)
	}
	w.decl, w.ns, w.ambient = saved.decl, saved.ns, saved.ambient
}

// variables handles var, let and const declarations.
func (w *walker) variables(n *sitter.Node, scope *symbols.Scope) {
	exp := w.takeExport()
	target := scope
	if n.Type() == "variable_declaration" {
		target = scope.FunctionScope()
	}
	for i := 0; i < int(n.NamedChildCount()); i++ {
		d := n.NamedChild(i)
		if d.Type() == "variable_declarator" {
			w.declarator(d, scope, target, exp)
		}
	}
}

func (w *walker) declarator(d *sitter.Node, scope, target *symbols.Scope, exp exportCtx) {
	name := d.ChildByFieldName("name")
	typeNode := d.ChildByFieldName("type")
	value := d.ChildByFieldName("value")
	if name == nil {
		return
	}

	if spec, member, ok := w.requireCall(value); ok {
		w.requireBinding(name, spec, member, target)
		return
	}

	if name.Type() != "identifier" {
		var init symbols.Expr
		switch {
		case value != nil:
			init = w.lower(value, scope)
		case typeNode != nil:
			init = &symbols.Typed{Type: w.lowerType(typeNode, scope)}
		}
		w.node(typeNode, scope)
		w.node(value, scope)
		w.pattern(name, target, init)
		return
	}

	if value != nil && value.Type() == "class" && value.ChildByFieldName("name") == nil {
		w.exp = exp
		sym := w.classDecl(value, scope, name)
		target.Declare(sym)
		return
	}

	sym := w.declare(name, w.text(name), symbols.Variable)
	if typeNode != nil {
		sym.Type = w.lowerType(typeNode, scope)
	}
	if value != nil {
		sym.Init = w.lower(value, scope)
		if isFunctionNode(value) {
			sym.FuncValue = true
			if ret := value.ChildByFieldName("return_type"); ret != nil {
				sym.Returns = w.lowerType(ret, scope)
			}
		}
	}
	target.Declare(sym)
	w.register(sym)
	w.export(exp, sym, target, true)

	saved := w.decl
	w.decl = sym
	w.node(typeNode, scope)
	w.node(value, scope)
	w.decl = saved
}

func isFunctionNode(n *sitter.Node) bool {
	switch n.Type() {
	case "arrow_function", "function_expression", "function", "generator_function":
		return true
	}
	return false
}

func (w *walker) forIn(n *sitter.Node, scope *symbols.Scope) {
	inner := symbols.NewScope(scope, false)
	left := n.ChildByFieldName("left")
	declared := hasToken(n, "const") || hasToken(n, "let") || hasToken(n, "var")
	w.node(n.ChildByFieldName("right"), scope)
	if declared {
		target := inner
		if hasToken(n, "var") {
			target = scope.FunctionScope()
		}
		w.pattern(left, target, nil)
	} else {
		w.node(left, scope)
	}
	w.node(n.ChildByFieldName("body"), inner)
}

func (w *walker) catch(n *sitter.Node, scope *symbols.Scope) {
	inner := symbols.NewScope(scope, false)
	w.pattern(n.ChildByFieldName("parameter"), inner, nil)
	w.node(n.ChildByFieldName("type"), inner)
	w.node(n.ChildByFieldName("body"), inner)
}
