// Package parse extracts declarations, references and module bindings from
// TypeScript and JavaScript sources using tree-sitter.
//
// Extraction is a single pre-order walk per file. The result holds no
// tree-sitter nodes, so the tree is released before linking.
package parse

import (
	"context"
	"fmt"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/phobologic/deptrack/internal/lang"
	"github.com/phobologic/deptrack/internal/symbols"
)

// Inline suppression directives.
const (
	DisableNextLine = "deptrack-disable-next-line"
	DisableLine     = "deptrack-disable-line"
	DisableFile     = "deptrack-disable-file"
)

// SyntaxError reports the first error node of a file that failed to parse.
type SyntaxError struct {
	Path   string
	Line   int
	Column int
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("%s:%d:%d: syntax error", e.Path, e.Line, e.Column)
}

// Extract parses source and returns its symbol file. path is absolute and
// name is the root-relative display name. The parser must be created for
// l and must not be shared across goroutines.
func Extract(ctx context.Context, l *lang.Language, parser *sitter.Parser, source []byte, path, name string) (*symbols.File, error) {
	f := symbols.NewFile(path, name, l.Name)
	if len(source) == 0 {
		return f, nil
	}

	tree, err := parser.ParseCtx(ctx, nil, source)
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", name, err)
	}
	defer tree.Close()

	root := tree.RootNode()
	if root.HasError() {
		se := &SyntaxError{Path: name, Line: 1}
		if n := firstError(root); n != nil {
			se.Line = int(n.StartPoint().Row) + 1
			se.Column = int(n.StartPoint().Column)
		}
		return nil, se
	}

	if err := scanDirectives(l, root, source, f); err != nil {
		return nil, err
	}

	w := &walker{src: source, f: f}
	w.children(root, f.Module)
	return f, nil
}

func firstError(n *sitter.Node) *sitter.Node {
	if n.Type() == "ERROR" || n.IsMissing() {
		return n
	}
	for i := 0; i < int(n.ChildCount()); i++ {
		c := n.Child(i)
		if c == nil || (!c.HasError() && !c.IsMissing()) {
			continue
		}
		if e := firstError(c); e != nil {
			return e
		}
	}
	return nil
}

// scanDirectives records inline suppression comments anywhere in the file.
func scanDirectives(l *lang.Language, root *sitter.Node, source []byte, f *symbols.File) error {
	q, err := l.CommentQuery()
	if err != nil {
		return err
	}
	qc := sitter.NewQueryCursor()
	defer qc.Close()
	qc.Exec(q, root)

	for {
		match, ok := qc.NextMatch()
		if !ok {
			break
		}
		for _, c := range match.Captures {
			text := lang.NodeText(c.Node, source)
			switch {
			case strings.Contains(text, DisableFile):
				f.DisableFile = true
			case strings.Contains(text, DisableNextLine):
				f.DisabledLines[int(c.Node.EndPoint().Row)+2] = true
			case strings.Contains(text, DisableLine):
				f.DisabledLines[int(c.Node.StartPoint().Row)+1] = true
			}
		}
	}
	return nil
}

// exportCtx describes the export statement currently being walked.
type exportCtx struct {
	on  bool
	def bool
}

type walker struct {
	src []byte
	f   *symbols.File

	// decl is the innermost declaration being walked.
	decl *symbols.Symbol
	// class is the class `this` refers to; static selects its static side.
	class  *symbols.Symbol
	static bool
	// owner receives member declarations (class or interface bodies).
	owner *symbols.Symbol
	// ns receives exported declarations inside a namespace body; ambient
	// is set inside `declare module "x"` blocks, whose exports are dropped.
	ns      *symbols.Symbol
	ambient bool

	exp exportCtx

	// doc and loose are the comments preceding the statement being walked;
	// the first declaration created takes them.
	doc      []symbols.Comment
	loose    []symbols.Comment
	consumed bool
}

// children walks the named children of n in order, tracking the comment
// runs that precede each child.
func (w *walker) children(n *sitter.Node, scope *symbols.Scope) {
	var run, stray []symbols.Comment
	for i := 0; i < int(n.NamedChildCount()); i++ {
		c := n.NamedChild(i)
		switch c.Type() {
		case "comment":
			run = append(run, w.comment(c))
			continue
		case "decorator":
			w.node(c, scope)
			continue
		}

		var doc, loose []symbols.Comment
		loose = append(loose, stray...)
		for _, cm := range run {
			if isDocComment(cm.Text) {
				doc = append(doc, cm)
			} else {
				loose = append(loose, cm)
			}
		}
		w.doc, w.loose, w.consumed = doc, loose, false
		w.node(c, scope)
		if w.consumed {
			stray = nil
		} else {
			stray = append(stray, run...)
		}
		run = nil
		w.doc, w.loose = nil, nil
	}
}

// childrenExcept walks every named child of n other than skip.
func (w *walker) childrenExcept(n *sitter.Node, scope *symbols.Scope, skip *sitter.Node) {
	for i := 0; i < int(n.NamedChildCount()); i++ {
		if c := n.NamedChild(i); !sameNode(c, skip) {
			w.node(c, scope)
		}
	}
}

func sameNode(a, b *sitter.Node) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.StartByte() == b.StartByte() && a.EndByte() == b.EndByte() && a.Type() == b.Type()
}

func (w *walker) comment(n *sitter.Node) symbols.Comment {
	return symbols.Comment{Text: w.text(n), Line: int(n.StartPoint().Row) + 1}
}

func isDocComment(text string) bool {
	return strings.HasPrefix(text, "/**") && text != "/**/"
}

// node dispatches on the node type.
func (w *walker) node(n *sitter.Node, scope *symbols.Scope) {
	if n == nil {
		return
	}
	switch n.Type() {
	case "comment", "jsx_closing_element", "property_identifier", "private_property_identifier",
		"statement_identifier", "string", "number", "regex":
		return

	case "identifier", "shorthand_property_identifier":
		w.ref(n, &symbols.Ident{Name: w.text(n), Scope: scope})
	case "type_identifier":
		w.ref(n, &symbols.Ident{Name: w.text(n), Scope: scope, Type: true})
	case "member_expression":
		w.member(n, scope)
	case "nested_type_identifier":
		w.nestedType(n, scope)
	case "nested_identifier":
		w.nestedIdent(n, scope)

	case "statement_block":
		w.children(n, symbols.NewScope(scope, false))
	case "for_statement":
		w.children(n, symbols.NewScope(scope, false))
	case "for_in_statement":
		w.forIn(n, scope)
	case "catch_clause":
		w.catch(n, scope)
	case "object":
		owner := w.owner
		w.owner = nil
		w.children(n, scope)
		w.owner = owner

	case "function_declaration", "generator_function_declaration", "function_signature":
		w.function(n, scope, true)
	case "function_expression", "function", "generator_function", "arrow_function":
		w.function(n, scope, false)
	case "function_type", "constructor_type", "call_signature", "construct_signature":
		w.signatureType(n, scope)
	case "index_signature":
		w.childrenExcept(n, scope, n.ChildByFieldName("name"))

	case "class_declaration", "abstract_class_declaration", "class":
		w.classDecl(n, scope, nil)
	case "method_definition", "method_signature", "abstract_method_signature":
		w.method(n, scope)
	case "public_field_definition", "field_definition", "property_signature":
		w.field(n, scope)
	case "class_static_block":
		static := w.static
		w.static = true
		w.children(n, scope)
		w.static = static
	case "interface_declaration":
		w.iface(n, scope)
	case "type_alias_declaration":
		w.typeAlias(n, scope)
	case "enum_declaration":
		w.enum(n, scope)
	case "internal_module", "module":
		w.namespace(n, scope)

	case "lexical_declaration", "variable_declaration":
		w.variables(n, scope)
	case "import_statement":
		w.importStmt(n, scope)
	case "export_statement":
		w.exportStmt(n, scope)
	case "expression_statement":
		for i := 0; i < int(n.NamedChildCount()); i++ {
			w.node(n.NamedChild(i), scope)
		}
	case "ambient_declaration":
		for i := 0; i < int(n.NamedChildCount()); i++ {
			w.node(n.NamedChild(i), scope)
		}
	case "assignment_expression":
		w.assignment(n, scope)

	default:
		w.children(n, scope)
	}
}

func (w *walker) text(n *sitter.Node) string {
	return lang.NodeText(n, w.src)
}

func (w *walker) pos(n *sitter.Node) symbols.Position {
	return symbols.Position{
		Line:      int(n.StartPoint().Row) + 1,
		Character: lang.UTF16Column(w.src, int(n.StartByte())),
		Offset:    int(n.StartByte()),
	}
}

func (w *walker) ref(n *sitter.Node, x symbols.Expr) {
	name := w.text(n)
	if name == "" {
		return
	}
	w.f.Refs = append(w.f.Refs, &symbols.Ref{
		Name:      name,
		File:      w.f,
		Pos:       w.pos(n),
		Expr:      x,
		Enclosing: w.decl,
	})
}

// declare creates a declaration symbol named by n and hands it the pending
// comments. The caller binds and registers it.
func (w *walker) declare(n *sitter.Node, name string, kind symbols.Kind) *symbols.Symbol {
	s := &symbols.Symbol{
		Name:   name,
		Kind:   kind,
		File:   w.f,
		Pos:    w.pos(n),
		Parent: w.decl,
		Doc:    w.doc,
		Loose:  w.loose,
	}
	w.doc, w.loose = nil, nil
	w.consumed = true
	return s
}

func (w *walker) register(s *symbols.Symbol) {
	w.f.Symbols = append(w.f.Symbols, s)
}

// local binds a parameter-like name that is never reported.
func (w *walker) local(n *sitter.Node, kind symbols.Kind, scope *symbols.Scope, typ, init symbols.Expr) *symbols.Symbol {
	s := &symbols.Symbol{
		Name:   w.text(n),
		Kind:   kind,
		File:   w.f,
		Pos:    w.pos(n),
		Parent: w.decl,
		Type:   typ,
		Init:   init,
	}
	scope.Declare(s)
	return s
}

// takeExport returns and clears the pending export context.
func (w *walker) takeExport() exportCtx {
	exp := w.exp
	w.exp = exportCtx{}
	return exp
}

// export records s as exported under exp.
func (w *walker) export(exp exportCtx, s *symbols.Symbol, scope *symbols.Scope, bound bool) {
	if !exp.on || w.ambient {
		return
	}
	if w.ns != nil {
		s.Static = true
		w.ns.AddMember(s)
		return
	}
	ex := &symbols.Export{Name: s.Name}
	if exp.def {
		ex.Name = "default"
	}
	if bound {
		ex.Local, ex.Scope = s.Name, scope
	} else {
		ex.Symbol = s
	}
	w.f.Exports = append(w.f.Exports, ex)
}

func hasToken(n *sitter.Node, tok string) bool {
	for i := 0; i < int(n.ChildCount()); i++ {
		c := n.Child(i)
		if !c.IsNamed() && c.Type() == tok {
			return true
		}
	}
	return false
}

func firstNamed(n *sitter.Node, types ...string) *sitter.Node {
	for i := 0; i < int(n.NamedChildCount()); i++ {
		c := n.NamedChild(i)
		if len(types) == 0 && c.Type() != "comment" {
			return c
		}
		for _, t := range types {
			if c.Type() == t {
				return c
			}
		}
	}
	return nil
}

// unquote strips the quotes of a string literal node's text.
func unquote(s string) string {
	if len(s) >= 2 {
		switch s[0] {
		case '"', '\'', '`':
			if s[len(s)-1] == s[0] {
				return s[1 : len(s)-1]
			}
		}
	}
	return s
}
