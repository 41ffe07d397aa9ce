// Package symbols holds the tree-independent symbol model of a project and
// links references to the declarations they denote.
//
// Files are produced independently (one per source file, in parallel) and
// then merged by Link on a single goroutine. Every expression carried by the
// model captures the lexical scope it was written in, so binding is resolved
// lazily against complete scopes: hoisting and forward references work
// without a second parse.
package symbols

import (
	"fmt"

	"github.com/phobologic/deptrack/internal/model"
)

// Kind is the declaration category of a symbol.
type Kind uint8

const (
	Class Kind = iota + 1
	Interface
	Function
	Method
	Property
	Variable
	Parameter
	TypeParameter
	Enum
	TypeAlias
	Namespace
)

var kindNames = map[Kind]string{
	Class:         "class",
	Interface:     "interface",
	Function:      "function",
	Method:        "method",
	Property:      "property",
	Variable:      "variable",
	Parameter:     "parameter",
	TypeParameter: "type parameter",
	Enum:          "enum",
	TypeAlias:     "type alias",
	Namespace:     "namespace",
}

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return fmt.Sprintf("Kind(%d)", k)
}

// IsType reports whether symbols of kind k live in the type namespace.
func (k Kind) IsType() bool {
	switch k {
	case Class, Interface, TypeParameter, Enum, TypeAlias, Namespace:
		return true
	}
	return false
}

// IsValue reports whether symbols of kind k live in the value namespace.
func (k Kind) IsValue() bool {
	switch k {
	case Class, Function, Method, Property, Variable, Parameter, Enum, Namespace:
		return true
	}
	return false
}

// Comment is a source comment preceding a declaration.
type Comment struct {
	Text string
	Line int // 1-based line of the comment start
}

// Position locates a name in a file.
type Position struct {
	Line      int // 1-based
	Character int // 0-based, UTF-16 code units
	Offset    int // byte offset
}

// Symbol is a named declaration.
type Symbol struct {
	Name string
	Kind Kind
	File *File
	Pos  Position

	// Container is the class, interface or namespace owning a member.
	Container *Symbol
	// Parent is the innermost declaration lexically enclosing this one.
	Parent *Symbol

	Static   bool
	Accessor bool
	// FuncValue marks variables and properties initialized with a function.
	FuncValue bool

	// Doc holds the documentation comments attached to the declaration.
	Doc []Comment
	// Loose holds stray comments preceding the declaration that are not
	// attached documentation.
	Loose []Comment

	Type    Expr // annotated type
	Init    Expr // initializer
	Returns Expr // annotated return type
	// Extends is a class's base class expression. Heritage lists implemented
	// or extended interfaces.
	Extends  Expr
	Heritage []Expr

	// Members and Statics are populated for classes, interfaces and
	// namespaces. Namespace exports are statics.
	Members map[string][]*Symbol
	Statics map[string][]*Symbol
}

// ItemKind maps the symbol to the item kind reported for it, or "" when
// symbols of this kind are never reported.
func (s *Symbol) ItemKind() model.ItemKind {
	switch s.Kind {
	case Class:
		return model.Class
	case Interface:
		return model.Interface
	case Function:
		return model.Function
	case Method:
		return model.Method
	case Property:
		return model.Property
	case Variable:
		if s.FuncValue {
			return model.Function
		}
		return model.Property
	}
	return ""
}

// AddMember registers m as a member of s. Getter and setter pairs collapse
// into a single property symbol; the second accessor's comments are merged
// into the first. It returns the symbol that now represents m.
func (s *Symbol) AddMember(m *Symbol) *Symbol {
	table := &s.Members
	if m.Static {
		table = &s.Statics
	}
	if *table == nil {
		*table = make(map[string][]*Symbol)
	}
	if m.Accessor {
		for _, existing := range (*table)[m.Name] {
			if existing.Accessor {
				existing.Doc = append(existing.Doc, m.Doc...)
				existing.Loose = append(existing.Loose, m.Loose...)
				return existing
			}
		}
	}
	m.Container = s
	(*table)[m.Name] = append((*table)[m.Name], m)
	return m
}

// Scope is a lexical scope.
type Scope struct {
	Parent   *Scope
	Function bool // var declarations hoist to the nearest function scope
	names    map[string]*Binding
}

// NewScope returns a child scope of parent.
func NewScope(parent *Scope, function bool) *Scope {
	return &Scope{Parent: parent, Function: function}
}

// Binding is everything a name is bound to within one scope.
type Binding struct {
	Symbols []*Symbol
	Import  *Import
}

// Declare binds sym in s.
func (s *Scope) Declare(sym *Symbol) {
	b := s.binding(sym.Name)
	b.Symbols = append(b.Symbols, sym)
}

// DeclareImport binds a local name to an import.
func (s *Scope) DeclareImport(imp *Import) {
	s.binding(imp.Local).Import = imp
}

// FunctionScope returns the nearest enclosing function (or module) scope.
func (s *Scope) FunctionScope() *Scope {
	for c := s; c != nil; c = c.Parent {
		if c.Function || c.Parent == nil {
			return c
		}
	}
	return s
}

// Local returns the binding for name in s itself.
func (s *Scope) Local(name string) *Binding {
	return s.names[name]
}

func (s *Scope) binding(name string) *Binding {
	if s.names == nil {
		s.names = make(map[string]*Binding)
	}
	b, ok := s.names[name]
	if !ok {
		b = &Binding{}
		s.names[name] = b
	}
	return b
}

// Import binds a local name to a name exported by another module.
type Import struct {
	Local  string
	Name   string // exported name, "default", or "*" for the namespace
	Source string // module specifier as written
	File   *File
	// Require marks CommonJS require() bindings, which see a module's
	// `module.exports` value rather than its namespace.
	Require bool
}

// Export makes a name visible to importers.
type Export struct {
	Name string // exported name; "default" for default exports
	// Local names a binding in Scope when the export is not a re-export.
	Local string
	Scope *Scope
	// Symbol is set for exports of declarations that bind no local name,
	// such as anonymous default classes.
	Symbol *Symbol
	// From is the re-export source specifier. Imported is the name in that
	// module, or "*" for namespace re-exports.
	From     string
	Imported string
	// Star marks `export * from`.
	Star bool
}

// Ref is a syntactic use of a name as an expression or type.
type Ref struct {
	Name string
	File *File
	Pos  Position
	Expr Expr
	// Enclosing is the innermost declaration containing the reference.
	Enclosing *Symbol

	// Populated by Link.
	Targets []*Symbol
	Trusted bool
}

// File is the extracted symbol information of one source file.
type File struct {
	Path     string // absolute
	Name     string // root-relative, slash-separated
	Language string
	Module   *Scope

	Symbols []*Symbol // discovery order
	Refs    []*Ref
	Imports []*Import
	Exports []*Export

	// CommonJS marks files assigning module.exports. ESModule marks files
	// with a top-level import or export; files with neither are scripts
	// whose top-level declarations are global.
	CommonJS bool
	ESModule bool

	// DisableFile and DisabledLines record inline suppression comments.
	DisableFile   bool
	DisabledLines map[int]bool

	pkg *pkgInfo
}

// NewFile returns an empty file with its module scope.
func NewFile(path, name, language string) *File {
	return &File{
		Path:          path,
		Name:          name,
		Language:      language,
		Module:        NewScope(nil, true),
		DisabledLines: make(map[int]bool),
	}
}

// Script reports whether f is a global script rather than a module.
func (f *File) Script() bool {
	return !f.ESModule && !f.CommonJS && len(f.Imports) == 0
}

// Package returns the workspace package containing the file, or "".
func (f *File) Package() string {
	if f.pkg == nil {
		return ""
	}
	return f.pkg.name
}
