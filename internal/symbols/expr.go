package symbols

// Expr is the reduced form of an expression or type annotation: just
// enough structure to find the symbol it denotes or the type it produces.
type Expr interface {
	expr()
}

// Ident is a name looked up in Scope. Type selects the type namespace.
type Ident struct {
	Name  string
	Scope *Scope
	Type  bool
}

// This is `this`. Class is nil outside classes.
type This struct {
	Class  *Symbol
	Static bool
}

// Super is `super` inside Class.
type Super struct {
	Class  *Symbol
	Static bool
}

// Member is `Object.Name`, for values and qualified type names alike.
type Member struct {
	Object Expr
	Name   string
}

// Call is a call of Fn.
type Call struct {
	Fn Expr
}

// New is `new Ctor(...)`.
type New struct {
	Ctor Expr
}

// Typed is an expression whose type is stated by a cast, such as
// `x as Foo`.
type Typed struct {
	Type Expr
}

func (*Ident) expr()  {}
func (*This) expr()   {}
func (*Super) expr()  {}
func (*Member) expr() {}
func (*Call) expr()   {}
func (*New) expr()    {}
func (*Typed) expr()  {}
