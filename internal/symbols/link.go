package symbols

import (
	"path/filepath"
	"sort"
	"strings"

	"github.com/phobologic/deptrack/internal/discover"
	"github.com/phobologic/deptrack/internal/policy"
)

// maxDepth bounds every recursive resolution step. Deeper chains are
// treated as unresolved.
const maxDepth = 32

// Trust decides whether a module specifier names a trusted package.
type Trust interface {
	IsPackageTrusted(spec string) bool
}

type pkgInfo struct {
	name    string
	dir     string
	entries []string
	trusted bool
}

// Model is the linked symbol graph of a project.
type Model struct {
	Files []*File

	byPath  map[string]*File
	pkgs    []*pkgInfo
	pkgName map[string]*pkgInfo
	trust   Trust

	refsTo  map[*Symbol][]*Ref
	types   map[*Symbol]typ
	pending map[*Symbol]bool
	modules map[moduleKey]moduleRes
}

type moduleKey struct {
	dir  string
	spec string
}

type moduleRes struct {
	file     *File
	external bool
	trusted  bool
}

// entity is what an expression denotes.
type entity struct {
	syms     []*Symbol
	module   *File
	external bool
	trusted  bool
}

func (e entity) found() bool {
	return len(e.syms) > 0 || e.module != nil || e.external
}

// typ is the type an expression produces: a class instance, a class or
// namespace static side, a module namespace, or something external.
type typ struct {
	sym      *Symbol
	static   bool
	module   *File
	external bool
	trusted  bool
}

type namespace uint8

const (
	valueNS namespace = iota
	typeNS
	anyNS
)

// Link merges per-file results and resolves every reference. Files keep
// their given order, which is the discovery order of the scan. trust may
// be nil.
func Link(files []*File, packages []discover.Package, trust Trust) *Model {
	m := &Model{
		Files:   files,
		byPath:  make(map[string]*File, len(files)),
		pkgName: make(map[string]*pkgInfo, len(packages)),
		trust:   trust,
		refsTo:  make(map[*Symbol][]*Ref),
		types:   make(map[*Symbol]typ),
		pending: make(map[*Symbol]bool),
		modules: make(map[moduleKey]moduleRes),
	}
	for _, f := range files {
		m.byPath[filepath.Clean(f.Path)] = f
	}
	for _, p := range packages {
		info := &pkgInfo{
			name:    p.Name,
			dir:     filepath.Clean(p.Dir),
			entries: p.Entries,
			trusted: trust != nil && trust.IsPackageTrusted(p.Name),
		}
		m.pkgs = append(m.pkgs, info)
		if _, dup := m.pkgName[p.Name]; !dup {
			m.pkgName[p.Name] = info
		}
	}
	// Deepest directories first so nested packages win.
	sort.SliceStable(m.pkgs, func(i, j int) bool {
		return len(m.pkgs[i].dir) > len(m.pkgs[j].dir)
	})
	global := NewScope(nil, true)
	for _, f := range files {
		f.pkg = m.packageOf(f.Path)
		f.Module.Parent = global
		if f.Script() {
			for _, b := range f.Module.names {
				for _, s := range b.Symbols {
					global.Declare(s)
				}
			}
		}
	}

	for _, f := range files {
		for _, r := range f.Refs {
			r.Targets, r.Trusted = m.resolveRef(r)
			for _, s := range r.Targets {
				m.refsTo[s] = append(m.refsTo[s], r)
			}
		}
	}
	return m
}

// ReferencesTo returns the references bound to sym, in discovery order.
func (m *Model) ReferencesTo(sym *Symbol) []*Ref {
	return m.refsTo[sym]
}

// Trusted reports whether f belongs to a trusted workspace package.
func (m *Model) Trusted(f *File) bool {
	return f.pkg != nil && f.pkg.trusted
}

// File returns the file at the absolute path, or nil.
func (m *Model) File(path string) *File {
	return m.byPath[filepath.Clean(path)]
}

// Suppressed reports whether an inline directive disables items on line
// of the file at path.
func (m *Model) Suppressed(path string, line int) bool {
	f := m.File(path)
	return f != nil && (f.DisableFile || f.DisabledLines[line])
}

// ResolveModule returns the project file a specifier imports from the file
// from, or nil for external or unresolvable specifiers.
func (m *Model) ResolveModule(from *File, spec string) *File {
	return m.resolveModule(from, spec).file
}

func (m *Model) packageOf(path string) *pkgInfo {
	for _, p := range m.pkgs {
		rel, err := filepath.Rel(p.dir, path)
		if err == nil && rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
			return p
		}
	}
	return nil
}

func (m *Model) resolveRef(r *Ref) ([]*Symbol, bool) {
	e := m.denote(r.Expr, 0)
	trusted := e.trusted
	for _, s := range e.syms {
		if m.Trusted(s.File) {
			trusted = true
		}
	}
	return e.syms, trusted
}

// denote returns the declarations an expression names.
func (m *Model) denote(x Expr, d int) entity {
	if d > maxDepth {
		return entity{}
	}
	switch x := x.(type) {
	case *Ident:
		ns := valueNS
		if x.Type {
			ns = typeNS
		}
		return m.lookup(x.Scope, x.Name, ns, d+1)
	case *Member:
		return m.member(m.typeOf(x.Object, d+1), x.Name, d+1)
	}
	return entity{}
}

func (m *Model) lookup(scope *Scope, name string, ns namespace, d int) entity {
	for s := scope; s != nil; s = s.Parent {
		b := s.Local(name)
		if b == nil {
			continue
		}
		var syms []*Symbol
		for _, sym := range b.Symbols {
			if ns == anyNS || (ns == typeNS && sym.Kind.IsType()) || (ns == valueNS && sym.Kind.IsValue()) {
				syms = append(syms, sym)
			}
		}
		if len(syms) > 0 {
			return entity{syms: syms}
		}
		if b.Import != nil {
			return m.resolveImport(b.Import, d+1)
		}
	}
	return entity{}
}

func (m *Model) resolveImport(imp *Import, d int) entity {
	res := m.resolveModule(imp.File, imp.Source)
	switch {
	case res.external:
		return entity{external: true, trusted: res.trusted}
	case res.file == nil:
		return entity{}
	case imp.Require && imp.Name == "*":
		if res.file.CommonJS {
			if e := m.resolveExport(res.file, "default", d+1, map[*File]bool{}); e.found() {
				e.trusted = e.trusted || res.trusted
				return e
			}
		}
		return entity{module: res.file, trusted: res.trusted}
	case imp.Require:
		return m.member(typ{module: res.file, trusted: res.trusted}, imp.Name, d+1)
	case imp.Name == "*":
		return entity{module: res.file, trusted: res.trusted}
	}
	e := m.resolveExport(res.file, imp.Name, d+1, map[*File]bool{})
	e.trusted = e.trusted || res.trusted
	return e
}

// resolveExport follows exports and re-exports of f to the declaration of
// name. seen guards against export cycles.
func (m *Model) resolveExport(f *File, name string, d int, seen map[*File]bool) entity {
	if d > maxDepth || seen[f] {
		return entity{}
	}
	seen[f] = true
	defer delete(seen, f)

	for _, ex := range f.Exports {
		if ex.Star || ex.Name != name {
			continue
		}
		if ex.Symbol != nil {
			return entity{syms: []*Symbol{ex.Symbol}}
		}
		if ex.From == "" {
			return m.lookup(ex.Scope, ex.Local, anyNS, d+1)
		}
		res := m.resolveModule(f, ex.From)
		switch {
		case res.external:
			return entity{external: true, trusted: res.trusted}
		case res.file == nil:
			return entity{}
		case ex.Imported == "*":
			return entity{module: res.file, trusted: res.trusted}
		}
		e := m.resolveExport(res.file, ex.Imported, d+1, seen)
		e.trusted = e.trusted || res.trusted
		return e
	}

	if name == "default" {
		return entity{}
	}
	var external *moduleRes
	for _, ex := range f.Exports {
		if !ex.Star {
			continue
		}
		res := m.resolveModule(f, ex.From)
		if res.external {
			if external == nil {
				external = &res
			}
			continue
		}
		if res.file == nil {
			continue
		}
		if e := m.resolveExport(res.file, name, d+1, seen); e.found() {
			e.trusted = e.trusted || res.trusted
			return e
		}
	}
	if external != nil {
		return entity{external: true, trusted: external.trusted}
	}
	return entity{}
}

// typeOf returns the type of the value an expression produces.
func (m *Model) typeOf(x Expr, d int) typ {
	if d > maxDepth {
		return typ{}
	}
	switch x := x.(type) {
	case *Ident, *Member:
		return m.typeOfEntity(m.denote(x, d+1), d+1)
	case *This:
		if x.Class == nil {
			return typ{}
		}
		return typ{sym: x.Class, static: x.Static}
	case *Super:
		if x.Class == nil {
			return typ{}
		}
		base := m.extends(x.Class, d+1)
		base.static = x.Static
		return base
	case *Call:
		e := m.denote(x.Fn, d+1)
		if e.external {
			return typ{external: true, trusted: e.trusted}
		}
		for _, s := range e.syms {
			if s.Returns != nil && !s.Accessor {
				return m.resolveType(s.Returns, d+1)
			}
		}
	case *New:
		e := m.denote(x.Ctor, d+1)
		if e.external {
			return typ{external: true, trusted: e.trusted}
		}
		for _, s := range e.syms {
			if s.Kind == Class {
				return typ{sym: s, trusted: e.trusted}
			}
			if t := m.typeOfSymbol(s, d+1); t.sym != nil && t.sym.Kind == Class && t.static {
				t.static = false
				return t
			}
		}
	case *Typed:
		return m.resolveType(x.Type, d+1)
	}
	return typ{}
}

func (m *Model) typeOfEntity(e entity, d int) typ {
	switch {
	case e.module != nil:
		return typ{module: e.module, trusted: e.trusted}
	case e.external:
		return typ{external: true, trusted: e.trusted}
	case len(e.syms) == 0:
		return typ{}
	}
	t := m.typeOfSymbol(e.syms[0], d+1)
	t.trusted = t.trusted || e.trusted
	return t
}

func (m *Model) typeOfSymbol(s *Symbol, d int) typ {
	switch s.Kind {
	case Class, Namespace:
		return typ{sym: s, static: true}
	case Variable, Parameter, Property:
	default:
		return typ{}
	}
	if t, ok := m.types[s]; ok {
		return t
	}
	if m.pending[s] || d > maxDepth {
		return typ{}
	}
	m.pending[s] = true
	defer delete(m.pending, s)

	var t typ
	switch {
	case s.Type != nil:
		t = m.resolveType(s.Type, d+1)
	case s.Accessor && s.Returns != nil:
		t = m.resolveType(s.Returns, d+1)
	case s.Init != nil:
		t = m.typeOf(s.Init, d+1)
	}
	m.types[s] = t
	return t
}

// resolveType turns a type annotation into the class or interface it names.
func (m *Model) resolveType(x Expr, d int) typ {
	if d > maxDepth {
		return typ{}
	}
	e := m.denote(x, d+1)
	switch {
	case e.module != nil:
		return typ{module: e.module, trusted: e.trusted}
	case e.external:
		return typ{external: true, trusted: e.trusted}
	}
	for _, s := range e.syms {
		switch s.Kind {
		case Class, Interface:
			return typ{sym: s, trusted: e.trusted}
		case TypeAlias:
			if s.Type != nil {
				return m.resolveType(s.Type, d+1)
			}
		}
	}
	return typ{}
}

// extends returns the instance type of cls's base class.
func (m *Model) extends(cls *Symbol, d int) typ {
	if cls.Extends == nil || d > maxDepth {
		return typ{}
	}
	e := m.denote(cls.Extends, d+1)
	if e.external {
		return typ{external: true, trusted: e.trusted}
	}
	for _, s := range e.syms {
		if s.Kind == Class {
			return typ{sym: s, trusted: e.trusted}
		}
		if t := m.typeOfSymbol(s, d+1); t.sym != nil && t.sym.Kind == Class {
			t.static = false
			return t
		}
	}
	return typ{}
}

// member finds name on a value of type t.
func (m *Model) member(t typ, name string, d int) entity {
	if d > maxDepth {
		return entity{}
	}
	switch {
	case t.external:
		return entity{external: true, trusted: t.trusted}
	case t.module != nil:
		e := m.resolveExport(t.module, name, d+1, map[*File]bool{})
		if !e.found() && t.module.CommonJS {
			def := m.resolveExport(t.module, "default", d+1, map[*File]bool{})
			if dt := m.typeOfEntity(def, d+1); dt.module != t.module {
				e = m.member(dt, name, d+1)
			}
		}
		e.trusted = e.trusted || t.trusted
		return e
	case t.sym == nil:
		return entity{}
	}
	e := m.lookupMember(t.sym, t.static, name, d+1)
	e.trusted = e.trusted || t.trusted
	return e
}

// lookupMember searches sym and its heritage for a member called name.
func (m *Model) lookupMember(sym *Symbol, static bool, name string, d int) entity {
	if d > maxDepth {
		return entity{}
	}
	table := sym.Members
	if static {
		table = sym.Statics
	}
	if syms := table[name]; len(syms) > 0 {
		return entity{syms: syms}
	}
	if sym.Kind == Namespace {
		return entity{}
	}

	var external *entity
	if sym.Kind == Class {
		base := m.extends(sym, d+1)
		switch {
		case base.external:
			external = &entity{external: true, trusted: base.trusted}
		case base.sym != nil && base.sym != sym:
			if e := m.lookupMember(base.sym, static, name, d+1); e.found() {
				e.trusted = e.trusted || base.trusted
				return e
			}
		}
	}
	if !static {
		for _, h := range sym.Heritage {
			ht := m.resolveType(h, d+1)
			switch {
			case ht.external:
				if external == nil {
					external = &entity{external: true, trusted: ht.trusted}
				}
			case ht.sym != nil && ht.sym != sym:
				if e := m.lookupMember(ht.sym, false, name, d+1); e.found() {
					e.trusted = e.trusted || ht.trusted
					return e
				}
			}
		}
	}
	if external != nil {
		return *external
	}
	return entity{}
}

var (
	probeExts = []string{".ts", ".tsx", ".d.ts", ".mts", ".cts", ".js", ".jsx", ".mjs", ".cjs"}
	// Compiled output specifiers map back to their sources.
	sourceExts = map[string][]string{
		".js":  {".ts", ".tsx", ".d.ts"},
		".jsx": {".tsx"},
		".mjs": {".mts", ".d.mts"},
		".cjs": {".cts", ".d.cts"},
	}
)

func (m *Model) resolveModule(from *File, spec string) moduleRes {
	key := moduleKey{dir: filepath.Dir(from.Path), spec: spec}
	if res, ok := m.modules[key]; ok {
		return res
	}
	res := m.resolveModuleUncached(key.dir, spec)
	m.modules[key] = res
	return res
}

func (m *Model) resolveModuleUncached(dir, spec string) moduleRes {
	if strings.HasPrefix(spec, ".") || filepath.IsAbs(spec) {
		base := spec
		if !filepath.IsAbs(spec) {
			base = filepath.Join(dir, filepath.FromSlash(spec))
		}
		f := m.probe(base)
		return moduleRes{file: f, trusted: f != nil && m.Trusted(f)}
	}

	name := policy.PackageName(spec)
	trusted := m.trust != nil && m.trust.IsPackageTrusted(spec)
	p := m.pkgName[name]
	if p == nil {
		return moduleRes{external: true, trusted: trusted}
	}
	trusted = trusted || p.trusted

	sub := strings.TrimPrefix(strings.TrimPrefix(spec, name), "/")
	if sub == "" {
		for _, entry := range p.entries {
			if f := m.probe(entry); f != nil {
				return moduleRes{file: f, trusted: trusted}
			}
		}
		return moduleRes{}
	}
	for _, base := range []string{
		filepath.Join(p.dir, filepath.FromSlash(sub)),
		filepath.Join(p.dir, "src", filepath.FromSlash(sub)),
	} {
		if f := m.probe(base); f != nil {
			return moduleRes{file: f, trusted: trusted}
		}
	}
	return moduleRes{}
}

// probe finds the project file a path without (or with a compiled)
// extension refers to.
func (m *Model) probe(base string) *File {
	base = filepath.Clean(base)
	if f := m.byPath[base]; f != nil {
		return f
	}
	ext := filepath.Ext(base)
	if alts, ok := sourceExts[ext]; ok {
		stem := strings.TrimSuffix(base, ext)
		for _, alt := range alts {
			if f := m.byPath[stem+alt]; f != nil {
				return f
			}
		}
	}
	for _, e := range probeExts {
		if f := m.byPath[base+e]; f != nil {
			return f
		}
	}
	for _, e := range probeExts {
		if f := m.byPath[filepath.Join(base, "index"+e)]; f != nil {
			return f
		}
	}
	return nil
}
