package scope

import (
	"strings"

	"github.com/715d/unusedfield/internal/analysis"
	"github.com/715d/unusedfield/pkg/phpast"
	"github.com/715d/unusedfield/pkg/symtab"
)

// ResolutionKind is the outcome of resolving an identifier occurrence.
type ResolutionKind int

const (
	// Unresolved occurrences refer to nothing this analysis tracks.
	Unresolved ResolutionKind = iota
	// ResolvedField occurrences are usages of a declared field.
	ResolvedField
	// ResolvedLocal occurrences bind to a parameter or local variable.
	ResolvedLocal
	// Dynamic occurrences access a member of the class through a computed name.
	Dynamic
)

// Resolution describes what an identifier occurrence binds to.
type Resolution struct {
	Kind ResolutionKind

	// Field is set for ResolvedField.
	Field *analysis.FieldSymbol

	// Form is the access form for ResolvedField and Dynamic.
	Form analysis.AccessForm

	// Binding is set for ResolvedLocal.
	Binding Binding

	// Shadows is set for ResolvedLocal when a field has the same name.
	Shadows *analysis.FieldSymbol
}

// Resolver resolves occurrences against the fields of one class and the
// frames of the body being walked. A Resolver must not be shared between
// classes or goroutines.
type Resolver struct {
	table *symtab.Table
	stack Stack
}

// NewResolver creates a resolver for the class described by table.
func NewResolver(table *symtab.Table) *Resolver {
	return &Resolver{table: table}
}

// Scope returns the frame stack maintained by the caller while walking.
func (r *Resolver) Scope() *Stack { return &r.stack }

// ResolveMember resolves an instance property access. Only $this->name and
// $this?->name refer to fields of the class, whatever locals are in scope.
func (r *Resolver) ResolveMember(n *phpast.MemberAccess) Resolution {
	if !phpast.IsThis(n.Receiver) {
		return Resolution{Kind: Unresolved}
	}

	form := analysis.AccessThis
	if n.Nullsafe {
		form = analysis.AccessThisNullsafe
	}
	return r.resolveQualified(n.Member, false, form)
}

// ResolveStatic resolves a static property access. self::, static::, $this::
// and the class's own name refer to the lexical class; parent:: and other
// classes never refer to its private fields.
func (r *Resolver) ResolveStatic(n *phpast.StaticAccess) Resolution {
	form, ok := r.staticForm(n.Scope)
	if !ok {
		return Resolution{Kind: Unresolved}
	}
	return r.resolveQualified(n.Member, true, form)
}

func (r *Resolver) staticForm(scope string) (analysis.AccessForm, bool) {
	scope = strings.TrimSpace(scope)
	switch strings.ToLower(scope) {
	case "self":
		return analysis.AccessSelf, true
	case "static":
		return analysis.AccessStatic, true
	case "$this":
		return analysis.AccessThisStatic, true
	case "parent":
		return 0, false
	}

	if r.namesClass(scope) {
		return analysis.AccessClassName, true
	}
	return 0, false
}

// namesClass reports whether a class reference denotes the enclosing class.
// A fully qualified name must match the namespace of the class; other
// qualified names are relative to it. Names are case-insensitive. Imported
// aliases are not resolved.
func (r *Resolver) namesClass(ref string) bool {
	if ref == "" || strings.HasPrefix(ref, "$") {
		return false
	}
	ns := r.table.Namespace()

	var full string
	switch {
	case strings.HasPrefix(ref, `\`):
		full = ref[1:]
	case !strings.Contains(ref, `\`):
		return strings.EqualFold(ref, r.table.Class())
	case strings.HasPrefix(strings.ToLower(ref), relativePrefix):
		full = qualify(ns, ref[len(relativePrefix):])
	default:
		full = qualify(ns, ref)
	}
	return strings.EqualFold(full, qualify(ns, r.table.Class()))
}

// relativePrefix spells a name relative to the current namespace.
const relativePrefix = `namespace\`

func qualify(ns, name string) string {
	if ns == "" {
		return name
	}
	return ns + `\` + name
}

func (r *Resolver) resolveQualified(member phpast.MemberName, static bool, form analysis.AccessForm) Resolution {
	if member.Kind != phpast.TargetLiteral {
		return Resolution{Kind: Dynamic, Form: form}
	}
	sym, ok := r.table.Lookup(member.Name, static)
	if !ok {
		return Resolution{Kind: Unresolved}
	}
	return Resolution{Kind: ResolvedField, Field: sym, Form: form}
}

// ResolveVariable resolves a bare variable. Bare names bind to the nearest
// parameter or local and never to a field, even when the names match.
func (r *Resolver) ResolveVariable(n *phpast.Variable) Resolution {
	if n.Name == "this" {
		return Resolution{Kind: Unresolved}
	}
	b, ok := r.stack.Lookup(n.Name)
	if !ok {
		return Resolution{Kind: Unresolved}
	}
	res := Resolution{Kind: ResolvedLocal, Binding: b}
	if sym, ok := r.table.LookupName(n.Name); ok {
		res.Shadows = sym
	}
	return res
}
