// Package symtab builds the table of fields eligible for the unused field check.
package symtab

import (
	"cmp"
	"slices"
	"strings"

	"github.com/715d/unusedfield/internal/analysis"
	"github.com/715d/unusedfield/pkg/phpast"
	"github.com/715d/unusedfield/pkg/reflective"
)

// Table holds the eligible fields declared by one class.
type Table struct {
	class     string
	namespace string
	fields    map[analysis.FieldKey]*analysis.FieldSymbol
	names     map[string][]*analysis.FieldSymbol
}

// Build records every field of class whose visibility is eligible.
// Fields with other visibilities can be referenced from outside the class and
// are left out. When a name is declared twice, the first declaration wins.
func Build(class *phpast.Class, eligible []phpast.Visibility) *Table {
	t := &Table{
		class:     class.Name,
		namespace: class.Namespace,
		fields:    make(map[analysis.FieldKey]*analysis.FieldSymbol, len(class.Fields)),
		names:     make(map[string][]*analysis.FieldSymbol, len(class.Fields)),
	}

	for _, field := range class.Fields {
		if !slices.Contains(eligible, field.Visibility) {
			continue
		}

		sym := analysis.NewFieldSymbol(class.Name, field)
		if _, exists := t.fields[sym.Key]; exists {
			continue
		}
		if marker := reflective.Detect(field); marker.Valid {
			sym.Managed = marker.Marker
		}

		t.fields[sym.Key] = sym
		t.names[sym.Key.Name] = append(t.names[sym.Key.Name], sym)
	}
	return t
}

// Class returns the name of the class the table was built for.
func (t *Table) Class() string { return t.class }

// Namespace returns the namespace the class is declared in.
func (t *Table) Namespace() string { return t.namespace }

// Len returns the number of eligible fields.
func (t *Table) Len() int { return len(t.fields) }

// Lookup returns the field with the given name and kind.
func (t *Table) Lookup(name string, static bool) (*analysis.FieldSymbol, bool) {
	sym, ok := t.fields[analysis.FieldKey{Class: t.class, Name: name, Static: static}]
	return sym, ok
}

// LookupName returns any field with the given name, preferring the instance field.
func (t *Table) LookupName(name string) (*analysis.FieldSymbol, bool) {
	syms := t.names[name]
	if len(syms) == 0 {
		return nil, false
	}
	for _, sym := range syms {
		if !sym.Key.Static {
			return sym, true
		}
	}
	return syms[0], true
}

// Symbols returns the fields in declaration order.
func (t *Table) Symbols() []*analysis.FieldSymbol {
	syms := make([]*analysis.FieldSymbol, 0, len(t.fields))
	for _, sym := range t.fields {
		syms = append(syms, sym)
	}
	slices.SortFunc(syms, CompareSymbols)
	return syms
}

// CompareSymbols orders symbols by position, then by name and kind.
func CompareSymbols(a, b *analysis.FieldSymbol) int {
	if a.Pos.Before(b.Pos) {
		return -1
	}
	if b.Pos.Before(a.Pos) {
		return 1
	}
	if c := strings.Compare(a.Key.Name, b.Key.Name); c != 0 {
		return c
	}
	return cmp.Compare(boolInt(a.Key.Static), boolInt(b.Key.Static))
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
