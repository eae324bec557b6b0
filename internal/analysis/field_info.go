// Package analysis provides the symbol, usage and finding types shared by the unused field passes.
package analysis

import (
	"fmt"

	"github.com/715d/unusedfield/pkg/phpast"
)

// FieldKey identifies a field within the class being analyzed.
type FieldKey struct {
	// Class is the name of the declaring class.
	Class string

	// Name is the field name without the leading $.
	Name string

	// Static distinguishes static fields from instance fields of the same name.
	Static bool
}

// FieldSymbol is a declared field eligible for the unused check.
// Symbols are created by the symbol table builder and never modified afterwards.
type FieldSymbol struct {
	// Key is the identity of this field.
	Key FieldKey

	// Visibility is the declared visibility.
	Visibility phpast.Visibility

	// Promoted is set for fields declared by constructor property promotion.
	Promoted bool

	// Managed names the attribute or annotation that hands the field to a framework,
	// which reads or writes it reflectively. Empty for plain fields.
	Managed string

	// Pos is the position of the field name in its declaration.
	Pos phpast.Position
}

// NewFieldSymbol creates a symbol for a field declared in class.
func NewFieldSymbol(class string, field *phpast.Field) *FieldSymbol {
	return &FieldSymbol{
		Key: FieldKey{
			Class:  class,
			Name:   field.Name,
			Static: field.Static,
		},
		Visibility: field.Visibility,
		Promoted:   field.Promoted,
		Pos:        field.Pos,
	}
}

// AccessForm is the syntactic form that tied a usage to a field.
type AccessForm int

const (
	AccessThis         AccessForm = iota // $this->name
	AccessThisNullsafe                   // $this?->name
	AccessSelf                           // self::$name
	AccessStatic                         // static::$name
	AccessThisStatic                     // $this::$name
	AccessClassName                      // Foo::$name inside Foo
)

var accessFormNames = [...]string{
	AccessThis:         "$this->",
	AccessThisNullsafe: "$this?->",
	AccessSelf:         "self::",
	AccessStatic:       "static::",
	AccessThisStatic:   "$this::",
	AccessClassName:    "class::",
}

func (f AccessForm) String() string {
	if f < 0 || int(f) >= len(accessFormNames) {
		return fmt.Sprintf("AccessForm(%d)", int(f))
	}
	return accessFormNames[f]
}

// AccessMode tells whether a usage reads or writes the field.
// Both count as usage.
type AccessMode int

const (
	AccessRead AccessMode = iota
	AccessWrite
)

func (m AccessMode) String() string {
	if m == AccessWrite {
		return "write"
	}
	return "read"
}

// UsageSite is a source location resolved to a field.
type UsageSite struct {
	Field FieldKey
	Form  AccessForm
	Mode  AccessMode
	Pos   phpast.Position
}

// DynamicAccess is a member access on $this or the class whose member name is
// computed. It cannot be resolved and never marks a field as used.
type DynamicAccess struct {
	Class string
	Pos   phpast.Position
}

// Shadow records a bare variable whose name matches a field of the class.
// It is resolved to the local binding, never to the field.
type Shadow struct {
	Field FieldKey
	Pos   phpast.Position
}

// Finding reports an unused field.
type Finding struct {
	Field   *FieldSymbol
	Message string
}

// NewFinding creates the finding for an unused field.
func NewFinding(sym *FieldSymbol) Finding {
	return Finding{
		Field:   sym,
		Message: fmt.Sprintf("Remove this unused %q %s field.", "$"+sym.Key.Name, sym.Visibility),
	}
}
