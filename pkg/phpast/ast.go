// Package phpast defines the reduced PHP syntax tree consumed by the unused field analysis.
//
// The tree only models what member resolution needs: class members, variables,
// member accesses and the constructs that introduce local bindings. Everything
// else is kept as a Group so that nested expressions are still walked.
package phpast

import (
	"fmt"
	"strings"
)

// Position is a 1-based source location.
type Position struct {
	Filename string `json:"file"`
	Line     int    `json:"line"`
	Column   int    `json:"column"`
}

func (p Position) String() string {
	if p.Filename == "" {
		return fmt.Sprintf("%d:%d", p.Line, p.Column)
	}
	return fmt.Sprintf("%s:%d:%d", p.Filename, p.Line, p.Column)
}

// Before orders positions by file, line and column.
func (p Position) Before(o Position) bool {
	if p.Filename != o.Filename {
		return p.Filename < o.Filename
	}
	if p.Line != o.Line {
		return p.Line < o.Line
	}
	return p.Column < o.Column
}

// Visibility is the declared visibility of a class member.
type Visibility int

const (
	VisibilityPublic Visibility = iota
	VisibilityProtected
	VisibilityPrivate
)

var visibilityNames = [...]string{
	VisibilityPublic:    "public",
	VisibilityProtected: "protected",
	VisibilityPrivate:   "private",
}

func (v Visibility) String() string {
	if v < 0 || int(v) >= len(visibilityNames) {
		return fmt.Sprintf("Visibility(%d)", int(v))
	}
	return visibilityNames[v]
}

// ParseVisibility maps a PHP visibility keyword to its Visibility.
// "var" is the legacy spelling of public.
func ParseVisibility(s string) (Visibility, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "public", "var":
		return VisibilityPublic, nil
	case "protected":
		return VisibilityProtected, nil
	case "private":
		return VisibilityPrivate, nil
	}
	return VisibilityPublic, fmt.Errorf("unknown visibility %q", s)
}

// MarshalText implements encoding.TextMarshaler.
func (v Visibility) MarshalText() ([]byte, error) {
	return []byte(v.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (v *Visibility) UnmarshalText(text []byte) error {
	parsed, err := ParseVisibility(string(text))
	if err != nil {
		return err
	}
	*v = parsed
	return nil
}

// File is a parsed PHP source file.
type File struct {
	Path    string
	Classes []*Class
}

// Class is a class declaration.
type Class struct {
	Name string

	// Namespace is the enclosing namespace without leading or trailing
	// backslashes, empty for the global namespace.
	Namespace string

	Pos     Position
	Fields  []*Field
	Methods []*Method
}

// Field is a property declaration. A declaration listing several properties
// (private $a, $b;) yields one Field per property.
type Field struct {
	Name       string // without the leading $
	Visibility Visibility
	Static     bool

	// Promoted is set for constructor parameters declaring a property.
	Promoted bool

	// Default is the initializer expression, if any.
	Default Node

	// Attributes holds the names of PHP 8 attributes attached to the declaration.
	Attributes []string

	// Doc is the docblock preceding the declaration.
	Doc string

	Pos Position
}

// Method is a method declaration.
type Method struct {
	Name   string
	Static bool
	Params []*Param
	Body   []Node
	Pos    Position
}

// Param is a function, method or closure parameter.
type Param struct {
	Name    string // without the leading $
	Default Node
	Pos     Position
}

// Node is an expression or statement in a method body.
type Node interface {
	Position() Position
	node()
}

// Variable is a bare variable reference such as $x. The receiver $this is a
// Variable named "this".
type Variable struct {
	Name string
	Pos  Position
}

// TargetKind tells whether a member name is written literally or computed.
type TargetKind int

const (
	// TargetLiteral is a member name spelled in source: $this->name, self::$name.
	TargetLiteral TargetKind = iota
	// TargetComputed is a member name produced by an expression: $this->$n, $this->{$e}.
	TargetComputed
)

// MemberName is the member part of an access.
type MemberName struct {
	Kind TargetKind
	Name string // set for TargetLiteral
	Expr Node   // set for TargetComputed
}

// MemberAccess is an instance property access: $recv->name or $recv?->name.
type MemberAccess struct {
	Receiver Node
	Member   MemberName
	Nullsafe bool
	Pos      Position
}

// StaticAccess is a static property access: Scope::$name.
type StaticAccess struct {
	// Scope is the source text left of "::", for example self, static, parent, Foo or $this.
	Scope  string
	Member MemberName
	Pos    Position
}

// Assign is an assignment of Value to Target.
type Assign struct {
	Target Node
	Value  Node
	Pos    Position
}

// Bind introduces local variables without an assignment expression:
// foreach value and key variables, catch variables, global and static declarations.
type Bind struct {
	Vars []*Variable
	Pos  Position
}

// Closure is an anonymous function or arrow function.
type Closure struct {
	Static bool
	Arrow  bool
	Params []*Param
	Uses   []*Variable
	Body   []Node
	Pos    Position
}

// Group is any other construct; only its children matter.
type Group struct {
	Kind     string
	Children []Node
	Pos      Position
}

func (n *Variable) Position() Position     { return n.Pos }
func (n *MemberAccess) Position() Position { return n.Pos }
func (n *StaticAccess) Position() Position { return n.Pos }
func (n *Assign) Position() Position       { return n.Pos }
func (n *Bind) Position() Position         { return n.Pos }
func (n *Closure) Position() Position      { return n.Pos }
func (n *Group) Position() Position        { return n.Pos }

func (*Variable) node()     {}
func (*MemberAccess) node() {}
func (*StaticAccess) node() {}
func (*Assign) node()       {}
func (*Bind) node()         {}
func (*Closure) node()      {}
func (*Group) node()        {}

// IsThis reports whether n is the $this receiver.
func IsThis(n Node) bool {
	v, ok := n.(*Variable)
	return ok && v.Name == "this"
}
