// Package scope resolves identifiers in method bodies to fields or local bindings.
package scope

import (
	"fmt"

	"github.com/715d/unusedfield/pkg/phpast"
)

// BindingKind is the kind of a local name binding.
type BindingKind int

const (
	BindingParameter BindingKind = iota
	BindingLocal
	BindingCapture // imported into a closure with use (...)
)

var bindingKindNames = [...]string{
	BindingParameter: "parameter",
	BindingLocal:     "local",
	BindingCapture:   "capture",
}

func (k BindingKind) String() string {
	if k < 0 || int(k) >= len(bindingKindNames) {
		return fmt.Sprintf("BindingKind(%d)", int(k))
	}
	return bindingKindNames[k]
}

// Binding is a parameter or local variable visible at some point of a body.
type Binding struct {
	Name string
	Kind BindingKind
	Pos  phpast.Position
}

// FrameKind is the construct that opened a frame.
type FrameKind int

const (
	// FrameMethod is a method body. Nothing outside it is visible.
	FrameMethod FrameKind = iota
	// FrameInitializer evaluates field defaults; it has no bindings of its own.
	FrameInitializer
	// FrameClosure is an anonymous function; only its parameters and use
	// imports are visible inside.
	FrameClosure
	// FrameArrow is an arrow function, which sees the enclosing frames.
	FrameArrow
)

type frame struct {
	kind     FrameKind
	bindings map[string]Binding
}

// Stack is the ordered stack of frames active at a point in a method body.
// The zero value is an empty stack ready to use.
type Stack struct {
	frames []*frame
}

// Push opens a new frame.
func (s *Stack) Push(kind FrameKind) {
	s.frames = append(s.frames, &frame{kind: kind, bindings: make(map[string]Binding)})
}

// Pop closes the innermost frame. Popping an empty stack is a no-op.
func (s *Stack) Pop() {
	if len(s.frames) == 0 {
		return
	}
	s.frames[len(s.frames)-1] = nil
	s.frames = s.frames[:len(s.frames)-1]
}

// Depth returns the number of open frames.
func (s *Stack) Depth() int { return len(s.frames) }

// Bind adds name to the innermost frame. An existing binding in that frame is
// kept, so reassigning a parameter leaves it a parameter.
func (s *Stack) Bind(name string, kind BindingKind, pos phpast.Position) {
	if len(s.frames) == 0 || name == "" || name == "this" {
		return
	}
	top := s.frames[len(s.frames)-1]
	if _, exists := top.bindings[name]; exists {
		return
	}
	top.bindings[name] = Binding{Name: name, Kind: kind, Pos: pos}
}

// Lookup finds the nearest visible binding of name. Arrow function frames
// are transparent; any other frame ends the search.
func (s *Stack) Lookup(name string) (Binding, bool) {
	for i := len(s.frames) - 1; i >= 0; i-- {
		f := s.frames[i]
		if b, ok := f.bindings[name]; ok {
			return b, true
		}
		if f.kind != FrameArrow {
			break
		}
	}
	return Binding{}, false
}
