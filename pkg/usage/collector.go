// Package usage collects the sites where the fields of a class are used.
package usage

import (
	"github.com/715d/unusedfield/internal/analysis"
	"github.com/715d/unusedfield/pkg/phpast"
	"github.com/715d/unusedfield/pkg/scope"
	"github.com/715d/unusedfield/pkg/symtab"
)

// Options controls what the collector walks.
type Options struct {
	// IncludeClosures counts accesses inside closures and arrow functions
	// declared in the class. Closures capture $this, so these are real usages.
	IncludeClosures bool
}

// Result holds everything collected for one class.
type Result struct {
	// Sites lists every usage in traversal order.
	Sites []analysis.UsageSite

	// Used is the set of fields with at least one usage.
	Used map[analysis.FieldKey]struct{}

	// Dynamic lists accesses through computed member names.
	Dynamic []analysis.DynamicAccess

	// Shadows lists bare variables named like a field.
	Shadows []analysis.Shadow
}

// IsUsed reports whether the field has at least one usage.
func (r *Result) IsUsed(key analysis.FieldKey) bool {
	_, ok := r.Used[key]
	return ok
}

type collector struct {
	class    string
	resolver *scope.Resolver
	opts     Options
	result   *Result
}

// Collect walks the field initializers and method bodies of class and records
// the usages of the fields in table.
func Collect(class *phpast.Class, table *symtab.Table, opts Options) *Result {
	c := &collector{
		class:    class.Name,
		resolver: scope.NewResolver(table),
		opts:     opts,
		result:   &Result{Used: make(map[analysis.FieldKey]struct{})},
	}
	stack := c.resolver.Scope()

	for _, field := range class.Fields {
		if field.Default == nil {
			continue
		}
		stack.Push(scope.FrameInitializer)
		c.walk(field.Default, analysis.AccessRead)
		stack.Pop()
	}

	for _, method := range class.Methods {
		stack.Push(scope.FrameMethod)
		c.bindParams(method.Params)
		for _, n := range method.Body {
			c.walk(n, analysis.AccessRead)
		}
		stack.Pop()
	}

	return c.result
}

func (c *collector) bindParams(params []*phpast.Param) {
	stack := c.resolver.Scope()
	for _, p := range params {
		if p.Default != nil {
			c.walk(p.Default, analysis.AccessRead)
		}
		stack.Bind(p.Name, scope.BindingParameter, p.Pos)
	}
}

func (c *collector) walk(n phpast.Node, mode analysis.AccessMode) {
	switch n := n.(type) {
	case nil:
		return

	case *phpast.Variable:
		c.record(n.Pos, c.resolver.ResolveVariable(n), mode)

	case *phpast.MemberAccess:
		c.record(n.Pos, c.resolver.ResolveMember(n), mode)
		c.walk(n.Receiver, analysis.AccessRead)
		c.walk(n.Member.Expr, analysis.AccessRead)

	case *phpast.StaticAccess:
		c.record(n.Pos, c.resolver.ResolveStatic(n), mode)
		c.walk(n.Member.Expr, analysis.AccessRead)

	case *phpast.Assign:
		c.walk(n.Value, analysis.AccessRead)
		c.bindTarget(n.Target)
		c.walk(n.Target, analysis.AccessWrite)

	case *phpast.Bind:
		for _, v := range n.Vars {
			c.resolver.Scope().Bind(v.Name, scope.BindingLocal, v.Pos)
		}

	case *phpast.Closure:
		c.walkClosure(n)

	case *phpast.Group:
		for _, child := range n.Children {
			c.walk(child, mode)
		}
	}
}

func (c *collector) walkClosure(n *phpast.Closure) {
	// Imported variables are read from the enclosing frame.
	for _, v := range n.Uses {
		c.walk(v, analysis.AccessRead)
	}
	if !c.opts.IncludeClosures {
		return
	}

	stack := c.resolver.Scope()
	kind := scope.FrameClosure
	if n.Arrow {
		kind = scope.FrameArrow
	}
	stack.Push(kind)
	defer stack.Pop()

	for _, v := range n.Uses {
		stack.Bind(v.Name, scope.BindingCapture, v.Pos)
	}
	c.bindParams(n.Params)
	for _, child := range n.Body {
		c.walk(child, analysis.AccessRead)
	}
}

// bindTarget binds the plain variables assigned by an assignment target,
// including list and array destructuring and implicit array creation.
func (c *collector) bindTarget(n phpast.Node) {
	switch n := n.(type) {
	case *phpast.Variable:
		c.resolver.Scope().Bind(n.Name, scope.BindingLocal, n.Pos)
	case *phpast.Group:
		switch n.Kind {
		case "list_literal", "array_creation_expression", "array_element_initializer", "pair", "by_ref":
			for _, child := range n.Children {
				c.bindTarget(child)
			}
		case "subscript_expression":
			if len(n.Children) > 0 {
				c.bindTarget(n.Children[0])
			}
		}
	}
}

func (c *collector) record(pos phpast.Position, res scope.Resolution, mode analysis.AccessMode) {
	switch res.Kind {
	case scope.ResolvedField:
		c.result.Sites = append(c.result.Sites, analysis.UsageSite{
			Field: res.Field.Key,
			Form:  res.Form,
			Mode:  mode,
			Pos:   pos,
		})
		c.result.Used[res.Field.Key] = struct{}{}
	case scope.Dynamic:
		c.result.Dynamic = append(c.result.Dynamic, analysis.DynamicAccess{Class: c.class, Pos: pos})
	case scope.ResolvedLocal:
		if res.Shadows != nil {
			c.result.Shadows = append(c.result.Shadows, analysis.Shadow{Field: res.Shadows.Key, Pos: pos})
		}
	}
}
