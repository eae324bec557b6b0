package phpparse

import (
	"fmt"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/715d/unusedfield/pkg/phpast"
)

// anonymousClassName is the name PHP itself reports for anonymous classes.
const anonymousClassName = "class@anonymous"

// lowerer converts tree-sitter nodes of a single file into phpast nodes.
type lowerer struct {
	source []byte
	path   string

	// namespace is the namespace in effect at the node being visited.
	namespace string
}

func (l *lowerer) text(n *sitter.Node) string {
	if n == nil {
		return ""
	}
	return n.Content(l.source)
}

func (l *lowerer) pos(n *sitter.Node) phpast.Position {
	return position(n, l.path)
}

// collectClasses finds every class declaration in the tree, including classes
// declared inside functions and anonymous classes.
func (l *lowerer) collectClasses(n *sitter.Node, file *phpast.File) {
	if n == nil {
		return
	}

	switch n.Type() {
	case "namespace_definition":
		name := strings.Trim(l.text(n.ChildByFieldName("name")), `\`)
		body := n.ChildByFieldName("body")
		if body == nil {
			// namespace Foo; applies to the rest of the file.
			l.namespace = name
			return
		}
		outer := l.namespace
		l.namespace = name
		l.collectClasses(body, file)
		l.namespace = outer
		return
	case "class_declaration":
		name := l.text(n.ChildByFieldName("name"))
		file.Classes = append(file.Classes, l.class(n, name))
	case "anonymous_class":
		file.Classes = append(file.Classes, l.class(n, anonymousName(l.pos(n))))
	case "object_creation_expression":
		// Older grammars inline the anonymous class body into the creation expression.
		if childOfType(n, "declaration_list") != nil {
			file.Classes = append(file.Classes, l.class(n, anonymousName(l.pos(n))))
		}
	}

	for i := range int(n.NamedChildCount()) {
		l.collectClasses(n.NamedChild(i), file)
	}
}

func anonymousName(pos phpast.Position) string {
	return fmt.Sprintf("%s@%d", anonymousClassName, pos.Line)
}

func (l *lowerer) class(n *sitter.Node, name string) *phpast.Class {
	class := &phpast.Class{Name: name, Namespace: l.namespace, Pos: l.pos(n)}

	body := n.ChildByFieldName("body")
	if body == nil {
		body = childOfType(n, "declaration_list")
	}
	if body == nil {
		return class
	}

	for i := range int(body.NamedChildCount()) {
		member := body.NamedChild(i)
		switch member.Type() {
		case "property_declaration":
			class.Fields = append(class.Fields, l.properties(member)...)
		case "method_declaration":
			method, promoted := l.method(member)
			class.Methods = append(class.Methods, method)
			class.Fields = append(class.Fields, promoted...)
		}
	}
	return class
}

// properties lowers a property declaration into one Field per declared name.
func (l *lowerer) properties(n *sitter.Node) []*phpast.Field {
	var (
		visibility = phpast.VisibilityPublic
		static     bool
		attributes []string
		elements   []*sitter.Node
	)

	for i := range int(n.NamedChildCount()) {
		child := n.NamedChild(i)
		switch child.Type() {
		case "visibility_modifier":
			visibility = l.visibility(child)
		case "static_modifier":
			static = true
		case "attribute_list":
			attributes = append(attributes, l.attributes(child)...)
		case "property_element":
			elements = append(elements, child)
		}
	}

	doc := l.docComment(n)
	fields := make([]*phpast.Field, 0, len(elements))
	for _, el := range elements {
		nameNode := el.ChildByFieldName("name")
		if nameNode == nil {
			nameNode = childOfType(el, "variable_name")
		}
		if nameNode == nil {
			continue
		}

		var def phpast.Node
		if v := el.ChildByFieldName("default_value"); v != nil {
			def = l.expr(v)
		} else if init := childOfType(el, "property_initializer"); init != nil && init.NamedChildCount() > 0 {
			def = l.expr(init.NamedChild(0))
		}

		fields = append(fields, &phpast.Field{
			Name:       variableName(l.text(nameNode)),
			Visibility: visibility,
			Static:     static,
			Default:    def,
			Attributes: attributes,
			Doc:        doc,
			Pos:        l.pos(nameNode),
		})
	}
	return fields
}

func (l *lowerer) visibility(n *sitter.Node) phpast.Visibility {
	v, err := phpast.ParseVisibility(l.text(n))
	if err != nil {
		return phpast.VisibilityPublic
	}
	return v
}

func (l *lowerer) attributes(n *sitter.Node) []string {
	var names []string
	walk(n, func(c *sitter.Node) bool {
		if c.Type() != "attribute" {
			return true
		}
		if c.NamedChildCount() > 0 {
			names = append(names, l.text(c.NamedChild(0)))
		}
		return false
	})
	return names
}

// docComment returns the /** */ comment immediately preceding n.
func (l *lowerer) docComment(n *sitter.Node) string {
	prev := n.PrevNamedSibling()
	if prev == nil || prev.Type() != "comment" {
		return ""
	}
	text := l.text(prev)
	if !strings.HasPrefix(text, "/**") {
		return ""
	}
	return text
}

// method lowers a method declaration. Promoted constructor parameters are
// returned as fields.
func (l *lowerer) method(n *sitter.Node) (*phpast.Method, []*phpast.Field) {
	method := &phpast.Method{
		Name:   l.text(n.ChildByFieldName("name")),
		Static: hasStaticModifier(n),
		Pos:    l.pos(n),
	}

	var promoted []*phpast.Field
	if params := n.ChildByFieldName("parameters"); params != nil {
		method.Params = l.params(params)
		promoted = l.promoted(params)
	}
	if body := n.ChildByFieldName("body"); body != nil {
		method.Body = l.children(body)
	}
	return method, promoted
}

func (l *lowerer) params(n *sitter.Node) []*phpast.Param {
	var params []*phpast.Param
	for i := range int(n.NamedChildCount()) {
		p := n.NamedChild(i)
		switch p.Type() {
		case "simple_parameter", "variadic_parameter", "property_promotion_parameter":
		default:
			continue
		}
		nameNode := findVariableName(p.ChildByFieldName("name"))
		if nameNode == nil {
			continue
		}
		param := &phpast.Param{
			Name: variableName(l.text(nameNode)),
			Pos:  l.pos(nameNode),
		}
		if def := p.ChildByFieldName("default_value"); def != nil {
			param.Default = l.expr(def)
		}
		params = append(params, param)
	}
	return params
}

func (l *lowerer) promoted(n *sitter.Node) []*phpast.Field {
	var fields []*phpast.Field
	for i := range int(n.NamedChildCount()) {
		p := n.NamedChild(i)
		if p.Type() != "property_promotion_parameter" {
			continue
		}
		nameNode := findVariableName(p.ChildByFieldName("name"))
		if nameNode == nil {
			continue
		}

		visibility := phpast.VisibilityPublic
		if v := p.ChildByFieldName("visibility"); v != nil {
			visibility = l.visibility(v)
		} else if v := childOfType(p, "visibility_modifier"); v != nil {
			visibility = l.visibility(v)
		}

		var attributes []string
		if attrs := childOfType(p, "attribute_list"); attrs != nil {
			attributes = l.attributes(attrs)
		}

		fields = append(fields, &phpast.Field{
			Name:       variableName(l.text(nameNode)),
			Visibility: visibility,
			Promoted:   true,
			Attributes: attributes,
			Pos:        l.pos(nameNode),
		})
	}
	return fields
}

// children lowers the named children of n, dropping nodes that carry nothing.
func (l *lowerer) children(n *sitter.Node) []phpast.Node {
	var out []phpast.Node
	for i := range int(n.NamedChildCount()) {
		if lowered := l.expr(n.NamedChild(i)); lowered != nil {
			out = append(out, lowered)
		}
	}
	return out
}

// expr lowers a statement or expression node. It returns nil for leaves and
// for nested declarations that have their own $this.
func (l *lowerer) expr(n *sitter.Node) phpast.Node {
	if n == nil {
		return nil
	}

	switch n.Type() {
	case "comment", "name", "qualified_name", "integer", "float", "boolean", "null", "string_content":
		return nil

	case "class_declaration", "interface_declaration", "trait_declaration", "enum_declaration",
		"function_definition", "anonymous_class":
		return nil

	case "variable_name":
		return &phpast.Variable{Name: variableName(l.text(n)), Pos: l.pos(n)}

	case "member_access_expression", "nullsafe_member_access_expression":
		return &phpast.MemberAccess{
			Receiver: l.expr(n.ChildByFieldName("object")),
			Member:   l.memberName(n.ChildByFieldName("name")),
			Nullsafe: n.Type() == "nullsafe_member_access_expression",
			Pos:      l.pos(n),
		}

	case "scoped_property_access_expression":
		return &phpast.StaticAccess{
			Scope:  l.text(n.ChildByFieldName("scope")),
			Member: l.memberName(n.ChildByFieldName("name")),
			Pos:    l.pos(n),
		}

	case "assignment_expression", "reference_assignment_expression", "augmented_assignment_expression":
		return &phpast.Assign{
			Target: l.expr(n.ChildByFieldName("left")),
			Value:  l.expr(n.ChildByFieldName("right")),
			Pos:    l.pos(n),
		}

	case "anonymous_function", "anonymous_function_creation_expression":
		closure := &phpast.Closure{Static: hasStaticModifier(n), Pos: l.pos(n)}
		if params := n.ChildByFieldName("parameters"); params != nil {
			closure.Params = l.params(params)
		}
		if uses := childOfType(n, "anonymous_function_use_clause"); uses != nil {
			walk(uses, func(c *sitter.Node) bool {
				if c.Type() == "variable_name" {
					closure.Uses = append(closure.Uses, &phpast.Variable{Name: variableName(l.text(c)), Pos: l.pos(c)})
					return false
				}
				return true
			})
		}
		if body := n.ChildByFieldName("body"); body != nil {
			closure.Body = l.children(body)
		}
		return closure

	case "arrow_function":
		closure := &phpast.Closure{Arrow: true, Static: hasStaticModifier(n), Pos: l.pos(n)}
		if params := n.ChildByFieldName("parameters"); params != nil {
			closure.Params = l.params(params)
		}
		if body := l.expr(n.ChildByFieldName("body")); body != nil {
			closure.Body = []phpast.Node{body}
		}
		return closure

	case "foreach_statement":
		return l.foreach(n)

	case "catch_clause":
		group := &phpast.Group{Kind: n.Type(), Pos: l.pos(n)}
		if v := n.ChildByFieldName("name"); v != nil {
			group.Children = append(group.Children, &phpast.Bind{
				Vars: []*phpast.Variable{{Name: variableName(l.text(v)), Pos: l.pos(v)}},
				Pos:  l.pos(v),
			})
		}
		if body := n.ChildByFieldName("body"); body != nil {
			group.Children = append(group.Children, l.children(body)...)
		}
		return group

	case "global_declaration":
		return &phpast.Bind{Vars: l.variables(n), Pos: l.pos(n)}

	case "function_static_declaration":
		group := &phpast.Group{Kind: n.Type(), Pos: l.pos(n)}
		for i := range int(n.NamedChildCount()) {
			decl := n.NamedChild(i)
			nameNode := decl.ChildByFieldName("name")
			if nameNode == nil {
				continue
			}
			if value := l.expr(decl.ChildByFieldName("value")); value != nil {
				group.Children = append(group.Children, value)
			}
			group.Children = append(group.Children, &phpast.Bind{
				Vars: []*phpast.Variable{{Name: variableName(l.text(nameNode)), Pos: l.pos(nameNode)}},
				Pos:  l.pos(nameNode),
			})
		}
		return group

	case "object_creation_expression":
		// Skip an inlined anonymous class body; the class is collected on its own.
		group := &phpast.Group{Kind: n.Type(), Pos: l.pos(n)}
		for i := range int(n.NamedChildCount()) {
			child := n.NamedChild(i)
			switch child.Type() {
			case "declaration_list":
				continue
			case "anonymous_class":
				// Constructor arguments belong to the enclosing scope.
				child = childOfType(child, "arguments")
			}
			if lowered := l.expr(child); lowered != nil {
				group.Children = append(group.Children, lowered)
			}
		}
		if len(group.Children) == 0 {
			return nil
		}
		return group
	}

	if n.NamedChildCount() == 0 {
		return nil
	}
	children := l.children(n)
	if len(children) == 0 {
		return nil
	}
	return &phpast.Group{Kind: n.Type(), Children: children, Pos: l.pos(n)}
}

// foreach lowers foreach ($src as $k => $v) into the iterated expression, a
// Bind for the loop variables, the binding expression itself and the body.
func (l *lowerer) foreach(n *sitter.Node) phpast.Node {
	group := &phpast.Group{Kind: n.Type(), Pos: l.pos(n)}
	body := n.ChildByFieldName("body")

	var operands []*sitter.Node
	for i := range int(n.NamedChildCount()) {
		child := n.NamedChild(i)
		if body != nil && child.Equal(body) {
			continue
		}
		if child.Type() == "comment" {
			continue
		}
		operands = append(operands, child)
	}

	for i, op := range operands {
		if i == 0 {
			if src := l.expr(op); src != nil {
				group.Children = append(group.Children, src)
			}
			continue
		}
		if i == 1 {
			if vars := l.bindingVariables(op); len(vars) > 0 {
				group.Children = append(group.Children, &phpast.Bind{Vars: vars, Pos: l.pos(op)})
			}
		}
		if lowered := l.expr(op); lowered != nil {
			group.Children = append(group.Children, lowered)
		}
	}

	if body != nil {
		if lowered := l.expr(body); lowered != nil {
			group.Children = append(group.Children, lowered)
		}
	}
	return group
}

// bindingVariables returns the plain variables bound by a foreach target,
// looking through key/value pairs, references and list destructuring.
func (l *lowerer) bindingVariables(n *sitter.Node) []*phpast.Variable {
	var vars []*phpast.Variable
	walk(n, func(c *sitter.Node) bool {
		switch c.Type() {
		case "variable_name":
			vars = append(vars, &phpast.Variable{Name: variableName(l.text(c)), Pos: l.pos(c)})
			return false
		case "pair", "by_ref", "list_literal", "array_creation_expression", "array_element_initializer":
			return true
		}
		return false
	})
	return vars
}

func (l *lowerer) variables(n *sitter.Node) []*phpast.Variable {
	var vars []*phpast.Variable
	for i := range int(n.NamedChildCount()) {
		c := n.NamedChild(i)
		if c.Type() == "variable_name" {
			vars = append(vars, &phpast.Variable{Name: variableName(l.text(c)), Pos: l.pos(c)})
		}
	}
	return vars
}

// memberName classifies the member part of an access. Only a plain name is
// literal; variables and braced expressions are computed.
func (l *lowerer) memberName(n *sitter.Node) phpast.MemberName {
	if n == nil {
		return phpast.MemberName{Kind: phpast.TargetComputed}
	}
	switch n.Type() {
	case "name":
		return phpast.MemberName{Kind: phpast.TargetLiteral, Name: l.text(n)}
	case "variable_name":
		// In Foo::$bar the variable spelling is the property name itself.
		if isStaticMemberName(n) {
			return phpast.MemberName{Kind: phpast.TargetLiteral, Name: variableName(l.text(n))}
		}
	}
	if !n.IsNamed() {
		// Reserved words used as property names, e.g. $this->class.
		return phpast.MemberName{Kind: phpast.TargetLiteral, Name: l.text(n)}
	}
	return phpast.MemberName{Kind: phpast.TargetComputed, Expr: l.expr(n)}
}

func isStaticMemberName(n *sitter.Node) bool {
	parent := n.Parent()
	return parent != nil && parent.Type() == "scoped_property_access_expression"
}

// variableName strips the sigil from a variable spelling.
func variableName(s string) string {
	return strings.TrimPrefix(strings.TrimSpace(s), "$")
}

func hasStaticModifier(n *sitter.Node) bool {
	for i := range int(n.ChildCount()) {
		c := n.Child(i)
		switch c.Type() {
		case "static_modifier", "static":
			return true
		case "function", "fn":
			// Modifiers precede the keyword.
			return false
		}
	}
	return false
}

func childOfType(n *sitter.Node, typ string) *sitter.Node {
	for i := range int(n.NamedChildCount()) {
		if c := n.NamedChild(i); c.Type() == typ {
			return c
		}
	}
	return nil
}

// findVariableName returns n if it is a variable name, otherwise the first variable name below it.
func findVariableName(n *sitter.Node) *sitter.Node {
	if n == nil {
		return nil
	}
	var found *sitter.Node
	walk(n, func(c *sitter.Node) bool {
		if found != nil {
			return false
		}
		if c.Type() == "variable_name" {
			found = c
			return false
		}
		return true
	})
	return found
}

// walk visits n and its named descendants in document order. Returning false
// from visit skips the children of that node.
func walk(n *sitter.Node, visit func(*sitter.Node) bool) {
	if n == nil || !visit(n) {
		return
	}
	for i := range int(n.NamedChildCount()) {
		walk(n.NamedChild(i), visit)
	}
}
