package scope

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/715d/unusedfield/internal/analysis"
	"github.com/715d/unusedfield/pkg/phpast"
	"github.com/715d/unusedfield/pkg/symtab"
)

func newTable() *symtab.Table {
	return symtab.Build(&phpast.Class{
		Name:      "C",
		Namespace: "App",
		Fields: []*phpast.Field{
			{Name: "field1", Visibility: phpast.VisibilityPrivate},
			{Name: "field2", Visibility: phpast.VisibilityPrivate},
			{Name: "field3", Visibility: phpast.VisibilityPublic},
			{Name: "field4", Visibility: phpast.VisibilityPrivate, Static: true},
		},
	}, []phpast.Visibility{phpast.VisibilityPrivate})
}

func this() *phpast.Variable { return &phpast.Variable{Name: "this"} }

func literal(name string) phpast.MemberName {
	return phpast.MemberName{Kind: phpast.TargetLiteral, Name: name}
}

func TestStack_Lookup(t *testing.T) {
	var s Stack
	_, ok := s.Lookup("x")
	require.False(t, ok, "empty stack")

	s.Push(FrameMethod)
	s.Bind("x", BindingParameter, phpast.Position{Line: 1})
	s.Bind("x", BindingLocal, phpast.Position{Line: 2})

	b, ok := s.Lookup("x")
	require.True(t, ok)
	require.Equal(t, BindingParameter, b.Kind, "rebinding keeps the first binding")

	s.Push(FrameArrow)
	b, ok = s.Lookup("x")
	require.True(t, ok, "arrow functions see enclosing bindings")
	require.Equal(t, BindingParameter, b.Kind)

	s.Push(FrameClosure)
	_, ok = s.Lookup("x")
	require.False(t, ok, "closures only see their own bindings")
	s.Bind("x", BindingCapture, phpast.Position{Line: 3})
	b, ok = s.Lookup("x")
	require.True(t, ok)
	require.Equal(t, BindingCapture, b.Kind)

	s.Pop()
	s.Pop()
	require.Equal(t, 1, s.Depth())
	s.Pop()
	s.Pop()
	require.Zero(t, s.Depth())
}

func TestStack_BindThis(t *testing.T) {
	var s Stack
	s.Bind("x", BindingLocal, phpast.Position{})
	s.Push(FrameMethod)
	s.Bind("this", BindingLocal, phpast.Position{})
	_, ok := s.Lookup("this")
	require.False(t, ok)
}

func TestResolver_ResolveMember(t *testing.T) {
	tests := []struct {
		name   string
		access *phpast.MemberAccess
		kind   ResolutionKind
		field  string
		form   analysis.AccessForm
	}{
		{
			name:   "this access",
			access: &phpast.MemberAccess{Receiver: this(), Member: literal("field2")},
			kind:   ResolvedField,
			field:  "field2",
			form:   analysis.AccessThis,
		},
		{
			name:   "nullsafe access",
			access: &phpast.MemberAccess{Receiver: this(), Member: literal("field1"), Nullsafe: true},
			kind:   ResolvedField,
			field:  "field1",
			form:   analysis.AccessThisNullsafe,
		},
		{
			name:   "other receiver",
			access: &phpast.MemberAccess{Receiver: &phpast.Variable{Name: "other"}, Member: literal("field1")},
			kind:   Unresolved,
		},
		{
			name:   "public field is not tracked",
			access: &phpast.MemberAccess{Receiver: this(), Member: literal("field3")},
			kind:   Unresolved,
		},
		{
			name:   "static field through this arrow",
			access: &phpast.MemberAccess{Receiver: this(), Member: literal("field4")},
			kind:   Unresolved,
		},
		{
			name: "computed name",
			access: &phpast.MemberAccess{Receiver: this(), Member: phpast.MemberName{
				Kind: phpast.TargetComputed,
				Expr: &phpast.Variable{Name: "name"},
			}},
			kind: Dynamic,
			form: analysis.AccessThis,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewResolver(newTable())
			res := r.ResolveMember(tt.access)
			require.Equal(t, tt.kind, res.Kind)
			if tt.kind == ResolvedField {
				require.Equal(t, tt.field, res.Field.Key.Name)
				require.False(t, res.Field.Key.Static)
			}
			if tt.kind == ResolvedField || tt.kind == Dynamic {
				require.Equal(t, tt.form, res.Form)
			}
		})
	}
}

func TestResolver_ResolveStatic(t *testing.T) {
	tests := []struct {
		scope string
		name  string
		kind  ResolutionKind
		form  analysis.AccessForm
	}{
		{scope: "self", name: "field4", kind: ResolvedField, form: analysis.AccessSelf},
		{scope: "static", name: "field4", kind: ResolvedField, form: analysis.AccessStatic},
		{scope: "SELF", name: "field4", kind: ResolvedField, form: analysis.AccessSelf},
		{scope: "$this", name: "field4", kind: ResolvedField, form: analysis.AccessThisStatic},
		{scope: "C", name: "field4", kind: ResolvedField, form: analysis.AccessClassName},
		{scope: `\App\c`, name: "field4", kind: ResolvedField, form: analysis.AccessClassName},
		{scope: `namespace\C`, name: "field4", kind: ResolvedField, form: analysis.AccessClassName},
		{scope: `\Other\C`, name: "field4", kind: Unresolved},
		{scope: `\C`, name: "field4", kind: Unresolved},
		{scope: `Sub\C`, name: "field4", kind: Unresolved},
		{scope: "parent", name: "field4", kind: Unresolved},
		{scope: "Other", name: "field4", kind: Unresolved},
		{scope: "self", name: "field1", kind: Unresolved},
		{scope: "self", name: "missing", kind: Unresolved},
	}

	for _, tt := range tests {
		t.Run(tt.scope+"::$"+tt.name, func(t *testing.T) {
			r := NewResolver(newTable())
			res := r.ResolveStatic(&phpast.StaticAccess{Scope: tt.scope, Member: literal(tt.name)})
			require.Equal(t, tt.kind, res.Kind)
			if tt.kind == ResolvedField {
				require.Equal(t, analysis.FieldKey{Class: "C", Name: tt.name, Static: true}, res.Field.Key)
				require.Equal(t, tt.form, res.Form)
			}
		})
	}
}

func TestResolver_GlobalNamespace(t *testing.T) {
	table := symtab.Build(&phpast.Class{
		Name:   "K",
		Fields: []*phpast.Field{{Name: "s", Visibility: phpast.VisibilityPrivate, Static: true}},
	}, []phpast.Visibility{phpast.VisibilityPrivate})
	r := NewResolver(table)

	for scope, kind := range map[string]ResolutionKind{
		"K":      ResolvedField,
		`\K`:     ResolvedField,
		`\App\K`: Unresolved,
	} {
		res := r.ResolveStatic(&phpast.StaticAccess{Scope: scope, Member: literal("s")})
		require.Equal(t, kind, res.Kind, scope)
	}
}

func TestResolver_StaticComputedName(t *testing.T) {
	r := NewResolver(newTable())
	res := r.ResolveStatic(&phpast.StaticAccess{
		Scope:  "self",
		Member: phpast.MemberName{Kind: phpast.TargetComputed},
	})
	require.Equal(t, Dynamic, res.Kind)

	res = r.ResolveStatic(&phpast.StaticAccess{
		Scope:  "Other",
		Member: phpast.MemberName{Kind: phpast.TargetComputed},
	})
	require.Equal(t, Unresolved, res.Kind)
}

func TestResolver_ResolveVariable(t *testing.T) {
	r := NewResolver(newTable())
	stack := r.Scope()
	stack.Push(FrameMethod)
	stack.Bind("field1", BindingParameter, phpast.Position{Line: 11})
	stack.Bind("tmp", BindingLocal, phpast.Position{Line: 12})

	// A parameter named like a field shadows it and is never the field.
	res := r.ResolveVariable(&phpast.Variable{Name: "field1"})
	require.Equal(t, ResolvedLocal, res.Kind)
	require.Equal(t, BindingParameter, res.Binding.Kind)
	require.NotNil(t, res.Shadows)
	require.Equal(t, "field1", res.Shadows.Key.Name)
	require.Nil(t, res.Field)

	res = r.ResolveVariable(&phpast.Variable{Name: "tmp"})
	require.Equal(t, ResolvedLocal, res.Kind)
	require.Nil(t, res.Shadows)

	// Unbound bare names are out of scope, even when named like a field.
	res = r.ResolveVariable(&phpast.Variable{Name: "field2"})
	require.Equal(t, Unresolved, res.Kind)

	res = r.ResolveVariable(this())
	require.Equal(t, Unresolved, res.Kind)

	// Qualified access bypasses the shadowing parameter.
	res = r.ResolveMember(&phpast.MemberAccess{Receiver: this(), Member: literal("field1")})
	require.Equal(t, ResolvedField, res.Kind)
}
