package phpparse

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/715d/unusedfield/pkg/phpast"
)

const sample = `<?php
namespace App;

class Sample {
    /** @var int */
    private static $count = 0;
    protected $a, $b = 1;
    #[Inject]
    private ?Logger $logger = null;

    public function __construct(private Mailer $mailer, $plain) {}

    public static function make() {
        return new static();
    }

    public function run($x) {
        $y = $this->a;
        $this?->b;
        self::$count++;
        $this->$x;
        $fn = function ($p) use ($y) { return $this->a; };
        $arrow = fn($q) => $q + $this->b;
        foreach ($this->items as $k => $v) {}
        try {} catch (\Exception $e) {}
    }
}
`

func parse(t *testing.T, source string) *phpast.File {
	t.Helper()
	p := New()
	defer p.Close()
	file, err := p.Parse(t.Context(), "sample.php", []byte(source))
	require.NoError(t, err)
	return file
}

// collect returns the nodes below nodes matching keep, in document order.
func collect(nodes []phpast.Node, keep func(phpast.Node) bool) []phpast.Node {
	var out []phpast.Node
	var visit func(n phpast.Node)
	visit = func(n phpast.Node) {
		if n == nil {
			return
		}
		if keep(n) {
			out = append(out, n)
		}
		switch n := n.(type) {
		case *phpast.Group:
			for _, c := range n.Children {
				visit(c)
			}
		case *phpast.Assign:
			visit(n.Target)
			visit(n.Value)
		case *phpast.MemberAccess:
			visit(n.Receiver)
			visit(n.Member.Expr)
		case *phpast.Closure:
			for _, c := range n.Body {
				visit(c)
			}
		}
	}
	for _, n := range nodes {
		visit(n)
	}
	return out
}

func TestParseClassMembers(t *testing.T) {
	file := parse(t, sample)
	require.Equal(t, "sample.php", file.Path)
	require.Len(t, file.Classes, 1)

	class := file.Classes[0]
	require.Equal(t, "Sample", class.Name)
	require.Equal(t, "App", class.Namespace)
	require.Equal(t, 4, class.Pos.Line)

	var names []string
	for _, f := range class.Fields {
		names = append(names, f.Name)
	}
	require.Equal(t, []string{"count", "a", "b", "logger", "mailer"}, names)

	count := class.Fields[0]
	require.True(t, count.Static)
	require.Equal(t, phpast.VisibilityPrivate, count.Visibility)
	require.Equal(t, "/** @var int */", count.Doc)
	require.Equal(t, 6, count.Pos.Line)
	require.Equal(t, "sample.php", count.Pos.Filename)

	a, b := class.Fields[1], class.Fields[2]
	require.Equal(t, phpast.VisibilityProtected, a.Visibility)
	require.Equal(t, phpast.VisibilityProtected, b.Visibility)
	require.Nil(t, a.Default)
	require.Empty(t, a.Doc)

	logger := class.Fields[3]
	require.Equal(t, []string{"Inject"}, logger.Attributes)
	require.False(t, logger.Static)

	mailer := class.Fields[4]
	require.True(t, mailer.Promoted)
	require.Equal(t, phpast.VisibilityPrivate, mailer.Visibility)
	require.Equal(t, 11, mailer.Pos.Line)

	require.Len(t, class.Methods, 3)
	ctor, factory, run := class.Methods[0], class.Methods[1], class.Methods[2]
	require.Equal(t, "__construct", ctor.Name)
	require.Len(t, ctor.Params, 2)
	require.Equal(t, "mailer", ctor.Params[0].Name)
	require.Equal(t, "plain", ctor.Params[1].Name)
	require.True(t, factory.Static)
	require.False(t, run.Static)
	require.Equal(t, "x", run.Params[0].Name)
}

func TestParseMethodBody(t *testing.T) {
	run := parse(t, sample).Classes[0].Methods[2]

	members := collect(run.Body, func(n phpast.Node) bool {
		_, ok := n.(*phpast.MemberAccess)
		return ok
	})
	var literal []string
	var nullsafe, computed int
	for _, n := range members {
		m := n.(*phpast.MemberAccess)
		require.True(t, phpast.IsThis(m.Receiver))
		if m.Nullsafe {
			nullsafe++
		}
		if m.Member.Kind == phpast.TargetComputed {
			computed++
			continue
		}
		literal = append(literal, m.Member.Name)
	}
	require.Equal(t, []string{"a", "b", "a", "b", "items"}, literal)
	require.Equal(t, 1, nullsafe)
	require.Equal(t, 1, computed)

	statics := collect(run.Body, func(n phpast.Node) bool {
		_, ok := n.(*phpast.StaticAccess)
		return ok
	})
	require.Len(t, statics, 1)
	s := statics[0].(*phpast.StaticAccess)
	require.Equal(t, "self", s.Scope)
	require.Equal(t, phpast.TargetLiteral, s.Member.Kind)
	require.Equal(t, "count", s.Member.Name)

	closures := collect(run.Body, func(n phpast.Node) bool {
		_, ok := n.(*phpast.Closure)
		return ok
	})
	require.Len(t, closures, 2)
	fn, arrow := closures[0].(*phpast.Closure), closures[1].(*phpast.Closure)
	require.False(t, fn.Arrow)
	require.Equal(t, "p", fn.Params[0].Name)
	require.Len(t, fn.Uses, 1)
	require.Equal(t, "y", fn.Uses[0].Name)
	require.True(t, arrow.Arrow)
	require.Equal(t, "q", arrow.Params[0].Name)

	binds := collect(run.Body, func(n phpast.Node) bool {
		_, ok := n.(*phpast.Bind)
		return ok
	})
	var bound []string
	for _, n := range binds {
		for _, v := range n.(*phpast.Bind).Vars {
			bound = append(bound, v.Name)
		}
	}
	require.Equal(t, []string{"k", "v", "e"}, bound)
}

func TestParseNestedClasses(t *testing.T) {
	file := parse(t, `<?php
class Outer {
    private $value;
    public function make() {
        return new class($this->value) {
            private $inner;
        };
    }
}
function factory() {
    class Local { private $x; }
}
`)
	require.Len(t, file.Classes, 3)
	require.Equal(t, "Outer", file.Classes[0].Name)
	require.Equal(t, "class@anonymous@5", file.Classes[1].Name)
	require.Equal(t, "inner", file.Classes[1].Fields[0].Name)
	require.Equal(t, "Local", file.Classes[2].Name)

	// The constructor argument stays in the enclosing method.
	outer := file.Classes[0]
	members := collect(outer.Methods[0].Body, func(n phpast.Node) bool {
		m, ok := n.(*phpast.MemberAccess)
		return ok && m.Member.Name == "value"
	})
	require.Len(t, members, 1)
}

func TestParseStaticForms(t *testing.T) {
	file := parse(t, `<?php
class K {
    private static $s;
    public function f() {
        return static::$s + $this::$s + K::$s + parent::$s;
    }
}
`)
	statics := collect(file.Classes[0].Methods[0].Body, func(n phpast.Node) bool {
		_, ok := n.(*phpast.StaticAccess)
		return ok
	})
	var scopes []string
	for _, n := range statics {
		s := n.(*phpast.StaticAccess)
		require.Equal(t, "s", s.Member.Name)
		scopes = append(scopes, s.Scope)
	}
	require.Equal(t, []string{"static", "$this", "K", "parent"}, scopes)
}

func TestParseNamespaces(t *testing.T) {
	file := parse(t, `<?php
namespace Shop\Billing {
    class Invoice { private $id; }
}
namespace {
    class Plain { private $id; }
}
`)
	require.Len(t, file.Classes, 2)
	require.Equal(t, `Shop\Billing`, file.Classes[0].Namespace)
	require.Empty(t, file.Classes[1].Namespace)

	file = parse(t, "<?php\nclass Global { private $id; }\n")
	require.Empty(t, file.Classes[0].Namespace)
}

// Asymmetric visibility is newer than the bundled grammar, so such a file is
// rejected as a whole rather than lowered with a guessed visibility.
func TestParseAsymmetricVisibility(t *testing.T) {
	p := New()
	defer p.Close()

	_, err := p.Parse(t.Context(), "h.php", []byte("<?php\nclass H { public private(set) int $x = 0; }\n"))
	require.ErrorIs(t, err, ErrSyntax)
	require.Contains(t, err.Error(), "h.php:2:")
}

func TestParseSyntaxError(t *testing.T) {
	p := New()
	defer p.Close()

	_, err := p.Parse(t.Context(), "broken.php", []byte("<?php\nclass Broken {\n  private $x function\n}\n"))
	require.Error(t, err)
	require.True(t, errors.Is(err, ErrSyntax))
	require.Contains(t, err.Error(), "broken.php:")
}

func TestParseFile(t *testing.T) {
	p := New()
	defer p.Close()

	file, err := p.ParseFile(t.Context(), "../../testdata/reference-fixture/UnusedPrivateFieldCheck.php")
	require.NoError(t, err)
	require.Len(t, file.Classes, 2)
	require.Len(t, file.Classes[0].Fields, 6)
	require.Len(t, file.Classes[1].Fields, 2)

	_, err = p.ParseFile(t.Context(), "does-not-exist.php")
	require.Error(t, err)
	require.False(t, errors.Is(err, ErrSyntax))
}

func TestIsPHPFile(t *testing.T) {
	for path, want := range map[string]bool{
		"a.php":          true,
		"b.PHP":          true,
		"view.phtml":     true,
		"lib.inc":        true,
		"readme.md":      false,
		"php":            false,
		"archive.php.gz": false,
	} {
		require.Equal(t, want, IsPHPFile(path), path)
	}
}
