// Package phpparse turns PHP source into the phpast tree using tree-sitter.
package phpparse

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/php"

	"github.com/715d/unusedfield/pkg/phpast"
)

// ErrSyntax is returned when the source contains syntax errors.
var ErrSyntax = errors.New("syntax error")

// Parser wraps a tree-sitter parser configured for PHP.
// A Parser is not safe for concurrent use.
type Parser struct {
	parser *sitter.Parser
}

// New creates a new parser instance.
func New() *Parser {
	p := sitter.NewParser()
	p.SetLanguage(php.GetLanguage())
	return &Parser{parser: p}
}

// Close releases parser resources.
func (p *Parser) Close() {
	p.parser.Close()
}

// IsPHPFile reports whether path has a PHP source extension.
func IsPHPFile(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".php", ".phtml", ".inc":
		return true
	}
	return false
}

// ParseFile reads and parses a PHP file.
func (p *Parser) ParseFile(ctx context.Context, path string) (*phpast.File, error) {
	source, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}
	return p.Parse(ctx, path, source)
}

// Parse parses source and lowers every class declaration it contains.
// A tree containing error nodes yields ErrSyntax together with the position of the first one.
func (p *Parser) Parse(ctx context.Context, path string, source []byte) (*phpast.File, error) {
	tree, err := p.parser.ParseCtx(ctx, nil, source)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	defer tree.Close()

	root := tree.RootNode()
	if root.HasError() {
		pos := firstError(root, path)
		return nil, fmt.Errorf("%s: %w", pos, ErrSyntax)
	}

	l := &lowerer{source: source, path: path}
	file := &phpast.File{Path: path}
	l.collectClasses(root, file)
	return file, nil
}

// firstError finds the first ERROR or MISSING node in document order.
func firstError(n *sitter.Node, path string) phpast.Position {
	if n.Type() == "ERROR" || n.IsMissing() {
		return position(n, path)
	}
	for i := range int(n.ChildCount()) {
		child := n.Child(i)
		if child != nil && child.HasError() {
			return firstError(child, path)
		}
	}
	return position(n, path)
}

func position(n *sitter.Node, path string) phpast.Position {
	pt := n.StartPoint()
	return phpast.Position{
		Filename: path,
		Line:     int(pt.Row) + 1,
		Column:   int(pt.Column) + 1,
	}
}
