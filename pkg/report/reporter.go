// Package report turns declared and used field sets into findings.
package report

import (
	"github.com/715d/unusedfield/internal/analysis"
	"github.com/715d/unusedfield/pkg/symtab"
)

// Options controls which unused fields are reported.
type Options struct {
	// SkipManaged leaves out fields carrying a framework marker.
	SkipManaged bool
}

// UsedSet answers whether a field has been used.
type UsedSet interface {
	IsUsed(key analysis.FieldKey) bool
}

// Unused returns one finding per declared field that has no usage, ordered by
// declaration position.
func Unused(table *symtab.Table, used UsedSet, opts Options) []analysis.Finding {
	var findings []analysis.Finding
	for _, sym := range table.Symbols() {
		if used.IsUsed(sym.Key) {
			continue
		}
		if opts.SkipManaged && sym.Managed != "" {
			continue
		}
		findings = append(findings, analysis.NewFinding(sym))
	}
	return findings
}
