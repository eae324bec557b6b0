// Package expect reads expected verdicts written as comments in PHP fixtures.
//
// A field declaration line ending in "// NOK" must be reported as unused and
// one ending in "// OK" must not. Lines without a verdict are not checked.
package expect

import (
	"bufio"
	"bytes"
	"fmt"
	"maps"
	"regexp"
	"slices"
	"strings"
)

// Verdict is the expected outcome annotated on a line.
type Verdict int

const (
	// VerdictOK marks a line that must not be reported.
	VerdictOK Verdict = iota

	// VerdictNOK marks a line that must be reported.
	VerdictNOK
)

func (v Verdict) String() string {
	if v == VerdictNOK {
		return "NOK"
	}
	return "OK"
}

// Annotation is a parsed verdict comment.
type Annotation struct {
	Line    int
	Verdict Verdict
	Note    string
}

// Annotation patterns for // and # comments. An optional note may follow the verdict.
var (
	// nokPattern matches // NOK and # NOK comments
	nokPattern = regexp.MustCompile(`(?://|#)\s*NOK\b(?:\s*[:\-]?\s*(.*))?$`)

	// okPattern matches // OK and # OK comments
	okPattern = regexp.MustCompile(`(?://|#)\s*OK\b(?:\s*[:\-]?\s*(.*))?$`)
)

// Checker holds the annotations of one source file.
type Checker struct {
	// annotations maps line number to annotation
	annotations map[int]*Annotation

	path string
}

// NewChecker creates a new annotation checker.
func NewChecker() *Checker {
	return &Checker{
		annotations: make(map[int]*Annotation),
	}
}

// Load parses verdict comments from the source of path.
func (c *Checker) Load(path string, source []byte) error {
	if source == nil {
		return fmt.Errorf("source cannot be nil")
	}
	c.path = path

	scanner := bufio.NewScanner(bytes.NewReader(source))
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	line := 0
	for scanner.Scan() {
		line++
		if a := parseLine(scanner.Text()); a != nil {
			a.Line = line
			c.annotations[line] = a
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("scan %s: %w", path, err)
	}
	return nil
}

// parseLine parses a source line to check if it ends in a verdict comment.
func parseLine(text string) *Annotation {
	if matches := nokPattern.FindStringSubmatch(text); matches != nil {
		return &Annotation{Verdict: VerdictNOK, Note: note(matches)}
	}
	if matches := okPattern.FindStringSubmatch(text); matches != nil {
		return &Annotation{Verdict: VerdictOK, Note: note(matches)}
	}
	return nil
}

func note(matches []string) string {
	if len(matches) > 1 {
		return strings.TrimSpace(matches[1])
	}
	return ""
}

// Expected returns the annotation on a line, if any.
func (c *Checker) Expected(line int) (*Annotation, bool) {
	a, ok := c.annotations[line]
	return a, ok
}

// Reported returns the sorted lines that must be reported.
func (c *Checker) Reported() []int {
	var lines []int
	for line, a := range c.annotations {
		if a.Verdict == VerdictNOK {
			lines = append(lines, line)
		}
	}
	slices.Sort(lines)
	return lines
}

// Mismatch is a difference between annotations and actual findings.
type Mismatch struct {
	Line    int
	Missing bool // annotated NOK but not reported
}

func (m Mismatch) String() string {
	if m.Missing {
		return fmt.Sprintf("line %d: expected an unused field, got none", m.Line)
	}
	return fmt.Sprintf("line %d: unexpected unused field", m.Line)
}

// Verify compares the lines of actual findings with the annotations.
// A finding on a line without a NOK annotation is unexpected, whether the
// line is annotated OK or not at all.
func (c *Checker) Verify(reported []int) []Mismatch {
	actual := make(map[int]bool, len(reported))
	for _, line := range reported {
		actual[line] = true
	}

	var mismatches []Mismatch
	for _, line := range c.Reported() {
		if !actual[line] {
			mismatches = append(mismatches, Mismatch{Line: line, Missing: true})
		}
	}
	for _, line := range slices.Sorted(maps.Keys(actual)) {
		if a, ok := c.annotations[line]; !ok || a.Verdict != VerdictNOK {
			mismatches = append(mismatches, Mismatch{Line: line})
		}
	}
	return mismatches
}
