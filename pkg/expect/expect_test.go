package expect

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestChecker_NewChecker(t *testing.T) {
	checker := NewChecker()

	require.NotNil(t, checker, "NewChecker returned nil")
	require.NotNil(t, checker.annotations, "Expected annotations map to be initialized")
}

func TestChecker_ParseLine(t *testing.T) {
	tests := []struct {
		name            string
		line            string
		expectedVerdict Verdict
		expectedNote    string
		expectParsed    bool
	}{
		{
			name:            "nok",
			line:            "  private $field1;            // NOK",
			expectedVerdict: VerdictNOK,
			expectParsed:    true,
		},
		{
			name:            "ok",
			line:            "  private $field2;            // OK",
			expectedVerdict: VerdictOK,
			expectParsed:    true,
		},
		{
			name:            "nok with note",
			line:            "  private $x; // NOK: shadowed by a parameter",
			expectedVerdict: VerdictNOK,
			expectedNote:    "shadowed by a parameter",
			expectParsed:    true,
		},
		{
			name:            "hash comment",
			line:            "  private static $y; # NOK",
			expectedVerdict: VerdictNOK,
			expectParsed:    true,
		},
		{
			name:            "ok with note",
			line:            "  private $z; // OK - used in closure",
			expectedVerdict: VerdictOK,
			expectedNote:    "used in closure",
			expectParsed:    true,
		},
		{
			name:         "no comment",
			line:         "  private $field1;",
			expectParsed: false,
		},
		{
			name:         "unrelated comment",
			line:         "  // regular comment",
			expectParsed: false,
		},
		{
			name:         "word containing ok",
			line:         "  $token = 1; // OKAY",
			expectParsed: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := parseLine(tt.line)

			if tt.expectParsed {
				require.NotNil(t, a, "Expected annotation to be parsed, got nil")
				require.Equal(t, tt.expectedVerdict, a.Verdict)
				require.Equal(t, tt.expectedNote, a.Note)
			} else {
				require.Nil(t, a, "Expected no annotation, got %v", a)
			}
		})
	}
}

const fixture = `<?php

class D {
  private $field1;  // OK
  private $field2;  // NOK

  public function f($field2) {
    return $field2 + $this->field1;
  }
}
`

func TestChecker_Load(t *testing.T) {
	checker := NewChecker()
	require.NoError(t, checker.Load("d.php", []byte(fixture)))

	require.Equal(t, []int{5}, checker.Reported())

	a, ok := checker.Expected(4)
	require.True(t, ok)
	require.Equal(t, VerdictOK, a.Verdict)

	_, ok = checker.Expected(7)
	require.False(t, ok)

	require.Error(t, NewChecker().Load("nil.php", nil))
}

func TestChecker_Verify(t *testing.T) {
	checker := NewChecker()
	require.NoError(t, checker.Load("d.php", []byte(fixture)))

	tests := []struct {
		name     string
		reported []int
		expected []Mismatch
	}{
		{
			name:     "exact match",
			reported: []int{5},
		},
		{
			name:     "missing finding",
			reported: nil,
			expected: []Mismatch{{Line: 5, Missing: true}},
		},
		{
			name:     "finding on OK line",
			reported: []int{4, 5},
			expected: []Mismatch{{Line: 4}},
		},
		{
			name:     "finding on unannotated line",
			reported: []int{5, 8},
			expected: []Mismatch{{Line: 8}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.expected, checker.Verify(tt.reported))
		})
	}
}
