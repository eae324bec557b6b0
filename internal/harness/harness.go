// Package harness provides testing utilities for the unusedfield analyzer.
package harness

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/715d/unusedfield/pkg/expect"
	"github.com/715d/unusedfield/pkg/unusedfield"
)

// Configuration represents a single rule configuration to test.
type Configuration struct {
	// Name is a descriptive name for this configuration.
	Name string `yaml:"name"`

	// Config holds rule settings applied over the defaults.
	Config map[string]any `yaml:"config"`

	// ExpectedUnused lists the fields expected to be reported as unused for this configuration.
	ExpectedUnused []ExpectedField `yaml:"expected_unused"`

	// ExpectedErrors lists any expected error messages for this configuration.
	ExpectedErrors []string `yaml:"expected_errors"`
}

// TestCase represents a single test scenario.
type TestCase struct {
	// Dir is the directory containing the test code.
	Dir string `yaml:"-"`

	// Annotated is set when the case has no expected.yaml and is verified
	// against the NOK comments of its files instead.
	Annotated bool `yaml:"-"`

	// Configurations defines the rule configurations to test.
	Configurations []Configuration `yaml:"configurations"`
}

// ExpectedField represents a field expected to be reported as unused.
type ExpectedField struct {
	// Field is the display name of the field, for example Foo->bar or Foo::$bar.
	Field string `yaml:"field"`

	// Reason describes why the field is unused.
	Reason string `yaml:"reason"`

	// File is the optional file path (relative to test dir)
	File string `yaml:"file,omitempty"`
}

// TestHarness manages test execution.
type TestHarness struct {
	// root is the root directory for test data
	root string
}

// NewHarness creates a new test harness.
func NewHarness(root string) *TestHarness {
	return &TestHarness{root: root}
}

// Run executes a test case with all its configurations.
func (h *TestHarness) Run(t *testing.T, tc *TestCase) *TestResult {
	t.Helper()
	require.NotEmpty(t, tc.Configurations, "test case has no configurations")

	var results []ConfigurationResult
	var allSuccess = true

	for _, cfg := range tc.Configurations {
		cfgResult := h.runConfiguration(t, tc, cfg)
		results = append(results, *cfgResult)
		if !cfgResult.Success {
			allSuccess = false
		}
	}

	// Create overall result message.
	var resultMsg string
	if allSuccess {
		resultMsg = fmt.Sprintf("All %d configurations passed", len(tc.Configurations))
	} else {
		failedCount := 0
		var msgs []string
		for _, cr := range results {
			if !cr.Success {
				failedCount++
				msgs = append(msgs, fmt.Sprintf("[%s] %s:\n  %s",
					cr.Configuration.Name, cr.Message, strings.Join(cr.Details, "\n  ")))
			}
		}
		resultMsg = fmt.Sprintf("%d/%d configurations failed:\n%s",
			failedCount, len(tc.Configurations), strings.Join(msgs, "\n"))
	}

	return &TestResult{
		TestCase:             tc,
		ConfigurationResults: results,
		Success:              allSuccess,
		Message:              resultMsg,
	}
}

// runConfiguration executes analysis for a single configuration.
func (h *TestHarness) runConfiguration(t *testing.T, tc *TestCase, cfg Configuration) *ConfigurationResult {
	t.Helper()
	dir := filepath.Join(h.root, tc.Dir)

	ruleCfg, err := ResolveConfig(cfg.Config)
	require.NoError(t, err, "resolve config %q", cfg.Name)

	files := LoadFiles(t, dir, ruleCfg.Exclude)

	analyzer := unusedfield.NewAnalyzer(unusedfield.AnalyzerOptions{Config: ruleCfg})
	result, err := analyzer.Analyze(t.Context(), files)
	if err != nil {
		// Check if this error was expected.
		for _, expectedErr := range cfg.ExpectedErrors {
			if strings.Contains(err.Error(), expectedErr) {
				return &ConfigurationResult{
					Configuration: cfg,
					Success:       true,
					Message:       fmt.Sprintf("Got expected error: %v", err),
				}
			}
		}
		require.NoError(t, err)
	}

	cfgResult := &ConfigurationResult{
		Configuration: cfg,
		Fields:        analyzer.UnusedFields(result),
	}
	for _, skipped := range result.Skipped {
		cfgResult.Details = append(cfgResult.Details, "Skipped "+skipped.Reason)
	}

	if tc.Annotated {
		validateAnnotations(t, cfgResult, files)
		return cfgResult
	}

	// Validate the expected fields before comparing.
	if err := validateExpectedFields(cfg.ExpectedUnused); err != nil {
		cfgResult.Success = false
		cfgResult.Message = fmt.Sprintf("Invalid expected.yaml: %v", err)
		cfgResult.Details = []string{err.Error()}
		return cfgResult
	}

	var unused []UnusedField
	for _, f := range cfgResult.Fields {
		unused = append(unused, UnusedField{
			Name: f.Name,
			File: relativeFile(dir, f.Position.Filename),
		})
	}
	validateResults(cfgResult, cfg.ExpectedUnused, unused)
	return cfgResult
}

// ConfigurationResult represents the result of running a single configuration.
type ConfigurationResult struct {
	// Configuration is the configuration that was run.
	Configuration Configuration

	// Fields is the raw report from the analyzer.
	Fields []unusedfield.UnusedField

	// Success indicates if this configuration passed.
	Success bool

	// Message provides a summary of the result for this configuration.
	Message string

	// Details provides detailed information about failures for this configuration.
	Details []string
}

// TestResult represents the result of running a test case.
type TestResult struct {
	// TestCase is the test case that was run.
	TestCase *TestCase

	// ConfigurationResults contains results for each configuration.
	ConfigurationResults []ConfigurationResult

	// Success indicates if the test passed (all configurations passed)
	Success bool

	// Message provides a summary of the result.
	Message string
}

// UnusedField represents an unused field found by analysis.
type UnusedField struct {
	Name string
	File string
}

// validateExpectedFields validates that expected fields have required fields
func validateExpectedFields(expected []ExpectedField) error {
	for i, exp := range expected {
		if strings.TrimSpace(exp.Field) == "" {
			return fmt.Errorf("expected field at index %d has empty or missing 'field' field", i)
		}
	}
	return nil
}

func validateResults(cfgResult *ConfigurationResult, expected []ExpectedField, actual []UnusedField) {
	expectedMap := make(map[string]ExpectedField)
	for _, e := range expected {
		expectedMap[e.Field] = e
	}

	actualMap := make(map[string]UnusedField)
	for _, a := range actual {
		actualMap[a.Name] = a
	}

	success := true

	// Check for missing expected fields.
	var missing []string
	for key, exp := range expectedMap {
		if _, found := actualMap[key]; !found {
			missing = append(missing, fmt.Sprintf("%s (%s)", exp.Field, exp.Reason))
			success = false
		}
	}

	// Check for unexpected fields.
	var unexpected []string
	for key, act := range actualMap {
		if _, found := expectedMap[key]; !found {
			unexpected = append(unexpected, act.Name)
			success = false
		}
	}

	// Sort for consistent output.
	sort.Strings(missing)
	sort.Strings(unexpected)

	details := cfgResult.Details
	for _, m := range missing {
		details = append(details, "Should have been marked unused: "+m)
	}
	for _, u := range unexpected {
		details = append(details, "Should have been marked used: "+u)
	}

	for key, exp := range expectedMap {
		if act, found := actualMap[key]; found {
			if exp.File != "" && !strings.HasSuffix(act.File, exp.File) {
				details = append(details, fmt.Sprintf(
					"File mismatch for %s: expected file ending with %q, got %q",
					exp.Field, exp.File, act.File))
				success = false
			}
		}
	}

	var message string
	if success {
		message = fmt.Sprintf("All %d expected unused fields found", len(expected))
	} else {
		message = fmt.Sprintf("Test failed: %d missing, %d unexpected", len(missing), len(unexpected))
	}

	cfgResult.Success = success
	cfgResult.Message = message
	cfgResult.Details = details
}

// validateAnnotations checks the reported lines of every file against its
// NOK and OK comments.
func validateAnnotations(t *testing.T, cfgResult *ConfigurationResult, files []string) {
	t.Helper()

	reported := make(map[string][]int)
	for _, f := range cfgResult.Fields {
		reported[f.Position.Filename] = append(reported[f.Position.Filename], f.Position.Line)
	}

	expected, mismatches := 0, 0
	details := cfgResult.Details
	for _, file := range files {
		source, err := os.ReadFile(file)
		require.NoError(t, err)

		checker := expect.NewChecker()
		require.NoError(t, checker.Load(file, source))
		expected += len(checker.Reported())

		for _, m := range checker.Verify(reported[file]) {
			details = append(details, fmt.Sprintf("%s: %s", filepath.Base(file), m))
			mismatches++
		}
	}

	cfgResult.Success = mismatches == 0
	cfgResult.Details = details
	if cfgResult.Success {
		cfgResult.Message = fmt.Sprintf("All %d annotated unused fields found", expected)
	} else {
		cfgResult.Message = fmt.Sprintf("Test failed: %d annotation mismatches", mismatches)
	}
}

// relativeFile returns path relative to the test case directory.
func relativeFile(dir, path string) string {
	if path == "" {
		return ""
	}
	relPath, err := filepath.Rel(dir, path)
	if err != nil {
		return filepath.Base(path)
	}
	return filepath.ToSlash(relPath)
}
