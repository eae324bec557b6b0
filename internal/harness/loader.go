package harness

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"testing"

	yaml "gopkg.in/yaml.v3"

	"github.com/stretchr/testify/require"

	"github.com/715d/unusedfield/pkg/unusedfield"
)

// defaultConfiguration is run for cases verified by their NOK comments.
const defaultConfiguration = "default"

// LoadFiles lists the PHP files of a test case directory.
func LoadFiles(t *testing.T, dir string, exclude []string) []string {
	t.Helper()

	t.Logf("Loading files from %q", dir)
	files, err := unusedfield.LoadFiles(t.Context(), unusedfield.LoaderOptions{
		Paths:   []string{"./..."},
		Dir:     dir,
		Exclude: exclude,
	})
	require.NoError(t, err)
	return files
}

// LoadTestCase loads a test case from a directory with a specified testdata root.
// A directory without an expected.yaml becomes an annotated case run with the
// default configuration.
func LoadTestCase(t *testing.T, dir, root string) *TestCase {
	t.Helper()
	yamlPath := filepath.Join(dir, "expected.yaml")

	tc := &TestCase{}
	data, err := os.ReadFile(yamlPath)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		tc.Annotated = true
		tc.Configurations = []Configuration{{Name: defaultConfiguration}}
	case err != nil:
		require.NoError(t, err)
	default:
		require.NoError(t, yaml.Unmarshal(data, tc))
	}

	// Use relative path from testdata root if provided.
	if root != "" {
		relPath, err := filepath.Rel(root, dir)
		if err != nil {
			tc.Dir = filepath.Base(dir)
		} else {
			tc.Dir = relPath
		}
		return tc
	}

	tc.Dir = filepath.Base(dir)
	return tc
}
