package analysis

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNameCache_ComputeFieldName(t *testing.T) {
	tests := []struct {
		name     string
		key      FieldKey
		expected string
	}{
		{
			name:     "instance field",
			key:      FieldKey{Class: "C", Name: "field1"},
			expected: "C->field1",
		},
		{
			name:     "static field",
			key:      FieldKey{Class: "C", Name: "field4", Static: true},
			expected: "C::$field4",
		},
		{
			name:     "anonymous class",
			key:      FieldKey{Class: "class@anonymous@12", Name: "dep"},
			expected: "class@anonymous@12->dep",
		},
	}

	cache := NewNameCache()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.expected, cache.ComputeFieldName(tt.key))
			// Second lookup is served from the cache.
			require.Equal(t, tt.expected, cache.ComputeFieldName(tt.key))
		})
	}
}

func TestNameCache_Concurrent(t *testing.T) {
	cache := NewNameCache()
	key := FieldKey{Class: "D", Name: "field2"}

	var wg sync.WaitGroup
	names := make([]string, 16)
	for i := range names {
		wg.Add(1)
		go func() {
			defer wg.Done()
			names[i] = cache.ComputeFieldName(key)
		}()
	}
	wg.Wait()

	for _, n := range names {
		require.Equal(t, "D->field2", n)
	}
}
