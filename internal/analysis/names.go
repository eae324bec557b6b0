package analysis

import (
	"strings"

	"github.com/puzpuzpuz/xsync/v4"
)

// NameCache caches display names of fields. It is shared by the workers
// analyzing different files and is safe for concurrent use.
type NameCache struct {
	fieldCache *xsync.Map[FieldKey, string]
}

func NewNameCache() *NameCache {
	return &NameCache{
		fieldCache: xsync.NewMap[FieldKey, string](),
	}
}

// ComputeFieldName returns the display name of a field, using the access
// syntax PHP uses for it: "Class->name" for instance fields and
// "Class::$name" for static fields.
func (c *NameCache) ComputeFieldName(key FieldKey) string {
	name, ok := c.fieldCache.Load(key)
	if ok {
		return name
	}
	name = computeFieldName(key)
	c.fieldCache.Store(key, name)
	return name
}

func computeFieldName(key FieldKey) string {
	var builder strings.Builder
	builder.Grow(len(key.Class) + len(key.Name) + 3)

	builder.WriteString(key.Class)
	if key.Static {
		builder.WriteString("::$")
	} else {
		builder.WriteString("->")
	}
	builder.WriteString(key.Name)
	return builder.String()
}
