// Package reflective detects fields handed to frameworks that read or write
// them through reflection, such as ORM columns or injected dependencies.
package reflective

import (
	"strings"

	"github.com/715d/unusedfield/pkg/phpast"
)

// MarkerType represents the kind of marker found on a field.
type MarkerType int

const (
	MarkerNone MarkerType = iota
	MarkerAttribute
	MarkerAnnotation
)

// MarkerInfo describes the marker found on a field.
type MarkerInfo struct {
	Type   MarkerType
	Marker string
	Valid  bool
}

// managedAnnotations lists docblock annotation prefixes of frameworks that
// hydrate or read private fields reflectively.
var managedAnnotations = []string{
	`@ORM\`,
	`@ODM\`,
	`@MongoDB\`,
	`@Column`,
	`@Id`,
	`@Inject`,
	`@Autowired`,
	`@Serializer\`,
	`@JMS\`,
	`@Groups`,
	`@SerializedName`,
	`@Assert\`,
	`@Gedmo\`,
}

// ignoredAttributes are attributes with no framework behavior attached.
var ignoredAttributes = map[string]bool{
	"Deprecated":             true,
	"SensitiveParameter":     true,
	"AllowDynamicProperties": true,
	"Override":               true,
	"ReturnTypeWillChange":   true,
}

// Detect checks whether a field carries a framework marker.
// Any PHP 8 attribute except the engine's own counts; docblocks are matched
// against known annotation prefixes.
func Detect(field *phpast.Field) *MarkerInfo {
	for _, attr := range field.Attributes {
		if directive := parseAttribute(attr); directive.Valid {
			return directive
		}
	}

	if field.Doc == "" {
		return &MarkerInfo{Type: MarkerNone, Valid: false}
	}

	for line := range strings.Lines(field.Doc) {
		if directive := parseAnnotation(line); directive.Valid {
			return directive
		}
	}

	return &MarkerInfo{Type: MarkerNone, Valid: false}
}

func parseAttribute(name string) *MarkerInfo {
	name = strings.TrimPrefix(strings.TrimSpace(name), `\`)
	if name == "" || ignoredAttributes[name] {
		return &MarkerInfo{Type: MarkerNone, Valid: false}
	}
	return &MarkerInfo{
		Type:   MarkerAttribute,
		Marker: "#[" + name + "]",
		Valid:  true,
	}
}

// parseAnnotation parses a single docblock line such as " * @ORM\Column(type="string")".
func parseAnnotation(line string) *MarkerInfo {
	text := strings.TrimSpace(line)
	text = strings.TrimPrefix(text, "/**")
	text = strings.TrimSpace(strings.TrimPrefix(text, "*"))
	if !strings.HasPrefix(text, "@") {
		return &MarkerInfo{Type: MarkerNone, Valid: false}
	}

	for _, prefix := range managedAnnotations {
		after, ok := strings.CutPrefix(text, prefix)
		if !ok {
			continue
		}
		// A namespace prefix can be followed by anything; a bare tag must end there.
		if strings.HasSuffix(prefix, `\`) || after == "" || strings.ContainsAny(after[:1], "( \t") {
			return &MarkerInfo{
				Type:   MarkerAnnotation,
				Marker: annotationName(text),
				Valid:  true,
			}
		}
	}

	return &MarkerInfo{Type: MarkerNone, Valid: false}
}

func annotationName(text string) string {
	if i := strings.IndexAny(text, "( \t"); i >= 0 {
		return text[:i]
	}
	return text
}
