package unusedfield

import "github.com/715d/unusedfield/pkg/phpast"

// UnusedField represents a field that should be reported as unused.
type UnusedField struct {
	Name       string            `json:"name"`
	Class      string            `json:"class"`
	Field      string            `json:"field"`
	Static     bool              `json:"static"`
	Visibility phpast.Visibility `json:"visibility"`
	Position   phpast.Position   `json:"position"`
	Message    string            `json:"message"`
}

// UnusedFields flattens the findings of a result into report entries.
func (a *Analyzer) UnusedFields(result *Result) []UnusedField {
	var fields []UnusedField
	for _, f := range result.Findings() {
		fields = append(fields, UnusedField{
			Name:       a.nameCache.ComputeFieldName(f.Field.Key),
			Class:      f.Field.Key.Class,
			Field:      f.Field.Key.Name,
			Static:     f.Field.Key.Static,
			Visibility: f.Field.Visibility,
			Position:   f.Field.Pos,
			Message:    f.Message,
		})
	}
	return fields
}
