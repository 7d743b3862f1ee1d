package schema

// FieldType enumerates the value kinds a config schema field can declare.
type FieldType string

const (
	TypeString  FieldType = "string"
	TypeSecret  FieldType = "secret"
	TypeNumber  FieldType = "number"
	TypeBoolean FieldType = "boolean"
	TypeArray   FieldType = "array"
	TypeObject  FieldType = "object"
)

// FieldSpec describes a single configurable field. It drives both runtime
// validation and dynamic form generation in the admin layer, so its JSON
// shape is a boundary contract.
type FieldSpec struct {
	Label      string               `json:"label"`
	Type       FieldType            `json:"type"`
	Required   bool                 `json:"required,omitempty"`
	Enum       []string             `json:"enum,omitempty"`
	MinLength  int                  `json:"minLength,omitempty"`
	MaxLength  int                  `json:"maxLength,omitempty"`
	Immutable  bool                 `json:"immutable,omitempty"`
	Items      *FieldSpec           `json:"items,omitempty"`
	Properties map[string]FieldSpec `json:"properties,omitempty"`
}

// Definition maps field names to their specs.
type Definition map[string]FieldSpec

// Values is a wire-level configuration value map.
type Values map[string]interface{}
