package formstate

// Validator checks the stringified value of a field and returns a nil error
// when the value is acceptable.
type Validator func(value string) error

// Field is a single named input slot within a form. The form that registers
// the field owns it: the engine's change-detection step mutates the tracked
// value, external code feeds new input through SetValue on the form.
type Field struct {
	Name         string
	InitialValue any
	Validate     Validator

	// OnChange fires (debounced) whenever the field's value changes.
	// OnValid fires (debounced) on change while the field is valid.
	OnChange func(value any)
	OnValid  func(value any)

	// Display metadata, surfaced by error/missing-field summaries.
	DisplayName string
	Description string
	Required    bool

	// Value is the engine-observed value, synced from the form after each
	// change pass.
	Value any

	// instant is the pending input waiting for the next change pass. Only
	// the owning form writes it, under its mutex, via SetValue/SetValues.
	instant any
}

// Info returns the field's display metadata.
func (f *Field) Info() FieldInfo {
	return FieldInfo{
		Name:        f.Name,
		DisplayName: f.DisplayName,
		Description: f.Description,
		Required:    f.Required,
	}
}
