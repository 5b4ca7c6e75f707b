package formstate

import "context"

// Phase is the lifecycle state of a form. A form is either idle or in the
// middle of a submit; the loading/hasErrors/success flags are layered on top
// of the phase, they are not phases of their own.
type Phase string

const (
	PhaseIdle       Phase = "idle"
	PhaseSubmitting Phase = "submitting"
)

// Values maps field names to their current values.
type Values map[string]any

// Clone returns a shallow copy.
func (v Values) Clone() Values {
	out := make(Values, len(v))
	for k, val := range v {
		out[k] = val
	}
	return out
}

// ValidationError describes a single invalid field.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (e ValidationError) Error() string {
	return e.Field + ": " + e.Message
}

// FieldInfo carries display metadata for a field, used when rendering
// missing-field or error summaries.
type FieldInfo struct {
	Name        string `json:"name"`
	DisplayName string `json:"display_name"`
	Description string `json:"description,omitempty"`
	Required    bool   `json:"required"`
}

// Spec defines a concrete form. Implementations declare the field set once
// and handle submission of the collected values.
type Spec interface {
	Fields() []*Field
	Submit(ctx context.Context, values Values) error
}

// Initializer is an optional Spec capability. The registry runs Init in the
// background on first access to the form.
type Initializer interface {
	Init(ctx context.Context) error
}

// ValidNotifier is an optional Spec capability invoked after a change pass
// leaves the whole form valid.
type ValidNotifier interface {
	FormValid(values Values)
}

// ResetNotifier is an optional Spec capability invoked once per Reset call,
// after field values have been restored.
type ResetNotifier interface {
	FormReset()
}
