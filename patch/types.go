// Package patch expresses external form-value updates as RFC 6902
// operations over a form's value map: server-sent drafts, prefill payloads,
// and remote corrections all arrive as ops, get checked against the
// registered field set, and are applied to a Values snapshot.
package patch

const (
	OperationAdd     = "add"
	OperationReplace = "replace"
	OperationRemove  = "remove"
)

type Operation struct {
	Op    string `json:"op"`
	Path  string `json:"path"`
	Value any    `json:"value,omitempty"`
}
