// Package store persists form state across navigation: a Snapshot captures
// a form's phase, values, and errors so a screen the user navigated away
// from can be restored later, and Cache/Store provide the keyed storage the
// snapshots live in.
package store

import (
	"time"

	"github.com/bytedance/sonic"
	"github.com/google/uuid"

	"github.com/tbxark/formstate"
)

// Snapshot is a point-in-time copy of a form's externally visible state.
type Snapshot struct {
	ID        string            `json:"id"`
	Phase     formstate.Phase   `json:"phase"`
	Values    formstate.Values  `json:"values"`
	Errors    map[string]string `json:"errors,omitempty"`
	Timestamp time.Time         `json:"timestamp"`
}

// Capture copies the form's current state into a new snapshot.
func Capture(f *formstate.Form) *Snapshot {
	errs := make(map[string]string)
	for _, e := range f.Errors() {
		errs[e.Field] = e.Message
	}
	return &Snapshot{
		ID:        uuid.NewString(),
		Phase:     f.Phase(),
		Values:    f.Values(),
		Errors:    errs,
		Timestamp: time.Now(),
	}
}

// Restore feeds the snapshot's values back through the form's change
// pipeline and re-imposes the captured errors.
func (s *Snapshot) Restore(f *formstate.Form) {
	f.SetValues(s.Values)
	if len(s.Errors) > 0 {
		errs := make(map[string][]string, len(s.Errors))
		for name, msg := range s.Errors {
			errs[name] = []string{msg}
		}
		f.SetValidationErrors(errs)
	}
}

// MarshalBinary encodes the snapshot for byte-oriented caches.
func (s *Snapshot) MarshalBinary() ([]byte, error) {
	return sonic.Marshal(s)
}

// UnmarshalBinary decodes a snapshot produced by MarshalBinary.
func (s *Snapshot) UnmarshalBinary(data []byte) error {
	return sonic.Unmarshal(data, s)
}
