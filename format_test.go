package formstate

import (
	"strings"
	"testing"
)

func TestFormatValidationErrors(t *testing.T) {
	t.Parallel()
	if got := FormatValidationErrors(nil); got != "" {
		t.Errorf("no errors must render empty, got %q", got)
	}
	out := FormatValidationErrors([]ValidationError{
		{Field: "email", Message: "required"},
	})
	if !strings.Contains(out, "email") || !strings.Contains(out, "required") {
		t.Errorf("missing table content: %q", out)
	}
	if !strings.Contains(out, "# Validation errors:") {
		t.Errorf("missing heading: %q", out)
	}
}

func TestFormatMissingFields(t *testing.T) {
	t.Parallel()
	if got := FormatMissingFields(nil); got != "" {
		t.Errorf("no fields must render empty, got %q", got)
	}
	out := FormatMissingFields([]FieldInfo{
		{Name: "email", DisplayName: "Email", Required: true},
	})
	if !strings.Contains(out, "Email") {
		t.Errorf("missing table content: %q", out)
	}
}

func TestFormatMetrics(t *testing.T) {
	t.Parallel()
	out := FormatMetrics(Metrics{
		ValidationCounts: map[string]int{"email": 3},
		CacheHits:        2,
	})
	if !strings.Contains(out, "validations(email)") || !strings.Contains(out, "cache hits") {
		t.Errorf("missing counters: %q", out)
	}
}
