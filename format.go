package formstate

import (
	"fmt"
	"sort"
	"strings"

	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/renderer"
)

// FormatValidationErrors renders the errors as a markdown table, the shape
// UIs and logs print for a failed save.
func FormatValidationErrors(errs []ValidationError) string {
	if len(errs) == 0 {
		return ""
	}
	var buf strings.Builder
	buf.WriteString("# Validation errors:\n")
	table := tablewriter.NewTable(&buf, tablewriter.WithRenderer(renderer.NewMarkdown()))
	table.Header("Field", "Error")
	for _, err := range errs {
		_ = table.Append(err.Field, err.Message)
	}
	_ = table.Render()
	return buf.String()
}

// FormatMissingFields renders the required-but-empty fields as a markdown
// table.
func FormatMissingFields(fields []FieldInfo) string {
	if len(fields) == 0 {
		return ""
	}
	var buf strings.Builder
	buf.WriteString("# Missing required fields:\n")
	table := tablewriter.NewTable(&buf, tablewriter.WithRenderer(renderer.NewMarkdown()))
	table.Header("Field", "Name", "Description")
	for _, field := range fields {
		_ = table.Append(field.DisplayName, field.Name, field.Description)
	}
	_ = table.Render()
	return buf.String()
}

// FormatMetrics renders a metrics snapshot as a markdown table.
func FormatMetrics(m Metrics) string {
	var buf strings.Builder
	buf.WriteString("# Form performance:\n")
	table := tablewriter.NewTable(&buf, tablewriter.WithRenderer(renderer.NewMarkdown()))
	table.Header("Counter", "Value")
	names := make([]string, 0, len(m.ValidationCounts))
	for name := range m.ValidationCounts {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		_ = table.Append("validations("+name+")", fmt.Sprintf("%d", m.ValidationCounts[name]))
	}
	_ = table.Append("cache hits", fmt.Sprintf("%d", m.CacheHits))
	_ = table.Append("cache size", fmt.Sprintf("%d", m.CacheSize))
	_ = table.Append("cache clears", fmt.Sprintf("%d", m.CacheClears))
	_ = table.Append("cache cleanups", fmt.Sprintf("%d", m.CacheCleanups))
	_ = table.Render()
	return buf.String()
}
