// Package schema builds documentation-enriched table descriptors used as
// model context. Descriptors are immutable once built; rebuild after the
// warehouse changes.
package schema

import "strings"

type Column struct {
	Name        string
	Type        string
	Description string
}

type Descriptor struct {
	Table       string
	Description string
	Columns     []Column
}

// Render serializes a descriptor set into the prompt text. The output is a
// pure function of the input: same descriptors, byte-identical text.
func Render(descriptors []Descriptor) string {
	var b strings.Builder
	for i, d := range descriptors {
		if i > 0 {
			b.WriteString("\n")
		}
		b.WriteString("Table: ")
		b.WriteString(d.Table)
		b.WriteString("\n")
		if d.Description != "" {
			b.WriteString("Description: ")
			b.WriteString(d.Description)
			b.WriteString("\n")
		}
		if len(d.Columns) == 0 {
			continue
		}
		b.WriteString("Columns:\n")
		for _, c := range d.Columns {
			b.WriteString("  - ")
			b.WriteString(c.Name)
			if c.Type != "" {
				b.WriteString(" (")
				b.WriteString(c.Type)
				b.WriteString(")")
			}
			if c.Description != "" {
				b.WriteString(": ")
				b.WriteString(c.Description)
			}
			b.WriteString("\n")
		}
	}
	return b.String()
}
