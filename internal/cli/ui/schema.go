package ui

import (
	"io"
	"strings"

	"github.com/graphiti-lang/graphiti/internal/introspect"
)

// RenderSchema prints a compiled schema as operation tables followed by one
// section per object shape
func RenderSchema(w io.Writer, doc introspect.Document, noColor bool) {
	Header(w, "Queries", noColor)
	if len(doc.Queries) == 0 {
		io.WriteString(w, "  (no tables found)\n\n")
		return
	}

	queries := NewTable(w, []string{"NAME", "RETURNS"}, &TableOptions{NoColor: noColor})
	for _, op := range doc.Queries {
		queries.AddRow(op.Name, op.Returns.String())
	}
	queries.Render()
	io.WriteString(w, "\n")

	Header(w, "Mutations", noColor)
	mutations := NewTable(w, []string{"NAME", "ARGUMENTS", "RETURNS"}, &TableOptions{NoColor: noColor})
	for _, op := range doc.Mutations {
		mutations.AddRow(op.Name, formatArguments(op.Arguments), op.Returns.String())
	}
	mutations.Render()
	io.WriteString(w, "\n")

	for _, shape := range doc.Shapes {
		keyword := "type"
		if shape.Input {
			keyword = "input"
		}
		section := NewSection(w, keyword+" "+shape.Name, noColor)
		for _, field := range shape.Fields {
			section.AddLine(field.String())
		}
		section.Render()
	}
}

func formatArguments(args []introspect.Argument) string {
	parts := make([]string, len(args))
	for i, arg := range args {
		parts[i] = arg.Name + ": " + arg.Type.String()
	}
	return strings.Join(parts, ", ")
}
