// Package prompt assembles the model input from schema context, few-shot
// examples, and the user's question. Assembly is a pure function: identical
// inputs produce byte-identical prompts.
package prompt

import (
	"strings"

	"github.com/duckboard/duckboard/internal/examples"
)

const (
	header = "You are a SQL expert. Generate a DuckDB SQL query for the following question.\n\nDatabase Schema:\n"

	rules = "Rules:\n" +
		"- Return ONLY the SQL query, no explanations\n" +
		"- Use DuckDB SQL syntax\n" +
		"- For date formatting use strftime()\n" +
		"- Always include ORDER BY for consistent results\n" +
		"- Use ROUND() for decimal values\n"
)

type Assembler struct {
	// MaxChars is the hard budget for the assembled prompt. When the full
	// text would exceed it, examples are dropped from the tail of the
	// inclusion order first. Schema text and the question are never cut.
	MaxChars int
	// MaxExamples caps how many pairs are considered before the budget
	// applies. Zero means all.
	MaxExamples int
}

func (a Assembler) Assemble(schemaText string, pairs []examples.Pair, question string) string {
	if a.MaxExamples > 0 && len(pairs) > a.MaxExamples {
		pairs = pairs[:a.MaxExamples]
	}

	for count := len(pairs); ; count-- {
		text := render(schemaText, pairs[:count], question)
		if a.MaxChars <= 0 || len(text) <= a.MaxChars || count == 0 {
			return text
		}
	}
}

func render(schemaText string, pairs []examples.Pair, question string) string {
	var b strings.Builder
	b.WriteString(header)
	b.WriteString(schemaText)
	b.WriteString("\n")

	if len(pairs) > 0 {
		b.WriteString("\nExamples:\n")
		for i, pair := range pairs {
			if i > 0 {
				b.WriteString("\n")
			}
			b.WriteString("Question: ")
			b.WriteString(pair.Question)
			b.WriteString("\nSQL: ")
			b.WriteString(pair.SQL)
			b.WriteString("\n")
		}
	}

	b.WriteString("\n")
	b.WriteString(rules)
	b.WriteString("\nQuestion: ")
	b.WriteString(question)
	b.WriteString("\n\nSQL:")
	return b.String()
}
