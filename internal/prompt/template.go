// Package prompt holds the extraction prompt template used for answer
// generation. The instruction contract is kept as explicit enumerated
// rules so contract changes are reviewable independent of formatting.
package prompt

import (
	"fmt"
	"strings"
)

// NotFoundAnswer is the literal response the contract demands when the
// requested content is absent from the retrieved context.
const NotFoundAnswer = "Not found"

// Template renders retrieved context and a question into a constrained
// generation prompt. Rules and examples are data so tests can assert
// the contract without string-diffing the whole prompt.
type Template struct {
	Version  int
	Preamble string
	Rules    []Rule
	Examples []Example
}

// Rule is one numbered clause of the instruction contract.
type Rule struct {
	Title string
	Body  string
}

// Example is one worked few-shot example embedded in the prompt.
type Example struct {
	Title   string
	User    string
	Context string
	Answer  string
}

// Default returns the current extraction template. Bump Version when
// the contract changes.
func Default() *Template {
	return &Template{
		Version:  1,
		Preamble: "You are a precise data extraction assistant. Follow these rules carefully:",
		Rules: []Rule{
			{
				Title: "Source of Truth",
				Body:  "Only use the CONTEXT below. Do not invent or assume anything.",
			},
			{
				Title: "Tables",
				Body: "If the context has tables (Markdown or plain text), return rows *exactly as they appear* (columns preserved).\n" +
					"   - Do not drop rows (even if the quantity is 0, missing, or very large).\n" +
					"   - If the user requests a subset (e.g., \"items with quantity > 10\"), filter but preserve the original row format.",
			},
			{
				Title: "Verbatim Extraction",
				Body: "Copy text exactly, without rewording or summarizing.\n" +
					"   - Preserve numbers, currencies, and units exactly.",
			},
			{
				Title: "Not Found Case",
				Body:  fmt.Sprintf("If the requested item/row/data is not in the CONTEXT, respond with only: `%s`.", NotFoundAnswer),
			},
			{
				Title: "Multiple Matches",
				Body: "If the question is ambiguous, provide *all possible matches*.\n" +
					"   - If multiple tables exist, indicate clearly which table each answer came from.",
			},
			{
				Title: "Formatting",
				Body: "Always use Markdown for tables.\n" +
					"   - For plain lists, keep line breaks as in the original.\n" +
					"   - Never mix tables and free text unless explicitly asked.",
			},
		},
		Examples: []Example{
			{
				Title: "Example 1 (table retrieval)",
				User:  `"Show me the row with Quantity = 100"`,
				Context: "| Item | Quantity | Cost |\n" +
					"|------|----------|------|\n" +
					"| A    | 1        | $10  |\n" +
					"| B    | 100      | $50  |",
				Answer: "| Item | Quantity | Cost |\n" +
					"|------|----------|------|\n" +
					"| B    | 100      | $50  |",
			},
			{
				Title:   "Example 2 (not found)",
				User:    `"Show me Quantity = 200"`,
				Context: "the same table.",
				Answer:  NotFoundAnswer,
			},
			{
				Title: "Example 3 (multiple rows)",
				User:  `"List all items with Quantity >= 50"`,
				Context: "| Item | Quantity | Cost |\n" +
					"|------|----------|------|\n" +
					"| A    | 1        | $10  |\n" +
					"| B    | 50       | $20  |\n" +
					"| C    | 100      | $30  |",
				Answer: "| Item | Quantity | Cost |\n" +
					"|------|----------|------|\n" +
					"| B    | 50       | $20  |\n" +
					"| C    | 100      | $30  |",
			},
		},
	}
}

// Render assembles the full prompt: preamble, numbered rules, worked
// examples, the concatenated retrieved context, and the question.
func (t *Template) Render(contextText, question string) string {
	var b strings.Builder

	b.WriteString(t.Preamble)
	b.WriteString("\n\n")

	for i, rule := range t.Rules {
		fmt.Fprintf(&b, "%d. **%s**:\n   - %s\n", i+1, rule.Title, rule.Body)
	}

	b.WriteString("\n### Examples\n")
	for _, ex := range t.Examples {
		fmt.Fprintf(&b, "\n**%s:**\nUser: %s\nContext contains:\n\n%s\n\nAnswer:\n%s\n\n---\n", ex.Title, ex.User, ex.Context, ex.Answer)
	}

	b.WriteString("\nContext:\n")
	b.WriteString(contextText)
	b.WriteString("\n\nQuestion: ")
	b.WriteString(question)
	b.WriteString("\nAnswer:")

	return b.String()
}
