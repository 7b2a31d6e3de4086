package response

import (
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	gtext "github.com/yuin/goldmark/text"
)

var punctuationSpacing = strings.NewReplacer(
	" .", ".",
	" ,", ",",
	" ?", "?",
	" !", "!",
	" :", ":",
)

// postProcess strips markdown formatting, collapses whitespace and fixes
// Korean spacing around punctuation.
func postProcess(answer string) string {
	stripped := stripMarkdown(answer)

	lines := strings.Split(stripped, "\n")
	cleaned := make([]string, 0, len(lines))
	for _, line := range lines {
		line = strings.Join(strings.Fields(line), " ")
		if line != "" {
			cleaned = append(cleaned, line)
		}
	}

	return punctuationSpacing.Replace(strings.Join(cleaned, "\n"))
}

// stripMarkdown renders the markdown AST back to plain text
func stripMarkdown(input string) string {
	source := []byte(input)
	doc := goldmark.New().Parser().Parse(gtext.NewReader(source))

	var b strings.Builder
	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			switch n.(type) {
			case *ast.Paragraph, *ast.Heading, *ast.ListItem:
				b.WriteString("\n")
			}
			return ast.WalkContinue, nil
		}
		if textNode, ok := n.(*ast.Text); ok {
			b.Write(textNode.Segment.Value(source))
			if textNode.SoftLineBreak() || textNode.HardLineBreak() {
				b.WriteString("\n")
			}
		}
		return ast.WalkContinue, nil
	})

	return strings.TrimSpace(b.String())
}
