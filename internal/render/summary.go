package render

import (
	"fmt"
	"strings"

	"github.com/markis/studio/internal/session"
)

// Summary formats a completed generation as a markdown document.
func Summary(s *session.State) string {
	var b strings.Builder

	title := s.Title
	if title == "" {
		title = "Variations"
	}
	fmt.Fprintf(&b, "\n# %s\n\n", title)

	if s.BasePrompt != "" {
		fmt.Fprintf(&b, "**Base prompt:** %s\n\n", s.BasePrompt)
	}

	for i, v := range s.Variations {
		name := v.Title()
		if name == "" {
			name = fmt.Sprintf("Variation %d", i+1)
		}
		fmt.Fprintf(&b, "%d. **%s**", i+1, name)
		if p := v.Prompt(); p != "" {
			fmt.Fprintf(&b, ": %s", p)
		}
		b.WriteString("\n")
		if d := v.Description(); d != "" {
			fmt.Fprintf(&b, "   %s\n", d)
		}
	}

	if len(s.Suggestions) > 0 {
		b.WriteString("\n## Annotation suggestions\n\n")
		for _, a := range s.Suggestions {
			switch {
			case a.Label() != "" && a.Text() != "":
				fmt.Fprintf(&b, "- *%s*: %s\n", a.Label(), a.Text())
			case a.Text() != "":
				fmt.Fprintf(&b, "- %s\n", a.Text())
			case a.Label() != "":
				fmt.Fprintf(&b, "- %s\n", a.Label())
			}
		}
	}

	return b.String()
}
