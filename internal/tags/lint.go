package tags

import (
	"fmt"
	"strings"
)

// Issue describes one problem found by Lint.
type Issue struct {
	Section int    `json:"section"` // 0-based index among non-empty sections
	Text    string `json:"text"`
	Message string `json:"message"`
	Dropped bool   `json:"dropped"` // Parse discards the whole section
}

// Lint is the strict counterpart of Parse. It returns the same mapping
// Parse would, plus one issue per section that Parse drops or that would
// not survive re-serialization.
func Lint(raw string) (Parsed, []Issue) {
	var issues []Issue
	for i, sec := range splitSections(raw) {
		category, content, ok := splitSection(sec)
		switch {
		case !ok && !strings.Contains(sec, ":"):
			issues = append(issues, Issue{Section: i, Text: sec, Message: `missing ":" between category and tag`, Dropped: true})
			continue
		case !ok:
			issues = append(issues, Issue{Section: i, Text: sec, Message: "empty category", Dropped: true})
			continue
		case content == "":
			issues = append(issues, Issue{Section: i, Text: sec, Message: "empty tag; the category is listed with no tags"})
			continue
		}

		e := parseContent(content)
		if e.Detail == nil && strings.ContainsAny(content, "{}") {
			issues = append(issues, Issue{Section: i, Text: sec, Message: "braces do not form a trailing {detail}"})
			continue
		}
		if e.Detail != nil && *e.Detail == "" {
			issues = append(issues, Issue{Section: i, Text: sec, Message: "empty {detail} has no canonical form"})
		}
		for _, msg := range ValidateStructure(category, e.Name, e.DetailOrEmpty()).Errors {
			issues = append(issues, Issue{Section: i, Text: sec, Message: msg})
		}
	}
	return Parse(raw), issues
}

// TagString is the result of ParseTagString.
type TagString struct {
	IsValid    bool     `json:"is_valid"`
	Category   string   `json:"category,omitempty"`
	Content    string   `json:"content,omitempty"`
	Supplement *string  `json:"supplement,omitempty"`
	Errors     []string `json:"errors"`
}

// ParseTagString strictly parses a single "category:tag{detail}" string,
// reporting every structural problem instead of dropping the input.
func ParseTagString(s string) TagString {
	trimmed := strings.TrimSpace(s)
	if trimmed == "" {
		return TagString{Errors: []string{"tag string is empty"}}
	}
	colon := strings.IndexByte(trimmed, ':')
	if colon < 0 {
		return TagString{Errors: []string{`missing ":" between category and tag`}}
	}

	out := TagString{Category: trimmed[:colon]}
	rest := trimmed[colon+1:]
	if out.Category == "" {
		out.Errors = append(out.Errors, "empty category")
	}

	open := strings.IndexByte(rest, '{')
	closing := strings.IndexByte(rest, '}')
	switch {
	case open < 0 && closing < 0:
		out.Content = rest
		if rest == "" {
			out.Errors = append(out.Errors, "empty tag")
		}
	case open < 0:
		out.Errors = append(out.Errors, `missing "{"`)
	case closing < 0:
		out.Errors = append(out.Errors, `missing "}"`)
	case open > closing:
		out.Errors = append(out.Errors, `"}" appears before "{"`)
	case closing != len(rest)-1:
		out.Errors = append(out.Errors, `"}" must be the last character`)
	default:
		out.Content = rest[:open]
		sup := rest[open+1 : closing]
		out.Supplement = &sup
		if out.Content == "" {
			out.Errors = append(out.Errors, "empty tag")
		}
		if sup == "" {
			out.Errors = append(out.Errors, "empty detail (drop the braces if no detail is needed)")
		}
	}

	out.IsValid = len(out.Errors) == 0
	if out.Errors == nil {
		out.Errors = []string{}
	}
	return out
}

// String implements fmt.Stringer for CLI output.
func (i Issue) String() string {
	if i.Dropped {
		return fmt.Sprintf("section %d %q: %s (dropped)", i.Section+1, i.Text, i.Message)
	}
	return fmt.Sprintf("section %d %q: %s", i.Section+1, i.Text, i.Message)
}
