package tags

import (
	"strings"
	"unicode/utf8"
)

// Status is the quality classification of a single tag.
type Status string

const (
	StatusValid   Status = "valid"
	StatusWarning Status = "warning"
	StatusError   Status = "error"
	StatusSpecial Status = "special"
)

// Weight orders statuses for display: errors first, plain valid tags last.
func (s Status) Weight() int {
	switch s {
	case StatusError:
		return 4
	case StatusWarning:
		return 3
	case StatusSpecial:
		return 2
	default:
		return 1
	}
}

const (
	maxNameLen        = 20
	maxDetailLen      = 50
	maxStructDetailLn = 100
)

// Validate classifies (name, detail). The first matching rule wins. An
// empty detail is treated as absent.
func Validate(name, detail string) Status {
	st, _ := classify(name, detail)
	return st
}

type reason int

const (
	reasonNone reason = iota
	reasonEmpty
	reasonIllegalSeq
	reasonControl
	reasonEdge
	reasonSpecialStart
	reasonMeaningless
	reasonSpecial
	reasonNameTooLong
	reasonDetailTooLong
	reasonNameTooShort
)

func classify(name, detail string) (Status, reason) {
	if strings.TrimSpace(name) == "" {
		return StatusError, reasonEmpty
	}
	if strings.Contains(name, "::") || strings.Contains(name, "{{") || strings.Contains(name, "}}") {
		return StatusError, reasonIllegalSeq
	}
	if strings.ContainsAny(name, "\n\t\r") {
		return StatusError, reasonControl
	}
	if strings.HasPrefix(name, " ") || strings.HasSuffix(name, " ") {
		return StatusError, reasonEdge
	}
	if strings.HasPrefix(name, "-") || strings.HasPrefix(name, "_") {
		return StatusError, reasonSpecialStart
	}

	n := utf8.RuneCountInString(name)
	if n == 1 {
		r, _ := utf8.DecodeRuneInString(name)
		if isMeaninglessSingle(r) {
			return StatusError, reasonMeaningless
		}
		if _, ok := specialSingleChars[r]; ok {
			return StatusSpecial, reasonSpecial
		}
	}

	if n > maxNameLen {
		return StatusWarning, reasonNameTooLong
	}
	if detail != "" && utf8.RuneCountInString(detail) > maxDetailLen {
		return StatusWarning, reasonDetailTooLong
	}
	if n < 2 {
		return StatusWarning, reasonNameTooShort
	}
	return StatusValid, reasonNone
}

// Explanation is the human-readable form of a Validate result.
type Explanation struct {
	Status    Status `json:"status"`
	Message   string `json:"message"`
	IsSpecial bool   `json:"is_special"`
}

var reasonMessages = map[reason]string{
	reasonNone:          "tag format is correct",
	reasonEmpty:         "tag name must not be empty",
	reasonIllegalSeq:    `tag name contains an illegal sequence ("::", "{{" or "}}")`,
	reasonControl:       "tag name must not contain line breaks or tabs",
	reasonEdge:          "tag name must not start or end with a space",
	reasonSpecialStart:  `tag name must not start with "-" or "_"`,
	reasonMeaningless:   "meaningless single-character tag",
	reasonSpecial:       "meaningful single-character industry tag",
	reasonNameTooLong:   "tag name is too long, consider shortening it",
	reasonDetailTooLong: "tag detail is too long, consider trimming it",
	reasonNameTooShort:  "tag name is very short and may be meaningless",
}

// Explain returns the status of (name, detail) together with the rule that
// produced it.
func Explain(name, detail string) Explanation {
	st, why := classify(name, detail)
	return Explanation{Status: st, Message: reasonMessages[why], IsSpecial: st == StatusSpecial}
}

// StructureResult is the outcome of ValidateStructure.
type StructureResult struct {
	IsValid    bool     `json:"is_valid"`
	Category   string   `json:"category"`
	Content    string   `json:"content"`
	Supplement string   `json:"supplement,omitempty"`
	Errors     []string `json:"errors"`
}

// ValidateStructure checks that a (category, name, detail) triple can be
// re-serialized as "category:name{detail}". Unlike Validate it collects
// every violated rule.
func ValidateStructure(category, name, detail string) StructureResult {
	errs := []string{}

	if strings.TrimSpace(category) == "" {
		errs = append(errs, "missing category")
	} else {
		if strings.Contains(category, ":") {
			errs = append(errs, `category must not contain ":"`)
		}
		if strings.ContainsAny(category, "{}") {
			errs = append(errs, `category must not contain "{" or "}"`)
		}
	}

	if strings.TrimSpace(name) == "" {
		errs = append(errs, "missing tag name")
	} else {
		if strings.Contains(name, ":") {
			errs = append(errs, `tag name must not contain ":"`)
		}
		if strings.ContainsAny(name, "{}") {
			errs = append(errs, `tag name must not contain "{" or "}"`)
		}
		if name != strings.TrimSpace(name) {
			errs = append(errs, "tag name has surrounding whitespace")
		}
	}

	if detail != "" {
		if strings.Contains(detail, ":") {
			errs = append(errs, `detail must not contain ":"`)
		}
		if strings.ContainsAny(detail, "{}") {
			errs = append(errs, `detail must not contain "{" or "}"`)
		}
		if detail != strings.TrimSpace(detail) {
			errs = append(errs, "detail has surrounding whitespace")
		}
		if utf8.RuneCountInString(detail) > maxStructDetailLn {
			errs = append(errs, "detail is longer than 100 characters")
		}
	}

	return StructureResult{
		IsValid:    len(errs) == 0,
		Category:   strings.TrimSpace(category),
		Content:    strings.TrimSpace(name),
		Supplement: strings.TrimSpace(detail),
		Errors:     errs,
	}
}
