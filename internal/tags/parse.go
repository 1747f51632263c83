// Package tags implements the custom-tags mini-language used on stock
// records: "category:tag{detail};category:tag;..." plus the lexical
// validators applied to individual tags.
package tags

import (
	"bytes"
	"encoding/json"
	"regexp"
	"strings"
)

// Entry is one parsed "tag" or "tag{detail}" fragment.
//
// Detail is nil when the fragment carried no braces. A nil detail and an
// empty detail are different identities.
type Entry struct {
	Name   string  `json:"name"`
	Detail *string `json:"detail,omitempty"`
}

// HasDetail reports whether the entry carries a {detail} suffix.
func (e Entry) HasDetail() bool { return e.Detail != nil }

// DetailOrEmpty returns the detail text, or "" when absent.
func (e Entry) DetailOrEmpty() string {
	if e.Detail == nil {
		return ""
	}
	return *e.Detail
}

// Parsed is the category -> entries mapping produced by Parse. Category
// order is first-encounter order in the input.
type Parsed struct {
	order   []string
	entries map[string][]Entry
}

// Categories returns category names in first-encounter order.
func (p Parsed) Categories() []string {
	out := make([]string, len(p.order))
	copy(out, p.order)
	return out
}

// Entries returns the entries recorded under category, in input order.
func (p Parsed) Entries(category string) []Entry {
	return p.entries[category]
}

// Len returns the number of categories.
func (p Parsed) Len() int { return len(p.order) }

// MarshalJSON encodes the mapping as a JSON object whose key order follows
// Categories().
func (p Parsed) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, cat := range p.order {
		if i > 0 {
			buf.WriteByte(',')
		}
		k, err := json.Marshal(cat)
		if err != nil {
			return nil, err
		}
		v, err := json.Marshal(p.entries[cat])
		if err != nil {
			return nil, err
		}
		buf.Write(k)
		buf.WriteByte(':')
		buf.Write(v)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func (p *Parsed) add(category string, e Entry) {
	if p.entries == nil {
		p.entries = make(map[string][]Entry)
	}
	if _, ok := p.entries[category]; !ok {
		p.order = append(p.order, category)
	}
	p.entries[category] = append(p.entries[category], e)
}

// declare records category with no entries unless it is already present.
func (p *Parsed) declare(category string) {
	if p.entries == nil {
		p.entries = make(map[string][]Entry)
	}
	if _, ok := p.entries[category]; !ok {
		p.order = append(p.order, category)
		p.entries[category] = []Entry{}
	}
}

var detailPattern = regexp.MustCompile(`^(.+?)\{(.+?)\}$`)

// Parse parses a custom-tags string. It never fails: sections without a
// colon or with an empty category are dropped. A section with empty content
// still records its category, with no entry. Repeated tags are kept in
// input order.
func Parse(raw string) Parsed {
	var out Parsed
	for _, sec := range splitSections(raw) {
		category, content, ok := splitSection(sec)
		if !ok {
			continue
		}
		if content == "" {
			out.declare(category)
			continue
		}
		out.add(category, parseContent(content))
	}
	return out
}

// splitSections splits on ';', trims every section and drops empty ones.
func splitSections(raw string) []string {
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ";")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		out = append(out, p)
	}
	return out
}

// splitSection separates "category:content" on the first colon.
func splitSection(sec string) (category, content string, ok bool) {
	i := strings.IndexByte(sec, ':')
	if i <= 0 {
		return "", "", false
	}
	category = strings.TrimSpace(sec[:i])
	if category == "" {
		return "", "", false
	}
	return category, strings.TrimSpace(sec[i+1:]), true
}

func parseContent(content string) Entry {
	if m := detailPattern.FindStringSubmatch(content); m != nil {
		detail := strings.TrimSpace(m[2])
		return Entry{Name: strings.TrimSpace(m[1]), Detail: &detail}
	}
	return Entry{Name: content}
}

// Format renders one tag in canonical form: "category:name" or
// "category:name{detail}" when detail is non-empty.
func Format(category, name, detail string) string {
	base := category + ":" + name
	if detail != "" {
		return base + "{" + detail + "}"
	}
	return base
}

// FormatAll re-serializes a parsed mapping, joining sections with ';'. A
// category without entries is written as "category:".
//
// An entry with an empty detail has no canonical spelling and comes back
// without braces; use Canonical when the identity must survive.
func FormatAll(p Parsed) string {
	var parts []string
	for _, cat := range p.order {
		if len(p.entries[cat]) == 0 {
			parts = append(parts, cat+":")
			continue
		}
		for _, e := range p.entries[cat] {
			parts = append(parts, Format(cat, e.Name, e.DetailOrEmpty()))
		}
	}
	return strings.Join(parts, ";")
}

// Canonical returns raw rewritten in canonical form. ok is false when the
// rewrite would parse to a different mapping than raw does; callers then
// keep raw.
func Canonical(raw string) (string, bool) {
	p := Parse(raw)
	out := FormatAll(p)
	if !Equal(Parse(out), p) {
		return raw, false
	}
	return out, true
}

// Equal reports whether a and b hold the same categories in the same order
// with the same entries, nil and empty details told apart.
func Equal(a, b Parsed) bool {
	if len(a.order) != len(b.order) {
		return false
	}
	for i, cat := range a.order {
		if b.order[i] != cat {
			return false
		}
		ea, eb := a.entries[cat], b.entries[cat]
		if len(ea) != len(eb) {
			return false
		}
		for j := range ea {
			if ea[j].Name != eb[j].Name ||
				ea[j].HasDetail() != eb[j].HasDetail() ||
				ea[j].DetailOrEmpty() != eb[j].DetailOrEmpty() {
				return false
			}
		}
	}
	return true
}

// Union returns the entries of a followed by the entries of b that a does
// not already carry under the same category. Duplicates inside a are kept.
func Union(a, b Parsed) Parsed {
	type identity struct {
		category, name, detail string
		hasDetail               bool
	}
	idOf := func(cat string, e Entry) identity {
		return identity{category: cat, name: e.Name, detail: e.DetailOrEmpty(), hasDetail: e.HasDetail()}
	}

	var out Parsed
	seen := make(map[identity]struct{})
	for _, cat := range a.order {
		out.declare(cat)
		for _, e := range a.entries[cat] {
			out.add(cat, e)
			seen[idOf(cat, e)] = struct{}{}
		}
	}
	for _, cat := range b.order {
		out.declare(cat)
		for _, e := range b.entries[cat] {
			id := idOf(cat, e)
			if _, ok := seen[id]; ok {
				continue
			}
			out.add(cat, e)
			seen[id] = struct{}{}
		}
	}
	return out
}
