package tags

import (
	"encoding/json"
	"reflect"
	"testing"
)

func strp(s string) *string { return &s }

func TestParse_SectionsAndDetails(t *testing.T) {
	p := Parse(" 行业:医疗{器械} ;概念:AI;;行业:医疗; ")

	if got := p.Categories(); !reflect.DeepEqual(got, []string{"行业", "概念"}) {
		t.Fatalf("unexpected category order: %v", got)
	}
	want := []Entry{{Name: "医疗", Detail: strp("器械")}, {Name: "医疗"}}
	if got := p.Entries("行业"); !reflect.DeepEqual(got, want) {
		t.Fatalf("unexpected 行业 entries: %+v", got)
	}
	if got := p.Entries("概念"); !reflect.DeepEqual(got, []Entry{{Name: "AI"}}) {
		t.Fatalf("unexpected 概念 entries: %+v", got)
	}
}

func TestParse_DropsMalformedSections(t *testing.T) {
	p := Parse("noColonHere;a:b")
	if p.Len() != 1 {
		t.Fatalf("expected 1 category, got %d", p.Len())
	}
	if got := p.Entries("a"); !reflect.DeepEqual(got, []Entry{{Name: "b"}}) {
		t.Fatalf("unexpected entries: %+v", got)
	}

	for _, in := range []string{"", ";;;", ":x", "  :x"} {
		if got := Parse(in); got.Len() != 0 {
			t.Fatalf("Parse(%q): expected empty result, got %v", in, got.Categories())
		}
	}
}

func TestParse_EmptyContentKeepsCategory(t *testing.T) {
	for _, in := range []string{"cat:", "cat:   "} {
		p := Parse(in)
		if got := p.Categories(); !reflect.DeepEqual(got, []string{"cat"}) {
			t.Fatalf("Parse(%q): unexpected categories %v", in, got)
		}
		if got := p.Entries("cat"); got == nil || len(got) != 0 {
			t.Fatalf("Parse(%q): expected an empty entry list, got %#v", in, got)
		}
	}

	p := Parse("行业:;概念:AI;行业:医疗")
	if got := p.Categories(); !reflect.DeepEqual(got, []string{"行业", "概念"}) {
		t.Fatalf("unexpected category order: %v", got)
	}
	if got := p.Entries("行业"); !reflect.DeepEqual(got, []Entry{{Name: "医疗"}}) {
		t.Fatalf("unexpected 行业 entries: %+v", got)
	}

	b, err := json.Marshal(Parse("行业:;概念:AI"))
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if want := `{"行业":[],"概念":[{"name":"AI"}]}`; string(b) != want {
		t.Fatalf("got %s want %s", b, want)
	}
}

func TestParse_KeepsDuplicates(t *testing.T) {
	p := Parse("a:x;a:x")
	if got := len(p.Entries("a")); got != 2 {
		t.Fatalf("expected duplicates to be kept, got %d entries", got)
	}
}

func TestParse_FirstColonSplits(t *testing.T) {
	p := Parse("a: b:c ")
	if got := p.Entries("a"); !reflect.DeepEqual(got, []Entry{{Name: "b:c"}}) {
		t.Fatalf("unexpected entries: %+v", got)
	}
}

func TestParse_BracesNotAtEnd(t *testing.T) {
	p := Parse("a:x{y}z;b:x{};c: n { d } ")
	if got := p.Entries("a"); !reflect.DeepEqual(got, []Entry{{Name: "x{y}z"}}) {
		t.Fatalf("unexpected a entries: %+v", got)
	}
	if got := p.Entries("b"); !reflect.DeepEqual(got, []Entry{{Name: "x{}"}}) {
		t.Fatalf("unexpected b entries: %+v", got)
	}
	if got := p.Entries("c"); !reflect.DeepEqual(got, []Entry{{Name: "n", Detail: strp("d")}}) {
		t.Fatalf("unexpected c entries: %+v", got)
	}
}

func TestParse_RoundTrip(t *testing.T) {
	cases := []struct {
		category, name string
		detail         *string
	}{
		{"行业", "医疗", nil},
		{"行业", "医疗", strp("器械")},
		{"concept", "cloud computing", strp("IaaS and PaaS")},
		{"x", "y", nil},
	}
	for _, c := range cases {
		raw := Format(c.category, c.name, "")
		if c.detail != nil {
			raw = Format(c.category, c.name, *c.detail)
		}
		p := Parse(raw)
		if p.Len() != 1 {
			t.Fatalf("%q: expected one category, got %d", raw, p.Len())
		}
		got := p.Entries(c.category)
		want := []Entry{{Name: c.name, Detail: c.detail}}
		if !reflect.DeepEqual(got, want) {
			t.Fatalf("%q: got %+v want %+v", raw, got, want)
		}
	}
}

func TestParse_Idempotent(t *testing.T) {
	raw := "b:1{x};a:2;b:3"
	if !reflect.DeepEqual(Parse(raw), Parse(raw)) {
		t.Fatal("parsing the same input twice produced different results")
	}
}

func TestParsed_MarshalJSONKeepsOrder(t *testing.T) {
	b, err := json.Marshal(Parse("z:1;a:2{d}"))
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	want := `{"z":[{"name":"1"}],"a":[{"name":"2","detail":"d"}]}`
	if string(b) != want {
		t.Fatalf("got %s want %s", b, want)
	}

	empty, _ := json.Marshal(Parse(""))
	if string(empty) != "{}" {
		t.Fatalf("empty parse should encode as {}, got %s", empty)
	}
}

func TestFormatAll(t *testing.T) {
	raw := "行业:医疗;概念:AI{大模型};行业:器械"
	if got := FormatAll(Parse(raw)); got != "行业:医疗;行业:器械;概念:AI{大模型}" {
		t.Fatalf("unexpected FormatAll output: %q", got)
	}
}

func TestUnion(t *testing.T) {
	a := Parse("行业:医疗;概念:AI{大模型}")
	b := Parse("概念:AI{大模型};概念:AI;地区:上海;行业:医疗")

	got := FormatAll(Union(a, b))
	want := "行业:医疗;概念:AI{大模型};概念:AI;地区:上海"
	if got != want {
		t.Fatalf("Union: got %q want %q", got, want)
	}

	if got := FormatAll(Union(Parsed{}, b)); got != FormatAll(b) {
		t.Fatalf("Union with empty left side: %q", got)
	}
}

func TestCanonical_PreservesParsedIdentity(t *testing.T) {
	cases := []struct {
		in      string
		want    string
		rewrite bool
	}{
		{"行业:医疗{器械};概念:AI;行业:医疗", "行业:医疗{器械};行业:医疗;概念:AI", true},
		{" a : b { c } ", "a:b{c}", true},
		{"a:x{y}z;a:x{}", "a:x{y}z;a:x{}", true},
		{"a:x;a:x;b:y;a:x", "a:x;a:x;a:x;b:y", true},
		{"a:;b:1;a:", "a:;b:1", true},
		{"a:b{c}d}", "a:b{c}d}", true},
		{"a:x{ {y}", "a:x{{y}", true},
		{"noColon;:x;a:1", "a:1", true},
		{"a:b{ }", "a:b{ }", false},
		{"a:1;a:b{ };c:2", "a:1;a:b{ };c:2", false},
	}
	for _, tc := range cases {
		before := Parse(tc.in)
		got, ok := Canonical(tc.in)
		if ok != tc.rewrite || got != tc.want {
			t.Errorf("Canonical(%q) = %q, %v; want %q, %v", tc.in, got, ok, tc.want, tc.rewrite)
			continue
		}
		if !Equal(Parse(got), before) {
			t.Errorf("Canonical(%q) = %q changes the parsed mapping", tc.in, got)
		}
		if again, _ := Canonical(got); again != got {
			t.Errorf("Canonical(%q) is not stable: %q then %q", tc.in, got, again)
		}
	}
}

func TestFormatAll_EmptyDetailLosesIdentity(t *testing.T) {
	p := Parse("a:b{ }")
	e := p.Entries("a")
	if len(e) != 1 || !e[0].HasDetail() || e[0].DetailOrEmpty() != "" {
		t.Fatalf("expected an empty detail, got %+v", e)
	}
	if Equal(Parse(FormatAll(p)), p) {
		t.Fatal("FormatAll cannot spell an empty detail; Equal should notice")
	}
}

func TestEqual(t *testing.T) {
	if !Equal(Parse("a:1;b:2{x}"), Parse("a:1;b:2{x}")) {
		t.Fatal("identical input should be equal")
	}
	for _, pair := range [][2]string{
		{"a:1;b:2", "b:2;a:1"},
		{"a:1", "a:1;a:1"},
		{"a:1", "a:1{x}"},
		{"a:1{ }", "a:1"},
		{"a:", ""},
	} {
		if Equal(Parse(pair[0]), Parse(pair[1])) {
			t.Errorf("Equal(%q, %q) = true", pair[0], pair[1])
		}
	}
}
