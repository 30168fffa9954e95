package citation

import (
	"strings"
	"testing"
)

func TestParse_SingleSource(t *testing.T) {
	segs := Parse("See [3] and [10].", false)

	want := []Segment{
		{Kind: KindText, Content: "See ", SourceIndex: -1},
		{Kind: KindCitation, Content: "[3]", DocIndex: 2, SourceIndex: -1},
		{Kind: KindText, Content: " and ", SourceIndex: -1},
		{Kind: KindCitation, Content: "[10]", DocIndex: 9, SourceIndex: -1},
		{Kind: KindText, Content: ".", SourceIndex: -1},
	}
	if len(segs) != len(want) {
		t.Fatalf("expected %d segments, got %d: %+v", len(want), len(segs), segs)
	}
	for i, w := range want {
		if segs[i] != w {
			t.Errorf("segment %d = %+v, want %+v", i, segs[i], w)
		}
	}
}

func TestParse_MultiSource(t *testing.T) {
	segs := Parse("Per [B][2]", true)

	if len(segs) != 2 {
		t.Fatalf("expected 2 segments, got %d: %+v", len(segs), segs)
	}
	c := segs[1]
	if c.Kind != KindCitation {
		t.Fatalf("expected citation segment, got %+v", c)
	}
	if c.SourceIndex != 1 {
		t.Errorf("source index = %d, want 1", c.SourceIndex)
	}
	if c.DocIndex != 1 {
		t.Errorf("doc index = %d, want 1", c.DocIndex)
	}
	if c.Original != "[B][2]" {
		t.Errorf("original = %q, want [B][2]", c.Original)
	}
}

func TestParse_NoMarkers(t *testing.T) {
	segs := Parse("Plain text, no markers.", false)

	if len(segs) != 1 {
		t.Fatalf("expected 1 segment, got %d", len(segs))
	}
	if segs[0].Kind != KindText || segs[0].Content != "Plain text, no markers." {
		t.Errorf("unexpected segment: %+v", segs[0])
	}
}

func TestParse_Empty(t *testing.T) {
	if segs := Parse("", false); segs != nil {
		t.Errorf("expected no segments for empty input, got %+v", segs)
	}
	if segs := Parse("", true); segs != nil {
		t.Errorf("expected no segments for empty multi-source input, got %+v", segs)
	}
}

func TestParse_DecimalMarkerTruncates(t *testing.T) {
	segs := Parse("As shown [3.2] here", false)

	if len(segs) != 3 {
		t.Fatalf("expected 3 segments, got %d: %+v", len(segs), segs)
	}
	if segs[1].DocIndex != 2 {
		t.Errorf("doc index = %d, want 2 (integer part of 3.2 minus one)", segs[1].DocIndex)
	}
	if segs[1].Content != "[3.2]" {
		t.Errorf("content = %q, want [3.2]", segs[1].Content)
	}
}

func TestParse_ZeroMarkerNotRejected(t *testing.T) {
	// [0] is out of range but parsing is not the place to reject it;
	// consumers bounds-check DocIndex before indexing.
	segs := Parse("bad [0] marker", false)

	if len(segs) != 3 {
		t.Fatalf("expected 3 segments, got %d", len(segs))
	}
	if segs[1].DocIndex != -1 {
		t.Errorf("doc index = %d, want -1", segs[1].DocIndex)
	}
}

func TestParse_EscapedNewlines(t *testing.T) {
	segs := Parse(`first line\nsecond line [1]`, false)

	if len(segs) != 2 {
		t.Fatalf("expected 2 segments, got %d: %+v", len(segs), segs)
	}
	if segs[0].Content != "first line\nsecond line " {
		t.Errorf("content = %q, escape sequence not normalized", segs[0].Content)
	}
}

func TestParse_NumberedListNotMistakenForCitation(t *testing.T) {
	segs := Parse("Steps:\n1. prepare\n2. run [2]", false)

	var citations []Segment
	for _, s := range segs {
		if s.Kind == KindCitation {
			citations = append(citations, s)
		}
	}
	if len(citations) != 1 {
		t.Fatalf("expected exactly 1 citation, got %d: %+v", len(citations), segs)
	}
	if citations[0].Content != "[2]" {
		t.Errorf("citation content = %q, want [2]", citations[0].Content)
	}

	joined := joinContent(segs)
	if !strings.Contains(joined, "1. prepare") {
		t.Errorf("numbered prefix not restored:\n%s", joined)
	}
	if !strings.Contains(joined, "2. run") {
		t.Errorf("numbered prefix not restored:\n%s", joined)
	}
}

func TestParse_BulletVariantsRestoredUniformly(t *testing.T) {
	segs := Parse("* first\n- second\n• third", false)

	joined := joinContent(segs)
	want := "• first\n• second\n• third"
	if joined != want {
		t.Errorf("bullets = %q, want %q", joined, want)
	}
}

func TestParse_RoundTrip(t *testing.T) {
	tests := []struct {
		name        string
		text        string
		multiSource bool
	}{
		{"plain", "nothing to see here", false},
		{"single citations", "a [1] b [2] c", false},
		{"adjacent citations", "[1][2][3]", false},
		{"multi source", "x [A][1] y [C][12] z", true},
		{"leading citation", "[4] opens the text", false},
		{"trailing citation", "ends with [7]", false},
		{"lists and citations", "intro\n1. one [1]\n* two [2]\ntail", false},
		{"decimals", "see [1.5] and [2.25]", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			segs := Parse(tt.text, tt.multiSource)
			want := restoreListPrefixes(protectListPrefixes(normalizeEscapes(tt.text)))
			if got := joinContent(segs); got != want {
				t.Errorf("round trip lost characters:\n got %q\nwant %q", got, want)
			}
		})
	}
}

func TestParse_MultiGrammarIgnoresBareMarkers(t *testing.T) {
	// In multi-source mode a bare [3] has no letter tag and must stay text.
	segs := Parse("bare [3] marker", true)

	for _, s := range segs {
		if s.Kind == KindCitation {
			t.Fatalf("expected no citations, got %+v", s)
		}
	}
}

func joinContent(segs []Segment) string {
	var b strings.Builder
	for _, s := range segs {
		b.WriteString(s.Content)
	}
	return b.String()
}
