// Package citation parses agent answer text into a flat sequence of text
// and citation segments so clients can wire inline markers like [3] or
// [A][2] to their source lookups without re-implementing the grammar.
package citation

import (
	"regexp"
	"strconv"
	"strings"
)

// Kind discriminates the segment variants.
type Kind string

const (
	KindText     Kind = "text"
	KindCitation Kind = "citation"
)

// Segment is one span of parsed answer text. Concatenating the Content of
// every segment in order reproduces the normalized input exactly.
//
// For citation segments DocIndex is the zero-based document position (the
// marker's number minus one). It is not bounds-checked here: a marker like
// [0] yields DocIndex -1, and consumers must range-check before indexing
// into a source list. SourceIndex is -1 outside multi-source mode.
type Segment struct {
	Kind        Kind   `json:"type"`
	Content     string `json:"content"`
	DocIndex    int    `json:"doc_index"`
	SourceIndex int    `json:"source_index"`
	Original    string `json:"original_text,omitempty"`
}

var (
	// [3] or [3.2] — only the integer part before the dot counts.
	singleSourceRe = regexp.MustCompile(`\[(\d+(?:\.\d+)?)\]`)
	// [A][2] — capital letter selects the source list, number the document.
	multiSourceRe = regexp.MustCompile(`\[([A-Z])\]\[(\d+(?:\.\d+)?)\]`)

	// Lines starting with a numbered or bulleted list prefix are rewritten
	// to private tokens before citation matching so "1." at the start of a
	// list line is never mistaken for citation text. The tokens contain no
	// brackets and cannot collide with either citation grammar.
	numberedPrefixRe = regexp.MustCompile(`(?m)^(\d+)\.`)
	bulletPrefixRe   = regexp.MustCompile(`(?m)^[*•-]`)
	numberedTokenRe  = regexp.MustCompile(`\x00num:(\d+)\x00`)
)

const bulletToken = "\x00bullet\x00"

// Parse splits text into text and citation segments. multiSource selects
// the [A][2] grammar; otherwise the plain [3] grammar is used.
//
// Parse is pure and never fails: malformed citation-like text simply does
// not match and stays part of the surrounding text segment. Empty input
// yields no segments.
func Parse(text string, multiSource bool) []Segment {
	if text == "" {
		return nil
	}

	protected := protectListPrefixes(normalizeEscapes(text))

	re := singleSourceRe
	if multiSource {
		re = multiSourceRe
	}

	matches := re.FindAllStringSubmatchIndex(protected, -1)
	if len(matches) == 0 {
		return []Segment{textSegment(protected)}
	}

	var segs []Segment
	prev := 0
	for _, m := range matches {
		if m[0] > prev {
			segs = append(segs, textSegment(protected[prev:m[0]]))
		}
		segs = append(segs, citationSegment(protected, m, multiSource))
		prev = m[1]
	}
	if prev < len(protected) {
		segs = append(segs, textSegment(protected[prev:]))
	}
	return segs
}

func textSegment(s string) Segment {
	return Segment{Kind: KindText, Content: restoreListPrefixes(s), SourceIndex: -1}
}

func citationSegment(protected string, m []int, multiSource bool) Segment {
	full := protected[m[0]:m[1]]
	seg := Segment{
		Kind:        KindCitation,
		Content:     full,
		SourceIndex: -1,
	}
	if multiSource {
		letter := protected[m[2]:m[3]]
		seg.SourceIndex = int(letter[0] - 'A')
		seg.DocIndex = citationNumber(protected[m[4]:m[5]]) - 1
		seg.Original = full
	} else {
		seg.DocIndex = citationNumber(protected[m[2]:m[3]]) - 1
	}
	return seg
}

// citationNumber truncates at a decimal point, so "3.2" cites document 3.
func citationNumber(s string) int {
	if dot := strings.IndexByte(s, '.'); dot >= 0 {
		s = s[:dot]
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0
	}
	return n
}

// normalizeEscapes turns literal backslash-n sequences (double-escaped by
// JSON transport) into real newlines.
func normalizeEscapes(s string) string {
	return strings.ReplaceAll(s, `\n`, "\n")
}

func protectListPrefixes(s string) string {
	s = numberedPrefixRe.ReplaceAllString(s, "\x00num:$1\x00")
	return bulletPrefixRe.ReplaceAllString(s, bulletToken)
}

// restoreListPrefixes rewrites the private tokens back to their visible
// form: "N." for numbered items and "•" for every bullet variant.
func restoreListPrefixes(s string) string {
	s = numberedTokenRe.ReplaceAllString(s, "$1.")
	return strings.ReplaceAll(s, bulletToken, "•")
}
