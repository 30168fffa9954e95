// Package source maps citation segments back to the retrieved documents
// they point at. The parser deliberately does no bounds checking, so the
// range checks live here.
package source

import (
	"strings"

	"github.com/genie-mentor/genied/internal/agent"
	"github.com/genie-mentor/genied/internal/citation"
)

var displayNames = map[string]string{
	"kb":             "Knowledge Base",
	"knowledge_base": "Knowledge Base",
	"web":            "Web Search",
	"websearch":      "Web Search",
	"docs":           "Documentation",
	"github":         "GitHub",
	"confluence":     "Confluence",
}

// DisplayName maps a backend source-type key to the label shown in
// source lists. Unknown types fall back to a title-cased form of the key.
func DisplayName(sourceType string) string {
	if name, ok := displayNames[strings.ToLower(sourceType)]; ok {
		return name
	}
	sourceType = strings.ReplaceAll(sourceType, "_", " ")
	if sourceType == "" {
		return "Sources"
	}
	return strings.ToUpper(sourceType[:1]) + sourceType[1:]
}

// Resolve returns the document a citation segment refers to, or false if
// the marker is out of range. Text segments never resolve. A citation
// without a letter tag addresses the first source list.
func Resolve(trace agent.TraceInfo, seg citation.Segment) (agent.Document, bool) {
	if seg.Kind != citation.KindCitation {
		return agent.Document{}, false
	}
	listIdx := seg.SourceIndex
	if listIdx < 0 {
		listIdx = 0
	}
	if listIdx >= len(trace.Sources) {
		return agent.Document{}, false
	}
	docs := trace.Sources[listIdx].Documents
	if seg.DocIndex < 0 || seg.DocIndex >= len(docs) {
		return agent.Document{}, false
	}
	return docs[seg.DocIndex], true
}

// URL picks the link for a document: an explicit URL wins, otherwise a
// local path becomes a file link, otherwise there is nothing to open.
func URL(doc agent.Document) string {
	if doc.URL != "" {
		return doc.URL
	}
	if doc.Path != "" {
		return "file://" + doc.Path
	}
	return ""
}
