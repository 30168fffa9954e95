package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/genie-mentor/genied/internal/agent"
	"github.com/genie-mentor/genied/internal/citation"
	"github.com/genie-mentor/genied/internal/conversation"
	"github.com/genie-mentor/genied/internal/mentor"
	"github.com/genie-mentor/genied/internal/source"
)

type askRequest struct {
	Question string `json:"question"`
}

// askResponse is one rendered exchange. Segments are the parsed citation
// view of the answer; Sources mirror the trace's source lists with
// display names and resolved links filled in.
type askResponse struct {
	Item        conversation.Item `json:"item"`
	Simplified  bool              `json:"simplified"`
	MultiSource bool              `json:"multi_source"`
	Segments    []renderedSegment `json:"segments,omitempty"`
	Sources     []sourceList      `json:"sources,omitempty"`
}

// renderedSegment is a citation segment with its marker resolved against
// the trace's source lists, so clients link citations without doing the
// bounds-checked lookup themselves. Out-of-range markers render with the
// resolution fields empty.
type renderedSegment struct {
	citation.Segment
	SourceTitle string `json:"source_title,omitempty"`
	SourceURL   string `json:"source_url,omitempty"`
}

type sourceList struct {
	Type        string           `json:"type"`
	DisplayName string           `json:"display_name"`
	Documents   []sourceDocument `json:"documents"`
}

type sourceDocument struct {
	Title   string `json:"title"`
	URL     string `json:"url,omitempty"`
	Snippet string `json:"snippet,omitempty"`
}

func (s *Server) ask(w http.ResponseWriter, r *http.Request) {
	var req askRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	res, err := s.conv.Ask(r.Context(), chi.URLParam(r, "sessionID"), req.Question)
	switch {
	case errors.Is(err, mentor.ErrEmptyQuestion):
		writeError(w, http.StatusBadRequest, "question must not be empty")
		return
	case errors.Is(err, mentor.ErrSuperseded):
		writeError(w, http.StatusConflict, "superseded by a newer question")
		return
	case err != nil:
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, renderExchange(res.Item))
}

func (s *Server) history(w http.ResponseWriter, r *http.Request) {
	state, err := s.conv.History(r.Context(), chi.URLParam(r, "sessionID"))
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	exchanges := make([]askResponse, 0, len(state.History))
	for _, item := range state.History {
		exchanges = append(exchanges, renderExchange(item))
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"history":    exchanges,
		"is_loading": state.IsLoading,
	})
}

func (s *Server) reset(w http.ResponseWriter, r *http.Request) {
	if err := s.conv.Reset(r.Context(), chi.URLParam(r, "sessionID")); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// renderExchange turns a conversation item into its client view: parsed
// segments, the simplified-answer flag, and annotated source lists.
// Segments are recomputed from the raw answer on every render rather than
// stored anywhere.
func renderExchange(item conversation.Item) askResponse {
	out := askResponse{
		Item:       item,
		Simplified: conversation.SimplifiedAnswer(item.Response),
	}
	if item.Response == nil {
		return out
	}

	trace := item.Response.TraceInfo
	out.MultiSource = len(trace.Sources) > 1
	if item.Answer != "" {
		for _, seg := range citation.Parse(item.Answer, out.MultiSource) {
			rendered := renderedSegment{Segment: seg}
			if doc, ok := source.Resolve(trace, seg); ok {
				rendered.SourceTitle = doc.Title
				rendered.SourceURL = source.URL(doc)
			}
			out.Segments = append(out.Segments, rendered)
		}
	}
	for _, list := range trace.Sources {
		out.Sources = append(out.Sources, renderSourceList(list))
	}
	return out
}

func renderSourceList(list agent.SourceList) sourceList {
	rendered := sourceList{
		Type:        list.Type,
		DisplayName: source.DisplayName(list.Type),
		Documents:   make([]sourceDocument, 0, len(list.Documents)),
	}
	for _, doc := range list.Documents {
		rendered.Documents = append(rendered.Documents, sourceDocument{
			Title:   doc.Title,
			URL:     source.URL(doc),
			Snippet: doc.Snippet,
		})
	}
	return rendered
}
