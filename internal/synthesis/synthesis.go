// Package synthesis turns the generative service's loosely-typed JSON reply
// into the canonical fields a Map of Content is rendered from.
package synthesis

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/starford/atlas/internal/apperr"
	"github.com/starford/atlas/internal/models"
)

// DefaultRevisionStage is used when the reply names no revision stage.
const DefaultRevisionStage = "SR1"

// Result is the normalized synthesis.
type Result struct {
	Title         string   `json:"title"`
	CoreIdea      string   `json:"core_idea"`
	KeyDetails    string   `json:"key_details"`
	Body          string   `json:"body"`
	Flowchart     string   `json:"flowchart_or_cause_effect"`
	GSPaper       string   `json:"gs_paper"`
	LinkedPYQs    []string `json:"linked_pyqs"`
	KeyTerms      []string `json:"key_terms"`
	UseInEssay    string   `json:"use_in_essay"`
	NoteType      string   `json:"note_type"`
	SourceType    string   `json:"source_type"`
	RevisionStage string   `json:"revision_stage"`
	HasDiagram    string   `json:"has_diagram"`
}

// Response is the raw reply decoded field by field.
type Response map[string]Value

// Parse decodes raw as a JSON object. Anything else is ErrInvalidResponse.
func Parse(raw string) (Response, error) {
	var resp Response
	if err := json.Unmarshal([]byte(raw), &resp); err != nil {
		return nil, fmt.Errorf("%w: %v", apperr.ErrInvalidResponse, err)
	}
	if resp == nil {
		return nil, fmt.Errorf("%w: response is not a JSON object", apperr.ErrInvalidResponse)
	}
	return resp, nil
}

// Normalize parses raw and coerces every known field. Only the parse step can
// fail; each field coercion has a default.
func Normalize(raw, targetPath string) (Result, error) {
	resp, err := Parse(raw)
	if err != nil {
		return Result{}, err
	}
	return resp.Normalize(targetPath), nil
}

// DefaultTitle is the title used when the reply supplies none.
func DefaultTitle(targetPath string) string {
	return "Map of Content - " + models.DisplayName(targetPath)
}

// Normalize coerces the decoded fields into a Result.
func (r Response) Normalize(targetPath string) Result {
	title := scalar(r["title"], "")
	if strings.TrimSpace(title) == "" {
		title = DefaultTitle(targetPath)
	}
	return Result{
		Title:         title,
		CoreIdea:      joinLines(r["core_idea"]),
		KeyDetails:    details(r["key_details"]),
		Body:          joinLines(r["body"]),
		Flowchart:     scalar(r["flowchart_or_cause_effect"], ""),
		GSPaper:       scalar(r["gs_paper"], ""),
		LinkedPYQs:    stringList(r["linked_pyqs"]),
		KeyTerms:      stringList(r["key_terms"]),
		UseInEssay:    scalar(r["use_in_essay"], ""),
		NoteType:      scalar(r["note_type"], ""),
		SourceType:    scalar(r["source_type"], ""),
		RevisionStage: scalar(r["revision_stage"], DefaultRevisionStage),
		HasDiagram:    flag(r["has_diagram"]),
	}
}
