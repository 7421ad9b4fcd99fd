package mcpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/starford/atlas/internal/apperr"
	"github.com/starford/atlas/internal/catalog"
	"github.com/starford/atlas/internal/console"
	"github.com/starford/atlas/internal/models"
	"github.com/starford/atlas/internal/pipeline"
)

type fakeCatalog struct {
	notes   map[string]string
	similar []models.Similar
	limits  []int
}

func (f *fakeCatalog) Load(context.Context) (catalog.SyncStats, error) {
	return catalog.SyncStats{}, nil
}

func (f *fakeCatalog) Notes(context.Context) ([]string, error) {
	return []string{"A.md", "UPSC/B.md", "UPSC/GS2/C.md"}, nil
}

func (f *fakeCatalog) Lookup(_ context.Context, p string) (string, bool, error) {
	for k := range f.notes {
		if strings.EqualFold(k, p) {
			return k, true, nil
		}
	}
	return "", false, nil
}

func (f *fakeCatalog) ReadNote(_ context.Context, p string) (string, error) {
	c, ok := f.notes[p]
	if !ok {
		return "", errors.New("missing")
	}
	return c, nil
}

func (f *fakeCatalog) FindSimilar(_ context.Context, _ string, limit int) ([]models.Similar, error) {
	f.limits = append(f.limits, limit)
	if limit < len(f.similar) {
		return f.similar[:limit], nil
	}
	return f.similar, nil
}

type fakeRunner struct {
	report console.Reporter
	err    error
}

func (r *fakeRunner) Run(_ context.Context, target string) (pipeline.Outcome, error) {
	r.report.Processing(target)
	if r.err != nil {
		r.report.Warning("No strong connections found.")
		return pipeline.Outcome{}, r.err
	}
	r.report.Success("out/Synthesis.md")
	return pipeline.Outcome{Target: target, Title: "Synthesis", Path: "out/Synthesis.md"}, nil
}

func testServer(t *testing.T, runErr error) (*Server, *fakeCatalog) {
	t.Helper()
	cat := &fakeCatalog{
		notes: map[string]string{"A.md": "# A", "UPSC/B.md": "# B"},
		similar: []models.Similar{
			{Path: "UPSC/B.md", Score: 0.9},
			{Path: "UPSC/GS2/C.md", Score: 0.7},
		},
	}
	factory := func(r console.Reporter) Runner { return &fakeRunner{report: r, err: runErr} }
	return New(cat, factory, 5, "test"), cat
}

func callTool(t *testing.T, srv *Server, name string, args map[string]interface{}) *mcp.CallToolResult {
	t.Helper()
	ctx := context.Background()
	req := mcp.CallToolRequest{}
	req.Method = "tools/call"
	req.Params.Name = name
	req.Params.Arguments = args

	var result *mcp.CallToolResult
	var err error

	switch name {
	case "generate_moc":
		result, err = srv.generateMOC(ctx, req)
	case "find_connections":
		result, err = srv.findConnections(ctx, req)
	case "list_notes":
		result, err = srv.listNotes(ctx, req)
	case "read_note":
		result, err = srv.readNote(ctx, req)
	case "get_template_placeholders":
		result, err = srv.getPlaceholders(ctx, req)
	default:
		t.Fatalf("unknown tool: %s", name)
	}

	if err != nil {
		t.Fatalf("tool %s error: %v", name, err)
	}
	return result
}

func resultText(r *mcp.CallToolResult) string {
	if len(r.Content) > 0 {
		if tc, ok := r.Content[0].(mcp.TextContent); ok {
			return tc.Text
		}
	}
	return ""
}

func TestGenerateMOC(t *testing.T) {
	srv, _ := testServer(t, nil)
	r := callTool(t, srv, "generate_moc", map[string]interface{}{"path": "A.md"})
	if r.IsError {
		t.Fatalf("unexpected error: %s", resultText(r))
	}
	var got struct {
		Title  string          `json:"title"`
		Path   string          `json:"path"`
		Events []console.Event `json:"events"`
	}
	if err := json.Unmarshal([]byte(resultText(r)), &got); err != nil {
		t.Fatalf("result is not JSON: %v", err)
	}
	if got.Title != "Synthesis" || got.Path != "out/Synthesis.md" || len(got.Events) != 2 {
		t.Errorf("result = %+v", got)
	}
}

func TestGenerateMOC_UserFacingFailure(t *testing.T) {
	srv, _ := testServer(t, fmt.Errorf("%w: A.md", apperr.ErrNoConnections))
	r := callTool(t, srv, "generate_moc", map[string]interface{}{"path": "A.md"})
	if !r.IsError {
		t.Fatal("expected error result")
	}
	text := resultText(r)
	if !strings.Contains(text, "no connections") || !strings.Contains(text, "warning: No strong connections found.") {
		t.Errorf("text = %q", text)
	}
}

func TestGenerateMOC_MissingPath(t *testing.T) {
	srv, _ := testServer(t, nil)
	if r := callTool(t, srv, "generate_moc", map[string]interface{}{}); !r.IsError {
		t.Error("expected error without path")
	}
}

func TestFindConnections(t *testing.T) {
	srv, cat := testServer(t, nil)
	r := callTool(t, srv, "find_connections", map[string]interface{}{"path": "a.md", "limit": float64(1)})
	if r.IsError {
		t.Fatalf("unexpected error: %s", resultText(r))
	}
	var got []models.Similar
	if err := json.Unmarshal([]byte(resultText(r)), &got); err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0].Path != "UPSC/B.md" {
		t.Errorf("got = %+v", got)
	}
	if cat.limits[0] != 1 {
		t.Errorf("limit passed = %d", cat.limits[0])
	}
}

func TestFindConnections_DefaultLimitAndMissing(t *testing.T) {
	srv, cat := testServer(t, nil)
	_ = callTool(t, srv, "find_connections", map[string]interface{}{"path": "A.md"})
	if cat.limits[0] != 5 {
		t.Errorf("default limit = %d", cat.limits[0])
	}
	if r := callTool(t, srv, "find_connections", map[string]interface{}{"path": "nope.md"}); !r.IsError {
		t.Error("expected error for unknown note")
	}
}

func TestListNotes(t *testing.T) {
	srv, _ := testServer(t, nil)
	if got := resultText(callTool(t, srv, "list_notes", map[string]interface{}{})); got != "A.md\nUPSC/B.md\nUPSC/GS2/C.md" {
		t.Errorf("all = %q", got)
	}
	if got := resultText(callTool(t, srv, "list_notes", map[string]interface{}{"folder": `upsc\GS2`})); got != "UPSC/GS2/C.md" {
		t.Errorf("folder = %q", got)
	}
}

func TestReadNote(t *testing.T) {
	srv, _ := testServer(t, nil)
	if got := resultText(callTool(t, srv, "read_note", map[string]interface{}{"path": "A.md"})); got != "# A" {
		t.Errorf("read = %q", got)
	}
	if r := callTool(t, srv, "read_note", map[string]interface{}{"path": "nope.md"}); !r.IsError {
		t.Error("expected error for missing note")
	}
}

func TestPlaceholders(t *testing.T) {
	srv, _ := testServer(t, nil)
	text := resultText(callTool(t, srv, "get_template_placeholders", nil))
	for _, tok := range []string{"{{title}}", "{{related_links_body}}", "{{sr2_due}}"} {
		if !strings.Contains(text, tok) {
			t.Errorf("placeholder reference missing %s", tok)
		}
	}
}
