// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes Atlas tools for LLM integration via stdio transport.
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/atlas/internal/catalog"
	"github.com/starford/atlas/internal/console"
	"github.com/starford/atlas/internal/models"
	"github.com/starford/atlas/internal/pipeline"
)

// Catalog is the read side of the similarity catalog used by the tools.
type Catalog interface {
	Load(ctx context.Context) (catalog.SyncStats, error)
	Notes(ctx context.Context) ([]string, error)
	Lookup(ctx context.Context, path string) (string, bool, error)
	ReadNote(ctx context.Context, path string) (string, error)
	FindSimilar(ctx context.Context, path string, limit int) ([]models.Similar, error)
}

// Runner generates a Map of Content for one note.
type Runner interface {
	Run(ctx context.Context, target string) (pipeline.Outcome, error)
}

// RunnerFactory builds a Runner that reports to r. A fresh reporter is used
// per call so progress can be returned to the client.
type RunnerFactory func(r console.Reporter) Runner

// Server wraps the MCP server with Atlas tools.
type Server struct {
	mcp     *server.MCPServer
	cat     Catalog
	runner  RunnerFactory
	limit   int
	version string
}

// New creates a new MCP server with all Atlas tools registered. limit is the
// default number of connections for find_connections.
func New(cat Catalog, runner RunnerFactory, limit int, version string) *Server {
	if limit <= 0 {
		limit = pipeline.DefaultConnections
	}
	s := &Server{cat: cat, runner: runner, limit: limit, version: version}

	s.mcp = server.NewMCPServer(
		"Atlas",
		version,
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("generate_moc",
		mcp.WithDescription("Generate a Map of Content for a vault note from its closest Smart Connections "+
			"neighbours and save it to the output directory."),
		mcp.WithString("path", mcp.Required(), mcp.Description("Vault-relative path of the note (e.g. UPSC/GS2/Polity.md)")),
	), s.generateMOC)

	s.mcp.AddTool(mcp.NewTool("find_connections",
		mcp.WithDescription("List the notes most similar to a note, highest score first."),
		mcp.WithString("path", mcp.Required(), mcp.Description("Vault-relative path of the note")),
		mcp.WithNumber("limit", mcp.Description("Maximum number of connections"), mcp.Min(1), mcp.Max(50)),
	), s.findConnections)

	s.mcp.AddTool(mcp.NewTool("list_notes",
		mcp.WithDescription("List notes known to Smart Connections, optionally within a folder."),
		mcp.WithString("folder", mcp.Description("Optional folder to list (empty for all)")),
	), s.listNotes)

	s.mcp.AddTool(mcp.NewTool("read_note",
		mcp.WithDescription("Read the full content of a vault note."),
		mcp.WithString("path", mcp.Required(), mcp.Description("Vault-relative path of the note")),
	), s.readNote)

	s.mcp.AddTool(mcp.NewTool("get_template_placeholders",
		mcp.WithDescription("Returns the placeholders a Map of Content template may use."),
	), s.getPlaceholders)

	s.mcp.AddResource(
		mcp.NewResource(placeholdersURI, "MOC Template Placeholders",
			mcp.WithResourceDescription("Placeholders substituted when rendering a Map of Content."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readPlaceholdersResource,
	)

	return s
}

// ServeStdio starts the MCP server on stdin/stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcp)
}

// MCPServer returns the underlying server for testing.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcp
}

type generateResult struct {
	pipeline.Outcome
	Events []console.Event `json:"events"`
}

func (s *Server) generateMOC(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := req.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	rec := &console.Recorder{}
	out, err := s.runner(rec).Run(ctx, path)
	if err != nil {
		return mcp.NewToolResultError(err.Error() + "\n\n" + rec.String()), nil
	}
	data, _ := json.MarshalIndent(generateResult{Outcome: out, Events: rec.Events()}, "", "  ")
	return mcp.NewToolResultText(string(data)), nil
}

func (s *Server) findConnections(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := req.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	limit := req.GetInt("limit", s.limit)
	if limit <= 0 {
		limit = s.limit
	}
	if _, err := s.cat.Load(ctx); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	found, ok, err := s.cat.Lookup(ctx, path)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if !ok {
		return mcp.NewToolResultError(fmt.Sprintf("not found: %s", path)), nil
	}
	similar, err := s.cat.FindSimilar(ctx, found, limit)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if len(similar) == 0 {
		return mcp.NewToolResultText("no connections found"), nil
	}
	data, _ := json.MarshalIndent(similar, "", "  ")
	return mcp.NewToolResultText(string(data)), nil
}

func (s *Server) listNotes(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	folder := strings.Trim(catalog.NormalizePath(req.GetString("folder", "")), "/")

	if _, err := s.cat.Load(ctx); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	notes, err := s.cat.Notes(ctx)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var paths []string
	for _, n := range notes {
		if folder == "" || strings.HasPrefix(strings.ToLower(n), strings.ToLower(folder)+"/") {
			paths = append(paths, n)
		}
	}
	return mcp.NewToolResultText(strings.Join(paths, "\n")), nil
}

func (s *Server) readNote(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := req.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	content, err := s.cat.ReadNote(ctx, catalog.NormalizePath(path))
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("not found: %s", path)), nil
	}
	return mcp.NewToolResultText(content), nil
}

func (s *Server) getPlaceholders(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(PlaceholderReference()), nil
}

func (s *Server) readPlaceholdersResource(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      placeholdersURI,
			MIMEType: "text/markdown",
			Text:     PlaceholderReference(),
		},
	}, nil
}
