// Package pipeline turns one vault note into a Map of Content: it gathers the
// note's closest neighbours, asks the generative service for a synthesis and
// writes the rendered document.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/starford/atlas/internal/apperr"
	"github.com/starford/atlas/internal/catalog"
	"github.com/starford/atlas/internal/console"
	"github.com/starford/atlas/internal/llm"
	"github.com/starford/atlas/internal/models"
	"github.com/starford/atlas/internal/parser"
	"github.com/starford/atlas/internal/prompt"
	"github.com/starford/atlas/internal/render"
	"github.com/starford/atlas/internal/storage"
	"github.com/starford/atlas/internal/synthesis"
)

// DefaultConnections is how many neighbours are requested per note.
const DefaultConnections = 5

// Catalog is the similarity collaborator the pipeline reads from.
type Catalog interface {
	Load(ctx context.Context) (catalog.SyncStats, error)
	Counts(ctx context.Context) (catalog.Counts, error)
	Lookup(ctx context.Context, path string) (string, bool, error)
	ReadNote(ctx context.Context, path string) (string, error)
	FindSimilar(ctx context.Context, path string, limit int) ([]models.Similar, error)
}

var _ Catalog = (*catalog.Catalog)(nil)

// Outcome describes a successful run.
type Outcome struct {
	RunID        string              `json:"run_id"`
	Target       string              `json:"target"`
	Title        string              `json:"title"`
	Path         string              `json:"path"`
	Connections  []models.Connection `json:"connections"`
	MissingLinks []string            `json:"missing_links,omitempty"`
}

// Pipeline runs the note-to-MOC sequence. It holds no state between runs.
type Pipeline struct {
	catalog  Catalog
	gen      llm.Generator
	renderer *render.Renderer
	out      storage.Provider
	report   console.Reporter
	guard    *Guard
	limit    int
	logger   *slog.Logger
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithConnections sets how many neighbours to request.
func WithConnections(n int) Option {
	return func(p *Pipeline) {
		if n > 0 {
			p.limit = n
		}
	}
}

// WithReporter sets where user-facing messages go.
func WithReporter(r console.Reporter) Option {
	return func(p *Pipeline) { p.report = r }
}

// WithGuard enables prompt-injection scanning of connection text.
func WithGuard(g *Guard) Option {
	return func(p *Pipeline) { p.guard = g }
}

// WithLogger sets the structured logger.
func WithLogger(l *slog.Logger) Option {
	return func(p *Pipeline) { p.logger = l }
}

// New creates a Pipeline. Rendered documents are written to out.
func New(cat Catalog, gen llm.Generator, r *render.Renderer, out storage.Provider, opts ...Option) *Pipeline {
	p := &Pipeline{
		catalog:  cat,
		gen:      gen,
		renderer: r,
		out:      out,
		report:   &console.Recorder{},
		limit:    DefaultConnections,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Run processes target, a vault-relative note path. Conditions the user can
// act on are reported and returned wrapped in an apperr sentinel.
func (p *Pipeline) Run(ctx context.Context, target string) (Outcome, error) {
	runID := uuid.NewString()
	logger := p.logger.With(slog.String("run_id", runID))

	if _, err := p.catalog.Load(ctx); err != nil {
		return Outcome{}, fmt.Errorf("pipeline: load catalog: %w", err)
	}
	counts, err := p.catalog.Counts(ctx)
	if err != nil {
		return Outcome{}, fmt.Errorf("pipeline: counts: %w", err)
	}
	p.report.Loaded(counts.Notes, counts.Blocks)

	target = catalog.NormalizePath(target)
	p.report.Processing(target)

	found, ok, err := p.catalog.Lookup(ctx, target)
	if err != nil {
		return Outcome{}, fmt.Errorf("pipeline: lookup: %w", err)
	}
	if !ok {
		p.report.Error(fmt.Sprintf("Note '%s' not found in the Smart Connections database. Please ensure it's indexed.", target))
		return Outcome{}, fmt.Errorf("%w: %s", apperr.ErrNotFound, target)
	}

	content, err := p.catalog.ReadNote(ctx, found)
	if err != nil || content == "" {
		p.report.Error(fmt.Sprintf("Could not read content for target note '%s'. Please check file permissions or path.", found))
		if err == nil {
			err = errors.New("empty note")
		}
		return Outcome{}, fmt.Errorf("%w: %s: %v", apperr.ErrUnreadable, found, err)
	}

	conns, err := p.connections(ctx, found)
	if err != nil {
		return Outcome{}, err
	}

	frontMatter, body := parser.Extract(content)
	text, err := prompt.Compile(models.Note{Path: found, Content: content}, body, conns)
	if err != nil {
		return Outcome{}, err
	}

	p.report.Generating(p.gen.Provider())
	logger.Debug("pipeline: prompt compiled", slog.String("target", found), slog.Int("bytes", len(text)))
	reply, err := p.gen.Generate(ctx, text)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return Outcome{}, ctxErr
		}
		reply = llm.ErrorPrefix + " " + err.Error()
	}
	if llm.IsErrorReply(reply) {
		p.report.ServiceError(reply)
		return Outcome{}, fmt.Errorf("%w: %s", apperr.ErrService, reply)
	}

	result, err := synthesis.Normalize(reply, found)
	if err != nil {
		p.report.InvalidData(reply)
		return Outcome{}, err
	}

	doc := p.renderer.Render(render.Input{
		TargetPath:  found,
		FrontMatter: frontMatter,
		Result:      result,
		Connections: conns,
	})
	dest := filepath.Join(p.out.Root(), doc.Filename)
	if p.out.Exists(doc.Filename) {
		p.report.Warning(fmt.Sprintf("Overwriting existing MOC '%s'.", dest))
	}
	if err := p.out.Write(doc.Filename, []byte(doc.Content)); err != nil {
		p.report.SaveError(dest, err)
		return Outcome{}, fmt.Errorf("%w: %s: %v", apperr.ErrPersist, dest, err)
	}
	p.report.Success(dest)
	logger.Info("pipeline: moc written",
		slog.String("target", found),
		slog.String("path", dest),
		slog.Int("connections", len(conns)))

	out := Outcome{
		RunID:        runID,
		Target:       found,
		Title:        result.Title,
		Path:         dest,
		Connections:  conns,
		MissingLinks: missingLinks(result, conns),
	}
	if len(out.MissingLinks) > 0 {
		p.report.MissingLinks(out.MissingLinks)
	}
	return out, nil
}

// connections ranks neighbours of target and reads each one, skipping those
// whose content cannot be used.
func (p *Pipeline) connections(ctx context.Context, target string) ([]models.Connection, error) {
	p.report.FindingConnections(target)
	similar, err := p.catalog.FindSimilar(ctx, target, p.limit)
	if err != nil {
		return nil, fmt.Errorf("pipeline: find similar: %w", err)
	}
	if len(similar) == 0 {
		p.report.Warning("No strong connections found. Consider refining your note or adding more context.")
		return nil, fmt.Errorf("%w: %s", apperr.ErrNoConnections, target)
	}

	p.report.ConnectionsFound()
	conns := make([]models.Connection, 0, len(similar))
	for _, s := range similar {
		name := models.DisplayName(s.Path)
		content, err := p.catalog.ReadNote(ctx, s.Path)
		if err != nil || content == "" {
			p.report.ConnectionSkipped(name)
			p.logger.Debug("pipeline: connection unreadable", slog.String("path", s.Path))
			continue
		}
		if p.guard.Flagged(ctx, content) {
			if p.guard.Mode() == GuardExclude {
				p.report.Warning(fmt.Sprintf("%q looks like a prompt injection attempt. Skipping.", name))
				continue
			}
			p.report.Warning(fmt.Sprintf("%q looks like a prompt injection attempt.", name))
		}
		conns = append(conns, models.Connection{
			Note:  models.Note{Path: s.Path, Content: content},
			Score: s.Score,
		})
		p.report.Connection(name, s.Score)
	}

	if len(conns) == 0 {
		p.report.Warning("No readable content from connected notes. Cannot generate MOC.")
		return nil, fmt.Errorf("%w: none readable for %s", apperr.ErrNoConnections, target)
	}
	return conns, nil
}

// missingLinks returns the required wikilinks the generated text never uses.
func missingLinks(r synthesis.Result, conns []models.Connection) []string {
	generated := strings.Join([]string{r.CoreIdea, r.KeyDetails, r.Body, r.Flowchart}, "\n")
	present := make(map[string]struct{})
	for _, l := range parser.Links(generated) {
		present[strings.ToLower(l)] = struct{}{}
	}
	var missing []string
	for _, c := range conns {
		if _, ok := present[strings.ToLower(c.Note.Title())]; !ok {
			missing = append(missing, prompt.Wikilink(c.Note.Path))
		}
	}
	return missing
}
