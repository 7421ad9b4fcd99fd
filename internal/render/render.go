// Package render fills the Map of Content template with synthesized fields and
// derived header metadata.
package render

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"
	"unicode"

	"github.com/starford/atlas/internal/apperr"
	"github.com/starford/atlas/internal/models"
	"github.com/starford/atlas/internal/synthesis"
)

// DefaultReviewOffsetDays is the gap between the first and second review dates.
const DefaultReviewOffsetDays = 7

// Input is everything a document is rendered from.
type Input struct {
	TargetPath  string
	FrontMatter models.FrontMatter
	Result      synthesis.Result
	Connections []models.Connection
}

// Document is a rendered Map of Content.
type Document struct {
	Filename string
	Content  string
}

// Renderer substitutes placeholders in an immutable template.
type Renderer struct {
	template     string
	now          func() time.Time
	reviewOffset int
}

// Option configures a Renderer.
type Option func(*Renderer)

// WithClock sets the clock used for ids and dates.
func WithClock(now func() time.Time) Option {
	return func(r *Renderer) { r.now = now }
}

// WithReviewOffset sets the number of days between sr1_date and sr2_due.
func WithReviewOffset(days int) Option {
	return func(r *Renderer) { r.reviewOffset = days }
}

// New creates a Renderer over template text.
func New(template string, opts ...Option) *Renderer {
	r := &Renderer{
		template:     template,
		now:          time.Now,
		reviewOffset: DefaultReviewOffsetDays,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Load reads the template file once. A missing file is a configuration error.
func Load(path string, opts ...Option) (*Renderer, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: template file not found at %s", apperr.ErrConfig, path)
		}
		return nil, fmt.Errorf("%w: read template %s: %v", apperr.ErrConfig, path, err)
	}
	return New(string(data), opts...), nil
}

// Render produces the document for in. Placeholders missing from the
// template are skipped.
func (r *Renderer) Render(in Input) Document {
	now := r.now()
	doc := document{
		in:       in,
		now:      now,
		reviewOn: now.AddDate(0, 0, r.reviewOffset),
	}

	pairs := make([]string, 0, 2*len(placeholders))
	for _, p := range placeholders {
		pairs = append(pairs, p.token, p.value(&doc))
	}
	content := strings.NewReplacer(pairs...).Replace(r.template)

	return Document{
		Filename: Filename(in.Result.Title),
		Content:  content,
	}
}

// Tokens returns every placeholder token the renderer recognises.
func Tokens() []string {
	out := make([]string, len(placeholders))
	for i, p := range placeholders {
		out[i] = p.token
	}
	return out
}

// Filename derives a single path segment from a document title: whitespace
// and path separators become "-" and colons are dropped.
func Filename(title string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r == ':':
			return -1
		case r == '/', r == '\\', unicode.IsSpace(r):
			return '-'
		}
		return r
	}, title) + ".md"
}
