package internal

import "io"

// Mode selects what Run does.
type Mode int

const (
	// ModeGenerate processes a single note.
	ModeGenerate Mode = iota
	// ModeWatch processes notes as Smart Connections indexes them.
	ModeWatch
	// ModeMCP serves the tools over stdio.
	ModeMCP
)

// Option is a functional option for configuring the application.
type Option func(*application)

type application struct {
	config  *Config
	mode    Mode
	target  string
	version string
	stdin   io.Reader
	stdout  io.Writer
}

// WithConfig sets the application configuration.
func WithConfig(cfg *Config) Option {
	return func(a *application) {
		a.config = cfg
	}
}

// WithMode sets the run mode.
func WithMode(m Mode) Option {
	return func(a *application) {
		a.mode = m
	}
}

// WithTarget sets the note to process; when empty it is asked for.
func WithTarget(path string) Option {
	return func(a *application) {
		a.target = path
	}
}

// WithVersion sets the version shown in banners and MCP handshakes.
func WithVersion(v string) Option {
	return func(a *application) {
		a.version = v
	}
}

// WithIO sets the console streams.
func WithIO(in io.Reader, out io.Writer) Option {
	return func(a *application) {
		a.stdin = in
		a.stdout = out
	}
}
