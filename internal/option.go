package internal

import "io"

// Mode selects which surface Run serves.
type Mode string

// Run modes.
const (
	ModeServe Mode = "serve"
	ModeMCP   Mode = "mcp"
	ModeTUI   Mode = "tui"
)

// Option is a functional option for configuring the application.
type Option func(*application)

type application struct {
	config    *Config
	mode      Mode
	version   string
	logOutput io.Writer
}

// WithConfig sets the application configuration.
func WithConfig(cfg *Config) Option {
	return func(a *application) {
		a.config = cfg
	}
}

// WithMode sets the run mode. The default is ModeServe.
func WithMode(m Mode) Option {
	return func(a *application) {
		a.mode = m
	}
}

// WithVersion sets the version reported to MCP clients.
func WithVersion(v string) Option {
	return func(a *application) {
		a.version = v
	}
}

// WithLogOutput redirects the JSON log stream. The default is stdout, which
// the mcp and tui modes need for themselves.
func WithLogOutput(w io.Writer) Option {
	return func(a *application) {
		a.logOutput = w
	}
}
