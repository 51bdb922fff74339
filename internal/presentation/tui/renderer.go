package tui

import (
	"github.com/charmbracelet/glamour"
)

// Renderer turns markdown into terminal output.
type Renderer func(markdown string) (string, error)

// Plain leaves markdown untouched, for pipes and tests.
func Plain(markdown string) (string, error) { return markdown, nil }

// NewRenderer returns a glamour renderer wrapping at width columns (0 keeps
// glamour's default). It falls back to Plain when no style can be loaded.
func NewRenderer(width int) Renderer {
	opts := []glamour.TermRendererOption{
		glamour.WithAutoStyle(), // Automatically detect light/dark background
	}
	if width > 0 {
		opts = append(opts, glamour.WithWordWrap(width))
	}
	r, err := glamour.NewTermRenderer(opts...)
	if err != nil {
		return Plain
	}
	return r.Render
}
