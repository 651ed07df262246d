// Package bundler drives an external JavaScript/TypeScript bundler.
//
// A Bundler resolves an entry module and its transitive imports into a single
// CommonJS file for a server-side runtime. Two backends are provided: Esbuild
// runs esbuild in-process, Exec shells out to a bundler binary.
//
// Bundle distinguishes two failure modes. A returned error means the bundler
// could not be invoked or could not do I/O. A Result whose Diagnostics has
// errors means the bundler ran but the source did not compile.
package bundler

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
)

// Bundler builds a single output file from an entry module.
type Bundler interface {
	Bundle(ctx context.Context, opts Options) (*Result, error)
}

// Options configures one bundler invocation.
type Options struct {
	// EntryPoint is the absolute path of the entry module.
	EntryPoint string
	// OutDir and OutFile name the single output artifact.
	OutDir  string
	OutFile string

	Platform    string
	Format      string
	Target      string
	Externals   []string
	Extensions  []string
	Minify      bool
	TreeShaking bool
	Metafile    bool
}

// DefaultOptions returns the server-side production profile: node platform,
// CommonJS output, dead code elimination and runtime-provided AWS SDK packages
// left external.
func DefaultOptions() Options {
	return Options{
		Platform:    "node",
		Format:      "cjs",
		Target:      "es2020",
		Externals:   []string{"aws-sdk", "@aws-sdk/*"},
		Extensions:  []string{".js", ".ts", ".json", ".mjs", ".cjs", ".tsx"},
		Minify:      true,
		TreeShaking: true,
		Metafile:    true,
	}
}

// OutputPath joins OutDir and OutFile.
func (o Options) OutputPath() string {
	return filepath.Join(o.OutDir, o.OutFile)
}

// Result describes a finished bundler invocation.
type Result struct {
	// OutputPath is where the artifact was written when Diagnostics has no errors.
	OutputPath string
	// Diagnostics holds compile messages. Nil when the bundler reported none.
	Diagnostics *Diagnostics
	// Metafile is the esbuild metafile JSON, when requested and supported.
	Metafile string
}

// Diagnostics holds the messages a bundler reported for a source tree.
type Diagnostics struct {
	Errors   []Message `json:"errors,omitempty"`
	Warnings []Message `json:"warnings,omitempty"`
}

// Message is a single diagnostic.
type Message struct {
	Text   string `json:"text"`
	File   string `json:"file,omitempty"`
	Line   int    `json:"line,omitempty"`
	Column int    `json:"column,omitempty"`
}

// String formats the message as file:line:column: text.
func (m Message) String() string {
	if m.File == "" {
		return m.Text
	}
	return fmt.Sprintf("%s:%d:%d: %s", m.File, m.Line, m.Column, m.Text)
}

// HasErrors reports whether any error message was recorded.
func (d *Diagnostics) HasErrors() bool {
	return d != nil && len(d.Errors) > 0
}

// String joins the error messages, one per line.
func (d *Diagnostics) String() string {
	if d == nil {
		return ""
	}
	lines := make([]string, 0, len(d.Errors))
	for _, m := range d.Errors {
		lines = append(lines, m.String())
	}
	return strings.Join(lines, "\n")
}
