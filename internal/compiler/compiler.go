// Package compiler turns a handler entry module into bundled code text.
//
// Each Compile call writes a uniquely named artifact to a temporary directory,
// reads it back and removes it. Removal runs on every exit path and tolerates
// an artifact that was never written.
package compiler

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/lex00/apistack-go/internal/bundler"
	"github.com/lex00/apistack-go/internal/ctxlog"
	"github.com/lex00/apistack-go/internal/naming"
)

// ErrEmptyBundle is wrapped in a CompileIOError when the artifact has no content.
var ErrEmptyBundle = errors.New("bundle is empty")

// Compiler compiles entry modules with a Bundler.
type Compiler struct {
	bundler bundler.Bundler
	namer   *naming.Namer
	tempDir string
	profile bundler.Options

	readFile   func(string) ([]byte, error)
	removeFile func(string) error
}

// Option configures a Compiler.
type Option func(*Compiler)

// WithTempDir writes artifacts to dir instead of os.TempDir().
func WithTempDir(dir string) Option {
	return func(c *Compiler) { c.tempDir = dir }
}

// WithNamer replaces the artifact namer.
func WithNamer(n *naming.Namer) Option {
	return func(c *Compiler) { c.namer = n }
}

// WithProfile replaces bundler.DefaultOptions(). Entry and output fields are
// always set by the Compiler.
func WithProfile(opts bundler.Options) Option {
	return func(c *Compiler) { c.profile = opts }
}

// New creates a Compiler using b.
func New(b bundler.Bundler, opts ...Option) *Compiler {
	c := &Compiler{
		bundler:    b,
		namer:      naming.New("apistack", ".js"),
		tempDir:    os.TempDir(),
		profile:    bundler.DefaultOptions(),
		readFile:   os.ReadFile,
		removeFile: os.Remove,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Compile bundles entryPath and returns the bundle text.
//
// It fails with *CompileIOError when the bundler cannot run or the artifact
// cannot be read, and with *CompileDiagnosticsError when the source has errors.
// Concurrent calls are safe.
func (c *Compiler) Compile(ctx context.Context, entryPath string) (string, error) {
	logger := ctxlog.FromContext(ctx)

	opts := c.profile
	opts.EntryPoint = entryPath
	opts.OutDir = c.tempDir
	opts.OutFile = c.namer.Next()
	artifact := opts.OutputPath()

	defer func() {
		if err := c.remove(artifact); err != nil {
			logger.Warn("removing build artifact", "artifact", artifact, "error", err)
		}
	}()

	logger.Debug("compiling", "entry", entryPath, "artifact", artifact)

	res, err := c.bundler.Bundle(ctx, opts)
	if err != nil {
		return "", &CompileIOError{Entry: entryPath, Err: err}
	}
	if res.Diagnostics.HasErrors() {
		return "", &CompileDiagnosticsError{Entry: entryPath, Diagnostics: res.Diagnostics}
	}
	if res.Diagnostics != nil {
		for _, w := range res.Diagnostics.Warnings {
			logger.Warn("bundler warning", "entry", entryPath, "message", w.String())
		}
	}

	data, err := c.readFile(artifact)
	if err != nil {
		return "", &CompileIOError{Entry: entryPath, Err: fmt.Errorf("reading artifact: %w", err)}
	}
	if len(data) == 0 {
		return "", &CompileIOError{Entry: entryPath, Err: ErrEmptyBundle}
	}

	if res.Metafile != "" {
		if report, err := bundler.Analyze(res.Metafile); err == nil {
			logger.Debug("bundle analyzed",
				"entry", entryPath,
				"bytes", report.TotalBytes,
				"inputs", len(report.Inputs),
				"externals", report.Externals,
			)
		}
	}

	return string(data), nil
}

// remove deletes path, treating a missing file as success.
func (c *Compiler) remove(path string) error {
	err := c.removeFile(path)
	if err == nil || errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return err
}
