// Package loader compiles handler descriptors into compiled handlers.
package loader

import (
	"context"
	"fmt"
	"path/filepath"

	apistack "github.com/lex00/apistack-go"
	"github.com/lex00/apistack-go/internal/ctxlog"
)

// Compiler turns an entry module into bundle text.
type Compiler interface {
	Compile(ctx context.Context, entryPath string) (string, error)
}

// Loader compiles descriptors one at a time.
type Loader struct {
	compiler Compiler
	baseDir  string
}

// New creates a Loader. Relative source paths are resolved against baseDir,
// or the working directory when baseDir is empty.
func New(c Compiler, baseDir string) *Loader {
	return &Loader{compiler: c, baseDir: baseDir}
}

// Load compiles descriptors in order and returns the compiled handlers in the
// same order. It stops at the first failure and returns that error as is;
// later descriptors are never compiled.
func (l *Loader) Load(ctx context.Context, descriptors []apistack.RouteDescriptor) ([]apistack.CompiledHandler, error) {
	out := make([]apistack.CompiledHandler, 0, len(descriptors))
	for _, d := range descriptors {
		code, err := l.compile(ctx, d.HandlerDescriptor)
		if err != nil {
			return nil, err
		}
		out = append(out, apistack.NewCompiledRoute(d, code))
	}
	return out, nil
}

// LoadAuthorizer compiles the authorizer descriptor.
func (l *Loader) LoadAuthorizer(ctx context.Context, d apistack.HandlerDescriptor) (apistack.CompiledHandler, error) {
	code, err := l.compile(ctx, d)
	if err != nil {
		return apistack.CompiledHandler{}, err
	}
	return apistack.NewCompiledHandler(d, code), nil
}

func (l *Loader) compile(ctx context.Context, d apistack.HandlerDescriptor) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	entry, err := l.resolve(d.SourcePath)
	if err != nil {
		return "", err
	}

	code, err := l.compiler.Compile(ctx, entry)
	if err != nil {
		return "", err
	}

	ctxlog.FromContext(ctx).Info("compiled handler", "name", d.Name, "entry", entry, "bytes", len(code))
	return code, nil
}

func (l *Loader) resolve(source string) (string, error) {
	if filepath.IsAbs(source) {
		return filepath.Clean(source), nil
	}
	if l.baseDir != "" {
		source = filepath.Join(l.baseDir, source)
	}
	abs, err := filepath.Abs(source)
	if err != nil {
		return "", fmt.Errorf("resolving %s: %w", source, err)
	}
	return abs, nil
}
