package provision

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	apistack "github.com/lex00/apistack-go"
	"github.com/lex00/apistack-go/internal/ctxlog"
	"github.com/lex00/apistack-go/internal/template"
)

// File writes the template to a local file.
type File struct {
	Path string
	// Format is "json" or "yaml". Empty picks from the file extension,
	// defaulting to json.
	Format string
}

// Provision writes t to f.Path, creating parent directories.
func (f *File) Provision(ctx context.Context, stack string, t *apistack.Template) (*Result, error) {
	data, err := Encode(t, f.format())
	if err != nil {
		return nil, err
	}

	if dir := filepath.Dir(f.Path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("creating output directory: %w", err)
		}
	}
	if err := os.WriteFile(f.Path, data, 0644); err != nil {
		return nil, fmt.Errorf("writing template: %w", err)
	}

	ctxlog.FromContext(ctx).Info("template written", "stack", stack, "path", f.Path, "bytes", len(data))
	return &Result{Stack: stack, Action: ActionWritten, Target: f.Path}, nil
}

func (f *File) format() string {
	if f.Format != "" {
		return f.Format
	}
	switch strings.ToLower(filepath.Ext(f.Path)) {
	case ".yaml", ".yml":
		return "yaml"
	}
	return "json"
}

// Encode renders t as json or yaml.
func Encode(t *apistack.Template, format string) ([]byte, error) {
	switch format {
	case "json":
		data, err := template.ToJSON(t)
		if err != nil {
			return nil, err
		}
		return append(data, '\n'), nil
	case "yaml":
		return template.ToYAML(t)
	default:
		return nil, fmt.Errorf("unknown format: %s", format)
	}
}
