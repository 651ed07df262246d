// Package manifest loads the handler manifest describing an API stack.
//
// A manifest may be written as YAML, JSON or HCL:
//
//	stack = "users"
//
//	authorizer "tokenAuth" {
//	  source   = "src/auth.ts"
//	  function = "authorize"
//	}
//
//	handler "listUsers" {
//	  source = "src/users.ts"
//	  method = "GET"
//	  path   = "users"
//	}
package manifest

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"

	apistack "github.com/lex00/apistack-go"
)

// DefaultNames are the file names Find looks for, in order.
var DefaultNames = []string{"apistack.yaml", "apistack.yml", "apistack.json", "apistack.hcl"}

// ErrNotFound is returned by Find when no manifest exists in the directory.
var ErrNotFound = errors.New("no manifest found")

// Manifest describes one API stack.
type Manifest struct {
	Stack       string                      `json:"stack,omitempty" yaml:"stack,omitempty"`
	Description string                      `json:"description,omitempty" yaml:"description,omitempty"`
	Runtime     string                      `json:"runtime,omitempty" yaml:"runtime,omitempty"`
	Stage       string                      `json:"stage,omitempty" yaml:"stage,omitempty"`
	Authorizer  *apistack.HandlerDescriptor `json:"authorizer,omitempty" yaml:"authorizer,omitempty"`
	Handlers    []apistack.RouteDescriptor  `json:"handlers" yaml:"handlers"`

	// Dir is the directory source paths are relative to.
	Dir string `json:"-" yaml:"-"`
}

// ValidationError lists every problem found in a manifest.
type ValidationError struct {
	File     string
	Problems []string
}

func (e *ValidationError) Error() string {
	prefix := "invalid manifest"
	if e.File != "" {
		prefix += " " + e.File
	}
	return prefix + ":\n  " + strings.Join(e.Problems, "\n  ")
}

// Find returns the path of the first DefaultNames entry present in dir.
func Find(dir string) (string, error) {
	for _, name := range DefaultNames {
		path := filepath.Join(dir, name)
		if _, err := os.Stat(path); err == nil {
			return path, nil
		} else if !errors.Is(err, fs.ErrNotExist) {
			return "", err
		}
	}
	return "", fmt.Errorf("%w in %s (looked for %s)", ErrNotFound, dir, strings.Join(DefaultNames, ", "))
}

// Load reads, decodes and validates the manifest at path. The format is
// chosen by file extension.
func Load(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading manifest: %w", err)
	}

	m, err := Parse(data, path)
	if err != nil {
		return nil, err
	}

	abs, err := filepath.Abs(filepath.Dir(path))
	if err != nil {
		return nil, fmt.Errorf("resolving manifest directory: %w", err)
	}
	m.Dir = abs

	if err := m.Validate(); err != nil {
		var verr *ValidationError
		if errors.As(err, &verr) {
			verr.File = path
		}
		return nil, err
	}
	return m, nil
}

// Parse decodes data according to the extension of filename. It does not
// validate.
func Parse(data []byte, filename string) (*Manifest, error) {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".yaml", ".yml":
		return parseYAML(data, filename)
	case ".json":
		return parseJSON(data, filename)
	case ".hcl":
		return parseHCL(data, filename)
	default:
		return nil, fmt.Errorf("unsupported manifest format: %s", filename)
	}
}

func parseYAML(data []byte, filename string) (*Manifest, error) {
	var m Manifest
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&m); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", filename, err)
	}
	return &m, nil
}

func parseJSON(data []byte, filename string) (*Manifest, error) {
	var m Manifest
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&m); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", filename, err)
	}
	return &m, nil
}

var namePattern = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9]*$`)

// Validate checks m and normalizes handler methods to upper case. Duplicate
// names are not checked here.
func (m *Manifest) Validate() error {
	var problems []string

	if len(m.Handlers) == 0 {
		problems = append(problems, "no handlers declared")
	}

	if m.Authorizer != nil {
		problems = append(problems, checkHandler("authorizer", *m.Authorizer)...)
	}

	for i := range m.Handlers {
		h := &m.Handlers[i]
		where := fmt.Sprintf("handlers[%d]", i)
		if h.Name != "" {
			where = fmt.Sprintf("handler %q", h.Name)
		}

		problems = append(problems, checkHandler(where, h.HandlerDescriptor)...)

		method, err := apistack.ParseMethod(string(h.Method))
		if err != nil {
			problems = append(problems, fmt.Sprintf("%s: %v", where, err))
		} else {
			h.Method = method
		}

		if strings.Contains(h.APIPath, "//") {
			problems = append(problems, fmt.Sprintf("%s: path %q has an empty segment", where, h.APIPath))
		}
	}

	if len(problems) > 0 {
		return &ValidationError{Problems: problems}
	}
	return nil
}

func checkHandler(where string, d apistack.HandlerDescriptor) []string {
	var problems []string
	if !namePattern.MatchString(d.Name) {
		problems = append(problems, fmt.Sprintf("%s: name %q must start with a letter and contain only letters and digits", where, d.Name))
	}
	if d.SourcePath == "" {
		problems = append(problems, where+": source is required")
	}
	if d.Timeout < 0 {
		problems = append(problems, where+": timeout must not be negative")
	}
	if d.MemorySize < 0 {
		problems = append(problems, where+": memory must not be negative")
	}
	return problems
}

// Names returns the authorizer name, if any, followed by every handler name.
func (m *Manifest) Names() []string {
	names := make([]string, 0, len(m.Handlers)+1)
	if m.Authorizer != nil {
		names = append(names, m.Authorizer.Name)
	}
	for _, h := range m.Handlers {
		names = append(names, h.Name)
	}
	return names
}

// Sources returns the absolute path of every source the manifest references.
func (m *Manifest) Sources() []string {
	var out []string
	add := func(p string) {
		if !filepath.IsAbs(p) {
			p = filepath.Join(m.Dir, p)
		}
		out = append(out, p)
	}
	if m.Authorizer != nil {
		add(m.Authorizer.SourcePath)
	}
	for _, h := range m.Handlers {
		add(h.SourcePath)
	}
	return out
}
