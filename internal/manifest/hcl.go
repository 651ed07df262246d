package manifest

import (
	"fmt"

	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"

	apistack "github.com/lex00/apistack-go"
)

// hclManifestFile is the top-level structure of an HCL manifest.
type hclManifestFile struct {
	Stack       string           `hcl:"stack,optional"`
	Description string           `hcl:"description,optional"`
	Runtime     string           `hcl:"runtime,optional"`
	Stage       string           `hcl:"stage,optional"`
	Authorizers []*hclAuthorizer `hcl:"authorizer,block"`
	Handlers    []*hclHandler    `hcl:"handler,block"`
}

// hclHandler is a handler block, labeled with its name.
type hclHandler struct {
	Name        string            `hcl:"name,label"`
	Source      string            `hcl:"source"`
	Function    string            `hcl:"function,optional"`
	Method      string            `hcl:"method,optional"`
	Path        string            `hcl:"path,optional"`
	Timeout     int               `hcl:"timeout,optional"`
	Memory      int               `hcl:"memory,optional"`
	Environment map[string]string `hcl:"environment,optional"`
}

func (h *hclHandler) descriptor() apistack.HandlerDescriptor {
	return apistack.HandlerDescriptor{
		Name:         h.Name,
		SourcePath:   h.Source,
		FunctionName: h.Function,
		Timeout:      h.Timeout,
		MemorySize:   h.Memory,
		Environment:  h.Environment,
	}
}

// hclAuthorizer is an authorizer block. It has no route attributes, so a
// method or path set on it is reported as unsupported.
type hclAuthorizer struct {
	Name        string            `hcl:"name,label"`
	Source      string            `hcl:"source"`
	Function    string            `hcl:"function,optional"`
	Timeout     int               `hcl:"timeout,optional"`
	Memory      int               `hcl:"memory,optional"`
	Environment map[string]string `hcl:"environment,optional"`
}

func (a *hclAuthorizer) descriptor() apistack.HandlerDescriptor {
	return apistack.HandlerDescriptor{
		Name:         a.Name,
		SourcePath:   a.Source,
		FunctionName: a.Function,
		Timeout:      a.Timeout,
		MemorySize:   a.Memory,
		Environment:  a.Environment,
	}
}

func parseHCL(data []byte, filename string) (*Manifest, error) {
	parser := hclparse.NewParser()
	file, diags := parser.ParseHCL(data, filename)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to parse HCL file %s: %w", filename, diags)
	}

	var parsed hclManifestFile
	diags = gohcl.DecodeBody(file.Body, nil, &parsed)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to decode HCL file %s: %w", filename, diags)
	}

	if len(parsed.Authorizers) > 1 {
		return nil, fmt.Errorf("%s: at most one authorizer block is allowed, found %d", filename, len(parsed.Authorizers))
	}

	m := &Manifest{
		Stack:       parsed.Stack,
		Description: parsed.Description,
		Runtime:     parsed.Runtime,
		Stage:       parsed.Stage,
		Handlers:    make([]apistack.RouteDescriptor, 0, len(parsed.Handlers)),
	}
	if len(parsed.Authorizers) == 1 {
		d := parsed.Authorizers[0].descriptor()
		m.Authorizer = &d
	}
	for _, h := range parsed.Handlers {
		m.Handlers = append(m.Handlers, apistack.RouteDescriptor{
			HandlerDescriptor: h.descriptor(),
			APIPath:           h.Path,
			Method:            apistack.Method(h.Method),
		})
	}
	return m, nil
}
