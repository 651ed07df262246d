// Package apistack provides the data model for assembling HTTP compute APIs
// from declarative handler descriptors.
//
// A manifest lists the handlers that make up an API:
//
//	handlers:
//	  - name: helloWorld
//	    source: src/hello.ts
//	    method: GET
//
// The apistack CLI compiles each handler source into a single CommonJS bundle,
// wires it behind an API Gateway route with a CORS preflight, optionally gates
// every route with a shared token authorizer, and generates a CloudFormation
// template for the result.
package apistack

import (
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/zeebo/blake3"
)

// DefaultFunctionName is the exported symbol invoked when a descriptor does not
// name one.
const DefaultFunctionName = "handle"

// Method is an HTTP method a route can be registered for.
type Method string

const (
	MethodGet    Method = "GET"
	MethodPost   Method = "POST"
	MethodPut    Method = "PUT"
	MethodDelete Method = "DELETE"

	// MethodOptions is reserved for CORS preflight routes.
	MethodOptions Method = "OPTIONS"
)

// Valid reports whether m can be declared on a route.
func (m Method) Valid() bool {
	switch m {
	case MethodGet, MethodPost, MethodPut, MethodDelete:
		return true
	}
	return false
}

// ParseMethod normalizes s to upper case and checks it is a routable method.
func ParseMethod(s string) (Method, error) {
	m := Method(strings.ToUpper(strings.TrimSpace(s)))
	if !m.Valid() {
		return "", fmt.Errorf("unsupported method %q (want GET, POST, PUT or DELETE)", s)
	}
	return m, nil
}

// HandlerDescriptor identifies a unit of compute to be built.
type HandlerDescriptor struct {
	// Name is unique within one assembly and is used verbatim in resource ids.
	Name string `json:"name" yaml:"name"`
	// SourcePath is the entry module, relative to the manifest directory.
	SourcePath string `json:"source" yaml:"source"`
	// FunctionName is the exported symbol to invoke. Defaults to "handle".
	FunctionName string `json:"function,omitempty" yaml:"function,omitempty"`

	Timeout     int               `json:"timeout,omitempty" yaml:"timeout,omitempty"`
	MemorySize  int               `json:"memory,omitempty" yaml:"memory,omitempty"`
	Environment map[string]string `json:"environment,omitempty" yaml:"environment,omitempty"`
}

// EntrySymbol returns FunctionName or the default when it is empty.
func (d HandlerDescriptor) EntrySymbol() string {
	if d.FunctionName == "" {
		return DefaultFunctionName
	}
	return d.FunctionName
}

// RouteDescriptor is a handler exposed over HTTP.
type RouteDescriptor struct {
	HandlerDescriptor `yaml:",inline"`

	// APIPath is the route path below the API root. Empty means the root.
	APIPath string `json:"path,omitempty" yaml:"path,omitempty"`
	Method  Method `json:"method" yaml:"method"`
}

// CompiledHandler is a descriptor whose source has been replaced by bundled
// code. The code is set once at construction and cannot be changed.
type CompiledHandler struct {
	Name         string
	FunctionName string
	Timeout      int
	MemorySize   int
	Environment  map[string]string

	// Route fields; zero for an authorizer.
	APIPath string
	Method  Method

	code   string
	digest string
}

// NewCompiledHandler builds the compiled form of a non-routed handler, such as
// an authorizer.
func NewCompiledHandler(d HandlerDescriptor, code string) CompiledHandler {
	sum := blake3.Sum256([]byte(code))
	return CompiledHandler{
		Name:         d.Name,
		FunctionName: d.EntrySymbol(),
		Timeout:      d.Timeout,
		MemorySize:   d.MemorySize,
		Environment:  copyEnv(d.Environment),
		code:         code,
		digest:       hex.EncodeToString(sum[:]),
	}
}

// NewCompiledRoute builds the compiled form of a routed handler.
func NewCompiledRoute(d RouteDescriptor, code string) CompiledHandler {
	h := NewCompiledHandler(d.HandlerDescriptor, code)
	h.APIPath = d.APIPath
	h.Method = d.Method
	return h
}

// Code returns the bundled module text.
func (h CompiledHandler) Code() string {
	return h.code
}

// Digest returns the hex BLAKE3 digest of the code.
func (h CompiledHandler) Digest() string {
	return h.digest
}

// IsRoute reports whether the handler carries route fields.
func (h CompiledHandler) IsRoute() bool {
	return h.Method != ""
}

func copyEnv(env map[string]string) map[string]string {
	if len(env) == 0 {
		return nil
	}
	out := make(map[string]string, len(env))
	for k, v := range env {
		out[k] = v
	}
	return out
}

// Template represents a CloudFormation template.
type Template struct {
	AWSTemplateFormatVersion string                 `json:"AWSTemplateFormatVersion" yaml:"AWSTemplateFormatVersion"`
	Description              string                 `json:"Description,omitempty" yaml:"Description,omitempty"`
	Resources                map[string]ResourceDef `json:"Resources" yaml:"Resources"`
	Outputs                  map[string]Output      `json:"Outputs,omitempty" yaml:"Outputs,omitempty"`
}

// ResourceDef is a single resource in the CloudFormation template.
type ResourceDef struct {
	Type       string         `json:"Type" yaml:"Type"`
	Properties map[string]any `json:"Properties,omitempty" yaml:"Properties,omitempty"`
	DependsOn  []string       `json:"DependsOn,omitempty" yaml:"DependsOn,omitempty"`
}

// Output is a CloudFormation template output.
type Output struct {
	Description string        `json:"Description,omitempty" yaml:"Description,omitempty"`
	Value       any           `json:"Value" yaml:"Value"`
	Export      *OutputExport `json:"Export,omitempty" yaml:"Export,omitempty"`
}

// OutputExport names a cross-stack export.
type OutputExport struct {
	Name string `json:"Name" yaml:"Name"`
}

// BuildResult is the JSON output from `apistack build --format result`.
type BuildResult struct {
	Success   bool     `json:"success"`
	Template  Template `json:"template,omitempty"`
	Resources []string `json:"resources,omitempty"`
	Errors    []string `json:"errors,omitempty"`
}

// ValidateResult is the JSON output from `apistack validate`.
type ValidateResult struct {
	Success   bool     `json:"success"`
	Handlers  int      `json:"handlers"`
	Resources int      `json:"resources"`
	Errors    []string `json:"errors,omitempty"`
	Warnings  []string `json:"warnings,omitempty"`
}

// ListResult is the JSON output from `apistack list`.
type ListResult struct {
	Resources []ListResource `json:"resources"`
}

// ListResource is a single resource in the list output.
type ListResource struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

// TemplateDiff groups resource-level differences between two templates.
type TemplateDiff struct {
	Added    []DiffEntry `json:"added,omitempty"`
	Removed  []DiffEntry `json:"removed,omitempty"`
	Modified []DiffEntry `json:"modified,omitempty"`
}

// DiffEntry is one changed resource.
type DiffEntry struct {
	Resource string   `json:"resource"`
	Type     string   `json:"type"`
	Changes  []string `json:"changes,omitempty"`
}

// DiffSummary counts the entries of a TemplateDiff.
type DiffSummary struct {
	Added    int `json:"added"`
	Removed  int `json:"removed"`
	Modified int `json:"modified"`
	Total    int `json:"total"`
}
