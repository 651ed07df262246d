// Package template renders resource graphs as CloudFormation templates.
package template

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	apistack "github.com/lex00/apistack-go"
	"github.com/lex00/apistack-go/internal/serialize"
	"github.com/lex00/apistack-go/internal/topology"
)

// Builder collects typed resources and outputs into a template.
type Builder struct {
	description string
	resources   map[string]apistack.ResourceDef
	outputs     map[string]apistack.Output
}

// NewBuilder creates an empty template builder.
func NewBuilder(description string) *Builder {
	return &Builder{
		description: description,
		resources:   make(map[string]apistack.ResourceDef),
		outputs:     make(map[string]apistack.Output),
	}
}

// Add serializes props and registers it under logical id. Registering an id
// twice fails with *topology.AssemblyCollisionError.
func (b *Builder) Add(id, resourceType string, props any, dependsOn ...string) error {
	if _, exists := b.resources[id]; exists {
		return &topology.AssemblyCollisionError{ID: id}
	}

	serialized, err := serialize.Resource(props)
	if err != nil {
		return fmt.Errorf("serializing %s: %w", id, err)
	}

	b.resources[id] = apistack.ResourceDef{
		Type:       resourceType,
		Properties: serialized,
		DependsOn:  dependsOn,
	}
	return nil
}

// AddOutput registers a stack output.
func (b *Builder) AddOutput(name, description string, value any) error {
	if _, exists := b.outputs[name]; exists {
		return &topology.AssemblyCollisionError{ID: name}
	}

	serialized, err := serialize.Value(value)
	if err != nil {
		return fmt.Errorf("serializing output %s: %w", name, err)
	}

	b.outputs[name] = apistack.Output{Description: description, Value: serialized}
	return nil
}

// Build returns the template after checking that every reference resolves
// and that resources have no circular dependencies.
func (b *Builder) Build() (*apistack.Template, error) {
	t := &apistack.Template{
		AWSTemplateFormatVersion: "2010-09-09",
		Description:              b.description,
		Resources:                b.resources,
	}
	if len(b.outputs) > 0 {
		t.Outputs = b.outputs
	}

	if _, err := Order(t); err != nil {
		return nil, err
	}

	for name, out := range t.Outputs {
		for _, ref := range references(out.Value) {
			if _, ok := t.Resources[ref]; !ok {
				return nil, fmt.Errorf("output %s references undefined resource %s", name, ref)
			}
		}
	}

	return t, nil
}

// Order returns the logical ids of t in dependency order, ties broken by
// name. It fails when a resource references an id that is not defined or
// when the references form a cycle.
func Order(t *apistack.Template) ([]string, error) {
	deps := make(map[string][]string, len(t.Resources))
	for name, res := range t.Resources {
		refs := references(res.Properties)
		refs = append(refs, res.DependsOn...)
		for _, ref := range refs {
			if _, ok := t.Resources[ref]; !ok {
				return nil, fmt.Errorf("%s references undefined resource %s", name, ref)
			}
		}
		deps[name] = dedupe(refs)
	}
	return topologicalSort(deps)
}

// topologicalSort orders the keys of deps so that every id comes after the
// ids it depends on.
func topologicalSort(deps map[string][]string) ([]string, error) {
	graph := make(map[string][]string)
	inDegree := make(map[string]int)

	for name := range deps {
		graph[name] = nil
		inDegree[name] = 0
	}

	for name, ds := range deps {
		for _, dep := range ds {
			graph[dep] = append(graph[dep], name)
			inDegree[name]++
		}
	}

	// Kahn's algorithm
	var queue []string
	for name, degree := range inDegree {
		if degree == 0 {
			queue = append(queue, name)
		}
	}
	sort.Strings(queue)

	var result []string
	for len(queue) > 0 {
		node := queue[0]
		queue = queue[1:]
		result = append(result, node)

		for _, neighbor := range graph[node] {
			inDegree[neighbor]--
			if inDegree[neighbor] == 0 {
				queue = append(queue, neighbor)
				sort.Strings(queue)
			}
		}
	}

	if len(result) != len(deps) {
		return nil, detectCycle(deps)
	}

	return result, nil
}

// detectCycle finds and reports a cycle in the dependency graph.
func detectCycle(deps map[string][]string) error {
	visited := make(map[string]bool)
	path := make(map[string]bool)

	var cycle []string
	var findCycle func(node string) bool
	findCycle = func(node string) bool {
		visited[node] = true
		path[node] = true

		for _, dep := range deps[node] {
			if !visited[dep] {
				if findCycle(dep) {
					cycle = append([]string{node}, cycle...)
					return true
				}
			} else if path[dep] {
				cycle = append([]string{dep, node}, cycle...)
				return true
			}
		}

		path[node] = false
		return false
	}

	names := make([]string, 0, len(deps))
	for name := range deps {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		if !visited[name] && findCycle(name) {
			break
		}
	}

	if len(cycle) > 0 {
		return errors.New("circular dependency detected: " + strings.Join(cycle, " → "))
	}
	return errors.New("circular dependency detected")
}

var subVar = regexp.MustCompile(`\$\{([^}]+)\}`)

// references returns the logical ids referenced by Ref, Fn::GetAtt and
// Fn::Sub anywhere inside value. Pseudo parameters are skipped.
func references(value any) []string {
	var refs []string
	add := func(id string) {
		if id != "" && !strings.Contains(id, "::") {
			refs = append(refs, id)
		}
	}

	var walk func(v any)
	walk = func(v any) {
		switch v := v.(type) {
		case map[string]any:
			if id, ok := v["Ref"].(string); ok {
				add(id)
			}
			if args, ok := v["Fn::GetAtt"].([]any); ok && len(args) > 0 {
				if id, ok := args[0].(string); ok {
					add(id)
				}
			}
			if s, ok := subString(v["Fn::Sub"]); ok {
				for _, m := range subVar.FindAllStringSubmatch(s, -1) {
					if strings.HasPrefix(m[1], "!") {
						continue
					}
					id, _, _ := strings.Cut(m[1], ".")
					add(id)
				}
			}
			for _, child := range v {
				walk(child)
			}
		case []any:
			for _, child := range v {
				walk(child)
			}
		}
	}
	walk(value)

	return dedupe(refs)
}

func subString(v any) (string, bool) {
	switch v := v.(type) {
	case string:
		return v, true
	case []any:
		if len(v) > 0 {
			s, ok := v[0].(string)
			return s, ok
		}
	}
	return "", false
}

func dedupe(ids []string) []string {
	if len(ids) == 0 {
		return nil
	}
	seen := make(map[string]bool, len(ids))
	out := ids[:0:0]
	for _, id := range ids {
		if !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	return out
}

// ToJSON serializes the template to JSON.
func ToJSON(t *apistack.Template) ([]byte, error) {
	return json.MarshalIndent(t, "", "  ")
}

// ToYAML serializes the template to YAML.
func ToYAML(t *apistack.Template) ([]byte, error) {
	return yaml.Marshal(t)
}
