package topology

import (
	"fmt"
	"strings"

	apistack "github.com/lex00/apistack-go"
)

// DefaultRuntime is the function runtime used when Options.Runtime is empty.
const DefaultRuntime = "nodejs20.x"

// Options configures assembly.
type Options struct {
	Runtime string
}

// AssemblyCollisionError reports two resources sharing an identifier.
type AssemblyCollisionError struct {
	ID string
}

func (e *AssemblyCollisionError) Error() string {
	return fmt.Sprintf("duplicate resource identifier %q", e.ID)
}

// CheckNames returns an *AssemblyCollisionError for the first name that
// appears twice. Assemble does not call it.
func CheckNames(names []string) error {
	seen := make(map[string]bool, len(names))
	for _, n := range names {
		if seen[n] {
			return &AssemblyCollisionError{ID: n}
		}
		seen[n] = true
	}
	return nil
}

// Assemble builds the resource graph for handlers, gated by authorizer when it
// is non-nil. Handlers without route fields are skipped.
//
// Identifiers depend only on handler names and paths, so assembling the same
// input twice yields the same identifiers.
func Assemble(handlers []apistack.CompiledHandler, authorizer *apistack.CompiledHandler, opts Options) *Graph {
	if opts.Runtime == "" {
		opts.Runtime = DefaultRuntime
	}

	g := &Graph{}

	var auth *Authorizer
	if authorizer != nil {
		fn := newComputeUnit(*authorizer, opts)
		g.Functions = append(g.Functions, fn)
		auth = &Authorizer{ID: authorizer.Name + "Authorizer", Function: fn}
		g.Authorizer = auth
	}

	for _, h := range handlers {
		if !h.IsRoute() {
			continue
		}

		fn := newComputeUnit(h, opts)
		g.Functions = append(g.Functions, fn)

		api := &API{ID: h.Name + "Api", Name: h.Name}
		api.Root = &Node{ID: api.ID}
		g.APIs = append(g.APIs, api)

		node := resolve(api.Root, h.APIPath)
		AttachPreflight(node)
		node.addMethod(&Method{
			HTTPMethod: h.Method,
			Function:   fn,
			Authorizer: auth,
		})
	}

	return g
}

func newComputeUnit(h apistack.CompiledHandler, opts Options) *ComputeUnit {
	return &ComputeUnit{
		ID:          h.Name + "Function",
		Name:        h.Name,
		Code:        h.Code(),
		Digest:      h.Digest(),
		Handler:     "index." + h.FunctionName,
		Runtime:     opts.Runtime,
		Timeout:     h.Timeout,
		MemorySize:  h.MemorySize,
		Environment: h.Environment,
	}
}

// resolve returns the node for path below root, creating nodes for each
// segment. An empty path is the root.
func resolve(root *Node, path string) *Node {
	node := root
	for _, part := range strings.Split(path, "/") {
		if part == "" {
			continue
		}
		node = node.Child(part)
	}
	return node
}
