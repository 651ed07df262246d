// Package topology assembles compiled handlers into a resource graph.
//
// The graph holds compute units, one API per routed handler, the path tree
// under each API root and the methods registered on each path node. It is
// pure data: rendering it into a deployable template is done elsewhere.
package topology

import (
	"strings"
	"unicode"

	apistack "github.com/lex00/apistack-go"
)

// Graph is the assembled resource graph.
type Graph struct {
	// Functions lists every compute unit, the authorizer's first when present.
	Functions []*ComputeUnit
	// APIs lists one API per routed handler, in input order.
	APIs []*API
	// Authorizer is shared by every route method. Nil when none was supplied.
	Authorizer *Authorizer
}

// ComputeUnit is a deployable function backed by bundled code.
type ComputeUnit struct {
	ID          string
	Name        string
	Code        string
	Digest      string
	Handler     string
	Runtime     string
	Timeout     int
	MemorySize  int
	Environment map[string]string
}

// Authorizer is a token-validating compute unit gating routes.
type Authorizer struct {
	ID       string
	Function *ComputeUnit
}

// API is a routed HTTP surface with its own root path node.
type API struct {
	ID   string
	Name string
	Root *Node
}

// Node is a path node in an API's route tree. The root has an empty PathPart.
type Node struct {
	ID       string
	PathPart string
	Parent   *Node
	Children []*Node
	Methods  []*Method
}

// Method binds an HTTP method on a node to either a compute unit or a mock
// integration.
type Method struct {
	ID         string
	HTTPMethod apistack.Method
	Function   *ComputeUnit
	Authorizer *Authorizer
	Mock       *MockIntegration
}

// MockIntegration answers requests with a static response and never invokes
// compute.
type MockIntegration struct {
	StatusCode          int
	ResponseHeaders     []Header
	RequestTemplates    map[string]string
	PassthroughBehavior string
}

// Header is a response header with its literal value.
type Header struct {
	Name  string
	Value string
}

// IsRoot reports whether n is an API root.
func (n *Node) IsRoot() bool {
	return n.Parent == nil
}

// Path returns the slash-separated path of n below the API root.
func (n *Node) Path() string {
	var parts []string
	for cur := n; cur != nil && !cur.IsRoot(); cur = cur.Parent {
		parts = append([]string{cur.PathPart}, parts...)
	}
	return strings.Join(parts, "/")
}

// Child returns the child node for part, creating it when absent.
func (n *Node) Child(part string) *Node {
	for _, c := range n.Children {
		if c.PathPart == part {
			return c
		}
	}
	prefix := n.ID
	if n.IsRoot() {
		prefix += "Resource"
	}
	c := &Node{
		ID:       prefix + identPart(part),
		PathPart: part,
		Parent:   n,
	}
	n.Children = append(n.Children, c)
	return c
}

// FindMethod returns the method registered for m on n, or nil.
func (n *Node) FindMethod(m apistack.Method) *Method {
	for _, meth := range n.Methods {
		if meth.HTTPMethod == m {
			return meth
		}
	}
	return nil
}

func (n *Node) addMethod(m *Method) {
	m.ID = n.ID + identPart(strings.ToLower(string(m.HTTPMethod))) + "Method"
	n.Methods = append(n.Methods, m)
}

// Walk visits n and its descendants depth first in insertion order.
func (n *Node) Walk(fn func(*Node)) {
	fn(n)
	for _, c := range n.Children {
		c.Walk(fn)
	}
}

// Methods returns every method in the API, in tree order.
func (a *API) Methods() []*Method {
	var out []*Method
	a.Root.Walk(func(n *Node) {
		out = append(out, n.Methods...)
	})
	return out
}

// IDs returns every resource identifier in the graph, in assembly order.
func (g *Graph) IDs() []string {
	var ids []string
	for _, f := range g.Functions {
		ids = append(ids, f.ID)
	}
	if g.Authorizer != nil {
		ids = append(ids, g.Authorizer.ID)
	}
	for _, api := range g.APIs {
		ids = append(ids, api.ID)
		api.Root.Walk(func(n *Node) {
			if !n.IsRoot() {
				ids = append(ids, n.ID)
			}
			for _, m := range n.Methods {
				ids = append(ids, m.ID)
			}
		})
	}
	return ids
}

// identPart turns a path segment into an identifier fragment: non
// alphanumeric runes are dropped and each word is capitalized, so
// "{user-id}" becomes "UserId".
func identPart(s string) string {
	var b strings.Builder
	upper := true
	for _, r := range s {
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) {
			upper = true
			continue
		}
		if upper {
			r = unicode.ToUpper(r)
			upper = false
		}
		b.WriteRune(r)
	}
	return b.String()
}
