// Package graph renders assembled resource graphs in DOT and Mermaid format.
package graph

import (
	"io"
	"strings"

	"github.com/emicklei/dot"

	apistack "github.com/lex00/apistack-go"
	"github.com/lex00/apistack-go/internal/topology"
)

// Format specifies the output format for the graph.
type Format string

const (
	// FormatDOT outputs Graphviz DOT format.
	FormatDOT Format = "dot"
	// FormatMermaid outputs Mermaid format for GitHub/markdown rendering.
	FormatMermaid Format = "mermaid"
)

// ParseFormat converts a flag value to a Format.
func ParseFormat(s string) (Format, bool) {
	switch Format(s) {
	case FormatDOT, FormatMermaid:
		return Format(s), true
	}
	return "", false
}

// Generator renders topology graphs.
type Generator struct {
	// Format specifies the output format (dot or mermaid). Defaults to dot.
	Format Format

	// ClusterByAPI draws each API's route tree inside its own cluster.
	ClusterByAPI bool

	// HidePreflight leaves CORS preflight methods out.
	HidePreflight bool
}

// Generate renders g and writes it to w.
func (gen *Generator) Generate(g *topology.Graph, w io.Writer) error {
	graph := gen.buildGraph(g)

	var output string
	if gen.Format == FormatMermaid {
		output = dot.MermaidGraph(graph, dot.MermaidTopToBottom)
	} else {
		output = graph.String()
	}

	_, err := io.WriteString(w, output)
	return err
}

// GenerateString is a convenience method that returns the graph as a string.
func (gen *Generator) GenerateString(g *topology.Graph) (string, error) {
	var sb strings.Builder
	if err := gen.Generate(g, &sb); err != nil {
		return "", err
	}
	return sb.String(), nil
}

func (gen *Generator) buildGraph(g *topology.Graph) *dot.Graph {
	graph := dot.NewGraph(dot.Directed)
	graph.Attr("rankdir", "TB")

	graph.NodeInitializer(func(n dot.Node) {
		n.Attr("shape", "box")
		n.Attr("fontname", "Arial")
	})
	graph.EdgeInitializer(func(e dot.Edge) {
		e.Attr("fontname", "Arial")
		e.Attr("fontsize", "10")
	})

	functions := make(map[*topology.ComputeUnit]dot.Node, len(g.Functions))
	for _, fn := range g.Functions {
		n := graph.Node(fn.ID)
		n.Label(fn.ID + "\\n[" + fn.Runtime + " " + fn.Handler + "]")
		functions[fn] = n
	}

	var authorizer dot.Node
	if g.Authorizer != nil {
		authorizer = graph.Node(g.Authorizer.ID)
		authorizer.Attr("shape", "diamond")
		authorizer.Label(g.Authorizer.ID)
		graph.Edge(authorizer, functions[g.Authorizer.Function]).Attr("color", "blue")
	}

	for _, api := range g.APIs {
		parent := graph
		if gen.ClusterByAPI {
			parent = graph.Subgraph("cluster_"+api.ID, dot.ClusterOption{})
			parent.Attr("label", api.ID)
			parent.Attr("style", "rounded")
			parent.Attr("bgcolor", "lightyellow")
		}

		nodes := make(map[*topology.Node]dot.Node)
		api.Root.Walk(func(node *topology.Node) {
			pn := parent.Node(node.ID)
			nodes[node] = pn
			if node.IsRoot() {
				pn.Attr("shape", "folder")
				pn.Label(api.ID + "\\n/")
			} else {
				pn.Label("/" + node.Path())
				graph.Edge(nodes[node.Parent], pn)
			}

			for _, m := range node.Methods {
				if m.HTTPMethod == apistack.MethodOptions && gen.HidePreflight {
					continue
				}
				mn := parent.Node(m.ID)
				mn.Attr("shape", "ellipse")
				mn.Label(string(m.HTTPMethod))
				graph.Edge(pn, mn)

				switch {
				case m.Mock != nil:
					mn.Attr("style", "dashed")
				case m.Function != nil:
					graph.Edge(mn, functions[m.Function]).Attr("color", "blue")
				}
				if m.Authorizer != nil {
					graph.Edge(mn, authorizer).Attr("color", "red").Attr("style", "dashed")
				}
			}
		})
	}

	return graph
}
