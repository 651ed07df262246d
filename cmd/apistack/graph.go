package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/lex00/apistack-go/internal/graph"
)

func newGraphCmd() *cobra.Command {
	var (
		outputFormat  string
		clusterByAPI  bool
		hidePreflight bool
	)

	cmd := &cobra.Command{
		Use:   "graph",
		Short: "Generate DOT graph of the API topology",
		Long: `Generate a DOT or Mermaid format graph showing APIs, routes, methods,
functions and the shared authorizer.

The output can be rendered with Graphviz:
    apistack graph | dot -Tpng -o api.png

Or used in GitHub markdown (Mermaid format):
    apistack graph -f mermaid

Examples:
    apistack graph
    apistack graph -c                  # cluster routes by API
    apistack graph --hide-preflight    # omit OPTIONS methods
    apistack graph -f mermaid          # mermaid format`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGraph(cmd, outputFormat, clusterByAPI, hidePreflight)
		},
	}

	cmd.Flags().StringVarP(&outputFormat, "format", "f", "dot", "Output format: dot or mermaid")
	cmd.Flags().BoolVarP(&clusterByAPI, "cluster", "c", false, "Cluster routes by API")
	cmd.Flags().BoolVar(&hidePreflight, "hide-preflight", false, "Leave CORS preflight methods out")

	return cmd
}

func runGraph(cmd *cobra.Command, format string, cluster, hidePreflight bool) error {
	graphFormat, ok := graph.ParseFormat(format)
	if !ok {
		return fmt.Errorf("unknown format: %s (use 'dot' or 'mermaid')", format)
	}

	_, res, err := synthesize(cmd.Context())
	if err != nil {
		return err
	}

	if len(res.Graph.Functions) == 0 {
		return fmt.Errorf("no handlers found")
	}

	gen := &graph.Generator{
		Format:        graphFormat,
		ClusterByAPI:  cluster,
		HidePreflight: hidePreflight,
	}

	return gen.Generate(res.Graph, cmd.OutOrStdout())
}
