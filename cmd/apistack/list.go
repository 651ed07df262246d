package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	apistack "github.com/lex00/apistack-go"
	"github.com/lex00/apistack-go/internal/template"
)

func newListCmd() *cobra.Command {
	var outputFormat string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List the resources of the synthesized template",
		Long: `List compiles the manifest's handlers and displays every resource of the
resulting template in dependency order.

Examples:
    apistack list
    apistack list --format json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runList(cmd, outputFormat)
		},
	}

	cmd.Flags().StringVarP(&outputFormat, "format", "f", "text", "Output format: text or json")

	return cmd
}

func runList(cmd *cobra.Command, format string) error {
	_, res, err := synthesize(cmd.Context())
	if err != nil {
		return err
	}

	listResult, err := listResources(res.Template)
	if err != nil {
		return err
	}

	return outputListResult(cmd, listResult, format)
}

// listResources returns t's resources with dependencies before dependents.
func listResources(t *apistack.Template) (apistack.ListResult, error) {
	order, err := template.Order(t)
	if err != nil {
		return apistack.ListResult{}, err
	}

	result := apistack.ListResult{
		Resources: make([]apistack.ListResource, 0, len(order)),
	}
	for _, name := range order {
		result.Resources = append(result.Resources, apistack.ListResource{
			Name: name,
			Type: t.Resources[name].Type,
		})
	}
	return result, nil
}

func outputListResult(cmd *cobra.Command, result apistack.ListResult, format string) error {
	out := cmd.OutOrStdout()

	switch format {
	case "json":
		data, err := json.MarshalIndent(result, "", "  ")
		if err != nil {
			return err
		}
		fmt.Fprintln(out, string(data))

	case "text":
		if len(result.Resources) == 0 {
			fmt.Fprintln(out, "No resources found.")
			return nil
		}

		fmt.Fprintf(out, "Resources (%d):\n\n", len(result.Resources))
		for _, res := range result.Resources {
			fmt.Fprintf(out, "  %s: %s\n", res.Name, res.Type)
		}

	default:
		return fmt.Errorf("unknown format: %s", format)
	}

	return nil
}
