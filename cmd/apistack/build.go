package main

import (
	"fmt"

	"github.com/spf13/cobra"

	apistack "github.com/lex00/apistack-go"
	"github.com/lex00/apistack-go/internal/provision"
)

func newBuildCmd() *cobra.Command {
	var (
		outputFormat string
		outputFile   string
	)

	cmd := &cobra.Command{
		Use:   "build",
		Short: "Generate CloudFormation template from the manifest",
		Long: `Build compiles every handler in the manifest and generates a template.

Examples:
    apistack build
    apistack build -o template.json
    apistack build --format yaml
    apistack build -m api/apistack.hcl`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBuild(cmd, outputFormat, outputFile)
		},
	}

	cmd.Flags().StringVarP(&outputFormat, "format", "f", "json", "Output format: json or yaml")
	cmd.Flags().StringVarP(&outputFile, "output", "o", "", "Output file (default: stdout)")

	return cmd
}

func runBuild(cmd *cobra.Command, format, outputFile string) error {
	if format != "json" && format != "yaml" {
		return fmt.Errorf("unknown format: %s", format)
	}

	_, res, err := synthesize(cmd.Context())
	if err != nil {
		return fmt.Errorf("build failed: %w", err)
	}

	return writeTemplate(cmd, res.Stack, res.Template, format, outputFile)
}

func writeTemplate(cmd *cobra.Command, stack string, t *apistack.Template, format, outputFile string) error {
	if outputFile == "" {
		data, err := provision.Encode(t, format)
		if err != nil {
			return err
		}
		_, err = cmd.OutOrStdout().Write(data)
		return err
	}

	f := &provision.File{Path: outputFile, Format: format}
	_, err := f.Provision(cmd.Context(), stack, t)
	return err
}
