package main

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	apistack "github.com/lex00/apistack-go"
	"github.com/lex00/apistack-go/internal/manifest"
	"github.com/lex00/apistack-go/internal/schema"
	"github.com/lex00/apistack-go/internal/validation"
)

// newValidateCmd creates the "validate" subcommand for checking the manifest
// and the template it produces.
func newValidateCmd() *cobra.Command {
	var (
		outputFormat string
		skipLint     bool
	)

	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Validate the manifest and the synthesized template",
		Long: `Validate checks the manifest, compiles every handler and lints the
resulting template.

Checks performed:
  - Manifest: names, sources, methods and numeric settings
  - Compilation: every handler bundles without errors
  - Schema: required properties, types and allowed values of every resource
  - cfn-lint: the rendered template passes CloudFormation linting

Examples:
    apistack validate
    apistack validate --format json
    apistack validate --skip-lint`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(cmd, outputFormat, skipLint)
		},
	}

	cmd.Flags().StringVarP(&outputFormat, "format", "f", "text", "Output format: text or json")
	cmd.Flags().BoolVar(&skipLint, "skip-lint", false, "Skip cfn-lint of the synthesized template")

	return cmd
}

// runValidate validates the manifest, then the synthesized template.
func runValidate(cmd *cobra.Command, format string, skipLint bool) error {
	result := apistack.ValidateResult{}

	m, res, err := synthesize(cmd.Context())
	if err != nil {
		var verr *manifest.ValidationError
		if errors.As(err, &verr) {
			result.Errors = append(result.Errors, verr.Problems...)
		} else {
			result.Errors = append(result.Errors, err.Error())
		}
		return outputValidateResult(cmd, result, format)
	}

	result.Handlers = len(m.Names())
	result.Resources = len(res.Template.Resources)

	checked := schema.ValidateTemplate(res.Template, schema.Options{})
	for _, issue := range checked.Errors {
		result.Errors = append(result.Errors, issue.String())
	}
	for _, issue := range checked.Warnings {
		result.Warnings = append(result.Warnings, issue.String())
	}

	if !skipLint {
		lint, err := validation.LintTemplate(res.Template)
		if err != nil {
			return err
		}
		result.Errors = append(result.Errors, lint.Errors...)
		result.Warnings = append(result.Warnings, lint.Warnings...)
	}

	result.Success = len(result.Errors) == 0
	return outputValidateResult(cmd, result, format)
}

func outputValidateResult(cmd *cobra.Command, result apistack.ValidateResult, format string) error {
	out := cmd.OutOrStdout()

	switch format {
	case "json":
		data, err := json.MarshalIndent(result, "", "  ")
		if err != nil {
			return err
		}
		fmt.Fprintln(out, string(data))

	case "text":
		if result.Success {
			fmt.Fprintf(out, "Validation passed: %d handlers, %d resources OK\n", result.Handlers, result.Resources)
			for _, warnMsg := range result.Warnings {
				fmt.Fprintf(out, "  WARNING: %s\n", warnMsg)
			}
			return nil
		}

		fmt.Fprintln(out, "Validation FAILED:")
		for _, errMsg := range result.Errors {
			fmt.Fprintf(out, "  ERROR: %s\n", errMsg)
		}
		for _, warnMsg := range result.Warnings {
			fmt.Fprintf(out, "  WARNING: %s\n", warnMsg)
		}

	default:
		return fmt.Errorf("unknown format: %s", format)
	}

	if !result.Success {
		return errors.New("validation failed")
	}

	return nil
}
