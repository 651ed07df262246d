package main

import (
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/spf13/cobra"

	"github.com/lex00/apistack-go/internal/provision"
)

func newDeployCmd() *cobra.Command {
	var (
		stack        string
		region       string
		noWait       bool
		maxWait      time.Duration
		outputFormat string
	)

	cmd := &cobra.Command{
		Use:   "deploy",
		Short: "Create or update the CloudFormation stack",
		Long: `Deploy compiles every handler, renders the template and creates or
updates the stack. Nothing is deployed unless every handler compiled.

AWS credentials and the default region come from the standard AWS
configuration chain.

Examples:
    apistack deploy
    apistack deploy --stack demo --region eu-west-1
    apistack deploy --no-wait`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDeploy(cmd, deployOptions{
				stack:        stack,
				region:       region,
				wait:         !noWait,
				maxWait:      maxWait,
				outputFormat: outputFormat,
			})
		},
	}

	cmd.Flags().StringVar(&stack, "stack", "", "Stack name (default: manifest stack or \"apistack\")")
	cmd.Flags().StringVar(&region, "region", "", "AWS region (default: from AWS configuration)")
	cmd.Flags().BoolVar(&noWait, "no-wait", false, "Return once the change is submitted")
	cmd.Flags().DurationVar(&maxWait, "max-wait", provision.DefaultMaxWait, "Maximum time to wait for the stack to settle")
	cmd.Flags().StringVarP(&outputFormat, "format", "f", "text", "Output format: text or json")

	return cmd
}

type deployOptions struct {
	stack        string
	region       string
	wait         bool
	maxWait      time.Duration
	outputFormat string
}

func runDeploy(cmd *cobra.Command, opts deployOptions) error {
	if opts.outputFormat != "text" && opts.outputFormat != "json" {
		return fmt.Errorf("unknown format: %s", opts.outputFormat)
	}

	ctx := cmd.Context()

	m, err := loadManifest()
	if err != nil {
		return err
	}
	if opts.stack != "" {
		m.Stack = opts.stack
	}

	cf, err := provision.NewCloudFormation(ctx, opts.region)
	if err != nil {
		return err
	}
	cf.Wait = opts.wait
	cf.MaxWait = opts.maxWait

	p, err := newPipeline(cf)
	if err != nil {
		return err
	}

	res, err := p.Run(ctx, m)
	if err != nil {
		return fmt.Errorf("deploy failed: %w", err)
	}

	return outputDeployResult(cmd, res.Provision, opts.outputFormat)
}

func outputDeployResult(cmd *cobra.Command, result *provision.Result, format string) error {
	out := cmd.OutOrStdout()

	switch format {
	case "json":
		data, err := json.MarshalIndent(result, "", "  ")
		if err != nil {
			return err
		}
		fmt.Fprintln(out, string(data))

	case "text":
		fmt.Fprintf(out, "Stack %s: %s\n", result.Stack, result.Action)
		keys := make([]string, 0, len(result.Outputs))
		for k := range result.Outputs {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			fmt.Fprintf(out, "  %s = %s\n", k, result.Outputs[k])
		}

	default:
		return fmt.Errorf("unknown format: %s", format)
	}

	return nil
}
