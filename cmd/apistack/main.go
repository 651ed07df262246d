// Command apistack compiles TypeScript/JavaScript handlers into a REST API
// CloudFormation stack.
//
// Usage:
//
//	apistack build                 Generate CloudFormation template
//	apistack deploy --stack demo   Create or update the stack
//	apistack graph | dot -Tpng     Render the API topology
//	apistack version               Show version
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/lex00/apistack-go/internal/ctxlog"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		stop()
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "apistack",
		Short: "Compile handlers into a REST API stack",
		Long: `apistack bundles each handler listed in the manifest, wires it to a
REST API route with CORS preflight and an optional shared authorizer, and
renders the result as a CloudFormation template.

    handlers:
      - name: helloWorld
        source: src/hello.ts
        method: GET
        path: hello

Then generate the template:

    apistack build -o template.json`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			logger, err := ctxlog.New(globals.logLevel, globals.logFormat, os.Stderr)
			if err != nil {
				return err
			}
			cmd.SetContext(ctxlog.WithLogger(cmd.Context(), logger))
			return nil
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&globals.manifest, "manifest", "m", "", "Manifest file (default: apistack.{yaml,yml,json,hcl} in the working directory)")
	flags.StringVar(&globals.bundler, "bundler", "esbuild", "Bundler backend: esbuild or exec")
	flags.StringVar(&globals.bundlerCommand, "bundler-command", "esbuild", "Command run by the exec bundler")
	flags.StringVar(&globals.logLevel, "log-level", "info", "Log level: debug, info, warn or error")
	flags.StringVar(&globals.logFormat, "log-format", "text", "Log format: text or json")

	rootCmd.AddCommand(
		newBuildCmd(),
		newDeployCmd(),
		newGraphCmd(),
		newListCmd(),
		newValidateCmd(),
		newDiffCmd(),
		newWatchCmd(),
		newVersionCmd(),
	)

	return rootCmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "apistack %s\n", getVersion())
		},
	}
}
