package bundler

import (
	"context"
	"fmt"
	"os"

	"github.com/evanw/esbuild/pkg/api"
)

// Esbuild bundles in-process with esbuild's Go API.
type Esbuild struct{}

// NewEsbuild creates the in-process backend.
func NewEsbuild() *Esbuild {
	return &Esbuild{}
}

// Bundle runs a single esbuild build writing opts.OutputPath().
func (e *Esbuild) Bundle(ctx context.Context, opts Options) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if _, err := os.Stat(opts.EntryPoint); err != nil {
		return nil, fmt.Errorf("entry point: %w", err)
	}

	buildOpts, err := esbuildOptions(opts)
	if err != nil {
		return nil, err
	}

	res := api.Build(buildOpts)

	result := &Result{
		OutputPath: opts.OutputPath(),
		Metafile:   res.Metafile,
	}
	if len(res.Errors) > 0 || len(res.Warnings) > 0 {
		result.Diagnostics = &Diagnostics{
			Errors:   convertMessages(res.Errors),
			Warnings: convertMessages(res.Warnings),
		}
	}
	return result, nil
}

func esbuildOptions(opts Options) (api.BuildOptions, error) {
	var platform api.Platform
	switch opts.Platform {
	case "", "node":
		platform = api.PlatformNode
	case "neutral":
		platform = api.PlatformNeutral
	default:
		return api.BuildOptions{}, fmt.Errorf("unsupported platform %q", opts.Platform)
	}

	var format api.Format
	switch opts.Format {
	case "", "cjs":
		format = api.FormatCommonJS
	case "esm":
		format = api.FormatESModule
	default:
		return api.BuildOptions{}, fmt.Errorf("unsupported format %q", opts.Format)
	}

	var target api.Target
	switch opts.Target {
	case "", "es2020":
		target = api.ES2020
	case "es2021":
		target = api.ES2021
	case "es2022":
		target = api.ES2022
	case "esnext":
		target = api.ESNext
	default:
		return api.BuildOptions{}, fmt.Errorf("unsupported target %q", opts.Target)
	}

	treeShaking := api.TreeShakingDefault
	if opts.TreeShaking {
		treeShaking = api.TreeShakingTrue
	}

	return api.BuildOptions{
		EntryPoints:       []string{opts.EntryPoint},
		Bundle:            true,
		Write:             true,
		Outfile:           opts.OutputPath(),
		Platform:          platform,
		Format:            format,
		Target:            target,
		External:          opts.Externals,
		ResolveExtensions: opts.Extensions,
		MinifyWhitespace:  opts.Minify,
		MinifyIdentifiers: opts.Minify,
		MinifySyntax:      opts.Minify,
		TreeShaking:       treeShaking,
		Metafile:          opts.Metafile,
		LogLevel:          api.LogLevelSilent,
	}, nil
}

func convertMessages(msgs []api.Message) []Message {
	if len(msgs) == 0 {
		return nil
	}
	out := make([]Message, 0, len(msgs))
	for _, m := range msgs {
		msg := Message{Text: m.Text}
		if m.Location != nil {
			msg.File = m.Location.File
			msg.Line = m.Location.Line
			msg.Column = m.Location.Column
		}
		out = append(out, msg)
	}
	return out
}
