package main

import (
	"context"
	"fmt"
	"os"

	"github.com/lex00/apistack-go/internal/bundler"
	"github.com/lex00/apistack-go/internal/compiler"
	"github.com/lex00/apistack-go/internal/manifest"
	"github.com/lex00/apistack-go/internal/pipeline"
	"github.com/lex00/apistack-go/internal/provision"
)

type globalOptions struct {
	manifest       string
	bundler        string
	bundlerCommand string
	logLevel       string
	logFormat      string
}

var globals = globalOptions{
	bundler:        "esbuild",
	bundlerCommand: "esbuild",
}

// loadManifest loads the --manifest file, or discovers one in the working
// directory.
func loadManifest() (*manifest.Manifest, error) {
	path := globals.manifest
	if path == "" {
		wd, err := os.Getwd()
		if err != nil {
			return nil, err
		}
		path, err = manifest.Find(wd)
		if err != nil {
			return nil, err
		}
	}
	return manifest.Load(path)
}

func newBundler() (bundler.Bundler, error) {
	switch globals.bundler {
	case "", "esbuild":
		return bundler.NewEsbuild(), nil
	case "exec":
		return &bundler.Exec{Command: globals.bundlerCommand}, nil
	default:
		return nil, fmt.Errorf("unknown bundler: %s (use 'esbuild' or 'exec')", globals.bundler)
	}
}

func newPipeline(p provision.Provisioner) (*pipeline.Pipeline, error) {
	b, err := newBundler()
	if err != nil {
		return nil, err
	}
	return pipeline.New(compiler.New(b), p), nil
}

// synthesize loads the manifest and renders its template without
// provisioning anything.
func synthesize(ctx context.Context) (*manifest.Manifest, *pipeline.Result, error) {
	m, err := loadManifest()
	if err != nil {
		return nil, nil, err
	}

	p, err := newPipeline(nil)
	if err != nil {
		return nil, nil, err
	}

	res, err := p.Synthesize(ctx, m)
	if err != nil {
		return nil, nil, err
	}
	return m, res, nil
}
