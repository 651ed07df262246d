// Package pipeline runs a manifest through compile, assembly, rendering and
// provisioning.
package pipeline

import (
	"context"
	"errors"
	"time"

	apistack "github.com/lex00/apistack-go"
	"github.com/lex00/apistack-go/internal/ctxlog"
	"github.com/lex00/apistack-go/internal/loader"
	"github.com/lex00/apistack-go/internal/manifest"
	"github.com/lex00/apistack-go/internal/provision"
	"github.com/lex00/apistack-go/internal/template"
	"github.com/lex00/apistack-go/internal/topology"
)

// DefaultStack is the stack name used when the manifest does not set one.
const DefaultStack = "apistack"

// ErrNoProvisioner is returned by Run when the pipeline has no provisioner.
var ErrNoProvisioner = errors.New("no provisioner configured")

// Pipeline turns manifests into provisioned stacks.
type Pipeline struct {
	compiler    loader.Compiler
	provisioner provision.Provisioner
}

// New creates a Pipeline. provisioner may be nil when only Synthesize is used.
func New(compiler loader.Compiler, provisioner provision.Provisioner) *Pipeline {
	return &Pipeline{compiler: compiler, provisioner: provisioner}
}

// Result carries everything a run produced.
type Result struct {
	Stack     string
	Handlers  []apistack.CompiledHandler
	Graph     *topology.Graph
	Template  *apistack.Template
	Provision *provision.Result
}

// StackName returns the manifest's stack name or DefaultStack.
func StackName(m *manifest.Manifest) string {
	if m.Stack != "" {
		return m.Stack
	}
	return DefaultStack
}

// Synthesize compiles every handler, assembles the graph and renders the
// template. The first failure stops the run.
func (p *Pipeline) Synthesize(ctx context.Context, m *manifest.Manifest) (*Result, error) {
	logger := ctxlog.FromContext(ctx)
	start := time.Now()

	if err := topology.CheckNames(m.Names()); err != nil {
		return nil, err
	}

	l := loader.New(p.compiler, m.Dir)

	var authorizer *apistack.CompiledHandler
	if m.Authorizer != nil {
		logger.Info("compiling authorizer", "name", m.Authorizer.Name)
		h, err := l.LoadAuthorizer(ctx, *m.Authorizer)
		if err != nil {
			return nil, err
		}
		authorizer = &h
	}

	logger.Info("compiling handlers", "count", len(m.Handlers))
	handlers, err := l.Load(ctx, m.Handlers)
	if err != nil {
		return nil, err
	}

	graph := topology.Assemble(handlers, authorizer, topology.Options{Runtime: m.Runtime})
	logger.Info("assembled graph", "functions", len(graph.Functions), "apis", len(graph.APIs))

	tmpl, err := template.FromGraph(graph, template.Options{
		Description: m.Description,
		Stage:       m.Stage,
	})
	if err != nil {
		return nil, err
	}
	logger.Info("rendered template", "resources", len(tmpl.Resources), "duration", time.Since(start))

	return &Result{
		Stack:    StackName(m),
		Handlers: handlers,
		Graph:    graph,
		Template: tmpl,
	}, nil
}

// Run synthesizes m and provisions the template. Any failure is logged once
// and returned; nothing is provisioned unless synthesis fully succeeded.
func (p *Pipeline) Run(ctx context.Context, m *manifest.Manifest) (*Result, error) {
	logger := ctxlog.FromContext(ctx)

	if p.provisioner == nil {
		logger.Error("run failed", "error", ErrNoProvisioner)
		return nil, ErrNoProvisioner
	}

	res, err := p.Synthesize(ctx, m)
	if err != nil {
		logger.Error("run failed", "stack", StackName(m), "error", err)
		return nil, err
	}

	out, err := p.provisioner.Provision(ctx, res.Stack, res.Template)
	if err != nil {
		logger.Error("provisioning failed", "stack", res.Stack, "error", err)
		return nil, err
	}
	res.Provision = out

	logger.Info("run complete", "stack", res.Stack, "action", out.Action)
	return res, nil
}
