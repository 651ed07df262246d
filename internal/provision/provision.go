// Package provision hands rendered templates to a provisioning target.
package provision

import (
	"context"

	apistack "github.com/lex00/apistack-go"
)

// Action describes what a Provisioner did with a template.
type Action string

const (
	ActionWritten   Action = "written"
	ActionCreated   Action = "created"
	ActionUpdated   Action = "updated"
	ActionUnchanged Action = "unchanged"
)

// Result describes a finished provisioning run.
type Result struct {
	Stack   string            `json:"stack"`
	Action  Action            `json:"action"`
	Target  string            `json:"target,omitempty"`
	Outputs map[string]string `json:"outputs,omitempty"`
}

// Provisioner deploys a template as the named stack.
type Provisioner interface {
	Provision(ctx context.Context, stack string, t *apistack.Template) (*Result, error)
}
