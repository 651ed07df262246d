package bundler

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"regexp"
	"strconv"
	"strings"
)

// Exec bundles by running an esbuild-compatible command line tool.
type Exec struct {
	// Command is the executable name or path. Defaults to "esbuild".
	Command string
	// Env is appended to the inherited environment.
	Env []string
}

// Bundle invokes the command with flags derived from opts. Failure to start the
// command is returned as an error; a non-zero exit is reported as Diagnostics
// parsed from stderr.
func (e *Exec) Bundle(ctx context.Context, opts Options) (*Result, error) {
	name := e.Command
	if name == "" {
		name = "esbuild"
	}
	bin, err := exec.LookPath(name)
	if err != nil {
		return nil, fmt.Errorf("finding bundler: %w", err)
	}

	cmd := exec.CommandContext(ctx, bin, cliArgs(opts)...)
	if len(e.Env) > 0 {
		cmd.Env = append(cmd.Environ(), e.Env...)
	}

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) && ctx.Err() == nil {
			return &Result{
				OutputPath:  opts.OutputPath(),
				Diagnostics: parseCLIDiagnostics(stderr.String(), exitErr),
			}, nil
		}
		return nil, fmt.Errorf("running %s: %w\n%s", bin, err, stderr.String())
	}

	return &Result{OutputPath: opts.OutputPath()}, nil
}

func cliArgs(opts Options) []string {
	args := []string{
		opts.EntryPoint,
		"--bundle",
		"--outfile=" + opts.OutputPath(),
		"--log-level=error",
	}
	if opts.Platform != "" {
		args = append(args, "--platform="+opts.Platform)
	}
	if opts.Format != "" {
		args = append(args, "--format="+opts.Format)
	}
	if opts.Target != "" {
		args = append(args, "--target="+opts.Target)
	}
	for _, ext := range opts.Externals {
		args = append(args, "--external:"+ext)
	}
	if len(opts.Extensions) > 0 {
		args = append(args, "--resolve-extensions="+strings.Join(opts.Extensions, ","))
	}
	if opts.Minify {
		args = append(args, "--minify")
	}
	if opts.TreeShaking {
		args = append(args, "--tree-shaking=true")
	}
	return args
}

// locationLine matches the "    file:line:column:" line esbuild prints under
// each message.
var locationLine = regexp.MustCompile(`^\s+(\S+):(\d+):(\d+):\s*$`)

func parseCLIDiagnostics(stderr string, exitErr *exec.ExitError) *Diagnostics {
	diags := &Diagnostics{}

	// list and idx point at the message awaiting a location line.
	var list *[]Message
	idx := -1

	scanner := bufio.NewScanner(strings.NewReader(stderr))
	for scanner.Scan() {
		line := scanner.Text()
		if i := strings.Index(line, "[ERROR]"); i >= 0 {
			diags.Errors = append(diags.Errors, Message{Text: strings.TrimSpace(line[i+len("[ERROR]"):])})
			list, idx = &diags.Errors, len(diags.Errors)-1
			continue
		}
		if i := strings.Index(line, "[WARNING]"); i >= 0 {
			diags.Warnings = append(diags.Warnings, Message{Text: strings.TrimSpace(line[i+len("[WARNING]"):])})
			list, idx = &diags.Warnings, len(diags.Warnings)-1
			continue
		}
		if list == nil || (*list)[idx].File != "" {
			continue
		}
		if m := locationLine.FindStringSubmatch(line); m != nil {
			msg := &(*list)[idx]
			msg.File = m[1]
			msg.Line, _ = strconv.Atoi(m[2])
			msg.Column, _ = strconv.Atoi(m[3])
		}
	}

	if len(diags.Errors) == 0 {
		text := strings.TrimSpace(stderr)
		if text == "" {
			text = exitErr.Error()
		}
		diags.Errors = append(diags.Errors, Message{Text: text})
	}
	return diags
}
