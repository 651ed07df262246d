package main

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	apistack "github.com/lex00/apistack-go"
	"github.com/lex00/apistack-go/internal/bundler"
	"github.com/lex00/apistack-go/internal/manifest"
)

func TestRootCommands(t *testing.T) {
	root := newRootCmd()

	want := []string{"build", "deploy", "graph", "list", "validate", "diff", "watch", "version"}
	for _, name := range want {
		cmd, _, err := root.Find([]string{name})
		if err != nil || cmd.Name() != name {
			t.Errorf("missing %q subcommand", name)
		}
	}

	for _, flag := range []string{"manifest", "bundler", "bundler-command", "log-level", "log-format"} {
		if root.PersistentFlags().Lookup(flag) == nil {
			t.Errorf("missing --%s flag", flag)
		}
	}
}

func TestVersionCommand(t *testing.T) {
	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetArgs([]string{"version"})

	if err := root.Execute(); err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if !strings.HasPrefix(out.String(), "apistack ") {
		t.Errorf("output = %q, want 'apistack <version>'", out.String())
	}
}

func TestRootCommand_UnknownLogLevel(t *testing.T) {
	saved := globals
	defer func() { globals = saved }()

	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetArgs([]string{"--log-level", "verbose", "version"})

	err := root.Execute()
	if err == nil {
		t.Fatal("Execute() expected error for --log-level verbose")
	}
	if !strings.Contains(err.Error(), "unknown log level") {
		t.Errorf("error = %v, want unknown log level", err)
	}
	if out.Len() != 0 {
		t.Errorf("version ran despite bad log level: %q", out.String())
	}
}

func TestNewBundler(t *testing.T) {
	saved := globals
	defer func() { globals = saved }()

	globals.bundler = "esbuild"
	b, err := newBundler()
	if err != nil {
		t.Fatalf("newBundler() error = %v", err)
	}
	if _, ok := b.(*bundler.Esbuild); !ok {
		t.Errorf("newBundler() = %T, want *bundler.Esbuild", b)
	}

	globals.bundler = "exec"
	globals.bundlerCommand = "/usr/local/bin/esbuild"
	b, err = newBundler()
	if err != nil {
		t.Fatalf("newBundler() error = %v", err)
	}
	e, ok := b.(*bundler.Exec)
	if !ok {
		t.Fatalf("newBundler() = %T, want *bundler.Exec", b)
	}
	if e.Command != "/usr/local/bin/esbuild" {
		t.Errorf("Command = %q", e.Command)
	}

	globals.bundler = "webpack"
	if _, err := newBundler(); err == nil {
		t.Error("expected error for unknown bundler")
	}
}

func TestLoadManifest(t *testing.T) {
	saved := globals
	defer func() { globals = saved }()

	dir := t.TempDir()
	path := filepath.Join(dir, "api.yaml")
	data := []byte("handlers:\n  - name: helloWorld\n    source: src/hello.ts\n    method: get\n")
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatal(err)
	}

	globals.manifest = path
	m, err := loadManifest()
	if err != nil {
		t.Fatalf("loadManifest() error = %v", err)
	}
	if len(m.Handlers) != 1 || m.Handlers[0].Method != apistack.MethodGet {
		t.Errorf("Handlers = %+v", m.Handlers)
	}

	globals.manifest = filepath.Join(dir, "missing.yaml")
	if _, err := loadManifest(); err == nil {
		t.Error("expected error for missing manifest")
	}
}

func TestLoadManifest_Invalid(t *testing.T) {
	saved := globals
	defer func() { globals = saved }()

	path := filepath.Join(t.TempDir(), "apistack.json")
	if err := os.WriteFile(path, []byte(`{"handlers":[{"name":"bad-name","source":""}]}`), 0644); err != nil {
		t.Fatal(err)
	}
	globals.manifest = path

	_, err := loadManifest()
	var verr *manifest.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("loadManifest() error = %v, want *manifest.ValidationError", err)
	}
	if len(verr.Problems) < 2 {
		t.Errorf("Problems = %v, want name and source problems", verr.Problems)
	}
}

func TestListResources(t *testing.T) {
	tmpl := &apistack.Template{
		Resources: map[string]apistack.ResourceDef{
			"helloWorldFunction": {
				Type: "AWS::Lambda::Function",
				Properties: map[string]any{
					"Role": map[string]any{"Fn::GetAtt": []any{"helloWorldFunctionRole", "Arn"}},
				},
			},
			"helloWorldFunctionRole": {Type: "AWS::IAM::Role"},
		},
	}

	result, err := listResources(tmpl)
	if err != nil {
		t.Fatalf("listResources() error = %v", err)
	}
	if len(result.Resources) != 2 {
		t.Fatalf("Resources = %d, want 2", len(result.Resources))
	}
	if result.Resources[0].Name != "helloWorldFunctionRole" {
		t.Errorf("Resources[0] = %s, want the role before the function", result.Resources[0].Name)
	}
}
