package main

import (
	"bytes"
	"strings"
	"testing"

	apistack "github.com/lex00/apistack-go"
	"github.com/lex00/apistack-go/internal/differ"
)

func TestNewDiffCmd(t *testing.T) {
	cmd := newDiffCmd()

	if cmd.Use != "diff <previous>" {
		t.Errorf("Use = %q, want 'diff <previous>'", cmd.Use)
	}

	if cmd.Short == "" {
		t.Error("Short description should not be empty")
	}

	if cmd.Flags().Lookup("format") == nil {
		t.Error("missing --format flag")
	}

	if cmd.Flags().Lookup("ignore-order") == nil {
		t.Error("missing --ignore-order flag")
	}
}

func TestOutputDiffResult_Text(t *testing.T) {
	before := &apistack.Template{Resources: map[string]apistack.ResourceDef{
		"oldFunction": {Type: "AWS::Lambda::Function"},
	}}
	after := &apistack.Template{Resources: map[string]apistack.ResourceDef{
		"newFunction": {Type: "AWS::Lambda::Function"},
	}}
	result, err := differ.Compare(before, after, differ.Options{})
	if err != nil {
		t.Fatal(err)
	}

	cmd := newDiffCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)

	if err := outputDiffResult(cmd, result, "text"); err != nil {
		t.Fatalf("outputDiffResult() error = %v", err)
	}

	got := out.String()
	if !strings.Contains(got, "+ newFunction") || !strings.Contains(got, "- oldFunction") {
		t.Errorf("unexpected output:\n%s", got)
	}
	if !strings.Contains(got, "1 added, 1 removed, 0 modified") {
		t.Errorf("missing summary:\n%s", got)
	}
}

func TestOutputDiffResult_NoChanges(t *testing.T) {
	tmpl := &apistack.Template{Resources: map[string]apistack.ResourceDef{}}
	result, err := differ.Compare(tmpl, tmpl, differ.Options{})
	if err != nil {
		t.Fatal(err)
	}

	cmd := newDiffCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)

	if err := outputDiffResult(cmd, result, "text"); err != nil {
		t.Fatal(err)
	}
	if strings.TrimSpace(out.String()) != "No changes." {
		t.Errorf("output = %q, want 'No changes.'", out.String())
	}

	if err := outputDiffResult(cmd, result, "xml"); err == nil {
		t.Error("expected error for unknown format")
	}
}
