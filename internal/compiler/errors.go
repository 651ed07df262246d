package compiler

import (
	"fmt"

	"github.com/lex00/apistack-go/internal/bundler"
)

// CompileIOError reports that the bundler could not be invoked or that the
// artifact could not be read.
type CompileIOError struct {
	Entry string
	Err   error
}

func (e *CompileIOError) Error() string {
	return fmt.Sprintf("compiling %s: %v", e.Entry, e.Err)
}

func (e *CompileIOError) Unwrap() error {
	return e.Err
}

// CompileDiagnosticsError reports that the bundler ran but the source has
// errors.
type CompileDiagnosticsError struct {
	Entry       string
	Diagnostics *bundler.Diagnostics
}

func (e *CompileDiagnosticsError) Error() string {
	n := 0
	if e.Diagnostics != nil {
		n = len(e.Diagnostics.Errors)
	}
	return fmt.Sprintf("compiling %s: %d error(s)\n%s", e.Entry, n, e.Diagnostics.String())
}
