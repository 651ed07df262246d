// Package naming produces collision-free names for temporary build artifacts.
//
// A name combines the wall clock, the process id and a process-wide sequence
// number. The clock alone is not enough: successive calls can land in the same
// tick. The sequence is shared by every Namer in the process and is never
// reset, so two calls never observe the same value.
package naming

import (
	"fmt"
	"os"
	"sync/atomic"
	"time"
)

var seq atomic.Uint64

// Namer generates artifact file names.
type Namer struct {
	prefix string
	ext    string
	now    func() time.Time
	pid    int
}

// Option configures a Namer.
type Option func(*Namer)

// WithClock replaces the wall clock.
func WithClock(now func() time.Time) Option {
	return func(n *Namer) { n.now = now }
}

// New creates a Namer producing "<prefix>-<unixnano>-<pid>-<seq><ext>".
func New(prefix, ext string, opts ...Option) *Namer {
	n := &Namer{
		prefix: prefix,
		ext:    ext,
		now:    time.Now,
		pid:    os.Getpid(),
	}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// Next returns a name not returned before by any Namer in this process.
func (n *Namer) Next() string {
	s := seq.Add(1)
	return fmt.Sprintf("%s-%d-%d-%d%s", n.prefix, n.now().UnixNano(), n.pid, s, n.ext)
}
