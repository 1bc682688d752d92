// Copyright (c) 2025, The pkgsmith Authors.  All rights reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package command runs external build tools (git, cmake, brew, consumer
// executables) behind a small interface so lifecycle stages can be tested
// with a recording fake instead of real processes.
package command

import (
	"bytes"
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"strings"
	"sync"
	"time"

	"github.com/biovault/pkgsmith/pkg/errors"
)

// stderrTail is how much captured stderr is folded into error messages.
const stderrTail = 2048

// Cmd describes one external process invocation.
type Cmd struct {
	// Name is the executable, resolved through PATH unless it contains a separator.
	Name string
	Args []string
	// Dir is the working directory; empty means the current directory.
	Dir string
	// Env entries are appended to the inherited environment.
	Env []string
	// Timeout narrows the caller's context when non-zero.
	Timeout time.Duration
}

// String renders the command line for logs.
func (c Cmd) String() string {
	if len(c.Args) == 0 {
		return c.Name
	}
	return c.Name + " " + strings.Join(c.Args, " ")
}

// Runner executes commands.
type Runner interface {
	// Run executes the command, streaming its output.
	Run(ctx context.Context, c Cmd) error
	// Output executes the command and returns its trimmed stdout.
	Output(ctx context.Context, c Cmd) (string, error)
}

// ExecRunner runs commands with os/exec.
type ExecRunner struct {
	// Stdout and Stderr receive streamed output of Run; nil means os.Stderr,
	// keeping stdout free for serialized results.
	Stdout io.Writer
	Stderr io.Writer
}

// NewExecRunner returns a runner that streams tool output to stderr.
func NewExecRunner() *ExecRunner {
	return &ExecRunner{}
}

// Run implements Runner.
func (r *ExecRunner) Run(ctx context.Context, c Cmd) error {
	stdout, stderr := r.writer(r.Stdout), r.writer(r.Stderr)
	if sameWriter(stdout, stderr) {
		// os/exec copies each stream in its own goroutine unless both are the
		// same *os.File; the MultiWriter below hides that identity.
		sw := &syncWriter{w: stdout}
		stdout, stderr = sw, sw
	}

	var tail bytes.Buffer
	_, err := r.exec(ctx, c, stdout, io.MultiWriter(stderr, &tail))
	if err != nil {
		return wrapExit(c, err, tail.String())
	}
	return nil
}

// Output implements Runner.
func (r *ExecRunner) Output(ctx context.Context, c Cmd) (string, error) {
	var stdout, stderr bytes.Buffer
	if _, err := r.exec(ctx, c, &stdout, &stderr); err != nil {
		return "", wrapExit(c, err, stderr.String())
	}
	return strings.TrimSpace(stdout.String()), nil
}

func (r *ExecRunner) writer(w io.Writer) io.Writer {
	if w == nil {
		return os.Stderr
	}
	return w
}

// syncWriter serializes writes to a writer shared by stdout and stderr.
type syncWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (s *syncWriter) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.w.Write(p)
}

// sameWriter reports whether a and b are the same writer. Writers with
// uncomparable dynamic types are treated as distinct.
func sameWriter(a, b io.Writer) (same bool) {
	defer func() {
		if recover() != nil {
			same = false
		}
	}()
	return a == b
}

func (r *ExecRunner) exec(ctx context.Context, c Cmd, stdout, stderr io.Writer) (*exec.Cmd, error) {
	if c.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.Timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(ctx, c.Name, c.Args...)
	cmd.Dir = c.Dir
	cmd.Stdout = stdout
	cmd.Stderr = stderr
	if len(c.Env) > 0 {
		cmd.Env = append(os.Environ(), c.Env...)
	}

	slog.Debug("running command", slog.String("cmd", c.String()), slog.String("dir", c.Dir))
	start := time.Now()
	err := cmd.Run()
	slog.Debug("command finished",
		slog.String("cmd", c.Name),
		slog.Duration("duration", time.Since(start)),
		slog.Bool("ok", err == nil))

	if err != nil && ctx.Err() != nil {
		return cmd, errors.Wrap(errors.ErrCodeTimeout, fmt.Sprintf("%s interrupted", c.Name), ctx.Err())
	}
	return cmd, err
}

func wrapExit(c Cmd, err error, stderr string) error {
	var se *errors.StructuredError
	if stderrors.As(err, &se) {
		return err
	}
	ctx := map[string]any{"command": c.String()}
	if c.Dir != "" {
		ctx["dir"] = c.Dir
	}
	if stderrors.Is(err, exec.ErrNotFound) {
		return errors.WrapWithContext(errors.ErrCodeToolFailed,
			fmt.Sprintf("%s not found in PATH", c.Name), err, ctx)
	}
	if s := strings.TrimSpace(stderr); s != "" {
		if len(s) > stderrTail {
			s = s[len(s)-stderrTail:]
		}
		ctx["stderr"] = s
	}
	return errors.WrapWithContext(errors.ErrCodeToolFailed,
		fmt.Sprintf("%s failed", c.Name), err, ctx)
}

// Available reports whether name resolves to an executable in PATH.
func Available(name string) bool {
	_, err := exec.LookPath(name)
	return err == nil
}
