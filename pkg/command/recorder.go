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

package command

import (
	"context"
	"slices"
	"sync"
)

// Handler simulates a command's effect for a Recorder and returns its stdout.
type Handler func(c Cmd) (string, error)

type hook struct {
	match func(Cmd) bool
	do    Handler
}

// Recorder is a Runner that records every command instead of executing it.
// Registered handlers let tests simulate side effects such as files written
// by an install step. It is safe for concurrent use.
type Recorder struct {
	mu    sync.Mutex
	calls []Cmd
	hooks []hook
}

// NewRecorder returns an empty Recorder.
func NewRecorder() *Recorder {
	return &Recorder{}
}

// On registers a handler for commands accepted by match. Handlers are tried
// in registration order; the first match wins.
func (r *Recorder) On(match func(Cmd) bool, do Handler) *Recorder {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.hooks = append(r.hooks, hook{match: match, do: do})
	return r
}

// Run implements Runner.
func (r *Recorder) Run(ctx context.Context, c Cmd) error {
	_, err := r.Output(ctx, c)
	return err
}

// Output implements Runner.
func (r *Recorder) Output(ctx context.Context, c Cmd) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	r.mu.Lock()
	r.calls = append(r.calls, c)
	hooks := slices.Clone(r.hooks)
	r.mu.Unlock()

	for _, h := range hooks {
		if h.match(c) {
			return h.do(c)
		}
	}
	return "", nil
}

// Calls returns a copy of the recorded commands.
func (r *Recorder) Calls() []Cmd {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Clone(r.calls)
}

// Find returns the recorded commands accepted by match.
func (r *Recorder) Find(match func(Cmd) bool) []Cmd {
	var out []Cmd
	for _, c := range r.Calls() {
		if match(c) {
			out = append(out, c)
		}
	}
	return out
}

// Match accepts commands named name whose arguments contain every arg, in
// any position.
func Match(name string, args ...string) func(Cmd) bool {
	return func(c Cmd) bool {
		if c.Name != name {
			return false
		}
		for _, a := range args {
			if !slices.Contains(c.Args, a) {
				return false
			}
		}
		return true
	}
}
