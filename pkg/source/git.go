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

// Package source acquires upstream sources: a git clone checked out at a
// release tag, followed by exact-text patches of known upstream files.
package source

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"golang.org/x/time/rate"

	"github.com/biovault/pkgsmith/pkg/command"
	"github.com/biovault/pkgsmith/pkg/defaults"
	"github.com/biovault/pkgsmith/pkg/errors"
)

// cloneLimiter is shared by every Git in the process so concurrent recipes
// do not open a burst of connections to the same host.
var cloneLimiter = rate.NewLimiter(rate.Every(defaults.GitCloneInterval), defaults.GitCloneBurst)

// Git drives the git CLI through a command.Runner.
type Git struct {
	runner  command.Runner
	limiter *rate.Limiter
}

// GitOption configures a Git.
type GitOption func(*Git)

// WithCloneLimiter replaces the process-wide clone limiter.
func WithCloneLimiter(l *rate.Limiter) GitOption {
	return func(g *Git) {
		g.limiter = l
	}
}

// NewGit returns a Git using runner.
func NewGit(runner command.Runner, opts ...GitOption) *Git {
	g := &Git{runner: runner, limiter: cloneLimiter}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Clone clones url into dir. The parent of dir must exist.
func (g *Git) Clone(ctx context.Context, url, dir string) error {
	if g.limiter != nil {
		if err := g.limiter.Wait(ctx); err != nil {
			return errors.WrapWithContext(errors.ErrCodeTimeout, "gave up waiting to clone", err,
				map[string]any{"url": url})
		}
	}

	err := g.runner.Run(ctx, command.Cmd{
		Name:    "git",
		Args:    []string{"clone", url, dir},
		Timeout: defaults.GitFetchTimeout,
	})
	if err != nil {
		return errors.WrapWithContext(errors.ErrCodeFetchFailed, "git clone failed", err,
			map[string]any{"url": url, "dir": dir})
	}
	return nil
}

// Checkout checks out ref in the repository at dir.
func (g *Git) Checkout(ctx context.Context, dir, ref string) error {
	err := g.runner.Run(ctx, command.Cmd{
		Name:    "git",
		Args:    []string{"-C", dir, "checkout", ref},
		Timeout: defaults.GitFetchTimeout,
	})
	if err != nil {
		return errors.WrapWithContext(errors.ErrCodeFetchFailed, "git checkout failed", err,
			map[string]any{"ref": ref, "dir": dir})
	}
	return nil
}

// Fetch produces a fresh checkout of url at tags/<tag> in dir. Any previous
// checkout is removed first so patches are always applied to pristine text.
// There are no retries; a network failure aborts.
func Fetch(ctx context.Context, g *Git, url, tag, dir string) error {
	if err := os.RemoveAll(dir); err != nil {
		return errors.Wrap(errors.ErrCodeInternal, "failed to remove previous checkout", err)
	}
	if err := os.MkdirAll(filepath.Dir(dir), defaults.DirPermissions); err != nil {
		return errors.Wrap(errors.ErrCodeInternal, "failed to create source directory", err)
	}

	slog.Info("fetching source", slog.String("url", url), slog.String("tag", tag))
	if err := g.Clone(ctx, url, dir); err != nil {
		return err
	}
	return g.Checkout(ctx, dir, fmt.Sprintf("tags/%s", tag))
}
