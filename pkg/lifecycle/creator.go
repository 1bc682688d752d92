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

package lifecycle

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/biovault/pkgsmith/pkg/archive"
	"github.com/biovault/pkgsmith/pkg/checksum"
	"github.com/biovault/pkgsmith/pkg/command"
	"github.com/biovault/pkgsmith/pkg/config"
	"github.com/biovault/pkgsmith/pkg/defaults"
	"github.com/biovault/pkgsmith/pkg/errors"
	"github.com/biovault/pkgsmith/pkg/header"
	"github.com/biovault/pkgsmith/pkg/layout"
	"github.com/biovault/pkgsmith/pkg/metrics"
	"github.com/biovault/pkgsmith/pkg/packageid"
	"github.com/biovault/pkgsmith/pkg/recipe"
	"github.com/biovault/pkgsmith/pkg/result"
	"github.com/biovault/pkgsmith/pkg/settings"
	"github.com/biovault/pkgsmith/pkg/testpackage"
)

// Creator runs recipe stages.
//
// Thread-safety: Run may be called concurrently; recipes sharing a workspace
// must not run at the same time.
type Creator struct {
	cfg      *config.Config
	registry *recipe.Registry
	runner   command.Runner
	host     settings.Settings
	metrics  *metrics.Metrics
}

// Option configures a Creator.
type Option func(*Creator)

// WithRegistry replaces the registry built from the global recipes.
func WithRegistry(r *recipe.Registry) Option {
	return func(c *Creator) {
		if r != nil {
			c.registry = r
		}
	}
}

// WithRunner sets the runner for external tools.
func WithRunner(r command.Runner) Option {
	return func(c *Creator) {
		if r != nil {
			c.runner = r
		}
	}
}

// WithHost overrides the detected host settings.
func WithHost(s settings.Settings) Option {
	return func(c *Creator) {
		c.host = s
	}
}

// WithMetrics sets the metrics sink.
func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Creator) {
		if m != nil {
			c.metrics = m
		}
	}
}

// New creates a Creator for cfg. Without options it runs the global recipes
// with real tools on the detected host.
func New(cfg *config.Config, opts ...Option) (*Creator, error) {
	if cfg == nil {
		cfg = config.NewConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	c := &Creator{
		cfg:  cfg,
		host: settings.Detect(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.registry == nil {
		c.registry = recipe.NewFromGlobal(cfg)
	}
	if c.runner == nil {
		c.runner = &command.ExecRunner{}
	}
	if c.metrics == nil {
		c.metrics = metrics.New()
	}
	return c, nil
}

// Registry returns the recipes the Creator runs.
func (c *Creator) Registry() *recipe.Registry {
	return c.registry
}

// Metrics returns the metrics recorded by Run.
func (c *Creator) Metrics() *metrics.Metrics {
	return c.metrics
}

// Context resolves the recipe context for one recipe.
func (c *Creator) Context(rcp recipe.Recipe) (*recipe.Context, error) {
	return recipe.NewContext(c.cfg, rcp.Descriptor(), c.runner, c.host)
}

// Run executes stages for the named recipes (all when names is empty). The
// returned Output is complete even when recipes fail; the error is the
// first failure in recipe order.
func (c *Creator) Run(ctx context.Context, names []string, stages []Stage) (*result.Output, error) {
	start := time.Now()
	recipes, err := c.registry.Select(names)
	if err != nil {
		return nil, err
	}
	stages, err = ParseStages(stagesToStrings(stages))
	if err != nil {
		return nil, err
	}

	runID := uuid.NewString()
	log := slog.With(slog.String("run_id", runID))
	log.Info("starting run",
		slog.Int("recipes", len(recipes)),
		slog.String("stages", joinStages(stages)),
		slog.Int("jobs", c.cfg.Jobs()))

	results := make([]*result.Result, len(recipes))
	errs := make([]error, len(recipes))

	// Each goroutine reports its failure through errs so one recipe failing
	// does not cancel the others.
	var g errgroup.Group
	g.SetLimit(c.cfg.Jobs())
	for i, rcp := range recipes {
		g.Go(func() error {
			results[i], errs[i] = c.runRecipe(ctx, log, rcp, stages)
			return nil
		})
	}
	_ = g.Wait()

	out := &result.Output{
		RunID:     runID,
		Results:   make([]*result.Result, 0, len(recipes)),
		Workspace: c.cfg.Workspace(),
	}
	out.Init(header.KindRunResult, header.APIVersion, c.cfg.Version())
	out.Stamp(start)
	var first error
	for i, r := range results {
		out.Add(r, errs[i])
		if first == nil && errs[i] != nil {
			first = errs[i]
		}
	}
	out.TotalDuration = time.Since(start)
	c.metrics.ObserveRun(out.TotalDuration, first == nil)

	log.Info("run complete",
		slog.Int("succeeded", out.SuccessCount()),
		slog.Int("failed", len(out.Errors)),
		slog.Duration("duration", out.TotalDuration))
	return out, first
}

func (c *Creator) runRecipe(ctx context.Context, log *slog.Logger, rcp recipe.Recipe, stages []Stage) (*result.Result, error) {
	d := rcp.Descriptor()
	res := result.New(d.Name, d.Version)
	start := time.Now()
	defer func() { res.Duration = time.Since(start) }()

	rc, err := c.Context(rcp)
	if err != nil {
		res.AddError(err)
		return res, err
	}
	log = log.With(slog.String("recipe", d.Name), slog.String("version", d.Version))

	for _, stage := range stages {
		if err := ctx.Err(); err != nil {
			err = errors.Wrap(errors.ErrCodeTimeout, "run cancelled", err)
			res.AddError(err)
			return res, err
		}
		log.Info("running stage", slog.String("stage", string(stage)))
		stageStart := time.Now()
		sr := &result.StageResult{Stage: string(stage)}
		err := c.runStage(ctx, rcp, rc, stage, res, sr)
		sr.Duration = time.Since(stageStart)
		c.metrics.ObserveStage(d.Name, string(stage), sr.Duration, err)
		if err != nil {
			sr.Error = err.Error()
			res.AddStage(sr)
			log.Error("stage failed",
				slog.String("stage", string(stage)),
				slog.String("error", err.Error()))
			return res, err
		}
		sr.Success = true
		res.AddStage(sr)
		log.Info("stage complete",
			slog.String("stage", string(stage)),
			slog.Duration("duration", sr.Duration))
	}
	res.MarkSuccess()
	return res, nil
}

func (c *Creator) runStage(ctx context.Context, rcp recipe.Recipe, rc *recipe.Context, stage Stage, res *result.Result, sr *result.StageResult) error {
	switch stage {
	case StageSource:
		return rcp.Source(ctx, rc)
	case StageGenerate:
		return rcp.Generate(ctx, rc)
	case StageBuild:
		return rcp.Build(ctx, rc)
	case StagePackage:
		return c.pack(ctx, rcp, rc, res)
	case StagePackageID:
		info := Identity(rcp, rc)
		res.PackageID = info.Fingerprint()
		if len(info.Removed) > 0 {
			sr.Note = "removed " + strings.Join(info.Removed, ", ")
		}
		return c.refreshRecord(rcp, rc, info)
	case StageTest:
		return c.test(ctx, rcp, rc, sr)
	}
	return errors.New(errors.ErrCodeInvalidRequest, fmt.Sprintf("unknown stage %q", stage))
}

// Identity returns the normalized package identity of rcp.
func Identity(rcp recipe.Recipe, rc *recipe.Context) *packageid.Info {
	info := rc.Identity(rcp.Descriptor())
	rcp.PackageID(info)
	return info
}

// pack runs the recipe's package step, then writes metadata, verifies the
// layout, writes checksums and the optional archive.
func (c *Creator) pack(ctx context.Context, rcp recipe.Recipe, rc *recipe.Context, res *result.Result) error {
	d := rcp.Descriptor()
	report, err := rcp.Package(ctx, rc)
	if err != nil {
		return err
	}
	pkgDir := report.Dir
	res.PackageDir = pkgDir

	info := Identity(rcp, rc)
	rec := newRecord(rcp, info, report)
	if err := rec.Save(pkgDir); err != nil {
		return err
	}
	res.PackageID = rec.PackageID

	if c.cfg.VerifyLayout() {
		if _, err := layout.Verify(pkgDir, rc.Settings.OS, d.Configs, rc.Options.Bool(recipe.OptionShared)); err != nil {
			return err
		}
	}

	files := append(report.AllFiles(), packageid.FileName)
	if c.cfg.IncludeChecksums() {
		if _, err := checksum.GenerateChecksums(ctx, pkgDir, files); err != nil {
			return err
		}
		files = append(files, checksum.ChecksumFileName)
	}
	for _, f := range files {
		st, err := os.Lstat(filepath.Join(pkgDir, filepath.FromSlash(f)))
		if err != nil {
			return errors.Wrap(errors.ErrCodeInternal, "packaged file vanished", err)
		}
		res.AddFile(f, st.Size())
	}
	c.metrics.AddArtifacts(d.Name, len(report.AllFiles()))

	if c.cfg.ArchiveFormat() != "" {
		info, err := c.Archive(ctx, rcp, rc, c.cfg.ArchiveFormat())
		if err != nil {
			return err
		}
		res.Archive = info.Path
	}
	return nil
}

// refreshRecord rewrites the identity of an existing package record, so a
// package-id run after a settings change is reflected in pkginfo.yaml.
func (c *Creator) refreshRecord(rcp recipe.Recipe, rc *recipe.Context, info *packageid.Info) error {
	pkgDir := rc.Layout.PackageDir()
	rec, err := packageid.Load(pkgDir)
	if err != nil {
		if errors.HasCode(err, errors.ErrCodeNotFound) {
			slog.Debug("no package record to refresh", slog.String("recipe", rcp.Descriptor().Name))
			return nil
		}
		return err
	}
	if rec.PackageID == info.Fingerprint() {
		return nil
	}
	rec.Info = info
	rec.PackageID = info.Fingerprint()
	return rec.Save(pkgDir)
}

func (c *Creator) test(ctx context.Context, rcp recipe.Recipe, rc *recipe.Context, sr *result.StageResult) error {
	pkgDir := rc.Layout.PackageDir()
	if !layout.Exists(filepath.Join(pkgDir, packageid.FileName)) {
		return errors.NewWithContext(errors.ErrCodeNotFound, "package not found, run the package stage first",
			map[string]any{"package": pkgDir})
	}
	consumer := &testpackage.Consumer{
		Runner:   c.runner,
		Settings: rc.Settings,
		Host:     rc.Host,
		Dir:      rc.Layout.TestDir(),
		Verbose:  rc.Verbose,
	}
	outcome, err := consumer.Run(ctx, rcp.TestProject(), pkgDir)
	if err != nil {
		return err
	}
	if outcome.Skipped {
		sr.Skipped = true
		sr.Note = outcome.Reason
	}
	return nil
}

// Archive packs the package folder of rcp next to it in the workspace.
func (c *Creator) Archive(ctx context.Context, rcp recipe.Recipe, rc *recipe.Context, format string) (*archive.Info, error) {
	f, err := archive.ParseFormat(format)
	if err != nil {
		return nil, err
	}
	rec, err := packageid.Load(rc.Layout.PackageDir())
	if err != nil {
		return nil, err
	}
	d := rcp.Descriptor()
	ctx, cancel := context.WithTimeout(ctx, defaults.ArchiveTimeout)
	defer cancel()
	dst := filepath.Join(rc.Layout.Root(), archive.FileName(d.Name, d.Version, rec.PackageID, f))
	info, err := archive.Create(ctx, rc.Layout.PackageDir(), dst, f, "")
	if err != nil {
		return nil, err
	}
	slog.Info("package archived",
		slog.String("recipe", d.Name),
		slog.String("path", info.Path),
		slog.String("size", result.FormatBytes(info.Size)))
	return info, nil
}

func newRecord(rcp recipe.Recipe, info *packageid.Info, report *recipe.PackageReport) *packageid.Record {
	rec := packageid.NewRecord(info)
	rec.Properties = rcp.PackageInfo()
	for _, cfg := range rcp.Descriptor().Configs {
		rec.Configs = append(rec.Configs, string(cfg))
	}
	rec.Libraries = libraryNames(report.AllFiles())
	return rec
}

// libraryNames derives link names from lib/<config>/ entries:
// lib/Release/liblz4.so.1.10.0 yields lz4, lib/Release/tbb12.lib yields tbb12.
func libraryNames(files []string) []string {
	var names []string
	for _, f := range files {
		parts := strings.Split(f, "/")
		if len(parts) != 3 || parts[0] != layout.LibDir || parts[1] == layout.CMakeDir {
			continue
		}
		base := path.Base(f)
		if strings.HasSuffix(base, ".pdb") {
			continue
		}
		name, _, _ := strings.Cut(base, ".")
		if strings.HasPrefix(name, "lib") && !strings.HasSuffix(base, ".lib") {
			name = strings.TrimPrefix(name, "lib")
		}
		if name != "" {
			names = append(names, name)
		}
	}
	slices.Sort(names)
	return slices.Compact(names)
}

func stagesToStrings(stages []Stage) []string {
	out := make([]string, len(stages))
	for i, s := range stages {
		out[i] = string(s)
	}
	return out
}
