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

package cli

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/biovault/pkgsmith/pkg/archive"
	"github.com/biovault/pkgsmith/pkg/lifecycle"
)

type stageSpec struct {
	stage lifecycle.Stage
	usage string
}

var (
	stageSource    = stageSpec{lifecycle.StageSource, "Clone the pinned upstream release and apply source patches"}
	stageGenerate  = stageSpec{lifecycle.StageGenerate, "Write the CMake toolchain and dependency files"}
	stageBuild     = stageSpec{lifecycle.StageBuild, "Configure, build and install every build type"}
	stagePackage   = stageSpec{lifecycle.StagePackage, "Assemble and verify the package folder"}
	stagePackageID = stageSpec{lifecycle.StagePackageID, "Compute the package id and refresh pkginfo.yaml"}
	stageTest      = stageSpec{lifecycle.StageTest, "Build and run the consumer smoke test against the package"}
)

func archiveFormatFlag() cli.Flag {
	return &cli.StringFlag{
		Name:  "archive-format",
		Usage: fmt.Sprintf("Archive format (supported values: %s)", strings.Join(formatNames(), ", ")),
	}
}

func skipVerifyFlag() cli.Flag {
	return &cli.BoolFlag{
		Name:  "skip-verify",
		Usage: "Do not check the package layout after packaging",
	}
}

func formatNames() []string {
	out := make([]string, 0, len(archive.Formats))
	for _, f := range archive.Formats {
		out = append(out, string(f))
	}
	return out
}

func stageCmd(s stageSpec) *cli.Command {
	return &cli.Command{
		Name:                  string(s.stage),
		EnableShellCompletion: true,
		Usage:                 s.usage,
		ArgsUsage:             "[RECIPE...]",
		Flags: []cli.Flag{
			archiveFormatFlag(),
			skipVerifyFlag(),
			outputFlag(),
			formatFlag(),
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			return runStages(ctx, cmd, []lifecycle.Stage{s.stage})
		},
	}
}

func createCmd() *cli.Command {
	return &cli.Command{
		Name:                  "create",
		EnableShellCompletion: true,
		Usage:                 "Run the full recipe lifecycle",
		ArgsUsage:             "[RECIPE...]",
		Description: `Run source, generate, build, package, package-id and test for each recipe.
Recipes run concurrently up to --jobs; a failing recipe does not stop the
others, but the command exits non-zero.

# Examples

Build every recipe:
  pkgsmith create

Build oneTBB as Debug only, then archive it:
  pkgsmith -s build_type=Debug create onetbb --archive-format tar.zst

Faiss on Windows needs OpenBLAS:
  pkgsmith --blas-root C:\openblas create faiss

Stop after packaging:
  pkgsmith create --stages source,generate,build,package lz4`,
		Flags: []cli.Flag{
			&cli.StringSliceFlag{
				Name:  "stages",
				Usage: "Run only these stages, in lifecycle order (default: all)",
			},
			archiveFormatFlag(),
			skipVerifyFlag(),
			outputFlag(),
			formatFlag(),
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			stages, err := lifecycle.ParseStages(cmd.StringSlice("stages"))
			if err != nil {
				return err
			}
			return runStages(ctx, cmd, stages)
		},
	}
}

func runStages(ctx context.Context, cmd *cli.Command, stages []lifecycle.Stage) error {
	c, err := newCreator(cmd)
	if err != nil {
		return err
	}

	out, runErr := c.Run(ctx, cmd.Args().Slice(), stages)
	defer writeMetrics(cmd, c)
	if out == nil {
		return runErr
	}

	slog.Info("run finished",
		"run_id", out.RunID,
		"recipes", len(out.Results),
		"succeeded", out.SuccessCount(),
		"files", out.TotalFiles,
		"size_bytes", out.TotalSize,
		"duration_sec", out.TotalDuration.Seconds())

	if err := writeOutput(ctx, cmd, out); err != nil {
		return err
	}
	return runErr
}
