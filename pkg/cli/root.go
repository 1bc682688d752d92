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
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/urfave/cli/v3"

	"github.com/biovault/pkgsmith/pkg/config"
	"github.com/biovault/pkgsmith/pkg/errors"
	"github.com/biovault/pkgsmith/pkg/logging"
	"github.com/biovault/pkgsmith/pkg/serializer"
)

const (
	name           = "pkgsmith"
	versionDefault = "dev"
)

var (
	// overridden during build with ldflags
	version = versionDefault
	commit  = "unknown"
	date    = "unknown"
)

func outputFlag() cli.Flag {
	return &cli.StringFlag{
		Name:    "output",
		Aliases: []string{"o"},
		Usage:   "Output file path (default: stdout)",
	}
}

func formatFlag() cli.Flag {
	return &cli.StringFlag{
		Name:    "format",
		Aliases: []string{"t"},
		Value:   string(serializer.FormatYAML),
		Usage:   fmt.Sprintf("Output format (supported values: %s)", strings.Join(serializer.SupportedFormats(), ", ")),
	}
}

// Execute runs the root command with os.Args and exits non-zero on failure.
func Execute() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle SIGINT/SIGTERM for graceful shutdown
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-sigCh
		fmt.Fprintln(os.Stderr, "\nReceived interrupt signal, shutting down gracefully...")
		cancel()
	}()

	if err := newRootCmd().Run(ctx, os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(exitCode(err))
	}
}

func exitCode(err error) int {
	if errors.HasCode(err, errors.ErrCodeTimeout) {
		return 2
	}
	return 1
}

func newRootCmd() *cli.Command {
	return &cli.Command{
		Name:                  name,
		Usage:                 "Build and package C/C++ libraries from recipes",
		Version:               fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date),
		EnableShellCompletion: true,
		ShellComplete:         commandLister,
		Description: `pkgsmith fetches pinned upstream sources, builds them with CMake for every
configured build type, and assembles a package folder with headers, libraries
and CMake package configuration. Bundled recipes: lz4, onetbb, faiss.`,
		Flags:  globalFlags(),
		Before: func(ctx context.Context, cmd *cli.Command) (context.Context, error) {
			initLogger(cmd.String("log-level"))
			return ctx, nil
		},
		Commands: []*cli.Command{
			listCmd(),
			infoCmd(),
			stageCmd(stageSource),
			stageCmd(stageGenerate),
			stageCmd(stageBuild),
			stageCmd(stagePackage),
			stageCmd(stagePackageID),
			stageCmd(stageTest),
			createCmd(),
			verifyCmd(),
			archiveCmd(),
			pushCmd(),
		},
	}
}

// globalFlags are accepted by every command.
func globalFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:  "config",
			Usage: fmt.Sprintf("Config file (default: $HOME/%s)", config.DefaultFileName),
		},
		&cli.StringFlag{
			Name:    "log-level",
			Value:   "info",
			Usage:   "Log level (debug, info, warn, error)",
			Sources: cli.EnvVars(logging.EnvLogLevel),
		},
		&cli.StringFlag{
			Name:  "workspace",
			Usage: fmt.Sprintf("Workspace root holding per-recipe source, build and package folders (env: %s)", config.EnvWorkspace),
		},
		&cli.IntFlag{
			Name:    "jobs",
			Aliases: []string{"j"},
			Usage:   "Number of recipes processed concurrently",
		},
		&cli.BoolFlag{
			Name:  "verbose",
			Usage: "Pass --verbose to CMake builds",
		},
		&cli.StringSliceFlag{
			Name:  "set",
			Usage: "Override a recipe option (format: recipe:option=value, e.g., --set faiss:shared=False)",
		},
		&cli.StringSliceFlag{
			Name:    "setting",
			Aliases: []string{"s"},
			Usage:   "Override a setting (format: key=value, e.g., -s build_type=Debug)",
		},
		&cli.StringFlag{
			Name:  "blas-root",
			Usage: fmt.Sprintf("OpenBLAS install prefix used by Faiss on Windows (env: %s)", config.EnvBLASRoot),
		},
		&cli.StringFlag{
			Name:  "metrics-file",
			Usage: "Write Prometheus textfile collector metrics to this path after a run",
		},
	}
}

// initLogger configures slog once flags are parsed so --log-level takes
// effect before any command executes.
func initLogger(level string) {
	logging.SetDefaultStructuredLoggerWithLevel(name, version, level)
	slog.Debug("starting",
		"name", name,
		"version", version,
		"commit", commit,
		"date", date,
		"logLevel", level)
}

// commandLister prints visible subcommands for shell completion.
func commandLister(_ context.Context, cmd *cli.Command) {
	if cmd == nil {
		return
	}
	w := cmd.Root().Writer
	if w == nil {
		w = os.Stdout
	}
	for _, c := range cmd.Commands {
		if c.Hidden {
			continue
		}
		fmt.Fprintln(w, c.Name)
	}
}
