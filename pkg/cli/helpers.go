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
	"log/slog"

	"github.com/urfave/cli/v3"

	"github.com/biovault/pkgsmith/pkg/archive"
	"github.com/biovault/pkgsmith/pkg/config"
	"github.com/biovault/pkgsmith/pkg/lifecycle"
	"github.com/biovault/pkgsmith/pkg/serializer"
)

// loadConfig assembles the Config from defaults, the config file, the
// environment and flags, each overriding the previous.
func loadConfig(cmd *cli.Command) (*config.Config, error) {
	path := cmd.String("config")
	optional := path == ""
	if optional {
		path = config.DefaultPath()
	}
	file, err := config.LoadFile(path, optional)
	if err != nil {
		return nil, err
	}

	opts := []config.Option{config.WithVersion(version)}
	opts = append(opts, file.ConfigOptions()...)
	opts = append(opts, config.FromEnv()...)

	if cmd.IsSet("workspace") {
		opts = append(opts, config.WithWorkspace(cmd.String("workspace")))
	}
	if cmd.IsSet("jobs") {
		opts = append(opts, config.WithJobs(cmd.Int("jobs")))
	}
	if cmd.IsSet("verbose") {
		opts = append(opts, config.WithVerbose(cmd.Bool("verbose")))
	}
	if cmd.IsSet("blas-root") {
		opts = append(opts, config.WithBLASRoot(cmd.String("blas-root")))
	}
	if cmd.IsSet("archive-format") {
		f, err := archive.ParseFormat(cmd.String("archive-format"))
		if err != nil {
			return nil, err
		}
		opts = append(opts, config.WithArchiveFormat(string(f)))
	}
	if cmd.IsSet("skip-verify") {
		opts = append(opts, config.WithVerifyLayout(!cmd.Bool("skip-verify")))
	}

	settingOverrides, err := config.ParseSettingOverrides(cmd.StringSlice("setting"))
	if err != nil {
		return nil, err
	}
	if len(settingOverrides) > 0 {
		opts = append(opts, config.WithSettingOverrides(settingOverrides))
	}
	optionOverrides, err := config.ParseOptionOverrides(cmd.StringSlice("set"))
	if err != nil {
		return nil, err
	}
	if len(optionOverrides) > 0 {
		opts = append(opts, config.WithOptionOverrides(optionOverrides))
	}

	cfg := config.NewConfig(opts...)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func newCreator(cmd *cli.Command) (*lifecycle.Creator, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	return lifecycle.New(cfg)
}

func parseOutputFormat(cmd *cli.Command) (serializer.Format, error) {
	return serializer.ParseFormat(cmd.String("format"))
}

// writeOutput serializes v to --output (stdout when unset) in --format.
func writeOutput(ctx context.Context, cmd *cli.Command, v any) error {
	outFormat, err := parseOutputFormat(cmd)
	if err != nil {
		return err
	}
	ser := serializer.NewFileWriterOrStdout(outFormat, cmd.String("output"))
	defer func() {
		if err := ser.Close(); err != nil {
			slog.Warn("failed to close serializer", "error", err)
		}
	}()
	return ser.Serialize(ctx, v)
}

// writeMetrics writes the Creator metrics when --metrics-file is set.
func writeMetrics(cmd *cli.Command, c *lifecycle.Creator) {
	path := cmd.String("metrics-file")
	if path == "" {
		return
	}
	if err := c.Metrics().WriteTextfile(path); err != nil {
		slog.Warn("failed to write metrics", "path", path, "error", err)
		return
	}
	slog.Debug("metrics written", "path", path)
}
