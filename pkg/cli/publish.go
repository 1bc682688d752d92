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

	"github.com/biovault/pkgsmith/pkg/errors"
	"github.com/biovault/pkgsmith/pkg/lifecycle"
	"github.com/biovault/pkgsmith/pkg/oci"
)

func archiveCmd() *cli.Command {
	return &cli.Command{
		Name:                  "archive",
		EnableShellCompletion: true,
		Usage:                 "Compress package folders into reproducible tarballs",
		ArgsUsage:             "[RECIPE...]",
		Description: `Write <name>-<version>-<package id>.<ext> next to each package folder.
Entries are sorted with fixed timestamps, so equal packages give equal archives.`,
		Flags: []cli.Flag{
			archiveFormatFlag(),
			outputFlag(),
			formatFlag(),
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			c, err := newCreator(cmd)
			if err != nil {
				return err
			}
			infos, err := c.ArchiveAll(ctx, cmd.Args().Slice(), cmd.String("archive-format"))
			if err != nil {
				return err
			}
			return writeOutput(ctx, cmd, infos)
		},
	}
}

func pushCmd() *cli.Command {
	return &cli.Command{
		Name:                  "push",
		EnableShellCompletion: true,
		Usage:                 "Push packaged recipes to an OCI registry",
		ArgsUsage:             "[RECIPE...]",
		Description: `Archive each package (reusing an existing archive) and push it as an OCI
artifact to <registry>/<namespace>/<recipe>. The tag defaults to
<version>-<package id prefix>. Credentials come from the Docker config.

# Examples

  pkgsmith push --registry oci://ghcr.io/biovault
  pkgsmith push --registry localhost:5000/pkgs --plain-http --tag latest lz4`,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "registry",
				Aliases:  []string{"r"},
				Required: true,
				Usage:    "Registry and namespace (e.g., oci://ghcr.io/biovault)",
			},
			&cli.StringFlag{
				Name:  "tag",
				Usage: "Tag for every pushed package (default: <version>-<package id prefix>)",
			},
			&cli.BoolFlag{
				Name:  "plain-http",
				Usage: "Use HTTP instead of HTTPS for the registry (for local development)",
			},
			&cli.BoolFlag{
				Name:  "insecure-tls",
				Usage: "Skip TLS certificate verification for the registry",
			},
			archiveFormatFlag(),
			outputFlag(),
			formatFlag(),
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			ref, err := oci.ParseReference(cmd.String("registry"))
			if err != nil {
				return err
			}
			if ref.Tag != "" && cmd.IsSet("tag") {
				return errors.New(errors.ErrCodeInvalidRequest, "--tag conflicts with the tag in --registry")
			}
			if cmd.IsSet("tag") {
				ref = ref.WithTag(cmd.String("tag"))
			}

			c, err := newCreator(cmd)
			if err != nil {
				return err
			}
			results, err := c.Publish(ctx, cmd.Args().Slice(), lifecycle.PublishOptions{
				Reference:   ref,
				Format:      cmd.String("archive-format"),
				PlainHTTP:   cmd.Bool("plain-http"),
				InsecureTLS: cmd.Bool("insecure-tls"),
			})
			if len(results) > 0 {
				if werr := writeOutput(ctx, cmd, results); werr != nil {
					return werr
				}
			}
			if err != nil {
				slog.Error("push failed", "error", err)
			}
			return err
		},
	}
}
