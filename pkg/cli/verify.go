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
)

func verifyCmd() *cli.Command {
	return &cli.Command{
		Name:                  "verify",
		EnableShellCompletion: true,
		Usage:                 "Check packaged recipes for layout rules and checksum drift",
		ArgsUsage:             "[RECIPE...]",
		Description: `Re-check existing package folders without rebuilding:
  - headers under include/, libraries under lib/<config>/
  - CMake package files under lib/cmake/
  - no stray static or shared libraries for the chosen linkage
  - every file still matches checksums.txt
  - package archives unpack to a tree that passes the same checks

Exits non-zero when any recipe fails.`,
		Flags: []cli.Flag{
			outputFlag(),
			formatFlag(),
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			c, err := newCreator(cmd)
			if err != nil {
				return err
			}
			reports, verifyErr := c.Verify(ctx, cmd.Args().Slice())
			if len(reports) > 0 {
				if err := writeOutput(ctx, cmd, reports); err != nil {
					return err
				}
			}
			if verifyErr != nil {
				slog.Error("verification failed", "error", verifyErr)
			}
			return verifyErr
		},
	}
}
