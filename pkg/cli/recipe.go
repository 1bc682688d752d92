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
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/biovault/pkgsmith/pkg/recipe"
)

// recipeEntry is one row of `pkgsmith list`.
type recipeEntry struct {
	Name     string   `json:"name" yaml:"name"`
	Version  string   `json:"version" yaml:"version"`
	License  string   `json:"license" yaml:"license"`
	Upstream string   `json:"upstream" yaml:"upstream"`
	Configs  []string `json:"configs" yaml:"configs"`
}

type recipeList []recipeEntry

func (l recipeList) TableHeader() []string {
	return []string{"NAME", "VERSION", "LICENSE", "CONFIGS", "UPSTREAM"}
}

func (l recipeList) TableRows() [][]string {
	rows := make([][]string, 0, len(l))
	for _, e := range l {
		rows = append(rows, []string{e.Name, e.Version, e.License, strings.Join(e.Configs, ","), e.Upstream})
	}
	return rows
}

func listRecipes(reg *recipe.Registry) (recipeList, error) {
	recipes, err := reg.Select(nil)
	if err != nil {
		return nil, err
	}
	out := make(recipeList, 0, len(recipes))
	for _, rcp := range recipes {
		d := rcp.Descriptor()
		e := recipeEntry{Name: d.Name, Version: d.Version, License: d.License, Upstream: d.Upstream}
		for _, c := range d.Configs {
			e.Configs = append(e.Configs, string(c))
		}
		out = append(out, e)
	}
	return out, nil
}

func listCmd() *cli.Command {
	return &cli.Command{
		Name:                  "list",
		EnableShellCompletion: true,
		Usage:                 "List the registered recipes",
		Flags: []cli.Flag{
			outputFlag(),
			formatFlag(),
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			c, err := newCreator(cmd)
			if err != nil {
				return err
			}
			list, err := listRecipes(c.Registry())
			if err != nil {
				return err
			}
			return writeOutput(ctx, cmd, list)
		},
	}
}

func infoCmd() *cli.Command {
	return &cli.Command{
		Name:                  "info",
		EnableShellCompletion: true,
		Usage:                 "Show recipe metadata, effective settings, options and package id",
		ArgsUsage:             "[RECIPE...]",
		Description: `Resolve each recipe against the current host, setting overrides (-s) and
option overrides (--set) without running anything. The package id shown is
the one the package-id stage would compute.

# Examples

  pkgsmith info lz4
  pkgsmith -s os=Windows --set faiss:shared=False info faiss --format json`,
		Flags: []cli.Flag{
			outputFlag(),
			formatFlag(),
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			c, err := newCreator(cmd)
			if err != nil {
				return err
			}
			desc, err := c.Describe(cmd.Args().Slice())
			if err != nil {
				return err
			}
			return writeOutput(ctx, cmd, desc)
		},
	}
}
