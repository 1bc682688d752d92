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
	"fmt"
	"slices"
	"strings"

	"github.com/biovault/pkgsmith/pkg/errors"
)

// Stage is one step of a recipe run.
type Stage string

// Stages in execution order.
const (
	StageSource    Stage = "source"
	StageGenerate  Stage = "generate"
	StageBuild     Stage = "build"
	StagePackage   Stage = "package"
	StagePackageID Stage = "package-id"
	StageTest      Stage = "test"
)

// AllStages lists every stage in execution order.
var AllStages = []Stage{StageSource, StageGenerate, StageBuild, StagePackage, StagePackageID, StageTest}

// ParseStages validates names and returns them deduplicated in execution
// order. An empty list selects every stage.
func ParseStages(names []string) ([]Stage, error) {
	if len(names) == 0 {
		return slices.Clone(AllStages), nil
	}
	want := make(map[Stage]bool, len(names))
	for _, n := range names {
		s := Stage(strings.ToLower(strings.TrimSpace(n)))
		if !slices.Contains(AllStages, s) {
			return nil, errors.New(errors.ErrCodeInvalidRequest,
				fmt.Sprintf("unknown stage %q (valid: %s)", n, joinStages(AllStages)))
		}
		want[s] = true
	}
	out := make([]Stage, 0, len(want))
	for _, s := range AllStages {
		if want[s] {
			out = append(out, s)
		}
	}
	return out, nil
}

func joinStages(stages []Stage) string {
	names := make([]string, len(stages))
	for i, s := range stages {
		names[i] = string(s)
	}
	return strings.Join(names, ", ")
}
