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

// Package builtin registers every recipe shipped with pkgsmith. Import it
// for its side effects.
package builtin

import (
	_ "github.com/biovault/pkgsmith/pkg/recipe/faiss"
	_ "github.com/biovault/pkgsmith/pkg/recipe/lz4"
	_ "github.com/biovault/pkgsmith/pkg/recipe/onetbb"
)
