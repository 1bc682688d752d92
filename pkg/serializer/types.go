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

// Package serializer writes command results as JSON, YAML or a table.
//
//   - JSON: machine-readable, two-space indentation
//   - YAML: the default for humans and CI logs
//   - Table: aligned columns; values implementing Tabler choose their own
//     columns, anything else is flattened into FIELD/VALUE rows
//
// Usage:
//
//	w := serializer.NewFileWriterOrStdout(serializer.FormatYAML, path)
//	defer w.Close()
//	if err := w.Serialize(ctx, out); err != nil {
//		return err
//	}
package serializer

import "context"

// Serializer writes a value in some output format.
type Serializer interface {
	Serialize(ctx context.Context, v any) error
}

// Closer is implemented by serializers holding a file handle.
type Closer interface {
	Close() error
}

// Tabler is implemented by values with a natural tabular form.
type Tabler interface {
	TableHeader() []string
	TableRows() [][]string
}
