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

// Package archive packs a package folder into a compressed tarball and
// unpacks it again.
//
// Archives are reproducible: entries are written in lexical order with
// zeroed timestamps and ownership, so the same folder always yields the same
// bytes and digest. Supported formats are tar.gz, tar.zst, tar.lz4 and
// tar.xz.
package archive
