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

// Package header provides the kind and version header carried by pkgsmith
// documents (pkginfo.yaml, run results).
//
//	kind: PackageInfo
//	apiVersion: pkgsmith.dev/v1
//	metadata:
//	  version: 0.3.0
//
// Readers call Check before trusting the rest of a document.
package header

import (
	"fmt"
	"time"

	"github.com/biovault/pkgsmith/pkg/errors"
)

// APIVersion is the current document API version.
const APIVersion = "pkgsmith.dev/v1"

// Kind names the document type.
type Kind string

const (
	KindPackageInfo Kind = "PackageInfo"
	KindRunResult   Kind = "RunResult"
)

func (k Kind) String() string {
	return string(k)
}

func (k Kind) IsValid() bool {
	switch k {
	case KindPackageInfo, KindRunResult:
		return true
	default:
		return false
	}
}

type Option func(*Header)

func WithMetadata(key, value string) Option {
	return func(h *Header) {
		if h.Metadata == nil {
			h.Metadata = make(map[string]string)
		}
		h.Metadata[key] = value
	}
}

func WithKind(kind Kind) Option {
	return func(h *Header) {
		h.Kind = kind
	}
}

func WithAPIVersion(version string) Option {
	return func(h *Header) {
		h.APIVersion = version
	}
}

// New returns a Header at the current APIVersion.
func New(opts ...Option) *Header {
	h := &Header{APIVersion: APIVersion}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

type Header struct {
	// Kind is the document type.
	Kind Kind `json:"kind,omitempty" yaml:"kind,omitempty"`

	// APIVersion is the document schema version.
	APIVersion string `json:"apiVersion,omitempty" yaml:"apiVersion,omitempty"`

	// Metadata holds tool version and, for run results, a timestamp.
	Metadata map[string]string `json:"metadata,omitempty" yaml:"metadata,omitempty"`
}

// Init sets kind and API version, and records the tool version when given.
// It adds no timestamp, so documents stored in packages stay reproducible.
func (h *Header) Init(kind Kind, apiVersion, version string) {
	h.Kind = kind
	h.APIVersion = apiVersion
	h.Metadata = nil
	if version != "" {
		h.Metadata = map[string]string{"version": version}
	}
}

// Stamp records t as the document timestamp.
func (h *Header) Stamp(t time.Time) {
	if h.Metadata == nil {
		h.Metadata = make(map[string]string)
	}
	h.Metadata["timestamp"] = t.UTC().Format(time.RFC3339)
}

// Check reports INVALID_REQUEST unless the header names want at APIVersion.
func (h *Header) Check(want Kind) error {
	if h.Kind != want {
		return errors.New(errors.ErrCodeInvalidRequest,
			fmt.Sprintf("unexpected document kind %q, want %q", h.Kind, want))
	}
	if h.APIVersion != APIVersion {
		return errors.New(errors.ErrCodeInvalidRequest,
			fmt.Sprintf("unsupported apiVersion %q, want %q", h.APIVersion, APIVersion))
	}
	return nil
}
