//go:build !v8

// Package engine selects the build-tagged JS engine backend: QuickJS by
// default, V8 under the "v8" build tag (see engine_v8.go). Exactly one of
// these two files compiles into any given build, so New always has
// exactly one definition.
package engine

import (
	"jsrt/internal/core"
	"jsrt/internal/engine/quickjsengine"
)

// New constructs the default (QuickJS) engine backend.
func New(memoryLimitMB int) (core.JSRuntime, error) {
	return quickjsengine.New(memoryLimitMB)
}

// Name identifies which backend this build was compiled with.
const Name = "quickjs"
