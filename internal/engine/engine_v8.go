//go:build v8

package engine

import (
	"jsrt/internal/core"
	"jsrt/internal/engine/v8engine"
)

// New constructs the V8 engine backend.
func New(memoryLimitMB int) (core.JSRuntime, error) {
	return v8engine.New(memoryLimitMB)
}

// Name identifies which backend this build was compiled with.
const Name = "v8"
