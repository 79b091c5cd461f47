// Package toolchain runs the external compiler and binding generator that turn
// a Rust crate into a browser-loadable WebAssembly module.
package toolchain

import (
	"context"
	stdErrors "errors"
)

var (
	ErrBinaryNotFound = stdErrors.New("toolchain binary not found")
	ErrBuildFailed    = stdErrors.New("crate build failed")
	ErrBindFailed     = stdErrors.New("wasm binding generation failed")
	ErrTimeout        = stdErrors.New("toolchain timed out")
)

// Toolchain abstracts the two external steps of a compilation so tests and
// alternative backends can stand in for cargo and wasm-bindgen.
//
// Build compiles the crate rooted at buildDir. Bind writes the JavaScript
// bindings and the processed module for the last build into outDir.
type Toolchain interface {
	Build(ctx context.Context, buildDir string) error
	Bind(ctx context.Context, buildDir, outDir string) error
}
