package toolchain

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// writeScript installs an executable shell script standing in for a toolchain binary.
func writeScript(t *testing.T, dir, name, body string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\n"+body), 0o700))
	return path
}

func newFakeCargo(t *testing.T, cargoBody, bindgenBody string) (*Cargo, *bytes.Buffer, string) {
	t.Helper()
	bin := t.TempDir()
	logFile := filepath.Join(bin, "calls.log")
	t.Setenv("ICED_TOOLCHAIN_LOG", logFile)

	out := &bytes.Buffer{}
	c := NewCargo(
		writeScript(t, bin, "cargo", cargoBody),
		writeScript(t, bin, "wasm-bindgen", bindgenBody),
		"wasm32-unknown-unknown",
		"iceberg",
	)
	c.Output = out
	return c, out, logFile
}

func readLog(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return string(data)
}

func TestCargo_WasmPath(t *testing.T) {
	c := NewCargo("cargo", "wasm-bindgen", "wasm32-unknown-unknown", "iceberg")
	require.Equal(t, filepath.Join("target", "wasm32-unknown-unknown", "release", "iceberg.wasm"), c.WasmPath())
}

func TestCargo_Build(t *testing.T) {
	t.Setenv("RUSTFLAGS", "-C target-cpu=native")
	c, out, logFile := newFakeCargo(t,
		`echo "cargo $* rustflags=[${RUSTFLAGS-unset}] dir=$(pwd)" >> "$ICED_TOOLCHAIN_LOG"
echo "   Compiling iceberg v0.1.0"
`, "exit 0\n")
	buildDir := t.TempDir()

	require.NoError(t, c.Build(context.Background(), buildDir))

	calls := readLog(t, logFile)
	require.Contains(t, calls, "cargo build --release --target wasm32-unknown-unknown")
	require.Contains(t, calls, "rustflags=[]")
	require.Contains(t, calls, "dir="+buildDir)
	require.Contains(t, out.String(), "Compiling iceberg")
}

func TestCargo_BuildFailure(t *testing.T) {
	c, _, _ := newFakeCargo(t, "echo 'error[E0425]' >&2\nexit 101\n", "exit 0\n")

	err := c.Build(context.Background(), t.TempDir())
	require.ErrorIs(t, err, ErrBuildFailed)
	require.NotErrorIs(t, err, ErrTimeout)
}

func TestCargo_Bind(t *testing.T) {
	c, _, logFile := newFakeCargo(t, "exit 0\n",
		`echo "bindgen $*" >> "$ICED_TOOLCHAIN_LOG"
mkdir -p "$5"
echo "export default function init() {}" > "$5/iceberg.js"
`)
	buildDir := t.TempDir()
	outDir := filepath.Join(t.TempDir(), "staging")

	require.NoError(t, c.Bind(context.Background(), buildDir, outDir))

	calls := readLog(t, logFile)
	require.Contains(t, calls, "bindgen --target web --no-typescript --out-dir "+outDir+" "+c.WasmPath())
	require.FileExists(t, filepath.Join(outDir, "iceberg.js"))
}

func TestCargo_BindFailure(t *testing.T) {
	c, _, _ := newFakeCargo(t, "exit 0\n", "exit 1\n")

	err := c.Bind(context.Background(), t.TempDir(), t.TempDir())
	require.ErrorIs(t, err, ErrBindFailed)
}

func TestCargo_MissingBinary(t *testing.T) {
	c := NewCargo(filepath.Join(t.TempDir(), "no-such-cargo"), "wasm-bindgen", "wasm32-unknown-unknown", "iceberg")

	err := c.Build(context.Background(), t.TempDir())
	require.ErrorIs(t, err, ErrBinaryNotFound)
}

func TestCargo_Timeout(t *testing.T) {
	c, _, _ := newFakeCargo(t, "exec sleep 10\n", "exit 0\n")

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	start := time.Now()
	err := c.Build(ctx, t.TempDir())
	require.ErrorIs(t, err, ErrBuildFailed)
	require.ErrorIs(t, err, ErrTimeout)
	require.Less(t, time.Since(start), 5*time.Second)
	require.False(t, strings.Contains(err.Error(), "not found"))
}
