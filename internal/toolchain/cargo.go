package toolchain

import (
	"context"
	stdErrors "errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"time"

	"github.com/iced-rs/mdbook-iced/internal/logfields"
)

// Cargo builds with `cargo` and binds with `wasm-bindgen` found on PATH
// (or at the configured locations).
type Cargo struct {
	CargoBin   string
	BindgenBin string
	Target     string
	// Crate names the package whose .wasm output is bound.
	Crate string
	// Output receives the compiler's stdout and stderr. Defaults to os.Stderr
	// since stdout belongs to the preprocessor protocol.
	Output io.Writer
}

// NewCargo returns a toolchain using the given binaries and target triple.
func NewCargo(cargoBin, bindgenBin, target, crate string) *Cargo {
	return &Cargo{
		CargoBin:   cargoBin,
		BindgenBin: bindgenBin,
		Target:     target,
		Crate:      crate,
		Output:     os.Stderr,
	}
}

// WasmPath is the build output relative to the build directory.
func (c *Cargo) WasmPath() string {
	return filepath.Join("target", c.Target, "release", c.Crate+".wasm")
}

func (c *Cargo) Build(ctx context.Context, buildDir string) error {
	cmd, err := c.command(ctx, c.CargoBin, "build", "--release", "--target", c.Target)
	if err != nil {
		return err
	}
	cmd.Dir = buildDir
	// Flags from the user's shell would change the artifact without changing its hash.
	cmd.Env = append(os.Environ(), "RUSTFLAGS=")

	return c.run(ctx, cmd, "build", ErrBuildFailed)
}

func (c *Cargo) Bind(ctx context.Context, buildDir, outDir string) error {
	cmd, err := c.command(ctx, c.BindgenBin,
		"--target", "web",
		"--no-typescript",
		"--out-dir", outDir,
		c.WasmPath(),
	)
	if err != nil {
		return err
	}
	cmd.Dir = buildDir

	return c.run(ctx, cmd, "bind", ErrBindFailed)
}

func (c *Cargo) command(ctx context.Context, bin string, args ...string) (*exec.Cmd, error) {
	path, err := exec.LookPath(bin)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrBinaryNotFound, bin, err)
	}
	// #nosec G204 -- binaries come from local settings, arguments are fixed
	return exec.CommandContext(ctx, path, args...), nil
}

func (c *Cargo) run(ctx context.Context, cmd *exec.Cmd, stage string, failure error) error {
	out := c.Output
	if out == nil {
		out = os.Stderr
	}
	cmd.Stdout = out
	cmd.Stderr = out

	start := time.Now()
	slog.Debug("Running toolchain", logfields.Stage(stage), slog.String("cmd", cmd.String()), logfields.Path(cmd.Dir))

	err := cmd.Run()
	slog.Debug("Toolchain finished",
		logfields.Stage(stage),
		logfields.DurationMS(float64(time.Since(start).Milliseconds())))

	if err == nil {
		return nil
	}
	if ctxErr := ctx.Err(); stdErrors.Is(ctxErr, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %w: %w", failure, ErrTimeout, ctxErr)
	}
	return fmt.Errorf("%w: %w", failure, err)
}
