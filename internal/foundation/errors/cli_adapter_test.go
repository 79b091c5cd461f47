package errors

import (
	"bytes"
	"fmt"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCLIErrorAdapter_ExitCodeFor(t *testing.T) {
	adapter := NewCLIErrorAdapter(false, slog.Default())

	tests := []struct {
		name     string
		err      error
		expected int
	}{
		{name: "nil error", err: nil, expected: 0},
		{name: "validation error", err: ValidationError("invalid input").Build(), expected: 2},
		{name: "config error", err: ConfigError("no reference").Build(), expected: 7},
		{name: "compile error", err: CompileError("cargo failed").Build(), expected: 8},
		{name: "filesystem error", err: FileSystemError("mkdir failed").Build(), expected: 11},
		{name: "document error", err: DocumentError("bad json").Build(), expected: 11},
		{name: "internal error", err: InternalError("boom").Build(), expected: 10},
		{name: "wrapped classified error", err: fmt.Errorf("run: %w", ConfigError("x").Build()), expected: 7},
		{name: "unclassified error", err: &customError{msg: "unknown error"}, expected: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.expected, adapter.ExitCodeFor(tt.err))
		})
	}
}

func TestCLIErrorAdapter_FormatError(t *testing.T) {
	adapter := NewCLIErrorAdapter(false, slog.Default())

	require.Empty(t, adapter.FormatError(nil))
	require.Equal(t, "Error: unknown error", adapter.FormatError(&customError{msg: "unknown error"}))
	require.Equal(t, "Internal error occurred (use -v for details)",
		adapter.FormatError(InternalError("internal issue").Build()))
	require.Equal(t, "Error: missing reference",
		adapter.FormatError(ConfigError("missing reference").Build()))

	cause := fmt.Errorf("permission denied")
	require.Equal(t, "Error: create workspace: permission denied",
		adapter.FormatError(WrapError(cause, CategoryFileSystem, "create workspace").Build()))

	verbose := NewCLIErrorAdapter(true, slog.Default())
	require.Contains(t, verbose.FormatError(ConfigError("missing reference").WithContext("table", "preprocessor.iced").Build()),
		"table=preprocessor.iced")
}

func TestCLIErrorAdapter_Handle(t *testing.T) {
	var logs, out bytes.Buffer
	adapter := NewCLIErrorAdapter(false, slog.New(slog.NewTextHandler(&logs, nil)))
	adapter.out = &out

	code := adapter.Handle(FileSystemError("copy failed").WithContext("path", "/tmp/x").Build())
	require.Equal(t, 11, code)
	require.Contains(t, out.String(), "Error: copy failed")
	require.Contains(t, logs.String(), "category=filesystem")
	require.Contains(t, logs.String(), "path=/tmp/x")

	require.Equal(t, 0, adapter.Handle(nil))
}

// customError is a test helper for unclassified errors
type customError struct {
	msg string
}

func (e *customError) Error() string {
	return e.msg
}
