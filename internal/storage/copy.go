package storage

import (
	"context"
	"io"
	"os"
	"path/filepath"

	"github.com/iced-rs/mdbook-iced/internal/foundation/errors"
)

// CopyTree recursively copies the directory from into to, creating to as
// needed. Files that already exist at the destination are skipped, which lets
// an interrupted copy be resumed.
func CopyTree(ctx context.Context, from, to string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := os.MkdirAll(to, 0o750); err != nil {
		return fsError(err, "failed to create directory", to)
	}

	entries, err := os.ReadDir(from)
	if err != nil {
		return fsError(err, "failed to read directory", from)
	}

	for _, entry := range entries {
		src := filepath.Join(from, entry.Name())
		dst := filepath.Join(to, entry.Name())

		if entry.IsDir() {
			if err := CopyTree(ctx, src, dst); err != nil {
				return err
			}
			continue
		}
		if _, err := os.Lstat(dst); err == nil {
			continue
		}
		if err := copyFile(src, dst); err != nil {
			return err
		}
	}
	return nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src) // #nosec G304 -- src is a path inside the artifact cache
	if err != nil {
		return fsError(err, "failed to open artifact file", src)
	}
	defer func() { _ = in.Close() }()

	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644) // #nosec G302 G304 -- released files are served by the book
	if err != nil {
		return fsError(err, "failed to create artifact file", dst)
	}
	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		return fsError(err, "failed to copy artifact file", dst)
	}
	if err := out.Close(); err != nil {
		return fsError(err, "failed to close artifact file", dst)
	}
	return nil
}

func fsError(err error, msg, path string) error {
	return errors.WrapError(err, errors.CategoryFileSystem, msg).
		Fatal().
		WithContext("path", path).
		Build()
}
