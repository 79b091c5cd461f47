// Package storage keeps artifact directories in step with the handles a run
// references. Retain garbage collects a directory of hash-named entries and
// Release publishes cached artifacts into the book's source tree.
package storage
