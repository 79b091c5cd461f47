// Package workspace manages the persistent build workspace a book compiles its
// code blocks in (by default <root>/target/icebergs).
//
// The workspace survives across runs so the toolchain can reuse its own
// incremental build state; only Remove deletes it.
package workspace
