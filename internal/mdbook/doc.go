// Package mdbook implements the host side of the mdBook preprocessor
// protocol: the [context, book] JSON input on stdin, the book JSON output on
// stdout and the renderer and version checks.
//
// Only the parts of a book this preprocessor edits are typed. Every other
// field of the book and its chapters is kept as raw JSON and written back
// unchanged.
package mdbook
