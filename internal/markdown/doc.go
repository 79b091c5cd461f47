// Package markdown reads the structure of Markdown pages without re-rendering
// them. CodeBlockEvents linearizes fenced code blocks into an event stream and
// ApplyEdits splices generated content into the untouched source bytes.
package markdown
