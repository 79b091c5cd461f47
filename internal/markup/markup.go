// Package markup renders the HTML spliced into pages next to compiled code
// blocks: a bootstrap that loads artifacts on demand, and one embed per block.
package markup

import (
	"bytes"
	_ "embed"
	"fmt"
	"regexp"
	"text/template"
)

//go:embed assets/library.html
var libraryHTML string

//go:embed assets/embed.html
var embedHTML string

// cssLength accepts the height values an embed may carry into its style attribute.
var cssLength = regexp.MustCompile(`^[0-9]+(\.[0-9]+)?(px|em|rem|vh|vw|%)?$`)

// Embed describes one interactive example.
type Embed struct {
	Hash   string
	ID     uint64
	Height string
}

// Renderer renders the embedded markup assets.
type Renderer struct {
	embed *template.Template
}

// NewRenderer parses the embedded templates.
func NewRenderer() (*Renderer, error) {
	tpl, err := template.New("embed").Option("missingkey=error").Parse(embedHTML)
	if err != nil {
		return nil, fmt.Errorf("parse embed template: %w", err)
	}
	return &Renderer{embed: tpl}, nil
}

// Library returns the bootstrap markup, inserted once per page before the
// first embed.
func (r *Renderer) Library() string {
	return libraryHTML
}

// Embed renders the container for one compiled block.
func (r *Renderer) Embed(e Embed) (string, error) {
	if !ValidHeight(e.Height) {
		return "", fmt.Errorf("invalid embed height %q", e.Height)
	}
	var buf bytes.Buffer
	err := r.embed.Execute(&buf, map[string]any{
		"Hash":   e.Hash,
		"ID":     e.ID,
		"Height": e.Height,
	})
	if err != nil {
		return "", fmt.Errorf("render embed: %w", err)
	}
	return buf.String(), nil
}

// ValidHeight reports whether h is a plain CSS length such as "200px" or "50vh".
func ValidHeight(h string) bool {
	return cssLength.MatchString(h)
}
