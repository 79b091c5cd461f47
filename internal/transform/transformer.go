package transform

import (
	"context"
	"log/slog"
	"strings"
	"sync/atomic"

	"github.com/iced-rs/mdbook-iced/internal/compiler"
	"github.com/iced-rs/mdbook-iced/internal/config"
	"github.com/iced-rs/mdbook-iced/internal/foundation/errors"
	"github.com/iced-rs/mdbook-iced/internal/logfields"
	"github.com/iced-rs/mdbook-iced/internal/markdown"
	"github.com/iced-rs/mdbook-iced/internal/markup"
)

// Compiler compiles the source of one code block into an artifact handle.
type Compiler interface {
	Compile(ctx context.Context, source string) (compiler.Iceberg, error)
}

// Transformer rewrites pages. One Transformer serves a whole run so embed ids
// stay unique across pages.
type Transformer struct {
	compiler      Compiler
	markup        *markup.Renderer
	language      string
	marker        string
	defaultHeight string
	nextID        atomic.Uint64
}

// Option customizes a Transformer.
type Option func(*Transformer)

// WithLanguage sets the language tag a label must start with.
func WithLanguage(tag string) Option {
	return func(t *Transformer) {
		if tag != "" {
			t.language = tag
		}
	}
}

// WithMarker sets the modifier that marks a block as interactive.
func WithMarker(marker string) Option {
	return func(t *Transformer) {
		if marker != "" {
			t.marker = marker
		}
	}
}

// WithDefaultHeight sets the embed height used when a label names none.
func WithDefaultHeight(h string) Option {
	return func(t *Transformer) {
		if h != "" {
			t.defaultHeight = h
		}
	}
}

// New returns a Transformer compiling through c and rendering with r.
func New(c Compiler, r *markup.Renderer, opts ...Option) *Transformer {
	t := &Transformer{
		compiler:      c,
		markup:        r,
		language:      config.DefaultLanguage,
		marker:        config.DefaultMarker,
		defaultHeight: config.DefaultHeight,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Result is a transformed page.
type Result struct {
	Content  string
	Icebergs compiler.Set
	Blocks   int
	Embeds   int
	Failures int
}

type state int

const (
	stateOutside state = iota
	stateInside
)

// page carries the per-page state of one Transform call.
type page struct {
	name         string
	source       []byte
	state        state
	buffer       strings.Builder
	height       string
	bootstrapped bool
	edits        []markdown.Edit
	result       *Result
}

// Transform compiles the eligible blocks of content and inserts embeds after
// them. Compile failures are logged and leave the block without an embed;
// any other failure aborts the page.
func (t *Transformer) Transform(ctx context.Context, name, content string) (*Result, error) {
	result := &Result{Content: content, Icebergs: compiler.NewSet()}
	if !strings.Contains(content, t.marker) {
		return result, nil
	}

	p := &page{name: name, source: []byte(content), result: result}
	for _, ev := range markdown.CodeBlockEvents(p.source) {
		if err := t.step(ctx, p, ev); err != nil {
			return nil, err
		}
	}

	if len(p.edits) == 0 {
		return result, nil
	}
	out, err := markdown.ApplyEdits(p.source, p.edits)
	if err != nil {
		return nil, errors.WrapError(err, errors.CategoryDocument, "failed to reassemble page").
			Fatal().
			WithContext("document", name).
			Build()
	}
	result.Content = string(out)
	return result, nil
}

func (t *Transformer) step(ctx context.Context, p *page, ev markdown.Event) error {
	switch p.state {
	case stateOutside:
		start, ok := ev.(markdown.EventCodeStart)
		if !ok {
			return nil
		}
		label := ParseLabel(start.Label, t.language, t.marker)
		if !label.Eligible {
			return nil
		}
		p.state = stateInside
		p.buffer.Reset()
		p.height = t.height(p.name, label.Height)

	case stateInside:
		switch e := ev.(type) {
		case markdown.EventText:
			if p.buffer.Len() > 0 && !strings.HasSuffix(p.buffer.String(), "\n") {
				p.buffer.WriteByte('\n')
			}
			p.buffer.WriteString(e.Text)
		case markdown.EventCodeEnd:
			p.state = stateOutside
			return t.finishBlock(ctx, p, e)
		}
	}
	return nil
}

func (t *Transformer) finishBlock(ctx context.Context, p *page, end markdown.EventCodeEnd) error {
	p.result.Blocks++

	iceberg, err := t.compiler.Compile(ctx, p.buffer.String())
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if !errors.HasCategory(err, errors.CategoryCompile) {
			return err
		}
		p.result.Failures++
		slog.Warn("Code block failed to compile; leaving it without an embed",
			logfields.Document(p.name),
			logfields.Error(err))
		return nil
	}
	if end.Offset < 0 {
		return errors.DocumentError("cannot locate the end of a code block").
			WithContext("document", p.name).
			Build()
	}

	id := t.nextID.Add(1) - 1
	embed, err := t.markup.Embed(markup.Embed{Hash: iceberg.Hash(), ID: id, Height: p.height})
	if err != nil {
		return errors.WrapError(err, errors.CategoryInternal, "failed to render embed").Build()
	}

	html := embed
	if !p.bootstrapped {
		html = strings.TrimRight(t.markup.Library(), "\n") + "\n" + embed
		p.bootstrapped = true
	}
	p.edits = append(p.edits, markdown.InsertBlock(p.source, end, html))
	p.result.Icebergs.Add(iceberg)
	p.result.Embeds++

	slog.Debug("Embedded code block",
		logfields.Document(p.name),
		logfields.Hash(iceberg.Hash()),
		logfields.EmbedID(id))
	return nil
}

func (t *Transformer) height(doc, requested string) string {
	if requested == "" {
		return t.defaultHeight
	}
	if !markup.ValidHeight(requested) {
		slog.Warn("Ignoring invalid embed height",
			logfields.Document(doc),
			slog.String("height", requested))
		return t.defaultHeight
	}
	return requested
}
