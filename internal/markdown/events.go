package markdown

import (
	"bytes"
	"strings"

	"github.com/yuin/goldmark"
	gmast "github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/text"
)

// Event is one item of the structural stream produced by CodeBlockEvents.
type Event interface {
	event()
}

// EventCodeStart opens a fenced code block.
type EventCodeStart struct {
	// Label is the raw info string following the opening fence.
	Label string
}

// EventText carries one line of a code block's content, including its line ending.
type EventText struct {
	Text string
}

// EventCodeEnd closes a fenced code block.
type EventCodeEnd struct {
	// Offset is the byte offset right after the closing fence line, where
	// generated blocks belong. It is -1 when the position cannot be derived.
	Offset int
	// Prefix is the container prefix (blockquote markers, list indentation)
	// of the closing fence line. Empty when the block ended with its container.
	Prefix string
	// Close is a closing fence line to write before any generated content.
	// It is set when the fence runs to the end of the page.
	Close string
}

func (EventCodeStart) event() {}
func (EventText) event()      {}
func (EventCodeEnd) event()   {}

// newParser matches the block structure mdBook recognizes.
func newParser() goldmark.Markdown {
	return goldmark.New(goldmark.WithExtensions(extension.GFM, extension.Footnote))
}

// Parse parses a Markdown body into a goldmark AST.
func Parse(body []byte) gmast.Node {
	return newParser().Parser().Parse(text.NewReader(body))
}

// CodeBlockEvents returns the fenced code blocks of body as a flat event
// stream in document order, including blocks nested in lists and quotes.
func CodeBlockEvents(body []byte) []Event {
	root := Parse(body)

	var events []Event
	index := 0
	_ = gmast.Walk(root, func(n gmast.Node, entering bool) (gmast.WalkStatus, error) {
		if !entering {
			return gmast.WalkContinue, nil
		}
		block, ok := n.(*gmast.FencedCodeBlock)
		if !ok {
			return gmast.WalkContinue, nil
		}

		label := ""
		if block.Info != nil {
			label = strings.TrimSpace(string(block.Info.Segment.Value(body)))
		}
		events = append(events, EventCodeStart{Label: label})

		lines := block.Lines()
		for i := 0; i < lines.Len(); i++ {
			seg := lines.At(i)
			events = append(events, EventText{Text: string(seg.Value(body))})
		}

		events = append(events, closingFence(body, block, index))
		index++
		return gmast.WalkSkipChildren, nil
	})
	return events
}

// closingFence locates the line after a block's content and reports where
// generated content should go. index is the block's position among the
// fenced code blocks of source.
func closingFence(source []byte, block *gmast.FencedCodeBlock, index int) EventCodeEnd {
	if block.Info == nil {
		// Without an info string the opening fence cannot be located.
		return EventCodeEnd{Offset: -1}
	}
	infoStart := block.Info.Segment.Start
	fenceChar, fenceLen, fenceStart := openingFence(source, infoStart)
	if fenceLen == 0 {
		return EventCodeEnd{Offset: -1}
	}

	var next int
	var prefix []byte
	if lines := block.Lines(); lines.Len() > 0 {
		last := lines.At(lines.Len() - 1).Start
		next = lineEnd(source, last)
		prefix = source[lineStart(source, last):last]
	} else {
		next = lineEnd(source, infoStart)
		prefix = source[lineStart(source, fenceStart):fenceStart]
	}

	if next >= len(source) {
		// The fence runs to the end of the page; close it so appended
		// content is not swallowed by the block.
		indent := blankMarkers(prefix)
		return EventCodeEnd{
			Offset: len(source),
			Prefix: indent,
			Close:  indent + strings.Repeat(string(fenceChar), fenceLen),
		}
	}

	end := lineEnd(source, next)
	linePrefix, rest := splitContainerPrefix(source[next:end])
	if isClosingFence(rest, fenceChar, fenceLen) && !opensBlock(source[:end], index) {
		return EventCodeEnd{Offset: end, Prefix: string(linePrefix)}
	}
	// The block ended with its container.
	return EventCodeEnd{Offset: next}
}

// openingFence walks back from the info string to the fence run before it and
// returns the fence character, its length and the offset the run starts at.
func openingFence(source []byte, infoStart int) (byte, int, int) {
	i := infoStart - 1
	for i >= 0 && (source[i] == ' ' || source[i] == '\t') {
		i--
	}
	if i < 0 || (source[i] != '`' && source[i] != '~') {
		return 0, 0, infoStart
	}
	c := source[i]
	n := 0
	for i >= 0 && source[i] == c {
		n++
		i--
	}
	return c, n, i + 1
}

func lineStart(source []byte, pos int) int {
	if pos > len(source) {
		pos = len(source)
	}
	return bytes.LastIndexByte(source[:pos], '\n') + 1
}

// blankMarkers keeps blockquote markers and turns list markers into
// indentation, so the result continues the same containers.
func blankMarkers(prefix []byte) string {
	out := make([]byte, len(prefix))
	for i, c := range prefix {
		switch c {
		case '>', '\t':
			out[i] = c
		default:
			out[i] = ' '
		}
	}
	return string(out)
}

func lineEnd(source []byte, pos int) int {
	if pos >= len(source) {
		return len(source)
	}
	if idx := bytes.IndexByte(source[pos:], '\n'); idx >= 0 {
		return pos + idx + 1
	}
	return len(source)
}

func splitContainerPrefix(line []byte) ([]byte, []byte) {
	i := 0
	for i < len(line) && (line[i] == ' ' || line[i] == '\t' || line[i] == '>') {
		i++
	}
	return line[:i], line[i:]
}

// opensBlock reports whether the last line of source starts a new fenced code
// block instead of closing block number index. A fence line outside the
// block's container (a bare fence after a quote or an unindented fence after
// a list item) ends the container and opens a block of its own.
func opensBlock(source []byte, index int) bool {
	count := 0
	_ = gmast.Walk(Parse(source), func(n gmast.Node, entering bool) (gmast.WalkStatus, error) {
		if !entering {
			return gmast.WalkContinue, nil
		}
		if n.Kind() == gmast.KindFencedCodeBlock {
			count++
			return gmast.WalkSkipChildren, nil
		}
		return gmast.WalkContinue, nil
	})
	return count > index+1
}

func isClosingFence(rest []byte, c byte, n int) bool {
	i := 0
	for i < len(rest) && rest[i] == c {
		i++
	}
	if i < n {
		return false
	}
	return len(bytes.TrimSpace(rest[i:])) == 0
}

// InsertBlock returns an edit placing an HTML block after the code block
// closed by end. The block stays inside the code block's container and is
// separated from surrounding content by blank lines.
func InsertBlock(source []byte, end EventCodeEnd, html string) Edit {
	var b strings.Builder
	if end.Offset > 0 && source[end.Offset-1] != '\n' {
		b.WriteByte('\n')
	}
	if end.Close != "" {
		b.WriteString(end.Close)
		b.WriteByte('\n')
	}

	blank := strings.TrimRight(end.Prefix, " \t")
	b.WriteString(blank)
	b.WriteByte('\n')
	for _, line := range strings.Split(strings.TrimRight(html, "\n"), "\n") {
		if line == "" {
			b.WriteString(blank)
		} else {
			b.WriteString(end.Prefix)
			b.WriteString(line)
		}
		b.WriteByte('\n')
	}
	b.WriteString(blank)
	b.WriteByte('\n')

	return Insert(end.Offset, []byte(b.String()))
}
