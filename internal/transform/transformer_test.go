package transform

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/net/html"

	"github.com/iced-rs/mdbook-iced/internal/compiler"
	"github.com/iced-rs/mdbook-iced/internal/foundation/errors"
	"github.com/iced-rs/mdbook-iced/internal/markdown"
	"github.com/iced-rs/mdbook-iced/internal/markup"
)

// fakeCompiler hashes sources like the real compiler but never runs a
// toolchain. Sources containing "broken" fail to compile.
type fakeCompiler struct {
	sources []string
	err     error
}

func (f *fakeCompiler) Compile(_ context.Context, source string) (compiler.Iceberg, error) {
	f.sources = append(f.sources, source)
	if f.err != nil {
		return compiler.Iceberg{}, f.err
	}
	if strings.Contains(source, "broken") {
		return compiler.Iceberg{}, errors.CompileError("build failed").Build()
	}
	return compiler.Key(compiler.Normalize(source), "env"), nil
}

func newTransformer(t *testing.T, c Compiler, opts ...Option) *Transformer {
	t.Helper()
	r, err := markup.NewRenderer()
	require.NoError(t, err)
	return New(c, r, opts...)
}

type embedNode struct {
	id     string
	hash   string
	height string
}

func embeds(t *testing.T, content string) (int, []embedNode) {
	t.Helper()
	doc, err := html.Parse(strings.NewReader(content))
	require.NoError(t, err)

	var scripts int
	var found []embedNode
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			attrs := map[string]string{}
			for _, a := range n.Attr {
				attrs[a.Key] = a.Val
			}
			if n.Data == "script" {
				scripts++
			}
			if n.Data == "div" && attrs["class"] == "iceberg" {
				found = append(found, embedNode{id: attrs["id"], hash: attrs["data-iceberg"], height: attrs["style"]})
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
	return scripts, found
}

func TestParseLabel(t *testing.T) {
	tests := []struct {
		raw      string
		eligible bool
		height   string
	}{
		{"rust,iced", true, ""},
		{"rust,iced(height=350px)", true, "350px"},
		{"rust, iced(height=10em)", true, "10em"},
		{"rust,no_run,iced", true, ""},
		{"rust", false, ""},
		{"rust,ignore", false, ""},
		{"python,iced", false, ""},
		{"", false, ""},
		{"rust,iced(width=10px)", true, ""},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			label := ParseLabel(tt.raw, "rust", "iced")
			require.Equal(t, tt.eligible, label.Eligible)
			require.Equal(t, tt.height, label.Height)
		})
	}
}

func TestTransform_PassThroughWithoutEligibleBlocks(t *testing.T) {
	inputs := []string{
		"# Title\n\nSome *text*.\n",
		"# Title\n\n```rust\nfn main() {}\n```\n\nMentions iced in prose.\n",
		"```python,iced\nprint()\n```",
		"",
	}
	fc := &fakeCompiler{}
	tr := newTransformer(t, fc)
	for _, in := range inputs {
		res, err := tr.Transform(context.Background(), "page.md", in)
		require.NoError(t, err)
		require.Equal(t, in, res.Content)
		require.Zero(t, res.Icebergs.Len())
		require.Zero(t, res.Embeds)
	}
	require.Empty(t, fc.sources)
}

func TestTransform_SingleBootstrapAndDistinctIDs(t *testing.T) {
	in := "# Demo\n\n" +
		"```rust,iced\nfn a() {}\n```\n\n" +
		"Between.\n\n" +
		"```rust,iced(height=300px)\nfn b() {}\n```\n\n" +
		"```rust,iced\nfn a() {}\n```\n"

	tr := newTransformer(t, &fakeCompiler{})
	res, err := tr.Transform(context.Background(), "demo.md", in)
	require.NoError(t, err)
	require.Equal(t, 3, res.Embeds)
	require.Equal(t, 3, res.Blocks)
	require.Equal(t, 2, res.Icebergs.Len())

	scripts, found := embeds(t, res.Content)
	require.Equal(t, 1, scripts)
	require.Len(t, found, 3)
	require.Equal(t, "iceberg-0", found[0].id)
	require.Equal(t, "iceberg-1", found[1].id)
	require.Equal(t, "iceberg-2", found[2].id)
	require.Equal(t, found[0].hash, found[2].hash)
	require.NotEqual(t, found[0].hash, found[1].hash)
	require.Equal(t, "height: 200px", found[0].height)
	require.Equal(t, "height: 300px", found[1].height)

	require.True(t, strings.HasPrefix(res.Content, "# Demo\n\n```rust,iced\nfn a() {}\n```\n"))
	require.Contains(t, res.Content, "\nBetween.\n")
}

func TestTransform_IDsContinueAcrossPages(t *testing.T) {
	tr := newTransformer(t, &fakeCompiler{})
	page := "```rust,iced\nfn main() {}\n```\n"

	first, err := tr.Transform(context.Background(), "a.md", page)
	require.NoError(t, err)
	second, err := tr.Transform(context.Background(), "b.md", page)
	require.NoError(t, err)

	scripts, found := embeds(t, first.Content)
	require.Equal(t, 1, scripts)
	require.Equal(t, "iceberg-0", found[0].id)

	scripts, found = embeds(t, second.Content)
	require.Equal(t, 1, scripts)
	require.Equal(t, "iceberg-1", found[0].id)
}

func TestTransform_FailureIsolation(t *testing.T) {
	in := "```rust,iced\nfn broken() {}\n```\n\n```rust,iced\nfn fine() {}\n```\n"

	tr := newTransformer(t, &fakeCompiler{})
	res, err := tr.Transform(context.Background(), "mixed.md", in)
	require.NoError(t, err)
	require.Equal(t, 2, res.Blocks)
	require.Equal(t, 1, res.Failures)
	require.Equal(t, 1, res.Embeds)
	require.Equal(t, 1, res.Icebergs.Len())

	scripts, found := embeds(t, res.Content)
	require.Equal(t, 1, scripts)
	require.Len(t, found, 1)
	require.Equal(t, "iceberg-0", found[0].id)
	require.True(t, strings.HasPrefix(res.Content, "```rust,iced\nfn broken() {}\n```\n\n```rust,iced\n"))
}

func TestTransform_AllFailuresLeavePageUntouched(t *testing.T) {
	in := "```rust,iced\nfn broken() {}\n```\n"

	tr := newTransformer(t, &fakeCompiler{})
	res, err := tr.Transform(context.Background(), "bad.md", in)
	require.NoError(t, err)
	require.Equal(t, in, res.Content)
	require.Equal(t, 1, res.Failures)
	require.Zero(t, res.Icebergs.Len())
}

func TestTransform_NonCompileErrorAborts(t *testing.T) {
	fc := &fakeCompiler{err: errors.FileSystemError("disk full").Build()}
	tr := newTransformer(t, fc)

	_, err := tr.Transform(context.Background(), "page.md", "```rust,iced\nfn main() {}\n```\n")
	require.Error(t, err)
	require.True(t, errors.HasCategory(err, errors.CategoryFileSystem))
}

func TestTransform_CanceledContextAborts(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	fc := &fakeCompiler{err: errors.CompileError("interrupted").Build()}
	tr := newTransformer(t, fc)

	_, err := tr.Transform(ctx, "page.md", "```rust,iced\nfn main() {}\n```\n")
	require.ErrorIs(t, err, context.Canceled)
}

func TestTransform_BufferJoinsLines(t *testing.T) {
	fc := &fakeCompiler{}
	tr := newTransformer(t, fc)

	_, err := tr.Transform(context.Background(), "page.md", "```rust,iced\n# use iced;\nfn main() {\n}\n```\n")
	require.NoError(t, err)
	require.Equal(t, []string{"# use iced;\nfn main() {\n}\n"}, fc.sources)
}

func TestTransform_EmptyBlockIsCompiled(t *testing.T) {
	fc := &fakeCompiler{}
	tr := newTransformer(t, fc)

	res, err := tr.Transform(context.Background(), "page.md", "```rust,iced\n```\n")
	require.NoError(t, err)
	require.Equal(t, []string{""}, fc.sources)
	require.Equal(t, 1, res.Embeds)
}

func TestTransform_NestedBlocks(t *testing.T) {
	in := "- Item\n\n  ```rust,iced\n  fn listed() {}\n  ```\n\n> Quote\n>\n> ```rust,iced\n> fn quoted() {}\n> ```\n"

	fc := &fakeCompiler{}
	tr := newTransformer(t, fc)
	res, err := tr.Transform(context.Background(), "nested.md", in)
	require.NoError(t, err)
	require.Equal(t, 2, res.Embeds)
	require.Equal(t, []string{"fn listed() {}\n", "fn quoted() {}\n"}, fc.sources)
	require.Contains(t, res.Content, "\n  <div class=\"iceberg\" id=\"iceberg-0\"")
	require.Contains(t, res.Content, "\n> <div class=\"iceberg\" id=\"iceberg-1\"")
}

func TestTransform_FenceOutsideContainer(t *testing.T) {
	pages := map[string]string{
		"quote.md": "> ```rust,iced\n> fn quoted() {}\n```\n\nAfter\n",
		"list.md":  "- ```rust,iced\n  fn listed() {}\n```\n\nAfter\n",
	}
	for name, in := range pages {
		t.Run(name, func(t *testing.T) {
			tr := newTransformer(t, &fakeCompiler{})
			res, err := tr.Transform(context.Background(), name, in)
			require.NoError(t, err)
			require.Equal(t, 1, res.Embeds)

			for _, ev := range markdown.CodeBlockEvents([]byte(res.Content)) {
				if text, ok := ev.(markdown.EventText); ok {
					require.NotContains(t, text.Text, "iceberg")
					require.NotContains(t, text.Text, "<script")
				}
			}
			scripts, found := embeds(t, res.Content)
			require.Positive(t, scripts)
			require.Len(t, found, 1)
		})
	}
}

func TestTransform_HeightFallsBackOnInvalidValue(t *testing.T) {
	tr := newTransformer(t, &fakeCompiler{}, WithDefaultHeight("25em"))

	res, err := tr.Transform(context.Background(), "page.md",
		"```rust,iced(height=1px;color:red)\nfn a() {}\n```\n\n```rust,iced\nfn b() {}\n```\n")
	require.NoError(t, err)

	_, found := embeds(t, res.Content)
	require.Len(t, found, 2)
	require.Equal(t, "height: 25em", found[0].height)
	require.Equal(t, "height: 25em", found[1].height)
}

func TestTransform_CustomLanguageAndMarker(t *testing.T) {
	tr := newTransformer(t, &fakeCompiler{}, WithLanguage("rs"), WithMarker("demo"))

	res, err := tr.Transform(context.Background(), "page.md", "```rs,demo\nfn a() {}\n```\n\n```rust,iced\nfn b() {}\n```\n")
	require.NoError(t, err)
	require.Equal(t, 1, res.Embeds)
}
