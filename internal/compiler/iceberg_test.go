package compiler

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"empty", "", ""},
		{"single line", "fn main() {}", "fn main() {}"},
		{"trailing newline dropped", "fn main() {}\n", "fn main() {}"},
		{"blank last line kept", "a\n\n", "a\n"},
		{"hidden prefix stripped", "# use iced::widget;\nfn main() {}", "use iced::widget;\nfn main() {}"},
		{"only one prefix stripped", "# # nested", "# nested"},
		{"hash without space kept", "#[derive(Debug)]\nstruct S;", "#[derive(Debug)]\nstruct S;"},
		{"indented hash kept", "    # not hidden", "    # not hidden"},
		{"crlf", "a\r\n# b\r\n", "a\nb"},
		{"bare hash line", "#\n#", "#\n#"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, Normalize(tt.in))
		})
	}
}

func TestNormalize_HiddenLinesHashLikeVisibleLines(t *testing.T) {
	hidden := "# use iced::widget::button;\n# \nfn main() -> iced::Result {\n    iced::run(update, view)\n}\n"
	visible := "use iced::widget::button;\n\nfn main() -> iced::Result {\n    iced::run(update, view)\n}"

	require.Equal(t, Normalize(visible), Normalize(hidden))
	require.Equal(t, Key(Normalize(visible), "env"), Key(Normalize(hidden), "env"))
}

func TestKey(t *testing.T) {
	a := Key("fn main() {}", "env-a")
	require.Len(t, a.Hash(), 64)
	require.Equal(t, a, Key("fn main() {}", "env-a"))
	require.NotEqual(t, a, Key("fn main() {}", "env-b"))
	require.NotEqual(t, a, Key("fn main() { }", "env-a"))
	// sha256("") with an empty environment.
	require.Equal(t, "e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855", Key("", "").Hash())
}

func TestSet(t *testing.T) {
	a, b, c := IcebergFromHash("aa"), IcebergFromHash("bb"), IcebergFromHash("cc")

	s := NewSet(c, a)
	s.Add(a)
	require.Equal(t, 2, s.Len())
	require.True(t, s.Contains(a))
	require.False(t, s.Contains(b))
	require.True(t, s.ContainsHash("cc"))

	s.Merge(NewSet(b))
	require.Equal(t, []string{"aa", "bb", "cc"}, s.Hashes())
	require.Equal(t, []Iceberg{a, b, c}, s.Sorted())
	require.True(t, a.Less(b))
	require.Equal(t, "aa", a.String())
}
