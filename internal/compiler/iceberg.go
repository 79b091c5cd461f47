package compiler

import (
	"crypto/sha256"
	"encoding/hex"
	"sort"
	"strings"
)

// HiddenLinePrefix marks lines shown to the compiler but hidden by mdBook.
const HiddenLinePrefix = "# "

// Iceberg is the handle of a compiled artifact. Handles compare by hash.
type Iceberg struct {
	hash string
}

// IcebergFromHash wraps an existing artifact hash, e.g. a cache directory name.
func IcebergFromHash(hash string) Iceberg {
	return Iceberg{hash: hash}
}

// Hash is the hex digest naming the artifact directory.
func (i Iceberg) Hash() string { return i.hash }

func (i Iceberg) String() string { return i.hash }

// Less orders handles by hash.
func (i Iceberg) Less(other Iceberg) bool { return i.hash < other.hash }

// Normalize strips one hidden-line prefix from every line and rejoins the
// lines with "\n". CRLF line endings are reduced to LF and a single trailing
// newline is dropped.
func Normalize(source string) string {
	if source == "" {
		return ""
	}
	terminated := strings.HasSuffix(source, "\n")
	lines := strings.Split(strings.TrimSuffix(source, "\n"), "\n")
	for i, line := range lines {
		if i < len(lines)-1 || terminated {
			line = strings.TrimSuffix(line, "\r")
		}
		lines[i] = strings.TrimPrefix(line, HiddenLinePrefix)
	}
	return strings.Join(lines, "\n")
}

// Key derives the handle for already normalized source under envHash.
func Key(normalized, envHash string) Iceberg {
	sum := sha256.Sum256([]byte(normalized + envHash))
	return Iceberg{hash: hex.EncodeToString(sum[:])}
}

// Set is a collection of distinct handles.
type Set map[Iceberg]struct{}

// NewSet returns a set holding the given handles.
func NewSet(icebergs ...Iceberg) Set {
	s := make(Set, len(icebergs))
	for _, i := range icebergs {
		s.Add(i)
	}
	return s
}

func (s Set) Add(i Iceberg) { s[i] = struct{}{} }

// Merge adds every handle of other.
func (s Set) Merge(other Set) {
	for i := range other {
		s[i] = struct{}{}
	}
}

func (s Set) Contains(i Iceberg) bool {
	_, ok := s[i]
	return ok
}

// ContainsHash reports whether a handle with the given hash is in the set.
func (s Set) ContainsHash(hash string) bool {
	return s.Contains(Iceberg{hash: hash})
}

func (s Set) Len() int { return len(s) }

// Sorted returns the handles ordered by hash.
func (s Set) Sorted() []Iceberg {
	out := make([]Iceberg, 0, len(s))
	for i := range s {
		out = append(out, i)
	}
	sort.Slice(out, func(a, b int) bool { return out[a].Less(out[b]) })
	return out
}

// Hashes returns the hashes of the handles in sorted order.
func (s Set) Hashes() []string {
	sorted := s.Sorted()
	out := make([]string, len(sorted))
	for idx, i := range sorted {
		out[idx] = i.hash
	}
	return out
}
