package markdown

import (
	"sort"

	"github.com/iced-rs/mdbook-iced/internal/foundation/errors"
)

// Edit represents a targeted byte-range replacement.
//
// Start and End are byte offsets into the original source, with End exclusive.
// Replacement replaces source[Start:End]. An edit with Start == End is an
// insertion.
type Edit struct {
	Start       int
	End         int
	Replacement []byte
}

// Insert returns an edit inserting content at offset.
func Insert(offset int, content []byte) Edit {
	return Edit{Start: offset, End: offset, Replacement: content}
}

// ApplyEdits applies non-overlapping edits, all expressed as offsets into the
// original source, and returns the updated content. Insertions at the same
// offset keep the order they were given in. The source is not modified.
func ApplyEdits(source []byte, edits []Edit) ([]byte, error) {
	if len(edits) == 0 {
		return source, nil
	}

	sorted := make([]Edit, len(edits))
	copy(sorted, edits)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Start < sorted[j].Start
	})

	size := len(source)
	for i, e := range sorted {
		switch {
		case e.Start < 0 || e.End < 0:
			return nil, invalidEdit(i, e, "negative range")
		case e.End < e.Start:
			return nil, invalidEdit(i, e, "end before start")
		case e.End > len(source):
			return nil, invalidEdit(i, e, "range out of bounds")
		case i > 0 && e.Start < sorted[i-1].End:
			return nil, invalidEdit(i, e, "overlapping ranges")
		}
		size += len(e.Replacement) - (e.End - e.Start)
	}

	out := make([]byte, 0, size)
	pos := 0
	for _, e := range sorted {
		out = append(out, source[pos:e.Start]...)
		out = append(out, e.Replacement...)
		pos = e.End
	}
	out = append(out, source[pos:]...)
	return out, nil
}

func invalidEdit(i int, e Edit, reason string) error {
	return errors.DocumentError("invalid edit: "+reason).
		WithContext("index", i).
		WithContext("start", e.Start).
		WithContext("end", e.End).
		Build()
}
