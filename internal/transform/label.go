package transform

import "strings"

// Label is a parsed code block info string.
type Label struct {
	Eligible bool
	// Height is the value of a height= argument on the marker modifier, if any.
	Height string
}

// ParseLabel decides eligibility of a code block label for the given
// language tag and marker.
func ParseLabel(raw, language, marker string) Label {
	modifiers := strings.Split(raw, ",")
	if !strings.HasPrefix(strings.TrimSpace(modifiers[0]), language) {
		return Label{}
	}

	for _, m := range modifiers {
		m = strings.TrimSpace(m)
		if !strings.HasPrefix(m, marker) {
			continue
		}
		return Label{Eligible: true, Height: heightArg(m, marker)}
	}
	return Label{}
}

// heightArg extracts X from "<marker>(height=X)".
func heightArg(modifier, marker string) string {
	args, ok := strings.CutPrefix(modifier, marker+"(")
	if !ok {
		return ""
	}
	args, ok = strings.CutSuffix(args, ")")
	if !ok {
		return ""
	}
	_, height, ok := strings.Cut(args, "height=")
	if !ok {
		return ""
	}
	return strings.TrimSpace(height)
}
