package position

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// Placeholder kinds.
const (
	Flow  = "flow"
	Embed = "embed"
)

var placeholder = regexp.MustCompile(`(?i)kindle:(flow|embed):(\w+)(?:\?mime=(\w+/[-+.\w]+))?`)

// Placeholder is a reference to flow or embedded resource found in KF8 markup.
type Placeholder struct {
	// Matched is the whole placeholder text.
	Matched string
	Kind    string
	ID      string
	// Mime is empty when placeholder does not declare type.
	Mime string
}

// Index decodes base 32 placeholder id.
func (p Placeholder) Index() (int, error) {
	n, err := strconv.ParseUint(p.ID, 32, 32)
	if err != nil {
		return 0, fmt.Errorf("bad %s id %q: %w", p.Kind, p.ID, err)
	}
	return int(n), nil
}

func toPlaceholder(m []string) Placeholder {
	return Placeholder{Matched: m[0], Kind: strings.ToLower(m[1]), ID: m[2], Mime: m[3]}
}

// FindPlaceholder returns the first placeholder in s.
func FindPlaceholder(s string) (Placeholder, bool) {
	m := placeholder.FindStringSubmatch(s)
	if m == nil {
		return Placeholder{}, false
	}
	return toPlaceholder(m), true
}

// ReplacePlaceholders substitutes every placeholder in s with result of repl.
func ReplacePlaceholders(s string, repl func(p Placeholder) string) string {
	return placeholder.ReplaceAllStringFunc(s, func(matched string) string {
		return repl(toPlaceholder(placeholder.FindStringSubmatch(matched)))
	})
}

var selectorAttr = regexp.MustCompile(`(?i)\s(id|name|aid)\s*=\s*['"]([^'"]*)['"]`)

// FragmentSelector returns attribute selector for the first id, name or aid
// attribute found in markup, empty string when there is none.
func FragmentSelector(markup string) string {
	m := selectorAttr.FindStringSubmatch(markup)
	if m == nil {
		return ""
	}
	return fmt.Sprintf(`[%s="%s"]`, m[1], m[2])
}
