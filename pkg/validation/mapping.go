package validation

import (
	"sort"
	"strconv"
	"strings"

	"github.com/goliatone/go-labforms/pkg/visibility"
)

// Mapping splits an external error payload into field-level and form-level
// messages keyed by the dotted paths of the current resolution.
type Mapping struct {
	Fields map[string][]string `json:"fields,omitempty"`
	Form   []string            `json:"form,omitempty"`
}

// MapIssues places errors reported by the runtime that receives the
// submission onto visible field paths. JSON pointers, bracket indices and
// request-body wrappers are accepted. Paths that match nothing visible
// become form-level messages.
func MapIssues(res visibility.Resolution, payload map[string][]string) Mapping {
	var mapping Mapping
	if len(payload) == 0 {
		return mapping
	}

	visible := make(map[string]bool)
	for _, path := range res.Paths() {
		visible[path] = true
	}

	keys := make([]string, 0, len(payload))
	for key := range payload {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	for _, key := range keys {
		messages := dedupe(payload[key])
		if len(messages) == 0 {
			continue
		}
		path := resolveErrorKey(key, visible)
		if path == "" {
			mapping.Form = append(mapping.Form, messages...)
			continue
		}
		if mapping.Fields == nil {
			mapping.Fields = make(map[string][]string)
		}
		mapping.Fields[path] = append(mapping.Fields[path], messages...)
	}
	mapping.Form = dedupe(mapping.Form)
	return mapping
}

// Merge folds the gate's own issues into the mapping.
func (m Mapping) Merge(errs *Errors) Mapping {
	for path, messages := range errs.Fields() {
		if m.Fields == nil {
			m.Fields = make(map[string][]string)
		}
		m.Fields[path] = dedupe(append(m.Fields[path], messages...))
	}
	return m
}

// dedupe trims messages and drops blanks and repeats, keeping first-seen order.
func dedupe(messages []string) []string {
	var out []string
	seen := make(map[string]bool, len(messages))
	for _, message := range messages {
		message = strings.TrimSpace(message)
		if message == "" || seen[message] {
			continue
		}
		seen[message] = true
		out = append(out, message)
	}
	return out
}

// resolveErrorKey returns the deepest visible path the key points into, or ""
// for form-level keys.
func resolveErrorKey(key string, visible map[string]bool) string {
	if formLevel(key) {
		return ""
	}
	segments := splitErrorKey(key)
	best := deepestVisible(segments, visible)
	if unwrapped := unwrap(segments); len(unwrapped) != len(segments) {
		if alt := deepestVisible(unwrapped, visible); depth(alt) > depth(best) {
			best = alt
		}
	}
	return best
}

func depth(path string) int {
	if path == "" {
		return -1
	}
	return strings.Count(path, ".")
}

func deepestVisible(segments []string, visible map[string]bool) string {
	for n := len(segments); n > 0; n-- {
		if candidate := strings.Join(segments[:n], "."); visible[candidate] {
			return candidate
		}
	}
	return ""
}

// splitErrorKey accepts "a.b", "a[0].b", "/a/0/b" and "#/a/0/b".
func splitErrorKey(key string) []string {
	key = strings.TrimLeft(strings.TrimSpace(key), "#/.$")
	key = strings.NewReplacer("[", ".", "]", "").Replace(key)

	var segments []string
	for _, part := range strings.FieldsFunc(key, func(r rune) bool { return r == '.' || r == '/' }) {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		part = strings.NewReplacer("~1", "/", "~0", "~").Replace(part)
		if n, err := strconv.Atoi(part); err == nil {
			part = strconv.Itoa(n)
		}
		segments = append(segments, part)
	}
	return segments
}

// unwrap strips leading request-body envelope segments.
func unwrap(segments []string) []string {
	for len(segments) > 0 {
		switch strings.ToLower(segments[0]) {
		case "body", "request", "payload", "data", "answers":
			segments = segments[1:]
		default:
			return segments
		}
	}
	return segments
}

func formLevel(key string) bool {
	switch strings.ToLower(strings.TrimSpace(key)) {
	case "", ".", "/", "#", "$", "form", "__all__", "non_field_errors":
		return true
	}
	return false
}
