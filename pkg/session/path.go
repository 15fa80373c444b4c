package session

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/goliatone/go-labforms/pkg/model"
)

func getPath(root model.Answers, path string) (any, bool) {
	if root == nil || path == "" {
		return nil, false
	}
	current := any(map[string]any(root))
	for _, segment := range strings.Split(path, ".") {
		switch node := current.(type) {
		case map[string]any:
			next, ok := node[segment]
			if !ok {
				return nil, false
			}
			current = next
		case model.Answers:
			next, ok := node[segment]
			if !ok {
				return nil, false
			}
			current = next
		case []any:
			idx, err := strconv.Atoi(segment)
			if err != nil || idx < 0 || idx >= len(node) {
				return nil, false
			}
			current = node[idx]
		default:
			return nil, false
		}
	}
	return current, true
}

// setPath writes field, field.idx or field.idx.key. Missing elements up to
// idx are created as empty records.
func setPath(root model.Answers, path string, value any) error {
	segments := strings.Split(path, ".")
	field := segments[0]
	if len(segments) == 1 {
		root[field] = value
		return nil
	}
	if len(segments) > 3 {
		return fmt.Errorf("session: path %q is too deep", path)
	}

	idx, err := strconv.Atoi(segments[1])
	if err != nil || idx < 0 {
		return fmt.Errorf("session: expected record index in %q", path)
	}
	records := recordSlice(root[field])
	for len(records) <= idx {
		records = append(records, map[string]any{})
	}
	root[field] = records

	if len(segments) == 2 {
		records[idx] = value
		return nil
	}
	rec, ok := records[idx].(map[string]any)
	if !ok || rec == nil {
		rec = make(map[string]any)
		records[idx] = rec
	}
	rec[segments[2]] = value
	return nil
}

func unsetPath(root model.Answers, path string) error {
	segments := strings.Split(path, ".")
	field := segments[0]
	if len(segments) == 1 {
		delete(root, field)
		return nil
	}
	if len(segments) != 3 {
		return fmt.Errorf("session: cannot unset %q; use Remove for elements", path)
	}
	idx, err := strconv.Atoi(segments[1])
	if err != nil {
		return fmt.Errorf("session: expected record index in %q", path)
	}
	records := recordSlice(root[field])
	if idx < 0 || idx >= len(records) {
		return nil
	}
	if rec, ok := records[idx].(map[string]any); ok {
		delete(rec, segments[2])
	}
	root[field] = records
	return nil
}

// recordSlice normalizes a record-array answer to []any of maps.
func recordSlice(value any) []any {
	switch typed := value.(type) {
	case []any:
		return typed
	case []map[string]any:
		out := make([]any, len(typed))
		for i, rec := range typed {
			out[i] = rec
		}
		return out
	case []model.Answers:
		out := make([]any, len(typed))
		for i, rec := range typed {
			out[i] = map[string]any(rec)
		}
		return out
	default:
		return nil
	}
}
