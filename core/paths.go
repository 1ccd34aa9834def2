package core

import (
	"encoding/json"
	"strconv"
	"strings"
)

// TextKey is the key OPS uses for the text content of an element; sibling
// keys prefixed with "@" hold its attributes.
const TextKey = "$"

// GetPath walks a decoded JSON tree. A segment applied to an object selects
// the key; a numeric segment applied to an array selects the index; a key
// segment applied to an array descends into its first element, so a node the
// upstream sends either as a single object or as a list resolves the same way.
// Missing nodes at any level yield nil.
func GetPath(node any, path ...string) any {
	current := node
	for _, segment := range path {
		if current == nil {
			return nil
		}
		switch typed := current.(type) {
		case map[string]any:
			current = typed[segment]
		case []any:
			if index, err := strconv.Atoi(segment); err == nil {
				if index < 0 || index >= len(typed) {
					return nil
				}
				current = typed[index]
				continue
			}
			if len(typed) == 0 {
				return nil
			}
			first, ok := typed[0].(map[string]any)
			if !ok {
				return nil
			}
			current = first[segment]
		default:
			return nil
		}
	}
	return current
}

// GetOr returns the node at path when it has type T, otherwise fallback.
func GetOr[T any](node any, fallback T, path ...string) T {
	if value, ok := GetPath(node, path...).(T); ok {
		return value
	}
	return fallback
}

// StringAt returns the text at path, or "" when the path is absent.
func StringAt(node any, path ...string) string {
	return textOf(GetPath(node, path...))
}

// StringAtAny returns the first non-empty text among sibling keys of node.
func StringAtAny(node any, keys ...string) string {
	for _, key := range keys {
		if value := StringAt(node, key); value != "" {
			return value
		}
	}
	return ""
}

// AsSlice normalizes a node the upstream may send as a scalar, an object or
// an array into a sequence. Absent nodes become an empty sequence.
func AsSlice(value any) []any {
	switch typed := value.(type) {
	case nil:
		return []any{}
	case []any:
		return typed
	default:
		return []any{typed}
	}
}

// SliceAt is AsSlice applied to the node at path.
func SliceAt(node any, path ...string) []any {
	return AsSlice(GetPath(node, path...))
}

// First returns the authoritative element of a node that may be a list.
func First(value any) any {
	items := AsSlice(value)
	if len(items) == 0 {
		return nil
	}
	return items[0]
}

func textOf(value any) string {
	switch typed := value.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(typed)
	case json.Number:
		return typed.String()
	case float64:
		return strconv.FormatFloat(typed, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(typed)
	case map[string]any:
		return textOf(typed[TextKey])
	case []any:
		if len(typed) == 0 {
			return ""
		}
		return textOf(typed[0])
	default:
		return ""
	}
}

// localizedText picks the entry tagged with lang from a node that may list
// one entry per language, falling back to the first entry.
func localizedText(value any, lang string) string {
	items := AsSlice(value)
	for _, item := range items {
		if strings.EqualFold(StringAt(item, "@lang"), lang) {
			if text := paragraphText(item); text != "" {
				return text
			}
		}
	}
	for _, item := range items {
		if text := paragraphText(item); text != "" {
			return text
		}
	}
	return ""
}

// paragraphText reads an element's own text or, when it only holds "p"
// children, their joined text.
func paragraphText(value any) string {
	if text := textOf(value); text != "" {
		return text
	}
	paragraphs := SliceAt(value, "p")
	parts := make([]string, 0, len(paragraphs))
	for _, paragraph := range paragraphs {
		if text := textOf(paragraph); text != "" {
			parts = append(parts, text)
		}
	}
	return strings.Join(parts, "\n")
}
