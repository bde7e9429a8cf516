package mirror

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Term is one whitespace separated part of a search query. Field is empty
// for free-text terms.
type Term struct {
	Field string
	Value string
}

// Query is a conjunction of terms; the zero value matches every document.
type Query struct {
	Terms []Term
}

// ParseQuery reads "field:value" and free-text terms. "*" matches all.
func ParseQuery(raw string) Query {
	var q Query
	for _, tok := range strings.Fields(raw) {
		if tok == "*" {
			continue
		}
		if field, value, ok := strings.Cut(tok, ":"); ok && field != "" {
			q.Terms = append(q.Terms, Term{Field: field, Value: value})
			continue
		}
		q.Terms = append(q.Terms, Term{Value: tok})
	}
	return q
}

func (q Query) String() string {
	if len(q.Terms) == 0 {
		return "*"
	}
	parts := make([]string, len(q.Terms))
	for i, t := range q.Terms {
		if t.Field == "" {
			parts[i] = t.Value
		} else {
			parts[i] = t.Field + ":" + t.Value
		}
	}
	return strings.Join(parts, " ")
}

func (q Query) Match(body map[string]any) bool {
	for _, t := range q.Terms {
		if !t.match(body) {
			return false
		}
	}
	return true
}

func (t Term) match(body map[string]any) bool {
	if t.Field != "" {
		v, ok := body[t.Field]
		if !ok {
			return false
		}
		if items, ok := v.([]any); ok {
			for _, item := range items {
				if stringForm(item) == t.Value {
					return true
				}
			}
			return false
		}
		return stringForm(v) == t.Value
	}

	return containsText(body, strings.ToLower(t.Value))
}

// containsText reports whether any string inside v, at any depth, contains
// needle case-insensitively.
func containsText(v any, needle string) bool {
	switch x := v.(type) {
	case string:
		return strings.Contains(strings.ToLower(x), needle)
	case []any:
		for _, item := range x {
			if containsText(item, needle) {
				return true
			}
		}
	case map[string]any:
		for _, item := range x {
			if containsText(item, needle) {
				return true
			}
		}
	}
	return false
}

// stringForm renders a decoded JSON value for comparison. Nested objects
// compare by their id.
func stringForm(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case json.Number:
		return x.String()
	case map[string]any:
		return stringForm(x["id"])
	default:
		return fmt.Sprint(x)
	}
}
