package classify

import "strings"

// Result is the outcome of classifying one object description.
type Result struct {
	Area string
	Tags []string
}

// Classify maps a free-text procurement object description to a single
// operating area plus zero or more topical tags. It is a pure function of
// the text and the fixed dictionaries: same input, same output, no state.
func Classify(text string) Result {
	normalized := Normalize(text)
	if normalized == "" {
		return Result{Area: DefaultArea}
	}

	result := Result{Area: DefaultArea}
	for _, entry := range areaDictionary {
		if containsAny(normalized, entry.Keywords) {
			result.Area = entry.Area
			break
		}
	}

	for _, entry := range tagDictionary {
		if containsAny(normalized, entry.Keywords) {
			result.Tags = append(result.Tags, entry.Tag)
		}
	}

	return result
}

// Area is a convenience wrapper when only the area label is needed.
func Area(text string) string {
	return Classify(text).Area
}

func containsAny(normalized string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(normalized, kw) {
			return true
		}
	}
	return false
}
