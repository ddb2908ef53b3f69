package models

// DefaultReason fills a well-formed response that omits its reason.
const DefaultReason = "No reason provided"

// ClassificationResult is the outcome of running one Item through a
// classification backend. Failures are encoded here, never returned as errors.
type ClassificationResult struct {
	Accepted bool           `json:"accepted"`
	Reason   string         `json:"reason"`
	Extra    map[string]any `json:"extra,omitempty"`
	// RawResponse is nil only when the backend call never returned.
	RawResponse *string `json:"raw_response"`
}

// Classified pairs an item with its classification.
type Classified struct {
	Item   Item                 `json:"item"`
	Result ClassificationResult `json:"result"`
}

// ExtraString returns Extra[key] when it is a string.
func (r ClassificationResult) ExtraString(key string) string {
	if v, ok := r.Extra[key].(string); ok {
		return v
	}
	return ""
}

// ExtraStrings returns Extra[key] when it is a list of strings.
func (r ClassificationResult) ExtraStrings(key string) []string {
	switch v := r.Extra[key].(type) {
	case []string:
		return v
	case []any:
		out := make([]string, 0, len(v))
		for _, e := range v {
			if s, ok := e.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}
