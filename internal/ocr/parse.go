package ocr

import (
	"encoding/json"
	"regexp"
	"strings"
)

var fencedJSON = regexp.MustCompile("(?is)```json\\s*(\\{.*?\\})\\s*```")

type payload struct {
	Items []Item `json:"items"`
}

// parsePayload extracts the item list from a model reply. Strategies are
// tried in order, first success wins: a fenced json block, the whole body,
// the outermost {...} span. A reply without an "items" key never matches.
func parsePayload(text string) ([]Item, error) {
	for _, candidate := range candidates(strings.TrimSpace(text)) {
		var p payload
		if err := json.Unmarshal([]byte(candidate), &p); err == nil && p.Items != nil {
			return p.Items, nil
		}
	}
	return nil, ErrBadPayload
}

func candidates(text string) []string {
	var out []string
	if m := fencedJSON.FindStringSubmatch(text); m != nil {
		out = append(out, m[1])
	}
	out = append(out, text)
	if i := strings.Index(text, "{"); i >= 0 {
		if j := strings.LastIndex(text, "}"); j > i {
			out = append(out, text[i:j+1])
		}
	}
	return out
}
