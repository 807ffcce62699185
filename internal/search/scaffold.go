package search

import (
	"encoding/json"
	"regexp"
	"strings"
)

// maxReferenceNames caps how many reference compounds one query may yield.
const maxReferenceNames = 3

// scaffoldBlock matches the first brace-delimited block mentioning the
// canonical_names key, in either quoting style.  The reference-name list uses
// brackets, so a block without nested braces is sufficient.
var scaffoldBlock = regexp.MustCompile(`(?s)\{[^{}]*['"]canonical_names['"][^{}]*\}`)

var codeFence = regexp.MustCompile("(?s)```(?:json)?(.*?)```")

type scaffoldPayload struct {
	CanonicalNames []string `json:"canonical_names"`
}

// ParseScaffoldNames extracts the list of reference compound names from raw
// generative-model output.  The model is asked for a JSON object with a
// canonical_names key, but its output may embed that object in prose, wrap it
// in code fences, or use malformed quoting.  Parsing is two-stage: a strict
// JSON parse of the whole text first, then a bounded extraction of the first
// matching brace block with single-quote repair.  It never fails: anything
// unusable degrades to an empty list.
func ParseScaffoldNames(raw string) []string {
	if raw == "" {
		return nil
	}

	// Code fences are the most common wrapping; unwrap before anything else.
	if m := codeFence.FindStringSubmatch(raw); m != nil {
		raw = m[1]
	}
	raw = strings.TrimSpace(raw)

	if names, ok := tryDecodeNames(raw); ok {
		return names
	}

	block := scaffoldBlock.FindString(raw)
	if block == "" {
		return nil
	}
	if names, ok := tryDecodeNames(block); ok {
		return names
	}
	// Last resort: repair single-quoted pseudo-JSON.
	if names, ok := tryDecodeNames(strings.ReplaceAll(block, "'", `"`)); ok {
		return names
	}
	return nil
}

func tryDecodeNames(s string) ([]string, bool) {
	var payload scaffoldPayload
	if err := json.Unmarshal([]byte(s), &payload); err != nil {
		return nil, false
	}
	return cleanNames(payload.CanonicalNames), true
}

// cleanNames trims, drops empties, deduplicates case-insensitively, and caps
// the list at maxReferenceNames.
func cleanNames(names []string) []string {
	seen := make(map[string]struct{}, len(names))
	out := make([]string, 0, maxReferenceNames)
	for _, name := range names {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		key := strings.ToLower(name)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, name)
		if len(out) == maxReferenceNames {
			break
		}
	}
	return out
}
