package ingest

import (
	"fmt"
	"strings"
)

// Hazard tag values, derived from GHS classification codes.  H3xx codes mark
// acute toxicity and dominate; H2xx codes mark physical hazards.
const (
	HazardHigh     = "high hazard"
	HazardModerate = "moderate hazard"
	HazardLow      = "low hazard"
	HazardNone     = "no known hazard"
)

// Solubility tag values, derived from the octanol-water partition
// coefficient.
const (
	SolubilityVery     = "very soluble"
	SolubilityModerate = "moderately soluble"
	SolubilityPoor     = "poorly soluble"
	SolubilityUnknown  = "unknown solubility"
)

// HazardTag classifies a compound by its worst GHS code class.
func HazardTag(ghsCodes []string) string {
	var h2 bool
	var any bool
	for _, code := range ghsCodes {
		any = true
		switch {
		case strings.HasPrefix(code, "H3"):
			return HazardHigh
		case strings.HasPrefix(code, "H2"):
			h2 = true
		}
	}
	switch {
	case h2:
		return HazardModerate
	case any:
		return HazardLow
	default:
		return HazardNone
	}
}

// SolubilityTag buckets a compound by logP.  Thresholds follow the usual
// medicinal chemistry rule of thumb: negative logP compounds dissolve
// readily, logP above 3 marks lipophilic, poorly soluble compounds.
func SolubilityTag(logP *float64) string {
	switch {
	case logP == nil:
		return SolubilityUnknown
	case *logP < -0.5:
		return SolubilityVery
	case *logP <= 3:
		return SolubilityModerate
	default:
		return SolubilityPoor
	}
}

// BuildSummary composes the retrieval text that gets embedded for semantic
// search.  It front-loads the name and tags so short queries land near it in
// embedding space, then appends the curated description when one exists.
func BuildSummary(name string, cid int64, formula string, weight string, hazardTag, solubilityTag, description string) string {
	var b strings.Builder
	if name == "" {
		name = "Unknown compound"
	}
	fmt.Fprintf(&b, "%s (CID %d)", name, cid)
	if formula != "" {
		fmt.Fprintf(&b, ", molecular formula %s", formula)
	}
	if weight != "" {
		fmt.Fprintf(&b, ", molecular weight %s", weight)
	}
	fmt.Fprintf(&b, ". %s, %s.", capitalize(solubilityTag), hazardTag)
	if description != "" {
		b.WriteByte(' ')
		b.WriteString(description)
	}
	return b.String()
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
