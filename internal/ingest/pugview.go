// Package ingest implements the PubChem ingestion pipeline: compound data is
// fetched, the annotated PUG-View document is mined for safety and physical
// properties, a retrieval summary is composed and embedded, and the result is
// written as one index record per compound.
package ingest

import (
	"encoding/json"
	"regexp"
	"strings"
)

// viewSection is the recursive section node of a PUG-View document.
type viewSection struct {
	TOCHeading  string        `json:"TOCHeading"`
	Description string        `json:"Description"`
	Section     []viewSection `json:"Section"`
	Information []viewInfo    `json:"Information"`
}

type viewInfo struct {
	Name  string    `json:"Name"`
	Value viewValue `json:"Value"`
}

type viewValue struct {
	StringWithMarkup []struct {
		String string `json:"String"`
	} `json:"StringWithMarkup"`
	Number []float64 `json:"Number"`
	Unit   string    `json:"Unit"`
}

type viewDocument struct {
	Record struct {
		RecordNumber   int64         `json:"RecordNumber"`
		RecordTitle    string        `json:"RecordTitle"`
		Section        []viewSection `json:"Section"`
		RecordMetadata struct {
			ReleaseDate string `json:"ReleaseDate"`
		} `json:"RecordMetadata"`
	} `json:"Record"`
}

// ViewData is everything the pipeline mines out of one PUG-View document.
type ViewData struct {
	Title        string
	Description  string
	GHSCodes     []string
	FlashPoint   *float64
	LD50         *float64
	Enthalpy     *float64
	Entropy      *float64
	HeatCapacity *float64

	// SpectraSections lists the spectral headings present in the document,
	// e.g. "1D NMR Spectra" or "Mass Spectrometry".
	SpectraSections []string

	ReleaseDate string
}

var ghsCode = regexp.MustCompile(`\b[HP]\d{3}\b`)

// casNumber matches the dash-separated registry number shape among synonyms.
var casNumber = regexp.MustCompile(`^\d+-\d+-\d+$`)

// ParseView extracts the annotated fields from a raw PUG-View document.
func ParseView(raw json.RawMessage) (*ViewData, error) {
	var doc viewDocument
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, err
	}

	secs := doc.Record.Section
	data := &ViewData{
		Title:       doc.Record.RecordTitle,
		ReleaseDate: doc.Record.RecordMetadata.ReleaseDate,
	}

	data.Description = firstString(findSection(secs, "Record Description").Information)
	data.GHSCodes = extractGHSCodes(findSection(secs, "GHS Classification").Information)
	data.FlashPoint = extractNumber(findSection(secs, "Physical Properties").Information, "Flash Point")
	data.LD50 = extractNumber(findSection(secs, "Toxicity").Information, "LD50")

	thermo := findSection(secs, "Thermodynamics").Information
	data.Enthalpy = extractNumber(thermo, "Standard Enthalpy of Formation")
	data.Entropy = extractNumber(thermo, "Standard Molar Entropy")
	data.HeatCapacity = extractNumber(thermo, "Heat Capacity")

	for _, sub := range findSection(secs, "Spectral Information").Section {
		if sub.TOCHeading != "" {
			data.SpectraSections = append(data.SpectraSections, sub.TOCHeading)
		}
	}
	return data, nil
}

// findSection walks the section tree depth-first and returns the first node
// with the given TOCHeading, or a zero section.
func findSection(secs []viewSection, heading string) viewSection {
	for _, sec := range secs {
		if sec.TOCHeading == heading {
			return sec
		}
		if nested := findSection(sec.Section, heading); nested.TOCHeading != "" {
			return nested
		}
	}
	return viewSection{}
}

// extractGHSCodes pulls every H and P code out of the classification strings,
// first occurrence order, deduplicated.
func extractGHSCodes(info []viewInfo) []string {
	var blob strings.Builder
	for _, entry := range info {
		for _, sm := range entry.Value.StringWithMarkup {
			blob.WriteString(sm.String)
			blob.WriteByte(' ')
		}
	}

	seen := make(map[string]struct{})
	var codes []string
	for _, code := range ghsCode.FindAllString(blob.String(), -1) {
		if _, dup := seen[code]; dup {
			continue
		}
		seen[code] = struct{}{}
		codes = append(codes, code)
	}
	return codes
}

// extractNumber returns the first numeric value recorded under the named
// entry, or nil when absent.
func extractNumber(info []viewInfo, name string) *float64 {
	for _, entry := range info {
		if entry.Name != name {
			continue
		}
		if len(entry.Value.Number) > 0 {
			v := entry.Value.Number[0]
			return &v
		}
	}
	return nil
}

// firstString returns the first markup string in the section, for free-text
// sections such as the record description.
func firstString(info []viewInfo) string {
	for _, entry := range info {
		for _, sm := range entry.Value.StringWithMarkup {
			if s := strings.TrimSpace(sm.String); s != "" {
				return s
			}
		}
	}
	return ""
}

// CASFromSynonyms returns the first synonym shaped like a registry number.
func CASFromSynonyms(synonyms []string) string {
	for _, s := range synonyms {
		if casNumber.MatchString(s) {
			return s
		}
	}
	return ""
}
