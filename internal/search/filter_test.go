package search

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/robotu/molkit/internal/domain/molecule"
	"github.com/robotu/molkit/pkg/errors"
)

func metaRecord(meta map[string]interface{}) *molecule.Record {
	return &molecule.Record{CID: 1, Meta: meta}
}

func TestFilter_EmptyPassesEverything(t *testing.T) {
	rec := metaRecord(nil)
	assert.True(t, Filter{}.Passes(rec))
	assert.True(t, Filter(nil).Passes(rec))
}

func TestFilter_Range(t *testing.T) {
	f := Filter{"mw": Range(100, 200)}

	assert.True(t, f.Passes(metaRecord(map[string]interface{}{"mw": 150.0})))
	assert.True(t, f.Passes(metaRecord(map[string]interface{}{"mw": 100.0})), "bounds are inclusive")
	assert.True(t, f.Passes(metaRecord(map[string]interface{}{"mw": 200.0})))
	assert.False(t, f.Passes(metaRecord(map[string]interface{}{"mw": 99.9})))
	assert.False(t, f.Passes(metaRecord(map[string]interface{}{"mw": 200.1})))
}

func TestFilter_MissingFieldFails(t *testing.T) {
	f := Filter{"mw": Range(0, 1000)}
	assert.False(t, f.Passes(metaRecord(map[string]interface{}{"logp": 1.2})))
	assert.False(t, f.Passes(metaRecord(nil)))
	assert.False(t, f.Passes(metaRecord(map[string]interface{}{"mw": nil})))
}

func TestFilter_AnyOf(t *testing.T) {
	f := Filter{"hazard_tag": AnyOf("low", "moderate")}
	assert.True(t, f.Passes(metaRecord(map[string]interface{}{"hazard_tag": "low"})))
	assert.False(t, f.Passes(metaRecord(map[string]interface{}{"hazard_tag": "high"})))
}

func TestFilter_Equals(t *testing.T) {
	f := Filter{"solubility_tag": Equals("poorly soluble")}
	assert.True(t, f.Passes(metaRecord(map[string]interface{}{"solubility_tag": "poorly soluble"})))
	assert.False(t, f.Passes(metaRecord(map[string]interface{}{"solubility_tag": "very soluble"})))
}

func TestFilter_NumericLooseEquality(t *testing.T) {
	// JSON decodes numbers as float64; a caller-supplied int must still match.
	f := Filter{"charge": Equals(0)}
	assert.True(t, f.Passes(metaRecord(map[string]interface{}{"charge": 0.0})))
	assert.False(t, f.Passes(metaRecord(map[string]interface{}{"charge": 1.0})))
}

func TestFilter_AndSemantics(t *testing.T) {
	f := Filter{
		"mw":         Range(100, 300),
		"hazard_tag": Equals("low"),
	}
	assert.True(t, f.Passes(metaRecord(map[string]interface{}{"mw": 194.19, "hazard_tag": "low"})))
	assert.False(t, f.Passes(metaRecord(map[string]interface{}{"mw": 194.19, "hazard_tag": "high"})))
	assert.False(t, f.Passes(metaRecord(map[string]interface{}{"mw": 500.0, "hazard_tag": "low"})))
}

func TestParseFilterJSON(t *testing.T) {
	f, err := ParseFilterJSON(`{"mw": {"min": 100, "max": 200}, "hazard_tag": ["low", "moderate"], "xlogp": 1.2}`)
	require.NoError(t, err)
	require.Len(t, f, 3)

	assert.True(t, f.Passes(metaRecord(map[string]interface{}{
		"mw": 150.0, "hazard_tag": "low", "xlogp": 1.2,
	})))
	assert.False(t, f.Passes(metaRecord(map[string]interface{}{
		"mw": 150.0, "hazard_tag": "high", "xlogp": 1.2,
	})))
}

func TestParseFilterJSON_Empty(t *testing.T) {
	f, err := ParseFilterJSON("")
	require.NoError(t, err)
	assert.Empty(t, f)

	f, err = ParseFilterJSON("{}")
	require.NoError(t, err)
	assert.Empty(t, f)
}

func TestParseFilterJSON_Errors(t *testing.T) {
	cases := []struct {
		name string
		raw  string
	}{
		{"not json", "nope"},
		{"top level array", `["mw"]`},
		{"inverted range", `{"mw": {"min": 200, "max": 100}}`},
		{"object without bounds", `{"mw": {"around": 150}}`},
		{"empty set", `{"tag": []}`},
		{"null condition", `{"tag": null}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ParseFilterJSON(tc.raw)
			require.Error(t, err)
			assert.True(t, errors.IsCode(err, errors.ErrCodeFilterInvalid))
		})
	}
}
