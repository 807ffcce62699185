package molecule

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeRecord(t *testing.T) {
	line := []byte(`{"cid":2519,"name":"caffeine","smiles":"CN1C=NC2=C1C(=O)N(C(=O)N2C)C",` +
		`"molecular_weight":194.19,"solubility_tag":"soluble","vector":[0.1,0.2,0.3],"ecfp":[1,5,9]}`)

	rec, err := DecodeRecord(line)
	require.NoError(t, err)

	assert.Equal(t, int64(2519), rec.CID)
	assert.Equal(t, "caffeine", rec.Name)
	assert.Equal(t, []float32{0.1, 0.2, 0.3}, rec.Vector)
	assert.Equal(t, []int{1, 5, 9}, rec.FingerprintBits)
	assert.True(t, rec.HasFingerprint())

	// Meta keeps scalar fields for filtering but never the structural payload.
	assert.Equal(t, 194.19, rec.Meta["molecular_weight"])
	assert.Equal(t, "soluble", rec.Meta["solubility_tag"])
	assert.NotContains(t, rec.Meta, "vector")
	assert.NotContains(t, rec.Meta, "ecfp")
}

func TestDecodeRecord_Errors(t *testing.T) {
	_, err := DecodeRecord([]byte(`{not json`))
	assert.Error(t, err)

	_, err = DecodeRecord([]byte(`{"cid":1,"name":"no vector"}`))
	assert.Error(t, err)
}

func TestEncodeRecord_RoundTrip(t *testing.T) {
	rec := &Record{
		CID:             5957,
		Name:            "adenosine triphosphate",
		SMILES:          "c1nc(c2c(n1)n(cn2)C3C(C(C(O3)COP(=O)(O)OP(=O)(O)OP(=O)(O)O)O)O)N",
		FingerprintBits: []int{3, 17, 200},
		Vector:          []float32{1, 0, 0},
		Meta:            map[string]interface{}{"solubility_tag": "very soluble"},
	}

	line, err := EncodeRecord(rec)
	require.NoError(t, err)

	back, err := DecodeRecord(line)
	require.NoError(t, err)
	assert.Equal(t, rec.CID, back.CID)
	assert.Equal(t, rec.Name, back.Name)
	assert.Equal(t, rec.FingerprintBits, back.FingerprintBits)
	assert.Equal(t, rec.Vector, back.Vector)
	assert.Equal(t, "very soluble", back.Meta["solubility_tag"])
}

func TestRecord_Fingerprint(t *testing.T) {
	rec := &Record{FingerprintBits: []int{0, 2, 4096}}
	fp := rec.Fingerprint(16)
	assert.Equal(t, 2, fp.OnBits()) // 4096 out of range, dropped
	assert.True(t, fp.Get(0))
	assert.True(t, fp.Get(2))
}
