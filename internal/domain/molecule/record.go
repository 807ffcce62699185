package molecule

import (
	"encoding/json"

	"github.com/robotu/molkit/pkg/errors"
)

// Record is one indexed compound: the metadata unit attached to a single
// vector in the index.  Records are loaded once from a line-delimited JSON
// file and held immutably in memory for the process lifetime.
//
// The typed fields cover the identifiers and the structural payload; every
// scalar field of the source line (including the typed ones) is additionally
// retained in Meta so that metadata filters can reference an open set of
// fields without schema changes.
type Record struct {
	// CID is the PubChem compound identifier, the primary key.
	CID int64

	// Name is the preferred display name, when known.
	Name string

	// SMILES is the canonical SMILES string, when known.
	SMILES string

	// FingerprintBits is the sparse representation of the compound's binary
	// fingerprint: the ordered list of set-bit indices.
	FingerprintBits []int

	// Vector is the text-embedding vector the index searches over.
	Vector []float32

	// Meta holds every non-structural field of the source line, keyed by
	// field name, for metadata filtering.  Numbers arrive as float64 and
	// strings as string, per encoding/json defaults.
	Meta map[string]interface{}
}

// recordLine mirrors the JSONL wire format produced by ingestion.
type recordLine struct {
	CID    int64     `json:"cid"`
	Name   string    `json:"name,omitempty"`
	SMILES string    `json:"smiles,omitempty"`
	Vector []float32 `json:"vector"`
	ECFP   []int     `json:"ecfp,omitempty"`
}

// DecodeRecord parses one JSONL line into a Record.  The vector field is
// required; everything else is optional metadata.
func DecodeRecord(line []byte) (*Record, error) {
	var typed recordLine
	if err := json.Unmarshal(line, &typed); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeSerialization, "malformed record line")
	}
	if len(typed.Vector) == 0 {
		return nil, errors.New(errors.ErrCodeSerialization, "record line has no vector field")
	}

	var raw map[string]interface{}
	if err := json.Unmarshal(line, &raw); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeSerialization, "malformed record line")
	}
	// The structural payload is not filterable metadata.
	delete(raw, "vector")
	delete(raw, "ecfp")

	return &Record{
		CID:             typed.CID,
		Name:            typed.Name,
		SMILES:          typed.SMILES,
		FingerprintBits: typed.ECFP,
		Vector:          typed.Vector,
		Meta:            raw,
	}, nil
}

// EncodeRecord serializes a Record back into its JSONL wire form.  Meta
// fields are emitted alongside the typed ones; typed fields win on conflict.
func EncodeRecord(r *Record) ([]byte, error) {
	out := make(map[string]interface{}, len(r.Meta)+4)
	for k, v := range r.Meta {
		out[k] = v
	}
	out["cid"] = r.CID
	if r.Name != "" {
		out["name"] = r.Name
	}
	if r.SMILES != "" {
		out["smiles"] = r.SMILES
	}
	out["vector"] = r.Vector
	if len(r.FingerprintBits) > 0 {
		out["ecfp"] = r.FingerprintBits
	}
	b, err := json.Marshal(out)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeSerialization, "record encode")
	}
	return b, nil
}

// Fingerprint reconstructs the dense bit vector from the sparse stored form.
func (r *Record) Fingerprint(width int) BitVector {
	return BitsFromIndices(r.FingerprintBits, width)
}

// HasFingerprint reports whether the record carries any stored fingerprint.
func (r *Record) HasFingerprint() bool {
	return len(r.FingerprintBits) > 0
}
