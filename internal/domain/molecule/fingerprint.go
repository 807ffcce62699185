// Package molecule provides the molecule record schema and binary-fingerprint
// math used by the hybrid retrieval pipeline.  Fingerprints encode molecular
// structure as fixed-width bit vectors, enabling Tanimoto similarity scoring
// during structure-refined search.
package molecule

import (
	"crypto/sha256"
	"encoding/binary"
	"math/bits"
	"regexp"
	"strconv"

	"github.com/robotu/molkit/pkg/errors"
)

// BitVector is a fixed-width packed bit vector.  Bit i lives in byte i/8 at
// position i%8.
type BitVector struct {
	bits  []byte
	width int
}

// NewBitVector returns an all-zero BitVector of the given width.
func NewBitVector(width int) BitVector {
	if width < 0 {
		width = 0
	}
	return BitVector{
		bits:  make([]byte, (width+7)/8),
		width: width,
	}
}

// BitsFromIndices builds a BitVector of the given width with each listed bit
// set.  Indices outside [0, width) are silently ignored.
func BitsFromIndices(indices []int, width int) BitVector {
	v := NewBitVector(width)
	for _, idx := range indices {
		v.Set(idx)
	}
	return v
}

// Width returns the fixed number of bits.
func (v BitVector) Width() int { return v.width }

// Set sets bit idx.  Out-of-range indices are ignored.
func (v BitVector) Set(idx int) {
	if idx < 0 || idx >= v.width {
		return
	}
	v.bits[idx/8] |= 1 << uint(idx%8)
}

// Get reports whether bit idx is set.  Out-of-range indices read as false.
func (v BitVector) Get(idx int) bool {
	if idx < 0 || idx >= v.width {
		return false
	}
	return v.bits[idx/8]&(1<<uint(idx%8)) != 0
}

// OnBits returns the popcount.
func (v BitVector) OnBits() int {
	n := 0
	for _, b := range v.bits {
		n += bits.OnesCount8(b)
	}
	return n
}

// Indices returns the sorted sparse representation: every set bit index.
func (v BitVector) Indices() []int {
	out := make([]int, 0, v.OnBits())
	for i := 0; i < v.width; i++ {
		if v.Get(i) {
			out = append(out, i)
		}
	}
	return out
}

// Tanimoto returns |a∩b| / |a∪b| over the two bit vectors.  An empty union
// (both vectors all-zero) is defined as 0.0 rather than an error, so that
// edge-case empty fingerprints never abort a search.  The result is symmetric
// and always in [0, 1].
//
// Vectors of different widths are compared over the longer width; the shorter
// vector's missing bits read as zero.
func Tanimoto(a, b BitVector) float64 {
	long, short := a.bits, b.bits
	if len(short) > len(long) {
		long, short = short, long
	}

	intersection, union := 0, 0
	for i, lb := range long {
		var sb byte
		if i < len(short) {
			sb = short[i]
		}
		intersection += bits.OnesCount8(lb & sb)
		union += bits.OnesCount8(lb | sb)
	}
	if union == 0 {
		return 0.0
	}
	return float64(intersection) / float64(union)
}

// ─────────────────────────────────────────────────────────────────────────────
// Morgan (circular) fingerprint
// ─────────────────────────────────────────────────────────────────────────────

// smilesAtomPattern strips bond symbols, ring-closure digits, and brackets so
// that only element characters remain for the simplified atom walk.
var smilesAtomPattern = regexp.MustCompile(`[\[\]0-9\-=#/\\()+.@]`)

// MorganFingerprint computes a simplified Morgan (circular) fingerprint from
// a SMILES string by hashing atom-centered environments at each radius level
// into a bit vector.  It is the local fallback used by ingestion when no
// externally computed ECFP is available; a cheminformatics toolkit would be
// used for production-grade fingerprints.
func MorganFingerprint(smiles string, radius, nBits int) (BitVector, error) {
	if smiles == "" {
		return BitVector{}, errors.InvalidParam("SMILES string cannot be empty")
	}
	if radius < 0 {
		radius = 2
	}
	if nBits <= 0 {
		nBits = 2048
	}

	atoms := parseSMILESAtoms(smiles)
	if len(atoms) == 0 {
		return BitVector{}, errors.New(errors.ErrCodeFingerprintInvalid, "no atoms found in SMILES")
	}

	v := NewBitVector(nBits)
	for i, atom := range atoms {
		for r := 0; r <= radius; r++ {
			v.Set(int(hashEnvironment(atom, r, i) % uint64(nBits)))
		}
	}
	return v, nil
}

// parseSMILESAtoms extracts individual atom symbols from a SMILES string.
// Two-letter organic-subset elements are kept together; everything else is
// treated as single-character atoms.
func parseSMILESAtoms(smiles string) []string {
	cleaned := smilesAtomPattern.ReplaceAllString(smiles, "")
	atoms := make([]string, 0, len(cleaned))
	for i := 0; i < len(cleaned); i++ {
		ch := cleaned[i]
		if ch >= 'A' && ch <= 'Z' {
			// Cl and Br are the two-letter elements of the organic subset.
			if i+1 < len(cleaned) && (cleaned[i:i+2] == "Cl" || cleaned[i:i+2] == "Br") {
				atoms = append(atoms, cleaned[i:i+2])
				i++
				continue
			}
			atoms = append(atoms, string(ch))
		} else if ch >= 'a' && ch <= 'z' {
			// Lower case marks aromatic atoms in SMILES.
			atoms = append(atoms, string(ch))
		}
	}
	return atoms
}

// hashEnvironment hashes an atom's local environment descriptor.
func hashEnvironment(atom string, radius, position int) uint64 {
	data := atom + ":" + strconv.Itoa(radius) + ":" + strconv.Itoa(position)
	sum := sha256.Sum256([]byte(data))
	return binary.BigEndian.Uint64(sum[:8])
}
