package zkp

import (
	"encoding/hex"
	"fmt"

	bls12381 "github.com/consensys/gnark-crypto/ecc/bls12-381"
	groth16_bls12381 "github.com/consensys/gnark/backend/groth16/bls12-381"
)

const (
	g1Size = bls12381.SizeOfG1AffineCompressed
	g2Size = bls12381.SizeOfG2AffineCompressed

	// ProofSize is the length of a serialized proof: A (G1) || B (G2) || C (G1),
	// each point in compressed form.
	ProofSize = 2*g1Size + g2Size
)

// Proof is a compressed Groth16 proof over BLS12-381.
//
// Layout, big-endian throughout:
//
//	[0:48]    A, G1 x coordinate
//	[48:144]  B, G2 x coordinate as x.A1 || x.A0
//	[144:192] C, G1 x coordinate
//
// The three most significant bits of each point's first byte are flags:
// 0x80 compressed (always set), 0x40 point at infinity, 0x20 y is the
// lexicographically largest root.
type Proof [ProofSize]byte

// ParseProof checks length, curve membership, subgroup membership and that no
// point is the identity.
func ParseProof(b []byte) (Proof, error) {
	var p Proof
	if len(b) != ProofSize {
		return p, fmt.Errorf("%w: %d bytes, want %d", ErrMalformedProof, len(b), ProofSize)
	}
	copy(p[:], b)
	if _, err := p.points(); err != nil {
		return Proof{}, err
	}
	return p, nil
}

// Bytes returns a copy of the serialized proof.
func (p Proof) Bytes() []byte {
	out := make([]byte, ProofSize)
	copy(out, p[:])
	return out
}

func (p Proof) String() string {
	return hex.EncodeToString(p[:])
}

// points decodes the proof into gnark's representation.
func (p Proof) points() (*groth16_bls12381.Proof, error) {
	var out groth16_bls12381.Proof
	if _, err := out.Ar.SetBytes(p[:g1Size]); err != nil {
		return nil, fmt.Errorf("%w: A: %v", ErrMalformedProof, err)
	}
	if _, err := out.Bs.SetBytes(p[g1Size : g1Size+g2Size]); err != nil {
		return nil, fmt.Errorf("%w: B: %v", ErrMalformedProof, err)
	}
	if _, err := out.Krs.SetBytes(p[g1Size+g2Size:]); err != nil {
		return nil, fmt.Errorf("%w: C: %v", ErrMalformedProof, err)
	}
	if out.Ar.IsInfinity() || out.Bs.IsInfinity() || out.Krs.IsInfinity() {
		return nil, fmt.Errorf("%w: point at infinity", ErrMalformedProof)
	}
	return &out, nil
}

func encodeProof(src *groth16_bls12381.Proof) (Proof, error) {
	var p Proof
	if len(src.Commitments) != 0 {
		return p, fmt.Errorf("%w: proof carries %d commitments", ErrProving, len(src.Commitments))
	}
	a := src.Ar.Bytes()
	b := src.Bs.Bytes()
	c := src.Krs.Bytes()
	copy(p[:g1Size], a[:])
	copy(p[g1Size:g1Size+g2Size], b[:])
	copy(p[g1Size+g2Size:], c[:])
	return p, nil
}
