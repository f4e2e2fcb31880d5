package zkp

import (
	"fmt"
	"io"
	"math/big"
	"sync"

	bls12381 "github.com/consensys/gnark-crypto/ecc/bls12-381"
	"github.com/consensys/gnark-crypto/ecc/bls12-381/fr"
	"github.com/consensys/gnark/backend/groth16"
	groth16_bls12381 "github.com/consensys/gnark/backend/groth16/bls12-381"
)

// prove runs Groth16 on the witness and re-randomizes the result with scalars
// drawn from rnd. The witness is discarded whatever the outcome.
func prove(k *circuitKeys, w *Witness, rnd io.Reader) (Proof, error) {
	defer w.discard()

	if k.pk == nil || k.ccs == nil {
		return Proof{}, fmt.Errorf("%w: no proving key for %s", ErrProving, w.circuit)
	}
	if w.full == nil {
		return Proof{}, fmt.Errorf("%w: witness already used", ErrProving)
	}

	// 1. Prove
	raw, err := groth16.Prove(k.ccs, k.pk, w.full)
	if err != nil {
		return Proof{}, fmt.Errorf("%w: groth16 prove %s: %v", ErrProving, w.circuit, err)
	}
	proof, ok := raw.(*groth16_bls12381.Proof)
	if !ok {
		return Proof{}, fmt.Errorf("%w: unexpected proof type %T", ErrProving, raw)
	}
	pk, ok := k.pk.(*groth16_bls12381.ProvingKey)
	if !ok {
		return Proof{}, fmt.Errorf("%w: unexpected proving key type %T", ErrProving, k.pk)
	}

	// 2. Blind with caller randomness
	if err := rerandomize(proof, &pk.G2.Delta, rnd); err != nil {
		return Proof{}, err
	}

	// 3. Compress
	return encodeProof(proof)
}

// rerandomize maps (A, B, C) to (A/r1, r1·B + r1·r2·δ, C + r2·A), which
// satisfies the same pairing equation for any non-zero r1, r2.
func rerandomize(p *groth16_bls12381.Proof, delta *bls12381.G2Affine, rnd io.Reader) error {
	r1, err := randomScalar(rnd)
	if err != nil {
		return err
	}
	r2, err := randomScalar(rnd)
	if err != nil {
		return err
	}
	order := fr.Modulus()
	r1Inv := new(big.Int).ModInverse(r1, order)
	r1r2 := new(big.Int).Mul(r1, r2)
	r1r2.Mod(r1r2, order)

	var a, aOut, cOut, r2A bls12381.G1Jac
	a.FromAffine(&p.Ar)
	aOut.ScalarMultiplication(&a, r1Inv)
	cOut.FromAffine(&p.Krs)
	r2A.ScalarMultiplication(&a, r2)
	cOut.AddAssign(&r2A)

	var b, bOut, d, dOut bls12381.G2Jac
	b.FromAffine(&p.Bs)
	bOut.ScalarMultiplication(&b, r1)
	d.FromAffine(delta)
	dOut.ScalarMultiplication(&d, r1r2)
	bOut.AddAssign(&dOut)

	p.Ar.FromJacobian(&aOut)
	p.Bs.FromJacobian(&bOut)
	p.Krs.FromJacobian(&cOut)
	return nil
}

// randomScalar reads 48 bytes so the reduction mod r is close to uniform, and
// never returns zero.
func randomScalar(rnd io.Reader) (*big.Int, error) {
	var buf [48]byte
	order := fr.Modulus()
	for {
		if _, err := io.ReadFull(rnd, buf[:]); err != nil {
			return nil, fmt.Errorf("%w: randomness: %v", ErrProving, err)
		}
		s := new(big.Int).SetBytes(buf[:])
		s.Mod(s, order)
		if s.Sign() != 0 {
			return s, nil
		}
	}
}

// randomSalt draws a commitment salt.
func randomSalt(rnd io.Reader) (fr.Element, error) {
	var salt fr.Element
	s, err := randomScalar(rnd)
	if err != nil {
		return salt, err
	}
	salt.SetBigInt(s)
	return salt, nil
}

// lockedReader serializes reads so one caller-supplied source can feed
// concurrent proofs.
type lockedReader struct {
	mu sync.Mutex
	r  io.Reader
}

func (l *lockedReader) Read(p []byte) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.r.Read(p)
}
