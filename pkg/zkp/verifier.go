package zkp

import (
	"fmt"

	"github.com/consensys/gnark-crypto/ecc/bls12-381/fr"
	"github.com/consensys/gnark/backend/groth16"

	"zk-identity/pkg/zkp/circuits"
)

// Verify checks proof against the ordered public inputs of circuit id.
//
// An error means the call could not be evaluated: unknown circuit, a proof that
// is not a valid encoding of curve points, or a public-input count that does
// not fit the circuit. false means a well-formed proof that does not verify
// for these inputs.
func (l *Library) Verify(proof Proof, id circuits.ID, public []fr.Element) (bool, error) {
	keys, ok := l.keys[id]
	if !ok {
		return false, fmt.Errorf("%w: no verifying key for %s", ErrUnsupportedPredicate, id)
	}

	// 1. Structural checks, before any pairing
	points, err := proof.points()
	if err != nil {
		return false, err
	}
	if got, want := len(public), keys.vk.NbPublicWitness(); got != want {
		return false, fmt.Errorf("%w: %s takes %d public inputs, got %d", ErrInvalidParameters, id, want, got)
	}

	// 2. Pairing check
	pub, err := publicWitness(public)
	if err != nil {
		return false, fmt.Errorf("%w: public witness: %v", ErrInvalidParameters, err)
	}
	if err := groth16.Verify(points, keys.vk, pub); err != nil {
		l.log.Debugf("proof for %s rejected: %v", id, err)
		return false, nil
	}
	return true, nil
}
