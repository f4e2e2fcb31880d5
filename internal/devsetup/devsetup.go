// Package devsetup generates throwaway Groth16 keys for tests and local use.
// The toxic waste is produced and dropped inside gnark's Setup, so these keys
// are not the output of a ceremony and must never back production proofs.
package devsetup

import (
	"fmt"
	"sync"

	"github.com/consensys/gnark/backend/groth16"
	"golang.org/x/sync/errgroup"

	"zk-identity/pkg/zkp"
	"zk-identity/pkg/zkp/circuits"
)

const DefaultReferenceYear uint16 = 2024

// Keys holds serialized proving and verifying bundles.
type Keys struct {
	ReferenceYear uint16
	Proving       []byte
	Verifying     []byte
}

type circuitSetup struct {
	pk groth16.ProvingKey
	vk groth16.VerifyingKey
}

// Generate runs a local setup for the given circuits, or for all of them when
// none are named.
func Generate(referenceYear uint16, ids ...circuits.ID) (*Keys, error) {
	if len(ids) == 0 {
		ids = circuits.All
	}

	setups := make([]circuitSetup, len(ids))
	var g errgroup.Group
	for i, id := range ids {
		g.Go(func() error {
			ccs, err := circuits.Compile(id)
			if err != nil {
				return err
			}
			pk, vk, err := groth16.Setup(ccs)
			if err != nil {
				return fmt.Errorf("setup %s: %w", id, err)
			}
			setups[i] = circuitSetup{pk: pk, vk: vk}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	proving := zkp.NewKeyBundle(zkp.ProvingKeyKind, referenceYear)
	verifying := zkp.NewKeyBundle(zkp.VerifyingKeyKind, referenceYear)
	for i, id := range ids {
		if err := proving.Add(id, setups[i].pk); err != nil {
			return nil, err
		}
		if err := verifying.Add(id, setups[i].vk); err != nil {
			return nil, err
		}
	}

	pkBytes, err := proving.MarshalBinary()
	if err != nil {
		return nil, fmt.Errorf("encode proving bundle: %w", err)
	}
	vkBytes, err := verifying.MarshalBinary()
	if err != nil {
		return nil, fmt.Errorf("encode verifying bundle: %w", err)
	}
	return &Keys{ReferenceYear: referenceYear, Proving: pkBytes, Verifying: vkBytes}, nil
}

var (
	sharedOnce sync.Once
	shared     *Keys
	sharedErr  error
)

// Shared returns keys for every circuit at DefaultReferenceYear, generated once
// per process.
func Shared() (*Keys, error) {
	sharedOnce.Do(func() {
		shared, sharedErr = Generate(DefaultReferenceYear)
	})
	return shared, sharedErr
}
