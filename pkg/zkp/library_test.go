package zkp_test

import (
	"context"
	"errors"
	"math/rand"
	"sync"
	"testing"
	"testing/iotest"

	"github.com/consensys/gnark-crypto/ecc/bls12-381/fr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"zk-identity/internal/devsetup"
	"zk-identity/pkg/zkp"
	"zk-identity/pkg/zkp/circuits"
)

var (
	libOnce sync.Once
	lib     *zkp.Library
	libErr  error
)

func library(t *testing.T) *zkp.Library {
	t.Helper()
	if testing.Short() {
		t.Skip("groth16 setup is slow")
	}
	libOnce.Do(func() {
		keys, err := devsetup.Shared()
		if err != nil {
			libErr = err
			return
		}
		lib, libErr = zkp.Initialize(keys.Proving, keys.Verifying)
	})
	require.NoError(t, libErr)
	return lib
}

func sharedKeys(t *testing.T) *devsetup.Keys {
	t.Helper()
	library(t)
	keys, err := devsetup.Shared()
	require.NoError(t, err)
	return keys
}

func alice() zkp.RawIdentity {
	return zkp.RawIdentity{Name: "Alice Smith", BirthYear: 1990, City: "Austin", State: "TX", Gender: "female"}
}

func TestAliceScenario(t *testing.T) {
	l := library(t)
	assert.Equal(t, uint16(2024), l.ReferenceYear())

	h, err := l.ProveIdentity(context.Background(), "Alice Smith", 1990, "Austin", "TX", "female")
	require.NoError(t, err)

	ok, err := h.Verify(zkp.IsAdult)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = h.Verify(zkp.IsFemale)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = h.Verify(zkp.IsInAgeRange, "21", "65")
	require.NoError(t, err)
	assert.True(t, ok)

	assert.Equal(t, 192, h.SizeBytes())
	year, disclosed := h.BirthYear()
	assert.True(t, disclosed)
	assert.Equal(t, 1990, year)
}

func TestProfileHandleAnswers(t *testing.T) {
	l := library(t)
	h, err := l.Prove(context.Background(), alice())
	require.NoError(t, err)

	tests := []struct {
		typ    zkp.VerificationType
		params []string
		want   bool
	}{
		{zkp.IsMinor, nil, false},
		{zkp.IsMale, nil, false},
		{zkp.IsInAgeRange, []string{"35", "65"}, false},
		{zkp.IsInAgeRange, []string{"18", "34"}, true},
	}
	for _, tc := range tests {
		ok, err := h.Verify(tc.typ, tc.params...)
		require.NoError(t, err, tc.typ.String())
		assert.Equal(t, tc.want, ok, "%s %v", tc.typ, tc.params)
	}

	_, err = h.Verify(zkp.IsInAgeRange, "34", "34")
	assert.ErrorIs(t, err, zkp.ErrInvalidParameters)

	_, err = h.Verify(zkp.IsInState, "TX")
	assert.ErrorIs(t, err, zkp.ErrPredicateMismatch)
	_, err = h.Verify(zkp.IsInCity, "Austin")
	assert.ErrorIs(t, err, zkp.ErrPredicateMismatch)
}

func TestMinorCannotProveAdulthood(t *testing.T) {
	l := library(t)
	raw := alice()
	raw.BirthYear = 2010

	_, err := l.Prove(context.Background(), raw)
	assert.ErrorIs(t, err, zkp.ErrUnsatisfiedPredicate)

	_, err = l.ProvePredicate(context.Background(), raw, zkp.Adult())
	assert.ErrorIs(t, err, zkp.ErrUnsatisfiedPredicate)

	h, err := l.ProvePredicate(context.Background(), raw, zkp.Minor())
	require.NoError(t, err)
	ok, err := h.Verify(zkp.IsMinor)
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = h.Verify(zkp.IsAdult)
	require.NoError(t, err)
	assert.False(t, ok)
	_, disclosed := h.BirthYear()
	assert.False(t, disclosed)
}

func TestAgeRangeBindsBounds(t *testing.T) {
	l := library(t)
	h, err := l.ProvePredicate(context.Background(), alice(), zkp.InAgeRange(25, 40))
	require.NoError(t, err)

	ok, err := h.Verify(zkp.IsInAgeRange, "25", "40")
	require.NoError(t, err)
	assert.True(t, ok)

	// Wider bounds that also contain the age still fail: the proof is bound to
	// the bounds it was generated for.
	ok, err = h.Verify(zkp.IsInAgeRange, "21", "65")
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = h.Verify(zkp.IsInAgeRange, "35", "50")
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = l.ProvePredicate(context.Background(), alice(), zkp.InAgeRange(35, 50))
	assert.ErrorIs(t, err, zkp.ErrUnsatisfiedPredicate)
}

func TestPredicateMismatch(t *testing.T) {
	l := library(t)
	h, err := l.ProvePredicate(context.Background(), alice(), zkp.Adult())
	require.NoError(t, err)

	ok, err := h.Verify(zkp.IsAdult)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = h.Verify(zkp.IsInState, "TX")
	assert.ErrorIs(t, err, zkp.ErrPredicateMismatch)
	assert.False(t, ok)

	_, err = h.Verify(zkp.IsFemale)
	assert.ErrorIs(t, err, zkp.ErrPredicateMismatch)

	_, err = h.Verify(zkp.VerificationType(99))
	assert.ErrorIs(t, err, zkp.ErrUnsupportedPredicate)
}

func TestDisclosurePredicates(t *testing.T) {
	l := library(t)
	handles, err := l.ProvePredicates(context.Background(), alice(),
		zkp.Female(), zkp.InState("tx"), zkp.InCity(" AUSTIN"))
	require.NoError(t, err)
	require.Len(t, handles, 3)

	gender, state, city := handles[0], handles[1], handles[2]
	c0 := gender.Commitment()
	for _, h := range handles[1:] {
		c := h.Commitment()
		assert.True(t, c0.Equal(&c), "handles from one call share the commitment")
	}

	check := func(h *zkp.IdentityHandle, typ zkp.VerificationType, want bool, params ...string) {
		t.Helper()
		ok, err := h.Verify(typ, params...)
		require.NoError(t, err)
		assert.Equal(t, want, ok, "%s %v", typ, params)
	}
	check(gender, zkp.IsFemale, true)
	check(gender, zkp.IsMale, false)
	check(state, zkp.IsInState, true, "TX")
	check(state, zkp.IsInState, false, "CA")
	check(city, zkp.IsInCity, true, "austin")
	check(city, zkp.IsInCity, false, "Dallas")

	_, err = state.Verify(zkp.IsInState, "Texas")
	assert.ErrorIs(t, err, zkp.ErrInvalidParameters)

	_, err = l.ProvePredicates(context.Background(), alice(), zkp.Female(), zkp.InState("CA"))
	assert.ErrorIs(t, err, zkp.ErrUnsatisfiedPredicate)
}

func TestProofsAreFreshlyBlinded(t *testing.T) {
	l := library(t)
	a, err := l.Prove(context.Background(), alice())
	require.NoError(t, err)
	b, err := l.Prove(context.Background(), alice())
	require.NoError(t, err)

	assert.NotEqual(t, a.Proof(), b.Proof())
	ca, cb := a.Commitment(), b.Commitment()
	assert.False(t, ca.Equal(&cb), "salt is fresh per call")
	assert.NotEqual(t, a.ID(), b.ID())
}

func TestProofSerializationRoundTrip(t *testing.T) {
	l := library(t)
	h, err := l.Prove(context.Background(), alice())
	require.NoError(t, err)

	raw := h.Proof().Bytes()
	require.Len(t, raw, zkp.ProofSize)
	parsed, err := zkp.ParseProof(raw)
	require.NoError(t, err)
	assert.Equal(t, raw, parsed.Bytes())

	public, err := h.PublicInputs()
	require.NoError(t, err)
	ok, err := l.Verify(parsed, circuits.Profile, public)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestTamperedProofNeverVerifies(t *testing.T) {
	l := library(t)
	h, err := l.ProvePredicate(context.Background(), alice(), zkp.Adult())
	require.NoError(t, err)
	public, err := h.PublicInputs()
	require.NoError(t, err)

	original := h.Proof().Bytes()
	for i := range original {
		tampered := make([]byte, len(original))
		copy(tampered, original)
		tampered[i] ^= 0x01

		p, err := zkp.ParseProof(tampered)
		if err != nil {
			assert.ErrorIs(t, err, zkp.ErrMalformedProof, "byte %d", i)
			continue
		}
		ok, err := l.Verify(p, circuits.Adult, public)
		if err != nil {
			assert.ErrorIs(t, err, zkp.ErrMalformedProof, "byte %d", i)
			continue
		}
		assert.False(t, ok, "tampered byte %d verified", i)
	}
}

func TestVerifyInputErrors(t *testing.T) {
	l := library(t)
	h, err := l.ProvePredicate(context.Background(), alice(), zkp.Adult())
	require.NoError(t, err)
	public, err := h.PublicInputs()
	require.NoError(t, err)

	_, err = l.Verify(h.Proof(), circuits.Adult, public[:1])
	assert.ErrorIs(t, err, zkp.ErrInvalidParameters)

	_, err = l.Verify(h.Proof(), circuits.ID(77), public)
	assert.ErrorIs(t, err, zkp.ErrUnsupportedPredicate)

	ok, err := l.Verify(h.Proof(), circuits.Minor, public)
	require.NoError(t, err)
	assert.False(t, ok, "proof checked against another circuit's key")
}

func TestProveWitnessDirectly(t *testing.T) {
	l := library(t)
	attrs, err := zkp.Encode(alice())
	require.NoError(t, err)
	var salt fr.Element
	salt.SetUint64(42)

	w, err := zkp.BuildWitness(attrs, zkp.InState("TX"), l.ReferenceYear(), salt)
	require.NoError(t, err)
	assert.Equal(t, circuits.State, w.Circuit())
	public, err := w.PublicInputs()
	require.NoError(t, err)

	proof, err := l.ProveWitness(context.Background(), w)
	require.NoError(t, err)
	ok, err := l.Verify(proof, circuits.State, public)
	require.NoError(t, err)
	assert.True(t, ok)

	_, err = l.ProveWitness(context.Background(), w)
	assert.ErrorIs(t, err, zkp.ErrProving, "witness is single use")
}

func TestHandleExportImport(t *testing.T) {
	l := library(t)
	h, err := l.ProvePredicate(context.Background(), alice(), zkp.InAgeRange(30, 40))
	require.NoError(t, err)

	data, err := h.MarshalBinary()
	require.NoError(t, err)

	verifier, err := zkp.InitializeVerifier(sharedKeys(t).Verifying)
	require.NoError(t, err)
	imported, err := verifier.ImportHandle(data)
	require.NoError(t, err)

	assert.Equal(t, h.ID(), imported.ID())
	assert.Equal(t, h.Proof(), imported.Proof())
	assert.Equal(t, circuits.AgeRange, imported.Circuit())

	ok, err := imported.Verify(zkp.IsInAgeRange, "30", "40")
	require.NoError(t, err)
	assert.True(t, ok)

	_, err = verifier.ImportHandle(data[:len(data)-5])
	assert.ErrorIs(t, err, zkp.ErrMalformedProof)
	_, err = verifier.ImportHandle([]byte{9})
	assert.ErrorIs(t, err, zkp.ErrMalformedProof)
}

func TestReferenceYearIsPinned(t *testing.T) {
	l := library(t)
	h, err := l.ProvePredicate(context.Background(), alice(), zkp.Adult())
	require.NoError(t, err)
	data, err := h.MarshalBinary()
	require.NoError(t, err)

	bundle, err := zkp.ParseKeyBundle(sharedKeys(t).Verifying)
	require.NoError(t, err)
	bundle.ReferenceYear = 2030
	vk2030, err := bundle.MarshalBinary()
	require.NoError(t, err)

	other, err := zkp.InitializeVerifier(vk2030)
	require.NoError(t, err)
	imported, err := other.ImportHandle(data)
	require.NoError(t, err)

	_, err = imported.Verify(zkp.IsAdult)
	assert.ErrorIs(t, err, zkp.ErrPredicateMismatch)

	_, err = zkp.Initialize(sharedKeys(t).Proving, vk2030)
	assert.ErrorIs(t, err, zkp.ErrKeyFormat)
}

func TestVerifierOnlyLibrary(t *testing.T) {
	verifier, err := zkp.InitializeVerifier(sharedKeys(t).Verifying)
	require.NoError(t, err)
	assert.False(t, verifier.CanProve())

	_, err = verifier.Prove(context.Background(), alice())
	assert.ErrorIs(t, err, zkp.ErrProving)
	_, err = verifier.ProvePredicate(context.Background(), alice(), zkp.Female())
	assert.ErrorIs(t, err, zkp.ErrProving)
}

func TestInitializeErrors(t *testing.T) {
	keys := sharedKeys(t)

	_, err := zkp.Initialize(nil, keys.Verifying)
	assert.ErrorIs(t, err, zkp.ErrKeyFormat)

	_, err = zkp.Initialize(keys.Verifying, keys.Proving)
	assert.ErrorIs(t, err, zkp.ErrKeyFormat, "bundles swapped")

	_, err = zkp.InitializeVerifier(keys.Proving)
	assert.ErrorIs(t, err, zkp.ErrKeyFormat)

	_, err = zkp.Initialize(keys.Proving, keys.Verifying[:len(keys.Verifying)/2])
	assert.ErrorIs(t, err, zkp.ErrKeyFormat)

	// A verifying key moved under another circuit no longer fits its layout.
	bundle, err := zkp.ParseKeyBundle(keys.Verifying)
	require.NoError(t, err)
	bundle.Keys[circuits.AgeRange] = bundle.Keys[circuits.Adult]
	swapped, err := bundle.MarshalBinary()
	require.NoError(t, err)
	_, err = zkp.InitializeVerifier(swapped)
	assert.ErrorIs(t, err, zkp.ErrKeyFormat)
}

func TestUnsupportedPredicateWhenCircuitMissing(t *testing.T) {
	keys := sharedKeys(t)
	subset := func(data []byte) []byte {
		b, err := zkp.ParseKeyBundle(data)
		require.NoError(t, err)
		for id := range b.Keys {
			if id != circuits.Adult {
				delete(b.Keys, id)
			}
		}
		out, err := b.MarshalBinary()
		require.NoError(t, err)
		return out
	}

	small, err := zkp.Initialize(subset(keys.Proving), subset(keys.Verifying))
	require.NoError(t, err)
	assert.Equal(t, []circuits.ID{circuits.Adult}, small.Circuits())

	_, err = small.ProvePredicate(context.Background(), alice(), zkp.InState("TX"))
	assert.ErrorIs(t, err, zkp.ErrUnsupportedPredicate)
	_, err = small.Prove(context.Background(), alice())
	assert.ErrorIs(t, err, zkp.ErrUnsupportedPredicate)

	h, err := small.ProvePredicate(context.Background(), alice(), zkp.Adult())
	require.NoError(t, err)
	ok, err := h.Verify(zkp.IsAdult)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestInjectedRandomness(t *testing.T) {
	keys := sharedKeys(t)

	seeded, err := zkp.Initialize(keys.Proving, keys.Verifying,
		zkp.WithRandomness(rand.New(rand.NewSource(1))), zkp.WithConcurrency(2))
	require.NoError(t, err)
	h, err := seeded.ProvePredicate(context.Background(), alice(), zkp.Female())
	require.NoError(t, err)
	ok, err := h.Verify(zkp.IsFemale)
	require.NoError(t, err)
	assert.True(t, ok)

	broken, err := zkp.Initialize(keys.Proving, keys.Verifying,
		zkp.WithRandomness(iotest.ErrReader(errors.New("entropy exhausted"))))
	require.NoError(t, err)
	_, err = broken.Prove(context.Background(), alice())
	assert.ErrorIs(t, err, zkp.ErrProving)
}

func TestCancelledContext(t *testing.T) {
	l := library(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := l.Prove(ctx, alice())
	assert.ErrorIs(t, err, context.Canceled)
	_, err = l.ProvePredicates(ctx, alice(), zkp.Adult(), zkp.Female())
	assert.ErrorIs(t, err, context.Canceled)
}

func TestConcurrentUse(t *testing.T) {
	l := library(t)
	h, err := l.Prove(context.Background(), alice())
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, err := h.Verify(zkp.IsAdult)
			assert.NoError(t, err)
			assert.True(t, ok)
		}()
	}
	for i := 0; i < 3; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			other, err := l.ProvePredicate(context.Background(), alice(), zkp.InState("TX"))
			if !assert.NoError(t, err) {
				return
			}
			ok, err := other.Verify(zkp.IsInState, "TX")
			assert.NoError(t, err)
			assert.True(t, ok)
		}()
	}
	wg.Wait()
}
