package zkp

import (
	"testing"

	"github.com/consensys/gnark-crypto/ecc/bls12-381/fr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"zk-identity/pkg/zkp/circuits"
)

func TestParsePredicate(t *testing.T) {
	tests := []struct {
		name    string
		typ     VerificationType
		params  []string
		want    Predicate
		wantErr error
	}{
		{"adult", IsAdult, nil, Adult(), nil},
		{"range", IsInAgeRange, []string{"21", " 65"}, InAgeRange(21, 65), nil},
		{"state", IsInState, []string{"TX"}, InState("TX"), nil},
		{"city", IsInCity, []string{"Austin"}, InCity("Austin"), nil},
		{"adult with params", IsAdult, []string{"18"}, Predicate{}, ErrInvalidParameters},
		{"range missing max", IsInAgeRange, []string{"21"}, Predicate{}, ErrInvalidParameters},
		{"range inverted", IsInAgeRange, []string{"65", "21"}, Predicate{}, ErrInvalidParameters},
		{"range equal", IsInAgeRange, []string{"30", "30"}, Predicate{}, ErrInvalidParameters},
		{"range above bound", IsInAgeRange, []string{"21", "151"}, Predicate{}, ErrInvalidParameters},
		{"range not a number", IsInAgeRange, []string{"x", "65"}, Predicate{}, ErrInvalidParameters},
		{"range negative", IsInAgeRange, []string{"-1", "65"}, Predicate{}, ErrInvalidParameters},
		{"unknown state", IsInState, []string{"XX"}, Predicate{}, ErrInvalidParameters},
		{"unknown type", VerificationType(42), nil, Predicate{}, ErrUnsupportedPredicate},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			p, err := ParsePredicate(tc.typ, tc.params...)
			if tc.wantErr != nil {
				assert.ErrorIs(t, err, tc.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, p)
		})
	}
}

func TestParseVerificationType(t *testing.T) {
	for typ, name := range verificationTypeNames {
		got, err := ParseVerificationType(name)
		require.NoError(t, err)
		assert.Equal(t, typ, got)
	}
	got, err := ParseVerificationType("isadult")
	require.NoError(t, err)
	assert.Equal(t, IsAdult, got)

	_, err = ParseVerificationType("IsFromMars")
	assert.ErrorIs(t, err, ErrUnsupportedPredicate)
}

func TestPredicateHolds(t *testing.T) {
	attrs, err := Encode(alice())
	require.NoError(t, err)

	tests := []struct {
		p    Predicate
		want bool
	}{
		{Adult(), true},
		{Minor(), false},
		{Female(), true},
		{Male(), false},
		{InAgeRange(21, 65), true},
		{InAgeRange(34, 40), true},
		{InAgeRange(18, 34), true},
		{InAgeRange(35, 65), false},
		{InAgeRange(18, 33), false},
		{InState("TX"), true},
		{InState("CA"), false},
		{InCity("austin"), true},
		{InCity("Dallas"), false},
	}
	for _, tc := range tests {
		t.Run(tc.p.String(), func(t *testing.T) {
			assert.Equal(t, tc.want, tc.p.holds(attrs, 2024))
		})
	}
}

func TestPredicateCircuit(t *testing.T) {
	want := map[VerificationType]circuits.ID{
		IsAdult:      circuits.Adult,
		IsMinor:      circuits.Minor,
		IsFemale:     circuits.Gender,
		IsMale:       circuits.Gender,
		IsInAgeRange: circuits.AgeRange,
		IsInState:    circuits.State,
		IsInCity:     circuits.City,
	}
	for typ, id := range want {
		got, err := Predicate{Type: typ}.circuit()
		require.NoError(t, err)
		assert.Equal(t, id, got, typ.String())
	}
}

func TestBuildWitness(t *testing.T) {
	attrs, err := Encode(alice())
	require.NoError(t, err)
	salt := fr.NewElement(7)

	t.Run("satisfied", func(t *testing.T) {
		w, err := BuildWitness(attrs, InAgeRange(21, 65), 2024, salt)
		require.NoError(t, err)
		assert.Equal(t, circuits.AgeRange, w.Circuit())

		public, err := w.PublicInputs()
		require.NoError(t, err)
		require.Len(t, public, 4)
		assert.Equal(t, fr.NewElement(2024), public[0])
		assert.Equal(t, fr.NewElement(21), public[2])
		assert.Equal(t, fr.NewElement(65), public[3])

		fromStatement, err := publicInputs(w.Circuit(), w.Statement())
		require.NoError(t, err)
		assert.Equal(t, public, fromStatement)
	})

	t.Run("unsatisfied before proving", func(t *testing.T) {
		_, err := BuildWitness(attrs, Minor(), 2024, salt)
		assert.ErrorIs(t, err, ErrUnsatisfiedPredicate)
	})

	t.Run("invalid parameters first", func(t *testing.T) {
		_, err := BuildWitness(attrs, InAgeRange(50, 40), 2024, salt)
		assert.ErrorIs(t, err, ErrInvalidParameters)
	})

	t.Run("discarded", func(t *testing.T) {
		w, err := BuildWitness(attrs, Female(), 2024, salt)
		require.NoError(t, err)
		w.discard()
		_, err = w.PublicInputs()
		assert.Error(t, err)
	})

	t.Run("profile requires adulthood", func(t *testing.T) {
		young := alice()
		young.BirthYear = 2010
		a, err := Encode(young)
		require.NoError(t, err)
		_, err = buildProfileWitness(a, 2024, salt)
		assert.ErrorIs(t, err, ErrUnsatisfiedPredicate)
	})
}
