// Package circuits holds the fixed family of predicate circuits backing the
// identity proofs. Every circuit binds the same private attributes to a public
// MiMC commitment, so proofs for different predicates of one identity can be
// linked by commitment while the attributes stay hidden.
package circuits

import (
	"fmt"

	"github.com/consensys/gnark-crypto/ecc"
	"github.com/consensys/gnark-crypto/ecc/bls12-381/fr"
	"github.com/consensys/gnark/constraint"
	"github.com/consensys/gnark/frontend"
	"github.com/consensys/gnark/frontend/cs/r1cs"
)

// Version changes whenever a circuit layout changes; keys from another version
// are rejected.
const Version uint16 = 1

// Curve is the pairing curve every circuit is compiled for.
const Curve = ecc.BLS12_381

type ID uint8

const (
	Profile ID = iota + 1
	Adult
	Minor
	Gender
	AgeRange
	State
	City
)

// All lists the circuits in bundle order.
var All = []ID{Profile, Adult, Minor, Gender, AgeRange, State, City}

var idNames = map[ID]string{
	Profile:  "profile",
	Adult:    "adult",
	Minor:    "minor",
	Gender:   "gender",
	AgeRange: "age_range",
	State:    "state",
	City:     "city",
}

func (id ID) String() string {
	if name, ok := idNames[id]; ok {
		return name
	}
	return fmt.Sprintf("circuit(%d)", uint8(id))
}

func (id ID) Valid() bool {
	_, ok := idNames[id]
	return ok
}

// ParseID is the inverse of String.
func ParseID(name string) (ID, error) {
	for id, n := range idNames {
		if n == name {
			return id, nil
		}
	}
	return 0, fmt.Errorf("unknown circuit %q", name)
}

// PublicInputs returns the names of the public inputs in witness order.
func (id ID) PublicInputs() []string {
	switch id {
	case Profile:
		return []string{"reference_year", "commitment", "birth_year", "gender"}
	case Adult, Minor:
		return []string{"reference_year", "commitment"}
	case Gender:
		return []string{"commitment", "gender"}
	case AgeRange:
		return []string{"reference_year", "commitment", "min_age", "max_age"}
	case State:
		return []string{"commitment", "state"}
	case City:
		return []string{"commitment", "city_0", "city_1"}
	}
	return nil
}

// Blank returns an unassigned circuit suitable for compilation.
func (id ID) Blank() (frontend.Circuit, error) {
	switch id {
	case Profile:
		return &ProfileCircuit{}, nil
	case Adult:
		return &AdultCircuit{}, nil
	case Minor:
		return &MinorCircuit{}, nil
	case Gender:
		return &GenderCircuit{}, nil
	case AgeRange:
		return &AgeRangeCircuit{}, nil
	case State:
		return &StateCircuit{}, nil
	case City:
		return &CityCircuit{}, nil
	}
	return nil, fmt.Errorf("unknown circuit %d", uint8(id))
}

// Compile builds the R1CS of the circuit over the BLS12-381 scalar field.
func Compile(id ID) (constraint.ConstraintSystem, error) {
	blank, err := id.Blank()
	if err != nil {
		return nil, err
	}
	ccs, err := frontend.Compile(Curve.ScalarField(), r1cs.NewBuilder, blank)
	if err != nil {
		return nil, fmt.Errorf("compile %s: %w", id, err)
	}
	return ccs, nil
}

// Statement carries the public inputs of any circuit. Fields a circuit does not
// expose are ignored.
type Statement struct {
	ReferenceYear uint16
	Commitment    fr.Element
	BirthYear     uint16
	Gender        uint8
	MinAge        uint8
	MaxAge        uint8
	State         uint8
	City          [CityLimbs]fr.Element
}

// Assign fills a circuit with the statement and, when secret is not nil, with
// the private attributes. A nil secret yields a public-only assignment for
// verification.
func Assign(id ID, st Statement, secret *Values) (frontend.Circuit, error) {
	var attrs Attributes
	if secret != nil {
		attrs = secret.assignment()
	}
	commitment := toBig(st.Commitment)

	switch id {
	case Profile:
		return &ProfileCircuit{
			ReferenceYear: int(st.ReferenceYear),
			Commitment:    commitment,
			BirthYear:     int(st.BirthYear),
			Gender:        int(st.Gender),
			Attributes:    attrs,
		}, nil
	case Adult:
		return &AdultCircuit{
			ReferenceYear: int(st.ReferenceYear),
			Commitment:    commitment,
			Attributes:    attrs,
		}, nil
	case Minor:
		return &MinorCircuit{
			ReferenceYear: int(st.ReferenceYear),
			Commitment:    commitment,
			Attributes:    attrs,
		}, nil
	case Gender:
		return &GenderCircuit{
			Commitment: commitment,
			Gender:     int(st.Gender),
			Attributes: attrs,
		}, nil
	case AgeRange:
		return &AgeRangeCircuit{
			ReferenceYear: int(st.ReferenceYear),
			Commitment:    commitment,
			MinAge:        int(st.MinAge),
			MaxAge:        int(st.MaxAge),
			Attributes:    attrs,
		}, nil
	case State:
		return &StateCircuit{
			Commitment: commitment,
			State:      int(st.State),
			Attributes: attrs,
		}, nil
	case City:
		c := &CityCircuit{Commitment: commitment, Attributes: attrs}
		for i := range st.City {
			c.City[i] = toBig(st.City[i])
		}
		return c, nil
	}
	return nil, fmt.Errorf("unknown circuit %d", uint8(id))
}
