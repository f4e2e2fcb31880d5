package circuits

import (
	"fmt"
	"math/big"

	"github.com/consensys/gnark-crypto/ecc/bls12-381/fr"
	nativemimc "github.com/consensys/gnark-crypto/ecc/bls12-381/fr/mimc"
	"github.com/consensys/gnark/frontend"
	"github.com/consensys/gnark/std/hash/mimc"
)

const (
	// LimbBytes is the number of string bytes packed into one field element.
	LimbBytes = 31
	NameLimbs = 2
	CityLimbs = 2

	YearBits = 12
	AgeBits  = 8
	AdultAge = 18

	// StateCount is the size of the state lookup table shared with the encoder.
	StateCount = 56
	stateBits  = 6

	GenderFemale uint8 = 1
	GenderMale   uint8 = 2
	GenderOther  uint8 = 3
)

// Attributes is the private part shared by every circuit of the set.
type Attributes struct {
	Salt      frontend.Variable
	Name      [NameLimbs]frontend.Variable
	BirthYear frontend.Variable
	City      [CityLimbs]frontend.Variable
	State     frontend.Variable
	Gender    frontend.Variable
}

// bind ties the attributes to the public commitment and checks their domains.
func (a *Attributes) bind(api frontend.API, commitment frontend.Variable) error {
	h, err := mimc.NewMiMC(api)
	if err != nil {
		return fmt.Errorf("mimc: %w", err)
	}
	h.Write(a.Salt)
	h.Write(a.Name[:]...)
	h.Write(a.BirthYear)
	h.Write(a.City[:]...)
	h.Write(a.State, a.Gender)
	api.AssertIsEqual(h.Sum(), commitment)

	assertBounded(api, a.BirthYear, YearBits)
	assertBounded(api, api.Sub(a.State, 1), stateBits)
	assertBounded(api, api.Sub(StateCount, a.State), stateBits)
	api.AssertIsEqual(
		api.Mul(
			api.Sub(a.Gender, GenderFemale),
			api.Sub(a.Gender, GenderMale),
			api.Sub(a.Gender, GenderOther),
		),
		0,
	)
	return nil
}

// Values is the native counterpart of Attributes.
type Values struct {
	Salt      fr.Element
	Name      [NameLimbs]fr.Element
	BirthYear uint16
	City      [CityLimbs]fr.Element
	State     uint8
	Gender    uint8
}

// Commitment computes MiMC over the values in the exact order bind hashes them.
func (v *Values) Commitment() (fr.Element, error) {
	var out fr.Element

	var birthYear, state, gender fr.Element
	birthYear.SetUint64(uint64(v.BirthYear))
	state.SetUint64(uint64(v.State))
	gender.SetUint64(uint64(v.Gender))

	inputs := make([]fr.Element, 0, 3+NameLimbs+CityLimbs+2)
	inputs = append(inputs, v.Salt)
	inputs = append(inputs, v.Name[:]...)
	inputs = append(inputs, birthYear)
	inputs = append(inputs, v.City[:]...)
	inputs = append(inputs, state, gender)

	h := nativemimc.NewMiMC()
	for i := range inputs {
		b := inputs[i].Marshal()
		if _, err := h.Write(b); err != nil {
			return out, fmt.Errorf("mimc write: %w", err)
		}
	}
	out.SetBytes(h.Sum(nil))
	return out, nil
}

func (v *Values) assignment() Attributes {
	var a Attributes
	a.Salt = toBig(v.Salt)
	for i := range v.Name {
		a.Name[i] = toBig(v.Name[i])
	}
	a.BirthYear = int(v.BirthYear)
	for i := range v.City {
		a.City[i] = toBig(v.City[i])
	}
	a.State = int(v.State)
	a.Gender = int(v.Gender)
	return a
}

func toBig(e fr.Element) *big.Int {
	return e.BigInt(new(big.Int))
}

// assertBounded constrains v to [0, 2^bits). Used for every integer comparison
// so that a negative difference, which wraps to a huge field element, fails.
func assertBounded(api frontend.API, v frontend.Variable, bits int) {
	api.ToBinary(v, bits)
}
