package zkp

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/consensys/gnark-crypto/ecc/bls12-381/fr"

	"zk-identity/pkg/zkp/circuits"
)

// MaxAgeBound is the largest upper bound accepted for IsInAgeRange.
const MaxAgeBound = 150

type VerificationType uint8

const (
	IsAdult VerificationType = iota + 1
	IsMinor
	IsMale
	IsFemale
	IsInAgeRange
	IsInState
	IsInCity
)

var verificationTypeNames = map[VerificationType]string{
	IsAdult:      "IsAdult",
	IsMinor:      "IsMinor",
	IsMale:       "IsMale",
	IsFemale:     "IsFemale",
	IsInAgeRange: "IsInAgeRange",
	IsInState:    "IsInState",
	IsInCity:     "IsInCity",
}

func (t VerificationType) String() string {
	if name, ok := verificationTypeNames[t]; ok {
		return name
	}
	return fmt.Sprintf("VerificationType(%d)", uint8(t))
}

// ParseVerificationType accepts the type name case-insensitively.
func ParseVerificationType(name string) (VerificationType, error) {
	for t, n := range verificationTypeNames {
		if strings.EqualFold(n, strings.TrimSpace(name)) {
			return t, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnsupportedPredicate, name)
}

// Predicate is a closed tagged variant; only the fields used by Type are set.
type Predicate struct {
	Type   VerificationType
	MinAge uint8
	MaxAge uint8
	State  string
	City   string
}

func Adult() Predicate  { return Predicate{Type: IsAdult} }
func Minor() Predicate  { return Predicate{Type: IsMinor} }
func Female() Predicate { return Predicate{Type: IsFemale} }
func Male() Predicate   { return Predicate{Type: IsMale} }

func InAgeRange(minAge, maxAge uint8) Predicate {
	return Predicate{Type: IsInAgeRange, MinAge: minAge, MaxAge: maxAge}
}

func InState(code string) Predicate { return Predicate{Type: IsInState, State: code} }
func InCity(city string) Predicate  { return Predicate{Type: IsInCity, City: city} }

func (p Predicate) String() string {
	switch p.Type {
	case IsInAgeRange:
		return fmt.Sprintf("%s(%d, %d)", p.Type, p.MinAge, p.MaxAge)
	case IsInState:
		return fmt.Sprintf("%s(%s)", p.Type, p.State)
	case IsInCity:
		return fmt.Sprintf("%s(%s)", p.Type, NormalizeCity(p.City))
	}
	return p.Type.String()
}

// ParsePredicate builds a predicate from a type and its string parameters as
// passed to IdentityHandle.Verify.
func ParsePredicate(t VerificationType, params ...string) (Predicate, error) {
	arity := 0
	switch t {
	case IsAdult, IsMinor, IsMale, IsFemale:
	case IsInAgeRange:
		arity = 2
	case IsInState, IsInCity:
		arity = 1
	default:
		return Predicate{}, fmt.Errorf("%w: %s", ErrUnsupportedPredicate, t)
	}
	if len(params) != arity {
		return Predicate{}, fmt.Errorf("%w: %s takes %d parameters, got %d", ErrInvalidParameters, t, arity, len(params))
	}

	p := Predicate{Type: t}
	switch t {
	case IsInAgeRange:
		var err error
		if p.MinAge, err = parseAge(params[0]); err != nil {
			return Predicate{}, err
		}
		if p.MaxAge, err = parseAge(params[1]); err != nil {
			return Predicate{}, err
		}
	case IsInState:
		p.State = params[0]
	case IsInCity:
		p.City = params[0]
	}
	return p, p.validate()
}

func parseAge(value string) (uint8, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0, fmt.Errorf("%w: empty age bound", ErrInvalidParameters)
	}
	age, err := strconv.ParseUint(value, 10, 8)
	if err != nil {
		return 0, fmt.Errorf("%w: age bound %q: %v", ErrInvalidParameters, value, err)
	}
	return uint8(age), nil
}

// validate checks the parameters without looking at any attribute.
func (p Predicate) validate() error {
	switch p.Type {
	case IsAdult, IsMinor, IsMale, IsFemale:
		return nil
	case IsInAgeRange:
		if p.MinAge >= p.MaxAge {
			return fmt.Errorf("%w: min age %d must be below max age %d", ErrInvalidParameters, p.MinAge, p.MaxAge)
		}
		if p.MaxAge > MaxAgeBound {
			return fmt.Errorf("%w: max age %d above %d", ErrInvalidParameters, p.MaxAge, MaxAgeBound)
		}
		return nil
	case IsInState:
		if _, err := StateCode(p.State); err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidParameters, err)
		}
		return nil
	case IsInCity:
		if _, err := EncodeCity(p.City); err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidParameters, err)
		}
		return nil
	}
	return fmt.Errorf("%w: %s", ErrUnsupportedPredicate, p.Type)
}

// circuit returns the circuit that proves p.
func (p Predicate) circuit() (circuits.ID, error) {
	switch p.Type {
	case IsAdult:
		return circuits.Adult, nil
	case IsMinor:
		return circuits.Minor, nil
	case IsFemale, IsMale:
		return circuits.Gender, nil
	case IsInAgeRange:
		return circuits.AgeRange, nil
	case IsInState:
		return circuits.State, nil
	case IsInCity:
		return circuits.City, nil
	}
	return 0, fmt.Errorf("%w: %s", ErrUnsupportedPredicate, p.Type)
}

// holds evaluates p natively. Parameters must already be validated.
func (p Predicate) holds(attrs EncodedAttributes, referenceYear uint16) bool {
	age := int(referenceYear) - int(attrs.BirthYear)
	switch p.Type {
	case IsAdult:
		return age >= circuits.AdultAge
	case IsMinor:
		return age >= 0 && age < circuits.AdultAge
	case IsFemale:
		return attrs.Gender == circuits.GenderFemale
	case IsMale:
		return attrs.Gender == circuits.GenderMale
	case IsInAgeRange:
		return age >= int(p.MinAge) && age <= int(p.MaxAge)
	case IsInState:
		code, _ := StateCode(p.State)
		return attrs.State == code
	case IsInCity:
		city, _ := EncodeCity(p.City)
		return limbsEqual(attrs.City[:], city[:])
	}
	return false
}

// bind writes the public parameters of p into a statement.
func (p Predicate) bind(st *circuits.Statement) {
	switch p.Type {
	case IsFemale:
		st.Gender = circuits.GenderFemale
	case IsMale:
		st.Gender = circuits.GenderMale
	case IsInAgeRange:
		st.MinAge, st.MaxAge = p.MinAge, p.MaxAge
	case IsInState:
		st.State, _ = StateCode(p.State)
	case IsInCity:
		st.City, _ = EncodeCity(p.City)
	}
}

func limbsEqual(a, b []fr.Element) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !a[i].Equal(&b[i]) {
			return false
		}
	}
	return true
}
