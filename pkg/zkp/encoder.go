package zkp

import (
	"fmt"
	"strings"

	"github.com/consensys/gnark-crypto/ecc/bls12-381/fr"

	"zk-identity/pkg/zkp/circuits"
)

// RawIdentity exists only for the duration of a proving call. It is never
// logged or serialized.
type RawIdentity struct {
	Name      string
	BirthYear int
	City      string
	State     string
	Gender    string
}

// EncodedAttributes is RawIdentity mapped onto field elements and small
// integers. Every value is below the field modulus by construction.
type EncodedAttributes struct {
	Name      [circuits.NameLimbs]fr.Element
	BirthYear uint16
	City      [circuits.CityLimbs]fr.Element
	State     uint8
	Gender    uint8
}

const maxBirthYear = 1<<circuits.YearBits - 1

// usStates is the postal-code table agreed between prover and verifier. The
// encoded value is the 1-based index; appending is a circuit version change.
var usStates = [circuits.StateCount]string{
	"AL", "AK", "AZ", "AR", "CA", "CO", "CT", "DE", "FL", "GA",
	"HI", "ID", "IL", "IN", "IA", "KS", "KY", "LA", "ME", "MD",
	"MA", "MI", "MN", "MS", "MO", "MT", "NE", "NV", "NH", "NJ",
	"NM", "NY", "NC", "ND", "OH", "OK", "OR", "PA", "RI", "SC",
	"SD", "TN", "TX", "UT", "VT", "VA", "WA", "WV", "WI", "WY",
	"DC", "PR", "GU", "VI", "AS", "MP",
}

var genders = map[string]uint8{
	"female": circuits.GenderFemale,
	"male":   circuits.GenderMale,
	"other":  circuits.GenderOther,
}

// Encode maps raw attributes onto their circuit representation.
func Encode(raw RawIdentity) (EncodedAttributes, error) {
	var out EncodedAttributes

	name, err := packString(raw.Name, circuits.NameLimbs)
	if err != nil {
		return out, fmt.Errorf("%w: name: %v", ErrEncoding, err)
	}
	copy(out.Name[:], name)

	if raw.BirthYear < 1 || raw.BirthYear > maxBirthYear {
		return out, fmt.Errorf("%w: birth year %d outside [1, %d]", ErrEncoding, raw.BirthYear, maxBirthYear)
	}
	out.BirthYear = uint16(raw.BirthYear)

	city, err := EncodeCity(raw.City)
	if err != nil {
		return out, err
	}
	out.City = city

	if out.State, err = StateCode(raw.State); err != nil {
		return out, err
	}
	if out.Gender, err = GenderCode(raw.Gender); err != nil {
		return out, err
	}
	return out, nil
}

// NormalizeCity trims and lower-cases a city so that "Austin " and "austin"
// encode identically.
func NormalizeCity(city string) string {
	return strings.ToLower(strings.TrimSpace(city))
}

// EncodeCity normalizes and packs a city name.
func EncodeCity(city string) ([circuits.CityLimbs]fr.Element, error) {
	var out [circuits.CityLimbs]fr.Element
	limbs, err := packString(NormalizeCity(city), circuits.CityLimbs)
	if err != nil {
		return out, fmt.Errorf("%w: city: %v", ErrEncoding, err)
	}
	copy(out[:], limbs)
	return out, nil
}

// StateCode returns the 1-based table index of a postal code, case-insensitive.
func StateCode(code string) (uint8, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	for i, s := range usStates {
		if s == code {
			return uint8(i + 1), nil
		}
	}
	return 0, fmt.Errorf("%w: unknown state %q", ErrEncoding, code)
}

// StateName is the inverse of StateCode.
func StateName(code uint8) (string, bool) {
	if code == 0 || int(code) > len(usStates) {
		return "", false
	}
	return usStates[code-1], true
}

func GenderCode(gender string) (uint8, error) {
	g, ok := genders[strings.ToLower(strings.TrimSpace(gender))]
	if !ok {
		return 0, fmt.Errorf("%w: unknown gender %q", ErrEncoding, gender)
	}
	return g, nil
}

// packString splits s into big-endian limbs of LimbBytes bytes each, zero
// padded on the right. NUL bytes are rejected so padding stays unambiguous.
func packString(s string, limbs int) ([]fr.Element, error) {
	if len(s) > limbs*circuits.LimbBytes {
		return nil, fmt.Errorf("%d bytes exceeds capacity %d", len(s), limbs*circuits.LimbBytes)
	}
	if strings.IndexByte(s, 0) >= 0 {
		return nil, fmt.Errorf("contains NUL byte")
	}

	out := make([]fr.Element, limbs)
	buf := make([]byte, circuits.LimbBytes)
	for i := range out {
		clear(buf)
		start := i * circuits.LimbBytes
		if start < len(s) {
			copy(buf, s[start:min(len(s), start+circuits.LimbBytes)])
		}
		out[i].SetBytes(buf)
	}
	return out, nil
}
