package circuits

import "github.com/consensys/gnark/frontend"

// ProfileCircuit discloses birth year and gender and proves adulthood. It backs
// the default identity proof.
type ProfileCircuit struct {
	ReferenceYear frontend.Variable `gnark:",public"`
	Commitment    frontend.Variable `gnark:",public"`
	BirthYear     frontend.Variable `gnark:",public"`
	Gender        frontend.Variable `gnark:",public"`

	Attributes Attributes
}

func (c *ProfileCircuit) Define(api frontend.API) error {
	if err := c.Attributes.bind(api, c.Commitment); err != nil {
		return err
	}
	api.AssertIsEqual(c.BirthYear, c.Attributes.BirthYear)
	api.AssertIsEqual(c.Gender, c.Attributes.Gender)

	assertBounded(api, c.ReferenceYear, YearBits)
	age := api.Sub(c.ReferenceYear, c.Attributes.BirthYear)
	assertBounded(api, api.Sub(age, AdultAge), YearBits)
	return nil
}

// AdultCircuit proves ReferenceYear - BirthYear >= 18.
type AdultCircuit struct {
	ReferenceYear frontend.Variable `gnark:",public"`
	Commitment    frontend.Variable `gnark:",public"`

	Attributes Attributes
}

func (c *AdultCircuit) Define(api frontend.API) error {
	if err := c.Attributes.bind(api, c.Commitment); err != nil {
		return err
	}
	assertBounded(api, c.ReferenceYear, YearBits)
	age := api.Sub(c.ReferenceYear, c.Attributes.BirthYear)
	assertBounded(api, api.Sub(age, AdultAge), YearBits)
	return nil
}

// MinorCircuit proves 0 <= ReferenceYear - BirthYear < 18.
type MinorCircuit struct {
	ReferenceYear frontend.Variable `gnark:",public"`
	Commitment    frontend.Variable `gnark:",public"`

	Attributes Attributes
}

func (c *MinorCircuit) Define(api frontend.API) error {
	if err := c.Attributes.bind(api, c.Commitment); err != nil {
		return err
	}
	assertBounded(api, c.ReferenceYear, YearBits)
	age := api.Sub(c.ReferenceYear, c.Attributes.BirthYear)
	assertBounded(api, age, YearBits)
	assertBounded(api, api.Sub(AdultAge-1, age), YearBits)
	return nil
}

// AgeRangeCircuit proves MinAge <= ReferenceYear - BirthYear <= MaxAge. Both
// bounds are public inputs, so a proof is only valid for the bounds it was
// generated with.
type AgeRangeCircuit struct {
	ReferenceYear frontend.Variable `gnark:",public"`
	Commitment    frontend.Variable `gnark:",public"`
	MinAge        frontend.Variable `gnark:",public"`
	MaxAge        frontend.Variable `gnark:",public"`

	Attributes Attributes
}

func (c *AgeRangeCircuit) Define(api frontend.API) error {
	if err := c.Attributes.bind(api, c.Commitment); err != nil {
		return err
	}
	assertBounded(api, c.ReferenceYear, YearBits)
	assertBounded(api, c.MinAge, AgeBits)
	assertBounded(api, c.MaxAge, AgeBits)

	age := api.Sub(c.ReferenceYear, c.Attributes.BirthYear)
	assertBounded(api, api.Sub(age, c.MinAge), YearBits)
	assertBounded(api, api.Sub(c.MaxAge, age), YearBits)
	return nil
}
