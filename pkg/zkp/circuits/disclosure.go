package circuits

import "github.com/consensys/gnark/frontend"

type GenderCircuit struct {
	Commitment frontend.Variable `gnark:",public"`
	Gender     frontend.Variable `gnark:",public"`

	Attributes Attributes
}

func (c *GenderCircuit) Define(api frontend.API) error {
	if err := c.Attributes.bind(api, c.Commitment); err != nil {
		return err
	}
	api.AssertIsEqual(c.Gender, c.Attributes.Gender)
	return nil
}

type StateCircuit struct {
	Commitment frontend.Variable `gnark:",public"`
	State      frontend.Variable `gnark:",public"`

	Attributes Attributes
}

func (c *StateCircuit) Define(api frontend.API) error {
	if err := c.Attributes.bind(api, c.Commitment); err != nil {
		return err
	}
	api.AssertIsEqual(c.State, c.Attributes.State)
	return nil
}

type CityCircuit struct {
	Commitment frontend.Variable            `gnark:",public"`
	City       [CityLimbs]frontend.Variable `gnark:",public"`

	Attributes Attributes
}

func (c *CityCircuit) Define(api frontend.API) error {
	if err := c.Attributes.bind(api, c.Commitment); err != nil {
		return err
	}
	for i := range c.City {
		api.AssertIsEqual(c.City[i], c.Attributes.City[i])
	}
	return nil
}
