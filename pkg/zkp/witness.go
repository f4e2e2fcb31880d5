package zkp

import (
	"fmt"

	"github.com/consensys/gnark-crypto/ecc/bls12-381/fr"
	"github.com/consensys/gnark/backend/witness"
	"github.com/consensys/gnark/frontend"

	"zk-identity/pkg/zkp/circuits"
)

// Witness is the full assignment for one circuit together with its public
// statement. It belongs to a single proving call and is never serialized.
type Witness struct {
	circuit   circuits.ID
	statement circuits.Statement
	full      witness.Witness
}

func (w *Witness) Circuit() circuits.ID { return w.circuit }

func (w *Witness) Statement() circuits.Statement { return w.statement }

// PublicInputs returns the public part of the witness in circuit order.
func (w *Witness) PublicInputs() ([]fr.Element, error) {
	if w.full == nil {
		return nil, fmt.Errorf("%w: witness already discarded", ErrProving)
	}
	pub, err := w.full.Public()
	if err != nil {
		return nil, fmt.Errorf("%w: public witness: %v", ErrProving, err)
	}
	return vectorOf(pub)
}

// discard drops the private assignment.
func (w *Witness) discard() {
	w.full = nil
}

// BuildWitness validates p, evaluates it on attrs and assigns the circuit that
// proves it. ErrUnsatisfiedPredicate is returned before any circuit work when
// the claim is false.
func BuildWitness(attrs EncodedAttributes, p Predicate, referenceYear uint16, salt fr.Element) (*Witness, error) {
	if err := p.validate(); err != nil {
		return nil, err
	}
	id, err := p.circuit()
	if err != nil {
		return nil, err
	}
	if !p.holds(attrs, referenceYear) {
		return nil, fmt.Errorf("%w: %s", ErrUnsatisfiedPredicate, p.Type)
	}

	st := circuits.Statement{ReferenceYear: referenceYear}
	p.bind(&st)
	return assemble(id, st, attrs, salt)
}

// buildProfileWitness assigns the Profile circuit, which requires adulthood.
func buildProfileWitness(attrs EncodedAttributes, referenceYear uint16, salt fr.Element) (*Witness, error) {
	if !Adult().holds(attrs, referenceYear) {
		return nil, fmt.Errorf("%w: %s", ErrUnsatisfiedPredicate, IsAdult)
	}
	st := circuits.Statement{
		ReferenceYear: referenceYear,
		BirthYear:     attrs.BirthYear,
		Gender:        attrs.Gender,
	}
	return assemble(circuits.Profile, st, attrs, salt)
}

func assemble(id circuits.ID, st circuits.Statement, attrs EncodedAttributes, salt fr.Element) (*Witness, error) {
	values := &circuits.Values{
		Salt:      salt,
		Name:      attrs.Name,
		BirthYear: attrs.BirthYear,
		City:      attrs.City,
		State:     attrs.State,
		Gender:    attrs.Gender,
	}
	commitment, err := values.Commitment()
	if err != nil {
		return nil, fmt.Errorf("%w: commitment: %v", ErrProving, err)
	}
	st.Commitment = commitment

	assignment, err := circuits.Assign(id, st, values)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnsupportedPredicate, err)
	}
	full, err := frontend.NewWitness(assignment, circuits.Curve.ScalarField())
	if err != nil {
		return nil, fmt.Errorf("%w: new witness: %v", ErrProving, err)
	}
	return &Witness{circuit: id, statement: st, full: full}, nil
}

// publicInputs derives the ordered public inputs of a statement without any
// private data. The prover and the verifier both go through circuits.Assign,
// so the layouts agree.
func publicInputs(id circuits.ID, st circuits.Statement) ([]fr.Element, error) {
	assignment, err := circuits.Assign(id, st, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnsupportedPredicate, err)
	}
	pub, err := frontend.NewWitness(assignment, circuits.Curve.ScalarField(), frontend.PublicOnly())
	if err != nil {
		return nil, fmt.Errorf("%w: public witness: %v", ErrInvalidParameters, err)
	}
	return vectorOf(pub)
}

func vectorOf(w witness.Witness) ([]fr.Element, error) {
	vec, ok := w.Vector().(fr.Vector)
	if !ok {
		return nil, fmt.Errorf("%w: unexpected witness vector %T", ErrProving, w.Vector())
	}
	out := make([]fr.Element, len(vec))
	copy(out, vec)
	return out, nil
}

// publicWitness packs field elements into a gnark public witness.
func publicWitness(public []fr.Element) (witness.Witness, error) {
	w, err := witness.New(circuits.Curve.ScalarField())
	if err != nil {
		return nil, err
	}
	values := make(chan any, len(public))
	for _, e := range public {
		values <- e
	}
	close(values)
	if err := w.Fill(len(public), 0, values); err != nil {
		return nil, err
	}
	return w, nil
}
