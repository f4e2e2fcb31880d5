package zkp

import (
	"fmt"

	"github.com/consensys/gnark-crypto/ecc/bls12-381/fr"
	"github.com/google/uuid"
	"github.com/near/borsh-go"

	"zk-identity/pkg/zkp/circuits"
)

const handleVersion = uint8(1)

// IdentityHandle is an immutable proof together with the public statement it
// was generated for. It is safe to share between goroutines.
type IdentityHandle struct {
	id        uuid.UUID
	circuit   circuits.ID
	proof     Proof
	statement circuits.Statement
	lib       *Library
}

func newHandle(lib *Library, id circuits.ID, proof Proof, st circuits.Statement) *IdentityHandle {
	return &IdentityHandle{
		id:        uuid.New(),
		circuit:   id,
		proof:     proof,
		statement: st,
		lib:       lib,
	}
}

// ID identifies the handle in logs and exports. It carries no identity data.
func (h *IdentityHandle) ID() string { return h.id.String() }

func (h *IdentityHandle) Circuit() circuits.ID { return h.circuit }

func (h *IdentityHandle) Proof() Proof { return h.proof }

func (h *IdentityHandle) SizeBytes() int { return ProofSize }

// Commitment is the public commitment to the hidden attributes. Handles from
// one ProvePredicates call share it.
func (h *IdentityHandle) Commitment() fr.Element { return h.statement.Commitment }

// BirthYear returns the disclosed birth year. Only handles from ProveIdentity
// disclose it.
func (h *IdentityHandle) BirthYear() (int, bool) {
	if h.circuit != circuits.Profile {
		return 0, false
	}
	return int(h.statement.BirthYear), true
}

// PublicInputs returns the statement the proof was generated for, in circuit
// order.
func (h *IdentityHandle) PublicInputs() ([]fr.Element, error) {
	return publicInputs(h.circuit, h.statement)
}

// Verify checks the handle's proof for a verification type. Parameters are
// passed as strings: IsInAgeRange takes min and max age, IsInState a postal
// code, IsInCity a city name.
//
// ErrPredicateMismatch is returned when the proof was not generated for a
// predicate that can answer t.
func (h *IdentityHandle) Verify(t VerificationType, params ...string) (bool, error) {
	p, err := ParsePredicate(t, params...)
	if err != nil {
		return false, err
	}
	if !compatible(h.circuit, t) {
		return false, fmt.Errorf("%w: %s proof cannot answer %s", ErrPredicateMismatch, h.circuit, t)
	}

	st := h.statement
	if usesReferenceYear(h.circuit) && st.ReferenceYear != h.lib.referenceYear {
		return false, fmt.Errorf("%w: proof bound to reference year %d, keys to %d",
			ErrPredicateMismatch, st.ReferenceYear, h.lib.referenceYear)
	}
	// Disclosure circuits are checked against what the caller asks for, so a
	// wrong claim fails the pairing instead of being compared in the clear.
	switch h.circuit {
	case circuits.Gender, circuits.AgeRange, circuits.State, circuits.City:
		p.bind(&st)
	}

	public, err := publicInputs(h.circuit, st)
	if err != nil {
		return false, err
	}
	ok, err := h.lib.Verify(h.proof, h.circuit, public)
	if err != nil || !ok {
		return false, err
	}

	switch h.circuit {
	case circuits.Profile:
		disclosed := EncodedAttributes{BirthYear: st.BirthYear, Gender: st.Gender}
		return p.holds(disclosed, st.ReferenceYear), nil
	case circuits.Adult:
		return t == IsAdult, nil
	case circuits.Minor:
		return t == IsMinor, nil
	}
	return true, nil
}

func compatible(id circuits.ID, t VerificationType) bool {
	switch id {
	case circuits.Profile:
		return t == IsAdult || t == IsMinor || t == IsFemale || t == IsMale || t == IsInAgeRange
	case circuits.Adult, circuits.Minor:
		return t == IsAdult || t == IsMinor
	case circuits.Gender:
		return t == IsFemale || t == IsMale
	case circuits.AgeRange:
		return t == IsInAgeRange
	case circuits.State:
		return t == IsInState
	case circuits.City:
		return t == IsInCity
	}
	return false
}

func usesReferenceYear(id circuits.ID) bool {
	switch id {
	case circuits.Profile, circuits.Adult, circuits.Minor, circuits.AgeRange:
		return true
	}
	return false
}

type handleEnvelope struct {
	Version       uint8
	ID            string
	Circuit       uint8
	Proof         []byte
	ReferenceYear uint16
	Commitment    []byte
	BirthYear     uint16
	Gender        uint8
	MinAge        uint8
	MaxAge        uint8
	State         uint8
	City          [][]byte
}

// MarshalBinary exports the proof and its public statement. No private
// attribute is included.
func (h *IdentityHandle) MarshalBinary() ([]byte, error) {
	commitment := h.statement.Commitment.Bytes()
	env := handleEnvelope{
		Version:       handleVersion,
		ID:            h.ID(),
		Circuit:       uint8(h.circuit),
		Proof:         h.proof.Bytes(),
		ReferenceYear: h.statement.ReferenceYear,
		Commitment:    commitment[:],
		BirthYear:     h.statement.BirthYear,
		Gender:        h.statement.Gender,
		MinAge:        h.statement.MinAge,
		MaxAge:        h.statement.MaxAge,
		State:         h.statement.State,
	}
	for i := range h.statement.City {
		limb := h.statement.City[i].Bytes()
		env.City = append(env.City, limb[:])
	}
	return borsh.Serialize(env)
}

// ImportHandle decodes a handle exported with MarshalBinary and binds it to
// this library's verifying keys.
func (l *Library) ImportHandle(data []byte) (*IdentityHandle, error) {
	var env handleEnvelope
	if err := deserialize(&env, data); err != nil {
		return nil, fmt.Errorf("%w: handle: %v", ErrMalformedProof, err)
	}
	if env.Version != handleVersion {
		return nil, fmt.Errorf("%w: handle version %d", ErrMalformedProof, env.Version)
	}
	id, err := uuid.Parse(env.ID)
	if err != nil {
		return nil, fmt.Errorf("%w: handle id: %v", ErrMalformedProof, err)
	}
	circuit := circuits.ID(env.Circuit)
	if !circuit.Valid() {
		return nil, fmt.Errorf("%w: circuit %d", ErrUnsupportedPredicate, env.Circuit)
	}
	proof, err := ParseProof(env.Proof)
	if err != nil {
		return nil, err
	}

	st := circuits.Statement{
		ReferenceYear: env.ReferenceYear,
		BirthYear:     env.BirthYear,
		Gender:        env.Gender,
		MinAge:        env.MinAge,
		MaxAge:        env.MaxAge,
		State:         env.State,
	}
	if err := st.Commitment.SetBytesCanonical(env.Commitment); err != nil {
		return nil, fmt.Errorf("%w: commitment: %v", ErrMalformedProof, err)
	}
	if len(env.City) != circuits.CityLimbs {
		return nil, fmt.Errorf("%w: %d city limbs", ErrMalformedProof, len(env.City))
	}
	for i, limb := range env.City {
		if err := st.City[i].SetBytesCanonical(limb); err != nil {
			return nil, fmt.Errorf("%w: city limb %d: %v", ErrMalformedProof, i, err)
		}
	}

	h := &IdentityHandle{id: id, circuit: circuit, proof: proof, statement: st, lib: l}
	l.log.Debugf("imported %s handle %s", circuit, h.ID())
	return h, nil
}
