package zkp

import (
	"bytes"
	"fmt"
	"io"
	"slices"

	"github.com/consensys/gnark/backend/groth16"
	"github.com/near/borsh-go"

	"zk-identity/pkg/zkp/circuits"
)

const (
	bundleMagic  = "ZKID"
	bundleFormat = uint16(1)
	bundleCurve  = "bls12_381"
)

type KeyKind uint8

const (
	ProvingKeyKind   KeyKind = 1
	VerifyingKeyKind KeyKind = 2
)

func (k KeyKind) String() string {
	switch k {
	case ProvingKeyKind:
		return "proving"
	case VerifyingKeyKind:
		return "verifying"
	}
	return fmt.Sprintf("KeyKind(%d)", uint8(k))
}

// KeyBundle holds one serialized gnark key per circuit, all generated for the
// same reference year.
type KeyBundle struct {
	Kind          KeyKind
	ReferenceYear uint16
	Keys          map[circuits.ID][]byte
}

type bundleEntry struct {
	Circuit uint8
	Key     []byte
}

type bundleWire struct {
	Magic          string
	Format         uint16
	Curve          string
	CircuitVersion uint16
	Kind           uint8
	ReferenceYear  uint16
	Entries        []bundleEntry
}

func NewKeyBundle(kind KeyKind, referenceYear uint16) *KeyBundle {
	return &KeyBundle{Kind: kind, ReferenceYear: referenceYear, Keys: make(map[circuits.ID][]byte)}
}

// Add serializes a gnark proving or verifying key into the bundle.
func (b *KeyBundle) Add(id circuits.ID, key io.WriterTo) error {
	var buf bytes.Buffer
	if _, err := key.WriteTo(&buf); err != nil {
		return fmt.Errorf("write %s key for %s: %w", b.Kind, id, err)
	}
	b.Keys[id] = buf.Bytes()
	return nil
}

// Circuits returns the bundled circuits in canonical order.
func (b *KeyBundle) Circuits() []circuits.ID {
	out := make([]circuits.ID, 0, len(b.Keys))
	for _, id := range circuits.All {
		if _, ok := b.Keys[id]; ok {
			out = append(out, id)
		}
	}
	return out
}

func (b *KeyBundle) MarshalBinary() ([]byte, error) {
	wire := bundleWire{
		Magic:          bundleMagic,
		Format:         bundleFormat,
		Curve:          bundleCurve,
		CircuitVersion: circuits.Version,
		Kind:           uint8(b.Kind),
		ReferenceYear:  b.ReferenceYear,
	}
	for _, id := range b.Circuits() {
		wire.Entries = append(wire.Entries, bundleEntry{Circuit: uint8(id), Key: b.Keys[id]})
	}
	return borsh.Serialize(wire)
}

// ParseKeyBundle decodes a bundle and checks its header. Every failure wraps
// ErrKeyFormat.
func ParseKeyBundle(data []byte) (*KeyBundle, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: empty key bundle", ErrKeyFormat)
	}
	var wire bundleWire
	if err := deserialize(&wire, data); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrKeyFormat, err)
	}

	switch {
	case wire.Magic != bundleMagic:
		return nil, fmt.Errorf("%w: bad magic %q", ErrKeyFormat, wire.Magic)
	case wire.Format != bundleFormat:
		return nil, fmt.Errorf("%w: unsupported format %d", ErrKeyFormat, wire.Format)
	case wire.Curve != bundleCurve:
		return nil, fmt.Errorf("%w: curve %q, want %q", ErrKeyFormat, wire.Curve, bundleCurve)
	case wire.CircuitVersion != circuits.Version:
		return nil, fmt.Errorf("%w: circuit version %d, want %d", ErrKeyFormat, wire.CircuitVersion, circuits.Version)
	case KeyKind(wire.Kind) != ProvingKeyKind && KeyKind(wire.Kind) != VerifyingKeyKind:
		return nil, fmt.Errorf("%w: unknown key kind %d", ErrKeyFormat, wire.Kind)
	case len(wire.Entries) == 0:
		return nil, fmt.Errorf("%w: bundle has no keys", ErrKeyFormat)
	}

	b := NewKeyBundle(KeyKind(wire.Kind), wire.ReferenceYear)
	for _, e := range wire.Entries {
		id := circuits.ID(e.Circuit)
		if !id.Valid() {
			return nil, fmt.Errorf("%w: unknown circuit %d", ErrKeyFormat, e.Circuit)
		}
		if _, dup := b.Keys[id]; dup {
			return nil, fmt.Errorf("%w: duplicate entry for %s", ErrKeyFormat, id)
		}
		if len(e.Key) == 0 {
			return nil, fmt.Errorf("%w: empty key for %s", ErrKeyFormat, id)
		}
		b.Keys[id] = e.Key
	}
	return b, nil
}

func readProvingKey(id circuits.ID, data []byte) (groth16.ProvingKey, error) {
	pk := groth16.NewProvingKey(circuits.Curve)
	if _, err := pk.ReadFrom(bytes.NewReader(data)); err != nil {
		return nil, fmt.Errorf("%w: read proving key %s: %v", ErrKeyFormat, id, err)
	}
	return pk, nil
}

// readVerifyingKey also checks the key against the circuit's public layout.
func readVerifyingKey(id circuits.ID, data []byte) (groth16.VerifyingKey, error) {
	vk := groth16.NewVerifyingKey(circuits.Curve)
	if _, err := vk.ReadFrom(bytes.NewReader(data)); err != nil {
		return nil, fmt.Errorf("%w: read verifying key %s: %v", ErrKeyFormat, id, err)
	}
	if got, want := vk.NbPublicWitness(), len(id.PublicInputs()); got != want {
		return nil, fmt.Errorf("%w: verifying key for %s has %d public inputs, circuit has %d", ErrKeyFormat, id, got, want)
	}
	return vk, nil
}

// sameCircuits reports whether both bundles cover the same circuits.
func sameCircuits(a, b *KeyBundle) bool {
	return slices.Equal(a.Circuits(), b.Circuits())
}

// deserialize wraps borsh.Deserialize, which panics on some truncated inputs.
func deserialize(dst any, data []byte) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("borsh decode: %v", r)
		}
	}()
	return borsh.Deserialize(dst, data)
}
