// Package zkp produces and verifies selective-disclosure identity proofs.
//
// A Library is initialized once from a proving and a verifying key bundle and
// is safe for concurrent use. Proofs are Groth16 over BLS12-381 and serialize
// to exactly ProofSize bytes.
package zkp

import (
	"context"
	"crypto/rand"
	"fmt"
	"io"
	"runtime"
	"time"

	"github.com/consensys/gnark/backend/groth16"
	"github.com/consensys/gnark/constraint"
	"golang.org/x/sync/errgroup"

	"zk-identity/pkg/logger"
	"zk-identity/pkg/zkp/circuits"
)

type circuitKeys struct {
	ccs constraint.ConstraintSystem
	pk  groth16.ProvingKey
	vk  groth16.VerifyingKey
}

type Library struct {
	log           *logger.Logger
	rand          io.Reader
	concurrency   int
	referenceYear uint16
	keys          map[circuits.ID]*circuitKeys
	canProve      bool
}

type options struct {
	log         *logger.Logger
	rand        io.Reader
	concurrency int
}

type Option func(*options)

func WithLogger(l *logger.Logger) Option {
	return func(o *options) {
		o.log = l
	}
}

// WithRandomness replaces crypto/rand as the source of salts and blinding
// scalars. Only tests should pass anything other than a CSPRNG.
func WithRandomness(r io.Reader) Option {
	return func(o *options) {
		o.rand = r
	}
}

// WithConcurrency bounds the number of circuits compiled or proved at once.
func WithConcurrency(n int) Option {
	return func(o *options) {
		o.concurrency = n
	}
}

func newOptions(opts []Option) options {
	o := options{
		log:         logger.Nop(),
		rand:        rand.Reader,
		concurrency: runtime.GOMAXPROCS(0),
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.log == nil {
		o.log = logger.Nop()
	}
	if o.rand == nil {
		o.rand = rand.Reader
	}
	if o.concurrency < 1 {
		o.concurrency = 1
	}
	return o
}

// Initialize loads a proving and a verifying key bundle. Both must have been
// generated together: same reference year, same circuits.
func Initialize(provingKey, verifyingKey []byte, opts ...Option) (*Library, error) {
	pkBundle, err := ParseKeyBundle(provingKey)
	if err != nil {
		return nil, fmt.Errorf("proving key: %w", err)
	}
	if pkBundle.Kind != ProvingKeyKind {
		return nil, fmt.Errorf("%w: expected proving key bundle, got %s", ErrKeyFormat, pkBundle.Kind)
	}
	vkBundle, err := ParseKeyBundle(verifyingKey)
	if err != nil {
		return nil, fmt.Errorf("verifying key: %w", err)
	}
	if vkBundle.Kind != VerifyingKeyKind {
		return nil, fmt.Errorf("%w: expected verifying key bundle, got %s", ErrKeyFormat, vkBundle.Kind)
	}
	if pkBundle.ReferenceYear != vkBundle.ReferenceYear {
		return nil, fmt.Errorf("%w: reference year %d in proving keys, %d in verifying keys",
			ErrKeyFormat, pkBundle.ReferenceYear, vkBundle.ReferenceYear)
	}
	if !sameCircuits(pkBundle, vkBundle) {
		return nil, fmt.Errorf("%w: proving and verifying bundles cover different circuits", ErrKeyFormat)
	}
	return load(pkBundle, vkBundle, newOptions(opts))
}

// InitializeVerifier loads only verifying keys. The returned library verifies
// and imports handles but fails every proving call with ErrProving.
func InitializeVerifier(verifyingKey []byte, opts ...Option) (*Library, error) {
	vkBundle, err := ParseKeyBundle(verifyingKey)
	if err != nil {
		return nil, fmt.Errorf("verifying key: %w", err)
	}
	if vkBundle.Kind != VerifyingKeyKind {
		return nil, fmt.Errorf("%w: expected verifying key bundle, got %s", ErrKeyFormat, vkBundle.Kind)
	}
	return load(nil, vkBundle, newOptions(opts))
}

func load(pkBundle, vkBundle *KeyBundle, o options) (*Library, error) {
	start := time.Now()
	ids := vkBundle.Circuits()
	loaded := make([]*circuitKeys, len(ids))

	var g errgroup.Group
	g.SetLimit(o.concurrency)
	for i, id := range ids {
		g.Go(func() error {
			k := &circuitKeys{}
			var err error
			if k.vk, err = readVerifyingKey(id, vkBundle.Keys[id]); err != nil {
				return err
			}
			if pkBundle != nil {
				if k.pk, err = readProvingKey(id, pkBundle.Keys[id]); err != nil {
					return err
				}
				if k.ccs, err = circuits.Compile(id); err != nil {
					return fmt.Errorf("%w: %v", ErrProving, err)
				}
			}
			loaded[i] = k
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	lib := &Library{
		log:           o.log,
		rand:          &lockedReader{r: o.rand},
		concurrency:   o.concurrency,
		referenceYear: vkBundle.ReferenceYear,
		keys:          make(map[circuits.ID]*circuitKeys, len(ids)),
		canProve:      pkBundle != nil,
	}
	for i, id := range ids {
		lib.keys[id] = loaded[i]
	}

	lib.log.Infof("zkp library loaded %d circuits (reference year %d, prover %t) in %s",
		len(ids), lib.referenceYear, lib.canProve, time.Since(start))
	return lib, nil
}

// ReferenceYear is the year ages are computed against, pinned by the keys.
func (l *Library) ReferenceYear() uint16 { return l.referenceYear }

// CanProve reports whether proving keys were loaded.
func (l *Library) CanProve() bool { return l.canProve }

// Circuits lists the loaded circuits in canonical order.
func (l *Library) Circuits() []circuits.ID {
	out := make([]circuits.ID, 0, len(l.keys))
	for _, id := range circuits.All {
		if _, ok := l.keys[id]; ok {
			out = append(out, id)
		}
	}
	return out
}

// ProveIdentity proves adulthood and discloses birth year and gender. The
// resulting handle answers IsAdult, IsMinor, IsFemale, IsMale and
// IsInAgeRange.
func (l *Library) ProveIdentity(ctx context.Context, name string, birthYear int, city, state, gender string) (*IdentityHandle, error) {
	return l.Prove(ctx, RawIdentity{
		Name:      name,
		BirthYear: birthYear,
		City:      city,
		State:     state,
		Gender:    gender,
	})
}

// Prove is ProveIdentity taking a RawIdentity.
func (l *Library) Prove(ctx context.Context, raw RawIdentity) (*IdentityHandle, error) {
	if err := l.provable(ctx, circuits.Profile); err != nil {
		return nil, err
	}
	attrs, err := Encode(raw)
	if err != nil {
		return nil, err
	}
	salt, err := randomSalt(l.rand)
	if err != nil {
		return nil, err
	}
	w, err := buildProfileWitness(attrs, l.referenceYear, salt)
	if err != nil {
		return nil, err
	}
	return l.proveWitness(w)
}

// ProvePredicate proves a single predicate without disclosing any attribute.
func (l *Library) ProvePredicate(ctx context.Context, raw RawIdentity, p Predicate) (*IdentityHandle, error) {
	handles, err := l.ProvePredicates(ctx, raw, p)
	if err != nil {
		return nil, err
	}
	return handles[0], nil
}

// ProvePredicates proves several predicates concurrently. All handles share
// one commitment, so a verifier can tell they describe the same identity.
// Every predicate is checked before any proof is started.
func (l *Library) ProvePredicates(ctx context.Context, raw RawIdentity, ps ...Predicate) ([]*IdentityHandle, error) {
	if len(ps) == 0 {
		return nil, fmt.Errorf("%w: no predicates", ErrInvalidParameters)
	}
	for _, p := range ps {
		if err := p.validate(); err != nil {
			return nil, err
		}
		id, err := p.circuit()
		if err != nil {
			return nil, err
		}
		if err := l.provable(ctx, id); err != nil {
			return nil, err
		}
	}

	attrs, err := Encode(raw)
	if err != nil {
		return nil, err
	}
	salt, err := randomSalt(l.rand)
	if err != nil {
		return nil, err
	}

	witnesses := make([]*Witness, len(ps))
	for i, p := range ps {
		if witnesses[i], err = BuildWitness(attrs, p, l.referenceYear, salt); err != nil {
			return nil, err
		}
	}

	handles := make([]*IdentityHandle, len(ps))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(l.concurrency)
	for i, w := range witnesses {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				w.discard()
				return err
			}
			h, err := l.proveWitness(w)
			if err != nil {
				return err
			}
			handles[i] = h
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		for _, w := range witnesses {
			w.discard()
		}
		return nil, err
	}
	return handles, nil
}

// provable checks that ctx is live and that id can be proved here.
func (l *Library) provable(ctx context.Context, id circuits.ID) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	k, ok := l.keys[id]
	if !ok {
		return fmt.Errorf("%w: circuit %s not loaded", ErrUnsupportedPredicate, id)
	}
	if !l.canProve || k.pk == nil {
		return fmt.Errorf("%w: library was initialized without proving keys", ErrProving)
	}
	return nil
}

// ProveWitness proves a witness from BuildWitness and returns the bare proof.
// The witness cannot be reused afterwards.
func (l *Library) ProveWitness(ctx context.Context, w *Witness) (Proof, error) {
	if err := l.provable(ctx, w.circuit); err != nil {
		w.discard()
		return Proof{}, err
	}
	return prove(l.keys[w.circuit], w, l.rand)
}

func (l *Library) proveWitness(w *Witness) (*IdentityHandle, error) {
	start := time.Now()
	id, st := w.circuit, w.statement

	proof, err := prove(l.keys[id], w, l.rand)
	if err != nil {
		l.log.Errorf(err, "proving %s failed", id)
		return nil, err
	}
	h := newHandle(l, id, proof, st)
	l.log.Debugf("proved %s as handle %s in %s", id, h.ID(), time.Since(start))
	return h, nil
}
