package zkp

import (
	"errors"

	"zk-identity/pkg/reasoncodes"
)

var (
	ErrEncoding             = errors.New("encoding error")
	ErrUnsupportedPredicate = errors.New("unsupported predicate")
	ErrInvalidParameters    = errors.New("invalid parameters")
	// ErrUnsatisfiedPredicate means the claim is false for these attributes.
	// It is an expected outcome and retrying will not change it.
	ErrUnsatisfiedPredicate = errors.New("unsatisfied predicate")
	ErrProving              = errors.New("proving error")
	ErrMalformedProof       = errors.New("malformed proof")
	ErrPredicateMismatch    = errors.New("predicate mismatch")
	ErrKeyFormat            = errors.New("key format error")
)

var reasonCodes = []struct {
	err  error
	code reasoncodes.ReasonCode
}{
	{ErrEncoding, reasoncodes.ErrEncoding},
	{ErrUnsupportedPredicate, reasoncodes.ErrUnsupportedPredicate},
	{ErrInvalidParameters, reasoncodes.ErrInvalidParameters},
	{ErrUnsatisfiedPredicate, reasoncodes.ErrUnsatisfiedPredicate},
	{ErrProving, reasoncodes.ErrProofGeneration},
	{ErrMalformedProof, reasoncodes.ErrMalformedProof},
	{ErrPredicateMismatch, reasoncodes.ErrPredicateMismatch},
	{ErrKeyFormat, reasoncodes.ErrKeyFormat},
}

// ReasonCode maps an error returned by this package onto its reason code.
// Errors from elsewhere map to reasoncodes.ErrUnknown.
func ReasonCode(err error) reasoncodes.ReasonCode {
	for _, rc := range reasonCodes {
		if errors.Is(err, rc.err) {
			return rc.code
		}
	}
	return reasoncodes.ErrUnknown
}
