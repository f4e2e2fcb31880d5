package reasoncodes

type ReasonCode string

const (
	ErrEncoding             ReasonCode = "EncodingError"
	ErrUnsupportedPredicate ReasonCode = "UnsupportedPredicate"
	ErrInvalidParameters    ReasonCode = "InvalidParameters"
	ErrUnsatisfiedPredicate ReasonCode = "UnsatisfiedPredicate"
	ErrProofGeneration      ReasonCode = "ProvingError"
	ErrMalformedProof       ReasonCode = "MalformedProof"
	ErrPredicateMismatch    ReasonCode = "PredicateMismatch"
	ErrKeyFormat            ReasonCode = "KeyFormatError"
	ErrUnmarshal            ReasonCode = "UnmarshalError"
	ErrUnknown              ReasonCode = "UnknownError"
)

// Retryable reports whether a caller may retry the failed operation once.
// Only proving failures qualify; everything else is deterministic.
func (rc ReasonCode) Retryable() bool {
	return rc == ErrProofGeneration
}
