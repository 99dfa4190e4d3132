package domain

import "github.com/pkg/errors"

// Error taxonomy for wallet, decryption and submission flows. Callers use
// errors.Is against these sentinels; wrapped causes carry call-site context.
var (
	// ErrConnectionRejected wallet provider denied the account request.
	ErrConnectionRejected = errors.New("wallet connection rejected")
	// ErrProviderUnavailable no provider reachable.
	ErrProviderUnavailable = errors.New("provider unavailable")
	// ErrProviderTimeout provider call exceeded its deadline.
	ErrProviderTimeout = errors.New("provider call timed out")
	// ErrDecryptionDenied user decryption signature rejected. Not retryable
	// without a fresh signature.
	ErrDecryptionDenied = errors.New("decryption denied")
	// ErrHandleExpired ciphertext handle is stale, re-fetch before retry.
	ErrHandleExpired = errors.New("ciphertext handle expired")
	// ErrAlreadyDecrypted balance was already decrypted in this session.
	ErrAlreadyDecrypted = errors.New("balance already decrypted")
	// ErrInvalidLimitPrice limit price absent, zero or negative.
	ErrInvalidLimitPrice = errors.New("invalid limit price")
	// ErrSubmissionFailed generic transaction failure from the chain layer.
	ErrSubmissionFailed = errors.New("submission failed")
	// ErrNotConnected operation requires a connected wallet session.
	ErrNotConnected = errors.New("wallet not connected")
	// ErrUnknownAsset asset symbol is not in the supported set.
	ErrUnknownAsset = errors.New("unknown asset")
	// ErrSubmissionInFlight the form already has a submission in flight.
	ErrSubmissionInFlight = errors.New("submission already in flight")
)

// Retryable reports whether an operation that failed with err may be retried
// without new user interaction. Denied signatures and validation errors are
// terminal; transport-level failures are not.
func Retryable(err error) bool {
	switch {
	case errors.Is(err, ErrDecryptionDenied),
		errors.Is(err, ErrConnectionRejected),
		errors.Is(err, ErrInvalidLimitPrice),
		errors.Is(err, ErrAlreadyDecrypted),
		errors.Is(err, ErrNotConnected),
		errors.Is(err, ErrUnknownAsset):
		return false
	}
	return true
}
