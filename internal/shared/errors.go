package shared

import "fmt"

var (
	// Credential errors
	ErrCredentialMissing   = fmt.Errorf("credential missing")
	ErrCredentialMalformed = fmt.Errorf("credential file malformed")

	// Authentication errors
	ErrNetworkUnreachable       = fmt.Errorf("network unreachable")
	ErrAuthExchangeFailed       = fmt.Errorf("token exchange rejected")
	ErrAuthExpired              = fmt.Errorf("authorization expired")
	ErrInteractiveAuthAbandoned = fmt.Errorf("interactive authorization abandoned")
	ErrUserDeclined             = fmt.Errorf("%w: user declined", ErrInteractiveAuthAbandoned)
	ErrTimeout                  = fmt.Errorf("%w: timed out waiting for callback", ErrInteractiveAuthAbandoned)
	ErrSessionUnavailable       = fmt.Errorf("no authenticated session")

	// Catalog errors
	ErrCatalogRequest    = fmt.Errorf("catalog request failed")
	ErrMalformedResponse = fmt.Errorf("malformed catalog response")

	// ErrNoMatch is a negative result rather than a failure.
	ErrNoMatch = fmt.Errorf("no matching catalog item")

	// Input validation errors
	ErrUnsupportedFile = fmt.Errorf("unsupported file type")
	ErrInvalidArgument = fmt.Errorf("invalid argument")
)
