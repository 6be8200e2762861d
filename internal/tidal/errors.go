package tidal

import (
	"errors"
	"fmt"
)

// Batch-level errors. Any of these is fatal for the catalog URL being
// processed: no tracks can be produced without auth and resolution.
var (
	// ErrEndpointUnreachable indicates the remote endpoint could not be
	// reached or returned an unexpected status.
	ErrEndpointUnreachable = errors.New("tidal: endpoint unreachable")

	// ErrMalformedResponse indicates the endpoint replied with a payload
	// that could not be parsed into the expected fields.
	ErrMalformedResponse = errors.New("tidal: malformed response")

	// ErrAuthDenied indicates the user denied the device authorization.
	ErrAuthDenied = errors.New("tidal: authorization denied")

	// ErrAuthExpired indicates the device code expired before the user
	// authorized it.
	ErrAuthExpired = errors.New("tidal: device code expired")

	// ErrAuthTimeout indicates the polling window elapsed without a
	// terminal answer from the token endpoint.
	ErrAuthTimeout = errors.New("tidal: authorization timed out")

	// ErrManifestDecode indicates the playback manifest could not be
	// decoded. The manifest is an externally controlled, versionless
	// blob; any shape deviation maps here instead of a panic.
	ErrManifestDecode = errors.New("tidal: manifest decode failure")

	// ErrNoStreamURL indicates a decoded manifest carried no stream URLs.
	ErrNoStreamURL = errors.New("tidal: manifest has no stream url")

	// ErrUnsupportedLink indicates a catalog URL that does not denote a
	// track, album or playlist (artist pages are not supported).
	ErrUnsupportedLink = errors.New("tidal: unsupported link")
)

// MissingFieldError reports a catalog item that lacks a field required
// for naming and tagging. It fails the whole resolution: downstream code
// assumes every descriptor is complete.
type MissingFieldError struct {
	Field string
}

func (e *MissingFieldError) Error() string {
	return fmt.Sprintf("tidal: catalog item is missing required field %q", e.Field)
}
