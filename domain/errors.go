package domain

import "errors"

// Error taxonomy for the interview session engine. Callers classify failures
// with errors.Is against these sentinels; concrete errors wrap them with
// contextual detail.
var (
	// ErrMediaAccess means the capture source could not be acquired.
	// Fatal to starting a session; surfaced to the user, no retry.
	ErrMediaAccess = errors.New("media access denied or unavailable")

	// ErrConnection means the live session could not be opened.
	ErrConnection = errors.New("live session connection failed")

	// ErrDecode means an audio or text payload was malformed. Payloads that
	// fail to decode are dropped; the session continues.
	ErrDecode = errors.New("malformed payload")

	// ErrTransport means a mid-session send or receive failed. Logged only;
	// the session continues unless the underlying channel closes.
	ErrTransport = errors.New("transport failure")

	// ErrSynthesis means result synthesis could not complete. Surfaced as an
	// "analysis unavailable" state, never as a zero score.
	ErrSynthesis = errors.New("analysis synthesis failed")
)
