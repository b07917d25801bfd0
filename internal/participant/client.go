package participant

import "github.com/agenthands/accord/internal/core/model"

// ReviewParticipant is one protocol actor. Implementations must derive
// exchange content and signatures purely from their inputs; the only hidden
// state allowed is the rate limiter.
//
// None of the shipped implementations perform network I/O. A live
// model-backed participant belongs behind its own implementation of this
// interface so determinism tests against these ones keep passing.
type ReviewParticipant interface {
	// Identity is the stable key used for protocol ordering and rate-limit
	// bucketing.
	Identity() string

	// Advisory participants carry reduced vote weight.
	Advisory() bool

	// Available reports whether the participant can take protocol turns.
	// Credentialed variants are unavailable until a credential is configured.
	Available() bool

	Ask(prompt string, trust float64) (model.Exchange, error)
	Critique(statement string, trust float64) (model.Exchange, error)
	Vote(transcript map[string]interface{}, trust float64) (model.Exchange, error)

	// Config exposes the participant's settings for introspection. Credentials
	// appear only as a short fingerprint, never verbatim.
	Config() map[string]interface{}

	// Reset clears rate-limiter history.
	Reset()
}
