// internal/lobby/errors.go
package lobby

import "errors"

// Sentinel errors returned by store transitions. Each maps onto one of the
// error classes the session layer reports to clients: not-found, capacity,
// authorization, and state-conflict. Guard failures that must stay idempotent
// for retried messages (double submit, double judge) do not error at all;
// those transitions return the lobby unchanged instead.
var (
	ErrNotFound     = errors.New("lobby not found")
	ErrAtCapacity   = errors.New("server is at lobby capacity")
	ErrLobbyFull    = errors.New("lobby already has a connected player")
	ErrInvalidToken = errors.New("invalid session token")

	ErrWrongPhase       = errors.New("action not legal in current phase")
	ErrIndexMismatch    = errors.New("question index does not match current question")
	ErrQuestionMismatch = errors.New("question id does not match catalog at index")
	ErrPackLocked       = errors.New("pack cannot change once setup has begun")
	ErrUnknownPack      = errors.New("unknown question pack")
	ErrSetupIncomplete  = errors.New("host has not answered all questions")
	ErrPlayerMissing    = errors.New("no connected player in lobby")
)
