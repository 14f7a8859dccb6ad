// internal/game/errors.go
//
// Error taxonomy for the engine:
//   - ValidationError: user-input problems, reported to the submitter, no
//     state mutation, never retried automatically.
//   - ErrConflict: concurrent modification detected inside the atomic
//     transition; callers re-fetch state before retrying.
//   - StorageError: transient storage/transaction failure; nothing was
//     committed, safe to retry the whole operation.

package game

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors shared between the engine and its stores.
var (
	// ErrConflict means the round changed concurrently (rolled over or
	// advanced) while an operation was in flight.
	ErrConflict = errors.New("round state changed concurrently")

	// ErrWordUsed is returned by stores when the commit-time history
	// re-check finds the word already appended by a racing submitter.
	ErrWordUsed = errors.New("word already used this round")

	// ErrNoSuchUser means the points credit targeted an unknown username.
	ErrNoSuchUser = errors.New("no such user")

	// ErrUserExists means account creation hit a taken username.
	ErrUserExists = errors.New("username taken")
)

// RejectKind identifies why a submission failed validation.
type RejectKind string

const (
	RejectInvalidStart    RejectKind = "invalid_start"
	RejectTooShort        RejectKind = "too_short"
	RejectNotInDictionary RejectKind = "not_in_dictionary"
	RejectAlreadyUsed     RejectKind = "already_used"
)

// ValidationError describes a rejected submission. For RejectInvalidStart,
// Starts lists every character the word was allowed to begin with.
type ValidationError struct {
	Kind   RejectKind
	Word   string
	Starts []rune
}

func (e *ValidationError) Error() string {
	switch e.Kind {
	case RejectInvalidStart:
		quoted := make([]string, len(e.Starts))
		for i, r := range e.Starts {
			quoted[i] = string(r)
		}
		return fmt.Sprintf("word must start with one of: %s", strings.Join(quoted, ", "))
	case RejectTooShort:
		return "word must be at least 2 characters"
	case RejectNotInDictionary:
		return fmt.Sprintf("%q is not in the dictionary", e.Word)
	case RejectAlreadyUsed:
		return fmt.Sprintf("%q was already used this round", e.Word)
	}
	return string(e.Kind)
}

// StorageError wraps a transient storage failure. The operation it wraps
// was fully rolled back.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string { return fmt.Sprintf("storage: %s: %v", e.Op, e.Err) }
func (e *StorageError) Unwrap() error { return e.Err }
