// internal/game/engine.go
//
// Core engine for the hourly word-chain game.
// Responsibilities:
//   - Lazy hourly rollover: every state read checks the stored round's hour
//     slot against the wall clock (Asia/Seoul) and replaces the round when
//     it has expired.
//   - Word adjudication: ordered validation of a submission against the
//     chain rule (with initial-sound-law alternates), length, dictionary,
//     and history.
//   - Atomic acceptance: hands the append + points credit to the store as a
//     single transaction keyed to the round epoch the word was validated
//     against.
//
// Notes:
//   - There is no background scheduler; staleness is detected at access
//     time, so the rollover path must tolerate races with other handlers.
//   - Validation never mutates state; the AlreadyUsed check here is only a
//     fast path, the store re-checks it at commit time.

package game

import (
	"context"
	"crypto/rand"
	"errors"
	"io"
	"math/big"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/rs/zerolog/log"

	"kkutu/internal/hangul"
)

// PointsPerChar is the sole scoring rule: 10 points per character.
const PointsPerChar = 10

// rolloverAttempts bounds the read/rollover retry loop.
const rolloverAttempts = 3

// Store is the persistence contract the engine runs against.
// Implementations must serialize ReplaceRound and AppendWord against each
// other so that two concurrent submissions never both append past the same
// history snapshot.
type Store interface {
	// Round returns a copy of the current round state.
	Round(ctx context.Context) (*RoundState, error)

	// ReplaceRound swaps in a fresh round, but only while the stored
	// round's epoch is still prevEpoch; otherwise it fails with
	// ErrConflict and changes nothing.
	ReplaceRound(ctx context.Context, prevEpoch int, next *RoundState) error

	// AppendWord atomically re-checks the round epoch (ErrConflict) and
	// the history (ErrWordUsed), appends the word, updates the last word,
	// and credits points to username (ErrNoSuchUser). Either everything
	// commits or nothing does.
	AppendWord(ctx context.Context, epoch int, word, username string, points int) error

	// UserPoints returns a user's point balance.
	UserPoints(ctx context.Context, username string) (int, error)

	// TopRankings returns up to n (username, points) rows, points
	// descending, username ascending on ties.
	TopRankings(ctx context.Context, n int) ([]RankRow, error)
}

// Dictionary is the read-only word set submissions are checked against.
type Dictionary interface {
	Contains(word string) bool
}

// Engine adjudicates submissions and drives round rollover. Safe for
// concurrent use; all mutable state lives in the Store.
type Engine struct {
	store Store
	dict  Dictionary
	loc   *time.Location

	// Now is the clock the scheduler reads. Overridable in tests to pin
	// the rollover boundary; defaults to time.Now.
	Now func() time.Time
}

// NewEngine builds an engine over a store and dictionary. loc is the
// reference time zone for the hour slots (Asia/Seoul in production).
func NewEngine(st Store, d Dictionary, loc *time.Location) *Engine {
	return &Engine{store: st, dict: d, loc: loc, Now: time.Now}
}

// RoundState returns the current round, rolling it over first if its hour
// slot has passed. A successful rollover is followed by a re-read, so the
// caller always sees a stored, current round. Bounded retries; returns
// ErrConflict if the round keeps moving underneath us.
func (e *Engine) RoundState(ctx context.Context) (*RoundState, error) {
	for attempt := 0; attempt < rolloverAttempts; attempt++ {
		st, err := e.store.Round(ctx)
		if err != nil {
			return nil, &StorageError{Op: "read round", Err: err}
		}
		hour := e.Now().In(e.loc).Hour()
		if st.Epoch == hour {
			return st, nil
		}

		next := NewRound(RandomStartChar(), hour)
		if err := e.store.ReplaceRound(ctx, st.Epoch, next); err != nil {
			if errors.Is(err, ErrConflict) {
				// Another handler rolled the round first; re-read.
				continue
			}
			return nil, &StorageError{Op: "roll over round", Err: err}
		}
		log.Info().
			Str("startChar", string(next.StartChar)).
			Int("hour", hour).
			Msg("round rolled over")
	}
	return nil, ErrConflict
}

// SubmitWord validates word against the current round and, if it passes,
// commits the append + points credit as one transaction. Validation
// failures come back inside the Result; ErrConflict and storage failures
// come back as errors with no state change.
func (e *Engine) SubmitWord(ctx context.Context, word, username string) (*Result, error) {
	word = strings.TrimSpace(word)

	st, err := e.RoundState(ctx)
	if err != nil {
		return nil, err
	}
	if ve := Adjudicate(word, st, e.dict); ve != nil {
		return &Result{Reject: ve}, nil
	}

	points := Score(word)
	if err := e.store.AppendWord(ctx, st.Epoch, word, username, points); err != nil {
		switch {
		case errors.Is(err, ErrWordUsed):
			// Lost the race to an identical submission.
			return &Result{Reject: &ValidationError{Kind: RejectAlreadyUsed, Word: word}}, nil
		case errors.Is(err, ErrConflict):
			return nil, ErrConflict
		case errors.Is(err, ErrNoSuchUser):
			return nil, err
		default:
			return nil, &StorageError{Op: "append word", Err: err}
		}
	}
	return &Result{Accepted: true, Points: points}, nil
}

// UserPoints returns username's point balance.
func (e *Engine) UserPoints(ctx context.Context, username string) (int, error) {
	pts, err := e.store.UserPoints(ctx, username)
	if err != nil {
		if errors.Is(err, ErrNoSuchUser) {
			return 0, err
		}
		return 0, &StorageError{Op: "read points", Err: err}
	}
	return pts, nil
}

// TopRankings returns the top n leaderboard rows (default 10 when n <= 0).
func (e *Engine) TopRankings(ctx context.Context, n int) ([]RankRow, error) {
	if n <= 0 {
		n = 10
	}
	rows, err := e.store.TopRankings(ctx, n)
	if err != nil {
		return nil, &StorageError{Op: "read rankings", Err: err}
	}
	return rows, nil
}

// Adjudicate runs the ordered validation checks against a round snapshot.
// Returns nil when the word may be submitted. First failing check wins:
// start rule, length, dictionary, history.
func Adjudicate(word string, st *RoundState, dict Dictionary) *ValidationError {
	starts := hangul.ValidStarts(st.ChainChar())
	runes := []rune(word)

	if len(runes) == 0 || !containsRune(starts, runes[0]) {
		return &ValidationError{Kind: RejectInvalidStart, Word: word, Starts: starts}
	}
	if len(runes) < 2 {
		return &ValidationError{Kind: RejectTooShort, Word: word}
	}
	if !dict.Contains(word) {
		return &ValidationError{Kind: RejectNotInDictionary, Word: word}
	}
	if st.Used(word) {
		// Advisory only; AppendWord re-checks under the transaction.
		return &ValidationError{Kind: RejectAlreadyUsed, Word: word}
	}
	return nil
}

// Score computes the points for an accepted word: PointsPerChar per
// character (runes, not bytes).
func Score(word string) int {
	return PointsPerChar * utf8.RuneCountInString(word)
}

// RandomStartChar draws a syllable uniformly at random from the full
// Hangul syllable block using crypto/rand entropy. If the entropy source
// fails it falls back to DefaultStartChar rather than panicking.
func RandomStartChar() rune { return randomStartChar(rand.Reader) }

func randomStartChar(rd io.Reader) rune {
	const base, count = 0xAC00, 0xD7A3 - 0xAC00 + 1
	n, err := rand.Int(rd, big.NewInt(count))
	if err != nil {
		return DefaultStartChar
	}
	return rune(base + n.Int64())
}

func containsRune(rs []rune, r rune) bool {
	for _, x := range rs {
		if x == r {
			return true
		}
	}
	return false
}
