// internal/game/types.go
//
// Core type definitions for the word-chain engine.
// Defines:
//   - RoundState: the singleton record for the hour-bounded round.
//   - Result: outcome of a word submission (accepted or rejected).
//   - RankRow: one leaderboard entry.

package game

// SentinelWord seeds every fresh round's history before any real word is
// chained.
const SentinelWord = "시작"

// DefaultStartChar is the start character of the very first round, before
// any hourly rollover has drawn a random one.
const DefaultStartChar = '가'

// RoundState holds the state of the active round. There is exactly one
// logical instance at any time; stores hand out copies, never shared
// pointers into their own state.
type RoundState struct {
	StartChar rune     `json:"startChar"` // mandated first letter for the round's first word
	Epoch     int      `json:"epoch"`     // hour-of-day slot this round belongs to
	History   []string `json:"history"`   // accepted words in order, sentinel first
	LastWord  string   `json:"lastWord"`  // always the last element of History
}

// NewRound builds a fresh round for the given start character and hour slot.
func NewRound(start rune, epoch int) *RoundState {
	return &RoundState{
		StartChar: start,
		Epoch:     epoch,
		History:   []string{SentinelWord},
		LastWord:  SentinelWord,
	}
}

// Clone returns a deep copy safe to mutate independently.
func (s *RoundState) Clone() *RoundState {
	c := *s
	c.History = append([]string(nil), s.History...)
	return &c
}

// Used reports whether word already appears in the round's history.
func (s *RoundState) Used(word string) bool {
	for _, w := range s.History {
		if w == word {
			return true
		}
	}
	return false
}

// ChainChar returns the character the next word has to chain off: the last
// character of the last accepted word, or the round's start character while
// only the sentinel is in the history.
func (s *RoundState) ChainChar() rune {
	if s.LastWord == SentinelWord || s.LastWord == "" {
		return s.StartChar
	}
	runes := []rune(s.LastWord)
	return runes[len(runes)-1]
}

// Result is the engine's answer to a word submission. Exactly one of
// Accepted or Reject is meaningful.
type Result struct {
	Accepted bool
	Points   int              // credited points when accepted
	Reject   *ValidationError // rejection reason otherwise
}

// RankRow is one leaderboard entry.
type RankRow struct {
	Username string `json:"username"`
	Points   int    `json:"points"`
}
