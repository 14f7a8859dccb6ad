// internal/store/memory.go
//
// In-memory implementation of the engine's Store plus the Accounts
// interface. This is a lightweight persistence layer used in development
// and tests, or when durability is not required.
//
// Characteristics:
//   - Holds the singleton round state and a username-keyed user map.
//   - Concurrency-safe via RWMutex; every write path (rollover, append)
//     runs under the exclusive lock, which gives the serializable
//     round-transition semantics the engine requires.
//   - State is lost when the process restarts.

package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"kkutu/internal/game"
)

// User is one account row: credentials owned by the auth layer, points
// owned by the engine.
type User struct {
	Username     string
	PasswordHash string
	Points       int
	CreatedAt    time.Time
}

// Accounts is the user-account surface consumed by the auth layer.
// The engine itself only touches points, via game.Store.
type Accounts interface {
	// CreateUser inserts a new account with zero points.
	// Returns game.ErrUserExists if the username is taken.
	CreateUser(ctx context.Context, username, passwordHash string) error

	// GetUser loads an account. Returns game.ErrNoSuchUser if missing.
	GetUser(ctx context.Context, username string) (*User, error)
}

// Memory is a map-based store implementing game.Store and Accounts.
type Memory struct {
	mu    sync.RWMutex
	round *game.RoundState
	users map[string]*User
}

// NewMemory constructs a memory store seeded with the given round.
func NewMemory(initial *game.RoundState) *Memory {
	return &Memory{
		round: initial.Clone(),
		users: make(map[string]*User),
	}
}

// Round returns a copy of the current round state.
func (m *Memory) Round(ctx context.Context) (*game.RoundState, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.round.Clone(), nil
}

// ReplaceRound swaps in next if the stored epoch is still prevEpoch.
func (m *Memory) ReplaceRound(ctx context.Context, prevEpoch int, next *game.RoundState) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.round.Epoch != prevEpoch {
		return game.ErrConflict
	}
	m.round = next.Clone()
	return nil
}

// AppendWord applies the accepted word under the exclusive lock: epoch
// re-check, commit-time duplicate re-check, append, points credit. All of
// it happens or none of it does.
func (m *Memory) AppendWord(ctx context.Context, epoch int, word, username string, points int) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.round.Epoch != epoch {
		return game.ErrConflict
	}
	if m.round.Used(word) {
		return game.ErrWordUsed
	}
	u, ok := m.users[username]
	if !ok {
		return game.ErrNoSuchUser
	}

	m.round.History = append(m.round.History, word)
	m.round.LastWord = word
	u.Points += points
	return nil
}

// UserPoints returns the user's point balance.
func (m *Memory) UserPoints(ctx context.Context, username string) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	u, ok := m.users[username]
	if !ok {
		return 0, game.ErrNoSuchUser
	}
	return u.Points, nil
}

// TopRankings returns up to n rows, points descending, username ascending
// on ties.
func (m *Memory) TopRankings(ctx context.Context, n int) ([]game.RankRow, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	rows := make([]game.RankRow, 0, len(m.users))
	for _, u := range m.users {
		rows = append(rows, game.RankRow{Username: u.Username, Points: u.Points})
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].Points != rows[j].Points {
			return rows[i].Points > rows[j].Points
		}
		return rows[i].Username < rows[j].Username
	})
	if len(rows) > n {
		rows = rows[:n]
	}
	return rows, nil
}

// CreateUser inserts a new zero-point account.
func (m *Memory) CreateUser(ctx context.Context, username, passwordHash string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.users[username]; ok {
		return game.ErrUserExists
	}
	m.users[username] = &User{
		Username:     username,
		PasswordHash: passwordHash,
		CreatedAt:    time.Now().UTC(),
	}
	return nil
}

// GetUser loads an account by username.
func (m *Memory) GetUser(ctx context.Context, username string) (*User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	u, ok := m.users[username]
	if !ok {
		return nil, game.ErrNoSuchUser
	}
	cp := *u
	return &cp, nil
}
