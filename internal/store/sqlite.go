// internal/store/sqlite.go
//
// SQLite implementation of game.Store and Accounts. The round lives in a
// singleton row (id = 1) with the history as a JSON array column; users are
// keyed by username with a non-negative points counter.
//
// Serialization: the database is opened with _txlock=immediate (see db.go
// in the root package), so every write transaction takes the write lock
// before its first read. Combined with the epoch/history re-checks inside
// AppendWord, two racing submissions can never both append past the same
// history snapshot.

package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog/log"

	"kkutu/internal/game"
)

// SQLite wraps a *sql.DB whose schema has already been initialized.
type SQLite struct {
	db *sql.DB
}

// NewSQLite constructs the store. The caller owns the handle's lifecycle.
func NewSQLite(db *sql.DB) *SQLite {
	return &SQLite{db: db}
}

// InitSchema creates the two tables and seeds the singleton round row when
// it does not exist yet. Safe to run on every startup.
func InitSchema(db *sql.DB, seed *game.RoundState) error {
	if _, err := db.Exec(`
        CREATE TABLE IF NOT EXISTS users (
            username      TEXT PRIMARY KEY,
            password_hash TEXT NOT NULL,
            points        INTEGER NOT NULL DEFAULT 0 CHECK (points >= 0),
            created_at    TEXT NOT NULL
        );
        CREATE TABLE IF NOT EXISTS round (
            id         INTEGER PRIMARY KEY CHECK (id = 1),
            start_char TEXT NOT NULL,
            epoch_hour INTEGER NOT NULL,
            history    TEXT NOT NULL,
            last_word  TEXT NOT NULL
        );`); err != nil {
		return fmt.Errorf("create tables: %w", err)
	}

	var cnt int
	if err := db.QueryRow(`SELECT COUNT(1) FROM round WHERE id=1`).Scan(&cnt); err != nil {
		return fmt.Errorf("check round row: %w", err)
	}
	if cnt > 0 {
		return nil
	}

	histJSON, err := json.Marshal(seed.History)
	if err != nil {
		return err
	}
	if _, err := db.Exec(
		`INSERT INTO round (id, start_char, epoch_hour, history, last_word) VALUES (1,?,?,?,?)`,
		string(seed.StartChar), seed.Epoch, string(histJSON), seed.LastWord); err != nil {
		return fmt.Errorf("seed round row: %w", err)
	}
	log.Info().Str("startChar", string(seed.StartChar)).Int("hour", seed.Epoch).Msg("seeded initial round")
	return nil
}

// Round loads the singleton round row.
func (s *SQLite) Round(ctx context.Context) (*game.RoundState, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT start_char, epoch_hour, history, last_word FROM round WHERE id=1`)
	return scanRound(row)
}

func scanRound(row *sql.Row) (*game.RoundState, error) {
	var (
		startChar string
		st        game.RoundState
		histJSON  string
	)
	if err := row.Scan(&startChar, &st.Epoch, &histJSON, &st.LastWord); err != nil {
		return nil, err
	}
	for _, r := range startChar {
		st.StartChar = r
		break
	}
	if err := json.Unmarshal([]byte(histJSON), &st.History); err != nil {
		return nil, fmt.Errorf("decode history: %w", err)
	}
	return &st, nil
}

// ReplaceRound swaps in a fresh round. The conditional UPDATE keyed on the
// previous epoch makes the check-and-swap a single atomic statement; zero
// rows affected means another handler already rolled the round over.
func (s *SQLite) ReplaceRound(ctx context.Context, prevEpoch int, next *game.RoundState) error {
	histJSON, err := json.Marshal(next.History)
	if err != nil {
		return fmt.Errorf("encode history: %w", err)
	}
	res, err := s.db.ExecContext(ctx,
		`UPDATE round SET start_char=?, epoch_hour=?, history=?, last_word=?
		 WHERE id=1 AND epoch_hour=?`,
		string(next.StartChar), next.Epoch, string(histJSON), next.LastWord, prevEpoch)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return game.ErrConflict
	}
	return nil
}

// AppendWord runs the accepted word through one write transaction:
// re-read the round, re-validate epoch and history, append, credit points.
// Any failure rolls the whole thing back.
func (s *SQLite) AppendWord(ctx context.Context, epoch int, word, username string, points int) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	var (
		storedEpoch int
		histJSON    string
	)
	if err := tx.QueryRowContext(ctx,
		`SELECT epoch_hour, history FROM round WHERE id=1`).Scan(&storedEpoch, &histJSON); err != nil {
		return err
	}
	if storedEpoch != epoch {
		return game.ErrConflict
	}

	var history []string
	if err := json.Unmarshal([]byte(histJSON), &history); err != nil {
		return fmt.Errorf("decode history: %w", err)
	}
	for _, w := range history {
		if w == word {
			return game.ErrWordUsed
		}
	}
	history = append(history, word)
	newHist, err := json.Marshal(history)
	if err != nil {
		return fmt.Errorf("encode history: %w", err)
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE round SET history=?, last_word=? WHERE id=1`,
		string(newHist), word); err != nil {
		return err
	}

	res, err := tx.ExecContext(ctx,
		`UPDATE users SET points = points + ? WHERE username=?`, points, username)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return game.ErrNoSuchUser
	}

	return tx.Commit()
}

// UserPoints returns the user's balance.
func (s *SQLite) UserPoints(ctx context.Context, username string) (int, error) {
	var pts int
	err := s.db.QueryRowContext(ctx,
		`SELECT points FROM users WHERE username=?`, username).Scan(&pts)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, game.ErrNoSuchUser
	}
	return pts, err
}

// TopRankings fetches the leaderboard, points descending with a stable
// username tie-break.
func (s *SQLite) TopRankings(ctx context.Context, n int) ([]game.RankRow, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT username, points FROM users
		 ORDER BY points DESC, username ASC LIMIT ?`, n)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]game.RankRow, 0, n)
	for rows.Next() {
		var r game.RankRow
		if err := rows.Scan(&r.Username, &r.Points); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// CreateUser inserts a new zero-point account. The username primary key is
// the single source of truth for uniqueness, so a lost signup race comes
// back as game.ErrUserExists rather than a raw constraint error.
func (s *SQLite) CreateUser(ctx context.Context, username, passwordHash string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO users (username, password_hash, points, created_at) VALUES (?,?,0,?)`,
		username, passwordHash, time.Now().UTC().Format(time.RFC3339))
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) && sqliteErr.Code == sqlite3.ErrConstraint {
		return game.ErrUserExists
	}
	return err
}

// GetUser loads an account by username.
func (s *SQLite) GetUser(ctx context.Context, username string) (*User, error) {
	var (
		u       User
		created string
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT username, password_hash, points, created_at FROM users WHERE username=?`,
		username).Scan(&u.Username, &u.PasswordHash, &u.Points, &created)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, game.ErrNoSuchUser
	}
	if err != nil {
		return nil, err
	}
	u.CreatedAt, _ = time.Parse(time.RFC3339, created)
	return &u, nil
}
