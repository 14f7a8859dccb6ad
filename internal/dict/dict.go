// internal/dict/dict.go
//
// Dictionary loading for the word-chain engine.
//
// Responsibilities:
//   - Load the master word list from an environment-provided file or fall
//     back to a small embedded default.
//   - Maintain an immutable set for O(1) membership tests.
//
// The set is loaded once at process start and never mutated afterwards, so
// it is safe to share across request handlers without locking.
//
// Environment variables:
//   DICT_FILE=/path/to/kword.txt   one word per line, UTF-8
//
// Constraints:
//   • Words shorter than 2 characters are dropped (unplayable in the chain).
//   • Lines are trimmed; blank lines and '#' comments are skipped.

package dict

import (
	"bufio"
	_ "embed"
	"errors"
	"io"
	"os"
	"strings"
	"unicode/utf8"
)

// Embedded fallback so the server runs without a configured word file.
//
//go:embed default_words.txt
var embeddedWords string

// Set is an immutable collection of playable words.
type Set struct {
	words map[string]struct{}
}

// Load builds a Set from the file named by DICT_FILE, or from the embedded
// default list when the variable is unset. Returns an error if the
// resulting set is empty.
func Load() (*Set, error) {
	if path := os.Getenv("DICT_FILE"); path != "" {
		f, err := os.Open(path)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		return read(f)
	}
	return read(strings.NewReader(embeddedWords))
}

// New builds a Set directly from a word list, applying the same filtering
// as Load. Intended for tests and tools.
func New(words ...string) *Set {
	s := &Set{words: make(map[string]struct{}, len(words))}
	for _, w := range words {
		s.add(w)
	}
	return s
}

func read(r io.Reader) (*Set, error) {
	s := &Set{words: make(map[string]struct{})}
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		s.add(sc.Text())
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	if len(s.words) == 0 {
		return nil, errors.New("dict: word list is empty")
	}
	return s, nil
}

func (s *Set) add(line string) {
	w := strings.TrimSpace(line)
	if w == "" || strings.HasPrefix(w, "#") {
		return
	}
	if utf8.RuneCountInString(w) < 2 {
		return
	}
	s.words[w] = struct{}{}
}

// Contains reports whether w is a playable dictionary word.
func (s *Set) Contains(w string) bool {
	_, ok := s.words[w]
	return ok
}

// Count returns the number of loaded words.
func (s *Set) Count() int { return len(s.words) }
