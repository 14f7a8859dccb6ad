package httpserver

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kkutu/internal/dict"
	"kkutu/internal/game"
	"kkutu/internal/store"
)

var kst = time.FixedZone("KST", 9*60*60)

func newTestServer(t *testing.T, words ...string) (*Server, *store.Memory) {
	t.Helper()
	mem := store.NewMemory(game.NewRound('사', 14))
	set := dict.New(words...)
	e := game.NewEngine(mem, set, kst)
	e.Now = func() time.Time { return time.Date(2026, 8, 29, 14, 5, 0, 0, kst) }
	return New(e, mem, set), mem
}

func doJSON(t *testing.T, s *Server, method, path, body string, cookies []*http.Cookie) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	for _, c := range cookies {
		req.AddCookie(c)
	}
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)
	return rec
}

func TestHealth(t *testing.T) {
	s, _ := newTestServer(t)
	rec := doJSON(t, s, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"ok":true}`, rec.Body.String())
}

func TestRoundStateEndpoint(t *testing.T) {
	s, _ := newTestServer(t)
	rec := doJSON(t, s, http.MethodGet, "/round", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var res roundRes
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	assert.Equal(t, "사", res.StartChar)
	assert.Equal(t, game.SentinelWord, res.LastWord)
	assert.Equal(t, 14, res.Epoch)
	assert.Equal(t, []string{"사"}, res.NextStarts)
}

func TestSubmitRequiresAuth(t *testing.T) {
	s, _ := newTestServer(t, "사과")
	rec := doJSON(t, s, http.MethodPost, "/round/word", `{"word":"사과"}`, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestSignupPlayAndRank(t *testing.T) {
	s, _ := newTestServer(t, "사과", "과사")

	rec := doJSON(t, s, http.MethodPost, "/auth/signup",
		`{"username":"alice","password":"pass1234"}`, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	cookies := rec.Result().Cookies()
	require.NotEmpty(t, cookies)

	// Valid chain word is accepted and scored.
	rec = doJSON(t, s, http.MethodPost, "/round/word", `{"word":"사과"}`, cookies)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var sub submitRes
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &sub))
	assert.True(t, sub.Accepted)
	assert.Equal(t, 20, sub.Points)

	// Loop the chain back around so a repeat of 사과 still satisfies the
	// start rule and only the history check can reject it.
	rec = doJSON(t, s, http.MethodPost, "/round/word", `{"word":"과사"}`, cookies)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &sub))
	require.True(t, sub.Accepted)

	// Resubmitting the earlier word is rejected in-game, not as a
	// transport error.
	rec = doJSON(t, s, http.MethodPost, "/round/word", `{"word":"사과"}`, cookies)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &sub))
	assert.False(t, sub.Accepted)
	assert.Equal(t, string(game.RejectAlreadyUsed), sub.Reason)

	// The chain reflects the last accepted word, not the rejected one.
	rec = doJSON(t, s, http.MethodGet, "/round", "", nil)
	var round roundRes
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &round))
	assert.Equal(t, "과사", round.LastWord)
	assert.Contains(t, round.NextStarts, "사")

	// Points show up on the leaderboard and the profile endpoint.
	rec = doJSON(t, s, http.MethodGet, "/rankings", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var rows []game.RankRow
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &rows))
	require.Len(t, rows, 1)
	assert.Equal(t, game.RankRow{Username: "alice", Points: 40}, rows[0])

	rec = doJSON(t, s, http.MethodGet, "/me/points", "", cookies)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"username":"alice","points":40}`, rec.Body.String())
}

func TestSignupDuplicateUsername(t *testing.T) {
	s, _ := newTestServer(t)
	rec := doJSON(t, s, http.MethodPost, "/auth/signup",
		`{"username":"alice","password":"pass1234"}`, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, s, http.MethodPost, "/auth/signup",
		`{"username":"alice","password":"other123"}`, nil)
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestLoginWrongPassword(t *testing.T) {
	s, _ := newTestServer(t)
	rec := doJSON(t, s, http.MethodPost, "/auth/signup",
		`{"username":"alice","password":"pass1234"}`, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, s, http.MethodPost, "/auth/login",
		`{"username":"alice","password":"wrong"}`, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRejectedWordMessageListsStarts(t *testing.T) {
	s, _ := newTestServer(t, "바다")

	rec := doJSON(t, s, http.MethodPost, "/auth/signup",
		`{"username":"bob","password":"pass1234"}`, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	cookies := rec.Result().Cookies()

	rec = doJSON(t, s, http.MethodPost, "/round/word", `{"word":"바다"}`, cookies)
	require.Equal(t, http.StatusOK, rec.Code)
	var sub submitRes
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &sub))
	assert.False(t, sub.Accepted)
	assert.Equal(t, string(game.RejectInvalidStart), sub.Reason)
	assert.Contains(t, sub.Message, "사")
}
