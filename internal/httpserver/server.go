// internal/httpserver/server.go
//
// HTTP server wiring for the word-chain backend.
// Responsibilities:
//   - Router + middleware (JSON, CORS, timeouts, panic recovery, request IDs).
//   - Public endpoints: "/", "/health", round state, rankings.
//   - Gated endpoints: word submission, own points, /auth/me.
//   - Auth endpoints: signup/login/logout (see auth.go).
//
// The server is a thin presentation layer: every game decision is delegated
// to the engine, and storage primitives are never touched directly here.

package httpserver

import (
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog/log"

	"kkutu/internal/dict"
	"kkutu/internal/game"
	"kkutu/internal/hangul"
	"kkutu/internal/store"
)

// Server bundles the router, the game engine, and the account store.
type Server struct {
	r        *chi.Mux
	engine   *game.Engine
	accounts store.Accounts
	words    *dict.Set
}

// New constructs a Server, installs middleware, and registers routes.
func New(engine *game.Engine, accounts store.Accounts, words *dict.Set) *Server {
	s := &Server{r: chi.NewRouter(), engine: engine, accounts: accounts, words: words}

	// --- middleware ---
	s.r.Use(chimw.RequestID)                 // add X-Request-ID
	s.r.Use(chimw.RealIP)                    // set RemoteAddr from X-Forwarded-For etc.
	s.r.Use(chimw.Recoverer)                 // recover from panics
	s.r.Use(chimw.Timeout(10 * time.Second)) // bound handler time
	s.r.Use(jsonContentType)                 // default JSON responses
	s.r.Use(corsFromEnv)                     // credentials-friendly CORS

	// --- diagnostics ---
	s.r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"service":"kkutu-go","endpoints":["/health","GET /round","POST /round/word","GET /rankings","/auth/*"]}`))
	})
	s.r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"ok":true}`))
	})

	// Round state + rankings are public reads
	s.r.Get("/round", s.handleRound)
	s.r.Get("/rankings", s.handleRankings)

	// Submitting a word and reading one's own points require an account
	s.r.With(s.requireAuth()).Post("/round/word", s.handleSubmit)
	s.r.With(s.requireAuth()).Get("/me/points", s.handleMyPoints)

	// Auth endpoints
	s.mountAuthRoutes()

	// JSON 404 for easier debugging
	s.r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"not_found","path":"`+r.URL.Path+`"}`, http.StatusNotFound)
	})

	// Debug: dictionary size
	s.r.Get("/debug/dict", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]int{"words": s.words.Count()})
	})

	return s
}

// Start begins serving HTTP on addr.
func (s *Server) Start(addr string) error { return http.ListenAndServe(addr, s.r) }

// Router exposes the internal router (useful for tests).
func (s *Server) Router() chi.Router { return s.r }

// ----------------------------- middleware ----------------------------------

// jsonContentType sets a default JSON Content-Type header on all responses.
func jsonContentType(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		next.ServeHTTP(w, r)
	})
}

// corsFromEnv enables credentialed CORS for a single origin.
// Uses CLIENT_ORIGIN env var; defaults to http://localhost:5173.
func corsFromEnv(next http.Handler) http.Handler {
	origin := os.Getenv("CLIENT_ORIGIN")
	if origin == "" {
		origin = "http://localhost:5173"
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Vary", "Origin")
		w.Header().Set("Access-Control-Allow-Origin", origin)
		w.Header().Set("Access-Control-Allow-Credentials", "true")
		w.Header().Set("Access-Control-Allow-Methods", "GET,POST,OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// ------------------------------ ROUND --------------------------------------

// roundRes is the GET /round payload. nextStarts lists every character the
// next word may begin with, so clients can render the chain rule.
type roundRes struct {
	StartChar  string   `json:"startChar"`
	LastWord   string   `json:"lastWord"`
	Epoch      int      `json:"epoch"`
	History    []string `json:"history"`
	NextStarts []string `json:"nextStarts"`
}

// handleRound returns the current round, rolling it over first when its
// hour slot has passed.
func (s *Server) handleRound(w http.ResponseWriter, r *http.Request) {
	st, err := s.engine.RoundState(r.Context())
	if err != nil {
		s.writeEngineError(w, err)
		return
	}
	starts := hangul.ValidStarts(st.ChainChar())
	res := roundRes{
		StartChar:  string(st.StartChar),
		LastWord:   st.LastWord,
		Epoch:      st.Epoch,
		History:    st.History,
		NextStarts: make([]string, len(starts)),
	}
	for i, c := range starts {
		res.NextStarts[i] = string(c)
	}
	_ = json.NewEncoder(w).Encode(res)
}

// submitReq/Res payloads for POST /round/word.
type submitReq struct {
	Word string `json:"word"`
}
type submitRes struct {
	Accepted bool   `json:"accepted"`
	Points   int    `json:"points,omitempty"`
	Reason   string `json:"reason,omitempty"`
	Message  string `json:"message,omitempty"`
}

// handleSubmit runs a word through the engine. Validation rejections are
// part of the game, so they come back as 200 with accepted=false;
// conflicts and storage failures map to 409/500.
func (s *Server) handleSubmit(w http.ResponseWriter, r *http.Request) {
	me, _ := r.Context().Value(ctxUserKey{}).(*authUser)
	if me == nil {
		http.Error(w, `{"error":"Unauthorized"}`, http.StatusUnauthorized)
		return
	}
	var req submitReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error":"bad_json"}`, http.StatusBadRequest)
		return
	}

	res, err := s.engine.SubmitWord(r.Context(), req.Word, me.Username)
	if err != nil {
		s.writeEngineError(w, err)
		return
	}
	if res.Accepted {
		log.Info().Str("user", me.Username).Str("word", req.Word).Int("points", res.Points).Msg("word accepted")
		_ = json.NewEncoder(w).Encode(submitRes{Accepted: true, Points: res.Points})
		return
	}
	_ = json.NewEncoder(w).Encode(submitRes{
		Accepted: false,
		Reason:   string(res.Reject.Kind),
		Message:  res.Reject.Error(),
	})
}

// handleMyPoints returns the authenticated user's balance.
func (s *Server) handleMyPoints(w http.ResponseWriter, r *http.Request) {
	me, _ := r.Context().Value(ctxUserKey{}).(*authUser)
	if me == nil {
		http.Error(w, `{"error":"Unauthorized"}`, http.StatusUnauthorized)
		return
	}
	pts, err := s.engine.UserPoints(r.Context(), me.Username)
	if err != nil {
		s.writeEngineError(w, err)
		return
	}
	_ = json.NewEncoder(w).Encode(map[string]any{"username": me.Username, "points": pts})
}

// handleRankings returns the top N leaderboard (default 10, max 100).
func (s *Server) handleRankings(w http.ResponseWriter, r *http.Request) {
	n := 10
	if v := r.URL.Query().Get("limit"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil && parsed > 0 && parsed <= 100 {
			n = parsed
		}
	}
	rows, err := s.engine.TopRankings(r.Context(), n)
	if err != nil {
		s.writeEngineError(w, err)
		return
	}
	_ = json.NewEncoder(w).Encode(rows)
}

// writeEngineError maps engine errors onto HTTP statuses: conflicts are
// retryable 409s, unknown users 401s (stale token), anything else is a
// generic storage failure.
func (s *Server) writeEngineError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, game.ErrConflict):
		http.Error(w, `{"error":"conflict","retry":true}`, http.StatusConflict)
	case errors.Is(err, game.ErrNoSuchUser):
		http.Error(w, `{"error":"Unauthorized"}`, http.StatusUnauthorized)
	default:
		log.Error().Err(err).Msg("engine failure")
		http.Error(w, `{"error":"storage_failure"}`, http.StatusInternalServerError)
	}
}

// getEnv returns the value of k or def if unset/empty.
func getEnv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}
