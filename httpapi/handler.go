// Package httpapi exposes the feed-serving pipeline over plain JSON HTTP:
// GET /feed/ to read a personalized page and POST /feed/impressions to
// record what was shown.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httprate"

	"feedcore/auth"
	"feedcore/impression"
	"feedcore/model"
	"feedcore/orchestrator"
)

// Server wires the feed pipeline into a chi router.
type Server struct {
	pipeline *orchestrator.Pipeline
	producer *impression.Producer
	verifier *auth.Verifier
}

// NewServer builds an httpapi.Server. verifier may be nil, in which case
// bearer tokens are ignored and callers must supply user_id explicitly.
func NewServer(pipeline *orchestrator.Pipeline, producer *impression.Producer, verifier *auth.Verifier) *Server {
	return &Server{pipeline: pipeline, producer: producer, verifier: verifier}
}

type contextKey int

const authedUserKey contextKey = 0

// withAuthedUser parses an optional bearer token and, if valid, stashes the
// caller's user ID in the request context. A missing or invalid token is
// never rejected here — routes that require identity fall back to their own
// explicit parameter and reject the request themselves.
func (s *Server) withAuthedUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.verifier == nil {
			next.ServeHTTP(w, r)
			return
		}
		header := r.Header.Get("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || token == "" {
			next.ServeHTTP(w, r)
			return
		}
		claims, err := s.verifier.Verify(token)
		if err != nil {
			next.ServeHTTP(w, r)
			return
		}
		ctx := context.WithValue(r.Context(), authedUserKey, model.UserID(claims.UserID))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func authedUser(r *http.Request) (model.UserID, bool) {
	userID, ok := r.Context().Value(authedUserKey).(model.UserID)
	return userID, ok
}

// Router builds the chi router with the middleware stack every teacher
// service's HTTP-facing cmd/main.go applies: request ID, panic recovery,
// a health heartbeat, a request timeout, and per-IP rate limiting on both
// feed routes.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Heartbeat("/healthz"))
	r.Use(middleware.Timeout(5 * time.Second))
	r.Use(s.withAuthedUser)

	r.Group(func(r chi.Router) {
		r.Use(httprate.LimitByIP(100, time.Second))
		r.Get("/feed/", s.handleGetFeed)
		r.Post("/feed/impressions", s.handlePostImpressions)
	})

	return r
}

type feedResponse struct {
	UserID                model.UserID    `json:"user_id"`
	Posts                 []model.FeedPost `json:"posts"`
	CandidatesSocial      int             `json:"candidates_social"`
	CandidatesDiscovery   int             `json:"candidates_discovery"`
	CandidatesAfterFilter int             `json:"candidates_after_filter"`
	LatencyMs             int64           `json:"latency_ms"`
}

func (s *Server) handleGetFeed(w http.ResponseWriter, r *http.Request) {
	userID := model.UserID(r.URL.Query().Get("user_id"))
	if userID == "" {
		userID, _ = authedUser(r)
	}
	if userID == "" {
		writeError(w, http.StatusBadRequest, "user_id is required")
		return
	}

	result, err := s.pipeline.Serve(r.Context(), userID)
	if err != nil {
		switch {
		case errors.Is(err, orchestrator.ErrViewerNotFound):
			writeError(w, http.StatusNotFound, "unknown viewer")
		case errors.Is(err, orchestrator.ErrDependencyUnavailable):
			log.Printf("[httpapi] dependency unavailable serving feed for %s: %v", userID, err)
			writeError(w, http.StatusServiceUnavailable, "feed temporarily unavailable")
		default:
			log.Printf("[httpapi] unexpected error serving feed for %s: %v", userID, err)
			writeError(w, http.StatusInternalServerError, "internal error")
		}
		return
	}

	writeJSON(w, http.StatusOK, feedResponse{
		UserID:                result.UserID,
		Posts:                 result.Posts,
		CandidatesSocial:      result.CandidatesSocial,
		CandidatesDiscovery:   result.CandidatesDiscovery,
		CandidatesAfterFilter: result.CandidatesAfterFilter,
		LatencyMs:             result.LatencyMs,
	})
}

type impressionsRequest struct {
	UserID  model.UserID   `json:"user_id"`
	PostIDs []model.PostID `json:"post_ids"`
}

func (s *Server) handlePostImpressions(w http.ResponseWriter, r *http.Request) {
	var req impressionsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "malformed request body")
		return
	}
	if req.UserID == "" {
		writeError(w, http.StatusBadRequest, "user_id is required")
		return
	}

	go s.producer.Emit(req.UserID, req.PostIDs)

	w.WriteHeader(http.StatusNoContent)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("[httpapi] failed to encode response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
