package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/comrade-fit/comrade/internal/app/gamification"
	"github.com/comrade-fit/comrade/internal/domain"
)

// ─── Catalog & Levels (/api/*) ──────────────────────────────────────────────

func (s *Server) handleLevels(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"bands": gamification.LevelBands(),
	})
}

func (s *Server) handleLevelProgress(w http.ResponseWriter, r *http.Request) {
	xp, err := strconv.ParseInt(chi.URLParam(r, "xp"), 10, 64)
	if err != nil || xp < 0 {
		writeError(w, http.StatusBadRequest, "xp must be a non-negative integer")
		return
	}
	writeJSON(w, http.StatusOK, gamification.GetLevelProgress(xp))
}

// handleCatalog lists the achievement catalog without secret entries.
func (s *Server) handleCatalog(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"achievements": gamification.PublicCatalog(s.svc.Catalog(), nil),
	})
}

func (s *Server) handleChallengeTemplates(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"templates": gamification.ChallengeTemplates(),
	})
}

// ─── User Endpoints (/api/users/{userID}/*) ─────────────────────────────────

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.svc.Stats(r.Context(), chi.URLParam(r, "userID"))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (s *Server) handleProgress(w http.ResponseWriter, r *http.Request) {
	report, err := s.svc.Progress(r.Context(), chi.URLParam(r, "userID"))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func (s *Server) handleAchievements(w http.ResponseWriter, r *http.Request) {
	report, err := s.svc.Achievements(r.Context(), chi.URLParam(r, "userID"))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

// handleAlmostUnlocked accepts an optional ?threshold= fraction in (0, 1].
func (s *Server) handleAlmostUnlocked(w http.ResponseWriter, r *http.Request) {
	threshold := 0.0
	if raw := r.URL.Query().Get("threshold"); raw != "" {
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil || v <= 0 || v > 1 {
			writeError(w, http.StatusBadRequest, "threshold must be a fraction between 0 and 1")
			return
		}
		threshold = v
	}

	almost, err := s.svc.AlmostUnlocked(r.Context(), chi.URLParam(r, "userID"), threshold)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"achievements": almost,
	})
}

// workoutRequest is the body of POST /api/users/{userID}/workouts.
type workoutRequest struct {
	WorkoutType domain.WorkoutType  `json:"workout_type"`
	CompletedAt *time.Time          `json:"completed_at,omitempty"`
	Sets        []domain.WorkoutSet `json:"sets"`
	Birthday    *time.Time          `json:"birthday,omitempty"`
}

func (s *Server) handleRecordWorkout(w http.ResponseWriter, r *http.Request) {
	var req workoutRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON: "+err.Error())
		return
	}

	ev := domain.WorkoutEvent{
		UserID:      chi.URLParam(r, "userID"),
		WorkoutType: req.WorkoutType,
		Sets:        req.Sets,
		Birthday:    req.Birthday,
	}
	if req.CompletedAt != nil {
		ev.CompletedAt = *req.CompletedAt
	}

	result, err := s.svc.RecordWorkout(r.Context(), ev)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, result)
}

func (s *Server) handleStreakFreeze(w http.ResponseWriter, r *http.Request) {
	result, err := s.svc.UseStreakFreeze(r.Context(), chi.URLParam(r, "userID"))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleChallenges(w http.ResponseWriter, r *http.Request) {
	challenges, err := s.svc.Challenges(r.Context(), chi.URLParam(r, "userID"))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"challenges": challenges,
	})
}
