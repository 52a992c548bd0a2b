package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/brk3/habitflow/internal/logger"
	"github.com/brk3/habitflow/internal/storage"
	"github.com/brk3/habitflow/internal/tracker"
	"github.com/brk3/habitflow/pkg/habit"
	"github.com/brk3/habitflow/pkg/versioninfo"
	"github.com/go-chi/chi/v5"
)

func (s *Server) getVersionInfo(w http.ResponseWriter, _ *http.Request) {
	if err := writeJSON(w, http.StatusOK, versioninfo.Get()); err != nil {
		logger.Error("Failed to serialize version info response", "error", err)
	}
}

func (s *Server) healthz(w http.ResponseWriter, _ *http.Request) {
	_ = writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// writeStoreError maps store and validation failures onto 404/400/500.
func writeStoreError(w http.ResponseWriter, err error, args ...any) {
	switch {
	case errors.Is(err, storage.ErrNotFound):
		writeError(w, http.StatusNotFound, "habit not found")
	case errors.Is(err, habit.ErrValidation), errors.Is(err, tracker.ErrInvalidDate):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		logger.Error("Storage operation failed", append(args, "error", err)...)
		writeError(w, http.StatusInternalServerError, "storage error")
	}
}

// requestIDs returns the caller and habit id, answering 400 itself when
// either is missing.
func (s *Server) requestIDs(w http.ResponseWriter, r *http.Request) (userID, habitID string, ok bool) {
	habitID = chi.URLParam(r, "habit_id")
	userID = userIDFromContext(s.cfg.AuthEnabled, r)
	if userID == "" || habitID == "" {
		logger.Warn("Missing required parameters", "user_id", userID, "habit_id", habitID)
		writeError(w, http.StatusBadRequest, "user id and habit id are required")
		return "", "", false
	}
	return userID, habitID, true
}

// referenceDate reads the optional ?date= query parameter, defaulting to today.
func (s *Server) referenceDate(r *http.Request) (time.Time, error) {
	if d := r.URL.Query().Get("date"); d != "" {
		return tracker.ParseDate(d)
	}
	return tracker.DateOf(s.now()), nil
}

func (s *Server) listHabits(w http.ResponseWriter, r *http.Request) {
	userID := userIDFromContext(s.cfg.AuthEnabled, r)
	logger.Debug("Listing habits", "user_id", userID)
	if userID == "" {
		logger.Warn("Missing user ID for list habits")
		writeError(w, http.StatusBadRequest, "user id is required")
		return
	}

	var filter habit.Frequency
	if q := r.URL.Query().Get("frequency"); q != "" {
		f, err := habit.ParseFrequency(q)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		filter = f
	}

	habits, err := s.store.ListHabits(userID)
	if err != nil {
		writeStoreError(w, err, "user_id", userID)
		return
	}
	UpdateActiveHabitsForUser(userID, len(habits))
	if filter != "" {
		habits = tracker.FilterByFrequency(habits, filter)
	}
	logger.Debug("Listed habits successfully", "user_id", userID, "count", len(habits))

	if err := writeJSON(w, http.StatusOK, habits); err != nil {
		logger.Error("Failed to serialize habit list response", "user_id", userID, "error", err)
	}
}

func (s *Server) createHabit(w http.ResponseWriter, r *http.Request) {
	userID := userIDFromContext(s.cfg.AuthEnabled, r)
	if userID == "" {
		logger.Warn("Missing user ID for create habit")
		writeError(w, http.StatusBadRequest, "user id is required")
		return
	}

	var req CreateHabitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.Warn("Invalid JSON in create habit request", "error", err)
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	var freq habit.Frequency
	if req.Frequency != "" {
		f, err := habit.ParseFrequency(req.Frequency)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		freq = f
	}
	h, err := habit.NewHabit(userID, req.Title, req.Description, freq)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	created, err := s.store.CreateHabit(h)
	if err != nil {
		writeStoreError(w, err, "user_id", userID, "title", h.Title)
		return
	}
	logger.Info("Habit created", "user_id", userID, "habit_id", created.ID, "frequency", created.Frequency)
	s.refreshActiveHabits(userID)

	if err := writeJSON(w, http.StatusCreated, created); err != nil {
		logger.Error("Failed to serialize create habit response", "user_id", userID, "error", err)
	}
}

func (s *Server) getHabit(w http.ResponseWriter, r *http.Request) {
	userID, habitID, ok := s.requestIDs(w, r)
	if !ok {
		return
	}

	h, err := s.store.GetHabit(userID, habitID)
	if err != nil {
		writeStoreError(w, err, "user_id", userID, "habit_id", habitID)
		return
	}
	if err := writeJSON(w, http.StatusOK, h); err != nil {
		logger.Error("Failed to serialize get habit response", "user_id", userID, "habit_id", habitID, "error", err)
	}
}

func (s *Server) updateHabit(w http.ResponseWriter, r *http.Request) {
	userID, habitID, ok := s.requestIDs(w, r)
	if !ok {
		return
	}

	var req UpdateHabitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.Warn("Invalid JSON in update habit request", "error", err)
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	var freq habit.Frequency
	if req.Frequency != nil {
		f, err := habit.ParseFrequency(*req.Frequency)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		freq = f
	}
	var dates []time.Time
	if req.CompletedDates != nil {
		dates = make([]time.Time, 0, len(*req.CompletedDates))
		for _, raw := range *req.CompletedDates {
			d, err := tracker.ParseDate(raw)
			if err != nil {
				writeError(w, http.StatusBadRequest, err.Error())
				return
			}
			dates = append(dates, d)
		}
		dates = tracker.Normalize(dates)
	}

	updated, err := s.store.UpdateHabit(userID, habitID, func(h *habit.Habit) error {
		if req.Title != nil {
			h.Title = strings.TrimSpace(*req.Title)
		}
		if req.Description != nil {
			h.Description = strings.TrimSpace(*req.Description)
		}
		if req.Frequency != nil {
			h.Frequency = freq
		}
		if req.CompletedDates != nil {
			h.CompletedDates = dates
		}
		return nil
	})
	if err != nil {
		writeStoreError(w, err, "user_id", userID, "habit_id", habitID)
		return
	}
	logger.Info("Habit updated", "user_id", userID, "habit_id", habitID)

	if err := writeJSON(w, http.StatusOK, updated); err != nil {
		logger.Error("Failed to serialize update habit response", "user_id", userID, "habit_id", habitID, "error", err)
	}
}

func (s *Server) deleteHabit(w http.ResponseWriter, r *http.Request) {
	userID, habitID, ok := s.requestIDs(w, r)
	if !ok {
		return
	}
	logger.Info("Deleting habit", "user_id", userID, "habit_id", habitID)

	if err := s.store.DeleteHabit(userID, habitID); err != nil {
		writeStoreError(w, err, "user_id", userID, "habit_id", habitID)
		return
	}
	logger.Info("Habit deleted successfully", "user_id", userID, "habit_id", habitID)
	s.refreshActiveHabits(userID)

	_ = writeJSON(w, http.StatusOK, MessageResponse{Message: "Habit deleted"})
}

// completeHabit marks one calendar date done, today unless the body names
// another. Repeating a date is not an error.
func (s *Server) completeHabit(w http.ResponseWriter, r *http.Request) {
	userID, habitID, ok := s.requestIDs(w, r)
	if !ok {
		return
	}

	var req CompleteHabitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		logger.Warn("Invalid JSON in complete habit request", "error", err)
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	date := tracker.DateOf(s.now())
	if req.Date != "" {
		d, err := tracker.ParseDate(req.Date)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		date = d
	}

	added := false
	updated, err := s.store.UpdateHabit(userID, habitID, func(h *habit.Habit) error {
		before := len(h.CompletedDates)
		h.CompletedDates = tracker.MarkComplete(*h, date)
		added = len(h.CompletedDates) > before
		return nil
	})
	if err != nil {
		writeStoreError(w, err, "user_id", userID, "habit_id", habitID)
		return
	}
	if added {
		RecordCompletion(updated.Frequency)
		logger.Info("Habit completed", "user_id", userID, "habit_id", habitID, "date", tracker.FormatDate(date))
	} else {
		logger.Debug("Habit already completed", "user_id", userID, "habit_id", habitID, "date", tracker.FormatDate(date))
	}

	if err := writeJSON(w, http.StatusOK, updated); err != nil {
		logger.Error("Failed to serialize complete habit response", "user_id", userID, "habit_id", habitID, "error", err)
	}
}

func (s *Server) getHabitProgress(w http.ResponseWriter, r *http.Request) {
	userID, habitID, ok := s.requestIDs(w, r)
	if !ok {
		return
	}
	ref, err := s.referenceDate(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	h, err := s.store.GetHabit(userID, habitID)
	if err != nil {
		writeStoreError(w, err, "user_id", userID, "habit_id", habitID)
		return
	}

	resp := HabitProgressResponse{
		HabitID:   habitID,
		WeekStart: tracker.FormatDate(tracker.WeekStart(ref, s.weekStart)),
		Date:      tracker.FormatDate(ref),
		Progress:  tracker.WeeklyProgressFrom(h, ref, s.weekStart),
	}
	if err := writeJSON(w, http.StatusOK, resp); err != nil {
		logger.Error("Failed to serialize habit progress response", "user_id", userID, "habit_id", habitID, "error", err)
	}
}

func (s *Server) getHabitSummary(w http.ResponseWriter, r *http.Request) {
	userID, habitID, ok := s.requestIDs(w, r)
	if !ok {
		return
	}
	logger.Debug("Getting habit summary", "habit_id", habitID, "user_id", userID)
	ref, err := s.referenceDate(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	h, err := s.store.GetHabit(userID, habitID)
	if err != nil {
		writeStoreError(w, err, "user_id", userID, "habit_id", habitID)
		return
	}

	summaryResponse := HabitSummaryResponse{
		HabitID:      habitID,
		HabitSummary: tracker.Summarize(h, ref, s.weekStart),
	}
	if err := writeJSON(w, http.StatusOK, summaryResponse); err != nil {
		logger.Error("Failed to serialize habit summary response", "user_id", userID, "habit_id", habitID, "error", err)
	}
}

func (s *Server) refreshActiveHabits(userID string) {
	habits, err := s.store.ListHabits(userID)
	if err != nil {
		logger.Warn("Failed to update active habits metric", "user_id", userID, "error", err)
		return
	}
	UpdateActiveHabitsForUser(userID, len(habits))
}
