package server

import (
	"encoding/json"
	"net/http"

	"github.com/brk3/habitflow/pkg/habit"
)

type ErrorResponse struct {
	Error string `json:"error"`
}

type MessageResponse struct {
	Message string `json:"message"`
}

type AuthResponse struct {
	Token string           `json:"token"`
	User  habit.PublicUser `json:"user"`
}

type MeResponse struct {
	User habit.PublicUser `json:"user"`
}

type APIKeyResponse struct {
	APIKey string `json:"api_key"`
}

type HabitProgressResponse struct {
	HabitID   string         `json:"habit_id"`
	WeekStart string         `json:"week_start"`
	Date      string         `json:"date"`
	Progress  habit.Progress `json:"progress"`
}

type HabitSummaryResponse struct {
	HabitID      string             `json:"habit_id"`
	HabitSummary habit.HabitSummary `json:"habit_summary"`
}

type CredentialsRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type CreateHabitRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Frequency   string `json:"frequency"`
}

// UpdateHabitRequest carries a partial update; nil fields are left alone.
type UpdateHabitRequest struct {
	Title          *string   `json:"title,omitempty"`
	Description    *string   `json:"description,omitempty"`
	Frequency      *string   `json:"frequency,omitempty"`
	CompletedDates *[]string `json:"completed_dates,omitempty"`
}

type CompleteHabitRequest struct {
	Date string `json:"date,omitempty"`
}

func writeJSON(w http.ResponseWriter, code int, v any) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	return json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, msg string) {
	_ = writeJSON(w, code, ErrorResponse{Error: msg})
}
