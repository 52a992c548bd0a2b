package habit

import (
	"time"
)

type Frequency string

const (
	Daily   Frequency = "daily"
	Weekly  Frequency = "weekly"
	Monthly Frequency = "monthly"
)

var Frequencies = []Frequency{Daily, Weekly, Monthly}

type Habit struct {
	ID             string      `json:"id"`
	OwnerID        string      `json:"owner_id"`
	Title          string      `json:"title"`
	Description    string      `json:"description,omitempty"`
	Frequency      Frequency   `json:"frequency"`
	CompletedDates []time.Time `json:"completed_dates"`
	CreatedAt      time.Time   `json:"created_at"`
	UpdatedAt      time.Time   `json:"updated_at"`
}

type User struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}

// PublicUser is the projection of a User returned by the auth endpoints.
type PublicUser struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

func (u User) Public() PublicUser {
	return PublicUser{ID: u.ID, Email: u.Email}
}

type Progress struct {
	Completed    int     `json:"completed"`
	PeriodLength int     `json:"period_length"`
	Percent      float64 `json:"percent"`
}

type HabitSummary struct {
	HabitID       string    `json:"habit_id"`
	Title         string    `json:"title"`
	Frequency     Frequency `json:"frequency"`
	CurrentStreak int       `json:"current_streak"`
	LongestStreak int       `json:"longest_streak"`
	TotalDaysDone int       `json:"total_days_done"`
	FirstLogged   int64     `json:"first_logged"`
	ThisMonth     int       `json:"this_month"`
	BestMonth     int       `json:"best_month"`
	Weekly        Progress  `json:"weekly"`
}
