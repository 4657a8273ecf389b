package model

import "time"

// Rating bounds. Ratings outside this range are rejected, never clamped,
// so stored values stay meaningful for selection and audits.
const (
	RatingMin     = 1.0
	RatingMax     = 5.0
	DefaultRating = 5.0
)

// Employee is a member of the workforce that projects can be offered to.
type Employee struct {
	ID         string    `json:"id" db:"id"`
	Name       string    `json:"name" db:"name"`
	Email      string    `json:"email" db:"email"`
	Role       string    `json:"role" db:"role"`
	Department string    `json:"department" db:"department"`
	IsAdmin    bool      `json:"is_admin" db:"is_admin"`
	Rating     float64   `json:"rating" db:"rating"`
	CreatedAt  time.Time `json:"created_at" db:"created_at"`
}

// RatingValid reports whether v is inside the allowed rating range.
func RatingValid(v float64) bool {
	return v >= RatingMin && v <= RatingMax
}
