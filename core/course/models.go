package course

import (
	"time"
)

// Enrollment statuses
const (
	EnrollmentActive  = "active"
	EnrollmentPending = "pending"
	EnrollmentRevoked = "revoked"
)

type Course struct {
	ID         string    `json:"id"`
	Title      string    `json:"title"`
	Slug       string    `json:"slug"`
	PriceCents int64     `json:"price_cents"`
	Currency   string    `json:"currency"`
	Published  bool      `json:"published"`
	CreatedAt  time.Time `json:"created_at"` // UTC
	UpdatedAt  time.Time `json:"updated_at"` // UTC
}

type Lesson struct {
	ID        string        `json:"id"`
	CourseID  string        `json:"course_id"`
	Title     string        `json:"title"`
	Position  int           `json:"position"`
	VideoKey  string        `json:"video_key"` // object key of the protected video asset
	Duration  time.Duration `json:"duration"`
	CreatedAt time.Time     `json:"created_at"` // UTC
	UpdatedAt time.Time     `json:"updated_at"` // UTC
}

// Enrollment relates a user to a course; the access guard reads it,
// the payment flow writes it.
type Enrollment struct {
	UserID    string    `json:"user_id"`
	CourseID  string    `json:"course_id"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"` // UTC
	UpdatedAt time.Time `json:"updated_at"` // UTC
}

func (e Enrollment) IsActive() bool { return e.Status == EnrollmentActive }
