package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

type AttemptStatus string

const (
	AttemptInProgress AttemptStatus = "in_progress"
	AttemptCompleted  AttemptStatus = "completed"
	AttemptExpired    AttemptStatus = "expired"
)

// Terminal reports whether the status allows no further transitions.
func (s AttemptStatus) Terminal() bool {
	return s == AttemptCompleted || s == AttemptExpired
}

// QuizAttempt is one student's timed run through a quiz. Once it reaches a
// terminal status the row is immutable.
type QuizAttempt struct {
	ID        uuid.UUID `json:"id" gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	QuizID    uuid.UUID `json:"quiz_id" gorm:"type:uuid;not null;uniqueIndex:idx_attempt_quiz_student_number"`
	StudentID uuid.UUID `json:"student_id" gorm:"type:uuid;not null;uniqueIndex:idx_attempt_quiz_student_number"`

	// 1-based, gap-free per (quiz, student). Uniqueness is a database
	// constraint, not just an application check.
	AttemptNumber int `json:"attempt_number" gorm:"not null;uniqueIndex:idx_attempt_quiz_student_number"`

	Status      AttemptStatus `json:"status" gorm:"not null;size:20;default:in_progress;index"`
	StartedAt   time.Time     `json:"started_at" gorm:"not null"`
	SubmittedAt *time.Time    `json:"submitted_at"`

	// Answers keyed by question id; saved incrementally, graded on submit.
	Answers datatypes.JSON `json:"answers" gorm:"type:jsonb"`

	Score      *float64 `json:"score" gorm:"type:numeric(6,2)"`
	Percentage *float64 `json:"percentage" gorm:"type:numeric(5,2)"`
	Passed     *bool    `json:"passed"`

	// Denormalized so attempts survive quiz/creator deletion.
	QuizTitle  string `json:"quiz_title" gorm:"size:200"`
	CourseName string `json:"course_name" gorm:"size:100"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Relations
	Quiz    *Quiz `json:"quiz,omitempty" gorm:"foreignKey:QuizID"`
	Student User  `json:"student,omitempty" gorm:"foreignKey:StudentID"`
}

func (QuizAttempt) TableName() string {
	return "quiz_attempts"
}

// Deadline is the wall-clock moment the attempt expires.
func (a *QuizAttempt) Deadline(limitMinutes int) time.Time {
	return a.StartedAt.Add(time.Duration(limitMinutes) * time.Minute)
}

// AnswerSet maps question id to the student's raw answer.
type AnswerSet map[string]string
