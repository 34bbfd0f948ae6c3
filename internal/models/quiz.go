package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

type QuizStatus string

const (
	QuizDraft     QuizStatus = "draft"
	QuizPublished QuizStatus = "published"
	QuizArchived  QuizStatus = "archived"
)

type QuestionType string

const (
	MultipleChoice QuestionType = "multiple_choice"
	TrueFalse      QuestionType = "true_false"
	ShortAnswer    QuestionType = "short_answer"
)

type Quiz struct {
	ID          uuid.UUID `json:"id" gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	Title       string    `json:"title" gorm:"not null;size:200;index" validate:"required,min=1,max=200"`
	Description *string   `json:"description" gorm:"type:text" validate:"omitempty,max=1000"`

	CourseID  uuid.UUID  `json:"course_id" gorm:"type:uuid;not null;index"`
	CreatorID uuid.UUID  `json:"creator_id" gorm:"type:uuid;not null;index"`
	Status    QuizStatus `json:"status" gorm:"not null;size:20;default:draft;index" validate:"omitempty,oneof=draft published archived"`

	TimeLimitMinutes int     `json:"time_limit_minutes" gorm:"default:30" validate:"min=1,max=300"`
	MaxAttempts      int     `json:"max_attempts" gorm:"default:3" validate:"min=1,max=10"`
	PassingScore     float64 `json:"passing_score" gorm:"type:numeric(6,2);default:70" validate:"min=0"`
	MaxScore         float64 `json:"max_score" gorm:"type:numeric(6,2)" validate:"min=0"`

	// Non-structural: may change even after publication.
	CountsTowardGrade bool `json:"counts_toward_grade" gorm:"default:true"`

	PublishedAt *time.Time `json:"published_at"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`

	// Relations
	Course    Course         `json:"course,omitempty" gorm:"foreignKey:CourseID"`
	Creator   User           `json:"creator,omitempty" gorm:"foreignKey:CreatorID"`
	Questions []QuizQuestion `json:"questions,omitempty" gorm:"foreignKey:QuizID"`
	Attempts  []QuizAttempt  `json:"attempts,omitempty" gorm:"foreignKey:QuizID"`

	// Computed fields (not stored)
	QuestionsCount int `json:"questions_count" gorm:"-"`
	AttemptCount   int `json:"attempt_count" gorm:"-"`
}

func (Quiz) TableName() string {
	return "quizzes"
}

type QuizQuestion struct {
	ID     uuid.UUID `json:"id" gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	QuizID uuid.UUID `json:"quiz_id" gorm:"type:uuid;not null;index"`

	QuestionText string       `json:"question_text" gorm:"not null;type:text" validate:"required,min=1"`
	QuestionType QuestionType `json:"question_type" gorm:"not null;size:20" validate:"required,question_type"`

	// Options for multiple_choice questions.
	Options       datatypes.JSON `json:"options" gorm:"type:jsonb"`
	CorrectAnswer string         `json:"correct_answer" gorm:"not null;type:text" validate:"required"`
	Explanation   *string        `json:"explanation" gorm:"type:text"`

	Points      float64 `json:"points" gorm:"type:numeric(6,2);default:1" validate:"min=0"`
	OrderNumber int     `json:"order_number" gorm:"default:1" validate:"min=1"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Relations
	Quiz Quiz `json:"quiz,omitempty" gorm:"foreignKey:QuizID"`
}

func (QuizQuestion) TableName() string {
	return "quiz_questions"
}
