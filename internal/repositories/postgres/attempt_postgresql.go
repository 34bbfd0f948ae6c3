package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/edupulse/assessment-engine/internal/models"
	"github.com/edupulse/assessment-engine/internal/repositories"
)

type AttemptPostgreSQL struct {
	db      *gorm.DB
	helpers *SharedHelpers
}

func NewAttemptPostgreSQL(db *gorm.DB) repositories.AttemptRepository {
	return &AttemptPostgreSQL{
		db:      db,
		helpers: NewSharedHelpers(db),
	}
}

func (a *AttemptPostgreSQL) Create(ctx context.Context, attempt *models.QuizAttempt) error {
	return a.db.WithContext(ctx).Create(attempt).Error
}

func (a *AttemptPostgreSQL) GetByID(ctx context.Context, id uuid.UUID) (*models.QuizAttempt, error) {
	var attempt models.QuizAttempt
	if err := a.db.WithContext(ctx).First(&attempt, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &attempt, nil
}

func (a *AttemptPostgreSQL) GetActive(ctx context.Context, quizID, studentID uuid.UUID) (*models.QuizAttempt, error) {
	var attempt models.QuizAttempt
	err := a.db.WithContext(ctx).
		Where("quiz_id = ? AND student_id = ? AND status = ?", quizID, studentID, models.AttemptInProgress).
		First(&attempt).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &attempt, nil
}

// NextAttemptNumber locks the student's existing attempt rows so two
// concurrent starts serialize instead of both reading the same max.
func (a *AttemptPostgreSQL) NextAttemptNumber(ctx context.Context, quizID, studentID uuid.UUID) (int, error) {
	var numbers []int
	if err := a.db.WithContext(ctx).
		Model(&models.QuizAttempt{}).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("quiz_id = ? AND student_id = ?", quizID, studentID).
		Pluck("attempt_number", &numbers).Error; err != nil {
		return 0, err
	}

	max := 0
	for _, n := range numbers {
		if n > max {
			max = n
		}
	}
	return max + 1, nil
}

func (a *AttemptPostgreSQL) CountFinished(ctx context.Context, quizID, studentID uuid.UUID) (int64, error) {
	var count int64
	err := a.db.WithContext(ctx).
		Model(&models.QuizAttempt{}).
		Where("quiz_id = ? AND student_id = ? AND status IN ?", quizID, studentID,
			[]models.AttemptStatus{models.AttemptCompleted, models.AttemptExpired}).
		Count(&count).Error
	return count, err
}

func (a *AttemptPostgreSQL) CountByQuiz(ctx context.Context, quizID uuid.UUID) (int64, error) {
	var count int64
	err := a.db.WithContext(ctx).
		Model(&models.QuizAttempt{}).
		Where("quiz_id = ?", quizID).
		Count(&count).Error
	return count, err
}

func (a *AttemptPostgreSQL) SaveAnswers(ctx context.Context, id uuid.UUID, answers datatypes.JSON) (bool, error) {
	result := a.db.WithContext(ctx).
		Model(&models.QuizAttempt{}).
		Where("id = ? AND status = ?", id, models.AttemptInProgress).
		Update("answers", answers)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// Finalize is the single conditional transition out of in_progress. The
// WHERE clause makes it a no-op for whichever of submit and auto-expire
// loses the race.
func (a *AttemptPostgreSQL) Finalize(ctx context.Context, id uuid.UUID, final repositories.FinalizeAttempt) (bool, error) {
	updates := map[string]interface{}{
		"status":       final.Status,
		"submitted_at": final.SubmittedAt,
		"score":        final.Score,
		"percentage":   final.Percentage,
		"passed":       final.Passed,
	}
	if final.Answers != nil {
		updates["answers"] = final.Answers
	}

	result := a.db.WithContext(ctx).
		Model(&models.QuizAttempt{}).
		Where("id = ? AND status = ?", id, models.AttemptInProgress).
		Updates(updates)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (a *AttemptPostgreSQL) ListOverdue(ctx context.Context, now time.Time, limit int) ([]*models.QuizAttempt, error) {
	var attempts []*models.QuizAttempt
	if err := a.db.WithContext(ctx).
		Joins("JOIN quizzes ON quizzes.id = quiz_attempts.quiz_id").
		Where("quiz_attempts.status = ?", models.AttemptInProgress).
		Where("quiz_attempts.started_at + quizzes.time_limit_minutes * interval '1 minute' < ?", now).
		Order("quiz_attempts.started_at ASC").
		Limit(limit).
		Find(&attempts).Error; err != nil {
		return nil, err
	}
	return attempts, nil
}

func (a *AttemptPostgreSQL) ListByQuizAndStudent(ctx context.Context, quizID, studentID uuid.UUID) ([]*models.QuizAttempt, error) {
	var attempts []*models.QuizAttempt
	if err := a.db.WithContext(ctx).
		Where("quiz_id = ? AND student_id = ?", quizID, studentID).
		Order("attempt_number ASC").
		Find(&attempts).Error; err != nil {
		return nil, err
	}
	return attempts, nil
}

func (a *AttemptPostgreSQL) ListByStudent(ctx context.Context, studentID uuid.UUID, filters repositories.AttemptFilters) ([]*models.QuizAttempt, int64, error) {
	var attempts []*models.QuizAttempt
	var total int64

	query := a.db.WithContext(ctx).Model(&models.QuizAttempt{}).Where("student_id = ?", studentID)
	if filters.Status != nil {
		query = query.Where("status = ?", *filters.Status)
	}
	if filters.QuizID != nil {
		query = query.Where("quiz_id = ?", *filters.QuizID)
	}
	if filters.DateFrom != nil {
		query = query.Where("started_at >= ?", *filters.DateFrom)
	}
	if filters.DateTo != nil {
		query = query.Where("started_at <= ?", *filters.DateTo)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	sortBy := filters.SortBy
	if sortBy == "" {
		sortBy = "started_at"
	}
	query = a.helpers.ApplyPaginationAndSort(query, sortBy, filters.SortOrder, filters.Limit, filters.Offset)
	if err := query.Find(&attempts).Error; err != nil {
		return nil, 0, err
	}

	return attempts, total, nil
}

func (a *AttemptPostgreSQL) Summary(ctx context.Context, quizID, studentID uuid.UUID) (*repositories.AttemptSummary, error) {
	attempts, err := a.ListByQuizAndStudent(ctx, quizID, studentID)
	if err != nil {
		return nil, err
	}

	summary := &repositories.AttemptSummary{
		QuizID:        quizID,
		StudentID:     studentID,
		TotalAttempts: len(attempts),
	}

	for _, attempt := range attempts {
		summary.Latest = attempt
		if !attempt.Status.Terminal() || attempt.Score == nil {
			continue
		}
		if summary.BestScore == nil || *attempt.Score > *summary.BestScore {
			summary.BestScore = attempt.Score
			summary.BestPassed = attempt.Passed
		}
	}

	return summary, nil
}
