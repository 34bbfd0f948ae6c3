package postgres

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/edupulse/assessment-engine/internal/models"
	"github.com/edupulse/assessment-engine/internal/repositories"
)

type QuizPostgreSQL struct {
	db      *gorm.DB
	helpers *SharedHelpers
}

func NewQuizPostgreSQL(db *gorm.DB) repositories.QuizRepository {
	return &QuizPostgreSQL{
		db:      db,
		helpers: NewSharedHelpers(db),
	}
}

func (q *QuizPostgreSQL) Create(ctx context.Context, quiz *models.Quiz) error {
	return q.db.WithContext(ctx).Create(quiz).Error
}

func (q *QuizPostgreSQL) GetByID(ctx context.Context, id uuid.UUID) (*models.Quiz, error) {
	var quiz models.Quiz
	if err := q.db.WithContext(ctx).First(&quiz, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &quiz, nil
}

func (q *QuizPostgreSQL) GetByIDWithQuestions(ctx context.Context, id uuid.UUID) (*models.Quiz, error) {
	var quiz models.Quiz
	if err := q.db.WithContext(ctx).
		Preload("Questions", func(db *gorm.DB) *gorm.DB {
			return db.Order("order_number ASC")
		}).
		First(&quiz, "id = ?", id).Error; err != nil {
		return nil, err
	}
	quiz.QuestionsCount = len(quiz.Questions)
	return &quiz, nil
}

func (q *QuizPostgreSQL) Update(ctx context.Context, quiz *models.Quiz) error {
	return q.db.WithContext(ctx).Save(quiz).Error
}

func (q *QuizPostgreSQL) UpdateStatus(ctx context.Context, id uuid.UUID, status models.QuizStatus, publishedAt *time.Time) error {
	updates := map[string]interface{}{"status": status}
	if publishedAt != nil {
		updates["published_at"] = *publishedAt
	}
	return q.db.WithContext(ctx).
		Model(&models.Quiz{}).
		Where("id = ?", id).
		Updates(updates).Error
}

func (q *QuizPostgreSQL) ListByCourse(ctx context.Context, courseID uuid.UUID, filters repositories.QuizFilters) ([]*models.Quiz, int64, error) {
	var quizzes []*models.Quiz
	var total int64

	query := q.db.WithContext(ctx).Model(&models.Quiz{}).Where("course_id = ?", courseID)
	if filters.Status != nil {
		query = query.Where("status = ?", *filters.Status)
	}
	if filters.CreatorID != nil {
		query = query.Where("creator_id = ?", *filters.CreatorID)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	query = q.helpers.ApplyPaginationAndSort(query, filters.SortBy, filters.SortOrder, filters.Limit, filters.Offset)
	if err := query.Find(&quizzes).Error; err != nil {
		return nil, 0, err
	}

	return quizzes, total, nil
}

func (q *QuizPostgreSQL) ListByCreator(ctx context.Context, creatorID uuid.UUID) ([]*models.Quiz, error) {
	var quizzes []*models.Quiz
	if err := q.db.WithContext(ctx).
		Where("creator_id = ?", creatorID).
		Order("created_at DESC").
		Find(&quizzes).Error; err != nil {
		return nil, err
	}
	return quizzes, nil
}

func (q *QuizPostgreSQL) Delete(ctx context.Context, id uuid.UUID) error {
	return q.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("quiz_id = ?", id).Delete(&models.QuizQuestion{}).Error; err != nil {
			return err
		}
		return tx.Delete(&models.Quiz{}, "id = ?", id).Error
	})
}

func (q *QuizPostgreSQL) CountQuestions(ctx context.Context, quizID uuid.UUID) (int64, error) {
	var count int64
	err := q.db.WithContext(ctx).
		Model(&models.QuizQuestion{}).
		Where("quiz_id = ?", quizID).
		Count(&count).Error
	return count, err
}

func (q *QuizPostgreSQL) SumPoints(ctx context.Context, quizID uuid.UUID) (float64, error) {
	var total float64
	err := q.db.WithContext(ctx).
		Model(&models.QuizQuestion{}).
		Where("quiz_id = ?", quizID).
		Select("COALESCE(SUM(points), 0)").
		Scan(&total).Error
	return total, err
}

func (q *QuizPostgreSQL) AddQuestion(ctx context.Context, question *models.QuizQuestion) error {
	return q.db.WithContext(ctx).Create(question).Error
}

func (q *QuizPostgreSQL) UpdateQuestion(ctx context.Context, question *models.QuizQuestion) error {
	return q.db.WithContext(ctx).Save(question).Error
}

func (q *QuizPostgreSQL) DeleteQuestion(ctx context.Context, id uuid.UUID) error {
	return q.db.WithContext(ctx).Delete(&models.QuizQuestion{}, "id = ?", id).Error
}

func (q *QuizPostgreSQL) GetQuestion(ctx context.Context, id uuid.UUID) (*models.QuizQuestion, error) {
	var question models.QuizQuestion
	if err := q.db.WithContext(ctx).First(&question, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &question, nil
}

func (q *QuizPostgreSQL) GetQuestions(ctx context.Context, quizID uuid.UUID) ([]*models.QuizQuestion, error) {
	var questions []*models.QuizQuestion
	if err := q.db.WithContext(ctx).
		Where("quiz_id = ?", quizID).
		Order("order_number ASC").
		Find(&questions).Error; err != nil {
		return nil, err
	}
	return questions, nil
}
