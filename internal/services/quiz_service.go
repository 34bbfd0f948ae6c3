package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	"github.com/edupulse/assessment-engine/internal/auth"
	apperrors "github.com/edupulse/assessment-engine/internal/errors"
	"github.com/edupulse/assessment-engine/internal/events"
	"github.com/edupulse/assessment-engine/internal/models"
	"github.com/edupulse/assessment-engine/internal/repositories"
	"github.com/edupulse/assessment-engine/internal/utils"
)

type quizService struct {
	repo       repositories.Repository
	authorizer Authorizer
	publisher  events.EventPublisher
	logger     *slog.Logger
	validator  *utils.Validator
}

func NewQuizService(
	repo repositories.Repository,
	authorizer Authorizer,
	publisher events.EventPublisher,
	logger *slog.Logger,
	validator *utils.Validator,
) QuizService {
	return &quizService{
		repo:       repo,
		authorizer: authorizer,
		publisher:  publisher,
		logger:     logger,
		validator:  validator,
	}
}

func (s *quizService) Create(ctx context.Context, principal *auth.Principal, req *CreateQuizRequest) (*models.Quiz, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, apperrors.ToValidationErrors(err)
	}

	course, err := s.getCourse(ctx, req.CourseID)
	if err != nil {
		return nil, err
	}

	resource := courseResource(course)
	resource.Kind = "quiz"
	if err := s.authorizer.Require(ctx, principal, ActionCreateQuiz, resource); err != nil {
		return nil, err
	}

	if req.MaxScore > 0 && req.PassingScore > req.MaxScore {
		return nil, ErrQuizInvalidScores
	}

	quiz := &models.Quiz{
		CourseID:          req.CourseID,
		CreatorID:         principal.UserID,
		Title:             req.Title,
		Description:       req.Description,
		Status:            models.QuizDraft,
		TimeLimitMinutes:  req.TimeLimitMinutes,
		MaxAttempts:       req.MaxAttempts,
		PassingScore:      req.PassingScore,
		MaxScore:          req.MaxScore,
		CountsTowardGrade: true,
	}
	if err := s.repo.Quiz().Create(ctx, quiz); err != nil {
		return nil, fmt.Errorf("failed to create quiz: %w", err)
	}

	s.logger.Info("Quiz created", "quiz_id", quiz.ID, "course_id", course.ID)
	return quiz, nil
}

func (s *quizService) Get(ctx context.Context, principal *auth.Principal, id uuid.UUID) (*models.Quiz, error) {
	quiz, course, err := s.getQuizWithCourse(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := s.authorizer.Require(ctx, principal, ActionViewQuiz, quizResource(quiz, course)); err != nil {
		return nil, err
	}

	full, err := s.repo.Quiz().GetByIDWithQuestions(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load questions: %w", err)
	}

	// Students never see the answer key.
	if principal.Role == models.RoleStudent || principal.Role == models.RoleGuardian {
		for i := range full.Questions {
			full.Questions[i].CorrectAnswer = ""
			full.Questions[i].Explanation = nil
		}
	}
	return full, nil
}

// Update applies the per-status edit rules: draft quizzes change freely,
// published quizzes accept only non-structural fields, archived quizzes are
// read-only.
func (s *quizService) Update(ctx context.Context, principal *auth.Principal, id uuid.UUID, req *UpdateQuizRequest) (*models.Quiz, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, apperrors.ToValidationErrors(err)
	}

	quiz, course, err := s.getQuizWithCourse(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := s.authorizer.Require(ctx, principal, ActionManageQuiz, quizResource(quiz, course)); err != nil {
		return nil, err
	}

	switch quiz.Status {
	case models.QuizDraft:
		applyQuizUpdate(quiz, req, true)
	case models.QuizPublished:
		if hasStructuralChanges(req) {
			return nil, ErrQuizNotEditable
		}
		applyQuizUpdate(quiz, req, false)
	default:
		return nil, ErrQuizNotEditable
	}

	if quiz.MaxScore > 0 && quiz.PassingScore > quiz.MaxScore {
		return nil, ErrQuizInvalidScores
	}

	if err := s.repo.Quiz().Update(ctx, quiz); err != nil {
		return nil, fmt.Errorf("failed to update quiz: %w", err)
	}
	return quiz, nil
}

func (s *quizService) List(ctx context.Context, principal *auth.Principal, courseID uuid.UUID, filters repositories.QuizFilters) ([]*models.Quiz, int64, error) {
	course, err := s.getCourse(ctx, courseID)
	if err != nil {
		return nil, 0, err
	}

	if err := s.authorizer.Require(ctx, principal, ActionViewCourse, courseResource(course)); err != nil {
		return nil, 0, err
	}

	// Students only see published quizzes.
	if principal.Role == models.RoleStudent || principal.Role == models.RoleGuardian {
		published := models.QuizPublished
		filters.Status = &published
	}

	return s.repo.Quiz().ListByCourse(ctx, courseID, filters)
}

// Publish moves draft to published. The quiz must have at least one question
// and a passing score no greater than the sum of question points, which
// becomes the authoritative max score.
func (s *quizService) Publish(ctx context.Context, principal *auth.Principal, id uuid.UUID) error {
	quiz, course, err := s.getQuizWithCourse(ctx, id)
	if err != nil {
		return err
	}

	if err := s.authorizer.Require(ctx, principal, ActionManageQuiz, quizResource(quiz, course)); err != nil {
		return err
	}

	if quiz.Status != models.QuizDraft {
		if quiz.Status == models.QuizArchived {
			return ErrQuizArchivedIsFinal
		}
		return ErrQuizInvalidStatus
	}

	count, err := s.repo.Quiz().CountQuestions(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to count questions: %w", err)
	}
	if count == 0 {
		return ErrQuizNoQuestions
	}

	maxScore, err := s.repo.Quiz().SumPoints(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to sum points: %w", err)
	}
	if quiz.PassingScore < 0 || quiz.PassingScore > maxScore {
		return ErrQuizInvalidScores
	}

	now := time.Now()
	quiz.MaxScore = maxScore
	quiz.Status = models.QuizPublished
	quiz.PublishedAt = &now
	if err := s.repo.Quiz().Update(ctx, quiz); err != nil {
		return fmt.Errorf("failed to publish quiz: %w", err)
	}

	studentIDs, err := s.repo.Enrollment().ActiveStudentIDs(ctx, quiz.CourseID)
	if err != nil {
		s.logger.Warn("Failed to list students for publish event", "quiz_id", id, "error", err)
		studentIDs = nil
	}
	event := events.NewNotificationEvent(events.EventQuizPublished, events.QuizPublishedEvent{
		QuizID:     quiz.ID,
		QuizTitle:  quiz.Title,
		CourseID:   quiz.CourseID,
		CreatorID:  quiz.CreatorID,
		StudentIDs: studentIDs,
	})
	if err := s.publisher.PublishNotificationEvent(ctx, event); err != nil {
		s.logger.Error("Failed to publish quiz event", "quiz_id", id, "error", err)
	}

	s.logger.Info("Quiz published", "quiz_id", id, "max_score", maxScore)
	return nil
}

// Unpublish returns a published quiz to draft, allowed only while nobody has
// attempted it.
func (s *quizService) Unpublish(ctx context.Context, principal *auth.Principal, id uuid.UUID) error {
	quiz, course, err := s.getQuizWithCourse(ctx, id)
	if err != nil {
		return err
	}

	if err := s.authorizer.Require(ctx, principal, ActionManageQuiz, quizResource(quiz, course)); err != nil {
		return err
	}

	if quiz.Status != models.QuizPublished {
		return ErrQuizInvalidStatus
	}

	hasAttempts, err := s.hasAttempts(ctx, id)
	if err != nil {
		return err
	}
	if hasAttempts {
		return ErrQuizHasAttempts
	}

	return s.repo.Quiz().UpdateStatus(ctx, id, models.QuizDraft, nil)
}

// Archive is terminal: no status leaves archived.
func (s *quizService) Archive(ctx context.Context, principal *auth.Principal, id uuid.UUID) error {
	quiz, course, err := s.getQuizWithCourse(ctx, id)
	if err != nil {
		return err
	}

	if err := s.authorizer.Require(ctx, principal, ActionManageQuiz, quizResource(quiz, course)); err != nil {
		return err
	}

	if quiz.Status == models.QuizArchived {
		return ErrQuizArchivedIsFinal
	}

	if err := s.repo.Quiz().UpdateStatus(ctx, id, models.QuizArchived, nil); err != nil {
		return fmt.Errorf("failed to archive quiz: %w", err)
	}

	event := events.NewNotificationEvent(events.EventQuizArchived, map[string]interface{}{
		"quiz_id":    quiz.ID,
		"quiz_title": quiz.Title,
		"course_id":  quiz.CourseID,
	})
	if err := s.publisher.PublishNotificationEvent(ctx, event); err != nil {
		s.logger.Error("Failed to publish archive event", "quiz_id", id, "error", err)
	}
	return nil
}

// Delete removes a quiz outright, allowed only for drafts nobody attempted.
// Quizzes with history are archived instead.
func (s *quizService) Delete(ctx context.Context, principal *auth.Principal, id uuid.UUID) error {
	quiz, course, err := s.getQuizWithCourse(ctx, id)
	if err != nil {
		return err
	}

	if err := s.authorizer.Require(ctx, principal, ActionManageQuiz, quizResource(quiz, course)); err != nil {
		return err
	}

	if quiz.Status != models.QuizDraft {
		return ErrQuizInvalidStatus
	}

	hasAttempts, err := s.hasAttempts(ctx, id)
	if err != nil {
		return err
	}
	if hasAttempts {
		return ErrQuizHasAttempts
	}

	return s.repo.Quiz().Delete(ctx, id)
}

func (s *quizService) AddQuestion(ctx context.Context, principal *auth.Principal, quizID uuid.UUID, req *QuestionRequest) (*models.QuizQuestion, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, apperrors.ToValidationErrors(err)
	}
	if err := validateQuestionContent(req); err != nil {
		return nil, err
	}

	quiz, course, err := s.getQuizWithCourse(ctx, quizID)
	if err != nil {
		return nil, err
	}

	if err := s.authorizer.Require(ctx, principal, ActionManageQuiz, quizResource(quiz, course)); err != nil {
		return nil, err
	}

	// Question changes are structural.
	if quiz.Status != models.QuizDraft {
		return nil, ErrQuizNotEditable
	}

	question, err := buildQuestion(quizID, req)
	if err != nil {
		return nil, err
	}
	if err := s.repo.Quiz().AddQuestion(ctx, question); err != nil {
		return nil, fmt.Errorf("failed to add question: %w", err)
	}
	return question, nil
}

func (s *quizService) UpdateQuestion(ctx context.Context, principal *auth.Principal, questionID uuid.UUID, req *QuestionRequest) (*models.QuizQuestion, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, apperrors.ToValidationErrors(err)
	}
	if err := validateQuestionContent(req); err != nil {
		return nil, err
	}

	existing, quiz, course, err := s.getQuestionWithQuiz(ctx, questionID)
	if err != nil {
		return nil, err
	}

	if err := s.authorizer.Require(ctx, principal, ActionManageQuiz, quizResource(quiz, course)); err != nil {
		return nil, err
	}
	if quiz.Status != models.QuizDraft {
		return nil, ErrQuizNotEditable
	}

	updated, err := buildQuestion(quiz.ID, req)
	if err != nil {
		return nil, err
	}
	updated.ID = existing.ID
	updated.CreatedAt = existing.CreatedAt
	if err := s.repo.Quiz().UpdateQuestion(ctx, updated); err != nil {
		return nil, fmt.Errorf("failed to update question: %w", err)
	}
	return updated, nil
}

func (s *quizService) DeleteQuestion(ctx context.Context, principal *auth.Principal, questionID uuid.UUID) error {
	_, quiz, course, err := s.getQuestionWithQuiz(ctx, questionID)
	if err != nil {
		return err
	}

	if err := s.authorizer.Require(ctx, principal, ActionManageQuiz, quizResource(quiz, course)); err != nil {
		return err
	}
	if quiz.Status != models.QuizDraft {
		return ErrQuizNotEditable
	}

	return s.repo.Quiz().DeleteQuestion(ctx, questionID)
}

// ===== HELPERS =====

func (s *quizService) getCourse(ctx context.Context, id uuid.UUID) (*models.Course, error) {
	course, err := s.repo.Course().GetByID(ctx, id)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrCourseNotFound
		}
		return nil, fmt.Errorf("failed to get course: %w", err)
	}
	if course.DeletedAt != nil {
		return nil, ErrCourseDeleted
	}
	return course, nil
}

func (s *quizService) getQuizWithCourse(ctx context.Context, id uuid.UUID) (*models.Quiz, *models.Course, error) {
	quiz, err := s.repo.Quiz().GetByID(ctx, id)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, nil, ErrQuizNotFound
		}
		return nil, nil, fmt.Errorf("failed to get quiz: %w", err)
	}

	course, err := s.repo.Course().GetByID(ctx, quiz.CourseID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, nil, ErrCourseNotFound
		}
		return nil, nil, fmt.Errorf("failed to get course: %w", err)
	}
	return quiz, course, nil
}

func (s *quizService) getQuestionWithQuiz(ctx context.Context, questionID uuid.UUID) (*models.QuizQuestion, *models.Quiz, *models.Course, error) {
	question, err := s.repo.Quiz().GetQuestion(ctx, questionID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, nil, nil, ErrQuestionNotFound
		}
		return nil, nil, nil, fmt.Errorf("failed to get question: %w", err)
	}

	quiz, course, err := s.getQuizWithCourse(ctx, question.QuizID)
	if err != nil {
		return nil, nil, nil, err
	}
	return question, quiz, course, nil
}

func (s *quizService) hasAttempts(ctx context.Context, quizID uuid.UUID) (bool, error) {
	count, err := s.repo.Attempt().CountByQuiz(ctx, quizID)
	if err != nil {
		return false, fmt.Errorf("failed to check attempts: %w", err)
	}
	return count > 0, nil
}

func hasStructuralChanges(req *UpdateQuizRequest) bool {
	return req.TimeLimitMinutes != nil ||
		req.MaxAttempts != nil ||
		req.PassingScore != nil ||
		req.MaxScore != nil
}

func applyQuizUpdate(quiz *models.Quiz, req *UpdateQuizRequest, structural bool) {
	if req.Title != nil {
		quiz.Title = *req.Title
	}
	if req.Description != nil {
		quiz.Description = req.Description
	}
	if req.CountsTowardGrade != nil {
		quiz.CountsTowardGrade = *req.CountsTowardGrade
	}
	if !structural {
		return
	}
	if req.TimeLimitMinutes != nil {
		quiz.TimeLimitMinutes = *req.TimeLimitMinutes
	}
	if req.MaxAttempts != nil {
		quiz.MaxAttempts = *req.MaxAttempts
	}
	if req.PassingScore != nil {
		quiz.PassingScore = *req.PassingScore
	}
	if req.MaxScore != nil {
		quiz.MaxScore = *req.MaxScore
	}
}

func validateQuestionContent(req *QuestionRequest) error {
	switch req.QuestionType {
	case models.MultipleChoice:
		if len(req.Options) < 2 {
			return NewBusinessRuleError("multiple_choice_options",
				"multiple choice questions need at least two options", nil)
		}
		for _, opt := range req.Options {
			if opt == req.CorrectAnswer {
				return nil
			}
		}
		return NewBusinessRuleError("correct_answer_in_options",
			"correct answer must be one of the options", nil)
	case models.TrueFalse:
		if req.CorrectAnswer != "true" && req.CorrectAnswer != "false" {
			return NewBusinessRuleError("true_false_answer",
				"true/false questions accept only 'true' or 'false'", nil)
		}
	}
	return nil
}

func buildQuestion(quizID uuid.UUID, req *QuestionRequest) (*models.QuizQuestion, error) {
	question := &models.QuizQuestion{
		QuizID:        quizID,
		QuestionText:  req.QuestionText,
		QuestionType:  req.QuestionType,
		CorrectAnswer: req.CorrectAnswer,
		Explanation:   req.Explanation,
		Points:        req.Points,
		OrderNumber:   req.OrderNumber,
	}
	if question.Points == 0 {
		question.Points = 1
	}
	if len(req.Options) > 0 {
		raw, err := json.Marshal(req.Options)
		if err != nil {
			return nil, fmt.Errorf("failed to encode options: %w", err)
		}
		question.Options = datatypes.JSON(raw)
	}
	return question, nil
}
