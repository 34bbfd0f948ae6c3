package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	"github.com/edupulse/assessment-engine/internal/auth"
	"github.com/edupulse/assessment-engine/internal/events"
	"github.com/edupulse/assessment-engine/internal/models"
	"github.com/edupulse/assessment-engine/internal/repositories"
)

// expireBatchSize bounds how many overdue attempts one sweep pass grades.
const expireBatchSize = 200

type attemptService struct {
	repo       repositories.Repository
	authorizer Authorizer
	publisher  events.EventPublisher
	logger     *slog.Logger
}

func NewAttemptService(
	repo repositories.Repository,
	authorizer Authorizer,
	publisher events.EventPublisher,
	logger *slog.Logger,
) AttemptService {
	return &attemptService{
		repo:       repo,
		authorizer: authorizer,
		publisher:  publisher,
		logger:     logger,
	}
}

// Start opens a new attempt. The attempt number is assigned inside the same
// transaction as the insert, under a row lock, so concurrent starts cannot
// produce duplicates or gaps; a unique index backs this up at the database.
func (s *attemptService) Start(ctx context.Context, principal *auth.Principal, quizID uuid.UUID) (*models.QuizAttempt, error) {
	quiz, err := s.repo.Quiz().GetByID(ctx, quizID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrQuizNotFound
		}
		return nil, fmt.Errorf("failed to get quiz: %w", err)
	}
	if quiz.Status != models.QuizPublished {
		return nil, ErrQuizNotPublished
	}

	course, err := s.repo.Course().GetByID(ctx, quiz.CourseID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrCourseNotFound
		}
		return nil, fmt.Errorf("failed to get course: %w", err)
	}
	if course.DeletedAt != nil {
		return nil, ErrCourseDeleted
	}

	if err := s.authorizer.Require(ctx, principal, ActionStartAttempt, quizResource(quiz, course)); err != nil {
		return nil, err
	}

	active, err := s.repo.Attempt().GetActive(ctx, quizID, principal.UserID)
	if err != nil {
		return nil, fmt.Errorf("failed to check active attempt: %w", err)
	}
	if active != nil {
		return nil, ErrAttemptInProgress
	}

	finished, err := s.repo.Attempt().CountFinished(ctx, quizID, principal.UserID)
	if err != nil {
		return nil, fmt.Errorf("failed to count attempts: %w", err)
	}
	if finished >= int64(quiz.MaxAttempts) {
		return nil, ErrAttemptLimitExceeded
	}

	var attempt *models.QuizAttempt
	err = s.repo.WithTx(ctx, func(tx repositories.Repository) error {
		number, err := tx.Attempt().NextAttemptNumber(ctx, quizID, principal.UserID)
		if err != nil {
			return fmt.Errorf("failed to assign attempt number: %w", err)
		}

		attempt = &models.QuizAttempt{
			QuizID:        quizID,
			StudentID:     principal.UserID,
			AttemptNumber: number,
			Status:        models.AttemptInProgress,
			StartedAt:     time.Now(),
			QuizTitle:     quiz.Title,
			CourseName:    course.Name,
		}
		if err := tx.Attempt().Create(ctx, attempt); err != nil {
			if repositories.IsDuplicateError(err) {
				return ErrAttemptInProgress
			}
			return fmt.Errorf("failed to create attempt: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if err := s.repo.Course().TouchActivity(ctx, course.ID, attempt.StartedAt); err != nil {
		s.logger.Warn("Failed to touch course activity", "course_id", course.ID, "error", err)
	}

	event := events.NewNotificationEvent(events.EventAttemptStarted, events.AttemptStartedEvent{
		AttemptID:        attempt.ID,
		QuizID:           quizID,
		QuizTitle:        quiz.Title,
		StudentID:        principal.UserID,
		AttemptNumber:    attempt.AttemptNumber,
		StartedAt:        attempt.StartedAt,
		TimeLimitMinutes: quiz.TimeLimitMinutes,
	})
	if err := s.publisher.PublishNotificationEvent(ctx, event); err != nil {
		s.logger.Error("Failed to publish attempt started event", "attempt_id", attempt.ID, "error", err)
	}

	s.logger.Info("Attempt started",
		"attempt_id", attempt.ID,
		"quiz_id", quizID,
		"student_id", principal.UserID,
		"attempt_number", attempt.AttemptNumber)
	return attempt, nil
}

// SaveAnswers stores a partial answer set while the attempt is running, so
// an expiring attempt is graded on what the student has entered so far.
func (s *attemptService) SaveAnswers(ctx context.Context, principal *auth.Principal, attemptID uuid.UUID, answers models.AnswerSet) error {
	attempt, err := s.getOwnAttempt(ctx, principal, attemptID)
	if err != nil {
		return err
	}
	if attempt.Status != models.AttemptInProgress {
		return ErrAttemptNotActive
	}

	raw, err := json.Marshal(answers)
	if err != nil {
		return fmt.Errorf("failed to encode answers: %w", err)
	}

	saved, err := s.repo.Attempt().SaveAnswers(ctx, attemptID, datatypes.JSON(raw))
	if err != nil {
		return fmt.Errorf("failed to save answers: %w", err)
	}
	if !saved {
		return ErrAttemptNotActive
	}
	return nil
}

// Submit grades and closes the attempt. The terminal transition is a single
// conditional update, so a submit racing the expiry sweep leaves exactly one
// winner and the loser reports a conflict instead of overwriting the result.
func (s *attemptService) Submit(ctx context.Context, principal *auth.Principal, attemptID uuid.UUID, answers models.AnswerSet) (*models.QuizAttempt, error) {
	attempt, err := s.getOwnAttempt(ctx, principal, attemptID)
	if err != nil {
		return nil, err
	}
	if attempt.Status.Terminal() {
		return nil, ErrAttemptAlreadyClosed
	}

	quiz, err := s.repo.Quiz().GetByID(ctx, attempt.QuizID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrQuizNotFound
		}
		return nil, fmt.Errorf("failed to get quiz: %w", err)
	}

	now := time.Now()
	if now.After(attempt.Deadline(quiz.TimeLimitMinutes)) {
		// Too late for a voluntary submit; the sweep owns this attempt.
		return nil, ErrAttemptTimeExpired
	}

	if answers == nil {
		answers = decodeAnswers(attempt.Answers)
	}

	questions, err := s.repo.Quiz().GetQuestions(ctx, attempt.QuizID)
	if err != nil {
		return nil, fmt.Errorf("failed to load questions: %w", err)
	}

	score, percentage, passed := scoreAnswers(questions, answers, quiz)
	raw, err := json.Marshal(answers)
	if err != nil {
		return nil, fmt.Errorf("failed to encode answers: %w", err)
	}

	final := repositories.FinalizeAttempt{
		Status:      models.AttemptCompleted,
		SubmittedAt: now,
		Answers:     datatypes.JSON(raw),
		Score:       score,
		Percentage:  percentage,
		Passed:      passed,
	}
	won, err := s.repo.Attempt().Finalize(ctx, attemptID, final)
	if err != nil {
		return nil, fmt.Errorf("failed to finalize attempt: %w", err)
	}
	if !won {
		return nil, ErrAttemptAlreadyClosed
	}

	attempt.Status = models.AttemptCompleted
	attempt.SubmittedAt = &now
	attempt.Answers = datatypes.JSON(raw)
	attempt.Score = &score
	attempt.Percentage = &percentage
	attempt.Passed = &passed

	event := events.NewNotificationEvent(events.EventAttemptSubmitted, events.AttemptSubmittedEvent{
		AttemptID:   attempt.ID,
		QuizID:      attempt.QuizID,
		QuizTitle:   attempt.QuizTitle,
		StudentID:   attempt.StudentID,
		SubmittedAt: now,
		Score:       score,
		Passed:      passed,
	})
	if err := s.publisher.PublishNotificationEvent(ctx, event); err != nil {
		s.logger.Error("Failed to publish attempt submitted event", "attempt_id", attempt.ID, "error", err)
	}

	s.logger.Info("Attempt submitted",
		"attempt_id", attempt.ID,
		"score", score,
		"passed", passed)
	return attempt, nil
}

func (s *attemptService) Get(ctx context.Context, principal *auth.Principal, attemptID uuid.UUID) (*models.QuizAttempt, error) {
	attempt, err := s.repo.Attempt().GetByID(ctx, attemptID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrAttemptNotFound
		}
		return nil, fmt.Errorf("failed to get attempt: %w", err)
	}

	course, err := s.attemptCourse(ctx, attempt)
	if err != nil {
		return nil, err
	}
	resource := attemptResource(attempt, course)
	if err := s.authorizer.Require(ctx, principal, ActionViewAttempt, resource); err != nil {
		return nil, err
	}
	return attempt, nil
}

// Summary reports both readings of a student's history on a quiz: the best
// score across terminal attempts and the most recent attempt. Consumers pick
// one and say which.
func (s *attemptService) Summary(ctx context.Context, principal *auth.Principal, quizID, studentID uuid.UUID) (*repositories.AttemptSummary, error) {
	quiz, err := s.repo.Quiz().GetByID(ctx, quizID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrQuizNotFound
		}
		return nil, fmt.Errorf("failed to get quiz: %w", err)
	}
	course, err := s.repo.Course().GetByID(ctx, quiz.CourseID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrCourseNotFound
		}
		return nil, fmt.Errorf("failed to get course: %w", err)
	}

	resource := quizResource(quiz, course)
	resource.Kind = "results"
	resource.OwnerID = studentID
	if err := s.authorizer.Require(ctx, principal, ActionViewResults, resource); err != nil {
		return nil, err
	}

	return s.repo.Attempt().Summary(ctx, quizID, studentID)
}

// ExpireOverdue is the auto-submit sweep. Each overdue attempt is graded on
// its last saved answers and moved to expired through the same conditional
// update Submit uses; rows that lose the race to a voluntary submit are
// skipped. One bad row never stops the sweep.
func (s *attemptService) ExpireOverdue(ctx context.Context) (int, error) {
	overdue, err := s.repo.Attempt().ListOverdue(ctx, time.Now(), expireBatchSize)
	if err != nil {
		return 0, fmt.Errorf("failed to list overdue attempts: %w", err)
	}

	expired := 0
	for _, attempt := range overdue {
		if err := s.expireOne(ctx, attempt); err != nil {
			s.logger.Error("Failed to expire attempt", "attempt_id", attempt.ID, "error", err)
			continue
		}
		expired++
	}

	if expired > 0 {
		s.logger.Info("Expired overdue attempts", "count", expired)
	}
	return expired, nil
}

func (s *attemptService) expireOne(ctx context.Context, attempt *models.QuizAttempt) error {
	quiz, err := s.repo.Quiz().GetByID(ctx, attempt.QuizID)
	if err != nil {
		return fmt.Errorf("failed to get quiz: %w", err)
	}
	questions, err := s.repo.Quiz().GetQuestions(ctx, attempt.QuizID)
	if err != nil {
		return fmt.Errorf("failed to load questions: %w", err)
	}

	answers := decodeAnswers(attempt.Answers)
	score, percentage, passed := scoreAnswers(questions, answers, quiz)

	now := time.Now()
	final := repositories.FinalizeAttempt{
		Status:      models.AttemptExpired,
		SubmittedAt: now,
		Score:       score,
		Percentage:  percentage,
		Passed:      passed,
	}
	won, err := s.repo.Attempt().Finalize(ctx, attempt.ID, final)
	if err != nil {
		return fmt.Errorf("failed to finalize: %w", err)
	}
	if !won {
		// A voluntary submit beat the sweep; nothing to do.
		return nil
	}

	event := events.NewNotificationEvent(events.EventAttemptExpired, events.AttemptExpiredEvent{
		AttemptID: attempt.ID,
		QuizID:    attempt.QuizID,
		QuizTitle: attempt.QuizTitle,
		StudentID: attempt.StudentID,
		ExpiredAt: now,
		Score:     score,
	})
	if err := s.publisher.PublishNotificationEvent(ctx, event); err != nil {
		s.logger.Error("Failed to publish attempt expired event", "attempt_id", attempt.ID, "error", err)
	}
	return nil
}

// ===== HELPERS =====

func (s *attemptService) getOwnAttempt(ctx context.Context, principal *auth.Principal, attemptID uuid.UUID) (*models.QuizAttempt, error) {
	attempt, err := s.repo.Attempt().GetByID(ctx, attemptID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrAttemptNotFound
		}
		return nil, fmt.Errorf("failed to get attempt: %w", err)
	}
	if attempt.StudentID != principal.UserID {
		return nil, NewPermissionError(principal.UserID.String(), attemptID.String(),
			"attempt", string(ActionViewAttempt), string(DenyNotOwner))
	}
	return attempt, nil
}

// attemptCourse resolves the course an attempt belongs to. A nil course with
// no error means the quiz or course has since been removed; the attempt is
// then scoped to its student alone.
func (s *attemptService) attemptCourse(ctx context.Context, attempt *models.QuizAttempt) (*models.Course, error) {
	quiz, err := s.repo.Quiz().GetByID(ctx, attempt.QuizID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get quiz: %w", err)
	}
	course, err := s.repo.Course().GetByID(ctx, quiz.CourseID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get course: %w", err)
	}
	return course, nil
}

func decodeAnswers(raw datatypes.JSON) models.AnswerSet {
	answers := models.AnswerSet{}
	if len(raw) > 0 {
		_ = json.Unmarshal(raw, &answers)
	}
	return answers
}

// scoreAnswers grades an answer set. Choice questions match exactly; short
// answers match after trimming and case folding.
func scoreAnswers(questions []*models.QuizQuestion, answers models.AnswerSet, quiz *models.Quiz) (score, percentage float64, passed bool) {
	for _, question := range questions {
		given, ok := answers[question.ID.String()]
		if !ok {
			continue
		}
		if answerCorrect(question, given) {
			score += question.Points
		}
	}

	if quiz.MaxScore > 0 {
		percentage = score / quiz.MaxScore * 100
	}
	passed = score >= quiz.PassingScore
	return score, percentage, passed
}

func answerCorrect(question *models.QuizQuestion, given string) bool {
	switch question.QuestionType {
	case models.ShortAnswer:
		return strings.EqualFold(strings.TrimSpace(given), strings.TrimSpace(question.CorrectAnswer))
	default:
		return given == question.CorrectAnswer
	}
}
