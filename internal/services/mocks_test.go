package services

import (
	"context"
	"io"
	"log/slog"
	"sort"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/edupulse/assessment-engine/internal/models"
	"github.com/edupulse/assessment-engine/internal/repositories"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// mockRepository is an in-memory Repository. Uniqueness constraints mirror
// the database indexes: tenant name, user email, (student, course)
// enrollments, (guardian, student) links and (quiz, student, number)
// attempts. WithTx snapshots every map and restores it when fn fails.
type mockRepository struct {
	tenants       map[uuid.UUID]models.Tenant
	users         map[uuid.UUID]models.User
	grants        []models.RoleGrant
	courses       map[uuid.UUID]models.Course
	enrollments   map[uuid.UUID]models.Enrollment
	guardianLinks map[uuid.UUID]models.GuardianLink
	quizzes       map[uuid.UUID]models.Quiz
	questions     map[uuid.UUID]models.QuizQuestion
	attempts      map[uuid.UUID]models.QuizAttempt
	notifications map[uuid.UUID]models.Notification
}

func newMockRepository() *mockRepository {
	return &mockRepository{
		tenants:       make(map[uuid.UUID]models.Tenant),
		users:         make(map[uuid.UUID]models.User),
		courses:       make(map[uuid.UUID]models.Course),
		enrollments:   make(map[uuid.UUID]models.Enrollment),
		guardianLinks: make(map[uuid.UUID]models.GuardianLink),
		quizzes:       make(map[uuid.UUID]models.Quiz),
		questions:     make(map[uuid.UUID]models.QuizQuestion),
		attempts:      make(map[uuid.UUID]models.QuizAttempt),
		notifications: make(map[uuid.UUID]models.Notification),
	}
}

func (m *mockRepository) Tenant() repositories.TenantRepository             { return &mockTenantRepo{m} }
func (m *mockRepository) User() repositories.UserRepository                 { return &mockUserRepo{m} }
func (m *mockRepository) Course() repositories.CourseRepository             { return &mockCourseRepo{m} }
func (m *mockRepository) Enrollment() repositories.EnrollmentRepository     { return &mockEnrollmentRepo{m} }
func (m *mockRepository) Quiz() repositories.QuizRepository                 { return &mockQuizRepo{m} }
func (m *mockRepository) Attempt() repositories.AttemptRepository           { return &mockAttemptRepo{m} }
func (m *mockRepository) Notification() repositories.NotificationRepository { return &mockNotificationRepo{m} }

func (m *mockRepository) WithTx(ctx context.Context, fn func(repositories.Repository) error) error {
	snapshot := m.snapshot()
	if err := fn(m); err != nil {
		m.restore(snapshot)
		return err
	}
	return nil
}

func (m *mockRepository) snapshot() *mockRepository {
	s := newMockRepository()
	for k, v := range m.tenants {
		s.tenants[k] = v
	}
	for k, v := range m.users {
		s.users[k] = v
	}
	s.grants = append(s.grants, m.grants...)
	for k, v := range m.courses {
		s.courses[k] = v
	}
	for k, v := range m.enrollments {
		s.enrollments[k] = v
	}
	for k, v := range m.guardianLinks {
		s.guardianLinks[k] = v
	}
	for k, v := range m.quizzes {
		s.quizzes[k] = v
	}
	for k, v := range m.questions {
		s.questions[k] = v
	}
	for k, v := range m.attempts {
		s.attempts[k] = v
	}
	for k, v := range m.notifications {
		s.notifications[k] = v
	}
	return s
}

func (m *mockRepository) restore(s *mockRepository) {
	m.tenants = s.tenants
	m.users = s.users
	m.grants = s.grants
	m.courses = s.courses
	m.enrollments = s.enrollments
	m.guardianLinks = s.guardianLinks
	m.quizzes = s.quizzes
	m.questions = s.questions
	m.attempts = s.attempts
	m.notifications = s.notifications
}

func ensureID(id uuid.UUID) uuid.UUID {
	if id == uuid.Nil {
		return uuid.New()
	}
	return id
}

// ===== TENANT =====

type mockTenantRepo struct{ m *mockRepository }

func (r *mockTenantRepo) Create(ctx context.Context, tenant *models.Tenant) error {
	for _, t := range r.m.tenants {
		if t.Name == tenant.Name {
			return gorm.ErrDuplicatedKey
		}
	}
	tenant.ID = ensureID(tenant.ID)
	if tenant.CreatedAt.IsZero() {
		tenant.CreatedAt = time.Now()
	}
	r.m.tenants[tenant.ID] = *tenant
	return nil
}

func (r *mockTenantRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Tenant, error) {
	t, ok := r.m.tenants[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return &t, nil
}

func (r *mockTenantRepo) GetByName(ctx context.Context, name string) (*models.Tenant, error) {
	for _, t := range r.m.tenants {
		if t.Name == name {
			out := t
			return &out, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *mockTenantRepo) Update(ctx context.Context, tenant *models.Tenant) error {
	if _, ok := r.m.tenants[tenant.ID]; !ok {
		return gorm.ErrRecordNotFound
	}
	r.m.tenants[tenant.ID] = *tenant
	return nil
}

func (r *mockTenantRepo) AttachOwner(ctx context.Context, tenantID, userID uuid.UUID) (bool, error) {
	t, ok := r.m.tenants[tenantID]
	if !ok {
		return false, gorm.ErrRecordNotFound
	}
	if t.OwnerUserID != nil {
		return false, nil
	}
	t.OwnerUserID = &userID
	r.m.tenants[tenantID] = t
	return true, nil
}

func (r *mockTenantRepo) RequestDeletion(ctx context.Context, tenantID uuid.UUID, at time.Time) error {
	t, ok := r.m.tenants[tenantID]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	t.DeletionRequestedAt = &at
	t.IsActive = false
	r.m.tenants[tenantID] = t
	return nil
}

func (r *mockTenantRepo) ListOwnerless(ctx context.Context, createdBefore time.Time) ([]*models.Tenant, error) {
	var out []*models.Tenant
	for _, t := range r.m.tenants {
		if t.OwnerUserID == nil && t.CreatedAt.Before(createdBefore) {
			tenant := t
			out = append(out, &tenant)
		}
	}
	return out, nil
}

func (r *mockTenantRepo) ListGraceExpired(ctx context.Context, deadline time.Time) ([]*models.Tenant, error) {
	var out []*models.Tenant
	for _, t := range r.m.tenants {
		if t.DeletionRequestedAt != nil && t.DeletionRequestedAt.Before(deadline) {
			tenant := t
			out = append(out, &tenant)
		}
	}
	return out, nil
}

func (r *mockTenantRepo) Delete(ctx context.Context, id uuid.UUID) error {
	delete(r.m.tenants, id)
	return nil
}

// ===== USER =====

type mockUserRepo struct{ m *mockRepository }

func (r *mockUserRepo) Create(ctx context.Context, user *models.User) error {
	for _, u := range r.m.users {
		if u.Email == user.Email {
			return gorm.ErrDuplicatedKey
		}
	}
	user.ID = ensureID(user.ID)
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now()
	}
	r.m.users[user.ID] = *user
	return nil
}

func (r *mockUserRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	u, ok := r.m.users[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return &u, nil
}

func (r *mockUserRepo) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	for _, u := range r.m.users {
		if u.Email == email {
			out := u
			return &out, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *mockUserRepo) Update(ctx context.Context, user *models.User) error {
	if _, ok := r.m.users[user.ID]; !ok {
		return gorm.ErrRecordNotFound
	}
	r.m.users[user.ID] = *user
	return nil
}

func (r *mockUserRepo) UpdateLastLogin(ctx context.Context, id uuid.UUID, at time.Time) error {
	u, ok := r.m.users[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	u.LastLoginAt = &at
	r.m.users[id] = u
	return nil
}

func (r *mockUserRepo) ListByTenant(ctx context.Context, tenantID uuid.UUID) ([]*models.User, error) {
	var out []*models.User
	for _, u := range r.m.users {
		if u.TenantID != nil && *u.TenantID == tenantID {
			user := u
			out = append(out, &user)
		}
	}
	return out, nil
}

func (r *mockUserRepo) DetachTenant(ctx context.Context, tenantID uuid.UUID) (int64, error) {
	var detached int64
	for id, u := range r.m.users {
		if u.TenantID != nil && *u.TenantID == tenantID {
			u.TenantID = nil
			r.m.users[id] = u
			detached++
		}
	}
	return detached, nil
}

func (r *mockUserRepo) CreateGrant(ctx context.Context, grant *models.RoleGrant) error {
	grant.ID = ensureID(grant.ID)
	r.m.grants = append(r.m.grants, *grant)
	return nil
}

func (r *mockUserRepo) GetGrants(ctx context.Context, userID uuid.UUID) ([]models.RoleGrant, error) {
	var out []models.RoleGrant
	for _, g := range r.m.grants {
		if g.UserID == userID {
			out = append(out, g)
		}
	}
	return out, nil
}

// ===== COURSE =====

type mockCourseRepo struct{ m *mockRepository }

func (r *mockCourseRepo) Create(ctx context.Context, course *models.Course) error {
	course.ID = ensureID(course.ID)
	if course.CreatedAt.IsZero() {
		course.CreatedAt = time.Now()
	}
	r.m.courses[course.ID] = *course
	return nil
}

func (r *mockCourseRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Course, error) {
	c, ok := r.m.courses[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return &c, nil
}

func (r *mockCourseRepo) Update(ctx context.Context, course *models.Course) error {
	if _, ok := r.m.courses[course.ID]; !ok {
		return gorm.ErrRecordNotFound
	}
	r.m.courses[course.ID] = *course
	return nil
}

func (r *mockCourseRepo) ListByTenant(ctx context.Context, tenantID uuid.UUID) ([]*models.Course, error) {
	var out []*models.Course
	for _, c := range r.m.courses {
		if c.TenantID != nil && *c.TenantID == tenantID {
			course := c
			out = append(out, &course)
		}
	}
	return out, nil
}

func (r *mockCourseRepo) ListByTeacher(ctx context.Context, teacherID uuid.UUID) ([]*models.Course, error) {
	var out []*models.Course
	for _, c := range r.m.courses {
		if c.TeacherID == teacherID {
			course := c
			out = append(out, &course)
		}
	}
	return out, nil
}

func (r *mockCourseRepo) SoftDelete(ctx context.Context, id uuid.UUID, at time.Time) error {
	c, ok := r.m.courses[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	c.DeletedAt = &at
	r.m.courses[id] = c
	return nil
}

func (r *mockCourseRepo) Restore(ctx context.Context, id uuid.UUID, deletedAfter time.Time) (bool, error) {
	c, ok := r.m.courses[id]
	if !ok {
		return false, gorm.ErrRecordNotFound
	}
	if c.DeletedAt == nil || !c.DeletedAt.After(deletedAfter) {
		return false, nil
	}
	c.DeletedAt = nil
	r.m.courses[id] = c
	return true, nil
}

func (r *mockCourseRepo) TouchActivity(ctx context.Context, id uuid.UUID, at time.Time) error {
	c, ok := r.m.courses[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	c.LastActivityAt = at
	r.m.courses[id] = c
	return nil
}

func (r *mockCourseRepo) ListPurgeable(ctx context.Context, deletedBefore, inactiveSince time.Time) ([]*models.Course, error) {
	var out []*models.Course
	for _, c := range r.m.courses {
		eligible := (c.DeletedAt != nil && c.DeletedAt.Before(deletedBefore)) ||
			(c.DeletedAt == nil && c.LastActivityAt.Before(inactiveSince))
		if eligible {
			course := c
			out = append(out, &course)
		}
	}
	return out, nil
}

func (r *mockCourseRepo) MigrateToSolo(ctx context.Context, courseID, teacherID uuid.UUID) error {
	c, ok := r.m.courses[courseID]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	c.TenantID = nil
	c.SoloTeacherID = &teacherID
	c.TeacherID = teacherID
	r.m.courses[courseID] = c
	return nil
}

func (r *mockCourseRepo) Delete(ctx context.Context, id uuid.UUID) error {
	delete(r.m.courses, id)
	return nil
}

// ===== ENROLLMENT =====

type mockEnrollmentRepo struct{ m *mockRepository }

func (r *mockEnrollmentRepo) Create(ctx context.Context, enrollment *models.Enrollment) error {
	for _, e := range r.m.enrollments {
		if e.StudentID == enrollment.StudentID && e.CourseID == enrollment.CourseID {
			return gorm.ErrDuplicatedKey
		}
	}
	enrollment.ID = ensureID(enrollment.ID)
	r.m.enrollments[enrollment.ID] = *enrollment
	return nil
}

func (r *mockEnrollmentRepo) Get(ctx context.Context, studentID, courseID uuid.UUID) (*models.Enrollment, error) {
	for _, e := range r.m.enrollments {
		if e.StudentID == studentID && e.CourseID == courseID {
			out := e
			return &out, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *mockEnrollmentRepo) UpdateStatus(ctx context.Context, studentID, courseID uuid.UUID, status models.EnrollmentStatus) error {
	for id, e := range r.m.enrollments {
		if e.StudentID == studentID && e.CourseID == courseID {
			e.Status = status
			r.m.enrollments[id] = e
			return nil
		}
	}
	return gorm.ErrRecordNotFound
}

func (r *mockEnrollmentRepo) ListByCourse(ctx context.Context, courseID uuid.UUID) ([]*models.Enrollment, error) {
	var out []*models.Enrollment
	for _, e := range r.m.enrollments {
		if e.CourseID == courseID {
			enrollment := e
			out = append(out, &enrollment)
		}
	}
	return out, nil
}

func (r *mockEnrollmentRepo) ListByStudent(ctx context.Context, studentID uuid.UUID) ([]*models.Enrollment, error) {
	var out []*models.Enrollment
	for _, e := range r.m.enrollments {
		if e.StudentID == studentID {
			enrollment := e
			out = append(out, &enrollment)
		}
	}
	return out, nil
}

func (r *mockEnrollmentRepo) ActiveStudentIDs(ctx context.Context, courseID uuid.UUID) ([]uuid.UUID, error) {
	var out []uuid.UUID
	for _, e := range r.m.enrollments {
		if e.CourseID == courseID && e.Status == models.EnrollmentActive {
			out = append(out, e.StudentID)
		}
	}
	return out, nil
}

func (r *mockEnrollmentRepo) CreateGuardianLink(ctx context.Context, link *models.GuardianLink) error {
	for _, l := range r.m.guardianLinks {
		if l.GuardianID == link.GuardianID && l.StudentID == link.StudentID {
			return gorm.ErrDuplicatedKey
		}
	}
	link.ID = ensureID(link.ID)
	r.m.guardianLinks[link.ID] = *link
	return nil
}

func (r *mockEnrollmentRepo) GetGuardianLink(ctx context.Context, guardianID, studentID uuid.UUID) (*models.GuardianLink, error) {
	for _, l := range r.m.guardianLinks {
		if l.GuardianID == guardianID && l.StudentID == studentID {
			out := l
			return &out, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *mockEnrollmentRepo) GetGuardianLinkByID(ctx context.Context, id uuid.UUID) (*models.GuardianLink, error) {
	l, ok := r.m.guardianLinks[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return &l, nil
}

func (r *mockEnrollmentRepo) UpdateGuardianLinkStatus(ctx context.Context, id uuid.UUID, status models.GuardianLinkStatus) error {
	l, ok := r.m.guardianLinks[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	l.Status = status
	r.m.guardianLinks[id] = l
	return nil
}

func (r *mockEnrollmentRepo) ListGuardianLinks(ctx context.Context, guardianID uuid.UUID) ([]*models.GuardianLink, error) {
	var out []*models.GuardianLink
	for _, l := range r.m.guardianLinks {
		if l.GuardianID == guardianID {
			link := l
			out = append(out, &link)
		}
	}
	return out, nil
}

// ===== QUIZ =====

type mockQuizRepo struct{ m *mockRepository }

func (r *mockQuizRepo) Create(ctx context.Context, quiz *models.Quiz) error {
	quiz.ID = ensureID(quiz.ID)
	if quiz.CreatedAt.IsZero() {
		quiz.CreatedAt = time.Now()
	}
	r.m.quizzes[quiz.ID] = *quiz
	return nil
}

func (r *mockQuizRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Quiz, error) {
	q, ok := r.m.quizzes[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return &q, nil
}

func (r *mockQuizRepo) GetByIDWithQuestions(ctx context.Context, id uuid.UUID) (*models.Quiz, error) {
	q, ok := r.m.quizzes[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	questions, _ := r.GetQuestions(ctx, id)
	q.Questions = make([]models.QuizQuestion, 0, len(questions))
	for _, question := range questions {
		q.Questions = append(q.Questions, *question)
	}
	q.QuestionsCount = len(q.Questions)
	return &q, nil
}

func (r *mockQuizRepo) Update(ctx context.Context, quiz *models.Quiz) error {
	if _, ok := r.m.quizzes[quiz.ID]; !ok {
		return gorm.ErrRecordNotFound
	}
	stored := *quiz
	stored.Questions = nil
	r.m.quizzes[quiz.ID] = stored
	return nil
}

func (r *mockQuizRepo) UpdateStatus(ctx context.Context, id uuid.UUID, status models.QuizStatus, publishedAt *time.Time) error {
	q, ok := r.m.quizzes[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	q.Status = status
	if publishedAt != nil {
		q.PublishedAt = publishedAt
	}
	r.m.quizzes[id] = q
	return nil
}

func (r *mockQuizRepo) ListByCourse(ctx context.Context, courseID uuid.UUID, filters repositories.QuizFilters) ([]*models.Quiz, int64, error) {
	var out []*models.Quiz
	for _, q := range r.m.quizzes {
		if q.CourseID != courseID {
			continue
		}
		if filters.Status != nil && q.Status != *filters.Status {
			continue
		}
		if filters.CreatorID != nil && q.CreatorID != *filters.CreatorID {
			continue
		}
		quiz := q
		out = append(out, &quiz)
	}
	return out, int64(len(out)), nil
}

func (r *mockQuizRepo) ListByCreator(ctx context.Context, creatorID uuid.UUID) ([]*models.Quiz, error) {
	var out []*models.Quiz
	for _, q := range r.m.quizzes {
		if q.CreatorID == creatorID {
			quiz := q
			out = append(out, &quiz)
		}
	}
	return out, nil
}

func (r *mockQuizRepo) Delete(ctx context.Context, id uuid.UUID) error {
	for qid, question := range r.m.questions {
		if question.QuizID == id {
			delete(r.m.questions, qid)
		}
	}
	delete(r.m.quizzes, id)
	return nil
}

func (r *mockQuizRepo) CountQuestions(ctx context.Context, quizID uuid.UUID) (int64, error) {
	var count int64
	for _, q := range r.m.questions {
		if q.QuizID == quizID {
			count++
		}
	}
	return count, nil
}

func (r *mockQuizRepo) SumPoints(ctx context.Context, quizID uuid.UUID) (float64, error) {
	var sum float64
	for _, q := range r.m.questions {
		if q.QuizID == quizID {
			sum += q.Points
		}
	}
	return sum, nil
}

func (r *mockQuizRepo) AddQuestion(ctx context.Context, question *models.QuizQuestion) error {
	question.ID = ensureID(question.ID)
	r.m.questions[question.ID] = *question
	return nil
}

func (r *mockQuizRepo) UpdateQuestion(ctx context.Context, question *models.QuizQuestion) error {
	if _, ok := r.m.questions[question.ID]; !ok {
		return gorm.ErrRecordNotFound
	}
	r.m.questions[question.ID] = *question
	return nil
}

func (r *mockQuizRepo) DeleteQuestion(ctx context.Context, id uuid.UUID) error {
	delete(r.m.questions, id)
	return nil
}

func (r *mockQuizRepo) GetQuestion(ctx context.Context, id uuid.UUID) (*models.QuizQuestion, error) {
	q, ok := r.m.questions[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return &q, nil
}

func (r *mockQuizRepo) GetQuestions(ctx context.Context, quizID uuid.UUID) ([]*models.QuizQuestion, error) {
	var out []*models.QuizQuestion
	for _, q := range r.m.questions {
		if q.QuizID == quizID {
			question := q
			out = append(out, &question)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].OrderNumber < out[j].OrderNumber })
	return out, nil
}

// ===== ATTEMPT =====

type mockAttemptRepo struct{ m *mockRepository }

func (r *mockAttemptRepo) Create(ctx context.Context, attempt *models.QuizAttempt) error {
	for _, a := range r.m.attempts {
		if a.QuizID == attempt.QuizID && a.StudentID == attempt.StudentID && a.AttemptNumber == attempt.AttemptNumber {
			return gorm.ErrDuplicatedKey
		}
	}
	attempt.ID = ensureID(attempt.ID)
	r.m.attempts[attempt.ID] = *attempt
	return nil
}

func (r *mockAttemptRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.QuizAttempt, error) {
	a, ok := r.m.attempts[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return &a, nil
}

func (r *mockAttemptRepo) GetActive(ctx context.Context, quizID, studentID uuid.UUID) (*models.QuizAttempt, error) {
	for _, a := range r.m.attempts {
		if a.QuizID == quizID && a.StudentID == studentID && a.Status == models.AttemptInProgress {
			out := a
			return &out, nil
		}
	}
	return nil, nil
}

func (r *mockAttemptRepo) NextAttemptNumber(ctx context.Context, quizID, studentID uuid.UUID) (int, error) {
	max := 0
	for _, a := range r.m.attempts {
		if a.QuizID == quizID && a.StudentID == studentID && a.AttemptNumber > max {
			max = a.AttemptNumber
		}
	}
	return max + 1, nil
}

func (r *mockAttemptRepo) CountFinished(ctx context.Context, quizID, studentID uuid.UUID) (int64, error) {
	var count int64
	for _, a := range r.m.attempts {
		if a.QuizID == quizID && a.StudentID == studentID && a.Status.Terminal() {
			count++
		}
	}
	return count, nil
}

func (r *mockAttemptRepo) CountByQuiz(ctx context.Context, quizID uuid.UUID) (int64, error) {
	var count int64
	for _, a := range r.m.attempts {
		if a.QuizID == quizID {
			count++
		}
	}
	return count, nil
}

func (r *mockAttemptRepo) SaveAnswers(ctx context.Context, id uuid.UUID, answers datatypes.JSON) (bool, error) {
	a, ok := r.m.attempts[id]
	if !ok {
		return false, gorm.ErrRecordNotFound
	}
	if a.Status != models.AttemptInProgress {
		return false, nil
	}
	a.Answers = answers
	r.m.attempts[id] = a
	return true, nil
}

func (r *mockAttemptRepo) Finalize(ctx context.Context, id uuid.UUID, final repositories.FinalizeAttempt) (bool, error) {
	a, ok := r.m.attempts[id]
	if !ok {
		return false, gorm.ErrRecordNotFound
	}
	if a.Status != models.AttemptInProgress {
		return false, nil
	}
	a.Status = final.Status
	submittedAt := final.SubmittedAt
	a.SubmittedAt = &submittedAt
	if final.Answers != nil {
		a.Answers = final.Answers
	}
	score, percentage, passed := final.Score, final.Percentage, final.Passed
	a.Score = &score
	a.Percentage = &percentage
	a.Passed = &passed
	r.m.attempts[id] = a
	return true, nil
}

func (r *mockAttemptRepo) ListOverdue(ctx context.Context, now time.Time, limit int) ([]*models.QuizAttempt, error) {
	var out []*models.QuizAttempt
	for _, a := range r.m.attempts {
		if a.Status != models.AttemptInProgress {
			continue
		}
		quiz, ok := r.m.quizzes[a.QuizID]
		if !ok {
			continue
		}
		if a.Deadline(quiz.TimeLimitMinutes).Before(now) {
			attempt := a
			out = append(out, &attempt)
		}
		if len(out) >= limit {
			break
		}
	}
	return out, nil
}

func (r *mockAttemptRepo) ListByQuizAndStudent(ctx context.Context, quizID, studentID uuid.UUID) ([]*models.QuizAttempt, error) {
	var out []*models.QuizAttempt
	for _, a := range r.m.attempts {
		if a.QuizID == quizID && a.StudentID == studentID {
			attempt := a
			out = append(out, &attempt)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].AttemptNumber < out[j].AttemptNumber })
	return out, nil
}

func (r *mockAttemptRepo) ListByStudent(ctx context.Context, studentID uuid.UUID, filters repositories.AttemptFilters) ([]*models.QuizAttempt, int64, error) {
	var out []*models.QuizAttempt
	for _, a := range r.m.attempts {
		if a.StudentID != studentID {
			continue
		}
		if filters.Status != nil && a.Status != *filters.Status {
			continue
		}
		if filters.QuizID != nil && a.QuizID != *filters.QuizID {
			continue
		}
		attempt := a
		out = append(out, &attempt)
	}
	return out, int64(len(out)), nil
}

func (r *mockAttemptRepo) Summary(ctx context.Context, quizID, studentID uuid.UUID) (*repositories.AttemptSummary, error) {
	attempts, err := r.ListByQuizAndStudent(ctx, quizID, studentID)
	if err != nil {
		return nil, err
	}

	summary := &repositories.AttemptSummary{
		QuizID:        quizID,
		StudentID:     studentID,
		TotalAttempts: len(attempts),
	}
	for _, a := range attempts {
		summary.Latest = a
		if a.Status.Terminal() && a.Score != nil {
			if summary.BestScore == nil || *a.Score > *summary.BestScore {
				summary.BestScore = a.Score
				summary.BestPassed = a.Passed
			}
		}
	}
	return summary, nil
}

// ===== NOTIFICATION =====

type mockNotificationRepo struct{ m *mockRepository }

func (r *mockNotificationRepo) Create(ctx context.Context, notification *models.Notification) error {
	notification.ID = ensureID(notification.ID)
	if notification.CreatedAt.IsZero() {
		notification.CreatedAt = time.Now()
	}
	r.m.notifications[notification.ID] = *notification
	return nil
}

func (r *mockNotificationRepo) ListByRecipient(ctx context.Context, recipientID uuid.UUID, limit int) ([]*models.Notification, error) {
	var out []*models.Notification
	for _, n := range r.m.notifications {
		if n.RecipientID != nil && *n.RecipientID == recipientID {
			notification := n
			out = append(out, &notification)
		}
		if len(out) >= limit {
			break
		}
	}
	return out, nil
}

func (r *mockNotificationRepo) MarkRead(ctx context.Context, id uuid.UUID, at time.Time) error {
	n, ok := r.m.notifications[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	n.ReadAt = &at
	r.m.notifications[id] = n
	return nil
}
