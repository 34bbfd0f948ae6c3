package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edupulse/assessment-engine/internal/models"
	"github.com/edupulse/assessment-engine/internal/utils"
)

func newTestEnrollmentService(repo *mockRepository) EnrollmentService {
	az := NewAuthorizer(repo, testLogger())
	return NewEnrollmentService(repo, az, testLogger(), utils.NewValidator())
}

func TestEnroll(t *testing.T) {
	setup := func(t *testing.T) (*mockRepository, *models.Tenant, *models.User, *models.User, *models.Course) {
		repo := newMockRepository()
		tenant := seedTenant(repo, "Hillside Academy")
		teacher := seedUser(repo, models.RoleTeacher, &tenant.ID, "teacher@example.com")
		student := seedUser(repo, models.RoleStudent, &tenant.ID, "student@example.com")
		course := seedCourse(repo, &tenant.ID, teacher.ID)
		return repo, tenant, teacher, student, course
	}

	t.Run("teacher enrolls a student and the course wakes up", func(t *testing.T) {
		repo, _, teacher, student, course := setup(t)
		svc := newTestEnrollmentService(repo)

		before := repo.courses[course.ID].LastActivityAt

		enrollment, err := svc.Enroll(testCtx(), principalFor(teacher), course.ID, student.ID)
		require.NoError(t, err)
		assert.Equal(t, models.EnrollmentActive, enrollment.Status)
		assert.False(t, enrollment.EnrolledAt.IsZero())

		after := repo.courses[course.ID].LastActivityAt
		assert.False(t, after.Before(before))
	})

	t.Run("only student accounts can be enrolled", func(t *testing.T) {
		repo, tenant, teacher, _, course := setup(t)
		svc := newTestEnrollmentService(repo)
		guardian := seedUser(repo, models.RoleGuardian, &tenant.ID, "parent@example.com")

		_, err := svc.Enroll(testCtx(), principalFor(teacher), course.ID, guardian.ID)
		assert.True(t, IsBusinessRule(err))
	})

	t.Run("enrolling twice is reported", func(t *testing.T) {
		repo, _, teacher, student, course := setup(t)
		svc := newTestEnrollmentService(repo)

		_, err := svc.Enroll(testCtx(), principalFor(teacher), course.ID, student.ID)
		require.NoError(t, err)
		_, err = svc.Enroll(testCtx(), principalFor(teacher), course.ID, student.ID)
		assert.ErrorIs(t, err, ErrAlreadyEnrolled)
	})

	t.Run("deleted courses take no students", func(t *testing.T) {
		repo, _, teacher, student, course := setup(t)
		svc := newTestEnrollmentService(repo)
		markCourseDeleted(repo, course.ID, time.Now())

		_, err := svc.Enroll(testCtx(), principalFor(teacher), course.ID, student.ID)
		assert.ErrorIs(t, err, ErrCourseDeleted)
	})

	t.Run("a teacher cannot fill someone else's course", func(t *testing.T) {
		repo, tenant, _, student, course := setup(t)
		svc := newTestEnrollmentService(repo)
		other := seedUser(repo, models.RoleTeacher, &tenant.ID, "other@example.com")

		_, err := svc.Enroll(testCtx(), principalFor(other), course.ID, student.ID)
		assert.True(t, IsUnauthorized(err))
	})
}

func TestUpdateEnrollmentStatus(t *testing.T) {
	repo := newMockRepository()
	tenant := seedTenant(repo, "Hillside Academy")
	teacher := seedUser(repo, models.RoleTeacher, &tenant.ID, "teacher@example.com")
	student := seedUser(repo, models.RoleStudent, &tenant.ID, "student@example.com")
	course := seedCourse(repo, &tenant.ID, teacher.ID)
	svc := newTestEnrollmentService(repo)

	t.Run("without an enrollment there is nothing to change", func(t *testing.T) {
		err := svc.UpdateStatus(testCtx(), principalFor(teacher), course.ID, student.ID, models.EnrollmentDropped)
		assert.ErrorIs(t, err, ErrEnrollmentNotFound)
	})

	t.Run("drops an active student", func(t *testing.T) {
		enrollment := seedEnrollment(repo, student.ID, course.ID, models.EnrollmentActive)

		err := svc.UpdateStatus(testCtx(), principalFor(teacher), course.ID, student.ID, models.EnrollmentDropped)
		require.NoError(t, err)
		assert.Equal(t, models.EnrollmentDropped, repo.enrollments[enrollment.ID].Status)
	})
}

func TestRequestGuardianLink(t *testing.T) {
	setup := func(t *testing.T) (*mockRepository, *models.User, *models.User) {
		repo := newMockRepository()
		tenant := seedTenant(repo, "Hillside Academy")
		guardian := seedUser(repo, models.RoleGuardian, &tenant.ID, "parent@example.com")
		student := seedUser(repo, models.RoleStudent, &tenant.ID, "student@example.com")
		return repo, guardian, student
	}

	t.Run("opens a pending link", func(t *testing.T) {
		repo, guardian, student := setup(t)
		svc := newTestEnrollmentService(repo)

		link, err := svc.RequestGuardianLink(testCtx(), principalFor(guardian), &GuardianLinkRequest{
			StudentID:    student.ID,
			Relationship: "parent",
		})
		require.NoError(t, err)
		assert.Equal(t, models.GuardianPending, link.Status)
		assert.Equal(t, guardian.ID, link.GuardianID)
	})

	t.Run("only guardians may request links", func(t *testing.T) {
		repo, _, student := setup(t)
		svc := newTestEnrollmentService(repo)
		teacher := seedUser(repo, models.RoleTeacher, student.TenantID, "teacher@example.com")

		_, err := svc.RequestGuardianLink(testCtx(), principalFor(teacher), &GuardianLinkRequest{
			StudentID:    student.ID,
			Relationship: "parent",
		})
		assert.True(t, IsUnauthorized(err))
	})

	t.Run("links target students only", func(t *testing.T) {
		repo, guardian, student := setup(t)
		svc := newTestEnrollmentService(repo)
		teacher := seedUser(repo, models.RoleTeacher, student.TenantID, "teacher@example.com")

		_, err := svc.RequestGuardianLink(testCtx(), principalFor(guardian), &GuardianLinkRequest{
			StudentID:    teacher.ID,
			Relationship: "parent",
		})
		assert.True(t, IsBusinessRule(err))
	})

	t.Run("one link per guardian and student", func(t *testing.T) {
		repo, guardian, student := setup(t)
		svc := newTestEnrollmentService(repo)
		seedGuardianLink(repo, guardian.ID, student.ID, models.GuardianPending)

		_, err := svc.RequestGuardianLink(testCtx(), principalFor(guardian), &GuardianLinkRequest{
			StudentID:    student.ID,
			Relationship: "parent",
		})
		assert.ErrorIs(t, err, ErrGuardianLinkExists)
	})

	t.Run("relationship is required", func(t *testing.T) {
		repo, guardian, student := setup(t)
		svc := newTestEnrollmentService(repo)

		_, err := svc.RequestGuardianLink(testCtx(), principalFor(guardian), &GuardianLinkRequest{
			StudentID: student.ID,
		})
		assert.True(t, IsValidation(err))
	})
}

func TestDecideGuardianLink(t *testing.T) {
	setup := func(t *testing.T) (*mockRepository, *models.User, *models.User, *models.GuardianLink) {
		repo := newMockRepository()
		tenant := seedTenant(repo, "Hillside Academy")
		guardian := seedUser(repo, models.RoleGuardian, &tenant.ID, "parent@example.com")
		student := seedUser(repo, models.RoleStudent, &tenant.ID, "student@example.com")
		link := seedGuardianLink(repo, guardian.ID, student.ID, models.GuardianPending)
		return repo, guardian, student, link
	}

	t.Run("the student accepts", func(t *testing.T) {
		repo, _, student, link := setup(t)
		svc := newTestEnrollmentService(repo)

		decided, err := svc.DecideGuardianLink(testCtx(), principalFor(student), link.ID, true)
		require.NoError(t, err)
		assert.Equal(t, models.GuardianAccepted, decided.Status)
		assert.Equal(t, models.GuardianAccepted, repo.guardianLinks[link.ID].Status)
	})

	t.Run("the student rejects", func(t *testing.T) {
		repo, _, student, link := setup(t)
		svc := newTestEnrollmentService(repo)

		decided, err := svc.DecideGuardianLink(testCtx(), principalFor(student), link.ID, false)
		require.NoError(t, err)
		assert.Equal(t, models.GuardianRejected, decided.Status)
	})

	t.Run("an admin may act for the student", func(t *testing.T) {
		repo, _, student, link := setup(t)
		svc := newTestEnrollmentService(repo)
		admin := seedUser(repo, models.RoleAdmin, student.TenantID, "admin@example.com")

		_, err := svc.DecideGuardianLink(testCtx(), principalFor(admin), link.ID, true)
		require.NoError(t, err)
	})

	t.Run("decisions are final", func(t *testing.T) {
		repo, _, student, link := setup(t)
		svc := newTestEnrollmentService(repo)

		_, err := svc.DecideGuardianLink(testCtx(), principalFor(student), link.ID, false)
		require.NoError(t, err)
		_, err = svc.DecideGuardianLink(testCtx(), principalFor(student), link.ID, true)
		assert.ErrorIs(t, err, ErrGuardianLinkDecided)
	})

	t.Run("strangers cannot decide", func(t *testing.T) {
		repo, _, student, link := setup(t)
		svc := newTestEnrollmentService(repo)
		other := seedUser(repo, models.RoleStudent, student.TenantID, "other@example.com")

		_, err := svc.DecideGuardianLink(testCtx(), principalFor(other), link.ID, true)
		assert.True(t, IsUnauthorized(err))
	})
}

func TestListGuardianLinks(t *testing.T) {
	repo := newMockRepository()
	tenant := seedTenant(repo, "Hillside Academy")
	guardian := seedUser(repo, models.RoleGuardian, &tenant.ID, "parent@example.com")
	other := seedUser(repo, models.RoleGuardian, &tenant.ID, "other-parent@example.com")
	student := seedUser(repo, models.RoleStudent, &tenant.ID, "student@example.com")
	second := seedUser(repo, models.RoleStudent, &tenant.ID, "second@example.com")
	seedGuardianLink(repo, guardian.ID, student.ID, models.GuardianAccepted)
	seedGuardianLink(repo, guardian.ID, second.ID, models.GuardianPending)
	seedGuardianLink(repo, other.ID, student.ID, models.GuardianPending)
	svc := newTestEnrollmentService(repo)

	t.Run("lists only the caller's links", func(t *testing.T) {
		links, err := svc.ListGuardianLinks(testCtx(), principalFor(guardian))
		require.NoError(t, err)
		assert.Len(t, links, 2)
	})

	t.Run("non-guardians are refused", func(t *testing.T) {
		_, err := svc.ListGuardianLinks(testCtx(), principalFor(student))
		assert.True(t, IsUnauthorized(err))
	})
}
