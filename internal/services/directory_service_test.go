package services

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/edupulse/assessment-engine/internal/auth"
	"github.com/edupulse/assessment-engine/internal/cache"
	"github.com/edupulse/assessment-engine/internal/events"
	"github.com/edupulse/assessment-engine/internal/models"
	"github.com/edupulse/assessment-engine/internal/utils"
)

func newTestDirectory(repo *mockRepository) (DirectoryService, *events.MockEventPublisher, *cache.MemoryCache) {
	publisher := events.NewMockEventPublisher(testLogger())
	memCache := cache.NewMemoryCache()
	tokens := auth.NewTokenIssuer("test-secret", time.Hour)
	svc := NewDirectoryService(repo, tokens, memCache, publisher, testLogger(), utils.NewValidator(), time.Minute)
	return svc, publisher, memCache
}

func validTenantSignup() *TenantSignupRequest {
	return &TenantSignupRequest{
		TenantName: "Springfield High",
		FirstName:  "Seymour",
		LastName:   "Skinner",
		Email:      "skinner@springfield.edu",
		Password:   "correct-horse",
	}
}

func TestSignupTenant(t *testing.T) {
	t.Run("bootstrap creates tenant, owner and grant atomically", func(t *testing.T) {
		repo := newMockRepository()
		svc, _, _ := newTestDirectory(repo)

		resp, err := svc.SignupTenant(testCtx(), validTenantSignup())
		require.NoError(t, err)

		require.NotNil(t, resp.Tenant.OwnerUserID)
		assert.Equal(t, resp.Owner.ID, *resp.Tenant.OwnerUserID)
		assert.Equal(t, models.RoleOwner, resp.Owner.Role)
		require.NotNil(t, resp.Owner.TenantID)
		assert.Equal(t, resp.Tenant.ID, *resp.Owner.TenantID)

		stored := repo.tenants[resp.Tenant.ID]
		require.NotNil(t, stored.OwnerUserID)
		assert.Equal(t, resp.Owner.ID, *stored.OwnerUserID)

		grants := repo.grants
		require.Len(t, grants, 1)
		assert.Equal(t, models.RoleOwner, grants[0].Role)
		assert.Equal(t, resp.Owner.ID, grants[0].UserID)
	})

	t.Run("duplicate tenant name leaves nothing behind", func(t *testing.T) {
		repo := newMockRepository()
		seedTenant(repo, "Springfield High")
		svc, _, _ := newTestDirectory(repo)

		_, err := svc.SignupTenant(testCtx(), validTenantSignup())
		assert.ErrorIs(t, err, ErrDuplicateTenantName)
		assert.Len(t, repo.users, 0)
		assert.Len(t, repo.tenants, 1)
	})

	t.Run("duplicate email rolls the tenant back", func(t *testing.T) {
		repo := newMockRepository()
		seedUser(repo, models.RoleTeacher, nil, "skinner@springfield.edu")
		svc, _, _ := newTestDirectory(repo)

		_, err := svc.SignupTenant(testCtx(), validTenantSignup())
		assert.ErrorIs(t, err, ErrDuplicateEmail)
		assert.Len(t, repo.tenants, 0)
		assert.Len(t, repo.grants, 0)
	})

	t.Run("invalid request is rejected before any writes", func(t *testing.T) {
		repo := newMockRepository()
		svc, _, _ := newTestDirectory(repo)

		req := validTenantSignup()
		req.Email = "not-an-email"
		_, err := svc.SignupTenant(testCtx(), req)
		assert.True(t, IsValidation(err))
		assert.Len(t, repo.tenants, 0)
	})
}

func TestSignupSoloTeacher(t *testing.T) {
	repo := newMockRepository()
	svc, _, _ := newTestDirectory(repo)

	teacher, err := svc.SignupSoloTeacher(testCtx(), &SoloTeacherSignupRequest{
		FirstName: "Edna",
		LastName:  "Krabappel",
		Email:     "edna@example.com",
		Password:  "chalkboard",
	})
	require.NoError(t, err)

	assert.Equal(t, models.RoleTeacher, teacher.Role)
	assert.Nil(t, teacher.TenantID)

	require.Len(t, repo.grants, 1)
	grant := repo.grants[0]
	require.NotNil(t, grant.SoloTeacherID)
	assert.Equal(t, teacher.ID, *grant.SoloTeacherID)
}

func TestSignupUser(t *testing.T) {
	t.Run("owner role only through bootstrap", func(t *testing.T) {
		repo := newMockRepository()
		tenant := seedTenant(repo, "School")
		svc, _, _ := newTestDirectory(repo)

		_, err := svc.SignupUser(testCtx(), &UserSignupRequest{
			TenantID:  tenant.ID,
			FirstName: "A",
			LastName:  "B",
			Email:     "a@example.com",
			Password:  "password1",
			Role:      models.RoleOwner,
		})
		assert.True(t, IsBusinessRule(err))
	})

	t.Run("inactive tenant refuses signups", func(t *testing.T) {
		repo := newMockRepository()
		tenant := seedTenant(repo, "School")
		stored := repo.tenants[tenant.ID]
		stored.IsActive = false
		repo.tenants[tenant.ID] = stored
		svc, _, _ := newTestDirectory(repo)

		_, err := svc.SignupUser(testCtx(), &UserSignupRequest{
			TenantID:  tenant.ID,
			FirstName: "A",
			LastName:  "B",
			Email:     "a@example.com",
			Password:  "password1",
			Role:      models.RoleStudent,
		})
		assert.ErrorIs(t, err, ErrTenantInactive)
	})

	t.Run("creates user with matching grant", func(t *testing.T) {
		repo := newMockRepository()
		tenant := seedTenant(repo, "School")
		svc, _, _ := newTestDirectory(repo)

		user, err := svc.SignupUser(testCtx(), &UserSignupRequest{
			TenantID:  tenant.ID,
			FirstName: "Lisa",
			LastName:  "Simpson",
			Email:     "lisa@example.com",
			Password:  "saxophone",
			Role:      models.RoleStudent,
		})
		require.NoError(t, err)
		assert.Equal(t, models.RoleStudent, user.Role)
		require.Len(t, repo.grants, 1)
		assert.Equal(t, models.RoleStudent, repo.grants[0].Role)
	})
}

func TestAuthenticate(t *testing.T) {
	repo := newMockRepository()
	tenant := seedTenant(repo, "School")
	hash, err := bcrypt.GenerateFromPassword([]byte("saxophone"), bcrypt.MinCost)
	require.NoError(t, err)
	user := seedUser(repo, models.RoleStudent, &tenant.ID, "lisa@example.com")
	stored := repo.users[user.ID]
	stored.PasswordHash = string(hash)
	repo.users[user.ID] = stored

	svc, _, _ := newTestDirectory(repo)

	t.Run("unknown email", func(t *testing.T) {
		_, err := svc.Authenticate(testCtx(), &LoginRequest{Email: "nobody@example.com", Password: "x"})
		assert.ErrorIs(t, err, ErrInvalidCredentials)
	})

	t.Run("wrong password", func(t *testing.T) {
		_, err := svc.Authenticate(testCtx(), &LoginRequest{Email: "lisa@example.com", Password: "trombone"})
		assert.ErrorIs(t, err, ErrInvalidCredentials)
	})

	t.Run("valid credentials issue a token", func(t *testing.T) {
		resp, err := svc.Authenticate(testCtx(), &LoginRequest{Email: "lisa@example.com", Password: "saxophone"})
		require.NoError(t, err)
		assert.NotEmpty(t, resp.Token)
		assert.True(t, resp.ExpiresAt.After(time.Now()))
		assert.Equal(t, user.ID, resp.User.ID)

		updated := repo.users[user.ID]
		assert.NotNil(t, updated.LastLoginAt)
	})

	t.Run("inactive account", func(t *testing.T) {
		stored := repo.users[user.ID]
		stored.IsActive = false
		repo.users[user.ID] = stored
		defer func() {
			stored.IsActive = true
			repo.users[user.ID] = stored
		}()

		_, err := svc.Authenticate(testCtx(), &LoginRequest{Email: "lisa@example.com", Password: "saxophone"})
		assert.ErrorIs(t, err, ErrUserInactive)
	})
}

func TestResolvePrincipal(t *testing.T) {
	repo := newMockRepository()
	tenant := seedTenant(repo, "School")
	user := seedUser(repo, models.RoleStudent, &tenant.ID, "lisa@example.com")
	repo.grants = append(repo.grants, models.RoleGrant{
		ID:       uuid.New(),
		UserID:   user.ID,
		Role:     models.RoleStudent,
		TenantID: &tenant.ID,
		IsActive: true,
	})

	claims := &auth.Claims{
		Role:     models.RoleStudent,
		TenantID: &tenant.ID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject: user.ID.String(),
		},
	}

	t.Run("active tenant", func(t *testing.T) {
		svc, _, _ := newTestDirectory(repo)
		principal, err := svc.ResolvePrincipal(testCtx(), claims)
		require.NoError(t, err)
		assert.Equal(t, user.ID, principal.UserID)
		assert.True(t, principal.TenantActive)
		assert.Len(t, principal.Grants, 1)
	})

	t.Run("tenant in grace window is inactive", func(t *testing.T) {
		svc, _, memCache := newTestDirectory(repo)
		now := time.Now()
		stored := repo.tenants[tenant.ID]
		stored.DeletionRequestedAt = &now
		stored.IsActive = false
		repo.tenants[tenant.ID] = stored
		defer func() {
			stored.DeletionRequestedAt = nil
			stored.IsActive = true
			repo.tenants[tenant.ID] = stored
		}()
		_ = memCache.Delete(testCtx(), "tenant:active:"+tenant.ID.String())

		principal, err := svc.ResolvePrincipal(testCtx(), claims)
		require.NoError(t, err)
		assert.False(t, principal.TenantActive)
	})

	t.Run("purged tenant drops the scope", func(t *testing.T) {
		svc, _, _ := newTestDirectory(repo)
		gone := uuid.New()
		purgedClaims := &auth.Claims{
			Role:     models.RoleStudent,
			TenantID: &gone,
			RegisteredClaims: jwt.RegisteredClaims{
				Subject: user.ID.String(),
			},
		}
		principal, err := svc.ResolvePrincipal(testCtx(), purgedClaims)
		require.NoError(t, err)
		assert.Nil(t, principal.TenantID)
	})

	t.Run("malformed subject", func(t *testing.T) {
		svc, _, _ := newTestDirectory(repo)
		bad := &auth.Claims{
			RegisteredClaims: jwt.RegisteredClaims{Subject: "not-a-uuid"},
		}
		_, err := svc.ResolvePrincipal(testCtx(), bad)
		assert.ErrorIs(t, err, auth.ErrInvalidToken)
	})
}

func TestCheckIntegrity(t *testing.T) {
	repo := newMockRepository()
	svc, publisher, _ := newTestDirectory(repo)

	// Ownerless past the grace window: a fault.
	stale := seedTenant(repo, "Stale")
	stored := repo.tenants[stale.ID]
	stored.OwnerUserID = nil
	stored.CreatedAt = time.Now().Add(-10 * time.Minute)
	repo.tenants[stale.ID] = stored

	// Ownerless but fresh: still inside the bootstrap window.
	fresh := seedTenant(repo, "Fresh")
	freshStored := repo.tenants[fresh.ID]
	freshStored.OwnerUserID = nil
	repo.tenants[fresh.ID] = freshStored

	// Owned: healthy.
	owned := seedTenant(repo, "Owned")
	owner := seedUser(repo, models.RoleOwner, &owned.ID, "owner@example.com")
	ownedStored := repo.tenants[owned.ID]
	ownedStored.OwnerUserID = &owner.ID
	repo.tenants[owned.ID] = ownedStored

	faults, err := svc.CheckIntegrity(testCtx())
	require.NoError(t, err)
	require.Len(t, faults, 1)
	assert.Equal(t, stale.ID, faults[0].TenantID)
	assert.Equal(t, "Stale", faults[0].TenantName)

	published := publisher.GetPublishedEvents()
	require.Len(t, published, 1)
	assert.Equal(t, events.EventTenantIntegrityFault, published[0].Type)
}
