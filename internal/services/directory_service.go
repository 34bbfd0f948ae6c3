package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/edupulse/assessment-engine/internal/auth"
	"github.com/edupulse/assessment-engine/internal/cache"
	apperrors "github.com/edupulse/assessment-engine/internal/errors"
	"github.com/edupulse/assessment-engine/internal/events"
	"github.com/edupulse/assessment-engine/internal/models"
	"github.com/edupulse/assessment-engine/internal/repositories"
	"github.com/edupulse/assessment-engine/internal/utils"
)

// tenantActiveTTL bounds how stale the cached tenant-active flag may be. A
// deactivated tenant is locked out within this window at worst.
const tenantActiveTTL = 30 * time.Second

type directoryService struct {
	repo           repositories.Repository
	tokens         *auth.TokenIssuer
	cache          cache.CacheService
	publisher      events.EventPublisher
	logger         *slog.Logger
	validator      *utils.Validator
	bootstrapGrace time.Duration
}

func NewDirectoryService(
	repo repositories.Repository,
	tokens *auth.TokenIssuer,
	cacheService cache.CacheService,
	publisher events.EventPublisher,
	logger *slog.Logger,
	validator *utils.Validator,
	bootstrapGrace time.Duration,
) DirectoryService {
	return &directoryService{
		repo:           repo,
		tokens:         tokens,
		cache:          cacheService,
		publisher:      publisher,
		logger:         logger,
		validator:      validator,
		bootstrapGrace: bootstrapGrace,
	}
}

// SignupTenant runs the three bootstrap steps in one transaction: the tenant
// row is created without an owner, the owner user is created inside the
// tenant, then the owner reference is attached with a conditional update so a
// concurrent bootstrap of the same tenant cannot steal ownership.
func (s *directoryService) SignupTenant(ctx context.Context, req *TenantSignupRequest) (*TenantSignupResponse, error) {
	s.logger.Info("Tenant signup", "tenant_name", req.TenantName, "email", req.Email)

	if err := s.validator.Validate(req); err != nil {
		return nil, apperrors.ToValidationErrors(err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	var resp *TenantSignupResponse
	err = s.repo.WithTx(ctx, func(tx repositories.Repository) error {
		tenant := &models.Tenant{
			Name:           req.TenantName,
			IsOrganization: true,
			IsActive:       true,
		}
		if err := tx.Tenant().Create(ctx, tenant); err != nil {
			if repositories.IsDuplicateError(err) {
				return ErrDuplicateTenantName
			}
			return fmt.Errorf("failed to create tenant: %w", err)
		}

		owner := &models.User{
			FirstName:    req.FirstName,
			LastName:     req.LastName,
			Email:        req.Email,
			PasswordHash: string(hash),
			Role:         models.RoleOwner,
			TenantID:     &tenant.ID,
			IsActive:     true,
		}
		if err := tx.User().Create(ctx, owner); err != nil {
			if repositories.IsDuplicateError(err) {
				return ErrDuplicateEmail
			}
			return fmt.Errorf("failed to create owner: %w", err)
		}

		attached, err := tx.Tenant().AttachOwner(ctx, tenant.ID, owner.ID)
		if err != nil {
			return fmt.Errorf("failed to attach owner: %w", err)
		}
		if !attached {
			return ErrTenantAlreadyOwned
		}

		grant := &models.RoleGrant{
			UserID:   owner.ID,
			Role:     models.RoleOwner,
			TenantID: &tenant.ID,
			IsActive: true,
		}
		if err := tx.User().CreateGrant(ctx, grant); err != nil {
			return fmt.Errorf("failed to create owner grant: %w", err)
		}

		tenant.OwnerUserID = &owner.ID
		resp = &TenantSignupResponse{Tenant: tenant, Owner: owner}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Tenant bootstrap complete",
		"tenant_id", resp.Tenant.ID,
		"owner_id", resp.Owner.ID)
	return resp, nil
}

func (s *directoryService) SignupSoloTeacher(ctx context.Context, req *SoloTeacherSignupRequest) (*models.User, error) {
	s.logger.Info("Solo teacher signup", "email", req.Email)

	if err := s.validator.Validate(req); err != nil {
		return nil, apperrors.ToValidationErrors(err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	var teacher *models.User
	err = s.repo.WithTx(ctx, func(tx repositories.Repository) error {
		teacher = &models.User{
			FirstName:    req.FirstName,
			LastName:     req.LastName,
			Email:        req.Email,
			PasswordHash: string(hash),
			Role:         models.RoleTeacher,
			IsActive:     true,
		}
		if err := tx.User().Create(ctx, teacher); err != nil {
			if repositories.IsDuplicateError(err) {
				return ErrDuplicateEmail
			}
			return fmt.Errorf("failed to create teacher: %w", err)
		}

		grant := &models.RoleGrant{
			UserID:        teacher.ID,
			Role:          models.RoleTeacher,
			SoloTeacherID: &teacher.ID,
			IsActive:      true,
		}
		if err := tx.User().CreateGrant(ctx, grant); err != nil {
			return fmt.Errorf("failed to create teacher grant: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return teacher, nil
}

func (s *directoryService) SignupUser(ctx context.Context, req *UserSignupRequest) (*models.User, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, apperrors.ToValidationErrors(err)
	}
	if req.Role == models.RoleOwner {
		return nil, NewBusinessRuleError("owner_via_bootstrap",
			"owner accounts are created only through tenant signup", nil)
	}

	tenant, err := s.repo.Tenant().GetByID(ctx, req.TenantID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrTenantNotFound
		}
		return nil, fmt.Errorf("failed to get tenant: %w", err)
	}
	if !tenant.IsActive {
		return nil, ErrTenantInactive
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	var user *models.User
	err = s.repo.WithTx(ctx, func(tx repositories.Repository) error {
		user = &models.User{
			FirstName:    req.FirstName,
			LastName:     req.LastName,
			Email:        req.Email,
			PasswordHash: string(hash),
			Role:         req.Role,
			TenantID:     &tenant.ID,
			IsActive:     true,
		}
		if err := tx.User().Create(ctx, user); err != nil {
			if repositories.IsDuplicateError(err) {
				return ErrDuplicateEmail
			}
			return fmt.Errorf("failed to create user: %w", err)
		}

		grant := &models.RoleGrant{
			UserID:   user.ID,
			Role:     req.Role,
			TenantID: &tenant.ID,
			IsActive: true,
		}
		if err := tx.User().CreateGrant(ctx, grant); err != nil {
			return fmt.Errorf("failed to create grant: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return user, nil
}

func (s *directoryService) Authenticate(ctx context.Context, req *LoginRequest) (*LoginResponse, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, apperrors.ToValidationErrors(err)
	}

	user, err := s.repo.User().GetByEmail(ctx, req.Email)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("failed to look up user: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		return nil, ErrInvalidCredentials
	}
	if !user.IsActive {
		return nil, ErrUserInactive
	}

	token, err := s.tokens.Issue(user)
	if err != nil {
		return nil, fmt.Errorf("failed to issue token: %w", err)
	}

	now := time.Now()
	if err := s.repo.User().UpdateLastLogin(ctx, user.ID, now); err != nil {
		s.logger.Warn("Failed to record last login", "user_id", user.ID, "error", err)
	}

	claims, err := s.tokens.Parse(token)
	if err != nil {
		return nil, fmt.Errorf("failed to parse issued token: %w", err)
	}

	return &LoginResponse{
		Token:     token,
		ExpiresAt: claims.ExpiresAt.Time,
		User:      user,
	}, nil
}

func (s *directoryService) ResolvePrincipal(ctx context.Context, claims *auth.Claims) (*auth.Principal, error) {
	userID, err := parseSubject(claims)
	if err != nil {
		return nil, err
	}

	principal := &auth.Principal{
		UserID:   userID,
		Role:     claims.Role,
		TenantID: claims.TenantID,
	}

	grants, err := s.repo.User().GetGrants(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load grants: %w", err)
	}
	principal.Grants = grants

	if claims.TenantID != nil {
		active, err := s.tenantActive(ctx, *claims.TenantID)
		if err != nil {
			if repositories.IsNotFoundError(err) {
				// Tenant purged since the token was issued.
				principal.TenantID = nil
				return principal, nil
			}
			return nil, fmt.Errorf("failed to check tenant: %w", err)
		}
		principal.TenantActive = active
	}

	return principal, nil
}

// tenantActive returns the tenant's active flag, served from cache under a
// short TTL so the per-request check stays off the database hot path.
func (s *directoryService) tenantActive(ctx context.Context, tenantID uuid.UUID) (bool, error) {
	key := "tenant:active:" + tenantID.String()

	var active bool
	if err := s.cache.Get(ctx, key, &active); err == nil {
		return active, nil
	}

	tenant, err := s.repo.Tenant().GetByID(ctx, tenantID)
	if err != nil {
		return false, err
	}
	active = tenant.IsActive && tenant.DeletionRequestedAt == nil

	if err := s.cache.Set(ctx, key, active, tenantActiveTTL); err != nil {
		s.logger.Warn("Failed to cache tenant status", "tenant_id", tenantID, "error", err)
	}
	return active, nil
}

// CheckIntegrity looks for tenants whose bootstrap transaction committed
// without an owner attached. That state cannot arise from SignupTenant, so
// every hit is reported as a fault for operators rather than repaired.
func (s *directoryService) CheckIntegrity(ctx context.Context) ([]IntegrityFault, error) {
	cutoff := time.Now().Add(-s.bootstrapGrace)
	tenants, err := s.repo.Tenant().ListOwnerless(ctx, cutoff)
	if err != nil {
		return nil, fmt.Errorf("failed to list ownerless tenants: %w", err)
	}

	now := time.Now()
	faults := make([]IntegrityFault, 0, len(tenants))
	for _, tenant := range tenants {
		fault := IntegrityFault{
			TenantID:   tenant.ID,
			TenantName: tenant.Name,
			CreatedAt:  tenant.CreatedAt,
			DetectedAt: now,
		}
		faults = append(faults, fault)

		s.logger.Error("Ownerless tenant detected",
			"tenant_id", tenant.ID,
			"tenant_name", tenant.Name,
			"created_at", tenant.CreatedAt)

		event := events.NewNotificationEvent(events.EventTenantIntegrityFault, events.TenantIntegrityFaultEvent{
			TenantID:   tenant.ID,
			TenantName: tenant.Name,
			CreatedAt:  tenant.CreatedAt,
			DetectedAt: now,
		})
		if err := s.publisher.PublishNotificationEvent(ctx, event); err != nil {
			s.logger.Error("Failed to publish integrity fault event", "tenant_id", tenant.ID, "error", err)
		}
	}

	return faults, nil
}

func parseSubject(claims *auth.Claims) (uuid.UUID, error) {
	userID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return uuid.Nil, auth.ErrInvalidToken
	}
	return userID, nil
}
