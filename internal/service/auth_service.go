package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/spec-kit/storefront-live/internal/auth"
	"github.com/spec-kit/storefront-live/internal/domain"
	"github.com/spec-kit/storefront-live/internal/repository"
	"github.com/spec-kit/storefront-live/internal/session"
	apperrors "github.com/spec-kit/storefront-live/pkg/util"
)

// AuthService implements the login and logout flows that write the three
// credential artifacts the resolver reads.
type AuthService struct {
	principals repository.PrincipalRepository
	sessions   *session.Store
	tokens     *auth.TokenManager
	hasher     *auth.PasswordHasher
}

// AuthDependencies encapsulates collaborators for the auth service.
type AuthDependencies struct {
	Principals repository.PrincipalRepository
	Sessions   *session.Store
	Tokens     *auth.TokenManager
	Hasher     *auth.PasswordHasher
}

// NewAuthService builds the service.
func NewAuthService(deps AuthDependencies) *AuthService {
	return &AuthService{
		principals: deps.Principals,
		sessions:   deps.Sessions,
		tokens:     deps.Tokens,
		hasher:     deps.Hasher,
	}
}

// StaffLogin is the result of a successful staff login.
type StaffLogin struct {
	Principal *domain.Principal
	Token     string
	ExpiresAt time.Time
}

// RegisterCustomer creates a CUSTOMER account and signs it in.
func (s *AuthService) RegisterCustomer(ctx context.Context, displayName, email, password string) (*domain.Principal, *session.Data, error) {
	displayName = strings.TrimSpace(displayName)
	email = strings.TrimSpace(email)
	if displayName == "" || email == "" || len(password) < 8 {
		return nil, nil, apperrors.NewValidationError("display name, email and a password of at least 8 characters are required", nil)
	}

	if _, err := s.principals.GetByEmail(ctx, email); err == nil {
		return nil, nil, apperrors.NewConflict("email already registered", nil)
	} else if !errors.Is(err, apperrors.ErrNotFound) {
		return nil, nil, apperrors.NewInternalError(err)
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		return nil, nil, apperrors.NewInternalError(err)
	}
	principal := &domain.Principal{
		Email:        email,
		DisplayName:  displayName,
		Role:         domain.RoleCustomer,
		PasswordHash: hash,
	}
	if err := s.principals.Create(ctx, principal); err != nil {
		return nil, nil, apperrors.NewInternalError(err)
	}

	sess, err := s.openSession(ctx, principal)
	if err != nil {
		return nil, nil, err
	}
	return principal, sess, nil
}

// LoginCustomer verifies credentials and opens a native session.
func (s *AuthService) LoginCustomer(ctx context.Context, email, password string) (*domain.Principal, *session.Data, error) {
	principal, err := s.checkPassword(ctx, email, password)
	if err != nil {
		return nil, nil, err
	}
	sess, err := s.openSession(ctx, principal)
	if err != nil {
		return nil, nil, err
	}
	return principal, sess, nil
}

// LoginStaff verifies credentials of a STAFF or ADMIN principal and issues a staff token.
func (s *AuthService) LoginStaff(ctx context.Context, email, password string) (*StaffLogin, error) {
	principal, err := s.checkPassword(ctx, email, password)
	if err != nil {
		return nil, err
	}
	if !principal.Role.IsStaff() {
		return nil, apperrors.NewForbidden("staff role required")
	}
	token, exp, err := s.tokens.Issue(principal.ID)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	return &StaffLogin{Principal: principal, Token: token, ExpiresAt: exp}, nil
}

// LoginAdmin verifies credentials of an ADMIN principal. The caller stores
// the principal id in the admin cookie.
func (s *AuthService) LoginAdmin(ctx context.Context, email, password string) (*domain.Principal, error) {
	principal, err := s.checkPassword(ctx, email, password)
	if err != nil {
		return nil, err
	}
	if principal.Role != domain.RoleAdmin {
		return nil, apperrors.NewForbidden("admin role required")
	}
	return principal, nil
}

// Logout destroys the native session, if any. Cookie clearing is the caller's job.
func (s *AuthService) Logout(ctx context.Context, sessionID string) error {
	if sessionID == "" || s.sessions == nil {
		return nil
	}
	return s.sessions.Destroy(ctx, sessionID)
}

// EnsureAdmin creates an ADMIN principal for email when none exists.
func (s *AuthService) EnsureAdmin(ctx context.Context, email, password string) (*domain.Principal, bool, error) {
	existing, err := s.principals.GetByEmail(ctx, email)
	if err == nil {
		return existing, false, nil
	}
	if !errors.Is(err, apperrors.ErrNotFound) {
		return nil, false, err
	}
	hash, err := s.hasher.Hash(password)
	if err != nil {
		return nil, false, err
	}
	principal := &domain.Principal{
		Email:        email,
		DisplayName:  "Administrator",
		Role:         domain.RoleAdmin,
		PasswordHash: hash,
	}
	if err := s.principals.Create(ctx, principal); err != nil {
		return nil, false, err
	}
	return principal, true, nil
}

// checkPassword returns 401 for unknown accounts and wrong passwords alike,
// and 403 for a correct password on a banned account.
func (s *AuthService) checkPassword(ctx context.Context, email, password string) (*domain.Principal, error) {
	principal, err := s.principals.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, apperrors.NewUnauthenticated()
		}
		return nil, apperrors.NewInternalError(err)
	}
	if err := s.hasher.Verify(principal.PasswordHash, password); err != nil {
		return nil, apperrors.NewUnauthenticated()
	}
	if principal.Banned {
		return nil, apperrors.NewForbidden("account suspended")
	}
	return principal, nil
}

func (s *AuthService) openSession(ctx context.Context, principal *domain.Principal) (*session.Data, error) {
	sess, err := s.sessions.Create(ctx, session.Data{
		UserID:      principal.ID,
		Email:       principal.Email,
		DisplayName: principal.DisplayName,
	})
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	return sess, nil
}
