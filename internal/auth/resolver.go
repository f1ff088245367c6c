package auth

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/spec-kit/storefront-live/internal/domain"
	"github.com/spec-kit/storefront-live/internal/session"
	apperrors "github.com/spec-kit/storefront-live/pkg/util"
)

// Credentials are the raw credential artifacts a request may carry.
type Credentials struct {
	AdminCookie string
	StaffToken  string
	SessionID   string
}

// PrincipalLookup is the credential store capability the resolver needs.
// Implementations return util.ErrNotFound when no principal matches.
type PrincipalLookup interface {
	GetByID(ctx context.Context, id string) (*domain.Principal, error)
}

// SessionLookup loads native customer sessions.
// Implementations return session.ErrNotFound for unknown ids.
type SessionLookup interface {
	Get(ctx context.Context, id string) (*session.Data, error)
}

// Strategy resolves one credential scheme.
//
// TryResolve returns (nil, nil) when its credential is absent or invalid so the
// next strategy may run. A non-nil error means the backing store failed.
type Strategy interface {
	Source() domain.CredentialSource
	TryResolve(ctx context.Context, creds Credentials) (*domain.Principal, error)
}

// Resolver runs strategies in a fixed precedence order.
type Resolver struct {
	strategies []Strategy
	logger     *zap.Logger
}

// ResolverDependencies bundles the collaborators of the default strategy chain.
type ResolverDependencies struct {
	Principals PrincipalLookup
	Tokens     *TokenManager
	Sessions   SessionLookup
	Logger     *zap.Logger
}

// NewResolver builds the default chain: admin cookie, staff token, native session.
func NewResolver(deps ResolverDependencies) *Resolver {
	return NewResolverWithStrategies(deps.Logger,
		&AdminCookieStrategy{Principals: deps.Principals},
		&StaffTokenStrategy{Tokens: deps.Tokens, Principals: deps.Principals},
		&NativeSessionStrategy{Sessions: deps.Sessions, Principals: deps.Principals},
	)
}

// NewResolverWithStrategies builds a resolver from an explicit ordered list.
func NewResolverWithStrategies(logger *zap.Logger, strategies ...Strategy) *Resolver {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Resolver{strategies: strategies, logger: logger}
}

// Resolve authenticates creds. It never fails: lookup errors degrade to SourceNone.
func (r *Resolver) Resolve(ctx context.Context, creds Credentials) domain.AuthResult {
	for _, strategy := range r.strategies {
		principal, err := strategy.TryResolve(ctx, creds)
		if err != nil {
			// A higher-precedence credential we could not check must not fall
			// through to a weaker identity.
			r.logger.Warn("credential lookup failed",
				zap.String("source", string(strategy.Source())),
				zap.Error(err))
			return none()
		}
		if principal != nil {
			return domain.AuthResult{Principal: principal, Source: strategy.Source()}
		}
	}
	return none()
}

func none() domain.AuthResult {
	return domain.AuthResult{Source: domain.SourceNone}
}

// AdminCookieStrategy trusts a plain principal id cookie. It enforces neither
// expiry nor role; admin-only routes gate on role themselves.
type AdminCookieStrategy struct {
	Principals PrincipalLookup
}

func (s *AdminCookieStrategy) Source() domain.CredentialSource { return domain.SourceAdminCookie }

func (s *AdminCookieStrategy) TryResolve(ctx context.Context, creds Credentials) (*domain.Principal, error) {
	if creds.AdminCookie == "" {
		return nil, nil
	}
	principal, err := lookupActive(ctx, s.Principals, creds.AdminCookie)
	if err != nil || principal == nil {
		return nil, err
	}
	return principal, nil
}

// StaffTokenStrategy verifies a signed staff token and re-reads the principal.
type StaffTokenStrategy struct {
	Tokens     *TokenManager
	Principals PrincipalLookup
}

func (s *StaffTokenStrategy) Source() domain.CredentialSource { return domain.SourceStaffToken }

func (s *StaffTokenStrategy) TryResolve(ctx context.Context, creds Credentials) (*domain.Principal, error) {
	if creds.StaffToken == "" || s.Tokens == nil {
		return nil, nil
	}
	claims, err := s.Tokens.Verify(creds.StaffToken)
	if err != nil {
		return nil, nil
	}
	principal, err := lookupActive(ctx, s.Principals, claims.PrincipalID)
	if err != nil || principal == nil {
		return nil, err
	}
	if !principal.Role.IsStaff() {
		return nil, nil
	}
	return principal, nil
}

// NativeSessionStrategy resolves the customer session cookie.
type NativeSessionStrategy struct {
	Sessions   SessionLookup
	Principals PrincipalLookup
}

func (s *NativeSessionStrategy) Source() domain.CredentialSource { return domain.SourceNativeSession }

func (s *NativeSessionStrategy) TryResolve(ctx context.Context, creds Credentials) (*domain.Principal, error) {
	if creds.SessionID == "" || s.Sessions == nil {
		return nil, nil
	}
	data, err := s.Sessions.Get(ctx, creds.SessionID)
	if err != nil {
		if errors.Is(err, session.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	if data.UserID == "" || data.Email == "" || data.DisplayName == "" {
		return nil, nil
	}
	return lookupActive(ctx, s.Principals, data.UserID)
}

// lookupActive returns the principal if it exists and is not banned.
func lookupActive(ctx context.Context, principals PrincipalLookup, id string) (*domain.Principal, error) {
	principal, err := principals.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	if principal == nil || principal.Banned {
		return nil, nil
	}
	return principal, nil
}
