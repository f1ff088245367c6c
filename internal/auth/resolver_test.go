package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/storefront-live/internal/domain"
	"github.com/spec-kit/storefront-live/internal/repository"
	"github.com/spec-kit/storefront-live/internal/session"
)

type stubSessions struct {
	data map[string]session.Data
	err  error
}

func (s *stubSessions) Get(_ context.Context, id string) (*session.Data, error) {
	if s.err != nil {
		return nil, s.err
	}
	d, ok := s.data[id]
	if !ok {
		return nil, session.ErrNotFound
	}
	d.ID = id
	return &d, nil
}

type resolverFixture struct {
	principals *repository.MemoryPrincipalRepository
	sessions   *stubSessions
	tokens     *TokenManager
	resolver   *Resolver

	customer domain.Principal
	staff    domain.Principal
	admin    domain.Principal
}

func newResolverFixture(t *testing.T) *resolverFixture {
	t.Helper()
	f := &resolverFixture{
		principals: repository.NewMemoryPrincipalRepository(),
		sessions:   &stubSessions{data: map[string]session.Data{}},
		tokens:     NewTokenManager("secret", 24*time.Hour),
		customer:   domain.Principal{ID: "cust-1", Email: "c@example.com", DisplayName: "Cora", Role: domain.RoleCustomer},
		staff:      domain.Principal{ID: "staff-1", Email: "s@example.com", DisplayName: "Sam", Role: domain.RoleStaff},
		admin:      domain.Principal{ID: "admin-1", Email: "a@example.com", DisplayName: "Ada", Role: domain.RoleAdmin},
	}
	f.principals.Put(f.customer)
	f.principals.Put(f.staff)
	f.principals.Put(f.admin)
	f.sessions.data["sess-1"] = session.Data{UserID: f.customer.ID, Email: f.customer.Email, DisplayName: f.customer.DisplayName}
	f.resolver = NewResolver(ResolverDependencies{
		Principals: f.principals,
		Tokens:     f.tokens,
		Sessions:   f.sessions,
	})
	return f
}

func (f *resolverFixture) staffToken(t *testing.T, principalID string) string {
	t.Helper()
	token, _, err := f.tokens.Issue(principalID)
	require.NoError(t, err)
	return token
}

func TestResolveNoCredentials(t *testing.T) {
	f := newResolverFixture(t)
	result := f.resolver.Resolve(context.Background(), Credentials{})
	assert.False(t, result.Authenticated())
	assert.Equal(t, domain.SourceNone, result.Source)
	assert.Nil(t, result.Principal)
}

func TestResolveEachSourceAlone(t *testing.T) {
	f := newResolverFixture(t)
	ctx := context.Background()

	result := f.resolver.Resolve(ctx, Credentials{AdminCookie: f.admin.ID})
	require.True(t, result.Authenticated())
	assert.Equal(t, domain.SourceAdminCookie, result.Source)
	assert.Equal(t, f.admin.ID, result.Principal.ID)

	result = f.resolver.Resolve(ctx, Credentials{StaffToken: f.staffToken(t, f.staff.ID)})
	require.True(t, result.Authenticated())
	assert.Equal(t, domain.SourceStaffToken, result.Source)
	assert.Equal(t, f.staff.ID, result.Principal.ID)

	result = f.resolver.Resolve(ctx, Credentials{SessionID: "sess-1"})
	require.True(t, result.Authenticated())
	assert.Equal(t, domain.SourceNativeSession, result.Source)
	assert.Equal(t, f.customer.ID, result.Principal.ID)
}

func TestResolvePrecedence(t *testing.T) {
	f := newResolverFixture(t)
	all := Credentials{
		AdminCookie: f.admin.ID,
		StaffToken:  f.staffToken(t, f.staff.ID),
		SessionID:   "sess-1",
	}

	result := f.resolver.Resolve(context.Background(), all)
	assert.Equal(t, domain.SourceAdminCookie, result.Source)
	assert.Equal(t, f.admin.ID, result.Principal.ID)

	all.AdminCookie = ""
	result = f.resolver.Resolve(context.Background(), all)
	assert.Equal(t, domain.SourceStaffToken, result.Source)
	assert.Equal(t, f.staff.ID, result.Principal.ID)
}

func TestResolveInvalidHigherCredentialFallsThrough(t *testing.T) {
	f := newResolverFixture(t)
	result := f.resolver.Resolve(context.Background(), Credentials{
		AdminCookie: "no-such-principal",
		StaffToken:  "garbage",
		SessionID:   "sess-1",
	})
	require.True(t, result.Authenticated())
	assert.Equal(t, domain.SourceNativeSession, result.Source)
}

func TestResolveAdminCookieAcceptsAnyRole(t *testing.T) {
	f := newResolverFixture(t)
	result := f.resolver.Resolve(context.Background(), Credentials{AdminCookie: f.customer.ID})
	require.True(t, result.Authenticated())
	assert.Equal(t, domain.SourceAdminCookie, result.Source)
	assert.Equal(t, domain.RoleCustomer, result.Principal.Role)
}

func TestResolveStaffTokenRequiresStaffRole(t *testing.T) {
	f := newResolverFixture(t)

	result := f.resolver.Resolve(context.Background(), Credentials{StaffToken: f.staffToken(t, f.customer.ID)})
	assert.False(t, result.Authenticated())

	result = f.resolver.Resolve(context.Background(), Credentials{StaffToken: f.staffToken(t, f.admin.ID)})
	require.True(t, result.Authenticated())
	assert.Equal(t, domain.SourceStaffToken, result.Source)
}

func TestResolveStaffTokenExpiryBoundary(t *testing.T) {
	f := newResolverFixture(t)
	clock := &fakeClock{now: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)}
	f.tokens = NewTokenManager("secret", 24*time.Hour, WithClock(clock.Now))
	f.resolver = NewResolver(ResolverDependencies{Principals: f.principals, Tokens: f.tokens, Sessions: f.sessions})
	token := f.staffToken(t, f.staff.ID)

	clock.Advance(24*time.Hour - time.Second)
	result := f.resolver.Resolve(context.Background(), Credentials{StaffToken: token})
	require.True(t, result.Authenticated(), "one second before expiry")
	assert.Equal(t, domain.SourceStaffToken, result.Source)
	assert.Equal(t, f.staff.ID, result.Principal.ID)
	assert.Equal(t, domain.RoleStaff, result.Principal.Role)

	clock.Advance(2 * time.Second)
	result = f.resolver.Resolve(context.Background(), Credentials{StaffToken: token})
	assert.False(t, result.Authenticated(), "one second after expiry")
	assert.Equal(t, domain.SourceNone, result.Source)
	assert.Nil(t, result.Principal)
}

func TestResolveBannedPrincipalIsRejectedEverywhere(t *testing.T) {
	f := newResolverFixture(t)
	token := f.staffToken(t, f.staff.ID)

	banned := f.staff
	banned.Banned = true
	f.principals.Put(banned)
	bannedCustomer := f.customer
	bannedCustomer.Banned = true
	f.principals.Put(bannedCustomer)

	for _, creds := range []Credentials{
		{AdminCookie: f.staff.ID},
		{StaffToken: token},
		{SessionID: "sess-1"},
	} {
		result := f.resolver.Resolve(context.Background(), creds)
		assert.False(t, result.Authenticated(), "%+v", creds)
		assert.Equal(t, domain.SourceNone, result.Source)
	}
}

func TestResolveDeletedPrincipal(t *testing.T) {
	f := newResolverFixture(t)
	f.principals.Delete(f.customer.ID)

	result := f.resolver.Resolve(context.Background(), Credentials{SessionID: "sess-1"})
	assert.False(t, result.Authenticated())
}

func TestResolveSessionMissingIdentityFields(t *testing.T) {
	f := newResolverFixture(t)
	f.sessions.data["no-email"] = session.Data{UserID: f.customer.ID, DisplayName: "Cora"}
	f.sessions.data["no-name"] = session.Data{UserID: f.customer.ID, Email: f.customer.Email}
	f.sessions.data["no-user"] = session.Data{Email: f.customer.Email, DisplayName: "Cora"}

	for _, id := range []string{"no-email", "no-name", "no-user", "unknown"} {
		result := f.resolver.Resolve(context.Background(), Credentials{SessionID: id})
		assert.False(t, result.Authenticated(), id)
	}
}

func TestResolveStoreErrorDegradesToNone(t *testing.T) {
	f := newResolverFixture(t)
	f.principals.Err = errors.New("connection refused")

	result := f.resolver.Resolve(context.Background(), Credentials{
		AdminCookie: f.admin.ID,
		SessionID:   "sess-1",
	})
	assert.False(t, result.Authenticated())
	assert.Equal(t, domain.SourceNone, result.Source)
}

func TestResolveSessionStoreErrorDegradesToNone(t *testing.T) {
	f := newResolverFixture(t)
	f.sessions.err = errors.New("redis down")

	result := f.resolver.Resolve(context.Background(), Credentials{SessionID: "sess-1"})
	assert.False(t, result.Authenticated())
}

func TestResolveStoreErrorDoesNotFallThrough(t *testing.T) {
	failing := &stubStrategy{source: domain.SourceAdminCookie, err: errors.New("boom")}
	fallback := &stubStrategy{source: domain.SourceNativeSession, principal: &domain.Principal{ID: "p"}}
	r := NewResolverWithStrategies(nil, failing, fallback)

	result := r.Resolve(context.Background(), Credentials{})
	assert.False(t, result.Authenticated())
	assert.Equal(t, 0, fallback.calls)
}

type stubStrategy struct {
	source    domain.CredentialSource
	principal *domain.Principal
	err       error
	calls     int
}

func (s *stubStrategy) Source() domain.CredentialSource { return s.source }

func (s *stubStrategy) TryResolve(context.Context, Credentials) (*domain.Principal, error) {
	s.calls++
	return s.principal, s.err
}
