package service

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/agencyiq/agency-service/internal/auth"
	"github.com/agencyiq/agency-service/internal/config"
	"github.com/agencyiq/agency-service/internal/domain"
	"github.com/agencyiq/agency-service/internal/repository"
	apperrors "github.com/agencyiq/agency-service/pkg/util"
)

type memSessionRepo struct {
	mu       sync.Mutex
	sessions map[string]*domain.StaffSession
	seq      int
}

func newMemSessionRepo() *memSessionRepo {
	return &memSessionRepo{sessions: make(map[string]*domain.StaffSession)}
}

func (r *memSessionRepo) Create(_ context.Context, session *domain.StaffSession) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seq++
	session.ID = fmt.Sprintf("session-%d", r.seq)
	clone := *session
	r.sessions[session.ID] = &clone
	return nil
}

func (r *memSessionRepo) GetByTokenHash(_ context.Context, tokenHash string) (*domain.StaffSession, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, session := range r.sessions {
		if session.TokenHash == tokenHash {
			clone := *session
			return &clone, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (r *memSessionRepo) Revoke(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	session, ok := r.sessions[id]
	if !ok {
		return pgx.ErrNoRows
	}
	now := time.Now()
	session.RevokedAt = &now
	return nil
}

func (r *memSessionRepo) RevokeAllForStaff(_ context.Context, staffID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := time.Now()
	for _, session := range r.sessions {
		if session.StaffID == staffID && session.RevokedAt == nil {
			session.RevokedAt = &now
		}
	}
	return nil
}

type memResetRepo struct {
	mu     sync.Mutex
	tokens map[string]*repository.PasswordResetToken
	seq    int
}

func newMemResetRepo() *memResetRepo {
	return &memResetRepo{tokens: make(map[string]*repository.PasswordResetToken)}
}

func (r *memResetRepo) Create(_ context.Context, token *repository.PasswordResetToken) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seq++
	token.ID = fmt.Sprintf("reset-%d", r.seq)
	clone := *token
	r.tokens[token.Token] = &clone
	return nil
}

func (r *memResetRepo) GetByToken(_ context.Context, token string) (*repository.PasswordResetToken, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.tokens[token]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	clone := *stored
	return &clone, nil
}

func (r *memResetRepo) MarkUsed(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := time.Now()
	for _, token := range r.tokens {
		if token.ID == id {
			token.UsedAt = &now
			return nil
		}
	}
	return pgx.ErrNoRows
}

type fakeMailer struct {
	mu   sync.Mutex
	sent []string
}

func (f *fakeMailer) Send(_ context.Context, to, _, _ string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, to)
	return nil
}

type authFixture struct {
	svc      *AuthService
	agencies *memAgencyRepo
	staff    *memStaffRepo
	resets   *memResetRepo
	sessions *auth.SessionManager
	mailer   *fakeMailer
}

func newAuthFixture() *authFixture {
	f := &authFixture{
		agencies: newMemAgencyRepo(),
		staff:    newMemStaffRepo(),
		resets:   newMemResetRepo(),
		mailer:   &fakeMailer{},
	}
	f.sessions = auth.NewSessionManager(newMemSessionRepo(), nil, 1)
	cfg := config.Config{}
	cfg.Auth.JWTSecret = "test-secret"
	cfg.Auth.BcryptCost = bcrypt.MinCost
	cfg.Auth.PasswordResetTTLMinutes = 30
	f.svc = NewAuthService(cfg, AuthDependencies{
		AgencyRepo:        f.agencies,
		StaffRepo:         f.staff,
		PasswordResetRepo: f.resets,
		TokenManager:      auth.NewTokenManager("test-secret", 60),
		SessionManager:    f.sessions,
		Mailer:            f.mailer,
	})
	return f
}

func (f *authFixture) seedStaff(t *testing.T, email, password string) *domain.StaffUser {
	t.Helper()
	hash, err := auth.HashPassword(password, bcrypt.MinCost)
	require.NoError(t, err)
	return f.staff.add(domain.StaffUser{
		AgencyID:     "agency-1",
		Name:         "Jamie Rivera",
		Email:        email,
		PasswordHash: hash,
		Role:         domain.StaffRoleProducer,
		Active:       true,
	})
}

func TestRegisterAgencyIssuesOwnerToken(t *testing.T) {
	f := newAuthFixture()

	agency, token, exp, err := f.svc.RegisterAgency(context.Background(), "Summit Insurance", "owner@summit.test", "s3cret-pass")
	require.NoError(t, err)
	assert.Equal(t, domain.PlanTrial, agency.Plan)
	assert.Equal(t, trialSeatLimit, agency.SeatLimit)
	assert.NotEmpty(t, token)
	assert.True(t, exp.After(time.Now()))

	_, _, _, err = f.svc.RegisterAgency(context.Background(), "Other", "owner@summit.test", "whatever")
	var domainErr *apperrors.DomainError
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, "CONFLICT", domainErr.Code)
}

func TestLoginOwner(t *testing.T) {
	f := newAuthFixture()
	_, _, _, err := f.svc.RegisterAgency(context.Background(), "Summit Insurance", "owner@summit.test", "s3cret-pass")
	require.NoError(t, err)

	agency, token, _, err := f.svc.LoginOwner(context.Background(), "owner@summit.test", "s3cret-pass")
	require.NoError(t, err)
	assert.Equal(t, "owner@summit.test", agency.OwnerEmail)
	assert.NotEmpty(t, token)

	_, _, _, err = f.svc.LoginOwner(context.Background(), "owner@summit.test", "wrong")
	var domainErr *apperrors.DomainError
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, "UNAUTHORIZED", domainErr.Code)

	_, _, _, err = f.svc.LoginOwner(context.Background(), "nobody@summit.test", "s3cret-pass")
	require.ErrorAs(t, err, &domainErr)
}

func TestLoginStaffIssuesSession(t *testing.T) {
	f := newAuthFixture()
	staff := f.seedStaff(t, "jamie@summit.test", "s3cret-pass")

	logged, token, exp, err := f.svc.LoginStaff(context.Background(), "jamie@summit.test", "s3cret-pass")
	require.NoError(t, err)
	assert.Equal(t, staff.ID, logged.ID)
	assert.True(t, exp.After(time.Now()))

	session, err := f.sessions.Resolve(context.Background(), token)
	require.NoError(t, err)
	assert.Equal(t, staff.ID, session.StaffID)

	require.NoError(t, f.svc.LogoutStaff(context.Background(), token))
	_, err = f.sessions.Resolve(context.Background(), token)
	assert.ErrorIs(t, err, auth.ErrSessionInvalid)
}

func TestLoginStaffInactive(t *testing.T) {
	f := newAuthFixture()
	staff := f.seedStaff(t, "jamie@summit.test", "s3cret-pass")
	staff.Active = false
	require.NoError(t, f.staff.Update(context.Background(), nil, staff))

	_, _, _, err := f.svc.LoginStaff(context.Background(), "jamie@summit.test", "s3cret-pass")
	var domainErr *apperrors.DomainError
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, "UNAUTHORIZED", domainErr.Code)
}

func TestPasswordResetFlowForStaff(t *testing.T) {
	f := newAuthFixture()
	f.seedStaff(t, "jamie@summit.test", "old-pass")
	_, token, _, err := f.svc.LoginStaff(context.Background(), "jamie@summit.test", "old-pass")
	require.NoError(t, err)

	require.NoError(t, f.svc.RequestPasswordReset(context.Background(), "jamie@summit.test"))
	assert.Equal(t, []string{"jamie@summit.test"}, f.mailer.sent)

	var resetToken string
	for stored := range f.resets.tokens {
		resetToken = stored
	}
	require.NotEmpty(t, resetToken)

	require.NoError(t, f.svc.ResetPassword(context.Background(), resetToken, "new-pass"))

	// Old sessions are revoked and the old password no longer works.
	_, err = f.sessions.Resolve(context.Background(), token)
	assert.ErrorIs(t, err, auth.ErrSessionInvalid)
	_, _, _, err = f.svc.LoginStaff(context.Background(), "jamie@summit.test", "old-pass")
	require.Error(t, err)
	_, _, _, err = f.svc.LoginStaff(context.Background(), "jamie@summit.test", "new-pass")
	require.NoError(t, err)

	// A consumed token cannot be replayed.
	err = f.svc.ResetPassword(context.Background(), resetToken, "another-pass")
	var domainErr *apperrors.DomainError
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, "VALIDATION_FAILED", domainErr.Code)
	assert.Equal(t, 400, domainErr.HTTPStatus)
}

func TestResetPasswordExpiredTokenRejectedAsBadRequest(t *testing.T) {
	f := newAuthFixture()
	f.seedStaff(t, "jamie@summit.test", "old-pass")
	require.NoError(t, f.svc.RequestPasswordReset(context.Background(), "jamie@summit.test"))

	var resetToken string
	for stored, row := range f.resets.tokens {
		resetToken = stored
		row.ExpiresAt = time.Now().Add(-time.Minute)
	}
	require.NotEmpty(t, resetToken)

	err := f.svc.ResetPassword(context.Background(), resetToken, "new-pass")
	var domainErr *apperrors.DomainError
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, "VALIDATION_FAILED", domainErr.Code)
	assert.Equal(t, 400, domainErr.HTTPStatus)

	// The old password still works.
	_, _, _, err = f.svc.LoginStaff(context.Background(), "jamie@summit.test", "old-pass")
	require.NoError(t, err)
}

func TestPasswordResetUnknownEmailSilent(t *testing.T) {
	f := newAuthFixture()

	require.NoError(t, f.svc.RequestPasswordReset(context.Background(), "nobody@summit.test"))
	assert.Empty(t, f.mailer.sent)
	assert.Empty(t, f.resets.tokens)
}

func TestChangePasswordOwner(t *testing.T) {
	f := newAuthFixture()
	agency, _, _, err := f.svc.RegisterAgency(context.Background(), "Summit Insurance", "owner@summit.test", "old-pass")
	require.NoError(t, err)

	principal := ownerPrincipal(agency.ID)
	err = f.svc.ChangePassword(context.Background(), principal, "wrong", "new-pass")
	var domainErr *apperrors.DomainError
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, "UNAUTHORIZED", domainErr.Code)

	require.NoError(t, f.svc.ChangePassword(context.Background(), principal, "old-pass", "new-pass"))
	_, _, _, err = f.svc.LoginOwner(context.Background(), "owner@summit.test", "new-pass")
	require.NoError(t, err)
}

func TestChangePasswordStaffRevokesSessions(t *testing.T) {
	f := newAuthFixture()
	staff := f.seedStaff(t, "jamie@summit.test", "old-pass")
	_, token, _, err := f.svc.LoginStaff(context.Background(), "jamie@summit.test", "old-pass")
	require.NoError(t, err)

	require.NoError(t, f.svc.ChangePassword(context.Background(), staffPrincipal(staff), "old-pass", "new-pass"))

	_, err = f.sessions.Resolve(context.Background(), token)
	assert.ErrorIs(t, err, auth.ErrSessionInvalid)
}
