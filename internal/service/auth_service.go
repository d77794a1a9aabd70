package service

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/agencyiq/agency-service/internal/auth"
	"github.com/agencyiq/agency-service/internal/config"
	"github.com/agencyiq/agency-service/internal/domain"
	"github.com/agencyiq/agency-service/internal/platform/mailer"
	"github.com/agencyiq/agency-service/internal/repository"
	apperrors "github.com/agencyiq/agency-service/pkg/util"
)

const trialSeatLimit = 3

// AuthService coordinates registration, login, and password flows for both
// agency owners and staff.
type AuthService struct {
	agencies   repository.AgencyRepository
	staff      repository.StaffRepository
	resets     repository.PasswordResetRepository
	tokenMgr   *auth.TokenManager
	sessions   *auth.SessionManager
	mail       mailer.Mailer
	bcryptCost int
	resetTTL   time.Duration
}

// AuthDependencies bundles collaborators for the auth service.
type AuthDependencies struct {
	AgencyRepo        repository.AgencyRepository
	StaffRepo         repository.StaffRepository
	PasswordResetRepo repository.PasswordResetRepository
	TokenManager      *auth.TokenManager
	SessionManager    *auth.SessionManager
	Mailer            mailer.Mailer
}

// NewAuthService builds the service.
func NewAuthService(cfg config.Config, deps AuthDependencies) *AuthService {
	return &AuthService{
		agencies:   deps.AgencyRepo,
		staff:      deps.StaffRepo,
		resets:     deps.PasswordResetRepo,
		tokenMgr:   deps.TokenManager,
		sessions:   deps.SessionManager,
		mail:       deps.Mailer,
		bcryptCost: cfg.Auth.BcryptCost,
		resetTTL:   time.Duration(cfg.Auth.PasswordResetTTLMinutes) * time.Minute,
	}
}

// RegisterAgency creates a new agency on the trial plan and logs the owner in.
func (s *AuthService) RegisterAgency(ctx context.Context, name, email, password string) (*domain.Agency, string, time.Time, error) {
	if _, err := s.agencies.GetByOwnerEmail(ctx, email); err == nil {
		return nil, "", time.Time{}, apperrors.NewConflict("email already registered", nil)
	} else if err != pgx.ErrNoRows {
		return nil, "", time.Time{}, apperrors.MapError(err)
	}

	hash, err := auth.HashPassword(password, s.bcryptCost)
	if err != nil {
		return nil, "", time.Time{}, apperrors.MapError(err)
	}

	agency := &domain.Agency{
		Name:              name,
		OwnerEmail:        email,
		OwnerPasswordHash: hash,
		Plan:              domain.PlanTrial,
		SeatLimit:         trialSeatLimit,
	}
	if err := s.agencies.Create(ctx, agency); err != nil {
		return nil, "", time.Time{}, apperrors.MapError(err)
	}

	token, exp, err := s.tokenMgr.GenerateOwnerToken(agency.ID)
	if err != nil {
		return nil, "", time.Time{}, apperrors.MapError(err)
	}
	return agency, token, exp, nil
}

// LoginOwner authenticates an agency owner and returns a signed JWT.
func (s *AuthService) LoginOwner(ctx context.Context, email, password string) (*domain.Agency, string, time.Time, error) {
	agency, err := s.agencies.GetByOwnerEmail(ctx, email)
	if err != nil {
		return nil, "", time.Time{}, apperrors.NewUnauthorized("invalid credentials")
	}
	if !agency.Active {
		return nil, "", time.Time{}, apperrors.NewUnauthorized("agency deactivated")
	}
	if err := auth.ComparePassword(agency.OwnerPasswordHash, password); err != nil {
		return nil, "", time.Time{}, apperrors.NewUnauthorized("invalid credentials")
	}

	token, exp, err := s.tokenMgr.GenerateOwnerToken(agency.ID)
	if err != nil {
		return nil, "", time.Time{}, apperrors.MapError(err)
	}
	return agency, token, exp, nil
}

// LoginStaff authenticates a staff user and issues an opaque session token.
func (s *AuthService) LoginStaff(ctx context.Context, email, password string) (*domain.StaffUser, string, time.Time, error) {
	staff, err := s.staff.GetByEmail(ctx, email)
	if err != nil {
		return nil, "", time.Time{}, apperrors.NewUnauthorized("invalid credentials")
	}
	if !staff.Active {
		return nil, "", time.Time{}, apperrors.NewUnauthorized("staff deactivated")
	}
	if err := auth.ComparePassword(staff.PasswordHash, password); err != nil {
		return nil, "", time.Time{}, apperrors.NewUnauthorized("invalid credentials")
	}

	token, exp, err := s.sessions.Issue(ctx, staff)
	if err != nil {
		return nil, "", time.Time{}, apperrors.MapError(err)
	}
	return staff, token, exp, nil
}

// LogoutStaff revokes the presented session token. Owner JWTs are stateless
// and expire on their own.
func (s *AuthService) LogoutStaff(ctx context.Context, token string) error {
	if err := s.sessions.Revoke(ctx, token); err != nil {
		return apperrors.NewUnauthorized("invalid token")
	}
	return nil
}

// RequestPasswordReset issues a reset token for the given email. The result
// is identical whether or not the email exists so callers cannot probe for
// accounts.
func (s *AuthService) RequestPasswordReset(ctx context.Context, email string) error {
	subjectType := domain.SubjectTypeOwner
	var subjectID string

	if agency, err := s.agencies.GetByOwnerEmail(ctx, email); err == nil {
		subjectID = agency.ID
	} else if staff, err := s.staff.GetByEmail(ctx, email); err == nil {
		subjectType = domain.SubjectTypeStaff
		subjectID = staff.ID
	} else {
		return nil
	}

	raw := make([]byte, 32)
	if _, err := rand.Read(raw); err != nil {
		return apperrors.MapError(err)
	}
	token := &repository.PasswordResetToken{
		SubjectType: string(subjectType),
		SubjectID:   subjectID,
		Token:       base64.RawURLEncoding.EncodeToString(raw),
		ExpiresAt:   time.Now().Add(s.resetTTL),
	}
	if err := s.resets.Create(ctx, token); err != nil {
		return apperrors.MapError(err)
	}

	if s.mail != nil {
		body := fmt.Sprintf("<p>Use this code to reset your password: <strong>%s</strong></p>"+
			"<p>The code expires in %d minutes.</p>", token.Token, int(s.resetTTL.Minutes()))
		_ = s.mail.Send(ctx, email, "Password reset", body)
	}
	return nil
}

// ResetPassword consumes a reset token and sets a new password. Staff
// resets revoke all existing sessions.
func (s *AuthService) ResetPassword(ctx context.Context, tokenStr, newPassword string) error {
	token, err := s.resets.GetByToken(ctx, tokenStr)
	if err != nil {
		return apperrors.NewValidationError("invalid or expired reset token", nil)
	}
	if token.UsedAt != nil || time.Now().After(token.ExpiresAt) {
		return apperrors.NewValidationError("invalid or expired reset token", nil)
	}

	hash, err := auth.HashPassword(newPassword, s.bcryptCost)
	if err != nil {
		return apperrors.MapError(err)
	}

	switch domain.SubjectType(token.SubjectType) {
	case domain.SubjectTypeOwner:
		agency, err := s.agencies.GetByID(ctx, token.SubjectID)
		if err != nil {
			return apperrors.MapError(err)
		}
		agency.OwnerPasswordHash = hash
		if err := s.agencies.Update(ctx, agency); err != nil {
			return apperrors.MapError(err)
		}
	case domain.SubjectTypeStaff:
		staff, err := s.staff.GetByID(ctx, token.SubjectID)
		if err != nil {
			return apperrors.MapError(err)
		}
		staff.PasswordHash = hash
		if err := s.staff.Update(ctx, nil, staff); err != nil {
			return apperrors.MapError(err)
		}
		if err := s.sessions.RevokeAllForStaff(ctx, staff.ID); err != nil {
			return apperrors.MapError(err)
		}
	default:
		return apperrors.NewValidationError("invalid or expired reset token", nil)
	}

	return apperrors.MapError(s.resets.MarkUsed(ctx, token.ID))
}

// ChangePassword verifies the current password before replacing it.
func (s *AuthService) ChangePassword(ctx context.Context, principal *auth.Principal, current, next string) error {
	hash, err := auth.HashPassword(next, s.bcryptCost)
	if err != nil {
		return apperrors.MapError(err)
	}

	if principal.IsOwner() {
		agency, err := s.agencies.GetByID(ctx, principal.AgencyID)
		if err != nil {
			return apperrors.MapError(err)
		}
		if err := auth.ComparePassword(agency.OwnerPasswordHash, current); err != nil {
			return apperrors.NewUnauthorized("current password incorrect")
		}
		agency.OwnerPasswordHash = hash
		return apperrors.MapError(s.agencies.Update(ctx, agency))
	}

	staff, err := s.staff.GetByID(ctx, principal.Staff.ID)
	if err != nil {
		return apperrors.MapError(err)
	}
	if err := auth.ComparePassword(staff.PasswordHash, current); err != nil {
		return apperrors.NewUnauthorized("current password incorrect")
	}
	staff.PasswordHash = hash
	if err := s.staff.Update(ctx, nil, staff); err != nil {
		return apperrors.MapError(err)
	}
	return apperrors.MapError(s.sessions.RevokeAllForStaff(ctx, staff.ID))
}
