package auth

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5"

	"github.com/agencyiq/agency-service/internal/domain"
	"github.com/agencyiq/agency-service/internal/repository"
	apperrors "github.com/agencyiq/agency-service/pkg/util"
)

const principalKey = "auth_principal"

// Principal represents the authenticated caller. AgencyID is always set and
// scopes every downstream query to the caller's tenant.
type Principal struct {
	SubjectType domain.SubjectType
	AgencyID    string
	Agency      *domain.Agency
	Staff       *domain.StaffUser
}

// IsOwner reports whether the caller is the agency owner.
func (p *Principal) IsOwner() bool {
	return p != nil && p.SubjectType == domain.SubjectTypeOwner
}

// AuthMiddleware validates bearer credentials and loads principals. Owner
// callers present a platform JWT; staff callers present an opaque session
// token. The two are distinguished by attempting JWT parsing first.
type AuthMiddleware struct {
	tokens   *TokenManager
	sessions *SessionManager
	agencies repository.AgencyRepository
	staff    repository.StaffRepository
}

// NewAuthMiddleware constructs middleware.
func NewAuthMiddleware(tokens *TokenManager, sessions *SessionManager, agencies repository.AgencyRepository, staff repository.StaffRepository) *AuthMiddleware {
	return &AuthMiddleware{tokens: tokens, sessions: sessions, agencies: agencies, staff: staff}
}

// Handle enforces authentication for protected routes.
func (m *AuthMiddleware) Handle(c *fiber.Ctx) error {
	authHeader := c.Get("Authorization")
	if authHeader == "" {
		return apperrors.NewUnauthorized("missing authorization header")
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return apperrors.NewUnauthorized("invalid authorization header")
	}
	bearer := parts[1]

	if claims, err := m.tokens.ParseToken(bearer); err == nil {
		return m.handleOwner(c, claims)
	}
	return m.handleStaff(c, bearer)
}

func (m *AuthMiddleware) handleOwner(c *fiber.Ctx, claims *Claims) error {
	if claims.Subject != domain.SubjectTypeOwner {
		return apperrors.NewUnauthorized("unknown subject")
	}

	agency, err := m.agencies.GetByID(c.Context(), claims.AgencyID)
	if err != nil {
		if err == pgx.ErrNoRows {
			return apperrors.NewUnauthorized("agency not found")
		}
		return apperrors.MapError(err)
	}
	if !agency.Active {
		return apperrors.NewUnauthorized("agency deactivated")
	}

	c.Locals(principalKey, &Principal{
		SubjectType: domain.SubjectTypeOwner,
		AgencyID:    agency.ID,
		Agency:      agency,
	})
	return c.Next()
}

func (m *AuthMiddleware) handleStaff(c *fiber.Ctx, bearer string) error {
	session, err := m.sessions.Resolve(c.Context(), bearer)
	if err != nil {
		return apperrors.NewUnauthorized("invalid token")
	}

	staff, err := m.staff.GetByID(c.Context(), session.StaffID)
	if err != nil {
		if err == pgx.ErrNoRows {
			return apperrors.NewUnauthorized("staff not found")
		}
		return apperrors.MapError(err)
	}
	if !staff.Active {
		return apperrors.NewUnauthorized("staff deactivated")
	}

	c.Locals(principalKey, &Principal{
		SubjectType: domain.SubjectTypeStaff,
		AgencyID:    staff.AgencyID,
		Staff:       staff,
	})
	return c.Next()
}

// PrincipalFromContext retrieves the authenticated entity.
func PrincipalFromContext(c *fiber.Ctx) (*Principal, bool) {
	val := c.Locals(principalKey)
	if val == nil {
		return nil, false
	}
	principal, ok := val.(*Principal)
	return principal, ok
}
