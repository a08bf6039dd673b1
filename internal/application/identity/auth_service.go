package identity

import (
	"context"
	"errors"
	"time"

	"github.com/crm/backend/internal/domain/identity"
	"github.com/crm/backend/internal/domain/shared"
	"github.com/crm/backend/internal/infrastructure/auth"
	"github.com/crm/backend/internal/infrastructure/logger"
	"github.com/crm/backend/internal/infrastructure/telemetry"
	"go.uber.org/zap"
)

// PasswordHasher hashes and verifies passwords
type PasswordHasher interface {
	Hash(password string) (string, error)
	Verify(hash, password string) (bool, error)
	NeedsRehash(hash string) bool
}

var _ PasswordHasher = (*auth.PasswordHasher)(nil)

// AuthService handles authentication operations
type AuthService struct {
	userRepo   identity.UserRepository
	roleRepo   identity.RoleRepository
	tokens     identity.RefreshTokenStore
	jwtService *auth.JWTService
	hasher     PasswordHasher
	logger     *zap.Logger
	now        func() time.Time
}

// NewAuthService creates a new authentication service
func NewAuthService(
	userRepo identity.UserRepository,
	roleRepo identity.RoleRepository,
	tokens identity.RefreshTokenStore,
	jwtService *auth.JWTService,
	hasher PasswordHasher,
	logger *zap.Logger,
) *AuthService {
	return &AuthService{
		userRepo:   userRepo,
		roleRepo:   roleRepo,
		tokens:     tokens,
		jwtService: jwtService,
		hasher:     hasher,
		logger:     logger,
		now:        time.Now,
	}
}

var errInvalidCredentials = shared.Unauthorized("Invalid email or password")

// Login authenticates a user and returns tokens.
// A hash produced by an older scheme is upgraded on success; failure to
// upgrade is logged and never fails the login.
func (s *AuthService) Login(ctx context.Context, input LoginInput) (*LoginResult, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "auth", "login")
	defer span.End()

	email := identity.NormalizeEmail(input.Email)
	user, err := s.userRepo.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			s.logger.Warn("Login for unknown email", zap.String("email", email))
			return nil, errInvalidCredentials
		}
		telemetry.RecordError(span, err)
		return nil, err
	}

	ok, err := s.hasher.Verify(user.PasswordHash, input.Password)
	if err != nil {
		s.logger.Error("Stored password hash is unusable", zap.Int64("user_id", user.ID), zap.Error(err))
		return nil, errInvalidCredentials
	}
	if !ok {
		s.logger.Warn("Invalid password attempt", zap.Int64("user_id", user.ID))
		return nil, errInvalidCredentials
	}
	if !user.CanLogin() {
		s.logger.Warn("Login attempt for inactive account", zap.Int64("user_id", user.ID))
		return nil, shared.Unauthorized("Account is not active")
	}

	if s.hasher.NeedsRehash(user.PasswordHash) {
		s.upgradeHash(ctx, user, input.Password)
	}

	pair, err := s.issue(ctx, user)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	telemetry.SetAttributes(span, telemetry.SpanAttrActorID, user.ID)
	s.logger.Info("User logged in successfully", zap.Int64("user_id", user.ID))

	return &LoginResult{
		AccessToken:           pair.AccessToken,
		RefreshToken:          pair.RefreshToken,
		AccessTokenExpiresAt:  pair.AccessTokenExpiresAt,
		RefreshTokenExpiresAt: pair.RefreshTokenExpiresAt,
		TokenType:             pair.TokenType,
		User:                  ToUserDTO(user),
	}, nil
}

func (s *AuthService) upgradeHash(ctx context.Context, user *identity.User, password string) {
	hash, err := s.hasher.Hash(password)
	if err != nil {
		s.logger.Warn("Password rehash failed", zap.Int64("user_id", user.ID), zap.Error(err))
		return
	}
	user.SetPasswordHash(hash)
	if err := s.userRepo.Update(ctx, user); err != nil {
		s.logger.Warn("Failed to store upgraded password hash", zap.Int64("user_id", user.ID), zap.Error(err))
		return
	}
	s.logger.Info("Password hash upgraded", zap.Int64("user_id", user.ID))
}

// RefreshToken rotates a refresh token: the presented token is revoked and a
// new pair is issued with the user's current rank.
// Presenting an already revoked token revokes every token of its user.
func (s *AuthService) RefreshToken(ctx context.Context, input RefreshTokenInput) (*RefreshTokenResult, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "auth", "refresh")
	defer span.End()

	claims, err := s.jwtService.ValidateRefreshToken(input.RefreshToken)
	if err != nil {
		s.logger.Warn("Refresh token validation failed", zap.Error(err))
		return nil, tokenError(err)
	}

	record, err := s.tokens.Find(ctx, claims.ID)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil, shared.Unauthorized("Invalid refresh token")
		}
		telemetry.RecordError(span, err)
		return nil, err
	}
	if record.RevokedAt != nil {
		return nil, s.rejectReuse(ctx, record.UserID)
	}
	if !record.IsUsable(s.now()) {
		return nil, shared.Unauthorized("Refresh token has expired")
	}

	user, err := s.userRepo.FindByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil, shared.Unauthorized("User no longer exists")
		}
		return nil, err
	}
	if !user.CanLogin() {
		return nil, shared.Unauthorized("Account is no longer active")
	}

	// Revoke claims the token before anything is issued; a concurrent
	// rotation of the same token loses here and is treated as reuse.
	if err := s.tokens.Revoke(ctx, claims.ID); err != nil {
		switch {
		case errors.Is(err, identity.ErrRefreshTokenRevoked):
			return nil, s.rejectReuse(ctx, record.UserID)
		case errors.Is(err, shared.ErrNotFound):
			return nil, shared.Unauthorized("Invalid refresh token")
		}
		telemetry.RecordError(span, err)
		return nil, err
	}
	pair, err := s.jwtService.RefreshTokenPair(claims, user.RoleRank)
	if err != nil {
		s.logger.Warn("Token refresh failed", zap.Int64("user_id", user.ID), zap.Error(err))
		return nil, tokenError(err)
	}
	if err := s.save(ctx, user.ID, pair); err != nil {
		return nil, err
	}

	logger.L(ctx).Debug("Token refreshed", zap.Int64("user_id", user.ID))

	return &RefreshTokenResult{
		AccessToken:           pair.AccessToken,
		RefreshToken:          pair.RefreshToken,
		AccessTokenExpiresAt:  pair.AccessTokenExpiresAt,
		RefreshTokenExpiresAt: pair.RefreshTokenExpiresAt,
		TokenType:             pair.TokenType,
	}, nil
}

// Logout revokes the presented refresh token. It must belong to p.
func (s *AuthService) Logout(ctx context.Context, p identity.Principal, input LogoutInput) error {
	claims, err := s.jwtService.ValidateRefreshToken(input.RefreshToken)
	if err != nil {
		return tokenError(err)
	}
	if claims.UserID != p.UserID {
		return shared.Forbidden("Refresh token belongs to another user")
	}
	// Logging out twice with the same token is not an error
	if err := s.tokens.Revoke(ctx, claims.ID); err != nil && !errors.Is(err, identity.ErrRefreshTokenRevoked) {
		if errors.Is(err, shared.ErrNotFound) {
			return shared.Unauthorized("Invalid refresh token")
		}
		return err
	}
	s.logger.Info("User logout", zap.Int64("user_id", p.UserID))
	return nil
}

// rejectReuse revokes every session of userID after a revoked refresh token
// was presented again
func (s *AuthService) rejectReuse(ctx context.Context, userID int64) error {
	s.logger.Warn("Revoked refresh token presented, revoking all sessions", zap.Int64("user_id", userID))
	if err := s.tokens.RevokeAllForUser(ctx, userID); err != nil {
		s.logger.Error("Failed to revoke sessions", zap.Int64("user_id", userID), zap.Error(err))
	}
	return shared.Unauthorized("Refresh token has been revoked")
}

// GetCurrentUser returns the caller's profile, permissions and component access
func (s *AuthService) GetCurrentUser(ctx context.Context, p identity.Principal) (*CurrentUserResult, error) {
	user, err := s.userRepo.FindByID(ctx, p.UserID)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil, shared.NotFound("User not found")
		}
		return nil, err
	}

	perms, err := s.roleRepo.ListRolePermissions(ctx, user.RoleRank)
	if err != nil {
		s.logger.Error("Failed to load role permissions", zap.Error(err))
		return nil, err
	}
	components, err := s.roleRepo.ListComponentAccessForRole(ctx, user.RoleRank)
	if err != nil {
		s.logger.Error("Failed to load component access", zap.Error(err))
		return nil, err
	}

	codes := make([]string, len(perms))
	for i, perm := range perms {
		codes[i] = perm.Code
	}
	return &CurrentUserResult{
		User:        ToUserDTO(user),
		Permissions: codes,
		Components:  components,
	}, nil
}

func (s *AuthService) issue(ctx context.Context, user *identity.User) (*auth.TokenPair, error) {
	pair, err := s.jwtService.GenerateTokenPair(auth.GenerateTokenInput{
		UserID:   user.ID,
		RoleRank: user.RoleRank,
	})
	if err != nil {
		s.logger.Error("Failed to generate token pair", zap.Error(err))
		return nil, shared.NewDomainError(shared.CodeInternal, "Failed to generate authentication tokens")
	}
	if err := s.save(ctx, user.ID, pair); err != nil {
		return nil, err
	}
	return pair, nil
}

func (s *AuthService) save(ctx context.Context, userID int64, pair *auth.TokenPair) error {
	err := s.tokens.Save(ctx, &identity.RefreshToken{
		ID:        pair.RefreshTokenID,
		UserID:    userID,
		ExpiresAt: pair.RefreshTokenExpiresAt,
		CreatedAt: s.now(),
	})
	if err != nil {
		s.logger.Error("Failed to store refresh token", zap.Int64("user_id", userID), zap.Error(err))
		return err
	}
	return nil
}

// tokenError maps JWT validation failures to Unauthorized
func tokenError(err error) error {
	switch {
	case errors.Is(err, auth.ErrExpiredToken):
		return shared.Unauthorized("Refresh token has expired")
	case errors.Is(err, auth.ErrMaxRefreshExceeded):
		return shared.Unauthorized("Maximum token refresh count exceeded. Please log in again")
	default:
		return shared.Unauthorized("Invalid refresh token")
	}
}
