package identity

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/storefront/backend/internal/domain/identity"
	"github.com/storefront/backend/internal/domain/shared"
	"github.com/storefront/backend/internal/infrastructure/auth"
	"go.uber.org/zap"
)

// AuthService handles registration and token issuance
type AuthService struct {
	userRepo       identity.UserRepository
	membershipRepo identity.MembershipRepository
	jwtService     *auth.JWTService
	logger         *zap.Logger
}

// NewAuthService creates a new authentication service
func NewAuthService(
	userRepo identity.UserRepository,
	membershipRepo identity.MembershipRepository,
	jwtService *auth.JWTService,
	logger *zap.Logger,
) *AuthService {
	return &AuthService{
		userRepo:       userRepo,
		membershipRepo: membershipRepo,
		jwtService:     jwtService,
		logger:         logger,
	}
}

// Register creates a platform account
func (s *AuthService) Register(ctx context.Context, input RegisterInput) (*UserInfo, error) {
	email := identity.NormalizeEmail(input.Email)

	exists, err := s.userRepo.ExistsByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, shared.NewDomainError("ALREADY_EXISTS", "An account with this email already exists")
	}

	user, err := identity.NewUser(email, input.Password, input.Name)
	if err != nil {
		return nil, err
	}
	if err := s.userRepo.Save(ctx, user); err != nil {
		return nil, err
	}

	s.logger.Info("User registered", zap.String("user_id", user.ID.String()))
	info := toUserInfo(user)
	return &info, nil
}

// Login authenticates a user and returns tokens. When a store is given the
// tokens are scoped to the user's membership in it.
func (s *AuthService) Login(ctx context.Context, input LoginInput) (*TokenResult, error) {
	email := identity.NormalizeEmail(input.Email)

	user, err := s.userRepo.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			s.logger.Warn("Login attempt for unknown email")
			return nil, invalidCredentials()
		}
		return nil, err
	}
	if !user.VerifyPassword(input.Password) {
		s.logger.Warn("Invalid password attempt", zap.String("user_id", user.ID.String()))
		return nil, invalidCredentials()
	}
	if !user.IsActive() {
		s.logger.Warn("Login attempt for disabled account", zap.String("user_id", user.ID.String()))
		return nil, shared.NewDomainError("ACCOUNT_DISABLED", "Account has been disabled")
	}

	storeID := uuid.Nil
	if input.StoreID != nil {
		storeID = *input.StoreID
	}
	result, err := s.issue(ctx, user, storeID)
	if err != nil {
		return nil, err
	}

	user.RecordLogin()
	if err := s.userRepo.Save(ctx, user); err != nil {
		// the tokens are already valid
		s.logger.Error("Failed to record login", zap.Error(err))
	}
	result.User = toUserInfo(user)

	s.logger.Info("User logged in",
		zap.String("user_id", user.ID.String()),
		zap.String("store_id", storeID.String()))
	return result, nil
}

// Refresh exchanges a refresh token for a new pair. The role is looked up
// again so that a demotion takes effect on the next refresh.
func (s *AuthService) Refresh(ctx context.Context, input RefreshTokenInput) (*TokenResult, error) {
	claims, err := s.jwtService.ValidateRefreshToken(input.RefreshToken)
	if err != nil {
		s.logger.Warn("Refresh token validation failed", zap.Error(err))
		if errors.Is(err, auth.ErrExpiredToken) {
			return nil, shared.NewDomainError("TOKEN_EXPIRED", "Refresh token has expired")
		}
		return nil, shared.NewDomainError("TOKEN_INVALID", "Invalid refresh token")
	}

	userID, err := claims.GetUserUUID()
	if err != nil {
		return nil, shared.NewDomainError("TOKEN_INVALID", "Invalid user ID in token")
	}
	storeID, err := claims.GetStoreUUID()
	if err != nil {
		return nil, shared.NewDomainError("TOKEN_INVALID", "Invalid store ID in token")
	}

	user, err := s.activeUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	result, err := s.issue(ctx, user, storeID)
	if err != nil {
		return nil, err
	}
	result.User = toUserInfo(user)
	return result, nil
}

// SwitchStore re-issues tokens scoped to another of the user's stores
func (s *AuthService) SwitchStore(ctx context.Context, userID uuid.UUID, input SwitchStoreInput) (*TokenResult, error) {
	user, err := s.activeUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	result, err := s.issue(ctx, user, input.StoreID)
	if err != nil {
		return nil, err
	}
	result.User = toUserInfo(user)
	return result, nil
}

// Me returns the user and the stores they belong to
func (s *AuthService) Me(ctx context.Context, userID uuid.UUID) (*CurrentUserResult, error) {
	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	memberships, err := s.membershipRepo.FindByUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	infos := make([]MembershipInfo, len(memberships))
	for i, m := range memberships {
		infos[i] = MembershipInfo{StoreID: m.StoreID, Role: m.Role}
	}
	return &CurrentUserResult{User: toUserInfo(user), Memberships: infos}, nil
}

// ChangePassword replaces the caller's password
func (s *AuthService) ChangePassword(ctx context.Context, userID uuid.UUID, input ChangePasswordInput) error {
	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		return err
	}
	if err := user.ChangePassword(input.CurrentPassword, input.NewPassword); err != nil {
		return err
	}
	if err := s.userRepo.Save(ctx, user); err != nil {
		return err
	}
	s.logger.Info("Password changed", zap.String("user_id", userID.String()))
	return nil
}

func (s *AuthService) activeUser(ctx context.Context, userID uuid.UUID) (*identity.User, error) {
	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil, shared.NewDomainError("TOKEN_INVALID", "User no longer exists")
		}
		return nil, err
	}
	if !user.IsActive() {
		return nil, shared.NewDomainError("ACCOUNT_DISABLED", "Account has been disabled")
	}
	return user, nil
}

// issue generates a token pair. storeID may be uuid.Nil for a store-less
// session; otherwise the user must be a member of the store.
func (s *AuthService) issue(ctx context.Context, user *identity.User, storeID uuid.UUID) (*TokenResult, error) {
	input := auth.GenerateTokenInput{
		UserID: user.ID,
		Email:  user.Email,
	}

	if storeID != uuid.Nil {
		membership, err := s.membershipRepo.Find(ctx, storeID, user.ID)
		if err != nil {
			if errors.Is(err, shared.ErrNotFound) {
				return nil, shared.NewDomainError("FORBIDDEN", "You are not a member of this store")
			}
			return nil, err
		}
		input.StoreID = storeID
		input.Role = string(membership.Role)
		input.Permissions = membership.Role.Permissions()
	}

	pair, err := s.jwtService.GenerateTokenPair(input)
	if err != nil {
		s.logger.Error("Failed to generate token pair", zap.Error(err))
		return nil, shared.NewDomainError("INTERNAL_ERROR", "Failed to generate authentication tokens")
	}

	result := &TokenResult{
		AccessToken:           pair.AccessToken,
		RefreshToken:          pair.RefreshToken,
		AccessTokenExpiresAt:  pair.AccessTokenExpiresAt,
		RefreshTokenExpiresAt: pair.RefreshTokenExpiresAt,
		TokenType:             pair.TokenType,
	}
	if storeID != uuid.Nil {
		result.StoreID = &storeID
		result.Role = identity.Role(input.Role)
		result.Permissions = input.Permissions
	}
	return result, nil
}

func invalidCredentials() error {
	return shared.NewDomainError("INVALID_CREDENTIALS", "Invalid email or password")
}
