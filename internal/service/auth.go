package service

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/Skotchmaster/storefront/internal/models"
	"github.com/Skotchmaster/storefront/internal/repo"
	"github.com/Skotchmaster/storefront/pkg/events"
	pkg_hash "github.com/Skotchmaster/storefront/pkg/hash"
	jwthelp "github.com/Skotchmaster/storefront/pkg/jwt"
	"github.com/Skotchmaster/storefront/pkg/logging"
	"github.com/Skotchmaster/storefront/pkg/tokens"
)

const MinPasswordLen = 6

type AuthService struct {
	Repo          *repo.GormRepo
	AccessSecret  []byte
	RefreshSecret []byte
	AccessTTL     time.Duration
	RefreshTTL    time.Duration
	// AdminEmails get the admin role at signup. Lower case.
	AdminEmails []string
	Events      events.Publisher
	Passwords   pkg_hash.Hasher
	Now         func() time.Time
}

type LoginResult struct {
	User         *models.User
	AccessToken  string
	RefreshToken string
	AccessExp    time.Time
	RefreshExp   time.Time
}

type SignupInput struct {
	Name            string
	Email           string
	Password        string
	ConfirmPassword string
}

func (s *AuthService) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (in SignupInput) validate() error {
	if strings.TrimSpace(in.Name) == "" {
		return invalid("name is required")
	}
	if in.Email == "" {
		return invalid("email is required")
	}
	if _, err := mail.ParseAddress(in.Email); err != nil {
		return invalid("email is malformed")
	}
	if len(in.Password) < MinPasswordLen {
		return invalid(fmt.Sprintf("password must be at least %d characters", MinPasswordLen))
	}
	if len(in.Password) > pkg_hash.MaxPasswordBytes {
		return invalid(fmt.Sprintf("password must be at most %d bytes", pkg_hash.MaxPasswordBytes))
	}
	if in.Password != in.ConfirmPassword {
		return invalid("passwords do not match")
	}
	return nil
}

func (s *AuthService) Signup(ctx context.Context, in SignupInput) (*LoginResult, error) {
	in.Email = normalizeEmail(in.Email)
	l := logging.FromContext(ctx).With("svc", "auth.signup", "email", in.Email)

	if err := in.validate(); err != nil {
		l.Warn("signup_error", "status", 400, "error", err)
		return nil, err
	}

	pwHash, err := s.Passwords.Hash(in.Password)
	if err != nil {
		l.Error("signup_error", "status", 500, "reason", "cannot hash the password", "error", err)
		return nil, err
	}

	role := tokens.RoleCustomer
	if slices.Contains(s.AdminEmails, in.Email) {
		role = tokens.RoleAdmin
	}
	user := &models.User{
		Name:         strings.TrimSpace(in.Name),
		Email:        in.Email,
		PasswordHash: pwHash,
		Role:         role,
	}
	if err := s.Repo.CreateUserIfNotExists(ctx, user); err != nil {
		if errors.Is(err, repo.ErrUserAlreadyExist) {
			l.Warn("signup_error", "status", 409, "reason", "user already exist")
			return nil, fmt.Errorf("%w: user already exists", ErrConflict)
		}
		l.Error("signup_error", "status", 500, "error", err)
		return nil, err
	}

	res, err := s.issue(ctx, user)
	if err != nil {
		l.Error("signup_error", "status", 500, "reason", "cannot issue tokens", "error", err)
		return nil, err
	}

	publish(ctx, s.Events, events.TopicUser, user.ID.String(), events.New("user_signed_up", map[string]any{
		"user_id": user.ID.String(),
		"email":   user.Email,
	}))
	l.Info("signup_successful", "user_id", user.ID)
	return res, nil
}

func (s *AuthService) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	email = normalizeEmail(email)
	l := logging.FromContext(ctx).With("svc", "auth.login", "email", email)

	if email == "" || password == "" {
		return nil, invalid("email and password are required")
	}

	user, err := s.Repo.UserByEmail(ctx, email)
	if err != nil {
		if errors.Is(notFound(err, "user"), ErrNotFound) {
			l.Warn("login_failed", "status", 401, "reason", "unknown email")
			return nil, ErrInvalidCredentials
		}
		l.Error("login_failed", "status", 500, "error", err)
		return nil, err
	}
	if err := s.Passwords.Verify(user.PasswordHash, password); err != nil {
		if errors.Is(err, pkg_hash.ErrMismatch) {
			l.Warn("login_failed", "status", 401, "reason", "wrong password")
			return nil, ErrInvalidCredentials
		}
		l.Error("login_failed", "status", 500, "user_id", user.ID, "error", err)
		return nil, err
	}

	res, err := s.issue(ctx, user)
	if err != nil {
		l.Error("login_failed", "status", 500, "reason", "cannot issue tokens", "error", err)
		return nil, err
	}

	publish(ctx, s.Events, events.TopicUser, user.ID.String(), events.New("user_logged_in", map[string]any{
		"user_id": user.ID.String(),
	}))
	return res, nil
}

// Refresh exchanges a refresh token for a new pair. The presented token is
// revoked in the same transaction that stores its successor, so a token can be
// redeemed once.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (*LoginResult, error) {
	l := logging.FromContext(ctx).With("svc", "auth.refresh")

	if refreshToken == "" {
		return nil, ErrInvalidRefreshToken
	}
	claims, err := tokens.RefreshClaimsFromToken(refreshToken, s.RefreshSecret)
	if err != nil {
		l.Warn("refresh_failed", "status", 401, "reason", "bad token", "error", err)
		return nil, ErrInvalidRefreshToken
	}
	userID, err := uuid.Parse(claims.Subject)
	if err != nil {
		l.Warn("refresh_failed", "status", 401, "reason", "bad subject")
		return nil, ErrInvalidRefreshToken
	}

	user, err := s.Repo.GetUserByID(ctx, userID)
	if err != nil {
		if errors.Is(notFound(err, "user"), ErrNotFound) {
			l.Warn("refresh_failed", "status", 401, "reason", "user is gone")
			return nil, ErrInvalidRefreshToken
		}
		return nil, err
	}

	res, next, err := s.newPair(user)
	if err != nil {
		return nil, err
	}
	if err := s.Repo.RotateRefreshToken(ctx, claims.ID, refreshToken, next, s.now()); err != nil {
		if errors.Is(err, repo.ErrRefreshRevoked) {
			l.Warn("refresh_failed", "status", 401, "reason", "revoked or expired", "user_id", user.ID)
			return nil, ErrInvalidRefreshToken
		}
		l.Error("refresh_failed", "status", 500, "error", err)
		return nil, err
	}

	l.Debug("refresh_successful", "user_id", user.ID)
	return res, nil
}

// Logout revokes the refresh token. Unknown tokens are not an error.
func (s *AuthService) Logout(ctx context.Context, refreshToken string) error {
	if refreshToken == "" {
		return nil
	}
	if err := s.Repo.RevokeRefreshToken(ctx, refreshToken); err != nil {
		logging.FromContext(ctx).Error("logout_failed", "reason", "cannot revoke refresh token", "error", err)
		return err
	}
	return nil
}

func (s *AuthService) Profile(ctx context.Context, userID uuid.UUID) (*models.User, error) {
	user, err := s.Repo.GetUserByID(ctx, userID)
	if err != nil {
		return nil, notFound(err, "user")
	}
	return user, nil
}

// PurgeExpiredTokens drops refresh records that expired more than a day ago.
func (s *AuthService) PurgeExpiredTokens(ctx context.Context) (int64, error) {
	return s.Repo.DeleteStaleRefreshTokens(ctx, s.now().Add(-24*time.Hour))
}

func (s *AuthService) issue(ctx context.Context, user *models.User) (*LoginResult, error) {
	res, rec, err := s.newPair(user)
	if err != nil {
		return nil, err
	}
	if err := s.Repo.AddRefreshToken(ctx, rec); err != nil {
		return nil, err
	}
	return res, nil
}

func (s *AuthService) newPair(user *models.User) (*LoginResult, *models.RefreshToken, error) {
	now := s.now()
	accessExp := now.Add(s.AccessTTL)
	refreshExp := now.Add(s.RefreshTTL)

	access, err := tokens.NewAccessToken(s.AccessSecret, user.ID.String(), user.Role, accessExp)
	if err != nil {
		return nil, nil, err
	}
	jti := jwthelp.NewJTI()
	refresh, err := tokens.NewRefreshToken(s.RefreshSecret, user.ID.String(), jti, refreshExp)
	if err != nil {
		return nil, nil, err
	}

	return &LoginResult{
		User:         user,
		AccessToken:  access,
		RefreshToken: refresh,
		AccessExp:    accessExp,
		RefreshExp:   refreshExp,
	}, repo.NewRefreshRecord(refresh, jti, user.ID, refreshExp), nil
}
