package services

import (
	"context"
	"database/sql"
	"errors"
	"strconv"
	"time"

	"telugulearn/internal/config"
	"telugulearn/internal/database"
	"telugulearn/internal/models"
	"telugulearn/internal/observability"
	"telugulearn/internal/services/mailer"
	contextutils "telugulearn/internal/utils"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/crypto/bcrypt"
)

// AuthServiceInterface issues and verifies bearer credentials
type AuthServiceInterface interface {
	IssueTokens(ctx context.Context, user *models.User) (*models.TokenPair, error)
	ParseAccessToken(tokenString string) (*AccessClaims, error)
	Refresh(ctx context.Context, refreshToken string) (*models.TokenPair, error)
	Revoke(ctx context.Context, refreshToken string) error
	RevokeAllForUser(ctx context.Context, userID int) error
	RequestPasswordReset(ctx context.Context, email string) error
	ConfirmPasswordReset(ctx context.Context, resetToken, newPassword string) error
	PurgeExpiredTokens(ctx context.Context) (int64, error)
}

// AccessClaims are the JWT claims of an access token
type AccessClaims struct {
	Username string `json:"username"`
	IsAdmin  bool   `json:"adm,omitempty"`
	jwt.RegisteredClaims
}

// UserID returns the numeric subject
func (c *AccessClaims) UserID() (int, error) {
	return strconv.Atoi(c.Subject)
}

// AuthService implements AuthServiceInterface with HS256 access tokens and
// opaque, hashed, rotating refresh tokens.
type AuthService struct {
	db          *sql.DB
	cfg         *config.Config
	logger      *observability.Logger
	userService UserServiceInterface
	mailer      mailer.Mailer
	now         func() time.Time
}

var _ AuthServiceInterface = (*AuthService)(nil)

// NewAuthServiceWithLogger creates a new AuthService
func NewAuthServiceWithLogger(db *sql.DB, cfg *config.Config, userService UserServiceInterface, m mailer.Mailer, logger *observability.Logger) *AuthService {
	return &AuthService{
		db:          db,
		cfg:         cfg,
		logger:      logger,
		userService: userService,
		mailer:      m,
		now:         time.Now,
	}
}

func (s *AuthService) accessTTL() time.Duration {
	if s.cfg.Auth.AccessTokenTTL > 0 {
		return s.cfg.Auth.AccessTokenTTL
	}
	return config.DefaultAccessTokenTTL
}

func (s *AuthService) refreshTTL() time.Duration {
	if s.cfg.Auth.RefreshTokenTTL > 0 {
		return s.cfg.Auth.RefreshTokenTTL
	}
	return config.DefaultRefreshTokenTTL
}

func (s *AuthService) resetTTL() time.Duration {
	if s.cfg.Auth.ResetTokenTTL > 0 {
		return s.cfg.Auth.ResetTokenTTL
	}
	return config.DefaultResetTokenTTL
}

func (s *AuthService) issuer() string {
	if s.cfg.Auth.Issuer != "" {
		return s.cfg.Auth.Issuer
	}
	return config.DefaultTokenIssuer
}

// signAccessToken creates the JWT for user
func (s *AuthService) signAccessToken(user *models.User) (string, time.Time, error) {
	now := s.now()
	expiresAt := now.Add(s.accessTTL())
	claims := AccessClaims{
		Username: user.Username,
		IsAdmin:  user.IsAdmin,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.Itoa(user.ID),
			Issuer:    s.issuer(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			ID:        uuid.NewString(),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(s.cfg.Auth.JWTSecret))
	if err != nil {
		return "", time.Time{}, contextutils.WrapError(err, "failed to sign access token")
	}
	return signed, expiresAt, nil
}

// insertRefreshToken stores the hash of a fresh opaque token and returns the token
func (s *AuthService) insertRefreshToken(ctx context.Context, exec execer, userID int) (string, error) {
	token := uuid.NewString()
	_, err := exec.ExecContext(ctx,
		`INSERT INTO refresh_tokens (user_id, token_hash, expires_at) VALUES ($1, $2, $3)`,
		userID, contextutils.HashToken(token), s.now().Add(s.refreshTTL()))
	if err != nil {
		return "", contextutils.WrapError(err, "failed to store refresh token")
	}
	return token, nil
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}

// IssueTokens creates an access/refresh token pair for user
func (s *AuthService) IssueTokens(ctx context.Context, user *models.User) (result0 *models.TokenPair, err error) {
	ctx, span := observability.TraceAuthFunction(ctx, "IssueTokens", observability.AttributeUserID(user.ID))
	defer observability.FinishSpan(span, &err)

	access, expiresAt, err := s.signAccessToken(user)
	if err != nil {
		return nil, err
	}
	refresh, err := s.insertRefreshToken(ctx, s.db, user.ID)
	if err != nil {
		return nil, err
	}
	return &models.TokenPair{
		AccessToken:  access,
		RefreshToken: refresh,
		TokenType:    "Bearer",
		ExpiresAt:    expiresAt,
	}, nil
}

// ParseAccessToken verifies signature, algorithm, issuer and expiry
func (s *AuthService) ParseAccessToken(tokenString string) (*AccessClaims, error) {
	claims := &AccessClaims{}
	_, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		return []byte(s.cfg.Auth.JWTSecret), nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(s.issuer()),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, contextutils.ErrTokenExpired
		}
		return nil, contextutils.WrapError(contextutils.ErrTokenInvalid, "invalid access token")
	}
	if _, convErr := claims.UserID(); convErr != nil {
		return nil, contextutils.WrapError(contextutils.ErrTokenInvalid, "invalid token subject")
	}
	return claims, nil
}

// Refresh rotates a refresh token: the presented one is revoked and a new
// pair is returned. Reuse of a revoked token fails.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (result0 *models.TokenPair, err error) {
	ctx, span := observability.TraceAuthFunction(ctx, "Refresh")
	defer observability.FinishSpan(span, &err)

	var (
		user       *models.User
		newRefresh string
	)
	err = database.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		var (
			tokenID   int
			userID    int
			expiresAt time.Time
			revokedAt sql.NullTime
		)
		scanErr := tx.QueryRowContext(ctx,
			`SELECT id, user_id, expires_at, revoked_at FROM refresh_tokens WHERE token_hash = $1 FOR UPDATE`,
			contextutils.HashToken(refreshToken)).Scan(&tokenID, &userID, &expiresAt, &revokedAt)
		if errors.Is(scanErr, sql.ErrNoRows) || revokedAt.Valid {
			return contextutils.WrapError(contextutils.ErrTokenInvalid, "refresh token is not valid")
		}
		if scanErr != nil {
			return scanErr
		}
		if !s.now().Before(expiresAt) {
			return contextutils.WrapError(contextutils.ErrTokenExpired, "refresh token has expired")
		}

		if _, execErr := tx.ExecContext(ctx, `UPDATE refresh_tokens SET revoked_at = NOW() WHERE id = $1`, tokenID); execErr != nil {
			return execErr
		}

		var lookupErr error
		user, lookupErr = scanUser(tx.QueryRowContext(ctx, `SELECT `+userSelectFields+` FROM users WHERE id = $1`, userID))
		if lookupErr != nil {
			return lookupErr
		}
		if !user.IsActive {
			return contextutils.ErrAccountInactive
		}

		var insertErr error
		newRefresh, insertErr = s.insertRefreshToken(ctx, tx, userID)
		return insertErr
	})
	if err != nil {
		observability.Add(ctx, observability.Metrics().AuthFailures, 1, attribute.String("reason", "refresh"))
		return nil, contextutils.WrapError(err, "failed to refresh token")
	}

	access, expiresAt, err := s.signAccessToken(user)
	if err != nil {
		return nil, err
	}
	return &models.TokenPair{
		AccessToken:  access,
		RefreshToken: newRefresh,
		TokenType:    "Bearer",
		ExpiresAt:    expiresAt,
	}, nil
}

// Revoke invalidates a single refresh token. Unknown tokens are ignored so
// logout is idempotent.
func (s *AuthService) Revoke(ctx context.Context, refreshToken string) (err error) {
	ctx, span := observability.TraceAuthFunction(ctx, "Revoke")
	defer observability.FinishSpan(span, &err)

	_, err = s.db.ExecContext(ctx,
		`UPDATE refresh_tokens SET revoked_at = NOW() WHERE token_hash = $1 AND revoked_at IS NULL`,
		contextutils.HashToken(refreshToken))
	if err != nil {
		return contextutils.WrapError(err, "failed to revoke refresh token")
	}
	return nil
}

// RevokeAllForUser invalidates every outstanding refresh token of a user
func (s *AuthService) RevokeAllForUser(ctx context.Context, userID int) (err error) {
	ctx, span := observability.TraceAuthFunction(ctx, "RevokeAllForUser", observability.AttributeUserID(userID))
	defer observability.FinishSpan(span, &err)

	_, err = s.db.ExecContext(ctx,
		`UPDATE refresh_tokens SET revoked_at = NOW() WHERE user_id = $1 AND revoked_at IS NULL`, userID)
	if err != nil {
		return contextutils.WrapError(err, "failed to revoke refresh tokens")
	}
	return nil
}

// RequestPasswordReset emails a one-time token when email belongs to an
// active user. It reports success either way so callers cannot probe accounts.
func (s *AuthService) RequestPasswordReset(ctx context.Context, email string) (err error) {
	ctx, span := observability.TraceAuthFunction(ctx, "RequestPasswordReset")
	defer observability.FinishSpan(span, &err)

	user, err := s.userService.GetUserByEmail(ctx, email)
	if err != nil {
		if contextutils.IsError(err, contextutils.ErrRecordNotFound) {
			s.logger.Info(ctx, "Password reset requested for unknown email")
			return nil
		}
		return err
	}
	if !user.IsActive {
		return nil
	}

	token := uuid.NewString()
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO password_reset_tokens (user_id, token_hash, expires_at) VALUES ($1, $2, $3)`,
		user.ID, contextutils.HashToken(token), s.now().Add(s.resetTTL()))
	if err != nil {
		return contextutils.WrapError(err, "failed to store reset token")
	}

	if err := s.mailer.SendPasswordReset(ctx, user, token); err != nil {
		// The token row stays; the user can simply ask again
		s.logger.Error(ctx, "Failed to send password reset email", err, map[string]interface{}{"user_id": user.ID})
	}
	return nil
}

// ConfirmPasswordReset consumes a reset token, sets the new password and
// revokes all refresh tokens of the user in one transaction.
func (s *AuthService) ConfirmPasswordReset(ctx context.Context, resetToken, newPassword string) (err error) {
	ctx, span := observability.TraceAuthFunction(ctx, "ConfirmPasswordReset")
	defer observability.FinishSpan(span, &err)

	if err = s.cfg.Auth.PasswordPolicy().ValidatePassword(newPassword); err != nil {
		return err
	}
	cost := bcrypt.DefaultCost
	if s.cfg.IsTest {
		cost = bcrypt.MinCost
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(newPassword), cost)
	if err != nil {
		return contextutils.WrapError(err, "failed to hash password")
	}

	var userID int
	err = database.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		var (
			tokenID   int
			expiresAt time.Time
			usedAt    sql.NullTime
		)
		scanErr := tx.QueryRowContext(ctx,
			`SELECT id, user_id, expires_at, used_at FROM password_reset_tokens WHERE token_hash = $1 FOR UPDATE`,
			contextutils.HashToken(resetToken)).Scan(&tokenID, &userID, &expiresAt, &usedAt)
		if errors.Is(scanErr, sql.ErrNoRows) || usedAt.Valid {
			return contextutils.WrapError(contextutils.ErrTokenInvalid, "reset token is not valid")
		}
		if scanErr != nil {
			return scanErr
		}
		if !s.now().Before(expiresAt) {
			return contextutils.WrapError(contextutils.ErrTokenExpired, "reset token has expired")
		}

		for _, stmt := range []struct {
			query string
			args  []interface{}
		}{
			{`UPDATE password_reset_tokens SET used_at = NOW() WHERE id = $1`, []interface{}{tokenID}},
			{`UPDATE users SET password_hash = $1, updated_at = NOW() WHERE id = $2`, []interface{}{string(hashed), userID}},
			{`UPDATE refresh_tokens SET revoked_at = NOW() WHERE user_id = $1 AND revoked_at IS NULL`, []interface{}{userID}},
		} {
			if _, execErr := tx.ExecContext(ctx, stmt.query, stmt.args...); execErr != nil {
				return execErr
			}
		}
		return nil
	})
	if err != nil {
		return contextutils.WrapError(err, "failed to confirm password reset")
	}

	s.logger.Info(ctx, "Password reset completed", map[string]interface{}{"user_id": userID})
	return nil
}

// PurgeExpiredTokens deletes expired or spent refresh and reset tokens
func (s *AuthService) PurgeExpiredTokens(ctx context.Context) (result0 int64, err error) {
	ctx, span := observability.TraceWorkerFunction(ctx, "PurgeExpiredTokens")
	defer observability.FinishSpan(span, &err)

	var total int64
	for _, query := range []string{
		`DELETE FROM refresh_tokens WHERE expires_at < NOW() OR revoked_at < NOW() - INTERVAL '1 day'`,
		`DELETE FROM password_reset_tokens WHERE expires_at < NOW() OR used_at IS NOT NULL`,
	} {
		res, execErr := s.db.ExecContext(ctx, query)
		if execErr != nil {
			return total, contextutils.WrapError(execErr, "failed to purge tokens")
		}
		n, _ := res.RowsAffected()
		total += n
	}
	span.SetAttributes(attribute.Int64("tokens.purged", total))
	return total, nil
}
