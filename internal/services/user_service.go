package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"telugulearn/internal/cache"
	"telugulearn/internal/config"
	"telugulearn/internal/database"
	"telugulearn/internal/models"
	"telugulearn/internal/observability"
	contextutils "telugulearn/internal/utils"

	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/crypto/bcrypt"
)

// UserServiceInterface defines the interface for user-related operations.
// This allows for easier mocking in tests.
type UserServiceInterface interface {
	Register(ctx context.Context, in RegisterInput) (*models.User, error)
	Authenticate(ctx context.Context, username, password string) (*models.User, error)
	GetUserByID(ctx context.Context, id int) (*models.User, error)
	GetUserByUsername(ctx context.Context, username string) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	GetProfile(ctx context.Context, userID int) (*models.Profile, error)
	GetUserWithProfile(ctx context.Context, userID int) (*models.UserWithProfile, error)
	UpdateProfile(ctx context.Context, userID int, update ProfileUpdate) (*models.UserWithProfile, error)
	ChangePassword(ctx context.Context, userID int, currentPassword, newPassword string) error
	SetPassword(ctx context.Context, userID int, newPassword string) error
	Deactivate(ctx context.Context, userID int) error
	ListUsers(ctx context.Context, page, pageSize int, search string) ([]models.User, int, error)
	SetAdmin(ctx context.Context, userID int, admin bool) error
	EnsureAdminUser(ctx context.Context, username, email, password string) error
	GetDB() *sql.DB
}

// RegisterInput carries the fields accepted at registration
type RegisterInput struct {
	Username       string
	Email          string
	Password       string
	Timezone       string
	DisplayName    string
	NativeLanguage string
}

// ProfileUpdate lists the optional profile fields a user may change
type ProfileUpdate struct {
	Email            *string
	Timezone         *string
	DisplayName      *string
	NativeLanguage   *string
	ProficiencyLevel *models.ProficiencyLevel
	DailyGoalMinutes *int
}

// UserService provides methods for user management.
type UserService struct {
	db         *sql.DB
	cfg        *config.Config
	logger     *observability.Logger
	policy     contextutils.PasswordPolicy
	bcryptCost int

	// leaderboard is invalidated when an account leaves the board
	leaderboard cache.LeaderboardCache
}

var _ UserServiceInterface = (*UserService)(nil)

const (
	userSelectFields    = `id, username, email, password_hash, timezone, is_active, is_admin, last_login_at, created_at, updated_at`
	profileSelectFields = `user_id, display_name, native_language, proficiency_level, daily_goal_minutes, streak_count, longest_streak, last_activity_date, points_total, updated_at`
)

// NewUserServiceWithLogger creates a new UserService instance with logger
func NewUserServiceWithLogger(db *sql.DB, cfg *config.Config, logger *observability.Logger) *UserService {
	cost := bcrypt.DefaultCost
	if cfg.IsTest {
		cost = bcrypt.MinCost
	}
	return &UserService{
		db:          db,
		cfg:         cfg,
		logger:      logger,
		policy:      cfg.Auth.PasswordPolicy(),
		bcryptCost:  cost,
		leaderboard: (*cache.Cache)(nil),
	}
}

// SetLeaderboardCache attaches the cache that Deactivate invalidates
func (s *UserService) SetLeaderboardCache(lb cache.LeaderboardCache) {
	if lb == nil {
		lb = (*cache.Cache)(nil)
	}
	s.leaderboard = lb
}

// GetDB returns the underlying connection
func (s *UserService) GetDB() *sql.DB {
	return s.db
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanUser(row rowScanner) (*models.User, error) {
	user := &models.User{}
	err := row.Scan(&user.ID, &user.Username, &user.Email, &user.PasswordHash, &user.Timezone,
		&user.IsActive, &user.IsAdmin, &user.LastLoginAt, &user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return user, nil
}

func scanProfile(row rowScanner) (*models.Profile, error) {
	p := &models.Profile{}
	var level string
	err := row.Scan(&p.UserID, &p.DisplayName, &p.NativeLanguage, &level, &p.DailyGoalMinutes,
		&p.StreakCount, &p.LongestStreak, &p.LastActivityDate, &p.PointsTotal, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	p.ProficiencyLevel = models.ProficiencyLevel(level)
	return p, nil
}

// getUserByQuery runs a single-row user query and maps no rows to ErrRecordNotFound
func (s *UserService) getUserByQuery(ctx context.Context, query string, args ...interface{}) (*models.User, error) {
	user, err := scanUser(s.db.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, contextutils.WrapError(contextutils.ErrRecordNotFound, "user not found")
	}
	if err != nil {
		return nil, contextutils.WrapError(err, "failed to load user")
	}
	return user, nil
}

func (s *UserService) hashPassword(password string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), s.bcryptCost)
	if err != nil {
		return "", contextutils.WrapError(err, "failed to hash password")
	}
	return string(hashed), nil
}

func normalizeTimezone(tz string) (string, error) {
	tz = strings.TrimSpace(tz)
	if tz == "" {
		return "UTC", nil
	}
	if _, err := time.LoadLocation(tz); err != nil {
		return "", contextutils.WrapErrorf(contextutils.ErrInvalidInput, "unknown timezone %q", tz)
	}
	return tz, nil
}

// Register creates a user and their profile. A taken username is reported as
// ErrRecordExists before any other field is validated.
func (s *UserService) Register(ctx context.Context, in RegisterInput) (result0 *models.User, err error) {
	ctx, span := observability.TraceUserFunction(ctx, "Register", attribute.String("user.username", in.Username))
	defer observability.FinishSpan(span, &err)

	if s.cfg.Auth.SignupsDisabled {
		return nil, contextutils.WrapError(contextutils.ErrForbidden, "registration is disabled")
	}

	username := strings.TrimSpace(in.Username)
	if username == "" {
		return nil, contextutils.WrapError(contextutils.ErrMissingRequired, "username cannot be empty")
	}

	var taken bool
	if err = s.db.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM users WHERE username = $1)`, username).Scan(&taken); err != nil {
		return nil, contextutils.WrapError(err, "failed to check username")
	}
	if taken {
		return nil, contextutils.WrapErrorf(contextutils.ErrRecordExists, "username %q is already taken", username)
	}

	email := strings.ToLower(strings.TrimSpace(in.Email))
	if !contextutils.IsValidEmail(email) {
		return nil, contextutils.WrapError(contextutils.ErrInvalidInput, "invalid email address")
	}
	if err = s.policy.ValidatePassword(in.Password); err != nil {
		return nil, err
	}
	timezone, err := normalizeTimezone(in.Timezone)
	if err != nil {
		return nil, err
	}
	hashed, err := s.hashPassword(in.Password)
	if err != nil {
		return nil, err
	}

	nativeLanguage := in.NativeLanguage
	if nativeLanguage == "" {
		nativeLanguage = "en"
	}
	displayName := strings.TrimSpace(in.DisplayName)
	if displayName == "" {
		displayName = username
	}

	var user *models.User
	err = database.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		row := tx.QueryRowContext(ctx,
			`INSERT INTO users (username, email, password_hash, timezone) VALUES ($1, $2, $3, $4) RETURNING `+userSelectFields,
			username, email, hashed, timezone)
		var scanErr error
		user, scanErr = scanUser(row)
		if scanErr != nil {
			return scanErr
		}
		_, execErr := tx.ExecContext(ctx,
			`INSERT INTO profiles (user_id, display_name, native_language) VALUES ($1, $2, $3)`,
			user.ID, displayName, nativeLanguage)
		return execErr
	})
	if err != nil {
		if database.IsUniqueViolation(err) {
			if database.ConstraintName(err) == "users_email_key" {
				return nil, contextutils.WrapError(contextutils.ErrRecordExists, "email is already registered")
			}
			return nil, contextutils.WrapErrorf(contextutils.ErrRecordExists, "username %q is already taken", username)
		}
		return nil, contextutils.WrapError(err, "failed to create user")
	}

	s.logger.Info(ctx, "User registered", map[string]interface{}{
		"user_id":  user.ID,
		"username": user.Username,
	})
	return user, nil
}

// Authenticate verifies credentials and stamps last_login_at
func (s *UserService) Authenticate(ctx context.Context, username, password string) (result0 *models.User, err error) {
	ctx, span := observability.TraceAuthFunction(ctx, "Authenticate", attribute.String("user.username", username))
	defer observability.FinishSpan(span, &err)

	user, err := s.getUserByQuery(ctx, `SELECT `+userSelectFields+` FROM users WHERE username = $1`, strings.TrimSpace(username))
	if err != nil {
		if contextutils.IsError(err, contextutils.ErrRecordNotFound) {
			observability.Add(ctx, observability.Metrics().AuthFailures, 1, attribute.String("reason", "unknown_user"))
			return nil, contextutils.ErrInvalidCredentials
		}
		return nil, err
	}

	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		observability.Add(ctx, observability.Metrics().AuthFailures, 1, attribute.String("reason", "bad_password"))
		return nil, contextutils.ErrInvalidCredentials
	}
	if !user.IsActive {
		return nil, contextutils.ErrAccountInactive
	}

	now := time.Now().UTC()
	if _, err = s.db.ExecContext(ctx, `UPDATE users SET last_login_at = $1 WHERE id = $2`, now, user.ID); err != nil {
		return nil, contextutils.WrapError(err, "failed to record login")
	}
	user.LastLoginAt = sql.NullTime{Time: now, Valid: true}
	return user, nil
}

// GetUserByID retrieves a user by their ID
func (s *UserService) GetUserByID(ctx context.Context, id int) (result0 *models.User, err error) {
	ctx, span := observability.TraceUserFunction(ctx, "GetUserByID", observability.AttributeUserID(id))
	defer observability.FinishSpan(span, &err)
	return s.getUserByQuery(ctx, `SELECT `+userSelectFields+` FROM users WHERE id = $1`, id)
}

// GetUserByUsername retrieves a user by username
func (s *UserService) GetUserByUsername(ctx context.Context, username string) (result0 *models.User, err error) {
	ctx, span := observability.TraceUserFunction(ctx, "GetUserByUsername", attribute.String("user.username", username))
	defer observability.FinishSpan(span, &err)
	return s.getUserByQuery(ctx, `SELECT `+userSelectFields+` FROM users WHERE username = $1`, username)
}

// GetUserByEmail retrieves a user by email, case-insensitively
func (s *UserService) GetUserByEmail(ctx context.Context, email string) (result0 *models.User, err error) {
	ctx, span := observability.TraceUserFunction(ctx, "GetUserByEmail")
	defer observability.FinishSpan(span, &err)
	return s.getUserByQuery(ctx, `SELECT `+userSelectFields+` FROM users WHERE LOWER(email) = LOWER($1)`, strings.TrimSpace(email))
}

// GetProfile loads the profile row for a user
func (s *UserService) GetProfile(ctx context.Context, userID int) (result0 *models.Profile, err error) {
	ctx, span := observability.TraceUserFunction(ctx, "GetProfile", observability.AttributeUserID(userID))
	defer observability.FinishSpan(span, &err)

	p, err := scanProfile(s.db.QueryRowContext(ctx, `SELECT `+profileSelectFields+` FROM profiles WHERE user_id = $1`, userID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, contextutils.WrapError(contextutils.ErrRecordNotFound, "profile not found")
	}
	if err != nil {
		return nil, contextutils.WrapError(err, "failed to load profile")
	}
	return p, nil
}

// GetUserWithProfile returns the account and profile together
func (s *UserService) GetUserWithProfile(ctx context.Context, userID int) (result0 *models.UserWithProfile, err error) {
	user, err := s.GetUserByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	profile, err := s.GetProfile(ctx, userID)
	if err != nil {
		return nil, err
	}
	return &models.UserWithProfile{User: *user, Profile: *profile}, nil
}

// UpdateProfile applies the non-nil fields of update
func (s *UserService) UpdateProfile(ctx context.Context, userID int, update ProfileUpdate) (result0 *models.UserWithProfile, err error) {
	ctx, span := observability.TraceUserFunction(ctx, "UpdateProfile", observability.AttributeUserID(userID))
	defer observability.FinishSpan(span, &err)

	var userSets, profileSets []string
	var userArgs, profileArgs []interface{}

	if update.Email != nil {
		email := strings.ToLower(strings.TrimSpace(*update.Email))
		if !contextutils.IsValidEmail(email) {
			return nil, contextutils.WrapError(contextutils.ErrInvalidInput, "invalid email address")
		}
		userArgs = append(userArgs, email)
		userSets = append(userSets, fmt.Sprintf("email = $%d", len(userArgs)))
	}
	if update.Timezone != nil {
		tz, tzErr := normalizeTimezone(*update.Timezone)
		if tzErr != nil {
			return nil, tzErr
		}
		userArgs = append(userArgs, tz)
		userSets = append(userSets, fmt.Sprintf("timezone = $%d", len(userArgs)))
	}
	if update.DisplayName != nil {
		profileArgs = append(profileArgs, strings.TrimSpace(*update.DisplayName))
		profileSets = append(profileSets, fmt.Sprintf("display_name = $%d", len(profileArgs)))
	}
	if update.NativeLanguage != nil {
		profileArgs = append(profileArgs, *update.NativeLanguage)
		profileSets = append(profileSets, fmt.Sprintf("native_language = $%d", len(profileArgs)))
	}
	if update.ProficiencyLevel != nil {
		if !update.ProficiencyLevel.Valid() {
			return nil, contextutils.WrapErrorf(contextutils.ErrInvalidInput, "unknown proficiency level %q", *update.ProficiencyLevel)
		}
		profileArgs = append(profileArgs, string(*update.ProficiencyLevel))
		profileSets = append(profileSets, fmt.Sprintf("proficiency_level = $%d", len(profileArgs)))
	}
	if update.DailyGoalMinutes != nil {
		if *update.DailyGoalMinutes < 1 || *update.DailyGoalMinutes > 600 {
			return nil, contextutils.WrapError(contextutils.ErrInvalidInput, "daily goal must be between 1 and 600 minutes")
		}
		profileArgs = append(profileArgs, *update.DailyGoalMinutes)
		profileSets = append(profileSets, fmt.Sprintf("daily_goal_minutes = $%d", len(profileArgs)))
	}

	err = database.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		if len(userSets) > 0 {
			userArgs = append(userArgs, userID)
			query := fmt.Sprintf("UPDATE users SET %s, updated_at = NOW() WHERE id = $%d", strings.Join(userSets, ", "), len(userArgs))
			if _, execErr := tx.ExecContext(ctx, query, userArgs...); execErr != nil {
				return execErr
			}
		}
		if len(profileSets) > 0 {
			profileArgs = append(profileArgs, userID)
			query := fmt.Sprintf("UPDATE profiles SET %s, updated_at = NOW() WHERE user_id = $%d", strings.Join(profileSets, ", "), len(profileArgs))
			if _, execErr := tx.ExecContext(ctx, query, profileArgs...); execErr != nil {
				return execErr
			}
		}
		return nil
	})
	if err != nil {
		if database.IsUniqueViolation(err) {
			return nil, contextutils.WrapError(contextutils.ErrRecordExists, "email is already registered")
		}
		if database.IsCheckViolation(err) {
			return nil, contextutils.WrapError(contextutils.ErrInvalidInput, "profile value out of range")
		}
		return nil, contextutils.WrapError(err, "failed to update profile")
	}

	return s.GetUserWithProfile(ctx, userID)
}

// ChangePassword verifies the current password before setting a new one
func (s *UserService) ChangePassword(ctx context.Context, userID int, currentPassword, newPassword string) (err error) {
	ctx, span := observability.TraceAuthFunction(ctx, "ChangePassword", observability.AttributeUserID(userID))
	defer observability.FinishSpan(span, &err)

	user, err := s.GetUserByID(ctx, userID)
	if err != nil {
		return err
	}
	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(currentPassword)) != nil {
		return contextutils.WrapError(contextutils.ErrInvalidCredentials, "current password is incorrect")
	}
	if currentPassword == newPassword {
		return contextutils.WrapError(contextutils.ErrInvalidInput, "new password must differ from the current one")
	}
	return s.SetPassword(ctx, userID, newPassword)
}

// SetPassword replaces the password hash after applying the password policy
func (s *UserService) SetPassword(ctx context.Context, userID int, newPassword string) (err error) {
	ctx, span := observability.TraceAuthFunction(ctx, "SetPassword", observability.AttributeUserID(userID))
	defer observability.FinishSpan(span, &err)

	if err = s.policy.ValidatePassword(newPassword); err != nil {
		return err
	}
	hashed, err := s.hashPassword(newPassword)
	if err != nil {
		return err
	}
	res, err := s.db.ExecContext(ctx, `UPDATE users SET password_hash = $1, updated_at = NOW() WHERE id = $2`, hashed, userID)
	if err != nil {
		return contextutils.WrapError(err, "failed to update password")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return contextutils.WrapError(contextutils.ErrRecordNotFound, "user not found")
	}
	s.logger.Info(ctx, "Password updated", map[string]interface{}{"user_id": userID})
	return nil
}

// Deactivate soft-disables an account and revokes its refresh tokens
func (s *UserService) Deactivate(ctx context.Context, userID int) (err error) {
	ctx, span := observability.TraceUserFunction(ctx, "Deactivate", observability.AttributeUserID(userID))
	defer observability.FinishSpan(span, &err)

	err = database.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		res, execErr := tx.ExecContext(ctx, `UPDATE users SET is_active = FALSE, updated_at = NOW() WHERE id = $1`, userID)
		if execErr != nil {
			return execErr
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return contextutils.WrapError(contextutils.ErrRecordNotFound, "user not found")
		}
		_, execErr = tx.ExecContext(ctx, `UPDATE refresh_tokens SET revoked_at = NOW() WHERE user_id = $1 AND revoked_at IS NULL`, userID)
		return execErr
	})
	if err != nil {
		return contextutils.WrapError(err, "failed to deactivate user")
	}
	s.leaderboard.InvalidateLeaderboards(ctx)
	s.logger.Info(ctx, "User deactivated", map[string]interface{}{"user_id": userID})
	return nil
}

// SetAdmin grants or removes the admin flag
func (s *UserService) SetAdmin(ctx context.Context, userID int, admin bool) (err error) {
	ctx, span := observability.TraceUserFunction(ctx, "SetAdmin",
		observability.AttributeUserID(userID), attribute.Bool("user.is_admin", admin))
	defer observability.FinishSpan(span, &err)

	res, err := s.db.ExecContext(ctx, `UPDATE users SET is_admin = $1, updated_at = NOW() WHERE id = $2`, admin, userID)
	if err != nil {
		return contextutils.WrapError(err, "failed to update admin flag")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return contextutils.WrapError(contextutils.ErrRecordNotFound, "user not found")
	}
	s.logger.Info(ctx, "Admin flag updated", map[string]interface{}{"user_id": userID, "is_admin": admin})
	return nil
}

// EnsureAdminUser creates the configured admin account on first start, or
// promotes an existing account with that username. An existing password is
// never overwritten. It is a no-op when username is empty.
func (s *UserService) EnsureAdminUser(ctx context.Context, username, email, password string) (err error) {
	ctx, span := observability.TraceUserFunction(ctx, "EnsureAdminUser", attribute.String("user.username", username))
	defer observability.FinishSpan(span, &err)

	if strings.TrimSpace(username) == "" {
		return nil
	}

	user, err := s.GetUserByUsername(ctx, username)
	switch {
	case err == nil:
		if user.IsAdmin {
			return nil
		}
		return s.SetAdmin(ctx, user.ID, true)
	case !contextutils.IsError(err, contextutils.ErrRecordNotFound):
		return err
	}

	if password == "" {
		return contextutils.WrapError(contextutils.ErrMissingRequired, "admin password is required to create the admin user")
	}
	if email == "" {
		email = username + "@localhost.localdomain"
	}
	user, err = s.Register(ctx, RegisterInput{Username: username, Email: email, Password: password})
	if err != nil {
		return contextutils.WrapError(err, "failed to create admin user")
	}
	if err = s.SetAdmin(ctx, user.ID, true); err != nil {
		return err
	}
	s.logger.Info(ctx, "Admin user created", map[string]interface{}{"user_id": user.ID, "username": username})
	return nil
}

// ListUsers returns a page of users matching search on username or email
func (s *UserService) ListUsers(ctx context.Context, page, pageSize int, search string) (result0 []models.User, result1 int, err error) {
	ctx, span := observability.TraceUserFunction(ctx, "ListUsers", observability.AttributePage(page))
	defer observability.FinishSpan(span, &err)

	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 20
	}
	pattern := "%" + strings.ToLower(strings.TrimSpace(search)) + "%"

	var total int
	err = s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM users WHERE LOWER(username) LIKE $1 OR LOWER(email) LIKE $1`, pattern).Scan(&total)
	if err != nil {
		return nil, 0, contextutils.WrapError(err, "failed to count users")
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT `+userSelectFields+` FROM users WHERE LOWER(username) LIKE $1 OR LOWER(email) LIKE $1
		 ORDER BY id LIMIT $2 OFFSET $3`, pattern, pageSize, (page-1)*pageSize)
	if err != nil {
		return nil, 0, contextutils.WrapError(err, "failed to list users")
	}
	defer func() { _ = rows.Close() }()

	users := []models.User{}
	for rows.Next() {
		u, scanErr := scanUser(rows)
		if scanErr != nil {
			return nil, 0, contextutils.WrapError(scanErr, "failed to scan user")
		}
		users = append(users, *u)
	}
	return users, total, rows.Err()
}
