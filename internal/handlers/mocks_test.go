package handlers

import (
	"context"
	"database/sql"
	"time"

	"telugulearn/internal/models"
	"telugulearn/internal/services"

	"github.com/stretchr/testify/mock"
)

// MockAuthService is a testify mock of services.AuthServiceInterface
type MockAuthService struct {
	mock.Mock
}

var _ services.AuthServiceInterface = (*MockAuthService)(nil)

func (m *MockAuthService) IssueTokens(ctx context.Context, user *models.User) (*models.TokenPair, error) {
	args := m.Called(ctx, user)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.TokenPair), args.Error(1)
}

func (m *MockAuthService) ParseAccessToken(tokenString string) (*services.AccessClaims, error) {
	args := m.Called(tokenString)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*services.AccessClaims), args.Error(1)
}

func (m *MockAuthService) Refresh(ctx context.Context, refreshToken string) (*models.TokenPair, error) {
	args := m.Called(ctx, refreshToken)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.TokenPair), args.Error(1)
}

func (m *MockAuthService) Revoke(ctx context.Context, refreshToken string) error {
	args := m.Called(ctx, refreshToken)
	return args.Error(0)
}

func (m *MockAuthService) RevokeAllForUser(ctx context.Context, userID int) error {
	args := m.Called(ctx, userID)
	return args.Error(0)
}

func (m *MockAuthService) RequestPasswordReset(ctx context.Context, email string) error {
	args := m.Called(ctx, email)
	return args.Error(0)
}

func (m *MockAuthService) ConfirmPasswordReset(ctx context.Context, resetToken string, newPassword string) error {
	args := m.Called(ctx, resetToken, newPassword)
	return args.Error(0)
}

func (m *MockAuthService) PurgeExpiredTokens(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}

// MockUserService is a testify mock of services.UserServiceInterface
type MockUserService struct {
	mock.Mock
}

var _ services.UserServiceInterface = (*MockUserService)(nil)

func (m *MockUserService) Register(ctx context.Context, in services.RegisterInput) (*models.User, error) {
	args := m.Called(ctx, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockUserService) Authenticate(ctx context.Context, username string, password string) (*models.User, error) {
	args := m.Called(ctx, username, password)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockUserService) GetUserByID(ctx context.Context, id int) (*models.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockUserService) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	args := m.Called(ctx, username)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockUserService) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockUserService) GetProfile(ctx context.Context, userID int) (*models.Profile, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Profile), args.Error(1)
}

func (m *MockUserService) GetUserWithProfile(ctx context.Context, userID int) (*models.UserWithProfile, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.UserWithProfile), args.Error(1)
}

func (m *MockUserService) UpdateProfile(ctx context.Context, userID int, update services.ProfileUpdate) (*models.UserWithProfile, error) {
	args := m.Called(ctx, userID, update)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.UserWithProfile), args.Error(1)
}

func (m *MockUserService) ChangePassword(ctx context.Context, userID int, currentPassword string, newPassword string) error {
	args := m.Called(ctx, userID, currentPassword, newPassword)
	return args.Error(0)
}

func (m *MockUserService) SetPassword(ctx context.Context, userID int, newPassword string) error {
	args := m.Called(ctx, userID, newPassword)
	return args.Error(0)
}

func (m *MockUserService) Deactivate(ctx context.Context, userID int) error {
	args := m.Called(ctx, userID)
	return args.Error(0)
}

func (m *MockUserService) ListUsers(ctx context.Context, page int, pageSize int, search string) ([]models.User, int, error) {
	args := m.Called(ctx, page, pageSize, search)
	if args.Get(0) == nil {
		return nil, args.Int(1), args.Error(2)
	}
	return args.Get(0).([]models.User), args.Int(1), args.Error(2)
}

func (m *MockUserService) SetAdmin(ctx context.Context, userID int, admin bool) error {
	args := m.Called(ctx, userID, admin)
	return args.Error(0)
}

func (m *MockUserService) EnsureAdminUser(ctx context.Context, username string, email string, password string) error {
	args := m.Called(ctx, username, email, password)
	return args.Error(0)
}

func (m *MockUserService) GetDB() *sql.DB {
	args := m.Called()
	if args.Get(0) == nil {
		return nil
	}
	return args.Get(0).(*sql.DB)
}

// MockVocabularyService is a testify mock of services.VocabularyServiceInterface
type MockVocabularyService struct {
	mock.Mock
}

var _ services.VocabularyServiceInterface = (*MockVocabularyService)(nil)

func (m *MockVocabularyService) AddWord(ctx context.Context, userID int, input services.WordInput) (*models.VocabularyWord, error) {
	args := m.Called(ctx, userID, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.VocabularyWord), args.Error(1)
}

func (m *MockVocabularyService) GetWord(ctx context.Context, userID int, wordID int) (*models.VocabularyWord, error) {
	args := m.Called(ctx, userID, wordID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.VocabularyWord), args.Error(1)
}

func (m *MockVocabularyService) ListWords(ctx context.Context, userID int, filter models.VocabularyFilter) ([]models.VocabularyWord, int, error) {
	args := m.Called(ctx, userID, filter)
	if args.Get(0) == nil {
		return nil, args.Int(1), args.Error(2)
	}
	return args.Get(0).([]models.VocabularyWord), args.Int(1), args.Error(2)
}

func (m *MockVocabularyService) DeleteWord(ctx context.Context, userID int, wordID int) error {
	args := m.Called(ctx, userID, wordID)
	return args.Error(0)
}

func (m *MockVocabularyService) Practice(ctx context.Context, userID int, wordID int, correct bool) (*models.PracticeResult, error) {
	args := m.Called(ctx, userID, wordID, correct)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.PracticeResult), args.Error(1)
}

func (m *MockVocabularyService) MasteryBreakdown(ctx context.Context, userID int) (*models.MasteryBreakdown, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.MasteryBreakdown), args.Error(1)
}

func (m *MockVocabularyService) ReviewCandidates(ctx context.Context, userID int, limit int) ([]models.VocabularyWord, error) {
	args := m.Called(ctx, userID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.VocabularyWord), args.Error(1)
}

func (m *MockVocabularyService) ImportWords(ctx context.Context, userID int, entries []services.WordInput) (*services.ImportResult, error) {
	args := m.Called(ctx, userID, entries)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*services.ImportResult), args.Error(1)
}

func (m *MockVocabularyService) ExportWords(ctx context.Context, userID int) ([]models.VocabularyWord, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.VocabularyWord), args.Error(1)
}

// MockChapterService is a testify mock of services.ChapterServiceInterface
type MockChapterService struct {
	mock.Mock
}

var _ services.ChapterServiceInterface = (*MockChapterService)(nil)

func (m *MockChapterService) ListCourses(ctx context.Context) ([]models.Course, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Course), args.Error(1)
}

func (m *MockChapterService) ListChapters(ctx context.Context, courseID int) ([]models.Chapter, error) {
	args := m.Called(ctx, courseID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Chapter), args.Error(1)
}

func (m *MockChapterService) GetChapter(ctx context.Context, chapterID int) (*models.Chapter, error) {
	args := m.Called(ctx, chapterID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Chapter), args.Error(1)
}

func (m *MockChapterService) CheckAccess(ctx context.Context, userID int, chapterID int) (*models.ChapterAccess, error) {
	args := m.Called(ctx, userID, chapterID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.ChapterAccess), args.Error(1)
}

func (m *MockChapterService) RecordProgress(ctx context.Context, userID int, chapterID int, score int) (*models.ProgressOutcome, error) {
	args := m.Called(ctx, userID, chapterID, score)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.ProgressOutcome), args.Error(1)
}

func (m *MockChapterService) GetProgress(ctx context.Context, userID int) (map[int]models.ChapterProgress, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[int]models.ChapterProgress), args.Error(1)
}

func (m *MockChapterService) LearningPath(ctx context.Context, userID int) ([]models.LearningPathEntry, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.LearningPathEntry), args.Error(1)
}

func (m *MockChapterService) NextChapter(ctx context.Context, userID int) (*models.Chapter, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Chapter), args.Error(1)
}

func (m *MockChapterService) SeedCurriculum(ctx context.Context, courses []services.CourseSeed) (int, error) {
	args := m.Called(ctx, courses)
	return args.Int(0), args.Error(1)
}

// MockNotificationService is a testify mock of services.NotificationServiceInterface
type MockNotificationService struct {
	mock.Mock
}

var _ services.NotificationServiceInterface = (*MockNotificationService)(nil)

func (m *MockNotificationService) Create(ctx context.Context, userID int, notificationType string, title string, body string) (*models.Notification, error) {
	args := m.Called(ctx, userID, notificationType, title, body)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Notification), args.Error(1)
}

func (m *MockNotificationService) List(ctx context.Context, userID int, page int, pageSize int, unreadOnly bool) ([]models.Notification, int, error) {
	args := m.Called(ctx, userID, page, pageSize, unreadOnly)
	if args.Get(0) == nil {
		return nil, args.Int(1), args.Error(2)
	}
	return args.Get(0).([]models.Notification), args.Int(1), args.Error(2)
}

func (m *MockNotificationService) MarkRead(ctx context.Context, userID int, notificationID int) error {
	args := m.Called(ctx, userID, notificationID)
	return args.Error(0)
}

func (m *MockNotificationService) MarkAllRead(ctx context.Context, userID int) (int64, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockNotificationService) UnreadCount(ctx context.Context, userID int) (int, error) {
	args := m.Called(ctx, userID)
	return args.Int(0), args.Error(1)
}

func (m *MockNotificationService) DeleteReadOlderThan(ctx context.Context, age time.Duration) (int64, error) {
	args := m.Called(ctx, age)
	return args.Get(0).(int64), args.Error(1)
}

// MockGamificationService is a testify mock of services.GamificationServiceInterface
type MockGamificationService struct {
	mock.Mock
}

var _ services.GamificationServiceInterface = (*MockGamificationService)(nil)

func (m *MockGamificationService) RecordActivity(ctx context.Context, userID int, input services.ActivityInput) (*models.ActivityOutcome, error) {
	args := m.Called(ctx, userID, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.ActivityOutcome), args.Error(1)
}

func (m *MockGamificationService) EvaluateAwards(ctx context.Context, userID int) (*models.ActivityOutcome, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.ActivityOutcome), args.Error(1)
}

func (m *MockGamificationService) ListBadges(ctx context.Context) ([]models.Badge, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Badge), args.Error(1)
}

func (m *MockGamificationService) UserBadges(ctx context.Context, userID int) ([]models.UserBadge, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.UserBadge), args.Error(1)
}

func (m *MockGamificationService) Leaderboard(ctx context.Context, period models.LeaderboardPeriod, limit int) ([]models.LeaderboardEntry, error) {
	args := m.Called(ctx, period, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.LeaderboardEntry), args.Error(1)
}

func (m *MockGamificationService) Rank(ctx context.Context, userID int, period models.LeaderboardPeriod) (*models.LeaderboardEntry, error) {
	args := m.Called(ctx, userID, period)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.LeaderboardEntry), args.Error(1)
}

func (m *MockGamificationService) TodayChallenge(ctx context.Context, userID int) (*models.DailyChallengeStatus, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.DailyChallengeStatus), args.Error(1)
}

func (m *MockGamificationService) CompleteDailyChallenge(ctx context.Context, userID int) (*models.ActivityOutcome, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.ActivityOutcome), args.Error(1)
}

func (m *MockGamificationService) EnsureDailyChallenge(ctx context.Context, date time.Time) (*models.DailyChallenge, error) {
	args := m.Called(ctx, date)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.DailyChallenge), args.Error(1)
}

func (m *MockGamificationService) Achievements(ctx context.Context, userID int) ([]models.AchievementProgress, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.AchievementProgress), args.Error(1)
}

func (m *MockGamificationService) Stats(ctx context.Context, userID int) (*models.UserStats, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.UserStats), args.Error(1)
}

func (m *MockGamificationService) RecentActivity(ctx context.Context, userID int, limit int) ([]models.ActivityLog, error) {
	args := m.Called(ctx, userID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.ActivityLog), args.Error(1)
}

func (m *MockGamificationService) SweepStreaks(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockGamificationService) SeedCatalog(ctx context.Context, seed services.CatalogSeed) (int, int, error) {
	args := m.Called(ctx, seed)
	return args.Int(0), args.Int(1), args.Error(2)
}

// MockPersonalizationService is a testify mock of services.PersonalizationServiceInterface
type MockPersonalizationService struct {
	mock.Mock
}

var _ services.PersonalizationServiceInterface = (*MockPersonalizationService)(nil)

func (m *MockPersonalizationService) ListGoals(ctx context.Context, userID int) ([]models.LearningGoal, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.LearningGoal), args.Error(1)
}

func (m *MockPersonalizationService) CreateGoal(ctx context.Context, userID int, input services.GoalInput) (*models.LearningGoal, error) {
	args := m.Called(ctx, userID, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.LearningGoal), args.Error(1)
}

func (m *MockPersonalizationService) UpdateGoal(ctx context.Context, userID int, goalID int, update services.GoalUpdate) (*models.LearningGoal, error) {
	args := m.Called(ctx, userID, goalID, update)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.LearningGoal), args.Error(1)
}

func (m *MockPersonalizationService) DeleteGoal(ctx context.Context, userID int, goalID int) error {
	args := m.Called(ctx, userID, goalID)
	return args.Error(0)
}

func (m *MockPersonalizationService) SubmitAssessment(ctx context.Context, userID int, totalQuestions int, correctAnswers int) (*models.Assessment, error) {
	args := m.Called(ctx, userID, totalQuestions, correctAnswers)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Assessment), args.Error(1)
}

func (m *MockPersonalizationService) StartSession(ctx context.Context, userID int, activityType string) (*models.LearningSession, error) {
	args := m.Called(ctx, userID, activityType)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.LearningSession), args.Error(1)
}

func (m *MockPersonalizationService) EndSession(ctx context.Context, userID int, sessionID int, end services.SessionEnd) (*models.LearningSession, error) {
	args := m.Called(ctx, userID, sessionID, end)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.LearningSession), args.Error(1)
}

func (m *MockPersonalizationService) Dashboard(ctx context.Context, userID int) (*models.Dashboard, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Dashboard), args.Error(1)
}

// MockAnalyticsService is a testify mock of services.AnalyticsServiceInterface
type MockAnalyticsService struct {
	mock.Mock
}

var _ services.AnalyticsServiceInterface = (*MockAnalyticsService)(nil)

func (m *MockAnalyticsService) Progress(ctx context.Context, userID int, days int) (*models.ProgressReport, error) {
	args := m.Called(ctx, userID, days)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.ProgressReport), args.Error(1)
}

// MockAIService is a testify mock of services.AIServiceInterface
type MockAIService struct {
	mock.Mock
}

var _ services.AIServiceInterface = (*MockAIService)(nil)

func (m *MockAIService) Enabled() bool {
	args := m.Called()
	return args.Bool(0)
}

func (m *MockAIService) GenerateActivity(ctx context.Context, userID int, req models.GenerateActivityRequest) (*models.GeneratedActivity, error) {
	args := m.Called(ctx, userID, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.GeneratedActivity), args.Error(1)
}

func (m *MockAIService) ListActivities(ctx context.Context, userID int, page int, pageSize int) ([]models.GeneratedActivity, int, error) {
	args := m.Called(ctx, userID, page, pageSize)
	if args.Get(0) == nil {
		return nil, args.Int(1), args.Error(2)
	}
	return args.Get(0).([]models.GeneratedActivity), args.Int(1), args.Error(2)
}

func (m *MockAIService) GetActivity(ctx context.Context, userID int, activityID int) (*models.GeneratedActivity, error) {
	args := m.Called(ctx, userID, activityID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.GeneratedActivity), args.Error(1)
}

func (m *MockAIService) Chat(ctx context.Context, userID int, message string) (*models.ChatMessage, error) {
	args := m.Called(ctx, userID, message)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.ChatMessage), args.Error(1)
}

func (m *MockAIService) ChatHistory(ctx context.Context, userID int, limit int) ([]models.ChatMessage, error) {
	args := m.Called(ctx, userID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.ChatMessage), args.Error(1)
}

func (m *MockAIService) GetConcurrencyStats() services.ConcurrencyStats {
	args := m.Called()
	return args.Get(0).(services.ConcurrencyStats)
}

func (m *MockAIService) Shutdown(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}
