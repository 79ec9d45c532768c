package commands

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"telugulearn/internal/models"
	"telugulearn/internal/observability"
	"telugulearn/internal/services"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockCatalogSeeder struct{ mock.Mock }

func (m *mockCatalogSeeder) SeedCatalog(ctx context.Context, seed services.CatalogSeed) (int, int, error) {
	args := m.Called(ctx, seed)
	return args.Int(0), args.Int(1), args.Error(2)
}

type mockCurriculumSeeder struct{ mock.Mock }

func (m *mockCurriculumSeeder) SeedCurriculum(ctx context.Context, courses []services.CourseSeed) (int, error) {
	args := m.Called(ctx, courses)
	return args.Int(0), args.Error(1)
}

type mockUserDirectory struct{ mock.Mock }

func (m *mockUserDirectory) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	args := m.Called(ctx, username)
	user, _ := args.Get(0).(*models.User)
	return user, args.Error(1)
}

func (m *mockUserDirectory) ListUsers(ctx context.Context, page, pageSize int, search string) ([]models.User, int, error) {
	args := m.Called(ctx, page, pageSize, search)
	users, _ := args.Get(0).([]models.User)
	return users, args.Int(1), args.Error(2)
}

type mockAwardEvaluator struct{ mock.Mock }

func (m *mockAwardEvaluator) EvaluateAwards(ctx context.Context, userID int) (*models.ActivityOutcome, error) {
	args := m.Called(ctx, userID)
	outcome, _ := args.Get(0).(*models.ActivityOutcome)
	return outcome, args.Error(1)
}

type mockMigrator struct{ mock.Mock }

func (m *mockMigrator) RunMigrations(ctx context.Context, databaseURL, migrationsPath string) error {
	return m.Called(ctx, databaseURL, migrationsPath).Error(0)
}

func (m *mockMigrator) MigrateDown(ctx context.Context, databaseURL, migrationsPath string, steps int) error {
	return m.Called(ctx, databaseURL, migrationsPath, steps).Error(0)
}

func (m *mockMigrator) MigrationVersion(databaseURL, migrationsPath string) (uint, bool, error) {
	args := m.Called(databaseURL, migrationsPath)
	return args.Get(0).(uint), args.Bool(1), args.Error(2)
}

func TestMaskDatabaseURL(t *testing.T) {
	assert.Equal(t, "postgres://***:***@db:5432/telugu?sslmode=disable",
		maskDatabaseURL("postgres://learner:secret@db:5432/telugu?sslmode=disable"))
	assert.Equal(t, "postgres://db/telugu", maskDatabaseURL("postgres://db/telugu"))
}

func TestSeedCatalogCommand(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
badges:
  - code: first_steps
    name: First Steps
    requirement_type: activities_completed
    requirement_value: 1
`), 0o600))

	catalog := &mockCatalogSeeder{}
	catalog.On("SeedCatalog", mock.Anything, mock.MatchedBy(func(seed services.CatalogSeed) bool {
		return len(seed.Badges) == 1 && seed.Badges[0].Code == "first_steps"
	})).Return(1, 0, nil).Once()

	cmd := SeedCommands(catalog, &mockCurriculumSeeder{}, observability.NewNopLogger())
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"catalog", "--file", path})
	require.NoError(t, cmd.ExecuteContext(context.Background()))

	assert.Contains(t, out.String(), "Seeded 1 badges and 0 achievements")
	catalog.AssertExpectations(t)
}

func TestSeedCurriculumCommand_PropagatesErrors(t *testing.T) {
	path := filepath.Join(t.TempDir(), "curriculum.yaml")
	require.NoError(t, os.WriteFile(path, []byte("courses:\n  - title: Foundations\n"), 0o600))

	curriculum := &mockCurriculumSeeder{}
	curriculum.On("SeedCurriculum", mock.Anything, mock.Anything).Return(0, errors.New("cycle")).Once()

	cmd := SeedCommands(&mockCatalogSeeder{}, curriculum, observability.NewNopLogger())
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"curriculum", "--file", path})
	assert.Error(t, cmd.ExecuteContext(context.Background()))
	curriculum.AssertExpectations(t)
}

func TestDatabaseCommands_MigrateAndDown(t *testing.T) {
	const dbURL = "postgres://db/telugu"
	migrator := &mockMigrator{}
	migrator.On("RunMigrations", mock.Anything, dbURL, "").Return(nil).Once()
	migrator.On("MigrateDown", mock.Anything, dbURL, "", 2).Return(nil).Once()
	migrator.On("MigrationVersion", dbURL, "").Return(uint(2), false, nil)

	run := func(args ...string) string {
		cmd := DatabaseCommands(migrator, nil, dbURL, "", observability.NewNopLogger())
		var out bytes.Buffer
		cmd.SetOut(&out)
		cmd.SetArgs(args)
		require.NoError(t, cmd.ExecuteContext(context.Background()))
		return out.String()
	}

	assert.Contains(t, run("migrate"), "Schema version 2 (dirty=false)")
	assert.Contains(t, run("down", "--steps", "2"), "Schema version 2")
	assert.Contains(t, run("version"), "Schema version 2")
	migrator.AssertExpectations(t)
}

func TestAwardsReevaluateCommand_AllActiveUsers(t *testing.T) {
	users := &mockUserDirectory{}
	users.On("ListUsers", mock.Anything, 1, reevaluatePageSize, "").Return([]models.User{
		{ID: 1, Username: "anil", IsActive: true},
		{ID: 2, Username: "bhanu", IsActive: false},
	}, 3, nil).Once()
	users.On("ListUsers", mock.Anything, 2, reevaluatePageSize, "").Return([]models.User{
		{ID: 3, Username: "chitra", IsActive: true},
	}, 3, nil).Once()

	evaluator := &mockAwardEvaluator{}
	evaluator.On("EvaluateAwards", mock.Anything, 1).Return(&models.ActivityOutcome{
		NewBadges: []models.Badge{{Code: "first_steps"}},
	}, nil).Once()
	evaluator.On("EvaluateAwards", mock.Anything, 3).Return(&models.ActivityOutcome{}, nil).Once()

	cmd := AwardCommands(users, evaluator, observability.NewNopLogger())
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"reevaluate"})
	require.NoError(t, cmd.ExecuteContext(context.Background()))

	assert.Contains(t, out.String(), "anil")
	assert.NotContains(t, out.String(), "chitra")
	assert.Contains(t, out.String(), "Evaluated 2 users: 1 badges and 0 achievements granted")
	evaluator.AssertNotCalled(t, "EvaluateAwards", mock.Anything, 2)
	users.AssertExpectations(t)
	evaluator.AssertExpectations(t)
}

func TestAwardsReevaluateCommand_SingleUser(t *testing.T) {
	users := &mockUserDirectory{}
	users.On("GetUserByUsername", mock.Anything, "anil").Return(&models.User{ID: 7, Username: "anil", IsActive: true}, nil).Once()

	evaluator := &mockAwardEvaluator{}
	evaluator.On("EvaluateAwards", mock.Anything, 7).Return(&models.ActivityOutcome{
		NewAchievements: []models.Achievement{{Code: "hundred_words"}},
	}, nil).Once()

	cmd := AwardCommands(users, evaluator, observability.NewNopLogger())
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"reevaluate", "--user", "anil"})
	require.NoError(t, cmd.ExecuteContext(context.Background()))

	assert.Contains(t, out.String(), "Evaluated 1 users: 0 badges and 1 achievements granted")
	users.AssertNotCalled(t, "ListUsers", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	evaluator.AssertExpectations(t)
}

func TestAwardsReevaluateCommand_PropagatesErrors(t *testing.T) {
	users := &mockUserDirectory{}
	users.On("ListUsers", mock.Anything, 1, reevaluatePageSize, "").Return([]models.User{
		{ID: 1, Username: "anil", IsActive: true},
	}, 1, nil).Once()

	evaluator := &mockAwardEvaluator{}
	evaluator.On("EvaluateAwards", mock.Anything, 1).Return(nil, errors.New("catalog unavailable")).Once()

	cmd := AwardCommands(users, evaluator, observability.NewNopLogger())
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"reevaluate"})
	err := cmd.ExecuteContext(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "anil")
}
