package services

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"telugulearn/internal/models"
	"telugulearn/internal/observability"
	contextutils "telugulearn/internal/utils"

	"go.opentelemetry.io/otel/attribute"
)

// Progress report window bounds, in days
const (
	DefaultProgressDays = 7
	MaxProgressDays     = 365
)

// AnalyticsServiceInterface reports learning progress over time
type AnalyticsServiceInterface interface {
	Progress(ctx context.Context, userID, days int) (*models.ProgressReport, error)
}

// AnalyticsService implements AnalyticsServiceInterface
type AnalyticsService struct {
	db     *sql.DB
	logger *observability.Logger
	now    func() time.Time
}

var _ AnalyticsServiceInterface = (*AnalyticsService)(nil)

// NewAnalyticsServiceWithLogger creates a new AnalyticsService
func NewAnalyticsServiceWithLogger(db *sql.DB, logger *observability.Logger) *AnalyticsService {
	return &AnalyticsService{db: db, logger: logger, now: time.Now}
}

// Progress returns one row per calendar day of the user's timezone for the
// last `days` days, today included. Days without activity are zero rows.
func (s *AnalyticsService) Progress(ctx context.Context, userID, days int) (result0 *models.ProgressReport, err error) {
	ctx, span := observability.TracePersonalizationFunction(ctx, "Progress",
		observability.AttributeUserID(userID), attribute.Int("analytics.days", days))
	defer observability.FinishSpan(span, &err)

	if days == 0 {
		days = DefaultProgressDays
	}
	if days < 0 || days > MaxProgressDays {
		return nil, contextutils.WrapErrorf(contextutils.ErrInvalidInput, "days must be between 1 and %d", MaxProgressDays)
	}

	var timezone string
	err = s.db.QueryRowContext(ctx, `SELECT timezone FROM users WHERE id = $1`, userID).Scan(&timezone)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, contextutils.WrapError(contextutils.ErrRecordNotFound, "user not found")
	}
	if err != nil {
		return nil, contextutils.WrapError(err, "failed to load user timezone")
	}
	loc, tzName := contextutils.LoadUserLocation(timezone)
	start, end := contextutils.LocalDayRange(s.now(), days, tzName)

	report := &models.ProgressReport{
		Days:           days,
		Daily:          make([]models.DailyProgress, 0, days),
		ByActivityType: map[string]int{},
	}
	index := make(map[string]int, days)
	first := contextutils.CalendarDay(start, loc)
	for i := 0; i < days; i++ {
		date := first.AddDate(0, 0, i).Format(contextutils.DateLayout)
		index[date] = i
		report.Daily = append(report.Daily, models.DailyProgress{Date: date})
	}
	report.From = report.Daily[0].Date
	report.To = report.Daily[len(report.Daily)-1].Date

	rows, err := s.db.QueryContext(ctx,
		`SELECT to_char((created_at AT TIME ZONE $4)::date, 'YYYY-MM-DD') AS day,
		        COUNT(*),
		        COALESCE(SUM(points), 0),
		        COALESCE(SUM(duration_seconds), 0),
		        COUNT(*) FILTER (WHERE activity_type = 'vocabulary_practice')
		 FROM user_activity_log
		 WHERE user_id = $1 AND created_at >= $2 AND created_at < $3
		 GROUP BY day`,
		userID, start, end, tzName)
	if err != nil {
		return nil, contextutils.WrapError(err, "failed to aggregate activity")
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		var (
			day                    string
			count, points, seconds int
			practiced              int
		)
		if err := rows.Scan(&day, &count, &points, &seconds, &practiced); err != nil {
			return nil, contextutils.WrapError(err, "failed to scan daily progress")
		}
		i, ok := index[day]
		if !ok {
			continue
		}
		report.Daily[i] = models.DailyProgress{
			Date:          day,
			Activities:    count,
			Points:        points,
			Minutes:       seconds / 60,
			WordsPractice: practiced,
		}
	}
	if err := rows.Err(); err != nil {
		return nil, contextutils.WrapError(err, "failed to read daily progress")
	}

	for _, d := range report.Daily {
		report.TotalActivities += d.Activities
		report.TotalPoints += d.Points
		report.TotalMinutes += d.Minutes
		if d.Activities > 0 {
			report.ActiveDays++
		}
	}

	typeRows, err := s.db.QueryContext(ctx,
		`SELECT activity_type, COUNT(*) FROM user_activity_log
		 WHERE user_id = $1 AND created_at >= $2 AND created_at < $3
		 GROUP BY activity_type`, userID, start, end)
	if err != nil {
		return nil, contextutils.WrapError(err, "failed to aggregate activity types")
	}
	defer func() { _ = typeRows.Close() }()
	for typeRows.Next() {
		var (
			activityType string
			count        int
		)
		if err := typeRows.Scan(&activityType, &count); err != nil {
			return nil, contextutils.WrapError(err, "failed to scan activity type")
		}
		report.ByActivityType[activityType] = count
	}
	return report, typeRows.Err()
}
