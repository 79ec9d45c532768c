package services

import (
	"context"
	"database/sql"
	"errors"
	"strconv"
	"strings"

	"telugulearn/internal/database"
	"telugulearn/internal/models"
	"telugulearn/internal/observability"
	contextutils "telugulearn/internal/utils"

	"go.opentelemetry.io/otel/attribute"
)

// ChapterSeed describes a chapter and its prerequisites by title
type ChapterSeed struct {
	Title         string             `yaml:"title"`
	Description   string             `yaml:"description"`
	Level         string             `yaml:"level"`
	PassScore     int                `yaml:"pass_score"`
	Prerequisites []PrerequisiteSeed `yaml:"prerequisites"`
}

// PrerequisiteSeed names a prerequisite chapter within the same course
type PrerequisiteSeed struct {
	Title  string `yaml:"title"`
	Strict *bool  `yaml:"strict"`
}

// CourseSeed is a course with its ordered chapters
type CourseSeed struct {
	Title       string        `yaml:"title"`
	Description string        `yaml:"description"`
	Level       string        `yaml:"level"`
	Chapters    []ChapterSeed `yaml:"chapters"`
}

// ActivityRecorder records a completed activity inside the caller's
// transaction and runs its side effects after commit
type ActivityRecorder interface {
	RecordActivityTx(ctx context.Context, tx *sql.Tx, userID int, input ActivityInput) (*RecordedActivity, error)
	ActivityCommitted(ctx context.Context, recorded *RecordedActivity)
}

var _ ActivityRecorder = (*GamificationService)(nil)

// ChapterServiceInterface covers courses, chapters, prerequisites and progress
type ChapterServiceInterface interface {
	ListCourses(ctx context.Context) ([]models.Course, error)
	ListChapters(ctx context.Context, courseID int) ([]models.Chapter, error)
	GetChapter(ctx context.Context, chapterID int) (*models.Chapter, error)
	CheckAccess(ctx context.Context, userID, chapterID int) (*models.ChapterAccess, error)
	RecordProgress(ctx context.Context, userID, chapterID, score int) (*models.ProgressOutcome, error)
	GetProgress(ctx context.Context, userID int) (map[int]models.ChapterProgress, error)
	LearningPath(ctx context.Context, userID int) ([]models.LearningPathEntry, error)
	NextChapter(ctx context.Context, userID int) (*models.Chapter, error)
	SeedCurriculum(ctx context.Context, courses []CourseSeed) (int, error)
}

// ChapterService implements ChapterServiceInterface
type ChapterService struct {
	db         *sql.DB
	logger     *observability.Logger
	activities ActivityRecorder
}

var _ ChapterServiceInterface = (*ChapterService)(nil)

// NewChapterServiceWithLogger creates a new ChapterService. When activities
// is set, passing a chapter for the first time is recorded as an activity.
func NewChapterServiceWithLogger(db *sql.DB, activities ActivityRecorder, logger *observability.Logger) *ChapterService {
	return &ChapterService{db: db, logger: logger, activities: activities}
}

// ListCourses returns all courses in display order
func (s *ChapterService) ListCourses(ctx context.Context) (result0 []models.Course, err error) {
	ctx, span := observability.TraceChapterFunction(ctx, "ListCourses")
	defer observability.FinishSpan(span, &err)

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, title, description, level, sort_order, created_at FROM courses ORDER BY sort_order, id`)
	if err != nil {
		return nil, contextutils.WrapError(err, "failed to list courses")
	}
	defer func() { _ = rows.Close() }()

	courses := []models.Course{}
	for rows.Next() {
		var c models.Course
		if err := rows.Scan(&c.ID, &c.Title, &c.Description, &c.Level, &c.SortOrder, &c.CreatedAt); err != nil {
			return nil, contextutils.WrapError(err, "failed to scan course")
		}
		courses = append(courses, c)
	}
	return courses, rows.Err()
}

// loadDependencies returns prerequisite edges keyed by chapter id
func (s *ChapterService) loadDependencies(ctx context.Context, chapterID int) (map[int][]models.ChapterDependency, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT d.chapter_id, d.prerequisite_id, p.title, d.is_strict
		 FROM chapter_dependencies d JOIN chapters p ON p.id = d.prerequisite_id
		 WHERE $1 = 0 OR d.chapter_id = $1
		 ORDER BY d.chapter_id, p.sort_order, p.id`, chapterID)
	if err != nil {
		return nil, contextutils.WrapError(err, "failed to load prerequisites")
	}
	defer func() { _ = rows.Close() }()

	deps := map[int][]models.ChapterDependency{}
	for rows.Next() {
		var d models.ChapterDependency
		if err := rows.Scan(&d.ChapterID, &d.PrerequisiteID, &d.PrerequisiteTitle, &d.IsStrict); err != nil {
			return nil, contextutils.WrapError(err, "failed to scan prerequisite")
		}
		deps[d.ChapterID] = append(deps[d.ChapterID], d)
	}
	return deps, rows.Err()
}

const chapterColumns = `c.id, c.course_id, c.title, c.description, c.sort_order, c.level, c.pass_score, c.created_at`

func scanChapter(row rowScanner) (*models.Chapter, error) {
	ch := &models.Chapter{}
	err := row.Scan(&ch.ID, &ch.CourseID, &ch.Title, &ch.Description, &ch.SortOrder, &ch.Level, &ch.PassScore, &ch.CreatedAt)
	return ch, err
}

// ListChapters returns chapters of a course, or of every course when
// courseID is zero, ordered by course and position.
func (s *ChapterService) ListChapters(ctx context.Context, courseID int) (result0 []models.Chapter, err error) {
	ctx, span := observability.TraceChapterFunction(ctx, "ListChapters", attribute.Int("course.id", courseID))
	defer observability.FinishSpan(span, &err)

	rows, err := s.db.QueryContext(ctx,
		`SELECT `+chapterColumns+`
		 FROM chapters c JOIN courses co ON co.id = c.course_id
		 WHERE $1 = 0 OR c.course_id = $1
		 ORDER BY co.sort_order, co.id, c.sort_order, c.id`, courseID)
	if err != nil {
		return nil, contextutils.WrapError(err, "failed to list chapters")
	}
	defer func() { _ = rows.Close() }()

	chapters := []models.Chapter{}
	for rows.Next() {
		ch, err := scanChapter(rows)
		if err != nil {
			return nil, contextutils.WrapError(err, "failed to scan chapter")
		}
		chapters = append(chapters, *ch)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	deps, err := s.loadDependencies(ctx, 0)
	if err != nil {
		return nil, err
	}
	for i := range chapters {
		chapters[i].Prerequisites = deps[chapters[i].ID]
	}
	return chapters, nil
}

// GetChapter returns a chapter with its prerequisites
func (s *ChapterService) GetChapter(ctx context.Context, chapterID int) (result0 *models.Chapter, err error) {
	ctx, span := observability.TraceChapterFunction(ctx, "GetChapter", observability.AttributeChapterID(chapterID))
	defer observability.FinishSpan(span, &err)

	ch, err := scanChapter(s.db.QueryRowContext(ctx,
		`SELECT `+chapterColumns+` FROM chapters c WHERE c.id = $1`, chapterID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, contextutils.WrapError(contextutils.ErrRecordNotFound, "chapter not found")
	}
	if err != nil {
		return nil, contextutils.WrapError(err, "failed to get chapter")
	}

	deps, err := s.loadDependencies(ctx, chapterID)
	if err != nil {
		return nil, err
	}
	ch.Prerequisites = deps[chapterID]
	return ch, nil
}

// GetProgress returns the user's progress keyed by chapter id
func (s *ChapterService) GetProgress(ctx context.Context, userID int) (result0 map[int]models.ChapterProgress, err error) {
	ctx, span := observability.TraceChapterFunction(ctx, "GetProgress", observability.AttributeUserID(userID))
	defer observability.FinishSpan(span, &err)

	rows, err := s.db.QueryContext(ctx,
		`SELECT user_id, chapter_id, best_score, attempts, passed, completed_at, updated_at
		 FROM chapter_progress WHERE user_id = $1`, userID)
	if err != nil {
		return nil, contextutils.WrapError(err, "failed to load chapter progress")
	}
	defer func() { _ = rows.Close() }()

	progress := map[int]models.ChapterProgress{}
	for rows.Next() {
		var p models.ChapterProgress
		if err := rows.Scan(&p.UserID, &p.ChapterID, &p.BestScore, &p.Attempts, &p.Passed, &p.CompletedAt, &p.UpdatedAt); err != nil {
			return nil, contextutils.WrapError(err, "failed to scan chapter progress")
		}
		progress[p.ChapterID] = p
	}
	return progress, rows.Err()
}

func passedSet(progress map[int]models.ChapterProgress) map[int]bool {
	passed := make(map[int]bool, len(progress))
	for id, p := range progress {
		if p.Passed {
			passed[id] = true
		}
	}
	return passed
}

// CheckAccess evaluates the chapter's prerequisites for the user
func (s *ChapterService) CheckAccess(ctx context.Context, userID, chapterID int) (result0 *models.ChapterAccess, err error) {
	ctx, span := observability.TraceChapterFunction(ctx, "CheckAccess",
		observability.AttributeUserID(userID), observability.AttributeChapterID(chapterID))
	defer observability.FinishSpan(span, &err)

	ch, err := s.GetChapter(ctx, chapterID)
	if err != nil {
		return nil, err
	}
	progress, err := s.GetProgress(ctx, userID)
	if err != nil {
		return nil, err
	}
	access := EvaluatePrerequisites(ch.ID, ch.Prerequisites, passedSet(progress))
	span.SetAttributes(attribute.Bool("chapter.allowed", access.Allowed))
	return &access, nil
}

// RecordProgress stores an attempt at a chapter. It is refused with
// ErrPrerequisiteNotMet while a strict prerequisite is unpassed.
func (s *ChapterService) RecordProgress(ctx context.Context, userID, chapterID, score int) (result0 *models.ProgressOutcome, err error) {
	ctx, span := observability.TraceChapterFunction(ctx, "RecordProgress",
		observability.AttributeUserID(userID), observability.AttributeChapterID(chapterID),
		attribute.Int("chapter.score", score))
	defer observability.FinishSpan(span, &err)

	if score < 0 || score > 100 {
		return nil, contextutils.WrapError(contextutils.ErrInvalidInput, "score must be between 0 and 100")
	}

	ch, err := s.GetChapter(ctx, chapterID)
	if err != nil {
		return nil, err
	}
	access, err := s.CheckAccess(ctx, userID, chapterID)
	if err != nil {
		return nil, err
	}
	if !access.Allowed {
		return nil, contextutils.NewAppError(contextutils.ErrorCodePrerequisiteNotMet,
			contextutils.SeverityInfo, access.Reason, "")
	}

	outcome := &models.ProgressOutcome{Warnings: access.Warnings}
	var recorded *RecordedActivity
	err = database.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		var wasPassed bool
		err := tx.QueryRowContext(ctx,
			`SELECT passed FROM chapter_progress WHERE user_id = $1 AND chapter_id = $2 FOR UPDATE`,
			userID, chapterID).Scan(&wasPassed)
		if err != nil && !errors.Is(err, sql.ErrNoRows) {
			return contextutils.WrapError(err, "failed to lock chapter progress")
		}

		passed := score >= ch.PassScore
		p := &outcome.Progress
		err = tx.QueryRowContext(ctx,
			`INSERT INTO chapter_progress (user_id, chapter_id, best_score, attempts, passed, completed_at)
			 VALUES ($1, $2, $3, 1, $4, CASE WHEN $4 THEN NOW() END)
			 ON CONFLICT (user_id, chapter_id) DO UPDATE SET
			   best_score = GREATEST(chapter_progress.best_score, EXCLUDED.best_score),
			   attempts = chapter_progress.attempts + 1,
			   passed = chapter_progress.passed OR EXCLUDED.passed,
			   completed_at = COALESCE(chapter_progress.completed_at, EXCLUDED.completed_at),
			   updated_at = NOW()
			 RETURNING user_id, chapter_id, best_score, attempts, passed, completed_at, updated_at`,
			userID, chapterID, score, passed).Scan(
			&p.UserID, &p.ChapterID, &p.BestScore, &p.Attempts, &p.Passed, &p.CompletedAt, &p.UpdatedAt)
		if err != nil {
			return contextutils.WrapError(err, "failed to record chapter progress")
		}
		outcome.JustPassed = p.Passed && !wasPassed

		// The first pass and its chapter_completed activity commit together
		if outcome.JustPassed && s.activities != nil {
			recorded, err = s.activities.RecordActivityTx(ctx, tx, userID, ActivityInput{
				Type:     models.ActivityChapterCompleted,
				Score:    &score,
				Metadata: []byte(`{"chapter_id":` + strconv.Itoa(chapterID) + `}`),
			})
			if err != nil {
				return contextutils.WrapError(err, "failed to record chapter completion")
			}
			outcome.Activity = recorded.Outcome
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if outcome.JustPassed {
		s.logger.Info(ctx, "Chapter passed", map[string]interface{}{
			"user_id":    userID,
			"chapter_id": chapterID,
			"score":      score,
		})
		if recorded != nil {
			s.activities.ActivityCommitted(ctx, recorded)
		}
	}
	return outcome, nil
}

// LearningPath returns every chapter with its status for the user
func (s *ChapterService) LearningPath(ctx context.Context, userID int) (result0 []models.LearningPathEntry, err error) {
	ctx, span := observability.TraceChapterFunction(ctx, "LearningPath", observability.AttributeUserID(userID))
	defer observability.FinishSpan(span, &err)

	chapters, err := s.ListChapters(ctx, 0)
	if err != nil {
		return nil, err
	}
	progress, err := s.GetProgress(ctx, userID)
	if err != nil {
		return nil, err
	}
	return BuildLearningPath(chapters, progress), nil
}

// NextChapter returns the first available chapter on the learning path, or
// nil when everything is passed or locked.
func (s *ChapterService) NextChapter(ctx context.Context, userID int) (result0 *models.Chapter, err error) {
	path, err := s.LearningPath(ctx, userID)
	if err != nil {
		return nil, err
	}
	for _, entry := range path {
		if entry.Status == models.ChapterAvailable {
			ch := entry.Chapter
			return &ch, nil
		}
	}
	return nil, nil
}

// SeedCurriculum upserts courses and chapters by title and replaces each
// seeded chapter's prerequisite edges. It returns the number of chapters written.
func (s *ChapterService) SeedCurriculum(ctx context.Context, courses []CourseSeed) (result0 int, err error) {
	ctx, span := observability.TraceChapterFunction(ctx, "SeedCurriculum", attribute.Int("seed.courses", len(courses)))
	defer observability.FinishSpan(span, &err)

	written := 0
	err = database.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		for ci, course := range courses {
			if strings.TrimSpace(course.Title) == "" {
				return contextutils.WrapErrorf(contextutils.ErrMissingRequired, "course %d has no title", ci+1)
			}
			courseID, err := upsertCourse(ctx, tx, course, ci)
			if err != nil {
				return err
			}

			ids := map[string]int{}
			for i, ch := range course.Chapters {
				id, err := upsertChapter(ctx, tx, courseID, ch, i)
				if err != nil {
					return err
				}
				ids[ch.Title] = id
				written++
			}

			for _, ch := range course.Chapters {
				if _, err := tx.ExecContext(ctx, `DELETE FROM chapter_dependencies WHERE chapter_id = $1`, ids[ch.Title]); err != nil {
					return contextutils.WrapError(err, "failed to clear prerequisites")
				}
				for _, pre := range ch.Prerequisites {
					preID, ok := ids[pre.Title]
					if !ok {
						return contextutils.WrapErrorf(contextutils.ErrInvalidInput,
							"chapter %q lists unknown prerequisite %q", ch.Title, pre.Title)
					}
					strict := pre.Strict == nil || *pre.Strict
					_, err := tx.ExecContext(ctx,
						`INSERT INTO chapter_dependencies (chapter_id, prerequisite_id, is_strict) VALUES ($1, $2, $3)`,
						ids[ch.Title], preID, strict)
					if database.IsCheckViolation(err) {
						return contextutils.WrapErrorf(contextutils.ErrInvalidInput, "chapter %q cannot require itself", ch.Title)
					}
					if err != nil {
						return contextutils.WrapError(err, "failed to insert prerequisite")
					}
				}
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return written, nil
}

func upsertCourse(ctx context.Context, tx *sql.Tx, course CourseSeed, order int) (int, error) {
	level := course.Level
	if level == "" {
		level = string(models.LevelBeginner)
	}
	var id int
	err := tx.QueryRowContext(ctx, `SELECT id FROM courses WHERE title = $1`, course.Title).Scan(&id)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		err = tx.QueryRowContext(ctx,
			`INSERT INTO courses (title, description, level, sort_order) VALUES ($1, $2, $3, $4) RETURNING id`,
			course.Title, course.Description, level, order).Scan(&id)
	case err == nil:
		_, err = tx.ExecContext(ctx,
			`UPDATE courses SET description = $1, level = $2, sort_order = $3 WHERE id = $4`,
			course.Description, level, order, id)
	}
	if err != nil {
		return 0, contextutils.WrapErrorf(err, "failed to seed course %q", course.Title)
	}
	return id, nil
}

func upsertChapter(ctx context.Context, tx *sql.Tx, courseID int, ch ChapterSeed, order int) (int, error) {
	if strings.TrimSpace(ch.Title) == "" {
		return 0, contextutils.WrapError(contextutils.ErrMissingRequired, "chapter title is required")
	}
	level := ch.Level
	if level == "" {
		level = string(models.LevelBeginner)
	}
	passScore := ch.PassScore
	if passScore == 0 {
		passScore = 70
	}
	var id int
	err := tx.QueryRowContext(ctx,
		`INSERT INTO chapters (course_id, title, description, sort_order, level, pass_score)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 ON CONFLICT (course_id, title) DO UPDATE SET description = EXCLUDED.description,
		   sort_order = EXCLUDED.sort_order, level = EXCLUDED.level, pass_score = EXCLUDED.pass_score
		 RETURNING id`,
		courseID, ch.Title, ch.Description, order, level, passScore).Scan(&id)
	if database.IsCheckViolation(err) {
		return 0, contextutils.WrapErrorf(contextutils.ErrInvalidInput, "chapter %q has an invalid pass score", ch.Title)
	}
	if err != nil {
		return 0, contextutils.WrapErrorf(err, "failed to seed chapter %q", ch.Title)
	}
	return id, nil
}
