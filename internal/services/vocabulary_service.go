package services

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"telugulearn/internal/database"
	"telugulearn/internal/models"
	"telugulearn/internal/observability"
	contextutils "telugulearn/internal/utils"

	"go.opentelemetry.io/otel/attribute"
)

// WordInput is a new vocabulary entry
type WordInput struct {
	Telugu          string
	English         string
	Transliteration string
	ChapterID       int
}

// ImportResult summarises a spreadsheet import
type ImportResult struct {
	Processed int      `json:"processed"`
	Created   int      `json:"created"`
	Updated   int      `json:"updated"`
	Skipped   int      `json:"skipped"`
	Errors    []string `json:"errors"`
}

// VocabularyServiceInterface tracks a user's words and their mastery
type VocabularyServiceInterface interface {
	AddWord(ctx context.Context, userID int, input WordInput) (*models.VocabularyWord, error)
	GetWord(ctx context.Context, userID, wordID int) (*models.VocabularyWord, error)
	ListWords(ctx context.Context, userID int, filter models.VocabularyFilter) ([]models.VocabularyWord, int, error)
	DeleteWord(ctx context.Context, userID, wordID int) error
	Practice(ctx context.Context, userID, wordID int, correct bool) (*models.PracticeResult, error)
	MasteryBreakdown(ctx context.Context, userID int) (*models.MasteryBreakdown, error)
	ReviewCandidates(ctx context.Context, userID, limit int) ([]models.VocabularyWord, error)
	ImportWords(ctx context.Context, userID int, entries []WordInput) (*ImportResult, error)
	ExportWords(ctx context.Context, userID int) ([]models.VocabularyWord, error)
}

// VocabularyService implements VocabularyServiceInterface on PostgreSQL
type VocabularyService struct {
	db     *sql.DB
	logger *observability.Logger
	now    func() time.Time
}

var _ VocabularyServiceInterface = (*VocabularyService)(nil)

// NewVocabularyServiceWithLogger creates a new VocabularyService
func NewVocabularyServiceWithLogger(db *sql.DB, logger *observability.Logger) *VocabularyService {
	return &VocabularyService{db: db, logger: logger, now: time.Now}
}

const wordColumns = `id, user_id, chapter_id, telugu, english, transliteration, times_practiced,
	times_correct, mastery_level, last_practiced_at, created_at`

func scanWord(row rowScanner) (*models.VocabularyWord, error) {
	w := &models.VocabularyWord{}
	var level string
	err := row.Scan(&w.ID, &w.UserID, &w.ChapterID, &w.Telugu, &w.English, &w.Transliteration,
		&w.TimesPracticed, &w.TimesCorrect, &level, &w.LastPracticedAt, &w.CreatedAt)
	if err != nil {
		return nil, err
	}
	w.MasteryLevel = models.MasteryLevel(level)
	return w, nil
}

func (input *WordInput) normalize() error {
	input.Telugu = strings.TrimSpace(input.Telugu)
	input.English = strings.TrimSpace(input.English)
	input.Transliteration = strings.TrimSpace(input.Transliteration)
	if input.Telugu == "" || input.English == "" {
		return contextutils.WrapError(contextutils.ErrMissingRequired, "telugu and english are required")
	}
	return nil
}

func nullableChapter(id int) sql.NullInt64 {
	if id <= 0 {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(id), Valid: true}
}

// AddWord starts tracking a word for the user
func (s *VocabularyService) AddWord(ctx context.Context, userID int, input WordInput) (result0 *models.VocabularyWord, err error) {
	ctx, span := observability.TraceVocabularyFunction(ctx, "AddWord", observability.AttributeUserID(userID))
	defer observability.FinishSpan(span, &err)

	if err := input.normalize(); err != nil {
		return nil, err
	}

	row := s.db.QueryRowContext(ctx,
		`INSERT INTO vocabulary_words (user_id, chapter_id, telugu, english, transliteration)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING `+wordColumns,
		userID, nullableChapter(input.ChapterID), input.Telugu, input.English, input.Transliteration)
	word, err := scanWord(row)
	switch {
	case database.IsUniqueViolation(err):
		return nil, contextutils.WrapErrorf(contextutils.ErrRecordExists, "word %q is already tracked", input.Telugu)
	case database.IsForeignKeyViolation(err):
		return nil, contextutils.WrapErrorf(contextutils.ErrInvalidInput, "chapter %d does not exist", input.ChapterID)
	case err != nil:
		return nil, contextutils.WrapError(err, "failed to add word")
	}

	span.SetAttributes(observability.AttributeWordID(word.ID))
	return word, nil
}

// GetWord returns one of the user's words
func (s *VocabularyService) GetWord(ctx context.Context, userID, wordID int) (result0 *models.VocabularyWord, err error) {
	ctx, span := observability.TraceVocabularyFunction(ctx, "GetWord",
		observability.AttributeUserID(userID), observability.AttributeWordID(wordID))
	defer observability.FinishSpan(span, &err)

	word, err := scanWord(s.db.QueryRowContext(ctx,
		`SELECT `+wordColumns+` FROM vocabulary_words WHERE id = $1 AND user_id = $2`, wordID, userID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, contextutils.WrapError(contextutils.ErrRecordNotFound, "word not found")
	}
	if err != nil {
		return nil, contextutils.WrapError(err, "failed to get word")
	}
	return word, nil
}

// ListWords returns a filtered page of the user's words, most recently added first
func (s *VocabularyService) ListWords(ctx context.Context, userID int, filter models.VocabularyFilter) (result0 []models.VocabularyWord, result1 int, err error) {
	ctx, span := observability.TraceVocabularyFunction(ctx, "ListWords",
		observability.AttributeUserID(userID), observability.AttributePage(filter.Page),
		attribute.String("vocabulary.mastery", string(filter.Mastery)))
	defer observability.FinishSpan(span, &err)

	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.PageSize < 1 {
		filter.PageSize = 50
	}

	where := ` WHERE user_id = $1 AND ($2 = '' OR mastery_level = $2) AND ($3 = 0 OR chapter_id = $3)`
	args := []interface{}{userID, string(filter.Mastery), filter.ChapterID}

	var total int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM vocabulary_words`+where, args...).Scan(&total); err != nil {
		return nil, 0, contextutils.WrapError(err, "failed to count words")
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT `+wordColumns+` FROM vocabulary_words`+where+` ORDER BY created_at DESC, id DESC LIMIT $4 OFFSET $5`,
		append(args, filter.PageSize, (filter.Page-1)*filter.PageSize)...)
	if err != nil {
		return nil, 0, contextutils.WrapError(err, "failed to list words")
	}
	defer func() { _ = rows.Close() }()

	words, err := collectWords(rows)
	if err != nil {
		return nil, 0, err
	}
	return words, total, nil
}

func collectWords(rows *sql.Rows) ([]models.VocabularyWord, error) {
	words := []models.VocabularyWord{}
	for rows.Next() {
		w, err := scanWord(rows)
		if err != nil {
			return nil, contextutils.WrapError(err, "failed to scan word")
		}
		words = append(words, *w)
	}
	if err := rows.Err(); err != nil {
		return nil, contextutils.WrapError(err, "failed to iterate words")
	}
	return words, nil
}

// DeleteWord stops tracking a word
func (s *VocabularyService) DeleteWord(ctx context.Context, userID, wordID int) (err error) {
	ctx, span := observability.TraceVocabularyFunction(ctx, "DeleteWord",
		observability.AttributeUserID(userID), observability.AttributeWordID(wordID))
	defer observability.FinishSpan(span, &err)

	res, err := s.db.ExecContext(ctx, `DELETE FROM vocabulary_words WHERE id = $1 AND user_id = $2`, wordID, userID)
	if err != nil {
		return contextutils.WrapError(err, "failed to delete word")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return contextutils.WrapError(contextutils.ErrRecordNotFound, "word not found")
	}
	return nil
}

// Practice records one attempt on a word. The row is locked for the duration
// of the update so concurrent submissions are serialised.
func (s *VocabularyService) Practice(ctx context.Context, userID, wordID int, correct bool) (result0 *models.PracticeResult, err error) {
	ctx, span := observability.TraceVocabularyFunction(ctx, "Practice",
		observability.AttributeUserID(userID), observability.AttributeWordID(wordID),
		attribute.Bool("practice.correct", correct))
	defer observability.FinishSpan(span, &err)

	var result *models.PracticeResult
	err = database.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		word, err := scanWord(tx.QueryRowContext(ctx,
			`SELECT `+wordColumns+` FROM vocabulary_words WHERE id = $1 AND user_id = $2 FOR UPDATE`, wordID, userID))
		if errors.Is(err, sql.ErrNoRows) {
			return contextutils.WrapError(contextutils.ErrRecordNotFound, "word not found")
		}
		if err != nil {
			return contextutils.WrapError(err, "failed to lock word")
		}

		previous := word.MasteryLevel
		ApplyPractice(word, correct)
		word.LastPracticedAt = sql.NullTime{Time: s.now(), Valid: true}

		_, err = tx.ExecContext(ctx,
			`UPDATE vocabulary_words
			 SET times_practiced = $1, times_correct = $2, mastery_level = $3, last_practiced_at = $4
			 WHERE id = $5`,
			word.TimesPracticed, word.TimesCorrect, string(word.MasteryLevel), word.LastPracticedAt, word.ID)
		if err != nil {
			return contextutils.WrapError(err, "failed to update word")
		}

		result = &models.PracticeResult{
			Word:          *word,
			PreviousLevel: previous,
			LevelChanged:  previous != word.MasteryLevel,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if result.LevelChanged {
		s.logger.Info(ctx, "Word mastery changed", map[string]interface{}{
			"user_id": userID,
			"word_id": wordID,
			"from":    result.PreviousLevel,
			"to":      result.Word.MasteryLevel,
		})
	}
	return result, nil
}

// MasteryBreakdown counts the user's words per level
func (s *VocabularyService) MasteryBreakdown(ctx context.Context, userID int) (result0 *models.MasteryBreakdown, err error) {
	ctx, span := observability.TraceVocabularyFunction(ctx, "MasteryBreakdown", observability.AttributeUserID(userID))
	defer observability.FinishSpan(span, &err)

	rows, err := s.db.QueryContext(ctx,
		`SELECT mastery_level, COUNT(*) FROM vocabulary_words WHERE user_id = $1 GROUP BY mastery_level`, userID)
	if err != nil {
		return nil, contextutils.WrapError(err, "failed to count mastery levels")
	}
	defer func() { _ = rows.Close() }()

	breakdown := &models.MasteryBreakdown{}
	for rows.Next() {
		var level string
		var count int
		if err := rows.Scan(&level, &count); err != nil {
			return nil, contextutils.WrapError(err, "failed to scan mastery level")
		}
		switch models.MasteryLevel(level) {
		case models.MasteryNew:
			breakdown.New = count
		case models.MasteryLearning:
			breakdown.Learning = count
		case models.MasteryMastered:
			breakdown.Mastered = count
		}
	}
	return breakdown, rows.Err()
}

// ReviewCandidates returns unmastered words, least recently practised first
func (s *VocabularyService) ReviewCandidates(ctx context.Context, userID, limit int) (result0 []models.VocabularyWord, err error) {
	ctx, span := observability.TraceVocabularyFunction(ctx, "ReviewCandidates",
		observability.AttributeUserID(userID), observability.AttributeLimit(limit))
	defer observability.FinishSpan(span, &err)

	if limit <= 0 {
		limit = 5
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+wordColumns+` FROM vocabulary_words
		 WHERE user_id = $1 AND mastery_level <> 'mastered'
		 ORDER BY last_practiced_at ASC NULLS FIRST, id ASC
		 LIMIT $2`, userID, limit)
	if err != nil {
		return nil, contextutils.WrapError(err, "failed to load review words")
	}
	defer func() { _ = rows.Close() }()
	return collectWords(rows)
}

// ImportWords upserts entries by telugu text. Existing words keep their
// practice history; only the translation fields are refreshed.
func (s *VocabularyService) ImportWords(ctx context.Context, userID int, entries []WordInput) (result0 *ImportResult, err error) {
	ctx, span := observability.TraceVocabularyFunction(ctx, "ImportWords",
		observability.AttributeUserID(userID), attribute.Int("import.rows", len(entries)))
	defer observability.FinishSpan(span, &err)

	result := &ImportResult{Errors: []string{}}
	err = database.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		for i := range entries {
			entry := entries[i]
			result.Processed++
			if err := entry.normalize(); err != nil {
				result.Skipped++
				result.Errors = append(result.Errors, formatRowError(i+1, "telugu and english are required"))
				continue
			}

			var inserted bool
			err := tx.QueryRowContext(ctx,
				`INSERT INTO vocabulary_words (user_id, chapter_id, telugu, english, transliteration)
				 VALUES ($1, $2, $3, $4, $5)
				 ON CONFLICT (user_id, telugu) DO UPDATE
				 SET english = EXCLUDED.english,
				     transliteration = EXCLUDED.transliteration,
				     chapter_id = COALESCE(EXCLUDED.chapter_id, vocabulary_words.chapter_id)
				 RETURNING (xmax = 0)`,
				userID, nullableChapter(entry.ChapterID), entry.Telugu, entry.English, entry.Transliteration).Scan(&inserted)
			if database.IsForeignKeyViolation(err) {
				return contextutils.WrapErrorf(contextutils.ErrInvalidInput, "row %d: chapter %d does not exist", i+1, entry.ChapterID)
			}
			if err != nil {
				return contextutils.WrapErrorf(err, "row %d: failed to import word", i+1)
			}
			if inserted {
				result.Created++
			} else {
				result.Updated++
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info(ctx, "Vocabulary imported", map[string]interface{}{
		"user_id": userID,
		"created": result.Created,
		"updated": result.Updated,
		"skipped": result.Skipped,
	})
	return result, nil
}

// ExportWords returns every word of the user ordered by telugu text
func (s *VocabularyService) ExportWords(ctx context.Context, userID int) (result0 []models.VocabularyWord, err error) {
	ctx, span := observability.TraceVocabularyFunction(ctx, "ExportWords", observability.AttributeUserID(userID))
	defer observability.FinishSpan(span, &err)

	rows, err := s.db.QueryContext(ctx,
		`SELECT `+wordColumns+` FROM vocabulary_words WHERE user_id = $1 ORDER BY telugu, id`, userID)
	if err != nil {
		return nil, contextutils.WrapError(err, "failed to export words")
	}
	defer func() { _ = rows.Close() }()
	return collectWords(rows)
}
