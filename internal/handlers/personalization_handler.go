package handlers

import (
	"bytes"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"telugulearn/internal/models"
	"telugulearn/internal/observability"
	"telugulearn/internal/services"
	contextutils "telugulearn/internal/utils"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/attribute"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// CreateGoalRequest is the body of POST /api/personalization/goals
type CreateGoalRequest struct {
	GoalType    string     `json:"goal_type" binding:"required,oneof=words_mastered points_earned streak_days chapters_completed minutes_practiced"`
	Title       string     `json:"title" binding:"required,max=200"`
	TargetValue int        `json:"target_value" binding:"required,min=1"`
	Deadline    *time.Time `json:"deadline"`
}

// UpdateGoalRequest is the body of PUT /api/personalization/goals/:id
type UpdateGoalRequest struct {
	Title       *string    `json:"title" binding:"omitempty,min=1,max=200"`
	TargetValue *int       `json:"target_value" binding:"omitempty,min=1"`
	Deadline    *time.Time `json:"deadline"`
}

// AssessmentRequest is the body of POST /api/personalization/assessment
type AssessmentRequest struct {
	TotalQuestions int `json:"total_questions" binding:"required,min=1"`
	CorrectAnswers int `json:"correct_answers" binding:"min=0"`
}

// StartSessionRequest is the body of POST /api/personalization/sessions
type StartSessionRequest struct {
	ActivityType string `json:"activity_type" binding:"max=50"`
}

// EndSessionRequest is the body of POST /api/personalization/sessions/:id/end
type EndSessionRequest struct {
	SatisfactionRating *int   `json:"satisfaction_rating" binding:"omitempty,min=1,max=5"`
	Notes              string `json:"notes" binding:"max=2000"`
}

// AddWordRequest is the body of POST /api/personalization/vocabulary
type AddWordRequest struct {
	Telugu          string `json:"telugu" binding:"required,max=200"`
	English         string `json:"english" binding:"required,max=200"`
	Transliteration string `json:"transliteration" binding:"max=200"`
	ChapterID       int    `json:"chapter_id" binding:"min=0"`
}

// PracticeRequest is the body of POST /api/personalization/vocabulary/:id/practice
type PracticeRequest struct {
	Correct *bool `json:"correct" binding:"required"`
}

// PracticeResponse pairs the mastery update with the points it earned
type PracticeResponse struct {
	Result  *models.PracticeResult  `json:"result"`
	Outcome *models.ActivityOutcome `json:"outcome,omitempty"`
}

// PersonalizationHandler serves goals, assessments, sessions, the dashboard
// and vocabulary tracking
type PersonalizationHandler struct {
	personalizationService services.PersonalizationServiceInterface
	vocabularyService      services.VocabularyServiceInterface
	gamificationService    services.GamificationServiceInterface
	logger                 *observability.Logger
}

// NewPersonalizationHandler creates a new PersonalizationHandler instance
func NewPersonalizationHandler(
	personalizationService services.PersonalizationServiceInterface,
	vocabularyService services.VocabularyServiceInterface,
	gamificationService services.GamificationServiceInterface,
	logger *observability.Logger,
) *PersonalizationHandler {
	return &PersonalizationHandler{
		personalizationService: personalizationService,
		vocabularyService:      vocabularyService,
		gamificationService:    gamificationService,
		logger:                 logger,
	}
}

// ListGoals returns the user's goals with refreshed progress
func (h *PersonalizationHandler) ListGoals(c *gin.Context) {
	ctx, span := observability.TraceHandlerFunction(c.Request.Context(), "list_goals")
	defer observability.FinishSpan(span, nil)

	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	goals, err := h.personalizationService.ListGoals(ctx, userID)
	if err != nil {
		HandleAppError(c, err)
		return
	}
	respondOK(c, "Goals", gin.H{"goals": goals})
}

// CreateGoal adds a goal
func (h *PersonalizationHandler) CreateGoal(c *gin.Context) {
	ctx, span := observability.TraceHandlerFunction(c.Request.Context(), "create_goal")
	defer observability.FinishSpan(span, nil)

	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	var req CreateGoalRequest
	if !bindJSON(c, &req) {
		return
	}

	goal, err := h.personalizationService.CreateGoal(ctx, userID, services.GoalInput{
		GoalType:    req.GoalType,
		Title:       req.Title,
		TargetValue: req.TargetValue,
		Deadline:    req.Deadline,
	})
	if err != nil {
		HandleAppError(c, err)
		return
	}
	respondCreated(c, "Goal created", goal)
}

// UpdateGoal changes the title, target or deadline of a goal
func (h *PersonalizationHandler) UpdateGoal(c *gin.Context) {
	ctx, span := observability.TraceHandlerFunction(c.Request.Context(), "update_goal")
	defer observability.FinishSpan(span, nil)

	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	goalID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var req UpdateGoalRequest
	if !bindJSON(c, &req) {
		return
	}

	goal, err := h.personalizationService.UpdateGoal(ctx, userID, goalID, services.GoalUpdate{
		Title:       req.Title,
		TargetValue: req.TargetValue,
		Deadline:    req.Deadline,
	})
	if err != nil {
		HandleAppError(c, err)
		return
	}
	respondOK(c, "Goal updated", goal)
}

// DeleteGoal removes a goal
func (h *PersonalizationHandler) DeleteGoal(c *gin.Context) {
	ctx, span := observability.TraceHandlerFunction(c.Request.Context(), "delete_goal")
	defer observability.FinishSpan(span, nil)

	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	goalID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	if err := h.personalizationService.DeleteGoal(ctx, userID, goalID); err != nil {
		HandleAppError(c, err)
		return
	}
	respondOK(c, "Goal deleted", nil)
}

// SubmitAssessment records a placement test and sets the proficiency level
func (h *PersonalizationHandler) SubmitAssessment(c *gin.Context) {
	ctx, span := observability.TraceHandlerFunction(c.Request.Context(), "submit_assessment")
	defer observability.FinishSpan(span, nil)

	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	var req AssessmentRequest
	if !bindJSON(c, &req) {
		return
	}

	assessment, err := h.personalizationService.SubmitAssessment(ctx, userID, req.TotalQuestions, req.CorrectAnswers)
	if err != nil {
		HandleAppError(c, err)
		return
	}
	respondCreated(c, "Assessment recorded", assessment)
}

// Dashboard returns the personalised summary
func (h *PersonalizationHandler) Dashboard(c *gin.Context) {
	ctx, span := observability.TraceHandlerFunction(c.Request.Context(), "dashboard")
	defer observability.FinishSpan(span, nil)

	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	dashboard, err := h.personalizationService.Dashboard(ctx, userID)
	if err != nil {
		HandleAppError(c, err)
		return
	}
	respondOK(c, "Dashboard", dashboard)
}

// StartSession opens a timed learning session
func (h *PersonalizationHandler) StartSession(c *gin.Context) {
	ctx, span := observability.TraceHandlerFunction(c.Request.Context(), "start_session")
	defer observability.FinishSpan(span, nil)

	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	var req StartSessionRequest
	if c.Request.ContentLength != 0 && !bindJSON(c, &req) {
		return
	}

	session, err := h.personalizationService.StartSession(ctx, userID, req.ActivityType)
	if err != nil {
		HandleAppError(c, err)
		return
	}
	respondCreated(c, "Session started", session)
}

// EndSession closes a session
func (h *PersonalizationHandler) EndSession(c *gin.Context) {
	ctx, span := observability.TraceHandlerFunction(c.Request.Context(), "end_session")
	defer observability.FinishSpan(span, nil)

	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	sessionID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var req EndSessionRequest
	if c.Request.ContentLength != 0 && !bindJSON(c, &req) {
		return
	}

	session, err := h.personalizationService.EndSession(ctx, userID, sessionID, services.SessionEnd{
		SatisfactionRating: req.SatisfactionRating,
		Notes:              req.Notes,
	})
	if err != nil {
		HandleAppError(c, err)
		return
	}
	respondOK(c, "Session ended", gin.H{
		"session":          session,
		"duration_seconds": session.DurationSeconds(),
	})
}

// ListVocabulary returns a page of the user's words, filtered by ?mastery= and ?chapter_id=
func (h *PersonalizationHandler) ListVocabulary(c *gin.Context) {
	ctx, span := observability.TraceHandlerFunction(c.Request.Context(), "list_vocabulary")
	defer observability.FinishSpan(span, nil)

	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	page, pageSize := ParsePagination(c, DefaultPage, DefaultPageSize, MaxPageSize)
	filters := ParseFilters(c, "mastery", "chapter_id")
	filter := models.VocabularyFilter{
		Mastery:  models.MasteryLevel(filters["mastery"]),
		Page:     page,
		PageSize: pageSize,
	}
	if raw, present := filters["chapter_id"]; present {
		chapterID, err := strconv.Atoi(raw)
		if err != nil || chapterID <= 0 {
			HandleAppError(c, contextutils.WrapErrorf(contextutils.ErrInvalidInput, "invalid chapter_id %q", raw))
			return
		}
		filter.ChapterID = chapterID
	}

	words, total, err := h.vocabularyService.ListWords(ctx, userID, filter)
	if err != nil {
		HandleAppError(c, err)
		return
	}
	WritePaginated(c, "Vocabulary", "words", words, page, pageSize, total, nil)
}

// AddWord adds a word to the user's vocabulary
func (h *PersonalizationHandler) AddWord(c *gin.Context) {
	ctx, span := observability.TraceHandlerFunction(c.Request.Context(), "add_word")
	defer observability.FinishSpan(span, nil)

	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	var req AddWordRequest
	if !bindJSON(c, &req) {
		return
	}

	word, err := h.vocabularyService.AddWord(ctx, userID, services.WordInput{
		Telugu:          req.Telugu,
		English:         req.English,
		Transliteration: req.Transliteration,
		ChapterID:       req.ChapterID,
	})
	if err != nil {
		HandleAppError(c, err)
		return
	}
	respondCreated(c, "Word added", word)
}

// DeleteWord removes a word from the user's vocabulary
func (h *PersonalizationHandler) DeleteWord(c *gin.Context) {
	ctx, span := observability.TraceHandlerFunction(c.Request.Context(), "delete_word")
	defer observability.FinishSpan(span, nil)

	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	wordID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	if err := h.vocabularyService.DeleteWord(ctx, userID, wordID); err != nil {
		HandleAppError(c, err)
		return
	}
	respondOK(c, "Word deleted", nil)
}

// PracticeWord records a practice attempt and credits it as an activity
func (h *PersonalizationHandler) PracticeWord(c *gin.Context) {
	ctx, span := observability.TraceHandlerFunction(c.Request.Context(), "practice_word")
	defer observability.FinishSpan(span, nil)

	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	wordID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var req PracticeRequest
	if !bindJSON(c, &req) {
		return
	}
	span.SetAttributes(attribute.Int("word.id", wordID), attribute.Bool("practice.correct", *req.Correct))

	result, err := h.vocabularyService.Practice(ctx, userID, wordID, *req.Correct)
	if err != nil {
		HandleAppError(c, err)
		return
	}

	score := 0
	if *req.Correct {
		score = 100
	}
	outcome, err := h.gamificationService.RecordActivity(ctx, userID, services.ActivityInput{
		Type:     models.ActivityVocabularyPractice,
		Score:    &score,
		Metadata: []byte(fmt.Sprintf(`{"word_id":%d,"correct":%t}`, wordID, *req.Correct)),
	})
	if err != nil {
		// The practice itself is stored; only the points are missing
		h.logger.Error(ctx, "Failed to record vocabulary practice activity", err, map[string]interface{}{
			"user_id": userID,
			"word_id": wordID,
		})
		outcome = nil
	}

	respondOK(c, "Practice recorded", PracticeResponse{Result: result, Outcome: outcome})
}

// ExportVocabulary streams the user's words as an xlsx workbook
func (h *PersonalizationHandler) ExportVocabulary(c *gin.Context) {
	ctx, span := observability.TraceHandlerFunction(c.Request.Context(), "export_vocabulary")
	defer observability.FinishSpan(span, nil)

	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	words, err := h.vocabularyService.ExportWords(ctx, userID)
	if err != nil {
		HandleAppError(c, err)
		return
	}

	var buf bytes.Buffer
	if err := services.WriteVocabularySheet(&buf, words); err != nil {
		h.logger.Error(ctx, "Failed to build vocabulary workbook", err, map[string]interface{}{"user_id": userID})
		HandleAppError(c, err)
		return
	}

	filename := fmt.Sprintf("vocabulary-%s.xlsx", time.Now().UTC().Format(contextutils.DateLayout))
	c.Header("Content-Disposition", `attachment; filename="`+filename+`"`)
	c.Data(http.StatusOK, xlsxContentType, buf.Bytes())
}
