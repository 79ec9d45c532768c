package handlers

import (
	"telugulearn/internal/observability"
	"telugulearn/internal/services"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/attribute"
)

// ChapterProgressRequest is the body of POST /api/chapters/:id/progress
type ChapterProgressRequest struct {
	Score *int `json:"score" binding:"required,min=0,max=100"`
}

// ChapterHandler serves courses, chapters and the learning path
type ChapterHandler struct {
	chapterService services.ChapterServiceInterface
	logger         *observability.Logger
}

// NewChapterHandler creates a new ChapterHandler instance
func NewChapterHandler(chapterService services.ChapterServiceInterface, logger *observability.Logger) *ChapterHandler {
	return &ChapterHandler{chapterService: chapterService, logger: logger}
}

// ListCourses returns every course
func (h *ChapterHandler) ListCourses(c *gin.Context) {
	ctx, span := observability.TraceHandlerFunction(c.Request.Context(), "list_courses")
	defer observability.FinishSpan(span, nil)

	courses, err := h.chapterService.ListCourses(ctx)
	if err != nil {
		HandleAppError(c, err)
		return
	}
	respondOK(c, "Courses", gin.H{"courses": courses})
}

// ListChapters returns the chapters of a course in order
func (h *ChapterHandler) ListChapters(c *gin.Context) {
	ctx, span := observability.TraceHandlerFunction(c.Request.Context(), "list_chapters")
	defer observability.FinishSpan(span, nil)

	courseID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	chapters, err := h.chapterService.ListChapters(ctx, courseID)
	if err != nil {
		HandleAppError(c, err)
		return
	}
	respondOK(c, "Chapters", gin.H{"course_id": courseID, "chapters": chapters})
}

// GetChapter returns one chapter with its prerequisites
func (h *ChapterHandler) GetChapter(c *gin.Context) {
	ctx, span := observability.TraceHandlerFunction(c.Request.Context(), "get_chapter")
	defer observability.FinishSpan(span, nil)

	chapterID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	chapter, err := h.chapterService.GetChapter(ctx, chapterID)
	if err != nil {
		HandleAppError(c, err)
		return
	}
	respondOK(c, "Chapter", chapter)
}

// CheckAccess reports whether the user may open the chapter
func (h *ChapterHandler) CheckAccess(c *gin.Context) {
	ctx, span := observability.TraceHandlerFunction(c.Request.Context(), "check_chapter_access")
	defer observability.FinishSpan(span, nil)

	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	chapterID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	access, err := h.chapterService.CheckAccess(ctx, userID, chapterID)
	if err != nil {
		HandleAppError(c, err)
		return
	}
	span.SetAttributes(attribute.Bool("chapter.access_allowed", access.Allowed))
	respondOK(c, "Chapter access", access)
}

// RecordProgress stores a chapter attempt score
func (h *ChapterHandler) RecordProgress(c *gin.Context) {
	ctx, span := observability.TraceHandlerFunction(c.Request.Context(), "record_chapter_progress")
	defer observability.FinishSpan(span, nil)

	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	chapterID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var req ChapterProgressRequest
	if !bindJSON(c, &req) {
		return
	}

	outcome, err := h.chapterService.RecordProgress(ctx, userID, chapterID, *req.Score)
	if err != nil {
		HandleAppError(c, err)
		return
	}
	respondOK(c, "Progress recorded", outcome)
}

// LearningPath returns every chapter with the user's status on it
func (h *ChapterHandler) LearningPath(c *gin.Context) {
	ctx, span := observability.TraceHandlerFunction(c.Request.Context(), "learning_path")
	defer observability.FinishSpan(span, nil)

	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	path, err := h.chapterService.LearningPath(ctx, userID)
	if err != nil {
		HandleAppError(c, err)
		return
	}
	next, err := h.chapterService.NextChapter(ctx, userID)
	if err != nil {
		HandleAppError(c, err)
		return
	}
	respondOK(c, "Learning path", gin.H{"path": path, "next_chapter": next})
}
