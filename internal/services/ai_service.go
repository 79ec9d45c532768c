package services

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"telugulearn/internal/config"
	"telugulearn/internal/database"
	"telugulearn/internal/models"
	"telugulearn/internal/observability"
	contextutils "telugulearn/internal/utils"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Generation limits
const (
	DefaultGenerateCount = 5
	MaxGenerateCount     = 20
	MaxChatMessageLength = 2000
	defaultTemperature   = 0.7
	defaultTopic         = "everyday words"
)

// AIServiceInterface generates practice content and answers tutor chat
type AIServiceInterface interface {
	Enabled() bool
	GenerateActivity(ctx context.Context, userID int, req models.GenerateActivityRequest) (*models.GeneratedActivity, error)
	ListActivities(ctx context.Context, userID, page, pageSize int) ([]models.GeneratedActivity, int, error)
	GetActivity(ctx context.Context, userID, activityID int) (*models.GeneratedActivity, error)
	Chat(ctx context.Context, userID int, message string) (*models.ChatMessage, error)
	ChatHistory(ctx context.Context, userID, limit int) ([]models.ChatMessage, error)
	GetConcurrencyStats() ConcurrencyStats
	Shutdown(ctx context.Context) error
}

// ConcurrencyStats provides metrics about AI request concurrency
type ConcurrencyStats struct {
	ActiveRequests  int         `json:"active_requests"`
	MaxConcurrent   int         `json:"max_concurrent"`
	TotalRequests   int64       `json:"total_requests"`
	UserActiveCount map[int]int `json:"user_active_count"`
	MaxPerUser      int         `json:"max_per_user"`
}

// AIService talks to an OpenAI-compatible chat completions endpoint
type AIService struct {
	db         *sql.DB
	cfg        *config.Config
	httpClient *http.Client
	templates  *AITemplateManager
	logger     *observability.Logger

	globalSemaphore chan struct{}
	maxPerUser      int

	userRequestCount map[int]int
	concurrencyMu    sync.Mutex

	totalRequests  int64
	activeRequests int
	statsMu        sync.RWMutex

	shuttingDown bool
	shutdownMu   sync.RWMutex
}

var _ AIServiceInterface = (*AIService)(nil)

// NewAIServiceWithLogger creates a new AIService
func NewAIServiceWithLogger(db *sql.DB, cfg *config.Config, logger *observability.Logger) (*AIService, error) {
	templates, err := NewAITemplateManager()
	if err != nil {
		return nil, contextutils.WrapError(err, "failed to load AI templates")
	}

	timeout := cfg.AI.RequestTimeout
	if timeout <= 0 {
		timeout = config.AIRequestTimeout
	}
	maxConcurrent := cfg.AI.MaxConcurrent
	if maxConcurrent <= 0 {
		maxConcurrent = config.DefaultAIMaxConcurrent
	}
	maxPerUser := cfg.AI.MaxPerUser
	if maxPerUser <= 0 {
		maxPerUser = config.DefaultAIMaxPerUser
	}

	return &AIService{
		db:  db,
		cfg: cfg,
		httpClient: &http.Client{
			Timeout: timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport,
				otelhttp.WithSpanOptions(trace.WithSpanKind(trace.SpanKindClient)),
			),
		},
		templates:        templates,
		logger:           logger,
		globalSemaphore:  make(chan struct{}, maxConcurrent),
		maxPerUser:       maxPerUser,
		userRequestCount: make(map[int]int),
	}, nil
}

// Enabled reports whether a usable provider is configured
func (s *AIService) Enabled() bool {
	_, _, err := s.provider()
	return err == nil
}

func (s *AIService) provider() (*config.ProviderConfig, *config.AIModel, error) {
	if !s.cfg.AI.Enabled {
		return nil, nil, contextutils.WrapError(contextutils.ErrAIProviderUnavailable, "AI features are disabled")
	}
	p := s.cfg.DefaultProvider()
	if p == nil || p.URL == "" || len(p.Models) == 0 {
		return nil, nil, contextutils.WrapError(contextutils.ErrAIProviderUnavailable, "no AI provider configured")
	}
	return p, &p.Models[0], nil
}

// Shutdown stops new requests and waits for in-flight ones to drain
func (s *AIService) Shutdown(ctx context.Context) error {
	s.shutdownMu.Lock()
	s.shuttingDown = true
	s.shutdownMu.Unlock()

	ticker := time.NewTicker(config.AIShutdownPollInterval)
	defer ticker.Stop()
	deadline := time.NewTimer(config.AIShutdownTimeout)
	defer deadline.Stop()

	for {
		s.statsMu.RLock()
		active := s.activeRequests
		s.statsMu.RUnlock()
		if active == 0 {
			break
		}
		select {
		case <-ticker.C:
		case <-deadline.C:
			s.logger.Warn(ctx, "AI requests still running at shutdown", map[string]interface{}{"active": active})
			return contextutils.WrapError(contextutils.ErrTimeout, "AI requests did not drain")
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	s.httpClient.CloseIdleConnections()
	s.logger.Info(ctx, "AI service shutdown completed")
	return nil
}

func (s *AIService) isShutdown() bool {
	s.shutdownMu.RLock()
	defer s.shutdownMu.RUnlock()
	return s.shuttingDown
}

// GetConcurrencyStats returns a snapshot of the limiter state
func (s *AIService) GetConcurrencyStats() ConcurrencyStats {
	s.statsMu.RLock()
	defer s.statsMu.RUnlock()
	s.concurrencyMu.Lock()
	defer s.concurrencyMu.Unlock()

	users := make(map[int]int, len(s.userRequestCount))
	for id, n := range s.userRequestCount {
		if n > 0 {
			users[id] = n
		}
	}
	return ConcurrencyStats{
		ActiveRequests:  s.activeRequests,
		MaxConcurrent:   cap(s.globalSemaphore),
		TotalRequests:   s.totalRequests,
		UserActiveCount: users,
		MaxPerUser:      s.maxPerUser,
	}
}

func (s *AIService) acquireUserSlot(userID int) error {
	s.concurrencyMu.Lock()
	defer s.concurrencyMu.Unlock()

	if s.userRequestCount[userID] >= s.maxPerUser {
		return contextutils.WrapErrorf(contextutils.ErrRateLimit,
			"at most %d AI requests may run at once per user", s.maxPerUser)
	}
	s.userRequestCount[userID]++
	return nil
}

func (s *AIService) releaseUserSlot(userID int) {
	s.concurrencyMu.Lock()
	defer s.concurrencyMu.Unlock()

	if s.userRequestCount[userID] <= 1 {
		delete(s.userRequestCount, userID)
		return
	}
	s.userRequestCount[userID]--
}

// withConcurrencyControl runs operation while holding a global and a per-user
// slot. The global limit fails fast rather than queueing.
func (s *AIService) withConcurrencyControl(ctx context.Context, userID int, operation func() error) error {
	if s.isShutdown() {
		return contextutils.WrapError(contextutils.ErrServiceUnavailable, "AI service is shutting down")
	}
	if err := s.acquireUserSlot(userID); err != nil {
		return err
	}
	defer s.releaseUserSlot(userID)

	select {
	case s.globalSemaphore <- struct{}{}:
	case <-ctx.Done():
		return contextutils.WrapErrorf(contextutils.ErrTimeout, "cancelled while waiting for an AI slot: %v", ctx.Err())
	default:
		return contextutils.WrapErrorf(contextutils.ErrServiceUnavailable,
			"AI service at capacity (%d concurrent requests)", cap(s.globalSemaphore))
	}
	defer func() { <-s.globalSemaphore }()

	s.statsMu.Lock()
	s.totalRequests++
	s.activeRequests++
	s.statsMu.Unlock()
	defer func() {
		s.statsMu.Lock()
		s.activeRequests--
		s.statsMu.Unlock()
	}()

	return operation()
}

type chatCompletionRequest struct {
	Model          string            `json:"model"`
	Messages       []chatMessage     `json:"messages"`
	Temperature    float64           `json:"temperature"`
	MaxTokens      int               `json:"max_tokens,omitempty"`
	ResponseFormat map[string]string `json:"response_format,omitempty"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatCompletionResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error,omitempty"`
}

// callChatCompletions posts messages to the provider and returns the first
// choice's content.
func (s *AIService) callChatCompletions(ctx context.Context, provider *config.ProviderConfig, model *config.AIModel, messages []chatMessage, jsonMode bool) (result0 string, err error) {
	ctx, span := observability.TraceAIFunction(ctx, "callChatCompletions",
		attribute.String("ai.provider", provider.Code),
		attribute.String("ai.model", model.Code),
		attribute.Int("ai.messages", len(messages)),
	)
	defer observability.FinishSpan(span, &err)

	temperature := s.cfg.AI.Temperature
	if temperature <= 0 {
		temperature = defaultTemperature
	}
	reqBody := chatCompletionRequest{
		Model:       model.Code,
		Messages:    messages,
		Temperature: temperature,
		MaxTokens:   model.MaxTokens,
	}
	if jsonMode {
		reqBody.ResponseFormat = map[string]string{"type": "json_object"}
	}
	payload, err := json.Marshal(reqBody)
	if err != nil {
		return "", contextutils.WrapError(err, "failed to marshal AI request")
	}

	url := strings.TrimRight(provider.URL, "/") + "/chat/completions"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return "", contextutils.WrapError(err, "failed to create AI request")
	}
	req.Header.Set("Content-Type", "application/json")
	if provider.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+provider.APIKey)
	}

	start := time.Now()
	resp, err := s.httpClient.Do(req)
	if err != nil {
		observability.Add(ctx, observability.Metrics().AIRequests, 1, attribute.String("result", "transport_error"))
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return "", contextutils.WrapErrorf(contextutils.ErrTimeout, "AI request timed out after %v", time.Since(start))
		}
		return "", contextutils.WrapErrorf(contextutils.ErrAIProviderUnavailable, "AI request failed: %v", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", contextutils.WrapError(err, "failed to read AI response")
	}
	span.SetAttributes(attribute.Int("http.status_code", resp.StatusCode))
	s.logger.Debug(ctx, "AI request completed", map[string]interface{}{
		"provider":    provider.Code,
		"model":       model.Code,
		"status_code": resp.StatusCode,
		"duration":    time.Since(start).String(),
	})

	if resp.StatusCode != http.StatusOK {
		observability.Add(ctx, observability.Metrics().AIRequests, 1, attribute.String("result", "http_error"))
		if resp.StatusCode == http.StatusTooManyRequests {
			return "", contextutils.WrapError(contextutils.ErrRateLimit, "AI provider rate limit reached")
		}
		return "", contextutils.WrapErrorf(contextutils.ErrAIRequestFailed, "AI provider returned status %d", resp.StatusCode)
	}

	var parsed chatCompletionResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", contextutils.WrapErrorf(contextutils.ErrAIResponseInvalid, "failed to parse AI response: %v", err)
	}
	if parsed.Error != nil {
		return "", contextutils.WrapErrorf(contextutils.ErrAIRequestFailed, "AI provider error: %s", parsed.Error.Message)
	}
	if len(parsed.Choices) == 0 || strings.TrimSpace(parsed.Choices[0].Message.Content) == "" {
		return "", contextutils.WrapError(contextutils.ErrAIResponseInvalid, "AI returned no content")
	}

	observability.Add(ctx, observability.Metrics().AIRequests, 1, attribute.String("result", "success"))
	return parsed.Choices[0].Message.Content, nil
}

// cleanJSONResponse strips markdown code fences and any prose around the
// outermost JSON object.
func cleanJSONResponse(response string) string {
	response = strings.TrimSpace(response)
	response = strings.TrimPrefix(response, "```json")
	response = strings.TrimPrefix(response, "```")
	response = strings.TrimSuffix(response, "```")
	start := strings.Index(response, "{")
	end := strings.LastIndex(response, "}")
	if start >= 0 && end > start {
		return response[start : end+1]
	}
	return strings.TrimSpace(response)
}

func validKind(kind models.ActivityKind) bool {
	return kind == models.KindQuiz || kind == models.KindFlashcard
}

// learnerContext returns the proficiency level and native language of a user
func (s *AIService) learnerContext(ctx context.Context, userID int) (string, string, error) {
	var level, native string
	err := s.db.QueryRowContext(ctx,
		`SELECT proficiency_level, native_language FROM profiles WHERE user_id = $1`, userID).Scan(&level, &native)
	if errors.Is(err, sql.ErrNoRows) {
		return "", "", contextutils.WrapError(contextutils.ErrRecordNotFound, "profile not found")
	}
	if err != nil {
		return "", "", contextutils.WrapError(err, "failed to load profile")
	}
	if native == "" {
		native = "English"
	}
	return level, native, nil
}

func (s *AIService) focusWords(ctx context.Context, userID, limit int) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT telugu FROM vocabulary_words
		 WHERE user_id = $1 AND mastery_level <> 'mastered'
		 ORDER BY last_practiced_at NULLS FIRST, id LIMIT $2`, userID, limit)
	if err != nil {
		return nil, contextutils.WrapError(err, "failed to load focus words")
	}
	defer func() { _ = rows.Close() }()

	var words []string
	for rows.Next() {
		var w string
		if err := rows.Scan(&w); err != nil {
			return nil, err
		}
		words = append(words, w)
	}
	return words, rows.Err()
}

// GenerateActivity asks the provider for a quiz or flashcard set, validates it
// against the kind's schema and stores it.
func (s *AIService) GenerateActivity(ctx context.Context, userID int, req models.GenerateActivityRequest) (result0 *models.GeneratedActivity, err error) {
	ctx, span := observability.TraceAIFunction(ctx, "GenerateActivity",
		observability.AttributeUserID(userID), attribute.String("ai.kind", string(req.Kind)))
	defer observability.FinishSpan(span, &err)

	if !validKind(req.Kind) {
		return nil, contextutils.WrapErrorf(contextutils.ErrInvalidInput, "unknown activity kind %q", req.Kind)
	}
	if req.Count < 0 || req.Count > MaxGenerateCount {
		return nil, contextutils.WrapErrorf(contextutils.ErrInvalidInput, "count must be between 1 and %d", MaxGenerateCount)
	}
	if req.Count == 0 {
		req.Count = DefaultGenerateCount
	}
	req.Topic = strings.TrimSpace(req.Topic)
	if req.Topic == "" {
		req.Topic = defaultTopic
	}
	if req.Level != "" && !models.ProficiencyLevel(req.Level).Valid() {
		return nil, contextutils.WrapErrorf(contextutils.ErrInvalidInput, "unknown level %q", req.Level)
	}

	provider, model, err := s.provider()
	if err != nil {
		return nil, err
	}

	level, _, err := s.learnerContext(ctx, userID)
	if err != nil {
		return nil, err
	}
	if req.Level == "" {
		req.Level = level
	}
	if len(req.FocusWords) == 0 {
		if req.FocusWords, err = s.focusWords(ctx, userID, 5); err != nil {
			return nil, err
		}
	}

	prompt, err := s.templates.RenderTemplate(ActivityPromptTemplate, AITemplateData{
		Kind:       req.Kind,
		Topic:      req.Topic,
		Level:      req.Level,
		Count:      req.Count,
		FocusWords: req.FocusWords,
		Schema:     s.templates.Schema(req.Kind),
	})
	if err != nil {
		return nil, contextutils.WrapError(err, "failed to render activity prompt")
	}

	var content string
	err = s.withConcurrencyControl(ctx, userID, func() error {
		raw, err := s.callChatCompletions(ctx, provider, model, []chatMessage{{Role: "user", Content: prompt}}, true)
		if err != nil {
			return err
		}
		content = cleanJSONResponse(raw)
		return s.templates.Validate(req.Kind, []byte(content))
	})
	if err != nil {
		s.logger.Warn(ctx, "Activity generation failed", map[string]interface{}{
			"user_id": userID,
			"kind":    req.Kind,
			"error":   err.Error(),
		})
		return nil, err
	}

	activity := &models.GeneratedActivity{
		UserID:       userID,
		ActivityType: req.Kind,
		Topic:        req.Topic,
		Level:        req.Level,
		Content:      json.RawMessage(content),
		Provider:     provider.Code,
		Model:        model.Code,
	}
	err = s.db.QueryRowContext(ctx,
		`INSERT INTO generated_activities (user_id, activity_type, topic, level, content, provider, model)
		 VALUES ($1, $2, $3, $4, $5, $6, $7) RETURNING id, created_at`,
		userID, string(req.Kind), req.Topic, req.Level, content, provider.Code, model.Code).Scan(&activity.ID, &activity.CreatedAt)
	if err != nil {
		return nil, contextutils.WrapError(err, "failed to store generated activity")
	}

	s.logger.Info(ctx, "Generated activity", map[string]interface{}{
		"user_id":     userID,
		"activity_id": activity.ID,
		"kind":        req.Kind,
		"model":       model.Code,
	})
	return activity, nil
}

const generatedColumns = `id, user_id, activity_type, topic, level, content, provider, model, created_at`

func scanGenerated(row rowScanner) (*models.GeneratedActivity, error) {
	a := &models.GeneratedActivity{}
	var kind string
	var content []byte
	if err := row.Scan(&a.ID, &a.UserID, &kind, &a.Topic, &a.Level, &content, &a.Provider, &a.Model, &a.CreatedAt); err != nil {
		return nil, err
	}
	a.ActivityType = models.ActivityKind(kind)
	a.Content = json.RawMessage(content)
	return a, nil
}

// ListActivities pages through a user's generated activities, newest first
func (s *AIService) ListActivities(ctx context.Context, userID, page, pageSize int) (result0 []models.GeneratedActivity, result1 int, err error) {
	ctx, span := observability.TraceAIFunction(ctx, "ListActivities",
		observability.AttributeUserID(userID), observability.AttributePage(page))
	defer observability.FinishSpan(span, &err)

	var total int
	if err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM generated_activities WHERE user_id = $1`, userID).Scan(&total); err != nil {
		return nil, 0, contextutils.WrapError(err, "failed to count generated activities")
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT `+generatedColumns+` FROM generated_activities WHERE user_id = $1
		 ORDER BY created_at DESC, id DESC LIMIT $2 OFFSET $3`,
		userID, pageSize, (page-1)*pageSize)
	if err != nil {
		return nil, 0, contextutils.WrapError(err, "failed to list generated activities")
	}
	defer func() { _ = rows.Close() }()

	activities := []models.GeneratedActivity{}
	for rows.Next() {
		a, err := scanGenerated(rows)
		if err != nil {
			return nil, 0, contextutils.WrapError(err, "failed to scan generated activity")
		}
		activities = append(activities, *a)
	}
	return activities, total, rows.Err()
}

// GetActivity returns one of the user's generated activities
func (s *AIService) GetActivity(ctx context.Context, userID, activityID int) (result0 *models.GeneratedActivity, err error) {
	ctx, span := observability.TraceAIFunction(ctx, "GetActivity",
		observability.AttributeUserID(userID), attribute.Int("activity.id", activityID))
	defer observability.FinishSpan(span, &err)

	a, err := scanGenerated(s.db.QueryRowContext(ctx,
		`SELECT `+generatedColumns+` FROM generated_activities WHERE id = $1 AND user_id = $2`, activityID, userID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, contextutils.WrapError(contextutils.ErrRecordNotFound, "activity not found")
	}
	if err != nil {
		return nil, contextutils.WrapError(err, "failed to get generated activity")
	}
	return a, nil
}

// ChatHistory returns the last limit turns in chronological order
func (s *AIService) ChatHistory(ctx context.Context, userID, limit int) (result0 []models.ChatMessage, err error) {
	ctx, span := observability.TraceAIFunction(ctx, "ChatHistory",
		observability.AttributeUserID(userID), observability.AttributeLimit(limit))
	defer observability.FinishSpan(span, &err)

	if limit <= 0 {
		limit = s.cfg.AI.ChatHistory
	}
	if limit <= 0 {
		limit = config.DefaultChatHistory
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, user_id, role, content, created_at FROM (
		   SELECT id, user_id, role, content, created_at FROM chat_messages
		   WHERE user_id = $1 ORDER BY created_at DESC, id DESC LIMIT $2
		 ) recent ORDER BY created_at, id`, userID, limit)
	if err != nil {
		return nil, contextutils.WrapError(err, "failed to load chat history")
	}
	defer func() { _ = rows.Close() }()

	history := []models.ChatMessage{}
	for rows.Next() {
		var m models.ChatMessage
		var role string
		if err := rows.Scan(&m.ID, &m.UserID, &role, &m.Content, &m.CreatedAt); err != nil {
			return nil, contextutils.WrapError(err, "failed to scan chat message")
		}
		m.Role = models.ChatRole(role)
		history = append(history, m)
	}
	return history, rows.Err()
}

// Chat sends a message to the tutor with recent history as context. Both turns
// are stored only when the provider answers.
func (s *AIService) Chat(ctx context.Context, userID int, message string) (result0 *models.ChatMessage, err error) {
	ctx, span := observability.TraceAIFunction(ctx, "Chat", observability.AttributeUserID(userID))
	defer observability.FinishSpan(span, &err)

	message = strings.TrimSpace(message)
	if message == "" {
		return nil, contextutils.WrapError(contextutils.ErrMissingRequired, "message is required")
	}
	if len([]rune(message)) > MaxChatMessageLength {
		return nil, contextutils.WrapErrorf(contextutils.ErrInvalidInput, "message is longer than %d characters", MaxChatMessageLength)
	}

	provider, model, err := s.provider()
	if err != nil {
		return nil, err
	}
	level, native, err := s.learnerContext(ctx, userID)
	if err != nil {
		return nil, err
	}
	system, err := s.templates.RenderTemplate(ChatPromptTemplate, AITemplateData{Level: level, NativeLanguage: native})
	if err != nil {
		return nil, contextutils.WrapError(err, "failed to render chat prompt")
	}
	history, err := s.ChatHistory(ctx, userID, 0)
	if err != nil {
		return nil, err
	}

	messages := make([]chatMessage, 0, len(history)+2)
	messages = append(messages, chatMessage{Role: "system", Content: system})
	for _, h := range history {
		messages = append(messages, chatMessage{Role: string(h.Role), Content: h.Content})
	}
	messages = append(messages, chatMessage{Role: "user", Content: message})

	var answer string
	err = s.withConcurrencyControl(ctx, userID, func() error {
		var callErr error
		answer, callErr = s.callChatCompletions(ctx, provider, model, messages, false)
		return callErr
	})
	if err != nil {
		return nil, err
	}

	reply := &models.ChatMessage{UserID: userID, Role: models.ChatRoleAssistant, Content: strings.TrimSpace(answer)}
	err = database.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO chat_messages (user_id, role, content) VALUES ($1, $2, $3)`,
			userID, string(models.ChatRoleUser), message); err != nil {
			return contextutils.WrapError(err, "failed to store chat message")
		}
		// the reply must sort after the question
		return tx.QueryRowContext(ctx,
			`INSERT INTO chat_messages (user_id, role, content, created_at)
			 VALUES ($1, $2, $3, clock_timestamp()) RETURNING id, created_at`,
			userID, string(models.ChatRoleAssistant), reply.Content).Scan(&reply.ID, &reply.CreatedAt)
	})
	if err != nil {
		return nil, err
	}
	return reply, nil
}

// String renders the stats for log lines
func (c ConcurrencyStats) String() string {
	return fmt.Sprintf("active=%d/%d total=%d", c.ActiveRequests, c.MaxConcurrent, c.TotalRequests)
}
