package services

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"telugulearn/internal/config"
	"telugulearn/internal/models"
	contextutils "telugulearn/internal/utils"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const validQuiz = `{"items":[{"question":"What is 'water'?","options":["నీరు","పాలు","అన్నం","పండు"],"correct_answer":0,"explanation":"నీరు (neeru) means water."}]}`

func newTestAIService(t *testing.T, url string) *AIService {
	t.Helper()
	cfg := &config.Config{AI: config.AIConfig{
		Enabled:       true,
		MaxConcurrent: 2,
		MaxPerUser:    1,
		Providers: []config.ProviderConfig{{
			Name:   "Test",
			Code:   "test",
			URL:    url,
			APIKey: "sk-test",
			Models: []config.AIModel{{Name: "Tiny", Code: "tiny", MaxTokens: 256}},
		}},
	}}
	svc, err := NewAIServiceWithLogger(nil, cfg, createTestLogger())
	require.NoError(t, err)
	return svc
}

func completionHandler(t *testing.T, content string, seen *chatCompletionRequest) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
		if seen != nil {
			require.NoError(t, json.NewDecoder(r.Body).Decode(seen))
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"choices": []map[string]interface{}{{"message": map[string]string{"role": "assistant", "content": content}}},
		})
	}
}

func TestAIService_Enabled(t *testing.T) {
	svc := newTestAIService(t, "http://ai.local/v1")
	assert.True(t, svc.Enabled())

	svc.cfg.AI.Enabled = false
	assert.False(t, svc.Enabled())
	_, err := svc.Chat(context.Background(), 1, "hello")
	assert.True(t, contextutils.IsError(err, contextutils.ErrAIProviderUnavailable))

	svc.cfg.AI.Enabled = true
	svc.cfg.AI.Providers[0].Models = nil
	assert.False(t, svc.Enabled())
}

func TestAIService_CallChatCompletions(t *testing.T) {
	var seen chatCompletionRequest
	server := httptest.NewServer(completionHandler(t, "namaskaram", &seen))
	defer server.Close()

	svc := newTestAIService(t, server.URL+"/")
	provider, model, err := svc.provider()
	require.NoError(t, err)

	out, err := svc.callChatCompletions(context.Background(), provider, model,
		[]chatMessage{{Role: "user", Content: "hi"}}, true)
	require.NoError(t, err)
	assert.Equal(t, "namaskaram", out)
	assert.Equal(t, "tiny", seen.Model)
	assert.Equal(t, 256, seen.MaxTokens)
	assert.Equal(t, defaultTemperature, seen.Temperature)
	assert.Equal(t, "json_object", seen.ResponseFormat["type"])
}

func TestAIService_CallChatCompletions_Errors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		want   *contextutils.AppError
	}{
		{"server error", http.StatusInternalServerError, `{}`, contextutils.ErrAIRequestFailed},
		{"rate limited", http.StatusTooManyRequests, `{}`, contextutils.ErrRateLimit},
		{"not json", http.StatusOK, `<html>`, contextutils.ErrAIResponseInvalid},
		{"no choices", http.StatusOK, `{"choices":[]}`, contextutils.ErrAIResponseInvalid},
		{"api error", http.StatusOK, `{"error":{"message":"bad model","type":"invalid"}}`, contextutils.ErrAIRequestFailed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer server.Close()

			svc := newTestAIService(t, server.URL)
			provider, model, _ := svc.provider()
			_, err := svc.callChatCompletions(context.Background(), provider, model, []chatMessage{{Role: "user", Content: "x"}}, false)
			assert.True(t, contextutils.IsError(err, tt.want), "got %v", err)
		})
	}
}

func TestAIService_UserLimit(t *testing.T) {
	svc := newTestAIService(t, "http://ai.local")
	ctx := context.Background()

	entered := make(chan struct{})
	release := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		_ = svc.withConcurrencyControl(ctx, 7, func() error {
			close(entered)
			<-release
			return nil
		})
	}()
	<-entered

	err := svc.withConcurrencyControl(ctx, 7, func() error { return nil })
	assert.True(t, contextutils.IsError(err, contextutils.ErrRateLimit))

	// other users are still served
	assert.NoError(t, svc.withConcurrencyControl(ctx, 8, func() error { return nil }))
	assert.Equal(t, 1, svc.GetConcurrencyStats().ActiveRequests)

	close(release)
	wg.Wait()
	stats := svc.GetConcurrencyStats()
	assert.Equal(t, 0, stats.ActiveRequests)
	assert.Equal(t, int64(2), stats.TotalRequests)
	assert.Empty(t, stats.UserActiveCount)
}

func TestAIService_GlobalLimit(t *testing.T) {
	svc := newTestAIService(t, "http://ai.local")
	ctx := context.Background()
	svc.globalSemaphore <- struct{}{}
	svc.globalSemaphore <- struct{}{}

	err := svc.withConcurrencyControl(ctx, 1, func() error { return nil })
	assert.True(t, contextutils.IsError(err, contextutils.ErrServiceUnavailable))
	assert.Empty(t, svc.GetConcurrencyStats().UserActiveCount, "user slot is released on rejection")
}

func TestAIService_ShutdownRejectsNewRequests(t *testing.T) {
	svc := newTestAIService(t, "http://ai.local")
	require.NoError(t, svc.Shutdown(context.Background()))

	err := svc.withConcurrencyControl(context.Background(), 1, func() error { return nil })
	assert.True(t, contextutils.IsError(err, contextutils.ErrServiceUnavailable))
}

func TestCleanJSONResponse(t *testing.T) {
	assert.Equal(t, `{"a":1}`, cleanJSONResponse("```json\n{\"a\":1}\n```"))
	assert.Equal(t, `{"a":1}`, cleanJSONResponse(`Here you go: {"a":1} enjoy`))
	assert.Equal(t, `nothing`, cleanJSONResponse(" nothing "))
}

func TestAITemplateManager(t *testing.T) {
	tm, err := NewAITemplateManager()
	require.NoError(t, err)

	prompt, err := tm.RenderTemplate(ActivityPromptTemplate, AITemplateData{
		Kind:       models.KindQuiz,
		Topic:      "food",
		Level:      "beginner",
		Count:      3,
		FocusWords: []string{"అన్నం", "పాలు"},
		Schema:     tm.Schema(models.KindQuiz),
	})
	require.NoError(t, err)
	assert.Contains(t, prompt, "Create exactly 3 multiple-choice quiz questions about \"food\"")
	assert.Contains(t, prompt, "అన్నం, పాలు")
	assert.Contains(t, prompt, `"correct_answer"`)

	chat, err := tm.RenderTemplate(ChatPromptTemplate, AITemplateData{Level: "advanced", NativeLanguage: "English"})
	require.NoError(t, err)
	assert.Contains(t, chat, "level is advanced")

	assert.NoError(t, tm.Validate(models.KindQuiz, []byte(validQuiz)))
	assert.NoError(t, tm.Validate(models.KindFlashcard, []byte(`{"items":[{"telugu":"ఇల్లు","english":"house"}]}`)))

	err = tm.Validate(models.KindQuiz, []byte(`{"items":[{"question":"q","options":["a","b"],"correct_answer":5}]}`))
	assert.True(t, contextutils.IsError(err, contextutils.ErrAIResponseInvalid))
	err = tm.Validate(models.KindFlashcard, []byte(`{"items":[]}`))
	assert.True(t, contextutils.IsError(err, contextutils.ErrAIResponseInvalid))
	err = tm.Validate("story", []byte(`{}`))
	assert.True(t, contextutils.IsError(err, contextutils.ErrInvalidInput))
}

func TestAIService_GenerateActivity_RejectsBadInput(t *testing.T) {
	svc := newTestAIService(t, "http://ai.local")
	ctx := context.Background()

	_, err := svc.GenerateActivity(ctx, 1, models.GenerateActivityRequest{Kind: "story"})
	assert.True(t, contextutils.IsError(err, contextutils.ErrInvalidInput))
	_, err = svc.GenerateActivity(ctx, 1, models.GenerateActivityRequest{Kind: models.KindQuiz, Count: MaxGenerateCount + 1})
	assert.True(t, contextutils.IsError(err, contextutils.ErrInvalidInput))
	_, err = svc.GenerateActivity(ctx, 1, models.GenerateActivityRequest{Kind: models.KindQuiz, Level: "expert"})
	assert.True(t, contextutils.IsError(err, contextutils.ErrInvalidInput))

	_, err = svc.Chat(ctx, 1, "   ")
	assert.True(t, contextutils.IsError(err, contextutils.ErrMissingRequired))
}
