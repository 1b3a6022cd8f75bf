package gemini

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"
	"google.golang.org/genai"
)

type fakeModels struct {
	mu sync.Mutex

	generateResponses []fakeResponse
	generateCalls     int

	embedResponses []fakeEmbedResponse
	embedCalls     int
}

type fakeResponse struct {
	resp *genai.GenerateContentResponse
	err  error
}

type fakeEmbedResponse struct {
	resp *genai.EmbedContentResponse
	err  error
}

func (f *fakeModels) GenerateContent(_ context.Context, _ string, _ []*genai.Content, _ *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.generateResponses) == 0 {
		return nil, errors.New("unexpected generate call")
	}
	res := f.generateResponses[0]
	f.generateResponses = f.generateResponses[1:]
	f.generateCalls++
	return res.resp, res.err
}

func (f *fakeModels) EmbedContent(_ context.Context, _ string, _ []*genai.Content, _ *genai.EmbedContentConfig) (*genai.EmbedContentResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.embedResponses) == 0 {
		return nil, errors.New("unexpected embed call")
	}
	res := f.embedResponses[0]
	f.embedResponses = f.embedResponses[1:]
	f.embedCalls++
	return res.resp, res.err
}

func textResponse(text string) *genai.GenerateContentResponse {
	return &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{
			Content: &genai.Content{Parts: []*genai.Part{{Text: text}}},
		}},
	}
}

func newTestGenerator(models *fakeModels, maxRetries int) *Generator {
	return &Generator{
		models:         models,
		model:          "gemini-pro",
		embeddingModel: "embedding-test",
		maxRetries:     maxRetries,
		logger:         zap.NewNop(),
	}
}

func TestGeneratorRetriesOnTemporaryError(t *testing.T) {
	originalSleep := sleep
	sleep = func(time.Duration) {}
	defer func() { sleep = originalSleep }()

	tempErr := genai.APIError{Code: http.StatusInternalServerError, Status: "INTERNAL"}
	models := &fakeModels{
		generateResponses: []fakeResponse{
			{err: tempErr},
			{resp: textResponse("retry ok")},
		},
	}

	g := newTestGenerator(models, 2)

	output, err := g.GenerateContent(context.Background(), "prompt")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if output != "retry ok" {
		t.Fatalf("unexpected output: %q", output)
	}
	if models.generateCalls != 2 {
		t.Fatalf("expected 2 calls, got %d", models.generateCalls)
	}
}

func TestGeneratorStopsAfterRetriesExhausted(t *testing.T) {
	originalSleep := sleep
	sleep = func(time.Duration) {}
	defer func() { sleep = originalSleep }()

	tempErr := genai.APIError{Code: http.StatusServiceUnavailable, Status: "UNAVAILABLE"}
	models := &fakeModels{
		generateResponses: []fakeResponse{
			{err: tempErr},
			{err: tempErr},
		},
	}

	g := newTestGenerator(models, 2)

	_, err := g.GenerateContent(context.Background(), "prompt")
	if err == nil {
		t.Fatal("expected error after retries exhausted")
	}
	if models.generateCalls != 2 {
		t.Fatalf("expected 2 calls, got %d", models.generateCalls)
	}
}

func TestGeneratorDoesNotRetryPermanentErrors(t *testing.T) {
	models := &fakeModels{
		generateResponses: []fakeResponse{
			{err: genai.APIError{Code: http.StatusBadRequest, Status: "INVALID_ARGUMENT"}},
		},
	}

	g := newTestGenerator(models, 3)

	_, err := g.GenerateContent(context.Background(), "prompt")
	if err == nil {
		t.Fatal("expected error")
	}
	if models.generateCalls != 1 {
		t.Fatalf("expected a single call, got %d", models.generateCalls)
	}
}

func TestGeneratorRejectsEmptyPrompt(t *testing.T) {
	g := newTestGenerator(&fakeModels{}, 1)

	if _, err := g.GenerateContent(context.Background(), "   "); err == nil {
		t.Fatal("expected error for empty prompt")
	}
}

func TestGeneratorConcatenatesParts(t *testing.T) {
	models := &fakeModels{
		generateResponses: []fakeResponse{{
			resp: &genai.GenerateContentResponse{
				Candidates: []*genai.Candidate{{
					Content: &genai.Content{Parts: []*genai.Part{
						{Text: "first"},
						{Text: "  "},
						{Text: "second"},
					}},
				}},
			},
		}},
	}

	g := newTestGenerator(models, 1)

	output, err := g.GenerateContent(context.Background(), "prompt")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if output != "first\nsecond" {
		t.Fatalf("unexpected output: %q", output)
	}
}

func TestEmbedTextReturnsValues(t *testing.T) {
	models := &fakeModels{
		embedResponses: []fakeEmbedResponse{{
			resp: &genai.EmbedContentResponse{
				Embeddings: []*genai.ContentEmbedding{{Values: []float32{3, 4}}},
			},
		}},
	}

	g := newTestGenerator(models, 1)

	vec, err := g.EmbedText(context.Background(), "some text")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if len(vec) != 2 || vec[0] != 3 || vec[1] != 4 {
		t.Fatalf("unexpected vector: %v", vec)
	}
}

func TestEmbedTextRetriesOnQuotaError(t *testing.T) {
	originalSleep := sleep
	sleep = func(time.Duration) {}
	defer func() { sleep = originalSleep }()

	models := &fakeModels{
		embedResponses: []fakeEmbedResponse{
			{err: genai.APIError{Code: http.StatusTooManyRequests, Status: "RESOURCE_EXHAUSTED"}},
			{resp: &genai.EmbedContentResponse{
				Embeddings: []*genai.ContentEmbedding{{Values: []float32{1}}},
			}},
		},
	}

	g := newTestGenerator(models, 2)

	vec, err := g.EmbedText(context.Background(), "text")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if len(vec) != 1 {
		t.Fatalf("unexpected vector: %v", vec)
	}
	if models.embedCalls != 2 {
		t.Fatalf("expected 2 calls, got %d", models.embedCalls)
	}
}

func TestEmbedTextRejectsEmptyEmbedding(t *testing.T) {
	models := &fakeModels{
		embedResponses: []fakeEmbedResponse{{
			resp: &genai.EmbedContentResponse{},
		}},
	}

	g := newTestGenerator(models, 1)

	if _, err := g.EmbedText(context.Background(), "text"); err == nil {
		t.Fatal("expected error for empty embedding response")
	}
}
