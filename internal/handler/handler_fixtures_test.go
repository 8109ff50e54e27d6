package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/noah-isme/exampilot-api/internal/config"
	"github.com/noah-isme/exampilot-api/internal/database"
	"github.com/noah-isme/exampilot-api/internal/handler"
	"github.com/noah-isme/exampilot-api/internal/middleware"
	"github.com/noah-isme/exampilot-api/internal/repository"
	"github.com/noah-isme/exampilot-api/internal/router"
	"github.com/noah-isme/exampilot-api/internal/service"
	"github.com/noah-isme/exampilot-api/pkg/ai"
	"github.com/noah-isme/exampilot-api/pkg/storage"
)

const testUserHeader = "X-Test-User"

type memoryObjectStore struct {
	mu      sync.Mutex
	objects map[string][]byte
}

func (m *memoryObjectStore) Download(_ context.Context, bucket, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.objects[bucket+"/"+key]
	if !ok {
		return nil, storage.ErrObjectNotFound
	}
	return data, nil
}

func (m *memoryObjectStore) Upload(_ context.Context, bucket, key string, reader io.Reader, _ int64, _ string) error {
	data, err := io.ReadAll(reader)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[bucket+"/"+key] = data
	return nil
}

// stubModel stands in for the LLM gateway in all three roles.
type stubModel struct {
	mu         sync.Mutex
	ocrText    string
	evalRaw    string
	evalErr    error
	completion string
	completeFn func(ai.CompletionRequest) (string, error)
}

func (s *stubModel) ExtractText(context.Context, ai.OCRRequest) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ocrText, nil
}

func (s *stubModel) Evaluate(_ context.Context, _ ai.EvaluationInput) (ai.EvaluationRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.evalErr != nil {
		return ai.EvaluationRecord{}, s.evalErr
	}
	return ai.ParseEvaluationJSON(s.evalRaw)
}

func (s *stubModel) Complete(_ context.Context, req ai.CompletionRequest) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.completeFn != nil {
		return s.completeFn(req)
	}
	return s.completion, nil
}

type testApp struct {
	app   *fiber.App
	db    *gorm.DB
	store *memoryObjectStore
	model *stubModel
}

func setupApp(t *testing.T) *testApp {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))

	validate := validator.New(validator.WithRequiredStructEnabled())
	logger := zerolog.New(io.Discard)
	store := &memoryObjectStore{objects: map[string][]byte{}}
	model := &stubModel{ocrText: "Q1: Paris", evalRaw: `{"total_score": 8, "max_score": 10, "weak_areas": ["Geography"]}`}

	submissionRepo := repository.NewSubmissionRepository(db)
	materialRepo := repository.NewResourceMaterialRepository(db)
	contentRepo := repository.NewGeneratedContentRepository(db)

	evaluationService := service.NewAnswerSheetEvaluationService(submissionRepo, materialRepo, store, model, model, nil, validate, logger, service.PipelineConfig{})
	submissionService := service.NewSubmissionService(submissionRepo, store, nil, validate, 5, logger)
	materialService := service.NewMaterialService(materialRepo, store, validate, 5, logger)
	studyContentService := service.NewStudyContentService(materialRepo, contentRepo, store, model, logger)
	mockPaperService := service.NewMockPaperService(contentRepo, repository.NewMockPaperRepository(db), model, validate, logger)

	app := fiber.New()
	middleware.Register(app, middleware.Config{Logger: &logger})
	router.Register(app, config.Config{AppName: "Test", AppEnv: "test", StorageProvider: config.StorageProviderMinio}, router.Dependencies{
		EvaluationHandler:   handler.NewEvaluationHandler(evaluationService, logger),
		SubmissionHandler:   handler.NewSubmissionHandler(submissionService, logger),
		StudyContentHandler: handler.NewStudyContentHandler(studyContentService, logger),
		MaterialHandler:     handler.NewMaterialHandler(materialService, logger),
		MockPaperHandler:    handler.NewMockPaperHandler(mockPaperService, logger),
		JWTMiddleware: func(c *fiber.Ctx) error {
			user := c.Get(testUserHeader)
			if user == "" {
				user = "user-1"
			}
			c.Locals("user_id", user)
			return c.Next()
		},
	})

	return &testApp{app: app, db: db, store: store, model: model}
}

type envelope struct {
	Success bool              `json:"success"`
	Message string            `json:"message"`
	Data    json.RawMessage   `json:"data"`
	Details map[string]string `json:"details"`
}

func (a *testApp) do(t *testing.T, req *http.Request) (*http.Response, envelope) {
	t.Helper()
	resp, err := a.app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	var payload envelope
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&payload))
	return resp, payload
}

func (a *testApp) postJSON(t *testing.T, path, user string, body interface{}) (*http.Response, envelope) {
	t.Helper()
	return a.do(t, jsonRequest(t, path, user, body))
}

func (a *testApp) get(t *testing.T, path, user string) (*http.Response, envelope) {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if user != "" {
		req.Header.Set(testUserHeader, user)
	}
	return a.do(t, req)
}

func jsonRequest(t *testing.T, path, user string, body interface{}) *http.Request {
	t.Helper()
	encoded, err := json.Marshal(body)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(encoded))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(testUserHeader, user)
	return req
}

func rawRequest(method, path, contentType, body string) *http.Request {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", contentType)
	return req
}
