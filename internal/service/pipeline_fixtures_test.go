package service

import (
	"context"
	"fmt"
	"io"
	"sync"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/noah-isme/exampilot-api/internal/models"
	"github.com/noah-isme/exampilot-api/internal/repository"
	"github.com/noah-isme/exampilot-api/pkg/ai"
	"github.com/noah-isme/exampilot-api/pkg/storage"
)

func openPipelineDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&models.Submission{},
		&models.Evaluation{},
		&models.ResourceMaterial{},
		&models.GeneratedContent{},
		&models.MockPaper{},
		&models.Question{},
	))
	return db
}

type memoryStore struct {
	mu        sync.Mutex
	objects   map[string][]byte
	downloads []string
	uploads   []string
	uploadErr error
}

func newMemoryStore() *memoryStore {
	return &memoryStore{objects: map[string][]byte{}}
}

func (m *memoryStore) put(bucket, key string, data []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[bucket+"/"+key] = data
}

func (m *memoryStore) Download(_ context.Context, bucket, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.downloads = append(m.downloads, bucket+"/"+key)
	data, ok := m.objects[bucket+"/"+key]
	if !ok {
		return nil, fmt.Errorf("%s/%s: %w", bucket, key, storage.ErrObjectNotFound)
	}
	return data, nil
}

func (m *memoryStore) Upload(_ context.Context, bucket, key string, reader io.Reader, _ int64, _ string) error {
	if m.uploadErr != nil {
		return m.uploadErr
	}
	data, err := io.ReadAll(reader)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.uploads = append(m.uploads, bucket+"/"+key)
	m.objects[bucket+"/"+key] = data
	return nil
}

func (m *memoryStore) downloadCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.downloads)
}

type stubExtractor struct {
	mu       sync.Mutex
	requests []ai.OCRRequest
	sheet    string
	key      string
	err      error
}

func (s *stubExtractor) ExtractText(_ context.Context, req ai.OCRRequest) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.requests = append(s.requests, req)
	if s.err != nil {
		return "", s.err
	}
	if req.Instruction == ai.AnswerKeyOCRInstruction {
		return s.key, nil
	}
	return s.sheet, nil
}

func (s *stubExtractor) calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.requests)
}

type stubEvaluator struct {
	mu     sync.Mutex
	inputs []ai.EvaluationInput
	raw    string
	err    error
	panic  bool
	before func()
}

func (s *stubEvaluator) Evaluate(_ context.Context, input ai.EvaluationInput) (ai.EvaluationRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.inputs = append(s.inputs, input)
	if s.before != nil {
		s.before()
	}
	if s.panic {
		panic("evaluator exploded")
	}
	if s.err != nil {
		return ai.EvaluationRecord{}, s.err
	}
	raw := s.raw
	if raw == "" {
		raw = "{}"
	}
	return ai.ParseEvaluationJSON(raw)
}

func (s *stubEvaluator) calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.inputs)
}

type pipelineHarness struct {
	db          *gorm.DB
	submissions repository.SubmissionRepository
	materials   repository.ResourceMaterialRepository
	store       *memoryStore
	extractor   *stubExtractor
	evaluator   *stubEvaluator
}

func newPipelineHarness(t *testing.T) *pipelineHarness {
	t.Helper()
	db := openPipelineDB(t)
	return &pipelineHarness{
		db:          db,
		submissions: repository.NewSubmissionRepository(db),
		materials:   repository.NewResourceMaterialRepository(db),
		store:       newMemoryStore(),
		extractor:   &stubExtractor{sheet: "Q1: Paris\nQ2: 42", key: "Q1: Paris\nQ2: 42"},
		evaluator:   &stubEvaluator{},
	}
}

func (h *pipelineHarness) service(cfg PipelineConfig, cache *redis.Client, evaluator ai.Evaluator) AnswerSheetEvaluationService {
	if evaluator == nil {
		evaluator = h.evaluator
	}
	return NewAnswerSheetEvaluationService(h.submissions, h.materials, h.store, h.extractor, evaluator, cache, validator.New(), zerolog.Nop(), cfg)
}

func (h *pipelineHarness) createSubmission(t *testing.T, sheetPath string, keyPath *string) models.Submission {
	t.Helper()
	submission := models.Submission{UserID: "user-1", CourseID: "course-1", AnswerSheetPath: sheetPath, AnswerKeyPath: keyPath}
	require.NoError(t, h.submissions.Create(context.Background(), &submission))
	return submission
}

func (h *pipelineHarness) reload(t *testing.T, id string) models.Submission {
	t.Helper()
	submission, err := h.submissions.GetByID(context.Background(), id)
	require.NoError(t, err)
	return submission
}

func (h *pipelineHarness) evaluationCount(t *testing.T, submissionID string) int64 {
	t.Helper()
	var count int64
	require.NoError(t, h.db.Model(&models.Evaluation{}).Where("submission_id = ?", submissionID).Count(&count).Error)
	return count
}
