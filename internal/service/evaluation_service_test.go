package service

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/exampilot-api/internal/dto"
	"github.com/noah-isme/exampilot-api/internal/models"
	"github.com/noah-isme/exampilot-api/internal/repository"
	"github.com/noah-isme/exampilot-api/pkg/ai"
	"github.com/noah-isme/exampilot-api/pkg/storage"
)

var pngPage = []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n', 0, 0, 0, 0x0d, 'I', 'H', 'D', 'R', 1, 2, 3}

func TestEvaluateUsesSuppliedTextWithoutDownloadOrOCR(t *testing.T) {
	h := newPipelineHarness(t)
	submission := h.createSubmission(t, "user-1/sheet.png", nil)
	svc := h.service(PipelineConfig{}, nil, nil)

	response, err := svc.Evaluate(context.Background(), "user-1", dto.EvaluateAnswerSheetRequest{
		SubmissionID:    submission.ID,
		AnswerSheetText: "Q1: Paris\nQ2: 42",
	})
	require.NoError(t, err)
	require.Equal(t, models.SubmissionStatusCompleted, response.Status)
	require.Equal(t, 0.0, response.Evaluation.TotalScore)
	require.Equal(t, 100.0, response.Evaluation.MaxScore)
	require.Equal(t, []string{}, response.Evaluation.WeakAreas)

	require.Zero(t, h.store.downloadCount())
	require.Zero(t, h.extractor.calls())
	require.Equal(t, 1, h.evaluator.calls())
	require.Equal(t, "Q1: Paris\nQ2: 42", h.evaluator.inputs[0].AnswerSheetText)
	require.Empty(t, h.evaluator.inputs[0].AnswerKeyText)

	stored := h.reload(t, submission.ID)
	require.Equal(t, models.SubmissionStatusCompleted, stored.ProcessingStatus)
	require.Equal(t, "Q1: Paris\nQ2: 42", *stored.OCRText)
	require.Len(t, stored.Evaluations, 1)
	require.Equal(t, 0.0, stored.Evaluations[0].TotalScore)
}

func TestEvaluateFailsOnRawPDFWithoutCallingModels(t *testing.T) {
	h := newPipelineHarness(t)
	submission := h.createSubmission(t, "user-1/sheet.pdf", nil)
	h.store.put(storage.BucketAnswerSheets, "user-1/sheet.pdf", []byte("%PDF-1.4\n%%EOF"))
	svc := h.service(PipelineConfig{}, nil, nil)

	_, err := svc.Evaluate(context.Background(), "user-1", dto.EvaluateAnswerSheetRequest{SubmissionID: submission.ID})
	require.ErrorIs(t, err, ErrPDFRequiresRendering)
	require.True(t, IsAcquisitionError(err))

	require.Zero(t, h.extractor.calls())
	require.Zero(t, h.evaluator.calls())
	require.Equal(t, models.SubmissionStatusFailed, h.reload(t, submission.ID).ProcessingStatus)
	require.Zero(t, h.evaluationCount(t, submission.ID))
}

func TestEvaluateMarksFailedWhenGatewayRateLimits(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error":{"message":"Rate limit exceeded","type":"rate_limit"}}`))
	}))
	t.Cleanup(server.Close)

	gateway, err := ai.NewOpenAIGateway(ai.OpenAIConfig{APIKey: "test-key", BaseURL: server.URL + "/v1", Logger: zerolog.Nop()})
	require.NoError(t, err)

	h := newPipelineHarness(t)
	submission := h.createSubmission(t, "user-1/sheet.png", nil)
	svc := h.service(PipelineConfig{}, nil, gateway)

	_, err = svc.Evaluate(context.Background(), "user-1", dto.EvaluateAnswerSheetRequest{
		SubmissionID:    submission.ID,
		AnswerSheetText: "Q1: Paris",
	})
	require.ErrorIs(t, err, ai.ErrRateLimited)
	require.Contains(t, err.Error(), "rate limit")
	require.EqualValues(t, 1, calls.Load())

	require.Equal(t, models.SubmissionStatusFailed, h.reload(t, submission.ID).ProcessingStatus)
	require.Zero(t, h.evaluationCount(t, submission.ID))
}

func TestEvaluateOCRsStoredImage(t *testing.T) {
	h := newPipelineHarness(t)
	submission := h.createSubmission(t, "user-1/sheet.png", nil)
	h.store.put(storage.BucketAnswerSheets, "user-1/sheet.png", pngPage)
	svc := h.service(PipelineConfig{}, nil, nil)

	_, err := svc.Evaluate(context.Background(), "user-1", dto.EvaluateAnswerSheetRequest{SubmissionID: submission.ID})
	require.NoError(t, err)

	require.Equal(t, 1, h.extractor.calls())
	request := h.extractor.requests[0]
	require.Equal(t, ai.AnswerSheetOCRInstruction, request.Instruction)
	require.Len(t, request.Images, 1)
	require.True(t, strings.HasPrefix(request.Images[0], "data:image/png;base64,"))
	require.Equal(t, "Q1: Paris\nQ2: 42", h.evaluator.inputs[0].AnswerSheetText)
}

func TestEvaluateCapsPageImages(t *testing.T) {
	h := newPipelineHarness(t)
	submission := h.createSubmission(t, "user-1/sheet.pdf", nil)
	svc := h.service(PipelineConfig{}, nil, nil)

	images := make([]string, 7)
	for i := range images {
		images[i] = "data:image/png;base64,cGFnZQ=="
	}

	_, err := svc.Evaluate(context.Background(), "user-1", dto.EvaluateAnswerSheetRequest{
		SubmissionID:      submission.ID,
		AnswerSheetImages: images,
	})
	require.NoError(t, err)
	require.Zero(t, h.store.downloadCount())
	require.Len(t, h.extractor.requests[0].Images, 5)
}

func TestEvaluateToleratesMissingAnswerKey(t *testing.T) {
	h := newPipelineHarness(t)
	keyPath := "user-1/key.png"
	submission := h.createSubmission(t, "user-1/sheet.png", &keyPath)
	svc := h.service(PipelineConfig{}, nil, nil)

	_, err := svc.Evaluate(context.Background(), "user-1", dto.EvaluateAnswerSheetRequest{
		SubmissionID:    submission.ID,
		AnswerSheetText: "Q1: Paris",
	})
	require.NoError(t, err)
	require.Equal(t, []string{storage.BucketAnswerKeys + "/user-1/key.png"}, h.store.downloads)
	require.Empty(t, h.evaluator.inputs[0].AnswerKeyText)
	require.Equal(t, models.SubmissionStatusCompleted, h.reload(t, submission.ID).ProcessingStatus)
}

func TestEvaluateDropsBlankAnswerKeyTranscription(t *testing.T) {
	h := newPipelineHarness(t)
	h.extractor.key = "   \n"
	submission := h.createSubmission(t, "user-1/sheet.png", nil)
	svc := h.service(PipelineConfig{}, nil, nil)

	_, err := svc.Evaluate(context.Background(), "user-1", dto.EvaluateAnswerSheetRequest{
		SubmissionID:    submission.ID,
		AnswerSheetText: "Q1: Paris",
		AnswerKeyImages: []string{"data:image/png;base64,a2V5"},
	})
	require.NoError(t, err)
	require.Equal(t, 1, h.extractor.calls())
	require.Empty(t, h.evaluator.inputs[0].AnswerKeyText)
}

func TestEvaluatePassesAnswerKeyText(t *testing.T) {
	h := newPipelineHarness(t)
	submission := h.createSubmission(t, "user-1/sheet.png", nil)
	svc := h.service(PipelineConfig{}, nil, nil)

	_, err := svc.Evaluate(context.Background(), "user-1", dto.EvaluateAnswerSheetRequest{
		SubmissionID:    submission.ID,
		AnswerSheetText: "Q1: Paris",
		AnswerKeyText:   "Q1: Paris (capital of France)",
	})
	require.NoError(t, err)
	require.Equal(t, "Q1: Paris (capital of France)", h.evaluator.inputs[0].AnswerKeyText)
}

func TestEvaluateFailsOnBlankSheetTranscription(t *testing.T) {
	h := newPipelineHarness(t)
	h.extractor.sheet = "  "
	submission := h.createSubmission(t, "user-1/sheet.png", nil)
	svc := h.service(PipelineConfig{}, nil, nil)

	_, err := svc.Evaluate(context.Background(), "user-1", dto.EvaluateAnswerSheetRequest{
		SubmissionID:      submission.ID,
		AnswerSheetImages: []string{"data:image/png;base64,cGFnZQ=="},
	})
	require.ErrorIs(t, err, ErrEmptyExtraction)
	require.Zero(t, h.evaluator.calls())
	require.Equal(t, models.SubmissionStatusFailed, h.reload(t, submission.ID).ProcessingStatus)
}

func TestEvaluateFailsWhenSheetMissingFromStorage(t *testing.T) {
	h := newPipelineHarness(t)
	submission := h.createSubmission(t, "user-1/missing.png", nil)
	svc := h.service(PipelineConfig{}, nil, nil)

	_, err := svc.Evaluate(context.Background(), "user-1", dto.EvaluateAnswerSheetRequest{SubmissionID: submission.ID})
	require.ErrorIs(t, err, ErrAnswerSheetUnavailable)
	require.Equal(t, models.SubmissionStatusFailed, h.reload(t, submission.ID).ProcessingStatus)
}

func TestEvaluateIncludesCourseMaterialNames(t *testing.T) {
	h := newPipelineHarness(t)
	ctx := context.Background()
	require.NoError(t, h.materials.Create(ctx, &models.ResourceMaterial{CourseID: "course-1", UserID: "user-1", FileName: "syllabus.pdf", FilePath: "a", ResourceType: models.ResourceTypeSyllabus}))
	require.NoError(t, h.materials.Create(ctx, &models.ResourceMaterial{CourseID: "course-1", UserID: "user-2", FileName: "notes.pdf", FilePath: "b", ResourceType: models.ResourceTypeNotes}))
	require.NoError(t, h.materials.Create(ctx, &models.ResourceMaterial{CourseID: "course-2", UserID: "user-1", FileName: "other.pdf", FilePath: "c", ResourceType: models.ResourceTypeNotes}))

	submission := h.createSubmission(t, "user-1/sheet.png", nil)
	svc := h.service(PipelineConfig{}, nil, nil)

	_, err := svc.Evaluate(ctx, "user-1", dto.EvaluateAnswerSheetRequest{SubmissionID: submission.ID, AnswerSheetText: "Q1: Paris"})
	require.NoError(t, err)
	require.ElementsMatch(t, []string{"syllabus.pdf", "notes.pdf"}, h.evaluator.inputs[0].MaterialNames)
}

type failingCompletionRepo struct {
	repository.SubmissionRepository
}

func (failingCompletionRepo) CompleteWithEvaluation(context.Context, string, string, *models.Evaluation) error {
	return errors.New("disk full")
}

func TestEvaluatePersistenceFailureLeavesNoEvaluation(t *testing.T) {
	h := newPipelineHarness(t)
	submission := h.createSubmission(t, "user-1/sheet.png", nil)
	svc := NewAnswerSheetEvaluationService(failingCompletionRepo{h.submissions}, h.materials, h.store, h.extractor, h.evaluator, nil, validator.New(), zerolog.Nop(), PipelineConfig{})

	_, err := svc.Evaluate(context.Background(), "user-1", dto.EvaluateAnswerSheetRequest{SubmissionID: submission.ID, AnswerSheetText: "Q1: Paris"})
	require.ErrorIs(t, err, ErrEvaluationPersistence)
	require.Equal(t, 1, h.evaluator.calls())
	require.Equal(t, models.SubmissionStatusFailed, h.reload(t, submission.ID).ProcessingStatus)
	require.Zero(t, h.evaluationCount(t, submission.ID))
}

func TestEvaluateMalformedModelOutputMarksFailed(t *testing.T) {
	h := newPipelineHarness(t)
	h.evaluator.raw = "The student did well overall."
	submission := h.createSubmission(t, "user-1/sheet.png", nil)
	svc := h.service(PipelineConfig{}, nil, nil)

	_, err := svc.Evaluate(context.Background(), "user-1", dto.EvaluateAnswerSheetRequest{SubmissionID: submission.ID, AnswerSheetText: "Q1: Paris"})
	require.ErrorIs(t, err, ai.ErrMalformedResponse)
	require.Equal(t, models.SubmissionStatusFailed, h.reload(t, submission.ID).ProcessingStatus)
}

func TestEvaluateRetryAppendsEvaluation(t *testing.T) {
	h := newPipelineHarness(t)
	h.evaluator.err = ai.ErrGatewayUnavailable
	submission := h.createSubmission(t, "user-1/sheet.png", nil)
	svc := h.service(PipelineConfig{}, nil, nil)
	request := dto.EvaluateAnswerSheetRequest{SubmissionID: submission.ID, AnswerSheetText: "Q1: Paris"}

	_, err := svc.Evaluate(context.Background(), "user-1", request)
	require.ErrorIs(t, err, ai.ErrGatewayUnavailable)
	require.Equal(t, models.SubmissionStatusFailed, h.reload(t, submission.ID).ProcessingStatus)

	h.evaluator.err = nil
	h.evaluator.raw = `{"total_score": 8, "max_score": 10}`
	_, err = svc.Evaluate(context.Background(), "user-1", request)
	require.NoError(t, err)
	_, err = svc.Evaluate(context.Background(), "user-1", request)
	require.NoError(t, err)

	stored := h.reload(t, submission.ID)
	require.Equal(t, models.SubmissionStatusCompleted, stored.ProcessingStatus)
	require.Len(t, stored.Evaluations, 2)
	require.Equal(t, 8.0, stored.Evaluations[0].TotalScore)
}

func TestEvaluateStoresAnalyticsAsReturned(t *testing.T) {
	h := newPipelineHarness(t)
	h.evaluator.raw = `{"total_score": 4, "detailed_analytics": {"questions": [{"question_number": 1, "score": "4", "max_score": 5, "rubric": "A"}]}}`
	submission := h.createSubmission(t, "user-1/sheet.png", nil)
	svc := h.service(PipelineConfig{}, nil, nil)

	_, err := svc.Evaluate(context.Background(), "user-1", dto.EvaluateAnswerSheetRequest{SubmissionID: submission.ID, AnswerSheetText: "Q1: Paris"})
	require.NoError(t, err)

	stored := h.reload(t, submission.ID)
	require.Len(t, stored.Evaluations, 1)
	analytics := stored.Evaluations[0].DetailedAnalytics
	questions := analytics["questions"].([]interface{})
	question := questions[0].(map[string]interface{})
	require.Equal(t, 1.0, question["question_number"])
	require.Equal(t, "4", question["score"])
	require.Equal(t, "A", question["rubric"])
	require.NotContains(t, question, "question_text")
	require.Equal(t, []interface{}{}, analytics["strengths"])
}

func TestEvaluateRecoversFromPanic(t *testing.T) {
	h := newPipelineHarness(t)
	h.evaluator.panic = true
	submission := h.createSubmission(t, "user-1/sheet.png", nil)
	svc := h.service(PipelineConfig{}, nil, nil)

	_, err := svc.Evaluate(context.Background(), "user-1", dto.EvaluateAnswerSheetRequest{SubmissionID: submission.ID, AnswerSheetText: "Q1: Paris"})
	require.ErrorIs(t, err, ErrPipelineAborted)
	require.Equal(t, models.SubmissionStatusFailed, h.reload(t, submission.ID).ProcessingStatus)
}

func TestEvaluateCancelledRequestStillMarksFailed(t *testing.T) {
	h := newPipelineHarness(t)
	submission := h.createSubmission(t, "user-1/sheet.png", nil)
	svc := h.service(PipelineConfig{}, nil, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	h.evaluator.before = cancel
	h.evaluator.err = context.Canceled

	_, err := svc.Evaluate(ctx, "", dto.EvaluateAnswerSheetRequest{SubmissionID: submission.ID, AnswerSheetText: "Q1: Paris"})
	require.ErrorIs(t, err, context.Canceled)
	require.Equal(t, models.SubmissionStatusFailed, h.reload(t, submission.ID).ProcessingStatus)
}

func TestEvaluateRejectsInvalidRequests(t *testing.T) {
	h := newPipelineHarness(t)
	submission := h.createSubmission(t, "user-1/sheet.png", nil)
	svc := h.service(PipelineConfig{}, nil, nil)
	ctx := context.Background()

	_, err := svc.Evaluate(ctx, "user-1", dto.EvaluateAnswerSheetRequest{SubmissionID: "   "})
	require.ErrorIs(t, err, ErrSubmissionIDRequired)

	_, err = svc.Evaluate(ctx, "user-1", dto.EvaluateAnswerSheetRequest{SubmissionID: "unknown"})
	require.ErrorIs(t, err, ErrSubmissionNotFound)

	_, err = svc.Evaluate(ctx, "user-2", dto.EvaluateAnswerSheetRequest{SubmissionID: submission.ID, AnswerSheetText: "Q1"})
	require.ErrorIs(t, err, ErrSubmissionForbidden)

	require.Zero(t, h.evaluator.calls())
	require.Equal(t, models.SubmissionStatusNotStarted, h.reload(t, submission.ID).ProcessingStatus)
}
