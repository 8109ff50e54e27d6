package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/microcosm-cc/bluemonday"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/noah-isme/exampilot-api/internal/dto"
	"github.com/noah-isme/exampilot-api/internal/models"
	"github.com/noah-isme/exampilot-api/internal/repository"
	"github.com/noah-isme/exampilot-api/pkg/ai"
)

const longAnswerMarks = 10

var (
	// ErrStudyContentNotFound indicates no generated study content exists to build a paper from.
	ErrStudyContentNotFound = errors.New("no study content found, generate study materials first")
	// ErrMockPaperTooFewMarks indicates the requested marks yield no questions.
	ErrMockPaperTooFewMarks = errors.New("total marks too low for the requested question type")
	// ErrMockPaperNotFound indicates the mock paper cannot be located.
	ErrMockPaperNotFound = errors.New("mock paper not found")
	// ErrMockPaperForbidden indicates the caller does not own the mock paper.
	ErrMockPaperForbidden = errors.New("forbidden")
)

// MockPaperService generates practice exams from stored study content.
type MockPaperService interface {
	Generate(ctx context.Context, userID string, payload dto.GenerateMockPaperRequest) (dto.MockPaperResponse, error)
	Get(ctx context.Context, userID, id string) (dto.MockPaperResponse, error)
}

type mockPaperService struct {
	contents  repository.GeneratedContentRepository
	papers    repository.MockPaperRepository
	completer ai.Completer
	validator *validator.Validate
	sanitizer *bluemonday.Policy
	logger    zerolog.Logger
	tracer    trace.Tracer
}

type generatedQuestion struct {
	Text    string          `json:"text"`
	Options json.RawMessage `json:"options"`
	Answer  string          `json:"answer"`
	Marks   int             `json:"marks"`
	Concept string          `json:"concept"`
}

type mockPaperPayload struct {
	Questions *[]generatedQuestion `json:"questions"`
}

// NewMockPaperService constructs the mock paper generator.
func NewMockPaperService(contents repository.GeneratedContentRepository, papers repository.MockPaperRepository, completer ai.Completer, validate *validator.Validate, logger zerolog.Logger) MockPaperService {
	return &mockPaperService{
		contents:  contents,
		papers:    papers,
		completer: completer,
		validator: validate,
		sanitizer: bluemonday.StrictPolicy(),
		logger:    logger.With().Str("component", "mock_paper_service").Logger(),
		tracer:    otel.Tracer("github.com/noah-isme/exampilot-api/internal/service/mock_paper"),
	}
}

// QuestionCount is the number of questions requested for a paper: one per mark for MCQs,
// one per ten marks for long answers.
func QuestionCount(questionType string, totalMarks int) int {
	if questionType == models.QuestionTypeMCQ {
		return totalMarks
	}
	return totalMarks / longAnswerMarks
}

func (s *mockPaperService) Generate(ctx context.Context, userID string, payload dto.GenerateMockPaperRequest) (dto.MockPaperResponse, error) {
	payload.CourseID = strings.TrimSpace(payload.CourseID)
	payload.Title = strings.TrimSpace(s.sanitizer.Sanitize(payload.Title))
	if err := s.validator.Struct(payload); err != nil {
		return dto.MockPaperResponse{}, err
	}

	count := QuestionCount(payload.QuestionType, payload.TotalMarks)
	if count <= 0 {
		return dto.MockPaperResponse{}, ErrMockPaperTooFewMarks
	}

	ctx, span := s.tracer.Start(ctx, "mock_paper.generate", trace.WithAttributes(
		attribute.String("course.id", payload.CourseID),
		attribute.String("mock_paper.question_type", payload.QuestionType),
		attribute.Int("mock_paper.questions", count),
	))
	defer span.End()

	logger := s.logger.With().Str("course_id", payload.CourseID).Logger()

	contents, err := s.contents.ListByCourse(ctx, payload.CourseID, userID)
	if err != nil {
		return dto.MockPaperResponse{}, fmt.Errorf("load study content: %w", err)
	}
	if len(contents) == 0 {
		return dto.MockPaperResponse{}, ErrStudyContentNotFound
	}

	content, err := s.completer.Complete(ctx, ai.MockPaperPrompt(courseContext(contents), payload.QuestionType, count))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "completion failed")
		return dto.MockPaperResponse{}, err
	}

	var generated mockPaperPayload
	if err := ai.DecodeJSONContent(content, &generated); err != nil {
		logger.Error().Err(err).Msg("mock paper response unusable")
		return dto.MockPaperResponse{}, err
	}
	if generated.Questions == nil {
		logger.Error().Msg("mock paper response has no questions array")
		return dto.MockPaperResponse{}, fmt.Errorf("%w: questions", ErrGeneratedContentInvalid)
	}

	paper := models.MockPaper{
		CourseID:        payload.CourseID,
		UserID:          userID,
		Title:           payload.Title,
		QuestionType:    payload.QuestionType,
		TotalMarks:      payload.TotalMarks,
		DurationMinutes: payload.DurationMinutes,
	}

	questions := make([]models.Question, 0, len(*generated.Questions))
	for _, item := range *generated.Questions {
		questions = append(questions, buildQuestion(payload.QuestionType, item))
	}

	if err := s.papers.CreateWithQuestions(ctx, &paper, questions); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "persistence failed")
		return dto.MockPaperResponse{}, fmt.Errorf("store mock paper: %w", err)
	}

	if len(questions) != count {
		logger.Warn().Int("requested", count).Int("received", len(questions)).Msg("model returned a different question count")
	}
	logger.Info().Str("mock_paper_id", paper.ID).Int("questions", len(questions)).Msg("mock paper generated")
	span.SetStatus(codes.Ok, "generated")
	return dto.NewMockPaperResponse(paper), nil
}

func (s *mockPaperService) Get(ctx context.Context, userID, id string) (dto.MockPaperResponse, error) {
	paper, err := s.papers.GetByID(ctx, strings.TrimSpace(id))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.MockPaperResponse{}, ErrMockPaperNotFound
		}
		return dto.MockPaperResponse{}, err
	}
	if paper.UserID != userID {
		return dto.MockPaperResponse{}, ErrMockPaperForbidden
	}
	return dto.NewMockPaperResponse(paper), nil
}

// courseContext renders summaries in full and other content kinds by module name only.
func courseContext(contents []models.GeneratedContent) string {
	sections := make([]string, 0, len(contents))
	for _, item := range contents {
		if item.ContentType != models.ContentTypeSummary {
			sections = append(sections, "Module: "+item.ModuleName)
			continue
		}

		var points []string
		if err := json.Unmarshal(item.Content, &points); err != nil {
			sections = append(sections, "Module: "+item.ModuleName)
			continue
		}
		sections = append(sections, fmt.Sprintf("Module: %s\nSummary:\n%s", item.ModuleName, strings.Join(points, "\n")))
	}
	return strings.Join(sections, "\n\n")
}

func buildQuestion(questionType string, item generatedQuestion) models.Question {
	question := models.Question{
		QuestionText: strings.TrimSpace(item.Text),
		QuestionType: questionType,
		Marks:        item.Marks,
		Options:      datatypes.JSON("null"),
		ConceptTags:  datatypes.JSONSlice[string]{},
	}

	if question.Marks <= 0 {
		question.Marks = 1
		if questionType == models.QuestionTypeLongAnswer {
			question.Marks = longAnswerMarks
		}
	}

	if concept := strings.TrimSpace(item.Concept); concept != "" {
		question.ConceptTags = datatypes.JSONSlice[string]{concept}
	}

	switch questionType {
	case models.QuestionTypeMCQ:
		if options := strings.TrimSpace(string(item.Options)); options != "" {
			question.Options = datatypes.JSON(options)
		}
	case models.QuestionTypeLongAnswer:
		answer := strings.TrimSpace(item.Answer)
		question.CorrectAnswer = &answer
	}
	return question
}
