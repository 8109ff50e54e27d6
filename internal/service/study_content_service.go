package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

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
	"github.com/noah-isme/exampilot-api/pkg/document"
	"github.com/noah-isme/exampilot-api/pkg/storage"
)

const minSyllabusLength = 50

var (
	// ErrCourseIDRequired indicates the request carried no course identifier.
	ErrCourseIDRequired = errors.New("course id is required")
	// ErrSyllabusNotFound indicates the caller has no syllabus material for the course.
	ErrSyllabusNotFound = errors.New("syllabus not found for this course")
	// ErrSyllabusUnavailable indicates the syllabus file could not be downloaded or read.
	ErrSyllabusUnavailable = errors.New("syllabus could not be downloaded")
	// ErrSyllabusUnreadable indicates no text could be extracted from the syllabus file.
	ErrSyllabusUnreadable = errors.New("syllabus text could not be extracted")
	// ErrSyllabusTooShort indicates the syllabus carried too little text to generate from.
	ErrSyllabusTooShort = errors.New("syllabus content is too short or empty")
	// ErrGeneratedContentInvalid indicates the model output lacked the expected structure.
	ErrGeneratedContentInvalid = errors.New("model output is missing the expected structure")
)

// StudyContentService generates per-module study material from a course syllabus.
type StudyContentService interface {
	Generate(ctx context.Context, userID, courseID string) (dto.GenerateStudyContentResponse, error)
	List(ctx context.Context, userID, courseID string) ([]dto.GeneratedContentResponse, error)
}

type studyContentService struct {
	materials repository.ResourceMaterialRepository
	contents  repository.GeneratedContentRepository
	storage   storage.ObjectStore
	completer ai.Completer
	logger    zerolog.Logger
	tracer    trace.Tracer
}

type studyModule struct {
	Name     string          `json:"name"`
	Summary  json.RawMessage `json:"summary"`
	Mindmap  json.RawMessage `json:"mindmap"`
	Acronyms json.RawMessage `json:"acronyms"`
}

type studyContentPayload struct {
	Modules *[]studyModule `json:"modules"`
}

// NewStudyContentService constructs the study content generator.
func NewStudyContentService(materials repository.ResourceMaterialRepository, contents repository.GeneratedContentRepository, store storage.ObjectStore, completer ai.Completer, logger zerolog.Logger) StudyContentService {
	return &studyContentService{
		materials: materials,
		contents:  contents,
		storage:   store,
		completer: completer,
		logger:    logger.With().Str("component", "study_content_service").Logger(),
		tracer:    otel.Tracer("github.com/noah-isme/exampilot-api/internal/service/study_content"),
	}
}

func (s *studyContentService) Generate(ctx context.Context, userID, courseID string) (dto.GenerateStudyContentResponse, error) {
	courseID = strings.TrimSpace(courseID)
	if courseID == "" {
		return dto.GenerateStudyContentResponse{}, ErrCourseIDRequired
	}

	ctx, span := s.tracer.Start(ctx, "study_content.generate", trace.WithAttributes(attribute.String("course.id", courseID)))
	defer span.End()

	logger := s.logger.With().Str("course_id", courseID).Logger()

	syllabus, err := s.syllabusText(ctx, userID, courseID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "syllabus unavailable")
		return dto.GenerateStudyContentResponse{}, err
	}
	logger.Debug().Int("syllabus_length", len(syllabus)).Msg("requesting study content")

	content, err := s.completer.Complete(ctx, ai.StudyContentPrompt(syllabus))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "completion failed")
		return dto.GenerateStudyContentResponse{}, err
	}

	var payload studyContentPayload
	if err := ai.DecodeJSONContent(content, &payload); err != nil {
		logger.Error().Err(err).Msg("study content response unusable")
		return dto.GenerateStudyContentResponse{}, err
	}
	if payload.Modules == nil {
		logger.Error().Msg("study content response has no modules array")
		return dto.GenerateStudyContentResponse{}, fmt.Errorf("%w: modules", ErrGeneratedContentInvalid)
	}

	modules := *payload.Modules
	rows := make([]models.GeneratedContent, 0, len(modules)*3)
	names := make([]string, 0, len(modules))
	for _, module := range modules {
		names = append(names, module.Name)
		rows = append(rows,
			s.contentRow(userID, courseID, module.Name, models.ContentTypeSummary, module.Summary, "[]"),
			s.contentRow(userID, courseID, module.Name, models.ContentTypeMindmap, module.Mindmap, "{}"),
			s.contentRow(userID, courseID, module.Name, models.ContentTypeAcronyms, module.Acronyms, "[]"),
		)
	}

	if err := s.contents.CreateBatch(ctx, rows); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "persistence failed")
		return dto.GenerateStudyContentResponse{}, fmt.Errorf("store generated content: %w", err)
	}

	logger.Info().Int("modules", len(modules)).Msg("study content generated")
	span.SetStatus(codes.Ok, "generated")
	return dto.GenerateStudyContentResponse{CourseID: courseID, ModuleCount: len(modules), Modules: names}, nil
}

func (s *studyContentService) List(ctx context.Context, userID, courseID string) ([]dto.GeneratedContentResponse, error) {
	courseID = strings.TrimSpace(courseID)
	if courseID == "" {
		return nil, ErrCourseIDRequired
	}

	items, err := s.contents.ListByCourse(ctx, courseID, userID)
	if err != nil {
		return nil, err
	}

	responses := make([]dto.GeneratedContentResponse, 0, len(items))
	for _, item := range items {
		responses = append(responses, dto.NewGeneratedContentResponse(item))
	}
	return responses, nil
}

func (s *studyContentService) syllabusText(ctx context.Context, userID, courseID string) (string, error) {
	material, err := s.materials.FindByType(ctx, courseID, userID, models.ResourceTypeSyllabus)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", ErrSyllabusNotFound
		}
		return "", fmt.Errorf("load syllabus material: %w", err)
	}

	key := storage.NormalizeKey(storage.BucketSyllabus, material.FilePath)
	if key == "" {
		return "", ErrSyllabusNotFound
	}

	data, err := s.storage.Download(ctx, storage.BucketSyllabus, key)
	if err != nil {
		s.logger.Warn().Err(err).Str("key", key).Msg("failed to download syllabus")
		return "", fmt.Errorf("%w: %v", ErrSyllabusUnavailable, err)
	}

	text, err := document.PlainText(data)
	if err != nil {
		s.logger.Warn().Err(err).Str("key", key).Msg("failed to read syllabus text")
		return "", fmt.Errorf("%w: %v", ErrSyllabusUnreadable, err)
	}
	if len(strings.TrimSpace(text)) < minSyllabusLength {
		return "", ErrSyllabusTooShort
	}
	return text, nil
}

func (s *studyContentService) contentRow(userID, courseID, module, contentType string, content json.RawMessage, fallback string) models.GeneratedContent {
	trimmed := strings.TrimSpace(string(content))
	if trimmed == "" || trimmed == "null" {
		trimmed = fallback
	}
	return models.GeneratedContent{
		CourseID:    courseID,
		UserID:      userID,
		ModuleName:  module,
		ContentType: contentType,
		Content:     datatypes.JSON(trimmed),
	}
}
