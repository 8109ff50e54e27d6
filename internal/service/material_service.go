package service

import (
	"context"
	"errors"
	"mime/multipart"
	"path/filepath"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/noah-isme/exampilot-api/internal/dto"
	"github.com/noah-isme/exampilot-api/internal/models"
	"github.com/noah-isme/exampilot-api/internal/repository"
	"github.com/noah-isme/exampilot-api/pkg/storage"
)

// ErrMaterialFileRequired indicates the upload carried no file.
var ErrMaterialFileRequired = errors.New("material file is required")

// Syllabi are read back as text, textbooks and past papers may be scans.
var allowedMaterialTypes = []string{"application/pdf", "text/plain", "image/jpeg", "image/png", "image/webp"}

var materialBuckets = map[string]string{
	models.ResourceTypeSyllabus: storage.BucketSyllabus,
	models.ResourceTypeTextbook: storage.BucketTextbooks,
	models.ResourceTypePYQ:      storage.BucketPYQs,
}

// MaterialService stores the course documents that study content and evaluation context draw on.
type MaterialService interface {
	Upload(ctx context.Context, userID string, payload dto.UploadMaterialRequest, file *multipart.FileHeader) (dto.ResourceMaterialResponse, error)
	List(ctx context.Context, userID, courseID string) ([]dto.ResourceMaterialResponse, error)
}

type materialService struct {
	documentUploader
	materials repository.ResourceMaterialRepository
	validator *validator.Validate
	logger    zerolog.Logger
	tracer    trace.Tracer
}

// NewMaterialService constructs the course material upload service.
func NewMaterialService(materials repository.ResourceMaterialRepository, store storage.ObjectStore, validate *validator.Validate, maxSizeMB int, logger zerolog.Logger) MaterialService {
	return &materialService{
		documentUploader: newDocumentUploader(store, maxSizeMB, allowedMaterialTypes...),
		materials:        materials,
		validator:        validate,
		logger:           logger.With().Str("component", "material_service").Logger(),
		tracer:           otel.Tracer("github.com/noah-isme/exampilot-api/internal/service/material"),
	}
}

func (s *materialService) Upload(ctx context.Context, userID string, payload dto.UploadMaterialRequest, file *multipart.FileHeader) (dto.ResourceMaterialResponse, error) {
	payload.CourseID = strings.TrimSpace(payload.CourseID)
	payload.ResourceType = strings.ToLower(strings.TrimSpace(payload.ResourceType))
	if err := s.validator.Struct(payload); err != nil {
		return dto.ResourceMaterialResponse{}, err
	}
	if file == nil {
		return dto.ResourceMaterialResponse{}, ErrMaterialFileRequired
	}

	ctx, span := s.tracer.Start(ctx, "material.upload", trace.WithAttributes(
		attribute.String("material.course_id", payload.CourseID),
		attribute.String("material.resource_type", payload.ResourceType),
	))
	defer span.End()

	stored, err := s.put(ctx, materialBuckets[payload.ResourceType], payload.ResourceType, userID, file)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "upload failed")
		return dto.ResourceMaterialResponse{}, err
	}

	size := stored.Size
	material := models.ResourceMaterial{
		CourseID:     payload.CourseID,
		UserID:       userID,
		FileName:     filepath.Base(file.Filename),
		FilePath:     stored.Key,
		FileSize:     &size,
		ResourceType: payload.ResourceType,
	}
	if err := s.materials.Create(ctx, &material); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "persistence failed")
		return dto.ResourceMaterialResponse{}, err
	}

	s.logger.Info().
		Str("course_id", material.CourseID).
		Str("resource_type", material.ResourceType).
		Str("key", stored.Key).
		Msg("course material stored")
	span.SetStatus(codes.Ok, "stored")
	return dto.NewResourceMaterialResponse(material), nil
}

func (s *materialService) List(ctx context.Context, userID, courseID string) ([]dto.ResourceMaterialResponse, error) {
	courseID = strings.TrimSpace(courseID)
	if courseID == "" {
		return nil, ErrCourseIDRequired
	}

	materials, err := s.materials.ListByUser(ctx, courseID, userID)
	if err != nil {
		return nil, err
	}

	responses := make([]dto.ResourceMaterialResponse, 0, len(materials))
	for _, material := range materials {
		responses = append(responses, dto.NewResourceMaterialResponse(material))
	}
	return responses, nil
}
