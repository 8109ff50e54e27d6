package service

import (
	"context"
	"errors"
	"mime/multipart"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/noah-isme/exampilot-api/internal/dto"
	"github.com/noah-isme/exampilot-api/internal/models"
	"github.com/noah-isme/exampilot-api/internal/repository"
	"github.com/noah-isme/exampilot-api/pkg/storage"
)

var (
	// ErrAnswerSheetRequired indicates the upload carried no answer sheet file.
	ErrAnswerSheetRequired = errors.New("answer sheet file is required")
	// ErrUploadTooLarge indicates the payload exceeded the configured limit.
	ErrUploadTooLarge = errors.New("file exceeds maximum allowed size")
	// ErrUploadTypeNotAllowed indicates the MIME type is not permitted.
	ErrUploadTypeNotAllowed = errors.New("file type not allowed")
)

var allowedSubmissionTypes = []string{"application/pdf", "image/jpeg", "image/png", "image/webp"}

// SubmissionService manages post-exam answer sheet uploads.
type SubmissionService interface {
	Create(ctx context.Context, userID string, payload dto.CreateSubmissionRequest, answerSheet, answerKey *multipart.FileHeader) (dto.SubmissionResponse, error)
	Get(ctx context.Context, userID, id string) (dto.SubmissionResponse, error)
	List(ctx context.Context, userID, courseID string) ([]dto.SubmissionResponse, error)
}

type submissionService struct {
	documentUploader
	submissions repository.SubmissionRepository
	dispatcher  EvaluationDispatcher
	validator   *validator.Validate
	logger      zerolog.Logger
	tracer      trace.Tracer
}

// NewSubmissionService constructs the service. dispatcher may be nil, in which case the client
// triggers evaluation explicitly.
func NewSubmissionService(submissions repository.SubmissionRepository, store storage.ObjectStore, dispatcher EvaluationDispatcher, validate *validator.Validate, maxSizeMB int, logger zerolog.Logger) SubmissionService {
	return &submissionService{
		documentUploader: newDocumentUploader(store, maxSizeMB, allowedSubmissionTypes...),
		submissions:      submissions,
		dispatcher:       dispatcher,
		validator:        validate,
		logger:           logger.With().Str("component", "submission_service").Logger(),
		tracer:           otel.Tracer("github.com/noah-isme/exampilot-api/internal/service/submission"),
	}
}

func (s *submissionService) Create(ctx context.Context, userID string, payload dto.CreateSubmissionRequest, answerSheet, answerKey *multipart.FileHeader) (dto.SubmissionResponse, error) {
	payload.CourseID = strings.TrimSpace(payload.CourseID)
	if err := s.validator.Struct(payload); err != nil {
		return dto.SubmissionResponse{}, err
	}
	if answerSheet == nil {
		return dto.SubmissionResponse{}, ErrAnswerSheetRequired
	}

	ctx, span := s.tracer.Start(ctx, "submission.create", trace.WithAttributes(
		attribute.String("submission.course_id", payload.CourseID),
		attribute.Bool("submission.has_key", answerKey != nil),
	))
	defer span.End()

	sheetPath, err := s.store(ctx, userID, roleAnswerSheet, answerSheet)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "answer sheet upload failed")
		return dto.SubmissionResponse{}, err
	}

	submission := models.Submission{
		UserID:           userID,
		CourseID:         payload.CourseID,
		AnswerSheetPath:  sheetPath,
		ProcessingStatus: models.SubmissionStatusNotStarted,
	}

	if answerKey != nil {
		keyPath, err := s.store(ctx, userID, roleAnswerKey, answerKey)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "answer key upload failed")
			return dto.SubmissionResponse{}, err
		}
		submission.AnswerKeyPath = &keyPath
	}

	if err := s.submissions.Create(ctx, &submission); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "persistence failed")
		return dto.SubmissionResponse{}, err
	}

	response := dto.NewSubmissionResponse(submission)
	if s.dispatcher != nil {
		err := s.dispatcher.Dispatch(ctx, submission.ID)
		recordDispatch(err)
		if err != nil {
			s.logger.Warn().Err(err).Str("submission_id", submission.ID).Msg("failed to dispatch evaluation")
		} else {
			response.Dispatched = true
		}
	}

	span.SetStatus(codes.Ok, "stored")
	return response, nil
}

func (s *submissionService) Get(ctx context.Context, userID, id string) (dto.SubmissionResponse, error) {
	submission, err := s.submissions.GetByID(ctx, strings.TrimSpace(id))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.SubmissionResponse{}, ErrSubmissionNotFound
		}
		return dto.SubmissionResponse{}, err
	}
	if submission.UserID != userID {
		return dto.SubmissionResponse{}, ErrSubmissionForbidden
	}
	return dto.NewSubmissionResponse(submission), nil
}

func (s *submissionService) List(ctx context.Context, userID, courseID string) ([]dto.SubmissionResponse, error) {
	submissions, err := s.submissions.ListByUser(ctx, userID, strings.TrimSpace(courseID))
	if err != nil {
		return nil, err
	}

	responses := make([]dto.SubmissionResponse, 0, len(submissions))
	for _, submission := range submissions {
		responses = append(responses, dto.NewSubmissionResponse(submission))
	}
	return responses, nil
}

func (s *submissionService) store(ctx context.Context, userID string, role documentRole, file *multipart.FileHeader) (string, error) {
	stored, err := s.put(ctx, role.bucket(), string(role), userID, file)
	if err != nil {
		return "", err
	}
	s.logger.Info().Str("role", string(role)).Str("key", stored.Key).Int64("size", stored.Size).Msg("submission document stored")
	return stored.Key, nil
}
