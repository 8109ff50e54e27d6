package service

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/noah-isme/exampilot-api/internal/dto"
	"github.com/noah-isme/exampilot-api/internal/models"
	"github.com/noah-isme/exampilot-api/internal/observability"
	"github.com/noah-isme/exampilot-api/internal/repository"
	"github.com/noah-isme/exampilot-api/pkg/ai"
	"github.com/noah-isme/exampilot-api/pkg/storage"
)

const defaultMaxPageImages = 5

// PipelineConfig carries the evaluation pipeline knobs.
type PipelineConfig struct {
	MaxPageImages int
	OCRCacheTTL   time.Duration
	PDFTextLayer  bool
}

// AnswerSheetEvaluationService runs the answer-sheet evaluation pipeline.
type AnswerSheetEvaluationService interface {
	// Evaluate runs every stage for the submission. requesterID is the authenticated caller;
	// an empty requesterID skips the ownership check for internal dispatch.
	Evaluate(ctx context.Context, requesterID string, payload dto.EvaluateAnswerSheetRequest) (dto.EvaluateAnswerSheetResponse, error)
}

type answerSheetEvaluationService struct {
	submissions repository.SubmissionRepository
	materials   repository.ResourceMaterialRepository
	storage     storage.ObjectStore
	evaluator   ai.Evaluator
	acquirer    *textAcquirer
	validator   *validator.Validate
	config      PipelineConfig
	logger      zerolog.Logger
	tracer      trace.Tracer
}

// NewAnswerSheetEvaluationService wires the pipeline stages. cache may be nil.
func NewAnswerSheetEvaluationService(
	submissions repository.SubmissionRepository,
	materials repository.ResourceMaterialRepository,
	store storage.ObjectStore,
	extractor ai.TextExtractor,
	evaluator ai.Evaluator,
	cache *redis.Client,
	validate *validator.Validate,
	logger zerolog.Logger,
	cfg PipelineConfig,
) AnswerSheetEvaluationService {
	if cfg.MaxPageImages <= 0 {
		cfg.MaxPageImages = defaultMaxPageImages
	}

	logger = logger.With().Str("component", "answer_sheet_evaluation_service").Logger()

	return &answerSheetEvaluationService{
		submissions: submissions,
		materials:   materials,
		storage:     store,
		evaluator:   evaluator,
		acquirer:    newTextAcquirer(extractor, cache, cfg, logger),
		validator:   validate,
		config:      cfg,
		logger:      logger,
		tracer:      otel.Tracer("github.com/noah-isme/exampilot-api/internal/service/evaluation"),
	}
}

func (s *answerSheetEvaluationService) Evaluate(ctx context.Context, requesterID string, payload dto.EvaluateAnswerSheetRequest) (dto.EvaluateAnswerSheetResponse, error) {
	payload.SubmissionID = strings.TrimSpace(payload.SubmissionID)
	if payload.SubmissionID == "" {
		return dto.EvaluateAnswerSheetResponse{}, ErrSubmissionIDRequired
	}
	if err := s.validator.Struct(payload); err != nil {
		return dto.EvaluateAnswerSheetResponse{}, err
	}

	submission, err := s.submissions.GetByID(ctx, payload.SubmissionID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.EvaluateAnswerSheetResponse{}, ErrSubmissionNotFound
		}
		return dto.EvaluateAnswerSheetResponse{}, fmt.Errorf("load submission: %w", err)
	}

	if requesterID != "" && submission.UserID != requesterID {
		return dto.EvaluateAnswerSheetResponse{}, ErrSubmissionForbidden
	}

	return s.run(ctx, submission, payload)
}

func (s *answerSheetEvaluationService) run(ctx context.Context, submission models.Submission, payload dto.EvaluateAnswerSheetRequest) (response dto.EvaluateAnswerSheetResponse, err error) {
	ctx, span := s.tracer.Start(ctx, "evaluation.pipeline", trace.WithAttributes(
		attribute.String("submission.id", submission.ID),
		attribute.String("submission.course_id", submission.CourseID),
	))
	defer span.End()

	logger := s.logger.With().Str("submission_id", submission.ID).Logger()
	started := time.Now()

	defer func() {
		if recovered := recover(); recovered != nil {
			logger.Error().Interface("panic", recovered).Bytes("stack", debug.Stack()).Msg("evaluation pipeline panicked")
			err = fmt.Errorf("%w: %v", ErrPipelineAborted, recovered)
			response = dto.EvaluateAnswerSheetResponse{}
		}

		if err != nil {
			s.markFailed(ctx, logger, submission.ID)
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			observability.PipelineRuns().WithLabelValues(models.SubmissionStatusFailed).Inc()
			logger.Error().Err(err).Dur("elapsed", time.Since(started)).Msg("answer sheet evaluation failed")
			return
		}

		span.SetStatus(codes.Ok, "completed")
		observability.PipelineRuns().WithLabelValues(models.SubmissionStatusCompleted).Inc()
		logger.Info().Dur("elapsed", time.Since(started)).Msg("answer sheet evaluation completed")
	}()

	if err := s.submissions.UpdateStatus(ctx, submission.ID, models.SubmissionStatusProcessing); err != nil {
		return dto.EvaluateAnswerSheetResponse{}, fmt.Errorf("mark submission processing: %w", err)
	}

	var sheet, key *documentSource
	err = s.stage("ingestion", func() error {
		var stageErr error
		sheet, stageErr = s.resolveDocument(ctx, submission.ID, roleAnswerSheet, payload.AnswerSheetText, payload.AnswerSheetImages, submission.AnswerSheetPath)
		if stageErr != nil {
			return stageErr
		}
		if sheet == nil {
			return fmt.Errorf("%w: no stored path", ErrAnswerSheetUnavailable)
		}

		keyPath := ""
		if submission.AnswerKeyPath != nil {
			keyPath = *submission.AnswerKeyPath
		}
		key, stageErr = s.resolveDocument(ctx, submission.ID, roleAnswerKey, payload.AnswerKeyText, payload.AnswerKeyImages, keyPath)
		if stageErr != nil {
			logger.Warn().Err(stageErr).Msg("answer key unavailable, evaluating without it")
			key = nil
		}
		return nil
	})
	if err != nil {
		return dto.EvaluateAnswerSheetResponse{}, err
	}

	var sheetText, keyText string
	err = s.stage("text_acquisition", func() error {
		text, strategy, stageErr := s.acquirer.Acquire(ctx, sheet)
		if stageErr != nil {
			return stageErr
		}
		sheetText = text
		span.SetAttributes(attribute.String("acquisition.sheet_strategy", strategy))

		if key != nil {
			text, strategy, stageErr = s.acquirer.Acquire(ctx, key)
			if stageErr != nil {
				logger.Warn().Err(stageErr).Str("strategy", strategy).Msg("answer key text unavailable, evaluating without it")
				return nil
			}
			keyText = text
			span.SetAttributes(attribute.String("acquisition.key_strategy", strategy))
		}
		return nil
	})
	if err != nil {
		return dto.EvaluateAnswerSheetResponse{}, err
	}

	var materialNames []string
	_ = s.stage("context", func() error {
		materialNames = s.assembleContext(ctx, logger, submission.CourseID)
		return nil
	})

	var record ai.EvaluationRecord
	err = s.stage("evaluation", func() error {
		var stageErr error
		record, stageErr = s.evaluator.Evaluate(ctx, ai.EvaluationInput{
			AnswerSheetText: sheetText,
			AnswerKeyText:   keyText,
			MaterialNames:   materialNames,
		})
		return stageErr
	})
	if err != nil {
		return dto.EvaluateAnswerSheetResponse{}, err
	}

	evaluation, err := newEvaluationModel(submission, record)
	if err != nil {
		return dto.EvaluateAnswerSheetResponse{}, fmt.Errorf("%w: %v", ErrEvaluationPersistence, err)
	}

	err = s.stage("persistence", func() error {
		if stageErr := s.submissions.CompleteWithEvaluation(ctx, submission.ID, sheetText, &evaluation); stageErr != nil {
			return fmt.Errorf("%w: %v", ErrEvaluationPersistence, stageErr)
		}
		return nil
	})
	if err != nil {
		return dto.EvaluateAnswerSheetResponse{}, err
	}

	return dto.EvaluateAnswerSheetResponse{
		SubmissionID: submission.ID,
		Status:       models.SubmissionStatusCompleted,
		Evaluation:   dto.NewEvaluationResponse(evaluation),
	}, nil
}

// assembleContext lists every resource material name for the course. Lookup failures only drop the context.
func (s *answerSheetEvaluationService) assembleContext(ctx context.Context, logger zerolog.Logger, courseID string) []string {
	if s.materials == nil {
		return nil
	}

	materials, err := s.materials.ListByCourse(ctx, courseID)
	if err != nil {
		logger.Warn().Err(err).Msg("failed to load course materials, evaluating without course context")
		return nil
	}

	names := make([]string, 0, len(materials))
	for _, material := range materials {
		if name := strings.TrimSpace(material.FileName); name != "" {
			names = append(names, name)
		}
	}
	return names
}

// markFailed records the terminal failure even when the request context is already cancelled.
func (s *answerSheetEvaluationService) markFailed(ctx context.Context, logger zerolog.Logger, submissionID string) {
	if err := s.submissions.MarkFailed(context.WithoutCancel(ctx), submissionID); err != nil {
		logger.Error().Err(err).Msg("failed to mark submission as failed")
	}
}

func (s *answerSheetEvaluationService) stage(name string, fn func() error) error {
	start := time.Now()
	err := fn()
	observability.PipelineStageDuration().WithLabelValues(name).Observe(time.Since(start).Seconds())
	return err
}

func newEvaluationModel(submission models.Submission, record ai.EvaluationRecord) (models.Evaluation, error) {
	analytics, err := analyticsMap(record)
	if err != nil {
		return models.Evaluation{}, err
	}

	weakAreas := record.WeakAreas
	if weakAreas == nil {
		weakAreas = []string{}
	}

	return models.Evaluation{
		SubmissionID:           submission.ID,
		UserID:                 submission.UserID,
		TotalScore:             record.TotalScore,
		MaxScore:               record.MaxScore,
		WeakAreas:              datatypes.JSONSlice[string](weakAreas),
		ImprovementSuggestions: record.ImprovementSuggestions,
		DetailedAnalytics:      analytics,
	}, nil
}

// analyticsMap persists the analytics untouched apart from empty defaults for absent sections.
func analyticsMap(record ai.EvaluationRecord) (datatypes.JSONMap, error) {
	return datatypes.JSONMap(record.PersistedAnalytics()), nil
}
