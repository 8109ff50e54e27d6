package handler

import (
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/exampilot-api/internal/middleware"
	"github.com/noah-isme/exampilot-api/internal/service"
	"github.com/noah-isme/exampilot-api/internal/utils"
	"github.com/noah-isme/exampilot-api/pkg/ai"
)

type errorMapping struct {
	target  error
	status  int
	message string
}

// Order matters: the first matching target wins. An empty message exposes the target's own text.
var errorMappings = []errorMapping{
	{target: service.ErrSubmissionIDRequired, status: fiber.StatusBadRequest},
	{target: service.ErrCourseIDRequired, status: fiber.StatusBadRequest},
	{target: service.ErrAnswerSheetRequired, status: fiber.StatusBadRequest},
	{target: service.ErrMaterialFileRequired, status: fiber.StatusBadRequest},
	{target: service.ErrUploadTypeNotAllowed, status: fiber.StatusBadRequest},
	{target: service.ErrSyllabusTooShort, status: fiber.StatusBadRequest},
	{target: service.ErrMockPaperTooFewMarks, status: fiber.StatusBadRequest},
	{target: service.ErrUploadTooLarge, status: fiber.StatusRequestEntityTooLarge},
	{target: service.ErrSubmissionNotFound, status: fiber.StatusNotFound},
	{target: service.ErrSyllabusNotFound, status: fiber.StatusNotFound},
	{target: service.ErrSyllabusUnavailable, status: fiber.StatusNotFound},
	{target: service.ErrStudyContentNotFound, status: fiber.StatusNotFound},
	{target: service.ErrMockPaperNotFound, status: fiber.StatusNotFound},
	{target: service.ErrSubmissionForbidden, status: fiber.StatusForbidden},
	{target: service.ErrMockPaperForbidden, status: fiber.StatusForbidden},
	{target: service.ErrAnswerSheetUnavailable, status: fiber.StatusUnprocessableEntity},
	{target: service.ErrPDFRequiresRendering, status: fiber.StatusUnprocessableEntity},
	{target: service.ErrEmptyExtraction, status: fiber.StatusUnprocessableEntity},
	{target: service.ErrNoAcquisitionStrategy, status: fiber.StatusUnprocessableEntity},
	{target: service.ErrSyllabusUnreadable, status: fiber.StatusUnprocessableEntity},
	{target: ai.ErrRateLimited, status: fiber.StatusTooManyRequests, message: "rate limit exceeded, please try again later"},
	{target: ai.ErrPaymentRequired, status: fiber.StatusPaymentRequired, message: "payment required, please add AI credits"},
	{target: ai.ErrMalformedResponse, status: fiber.StatusBadGateway, message: "AI output could not be interpreted, please retry"},
	{target: service.ErrGeneratedContentInvalid, status: fiber.StatusBadGateway, message: "AI output could not be interpreted, please retry"},
	{target: ai.ErrEmptyResponse, status: fiber.StatusBadGateway, message: "AI service error, please retry"},
	{target: ai.ErrGatewayUnavailable, status: fiber.StatusBadGateway, message: "AI service error, please retry"},
	{target: service.ErrEvaluationPersistence, status: fiber.StatusInternalServerError},
	{target: service.ErrPipelineAborted, status: fiber.StatusInternalServerError, message: "evaluation failed unexpectedly"},
}

// handleError translates a service error into the response envelope. Diagnostic detail stays in logs.
func handleError(c *fiber.Ctx, logger zerolog.Logger, err error, fallback string) error {
	log := requestLogger(logger, c)

	var validationErrors validator.ValidationErrors
	if errors.As(err, &validationErrors) {
		return utils.SendErrorWithDetails(c, fiber.StatusBadRequest, "invalid request payload", validationDetails(validationErrors))
	}

	for _, mapping := range errorMappings {
		if !errors.Is(err, mapping.target) {
			continue
		}
		message := mapping.message
		if message == "" {
			message = mapping.target.Error()
		}
		if mapping.status >= fiber.StatusInternalServerError {
			log.Error().Err(err).Int("status", mapping.status).Msg(fallback)
		} else {
			log.Warn().Err(err).Int("status", mapping.status).Msg(fallback)
		}
		return utils.SendError(c, mapping.status, message)
	}

	log.Error().Err(err).Msg(fallback)
	return utils.SendError(c, fiber.StatusInternalServerError, fallback)
}

func validationDetails(errs validator.ValidationErrors) map[string]string {
	details := make(map[string]string, len(errs))
	for _, fieldErr := range errs {
		details[fieldErr.Field()] = fieldErr.Tag()
	}
	return details
}

func userIDFromContext(c *fiber.Ctx) string {
	return middleware.UserIDFromContext(c)
}

func requestLogger(base zerolog.Logger, c *fiber.Ctx) *zerolog.Logger {
	logger := base
	if c != nil {
		if correlation := middleware.GetCorrelationID(c); correlation != "" {
			logger = base.With().Str("correlation_id", correlation).Logger()
		}
	}
	return &logger
}

func orNext(handler fiber.Handler) fiber.Handler {
	if handler == nil {
		return func(c *fiber.Ctx) error { return c.Next() }
	}
	return handler
}

func trimmedParam(c *fiber.Ctx, key string) string {
	return strings.TrimSpace(c.Params(key))
}
