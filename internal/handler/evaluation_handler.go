package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/exampilot-api/internal/dto"
	"github.com/noah-isme/exampilot-api/internal/service"
	"github.com/noah-isme/exampilot-api/internal/utils"
)

// EvaluationHandler exposes the answer-sheet evaluation pipeline.
type EvaluationHandler struct {
	service service.AnswerSheetEvaluationService
	logger  zerolog.Logger
}

// NewEvaluationHandler constructs an evaluation handler.
func NewEvaluationHandler(service service.AnswerSheetEvaluationService, logger zerolog.Logger) *EvaluationHandler {
	return &EvaluationHandler{
		service: service,
		logger:  logger.With().Str("component", "evaluation_handler").Logger(),
	}
}

// Register wires evaluation routes. limit guards the LLM-backed route and may be nil.
func (h *EvaluationHandler) Register(router fiber.Router, limit fiber.Handler) {
	router.Post("/answer-sheet", orNext(limit), h.evaluateAnswerSheet)
}

func (h *EvaluationHandler) evaluateAnswerSheet(c *fiber.Ctx) error {
	var payload dto.EvaluateAnswerSheetRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request payload")
	}

	result, err := h.service.Evaluate(c.UserContext(), userIDFromContext(c), payload)
	if err != nil {
		return handleError(c, h.logger, err, "failed to evaluate answer sheet")
	}

	return utils.SendSuccess(c, "evaluation completed", result)
}
