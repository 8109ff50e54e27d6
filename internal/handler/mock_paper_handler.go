package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/exampilot-api/internal/dto"
	"github.com/noah-isme/exampilot-api/internal/service"
	"github.com/noah-isme/exampilot-api/internal/utils"
)

// MockPaperHandler exposes mock paper generation and retrieval.
type MockPaperHandler struct {
	service service.MockPaperService
	logger  zerolog.Logger
}

// NewMockPaperHandler constructs a mock paper handler.
func NewMockPaperHandler(service service.MockPaperService, logger zerolog.Logger) *MockPaperHandler {
	return &MockPaperHandler{
		service: service,
		logger:  logger.With().Str("component", "mock_paper_handler").Logger(),
	}
}

// Register wires mock paper routes.
func (h *MockPaperHandler) Register(router fiber.Router, limit fiber.Handler) {
	router.Post("", orNext(limit), h.generate)
	router.Get("/:id", h.get)
}

func (h *MockPaperHandler) generate(c *fiber.Ctx) error {
	var payload dto.GenerateMockPaperRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request payload")
	}

	result, err := h.service.Generate(c.UserContext(), userIDFromContext(c), payload)
	if err != nil {
		return handleError(c, h.logger, err, "failed to generate mock paper")
	}

	return utils.SendSuccess(c, "mock paper generated", result)
}

func (h *MockPaperHandler) get(c *fiber.Ctx) error {
	result, err := h.service.Get(c.UserContext(), userIDFromContext(c), trimmedParam(c, "id"))
	if err != nil {
		return handleError(c, h.logger, err, "failed to load mock paper")
	}

	return utils.SendSuccess(c, "mock paper retrieved", result)
}
