package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/exampilot-api/internal/service"
	"github.com/noah-isme/exampilot-api/internal/utils"
)

// StudyContentHandler exposes syllabus-driven study content generation.
type StudyContentHandler struct {
	service service.StudyContentService
	logger  zerolog.Logger
}

// NewStudyContentHandler constructs a study content handler.
func NewStudyContentHandler(service service.StudyContentService, logger zerolog.Logger) *StudyContentHandler {
	return &StudyContentHandler{
		service: service,
		logger:  logger.With().Str("component", "study_content_handler").Logger(),
	}
}

// Register wires study content routes under a courses group.
func (h *StudyContentHandler) Register(router fiber.Router, limit fiber.Handler) {
	router.Post("/:courseId/study-content", orNext(limit), h.generate)
	router.Get("/:courseId/study-content", h.list)
}

func (h *StudyContentHandler) generate(c *fiber.Ctx) error {
	result, err := h.service.Generate(c.UserContext(), userIDFromContext(c), trimmedParam(c, "courseId"))
	if err != nil {
		return handleError(c, h.logger, err, "failed to generate study content")
	}

	return utils.SendSuccess(c, "study content generated", result)
}

func (h *StudyContentHandler) list(c *fiber.Ctx) error {
	result, err := h.service.List(c.UserContext(), userIDFromContext(c), trimmedParam(c, "courseId"))
	if err != nil {
		return handleError(c, h.logger, err, "failed to list study content")
	}

	return utils.SendSuccess(c, "study content retrieved", result)
}
