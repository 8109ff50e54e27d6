package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/exampilot-api/internal/dto"
	"github.com/noah-isme/exampilot-api/internal/service"
	"github.com/noah-isme/exampilot-api/internal/utils"
)

// MaterialHandler exposes course material uploads.
type MaterialHandler struct {
	service service.MaterialService
	logger  zerolog.Logger
}

// NewMaterialHandler constructs a material handler.
func NewMaterialHandler(service service.MaterialService, logger zerolog.Logger) *MaterialHandler {
	return &MaterialHandler{
		service: service,
		logger:  logger.With().Str("component", "material_handler").Logger(),
	}
}

// Register wires material routes under a courses group.
func (h *MaterialHandler) Register(router fiber.Router) {
	router.Post("/:courseId/materials", h.upload)
	router.Get("/:courseId/materials", h.list)
}

func (h *MaterialHandler) upload(c *fiber.Ctx) error {
	file, err := c.FormFile("file")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, service.ErrMaterialFileRequired.Error())
	}

	payload := dto.UploadMaterialRequest{
		CourseID:     trimmedParam(c, "courseId"),
		ResourceType: c.FormValue("resource_type"),
	}
	result, err := h.service.Upload(c.UserContext(), userIDFromContext(c), payload, file)
	if err != nil {
		return handleError(c, h.logger, err, "failed to upload material")
	}

	return utils.SendSuccess(c, "material uploaded", result)
}

func (h *MaterialHandler) list(c *fiber.Ctx) error {
	result, err := h.service.List(c.UserContext(), userIDFromContext(c), trimmedParam(c, "courseId"))
	if err != nil {
		return handleError(c, h.logger, err, "failed to list materials")
	}

	return utils.SendSuccess(c, "materials retrieved", result)
}
