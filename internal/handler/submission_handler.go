package handler

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/exampilot-api/internal/dto"
	"github.com/noah-isme/exampilot-api/internal/service"
	"github.com/noah-isme/exampilot-api/internal/utils"
)

// SubmissionHandler manages answer sheet uploads and status polling.
type SubmissionHandler struct {
	service service.SubmissionService
	logger  zerolog.Logger
}

// NewSubmissionHandler constructs a submission handler.
func NewSubmissionHandler(service service.SubmissionService, logger zerolog.Logger) *SubmissionHandler {
	return &SubmissionHandler{
		service: service,
		logger:  logger.With().Str("component", "submission_handler").Logger(),
	}
}

// Register wires submission routes.
func (h *SubmissionHandler) Register(router fiber.Router) {
	router.Post("", h.create)
	router.Get("", h.list)
	router.Get("/:id", h.get)
}

func (h *SubmissionHandler) create(c *fiber.Ctx) error {
	answerSheet, err := c.FormFile("answer_sheet")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, service.ErrAnswerSheetRequired.Error())
	}

	answerKey, err := c.FormFile("answer_key")
	if err != nil {
		answerKey = nil
	}

	payload := dto.CreateSubmissionRequest{CourseID: c.FormValue("course_id")}
	result, err := h.service.Create(c.UserContext(), userIDFromContext(c), payload, answerSheet, answerKey)
	if err != nil {
		return handleError(c, h.logger, err, "failed to create submission")
	}

	return utils.SendSuccess(c, "submission created", result)
}

func (h *SubmissionHandler) list(c *fiber.Ctx) error {
	result, err := h.service.List(c.UserContext(), userIDFromContext(c), strings.TrimSpace(c.Query("course_id")))
	if err != nil {
		return handleError(c, h.logger, err, "failed to list submissions")
	}

	return utils.SendSuccess(c, "submissions retrieved", result)
}

func (h *SubmissionHandler) get(c *fiber.Ctx) error {
	result, err := h.service.Get(c.UserContext(), userIDFromContext(c), trimmedParam(c, "id"))
	if err != nil {
		return handleError(c, h.logger, err, "failed to load submission")
	}

	return utils.SendSuccess(c, "submission retrieved", result)
}
