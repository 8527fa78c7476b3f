package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/voltdesk/maintenance-service/internal/api/dto"
	"github.com/voltdesk/maintenance-service/internal/domain"
	"github.com/voltdesk/maintenance-service/internal/service"
	apperrors "github.com/voltdesk/maintenance-service/pkg/util"
)

// CsmsHandler exposes CSMS reference endpoints.
type CsmsHandler struct {
	service *service.CsmsService
}

// NewCsmsHandler constructs handler.
func NewCsmsHandler(csmsService *service.CsmsService) *CsmsHandler {
	return &CsmsHandler{service: csmsService}
}

// LinkEvent POST /tickets/:id/csms/events.
func (h *CsmsHandler) LinkEvent(c *fiber.Ctx) error {
	actor, err := actorFrom(c)
	if err != nil {
		return err
	}
	var req dto.LinkCsmsEventRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}

	ref, err := h.service.LinkEvent(c.UserContext(), actor, c.Params("id"), service.LinkEventInput{
		ChargerID:   req.ChargerID,
		CsmsEventID: req.CsmsEventID,
		EventType:   req.EventType,
		OccurredAt:  req.OccurredAt,
	})
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"data": eventRefResponse(ref)})
}

// LinkFirmwareJob POST /tickets/:id/csms/firmware-jobs.
func (h *CsmsHandler) LinkFirmwareJob(c *fiber.Ctx) error {
	actor, err := actorFrom(c)
	if err != nil {
		return err
	}
	var req dto.LinkFirmwareJobRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}

	ref, err := h.service.LinkFirmwareJob(c.UserContext(), actor, c.Params("id"), service.LinkFirmwareJobInput{
		ChargerID:     req.ChargerID,
		CsmsJobID:     req.CsmsJobID,
		TargetVersion: req.TargetVersion,
	})
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"data": firmwareJobRefResponse(ref)})
}

// ListRefs GET /tickets/:id/csms.
func (h *CsmsHandler) ListRefs(c *fiber.Ctx) error {
	actor, err := actorFrom(c)
	if err != nil {
		return err
	}
	view, err := h.service.ListRefs(c.UserContext(), actor, c.Params("id"))
	if err != nil {
		return err
	}
	resp := dto.TicketCsmsResponse{
		Events:       make([]dto.CsmsEventRefResponse, 0, len(view.Events)),
		FirmwareJobs: make([]dto.FirmwareJobRefResponse, 0, len(view.FirmwareJobs)),
	}
	for i := range view.Events {
		resp.Events = append(resp.Events, eventRefResponse(&view.Events[i]))
	}
	for i := range view.FirmwareJobs {
		resp.FirmwareJobs = append(resp.FirmwareJobs, firmwareJobRefResponse(&view.FirmwareJobs[i]))
	}
	return c.JSON(fiber.Map{"data": resp})
}

// ChargerStatus GET /chargers/:id/status.
func (h *CsmsHandler) ChargerStatus(c *fiber.Ctx) error {
	actor, err := actorFrom(c)
	if err != nil {
		return err
	}
	status, err := h.service.ChargerStatus(c.UserContext(), actor, c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": status})
}

func eventRefResponse(ref *domain.CsmsEventRef) dto.CsmsEventRefResponse {
	return dto.CsmsEventRefResponse{
		ID:          ref.ID,
		ChargerID:   ref.ChargerID,
		CsmsEventID: ref.CsmsEventID,
		EventType:   ref.EventType,
		OccurredAt:  ref.OccurredAt,
	}
}

func firmwareJobRefResponse(ref *domain.FirmwareJobRef) dto.FirmwareJobRefResponse {
	return dto.FirmwareJobRefResponse{
		ID:            ref.ID,
		ChargerID:     ref.ChargerID,
		CsmsJobID:     ref.CsmsJobID,
		TargetVersion: ref.TargetVersion,
		LastStatus:    ref.LastStatus,
		LastCheckedAt: ref.LastCheckedAt,
	}
}
