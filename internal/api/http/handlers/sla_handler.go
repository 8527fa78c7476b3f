package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/voltdesk/maintenance-service/internal/api/dto"
	"github.com/voltdesk/maintenance-service/internal/domain"
	"github.com/voltdesk/maintenance-service/internal/service"
	apperrors "github.com/voltdesk/maintenance-service/pkg/util"
)

// SlaHandler exposes SLA policy management endpoints.
type SlaHandler struct {
	service *service.SlaPolicyService
}

// NewSlaHandler constructs handler.
func NewSlaHandler(policyService *service.SlaPolicyService) *SlaHandler {
	return &SlaHandler{service: policyService}
}

// UpsertPolicy PUT /sla/policies.
func (h *SlaHandler) UpsertPolicy(c *fiber.Ctx) error {
	actor, err := actorFrom(c)
	if err != nil {
		return err
	}
	var req dto.UpsertPolicyRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}

	isActive := true
	if req.IsActive != nil {
		isActive = *req.IsActive
	}
	policy, err := h.service.UpsertPolicy(c.UserContext(), actor, service.UpsertPolicyInput{
		Category:                req.Category,
		Priority:                req.Priority,
		IsDefault:               req.IsDefault,
		ResponseTargetMinutes:   req.ResponseTargetMinutes,
		ResolutionTargetMinutes: req.ResolutionTargetMinutes,
		PauseStatuses:           req.PauseStatuses,
		IsActive:                isActive,
	})
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": policyResponse(policy)})
}

// ListPolicies GET /sla/policies.
func (h *SlaHandler) ListPolicies(c *fiber.Ctx) error {
	actor, err := actorFrom(c)
	if err != nil {
		return err
	}
	policies, err := h.service.ListPolicies(c.UserContext(), actor)
	if err != nil {
		return err
	}
	items := make([]dto.PolicyResponse, 0, len(policies))
	for i := range policies {
		items = append(items, policyResponse(&policies[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

func policyResponse(p *domain.SlaPolicy) dto.PolicyResponse {
	return dto.PolicyResponse{
		ID:                      p.ID,
		Category:                p.Category,
		Priority:                p.Priority,
		IsDefault:               p.IsDefault,
		ResponseTargetMinutes:   p.ResponseTargetMinutes,
		ResolutionTargetMinutes: p.ResolutionTargetMinutes,
		PauseStatuses:           p.PauseStatuses,
		IsActive:                p.IsActive,
		UpdatedAt:               p.UpdatedAt,
	}
}
