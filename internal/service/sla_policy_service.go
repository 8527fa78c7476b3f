package service

import (
	"context"

	"github.com/voltdesk/maintenance-service/internal/domain"
	"github.com/voltdesk/maintenance-service/internal/repository"
	"github.com/voltdesk/maintenance-service/internal/sla"
	apperrors "github.com/voltdesk/maintenance-service/pkg/util"
)

// SlaPolicyService manages per-tenant SLA policies. Writes invalidate the
// resolver cache; measurements already started keep the targets they copied.
type SlaPolicyService struct {
	tx       repository.TxRunner
	resolver *sla.Resolver
}

// NewSlaPolicyService constructs the service.
func NewSlaPolicyService(tx repository.TxRunner, resolver *sla.Resolver) *SlaPolicyService {
	return &SlaPolicyService{tx: tx, resolver: resolver}
}

// UpsertPolicyInput describes a policy write.
type UpsertPolicyInput struct {
	Category                domain.TicketCategory
	Priority                domain.TicketPriority
	IsDefault               bool
	ResponseTargetMinutes   int
	ResolutionTargetMinutes int
	PauseStatuses           []domain.TicketStatus
	IsActive                bool
}

// UpsertPolicy creates or replaces the policy for (category, priority) or the
// category default. Only tenant administration roles may write policies.
func (s *SlaPolicyService) UpsertPolicy(ctx context.Context, actor Actor, input UpsertPolicyInput) (*domain.SlaPolicy, error) {
	if actor.Role != domain.RoleAdmin && actor.Role != domain.RoleTenantAdmin {
		return nil, apperrors.NewUnauthorized("role cannot manage SLA policies")
	}
	if !input.Category.Valid() {
		return nil, apperrors.NewValidationError("unknown category", map[string]any{"category": input.Category})
	}
	if !input.IsDefault && !input.Priority.Valid() {
		return nil, apperrors.NewValidationError("unknown priority", map[string]any{"priority": input.Priority})
	}
	if input.ResponseTargetMinutes <= 0 || input.ResolutionTargetMinutes <= 0 {
		return nil, apperrors.NewValidationError("targets must be positive whole minutes", nil)
	}
	if input.ResponseTargetMinutes > input.ResolutionTargetMinutes {
		return nil, apperrors.NewValidationError("response target cannot exceed resolution target", nil)
	}
	for _, status := range input.PauseStatuses {
		if !status.Valid() || domain.IsTerminal(status) {
			return nil, apperrors.NewValidationError("pause statuses must be non-terminal lifecycle states",
				map[string]any{"status": status})
		}
	}

	policy := &domain.SlaPolicy{
		TenantID:                actor.TenantID,
		Category:                input.Category,
		Priority:                input.Priority,
		IsDefault:               input.IsDefault,
		ResponseTargetMinutes:   input.ResponseTargetMinutes,
		ResolutionTargetMinutes: input.ResolutionTargetMinutes,
		PauseStatuses:           input.PauseStatuses,
		IsActive:                input.IsActive,
	}
	if policy.IsDefault {
		policy.Priority = ""
	}

	err := s.tx.WithinTx(ctx, func(repos repository.Repositories) error {
		return repos.Sla.UpsertPolicy(ctx, policy)
	})
	if err != nil {
		return nil, err
	}

	if s.resolver != nil {
		if policy.IsDefault {
			for _, priority := range []domain.TicketPriority{
				domain.TicketPriorityCritical, domain.TicketPriorityHigh,
				domain.TicketPriorityMedium, domain.TicketPriorityLow,
			} {
				s.resolver.Invalidate(ctx, actor.TenantID, policy.Category, priority)
			}
		} else {
			s.resolver.Invalidate(ctx, actor.TenantID, policy.Category, policy.Priority)
		}
	}
	return policy, nil
}

// ListPolicies returns every policy for the actor's tenant.
func (s *SlaPolicyService) ListPolicies(ctx context.Context, actor Actor) ([]domain.SlaPolicy, error) {
	var result []domain.SlaPolicy
	err := s.tx.WithinTx(ctx, func(repos repository.Repositories) error {
		var err error
		result, err = repos.Sla.ListPolicies(ctx, actor.TenantID)
		return err
	})
	return result, err
}
