package service

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/voltdesk/maintenance-service/internal/clock"
	"github.com/voltdesk/maintenance-service/internal/csms"
	"github.com/voltdesk/maintenance-service/internal/domain"
	"github.com/voltdesk/maintenance-service/internal/repository"
	apperrors "github.com/voltdesk/maintenance-service/pkg/util"
)

// CsmsService links tickets to charger events and firmware jobs observed in
// the charging station management system, and resolves their live state on
// read. The CSMS itself is never written to.
type CsmsService struct {
	tx     repository.TxRunner
	client csms.Client
	clk    clock.Clock
	logger *zap.Logger
}

// NewCsmsService constructs the service. A nil client disables live lookups
// while keeping reference bookkeeping available.
func NewCsmsService(tx repository.TxRunner, client csms.Client, clk clock.Clock, logger *zap.Logger) *CsmsService {
	return &CsmsService{tx: tx, client: client, clk: clk, logger: logger}
}

// LinkEventInput references a charger event recorded in the CSMS. OccurredAt
// defaults to the link time when the caller does not supply it.
type LinkEventInput struct {
	ChargerID   string
	CsmsEventID string
	EventType   string
	OccurredAt  *time.Time
}

// LinkEvent attaches a CSMS charger event to a ticket.
func (s *CsmsService) LinkEvent(ctx context.Context, actor Actor, ticketID string, input LinkEventInput) (*domain.CsmsEventRef, error) {
	if strings.TrimSpace(input.CsmsEventID) == "" {
		return nil, apperrors.NewValidationError("csms event id is required", nil)
	}

	occurredAt := s.clk.Now()
	if input.OccurredAt != nil {
		occurredAt = *input.OccurredAt
	}
	ref := &domain.CsmsEventRef{
		TenantID:    actor.TenantID,
		TicketID:    ticketID,
		ChargerID:   input.ChargerID,
		CsmsEventID: input.CsmsEventID,
		EventType:   input.EventType,
		OccurredAt:  occurredAt,
	}
	err := s.tx.WithinTx(ctx, func(repos repository.Repositories) error {
		ticket, err := repos.Tickets.Get(ctx, actor.TenantID, ticketID)
		if err != nil {
			return err
		}
		if input.ChargerID == "" && ticket.ChargerID != nil {
			ref.ChargerID = *ticket.ChargerID
		}
		if _, err := repos.Assets.GetCharger(ctx, actor.TenantID, ref.ChargerID); err != nil {
			return err
		}
		return repos.CsmsRefs.CreateEventRef(ctx, ref)
	})
	if err != nil {
		return nil, err
	}
	return ref, nil
}

// LinkFirmwareJobInput references a firmware update job tracked in the CSMS.
type LinkFirmwareJobInput struct {
	ChargerID     string
	CsmsJobID     string
	TargetVersion string
}

// LinkFirmwareJob attaches a CSMS firmware job to a ticket and records its
// current status when the CSMS is reachable.
func (s *CsmsService) LinkFirmwareJob(ctx context.Context, actor Actor, ticketID string, input LinkFirmwareJobInput) (*domain.FirmwareJobRef, error) {
	if strings.TrimSpace(input.CsmsJobID) == "" {
		return nil, apperrors.NewValidationError("csms job id is required", nil)
	}

	now := s.clk.Now()
	ref := &domain.FirmwareJobRef{
		TenantID:      actor.TenantID,
		TicketID:      ticketID,
		ChargerID:     input.ChargerID,
		CsmsJobID:     input.CsmsJobID,
		TargetVersion: input.TargetVersion,
		LastStatus:    domain.FirmwareJobRequested,
		LastCheckedAt: now,
	}
	if s.client != nil {
		if job, err := s.client.GetFirmwareJob(ctx, input.CsmsJobID); err == nil {
			ref.LastStatus = job.Status
			if ref.TargetVersion == "" {
				ref.TargetVersion = job.TargetVersion
			}
		} else {
			s.logger.Warn("firmware job lookup failed, recording reference anyway",
				zap.String("csms_job_id", input.CsmsJobID),
				zap.Error(err))
		}
	}

	err := s.tx.WithinTx(ctx, func(repos repository.Repositories) error {
		ticket, err := repos.Tickets.Get(ctx, actor.TenantID, ticketID)
		if err != nil {
			return err
		}
		if input.ChargerID == "" && ticket.ChargerID != nil {
			ref.ChargerID = *ticket.ChargerID
		}
		if _, err := repos.Assets.GetCharger(ctx, actor.TenantID, ref.ChargerID); err != nil {
			return err
		}
		return repos.CsmsRefs.CreateFirmwareJobRef(ctx, ref)
	})
	if err != nil {
		return nil, err
	}
	return ref, nil
}

// TicketCsmsView bundles the stored references for a ticket.
type TicketCsmsView struct {
	Events       []domain.CsmsEventRef
	FirmwareJobs []domain.FirmwareJobRef
}

// ListRefs returns all CSMS references recorded against a ticket.
func (s *CsmsService) ListRefs(ctx context.Context, actor Actor, ticketID string) (*TicketCsmsView, error) {
	var view TicketCsmsView
	err := s.tx.WithinTx(ctx, func(repos repository.Repositories) error {
		if _, err := repos.Tickets.Get(ctx, actor.TenantID, ticketID); err != nil {
			return err
		}
		var err error
		view.Events, err = repos.CsmsRefs.ListEventRefs(ctx, actor.TenantID, ticketID)
		if err != nil {
			return err
		}
		view.FirmwareJobs, err = repos.CsmsRefs.ListFirmwareJobRefs(ctx, actor.TenantID, ticketID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return &view, nil
}

// ChargerStatus fetches live charger state from the CSMS for a tenant charger.
func (s *CsmsService) ChargerStatus(ctx context.Context, actor Actor, chargerID string) (*csms.ChargerStatus, error) {
	if s.client == nil {
		return nil, apperrors.NewInvalidState("csms integration is not configured")
	}
	var charger *domain.Charger
	err := s.tx.WithinTx(ctx, func(repos repository.Repositories) error {
		var err error
		charger, err = repos.Assets.GetCharger(ctx, actor.TenantID, chargerID)
		return err
	})
	if err != nil {
		return nil, err
	}
	if charger.CsmsChargerID == nil {
		return nil, apperrors.NewInvalidState("charger is not registered in the CSMS")
	}
	return s.client.GetChargerStatus(ctx, *charger.CsmsChargerID)
}
