package handlers

import (
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/voltdesk/maintenance-service/internal/api/dto"
	"github.com/voltdesk/maintenance-service/internal/auth"
	"github.com/voltdesk/maintenance-service/internal/domain"
	"github.com/voltdesk/maintenance-service/internal/repository"
	"github.com/voltdesk/maintenance-service/internal/service"
	apperrors "github.com/voltdesk/maintenance-service/pkg/util"
)

// TicketsHandler exposes the ticket lifecycle endpoints.
type TicketsHandler struct {
	service *service.TicketService
}

// NewTicketsHandler constructs handler.
func NewTicketsHandler(ticketService *service.TicketService) *TicketsHandler {
	return &TicketsHandler{service: ticketService}
}

func actorFrom(c *fiber.Ctx) (service.Actor, error) {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return service.Actor{}, apperrors.NewUnauthenticated("authentication required")
	}
	return service.Actor{TenantID: principal.TenantID, UserID: principal.UserID, Role: principal.Role}, nil
}

// CreateTicket POST /tickets.
func (h *TicketsHandler) CreateTicket(c *fiber.Ctx) error {
	actor, err := actorFrom(c)
	if err != nil {
		return err
	}
	var req dto.CreateTicketRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if req.SiteID == "" || req.Title == "" {
		return apperrors.NewValidationError("site_id and title required", nil)
	}
	if req.Category != "" && !req.Category.Valid() {
		return apperrors.NewValidationError("unknown category", map[string]any{"category": req.Category})
	}
	if req.Priority != "" && !req.Priority.Valid() {
		return apperrors.NewValidationError("unknown priority", map[string]any{"priority": req.Priority})
	}
	if req.Channel != "" && !req.Channel.Valid() {
		return apperrors.NewValidationError("unknown channel", map[string]any{"channel": req.Channel})
	}

	ticket, err := h.service.CreateTicket(c.UserContext(), actor, service.CreateTicketInput{
		SiteID:        req.SiteID,
		ChargerID:     req.ChargerID,
		Title:         req.Title,
		Description:   req.Description,
		Channel:       req.Channel,
		Category:      req.Category,
		Priority:      req.Priority,
		ReporterName:  req.ReporterName,
		ReporterEmail: req.ReporterEmail,
	})
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"data": ticketSummary(ticket)})
}

// ListTickets GET /tickets.
func (h *TicketsHandler) ListTickets(c *fiber.Ctx) error {
	actor, err := actorFrom(c)
	if err != nil {
		return err
	}
	tickets, err := h.service.ListTickets(c.UserContext(), actor, parseTicketQuery(c))
	if err != nil {
		return err
	}
	items := make([]dto.TicketSummary, 0, len(tickets))
	for i := range tickets {
		items = append(items, ticketSummary(&tickets[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

// GetTicket GET /tickets/:id.
func (h *TicketsHandler) GetTicket(c *fiber.Ctx) error {
	actor, err := actorFrom(c)
	if err != nil {
		return err
	}
	view, err := h.service.GetTicket(c.UserContext(), actor, c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": ticketDetail(view)})
}

// Transition POST /tickets/:id/transition.
func (h *TicketsHandler) Transition(c *fiber.Ctx) error {
	actor, err := actorFrom(c)
	if err != nil {
		return err
	}
	var req dto.TransitionRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if !req.Status.Valid() {
		return apperrors.NewValidationError("unknown status", map[string]any{"status": req.Status})
	}

	ticket, err := h.service.TransitionStatus(c.UserContext(), actor, c.Params("id"), req.Status, req.Reason)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": ticketSummary(ticket)})
}

// Assign POST /tickets/:id/assign.
func (h *TicketsHandler) Assign(c *fiber.Ctx) error {
	actor, err := actorFrom(c)
	if err != nil {
		return err
	}
	var req dto.AssignRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if req.AssigneeType != domain.AssigneeTypeUser && req.AssigneeType != domain.AssigneeTypeVendor {
		return apperrors.NewValidationError("assignee_type must be USER or VENDOR", nil)
	}

	ticket, err := h.service.AssignTicket(c.UserContext(), actor, c.Params("id"), service.AssignTicketInput{
		AssigneeType:   req.AssigneeType,
		AssigneeUserID: req.AssigneeUserID,
		VendorName:     req.VendorName,
		VendorContact:  req.VendorContact,
		Notes:          req.Notes,
		Reassign:       req.Reassign,
	})
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": ticketSummary(ticket)})
}

// Unassign POST /tickets/:id/unassign.
func (h *TicketsHandler) Unassign(c *fiber.Ctx) error {
	actor, err := actorFrom(c)
	if err != nil {
		return err
	}
	ticket, err := h.service.UnassignTicket(c.UserContext(), actor, c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": ticketSummary(ticket)})
}

// AddWorklog POST /tickets/:id/worklogs.
func (h *TicketsHandler) AddWorklog(c *fiber.Ctx) error {
	actor, err := actorFrom(c)
	if err != nil {
		return err
	}
	var req dto.WorklogRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}

	worklog, err := h.service.RecordWorklog(c.UserContext(), actor, c.Params("id"), service.WorklogInput{
		Body:             req.Body,
		WorkType:         req.WorkType,
		TimeSpentMinutes: req.TimeSpentMinutes,
		IsInternal:       req.IsInternal,
	})
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"data": worklogResponse(worklog)})
}

// ListWorklogs GET /tickets/:id/worklogs.
func (h *TicketsHandler) ListWorklogs(c *fiber.Ctx) error {
	actor, err := actorFrom(c)
	if err != nil {
		return err
	}
	worklogs, err := h.service.ListWorklogs(c.UserContext(), actor, c.Params("id"))
	if err != nil {
		return err
	}
	items := make([]dto.WorklogResponse, 0, len(worklogs))
	for i := range worklogs {
		items = append(items, worklogResponse(&worklogs[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

// ListHistory GET /tickets/:id/history.
func (h *TicketsHandler) ListHistory(c *fiber.Ctx) error {
	actor, err := actorFrom(c)
	if err != nil {
		return err
	}
	limit := parseInt(c.Query("limit"), 100)
	offset := parseInt(c.Query("offset"), 0)
	if offset < 0 {
		offset = 0
	}
	entries, err := h.service.ListHistory(c.UserContext(), actor, c.Params("id"), limit, offset)
	if err != nil {
		return err
	}
	items := make([]dto.HistoryEntryResponse, 0, len(entries))
	for _, entry := range entries {
		items = append(items, dto.HistoryEntryResponse{
			ID:         entry.ID,
			FromStatus: entry.FromStatus,
			ToStatus:   entry.ToStatus,
			Reason:     entry.Reason,
			ChangedBy:  entry.ChangedBy,
			ChangedAt:  entry.ChangedAt,
		})
	}
	return c.JSON(fiber.Map{"data": items})
}

// ListAssignments GET /tickets/:id/assignments.
func (h *TicketsHandler) ListAssignments(c *fiber.Ctx) error {
	actor, err := actorFrom(c)
	if err != nil {
		return err
	}
	assignments, err := h.service.ListAssignments(c.UserContext(), actor, c.Params("id"))
	if err != nil {
		return err
	}
	items := make([]dto.AssignmentResponse, 0, len(assignments))
	for i := range assignments {
		a := &assignments[i]
		items = append(items, dto.AssignmentResponse{
			ID:            a.ID,
			AssigneeType:  a.AssigneeType,
			AssigneeRef:   a.AssigneeRef(),
			VendorContact: a.VendorContact,
			Notes:         a.Notes,
			IsActive:      a.Active,
			AssignedBy:    a.AssignedBy,
			AssignedAt:    a.AssignedAt,
			ReleasedAt:    a.ReleasedAt,
		})
	}
	return c.JSON(fiber.Map{"data": items})
}

func parseTicketQuery(c *fiber.Ctx) repository.TicketFilter {
	filter := repository.TicketFilter{}
	if siteID := c.Query("site_id"); siteID != "" {
		filter.SiteID = &siteID
	}
	if chargerID := c.Query("charger_id"); chargerID != "" {
		filter.ChargerID = &chargerID
	}
	if assignee := c.Query("assignee"); assignee != "" {
		filter.AssigneeRef = &assignee
	}
	if statusStr := c.Query("status"); statusStr != "" {
		for _, part := range strings.Split(statusStr, ",") {
			filter.Statuses = append(filter.Statuses, domain.TicketStatus(strings.TrimSpace(part)))
		}
	}
	if priorityStr := c.Query("priority"); priorityStr != "" {
		for _, part := range strings.Split(priorityStr, ",") {
			filter.Priorities = append(filter.Priorities, domain.TicketPriority(strings.TrimSpace(part)))
		}
	}
	if categoryStr := c.Query("category"); categoryStr != "" {
		for _, part := range strings.Split(categoryStr, ",") {
			filter.Categories = append(filter.Categories, domain.TicketCategory(strings.TrimSpace(part)))
		}
	}
	if breachedStr := c.Query("breached"); breachedStr != "" {
		breached := breachedStr == "true"
		filter.Breached = &breached
	}
	if search := c.Query("q"); search != "" {
		filter.SearchTerm = &search
	}
	if from := parseTime(c.Query("opened_from")); from != nil {
		filter.OpenedFrom = from
	}
	if to := parseTime(c.Query("opened_to")); to != nil {
		filter.OpenedTo = to
	}
	page := parseInt(c.Query("page"), 1)
	if page <= 0 {
		page = 1
	}
	pageSize := parseInt(c.Query("page_size"), 20)
	if pageSize <= 0 || pageSize > 200 {
		pageSize = 20
	}
	filter.Offset = (page - 1) * pageSize
	filter.Limit = pageSize
	return filter
}

func parseTime(val string) *time.Time {
	if val == "" {
		return nil
	}
	t, err := time.Parse(time.RFC3339, val)
	if err != nil {
		return nil
	}
	return &t
}

func parseInt(val string, def int) int {
	if val == "" {
		return def
	}
	parsed, err := strconv.Atoi(val)
	if err != nil {
		return def
	}
	return parsed
}

func ticketSummary(ticket *domain.Ticket) dto.TicketSummary {
	return dto.TicketSummary{
		ID:              ticket.ID,
		Number:          ticket.Number,
		SiteID:          ticket.SiteID,
		ChargerID:       ticket.ChargerID,
		Title:           ticket.Title,
		Status:          ticket.Status,
		Category:        ticket.Category,
		Priority:        ticket.Priority,
		CurrentAssignee: ticket.CurrentAssignee,
		SlaBreached:     ticket.SlaBreached,
		Version:         ticket.Version,
		OpenedAt:        ticket.OpenedAt,
		UpdatedAt:       ticket.UpdatedAt,
	}
}

func ticketDetail(view *service.TicketView) dto.TicketDetailResponse {
	detail := dto.TicketDetailResponse{
		TicketSummary:     ticketSummary(view.Ticket),
		Description:       view.Ticket.Description,
		Channel:           view.Ticket.Channel,
		ReporterName:      view.Ticket.ReporterName,
		ReporterEmail:     view.Ticket.ReporterEmail,
		ResolutionSummary: view.Ticket.ResolutionSummary,
		ResolvedAt:        view.Ticket.ResolvedAt,
		ClosedAt:          view.Ticket.ClosedAt,
		CreatedBy:         view.Ticket.CreatedBy,
	}
	if view.Measurement != nil {
		detail.Sla = slaStatus(view.Measurement, view.Elapsed)
	}
	return detail
}

func slaStatus(m *domain.SlaMeasurement, elapsed time.Duration) *dto.SlaStatus {
	return &dto.SlaStatus{
		PolicyID:           m.PolicyID,
		ResponseDeadline:   m.ResponseDeadline,
		ResolutionDeadline: m.ResolutionDeadline,
		Paused:             m.IsPaused(),
		PausedTotalSeconds: int64(m.PausedTotal / time.Second),
		ElapsedSeconds:     int64(elapsed / time.Second),
		FirstResponseAt:    m.FirstResponseAt,
		ResponseBreached:   m.ResponseBreached,
		Breached:           m.Breached,
		BreachedAt:         m.BreachedAt,
	}
}

func worklogResponse(w *domain.Worklog) dto.WorklogResponse {
	return dto.WorklogResponse{
		ID:               w.ID,
		Body:             w.Body,
		WorkType:         w.WorkType,
		TimeSpentMinutes: w.TimeSpentMinutes,
		IsInternal:       w.IsInternal,
		AuthorID:         w.AuthorID,
		CreatedAt:        w.CreatedAt,
	}
}
