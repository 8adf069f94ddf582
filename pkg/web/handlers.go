// Package web provides the HTTP surface of the marketing core: trigger
// ingestion, workflow and campaign management, the discount validation
// endpoint consumed by checkout, and the scheduler tick entry point.
package web

import (
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"github.com/google/uuid"

	"github.com/bloomcart/marketing-core/pkg/campaign"
	"github.com/bloomcart/marketing-core/pkg/models"
	"github.com/bloomcart/marketing-core/pkg/persistence"
	"github.com/bloomcart/marketing-core/pkg/registry"
	"github.com/bloomcart/marketing-core/pkg/scheduler"
	"github.com/bloomcart/marketing-core/pkg/workflow"
)

type APIHandlers struct {
	persistence persistence.Persistence
	workflows   *workflow.Manager
	dispatcher  *workflow.Dispatcher
	campaigns   *campaign.Manager
	scheduler   *scheduler.Scheduler
	registry    *registry.Registry
	validator   *validator.Validate
}

func NewAPIHandlers(
	persistence persistence.Persistence,
	workflows *workflow.Manager,
	dispatcher *workflow.Dispatcher,
	campaigns *campaign.Manager,
	sched *scheduler.Scheduler,
	registry *registry.Registry,
) *APIHandlers {
	return &APIHandlers{
		persistence: persistence,
		workflows:   workflows,
		dispatcher:  dispatcher,
		campaigns:   campaigns,
		scheduler:   sched,
		registry:    registry,
		validator:   validator.New(validator.WithRequiredStructEnabled()),
	}
}

func (h *APIHandlers) HealthCheck(c fiber.Ctx) error {
	err := h.persistence.HealthCheck(c.Context())

	status := "healthy"
	httpStatus := http.StatusOK

	if err != nil {
		status = "unhealthy"
		httpStatus = http.StatusInternalServerError
	}

	return c.Status(httpStatus).JSON(fiber.Map{
		"status":    status,
		"timestamp": time.Now().UTC(),
	})
}

// HandleTrigger ingests one external trigger event and fans it out.
func (h *APIHandlers) HandleTrigger(c fiber.Ctx) error {
	var trigger workflow.Trigger
	if err := c.Bind().JSON(&trigger); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(trigger); err != nil {
		return badRequest(c, err.Error())
	}

	executionIDs, err := h.dispatcher.HandleTrigger(c.Context(), trigger)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.Status(fiber.StatusAccepted).JSON(fiber.Map{
		"execution_ids": executionIDs,
	})
}

// Tick runs one scheduler pass. The report is returned even when phases
// reported errors.
func (h *APIHandlers) Tick(c fiber.Ctx) error {
	report, err := h.scheduler.Tick(c.Context())
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(report)
	}

	return c.JSON(report)
}

func (h *APIHandlers) GetWorkflows(c fiber.Ctx) error {
	workflows, err := h.persistence.WorkflowRepository().GetAll(c.Context())
	if err != nil {
		return internalError(c, err)
	}

	return c.JSON(fiber.Map{"workflows": workflows})
}

func (h *APIHandlers) GetWorkflow(c fiber.Ctx) error {
	wf, err := h.persistence.WorkflowRepository().GetByID(c.Context(), c.Params("id"))
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(wf)
}

func (h *APIHandlers) CreateWorkflow(c fiber.Ctx) error {
	var req CreateWorkflowRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	wf := &models.WorkflowDefinition{
		Name:        req.Name,
		Description: req.Description,
		TriggerType: req.TriggerType,
		Config:      req.Config,
		Steps:       req.Steps,
	}

	err := h.workflows.Create(c.Context(), wf)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(wf)
}

func (h *APIHandlers) ActivateWorkflow(c fiber.Ctx) error {
	wf, err := h.workflows.Activate(c.Context(), c.Params("id"))
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(wf)
}

func (h *APIHandlers) PauseWorkflow(c fiber.Ctx) error {
	wf, err := h.workflows.Pause(c.Context(), c.Params("id"))
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(wf)
}

func (h *APIHandlers) GetExecution(c fiber.Ctx) error {
	execution, err := h.persistence.ExecutionRepository().GetByID(c.Context(), c.Params("id"))
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(execution)
}

func (h *APIHandlers) CancelExecution(c fiber.Ctx) error {
	cancelled, err := h.workflows.CancelExecution(c.Context(), c.Params("id"))
	if err != nil {
		return handleServiceError(c, err)
	}

	if !cancelled {
		return conflict(c, "execution already finished")
	}

	return c.SendStatus(fiber.StatusNoContent)
}

func (h *APIHandlers) AvailableSteps(c fiber.Ctx) error {
	return c.JSON(fiber.Map{"steps": h.registry.AvailableSteps()})
}

func (h *APIHandlers) CreateCampaign(c fiber.Ctx) error {
	var req CreateCampaignRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	cp := &models.Campaign{
		Name:          req.Name,
		Type:          req.Type,
		DiscountCode:  req.DiscountCode,
		DiscountKind:  req.DiscountKind,
		DiscountValue: req.DiscountValue,
		MinOrderValue: req.MinOrderValue,
		MaxUses:       req.MaxUses,
		StartDate:     req.StartDate,
		EndDate:       req.EndDate,
		Channels:      req.Channels,
	}

	err := h.campaigns.Create(c.Context(), cp)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(cp)
}

func (h *APIHandlers) GetCampaign(c fiber.Ctx) error {
	cp, err := h.persistence.CampaignRepository().GetByID(c.Context(), c.Params("id"))
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(cp)
}

func (h *APIHandlers) ActivateCampaign(c fiber.Ctx) error {
	cp, err := h.campaigns.Activate(c.Context(), c.Params("id"))
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(cp)
}

func (h *APIHandlers) PauseCampaign(c fiber.Ctx) error {
	cp, err := h.campaigns.Pause(c.Context(), c.Params("id"))
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(cp)
}

// ValidateDiscount is the read-only check consumed by checkout. Validation
// never consumes a use.
func (h *APIHandlers) ValidateDiscount(c fiber.Ctx) error {
	var req DiscountRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	validation, err := h.campaigns.ValidateDiscountCode(c.Context(), req.Code, req.OrderValue)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(validation)
}

func (h *APIHandlers) RedeemDiscount(c fiber.Ctx) error {
	var req DiscountRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	validation, err := h.campaigns.RedeemDiscountCode(c.Context(), req.Code, req.OrderValue)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(validation)
}

func (h *APIHandlers) SchedulePost(c fiber.Ctx) error {
	var req SchedulePostRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	now := time.Now().UTC()

	post := &models.ScheduledPost{
		ID:          uuid.New().String(),
		Platform:    req.Platform,
		Content:     req.Content,
		MediaURLs:   req.MediaURLs,
		Hashtags:    req.Hashtags,
		ScheduledAt: req.ScheduledAt,
		Status:      models.PostStatusScheduled,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	err := h.persistence.PostRepository().Save(c.Context(), post)
	if err != nil {
		return internalError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(post)
}

func (h *APIHandlers) GetPost(c fiber.Ctx) error {
	post, err := h.persistence.PostRepository().GetByID(c.Context(), c.Params("id"))
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(post)
}

func (h *APIHandlers) GetContactNotes(c fiber.Ctx) error {
	notes, err := h.persistence.NoteRepository().ListByContact(c.Context(), c.Params("id"))
	if err != nil {
		return internalError(c, err)
	}

	return c.JSON(fiber.Map{"notes": notes})
}
