package web

import (
	"errors"

	"github.com/gofiber/fiber/v3"
	"github.com/moogar0880/problems"

	"github.com/bloomcart/marketing-core/pkg/campaign"
	"github.com/bloomcart/marketing-core/pkg/persistence"
	"github.com/bloomcart/marketing-core/pkg/workflow"
)

func badRequest(c fiber.Ctx, detail string) error {
	problem := problems.NewStatusProblem(400).
		WithInstance(c.Path()).
		WithType("validation_error").
		WithDetail(detail)

	return c.Status(fiber.StatusBadRequest).JSON(problem)
}

func notFound(c fiber.Ctx, detail string) error {
	problem := problems.NewStatusProblem(404).
		WithInstance(c.Path()).
		WithType("not_found").
		WithDetail(detail)

	return c.Status(fiber.StatusNotFound).JSON(problem)
}

func conflict(c fiber.Ctx, detail string) error {
	problem := problems.NewStatusProblem(409).
		WithInstance(c.Path()).
		WithType("conflict").
		WithDetail(detail)

	return c.Status(fiber.StatusConflict).JSON(problem)
}

func internalError(c fiber.Ctx, err error) error {
	problem := problems.NewStatusProblem(500).
		WithInstance(c.Path()).
		WithType("internal_error").
		WithError(err)

	return c.Status(fiber.StatusInternalServerError).JSON(problem)
}

// handleServiceError maps domain errors onto problem responses.
func handleServiceError(c fiber.Ctx, err error) error {
	switch {
	case persistence.IsWorkflowNotFound(err):
		return notFound(c, "workflow not found")

	case persistence.IsExecutionNotFound(err):
		return notFound(c, "execution not found")

	case persistence.IsCampaignNotFound(err):
		return notFound(c, "campaign not found")

	case persistence.IsPostNotFound(err):
		return notFound(c, "post not found")

	case errors.Is(err, persistence.ErrDuplicateDiscountCode):
		return conflict(c, "discount code already in use")

	case errors.Is(err, workflow.ErrWorkflowHasNoSteps),
		errors.Is(err, workflow.ErrInvalidStepOrder),
		errors.Is(err, workflow.ErrInvalidStatusChange),
		errors.Is(err, campaign.ErrInvalidDateRange):
		return badRequest(c, err.Error())

	case errors.Is(err, campaign.ErrNotActivatable),
		errors.Is(err, campaign.ErrNotPausable),
		errors.Is(err, campaign.ErrCodeNotRedeemable):
		return conflict(c, err.Error())

	default:
		return internalError(c, err)
	}
}
