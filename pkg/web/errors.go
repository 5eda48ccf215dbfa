package web

import (
	"errors"

	"github.com/gofiber/fiber/v3"
	"github.com/moogar0880/problems"

	"github.com/lumenlms/approvalflow/pkg/lifecycle"
	"github.com/lumenlms/approvalflow/pkg/persistence"
	"github.com/lumenlms/approvalflow/pkg/services"
	"github.com/lumenlms/approvalflow/pkg/transition"
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

func conflict(c fiber.Ctx, problemType, detail string) error {
	problem := problems.NewStatusProblem(409).
		WithInstance(c.Path()).
		WithType(problemType).
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

// handleServiceError provides typed error handling for service layer errors.
func handleServiceError(c fiber.Ctx, err error) error {
	switch {
	case services.IsValidationError(err):
		return badRequest(c, err.Error())

	case errors.Is(err, transition.ErrUnknownTransitionCode):
		return badRequest(c, err.Error())

	case services.IsConflictError(err):
		return conflict(c, "conflict", err.Error())

	case lifecycle.IsHasActiveDependencies(err):
		return conflict(c, "active_dependencies", err.Error())

	case lifecycle.IsInvalidTransition(err),
		lifecycle.IsCannotActivate(err),
		lifecycle.IsCannotArchive(err),
		errors.Is(err, lifecycle.ErrCannotDelete):
		return conflict(c, "lifecycle_conflict", err.Error())

	case persistence.IsWorkflowNotFound(err):
		return notFound(c, "workflow not found")

	case persistence.IsVersionNotFound(err):
		return notFound(c, "workflow version not found")

	case persistence.IsApplicationNotFound(err):
		return notFound(c, "application not found")

	case persistence.IsAssignmentNotFound(err):
		return notFound(c, "assignment not found")

	case persistence.IsApproverNotFound(err):
		return notFound(c, "approver not found")

	case persistence.IsNotDraft(err):
		return conflict(c, "not_draft", err.Error())

	default:
		// Log unexpected errors but don't expose details
		return internalError(c, err)
	}
}
