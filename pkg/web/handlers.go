// Package web provides HTTP handlers and REST API endpoints for workflow
// and application management.
package web

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"

	"github.com/lumenlms/approvalflow/pkg/services"
)

type APIHandlers struct {
	workflowService    *services.Workflow
	applicationService *services.Application
	validator          *validator.Validate
}

func NewAPIHandlers(
	workflowService *services.Workflow,
	applicationService *services.Application,
	validator *validator.Validate,
) *APIHandlers {
	return &APIHandlers{
		workflowService:    workflowService,
		applicationService: applicationService,
		validator:          validator,
	}
}

// Register wires every route onto the app.
func (h *APIHandlers) Register(app *fiber.App) {
	app.Get("/health", h.HealthCheck)

	app.Get("/workflows", h.GetWorkflows)
	app.Post("/workflows", h.CreateWorkflow)
	app.Get("/workflows/:id", h.GetWorkflow)
	app.Post("/workflows/:id/activate", h.ActivateWorkflow)
	app.Post("/workflows/:id/archive", h.ArchiveWorkflow)
	app.Delete("/workflows/:id", h.DeleteWorkflow)

	app.Get("/versions/:versionID/stages/:stageID/transition-options", h.GetTransitionOptions)
	app.Post("/versions/:versionID/stages/:stageID/deactivate", h.DeactivateStage)
	app.Post("/versions/:versionID/levels/:levelID/deactivate", h.DeactivateLevel)
	app.Post("/approvers/:id/deactivate", h.DeactivateApprover)

	app.Post("/applications", h.CreateApplication)
	app.Get("/applications/:id", h.GetApplication)
	app.Get("/applications/:id/activities", h.GetApplicationActivities)
	app.Post("/applications/:id/submit", h.SubmitApplication)
	app.Post("/applications/:id/withdraw", h.WithdrawApplication)
	app.Post("/applications/:id/transition", h.ApplyTransition)
}

func paramID(c fiber.Ctx, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Params(name), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}

	return id, true
}

func (h *APIHandlers) HealthCheck(c fiber.Ctx) error {
	status := "healthy"
	message := "Approvalflow API is healthy"
	httpStatus := http.StatusOK

	if err := h.workflowService.HealthCheck(c.Context()); err != nil {
		status = "unhealthy"
		message = "Approvalflow API is unhealthy"
		httpStatus = http.StatusInternalServerError
	}

	return c.Status(httpStatus).JSON(fiber.Map{
		"status":    status,
		"message":   message,
		"timestamp": time.Now().UTC(),
	})
}

func (h *APIHandlers) GetWorkflows(c fiber.Ctx) error {
	workflows, err := h.workflowService.List(c.Context())
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(fiber.Map{
		"workflows":   workflows,
		"total_count": len(workflows),
	})
}

func (h *APIHandlers) GetWorkflow(c fiber.Ctx) error {
	id, ok := paramID(c, "id")
	if !ok {
		return badRequest(c, "Workflow ID must be a positive integer")
	}

	workflow, err := h.workflowService.Get(c.Context(), id)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(workflow)
}

func (h *APIHandlers) CreateWorkflow(c fiber.Ctx) error {
	var req CreateWorkflowRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	created, err := h.workflowService.Create(c.Context(), &services.CreateWorkflowRequest{
		Name:        req.Name,
		Description: req.Description,
		IDNumber:    req.IDNumber,
		Stages:      req.Stages,
	})
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(created)
}

func (h *APIHandlers) ActivateWorkflow(c fiber.Ctx) error {
	id, ok := paramID(c, "id")
	if !ok {
		return badRequest(c, "Workflow ID must be a positive integer")
	}

	workflow, err := h.workflowService.Activate(c.Context(), id)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(workflow)
}

func (h *APIHandlers) ArchiveWorkflow(c fiber.Ctx) error {
	id, ok := paramID(c, "id")
	if !ok {
		return badRequest(c, "Workflow ID must be a positive integer")
	}

	workflow, err := h.workflowService.Archive(c.Context(), id)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(workflow)
}

func (h *APIHandlers) DeleteWorkflow(c fiber.Ctx) error {
	id, ok := paramID(c, "id")
	if !ok {
		return badRequest(c, "Workflow ID must be a positive integer")
	}

	force, _ := strconv.ParseBool(c.Query("force"))

	if err := h.workflowService.Delete(c.Context(), id, force); err != nil {
		return handleServiceError(c, err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}

func (h *APIHandlers) GetTransitionOptions(c fiber.Ctx) error {
	versionID, ok := paramID(c, "versionID")
	if !ok {
		return badRequest(c, "Version ID must be a positive integer")
	}

	stageID, ok := paramID(c, "stageID")
	if !ok {
		return badRequest(c, "Stage ID must be a positive integer")
	}

	options, err := h.workflowService.TransitionOptions(c.Context(), versionID, stageID)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(fiber.Map{"options": options})
}

func (h *APIHandlers) DeactivateStage(c fiber.Ctx) error {
	versionID, ok := paramID(c, "versionID")
	if !ok {
		return badRequest(c, "Version ID must be a positive integer")
	}

	stageID, ok := paramID(c, "stageID")
	if !ok {
		return badRequest(c, "Stage ID must be a positive integer")
	}

	force, _ := strconv.ParseBool(c.Query("force"))

	if err := h.workflowService.DeactivateStage(c.Context(), versionID, stageID, force); err != nil {
		return handleServiceError(c, err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}

func (h *APIHandlers) DeactivateLevel(c fiber.Ctx) error {
	versionID, ok := paramID(c, "versionID")
	if !ok {
		return badRequest(c, "Version ID must be a positive integer")
	}

	levelID, ok := paramID(c, "levelID")
	if !ok {
		return badRequest(c, "Level ID must be a positive integer")
	}

	force, _ := strconv.ParseBool(c.Query("force"))

	if err := h.workflowService.DeactivateLevel(c.Context(), versionID, levelID, force); err != nil {
		return handleServiceError(c, err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}

func (h *APIHandlers) DeactivateApprover(c fiber.Ctx) error {
	id, ok := paramID(c, "id")
	if !ok {
		return badRequest(c, "Approver ID must be a positive integer")
	}

	force, _ := strconv.ParseBool(c.Query("force"))

	if err := h.workflowService.DeactivateApprover(c.Context(), id, force); err != nil {
		return handleServiceError(c, err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}

func (h *APIHandlers) CreateApplication(c fiber.Ctx) error {
	var req CreateApplicationRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	app, err := h.applicationService.Create(c.Context(), &services.CreateApplicationRequest{
		WorkflowVersionID: req.WorkflowVersionID,
		AssignmentID:      req.AssignmentID,
		UserID:            req.UserID,
		Title:             req.Title,
		SourceID:          req.SourceID,
	})
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(app)
}

func (h *APIHandlers) GetApplication(c fiber.Ctx) error {
	id, ok := paramID(c, "id")
	if !ok {
		return badRequest(c, "Application ID must be a positive integer")
	}

	app, err := h.applicationService.Get(c.Context(), id)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(app)
}

func (h *APIHandlers) GetApplicationActivities(c fiber.Ctx) error {
	id, ok := paramID(c, "id")
	if !ok {
		return badRequest(c, "Application ID must be a positive integer")
	}

	activities, err := h.applicationService.Activities(c.Context(), id)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(fiber.Map{"activities": activities})
}

func (h *APIHandlers) SubmitApplication(c fiber.Ctx) error {
	id, ok := paramID(c, "id")
	if !ok {
		return badRequest(c, "Application ID must be a positive integer")
	}

	var req ActorRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	app, err := h.applicationService.Submit(c.Context(), id, req.ActorID)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(app)
}

func (h *APIHandlers) WithdrawApplication(c fiber.Ctx) error {
	id, ok := paramID(c, "id")
	if !ok {
		return badRequest(c, "Application ID must be a positive integer")
	}

	var req ActorRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	app, err := h.applicationService.Withdraw(c.Context(), id, req.ActorID)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(app)
}

func (h *APIHandlers) ApplyTransition(c fiber.Ctx) error {
	id, ok := paramID(c, "id")
	if !ok {
		return badRequest(c, "Application ID must be a positive integer")
	}

	var req TransitionRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	app, err := h.applicationService.ApplyTransition(c.Context(), id, req.Transition, req.ActorID)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(app)
}
